package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/pasc/compiler"
)

// Fingerprint computes the SHA-256 content hash of a parsed program.
//
// The hash is computed over a deterministic serialization of the AST with
// identifiers case-folded and positions removed. Two sources that differ
// only in whitespace, comments or identifier case produce the same
// fingerprint: they are the same program.
func Fingerprint(prog *compiler.Program) [32]byte {
	return sha256.Sum256(Serialize(prog))
}

// FingerprintHex returns Fingerprint as a lowercase hex string.
func FingerprintHex(prog *compiler.Program) string {
	h := Fingerprint(prog)
	return hex.EncodeToString(h[:])
}

// ListingKey hashes the program without case folding. Generated listings
// spell identifiers as the source does, so two sources with equal keys
// produce byte-identical listings. Build caches are keyed by it.
func ListingKey(prog *compiler.Program) [32]byte {
	return sha256.Sum256(SerializeExact(prog))
}
