package server

import (
	"github.com/fxamacker/cbor/v2"
)

// cborCodec lets Connect carry plain Go structs as canonical CBOR instead
// of protobuf messages. Clients select it with the application/cbor
// content type.
type cborCodec struct {
	enc cbor.EncMode
}

func newCBORCodec() *cborCodec {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("server: failed to create CBOR enc mode: " + err.Error())
	}
	return &cborCodec{enc: em}
}

// Name implements connect.Codec.
func (c *cborCodec) Name() string { return "cbor" }

// Marshal implements connect.Codec.
func (c *cborCodec) Marshal(msg any) ([]byte, error) {
	return c.enc.Marshal(msg)
}

// Unmarshal implements connect.Codec.
func (c *cborCodec) Unmarshal(data []byte, msg any) error {
	return cbor.Unmarshal(data, msg)
}
