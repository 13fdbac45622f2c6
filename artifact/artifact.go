// Package artifact defines the binary object format for a compiled program:
// the three-address listing, its string table and the fingerprint of the
// source it was generated from.
package artifact

import (
	"fmt"

	"github.com/chazu/pasc/compiler"
	"github.com/chazu/pasc/compiler/hash"
	"github.com/fxamacker/cbor/v2"
)

// Version is the object format version written by Marshal.
const Version = 1

// Object is a compiled program in transportable form. Fingerprint
// identifies the program; Key identifies this exact listing and is what
// build caches index.
type Object struct {
	Version      int      `cbor:"1,keyasint"`
	Program      string   `cbor:"2,keyasint"`
	Fingerprint  [32]byte `cbor:"3,keyasint"`
	HashVersion  byte     `cbor:"4,keyasint"`
	Instructions []string `cbor:"5,keyasint"`
	Strings      []String `cbor:"6,keyasint,omitempty"`
	Key          [32]byte `cbor:"7,keyasint"`
}

// String is one string table entry.
type String struct {
	Label string `cbor:"1,keyasint"`
	Value string `cbor:"2,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("artifact: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// FromResult packages a successful compilation.
func FromResult(res *compiler.Result) *Object {
	obj := &Object{
		Version:      Version,
		Program:      res.Program.Name,
		Fingerprint:  hash.Fingerprint(res.Program),
		Key:          hash.ListingKey(res.Program),
		HashVersion:  hash.HashVersion,
		Instructions: append([]string(nil), res.Output.Instructions...),
	}
	for _, s := range res.Output.Strings {
		obj.Strings = append(obj.Strings, String{Label: s.Label, Value: s.Value})
	}
	return obj
}

// Output converts the object back to the code generator's form.
func (o *Object) Output() *compiler.Output {
	out := &compiler.Output{Instructions: o.Instructions}
	for _, s := range o.Strings {
		out.Strings = append(out.Strings, compiler.StringData{Label: s.Label, Value: s.Value})
	}
	return out
}

// Listing renders the object exactly as the text listing of the
// compilation it came from.
func (o *Object) Listing() []string {
	return o.Output().Lines()
}

// Marshal serializes an Object to canonical CBOR.
func Marshal(o *Object) ([]byte, error) {
	return cborEncMode.Marshal(o)
}

// Unmarshal deserializes an Object, rejecting formats it does not know.
func Unmarshal(data []byte) (*Object, error) {
	var o Object
	if err := cbor.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("artifact: unmarshal object: %w", err)
	}
	if o.Version != Version {
		return nil, fmt.Errorf("artifact: unsupported object version %d", o.Version)
	}
	return &o, nil
}
