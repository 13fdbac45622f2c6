package artifact

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chazu/pasc/compiler"
	"github.com/chazu/pasc/compiler/hash"
)

func compile(t *testing.T, src string) *compiler.Result {
	t.Helper()
	res, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return res
}

func TestFromResult(t *testing.T) {
	res := compile(t, "program Hello; begin writeln('hi', 'there') end.")
	obj := FromResult(res)

	if obj.Version != Version {
		t.Errorf("Version = %d, want %d", obj.Version, Version)
	}
	if obj.Program != "Hello" {
		t.Errorf("Program = %q", obj.Program)
	}
	if obj.Fingerprint != hash.Fingerprint(res.Program) {
		t.Error("fingerprint does not match the program")
	}
	if obj.Key != hash.ListingKey(res.Program) {
		t.Error("key does not match the program")
	}
	if obj.HashVersion != hash.HashVersion {
		t.Errorf("HashVersion = %d", obj.HashVersion)
	}
	if len(obj.Strings) != 2 || obj.Strings[1].Label != "str1" || obj.Strings[1].Value != "there" {
		t.Errorf("Strings = %+v", obj.Strings)
	}
}

func TestRoundTripListing(t *testing.T) {
	res := compile(t, `program p;
var i: integer;
begin
  for i := 1 to 3 do writeln('line "', i, '"')
end.`)

	data, err := Marshal(FromResult(res))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	obj, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := strings.Join(obj.Listing(), "\n")
	if got != res.Output.String() {
		t.Errorf("listing differs:\n%s\n---\n%s", got, res.Output.String())
	}
}

func TestMarshalIsCanonical(t *testing.T) {
	src := "program p; var x: integer; begin x := 2 * 3 end."
	a, err := Marshal(FromResult(compile(t, src)))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(FromResult(compile(t, src)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic")
	}
}

func TestUnmarshalRejectsUnknownVersion(t *testing.T) {
	obj := FromResult(compile(t, "program p; begin end."))
	obj.Version = Version + 1

	data, err := Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(data); err == nil || !strings.Contains(err.Error(), "unsupported object version") {
		t.Errorf("expected version error, got %v", err)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}
