package hash

import (
	"encoding/hex"
	"testing"
)

func TestFingerprint_IgnoresLayout(t *testing.T) {
	base := mustParse(t, "program Demo; var x: integer; begin x := 1 + 2; writeln(x) end.")

	variants := []string{
		"program Demo;\nvar\n  x: integer;\nbegin\n  x := 1 + 2;\n  writeln(x)\nend.",
		"program Demo; { counter } var x: integer; (* body *) begin x := 1 + 2; // sum\n writeln(x) end.",
		"PROGRAM demo; VAR X: INTEGER; BEGIN X := 1 + 2; WRITELN(x) END.",
	}

	want := Fingerprint(base)
	for _, src := range variants {
		if got := Fingerprint(mustParse(t, src)); got != want {
			t.Errorf("fingerprint changed for %q", src)
		}
	}
}

func TestFingerprint_DetectsEdits(t *testing.T) {
	a := mustParse(t, "program p; var x: integer; begin x := 1 end.")
	b := mustParse(t, "program p; var x: integer; begin x := 2 end.")
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("different programs share a fingerprint")
	}
}

func TestFingerprintHex(t *testing.T) {
	prog := mustParse(t, "program p; begin end.")
	h := Fingerprint(prog)
	got := FingerprintHex(prog)
	if got != hex.EncodeToString(h[:]) {
		t.Errorf("FingerprintHex = %s", got)
	}
	if len(got) != 64 {
		t.Errorf("hex length: got %d, want 64", len(got))
	}
}

func TestListingKey(t *testing.T) {
	base := mustParse(t, "program p; var x: integer; begin x := 1 end.")
	relaid := mustParse(t, "program p;\n{ layout only }\nvar x: integer;\nbegin\n  x := 1\nend.")
	keywords := mustParse(t, "PROGRAM p; VAR x: INTEGER; BEGIN x := 1 END.")
	renamed := mustParse(t, "program p; var X: integer; begin X := 1 end.")

	if ListingKey(base) != ListingKey(relaid) {
		t.Error("layout changed the listing key")
	}
	if ListingKey(base) != ListingKey(keywords) {
		t.Error("keyword case changed the listing key")
	}
	if ListingKey(base) == ListingKey(renamed) {
		t.Error("identifier spelling should change the listing key")
	}
	if Fingerprint(base) != Fingerprint(renamed) {
		t.Error("identifier case should not change the fingerprint")
	}
}
