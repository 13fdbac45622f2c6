package vm

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeListing(t *testing.T) {
	listing := `# Program: Demo
# String literals
# Variable: x
# Constant: limit = 3

# Procedure: show
show:
# Parameter n
write n
return


# Main program
main:
x = 1
L0:
t0 = x > limit
if_true t0 goto L1
call show, x
write str0
t1 = x + 1
x = t1
goto L0
L1:
writeln
halt

# String literal data
str0: .string "a\tb\\"`

	prog, err := DecodeText(listing)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if prog.Name != "Demo" {
		t.Errorf("name = %q", prog.Name)
	}

	show, ok := prog.Routines["show"]
	if !ok {
		t.Fatal("routine show not found")
	}
	if show.Function || len(show.Params) != 1 || show.Params[0] != "n" {
		t.Errorf("show = %+v", show)
	}
	if prog.Code[show.Entry].Op != OpEnter || prog.Code[show.End-1].Op != OpReturn {
		t.Errorf("show spans %d..%d", show.Entry, show.End)
	}

	if got := prog.Strings["str0"]; got != "a\tb\\" {
		t.Errorf("str0 = %q", got)
	}

	var ops []string
	for _, ins := range prog.Code {
		ops = append(ops, ins.Op.String())
	}
	want := "const enter write return move binary if_true call write binary move goto writeln halt"
	if got := strings.Join(ops, " "); got != want {
		t.Errorf("ops:\n got %s\nwant %s", got, want)
	}

	// The data label in "write str0" becomes a constant operand.
	for _, ins := range prog.Code {
		if ins.Op == OpWrite && ins.Text == "write str0" {
			if ins.A.kind != operandConst || ins.A.value.Str != "a\tb\\" {
				t.Errorf("write operand = %+v", ins.A)
			}
		}
	}

	if prog.Labels["main"] != 4 || prog.Labels["l0"] != 5 || prog.Labels["l1"] != 12 {
		t.Errorf("labels = %v", prog.Labels)
	}
}

func TestDecodeDeclaredNameShadowsStringLabel(t *testing.T) {
	prog, err := DecodeText("# Variable: str0\nmain:\nwrite str0\nhalt\n# String literal data\nstr0: .string \"x\"")
	if err != nil {
		t.Fatal(err)
	}
	if a := prog.Code[0].A; a.kind != operandName || a.name != "str0" {
		t.Errorf("operand = %+v, want variable str0", a)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		listing string
		msg     string
	}{
		{"goto L9", "jump to undefined label l9"},
		{"call nowhere", "call to undefined routine nowhere"},
		{"return", "return outside a routine"},
		{"frobnicate x", "unrecognized instruction"},
		{"t0 = a ** b", "unknown operator **"},
		{"t0 = a b", "malformed assignment"},
		{"if_true t0 L1", "malformed conditional jump"},
		{"L0:\nL0:", "label L0 defined twice"},
		{"# Procedure: p\np:\nwrite 1", "routine p has no return"},
		{"# Function: f\nmain:", "routine f has no entry label"},
		{"# Parameter n", "parameter outside a routine"},
		{"x = 9z", "bad number 9z"},
		{"write @", "bad operand @"},
		{"# String literal data\nstr0: .string oops", "malformed string literal"},
	}

	for _, tc := range tests {
		_, err := DecodeText(tc.listing)
		var derr *DecodeError
		if !errors.As(err, &derr) {
			t.Errorf("%q: err = %v, want DecodeError", tc.listing, err)
			continue
		}
		if !strings.Contains(derr.Msg, tc.msg) {
			t.Errorf("%q: msg = %q, want %q", tc.listing, derr.Msg, tc.msg)
		}
	}
}

func TestDecodeErrorPosition(t *testing.T) {
	_, err := DecodeText("main:\nx = 1\nbogus line here")
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v", err)
	}
	if derr.Line != 3 || derr.Text != "bogus line here" {
		t.Errorf("err = %+v", derr)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("Error() = %q", err.Error())
	}
}
