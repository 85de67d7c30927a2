package rtl

import (
	"errors"
	"strings"
	"testing"
)

func parseOne(t *testing.T, src string) *Design {
	t.Helper()
	d, err := ParseDesign(NewTypeInterner(), []byte(src))
	if err != nil {
		t.Fatalf("ParseDesign: %v", err)
	}
	return d
}

func TestParsePrintRoundTrip(t *testing.T) {
	const src = `rtl.externmodule @Shifter(%in: i8, %amount: i8) -> (i8) attributes {DEPTH = "2", STYLE = "barrel"}

rtl.module @Top(%a: i8, %b: i8, %io: i16 {rtl.inout}) -> (i8) {
  %c42_i8 = rtl.constant 42 : i8
  %0 = rtl.add %a, %b : i8
  %stage = rtl.wire %0 : i8
  %1 = rtl.and %stage, %c42_i8 : i8
  %2 = rtl.extract %io from 4 : i16 -> i8
  %3 = rtl.xor %1, %2 : i8
  %shifted = rtl.instance "u_shift" @Shifter(%3, %c42_i8) : (i8, i8) -> (i8)
  rtl.output %shifted : i8
}
`
	d := parseOne(t, src)
	got := PrintDesign(d)
	if got != src {
		t.Errorf("round trip changed the text:\ngot:\n%s\nwant:\n%s", got, src)
	}
}

// Printing any parsed design and reparsing it must reach a fixpoint after
// one print.
func TestPrintParseFixpoint(t *testing.T) {
	const src = `rtl.module @NoOut(%a: i8) -> () {
  %w = rtl.wire %a : i8
}

rtl.module @Math(%x: i4) -> (i4, i8) {
  %c3_i4 = rtl.constant 3 : i4
  %0 = rtl.mul %x, %c3_i4 : i4
  %1 = rtl.concat %x, %0 : i8
  %2 = rtl.shl %0, %c3_i4 : i4
  rtl.output %2, %1 : i4, i8
}
`
	d := parseOne(t, src)
	first := PrintDesign(d)
	second := PrintDesign(parseOne(t, first))
	if first != second {
		t.Errorf("print not stable:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	// The zero-output module gained its implicit terminator.
	if !strings.Contains(first, "rtl.output\n") {
		t.Errorf("missing implicit terminator:\n%s", first)
	}
}

func TestParseNameInference(t *testing.T) {
	const src = `rtl.module @M(%clk: i1, %0: i8, %named: i4 {rtl.name = "other"}) -> () {
}
`
	d := parseOne(t, src)
	ports := d.Modules[0].InputPorts()
	if ports[0].Name != "clk" {
		t.Errorf("port 0 name = %q, want clk", ports[0].Name)
	}
	if ports[1].Name != "" {
		t.Errorf("port 1 name = %q, numeric ids must stay anonymous", ports[1].Name)
	}
	if ports[2].Name != "other" {
		t.Errorf("port 2 name = %q, explicit attribute wins", ports[2].Name)
	}
}

func TestParseArrayTypes(t *testing.T) {
	const src = `rtl.module @Mem(%data: array<4xi8>, %banks: array<2xarray<4xi8>>) -> (array<4xi8>) {
  rtl.output %data : array<4xi8>
}
`
	d := parseOne(t, src)
	tc := d.Modules[0].Body.Interner()
	ports := d.Modules[0].InputPorts()
	if want := tc.Array(tc.Int(8), 4); ports[0].Type != want {
		t.Errorf("port 0 type = %s, want %s", ports[0].Type, want)
	}
	if want := tc.Array(tc.Array(tc.Int(8), 4), 2); ports[1].Type != want {
		t.Errorf("port 1 type = %s, want %s", ports[1].Type, want)
	}
}

func TestParseComments(t *testing.T) {
	const src = `// datapath
rtl.module @M(%a: i8) -> (i8) {
  // passthrough for now
  rtl.output %a : i8
}
`
	parseOne(t, src)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown value", "rtl.module @M(%a: i8) -> (i8) {\n  rtl.output %b : i8\n}\n"},
		{"duplicate value", "rtl.module @M(%a: i8) -> () {\n  %a = rtl.and %a : i8\n}\n"},
		{"unknown op", "rtl.module @M() -> () {\n  rtl.bogus\n}\n"},
		{"type disagreement", "rtl.module @M(%a: i8) -> () {\n  %0 = rtl.and %a : i4\n}\n"},
		{"missing terminator", "rtl.module @M(%a: i8) -> (i8) {\n}\n"},
		{"duplicate module", "rtl.module @M() -> () {\n}\nrtl.module @M() -> () {\n}\n"},
	}
	for _, tt := range tests {
		if _, err := ParseDesign(NewTypeInterner(), []byte(tt.src)); err == nil {
			t.Errorf("%s: expected parse failure", tt.name)
		}
	}
}

func TestParseUnresolvedInstance(t *testing.T) {
	const src = `rtl.module @Top(%a: i8) -> (i8) {
  %r = rtl.instance "u1" @Missing(%a) : (i8) -> (i8)
  rtl.output %r : i8
}
`
	_, err := ParseDesign(NewTypeInterner(), []byte(src))
	var symErr *UnresolvedSymbolError
	if !errors.As(err, &symErr) || symErr.Reason != TargetNotFound {
		t.Fatalf("err = %v, want TargetNotFound", err)
	}
}

func TestParseOutputPortMismatch(t *testing.T) {
	const src = `rtl.module @M(%a: i4) -> (i8) {
  rtl.output %a : i4
}
`
	_, err := ParseDesign(NewTypeInterner(), []byte(src))
	var sErr *StructuralError
	if !errors.As(err, &sErr) || sErr.Reason != TypeMismatch {
		t.Fatalf("err = %v, want TypeMismatch", err)
	}
}

func TestParseOversizedConstant(t *testing.T) {
	const src = `rtl.module @M() -> () {
  %c = rtl.constant 300 : i8
}
`
	_, err := ParseDesign(NewTypeInterner(), []byte(src))
	var mlErr *MalformedLiteralError
	if !errors.As(err, &mlErr) {
		t.Fatalf("err = %v, want MalformedLiteralError", err)
	}
}
