package rtl

import (
	"errors"
	"math/big"
	"testing"
)

func TestConstantNames(t *testing.T) {
	tc := NewTypeInterner()
	g := NewGraph(tc)

	tests := []struct {
		width int
		value int64
		want  string
	}{
		{8, 42, "c42_i8"},
		{1, 1, "true"},
		{1, 0, "false"},
		{16, 0, "c0_i16"},
	}
	for _, tt := range tests {
		v, err := g.Constant(tt.width, big.NewInt(tt.value))
		if err != nil {
			t.Fatalf("Constant(%d, %d): %v", tt.width, tt.value, err)
		}
		if got := g.ValueName(v); got != tt.want {
			t.Errorf("Constant(%d, %d) name = %q, want %q", tt.width, tt.value, got, tt.want)
		}
		if got := g.ValueType(v); got != tc.Int(tt.width) {
			t.Errorf("Constant(%d, %d) type = %s", tt.width, tt.value, got)
		}
	}
}

func TestConstantRejectsOversizedLiteral(t *testing.T) {
	g := NewGraph(NewTypeInterner())
	_, err := g.Constant(4, big.NewInt(16))
	var mlErr *MalformedLiteralError
	if !errors.As(err, &mlErr) {
		t.Fatalf("Constant(4, 16) err = %v, want MalformedLiteralError", err)
	}
	if mlErr.Width != 4 || mlErr.BitLen != 5 {
		t.Errorf("got width %d bitlen %d", mlErr.Width, mlErr.BitLen)
	}

	// The boundary value still fits.
	if _, err := g.Constant(4, big.NewInt(15)); err != nil {
		t.Errorf("Constant(4, 15): %v", err)
	}
}

func TestVariadicWidthAgreement(t *testing.T) {
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")
	b := g.AddArg(tc.Int(4), "b")

	if _, err := g.And(a, b); err == nil {
		t.Error("And(i8, i4) should fail")
	} else {
		var sErr *StructuralError
		if !errors.As(err, &sErr) || sErr.Reason != TypeMismatch {
			t.Errorf("And(i8, i4) err = %v, want TypeMismatch", err)
		}
	}

	if _, err := g.Variadic(KindAnd); err == nil {
		t.Error("And() should fail")
	}
	if _, err := g.Variadic(KindExtract, a); err == nil {
		t.Error("Variadic(KindExtract) should fail")
	}
}

func TestExtractBounds(t *testing.T) {
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")

	tests := []struct {
		lowBit, width int
		ok            bool
	}{
		{0, 8, true},
		{2, 4, true},
		{7, 1, true},
		{5, 4, false}, // window runs past bit 7
		{8, 1, false},
		{-1, 1, false},
		{0, 0, false},
	}
	for _, tt := range tests {
		v, err := g.Extract(a, tt.lowBit, tt.width)
		if tt.ok != (err == nil) {
			t.Errorf("Extract(a, %d, %d) err = %v, want ok=%v", tt.lowBit, tt.width, err, tt.ok)
			continue
		}
		if tt.ok {
			if got := g.ValueType(v); got != tc.Int(tt.width) {
				t.Errorf("Extract(a, %d, %d) type = %s", tt.lowBit, tt.width, got)
			}
		}
	}
}

func TestConcatWidth(t *testing.T) {
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")
	b := g.AddArg(tc.Int(4), "b")
	c := g.AddArg(tc.Int(1), "c")

	v, err := g.Concat(a, b, c)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if got := g.ValueType(v); got != tc.Int(13) {
		t.Errorf("Concat(i8, i4, i1) type = %s, want i13", got)
	}
}

func TestReplaceAllUses(t *testing.T) {
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")
	b := g.AddArg(tc.Int(8), "b")

	sum, err := g.Add(a, a)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.And(sum, a); err != nil {
		t.Fatal(err)
	}

	g.ReplaceAllUses(a, b)
	if g.Uses(a) != 0 {
		t.Errorf("a still has %d uses", g.Uses(a))
	}
	if g.Uses(b) != 3 {
		t.Errorf("b has %d uses, want 3", g.Uses(b))
	}
	def, _ := g.DefOp(sum)
	for i, operand := range g.Op(def).Operands {
		if operand != b {
			t.Errorf("add operand %d = %d, want %d", i, operand, b)
		}
	}
}

func TestEraseRefusesLiveResults(t *testing.T) {
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")

	sum, err := g.Add(a, a)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Xor(sum, a); err != nil {
		t.Fatal(err)
	}

	def, _ := g.DefOp(sum)
	if err := g.Erase(def); err == nil {
		t.Fatal("Erase with live result should fail")
	}

	g.ReplaceAllUses(sum, a)
	if err := g.Erase(def); err != nil {
		t.Fatalf("Erase after replacement: %v", err)
	}
	if g.Uses(a) != 2 {
		t.Errorf("a has %d uses after erase, want 2", g.Uses(a))
	}
	if got := len(g.Ops()); got != 1 {
		t.Errorf("%d live ops, want 1", got)
	}
}

func TestInsertionPointKeepsDefsFirst(t *testing.T) {
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")

	sum, err := g.Add(a, a)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Output(sum); err != nil {
		t.Fatal(err)
	}

	// A replacement built at the rewritten op's position must come before it.
	def, _ := g.DefOp(sum)
	g.SetInsertionPoint(def)
	one, err := g.Constant(8, big.NewInt(1))
	if err != nil {
		t.Fatal(err)
	}
	g.ResetInsertionPoint()

	ops := g.Ops()
	oneDef, _ := g.DefOp(one)
	if ops[0] != oneDef || ops[1] != def {
		t.Errorf("order = %v, want constant before add", ops)
	}
	if g.Op(ops[len(ops)-1]).Kind != KindOutput {
		t.Error("terminator not last")
	}
}

func TestOutputStaysLast(t *testing.T) {
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")

	if _, err := g.Output(a); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Output(a); err == nil {
		t.Error("second terminator should fail")
	}

	// Ops added after the terminator still insert before it.
	if _, err := g.And(a, a); err != nil {
		t.Fatal(err)
	}
	ops := g.Ops()
	if g.Op(ops[len(ops)-1]).Kind != KindOutput {
		t.Errorf("terminator not last: %v", ops)
	}
	term, ok := g.Terminator()
	if !ok || g.Op(term).Kind != KindOutput {
		t.Error("Terminator() lost the output op")
	}
}

func TestWireAliasesType(t *testing.T) {
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")

	w, err := g.Wire("stage1", a)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.ValueType(w); got != tc.Int(8) {
		t.Errorf("wire type = %s, want i8", got)
	}
	if got := g.ValueName(w); got != "stage1" {
		t.Errorf("wire name = %q", got)
	}
}
