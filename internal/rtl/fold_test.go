package rtl

import (
	"math/big"
	"testing"
)

func mustConst(t *testing.T, g *Graph, width int, value int64) ValueID {
	t.Helper()
	v, err := g.Constant(width, big.NewInt(value))
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// mustOp adapts a builder's (value, error) pair for inline use: the returned
// closure fails the test on a construction error.
func mustOp(t *testing.T) func(ValueID, error) ValueID {
	return func(v ValueID, err error) ValueID {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
}

func foldOf(t *testing.T, g *Graph, v ValueID) (FoldResult, bool) {
	t.Helper()
	def, ok := g.DefOp(v)
	if !ok {
		t.Fatal("value has no defining op")
	}
	return TryFold(g, def)
}

func TestFoldNoop(t *testing.T) {
	must := mustOp(t)
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")

	for _, kind := range []OpKind{KindAnd, KindOr, KindXor, KindAdd, KindMul} {
		v := must(g.Variadic(kind, a))
		res, ok := foldOf(t, g, v)
		if !ok || res.Value != a {
			t.Errorf("%s(a): fold = %v, %v, want a", kind, res, ok)
		}
	}
}

func TestFoldAnnulment(t *testing.T) {
	must := mustOp(t)
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")
	zero := mustConst(t, g, 8, 0)
	ones := mustConst(t, g, 8, 255)

	// and(..., 0) -> 0
	v := must(g.And(a, zero))
	if res, ok := foldOf(t, g, v); !ok || res.Value != zero {
		t.Errorf("and(a, 0): fold = %v, %v", res, ok)
	}

	// or(..., '1) -> '1
	v = must(g.Or(a, ones))
	if res, ok := foldOf(t, g, v); !ok || res.Value != ones {
		t.Errorf("or(a, 255): fold = %v, %v", res, ok)
	}

	// mul(..., 0) -> 0
	v = must(g.Mul(a, zero))
	if res, ok := foldOf(t, g, v); !ok || res.Value != zero {
		t.Errorf("mul(a, 0): fold = %v, %v", res, ok)
	}

	// The annulment check only looks at the tail position.
	v = must(g.And(zero, a))
	if _, ok := foldOf(t, g, v); ok {
		t.Error("and(0, a) folded before canonicalization moved the constant")
	}
}

func TestFoldXorSelf(t *testing.T) {
	must := mustOp(t)
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")

	v := must(g.Xor(a, a))
	res, ok := foldOf(t, g, v)
	if !ok || res.Value != NoValue {
		t.Fatalf("xor(a, a): fold = %v, %v, want literal", res, ok)
	}
	if res.Literal.Sign() != 0 || res.Width != 8 {
		t.Errorf("xor(a, a) = %s:i%d, want 0:i8", res.Literal, res.Width)
	}

	// Three-operand xor with repeats does not fold.
	v = must(g.Xor(a, a, a))
	if _, ok := foldOf(t, g, v); ok {
		t.Error("xor(a, a, a) should not fold")
	}
}

func TestFoldExtract(t *testing.T) {
	must := mustOp(t)
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")

	// Full-width extract is the identity.
	v := must(g.Extract(a, 0, 8))
	if res, ok := foldOf(t, g, v); !ok || res.Value != a {
		t.Errorf("extract(a, 0, 8): fold = %v, %v", res, ok)
	}

	// Partial extract of a variable does not fold.
	v = must(g.Extract(a, 0, 4))
	if _, ok := foldOf(t, g, v); ok {
		t.Error("extract(a, 0, 4) should not fold")
	}

	// Extract of a constant slices its bits: 0xA5 >> 2, low 4 bits = 0x9.
	cst := mustConst(t, g, 8, 0xA5)
	v = must(g.Extract(cst, 2, 4))
	res, ok := foldOf(t, g, v)
	if !ok || res.Value != NoValue {
		t.Fatalf("extract(0xA5, 2, 4): fold = %v, %v", res, ok)
	}
	if res.Literal.Int64() != 0x9 || res.Width != 4 {
		t.Errorf("extract(0xA5, 2, 4) = %s:i%d, want 9:i4", res.Literal, res.Width)
	}
}

func TestFoldLeavesGraphUntouched(t *testing.T) {
	must := mustOp(t)
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")

	v := must(g.And(a))
	before := len(g.Ops())
	if _, ok := foldOf(t, g, v); !ok {
		t.Fatal("and(a) should fold")
	}
	if got := len(g.Ops()); got != before {
		t.Errorf("TryFold mutated the graph: %d ops, had %d", got, before)
	}
	if g.Uses(a) != 1 {
		t.Errorf("use count changed: %d", g.Uses(a))
	}
}

func TestFoldNonfoldingKinds(t *testing.T) {
	must := mustOp(t)
	tc := NewTypeInterner()
	g := NewGraph(tc)
	a := g.AddArg(tc.Int(8), "a")
	b := g.AddArg(tc.Int(8), "b")

	cases := []ValueID{
		mustConst(t, g, 8, 7),
		must(g.Concat(a, b)),
		must(g.Shl(a, b)),
		must(g.Wire("w", a)),
	}
	for _, v := range cases {
		def, _ := g.DefOp(v)
		if _, ok := TryFold(g, def); ok {
			t.Errorf("%s should not fold", g.Op(def).Kind)
		}
	}
}
