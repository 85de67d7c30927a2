// Package canon rewrites operation graphs into a canonical form: constants
// migrate to operand tails, identities and duplicates disappear, constant
// tails fold, and multiplications by powers of two become shifts. Rules
// combine with the fold engine in a fixpoint driver.
package canon

import (
	"math/big"

	"github.com/jatincse/circt/internal/rtl"
)

// Rule inspects one operation and, when it applies, returns the rewrite to
// perform. Rules never mutate the graph themselves; the returned Action does,
// under an insertion point the driver establishes at the rewritten op.
type Rule func(g *rtl.Graph, id rtl.OpID) *Action

// Action is a pending rewrite. Apply builds the replacement and returns the
// value that takes over the op's uses.
type Action struct {
	Name  string
	Apply func() (rtl.ValueID, error)
}

// rulesFor returns the rules for kind in priority order. The first matching
// rule wins; the driver revisits the op afterwards, so later rules still get
// their chance on the rewritten form.
func rulesFor(kind rtl.OpKind) []Rule {
	switch kind {
	case rtl.KindAnd, rtl.KindOr, rtl.KindXor, rtl.KindAdd, rtl.KindMul:
		rules := []Rule{constantsToTail, tailIdentity}
		switch kind {
		case rtl.KindAnd, rtl.KindOr:
			rules = append(rules, tailDuplicate)
		case rtl.KindXor:
			rules = append(rules, tailSelfCancel)
		}
		rules = append(rules, tailConstantPair)
		switch kind {
		case rtl.KindAdd:
			rules = append(rules, addStrengthReduce)
		case rtl.KindMul:
			rules = append(rules, mulPowerOfTwo)
		}
		return append(rules, flattenTail)
	}
	return nil
}

// identityFor returns the identity element of a variadic kind at the given
// width.
func identityFor(kind rtl.OpKind, width int) *big.Int {
	switch kind {
	case rtl.KindAnd:
		return allOnes(width)
	case rtl.KindMul:
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

func allOnes(width int) *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), uint(width))
	return v.Sub(v, big.NewInt(1))
}

func truncate(v *big.Int, width int) *big.Int {
	return new(big.Int).And(v, allOnes(width))
}

func opWidth(g *rtl.Graph, id rtl.OpID) int {
	typ := g.ValueType(g.Op(id).Results[0])
	it, ok := typ.(rtl.IntType)
	if !ok {
		return 0
	}
	return it.Width
}

// constantsToTail moves constant operands after all non-constant ones,
// preserving relative order within each class. Folds and the tail rules all
// assume this ordering.
func constantsToTail(g *rtl.Graph, id rtl.OpID) *Action {
	op := g.Op(id)
	operands := op.Operands
	misplaced := false
	for i := 0; i+1 < len(operands); i++ {
		_, isConst := g.ConstantValue(operands[i])
		_, nextConst := g.ConstantValue(operands[i+1])
		if isConst && !nextConst {
			misplaced = true
			break
		}
	}
	if !misplaced {
		return nil
	}
	kind := op.Kind
	var vars, consts []rtl.ValueID
	for _, operand := range operands {
		if _, ok := g.ConstantValue(operand); ok {
			consts = append(consts, operand)
		} else {
			vars = append(vars, operand)
		}
	}
	return &Action{
		Name: "constants-to-tail",
		Apply: func() (rtl.ValueID, error) {
			return g.Variadic(kind, append(vars, consts...)...)
		},
	}
}

// tailIdentity drops a trailing identity constant: and(x, '1), or(x, 0),
// xor(x, 0), add(x, 0), mul(x, 1).
func tailIdentity(g *rtl.Graph, id rtl.OpID) *Action {
	op := g.Op(id)
	if len(op.Operands) < 2 {
		return nil
	}
	last := op.Operands[len(op.Operands)-1]
	cst, ok := g.ConstantValue(last)
	if !ok || cst.Cmp(identityFor(op.Kind, opWidth(g, id))) != 0 {
		return nil
	}
	kind := op.Kind
	rest := append([]rtl.ValueID(nil), op.Operands[:len(op.Operands)-1]...)
	return &Action{
		Name: "drop-identity",
		Apply: func() (rtl.ValueID, error) {
			return g.Variadic(kind, rest...)
		},
	}
}

// tailDuplicate drops one of two identical trailing operands of an
// idempotent op: and(..., x, x) -> and(..., x).
func tailDuplicate(g *rtl.Graph, id rtl.OpID) *Action {
	op := g.Op(id)
	n := len(op.Operands)
	if n < 2 || op.Operands[n-1] != op.Operands[n-2] {
		return nil
	}
	kind := op.Kind
	rest := append([]rtl.ValueID(nil), op.Operands[:n-1]...)
	return &Action{
		Name: "drop-duplicate",
		Apply: func() (rtl.ValueID, error) {
			return g.Variadic(kind, rest...)
		},
	}
}

// tailSelfCancel removes an identical trailing pair from a xor, since the
// pair contributes nothing: xor(..., x, x) -> xor(...). The two-operand case
// is the fold engine's, so a prefix always remains here.
func tailSelfCancel(g *rtl.Graph, id rtl.OpID) *Action {
	op := g.Op(id)
	n := len(op.Operands)
	if n < 3 || op.Operands[n-1] != op.Operands[n-2] {
		return nil
	}
	rest := append([]rtl.ValueID(nil), op.Operands[:n-2]...)
	return &Action{
		Name: "self-cancel",
		Apply: func() (rtl.ValueID, error) {
			return g.Variadic(rtl.KindXor, rest...)
		},
	}
}

// tailConstantPair combines two trailing constants into one.
func tailConstantPair(g *rtl.Graph, id rtl.OpID) *Action {
	op := g.Op(id)
	n := len(op.Operands)
	if n < 2 {
		return nil
	}
	a, okA := g.ConstantValue(op.Operands[n-2])
	b, okB := g.ConstantValue(op.Operands[n-1])
	if !okA || !okB {
		return nil
	}
	width := opWidth(g, id)
	combined := new(big.Int)
	switch op.Kind {
	case rtl.KindAnd:
		combined.And(a, b)
	case rtl.KindOr:
		combined.Or(a, b)
	case rtl.KindXor:
		combined.Xor(a, b)
	case rtl.KindAdd:
		combined.Add(a, b)
	case rtl.KindMul:
		combined.Mul(a, b)
	}
	combined = truncate(combined, width)
	kind := op.Kind
	rest := append([]rtl.ValueID(nil), op.Operands[:n-2]...)
	return &Action{
		Name: "fold-constant-pair",
		Apply: func() (rtl.ValueID, error) {
			cst, err := g.Constant(width, combined)
			if err != nil {
				return rtl.NoValue, err
			}
			return g.Variadic(kind, append(rest, cst)...)
		},
	}
}

// addStrengthReduce rewrites additive tails into shifts and multiplies:
//
//	add(..., x, x)         -> add(..., shl(x, 1))
//	add(..., x, shl(x, c)) -> add(..., mul(x, (1 << c) + 1))
//	add(..., x, mul(x, c)) -> add(..., mul(x, c + 1))
func addStrengthReduce(g *rtl.Graph, id rtl.OpID) *Action {
	op := g.Op(id)
	n := len(op.Operands)
	if n < 2 {
		return nil
	}
	x := op.Operands[n-2]
	last := op.Operands[n-1]
	width := opWidth(g, id)
	rest := append([]rtl.ValueID(nil), op.Operands[:n-2]...)

	rebuild := func(tail rtl.ValueID) (rtl.ValueID, error) {
		if len(rest) == 0 {
			return tail, nil
		}
		return g.Variadic(rtl.KindAdd, append(rest, tail)...)
	}

	if last == x {
		return &Action{
			Name: "add-to-shl",
			Apply: func() (rtl.ValueID, error) {
				one, err := g.Constant(width, big.NewInt(1))
				if err != nil {
					return rtl.NoValue, err
				}
				shifted, err := g.Shl(x, one)
				if err != nil {
					return rtl.NoValue, err
				}
				return rebuild(shifted)
			},
		}
	}

	def, ok := g.DefOp(last)
	if !ok {
		return nil
	}
	inner := g.Op(def)
	switch inner.Kind {
	case rtl.KindShl:
		if inner.Operands[0] != x {
			return nil
		}
		c, ok := g.ConstantValue(inner.Operands[1])
		if !ok || !c.IsInt64() || c.Int64() >= int64(width) {
			// A shift amount at or past the width is all zeros; leave the
			// add alone rather than materialize an oversized factor.
			return nil
		}
		factor := new(big.Int).Lsh(big.NewInt(1), uint(c.Int64()))
		factor = truncate(factor.Add(factor, big.NewInt(1)), width)
		return &Action{
			Name: "add-shl-to-mul",
			Apply: func() (rtl.ValueID, error) {
				cst, err := g.Constant(width, factor)
				if err != nil {
					return rtl.NoValue, err
				}
				product, err := g.Mul(x, cst)
				if err != nil {
					return rtl.NoValue, err
				}
				return rebuild(product)
			},
		}
	case rtl.KindMul:
		if len(inner.Operands) != 2 || inner.Operands[0] != x {
			return nil
		}
		c, ok := g.ConstantValue(inner.Operands[1])
		if !ok {
			return nil
		}
		factor := truncate(new(big.Int).Add(c, big.NewInt(1)), width)
		return &Action{
			Name: "add-mul-to-mul",
			Apply: func() (rtl.ValueID, error) {
				cst, err := g.Constant(width, factor)
				if err != nil {
					return rtl.NoValue, err
				}
				product, err := g.Mul(x, cst)
				if err != nil {
					return rtl.NoValue, err
				}
				return rebuild(product)
			},
		}
	}
	return nil
}

// mulPowerOfTwo turns a two-operand product with a power-of-two factor into
// a shift: mul(x, 2^c) -> shl(x, c) for c >= 1. A factor of one is the
// identity rule's business, and longer products are left for flattening and
// constant pairing to shrink first.
func mulPowerOfTwo(g *rtl.Graph, id rtl.OpID) *Action {
	op := g.Op(id)
	if len(op.Operands) != 2 {
		return nil
	}
	cst, ok := g.ConstantValue(op.Operands[1])
	if !ok || cst.BitLen() < 2 || cst.TrailingZeroBits() != uint(cst.BitLen()-1) {
		return nil
	}
	width := opWidth(g, id)
	x := op.Operands[0]
	shift := big.NewInt(int64(cst.BitLen() - 1))
	return &Action{
		Name: "mul-to-shl",
		Apply: func() (rtl.ValueID, error) {
			amount, err := g.Constant(width, shift)
			if err != nil {
				return rtl.NoValue, err
			}
			return g.Shl(x, amount)
		},
	}
}

// flattenTail inlines a trailing operand defined by a single-use op of the
// same kind: and(a, and(b, c)) -> and(a, b, c).
func flattenTail(g *rtl.Graph, id rtl.OpID) *Action {
	op := g.Op(id)
	n := len(op.Operands)
	if n < 2 {
		return nil
	}
	last := op.Operands[n-1]
	if g.Uses(last) != 1 {
		return nil
	}
	def, ok := g.DefOp(last)
	if !ok {
		return nil
	}
	inner := g.Op(def)
	if inner.Kind != op.Kind {
		return nil
	}
	kind := op.Kind
	merged := append([]rtl.ValueID(nil), op.Operands[:n-1]...)
	merged = append(merged, inner.Operands...)
	return &Action{
		Name: "flatten",
		Apply: func() (rtl.ValueID, error) {
			return g.Variadic(kind, merged...)
		},
	}
}
