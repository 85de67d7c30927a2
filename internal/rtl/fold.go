package rtl

import "math/big"

// FoldResult is the outcome of a successful fold: either an existing value
// to substitute for the operation's result, or a literal for the caller to
// materialize as a new constant.
type FoldResult struct {
	Value   ValueID
	Literal *big.Int
	Width   int
}

// ConstantValue returns v's literal when v is defined by a constant.
func (g *Graph) ConstantValue(v ValueID) (*big.Int, bool) {
	def, ok := g.DefOp(v)
	if !ok {
		return nil, false
	}
	op := g.Op(def)
	if op.Kind != KindConstant {
		return nil, false
	}
	return op.Literal, true
}

func allOnes(width int) *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), uint(width))
	return v.Sub(v, big.NewInt(1))
}

// truncate masks v to the low width bits.
func truncate(v *big.Int, width int) *big.Int {
	return new(big.Int).And(v, allOnes(width))
}

// TryFold attempts to replace the operation with a single value computable
// from its operands. Pure: the graph is not mutated, and failure to fold is
// not an error. Annulment checks look only at the last operand and rely on
// canonicalization having moved constants to the tail.
func TryFold(g *Graph, id OpID) (FoldResult, bool) {
	op := g.Op(id)
	none := FoldResult{Value: NoValue}

	switch op.Kind {
	case KindAnd:
		// and(x) -> x -- noop
		if len(op.Operands) == 1 {
			return FoldResult{Value: op.Operands[0]}, true
		}
		// and(..., 0) -> 0 -- annulment
		last := op.Operands[len(op.Operands)-1]
		if cst, ok := g.ConstantValue(last); ok && cst.Sign() == 0 {
			return FoldResult{Value: last}, true
		}

	case KindOr:
		// or(x) -> x -- noop
		if len(op.Operands) == 1 {
			return FoldResult{Value: op.Operands[0]}, true
		}
		// or(..., '1) -> '1 -- annulment
		last := op.Operands[len(op.Operands)-1]
		width, _ := intWidth(g.ValueType(last))
		if cst, ok := g.ConstantValue(last); ok && cst.Cmp(allOnes(width)) == 0 {
			return FoldResult{Value: last}, true
		}

	case KindXor:
		// xor(x) -> x -- noop
		if len(op.Operands) == 1 {
			return FoldResult{Value: op.Operands[0]}, true
		}
		// xor(x, x) -> 0 -- idempotent
		if len(op.Operands) == 2 && op.Operands[0] == op.Operands[1] {
			width, _ := intWidth(g.ValueType(op.Operands[0]))
			return FoldResult{Value: NoValue, Literal: big.NewInt(0), Width: width}, true
		}

	case KindAdd:
		// add(x) -> x -- noop
		if len(op.Operands) == 1 {
			return FoldResult{Value: op.Operands[0]}, true
		}

	case KindMul:
		// mul(x) -> x -- noop
		if len(op.Operands) == 1 {
			return FoldResult{Value: op.Operands[0]}, true
		}
		// mul(..., 0) -> 0 -- annulment
		last := op.Operands[len(op.Operands)-1]
		if cst, ok := g.ConstantValue(last); ok && cst.Sign() == 0 {
			return FoldResult{Value: last}, true
		}

	case KindExtract:
		input := op.Operands[0]
		// Extracting the entire input returns it unchanged.
		if g.ValueType(input) == g.ValueType(op.Results[0]) {
			return FoldResult{Value: input}, true
		}
		if cst, ok := g.ConstantValue(input); ok {
			width, _ := intWidth(g.ValueType(op.Results[0]))
			shifted := new(big.Int).Rsh(cst, uint(op.LowBit))
			return FoldResult{Value: NoValue, Literal: truncate(shifted, width), Width: width}, true
		}

	case KindConstant, KindConcat, KindShl, KindWire, KindInstance, KindOutput:
		// No folds for these kinds.
	}
	return none, false
}
