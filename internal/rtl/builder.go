package rtl

import (
	"fmt"
	"math/big"
)

// Constant creates an integer literal. The value must be non-negative and
// fit in the declared width.
func (g *Graph) Constant(width int, value *big.Int) (ValueID, error) {
	if width < 1 {
		return NoValue, malformedErr("rtl.constant", "invalid width %d", width)
	}
	if value.Sign() < 0 {
		return NoValue, malformedErr("rtl.constant", "literal must be non-negative")
	}
	if value.BitLen() > width {
		return NoValue, &MalformedLiteralError{Width: width, BitLen: value.BitLen()}
	}
	id := g.addOp(Op{Kind: KindConstant, Literal: new(big.Int).Set(value)})
	return g.addResult(id, g.tc.Int(width), constName(value, width)), nil
}

func constName(value *big.Int, width int) string {
	if width == 1 {
		if value.Sign() == 0 {
			return "false"
		}
		return "true"
	}
	return fmt.Sprintf("c%s_i%d", value.String(), width)
}

// Variadic creates one of the bitwise/arithmetic family ops. At least one
// operand is required and all operands must share one integer width, which
// is also the result width.
func (g *Graph) Variadic(kind OpKind, inputs ...ValueID) (ValueID, error) {
	if !kind.IsVariadic() {
		return NoValue, malformedErr(kind.String(), "not a variadic operation")
	}
	if len(inputs) < 1 {
		return NoValue, arityErr(kind.String(), 1, 0)
	}
	typ := g.ValueType(inputs[0])
	if _, ok := intWidth(typ); !ok {
		return NoValue, typeErr(kind.String(), 0, IntType{Width: 1}, typ)
	}
	for i, in := range inputs[1:] {
		if got := g.ValueType(in); got != typ {
			return NoValue, typeErr(kind.String(), i+1, typ, got)
		}
	}
	id := g.addOp(Op{Kind: kind, Operands: append([]ValueID(nil), inputs...)})
	return g.addResult(id, typ, ""), nil
}

func (g *Graph) And(inputs ...ValueID) (ValueID, error) { return g.Variadic(KindAnd, inputs...) }
func (g *Graph) Or(inputs ...ValueID) (ValueID, error)  { return g.Variadic(KindOr, inputs...) }
func (g *Graph) Xor(inputs ...ValueID) (ValueID, error) { return g.Variadic(KindXor, inputs...) }
func (g *Graph) Add(inputs ...ValueID) (ValueID, error) { return g.Variadic(KindAdd, inputs...) }
func (g *Graph) Mul(inputs ...ValueID) (ValueID, error) { return g.Variadic(KindMul, inputs...) }

// Extract creates a bit slice [lowBit, lowBit+width) of an integer value.
func (g *Graph) Extract(input ValueID, lowBit, width int) (ValueID, error) {
	srcWidth, ok := intWidth(g.ValueType(input))
	if !ok {
		return NoValue, typeErr("rtl.extract", 0, IntType{Width: 1}, g.ValueType(input))
	}
	if width < 1 {
		return NoValue, malformedErr("rtl.extract", "invalid width %d", width)
	}
	if lowBit < 0 || lowBit >= srcWidth || srcWidth-lowBit < width {
		return NoValue, malformedErr("rtl.extract", "from bit %d too large for input %s",
			lowBit, g.ValueType(input))
	}
	id := g.addOp(Op{Kind: KindExtract, Operands: []ValueID{input}, LowBit: lowBit})
	return g.addResult(id, g.tc.Int(width), ""), nil
}

// Concat creates a concatenation. The result width is the sum of the
// operand widths, first operand in the most significant position.
func (g *Graph) Concat(inputs ...ValueID) (ValueID, error) {
	if len(inputs) < 1 {
		return NoValue, arityErr("rtl.concat", 1, 0)
	}
	total := 0
	for i, in := range inputs {
		w, ok := intWidth(g.ValueType(in))
		if !ok {
			return NoValue, typeErr("rtl.concat", i, IntType{Width: 1}, g.ValueType(in))
		}
		total += w
	}
	id := g.addOp(Op{Kind: KindConcat, Operands: append([]ValueID(nil), inputs...)})
	return g.addResult(id, g.tc.Int(total), ""), nil
}

// Shl creates a logical left shift. Both operands and the result share one
// integer width.
func (g *Graph) Shl(lhs, rhs ValueID) (ValueID, error) {
	typ := g.ValueType(lhs)
	if _, ok := intWidth(typ); !ok {
		return NoValue, typeErr("rtl.shl", 0, IntType{Width: 1}, typ)
	}
	if got := g.ValueType(rhs); got != typ {
		return NoValue, typeErr("rtl.shl", 1, typ, got)
	}
	id := g.addOp(Op{Kind: KindShl, Operands: []ValueID{lhs, rhs}})
	return g.addResult(id, typ, ""), nil
}

// Wire creates a named alias of inner. The name is display-facing and may
// be empty.
func (g *Graph) Wire(name string, inner ValueID) (ValueID, error) {
	id := g.addOp(Op{Kind: KindWire, Operands: []ValueID{inner}, Name: name})
	return g.addResult(id, g.ValueType(inner), name), nil
}

// Instance creates a reference to the module named target, producing one
// result per declared result type. Target resolution and port agreement are
// verified later against a symbol scope.
func (g *Graph) Instance(name, target string, resultTypes []Type, resultNames []string, inputs ...ValueID) ([]ValueID, error) {
	if target == "" {
		return nil, malformedErr("rtl.instance", "empty target symbol")
	}
	op := Op{
		Kind:        KindInstance,
		Operands:    append([]ValueID(nil), inputs...),
		Name:        name,
		Target:      target,
		ResultNames: append([]string(nil), resultNames...),
	}
	id := g.addOp(op)
	results := make([]ValueID, len(resultTypes))
	for i, typ := range resultTypes {
		rname := ""
		if i < len(resultNames) {
			rname = resultNames[i]
		}
		results[i] = g.addResult(id, g.tc.intern(typ), rname)
	}
	return results, nil
}

// Output creates the body terminator mapping operands to the enclosing
// module's output ports. A body has at most one terminator; agreement with
// the ports is checked by VerifyOutput.
func (g *Graph) Output(operands ...ValueID) (OpID, error) {
	if _, ok := g.Terminator(); ok {
		return 0, malformedErr("rtl.output", "body already has a terminator")
	}
	saved := g.insertAt
	g.insertAt = noOp
	id := g.addOp(Op{Kind: KindOutput, Operands: append([]ValueID(nil), operands...)})
	g.insertAt = saved
	return id, nil
}
