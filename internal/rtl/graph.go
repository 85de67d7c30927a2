package rtl

import (
	"fmt"
	"math/big"
)

// OpKind identifies an operation variant. The set is closed: verification,
// folding and canonicalization dispatch over it with exhaustive switches, so
// a new kind fails to compile rather than silently falling through.
type OpKind int

const (
	KindConstant OpKind = iota
	KindAnd
	KindOr
	KindXor
	KindAdd
	KindMul
	KindExtract
	KindConcat
	KindShl
	KindWire
	KindInstance
	KindOutput
)

var kindNames = [...]string{
	KindConstant: "rtl.constant",
	KindAnd:      "rtl.and",
	KindOr:       "rtl.or",
	KindXor:      "rtl.xor",
	KindAdd:      "rtl.add",
	KindMul:      "rtl.mul",
	KindExtract:  "rtl.extract",
	KindConcat:   "rtl.concat",
	KindShl:      "rtl.shl",
	KindWire:     "rtl.wire",
	KindInstance: "rtl.instance",
	KindOutput:   "rtl.output",
}

func (k OpKind) String() string { return kindNames[k] }

// IsVariadic reports whether k is one of the variadic bitwise/arithmetic
// families (one or more operands, uniform integer width).
func (k OpKind) IsVariadic() bool {
	switch k {
	case KindAnd, KindOr, KindXor, KindAdd, KindMul:
		return true
	}
	return false
}

// IsCombinational reports whether k computes a value purely from its
// operands, with no structural role and no side effects.
func (k OpKind) IsCombinational() bool {
	switch k {
	case KindConstant, KindAnd, KindOr, KindXor, KindAdd, KindMul,
		KindExtract, KindConcat, KindShl:
		return true
	case KindWire, KindInstance, KindOutput:
		return false
	}
	return false
}

// OpID is a stable handle into a graph's operation arena.
type OpID int

// ValueID is a stable handle to a value: either a module input argument or
// one result of an operation.
type ValueID int

// NoValue is the absent-value sentinel.
const NoValue ValueID = -1

const noOp OpID = -1

// Op is one node of the operation graph. Which fields are meaningful depends
// on Kind: Literal for constants, LowBit for extracts, Name for wires and
// instances, Target and ResultNames for instances.
type Op struct {
	Kind        OpKind
	Operands    []ValueID
	Results     []ValueID
	Literal     *big.Int
	LowBit      int
	Name        string
	Target      string
	ResultNames []string

	dead bool
}

type valueRec struct {
	typ   Type
	def   OpID // noOp for module input arguments
	index int  // result index, or argument index for arguments
	name  string
	uses  int
	dead  bool
}

// Graph is an arena of operations forming the body of one module. Operands
// reference defining results through stable handles; replacing a value
// redirects consumer slots, and an operation slot is freed only once no
// consumers remain.
type Graph struct {
	tc     *TypeInterner
	ops    []Op
	values []valueRec
	order  []OpID
	args   []ValueID

	// insertion point: new ops go before this op, or at the end when noOp.
	insertAt OpID
}

func NewGraph(tc *TypeInterner) *Graph {
	return &Graph{tc: tc, insertAt: noOp}
}

// Interner returns the interner all of this graph's types go through.
func (g *Graph) Interner() *TypeInterner { return g.tc }

// AddArg appends a module input argument value. Argument order must follow
// the module's input-port signature order.
func (g *Graph) AddArg(typ Type, name string) ValueID {
	v := g.newValue(typ, noOp, len(g.args), name)
	g.args = append(g.args, v)
	return v
}

// Args returns the input argument values in signature order.
func (g *Graph) Args() []ValueID { return g.args }

func (g *Graph) newValue(typ Type, def OpID, index int, name string) ValueID {
	g.values = append(g.values, valueRec{typ: typ, def: def, index: index, name: name})
	return ValueID(len(g.values) - 1)
}

// Op returns the operation record for id. The pointer stays valid until the
// next operation is added.
func (g *Graph) Op(id OpID) *Op { return &g.ops[id] }

// Ops returns the live operations in program order.
func (g *Graph) Ops() []OpID {
	out := make([]OpID, 0, len(g.order))
	for _, id := range g.order {
		if !g.ops[id].dead {
			out = append(out, id)
		}
	}
	return out
}

// ValueType returns the type of v.
func (g *Graph) ValueType(v ValueID) Type { return g.values[v].typ }

// ValueName returns the display name of v, or "" if it has none.
func (g *Graph) ValueName(v ValueID) string { return g.values[v].name }

// SetValueName changes the display name of v. Display only: no semantic
// rename happens after creation.
func (g *Graph) SetValueName(v ValueID, name string) { g.values[v].name = name }

// Uses returns v's consumer count.
func (g *Graph) Uses(v ValueID) int { return g.values[v].uses }

// DefOp returns the operation defining v, or false if v is a module input.
func (g *Graph) DefOp(v ValueID) (OpID, bool) {
	rec := g.values[v]
	if rec.def == noOp {
		return 0, false
	}
	return rec.def, true
}

// IsArg reports whether v is a module input argument, and its index.
func (g *Graph) IsArg(v ValueID) (int, bool) {
	rec := g.values[v]
	if rec.def != noOp {
		return 0, false
	}
	return rec.index, true
}

// SetInsertionPoint makes subsequently created operations insert before op.
// Pass the operation being rewritten so replacements keep defs ahead of uses.
func (g *Graph) SetInsertionPoint(op OpID) { g.insertAt = op }

// ResetInsertionPoint restores insertion at the end of the body (before the
// terminator, if one exists).
func (g *Graph) ResetInsertionPoint() { g.insertAt = noOp }

func (g *Graph) addOp(op Op) OpID {
	id := OpID(len(g.ops))
	g.ops = append(g.ops, op)
	for _, operand := range op.Operands {
		g.values[operand].uses++
	}

	at := g.insertAt
	if at == noOp {
		// Keep the terminator last.
		if n := len(g.order); n > 0 && g.ops[g.order[n-1]].Kind == KindOutput {
			at = g.order[n-1]
		}
	}
	if at == noOp {
		g.order = append(g.order, id)
		return id
	}
	for i, existing := range g.order {
		if existing == at {
			g.order = append(g.order, 0)
			copy(g.order[i+1:], g.order[i:])
			g.order[i] = id
			return id
		}
	}
	g.order = append(g.order, id)
	return id
}

func (g *Graph) addResult(op OpID, typ Type, name string) ValueID {
	v := g.newValue(typ, op, len(g.ops[op].Results), name)
	g.ops[op].Results = append(g.ops[op].Results, v)
	return v
}

// ReplaceAllUses redirects every consumer operand slot from old to new and
// transfers old's use count. old keeps its definition; erase it separately
// once it is dead.
func (g *Graph) ReplaceAllUses(old, new ValueID) {
	if old == new {
		return
	}
	for i := range g.ops {
		op := &g.ops[i]
		if op.dead {
			continue
		}
		for j, operand := range op.Operands {
			if operand == old {
				op.Operands[j] = new
				g.values[old].uses--
				g.values[new].uses++
			}
		}
	}
}

// Erase frees the operation slot. It fails while any result still has
// consumers; operand use counts are released on success.
func (g *Graph) Erase(id OpID) error {
	op := &g.ops[id]
	if op.dead {
		return nil
	}
	for _, res := range op.Results {
		if g.values[res].uses > 0 {
			return fmt.Errorf("erase %s: result %%%d still has %d uses",
				op.Kind, res, g.values[res].uses)
		}
	}
	for _, operand := range op.Operands {
		g.values[operand].uses--
	}
	for _, res := range op.Results {
		g.values[res].dead = true
	}
	op.dead = true
	return nil
}

// Terminator returns the body's output operation, if present.
func (g *Graph) Terminator() (OpID, bool) {
	for i := len(g.order) - 1; i >= 0; i-- {
		id := g.order[i]
		if g.ops[id].dead {
			continue
		}
		if g.ops[id].Kind == KindOutput {
			return id, true
		}
		return 0, false
	}
	return 0, false
}
