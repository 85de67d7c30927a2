package rtl

import "fmt"

// StructuralReason classifies a StructuralError.
type StructuralReason int

const (
	WrongParent StructuralReason = iota
	ArityMismatch
	TypeMismatch
	Malformed
)

// StructuralError reports an arity or type mismatch at a module, instance or
// terminator boundary. Always fatal to the construction or parse step that
// produced it.
type StructuralError struct {
	Op       string
	Reason   StructuralReason
	Index    int
	Expected string
	Actual   string
	Msg      string
}

func (e *StructuralError) Error() string {
	switch e.Reason {
	case WrongParent:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case ArityMismatch:
		return fmt.Sprintf("%s: expected %s operands, got %s", e.Op, e.Expected, e.Actual)
	case TypeMismatch:
		return fmt.Sprintf("%s: operand %d: expected %s, got %s", e.Op, e.Index, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// SymbolReason classifies an UnresolvedSymbolError.
type SymbolReason int

const (
	NoSymbolScope SymbolReason = iota
	TargetNotFound
	WrongTargetKind
)

// UnresolvedSymbolError reports an instance whose target symbol did not
// resolve to exactly one module. Fatal to that instance's construction.
type UnresolvedSymbolError struct {
	Name       string
	Reason     SymbolReason
	ActualKind string
}

func (e *UnresolvedSymbolError) Error() string {
	switch e.Reason {
	case NoSymbolScope:
		return "instance must be contained within a symbol scope"
	case TargetNotFound:
		return fmt.Sprintf("cannot find module definition %q", e.Name)
	}
	return fmt.Sprintf("symbol %q resolved to %s, which is not a module", e.Name, e.ActualKind)
}

// MalformedLiteralError reports a constant whose declared width disagrees
// with its value's bit width.
type MalformedLiteralError struct {
	Width  int
	BitLen int
}

func (e *MalformedLiteralError) Error() string {
	return fmt.Sprintf("constant value needs %d bits, declared width is %d", e.BitLen, e.Width)
}

func arityErr(op string, expected, actual int) error {
	return &StructuralError{
		Op:       op,
		Reason:   ArityMismatch,
		Expected: fmt.Sprint(expected),
		Actual:   fmt.Sprint(actual),
	}
}

func typeErr(op string, index int, expected, actual Type) error {
	return &StructuralError{
		Op:       op,
		Reason:   TypeMismatch,
		Index:    index,
		Expected: expected.String(),
		Actual:   actual.String(),
	}
}

func malformedErr(op, format string, args ...interface{}) error {
	return &StructuralError{Op: op, Reason: Malformed, Msg: fmt.Sprintf(format, args...)}
}

// VerifyInstance checks that the instance's target symbol resolves, within
// the given scope, to exactly one defined or external module. Operand and
// result agreement against the target's ports is a separate pass,
// VerifyInstancePorts, run by the whole-design verifier.
func VerifyInstance(g *Graph, id OpID, scope SymbolScope) error {
	op := g.Op(id)
	if op.Kind != KindInstance {
		return malformedErr(op.Kind.String(), "not an instance")
	}
	if scope == nil {
		return &UnresolvedSymbolError{Name: op.Target, Reason: NoSymbolScope}
	}
	sym, ok := scope.Resolve(op.Target)
	if !ok {
		return &UnresolvedSymbolError{Name: op.Target, Reason: TargetNotFound}
	}
	if _, ok := sym.(*Module); !ok {
		return &UnresolvedSymbolError{
			Name:       op.Target,
			Reason:     WrongTargetKind,
			ActualKind: fmt.Sprintf("%T", sym),
		}
	}
	return nil
}

// VerifyInstancePorts checks positional operand and result agreement between
// an instance and its resolved target module.
func VerifyInstancePorts(g *Graph, id OpID, target *Module) error {
	op := g.Op(id)
	name := fmt.Sprintf("rtl.instance %q", op.Name)
	inputs := target.InputPorts()
	outputs := target.OutputPorts()
	if len(op.Operands) != len(inputs) {
		return arityErr(name, len(inputs), len(op.Operands))
	}
	for i, operand := range op.Operands {
		if got := g.ValueType(operand); got != inputs[i].Type {
			return typeErr(name, i, inputs[i].Type, got)
		}
	}
	if len(op.Results) != len(outputs) {
		return malformedErr(name, "expected %d results, got %d", len(outputs), len(op.Results))
	}
	for i, res := range op.Results {
		if got := g.ValueType(res); got != outputs[i].Type {
			return malformedErr(name, "result %d: expected %s, got %s", i, outputs[i].Type, got)
		}
	}
	return nil
}

// VerifyOutput checks the terminator of m's body against the declared output
// ports: same operand count, and positionally identical types.
func VerifyOutput(m *Module) error {
	const opName = "rtl.output"
	if m.Body == nil {
		return &StructuralError{
			Op:     opName,
			Reason: WrongParent,
			Msg:    "operation expected to be in the body of a defined module",
		}
	}
	term, ok := m.Body.Terminator()
	if !ok {
		return malformedErr(opName, "module %q has no terminator", m.Name)
	}
	op := m.Body.Op(term)
	outputs := m.OutputPorts()
	if len(op.Operands) != len(outputs) {
		return arityErr(opName, len(outputs), len(op.Operands))
	}
	for i, operand := range op.Operands {
		if got := m.Body.ValueType(operand); got != outputs[i].Type {
			return typeErr(opName, i, outputs[i].Type, got)
		}
	}
	return nil
}

// VerifyModule checks a single module in isolation: entry arguments against
// input ports, and the terminator against output ports. External modules
// have nothing to check.
func VerifyModule(m *Module) error {
	if m.Body == nil {
		return nil
	}
	name := fmt.Sprintf("rtl.module @%s", m.Name)
	inputs := m.InputPorts()
	args := m.Body.Args()
	if len(args) != len(inputs) {
		return arityErr(name, len(inputs), len(args))
	}
	for i, arg := range args {
		if got := m.Body.ValueType(arg); got != inputs[i].Type {
			return typeErr(name, i, inputs[i].Type, got)
		}
	}
	return VerifyOutput(m)
}

// VerifyDesign checks the whole compilation unit: unique module symbols,
// every module's structural invariants, and every instance's target
// resolution plus port agreement.
func VerifyDesign(d *Design) error {
	seen := make(map[string]bool, len(d.Modules))
	for _, m := range d.Modules {
		if seen[m.Name] {
			return malformedErr("rtl.module", "duplicate symbol @%s", m.Name)
		}
		seen[m.Name] = true
	}
	for _, m := range d.Modules {
		if err := VerifyModule(m); err != nil {
			return fmt.Errorf("module @%s: %w", m.Name, err)
		}
		if m.Body == nil {
			continue
		}
		for _, id := range m.Body.Ops() {
			if m.Body.Op(id).Kind != KindInstance {
				continue
			}
			if err := VerifyInstance(m.Body, id, d); err != nil {
				return fmt.Errorf("module @%s: %w", m.Name, err)
			}
			sym, _ := d.Resolve(m.Body.Op(id).Target)
			if err := VerifyInstancePorts(m.Body, id, sym.(*Module)); err != nil {
				return fmt.Errorf("module @%s: %w", m.Name, err)
			}
		}
	}
	return nil
}
