package rtl

import (
	"fmt"
	"sort"
	"strings"
)

// PrintDesign renders the design in the textual IR form understood by
// ParseDesign. Value identifiers come from display names when present
// (uniquified on collision) and are numbered otherwise.
func PrintDesign(d *Design) string {
	var buf strings.Builder
	for i, m := range d.Modules {
		if i > 0 {
			buf.WriteByte('\n')
		}
		printModule(&buf, m)
	}
	return buf.String()
}

type namer struct {
	g     *Graph
	names map[ValueID]string
	used  map[string]bool
	next  int
}

func newNamer(g *Graph) *namer {
	return &namer{g: g, names: make(map[ValueID]string), used: make(map[string]bool)}
}

func (n *namer) name(v ValueID) string {
	if got, ok := n.names[v]; ok {
		return got
	}
	name := n.g.ValueName(v)
	if name == "" {
		name = fmt.Sprint(n.next)
		n.next++
	} else if n.used[name] {
		for i := 0; ; i++ {
			candidate := fmt.Sprintf("%s_%d", name, i)
			if !n.used[candidate] {
				name = candidate
				break
			}
		}
	}
	n.used[name] = true
	n.names[v] = name
	return name
}

func printModule(buf *strings.Builder, m *Module) {
	if m.Body == nil {
		buf.WriteString("rtl.externmodule @")
		buf.WriteString(m.Name)
		printExternSignature(buf, m)
		printParams(buf, m.Params)
		buf.WriteByte('\n')
		return
	}

	names := newNamer(m.Body)
	buf.WriteString("rtl.module @")
	buf.WriteString(m.Name)
	buf.WriteByte('(')
	args := m.Body.Args()
	for i, p := range m.InputPorts() {
		if i > 0 {
			buf.WriteString(", ")
		}
		id := names.name(args[i])
		fmt.Fprintf(buf, "%%%s: %s", id, p.Type)
		printArgAttrs(buf, p, id)
	}
	buf.WriteString(") -> (")
	for i, p := range m.OutputPorts() {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p.Type.String())
	}
	buf.WriteString(") {\n")
	for _, id := range m.Body.Ops() {
		printOp(buf, m.Body, id, names)
	}
	buf.WriteString("}\n")
}

func printExternSignature(buf *strings.Builder, m *Module) {
	buf.WriteByte('(')
	for i, p := range m.InputPorts() {
		if i > 0 {
			buf.WriteString(", ")
		}
		id := p.Name
		if id == "" {
			id = fmt.Sprint(i)
		}
		fmt.Fprintf(buf, "%%%s: %s", id, p.Type)
		printArgAttrs(buf, p, id)
	}
	buf.WriteString(") -> (")
	for i, p := range m.OutputPorts() {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p.Type.String())
	}
	buf.WriteByte(')')
}

// printArgAttrs prints the attribute dictionary for a port: the inout
// marker, and an explicit name only when the printed identifier disagrees
// with the port name.
func printArgAttrs(buf *strings.Builder, p Port, printedID string) {
	var attrs []string
	if p.Name != "" && p.Name != printedID {
		attrs = append(attrs, fmt.Sprintf("rtl.name = %q", p.Name))
	}
	if p.Dir == InOut {
		attrs = append(attrs, "rtl.inout")
	}
	if len(attrs) > 0 {
		fmt.Fprintf(buf, " {%s}", strings.Join(attrs, ", "))
	}
}

func printParams(buf *strings.Builder, params map[string]string) {
	if len(params) == 0 {
		return
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf.WriteString(" attributes {")
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(buf, "%s = %q", k, params[k])
	}
	buf.WriteByte('}')
}

func printOp(buf *strings.Builder, g *Graph, id OpID, names *namer) {
	op := g.Op(id)
	buf.WriteString("  ")
	for i, res := range op.Results {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteByte('%')
		buf.WriteString(names.name(res))
	}
	if len(op.Results) > 0 {
		buf.WriteString(" = ")
	}
	buf.WriteString(op.Kind.String())

	switch op.Kind {
	case KindConstant:
		fmt.Fprintf(buf, " %s : %s", op.Literal, g.ValueType(op.Results[0]))

	case KindAnd, KindOr, KindXor, KindAdd, KindMul, KindConcat, KindShl:
		buf.WriteByte(' ')
		printOperands(buf, g, op.Operands, names)
		fmt.Fprintf(buf, " : %s", g.ValueType(op.Results[0]))

	case KindExtract:
		fmt.Fprintf(buf, " %%%s from %d : %s -> %s",
			names.name(op.Operands[0]), op.LowBit,
			g.ValueType(op.Operands[0]), g.ValueType(op.Results[0]))

	case KindWire:
		fmt.Fprintf(buf, " %%%s", names.name(op.Operands[0]))
		if op.Name != "" && op.Name != names.name(op.Results[0]) {
			fmt.Fprintf(buf, " {name = %q}", op.Name)
		}
		fmt.Fprintf(buf, " : %s", g.ValueType(op.Results[0]))

	case KindInstance:
		fmt.Fprintf(buf, " %q @%s(", op.Name, op.Target)
		printOperands(buf, g, op.Operands, names)
		buf.WriteString(") : (")
		for i, operand := range op.Operands {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(g.ValueType(operand).String())
		}
		buf.WriteString(") -> (")
		for i, res := range op.Results {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(g.ValueType(res).String())
		}
		buf.WriteByte(')')

	case KindOutput:
		if len(op.Operands) > 0 {
			buf.WriteByte(' ')
			printOperands(buf, g, op.Operands, names)
			buf.WriteString(" : ")
			for i, operand := range op.Operands {
				if i > 0 {
					buf.WriteString(", ")
				}
				buf.WriteString(g.ValueType(operand).String())
			}
		}
	}
	buf.WriteByte('\n')
}

func printOperands(buf *strings.Builder, g *Graph, operands []ValueID, names *namer) {
	for i, operand := range operands {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteByte('%')
		buf.WriteString(names.name(operand))
	}
}
