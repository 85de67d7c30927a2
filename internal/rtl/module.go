package rtl

// Direction classifies a port.
type Direction int

const (
	Input Direction = iota
	Output
	InOut
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case InOut:
		return "inout"
	}
	return "unknown"
}

// Port is one position of a module's signature. Index is the position within
// the direction-partitioned port list: inputs (including inouts) count
// through the signature's input positions, outputs through its outputs.
type Port struct {
	Name  string
	Dir   Direction
	Type  Type
	Index int
}

// Module is a named container: a defined module has a body graph whose
// terminator maps values to the output ports, an external module carries
// only its signature and optional parameters.
type Module struct {
	Name   string
	Ports  []Port
	Body   *Graph // nil for external modules
	Params map[string]string
}

// IsExternal reports whether m has no body.
func (m *Module) IsExternal() bool { return m.Body == nil }

// InputPorts returns the input and inout ports in signature order.
func (m *Module) InputPorts() []Port {
	var out []Port
	for _, p := range m.Ports {
		if p.Dir != Output {
			out = append(out, p)
		}
	}
	return out
}

// OutputPorts returns the output ports in signature order.
func (m *Module) OutputPorts() []Port {
	var out []Port
	for _, p := range m.Ports {
		if p.Dir == Output {
			out = append(out, p)
		}
	}
	return out
}

// Signature is the type-level shape of a module: ordered input types
// (inouts included) and ordered output types.
type Signature struct {
	Inputs  []Type
	Outputs []Type
}

// PortAttrs is the per-position attribute side-table entry accompanying a
// signature: an optional explicit name and the in-out marker.
type PortAttrs struct {
	Name  string
	InOut bool
}

// DecodePorts builds the ordered port list from a signature and its
// attribute side-tables. Pure and deterministic: re-running it on its own
// encoded output reproduces the identical port list.
func DecodePorts(sig Signature, args, results []PortAttrs) []Port {
	ports := make([]Port, 0, len(sig.Inputs)+len(sig.Outputs))
	for i, typ := range sig.Inputs {
		dir := Input
		name := ""
		if i < len(args) {
			if args[i].InOut {
				dir = InOut
			}
			name = args[i].Name
		}
		ports = append(ports, Port{Name: name, Dir: dir, Type: typ, Index: i})
	}
	for i, typ := range sig.Outputs {
		name := ""
		if i < len(results) {
			name = results[i].Name
		}
		ports = append(ports, Port{Name: name, Dir: Output, Type: typ, Index: i})
	}
	return ports
}

// EncodePorts is the inverse of DecodePorts.
func EncodePorts(ports []Port) (Signature, []PortAttrs, []PortAttrs) {
	var sig Signature
	var args, results []PortAttrs
	for _, p := range ports {
		if p.Dir == Output {
			sig.Outputs = append(sig.Outputs, p.Type)
			results = append(results, PortAttrs{Name: p.Name})
			continue
		}
		sig.Inputs = append(sig.Inputs, p.Type)
		args = append(args, PortAttrs{Name: p.Name, InOut: p.Dir == InOut})
	}
	return sig, args, results
}

// inferArgName adopts a textual value identifier as an implicit port name
// when no explicit name attribute is present. Numeric or empty identifiers
// never become names.
func inferArgName(attrs PortAttrs, textualID string) PortAttrs {
	if attrs.Name != "" || textualID == "" {
		return attrs
	}
	if textualID[0] >= '0' && textualID[0] <= '9' {
		return attrs
	}
	attrs.Name = textualID
	return attrs
}

// Symbol is anything a name can resolve to within a symbol namespace.
type Symbol interface {
	SymbolName() string
}

// SymbolName makes modules resolvable symbols.
func (m *Module) SymbolName() string { return m.Name }

// SymbolScope resolves a symbol by name. It is an explicit parameter to
// instance verification rather than ambient state, and must be safe for
// concurrent lookups.
type SymbolScope interface {
	Resolve(name string) (Symbol, bool)
}

// Design is a compilation unit: an ordered list of modules owning one
// symbol namespace.
type Design struct {
	Modules []*Module
}

// Resolve finds the module named name. It returns false when the name is
// missing or ambiguous; VerifyDesign rejects duplicate symbols.
func (d *Design) Resolve(name string) (Symbol, bool) {
	var found *Module
	for _, m := range d.Modules {
		if m.Name != name {
			continue
		}
		if found != nil {
			return nil, false
		}
		found = m
	}
	if found == nil {
		return nil, false
	}
	return found, true
}
