package rtl

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

// ParseDesign parses the textual IR form into a verified design. Any
// structural or symbol failure aborts the parse: no partially constructed
// design is returned.
func ParseDesign(tc *TypeInterner, src []byte) (*Design, error) {
	p := &parser{lex: newLexer(string(src)), tc: tc}
	d := &Design{}
	for {
		tok := p.lex.next()
		if tok.kind == tokEOF {
			break
		}
		if tok.kind != tokIdent {
			return nil, fmt.Errorf("line %d: unexpected token %q", tok.line, tok.text)
		}
		var m *Module
		var err error
		switch tok.text {
		case "rtl.module":
			m, err = p.parseModule(false)
		case "rtl.externmodule":
			m, err = p.parseModule(true)
		default:
			return nil, fmt.Errorf("line %d: unexpected %q at top level", tok.line, tok.text)
		}
		if err != nil {
			return nil, err
		}
		d.Modules = append(d.Modules, m)
	}
	if err := VerifyDesign(d); err != nil {
		return nil, err
	}
	return d, nil
}

type parser struct {
	lex *lexer
	tc  *TypeInterner
}

func (p *parser) errf(line int, format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", line, fmt.Sprintf(format, args...))
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.lex.next()
	if tok.kind != kind {
		return tok, p.errf(tok.line, "expected %s, got %q", what, tok.text)
	}
	return tok, nil
}

func (p *parser) parseModule(isExtern bool) (*Module, error) {
	sym, err := p.expect(tokSymbol, "module symbol")
	if err != nil {
		return nil, err
	}

	var sig Signature
	var argAttrs []PortAttrs
	var argIDs []string

	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	for p.lex.peek().kind != tokRParen {
		if len(argIDs) > 0 {
			if _, err := p.expect(tokComma, ","); err != nil {
				return nil, err
			}
		}
		id, err := p.expect(tokValueID, "argument %id")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, ":"); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		attrs, err := p.parseArgAttrs()
		if err != nil {
			return nil, err
		}
		// Adopt the textual identifier as the implicit name attribute when
		// no explicit one is present and the identifier is non-numeric.
		attrs = inferArgName(attrs, id.text)
		sig.Inputs = append(sig.Inputs, typ)
		argAttrs = append(argAttrs, attrs)
		argIDs = append(argIDs, id.text)
	}
	p.lex.next() // )

	if p.lex.peek().kind == tokArrow {
		p.lex.next()
		if _, err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		for p.lex.peek().kind != tokRParen {
			if len(sig.Outputs) > 0 {
				if _, err := p.expect(tokComma, ","); err != nil {
					return nil, err
				}
			}
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			sig.Outputs = append(sig.Outputs, typ)
		}
		p.lex.next() // )
	}

	m := &Module{
		Name:  sym.text,
		Ports: DecodePorts(sig, argAttrs, make([]PortAttrs, len(sig.Outputs))),
	}

	if isExtern {
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		m.Params = params
		return m, nil
	}

	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	g := NewGraph(p.tc)
	values := make(map[string]ValueID, len(argIDs))
	for i, port := range m.InputPorts() {
		v := g.AddArg(port.Type, port.Name)
		if _, dup := values[argIDs[i]]; dup {
			return nil, p.errf(sym.line, "duplicate value %%%s", argIDs[i])
		}
		values[argIDs[i]] = v
	}
	for p.lex.peek().kind != tokRBrace {
		if err := p.parseOp(g, values); err != nil {
			return nil, fmt.Errorf("module @%s: %w", m.Name, err)
		}
	}
	p.lex.next() // }

	// A module with no outputs may omit its terminator.
	if _, ok := g.Terminator(); !ok {
		if _, err := g.Output(); err != nil {
			return nil, err
		}
	}
	m.Body = g
	return m, nil
}

func (p *parser) parseArgAttrs() (PortAttrs, error) {
	var attrs PortAttrs
	if p.lex.peek().kind != tokLBrace {
		return attrs, nil
	}
	p.lex.next()
	for p.lex.peek().kind != tokRBrace {
		tok, err := p.expect(tokIdent, "attribute name")
		if err != nil {
			return attrs, err
		}
		switch tok.text {
		case "rtl.name":
			if _, err := p.expect(tokEquals, "="); err != nil {
				return attrs, err
			}
			str, err := p.expect(tokString, "string")
			if err != nil {
				return attrs, err
			}
			attrs.Name = str.text
		case "rtl.inout":
			attrs.InOut = true
		default:
			return attrs, p.errf(tok.line, "unknown port attribute %q", tok.text)
		}
		if p.lex.peek().kind == tokComma {
			p.lex.next()
		}
	}
	p.lex.next() // }
	return attrs, nil
}

func (p *parser) parseParams() (map[string]string, error) {
	if tok := p.lex.peek(); tok.kind != tokIdent || tok.text != "attributes" {
		return nil, nil
	}
	p.lex.next()
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	params := make(map[string]string)
	for p.lex.peek().kind != tokRBrace {
		key, err := p.expect(tokIdent, "parameter name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokEquals, "="); err != nil {
			return nil, err
		}
		val, err := p.expect(tokString, "string")
		if err != nil {
			return nil, err
		}
		params[key.text] = val.text
		if p.lex.peek().kind == tokComma {
			p.lex.next()
		}
	}
	p.lex.next() // }
	return params, nil
}

func (p *parser) parseOp(g *Graph, values map[string]ValueID) error {
	var resultIDs []token
	tok := p.lex.next()
	if tok.kind == tokValueID {
		resultIDs = append(resultIDs, tok)
		for p.lex.peek().kind == tokComma {
			p.lex.next()
			id, err := p.expect(tokValueID, "result %id")
			if err != nil {
				return err
			}
			resultIDs = append(resultIDs, id)
		}
		if _, err := p.expect(tokEquals, "="); err != nil {
			return err
		}
		tok = p.lex.next()
	}
	if tok.kind != tokIdent {
		return p.errf(tok.line, "expected operation name, got %q", tok.text)
	}

	var results []ValueID
	var err error
	switch tok.text {
	case "rtl.constant":
		results, err = p.parseConstant(g, tok.line)
	case "rtl.and", "rtl.or", "rtl.xor", "rtl.add", "rtl.mul":
		results, err = p.parseVariadic(g, values, tok)
	case "rtl.extract":
		results, err = p.parseExtract(g, values, tok.line)
	case "rtl.concat":
		results, err = p.parseConcat(g, values, tok.line)
	case "rtl.shl":
		results, err = p.parseShl(g, values, tok.line)
	case "rtl.wire":
		results, err = p.parseWire(g, values, resultIDs, tok.line)
	case "rtl.instance":
		results, err = p.parseInstance(g, values, resultIDs, tok.line)
	case "rtl.output":
		err = p.parseOutput(g, values, tok.line)
	default:
		return p.errf(tok.line, "unknown operation %q", tok.text)
	}
	if err != nil {
		return err
	}

	if len(resultIDs) != len(results) {
		return p.errf(tok.line, "%s: expected %d results, got %d", tok.text, len(results), len(resultIDs))
	}
	for i, id := range resultIDs {
		if _, dup := values[id.text]; dup {
			return p.errf(id.line, "duplicate value %%%s", id.text)
		}
		values[id.text] = results[i]
	}
	return nil
}

func (p *parser) parseConstant(g *Graph, line int) ([]ValueID, error) {
	num, err := p.expect(tokNumber, "literal")
	if err != nil {
		return nil, err
	}
	value, ok := new(big.Int).SetString(num.text, 0)
	if !ok {
		return nil, p.errf(num.line, "invalid literal %q", num.text)
	}
	typ, err := p.parseResultType()
	if err != nil {
		return nil, err
	}
	width, ok := intWidth(typ)
	if !ok {
		return nil, p.errf(line, "rtl.constant needs an integer type, got %s", typ)
	}
	v, err := g.Constant(width, value)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	return []ValueID{v}, nil
}

func (p *parser) parseVariadic(g *Graph, values map[string]ValueID, opTok token) ([]ValueID, error) {
	kinds := map[string]OpKind{
		"rtl.and": KindAnd, "rtl.or": KindOr, "rtl.xor": KindXor,
		"rtl.add": KindAdd, "rtl.mul": KindMul,
	}
	operands, err := p.parseOperandList(values)
	if err != nil {
		return nil, err
	}
	typ, err := p.parseResultType()
	if err != nil {
		return nil, err
	}
	v, err := g.Variadic(kinds[opTok.text], operands...)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", opTok.line, err)
	}
	if got := g.ValueType(v); got != typ {
		return nil, p.errf(opTok.line, "%s: declared type %s, operands give %s", opTok.text, typ, got)
	}
	return []ValueID{v}, nil
}

func (p *parser) parseExtract(g *Graph, values map[string]ValueID, line int) ([]ValueID, error) {
	input, err := p.parseOperand(values)
	if err != nil {
		return nil, err
	}
	from, err := p.expect(tokIdent, "'from'")
	if err != nil || from.text != "from" {
		return nil, p.errf(from.line, "expected 'from' in rtl.extract")
	}
	num, err := p.expect(tokNumber, "low bit")
	if err != nil {
		return nil, err
	}
	lowBit, err := strconv.Atoi(num.text)
	if err != nil {
		return nil, p.errf(num.line, "invalid low bit %q", num.text)
	}
	if _, err := p.expect(tokColon, ":"); err != nil {
		return nil, err
	}
	srcType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if got := g.ValueType(input); got != srcType {
		return nil, p.errf(line, "rtl.extract: declared input type %s, got %s", srcType, got)
	}
	if _, err := p.expect(tokArrow, "->"); err != nil {
		return nil, err
	}
	dstType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	width, ok := intWidth(dstType)
	if !ok {
		return nil, p.errf(line, "rtl.extract needs an integer result, got %s", dstType)
	}
	v, err := g.Extract(input, lowBit, width)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	return []ValueID{v}, nil
}

func (p *parser) parseConcat(g *Graph, values map[string]ValueID, line int) ([]ValueID, error) {
	operands, err := p.parseOperandList(values)
	if err != nil {
		return nil, err
	}
	typ, err := p.parseResultType()
	if err != nil {
		return nil, err
	}
	v, err := g.Concat(operands...)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	if got := g.ValueType(v); got != typ {
		return nil, p.errf(line, "rtl.concat: declared type %s, operands give %s", typ, got)
	}
	return []ValueID{v}, nil
}

func (p *parser) parseShl(g *Graph, values map[string]ValueID, line int) ([]ValueID, error) {
	operands, err := p.parseOperandList(values)
	if err != nil {
		return nil, err
	}
	if len(operands) != 2 {
		return nil, p.errf(line, "rtl.shl takes exactly 2 operands")
	}
	typ, err := p.parseResultType()
	if err != nil {
		return nil, err
	}
	v, err := g.Shl(operands[0], operands[1])
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	if got := g.ValueType(v); got != typ {
		return nil, p.errf(line, "rtl.shl: declared type %s, operands give %s", typ, got)
	}
	return []ValueID{v}, nil
}

func (p *parser) parseWire(g *Graph, values map[string]ValueID, resultIDs []token, line int) ([]ValueID, error) {
	inner, err := p.parseOperand(values)
	if err != nil {
		return nil, err
	}
	name := ""
	if p.lex.peek().kind == tokLBrace {
		p.lex.next()
		key, err := p.expect(tokIdent, "attribute name")
		if err != nil {
			return nil, err
		}
		if key.text != "name" {
			return nil, p.errf(key.line, "unknown wire attribute %q", key.text)
		}
		if _, err := p.expect(tokEquals, "="); err != nil {
			return nil, err
		}
		str, err := p.expect(tokString, "string")
		if err != nil {
			return nil, err
		}
		name = str.text
		if _, err := p.expect(tokRBrace, "}"); err != nil {
			return nil, err
		}
	}
	// Infer the name from the textual result identifier when no explicit
	// attribute is present.
	if name == "" && len(resultIDs) == 1 {
		name = inferArgName(PortAttrs{}, resultIDs[0].text).Name
	}
	typ, err := p.parseResultType()
	if err != nil {
		return nil, err
	}
	if got := g.ValueType(inner); got != typ {
		return nil, p.errf(line, "rtl.wire: declared type %s, operand is %s", typ, got)
	}
	v, err := g.Wire(name, inner)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	return []ValueID{v}, nil
}

func (p *parser) parseInstance(g *Graph, values map[string]ValueID, resultIDs []token, line int) ([]ValueID, error) {
	name, err := p.expect(tokString, "instance name")
	if err != nil {
		return nil, err
	}
	target, err := p.expect(tokSymbol, "target symbol")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var operands []ValueID
	for p.lex.peek().kind != tokRParen {
		if len(operands) > 0 {
			if _, err := p.expect(tokComma, ","); err != nil {
				return nil, err
			}
		}
		v, err := p.parseOperand(values)
		if err != nil {
			return nil, err
		}
		operands = append(operands, v)
	}
	p.lex.next() // )

	if _, err := p.expect(tokColon, ":"); err != nil {
		return nil, err
	}
	operandTypes, err := p.parseTypeList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokArrow, "->"); err != nil {
		return nil, err
	}
	resultTypes, err := p.parseTypeList()
	if err != nil {
		return nil, err
	}

	if len(operandTypes) != len(operands) {
		return nil, p.errf(line, "rtl.instance: %d operands, %d operand types", len(operands), len(operandTypes))
	}
	for i, operand := range operands {
		if got := g.ValueType(operand); got != operandTypes[i] {
			return nil, p.errf(line, "rtl.instance: operand %d declared %s, got %s", i, operandTypes[i], got)
		}
	}

	// Result names default from the textual result identifiers.
	resultNames := make([]string, len(resultTypes))
	for i := range resultNames {
		if i < len(resultIDs) {
			resultNames[i] = inferArgName(PortAttrs{}, resultIDs[i].text).Name
		}
	}
	results, err := g.Instance(name.text, target.text, resultTypes, resultNames, operands...)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	return results, nil
}

func (p *parser) parseOutput(g *Graph, values map[string]ValueID, line int) error {
	var operands []ValueID
	if p.lex.peek().kind == tokValueID {
		var err error
		operands, err = p.parseOperandList(values)
		if err != nil {
			return err
		}
		if _, err := p.expect(tokColon, ":"); err != nil {
			return err
		}
		for i := range operands {
			if i > 0 {
				if _, err := p.expect(tokComma, ","); err != nil {
					return err
				}
			}
			typ, err := p.parseType()
			if err != nil {
				return err
			}
			if got := g.ValueType(operands[i]); got != typ {
				return p.errf(line, "rtl.output: operand %d declared %s, got %s", i, typ, got)
			}
		}
	}
	if _, err := g.Output(operands...); err != nil {
		return fmt.Errorf("line %d: %w", line, err)
	}
	return nil
}

func (p *parser) parseOperand(values map[string]ValueID) (ValueID, error) {
	id, err := p.expect(tokValueID, "operand %id")
	if err != nil {
		return NoValue, err
	}
	v, ok := values[id.text]
	if !ok {
		return NoValue, p.errf(id.line, "unknown value %%%s", id.text)
	}
	return v, nil
}

func (p *parser) parseOperandList(values map[string]ValueID) ([]ValueID, error) {
	v, err := p.parseOperand(values)
	if err != nil {
		return nil, err
	}
	operands := []ValueID{v}
	for p.lex.peek().kind == tokComma {
		p.lex.next()
		v, err := p.parseOperand(values)
		if err != nil {
			return nil, err
		}
		operands = append(operands, v)
	}
	return operands, nil
}

// parseResultType parses the ": type" suffix.
func (p *parser) parseResultType() (Type, error) {
	if _, err := p.expect(tokColon, ":"); err != nil {
		return nil, err
	}
	return p.parseType()
}

func (p *parser) parseTypeList() ([]Type, error) {
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var types []Type
	for p.lex.peek().kind != tokRParen {
		if len(types) > 0 {
			if _, err := p.expect(tokComma, ","); err != nil {
				return nil, err
			}
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		types = append(types, typ)
	}
	p.lex.next() // )
	return types, nil
}

func (p *parser) parseType() (Type, error) {
	tok := p.lex.next()
	if tok.kind != tokIdent {
		return nil, p.errf(tok.line, "expected type, got %q", tok.text)
	}
	return p.parseTypeHead(tok)
}

func (p *parser) parseTypeHead(tok token) (Type, error) {
	if tok.text == "array" {
		if _, err := p.expect(tokLess, "<"); err != nil {
			return nil, err
		}
		dim, err := p.expect(tokNumber, "array dimension")
		if err != nil {
			return nil, err
		}
		// The dimension token reads NxT, e.g. 4xi8.
		xi := strings.IndexByte(dim.text, 'x')
		if xi <= 0 {
			return nil, p.errf(dim.line, "expected NxT array dimension, got %q", dim.text)
		}
		size, err := strconv.Atoi(dim.text[:xi])
		if err != nil {
			return nil, p.errf(dim.line, "invalid array size %q", dim.text[:xi])
		}
		elem, err := p.parseTypeHead(token{kind: tokIdent, text: dim.text[xi+1:], line: dim.line})
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokGreater, ">"); err != nil {
			return nil, err
		}
		return p.tc.Array(elem, size), nil
	}
	if strings.HasPrefix(tok.text, "i") {
		width, err := strconv.Atoi(tok.text[1:])
		if err == nil && width >= 1 {
			return p.tc.Int(width), nil
		}
	}
	return nil, p.errf(tok.line, "unknown type %q", tok.text)
}

// Lexer

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokValueID // %name
	tokSymbol  // @name
	tokNumber
	tokString
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokLess
	tokGreater
	tokComma
	tokColon
	tokEquals
	tokArrow
)

type token struct {
	kind tokenKind
	text string
	line int
}

type lexer struct {
	s    string
	i    int
	line int
}

func newLexer(s string) *lexer { return &lexer{s: s, line: 1} }

func (l *lexer) peek() token {
	pos, line := l.i, l.line
	tok := l.next()
	l.i, l.line = pos, line
	return tok
}

func (l *lexer) next() token {
	for l.i < len(l.s) {
		ch := l.s[l.i]
		if ch == '\n' {
			l.line++
			l.i++
			continue
		}
		if unicode.IsSpace(rune(ch)) {
			l.i++
			continue
		}
		if ch == '/' && l.i+1 < len(l.s) && l.s[l.i+1] == '/' {
			for l.i < len(l.s) && l.s[l.i] != '\n' {
				l.i++
			}
			continue
		}
		break
	}
	if l.i >= len(l.s) {
		return token{kind: tokEOF, line: l.line}
	}

	line := l.line
	ch := l.s[l.i]
	switch ch {
	case '(':
		l.i++
		return token{kind: tokLParen, text: "(", line: line}
	case ')':
		l.i++
		return token{kind: tokRParen, text: ")", line: line}
	case '{':
		l.i++
		return token{kind: tokLBrace, text: "{", line: line}
	case '}':
		l.i++
		return token{kind: tokRBrace, text: "}", line: line}
	case '<':
		l.i++
		return token{kind: tokLess, text: "<", line: line}
	case '>':
		l.i++
		return token{kind: tokGreater, text: ">", line: line}
	case ',':
		l.i++
		return token{kind: tokComma, text: ",", line: line}
	case ':':
		l.i++
		return token{kind: tokColon, text: ":", line: line}
	case '=':
		l.i++
		return token{kind: tokEquals, text: "=", line: line}
	case '-':
		if l.i+1 < len(l.s) && l.s[l.i+1] == '>' {
			l.i += 2
			return token{kind: tokArrow, text: "->", line: line}
		}
	case '%':
		l.i++
		return token{kind: tokValueID, text: l.ident(), line: line}
	case '@':
		l.i++
		return token{kind: tokSymbol, text: l.ident(), line: line}
	case '"':
		l.i++
		start := l.i
		for l.i < len(l.s) && l.s[l.i] != '"' {
			l.i++
		}
		text := l.s[start:l.i]
		if l.i < len(l.s) {
			l.i++
		}
		return token{kind: tokString, text: text, line: line}
	}

	if isDigit(ch) {
		start := l.i
		for l.i < len(l.s) && isIdentPart(l.s[l.i]) {
			l.i++
		}
		return token{kind: tokNumber, text: l.s[start:l.i], line: line}
	}
	if isIdentStart(ch) {
		return token{kind: tokIdent, text: l.ident(), line: line}
	}
	l.i++
	return token{kind: tokEOF, text: string(ch), line: line}
}

// ident consumes an identifier, including dotted names like rtl.and.
func (l *lexer) ident() string {
	start := l.i
	for l.i < len(l.s) && (isIdentPart(l.s[l.i]) || l.s[l.i] == '.') {
		l.i++
	}
	return l.s[start:l.i]
}

func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || unicode.IsLetter(rune(b))
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
