package rtl

import "fmt"

// Type is an immutable descriptor for the data carried by a value. All
// implementations are comparable value structs, so == is structural equality.
type Type interface {
	String() string
	isType()
}

// IntType is a signless bit-vector of a fixed width.
type IntType struct {
	Width int
}

func (IntType) isType() {}

func (t IntType) String() string { return fmt.Sprintf("i%d", t.Width) }

// ArrayType is a fixed-size vector of another type.
type ArrayType struct {
	Elem Type
	Size int
}

func (ArrayType) isType() {}

func (t ArrayType) String() string { return fmt.Sprintf("array<%dx%s>", t.Size, t.Elem) }

// TypeInterner canonicalizes type descriptors so that equal types share one
// instance. It replaces the ambient context object of the source design: it
// is created explicitly and must outlive every value typed through it.
type TypeInterner struct {
	types map[Type]Type
}

func NewTypeInterner() *TypeInterner {
	return &TypeInterner{types: make(map[Type]Type)}
}

// Int returns the canonical n-bit integer type.
func (tc *TypeInterner) Int(width int) Type {
	return tc.intern(IntType{Width: width})
}

// Array returns the canonical fixed-size vector of elem.
func (tc *TypeInterner) Array(elem Type, size int) Type {
	return tc.intern(ArrayType{Elem: tc.intern(elem), Size: size})
}

func (tc *TypeInterner) intern(t Type) Type {
	if got, ok := tc.types[t]; ok {
		return got
	}
	tc.types[t] = t
	return t
}

// intWidth returns the width of t if it is an integer type.
func intWidth(t Type) (int, bool) {
	it, ok := t.(IntType)
	if !ok {
		return 0, false
	}
	return it.Width, true
}
