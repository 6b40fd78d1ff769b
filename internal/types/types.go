// Package types implements the gradual Hindley–Milner-style inferencer
// of spec.md §4.4: a ground/Unknown/Function/Pair/Vector/Matrix type
// sum, union-find-style unification with a real occurs check, and
// constraint generation over the resolved AST.
package types

import "strings"

// Type is the sum type for every value the inferencer can assign to a
// node (spec.md §3): ground types, Unknown, and the composite forms
// Pair/Vector/Matrix/Function, plus Var, the type-variable placeholder
// that only exists during inference and never in source syntax.
type Type interface {
	String() string
	IsType()
}

// Kind names a ground, non-composite type.
type Kind string

const (
	Integer Kind = "integer"
	Float   Kind = "float"
	Bool    Kind = "bool"
	String  Kind = "string"
	Char    Kind = "char"
	Symbol  Kind = "symbol"
	Void    Kind = "void"
)

// Ground is a non-composite, non-gradual type.
type Ground struct {
	Kind Kind
}

func (g *Ground) String() string { return string(g.Kind) }
func (g *Ground) IsType()        {}

var (
	TypeInteger = &Ground{Kind: Integer}
	TypeFloat   = &Ground{Kind: Float}
	TypeBool    = &Ground{Kind: Bool}
	TypeString  = &Ground{Kind: String}
	TypeChar    = &Ground{Kind: Char}
	TypeSymbol  = &Ground{Kind: Symbol}
	TypeVoid    = &Ground{Kind: Void}
)

// Unknown is the gradual-typing absorbing type (spec.md §4.4): it
// unifies with anything, successfully, without binding a variable.
type Unknown struct{}

func (*Unknown) String() string { return "unknown" }
func (*Unknown) IsType()        {}

var TypeUnknown = &Unknown{}

// Pair is a cons cell's type.
type Pair struct {
	Car, Cdr Type
}

func (p *Pair) String() string { return "(pair " + p.Car.String() + " " + p.Cdr.String() + ")" }
func (p *Pair) IsType()        {}

// Vector is a fixed-element-type vector's type.
type Vector struct {
	Elem Type
}

func (v *Vector) String() string { return "(vector " + v.Elem.String() + ")" }
func (v *Vector) IsType()        {}

// Matrix is a row-major array of Vector(Elem)'s type: the jacobian and
// hessian runtime entry points return one (VectorF**, not a flat
// VectorF*), so they need a shape distinct from Vector to stay
// ABI-honest in codegen's extern declarations.
type Matrix struct {
	Elem Type
}

func (m *Matrix) String() string { return "(matrix " + m.Elem.String() + ")" }
func (m *Matrix) IsType()        {}

// Function is a closure or plain function's type.
type Function struct {
	Params []Type
	Return Type
}

func (f *Function) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	ret := "void"
	if f.Return != nil {
		ret = f.Return.String()
	}
	return "(-> " + strings.Join(parts, " ") + " " + ret + ")"
}
func (f *Function) IsType() {}

// Var is an as-yet-unsolved type variable, assigned fresh per node or
// per binding during constraint generation.
type Var struct {
	ID int
}

func (v *Var) String() string { return "t" + itoa(v.ID) }
func (v *Var) IsType()        {}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
