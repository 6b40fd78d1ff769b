// Package ast defines the untyped tree the parser produces (spec.md §3):
// tagged node variants carrying a stable node id and a source span. Every
// node is allocated through a Factory backed by the compilation arena so
// ids stay dense and monotonic.
package ast

import (
	"github.com/eskemec-lang/eskemec/internal/arena"
	"github.com/eskemec-lang/eskemec/internal/lexer"
)

// NodeID is a dense, monotonic identifier assigned in allocation order.
type NodeID int

// Node is the common interface every AST variant implements.
type Node interface {
	ID() NodeID
	Span() lexer.Span
	SetSpan(lexer.Span)
	exprNode()
}

type base struct {
	id   NodeID
	span lexer.Span
}

func (b *base) ID() NodeID          { return b.id }
func (b *base) Span() lexer.Span    { return b.span }
func (b *base) SetSpan(s lexer.Span) { b.span = s }
func (b *base) exprNode()           {}

// Factory allocates nodes with monotonic ids drawn from an Arena.
type Factory struct {
	arena *arena.Arena
}

// NewFactory creates a Factory backed by a.
func NewFactory(a *arena.Arena) *Factory {
	return &Factory{arena: a}
}

func (f *Factory) next() NodeID {
	return NodeID(f.arena.NextNodeID())
}

// Erroneous is the sentinel node the parser substitutes for a form that
// failed to parse. It sits in its parent like any other child; ancestors
// are not rewritten. An identifier that fails to resolve is not replaced:
// it keeps its Identifier node with BindingID -1.
type Erroneous struct {
	base
	Reason string
}

func (f *Factory) NewErroneous(reason string) *Erroneous {
	n := &Erroneous{base: base{id: f.next()}, Reason: reason}
	f.arena.Retain(n)
	return n
}

type IntegerLiteral struct {
	base
	Value int64
}

func (f *Factory) NewIntegerLiteral(v int64) *IntegerLiteral {
	n := &IntegerLiteral{base: base{id: f.next()}, Value: v}
	f.arena.Retain(n)
	return n
}

type FloatLiteral struct {
	base
	Value float64
}

func (f *Factory) NewFloatLiteral(v float64) *FloatLiteral {
	n := &FloatLiteral{base: base{id: f.next()}, Value: v}
	f.arena.Retain(n)
	return n
}

type BoolLiteral struct {
	base
	Value bool
}

func (f *Factory) NewBoolLiteral(v bool) *BoolLiteral {
	n := &BoolLiteral{base: base{id: f.next()}, Value: v}
	f.arena.Retain(n)
	return n
}

type StringLiteral struct {
	base
	InternedID int
}

func (f *Factory) NewStringLiteral(id int) *StringLiteral {
	n := &StringLiteral{base: base{id: f.next()}, InternedID: id}
	f.arena.Retain(n)
	return n
}

type CharLiteral struct {
	base
	CodePoint rune
}

func (f *Factory) NewCharLiteral(r rune) *CharLiteral {
	n := &CharLiteral{base: base{id: f.next()}, CodePoint: r}
	f.arena.Retain(n)
	return n
}

// Identifier is an occurrence of a name, resolved to a BindingID by the
// binding resolver. BindingID is -1 until resolution.
type Identifier struct {
	base
	InternedID int
	Name       string // retained for diagnostics and C name synthesis
	BindingID  int
}

func (f *Factory) NewIdentifier(id int, name string) *Identifier {
	n := &Identifier{base: base{id: f.next()}, InternedID: id, Name: name, BindingID: -1}
	f.arena.Retain(n)
	return n
}

// Parameter is a lambda/function parameter with an optional annotation.
type Parameter struct {
	Name       string
	InternedID int
	Annotation TypeAnnotation // nil when unannotated
	BindingID  int
}

type Lambda struct {
	base
	Params           []*Parameter
	ReturnAnnotation TypeAnnotation // nil when unannotated
	Body             Node
	FreeBindings     []int // ordered outer binding ids referenced from the body
	ParamBindings    []int
	IntroducedScope  int
}

func (f *Factory) NewLambda(params []*Parameter, ret TypeAnnotation, body Node) *Lambda {
	n := &Lambda{base: base{id: f.next()}, Params: params, ReturnAnnotation: ret, Body: body}
	f.arena.Retain(n)
	return n
}

// Define covers both `(define name value)` and the desugared
// `(define (name params…) body…)` form, which the parser rewrites into a
// plain Define whose Value is a Lambda before this node is ever built.
type Define struct {
	base
	Name       string
	InternedID int
	BindingID  int
	Value      Node
	// Declared is the signature from a preceding `(: name (-> …))` with
	// a matching name, or nil if this define has no explicit signature.
	Declared *FunctionAnnotation
}

func (f *Factory) NewDefine(name string, internedID int, value Node) *Define {
	n := &Define{base: base{id: f.next()}, Name: name, InternedID: internedID, BindingID: -1, Value: value}
	f.arena.Retain(n)
	return n
}

// If's Alternate is nil when the form has no else-branch ("unspecified").
type If struct {
	base
	Test       Node
	Consequent Node
	Alternate  Node
}

func (f *Factory) NewIf(test, cons, alt Node) *If {
	n := &If{base: base{id: f.next()}, Test: test, Consequent: cons, Alternate: alt}
	f.arena.Retain(n)
	return n
}

// LetKind distinguishes let / let* / letrec, which share a shape but
// differ in scoping rules (spec.md §4.3).
type LetKind int

const (
	LetPlain LetKind = iota
	LetStar
	LetRec
)

type LetBinding struct {
	Name       string
	InternedID int
	Annotation TypeAnnotation
	Value      Node
	BindingID  int
}

type Let struct {
	base
	Kind     LetKind
	Bindings []*LetBinding
	Body     Node
	ScopeID  int
}

func (f *Factory) NewLet(kind LetKind, bindings []*LetBinding, body Node) *Let {
	n := &Let{base: base{id: f.next()}, Kind: kind, Bindings: bindings, Body: body}
	f.arena.Retain(n)
	return n
}

type Set struct {
	base
	Target *Identifier
	Value  Node
}

func (f *Factory) NewSet(target *Identifier, value Node) *Set {
	n := &Set{base: base{id: f.next()}, Target: target, Value: value}
	f.arena.Retain(n)
	return n
}

type Begin struct {
	base
	Exprs []Node
}

func (f *Factory) NewBegin(exprs []Node) *Begin {
	n := &Begin{base: base{id: f.next()}, Exprs: exprs}
	f.arena.Retain(n)
	return n
}

// Datum is the quoted-data tree (spec.md §4.2): reuses literal node
// shapes but symbols never resolve to bindings, and lists are explicit
// Pair/Nil chains rather than Call nodes.
type Datum interface {
	Node
	datumNode()
}

type (
	DatumInteger struct {
		base
		Value int64
	}
	DatumFloat struct {
		base
		Value float64
	}
	DatumBool struct {
		base
		Value bool
	}
	DatumString struct {
		base
		InternedID int
	}
	DatumSymbol struct {
		base
		InternedID int
		Name       string
	}
	DatumNil struct {
		base
	}
	DatumPair struct {
		base
		Car Datum
		Cdr Datum
	}
	// DatumVector is the supplemental #(...) quoted-datum form.
	DatumVector struct {
		base
		Elements []Datum
	}
)

func (*DatumInteger) datumNode() {}
func (*DatumFloat) datumNode()   {}
func (*DatumBool) datumNode()    {}
func (*DatumString) datumNode()  {}
func (*DatumSymbol) datumNode()  {}
func (*DatumNil) datumNode()     {}
func (*DatumPair) datumNode()    {}
func (*DatumVector) datumNode()  {}

func (f *Factory) NewDatumInteger(v int64) *DatumInteger {
	n := &DatumInteger{base: base{id: f.next()}, Value: v}
	f.arena.Retain(n)
	return n
}
func (f *Factory) NewDatumFloat(v float64) *DatumFloat {
	n := &DatumFloat{base: base{id: f.next()}, Value: v}
	f.arena.Retain(n)
	return n
}
func (f *Factory) NewDatumBool(v bool) *DatumBool {
	n := &DatumBool{base: base{id: f.next()}, Value: v}
	f.arena.Retain(n)
	return n
}
func (f *Factory) NewDatumString(id int) *DatumString {
	n := &DatumString{base: base{id: f.next()}, InternedID: id}
	f.arena.Retain(n)
	return n
}
func (f *Factory) NewDatumSymbol(id int, name string) *DatumSymbol {
	n := &DatumSymbol{base: base{id: f.next()}, InternedID: id, Name: name}
	f.arena.Retain(n)
	return n
}
func (f *Factory) NewDatumNil() *DatumNil {
	n := &DatumNil{base: base{id: f.next()}}
	f.arena.Retain(n)
	return n
}
func (f *Factory) NewDatumPair(car, cdr Datum) *DatumPair {
	n := &DatumPair{base: base{id: f.next()}, Car: car, Cdr: cdr}
	f.arena.Retain(n)
	return n
}
func (f *Factory) NewDatumVector(elements []Datum) *DatumVector {
	n := &DatumVector{base: base{id: f.next()}, Elements: elements}
	f.arena.Retain(n)
	return n
}

type Quote struct {
	base
	Datum Datum
}

func (f *Factory) NewQuote(d Datum) *Quote {
	n := &Quote{base: base{id: f.next()}, Datum: d}
	f.arena.Retain(n)
	return n
}

// BoolOpKind distinguishes And from Or; both share a shape.
type BoolOpKind int

const (
	BoolAnd BoolOpKind = iota
	BoolOr
)

type BoolOp struct {
	base
	Kind     BoolOpKind
	Operands []Node
}

func (f *Factory) NewBoolOp(kind BoolOpKind, operands []Node) *BoolOp {
	n := &BoolOp{base: base{id: f.next()}, Kind: kind, Operands: operands}
	f.arena.Retain(n)
	return n
}

type Call struct {
	base
	Callee Node
	Args   []Node
}

func (f *Factory) NewCall(callee Node, args []Node) *Call {
	n := &Call{base: base{id: f.next()}, Callee: callee, Args: args}
	f.arena.Retain(n)
	return n
}

// TypeDeclaration is a standalone `(: name (-> arg-types… ret-type))`
// form, consumed by the inferencer as the explicit signature of a later
// `define` with a matching name.
type TypeDeclaration struct {
	base
	Name       string
	InternedID int
	Signature  *FunctionAnnotation
}

func (f *Factory) NewTypeDeclaration(name string, internedID int, sig *FunctionAnnotation) *TypeDeclaration {
	n := &TypeDeclaration{base: base{id: f.next()}, Name: name, InternedID: internedID, Signature: sig}
	f.arena.Retain(n)
	return n
}

type Program struct {
	base
	Forms []Node
}

func (f *Factory) NewProgram(forms []Node) *Program {
	n := &Program{base: base{id: f.next()}, Forms: forms}
	f.arena.Retain(n)
	return n
}
