package types

import (
	"fmt"

	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intrinsic"
	"github.com/eskemec-lang/eskemec/internal/lexer"
)

// TypeMap is the inferencer's output: every expression node's solved
// type (spec.md §3).
type TypeMap map[ast.NodeID]Type

// Inferencer runs constraint generation and solving over a resolved
// AST (spec.md §4.4). Binding types are looked up purely by the
// BindingID the resolver already stamped on Identifier/Parameter/
// LetBinding nodes; intrinsic dispatch is purely by identifier name
// (spec.md §4.5's "if the callee is an identifier matching a built-in
// operator table"), so this package has no dependency on
// internal/binding.
type Inferencer struct {
	sink diag.Sink

	bindingType map[int]Type
	nodeTypes   map[ast.NodeID]Type
	nodeSpans   map[ast.NodeID]lexer.Span

	subst   map[int]Type
	nextVar int
}

// New creates an Inferencer reporting to sink.
func New(sink diag.Sink) *Inferencer {
	return &Inferencer{
		sink:        sink,
		bindingType: make(map[int]Type),
		nodeTypes:   make(map[ast.NodeID]Type),
		nodeSpans:   make(map[ast.NodeID]lexer.Span),
		subst:       make(map[int]Type),
	}
}

// Infer runs the full procedure of spec.md §4.4 steps 1-5 and returns
// the solved type map; every remaining unbound variable is widened to
// Unknown with a low-severity diagnostic.
func (inf *Inferencer) Infer(prog *ast.Program) TypeMap {
	for _, form := range prog.Forms {
		inf.visit(form)
	}
	result := make(TypeMap, len(inf.nodeTypes))
	for id, t := range inf.nodeTypes {
		result[id] = inf.finalize(t, inf.nodeSpans[id])
	}
	return result
}

func (inf *Inferencer) fresh() Type {
	id := inf.nextVar
	inf.nextVar++
	return &Var{ID: id}
}

func (inf *Inferencer) record(n ast.Node, t Type) Type {
	inf.nodeTypes[n.ID()] = t
	inf.nodeSpans[n.ID()] = n.Span()
	return t
}

// bindingTypeFor returns the Type associated with a binding id,
// creating a fresh variable on first reference. Since every reference
// to the same binding id (self-recursive or forward) goes through
// this same lazily-populated map, mutual and self recursion resolve
// without a separate pre-seeding pass.
func (inf *Inferencer) bindingTypeFor(id int) Type {
	if id < 0 {
		return TypeUnknown
	}
	if t, ok := inf.bindingType[id]; ok {
		return t
	}
	t := inf.fresh()
	inf.bindingType[id] = t
	return t
}

func toDiagSpan(s lexer.Span) diag.Span {
	return diag.Span{Filename: s.Filename, Line: s.Line, Column: s.Column, Start: s.ByteOffset, End: s.ByteOffset + s.Length}
}

func (inf *Inferencer) errorf(code diag.Code, span lexer.Span, message string) {
	inf.sink.Report(diag.Diagnostic{Stage: diag.StageTypes, Severity: diag.SeverityError, Code: code, Message: message, Span: toDiagSpan(span)})
}

func (inf *Inferencer) warnf(code diag.Code, span lexer.Span, message string) {
	inf.sink.Report(diag.Diagnostic{Stage: diag.StageTypes, Severity: diag.SeverityWarning, Code: code, Message: message, Span: toDiagSpan(span)})
}

func (inf *Inferencer) unify(a, b Type, span lexer.Span) {
	err := Unify(a, b, inf.subst)
	if err == nil {
		return
	}
	switch e := err.(type) {
	case *MismatchError:
		inf.errorf(diag.CodeTypeMismatch, span, fmt.Sprintf("type mismatch: %s vs %s", Substitute(e.Left, inf.subst), Substitute(e.Right, inf.subst)))
	case *OccursError:
		inf.errorf(diag.CodeTypeOccursCheck, span, "infinite type: "+e.In.String())
	default:
		inf.errorf(diag.CodeTypeMismatch, span, err.Error())
	}
}

func (inf *Inferencer) finalize(t Type, span lexer.Span) Type {
	r := Substitute(t, inf.subst)
	switch v := r.(type) {
	case *Var:
		inf.warnf(diag.CodeTypeAmbiguous, span, "type left unresolved after inference, widened to unknown")
		return TypeUnknown
	case *Pair:
		return &Pair{Car: inf.finalize(v.Car, span), Cdr: inf.finalize(v.Cdr, span)}
	case *Vector:
		return &Vector{Elem: inf.finalize(v.Elem, span)}
	case *Function:
		params := make([]Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = inf.finalize(p, span)
		}
		return &Function{Params: params, Return: inf.finalize(v.Return, span)}
	default:
		return r
	}
}

func identifierName(n ast.Node) string {
	if id, ok := n.(*ast.Identifier); ok {
		return id.Name
	}
	return ""
}

func (inf *Inferencer) visit(n ast.Node) Type {
	if n == nil {
		return TypeVoid
	}
	switch v := n.(type) {
	case *ast.IntegerLiteral:
		return inf.record(v, TypeInteger)
	case *ast.FloatLiteral:
		return inf.record(v, TypeFloat)
	case *ast.BoolLiteral:
		return inf.record(v, TypeBool)
	case *ast.StringLiteral:
		return inf.record(v, TypeString)
	case *ast.CharLiteral:
		return inf.record(v, TypeChar)

	case *ast.Identifier:
		return inf.record(v, inf.bindingTypeFor(v.BindingID))

	case *ast.Quote:
		return inf.record(v, inf.datumType(v.Datum))

	case *ast.If:
		return inf.visitIf(v)
	case *ast.Lambda:
		return inf.visitLambda(v)
	case *ast.Define:
		return inf.visitDefine(v)
	case *ast.Let:
		return inf.visitLet(v)
	case *ast.Set:
		return inf.visitSet(v)
	case *ast.Begin:
		return inf.visitBegin(v)
	case *ast.BoolOp:
		return inf.visitBoolOp(v)
	case *ast.Call:
		return inf.visitCall(v)

	case *ast.Erroneous:
		return inf.record(v, TypeUnknown)
	case *ast.TypeDeclaration:
		return TypeVoid

	default:
		return TypeVoid
	}
}

func (inf *Inferencer) visitIf(v *ast.If) Type {
	tt := inf.visit(v.Test)
	inf.unify(tt, TypeBool, v.Test.Span())

	ct := inf.visit(v.Consequent)
	t := ct
	if v.Alternate != nil {
		at := inf.visit(v.Alternate)
		inf.unify(ct, at, v.Span())
	}
	return inf.record(v, t)
}

func (inf *Inferencer) visitLambda(v *ast.Lambda) Type {
	paramTypes := make([]Type, len(v.Params))
	for i, p := range v.Params {
		var pt Type
		if p.Annotation != nil {
			pt = FromAnnotation(p.Annotation)
			inf.bindingType[p.BindingID] = pt
		} else {
			pt = inf.bindingTypeFor(p.BindingID)
		}
		paramTypes[i] = pt
	}

	bodyType := inf.visit(v.Body)
	if v.ReturnAnnotation != nil {
		rt := FromAnnotation(v.ReturnAnnotation)
		inf.unify(rt, bodyType, v.Span())
		bodyType = rt
	}

	return inf.record(v, &Function{Params: paramTypes, Return: bodyType})
}

func (inf *Inferencer) visitDefine(v *ast.Define) Type {
	bt := inf.bindingTypeFor(v.BindingID)
	if v.Declared != nil {
		inf.unify(bt, FromAnnotation(v.Declared), v.Span())
	}
	vt := inf.visit(v.Value)
	inf.unify(bt, vt, v.Span())
	return inf.record(v, TypeVoid)
}

func (inf *Inferencer) visitLet(v *ast.Let) Type {
	for _, lb := range v.Bindings {
		var bt Type
		if lb.Annotation != nil {
			bt = FromAnnotation(lb.Annotation)
			inf.bindingType[lb.BindingID] = bt
		} else {
			bt = inf.bindingTypeFor(lb.BindingID)
		}
		vt := inf.visit(lb.Value)
		inf.unify(bt, vt, lb.Value.Span())
	}
	bodyT := inf.visit(v.Body)
	return inf.record(v, bodyT)
}

func (inf *Inferencer) visitSet(v *ast.Set) Type {
	bt := inf.bindingTypeFor(v.Target.BindingID)
	inf.record(v.Target, bt)
	vt := inf.visit(v.Value)
	// set! preserves the binding's established type (DESIGN.md open
	// question decision 3): a later assignment must unify, not widen.
	inf.unify(bt, vt, v.Span())
	return inf.record(v, TypeVoid)
}

func (inf *Inferencer) visitBegin(v *ast.Begin) Type {
	last := Type(TypeVoid)
	for _, e := range v.Exprs {
		last = inf.visit(e)
	}
	return inf.record(v, last)
}

func (inf *Inferencer) looksBool(t Type) bool {
	g, ok := Substitute(t, inf.subst).(*Ground)
	return ok && g.Kind == Bool
}

func (inf *Inferencer) visitBoolOp(v *ast.BoolOp) Type {
	if len(v.Operands) == 0 {
		return inf.record(v, TypeBool)
	}
	opTypes := make([]Type, len(v.Operands))
	hasBool := false
	for i, o := range v.Operands {
		opTypes[i] = inf.visit(o)
		if inf.looksBool(opTypes[i]) {
			hasBool = true
		}
	}
	var t Type
	if hasBool {
		t = TypeBool
	} else {
		t = opTypes[0]
		for _, ot := range opTypes[1:] {
			inf.unify(t, ot, v.Span())
		}
	}
	return inf.record(v, t)
}

func (inf *Inferencer) visitCall(v *ast.Call) Type {
	calleeType := inf.visit(v.Callee)
	name := identifierName(v.Callee)

	if spec, ok := intrinsic.Lookup(name); ok {
		return inf.visitIntrinsicCall(v, spec)
	}

	argTypes := make([]Type, len(v.Args))
	for i, a := range v.Args {
		argTypes[i] = inf.visit(a)
	}
	resultVar := inf.fresh()
	inf.unify(calleeType, &Function{Params: argTypes, Return: resultVar}, v.Span())
	return inf.record(v, resultVar)
}

func (inf *Inferencer) visitIntrinsicCall(v *ast.Call, spec intrinsic.Spec) Type {
	argTypes := make([]Type, len(v.Args))
	for i, a := range v.Args {
		argTypes[i] = inf.visit(a)
	}
	name := identifierName(v.Callee)

	switch spec.Category {
	case intrinsic.Arithmetic:
		return inf.record(v, inf.arithmeticResult(name, argTypes, v.Span()))
	case intrinsic.Comparison:
		common := Type(TypeUnknown)
		if len(argTypes) > 0 {
			common = argTypes[0]
			for _, t := range argTypes[1:] {
				inf.unify(common, t, v.Span())
			}
		}
		_ = common
		return inf.record(v, TypeBool)
	case intrinsic.Vector:
		if intrinsic.VectorScalarResult(name) {
			return inf.record(v, TypeFloat)
		}
		return inf.record(v, &Vector{Elem: TypeFloat})
	case intrinsic.Autodiff:
		return inf.record(v, autodiffResult(name))
	case intrinsic.SchemeCompat:
		return inf.record(v, schemeCompatResult(name))
	default:
		return inf.record(v, TypeUnknown)
	}
}

// arithmeticResult implements the integer/float promotion rule of
// spec.md §4.4: float if any operand is float, else integer, including
// for `/` (the spec's parenthetical restates the same rule for
// division rather than carving out an always-float exception).
func (inf *Inferencer) arithmeticResult(name string, argTypes []Type, span lexer.Span) Type {
	anyFloat := false
	for _, t := range argTypes {
		switch g := Substitute(t, inf.subst).(type) {
		case *Ground:
			if g.Kind == Float {
				anyFloat = true
			} else if g.Kind != Integer {
				inf.errorf(diag.CodeTypeMismatch, span, "non-numeric operand to "+name)
			}
		case *Unknown:
			// Gradual: an unknown operand neither confirms nor denies
			// float promotion.
		}
	}
	if anyFloat {
		return TypeFloat
	}
	return TypeInteger
}

func autodiffResult(name string) Type {
	switch name {
	case "gradient", "curl", "autodiff-forward-gradient", "autodiff-reverse-gradient":
		return &Vector{Elem: TypeFloat}
	case "divergence", "laplacian":
		return TypeFloat
	case "autodiff-jacobian", "autodiff-hessian":
		return &Matrix{Elem: TypeFloat}
	default: // autodiff-forward, autodiff-reverse, derivative
		return TypeFloat
	}
}

func schemeCompatResult(name string) Type {
	switch name {
	case "display", "printf", "newline":
		return TypeVoid
	case "string-append", "number->string":
		return TypeString
	default:
		return TypeUnknown
	}
}

func (inf *Inferencer) datumType(d ast.Datum) Type {
	switch v := d.(type) {
	case *ast.DatumInteger:
		return TypeInteger
	case *ast.DatumFloat:
		return TypeFloat
	case *ast.DatumBool:
		return TypeBool
	case *ast.DatumString:
		return TypeString
	case *ast.DatumSymbol:
		return TypeSymbol
	case *ast.DatumNil:
		return TypeUnknown
	case *ast.DatumPair:
		return &Pair{Car: inf.datumType(v.Car), Cdr: inf.datumType(v.Cdr)}
	case *ast.DatumVector:
		if len(v.Elements) == 0 {
			return &Vector{Elem: TypeUnknown}
		}
		return &Vector{Elem: inf.datumType(v.Elements[0])}
	default:
		return TypeUnknown
	}
}
