package binding

import (
	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intrinsic"
	"github.com/eskemec-lang/eskemec/internal/lexer"
)

// Resolver runs the two passes of spec.md §4.3 over a parsed Program.
type Resolver struct {
	sink diag.Sink

	nextScopeID   int
	nextBindingID int

	table   *Table
	lambdas []*ast.Lambda
}

// New creates a Resolver reporting to sink.
func New(sink diag.Sink) *Resolver {
	return &Resolver{
		sink: sink,
		table: &Table{
			Scopes:   make(map[int]*Scope),
			Bindings: make(map[int]*Binding),
		},
	}
}

// Resolve runs scope construction, binding introduction, and capture
// analysis over prog, returning the resulting scope/binding table.
func (r *Resolver) Resolve(prog *ast.Program) *Table {
	module := r.newScope(nil, prog.ID(), ScopeModule)
	r.table.Module = module

	// Intrinsics (spec.md §4.5's built-in operator table) are ordinary
	// module-scope bindings by name; the special handling lives entirely
	// in the inferencer and code generator's by-name dispatch, not here.
	for _, name := range intrinsic.Names() {
		b := r.newBinding(module, name, prog.ID(), false)
		b.IsIntrinsic = true
		module.define(b)
	}

	// Top-level defines are introduced before any value is visited, so
	// mutual top-level recursion resolves (spec.md §4.3).
	for _, form := range prog.Forms {
		if def, ok := form.(*ast.Define); ok {
			b := r.newBinding(module, def.Name, def.ID(), false)
			module.define(b)
			def.BindingID = b.ID
		}
	}

	for _, form := range prog.Forms {
		r.resolveNode(form, module)
	}

	r.analyzeCaptures()
	r.computeBoxed()
	return r.table
}

func (r *Resolver) newScope(parent *Scope, introducing ast.NodeID, kind ScopeKind) *Scope {
	id := r.nextScopeID
	r.nextScopeID++
	s := newScope(id, parent, introducing, kind)
	r.table.Scopes[id] = s
	return s
}

func (r *Resolver) newBinding(scope *Scope, name string, definingNodeID ast.NodeID, parameter bool) *Binding {
	id := r.nextBindingID
	r.nextBindingID++
	b := &Binding{ID: id, ScopeID: scope.ID, Name: name, Parameter: parameter, DefiningNodeID: definingNodeID, scope: scope}
	r.table.Bindings[id] = b
	return b
}

func toDiagSpan(s lexer.Span) diag.Span {
	return diag.Span{Filename: s.Filename, Line: s.Line, Column: s.Column, Start: s.ByteOffset, End: s.ByteOffset + s.Length}
}

func (r *Resolver) errorf(code diag.Code, span lexer.Span, message string) {
	r.sink.Report(diag.Diagnostic{
		Stage:    diag.StageBinding,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  message,
		Span:     toDiagSpan(span),
	})
}

func (r *Resolver) resolveNode(n ast.Node, scope *Scope) {
	if n == nil {
		return
	}
	switch v := n.(type) {
	case *ast.Identifier:
		b := scope.lookup(v.Name)
		if b == nil {
			r.errorf(diag.CodeBindingUnresolvedIdentifier, v.Span(), "unresolved identifier: "+v.Name)
			v.BindingID = -1
			return
		}
		v.BindingID = b.ID

	case *ast.Define:
		b := scope.lookupLocal(v.Name)
		if b == nil {
			b = r.newBinding(scope, v.Name, v.ID(), false)
			scope.define(b)
		}
		v.BindingID = b.ID
		r.resolveNode(v.Value, scope)

	case *ast.Lambda:
		r.resolveLambda(v, scope)

	case *ast.Let:
		r.resolveLet(v, scope)

	case *ast.If:
		r.resolveNode(v.Test, scope)
		r.resolveNode(v.Consequent, scope)
		r.resolveNode(v.Alternate, scope)

	case *ast.Set:
		b := scope.lookup(v.Target.Name)
		if b == nil {
			r.errorf(diag.CodeBindingInvalidAssignment, v.Target.Span(), "unresolved assignment target: "+v.Target.Name)
			v.Target.BindingID = -1
		} else {
			v.Target.BindingID = b.ID
			b.Mutable = true
		}
		r.resolveNode(v.Value, scope)

	case *ast.Begin:
		for _, e := range v.Exprs {
			r.resolveNode(e, scope)
		}

	case *ast.BoolOp:
		for _, o := range v.Operands {
			r.resolveNode(o, scope)
		}

	case *ast.Call:
		r.resolveNode(v.Callee, scope)
		for _, a := range v.Args {
			r.resolveNode(a, scope)
		}

	case *ast.Quote, *ast.TypeDeclaration, *ast.Erroneous,
		*ast.IntegerLiteral, *ast.FloatLiteral, *ast.BoolLiteral,
		*ast.StringLiteral, *ast.CharLiteral:
		// Leaves with no identifiers to resolve.
	}
}

func (r *Resolver) resolveLambda(lam *ast.Lambda, outer *Scope) {
	lamScope := r.newScope(outer, lam.ID(), ScopeLambda)
	lam.IntroducedScope = lamScope.ID

	for _, param := range lam.Params {
		if lamScope.lookupLocal(param.Name) != nil {
			r.errorf(diag.CodeBindingDuplicateParameter, lam.Span(), "duplicate parameter: "+param.Name)
		}
		pb := r.newBinding(lamScope, param.Name, lam.ID(), true)
		lamScope.define(pb)
		param.BindingID = pb.ID
		lam.ParamBindings = append(lam.ParamBindings, pb.ID)
	}

	r.resolveNode(lam.Body, lamScope)
	r.lambdas = append(r.lambdas, lam)
}

func letScopeKind(kind ast.LetKind) ScopeKind {
	if kind == ast.LetRec {
		return ScopeLetRec
	}
	return ScopeLet
}

func (r *Resolver) resolveLet(let *ast.Let, outer *Scope) {
	newScope := r.newScope(outer, let.ID(), letScopeKind(let.Kind))
	let.ScopeID = newScope.ID

	switch let.Kind {
	case ast.LetPlain:
		// Initializers see only the enclosing scope; no self/sibling
		// reference (spec.md §4.3).
		for _, binding := range let.Bindings {
			r.resolveNode(binding.Value, outer)
		}
		for _, binding := range let.Bindings {
			b := r.newBinding(newScope, binding.Name, let.ID(), false)
			newScope.define(b)
			binding.BindingID = b.ID
		}

	case ast.LetStar:
		// Each initializer sees all preceding bindings, introduced one
		// at a time into the same scope.
		for _, binding := range let.Bindings {
			r.resolveNode(binding.Value, newScope)
			b := r.newBinding(newScope, binding.Name, let.ID(), false)
			newScope.define(b)
			binding.BindingID = b.ID
		}

	case ast.LetRec:
		bs := make([]*Binding, len(let.Bindings))
		for i, binding := range let.Bindings {
			b := r.newBinding(newScope, binding.Name, let.ID(), false)
			b.beingInitialized = true
			newScope.define(b)
			binding.BindingID = b.ID
			bs[i] = b
		}
		for i, binding := range let.Bindings {
			r.resolveNode(binding.Value, newScope)
			bs[i].beingInitialized = false
		}
	}

	r.resolveNode(let.Body, newScope)
}
