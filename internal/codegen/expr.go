package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intern"
	"github.com/eskemec-lang/eskemec/internal/intrinsic"
	"github.com/eskemec-lang/eskemec/internal/types"
)

// genExpr lowers one expression node to a C expression. Every case
// returns a syntactically complete expression (parenthesized where
// needed) with no trailing semicolon; multi-statement forms use GCC
// statement expressions (`({ ...; value; })`), the same idiom the
// original backend reaches for around closure/string construction.
func (g *Generator) genExpr(n ast.Node) string {
	switch v := n.(type) {
	case *ast.IntegerLiteral:
		return strconv.FormatInt(v.Value, 10) + "LL"
	case *ast.FloatLiteral:
		return cFloatLiteral(v.Value)
	case *ast.BoolLiteral:
		if v.Value {
			return "true"
		}
		return "false"
	case *ast.StringLiteral:
		return "\"" + cEscape(g.strtab.Lookup(intern.ID(v.InternedID))) + "\""
	case *ast.CharLiteral:
		return "'" + cEscapeChar(v.CodePoint) + "'"

	case *ast.Identifier:
		if b := g.binding(v.BindingID); b != nil && b.IsIntrinsic {
			g.errorf(diag.CodeGenUnsupportedForm, v.Span(), "intrinsic '"+v.Name+"' used as a value outside of call position")
			return "0"
		}
		return g.readVar(v.BindingID)

	case *ast.Quote:
		return g.genDatum(v.Datum)

	case *ast.If:
		return g.genIf(v)
	case *ast.Lambda:
		return g.genLambdaValue(v)
	case *ast.Let:
		return g.genLet(v)
	case *ast.Set:
		return "((void)" + g.writeVar(v.Target.BindingID, g.genExpr(v.Value)) + ")"
	case *ast.Begin:
		return g.genBegin(v)
	case *ast.BoolOp:
		return g.genBoolOp(v)
	case *ast.Call:
		return g.genCall(v)

	case *ast.Erroneous:
		g.errorf(diag.CodeGenUnsupportedForm, v.Span(), "erroneous node reached code generation: "+v.Reason)
		return "0"

	default:
		g.errorf(diag.CodeGenUnsupportedForm, n.Span(), fmt.Sprintf("no lowering for %T", n))
		return "0"
	}
}

func cFloatLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func cEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cEscapeChar(r rune) string {
	switch r {
	case '\\':
		return `\\`
	case '\'':
		return `\'`
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	default:
		return string(r)
	}
}

func (g *Generator) genIf(v *ast.If) string {
	t := ctype(g.typeOf(v))
	test := g.genExpr(v.Test)
	cons := g.genExpr(v.Consequent)
	if v.Alternate == nil {
		if t == "void" {
			return fmt.Sprintf("((%s) ? (void)(%s) : (void)0)", test, cons)
		}
		return fmt.Sprintf("((%s) ? (%s)(%s) : (%s)0)", test, t, cons, t)
	}
	alt := g.genExpr(v.Alternate)
	if t == "void" {
		return fmt.Sprintf("((%s) ? (void)(%s) : (void)(%s))", test, cons, alt)
	}
	return fmt.Sprintf("((%s) ? (%s)(%s) : (%s)(%s))", test, t, cons, t, alt)
}

func (g *Generator) genBegin(v *ast.Begin) string {
	if len(v.Exprs) == 0 {
		return "((void)0)"
	}
	parts := make([]string, len(v.Exprs))
	for i, e := range v.Exprs {
		parts[i] = g.genExpr(e)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (g *Generator) looksBool(t types.Type) bool {
	gr, ok := t.(*types.Ground)
	return ok && gr.Kind == types.Bool
}

func (g *Generator) genBoolOp(v *ast.BoolOp) string {
	if len(v.Operands) == 0 {
		if v.Kind == ast.BoolAnd {
			return "true"
		}
		return "false"
	}
	if g.looksBool(g.typeOf(v)) {
		op := " && "
		if v.Kind == ast.BoolOr {
			op = " || "
		}
		parts := make([]string, len(v.Operands))
		for i, o := range v.Operands {
			parts[i] = "(" + g.genExpr(o) + ")"
		}
		return "(" + strings.Join(parts, op) + ")"
	}

	// Value-preserving short circuit: and/or yield the deciding operand's
	// value, not just a boolean, when no operand is statically bool.
	t := ctype(g.typeOf(v))
	var b strings.Builder
	b.WriteString("({ ")
	names := make([]string, len(v.Operands))
	for i, o := range v.Operands {
		names[i] = g.tempName()
		fmt.Fprintf(&b, "%s %s = (%s); ", t, names[i], g.genExpr(o))
	}
	expr := names[len(names)-1]
	for i := len(names) - 2; i >= 0; i-- {
		if v.Kind == ast.BoolAnd {
			expr = fmt.Sprintf("((%s) ? (%s) : (%s))", names[i], expr, names[i])
		} else {
			expr = fmt.Sprintf("((%s) ? (%s) : (%s))", names[i], names[i], expr)
		}
	}
	fmt.Fprintf(&b, "%s; })", expr)
	return b.String()
}

// genLet lowers let/let*/letrec uniformly: since the generator tracks
// binding -> C-variable mapping itself rather than relying on C block
// scoping, the three kinds differ only in *when* each binding's name
// becomes visible to genExpr, not in the C shape emitted.
func (g *Generator) genLet(v *ast.Let) string {
	var b strings.Builder
	b.WriteString("({ ")

	switch v.Kind {
	case ast.LetPlain:
		values := make([]string, len(v.Bindings))
		for i, lb := range v.Bindings {
			values[i] = g.genExpr(lb.Value) // sees only the outer scope
		}
		for i, lb := range v.Bindings {
			g.declareLocal(&b, lb.BindingID, values[i], lb.Name)
		}

	case ast.LetStar:
		for _, lb := range v.Bindings {
			val := g.genExpr(lb.Value) // sees every preceding binding
			g.declareLocal(&b, lb.BindingID, val, lb.Name)
		}

	case ast.LetRec:
		g.twoPhaseInitLetBindings(v.Bindings, &b)
	}

	b.WriteString(g.genExpr(v.Body))
	b.WriteString("; })")
	return b.String()
}

// declareLocal registers id as an ordinary (non-boxed) local unless the
// binding resolver flagged it boxed, in which case it gets a heap cell
// instead so every capturing environment can share it.
func (g *Generator) declareLocal(b *strings.Builder, id int, valueExpr, sourceName string) {
	bd := g.binding(id)
	t := g.bindingTypes[id]
	if t == nil {
		t = types.TypeUnknown
	}
	ct := ctype(t)
	name := fmt.Sprintf("v%d", id)
	if bd != nil && bd.Boxed {
		fmt.Fprintf(b, "/* %s */ %s* %s = (%s*)arena_alloc(arena, sizeof(%s)); *%s = (%s); ", sourceName, ct, name, ct, ct, name, valueExpr)
		g.vars[id] = varRef{expr: name, boxed: true, typ: t}
		return
	}
	fmt.Fprintf(b, "/* %s */ %s %s = (%s); ", sourceName, ct, name, valueExpr)
	g.vars[id] = varRef{expr: name, boxed: false, typ: t}
}

func (g *Generator) genDatum(d ast.Datum) string {
	switch v := d.(type) {
	case *ast.DatumInteger:
		return strconv.FormatInt(v.Value, 10) + "LL"
	case *ast.DatumFloat:
		return cFloatLiteral(v.Value)
	case *ast.DatumBool:
		if v.Value {
			return "true"
		}
		return "false"
	case *ast.DatumString:
		return "\"" + cEscape(g.strtab.Lookup(intern.ID(v.InternedID))) + "\""
	case *ast.DatumSymbol:
		return "\"" + cEscape(v.Name) + "\""
	case *ast.DatumNil:
		return "0"
	case *ast.DatumVector:
		return g.genDatumVector(v)
	default:
		g.errorf(diag.CodeGenUnsupportedForm, d.Span(), "quoted pair/list data has no runtime representation")
		return "0"
	}
}

// genDatumVector lowers a quoted #(...) of numeric data the same way
// the `vector` intrinsic call lowers its arguments, since both produce
// the same runtime VectorF.
func (g *Generator) genDatumVector(v *ast.DatumVector) string {
	elems := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		elems[i] = g.genDatum(e)
	}
	return fmt.Sprintf("vector_f_create_from_array(arena, (float[]){%s}, %d)", strings.Join(elems, ", "), len(elems))
}

func (g *Generator) genCall(v *ast.Call) string {
	name := ""
	if id, ok := v.Callee.(*ast.Identifier); ok {
		name = id.Name
	}
	if spec, ok := intrinsic.Lookup(name); ok {
		if b := g.binding(v.Callee.(*ast.Identifier).BindingID); b != nil && b.IsIntrinsic {
			return g.genIntrinsicCall(v, spec)
		}
	}
	return g.genGeneralCall(v)
}

// genGeneralCall lowers a call through a Closure value: the callee's
// static Function type (from the type map) tells us exactly which
// signature to cast fn to, so the generic void* env parameter is the
// only type-erased part of the call.
func (g *Generator) genGeneralCall(v *ast.Call) string {
	calleeExpr := g.genExpr(v.Callee)
	fnType, ok := g.typeOf(v.Callee).(*types.Function)
	if !ok {
		g.errorf(diag.CodeGenUnresolvedType, v.Span(), "call target has no resolved function type")
		return "0"
	}
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		args[i] = g.genExpr(a)
	}
	tmp := g.tempName()
	ptrType := closureFnPtrType(fnType)
	var b strings.Builder
	fmt.Fprintf(&b, "({ Closure* %s = (%s); ((%s)%s->fn)(%s->env, arena", tmp, calleeExpr, ptrType, tmp, tmp)
	for _, a := range args {
		b.WriteString(", " + a)
	}
	b.WriteString("); })")
	return b.String()
}

// closureFnPtrType is the cast applied at a call site before invoking
// a closure's lifted function: every lifted function takes its own
// type-erased environment and the caller's arena ahead of its declared
// parameters (the arena has to come from somewhere, since a lifted
// function has no enclosing scope of its own to read one from).
func closureFnPtrType(fn *types.Function) string {
	ret := ctype(fn.Return)
	params := make([]string, 0, len(fn.Params)+2)
	params = append(params, "void*", "Arena*")
	for _, p := range fn.Params {
		params = append(params, ctype(p))
	}
	return fmt.Sprintf("%s (*)(%s)", ret, strings.Join(params, ", "))
}
