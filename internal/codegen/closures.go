package codegen

import (
	"fmt"
	"strings"

	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/types"
)

// The closure lowering algorithm (spec.md §4.5, §9): every lambda gets
// a struct holding one field per free binding and a lifted, type-erased
// function whose first two parameters are its own environment and the
// arena; a lambda's *value* is a small {fn, env} descriptor. Cyclic
// closure graphs (letrec-bound mutually recursive lambdas, and the
// top-level form sequence, which can forward-reference itself the same
// way) are handled by allocating every sibling's descriptor first and
// only filling in captured fields once every sibling descriptor exists
// — the two-phase procedure spec.md §9 calls for, simplified from the
// heuristic-laden sibling/composition special cases the original
// backend grew around the same problem.

func envStructName(lam *ast.Lambda) string  { return fmt.Sprintf("ClosureEnv_%d", lam.ID()) }
func lambdaFnName(lam *ast.Lambda) string   { return fmt.Sprintf("lambda_fn_%d", lam.ID()) }

// collectAndEmitClosures finds every lambda in the program (including
// ones nested inside other lambdas) and emits its environment struct,
// prototype, and definition, before any expression is lowered — a
// lambda's lifted function may call another lambda defined later in
// source order, so every prototype must exist up front.
func (g *Generator) collectAndEmitClosures(prog *ast.Program) {
	var lambdas []*ast.Lambda
	collectLambdas(prog, &lambdas)
	for _, lam := range lambdas {
		g.emitEnvStruct(lam)
	}
	for _, lam := range lambdas {
		g.emitLambdaPrototype(lam)
	}
	for _, lam := range lambdas {
		g.emitLambdaFunction(lam)
	}
}

func collectLambdas(n ast.Node, out *[]*ast.Lambda) {
	if n == nil {
		return
	}
	if lam, ok := n.(*ast.Lambda); ok {
		*out = append(*out, lam)
	}
	for _, c := range ast.Children(n) {
		collectLambdas(c, out)
	}
}

func (g *Generator) emitEnvStruct(lam *ast.Lambda) {
	name := envStructName(lam)
	fmt.Fprintf(&g.envStructs, "typedef struct %s {\n", name)
	for _, bid := range lam.FreeBindings {
		bd := g.binding(bid)
		ct := ctype(g.bindingTypes[bid])
		if bd != nil && bd.Boxed {
			fmt.Fprintf(&g.envStructs, "    %s* f%d; /* %s */\n", ct, bid, bd.Name)
		} else if bd != nil {
			fmt.Fprintf(&g.envStructs, "    %s f%d; /* %s */\n", ct, bid, bd.Name)
		} else {
			fmt.Fprintf(&g.envStructs, "    %s f%d;\n", ct, bid)
		}
	}
	if len(lam.FreeBindings) == 0 {
		g.envStructs.WriteString("    char _unused;\n")
	}
	fmt.Fprintf(&g.envStructs, "} %s;\n\n", name)
}

func (g *Generator) lambdaSignature(lam *ast.Lambda) (ret string, params []string, fn *types.Function) {
	fn, _ = g.typeOf(lam).(*types.Function)
	ret = "void*"
	if fn != nil {
		ret = ctype(fn.Return)
	}
	params = append(params, "void* _env", "Arena* arena")
	for i, p := range lam.Params {
		pt := "void*"
		if fn != nil && i < len(fn.Params) {
			pt = ctype(fn.Params[i])
		}
		params = append(params, fmt.Sprintf("%s p%d", pt, p.BindingID))
	}
	return ret, params, fn
}

func (g *Generator) emitLambdaPrototype(lam *ast.Lambda) {
	ret, params, _ := g.lambdaSignature(lam)
	fmt.Fprintf(&g.protos, "static %s %s(%s);\n", ret, lambdaFnName(lam), strings.Join(params, ", "))
}

func (g *Generator) emitLambdaFunction(lam *ast.Lambda) {
	ret, params, fn := g.lambdaSignature(lam)
	envT := envStructName(lam)
	fmt.Fprintf(&g.funcs, "static %s %s(%s) {\n", ret, lambdaFnName(lam), strings.Join(params, ", "))
	fmt.Fprintf(&g.funcs, "    %s* env = (%s*)_env;\n", envT, envT)

	ids := append(append([]int{}, lam.ParamBindings...), lam.FreeBindings...)
	newRefs := make(map[int]varRef, len(ids))
	for _, bid := range lam.FreeBindings {
		bd := g.binding(bid)
		newRefs[bid] = varRef{expr: fmt.Sprintf("env->f%d", bid), boxed: bd != nil && bd.Boxed, typ: g.bindingTypes[bid]}
	}
	for i, p := range lam.Params {
		pt := types.Type(types.TypeUnknown)
		if fn != nil && i < len(fn.Params) {
			pt = fn.Params[i]
		}
		bd := g.binding(p.BindingID)
		if bd != nil && bd.Boxed {
			newRefs[p.BindingID] = varRef{expr: fmt.Sprintf("v%d", p.BindingID), boxed: true, typ: pt}
		} else {
			newRefs[p.BindingID] = varRef{expr: fmt.Sprintf("p%d", p.BindingID), boxed: false, typ: pt}
		}
	}

	var bodyStr string
	g.withScope(ids, newRefs, func() {
		for _, p := range lam.Params {
			bd := g.binding(p.BindingID)
			if bd == nil || !bd.Boxed {
				continue
			}
			pt := types.Type(types.TypeUnknown)
			for i, pp := range lam.Params {
				if pp.BindingID == p.BindingID && fn != nil && i < len(fn.Params) {
					pt = fn.Params[i]
				}
			}
			ct := ctype(pt)
			fmt.Fprintf(&g.funcs, "    %s* v%d = (%s*)arena_alloc(arena, sizeof(%s)); *v%d = p%d;\n",
				ct, p.BindingID, ct, ct, p.BindingID, p.BindingID)
		}
		bodyStr = g.genExpr(lam.Body)
	})

	if ret == "void" {
		fmt.Fprintf(&g.funcs, "    (void)(%s);\n    return;\n", bodyStr)
	} else {
		fmt.Fprintf(&g.funcs, "    return (%s)(%s);\n", ret, bodyStr)
	}
	g.funcs.WriteString("}\n\n")
}

// withScope shadows ids with newRefs for the duration of fn, restoring
// whatever was previously mapped (or unmapping entirely) afterward.
// Binding ids are unique for the whole compilation, so this is only
// needed because the *same* id must resolve differently depending on
// whether we're generating code for its own defining scope or for a
// lambda that captures it through an environment field.
func (g *Generator) withScope(ids []int, newRefs map[int]varRef, fn func()) {
	type saved struct {
		ref     varRef
		existed bool
	}
	prior := make(map[int]saved, len(ids))
	for _, id := range ids {
		v, ok := g.vars[id]
		prior[id] = saved{ref: v, existed: ok}
	}
	for id, v := range newRefs {
		g.vars[id] = v
	}
	fn()
	for _, id := range ids {
		if s := prior[id]; s.existed {
			g.vars[id] = s.ref
		} else {
			delete(g.vars, id)
		}
	}
}

// envFieldValue is the expression stored into a captured field when a
// closure is constructed: the owning pointer itself for boxed bindings
// (so every capturing environment shares one heap cell), the plain
// value otherwise.
func (g *Generator) envFieldValue(bid int) string {
	bd := g.binding(bid)
	if bd != nil && bd.Boxed {
		if v, ok := g.vars[bid]; ok {
			return v.expr
		}
		return "0"
	}
	return g.readVar(bid)
}

// genLambdaValue lowers an ordinary (non-letrec-grouped) lambda literal
// to a self-contained expression: no cycle is possible here, since
// everything this lambda can capture was already bound by the time its
// value position is evaluated.
func (g *Generator) genLambdaValue(lam *ast.Lambda) string {
	envT := envStructName(lam)
	envVar := g.tempName()
	closVar := g.tempName()
	var b strings.Builder
	fmt.Fprintf(&b, "({ %s* %s = (%s*)arena_alloc(arena, sizeof(%s)); ", envT, envVar, envT, envT)
	for _, bid := range lam.FreeBindings {
		fmt.Fprintf(&b, "%s->f%d = (%s); ", envVar, bid, g.envFieldValue(bid))
	}
	fmt.Fprintf(&b, "Closure* %s = (Closure*)arena_alloc(arena, sizeof(Closure)); %s->fn = (void*)%s; %s->env = (void*)%s; %s; })",
		closVar, closVar, lambdaFnName(lam), closVar, envVar, closVar)
	return b.String()
}

// declareSlot pre-declares a binding's C storage with a zero value, for
// two-phase init groups: every sibling needs a name to be visible under
// before any of them are actually evaluated.
func (g *Generator) declareSlot(b *strings.Builder, id int, t types.Type, sourceName string) {
	bd := g.binding(id)
	ct := ctype(t)
	name := fmt.Sprintf("v%d", id)
	if bd != nil && bd.Boxed {
		fmt.Fprintf(b, "/* %s */ %s* %s = (%s*)arena_alloc(arena, sizeof(%s)); *%s = (%s)(%s); ", sourceName, ct, name, ct, ct, name, ct, zeroValue(t))
		g.vars[id] = varRef{expr: name, boxed: true, typ: t}
		return
	}
	fmt.Fprintf(b, "/* %s */ %s %s = (%s)(%s); ", sourceName, ct, name, ct, zeroValue(t))
	g.vars[id] = varRef{expr: name, boxed: false, typ: t}
}

func (g *Generator) emitClosureAlloc(b *strings.Builder, lam *ast.Lambda, id int) {
	envT := envStructName(lam)
	fmt.Fprintf(b, "%s; ", g.writeVar(id, "(Closure*)arena_alloc(arena, sizeof(Closure))"))
	fmt.Fprintf(b, "((Closure*)(%s))->env = (void*)arena_alloc(arena, sizeof(%s)); ", g.readVar(id), envT)
	fmt.Fprintf(b, "((Closure*)(%s))->fn = (void*)%s; ", g.readVar(id), lambdaFnName(lam))
}

func (g *Generator) emitClosureEnvFill(b *strings.Builder, lam *ast.Lambda, id int) {
	envT := envStructName(lam)
	for _, bid := range lam.FreeBindings {
		fmt.Fprintf(b, "((%s*)((Closure*)(%s))->env)->f%d = (%s); ", envT, g.readVar(id), bid, g.envFieldValue(bid))
	}
}

// twoPhaseInitDefines wires every top-level lambda-valued define as one
// cycle-safe group, since top-level defines may reference each other
// regardless of source order (spec.md §4.3's module-scope prescan).
func (g *Generator) twoPhaseInitDefines(forms []ast.Node, b *strings.Builder) {
	var defs []*ast.Define
	for _, f := range forms {
		if d, ok := f.(*ast.Define); ok {
			defs = append(defs, d)
		}
	}
	for _, d := range defs {
		g.mainBody.WriteString("    ")
		g.declareSlot(b, d.BindingID, g.bindingTypes[d.BindingID], d.Name)
		g.mainBody.WriteString("\n")
	}
	for _, d := range defs {
		if lam, ok := d.Value.(*ast.Lambda); ok {
			g.mainBody.WriteString("    ")
			g.emitClosureAlloc(b, lam, d.BindingID)
			g.mainBody.WriteString("\n")
		}
	}
	for _, d := range defs {
		if lam, ok := d.Value.(*ast.Lambda); ok {
			g.mainBody.WriteString("    ")
			g.emitClosureEnvFill(b, lam, d.BindingID)
			g.mainBody.WriteString("\n")
		}
	}
}

// twoPhaseInitLetBindings is the same procedure for an explicit
// (letrec) group.
func (g *Generator) twoPhaseInitLetBindings(bindings []*ast.LetBinding, b *strings.Builder) {
	for _, lb := range bindings {
		g.declareSlot(b, lb.BindingID, g.bindingTypes[lb.BindingID], lb.Name)
	}
	for _, lb := range bindings {
		if lam, ok := lb.Value.(*ast.Lambda); ok {
			g.emitClosureAlloc(b, lam, lb.BindingID)
		}
	}
	for _, lb := range bindings {
		if lam, ok := lb.Value.(*ast.Lambda); ok {
			g.emitClosureEnvFill(b, lam, lb.BindingID)
		}
	}
	for _, lb := range bindings {
		if _, ok := lb.Value.(*ast.Lambda); ok {
			continue
		}
		val := g.genExpr(lb.Value)
		fmt.Fprintf(b, "%s; ", g.writeVar(lb.BindingID, val))
	}
}
