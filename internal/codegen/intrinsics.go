package codegen

import (
	"fmt"
	"strings"

	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intrinsic"
	"github.com/eskemec-lang/eskemec/internal/types"
)

// genIntrinsicCall lowers a call to a name the binding resolver seeded
// as a built-in operator (spec.md §4.5): these bypass the general
// closure-call convention entirely and go straight to the runtime.
func (g *Generator) genIntrinsicCall(v *ast.Call, spec intrinsic.Spec) string {
	name := v.Callee.(*ast.Identifier).Name
	switch spec.Category {
	case intrinsic.Arithmetic:
		return g.genArithmetic(v, name)
	case intrinsic.Comparison:
		return g.genComparison(v, name)
	case intrinsic.Vector:
		return g.genVector(v, name)
	case intrinsic.Autodiff:
		return g.genAutodiff(v, name)
	case intrinsic.SchemeCompat:
		return g.genSchemeCompat(v, name)
	default:
		g.errorf(diag.CodeGenUnsupportedForm, v.Span(), "unrecognized intrinsic category for "+name)
		return "0"
	}
}

// genArithmetic left-folds the n-ary operator, casting the whole
// expression to the statically solved result type (the inferencer's
// integer/float promotion rule already decided int64_t vs double).
func (g *Generator) genArithmetic(v *ast.Call, name string) string {
	rt := ctype(g.typeOf(v))
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		args[i] = g.genExpr(a)
	}
	switch name {
	case "+":
		if len(args) == 0 {
			return "(" + rt + ")0"
		}
		return "(" + rt + ")(" + strings.Join(args, " + ") + ")"
	case "*":
		if len(args) == 0 {
			return "(" + rt + ")1"
		}
		return "(" + rt + ")(" + strings.Join(args, " * ") + ")"
	case "-":
		if len(args) == 1 {
			return "(" + rt + ")(-(" + args[0] + "))"
		}
		return "(" + rt + ")(" + strings.Join(args, " - ") + ")"
	case "/":
		if len(args) == 1 {
			return "(" + rt + ")(1.0 / (" + args[0] + "))"
		}
		return "(" + rt + ")(" + strings.Join(args, " / ") + ")"
	default:
		g.errorf(diag.CodeGenUnsupportedForm, v.Span(), "unhandled arithmetic intrinsic "+name)
		return "0"
	}
}

// genComparison chains an n-ary comparison into pairwise conjuncts
// (a < b < c means a < b && b < c), binding each operand to a temp
// once so a repeated middle operand isn't evaluated twice.
func (g *Generator) genComparison(v *ast.Call, name string) string {
	if len(v.Args) < 2 {
		return "true"
	}
	var b strings.Builder
	b.WriteString("({ ")
	names := make([]string, len(v.Args))
	for i, a := range v.Args {
		t := ctype(g.typeOf(a))
		names[i] = g.tempName()
		fmt.Fprintf(&b, "%s %s = (%s); ", t, names[i], g.genExpr(a))
	}
	parts := make([]string, 0, len(names)-1)
	for i := 0; i+1 < len(names); i++ {
		parts = append(parts, fmt.Sprintf("(%s %s %s)", names[i], name, names[i+1]))
	}
	fmt.Fprintf(&b, "%s; })", strings.Join(parts, " && "))
	return b.String()
}

// genVector lowers the vector.h-backed operators. VectorF is treated
// as fully opaque: even vector-ref goes through vector_f_get rather
// than a field access, since nothing in the runtime contract exposes
// VectorF's layout.
func (g *Generator) genVector(v *ast.Call, name string) string {
	switch name {
	case "vector":
		elems := make([]string, len(v.Args))
		for i, a := range v.Args {
			elems[i] = "(float)(" + g.genExpr(a) + ")"
		}
		return fmt.Sprintf("vector_f_create_from_array(arena, (float[]){%s}, %d)", strings.Join(elems, ", "), len(elems))
	case "v+":
		return fmt.Sprintf("vector_f_add(arena, %s, %s)", g.genExpr(v.Args[0]), g.genExpr(v.Args[1]))
	case "v-":
		return fmt.Sprintf("vector_f_sub(arena, %s, %s)", g.genExpr(v.Args[0]), g.genExpr(v.Args[1]))
	case "v*":
		return fmt.Sprintf("vector_f_mul_scalar(arena, %s, (float)(%s))", g.genExpr(v.Args[0]), g.genExpr(v.Args[1]))
	case "dot":
		return fmt.Sprintf("(double)vector_f_dot(%s, %s)", g.genExpr(v.Args[0]), g.genExpr(v.Args[1]))
	case "cross":
		return fmt.Sprintf("vector_f_cross(arena, %s, %s)", g.genExpr(v.Args[0]), g.genExpr(v.Args[1]))
	case "norm":
		return fmt.Sprintf("(double)vector_f_magnitude(%s)", g.genExpr(v.Args[0]))
	case "vector-ref":
		return fmt.Sprintf("(double)vector_f_get(%s, (size_t)(%s))", g.genExpr(v.Args[0]), g.genExpr(v.Args[1]))
	default:
		g.errorf(diag.CodeGenUnsupportedForm, v.Span(), "unhandled vector intrinsic "+name)
		return "0"
	}
}

// genTrampoline emits the non-reentrant global-slot/wrapper pair
// bridging a Scheme closure into one of the runtime's raw C function
// pointer parameters: the wrapper is file-scope static (so it can be
// passed where a bare function pointer is expected) and reads the
// closure to call, and the arena to call it with, out of globals the
// call site sets immediately before invoking the runtime function. Not
// reentrant by construction — a runtime entry point must finish using
// the pointer it was given before anything reassigns the slot, which
// holds because none of the compute_* entry points are themselves
// asynchronous or reentrant.
func (g *Generator) genTrampoline(fn *types.Function, wrapperRetC string, wrapperParamC []string) (wrapperName, cbVar, arenaVar string) {
	g.cbCounter++
	n := g.cbCounter
	cbVar = fmt.Sprintf("_cb_%d", n)
	arenaVar = fmt.Sprintf("_cb_arena_%d", n)
	wrapperName = fmt.Sprintf("_wrap_%d", n)

	fmt.Fprintf(&g.trampolines, "static Closure* %s;\n", cbVar)
	fmt.Fprintf(&g.trampolines, "static Arena* %s;\n", arenaVar)

	ptrType := closureFnPtrType(fn)
	params := make([]string, len(wrapperParamC))
	args := make([]string, len(wrapperParamC))
	for i, pt := range wrapperParamC {
		params[i] = fmt.Sprintf("%s a%d", pt, i)
		args[i] = fmt.Sprintf("a%d", i)
	}
	fmt.Fprintf(&g.trampolines, "static %s %s(%s) {\n", wrapperRetC, wrapperName, strings.Join(params, ", "))
	callExpr := fmt.Sprintf("((%s)%s->fn)(%s->env, %s", ptrType, cbVar, cbVar, arenaVar)
	for _, a := range args {
		callExpr += ", " + a
	}
	callExpr += ")"
	if wrapperRetC == "void" {
		fmt.Fprintf(&g.trampolines, "    (void)(%s);\n}\n\n", callExpr)
	} else {
		fmt.Fprintf(&g.trampolines, "    return (%s)(%s);\n}\n\n", wrapperRetC, callExpr)
	}
	return wrapperName, cbVar, arenaVar
}

func (g *Generator) autodiffCall1(runtimeFn string, fnType *types.Function, wrapperRetC string, wrapperParamC []string, fExpr, xExpr string) string {
	wrapperName, cbVar, arenaVar := g.genTrampoline(fnType, wrapperRetC, wrapperParamC)
	return fmt.Sprintf("({ %s = (Closure*)(%s); %s = arena; %s(arena, %s, %s); })", cbVar, fExpr, arenaVar, runtimeFn, wrapperName, xExpr)
}

// autodiffJacobian is the one runtime entry point whose callback
// signature already carries its own arena parameter, so the wrapper
// uses that instead of the shared global slot.
func (g *Generator) autodiffJacobian(fnType *types.Function, fExpr, xExpr string) string {
	g.cbCounter++
	n := g.cbCounter
	cbVar := fmt.Sprintf("_cb_%d", n)
	wrapperName := fmt.Sprintf("_wrap_%d", n)
	ptrType := closureFnPtrType(fnType)
	fmt.Fprintf(&g.trampolines, "static Closure* %s;\n", cbVar)
	fmt.Fprintf(&g.trampolines, "static VectorF* %s(Arena* a_arena, VectorF* a_x) {\n", wrapperName)
	fmt.Fprintf(&g.trampolines, "    return (VectorF*)((%s)%s->fn)(%s->env, a_arena, a_x);\n}\n\n", ptrType, cbVar, cbVar)
	return fmt.Sprintf("({ %s = (Closure*)(%s); compute_jacobian(arena, %s, %s); })", cbVar, fExpr, wrapperName, xExpr)
}

func (g *Generator) autodiffDerivative(fnType *types.Function, fExpr, xExpr, orderExpr string) string {
	wrapperName, cbVar, arenaVar := g.genTrampoline(fnType, "float", []string{"float"})
	return fmt.Sprintf("({ %s = (Closure*)(%s); %s = arena; (double)compute_nth_derivative(arena, %s, (float)(%s), (int)(%s)); })",
		cbVar, fExpr, arenaVar, wrapperName, xExpr, orderExpr)
}

// autodiffScalarPoint wraps a scalar evaluation point into a length-1
// VectorF the way codegen.c's autodiff-forward/autodiff-reverse cases
// do, calls runtimeFn with it, and pulls the single result back out
// with vector_f_get. Unlike the gradient-family wrappers, the Scheme
// closure being wrapped takes a plain scalar, not a VectorF*, so the
// wrapper itself (rather than genTrampoline's generic passthrough) has
// to unwrap the length-1 vector back into a scalar before calling
// through to the real closure.
func (g *Generator) autodiffScalarPoint(runtimeFn string, fnType *types.Function, fExpr, xExpr string) string {
	g.cbCounter++
	n := g.cbCounter
	cbVar := fmt.Sprintf("_cb_%d", n)
	arenaVar := fmt.Sprintf("_cb_arena_%d", n)
	wrapperName := fmt.Sprintf("_wrap_%d", n)

	scalarType := "double"
	if len(fnType.Params) > 0 {
		scalarType = ctype(fnType.Params[0])
	}
	ptrType := closureFnPtrType(fnType)

	fmt.Fprintf(&g.trampolines, "static Closure* %s;\n", cbVar)
	fmt.Fprintf(&g.trampolines, "static Arena* %s;\n", arenaVar)
	fmt.Fprintf(&g.trampolines, "static float %s(VectorF* a0) {\n", wrapperName)
	fmt.Fprintf(&g.trampolines, "    return (float)((%s)%s->fn)(%s->env, %s, (%s)vector_f_get(a0, 0));\n}\n\n",
		ptrType, cbVar, cbVar, arenaVar, scalarType)

	return fmt.Sprintf("({ %s = (Closure*)(%s); %s = arena; vector_f_get(%s(arena, %s, vector_f_create_from_array(arena, (float[]){(float)(%s)}, 1)), 0); })",
		cbVar, fExpr, arenaVar, runtimeFn, wrapperName, xExpr)
}

// genAutodiff maps each autodiff intrinsic onto the runtime function
// that actually computes it.
func (g *Generator) genAutodiff(v *ast.Call, name string) string {
	if len(v.Args) < 2 {
		g.errorf(diag.CodeGenUnsupportedForm, v.Span(), name+" requires a function and a point")
		return "0"
	}
	fExpr := g.genExpr(v.Args[0])
	fnType, ok := g.typeOf(v.Args[0]).(*types.Function)
	if !ok {
		g.errorf(diag.CodeGenUnresolvedType, v.Args[0].Span(), name+"'s first argument has no resolved function type")
		return "0"
	}
	xExpr := g.genExpr(v.Args[1])

	switch name {
	case "gradient":
		return g.autodiffCall1("compute_gradient", fnType, "float", []string{"VectorF*"}, fExpr, xExpr)
	case "divergence":
		return g.autodiffCall1("compute_divergence", fnType, "VectorF*", []string{"VectorF*"}, fExpr, xExpr)
	case "curl":
		return g.autodiffCall1("compute_curl", fnType, "VectorF*", []string{"VectorF*"}, fExpr, xExpr)
	case "laplacian":
		return g.autodiffCall1("compute_laplacian", fnType, "float", []string{"VectorF*"}, fExpr, xExpr)
	case "autodiff-forward-gradient":
		return g.autodiffCall1("compute_gradient_autodiff", fnType, "float", []string{"VectorF*"}, fExpr, xExpr)
	case "autodiff-reverse-gradient":
		return g.autodiffCall1("compute_gradient_reverse_mode", fnType, "float", []string{"VectorF*"}, fExpr, xExpr)
	case "autodiff-jacobian":
		return g.autodiffJacobian(fnType, fExpr, xExpr)
	case "autodiff-hessian":
		return g.autodiffCall1("compute_hessian", fnType, "float", []string{"VectorF*"}, fExpr, xExpr)
	case "autodiff-forward":
		return g.autodiffScalarPoint("compute_gradient_autodiff", fnType, fExpr, xExpr)
	case "autodiff-reverse":
		return g.autodiffScalarPoint("compute_gradient_reverse_mode", fnType, fExpr, xExpr)
	case "derivative":
		order := "1"
		if len(v.Args) >= 3 {
			order = g.genExpr(v.Args[2])
		}
		return g.autodiffDerivative(fnType, fExpr, xExpr, order)
	default:
		g.errorf(diag.CodeGenUnsupportedForm, v.Span(), "unhandled autodiff intrinsic "+name)
		return "0"
	}
}

func (g *Generator) genSchemeCompat(v *ast.Call, name string) string {
	switch name {
	case "display":
		return g.genDisplay(v)
	case "newline":
		return `(void)printf("\n")`
	case "string-append":
		return g.genStringAppend(v)
	case "number->string":
		return g.genNumberToString(v)
	case "printf":
		return g.genPrintfPassthrough(v)
	default:
		g.errorf(diag.CodeGenUnsupportedForm, v.Span(), "unhandled scheme-compat intrinsic "+name)
		return "0"
	}
}

// genDisplay dispatches the printf format specifier by the argument's
// solved static type, a refinement over always formatting as an int:
// gradual typing means some display calls never get a better type than
// Unknown, handled by falling back to a pointer format with a warning.
func (g *Generator) genDisplay(v *ast.Call) string {
	if len(v.Args) != 1 {
		g.errorf(diag.CodeGenUnsupportedForm, v.Span(), "display takes exactly one argument")
		return "0"
	}
	arg := v.Args[0]
	expr := g.genExpr(arg)
	gr, ok := g.typeOf(arg).(*types.Ground)
	if !ok {
		g.warnf(diag.CodeGenUnsupportedForm, arg.Span(), "display of unresolved/opaque type, formatting as pointer")
		return fmt.Sprintf(`(void)printf("%%p", (void*)(%s))`, expr)
	}
	switch gr.Kind {
	case types.Integer:
		return fmt.Sprintf(`(void)printf("%%lld", (long long)(%s))`, expr)
	case types.Float:
		return fmt.Sprintf(`(void)printf("%%g", (double)(%s))`, expr)
	case types.Bool:
		return fmt.Sprintf(`(void)printf("%%s", (%s) ? "#t" : "#f")`, expr)
	case types.String, types.Symbol:
		return fmt.Sprintf(`(void)printf("%%s", (%s))`, expr)
	case types.Char:
		return fmt.Sprintf(`(void)printf("%%c", (%s))`, expr)
	default:
		return fmt.Sprintf("((void)(%s))", expr)
	}
}

func (g *Generator) genStringAppend(v *ast.Call) string {
	if len(v.Args) == 0 {
		return `""`
	}
	var b strings.Builder
	b.WriteString("({ size_t _len = 1")
	names := make([]string, len(v.Args))
	for i, a := range v.Args {
		names[i] = g.tempName()
		fmt.Fprintf(&b, "; const char* %s = (%s)", names[i], g.genExpr(a))
		fmt.Fprintf(&b, "; _len += strlen(%s)", names[i])
	}
	b.WriteString("; char* _buf = (char*)arena_alloc(arena, _len); _buf[0] = 0")
	for _, nm := range names {
		fmt.Fprintf(&b, "; strcat(_buf, %s)", nm)
	}
	b.WriteString("; _buf; })")
	return b.String()
}

func (g *Generator) genNumberToString(v *ast.Call) string {
	if len(v.Args) != 1 {
		g.errorf(diag.CodeGenUnsupportedForm, v.Span(), "number->string takes exactly one argument")
		return `""`
	}
	arg := v.Args[0]
	expr := g.genExpr(arg)
	gr, _ := g.typeOf(arg).(*types.Ground)
	spec := "%g"
	cast := "(double)"
	if gr != nil && gr.Kind == types.Integer {
		spec = "%lld"
		cast = "(long long)"
	}
	return fmt.Sprintf(`({ char* _buf = (char*)arena_alloc(arena, 64); snprintf(_buf, 64, "%s", %s(%s)); _buf; })`, spec, cast, expr)
}

// genPrintfPassthrough forwards straight to C's printf, for callers
// who want full format-string control rather than display's
// type-driven single-value formatting.
func (g *Generator) genPrintfPassthrough(v *ast.Call) string {
	if len(v.Args) == 0 {
		g.errorf(diag.CodeGenUnsupportedForm, v.Span(), "printf requires a format string")
		return "0"
	}
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		args[i] = g.genExpr(a)
	}
	return fmt.Sprintf("(void)printf(%s)", strings.Join(args, ", "))
}
