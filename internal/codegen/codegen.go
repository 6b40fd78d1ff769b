// Package codegen lowers a resolved, type-checked Program into a single
// C translation unit (spec.md §4.5): closures become a struct-per-lambda
// environment plus a lifted, type-erased function, and the built-in
// operator table dispatches straight to the runtime's vector/autodiff
// facilities instead of going through a general closure call.
package codegen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/binding"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intern"
	"github.com/eskemec-lang/eskemec/internal/lexer"
	"github.com/eskemec-lang/eskemec/internal/types"
)

// varRef is how the generator remembers a binding's current C storage:
// boxed bindings store a pointer to a heap cell shared with every
// capturing environment, so reading/writing them needs one extra
// dereference that plain stack bindings don't.
type varRef struct {
	expr  string
	boxed bool
	typ   types.Type
}

// Generator walks a resolved, type-checked Program and emits C text.
// It follows the teacher's llvm/generator.go shape: output buffers split
// into sections and monotonic temp/label counters. It keeps no
// statement/expression context flag: every form lowers to a C
// expression, using GCC statement expressions where a form needs local
// declarations.
type Generator struct {
	sink   diag.Sink
	tm     types.TypeMap
	table  *binding.Table
	strtab *intern.Table

	envStructs  strings.Builder
	protos      strings.Builder
	trampolines strings.Builder
	funcs       strings.Builder
	mainBody    strings.Builder

	vars         map[int]varRef
	bindingTypes map[int]types.Type

	tempCounter  int
	labelCounter int
	cbCounter    int

	failed bool
}

// New creates a Generator for one compilation's resolved tree.
func New(sink diag.Sink, tm types.TypeMap, table *binding.Table, strtab *intern.Table) *Generator {
	return &Generator{
		sink:         sink,
		tm:           tm,
		table:        table,
		strtab:       strtab,
		vars:         make(map[int]varRef),
		bindingTypes: make(map[int]types.Type),
	}
}

func (g *Generator) tempName() string {
	g.tempCounter++
	return fmt.Sprintf("_t%d", g.tempCounter)
}

func (g *Generator) label() string {
	g.labelCounter++
	return fmt.Sprintf("_L%d", g.labelCounter)
}

func (g *Generator) typeOf(n ast.Node) types.Type {
	if t, ok := g.tm[n.ID()]; ok {
		return t
	}
	return types.TypeUnknown
}

func toDiagSpan(s lexer.Span) diag.Span {
	return diag.Span{Filename: s.Filename, Line: s.Line, Column: s.Column, Start: s.ByteOffset, End: s.ByteOffset + s.Length}
}

func (g *Generator) errorf(code diag.Code, span lexer.Span, message string) {
	g.failed = true
	g.sink.Report(diag.Diagnostic{Stage: diag.StageCodegen, Severity: diag.SeverityError, Code: code, Message: message, Span: toDiagSpan(span)})
}

func (g *Generator) warnf(code diag.Code, span lexer.Span, message string) {
	g.sink.Report(diag.Diagnostic{Stage: diag.StageCodegen, Severity: diag.SeverityWarning, Code: code, Message: message, Span: toDiagSpan(span)})
}

func (g *Generator) binding(id int) *binding.Binding {
	return g.table.Bindings[id]
}

// collectBindingTypes runs once before any C text is emitted, pairing
// every binding id introduced by a Define, Parameter, or LetBinding
// with its solved Type. Codegen otherwise only has node-keyed types
// (TypeMap); this is the one place binding ids and types meet, since
// DefiningNodeID points at the enclosing form, not a per-binding node.
func (g *Generator) collectBindingTypes(n ast.Node) {
	if n == nil {
		return
	}
	switch v := n.(type) {
	case *ast.Define:
		g.bindingTypes[v.BindingID] = g.typeOf(v.Value)
	case *ast.Lambda:
		if fnType, ok := g.typeOf(v).(*types.Function); ok {
			for i, p := range v.Params {
				if i < len(fnType.Params) {
					g.bindingTypes[p.BindingID] = fnType.Params[i]
				}
			}
		}
	case *ast.Let:
		for _, lb := range v.Bindings {
			g.bindingTypes[lb.BindingID] = g.typeOf(lb.Value)
		}
	}
	for _, c := range ast.Children(n) {
		g.collectBindingTypes(c)
	}
}

func (g *Generator) readVar(id int) string {
	v, ok := g.vars[id]
	if !ok {
		return "0 /* unresolved binding */"
	}
	if v.boxed {
		return "(*(" + v.expr + "))"
	}
	return v.expr
}

func (g *Generator) writeVar(id int, valueExpr string) string {
	v, ok := g.vars[id]
	if !ok {
		return valueExpr
	}
	if v.boxed {
		return "(*(" + v.expr + ") = (" + valueExpr + "))"
	}
	return "(" + v.expr + " = (" + valueExpr + "))"
}

// Generate lowers prog to a complete C translation unit. It returns
// false if any codegen-stage diagnostic was an error (spec.md §7:
// UnsupportedForm has no recovery and marks the compilation failed).
func (g *Generator) Generate(prog *ast.Program, buildID uuid.UUID) (string, bool) {
	g.collectBindingTypes(prog)
	g.collectAndEmitClosures(prog)
	g.emitTopLevel(prog)

	var out strings.Builder
	out.WriteString(preamble(buildID))
	out.WriteString(g.envStructs.String())
	out.WriteString("\n")
	out.WriteString(g.protos.String())
	out.WriteString("\n")
	out.WriteString(g.trampolines.String())
	out.WriteString("\n")
	out.WriteString(g.funcs.String())
	out.WriteString("\nstatic void eskemec_main(Arena* arena) {\n")
	out.WriteString(g.mainBody.String())
	out.WriteString("}\n\n")
	out.WriteString("int main(void) {\n")
	out.WriteString("    Arena* arena = arena_create();\n")
	out.WriteString("    eskemec_main(arena);\n")
	out.WriteString("    arena_destroy(arena);\n")
	out.WriteString("    return 0;\n")
	out.WriteString("}\n")

	return out.String(), !g.failed
}

// emitTopLevel lowers the module's form sequence as one letrec-shaped
// group (spec.md §9): every top-level lambda-valued define is wired by
// the cycle-safe two-phase procedure in closures.go before any form's
// statements run, since top-level defines may reference each other in
// any order (mutual recursion). Non-lambda defines and bare top-level
// expressions then execute in source order.
func (g *Generator) emitTopLevel(prog *ast.Program) {
	g.twoPhaseInitDefines(prog.Forms, &g.mainBody)

	for _, form := range prog.Forms {
		def, isDefine := form.(*ast.Define)
		if isDefine {
			if _, isLambda := def.Value.(*ast.Lambda); isLambda {
				continue // already wired by the two-phase pass above
			}
			expr := g.genExpr(def.Value)
			fmt.Fprintf(&g.mainBody, "    %s;\n", g.writeVar(def.BindingID, expr))
			continue
		}
		fmt.Fprintf(&g.mainBody, "    (void)(%s);\n", g.genExpr(form))
	}
}
