package types

import (
	"testing"

	"github.com/eskemec-lang/eskemec/internal/arena"
	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/binding"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intern"
	"github.com/eskemec-lang/eskemec/internal/lexer"
	"github.com/eskemec-lang/eskemec/internal/parser"
)

func infer(t *testing.T, src string) (*ast.Program, TypeMap, *diag.MemorySink) {
	t.Helper()
	tbl := intern.New()
	sink := diag.NewMemorySink("test")
	lex := lexer.New("t.skm", src, tbl)
	fac := ast.NewFactory(arena.New())
	p := parser.New(lex, fac, sink, tbl)
	prog := p.ParseProgram()
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", sink.Diagnostics)
	}
	binding.New(sink).Resolve(prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected binding errors: %v", sink.Diagnostics)
	}
	tm := New(sink).Infer(prog)
	return prog, tm, sink
}

func isGround(t Type, kind Kind) bool {
	g, ok := t.(*Ground)
	return ok && g.Kind == kind
}

func TestLiteralsGetGroundTypes(t *testing.T) {
	prog, tm, sink := infer(t, `(define x 1) (define y 2.5) (define z #t)`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics)
	}
	x := prog.Forms[0].(*ast.Define).Value
	y := prog.Forms[1].(*ast.Define).Value
	z := prog.Forms[2].(*ast.Define).Value
	if !isGround(tm[x.ID()], Integer) {
		t.Fatalf("x: got %v, want integer", tm[x.ID()])
	}
	if !isGround(tm[y.ID()], Float) {
		t.Fatalf("y: got %v, want float", tm[y.ID()])
	}
	if !isGround(tm[z.ID()], Bool) {
		t.Fatalf("z: got %v, want bool", tm[z.ID()])
	}
}

func TestArithmeticPromotesToFloatWhenAnyOperandIsFloat(t *testing.T) {
	prog, tm, sink := infer(t, `(define a (+ 1 2.0)) (define b (+ 1 2))`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics)
	}
	a := prog.Forms[0].(*ast.Define).Value
	b := prog.Forms[1].(*ast.Define).Value
	if !isGround(tm[a.ID()], Float) {
		t.Fatalf("a: got %v, want float", tm[a.ID()])
	}
	if !isGround(tm[b.ID()], Integer) {
		t.Fatalf("b: got %v, want integer", tm[b.ID()])
	}
}

func TestGradualUnknownAbsorbsWithoutMismatch(t *testing.T) {
	_, _, sink := infer(t, `(define (f [x : unknown]) (+ x 1)) (f 5)`)
	if sink.HasErrors() {
		t.Fatalf("expected Unknown to absorb without a type mismatch, got: %v", sink.Diagnostics)
	}
}

func TestExplicitAnnotationMismatchIsDiagnosed(t *testing.T) {
	_, _, sink := infer(t, `(define (f [x : integer]) x) (f #t)`)
	if !sink.HasErrors() {
		t.Fatal("expected a type mismatch for passing #t to an integer-annotated parameter")
	}
	found := false
	for _, d := range sink.Diagnostics {
		if d.Code == diag.CodeTypeMismatch {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CodeTypeMismatch, got %v", sink.Diagnostics)
	}
}

func TestLetrecMutualRecursionTypeChecks(t *testing.T) {
	_, _, sink := infer(t, `
		(define (even? n) (if (= n 0) #t (odd? (- n 1))))
		(define (odd? n) (if (= n 0) #f (even? (- n 1))))`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics)
	}
}

func TestSetPreservesEstablishedType(t *testing.T) {
	_, _, sink := infer(t, `(define x 1) (set! x 2.5)`)
	if !sink.HasErrors() {
		t.Fatal("expected set! to a differently-typed value to be diagnosed")
	}
}

func TestVectorIntrinsicsSpecializeToVectorOfFloat(t *testing.T) {
	prog, tm, sink := infer(t, `(define v (vector 1.0 2.0 3.0)) (define d (dot v v))`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics)
	}
	v := prog.Forms[0].(*ast.Define).Value
	d := prog.Forms[1].(*ast.Define).Value
	vec, ok := tm[v.ID()].(*Vector)
	if !ok || !isGround(vec.Elem, Float) {
		t.Fatalf("v: got %v, want (vector float)", tm[v.ID()])
	}
	if !isGround(tm[d.ID()], Float) {
		t.Fatalf("d: got %v, want float (dot is scalar)", tm[d.ID()])
	}
}
