package codegen

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/eskemec-lang/eskemec/internal/arena"
	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/binding"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intern"
	"github.com/eskemec-lang/eskemec/internal/lexer"
	"github.com/eskemec-lang/eskemec/internal/parser"
	"github.com/eskemec-lang/eskemec/internal/types"
)

func generate(t *testing.T, src string, buildID uuid.UUID) (string, bool, *diag.MemorySink) {
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
	table := binding.New(sink).Resolve(prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected binding errors: %v", sink.Diagnostics)
	}
	tm := types.New(sink).Infer(prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected type errors: %v", sink.Diagnostics)
	}
	g := New(sink, tm, table, tbl)
	c, ok := g.Generate(prog, buildID)
	return c, ok, sink
}

func TestIdempotentLowering(t *testing.T) {
	src := `
		(define (make-adder n) (lambda (x) (+ x n)))
		(define add5 (make-adder 5))
		(display (add5 10))
		(newline)`
	id := uuid.New()
	c1, ok1, sink1 := generate(t, src, id)
	if !ok1 || sink1.HasErrors() {
		t.Fatalf("unexpected codegen errors: %v", sink1.Diagnostics)
	}
	c2, ok2, sink2 := generate(t, src, id)
	if !ok2 || sink2.HasErrors() {
		t.Fatalf("unexpected codegen errors on second run: %v", sink2.Diagnostics)
	}
	if c1 != c2 {
		t.Fatal("expected re-running code generation on the same input to produce byte-identical output")
	}
}

func TestArithmeticPromotesResultType(t *testing.T) {
	c, ok, sink := generate(t, `(display (+ 1 2.0))`, uuid.New())
	if !ok || sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics)
	}
	if !containsAll(c, "double", "%g") {
		t.Fatalf("expected a float result cast and %%g display formatting, got:\n%s", c)
	}
}

func TestClosureOverBoxedMutableCapture(t *testing.T) {
	c, ok, sink := generate(t, `
		(define (make-counter)
		  (let ((n 0))
		    (lambda () (set! n (+ n 1)) n)))
		(define counter (make-counter))
		(display (counter))`, uuid.New())
	if !ok || sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics)
	}
	if !containsAll(c, "ClosureEnv_", "arena_alloc", "int64_t* f") {
		t.Fatalf("expected a boxed heap cell for the mutated, captured n, got:\n%s", c)
	}
}

func TestUnsupportedQuotedPairIsDiagnosed(t *testing.T) {
	_, ok, sink := generate(t, `(display (quote (1 . 2)))`, uuid.New())
	if ok {
		t.Fatal("expected quoted pair data with no runtime representation to fail codegen")
	}
	found := false
	for _, d := range sink.Diagnostics {
		if d.Code == diag.CodeGenUnsupportedForm {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CodeGenUnsupportedForm, got %v", sink.Diagnostics)
	}
}

func containsAll(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
