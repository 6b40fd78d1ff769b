package binding

import (
	"testing"

	"github.com/eskemec-lang/eskemec/internal/arena"
	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intern"
	"github.com/eskemec-lang/eskemec/internal/lexer"
	"github.com/eskemec-lang/eskemec/internal/parser"
)

func parse(t *testing.T, src string) (*ast.Program, *diag.MemorySink) {
	t.Helper()
	tbl := intern.New()
	sink := diag.NewMemorySink("test")
	lex := lexer.New("t.skm", src, tbl)
	fac := ast.NewFactory(arena.New())
	p := parser.New(lex, fac, sink, tbl)
	return p.ParseProgram(), sink
}

func findIdentifier(n ast.Node, name string) *ast.Identifier {
	if id, ok := n.(*ast.Identifier); ok && id.Name == name {
		return id
	}
	for _, c := range ast.Children(n) {
		if found := findIdentifier(c, name); found != nil {
			return found
		}
	}
	return nil
}

func TestTopLevelMutualRecursionResolves(t *testing.T) {
	prog, psink := parse(t, `
		(define (even? n) (if (= n 0) #t (odd? (- n 1))))
		(define (odd? n) (if (= n 0) #f (even? (- n 1))))`)
	if psink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", psink.Diagnostics)
	}

	bsink := diag.NewMemorySink("test")
	table := New(bsink).Resolve(prog)
	if bsink.HasErrors() {
		t.Fatalf("unexpected binding errors: %v", bsink.Diagnostics)
	}

	evenDef := prog.Forms[0].(*ast.Define)
	oddDef := prog.Forms[1].(*ast.Define)

	oddCallInEven := findIdentifier(evenDef.Value, "odd?")
	if oddCallInEven == nil || oddCallInEven.BindingID != oddDef.BindingID {
		t.Fatalf("even? does not resolve its call to odd? against odd?'s module binding")
	}
	evenCallInOdd := findIdentifier(oddDef.Value, "even?")
	if evenCallInOdd == nil || evenCallInOdd.BindingID != evenDef.BindingID {
		t.Fatalf("odd? does not resolve its call to even? against even?'s module binding")
	}
	if table.Bindings[evenDef.BindingID] == nil {
		t.Fatal("even?'s binding missing from table")
	}
}

func TestUnresolvedIdentifierIsDiagnosed(t *testing.T) {
	prog, psink := parse(t, `(define x (+ y 1))`)
	if psink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", psink.Diagnostics)
	}
	bsink := diag.NewMemorySink("test")
	New(bsink).Resolve(prog)
	if !bsink.HasErrors() {
		t.Fatal("expected an unresolved-identifier diagnostic for y")
	}
	found := false
	for _, d := range bsink.Diagnostics {
		if d.Code == diag.CodeBindingUnresolvedIdentifier {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CodeBindingUnresolvedIdentifier, got %v", bsink.Diagnostics)
	}
}

func TestLetStarSeesPrecedingBindingsOnly(t *testing.T) {
	prog, psink := parse(t, `(let* ((a 1) (b a)) b)`)
	if psink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", psink.Diagnostics)
	}
	bsink := diag.NewMemorySink("test")
	New(bsink).Resolve(prog)
	if bsink.HasErrors() {
		t.Fatalf("unexpected binding errors: %v", bsink.Diagnostics)
	}
}

func TestLetPlainBindingsDoNotSeeEachOther(t *testing.T) {
	prog, psink := parse(t, `(let ((a 1) (b a)) b)`)
	if psink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", psink.Diagnostics)
	}
	bsink := diag.NewMemorySink("test")
	New(bsink).Resolve(prog)
	if !bsink.HasErrors() {
		t.Fatal("expected an unresolved-identifier diagnostic: plain let bindings must not see each other")
	}
}

func TestSetMarksBindingMutable(t *testing.T) {
	prog, psink := parse(t, `(define x 1) (set! x 2)`)
	if psink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", psink.Diagnostics)
	}
	bsink := diag.NewMemorySink("test")
	table := New(bsink).Resolve(prog)
	if bsink.HasErrors() {
		t.Fatalf("unexpected binding errors: %v", bsink.Diagnostics)
	}
	def := prog.Forms[0].(*ast.Define)
	if !table.Bindings[def.BindingID].Mutable {
		t.Fatal("expected set! to mark its target binding mutable")
	}
}
