package binding

import (
	"testing"

	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
)

func TestLambdaWithNoOuterReferenceHasNoFreeBindings(t *testing.T) {
	prog, psink := parse(t, `(define (square x) (* x x))`)
	if psink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", psink.Diagnostics)
	}
	bsink := diag.NewMemorySink("test")
	New(bsink).Resolve(prog)
	if bsink.HasErrors() {
		t.Fatalf("unexpected binding errors: %v", bsink.Diagnostics)
	}
	lam := prog.Forms[0].(*ast.Define).Value.(*ast.Lambda)
	if len(lam.FreeBindings) != 0 {
		t.Fatalf("expected a plain function with no free bindings, got %v", lam.FreeBindings)
	}
}

func TestLambdaCapturingOuterLetBindingIsFlagged(t *testing.T) {
	prog, psink := parse(t, `(let ((n 10)) (lambda (x) (+ x n)))`)
	if psink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", psink.Diagnostics)
	}
	bsink := diag.NewMemorySink("test")
	table := New(bsink).Resolve(prog)
	if bsink.HasErrors() {
		t.Fatalf("unexpected binding errors: %v", bsink.Diagnostics)
	}

	let := prog.Forms[0].(*ast.Let)
	lam := let.Body.(*ast.Lambda)
	if len(lam.FreeBindings) != 1 {
		t.Fatalf("expected exactly 1 free binding, got %d", len(lam.FreeBindings))
	}
	nBindingID := let.Bindings[0].BindingID
	if lam.FreeBindings[0] != nBindingID {
		t.Fatalf("expected free binding to be n's binding id %d, got %d", nBindingID, lam.FreeBindings[0])
	}
	if !table.Bindings[nBindingID].Captured {
		t.Fatal("expected n's binding to be flagged captured")
	}
}

func TestCapturedMutableBindingIsBoxed(t *testing.T) {
	prog, psink := parse(t, `(define (make-counter)
		(let ((count 0))
			(lambda ()
				(set! count (+ count 1))
				count)))`)
	if psink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", psink.Diagnostics)
	}
	bsink := diag.NewMemorySink("test")
	table := New(bsink).Resolve(prog)
	if bsink.HasErrors() {
		t.Fatalf("unexpected binding errors: %v", bsink.Diagnostics)
	}

	outer := prog.Forms[0].(*ast.Define).Value.(*ast.Lambda)
	let := outer.Body.(*ast.Let)
	countID := let.Bindings[0].BindingID
	b := table.Bindings[countID]
	if !b.Mutable {
		t.Fatal("expected count to be marked mutable by set!")
	}
	if !b.Captured {
		t.Fatal("expected count to be marked captured by the inner lambda")
	}
	if !b.Boxed {
		t.Fatal("expected a mutable+captured binding to be boxed")
	}
}

func TestInnerLambdaCapturesOuterLambdaParameter(t *testing.T) {
	prog, psink := parse(t, `(define (adder x) (lambda (y) (+ x y)))`)
	if psink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", psink.Diagnostics)
	}
	bsink := diag.NewMemorySink("test")
	New(bsink).Resolve(prog)
	if bsink.HasErrors() {
		t.Fatalf("unexpected binding errors: %v", bsink.Diagnostics)
	}

	outer := prog.Forms[0].(*ast.Define).Value.(*ast.Lambda)
	inner := outer.Body.(*ast.Lambda)
	if len(inner.FreeBindings) != 1 {
		t.Fatalf("expected inner lambda to capture x, got %v", inner.FreeBindings)
	}
	xBindingID := outer.ParamBindings[0]
	if inner.FreeBindings[0] != xBindingID {
		t.Fatalf("expected inner lambda's free binding to be x (%d), got %d", xBindingID, inner.FreeBindings[0])
	}
}
