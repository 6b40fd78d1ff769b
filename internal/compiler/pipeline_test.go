package compiler

import (
	"strings"
	"testing"

	"github.com/eskemec-lang/eskemec/internal/diag"
)

func TestPipelineScenarios(t *testing.T) {
	t.Run("factorial", func(t *testing.T) {
		r := New().Compile("t.skm", `
			(define (factorial n)
			  (if (= n 0) 1 (* n (factorial (- n 1)))))
			(display (factorial 5))`)
		if !r.Success {
			t.Fatalf("unexpected failure: %v", r.Diagnostics)
		}
		if !strings.Contains(r.C, "factorial") {
			t.Fatalf("expected the recursive define to leave a trace in the generated C, got:\n%s", r.C)
		}
	})

	t.Run("closure capture", func(t *testing.T) {
		r := New().Compile("t.skm", `
			(define (make-adder n)
			  (lambda (x) (+ x n)))
			(define add5 (make-adder 5))
			(display (add5 10))`)
		if !r.Success {
			t.Fatalf("unexpected failure: %v", r.Diagnostics)
		}
		if !strings.Contains(r.C, "ClosureEnv_") {
			t.Fatalf("expected a closure environment struct for the captured n, got:\n%s", r.C)
		}
	})

	t.Run("gradual typing", func(t *testing.T) {
		r := New().Compile("t.skm", `
			(define (id [x : unknown]) x)
			(display (id 5))
			(display (id "hi"))`)
		if !r.Success {
			t.Fatalf("expected unknown-typed parameter to absorb both call sites, got: %v", r.Diagnostics)
		}
	})

	t.Run("type annotation mismatch", func(t *testing.T) {
		r := New().Compile("t.skm", `(define (f [x : integer]) x) (f #t)`)
		if r.Success {
			t.Fatal("expected an annotation/argument mismatch to fail the compilation")
		}
		found := false
		for _, d := range r.Diagnostics {
			if d.Code == diag.CodeTypeMismatch {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected CodeTypeMismatch, got %v", r.Diagnostics)
		}
	})

	t.Run("letrec mutual recursion", func(t *testing.T) {
		r := New().Compile("t.skm", `
			(letrec ((even? (lambda (n) (if (= n 0) #t (odd? (- n 1)))))
			         (odd? (lambda (n) (if (= n 0) #f (even? (- n 1))))))
			  (display (even? 10)))`)
		if !r.Success {
			t.Fatalf("unexpected failure: %v", r.Diagnostics)
		}
		if !strings.Contains(r.C, "lambda_fn_") {
			t.Fatalf("expected lifted lambda functions for the mutually recursive pair, got:\n%s", r.C)
		}
	})

	t.Run("autodiff", func(t *testing.T) {
		r := New().Compile("t.skm", `
			(define (f v) (dot v v))
			(display (gradient f (vector 1.0 2.0 3.0)))`)
		if !r.Success {
			t.Fatalf("unexpected failure: %v", r.Diagnostics)
		}
		if !strings.Contains(r.C, "compute_gradient") {
			t.Fatalf("expected a compute_gradient call in the generated C, got:\n%s", r.C)
		}
	})

	t.Run("autodiff forward and reverse scalar", func(t *testing.T) {
		r := New().Compile("t.skm", `
			(define (square x) (* x x))
			(display (autodiff-forward square 3.0))
			(display (autodiff-reverse square 3.0))`)
		if !r.Success {
			t.Fatalf("unexpected failure: %v", r.Diagnostics)
		}
		if !strings.Contains(r.C, "compute_gradient_autodiff") {
			t.Fatalf("expected autodiff-forward to call compute_gradient_autodiff, got:\n%s", r.C)
		}
		if !strings.Contains(r.C, "compute_gradient_reverse_mode") {
			t.Fatalf("expected autodiff-reverse to call compute_gradient_reverse_mode, got:\n%s", r.C)
		}
		if !strings.Contains(r.C, "vector_f_create_from_array") {
			t.Fatalf("expected the scalar point to be wrapped into a length-1 vector, got:\n%s", r.C)
		}
	})
}

func TestCompileIsIdempotent(t *testing.T) {
	src := `
		(define (make-adder n) (lambda (x) (+ x n)))
		(define add5 (make-adder 5))
		(display (add5 10))`
	r1 := New().Compile("t.skm", src)
	r2 := New().Compile("t.skm", src)
	if !r1.Success || !r2.Success {
		t.Fatalf("unexpected failure: %v / %v", r1.Diagnostics, r2.Diagnostics)
	}
	if r1.BuildID != r2.BuildID {
		t.Fatalf("expected two compiles of identical input to derive the same build id, got %s and %s", r1.BuildID, r2.BuildID)
	}
	if r1.C != r2.C {
		t.Fatal("expected two Pipeline.Compile calls on identical input to produce byte-identical output")
	}
}

func TestBuildIDStampsGeneratedSource(t *testing.T) {
	r := New().Compile("t.skm", `(display 1)`)
	if !r.Success {
		t.Fatalf("unexpected failure: %v", r.Diagnostics)
	}
	if !strings.Contains(r.C, r.BuildID.String()) {
		t.Fatal("expected the build id to appear in the generated file's header comment")
	}
}
