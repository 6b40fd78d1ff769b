package parser

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/eskemec-lang/eskemec/internal/arena"
	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intern"
	"github.com/eskemec-lang/eskemec/internal/lexer"
)

func newParser(t *testing.T, src string) (*Parser, *diag.MemorySink, *intern.Table) {
	t.Helper()
	tbl := intern.New()
	sink := diag.NewMemorySink("test")
	lex := lexer.New("t.skm", src, tbl)
	fac := ast.NewFactory(arena.New())
	return New(lex, fac, sink, tbl), sink, tbl
}

func TestParseFactorialDefineSugar(t *testing.T) {
	p, sink, _ := newParser(t, `(define (f n) (if (= n 0) 1 (* n (f (- n 1)))))`)
	prog := p.ParseProgram()
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics)
	}
	if len(prog.Forms) != 1 {
		t.Fatalf("expected 1 top-level form, got %d", len(prog.Forms))
	}
	def, ok := prog.Forms[0].(*ast.Define)
	if !ok {
		t.Fatalf("expected *ast.Define, got %T", prog.Forms[0])
	}
	if def.Name != "f" {
		t.Fatalf("Name = %q, want f", def.Name)
	}
	lambda, ok := def.Value.(*ast.Lambda)
	if !ok {
		t.Fatalf("expected define-sugar to produce a Lambda value, got %T", def.Value)
	}
	if len(lambda.Params) != 1 || lambda.Params[0].Name != "n" {
		t.Fatalf("unexpected params: %v", lambda.Params)
	}
}

func TestParseTypeDeclarationAttachesToDefine(t *testing.T) {
	p, sink, _ := newParser(t, `(: sq (-> integer integer)) (define (sq x) (* x x))`)
	prog := p.ParseProgram()
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics)
	}
	if len(prog.Forms) != 2 {
		t.Fatalf("expected 2 top-level forms, got %d", len(prog.Forms))
	}
	def, ok := prog.Forms[1].(*ast.Define)
	if !ok {
		t.Fatalf("expected second form to be *ast.Define, got %T", prog.Forms[1])
	}
	if def.Declared == nil {
		t.Fatal("expected Declared signature to be attached from the preceding (: sq …)")
	}
	if len(def.Declared.Params) != 1 {
		t.Fatalf("expected 1 declared param, got %d", len(def.Declared.Params))
	}
}

func TestQuasiquoteIsRejected(t *testing.T) {
	p, sink, _ := newParser(t, "`(a ,b)")
	p.ParseProgram()
	if !sink.HasErrors() {
		t.Fatal("expected an error for quasiquote")
	}
	found := false
	for _, d := range sink.Diagnostics {
		if d.Code == diag.CodeParserQuasiquoteUnsupported {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CodeParserQuasiquoteUnsupported, got %v", sink.Diagnostics)
	}
}

func TestQuoteRoundTripsCanonicalForm(t *testing.T) {
	cases := []string{"42", "3.5", "#t", `"hi"`, "sym", "(1 2 3)", "(1 . 2)"}
	for _, src := range cases {
		p, sink, tbl := newParser(t, "(quote "+src+")")
		prog := p.ParseProgram()
		if sink.HasErrors() {
			t.Fatalf("unexpected errors for %q: %v", src, sink.Diagnostics)
		}
		q, ok := prog.Forms[0].(*ast.Quote)
		if !ok {
			t.Fatalf("expected *ast.Quote for %q, got %T", src, prog.Forms[0])
		}
		got := renderDatum(q.Datum, tbl)
		if got != src {
			t.Fatalf("round trip mismatch: got %q, want %q", got, src)
		}
	}
}

func TestCondDesugarsToNestedIf(t *testing.T) {
	p, sink, _ := newParser(t, `(cond ((= 1 2) 10) (else 20))`)
	prog := p.ParseProgram()
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics)
	}
	if _, ok := prog.Forms[0].(*ast.If); !ok {
		t.Fatalf("expected cond to desugar to *ast.If, got %T", prog.Forms[0])
	}
}

func TestDoDesugarsToLetrecLoop(t *testing.T) {
	p, sink, _ := newParser(t, `(do ((i 0 (+ i 1))) ((= i 3) i) i)`)
	prog := p.ParseProgram()
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics)
	}
	let, ok := prog.Forms[0].(*ast.Let)
	if !ok || let.Kind != ast.LetRec {
		t.Fatalf("expected do to desugar to a letrec, got %T", prog.Forms[0])
	}
}

func TestUnresolvedParseErrorRecoversToNextForm(t *testing.T) {
	p, sink, _ := newParser(t, `(if) (define x 1)`)
	prog := p.ParseProgram()
	if !sink.HasErrors() {
		t.Fatal("expected a parse error from the malformed if")
	}
	if len(prog.Forms) != 2 {
		t.Fatalf("expected recovery to still yield 2 top-level forms, got %d", len(prog.Forms))
	}
	if _, ok := prog.Forms[1].(*ast.Define); !ok {
		t.Fatalf("expected second form to recover as *ast.Define, got %T", prog.Forms[1])
	}
}

// renderDatum re-renders a parsed Datum tree back to the source's
// canonical textual form, for the round-trip invariant test.
func renderDatum(d ast.Datum, tbl *intern.Table) string {
	switch v := d.(type) {
	case *ast.DatumInteger:
		return strconv.FormatInt(v.Value, 10)
	case *ast.DatumFloat:
		return strconv.FormatFloat(v.Value, 'g', -1, 64)
	case *ast.DatumBool:
		if v.Value {
			return "#t"
		}
		return "#f"
	case *ast.DatumString:
		return fmt.Sprintf("%q", tbl.Lookup(intern.ID(v.InternedID)))
	case *ast.DatumSymbol:
		return v.Name
	case *ast.DatumNil:
		return "()"
	case *ast.DatumPair:
		return renderPair(v, tbl)
	case *ast.DatumVector:
		s := "#("
		for i, e := range v.Elements {
			if i > 0 {
				s += " "
			}
			s += renderDatum(e, tbl)
		}
		return s + ")"
	default:
		return "?"
	}
}

func renderPair(p *ast.DatumPair, tbl *intern.Table) string {
	s := "("
	cur := ast.Datum(p)
	first := true
	for {
		pair, ok := cur.(*ast.DatumPair)
		if !ok {
			break
		}
		if !first {
			s += " "
		}
		first = false
		s += renderDatum(pair.Car, tbl)
		cur = pair.Cdr
	}
	if _, isNil := cur.(*ast.DatumNil); !isNil {
		s += " . " + renderDatum(cur, tbl)
	}
	return s + ")"
}
