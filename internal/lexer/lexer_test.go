package lexer

import (
	"testing"

	"github.com/eskemec-lang/eskemec/internal/intern"
)

func kinds(t *testing.T, src string) []TokenKind {
	t.Helper()
	tbl := intern.New()
	l := New("t.skm", src, tbl)
	var ks []TokenKind
	for {
		tok := l.Next()
		ks = append(ks, tok.Kind)
		if tok.Kind == EOF {
			break
		}
	}
	return ks
}

func TestLexesDelimitersAndForm(t *testing.T) {
	got := kinds(t, "(define (f n) (if (= n 0) 1 n))")
	want := []TokenKind{
		LPAREN, KEYWORD, LPAREN, IDENTIFIER, IDENTIFIER, RPAREN,
		LPAREN, KEYWORD, LPAREN, IDENTIFIER, IDENTIFIER, NUMBER, RPAREN,
		NUMBER, IDENTIFIER, RPAREN, RPAREN, EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestLexesNumbersSignsAndFloats(t *testing.T) {
	tbl := intern.New()
	l := New("t.skm", "3 -3 +3 3.5 -3.5", tbl)
	var raws []string
	for {
		tok := l.Next()
		if tok.Kind == EOF {
			break
		}
		if tok.Kind != NUMBER {
			t.Fatalf("expected NUMBER, got %s (%q)", tok.Kind, tok.Raw)
		}
		raws = append(raws, tok.Raw)
	}
	want := []string{"3", "-3", "+3", "3.5", "-3.5"}
	for i, w := range want {
		if raws[i] != w {
			t.Fatalf("token %d: got %q, want %q", i, raws[i], w)
		}
	}
}

func TestLexesStringEscapes(t *testing.T) {
	tbl := intern.New()
	l := New("t.skm", `"a\nb"`, tbl)
	tok := l.Next()
	if tok.Kind != STRING {
		t.Fatalf("expected STRING, got %s", tok.Kind)
	}
	id := mustAtoi(t, tok.Value)
	if got := tbl.Lookup(intern.ID(id)); got != "a\nb" {
		t.Fatalf("decoded string = %q, want %q", got, "a\nb")
	}
}

func TestLexesCharLiterals(t *testing.T) {
	tbl := intern.New()
	l := New("t.skm", `#\a #\space #\newline`, tbl)
	tok1 := l.Next()
	if tok1.Kind != CHAR || tok1.Value != "a" {
		t.Fatalf("got %v", tok1)
	}
	tok2 := l.Next()
	if tok2.Kind != CHAR || tok2.Value != " " {
		t.Fatalf("got %v", tok2)
	}
	tok3 := l.Next()
	if tok3.Kind != CHAR || tok3.Value != "\n" {
		t.Fatalf("got %v", tok3)
	}
}

func TestLexesBooleansAndVectorHash(t *testing.T) {
	got := kinds(t, "#t #f #(1 2)")
	want := []TokenKind{BOOL, BOOL, HASH_LPAREN, NUMBER, NUMBER, RPAREN, EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestLexesColonAndArrowAsCompleteTokens(t *testing.T) {
	got := kinds(t, "(: sq (-> integer integer))")
	want := []TokenKind{
		LPAREN, COLON, IDENTIFIER, LPAREN, ARROW, IDENTIFIER, IDENTIFIER, RPAREN, RPAREN, EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestLexesQuasiquoteTokens(t *testing.T) {
	got := kinds(t, "`(a ,b ,@c)")
	want := []TokenKind{
		BACKTICK, LPAREN, IDENTIFIER, COMMA, IDENTIFIER, COMMA_AT, IDENTIFIER, RPAREN, EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestUnterminatedStringReportsError(t *testing.T) {
	tbl := intern.New()
	l := New("t.skm", `"abc`, tbl)
	tok := l.Next()
	if tok.Kind != ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Kind)
	}
	if len(l.Errors) != 1 || l.Errors[0].Kind != ErrUnterminatedString {
		t.Fatalf("expected one unterminated-string error, got %v", l.Errors)
	}
}

func TestLineCommentsAreSkipped(t *testing.T) {
	got := kinds(t, "; comment\n(foo) ; trailing\n")
	want := []TokenKind{LPAREN, IDENTIFIER, RPAREN, EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			t.Fatalf("not a number: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}
