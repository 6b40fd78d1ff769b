// Package parser implements the recursive-descent, pull-model parser
// described in spec.md §4.2: s-expression forms dispatched by head
// token, sugar expansion for define and multi-expression bodies, and
// resynchronizing error recovery so a single pass can report several
// parse errors.
package parser

import (
	"strconv"

	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/intern"
	"github.com/eskemec-lang/eskemec/internal/lexer"
)

var specialForms = map[string]bool{
	"define": true, "lambda": true, "if": true, "let": true, "let*": true,
	"letrec": true, "set!": true, "begin": true, "quote": true,
	"quasiquote": true, "and": true, "or": true, "cond": true, "case": true,
	"when": true, "unless": true, "do": true,
}

// Parser consumes a Lexer's token stream and builds an untyped AST.
type Parser struct {
	lex      *lexer.Lexer
	fac      *ast.Factory
	sink     diag.Sink
	interner *intern.Table

	cur, peek lexer.Token

	// declarations holds `(: name (-> …))` signatures seen so far,
	// keyed by name, consumed by the next `define` with a matching name.
	declarations map[string]*ast.FunctionAnnotation
}

// New creates a Parser over lex.
func New(lex *lexer.Lexer, fac *ast.Factory, sink diag.Sink, tbl *intern.Table) *Parser {
	p := &Parser{lex: lex, fac: fac, sink: sink, interner: tbl, declarations: make(map[string]*ast.FunctionAnnotation)}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

func toDiagSpan(s lexer.Span) diag.Span {
	return diag.Span{Filename: s.Filename, Line: s.Line, Column: s.Column, Start: s.ByteOffset, End: s.ByteOffset + s.Length}
}

func (p *Parser) errorf(code diag.Code, span lexer.Span, message string) {
	p.sink.Report(diag.Diagnostic{
		Stage:    diag.StageParser,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  message,
		Span:     toDiagSpan(span),
	})
}

func (p *Parser) errAt(span lexer.Span, message string) *ast.Erroneous {
	p.errorf(diag.CodeParserUnexpectedToken, span, message)
	return p.fac.NewErroneous(message)
}

// recoverToBoundary skips tokens until a matching close-paren at depth 0
// or EOF, so the next top-level form can still be parsed.
func (p *Parser) recoverToBoundary() {
	depth := 0
	for {
		switch p.cur.Kind {
		case lexer.EOF:
			return
		case lexer.LPAREN, lexer.HASH_LPAREN:
			depth++
		case lexer.RPAREN:
			if depth == 0 {
				p.advance()
				return
			}
			depth--
		}
		p.advance()
	}
}

// expectAdvance reports an error if cur doesn't match kind, then advances
// past it regardless, so callers never get stuck.
func (p *Parser) expectAdvance(kind lexer.TokenKind, what string) lexer.Token {
	tok := p.cur
	if tok.Kind != kind {
		p.errorf(diag.CodeParserUnexpectedToken, tok.Span, "expected "+what+", found "+string(tok.Kind))
	}
	p.advance()
	return tok
}

// ParseProgram parses the entire token stream into a Program.
func (p *Parser) ParseProgram() *ast.Program {
	var forms []ast.Node
	for p.cur.Kind != lexer.EOF {
		forms = append(forms, p.parseTopLevelForm())
	}
	return p.fac.NewProgram(forms)
}

func (p *Parser) parseTopLevelForm() ast.Node {
	n := p.parseForm()
	if def, ok := n.(*ast.Define); ok {
		if sig, found := p.declarations[def.Name]; found {
			def.Declared = sig
		}
	}
	return n
}

// parseForm parses one expression-position form.
func (p *Parser) parseForm() ast.Node {
	switch p.cur.Kind {
	case lexer.LPAREN:
		return p.parseList()
	case lexer.QUOTE:
		start := p.cur.Span
		p.advance()
		d := p.parseDatum()
		q := p.fac.NewQuote(d)
		q.SetSpan(start)
		return q
	case lexer.BACKTICK:
		start := p.cur.Span
		p.advance()
		p.skipDatumLike()
		p.errorf(diag.CodeParserQuasiquoteUnsupported, start, "quasiquote is lexed but not lowered")
		return p.fac.NewErroneous("unsupported quasiquote")
	case lexer.COMMA, lexer.COMMA_AT:
		start := p.cur.Span
		p.advance()
		return p.errAt(start, "unquote outside quasiquote")
	case lexer.NUMBER, lexer.STRING, lexer.CHAR, lexer.BOOL, lexer.IDENTIFIER:
		return p.parseAtom()
	case lexer.HASH_LPAREN:
		start := p.cur.Span
		return p.errAt(start, "vector literal is only valid in a quoted context")
	case lexer.RPAREN, lexer.EOF:
		// The caller expected a form but the list is closing early (or
		// the input ran out). Don't advance or resynchronize here: the
		// enclosing list's own expectCloseParen/loop is what should
		// observe this token next, so a single missing-argument error
		// doesn't cascade into eating unrelated following forms.
		p.errorf(diag.CodeParserArity, p.cur.Span, "expected a form, found "+string(p.cur.Kind))
		return p.fac.NewErroneous("missing form")
	default:
		start := p.cur.Span
		msg := "unexpected token " + string(p.cur.Kind)
		p.advance()
		n := p.errAt(start, msg)
		p.recoverToBoundary()
		return n
	}
}

func (p *Parser) parseAtom() ast.Node {
	tok := p.cur
	switch tok.Kind {
	case lexer.NUMBER:
		p.advance()
		return p.numberNode(tok)
	case lexer.STRING:
		p.advance()
		n := p.fac.NewStringLiteral(mustAtoi(tok.Value))
		n.SetSpan(tok.Span)
		return n
	case lexer.CHAR:
		p.advance()
		r := rune(0)
		if len(tok.Value) > 0 {
			r = []rune(tok.Value)[0]
		}
		n := p.fac.NewCharLiteral(r)
		n.SetSpan(tok.Span)
		return n
	case lexer.BOOL:
		p.advance()
		n := p.fac.NewBoolLiteral(tok.Raw == "#t")
		n.SetSpan(tok.Span)
		return n
	case lexer.IDENTIFIER:
		p.advance()
		n := p.fac.NewIdentifier(mustAtoi(tok.Value), tok.Raw)
		n.SetSpan(tok.Span)
		return n
	default:
		p.advance()
		return p.errAt(tok.Span, "expected atom, found "+string(tok.Kind))
	}
}

func (p *Parser) numberNode(tok lexer.Token) ast.Node {
	isFloat := false
	for _, r := range tok.Raw {
		if r == '.' {
			isFloat = true
			break
		}
	}
	if isFloat {
		v, err := strconv.ParseFloat(tok.Raw, 64)
		if err != nil {
			p.errorf(diag.CodeParserUnexpectedToken, tok.Span, "malformed float literal: "+tok.Raw)
			v = 0
		}
		n := p.fac.NewFloatLiteral(v)
		n.SetSpan(tok.Span)
		return n
	}
	v, err := strconv.ParseInt(tok.Raw, 10, 64)
	if err != nil {
		p.errorf(diag.CodeParserUnexpectedToken, tok.Span, "malformed integer literal: "+tok.Raw)
		v = 0
	}
	n := p.fac.NewIntegerLiteral(v)
	n.SetSpan(tok.Span)
	return n
}

func mustAtoi(s string) int {
	n := 0
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}

// parseList parses a parenthesized form, dispatching by head token
// (spec.md §4.2).
func (p *Parser) parseList() ast.Node {
	start := p.cur.Span
	p.advance() // consume '('

	if p.cur.Kind == lexer.RPAREN {
		p.advance()
		n := p.fac.NewCall(nil, nil)
		n.SetSpan(start)
		p.errorf(diag.CodeParserArity, start, "empty form")
		return n
	}

	if p.cur.Kind == lexer.COLON {
		return p.parseTypeDeclaration(start)
	}

	if p.cur.Kind == lexer.KEYWORD {
		head := p.cur.Raw
		if specialForms[head] {
			n := p.dispatchSpecialForm(head, start)
			return n
		}
	}

	// Anything else, including `(name …)` identifiers shadowing special
	// form names only by coincidence, is a Call.
	return p.parseCall(start)
}

func (p *Parser) dispatchSpecialForm(head string, start lexer.Span) ast.Node {
	switch head {
	case "define":
		return p.parseDefine(start)
	case "lambda":
		return p.parseLambda(start)
	case "if":
		return p.parseIf(start)
	case "let":
		return p.parseLet(start, ast.LetPlain)
	case "let*":
		return p.parseLet(start, ast.LetStar)
	case "letrec":
		return p.parseLet(start, ast.LetRec)
	case "set!":
		return p.parseSet(start)
	case "begin":
		return p.parseBegin(start)
	case "quote":
		return p.parseQuoteForm(start)
	case "quasiquote":
		p.advance()
		p.skipDatumLike()
		p.expectCloseParen()
		p.errorf(diag.CodeParserQuasiquoteUnsupported, start, "quasiquote is lexed but not lowered")
		return p.fac.NewErroneous("unsupported quasiquote")
	case "and":
		return p.parseBoolOp(start, ast.BoolAnd)
	case "or":
		return p.parseBoolOp(start, ast.BoolOr)
	case "cond":
		return p.parseCond(start)
	case "case":
		return p.parseCase(start)
	case "when":
		return p.parseWhenUnless(start, true)
	case "unless":
		return p.parseWhenUnless(start, false)
	case "do":
		return p.parseDo(start)
	default:
		return p.parseCall(start)
	}
}

func (p *Parser) expectCloseParen() {
	if p.cur.Kind != lexer.RPAREN {
		p.errorf(diag.CodeParserUnterminatedList, p.cur.Span, "expected )")
		p.recoverToBoundary()
		return
	}
	p.advance()
}

func (p *Parser) parseCall(start lexer.Span) ast.Node {
	callee := p.parseForm()
	var args []ast.Node
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		args = append(args, p.parseForm())
	}
	p.expectCloseParen()
	n := p.fac.NewCall(callee, args)
	n.SetSpan(start)
	return n
}

// wrapBody implicitly wraps a multi-expression body in Begin (spec.md
// §4.2).
func (p *Parser) wrapBody(exprs []ast.Node, start lexer.Span) ast.Node {
	if len(exprs) == 1 {
		return exprs[0]
	}
	b := p.fac.NewBegin(exprs)
	b.SetSpan(start)
	return b
}

func (p *Parser) parseBodyUntilClose(start lexer.Span) ast.Node {
	var exprs []ast.Node
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		exprs = append(exprs, p.parseForm())
	}
	p.expectCloseParen()
	if len(exprs) == 0 {
		p.errorf(diag.CodeParserArity, start, "empty body")
		return p.fac.NewErroneous("empty body")
	}
	return p.wrapBody(exprs, start)
}
