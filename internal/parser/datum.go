package parser

import (
	"strconv"
	"strings"

	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/lexer"
)

// parseDatum parses the restricted quoted-datum grammar (spec.md §4.2):
// literals, symbols, proper lists, dotted pairs, plus the supplemental
// #(...) vector-literal form.
func (p *Parser) parseDatum() ast.Datum {
	switch p.cur.Kind {
	case lexer.NUMBER:
		tok := p.cur
		p.advance()
		if strings.ContainsRune(tok.Raw, '.') {
			v, _ := strconv.ParseFloat(tok.Raw, 64)
			n := p.fac.NewDatumFloat(v)
			n.SetSpan(tok.Span)
			return n
		}
		v, _ := strconv.ParseInt(tok.Raw, 10, 64)
		n := p.fac.NewDatumInteger(v)
		n.SetSpan(tok.Span)
		return n

	case lexer.STRING:
		tok := p.cur
		p.advance()
		n := p.fac.NewDatumString(mustAtoi(tok.Value))
		n.SetSpan(tok.Span)
		return n

	case lexer.BOOL:
		tok := p.cur
		p.advance()
		n := p.fac.NewDatumBool(tok.Raw == "#t")
		n.SetSpan(tok.Span)
		return n

	case lexer.IDENTIFIER, lexer.KEYWORD, lexer.COLON, lexer.ARROW:
		tok := p.cur
		p.advance()
		id := p.interner.Intern(tok.Raw)
		n := p.fac.NewDatumSymbol(int(id), tok.Raw)
		n.SetSpan(tok.Span)
		return n

	case lexer.LPAREN:
		return p.parseDatumList()

	case lexer.HASH_LPAREN:
		return p.parseDatumVector()

	default:
		tok := p.cur
		p.advance()
		p.errorf(diag.CodeParserUnexpectedToken, tok.Span, "invalid quoted datum: "+string(tok.Kind))
		return p.fac.NewDatumNil()
	}
}

func (p *Parser) parseDatumList() ast.Datum {
	start := p.cur.Span
	p.advance() // consume '('

	if p.cur.Kind == lexer.RPAREN {
		p.advance()
		n := p.fac.NewDatumNil()
		n.SetSpan(start)
		return n
	}

	var elems []ast.Datum
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.DOT && p.cur.Kind != lexer.EOF {
		elems = append(elems, p.parseDatum())
	}

	var tail ast.Datum
	if p.cur.Kind == lexer.DOT {
		p.advance()
		tail = p.parseDatum()
	} else {
		n := p.fac.NewDatumNil()
		n.SetSpan(start)
		tail = n
	}
	p.expectCloseParen()

	result := tail
	for i := len(elems) - 1; i >= 0; i-- {
		pair := p.fac.NewDatumPair(elems[i], result)
		pair.SetSpan(start)
		result = pair
	}
	return result
}

func (p *Parser) parseDatumVector() ast.Datum {
	start := p.cur.Span
	p.advance() // consume '#('
	var elems []ast.Datum
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		elems = append(elems, p.parseDatum())
	}
	p.expectCloseParen()
	n := p.fac.NewDatumVector(elems)
	n.SetSpan(start)
	return n
}

// parseDatumAsExpr reads a `case` clause datum as an expression node:
// literals parse directly, bare words become a quoted symbol so they
// compare by identity rather than resolving as a binding reference.
func (p *Parser) parseDatumAsExpr() ast.Node {
	switch p.cur.Kind {
	case lexer.NUMBER, lexer.STRING, lexer.CHAR, lexer.BOOL:
		return p.parseAtom()
	case lexer.IDENTIFIER, lexer.KEYWORD:
		tok := p.cur
		p.advance()
		id := p.interner.Intern(tok.Raw)
		sym := p.fac.NewDatumSymbol(int(id), tok.Raw)
		sym.SetSpan(tok.Span)
		q := p.fac.NewQuote(sym)
		q.SetSpan(tok.Span)
		return q
	default:
		tok := p.cur
		p.advance()
		return p.errAt(tok.Span, "invalid case datum")
	}
}

// skipDatumLike consumes one balanced datum-shaped token run without
// building a tree, used to resynchronize past a rejected quasiquote body.
func (p *Parser) skipDatumLike() {
	switch p.cur.Kind {
	case lexer.LPAREN, lexer.HASH_LPAREN:
		depth := 1
		p.advance()
		for depth > 0 && p.cur.Kind != lexer.EOF {
			switch p.cur.Kind {
			case lexer.LPAREN, lexer.HASH_LPAREN:
				depth++
			case lexer.RPAREN:
				depth--
			}
			p.advance()
		}
	case lexer.QUOTE, lexer.BACKTICK, lexer.COMMA, lexer.COMMA_AT:
		p.advance()
		p.skipDatumLike()
	default:
		p.advance()
	}
}
