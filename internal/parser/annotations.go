package parser

import (
	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/lexer"
)

// parseTypeExpr parses a type annotation term: an atomic name, or one of
// the composite forms `(-> args… ret)`, `(vector elem)`, `(pair car cdr)`.
func (p *Parser) parseTypeExpr() ast.TypeAnnotation {
	switch p.cur.Kind {
	case lexer.IDENTIFIER:
		tok := p.cur
		p.advance()
		if ann := ast.ParseAnnotationName(tok.Raw); ann != nil {
			return ann
		}
		p.errorf(diag.CodeParserMalformedAnnotation, tok.Span, "unknown type name: "+tok.Raw)
		return &ast.UnknownAnnotation{}

	case lexer.LPAREN:
		start := p.cur.Span
		p.advance()
		switch {
		case p.cur.Kind == lexer.ARROW:
			p.advance()
			var types []ast.TypeAnnotation
			for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
				types = append(types, p.parseTypeExpr())
			}
			p.expectCloseParen()
			if len(types) == 0 {
				p.errorf(diag.CodeParserMalformedAnnotation, start, "function type needs at least a return type")
				return &ast.FunctionAnnotation{}
			}
			return &ast.FunctionAnnotation{Params: types[:len(types)-1], Return: types[len(types)-1]}

		case p.cur.Kind == lexer.IDENTIFIER && p.cur.Raw == "vector":
			p.advance()
			elem := p.parseTypeExpr()
			p.expectCloseParen()
			return &ast.VectorAnnotation{Element: elem}

		case p.cur.Kind == lexer.IDENTIFIER && p.cur.Raw == "pair":
			p.advance()
			car := p.parseTypeExpr()
			cdr := p.parseTypeExpr()
			p.expectCloseParen()
			return &ast.PairAnnotation{Car: car, Cdr: cdr}

		default:
			p.errorf(diag.CodeParserMalformedAnnotation, start, "malformed type expression")
			p.recoverToBoundary()
			return &ast.UnknownAnnotation{}
		}

	default:
		tok := p.cur
		p.errorf(diag.CodeParserMalformedAnnotation, tok.Span, "expected type expression, found "+string(tok.Kind))
		p.advance()
		return &ast.UnknownAnnotation{}
	}
}

// parseFunctionTypeExpr parses a standalone `(-> args… ret)` signature, as
// used by `(: name (-> …))`.
func (p *Parser) parseFunctionTypeExpr() *ast.FunctionAnnotation {
	start := p.cur.Span
	if p.cur.Kind != lexer.LPAREN {
		p.errorf(diag.CodeParserMalformedAnnotation, start, "expected function type (-> …)")
		return &ast.FunctionAnnotation{}
	}
	ann := p.parseTypeExpr()
	fn, ok := ann.(*ast.FunctionAnnotation)
	if !ok {
		p.errorf(diag.CodeParserMalformedAnnotation, start, "expected function type (-> …)")
		return &ast.FunctionAnnotation{}
	}
	return fn
}

func (p *Parser) parseParameter() *ast.Parameter {
	if p.cur.Kind == lexer.LBRACKET {
		p.advance()
		nameTok := p.expectAdvance(lexer.IDENTIFIER, "parameter name")
		p.expectAdvance(lexer.COLON, ":")
		ann := p.parseTypeExpr()
		p.expectAdvance(lexer.RBRACKET, "]")
		return &ast.Parameter{Name: nameTok.Raw, InternedID: mustAtoi(nameTok.Value), Annotation: ann, BindingID: -1}
	}
	tok := p.expectAdvance(lexer.IDENTIFIER, "parameter name")
	return &ast.Parameter{Name: tok.Raw, InternedID: mustAtoi(tok.Value), BindingID: -1}
}

func (p *Parser) parseParamListInline() []*ast.Parameter {
	var params []*ast.Parameter
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		params = append(params, p.parseParameter())
	}
	return params
}
