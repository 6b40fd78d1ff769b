package parser

import (
	"github.com/eskemec-lang/eskemec/internal/ast"
	"github.com/eskemec-lang/eskemec/internal/diag"
	"github.com/eskemec-lang/eskemec/internal/lexer"
)

// parseDefine handles both `(define name value)` and the lambda-sugar
// `(define (name params…) body…)` (spec.md §4.2).
func (p *Parser) parseDefine(start lexer.Span) ast.Node {
	p.advance() // consume 'define'

	if p.cur.Kind == lexer.LPAREN {
		p.advance() // consume '('
		nameTok := p.expectAdvance(lexer.IDENTIFIER, "function name")
		params := p.parseParamListInline()
		p.expectCloseParen() // closes (name params…)
		body := p.parseBodyUntilClose(start)

		lambda := p.fac.NewLambda(params, nil, body)
		lambda.SetSpan(start)
		def := p.fac.NewDefine(nameTok.Raw, mustAtoi(nameTok.Value), lambda)
		def.SetSpan(start)
		return def
	}

	nameTok := p.expectAdvance(lexer.IDENTIFIER, "name")
	value := p.parseForm()
	p.expectCloseParen()
	def := p.fac.NewDefine(nameTok.Raw, mustAtoi(nameTok.Value), value)
	def.SetSpan(start)
	return def
}

func (p *Parser) parseLambda(start lexer.Span) ast.Node {
	p.advance() // consume 'lambda'
	p.expectAdvance(lexer.LPAREN, "parameter list")
	params := p.parseParamListInline()
	p.expectCloseParen()
	body := p.parseBodyUntilClose(start)
	n := p.fac.NewLambda(params, nil, body)
	n.SetSpan(start)
	return n
}

func (p *Parser) parseIf(start lexer.Span) ast.Node {
	p.advance() // consume 'if'
	test := p.parseForm()
	cons := p.parseForm()
	var alt ast.Node
	if p.cur.Kind != lexer.RPAREN {
		alt = p.parseForm()
	}
	p.expectCloseParen()
	n := p.fac.NewIf(test, cons, alt)
	n.SetSpan(start)
	return n
}

func (p *Parser) parseLet(start lexer.Span, kind ast.LetKind) ast.Node {
	p.advance() // consume 'let'/'let*'/'letrec'
	p.expectAdvance(lexer.LPAREN, "bindings list")
	var bindings []*ast.LetBinding
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		bindings = append(bindings, p.parseLetBinding())
	}
	p.expectCloseParen() // closes bindings list
	body := p.parseBodyUntilClose(start)
	n := p.fac.NewLet(kind, bindings, body)
	n.SetSpan(start)
	return n
}

func (p *Parser) parseLetBinding() *ast.LetBinding {
	p.expectAdvance(lexer.LPAREN, "binding")

	if p.cur.Kind == lexer.LBRACKET {
		p.advance()
		nameTok := p.expectAdvance(lexer.IDENTIFIER, "binding name")
		p.expectAdvance(lexer.COLON, ":")
		ann := p.parseTypeExpr()
		p.expectAdvance(lexer.RBRACKET, "]")
		value := p.parseForm()
		p.expectCloseParen()
		return &ast.LetBinding{Name: nameTok.Raw, InternedID: mustAtoi(nameTok.Value), Annotation: ann, Value: value, BindingID: -1}
	}

	nameTok := p.expectAdvance(lexer.IDENTIFIER, "binding name")
	value := p.parseForm()
	p.expectCloseParen()
	return &ast.LetBinding{Name: nameTok.Raw, InternedID: mustAtoi(nameTok.Value), Value: value, BindingID: -1}
}

func (p *Parser) parseSet(start lexer.Span) ast.Node {
	p.advance() // consume 'set!'
	nameTok := p.expectAdvance(lexer.IDENTIFIER, "identifier")
	target := p.fac.NewIdentifier(mustAtoi(nameTok.Value), nameTok.Raw)
	target.SetSpan(nameTok.Span)
	value := p.parseForm()
	p.expectCloseParen()
	n := p.fac.NewSet(target, value)
	n.SetSpan(start)
	return n
}

func (p *Parser) parseBegin(start lexer.Span) ast.Node {
	p.advance() // consume 'begin'
	var exprs []ast.Node
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		exprs = append(exprs, p.parseForm())
	}
	p.expectCloseParen()
	n := p.fac.NewBegin(exprs)
	n.SetSpan(start)
	return n
}

func (p *Parser) parseQuoteForm(start lexer.Span) ast.Node {
	p.advance() // consume 'quote'
	d := p.parseDatum()
	p.expectCloseParen()
	n := p.fac.NewQuote(d)
	n.SetSpan(start)
	return n
}

func (p *Parser) parseBoolOp(start lexer.Span, kind ast.BoolOpKind) ast.Node {
	p.advance() // consume 'and'/'or'
	var operands []ast.Node
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		operands = append(operands, p.parseForm())
	}
	p.expectCloseParen()
	n := p.fac.NewBoolOp(kind, operands)
	n.SetSpan(start)
	return n
}

type condClause struct {
	span   lexer.Span
	test   ast.Node
	isElse bool
	body   []ast.Node
}

// parseCond desugars `(cond (test expr…)… (else expr…))` into nested If
// nodes; cond is not its own AST variant.
func (p *Parser) parseCond(start lexer.Span) ast.Node {
	p.advance() // consume 'cond'
	var clauses []condClause
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		clauseStart := p.cur.Span
		p.expectAdvance(lexer.LPAREN, "cond clause")
		c := condClause{span: clauseStart}
		if p.cur.Kind == lexer.KEYWORD && p.cur.Raw == "else" {
			c.isElse = true
			p.advance()
		} else {
			c.test = p.parseForm()
		}
		for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
			c.body = append(c.body, p.parseForm())
		}
		p.expectCloseParen()
		clauses = append(clauses, c)
	}
	p.expectCloseParen()

	var result ast.Node
	for i := len(clauses) - 1; i >= 0; i-- {
		c := clauses[i]
		var consequent ast.Node
		if len(c.body) == 0 {
			consequent = p.fac.NewBoolLiteral(false)
		} else {
			consequent = p.wrapBody(c.body, c.span)
		}
		if c.isElse {
			result = consequent
			continue
		}
		ifNode := p.fac.NewIf(c.test, consequent, result)
		ifNode.SetSpan(c.span)
		result = ifNode
	}
	if result == nil {
		result = p.fac.NewErroneous("empty cond")
	}
	return result
}

type caseClause struct {
	span   lexer.Span
	datums []ast.Node
	body   []ast.Node
	isElse bool
}

// parseCase desugars `(case key ((d…) expr…)… (else expr…))` into a let
// binding the key once plus nested Ifs comparing it against each datum
// with the `=` intrinsic.
func (p *Parser) parseCase(start lexer.Span) ast.Node {
	p.advance() // consume 'case'
	keyExpr := p.parseForm()

	var clauses []caseClause
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		clauseStart := p.cur.Span
		p.expectAdvance(lexer.LPAREN, "case clause")
		c := caseClause{span: clauseStart}
		if p.cur.Kind == lexer.KEYWORD && p.cur.Raw == "else" {
			c.isElse = true
			p.advance()
		} else {
			p.expectAdvance(lexer.LPAREN, "case datum list")
			for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
				c.datums = append(c.datums, p.parseDatumAsExpr())
			}
			p.expectCloseParen()
		}
		for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
			c.body = append(c.body, p.parseForm())
		}
		p.expectCloseParen()
		clauses = append(clauses, c)
	}
	p.expectCloseParen()

	const keyName = "__case_key"
	keyID := int(p.interner.Intern(keyName))
	keyBinding := &ast.LetBinding{Name: keyName, InternedID: keyID, Value: keyExpr, BindingID: -1}

	var result ast.Node
	for i := len(clauses) - 1; i >= 0; i-- {
		c := clauses[i]
		var consequent ast.Node
		if len(c.body) == 0 {
			consequent = p.fac.NewBoolLiteral(false)
		} else {
			consequent = p.wrapBody(c.body, c.span)
		}
		if c.isElse {
			result = consequent
			continue
		}
		var comparisons []ast.Node
		for _, d := range c.datums {
			keyRef := p.fac.NewIdentifier(keyID, keyName)
			keyRef.SetSpan(c.span)
			eq := p.identFor("=")
			cmp := p.fac.NewCall(eq, []ast.Node{keyRef, d})
			cmp.SetSpan(c.span)
			comparisons = append(comparisons, cmp)
		}
		var test ast.Node
		if len(comparisons) == 1 {
			test = comparisons[0]
		} else {
			test = p.fac.NewBoolOp(ast.BoolOr, comparisons)
		}
		ifNode := p.fac.NewIf(test, consequent, result)
		ifNode.SetSpan(c.span)
		result = ifNode
	}
	if result == nil {
		result = p.fac.NewBoolLiteral(false)
	}

	letNode := p.fac.NewLet(ast.LetPlain, []*ast.LetBinding{keyBinding}, result)
	letNode.SetSpan(start)
	return letNode
}

func (p *Parser) identFor(name string) ast.Node {
	id := int(p.interner.Intern(name))
	return p.fac.NewIdentifier(id, name)
}

// parseWhenUnless desugars `when`/`unless` into If; neither is its own
// AST variant.
func (p *Parser) parseWhenUnless(start lexer.Span, isWhen bool) ast.Node {
	p.advance() // consume 'when'/'unless'
	test := p.parseForm()
	var body []ast.Node
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		body = append(body, p.parseForm())
	}
	p.expectCloseParen()

	var consequent ast.Node
	if len(body) == 0 {
		p.errorf(diag.CodeParserArity, start, "empty when/unless body")
		consequent = p.fac.NewBoolLiteral(false)
	} else {
		consequent = p.wrapBody(body, start)
	}

	var ifNode *ast.If
	if isWhen {
		ifNode = p.fac.NewIf(test, consequent, nil)
	} else {
		ifNode = p.fac.NewIf(test, p.fac.NewBoolLiteral(false), consequent)
	}
	ifNode.SetSpan(start)
	return ifNode
}

// parseDo desugars the iteration form into a letrec-bound loop lambda,
// following the standard named-let expansion of `do`.
func (p *Parser) parseDo(start lexer.Span) ast.Node {
	p.advance() // consume 'do'
	p.expectAdvance(lexer.LPAREN, "do variable list")

	type doVar struct {
		name string
		id   int
		init ast.Node
		step ast.Node
	}
	var vars []doVar
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		p.expectAdvance(lexer.LPAREN, "do variable clause")
		nameTok := p.expectAdvance(lexer.IDENTIFIER, "do variable")
		init := p.parseForm()
		var step ast.Node
		if p.cur.Kind != lexer.RPAREN {
			step = p.parseForm()
		} else {
			step = p.fac.NewIdentifier(mustAtoi(nameTok.Value), nameTok.Raw)
		}
		p.expectCloseParen()
		vars = append(vars, doVar{name: nameTok.Raw, id: mustAtoi(nameTok.Value), init: init, step: step})
	}
	p.expectCloseParen() // closes variable list

	p.expectAdvance(lexer.LPAREN, "do test clause")
	test := p.parseForm()
	var resultExprs []ast.Node
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		resultExprs = append(resultExprs, p.parseForm())
	}
	p.expectCloseParen()

	var body []ast.Node
	for p.cur.Kind != lexer.RPAREN && p.cur.Kind != lexer.EOF {
		body = append(body, p.parseForm())
	}
	p.expectCloseParen()

	const loopName = "__do_loop"
	loopID := int(p.interner.Intern(loopName))

	params := make([]*ast.Parameter, len(vars))
	for i, v := range vars {
		params[i] = &ast.Parameter{Name: v.name, InternedID: v.id, BindingID: -1}
	}

	recurArgs := make([]ast.Node, len(vars))
	for i, v := range vars {
		recurArgs[i] = v.step
	}
	recurCall := p.fac.NewCall(p.fac.NewIdentifier(loopID, loopName), recurArgs)

	falseBranchExprs := append(append([]ast.Node{}, body...), recurCall)
	falseBranch := p.wrapBody(falseBranchExprs, start)

	var trueBranch ast.Node
	if len(resultExprs) == 0 {
		trueBranch = p.fac.NewBoolLiteral(false)
	} else {
		trueBranch = p.wrapBody(resultExprs, start)
	}

	ifNode := p.fac.NewIf(test, trueBranch, falseBranch)
	lambdaNode := p.fac.NewLambda(params, nil, ifNode)
	lambdaNode.SetSpan(start)

	loopBinding := &ast.LetBinding{Name: loopName, InternedID: loopID, Value: lambdaNode, BindingID: -1}

	initArgs := make([]ast.Node, len(vars))
	for i, v := range vars {
		initArgs[i] = v.init
	}
	initialCall := p.fac.NewCall(p.fac.NewIdentifier(loopID, loopName), initArgs)

	letrecNode := p.fac.NewLet(ast.LetRec, []*ast.LetBinding{loopBinding}, initialCall)
	letrecNode.SetSpan(start)
	return letrecNode
}

// parseTypeDeclaration handles `(: name (-> arg-types… ret-type))`;
// `:` has already been observed as the current token by the caller.
func (p *Parser) parseTypeDeclaration(start lexer.Span) ast.Node {
	p.advance() // consume ':'
	nameTok := p.expectAdvance(lexer.IDENTIFIER, "declared name")
	sig := p.parseFunctionTypeExpr()
	p.expectCloseParen()
	decl := p.fac.NewTypeDeclaration(nameTok.Raw, mustAtoi(nameTok.Value), sig)
	decl.SetSpan(start)
	p.declarations[nameTok.Raw] = sig
	return decl
}
