// Package parser implements a recursive-descent parser: tokens in, a
// numbered ast.Program out.
package parser

import (
	"fmt"
	"strconv"

	"github.com/gosuda/basicstruct/internal/ast"
	"github.com/gosuda/basicstruct/internal/lexer"
	"github.com/gosuda/basicstruct/internal/token"
)

// ParseError reports an unexpected token or malformed grammar form.
type ParseError struct {
	Msg  string
	Line int
	Col  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s [line %d:%d]", e.Msg, e.Line, e.Col)
}

// Parser consumes a token stream and builds the numbered AST.
type Parser struct {
	toks []token.Token
	pos  int
}

// Parse lexes and parses a complete BASIC source into a numbered
// ast.Program.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.New(src).Tokens()
	if err != nil {
		return nil, err
	}
	return New(toks).ParseProgram()
}

// New builds a Parser over an already-lexed token stream.
func New(toks []token.Token) *Parser {
	return &Parser{toks: toks}
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) atEOF() bool       { return p.cur().Kind == token.EOF }
func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(format string, args ...any) error {
	t := p.cur()
	return &ParseError{fmt.Sprintf(format, args...), t.Line, t.Col}
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.cur().Kind != k {
		return token.Token{}, p.errorf("expected %s, got %s %q", k, p.cur().Kind, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(word string) error {
	t := p.cur()
	if t.Kind != token.KEYWORD || t.Lexeme != word {
		return p.errorf("expected %s, got %q", word, t.Lexeme)
	}
	p.advance()
	return nil
}

func (p *Parser) atKeyword(word string) bool {
	return p.cur().Kind == token.KEYWORD && p.cur().Lexeme == word
}

// skipNewlines consumes blank lines between statements.
func (p *Parser) skipNewlines() {
	for p.cur().Kind == token.NEWLINE {
		p.advance()
	}
}

// ParseProgram parses `line+` into the ordered sequence of LabelledGroups.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	var groups []ast.LabelledGroup
	p.skipNewlines()
	for !p.atEOF() {
		g, err := p.parseLine()
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
		p.skipNewlines()
	}
	return &ast.Program{Groups: groups}, nil
}

// parseLine parses `[NUMBER] statement NEWLINE`.
func (p *Parser) parseLine() (ast.LabelledGroup, error) {
	label := -1
	if p.cur().Kind == token.NUMBER {
		n, err := strconv.Atoi(p.advance().Lexeme)
		if err != nil {
			return ast.LabelledGroup{}, p.errorf("malformed line number")
		}
		label = n
	}

	stmt, err := p.parseStatement()
	if err != nil {
		return ast.LabelledGroup{}, err
	}

	if !p.atEOF() && p.cur().Kind != token.NEWLINE {
		return ast.LabelledGroup{}, p.errorf("expected end of line, got %q", p.cur().Lexeme)
	}

	return ast.LabelledGroup{Label: label, Stmts: []ast.Stmt{stmt}}, nil
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	t := p.cur()
	switch {
	case t.Kind == token.REM:
		p.advance()
		return ast.RemStmt{Text: t.Lexeme}, nil
	case t.Kind == token.KEYWORD:
		switch t.Lexeme {
		case "PRINT":
			p.advance()
			return p.parsePrint()
		case "INPUT":
			p.advance()
			return p.parseInput()
		case "LET":
			p.advance()
			return p.parseLet()
		case "IF":
			p.advance()
			return p.parseIf()
		case "GOTO":
			p.advance()
			n, err := p.parseLineNumber()
			if err != nil {
				return nil, err
			}
			return ast.GotoStmt{Target: n}, nil
		case "GOSUB":
			p.advance()
			n, err := p.parseLineNumber()
			if err != nil {
				return nil, err
			}
			return ast.GosubStmt{Target: n}, nil
		case "RETURN":
			p.advance()
			return ast.ReturnStmt{}, nil
		case "END":
			p.advance()
			return ast.EndStmt{}, nil
		}
	}
	return nil, p.errorf("unexpected token %q", t.Lexeme)
}

func (p *Parser) parseLineNumber() (int, error) {
	tok, err := p.expect(token.NUMBER)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(tok.Lexeme)
	if convErr != nil {
		return 0, &ParseError{"malformed line number", tok.Line, tok.Col}
	}
	return n, nil
}

// parsePrint parses `expr-list`.
func (p *Parser) parsePrint() (ast.Stmt, error) {
	var items []ast.PrintItem
	for {
		if p.cur().Kind == token.STRING {
			items = append(items, ast.PrintItem{Str: p.advance().Lexeme, IsStr: true})
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, ast.PrintItem{Expr: e})
		}
		if p.cur().Kind == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	return ast.PrintStmt{Items: items}, nil
}

// parseInput parses `var-list`.
func (p *Parser) parseInput() (ast.Stmt, error) {
	var vars []string
	for {
		v, err := p.expect(token.VAR)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v.Lexeme)
		if p.cur().Kind == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	return ast.InputStmt{Vars: vars}, nil
}

// parseLet parses `VAR = expression`.
func (p *Parser) parseLet() (ast.Stmt, error) {
	v, err := p.expect(token.VAR)
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.RELOP || p.cur().Lexeme != "=" {
		return nil, p.errorf("expected assignment operator (=)")
	}
	p.advance()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.LetStmt{Var: v.Lexeme, Expr: e}, nil
}

// parseIf parses `expression relop expression THEN statement`, recursing
// when the THEN-body is itself an IF so the chain is preserved as nesting.
func (p *Parser) parseIf() (ast.Stmt, error) {
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.RELOP {
		return nil, p.errorf("expected relational operator, got %q", p.cur().Lexeme)
	}
	op := ast.RelOp(p.advance().Lexeme)
	right, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("THEN"); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return ast.IfStmt{Cond: ast.SimpleCond(left, op, right), Then: then}, nil
}

// parseExpr parses `term ((+|-) term)*`.
func (p *Parser) parseExpr() (ast.Expr, error) {
	node, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.ARITHOP && (p.cur().Lexeme == "+" || p.cur().Lexeme == "-") {
		op := p.advance().Lexeme
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		node = ast.BinExpr{Left: node, Op: op, Right: rhs}
	}
	return node, nil
}

// parseTerm parses `factor ((*|/) factor)*`.
func (p *Parser) parseTerm() (ast.Expr, error) {
	node, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.ARITHOP && (p.cur().Lexeme == "*" || p.cur().Lexeme == "/") {
		op := p.advance().Lexeme
		rhs, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		node = ast.BinExpr{Left: node, Op: op, Right: rhs}
	}
	return node, nil
}

// parseFactor parses `VAR | NUMBER | "(" expression ")"`.
func (p *Parser) parseFactor() (ast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case token.VAR:
		p.advance()
		return ast.Var{Name: t.Lexeme}, nil
	case token.NUMBER:
		p.advance()
		n, err := strconv.ParseInt(t.Lexeme, 10, 64)
		if err != nil {
			return nil, &ParseError{"malformed number", t.Line, t.Col}
		}
		return ast.Num{Value: n}, nil
	case token.LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		if be, ok := e.(ast.BinExpr); ok {
			be.Paren = true
			return be, nil
		}
		return e, nil
	}
	return nil, p.errorf("expected variable, number or '(', got %q", t.Lexeme)
}
