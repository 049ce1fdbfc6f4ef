// Package debugprint renders the numbered AST back to source text.
// Printing a parsed program and re-lexing/re-parsing the result must
// reproduce an equal AST. internal/tui reuses Program to render the
// "numbered AST" and "resolved" panes of the inspector.
package debugprint

import (
	"fmt"
	"strings"

	"github.com/gosuda/basicstruct/internal/ast"
)

// Program renders a numbered ast.Program as BASIC source text, one line
// per LabelledGroup.
func Program(prog *ast.Program) string {
	var b strings.Builder
	for _, g := range prog.Groups {
		if g.Label >= 0 {
			fmt.Fprintf(&b, "%d ", g.Label)
		}
		for i, s := range g.Stmts {
			if i > 0 {
				b.WriteString(" : ")
			}
			b.WriteString(Stmt(s))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Stmt renders a single numbered-AST statement.
func Stmt(s ast.Stmt) string {
	switch v := s.(type) {
	case ast.PrintStmt:
		return "PRINT " + printItems(v.Items)
	case ast.InputStmt:
		return "INPUT " + strings.Join(v.Vars, ", ")
	case ast.LetStmt:
		return fmt.Sprintf("LET %s = %s", v.Var, Expr(v.Expr))
	case ast.IfStmt:
		return fmt.Sprintf("IF %s THEN %s", Condition(v.Cond), Stmt(v.Then))
	case ast.GotoStmt:
		return fmt.Sprintf("GOTO %d", v.Target)
	case ast.GosubStmt:
		return fmt.Sprintf("GOSUB %d", v.Target)
	case ast.ReturnStmt:
		return "RETURN"
	case ast.EndStmt:
		return "END"
	case ast.RemStmt:
		return "REM " + v.Text
	default:
		return fmt.Sprintf("<unknown statement %T>", s)
	}
}

func printItems(items []ast.PrintItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		if it.IsStr {
			parts[i] = `"` + it.Str + `"`
		} else {
			parts[i] = Expr(it.Expr)
		}
	}
	return strings.Join(parts, ", ")
}

// Condition renders a Condition as the "AND"/"OR"-joined chain of
// comparisons the parser's nested-IF form represents.
func Condition(c ast.Condition) string {
	joiner := " AND "
	if c.Join == ast.Or {
		joiner = " OR "
	}
	parts := make([]string, len(c.Comparisons))
	for i, cmp := range c.Comparisons {
		parts[i] = comparison(cmp)
	}
	return strings.Join(parts, joiner)
}

func comparison(cmp ast.Comparison) string {
	if cmp.Op == ast.BoolRef {
		if cmp.Negated {
			return "NOT " + Expr(cmp.Left)
		}
		return Expr(cmp.Left)
	}
	return fmt.Sprintf("%s %s %s", Expr(cmp.Left), string(cmp.Op), Expr(cmp.Right))
}

// Expr renders an arithmetic expression, reproducing the parentheses the
// parser recorded on a binary expression (BinExpr.Paren). Parentheses
// around a lone variable or number are not recorded, so they are not
// reproduced.
func Expr(e ast.Expr) string {
	switch v := e.(type) {
	case ast.Var:
		return v.Name
	case ast.Num:
		return fmt.Sprintf("%d", v.Value)
	case ast.BoolLit:
		if v.Value {
			return "TRUE"
		}
		return "FALSE"
	case ast.BinExpr:
		s := fmt.Sprintf("%s %s %s", Expr(v.Left), v.Op, Expr(v.Right))
		if v.Paren {
			return "(" + s + ")"
		}
		return s
	default:
		return fmt.Sprintf("<unknown expr %T>", e)
	}
}
