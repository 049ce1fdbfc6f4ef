package structure

import (
	"fmt"

	"github.com/gosuda/basicstruct/internal/ast"
)

// item is the structuring pass's own working unit: either a plain
// numbered statement (carried over from ast.LabelledGroup) or a loop
// already collapsed out of a run of items by collapseBackwardLoops. Kept
// local to this package (rather than reusing ast.LabelledGroup/ast.Stmt)
// because a collapsed loop is not itself a valid input-form ast.Stmt —
// ast.Stmt's marker method is unexported, so only package ast can grow
// new variants of it, and a structuring-internal "already a loop" marker
// has no business being one.
type item struct {
	label int // -1 if the source line carried no label
	stmt  ast.Stmt
	loop  *loopItem // non-nil when this item is a collapsed loop
}

// loopItem is a backward GOTO/IF-GOTO already collapsed into a loop
// body, still in un-structured item form so nested forward escapes
// inside it are resolved by a later recursive call.
type loopItem struct {
	body []item
	// cond is the loop's continuation condition for a do-while loop; nil
	// for a plain unconditional loop.
	cond *ast.Condition
}

func fromGroups(groups []ast.LabelledGroup) []item {
	items := make([]item, len(groups))
	for i, g := range groups {
		items[i] = item{label: g.Label, stmt: g.Stmts[0]}
	}
	return items
}

// flattenIf walks an IfStmt chain, accumulating the conjunction of
// conditions until it reaches a non-IfStmt leaf.
func flattenIf(s ast.Stmt) (cond ast.Condition, hasCond bool, leaf ast.Stmt) {
	for {
		ifs, ok := s.(ast.IfStmt)
		if !ok {
			return cond, hasCond, s
		}
		if !hasCond {
			cond = ifs.Cond
			hasCond = true
		} else {
			cond.Comparisons = append(append([]ast.Comparison(nil), cond.Comparisons...), ifs.Cond.Comparisons...)
		}
		s = ifs.Then
	}
}

// peelJump reports whether stmt (after flattening any IF chain) is a
// GOTO, and if so its guarding condition (nil if unconditional) and
// target line.
func peelJump(stmt ast.Stmt) (cond *ast.Condition, target int, isJump bool) {
	c, hasCond, leaf := flattenIf(stmt)
	g, ok := leaf.(ast.GotoStmt)
	if !ok {
		return nil, 0, false
	}
	if hasCond {
		return &c, g.Target, true
	}
	return nil, g.Target, true
}

// convertLeaf converts a single non-jump numbered statement (or an
// IF-chain terminating in one) into its structured equivalent.
func convertLeaf(stmt ast.Stmt) (ast.SStmt, error) {
	if ifs, ok := stmt.(ast.IfStmt); ok {
		cond, _, leaf := flattenIf(ifs)
		conv, err := convertLeaf(leaf)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, nil
		}
		return ast.SIf{Cond: cond, Then: []ast.SStmt{conv}}, nil
	}

	switch v := stmt.(type) {
	case ast.PrintStmt:
		return ast.SPrint{Items: v.Items}, nil
	case ast.InputStmt:
		return ast.SInput{Vars: v.Vars}, nil
	case ast.LetStmt:
		return ast.SLet{Var: v.Var, Expr: v.Expr}, nil
	case ast.GosubStmt:
		return ast.SCall{Proc: procName(v.Target)}, nil
	case ast.ReturnStmt:
		return ast.SReturn{}, nil
	case ast.EndStmt:
		return ast.SEnd{}, nil
	case ast.RemStmt:
		return nil, nil
	default:
		return nil, &StructureError{Msg: "unhandled statement in structured output"}
	}
}

func procName(target int) string {
	return fmt.Sprintf("f_%d", target)
}

// findLabel searches items for a label, returning its index.
func findLabel(items []item, label int) (int, bool) {
	for i, it := range items {
		if it.label == label {
			return i, true
		}
	}
	return 0, false
}
