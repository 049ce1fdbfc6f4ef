// Package resolve performs control-flow analysis over the numbered AST:
// it builds the label index and GOSUB target set, validates that every
// jump target resolves, and extracts each GOSUB target into its own
// procedure body before the structuring pass ever sees it. Separating
// procedure calls out first shrinks the set of jumps the structuring
// pass has to handle.
package resolve

import (
	"fmt"
	"sort"

	"github.com/gosuda/basicstruct/internal/ast"
)

// ResolveError reports a GOTO/GOSUB target that does not label any group,
// or a procedure whose body reaches outside its own extracted lines.
type ResolveError struct {
	Msg  string
	Line int // the BASIC line number involved, not a lexer source line
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve: %s (line %d)", e.Msg, e.Line)
}

// ProcedureSource is a GOSUB target's LabelledGroups, still in numbered
// form, ready for the structuring pass to turn into an ast.Procedure.
type ProcedureSource struct {
	Name   string // "f_<line>"
	Line   int
	Groups []ast.LabelledGroup
}

// Resolution is the result of control-flow analysis: the main program
// with every GOSUB target's groups removed, plus those extracted
// procedure sources.
type Resolution struct {
	Main       ast.Program
	Procedures []ProcedureSource
}

// Resolve runs control-flow analysis over prog.
func Resolve(prog *ast.Program) (*Resolution, error) {
	labelIndex := map[int]int{}
	for i, g := range prog.Groups {
		if g.Label >= 0 {
			labelIndex[g.Label] = i
		}
	}

	gosubTargets := map[int]bool{}
	if err := walkJumps(prog.Groups, labelIndex, gosubTargets); err != nil {
		return nil, err
	}

	targets := make([]int, 0, len(gosubTargets))
	for t := range gosubTargets {
		targets = append(targets, t)
	}
	sort.Ints(targets)

	extracted := map[int]bool{}
	var procs []ProcedureSource
	for _, t := range targets {
		start, ok := labelIndex[t]
		if !ok {
			return nil, &ResolveError{"unresolved label", t}
		}
		end, err := findProcedureEnd(prog.Groups, start)
		if err != nil {
			return nil, err
		}
		body := append([]ast.LabelledGroup(nil), prog.Groups[start:end+1]...)
		if err := validateProcedureJumps(body, labelIndex, start, end); err != nil {
			return nil, err
		}
		procs = append(procs, ProcedureSource{Name: fmt.Sprintf("f_%d", t), Line: t, Groups: body})
		for i := start; i <= end; i++ {
			extracted[i] = true
		}
	}

	var remaining []ast.LabelledGroup
	for i, g := range prog.Groups {
		if !extracted[i] {
			remaining = append(remaining, g)
		}
	}

	return &Resolution{Main: ast.Program{Groups: remaining}, Procedures: procs}, nil
}

// findProcedureEnd returns the index of the first RETURN encountered in
// sequential order starting at start.
func findProcedureEnd(groups []ast.LabelledGroup, start int) (int, error) {
	for i := start; i < len(groups); i++ {
		if containsReturn(groups[i].Stmts) {
			return i, nil
		}
	}
	return -1, &ResolveError{"GOSUB target procedure never reaches RETURN", groups[start].Label}
}

func containsReturn(stmts []ast.Stmt) bool {
	for _, s := range stmts {
		if stmtContainsReturn(s) {
			return true
		}
	}
	return false
}

func stmtContainsReturn(s ast.Stmt) bool {
	switch v := s.(type) {
	case ast.ReturnStmt:
		return true
	case ast.IfStmt:
		return stmtContainsReturn(v.Then)
	}
	return false
}

// walkJumps validates every GOTO/GOSUB target against labelIndex and
// records every GOSUB target into gosubTargets.
func walkJumps(groups []ast.LabelledGroup, labelIndex map[int]int, gosubTargets map[int]bool) error {
	for _, g := range groups {
		for _, s := range g.Stmts {
			if err := walkStmtJumps(s, labelIndex, gosubTargets); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkStmtJumps(s ast.Stmt, labelIndex map[int]int, gosubTargets map[int]bool) error {
	switch v := s.(type) {
	case ast.GotoStmt:
		if _, ok := labelIndex[v.Target]; !ok {
			return &ResolveError{"unresolved label", v.Target}
		}
	case ast.GosubStmt:
		if _, ok := labelIndex[v.Target]; !ok {
			return &ResolveError{"unresolved label", v.Target}
		}
		gosubTargets[v.Target] = true
	case ast.IfStmt:
		return walkStmtJumps(v.Then, labelIndex, gosubTargets)
	}
	return nil
}

// validateProcedureJumps rejects a GOTO inside [start,end] whose target
// line lies outside the procedure's own extracted group range.
func validateProcedureJumps(body []ast.LabelledGroup, labelIndex map[int]int, start, end int) error {
	for _, g := range body {
		for _, s := range g.Stmts {
			if err := validateStmtJump(s, labelIndex, start, end); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateStmtJump(s ast.Stmt, labelIndex map[int]int, start, end int) error {
	switch v := s.(type) {
	case ast.GotoStmt:
		idx := labelIndex[v.Target]
		if idx < start || idx > end {
			return &ResolveError{"GOTO inside a GOSUB procedure targets a line outside the procedure", v.Target}
		}
	case ast.IfStmt:
		return validateStmtJump(v.Then, labelIndex, start, end)
	}
	return nil
}
