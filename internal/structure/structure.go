// Package structure turns the label-resolved numbered AST into the
// structured AST the emitter consumes. collapseBackwardLoops folds every
// backward GOTO/IF-GOTO into a loop, innermost first; convert then turns
// same-block forward skips into plain if-nesting and forward jumps that
// escape the current block into a synthetic boolean plus
// SBreak/SBreakIf, bubbling any escape not resolved locally up to its
// caller.
package structure

import (
	"fmt"
	"sort"

	"github.com/gosuda/basicstruct/internal/ast"
	"github.com/gosuda/basicstruct/internal/resolve"
)

// StructureError reports control flow the pass could not turn into
// structured statements.
type StructureError struct {
	Msg string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("structure: %s", e.Msg)
}

// pendingEscape is a forward jump whose target lies outside the block
// currently being converted. tk is the synthetic boolean already minted
// and assigned true at the jump site; the caller either resolves it (the
// target is in its own block) or re-raises it after also breaking its
// own enclosing loop.
type pendingEscape struct {
	target int
	tk     string
}

// Structure runs the goto-elimination pass over a resolve.Resolution,
// producing the sole input the emitter needs.
func Structure(res *resolve.Resolution) (*ast.StructuredProgram, error) {
	env := newEnv()

	mainItems := collapseBackwardLoops(fromGroups(res.Main.Groups))
	entry, pending, err := convert(mainItems, 0, len(mainItems), env, false)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		return nil, &StructureError{"GOTO target never resolved within the main program"}
	}

	var procs []ast.Procedure
	for _, ps := range res.Procedures {
		items := collapseBackwardLoops(fromGroups(ps.Groups))
		body, ppending, err := convert(items, 0, len(items), env, false)
		if err != nil {
			return nil, err
		}
		if len(ppending) > 0 {
			return nil, &StructureError{"GOTO target never resolved within procedure " + ps.Name}
		}
		procs = append(procs, ast.Procedure{Name: ps.Name, Body: body})
	}

	return &ast.StructuredProgram{
		Entry:      entry,
		Procedures: procs,
		IntVars:    collectIntVars(entry, procs),
		BoolVars:   append([]string(nil), env.allBools...),
	}, nil
}

// collapseBackwardLoops repeatedly folds the smallest remaining backward
// GOTO/IF-GOTO span into a loopItem, which guarantees a nested loop is
// folded before its enclosing one.
func collapseBackwardLoops(items []item) []item {
	for {
		bestI, bestK, bestSpan := -1, -1, -1
		for i, it := range items {
			if it.loop != nil {
				continue
			}
			_, target, isJump := peelJump(it.stmt)
			if !isJump {
				continue
			}
			k, ok := findLabel(items[:i+1], target)
			if !ok {
				continue
			}
			span := i - k
			if bestI == -1 || span < bestSpan {
				bestI, bestK, bestSpan = i, k, span
			}
		}
		if bestI == -1 {
			return items
		}
		cond, _, _ := peelJump(items[bestI].stmt)
		body := append([]item(nil), items[bestK:bestI]...)
		loopIt := item{label: items[bestK].label, loop: &loopItem{body: body, cond: cond}}

		next := append([]item(nil), items[:bestK]...)
		next = append(next, loopIt)
		next = append(next, items[bestI+1:]...)
		items = next
	}
}

// convert renders all[lo:hi] into structured statements. all is the
// entire flat item list for this nesting level, so a forward-skip target
// outside [lo,hi) is still found by label lookup. inLoop reports whether
// the block being built is itself a loop body.
func convert(all []item, lo, hi int, env *env, inLoop bool) ([]ast.SStmt, []pendingEscape, error) {
	var out []ast.SStmt
	var pending []pendingEscape

	i := lo
	for i < hi {
		it := all[i]

		if it.loop != nil {
			bodyStmts, bodyPending, err := processLoopBody(it.loop, env)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, ast.SLoop{Body: bodyStmts})
			i++

			for _, p := range bodyPending {
				if k, found := findLabel(all, p.target); found {
					innerStmts, innerPending, err := convert(all, i, k, env, inLoop)
					if err != nil {
						return nil, nil, err
					}
					if len(innerStmts) > 0 {
						out = append(out, ast.SIf{Cond: ast.BoolCond(p.tk, true), Then: innerStmts})
					}
					pending = append(pending, innerPending...)
					i = k
				} else {
					if inLoop {
						out = append(out, ast.SBreakIf{Cond: ast.BoolCond(p.tk, false)})
					}
					pending = append(pending, p)
				}
			}
			continue
		}

		cond, target, isJump := peelJump(it.stmt)
		if !isJump {
			conv, err := convertLeaf(it.stmt)
			if err != nil {
				return nil, nil, err
			}
			if conv != nil {
				out = append(out, conv)
			}
			i++
			continue
		}

		if k, found := findLabel(all, target); found {
			innerStmts, innerPending, err := convert(all, i+1, k, env, inLoop)
			if err != nil {
				return nil, nil, err
			}
			if len(innerStmts) > 0 {
				var wrapCond ast.Condition
				if cond != nil {
					wrapCond = cond.Negate()
				} else {
					wrapCond = ast.LitCond(false)
				}
				out = append(out, ast.SIf{Cond: wrapCond, Then: innerStmts})
			}
			pending = append(pending, innerPending...)
			i = k
			continue
		}

		tk := env.boolFor(target)
		guard := []ast.SStmt{ast.SLetBool{Var: tk, Cond: ast.LitCond(true)}}
		if inLoop {
			guard = append(guard, ast.SBreak{})
		}
		if cond != nil {
			out = append(out, ast.SIf{Cond: *cond, Then: guard})
			pending = append(pending, pendingEscape{target: target, tk: tk})
			i++
			continue
		}
		out = append(out, guard...)
		pending = append(pending, pendingEscape{target: target, tk: tk})
		break
	}

	return out, pending, nil
}

// processLoopBody converts a collapsed loop's body, appends the
// do-while exit check for a conditional backward jump, and resets every
// synthetic boolean this body reads or writes at the top of the body so
// a stale true from a previous iteration can't leak in.
func processLoopBody(l *loopItem, env *env) ([]ast.SStmt, []pendingEscape, error) {
	stmts, pending, err := convert(l.body, 0, len(l.body), env, true)
	if err != nil {
		return nil, nil, err
	}
	if l.cond != nil {
		stmts = append(stmts, ast.SBreakIf{Cond: l.cond.Negate()})
	}
	used := usedBools(stmts)
	if len(used) > 0 {
		resets := make([]ast.SStmt, len(used))
		for i, name := range used {
			resets[i] = ast.SLetBool{Var: name, Cond: ast.LitCond(false)}
		}
		stmts = append(resets, stmts...)
	}
	return stmts, pending, nil
}

// usedBools returns, in first-seen order, every synthetic boolean name
// referenced anywhere within stmts.
func usedBools(stmts []ast.SStmt) []string {
	seen := map[string]bool{}
	var names []string
	var walkCond func(c ast.Condition)
	walkCond = func(c ast.Condition) {
		for _, cmp := range c.Comparisons {
			if cmp.Op != ast.BoolRef {
				continue
			}
			if v, ok := cmp.Left.(ast.Var); ok && !seen[v.Name] {
				seen[v.Name] = true
				names = append(names, v.Name)
			}
		}
	}
	var walk func(s ast.SStmt)
	walk = func(s ast.SStmt) {
		switch v := s.(type) {
		case ast.SLetBool:
			if !seen[v.Var] {
				seen[v.Var] = true
				names = append(names, v.Var)
			}
			walkCond(v.Cond)
		case ast.SIf:
			walkCond(v.Cond)
			for _, t := range v.Then {
				walk(t)
			}
			for _, e := range v.Else {
				walk(e)
			}
		case ast.SLoop:
			for _, b := range v.Body {
				walk(b)
			}
		case ast.SBreakIf:
			walkCond(v.Cond)
		}
	}
	for _, s := range stmts {
		walk(s)
	}
	return names
}

// collectIntVars gathers, in sorted order, every variable name assigned
// by a LET or read into by an INPUT anywhere in the program.
func collectIntVars(entry []ast.SStmt, procs []ast.Procedure) []string {
	seen := map[string]bool{}
	var walk func(s ast.SStmt)
	walk = func(s ast.SStmt) {
		switch v := s.(type) {
		case ast.SLet:
			seen[v.Var] = true
		case ast.SInput:
			for _, name := range v.Vars {
				seen[name] = true
			}
		case ast.SIf:
			for _, t := range v.Then {
				walk(t)
			}
			for _, e := range v.Else {
				walk(e)
			}
		case ast.SLoop:
			for _, b := range v.Body {
				walk(b)
			}
		}
	}
	for _, s := range entry {
		walk(s)
	}
	for _, p := range procs {
		for _, s := range p.Body {
			walk(s)
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
