package structure_test

import (
	"testing"

	"github.com/gosuda/basicstruct/internal/ast"
	"github.com/gosuda/basicstruct/internal/parser"
	"github.com/gosuda/basicstruct/internal/resolve"
	"github.com/gosuda/basicstruct/internal/structure"
)

func build(t *testing.T, src string) *ast.StructuredProgram {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	res, err := resolve.Resolve(prog)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	out, err := structure.Structure(res)
	if err != nil {
		t.Fatalf("structure failed: %v", err)
	}
	return out
}

// noGotos walks a structured tree. Its real assertion is at compile
// time: ast.SStmt has no Goto variant, so nothing here can ever be one —
// this just exercises the recursive shape.
func noGotos(t *testing.T, stmts []ast.SStmt) {
	t.Helper()
	for _, s := range stmts {
		switch v := s.(type) {
		case ast.SIf:
			noGotos(t, v.Then)
			noGotos(t, v.Else)
		case ast.SLoop:
			noGotos(t, v.Body)
		}
	}
}

// TestStructureUnconditionalBackwardLoop covers case C3: an unconditional
// backward GOTO folds into a bare loop with no synthesized exit.
func TestStructureUnconditionalBackwardLoop(t *testing.T) {
	out := build(t, "10 PRINT \"HI\"\n20 GOTO 10\n")
	noGotos(t, out.Entry)
	if len(out.Entry) != 1 {
		t.Fatalf("entry = %+v, want a single loop statement", out.Entry)
	}
	loop, ok := out.Entry[0].(ast.SLoop)
	if !ok {
		t.Fatalf("entry[0] = %T, want ast.SLoop", out.Entry[0])
	}
	if len(loop.Body) != 1 {
		t.Fatalf("loop body = %+v, want a single print", loop.Body)
	}
	if _, ok := loop.Body[0].(ast.SPrint); !ok {
		t.Fatalf("loop body[0] = %T, want ast.SPrint", loop.Body[0])
	}
}

// TestStructureFibonacciDoWhile covers case C4: a backward IF...GOTO
// folds into a loop with the negated continuation condition as a
// trailing break.
func TestStructureFibonacciDoWhile(t *testing.T) {
	src := `10 LET A = 0
20 LET B = 1
30 PRINT A
40 LET C = A + B
50 LET A = B
60 LET B = C
70 IF A < 100 THEN GOTO 30
80 END
`
	out := build(t, src)
	noGotos(t, out.Entry)
	if len(out.Entry) != 4 {
		t.Fatalf("entry length = %d, want 4 (two lets, a loop, an end)", len(out.Entry))
	}
	loop, ok := out.Entry[2].(ast.SLoop)
	if !ok {
		t.Fatalf("entry[2] = %T, want ast.SLoop", out.Entry[2])
	}
	last := loop.Body[len(loop.Body)-1]
	breakIf, ok := last.(ast.SBreakIf)
	if !ok {
		t.Fatalf("last loop statement = %T, want ast.SBreakIf", last)
	}
	cmp := breakIf.Cond.Comparisons[0]
	if cmp.Op != ast.RelGE {
		t.Fatalf("break condition op = %s, want >= (negation of <)", cmp.Op)
	}
	if _, ok := out.Entry[3].(ast.SEnd); !ok {
		t.Fatalf("entry[3] = %T, want ast.SEnd", out.Entry[3])
	}
}

// TestStructureSameBlockForwardSkip covers case C5: a forward jump whose
// target is in the same block is rewritten as a negated-condition if
// around the skipped statements, with no synthetic boolean.
func TestStructureSameBlockForwardSkip(t *testing.T) {
	src := `10 LET A = 1
20 IF A = 1 THEN GOTO 50
30 PRINT "SKIPPED"
40 PRINT "ALSO SKIPPED"
50 PRINT "AFTER"
60 END
`
	out := build(t, src)
	noGotos(t, out.Entry)
	if len(out.BoolVars) != 0 {
		t.Fatalf("bool vars = %v, want none for a pure same-block skip", out.BoolVars)
	}
	skip, ok := out.Entry[1].(ast.SIf)
	if !ok {
		t.Fatalf("entry[1] = %T, want ast.SIf", out.Entry[1])
	}
	cmp := skip.Cond.Comparisons[0]
	if cmp.Op != ast.RelNE {
		t.Fatalf("guard op = %s, want <> (negation of =)", cmp.Op)
	}
	if len(skip.Then) != 2 {
		t.Fatalf("skipped block = %+v, want the two skipped prints", skip.Then)
	}
	if _, ok := out.Entry[2].(ast.SPrint); !ok {
		t.Fatalf("entry[2] = %T, want the AFTER print", out.Entry[2])
	}
}

// TestStructureChainedIfSameBlockSkip covers a chained IF...THEN IF
// condition (the hurkle style) used as a same-block skip guard: the
// structural negation applies De Morgan across the conjunction.
func TestStructureChainedIfSameBlockSkip(t *testing.T) {
	src := `10 IF A > 0 THEN IF B > 0 THEN GOTO 50
20 PRINT "SKIP"
50 PRINT "AFTER"
60 END
`
	out := build(t, src)
	noGotos(t, out.Entry)
	skip, ok := out.Entry[0].(ast.SIf)
	if !ok {
		t.Fatalf("entry[0] = %T, want ast.SIf", out.Entry[0])
	}
	if skip.Cond.Join != ast.Or {
		t.Fatalf("negated join = %v, want Or (De Morgan on an And chain)", skip.Cond.Join)
	}
	if len(skip.Cond.Comparisons) != 2 {
		t.Fatalf("comparisons = %+v, want 2", skip.Cond.Comparisons)
	}
	if skip.Cond.Comparisons[0].Op != ast.RelLE || skip.Cond.Comparisons[1].Op != ast.RelLE {
		t.Fatalf("comparisons = %+v, want both negated to <=", skip.Cond.Comparisons)
	}
}

// TestStructureForwardEscapeFromLoop covers case C1: a conditional GOTO
// inside a loop whose target lies after the loop must synthesize a
// boolean, break, and guard the statements between the loop and the
// target with its negation.
func TestStructureForwardEscapeFromLoop(t *testing.T) {
	src := `10 LET A = 0
20 LET A = A + 1
30 IF A = 5 THEN GOTO 100
40 IF A < 10 THEN GOTO 20
100 PRINT "DONE"
110 END
`
	out := build(t, src)
	noGotos(t, out.Entry)
	if len(out.BoolVars) != 1 {
		t.Fatalf("bool vars = %v, want exactly one synthetic boolean", out.BoolVars)
	}
	tk := out.BoolVars[0]

	loop, ok := out.Entry[1].(ast.SLoop)
	if !ok {
		t.Fatalf("entry[1] = %T, want ast.SLoop", out.Entry[1])
	}
	reset, ok := loop.Body[0].(ast.SLetBool)
	if !ok || reset.Var != tk || reset.Cond.Comparisons[0].Left != (ast.BoolLit{Value: false}) {
		t.Fatalf("loop body does not reset %s to false at top: %+v", tk, loop.Body[0])
	}
	escape, ok := loop.Body[2].(ast.SIf)
	if !ok {
		t.Fatalf("loop body[2] = %T, want the escape ast.SIf", loop.Body[2])
	}
	if len(escape.Then) != 2 {
		t.Fatalf("escape THEN = %+v, want set-true then break", escape.Then)
	}
	if _, ok := escape.Then[1].(ast.SBreak); !ok {
		t.Fatalf("escape THEN[1] = %T, want ast.SBreak", escape.Then[1])
	}

	// Nothing sits between the loop and the target in this program, so
	// the escape resolves with no wrapping if at all: DONE follows
	// directly.
	if _, ok := out.Entry[2].(ast.SPrint); !ok {
		t.Fatalf("entry[2] = %T, want the DONE print immediately after the loop", out.Entry[2])
	}
}

// TestStructureNestedLoopEscape covers a forward escape that must cross
// two loop boundaries (the lunar-lander style early exit): the same
// synthetic boolean is tested by an SBreakIf at each loop it must also
// terminate on its way out.
func TestStructureNestedLoopEscape(t *testing.T) {
	src := `10 LET N = 0
20 LET N = N + 1
30 LET M = 0
40 LET M = M + 1
50 IF M = 3 THEN GOTO 200
60 IF M < 5 THEN GOTO 40
70 IF N < 5 THEN GOTO 20
200 PRINT "DONE"
210 END
`
	out := build(t, src)
	noGotos(t, out.Entry)
	if len(out.BoolVars) != 1 {
		t.Fatalf("bool vars = %v, want exactly one synthetic boolean", out.BoolVars)
	}
	tk := out.BoolVars[0]

	outerLoop, ok := out.Entry[1].(ast.SLoop)
	if !ok {
		t.Fatalf("entry[1] = %T, want the outer ast.SLoop", out.Entry[1])
	}

	var innerLoop ast.SLoop
	foundInner := false
	var trailingBreakIf ast.SBreakIf
	foundBreakIf := false
	for _, s := range outerLoop.Body {
		if l, ok := s.(ast.SLoop); ok {
			innerLoop, foundInner = l, true
		}
		if b, ok := s.(ast.SBreakIf); ok {
			if cmp := b.Cond.Comparisons[0]; cmp.Op == ast.BoolRef {
				trailingBreakIf, foundBreakIf = b, true
			}
		}
	}
	if !foundInner {
		t.Fatalf("outer loop body = %+v, want a nested loop", outerLoop.Body)
	}
	if !foundBreakIf {
		t.Fatalf("outer loop body = %+v, want a break-if guarding the synthetic boolean", outerLoop.Body)
	}
	if trailingBreakIf.Cond.Comparisons[0].Left.(ast.Var).Name != tk {
		t.Fatalf("outer break-if tests %+v, want %s", trailingBreakIf.Cond, tk)
	}

	foundSetTrue := false
	for _, s := range innerLoop.Body {
		ifs, ok := s.(ast.SIf)
		if !ok {
			continue
		}
		for _, then := range ifs.Then {
			if lb, ok := then.(ast.SLetBool); ok && lb.Var == tk {
				foundSetTrue = true
			}
		}
	}
	if !foundSetTrue {
		t.Fatalf("inner loop body = %+v, want an assignment of true to %s", innerLoop.Body, tk)
	}

	// Nothing follows the outer loop before DONE, so the escape
	// resolves with no extra wrapping at the top level either.
	if _, ok := out.Entry[2].(ast.SPrint); !ok {
		t.Fatalf("entry[2] = %T, want the DONE print immediately after the outer loop", out.Entry[2])
	}
}

// TestStructureGosubProcedureExtraction checks that a GOSUB becomes an
// SCall into its own ast.Procedure, terminated by RETURN.
func TestStructureGosubProcedureExtraction(t *testing.T) {
	src := `10 GOSUB 100
20 PRINT "AFTER"
30 END
100 PRINT "IN PROC"
110 RETURN
`
	out := build(t, src)
	noGotos(t, out.Entry)
	call, ok := out.Entry[0].(ast.SCall)
	if !ok || call.Proc != "f_100" {
		t.Fatalf("entry[0] = %+v, want SCall{f_100}", out.Entry[0])
	}
	if len(out.Procedures) != 1 || out.Procedures[0].Name != "f_100" {
		t.Fatalf("procedures = %+v, want one f_100", out.Procedures)
	}
	body := out.Procedures[0].Body
	if _, ok := body[len(body)-1].(ast.SReturn); !ok {
		t.Fatalf("procedure body ends with %T, want ast.SReturn", body[len(body)-1])
	}
}
