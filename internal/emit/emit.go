// Package emit renders a structured AST as readable pseudocode text. It
// is deliberately not a full code generator for any one target
// language, but something has to witness that a StructuredProgram is
// usable end to end. Variable names are lowercased on output.
package emit

import (
	"fmt"
	"strings"

	"github.com/gosuda/basicstruct/internal/ast"
	"github.com/gosuda/basicstruct/internal/debugprint"
)

// Program renders a full StructuredProgram: variable declarations, every
// procedure, then the entry block.
func Program(p *ast.StructuredProgram) string {
	var b strings.Builder

	for _, name := range p.IntVars {
		fmt.Fprintf(&b, "var %s int = 0\n", lower(name))
	}
	for _, name := range p.BoolVars {
		fmt.Fprintf(&b, "var %s bool = false\n", lower(name))
	}
	if len(p.IntVars)+len(p.BoolVars) > 0 {
		b.WriteByte('\n')
	}

	for _, proc := range p.Procedures {
		fmt.Fprintf(&b, "func %s() {\n", lower(proc.Name))
		writeBlock(&b, proc.Body, 1, true)
		b.WriteString("}\n\n")
	}

	b.WriteString("func main() {\n")
	writeBlock(&b, p.Entry, 1, false)
	b.WriteString("}\n")

	return b.String()
}

// writeBlock renders stmts at the given indent depth. inProc reports
// whether the block is a procedure body, so SEnd renders as an early
// return in main, or a process exit from inside a procedure.
func writeBlock(b *strings.Builder, stmts []ast.SStmt, depth int, inProc bool) {
	for _, s := range stmts {
		writeStmt(b, s, depth, inProc)
	}
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("\t", depth))
}

func writeStmt(b *strings.Builder, s ast.SStmt, depth int, inProc bool) {
	switch v := s.(type) {
	case ast.SPrint:
		indent(b, depth)
		fmt.Fprintf(b, "print(%s)\n", printItems(v.Items))
	case ast.SInput:
		indent(b, depth)
		fmt.Fprintf(b, "read(%s)\n", lowerJoin(v.Vars))
	case ast.SLet:
		indent(b, depth)
		fmt.Fprintf(b, "%s = %s\n", lower(v.Var), debugprint.Expr(v.Expr))
	case ast.SLetBool:
		indent(b, depth)
		fmt.Fprintf(b, "%s = %s\n", lower(v.Var), debugprint.Condition(v.Cond))
	case ast.SIf:
		indent(b, depth)
		fmt.Fprintf(b, "if %s {\n", debugprint.Condition(v.Cond))
		writeBlock(b, v.Then, depth+1, inProc)
		if len(v.Else) > 0 {
			indent(b, depth)
			b.WriteString("} else {\n")
			writeBlock(b, v.Else, depth+1, inProc)
		}
		indent(b, depth)
		b.WriteString("}\n")
	case ast.SLoop:
		indent(b, depth)
		b.WriteString("loop {\n")
		writeBlock(b, v.Body, depth+1, inProc)
		indent(b, depth)
		b.WriteString("}\n")
	case ast.SBreak:
		indent(b, depth)
		b.WriteString("break\n")
	case ast.SBreakIf:
		indent(b, depth)
		fmt.Fprintf(b, "if %s {\n", debugprint.Condition(v.Cond))
		indent(b, depth+1)
		b.WriteString("break\n")
		indent(b, depth)
		b.WriteString("}\n")
	case ast.SCall:
		indent(b, depth)
		fmt.Fprintf(b, "%s()\n", lower(v.Proc))
	case ast.SReturn:
		indent(b, depth)
		b.WriteString("return\n")
	case ast.SEnd:
		indent(b, depth)
		if inProc {
			b.WriteString("exit(0)\n")
		} else {
			b.WriteString("return\n")
		}
	default:
		indent(b, depth)
		fmt.Fprintf(b, "/* unhandled statement %T */\n", s)
	}
}

func printItems(items []ast.PrintItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		if it.IsStr {
			parts[i] = fmt.Sprintf("%q", it.Str)
		} else {
			parts[i] = debugprint.Expr(it.Expr)
		}
	}
	return strings.Join(parts, ", ")
}

func lowerJoin(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = lower(n)
	}
	return strings.Join(out, ", ")
}

func lower(s string) string {
	return strings.ToLower(s)
}
