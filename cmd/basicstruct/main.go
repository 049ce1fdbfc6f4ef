// Command basicstruct translates a line-numbered BASIC source file into
// a goto-free structured pseudocode listing.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/atotto/clipboard"

	"github.com/gosuda/basicstruct/internal/emit"
	"github.com/gosuda/basicstruct/internal/parser"
	"github.com/gosuda/basicstruct/internal/resolve"
	"github.com/gosuda/basicstruct/internal/structure"
	"github.com/gosuda/basicstruct/internal/tui"
)

func main() {
	out := flag.String("o", "", "write emitted output to this path instead of stdout")
	copyOut := flag.Bool("copy", false, "copy the emitted output to the system clipboard")
	inspect := flag.Bool("inspect", false, "launch the interactive pipeline inspector instead of translating")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: basicstruct [-o PATH] [-copy] [-inspect] FILE")
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "basicstruct: %v\n", err)
		os.Exit(1)
	}
	src := string(data)

	if *inspect {
		if err := tui.Run(path, src); err != nil {
			fmt.Fprintf(os.Stderr, "basicstruct: %v\n", err)
			os.Exit(1)
		}
		return
	}

	output, err := translate(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "basicstruct: %v\n", err)
		os.Exit(1)
	}

	if *out != "" {
		if err := os.WriteFile(*out, []byte(output), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "basicstruct: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Print(output)
	}

	if *copyOut {
		if err := clipboard.WriteAll(output); err != nil {
			fmt.Fprintf(os.Stderr, "basicstruct: clipboard: %v\n", err)
			os.Exit(1)
		}
	}
}

// translate runs the full pipeline: lex+parse, resolve, structure, emit.
// Any pass failing produces a single fatal diagnostic, reported by the
// caller.
func translate(src string) (string, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return "", err
	}
	res, err := resolve.Resolve(prog)
	if err != nil {
		return "", err
	}
	structured, err := structure.Structure(res)
	if err != nil {
		return "", err
	}
	return emit.Program(structured), nil
}
