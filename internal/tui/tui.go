// Package tui implements the -inspect pipeline inspector: a Bubble Tea
// program that lets a reader step through the translator's intermediate
// forms for one source file — tokens, the numbered AST, the resolved
// program, and the emitted text — one pane at a time.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gosuda/basicstruct/internal/ast"
	"github.com/gosuda/basicstruct/internal/debugprint"
	"github.com/gosuda/basicstruct/internal/emit"
	"github.com/gosuda/basicstruct/internal/lexer"
	"github.com/gosuda/basicstruct/internal/parser"
	"github.com/gosuda/basicstruct/internal/resolve"
	"github.com/gosuda/basicstruct/internal/structure"
	"github.com/gosuda/basicstruct/internal/token"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	paneStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// stage is one entry in the left-hand list: a named pipeline phase and
// the rendered text it produced, or the error that stopped the pipeline
// there.
type stage struct {
	name string
	body string
	err  error
}

func (s stage) Title() string       { return s.name }
func (s stage) Description() string { return summarize(s.body, s.err) }
func (s stage) FilterValue() string { return s.name }

func summarize(body string, err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	lines := strings.Count(body, "\n")
	return fmt.Sprintf("%d lines", lines)
}

type model struct {
	list     list.Model
	viewport viewport.Model
	stages   []stage
	ready    bool
	width    int
	height   int
}

// Run lexes, parses, resolves, structures and emits src, then launches
// the inspector over the resulting stages. The first stage that fails
// still appears, carrying its error instead of a body, and no later stage
// is listed, so a reader can see exactly how far the pipeline got.
func Run(filename, src string) error {
	m := newModel(filename, src)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newModel(filename, src string) model {
	stages := buildStages(src)

	items := make([]list.Item, len(stages))
	for i, s := range stages {
		items[i] = s
	}
	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 30, 20)
	l.Title = filename
	l.Styles.Title = titleStyle

	vp := viewport.New(80, 20)
	if len(stages) > 0 {
		vp.SetContent(paneBody(stages[0]))
	}

	return model{list: l, viewport: vp, stages: stages}
}

func buildStages(src string) []stage {
	var stages []stage

	toks, err := lexer.New(src).Tokens()
	stages = append(stages, stage{name: "tokens", body: tokensBody(toks), err: err})
	if err != nil {
		return stages
	}

	prog, err := parser.New(toks).ParseProgram()
	var numberedBody string
	if err == nil {
		numberedBody = debugprint.Program(prog)
	}
	stages = append(stages, stage{name: "numbered AST", body: numberedBody, err: err})
	if err != nil {
		return stages
	}

	res, err := resolve.Resolve(prog)
	var resolvedBody string
	if err == nil {
		resolvedBody = debugprint.Program(&res.Main)
		for _, p := range res.Procedures {
			resolvedBody += fmt.Sprintf("\n-- procedure %s --\n", p.Name)
			resolvedBody += debugprint.Program(&ast.Program{Groups: p.Groups})
		}
	}
	stages = append(stages, stage{name: "resolved", body: resolvedBody, err: err})
	if err != nil {
		return stages
	}

	structured, err := structure.Structure(res)
	var emitted string
	if err == nil {
		emitted = emit.Program(structured)
	}
	stages = append(stages, stage{name: "emitted", body: emitted, err: err})
	return stages
}

func tokensBody(toks []token.Token) string {
	var b strings.Builder
	for _, t := range toks {
		fmt.Fprintf(&b, "%s\n", t)
	}
	return b.String()
}

func paneBody(s stage) string {
	if s.err != nil {
		return errStyle.Render(s.err.Error())
	}
	return s.body
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		listWidth := msg.Width / 3
		m.list.SetSize(listWidth, msg.Height-2)
		m.viewport.Width = msg.Width - listWidth - 4
		m.viewport.Height = msg.Height - 2
		m.ready = true
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if i, ok := m.list.SelectedItem().(stage); ok {
		m.viewport.SetContent(paneBody(i))
	}
	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(cmd, vpCmd)
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}
	left := paneStyle.Render(m.list.View())
	right := paneStyle.Render(m.viewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}
