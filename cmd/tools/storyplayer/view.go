package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type view struct {
	out      io.Writer
	markdown *glamour.TermRenderer

	choiceStyle lipgloss.Style
	actionStyle lipgloss.Style
	statusStyle lipgloss.Style
	errorStyle  lipgloss.Style
	moodStyle   lipgloss.Style
	boxStyle    lipgloss.Style
}

func newView(out io.Writer) (*view, error) {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return nil, err
	}
	return &view{
		out:         out,
		markdown:    renderer,
		choiceStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		actionStyle: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("111")),
		statusStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("179")),
		errorStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		moodStyle:   lipgloss.NewStyle().Faint(true),
		boxStyle:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}, nil
}

func (v *view) narration(text, mood string) {
	rendered, err := v.markdown.Render(text)
	if err != nil {
		rendered = text + "\n"
	}
	fmt.Fprint(v.out, rendered)
	if mood != "" {
		fmt.Fprintln(v.out, v.moodStyle.Render("["+mood+"]"))
	}
}

func (v *view) choices(choices []string) {
	if len(choices) == 0 {
		return
	}
	lines := make([]string, 0, len(choices)+1)
	for i, c := range choices {
		lines = append(lines, v.choiceStyle.Render(fmt.Sprintf("%d. %s", i+1, c)))
	}
	lines = append(lines, v.moodStyle.Render("番号か自由入力で行動 / s: あらすじ / q: 終了"))
	fmt.Fprintln(v.out, strings.Join(lines, "\n"))
}

func (v *view) userAction(action string) {
	fmt.Fprintln(v.out, v.actionStyle.Render("▶ "+action))
}

func (v *view) status(msg string) {
	fmt.Fprintln(v.out, v.statusStyle.Render(msg))
}

func (v *view) errorLine(msg string) {
	if msg == "" {
		return
	}
	fmt.Fprintln(v.out, v.errorStyle.Render(msg))
}

func (v *view) summary(text string) {
	fmt.Fprintln(v.out, v.boxStyle.Render(text))
}

func (v *view) prompt() {
	fmt.Fprint(v.out, "> ")
}
