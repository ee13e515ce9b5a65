package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)

	return func(markdown string) (string, error) {
		if err != nil {
			return "", err
		}
		return r.Render(markdown)
	}
}

// NewSummaryRenderer renders the fixed-width statistics grid as a fenced
// code block, so columns stay aligned while still getting terminal styling.
func NewSummaryRenderer() func(string) (string, error) {
	render := NewRenderer()
	return func(summary string) (string, error) {
		out, err := render("```text\n" + summary + "\n```\n")
		if err != nil {
			return "", err
		}
		return strings.Trim(out, "\n"), nil
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
