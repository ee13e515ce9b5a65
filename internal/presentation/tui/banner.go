package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the sieve ASCII art banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Teal to blue gradient.
	lines := []struct {
		text  string
		color string
	}{
		{"       _                ", "#2dd4bf"},
		{"   ___(_) _____   _____ ", "#22d3ee"},
		{"  / __| |/ _ \\ \\ / / _ \\", "#38bdf8"},
		{"  \\__ \\ |  __/\\ V /  __/", "#60a5fa"},
		{"  |___/_|\\___| \\_/ \\___|", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}

// Success styles a status line green.
func Success(msg string) string {
	return termenv.String(msg).Foreground(termenv.ColorProfile().Color("#22c55e")).String()
}

// Failure styles a status line red and bold.
func Failure(msg string) string {
	return termenv.String(msg).Foreground(termenv.ColorProfile().Color("#ef4444")).Bold().String()
}
