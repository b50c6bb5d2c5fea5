// Package ui styles human-readable command output.
//
// Styles are bound to the output writer's renderer, so output to a pipe or
// a buffer carries no escape sequences.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles renders status text for one writer.
type Styles struct {
	title   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	key     lipgloss.Style
}

// New creates styles for w.
func New(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	return &Styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),
		success: r.NewStyle().
			Foreground(lipgloss.Color("42")),
		warning: r.NewStyle().
			Foreground(lipgloss.Color("214")),
		failure: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		muted: r.NewStyle().
			Foreground(lipgloss.Color("241")),
		key: r.NewStyle().
			Foreground(lipgloss.Color("244")),
	}
}

func (s *Styles) Title(text string) string   { return s.title.Render(text) }
func (s *Styles) Success(text string) string { return s.success.Render(text) }
func (s *Styles) Warning(text string) string { return s.warning.Render(text) }
func (s *Styles) Failure(text string) string { return s.failure.Render(text) }
func (s *Styles) Muted(text string) string   { return s.muted.Render(text) }

// Field renders an aligned "key: value" line.
func (s *Styles) Field(key string, value any) string {
	return fmt.Sprintf("  %s %v", s.key.Render(fmt.Sprintf("%-11s", key+":")), value)
}

// Bytes formats a byte count the way status lines report sizes.
func Bytes(n int) string {
	return fmt.Sprintf("%dB", n)
}

// List renders items one per line with a bullet, or "(none)".
func (s *Styles) List(items []string) string {
	if len(items) == 0 {
		return "  " + s.Muted("(none)")
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("  - ")
		b.WriteString(item)
	}
	return b.String()
}
