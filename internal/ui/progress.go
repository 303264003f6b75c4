package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders batch progress on a single line
type ProgressBar struct {
	total  int
	width  int
	writer io.Writer
	label  string
}

// NewProgressBar creates a new progress bar writing to the package output
func NewProgressBar(total int, label string) *ProgressBar {
	return &ProgressBar{
		total:  total,
		width:  30,
		writer: out,
		label:  label,
	}
}

// Update draws the bar at current of total with name as the item in flight.
func (p *ProgressBar) Update(current int, name string) {
	if current > p.total {
		current = p.total
	}
	p.render(current, name)
}

func (p *ProgressBar) render(current int, name string) {
	percent := 100.0
	if p.total > 0 {
		percent = float64(current) / float64(p.total) * 100
	}
	done := current >= p.total

	if !IsTerminal() {
		// One line per update keeps logs readable
		if done {
			fmt.Fprintf(p.writer, "%s: %d/%d (%.0f%%)\n", p.label, current, p.total, percent)
		} else {
			fmt.Fprintf(p.writer, "%s: %d/%d (%.0f%%) %s\n", p.label, current, p.total, percent, name)
		}
		return
	}

	filled := p.width
	if p.total > 0 {
		filled = p.width * current / p.total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
	line := fmt.Sprintf("%s [%s] %d/%d (%.0f%%) %s", p.label, bar, current, p.total, percent, Dim(name))

	// Clear whatever a longer previous line left behind
	fmt.Fprintf(p.writer, "\r%s\033[K", line)
	if done {
		fmt.Fprintln(p.writer)
	}
}

// Truncate shortens s to max display cells, adding an ellipsis.
func Truncate(s string, max int) string {
	if lipgloss.Width(s) <= max {
		return s
	}
	if max <= 1 {
		return string([]rune(s)[:max])
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > max {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
