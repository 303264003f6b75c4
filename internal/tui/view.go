package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/Nomadcxx/albumdrop/internal/ui"
)

var (
	Primary      = lipgloss.Color("#1DB954")
	Secondary    = lipgloss.Color("#4FC3F7")
	FgMuted      = lipgloss.Color("#888888")
	ErrorColor   = lipgloss.Color("#FF5555")
	SuccessColor = lipgloss.Color("#1DB954")
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	accentStyle  = lipgloss.NewStyle().Foreground(Secondary)
	mutedStyle   = lipgloss.NewStyle().Foreground(FgMuted)
	errorStyle   = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	boxStyle     = lipgloss.NewStyle().Padding(1, 2)
)

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("albumdrop") + "\n")
	b.WriteString(m.settingsLine() + "\n\n")

	switch m.state {
	case stateScanning:
		b.WriteString(m.spinner.View() + " Scanning " + m.cfg.DownloadsDir + "...\n")
	case stateReview:
		b.WriteString(m.reviewView())
	case stateExtracting:
		b.WriteString(m.extractingView())
	case stateDone:
		b.WriteString(m.doneView())
	}

	if m.notice != "" {
		b.WriteString("\n" + errorStyle.Render(m.notice) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return boxStyle.Render(b.String())
}

func (m model) settingsLine() string {
	deleteMode := "keep zip"
	if m.deleteSource {
		deleteMode = "delete zip after success"
	}
	return mutedStyle.Render(fmt.Sprintf("%s → %s  |  pattern: %s  |  %s",
		m.cfg.DownloadsDir, m.cfg.LibraryDir, m.pattern.Name, deleteMode))
}

func (m model) reviewView() string {
	var b strings.Builder

	if m.err != nil {
		b.WriteString(errorStyle.Render("✗ "+m.err.Error()) + "\n")
		b.WriteString(mutedStyle.Render("Fix the folders and press r to rescan.") + "\n")
		return b.String()
	}

	if len(m.records) == 0 {
		b.WriteString(fmt.Sprintf("No archives matching %q.\n", m.pattern.Example))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Found %s ready to extract:\n\n", ui.Plural(len(m.records), "album")))

	end := min(m.offset+m.listHeight(), len(m.records))
	nameWidth := 0
	for _, r := range m.records[m.offset:end] {
		nameWidth = max(nameWidth, lipgloss.Width(r.Artist))
	}
	for _, r := range m.records[m.offset:end] {
		artist := r.Artist + strings.Repeat(" ", nameWidth-lipgloss.Width(r.Artist))
		b.WriteString("  " + accentStyle.Render(artist) + "  " + r.Album + "\n")
	}
	if len(m.records) > end || m.offset > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("\n  %d-%d of %d", m.offset+1, end, len(m.records))) + "\n")
	}
	return b.String()
}

func (m model) extractingView() string {
	var b strings.Builder

	status := "Extracting " + m.current
	if m.cancelling {
		status = "Stopping after " + m.current
	}
	b.WriteString(m.spinner.View() + " " + status + "\n\n")
	b.WriteString(m.progress.ViewAs(m.fraction) + "\n\n")
	b.WriteString(fmt.Sprintf("Found: %d   %s   %s\n",
		len(m.records),
		successStyle.Render(fmt.Sprintf("Processed: %d", m.processed)),
		errorStyle.Render(fmt.Sprintf("Failed: %d", m.failed))))

	if len(m.log) > 0 {
		b.WriteString("\n")
		for _, line := range m.log {
			b.WriteString(mutedStyle.Render(ui.Truncate(line, max(m.width-6, 20))) + "\n")
		}
	}
	return b.String()
}

func (m model) doneView() string {
	var b strings.Builder
	s := m.summary

	title := "Extraction complete"
	if s.Cancelled {
		title = "Extraction cancelled"
	}
	b.WriteString(headerStyle.Render(title) + "\n")
	b.WriteString(fmt.Sprintf("Processed %d, failed %d of %d in %s\n\n",
		s.Processed, s.Failed, len(m.records), ui.FormatDuration(s.Duration)))

	for _, o := range s.Outcomes {
		b.WriteString(outcomeLine(o) + "\n")
	}
	if skipped := len(m.records) - s.Attempted(); skipped > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d not attempted", skipped)) + "\n")
	}
	return b.String()
}

func outcomeLine(o album.Outcome) string {
	if o.Success {
		return successStyle.Render("✓") + " " + o.Record.FileName + mutedStyle.Render(" → "+o.DestinationPath)
	}
	return errorStyle.Render("✗") + " " + o.Record.FileName + mutedStyle.Render(": "+o.ErrorDetail)
}
