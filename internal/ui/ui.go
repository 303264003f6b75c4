package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// Detect if we're in a terminal
	isTerminal   = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	colorEnabled = true

	out io.Writer = os.Stdout
	in  io.Reader = os.Stdin

	printer = message.NewPrinter(language.English)
)

// SetOutput redirects everything the package prints. Colors are turned off
// because w is no longer the terminal.
func SetOutput(w io.Writer) {
	out = w
	DisableColors()
}

// SetInput replaces stdin for Confirm.
func SetInput(r io.Reader) {
	in = r
}

// DisableColors disables all color output
func DisableColors() {
	colorEnabled = false
	isTerminal = false
	initStyles()
}

// IsTerminal checks if stdout is a terminal
func IsTerminal() bool {
	return isTerminal && colorEnabled
}

// Section prints a section header
func Section(title string) {
	fmt.Fprintln(out)
	if IsTerminal() {
		fmt.Fprintln(out, "━━━ "+strings.ToUpper(title)+" ━━━")
	} else {
		fmt.Fprintln(out, strings.ToUpper(title))
		fmt.Fprintln(out, strings.Repeat("=", len(title)+6))
	}
}

// FormatBytes formats bytes to human-readable format using go-humanize
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.Bytes(uint64(bytes))
}

// FormatCount formats n with thousands separators
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatAgo formats t relative to now, e.g. "3 minutes ago"
func FormatAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// FormatDuration formats duration to human-readable format
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// Plural returns "1 album" or "2 albums"
func Plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return FormatCount(n) + " " + word + "s"
}

// Confirm prompts for user confirmation. Anything but y/yes is no.
func Confirm(prompt string) bool {
	fmt.Fprint(out, prompt+" (y/N): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes"
}
