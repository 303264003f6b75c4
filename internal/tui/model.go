// Package tui is the interactive terminal front end: scan the downloads
// folder, review what matched, extract everything while watching progress.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/Nomadcxx/albumdrop/internal/batch"
	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/naming"
	"github.com/Nomadcxx/albumdrop/internal/scanner"
)

type state int

const (
	stateScanning state = iota
	stateReview
	stateExtracting
	stateDone
)

const (
	maxLogLines = 8
	eventBuffer = 256
)

// Config wires the TUI to the rest of the program.
type Config struct {
	DownloadsDir string
	LibraryDir   string
	Pattern      naming.Pattern
	DeleteSource bool

	// NewDriver builds the driver for one scan or extraction. sink receives
	// everything the matcher, extractor and driver report.
	NewDriver func(deleteSource bool, sink logging.Sink) *batch.Driver

	// SettingsChanged is called after the user switches pattern or toggles
	// source deletion, so the choice survives a restart. May be nil.
	SettingsChanged func(pattern naming.Pattern, deleteSource bool) error
}

type scanDoneMsg struct {
	records []album.MatchRecord
	err     error
}

type updateMsg batch.Update

type jobDoneMsg struct {
	summary batch.Summary
}

type eventMsg logging.Event

type model struct {
	cfg          Config
	keys         keyMap
	state        state
	pattern      naming.Pattern
	deleteSource bool

	records []album.MatchRecord
	offset  int
	err     error
	notice  string

	job        *batch.Job
	cancelling bool
	quitAfter  bool
	fraction   float64
	current    string
	processed  int
	failed     int
	summary    batch.Summary

	events chan logging.Event
	log    []string

	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	width    int
	height   int
}

func newModel(cfg Config) model {
	if cfg.Pattern.Name == "" {
		cfg.Pattern = naming.Default()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	return model{
		cfg:          cfg,
		keys:         defaultKeys(),
		state:        stateScanning,
		pattern:      cfg.Pattern,
		deleteSource: cfg.DeleteSource,
		events:       make(chan logging.Event, eventBuffer),
		spinner:      s,
		progress:     progress.New(progress.WithDefaultGradient()),
		help:         help.New(),
		width:        80,
		height:       24,
	}
}

// sink forwards events into the UI without ever blocking the worker. When
// the buffer is full the event is dropped from the screen; it still reaches
// the log file through the driver's own sink.
func (m model) sink() logging.Sink {
	events := m.events
	return logging.SinkFunc(func(level logging.Level, message string) {
		if level < logging.LevelInfo {
			return
		}
		select {
		case events <- logging.Event{Level: level, Message: message}:
		default:
		}
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.scanCmd(), waitForEvent(m.events))
}

func (m model) scanCmd() tea.Cmd {
	cfg := m.cfg
	pattern := m.pattern
	sink := m.sink()
	driver := cfg.NewDriver(m.deleteSource, sink)
	return func() tea.Msg {
		if err := driver.Validate(cfg.DownloadsDir, cfg.LibraryDir); err != nil {
			return scanDoneMsg{err: err}
		}
		records, err := scanner.Scan(cfg.DownloadsDir, pattern, sink)
		return scanDoneMsg{records: records, err: err}
	}
}

func waitForUpdate(job *batch.Job) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-job.Updates()
		if !ok {
			return jobDoneMsg{summary: job.Wait()}
		}
		return updateMsg(u)
	}
}

func waitForEvent(events <-chan logging.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-events)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(msg.Width-4, 60)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case scanDoneMsg:
		return m.handleScanDone(msg)

	case updateMsg:
		return m.handleUpdate(batch.Update(msg))

	case jobDoneMsg:
		return m.handleJobDone(msg)

	case eventMsg:
		m.appendLog(logging.Event(msg))
		return m, waitForEvent(m.events)
	}

	return m, nil
}

func (m model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.state == stateExtracting {
			// The batch stops before its next record; quit once it reports back
			m.job.Cancel()
			m.cancelling = true
			m.quitAfter = true
			return m, nil
		}
		return m, tea.Quit
	}

	switch m.state {
	case stateReview:
		return m.handleReviewKeys(msg)
	case stateDone:
		return m.handleDoneKeys(msg)
	}
	return m, nil
}

func (m model) handleReviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Extract):
		return m.startExtraction()
	case key.Matches(msg, m.keys.Rescan):
		return m.rescan()
	case key.Matches(msg, m.keys.Pattern):
		m.pattern = naming.Next(m.pattern.Name)
		m.saveSettings()
		return m.rescan()
	case key.Matches(msg, m.keys.DeleteSource):
		m.deleteSource = !m.deleteSource
		m.saveSettings()
	case key.Matches(msg, m.keys.Up):
		if m.offset > 0 {
			m.offset--
		}
	case key.Matches(msg, m.keys.Down):
		if m.offset < len(m.records)-m.listHeight() {
			m.offset++
		}
	}
	return m, nil
}

func (m model) handleDoneKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Rescan) || key.Matches(msg, m.keys.Extract) {
		return m.rescan()
	}
	return m, nil
}

func (m *model) saveSettings() {
	m.notice = ""
	if m.cfg.SettingsChanged == nil {
		return
	}
	if err := m.cfg.SettingsChanged(m.pattern, m.deleteSource); err != nil {
		m.notice = fmt.Sprintf("could not save settings: %v", err)
	}
}

func (m model) rescan() (tea.Model, tea.Cmd) {
	m.state = stateScanning
	m.records = nil
	m.offset = 0
	m.err = nil
	return m, tea.Batch(m.spinner.Tick, m.scanCmd())
}

func (m model) handleScanDone(msg scanDoneMsg) (tea.Model, tea.Cmd) {
	m.state = stateReview
	m.records = msg.records
	m.err = msg.err
	m.offset = 0
	return m, nil
}

func (m model) startExtraction() (tea.Model, tea.Cmd) {
	if m.err != nil || len(m.records) == 0 {
		return m, nil
	}

	driver := m.cfg.NewDriver(m.deleteSource, m.sink())
	job, err := driver.Start(context.Background(), m.records, m.cfg.LibraryDir)
	if err != nil {
		if errors.Is(err, batch.ErrBusy) {
			m.notice = "an extraction is already running"
		} else {
			m.notice = err.Error()
		}
		return m, nil
	}

	m.state = stateExtracting
	m.job = job
	m.cancelling = false
	m.fraction = 0
	m.current = ""
	m.processed = 0
	m.failed = 0
	m.log = nil
	m.notice = ""
	return m, tea.Batch(m.spinner.Tick, waitForUpdate(job))
}

func (m model) handleUpdate(u batch.Update) (tea.Model, tea.Cmd) {
	if u.Progress != nil {
		m.fraction = u.Progress.Fraction
		m.current = u.Progress.CurrentName
	}
	if u.Outcome != nil {
		if u.Outcome.Success {
			m.processed++
		} else {
			m.failed++
		}
	}
	return m, waitForUpdate(m.job)
}

func (m model) handleJobDone(msg jobDoneMsg) (tea.Model, tea.Cmd) {
	m.state = stateDone
	m.summary = msg.summary
	m.job = nil
	m.cancelling = false
	m.current = ""
	if m.quitAfter {
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) appendLog(e logging.Event) {
	m.log = append(m.log, e.Message)
	if len(m.log) > maxLogLines {
		m.log = append([]string(nil), m.log[len(m.log)-maxLogLines:]...)
	}
}

// listHeight is how many matches fit on screen in review.
func (m model) listHeight() int {
	return max(m.height-12, 3)
}

// Run starts the TUI and blocks until the user quits. It returns the summary
// of the last extraction, which is empty when none ran.
func Run(cfg Config) (batch.Summary, error) {
	if cfg.NewDriver == nil {
		return batch.Summary{}, errors.New("tui: NewDriver is required")
	}
	final, err := tea.NewProgram(newModel(cfg), tea.WithAltScreen()).Run()
	if err != nil {
		return batch.Summary{}, fmt.Errorf("running tui: %w", err)
	}
	return final.(model).summary, nil
}
