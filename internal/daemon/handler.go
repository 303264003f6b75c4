package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/Nomadcxx/albumdrop/internal/batch"
	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/naming"
	"github.com/Nomadcxx/albumdrop/internal/scanner"
	"github.com/Nomadcxx/albumdrop/internal/watcher"
)

// ErrScanRunning is returned by TriggerScan while a scan is in progress.
var ErrScanRunning = errors.New("scan already running")

type Stats struct {
	mu             sync.RWMutex
	Processed      int64
	Failed         int64
	BytesExtracted int64
	Scans          int64
	LastProcessed  time.Time
	StartTime      time.Time
}

func NewStats() *Stats {
	return &Stats{
		StartTime: time.Now(),
	}
}

func (s *Stats) RecordOutcome(o album.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Success {
		s.Processed++
		s.BytesExtracted += o.Bytes
		s.LastProcessed = time.Now()
	} else {
		s.Failed++
	}
}

func (s *Stats) RecordScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scans++
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		Processed:      s.Processed,
		Failed:         s.Failed,
		BytesExtracted: s.BytesExtracted,
		Scans:          s.Scans,
		LastProcessed:  s.LastProcessed,
		Uptime:         time.Since(s.StartTime),
	}
}

type StatsSnapshot struct {
	Processed      int64
	Failed         int64
	BytesExtracted int64
	Scans          int64
	LastProcessed  time.Time
	Uptime         time.Duration
}

type HandlerConfig struct {
	DownloadsDir string
	LibraryDir   string
	Pattern      naming.Pattern
	Driver       *batch.Driver
	DebounceTime time.Duration
	Logger       *logging.Logger
}

// Handler turns watcher events and periodic rescans into batches on the
// shared driver.
type Handler struct {
	downloads    string
	library      string
	matcher      *scanner.Matcher
	driver       *batch.Driver
	debounceTime time.Duration
	pending      map[string]*time.Timer
	mu           sync.Mutex
	scanning     atomic.Bool
	stats        *Stats
	logger       *logging.Logger
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Driver == nil {
		return nil, fmt.Errorf("handler needs a batch driver")
	}
	if cfg.DebounceTime == 0 {
		cfg.DebounceTime = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Pattern.Name == "" {
		cfg.Pattern = naming.Default()
	}
	if abs, err := filepath.Abs(cfg.DownloadsDir); err == nil {
		cfg.DownloadsDir = abs
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		downloads:    cfg.DownloadsDir,
		library:      cfg.LibraryDir,
		matcher:      scanner.NewMatcher(cfg.Pattern, cfg.Logger.Sink("scanner")),
		driver:       cfg.Driver,
		debounceTime: cfg.DebounceTime,
		pending:      make(map[string]*time.Timer),
		stats:        NewStats(),
		logger:       cfg.Logger,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// HandleFileEvent schedules extraction of an archive once it has been quiet
// for the debounce interval.
func (h *Handler) HandleFileEvent(event watcher.FileEvent) error {
	if event.Type == watcher.EventDelete {
		h.cancelPending(event.Path)
		return nil
	}

	if !h.IsArchive(event.Path) {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if timer, exists := h.pending[event.Path]; exists {
		timer.Stop()
		delete(h.pending, event.Path)
	}

	var timer *time.Timer
	timer = time.AfterFunc(h.debounceTime, func() {
		h.mu.Lock()
		if h.pending[event.Path] == timer {
			delete(h.pending, event.Path)
		}
		h.mu.Unlock()
		h.processFile(event.Path)
	})
	h.pending[event.Path] = timer

	return nil
}

// IsArchive reports whether path is a direct child of the downloads folder
// whose name matches the active pattern.
func (h *Handler) IsArchive(path string) bool {
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(h.downloads) {
		return false
	}
	return h.matcher.Matches(path)
}

func (h *Handler) cancelPending(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if timer, exists := h.pending[path]; exists {
		timer.Stop()
		delete(h.pending, path)
	}
}

// PendingCount returns the number of archives waiting out their debounce.
func (h *Handler) PendingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

func (h *Handler) processFile(path string) {
	if _, err := os.Stat(path); err != nil {
		// Already handled by a rescan, or removed by the user
		h.logger.Debug("handler", "Archive gone before extraction", logging.F("path", path))
		return
	}

	name := filepath.Base(path)
	artist, albumName, ok := h.matcher.Pattern.Match(name)
	if !ok {
		return
	}
	record := album.MatchRecord{
		SourcePath: path,
		FileName:   name,
		Artist:     artist,
		Album:      albumName,
	}

	h.logger.Info("handler", "Extracting new archive",
		logging.F("file", name),
		logging.F("artist", artist),
		logging.F("album", albumName))

	h.driver.ExtractAll(h.ctx, []album.MatchRecord{record}, h.library, nil, h.recordOutcome)
}

func (h *Handler) recordOutcome(o album.Outcome) {
	h.stats.RecordOutcome(o)
	if o.Success {
		h.logger.Info("handler", "Album extracted",
			logging.F("file", o.Record.FileName),
			logging.F("destination", o.DestinationPath),
			logging.F("files", o.Files))
		return
	}
	h.logger.Error("handler", "Extraction failed", errors.New(o.ErrorDetail),
		logging.F("file", o.Record.FileName),
		logging.F("kind", string(o.Kind)))
}

// RunScan scans the downloads folder and extracts every match. Only one scan
// runs at a time.
func (h *Handler) RunScan(ctx context.Context) (batch.Summary, error) {
	if !h.scanning.CompareAndSwap(false, true) {
		return batch.Summary{}, ErrScanRunning
	}
	defer h.scanning.Store(false)

	h.stats.RecordScan()

	if err := h.driver.Validate(h.downloads, h.library); err != nil {
		return batch.Summary{}, err
	}

	records, err := h.matcher.Scan(h.downloads)
	if err != nil {
		return batch.Summary{}, err
	}
	if len(records) == 0 {
		return batch.Summary{}, nil
	}

	// Records picked up here no longer need their debounce timer
	for _, r := range records {
		h.cancelPending(r.SourcePath)
	}

	return h.driver.ExtractAll(ctx, records, h.library, nil, h.recordOutcome), nil
}

// TriggerScan starts RunScan in the background.
func (h *Handler) TriggerScan() error {
	if h.scanning.Load() {
		return ErrScanRunning
	}
	go func() {
		summary, err := h.RunScan(h.ctx)
		if err != nil {
			if !errors.Is(err, ErrScanRunning) {
				h.logger.Error("handler", "Triggered scan failed", err)
			}
			return
		}
		h.logger.Info("handler", "Triggered scan complete",
			logging.F("processed", summary.Processed),
			logging.F("failed", summary.Failed))
	}()
	return nil
}

// Scanning reports whether a scan is in progress.
func (h *Handler) Scanning() bool {
	return h.scanning.Load()
}

// DownloadsDir returns the absolute folder being watched.
func (h *Handler) DownloadsDir() string {
	return h.downloads
}

func (h *Handler) Pattern() naming.Pattern {
	return h.matcher.Pattern
}

func (h *Handler) Stats() StatsSnapshot {
	return h.stats.Snapshot()
}

// Shutdown stops pending timers and asks a running batch to stop after its
// current record.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for path, timer := range h.pending {
		timer.Stop()
		delete(h.pending, path)
	}
	h.cancel()
}
