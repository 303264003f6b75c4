package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/batch"
	"github.com/Nomadcxx/albumdrop/internal/logging"
)

// Scanner runs one scan-then-extract pass. *Handler implements it.
type Scanner interface {
	RunScan(ctx context.Context) (batch.Summary, error)
}

// ScannerStatus is reported by /health
type ScannerStatus struct {
	Healthy      bool      `json:"healthy"`
	Scanning     bool      `json:"scanning"`
	LastScan     time.Time `json:"last_scan,omitempty"`
	LastSuccess  time.Time `json:"last_success,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	SkippedTicks int64     `json:"skipped_ticks"`
	LastFound    int       `json:"last_found"`
}

// PeriodicScanner reruns the downloads scan to catch archives the watcher
// missed
type PeriodicScanner struct {
	interval time.Duration
	scanner  Scanner
	logger   *logging.Logger

	mu           sync.Mutex
	scanning     bool
	lastScan     time.Time
	lastSuccess  time.Time
	lastError    error
	lastFound    int
	skippedTicks int64

	healthy bool
}

func NewPeriodicScanner(interval time.Duration, scanner Scanner, logger *logging.Logger) *PeriodicScanner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PeriodicScanner{
		interval: interval,
		scanner:  scanner,
		logger:   logger,
		healthy:  true,
	}
}

// IsHealthy returns whether the last scan succeeded
func (s *PeriodicScanner) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

// Status returns the current scanner status for health reporting
func (s *PeriodicScanner) Status() ScannerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := ScannerStatus{
		Healthy:      s.healthy,
		LastScan:     s.lastScan,
		LastSuccess:  s.lastSuccess,
		SkippedTicks: s.skippedTicks,
		Scanning:     s.scanning,
		LastFound:    s.lastFound,
	}

	if s.lastError != nil {
		status.LastError = s.lastError.Error()
	}

	return status
}

// Start scans once immediately, then on every tick. Blocks until ctx is
// cancelled.
func (s *PeriodicScanner) Start(ctx context.Context) error {
	s.logger.Info("scanner", "Periodic scanner starting",
		logging.F("interval", s.interval.String()))

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner", "Periodic scanner stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *PeriodicScanner) tick(ctx context.Context) {
	s.mu.Lock()
	if s.scanning {
		s.skippedTicks++
		s.mu.Unlock()
		s.logger.Warn("scanner", "Periodic scan skipped - previous scan still running",
			logging.F("skipped_ticks", s.skippedTicks))
		return
	}
	s.scanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.lastScan = time.Now()
		s.mu.Unlock()
	}()

	summary, err := s.runScan(ctx)
	if errors.Is(err, ErrScanRunning) {
		// A triggered scan is already doing the work
		s.mu.Lock()
		s.skippedTicks++
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastError = err
		s.healthy = false
		s.logger.Error("scanner", "Periodic scan failed", err)
		return
	}
	s.lastSuccess = time.Now()
	s.lastError = nil
	s.lastFound = summary.Attempted()
	s.healthy = true
}

func (s *PeriodicScanner) runScan(ctx context.Context) (summary batch.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan panic: %v", r)
		}
	}()

	start := time.Now()
	summary, err = s.scanner.RunScan(ctx)
	if err != nil {
		return summary, err
	}

	if summary.Attempted() > 0 {
		s.logger.Info("scanner", "Periodic scan complete",
			logging.F("duration_ms", time.Since(start).Milliseconds()),
			logging.F("processed", summary.Processed),
			logging.F("failed", summary.Failed))
	}
	return summary, nil
}
