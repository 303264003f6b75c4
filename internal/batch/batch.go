// Package batch runs the extractor over a list of matched archives, one at a
// time, and reports progress and per-record outcomes to the caller.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/transfer"
)

// ErrBusy is returned by Start while another batch holds the driver.
var ErrBusy = errors.New("a batch is already running")

// Extractor processes a single record. *organizer.Extractor implements it.
type Extractor interface {
	Extract(record album.MatchRecord, libraryRoot string) album.Outcome
}

// History stores finished outcomes. *database.HistoryDB implements it.
type History interface {
	RecordExtraction(outcome album.Outcome, trigger string) error
}

// Progress is a snapshot taken before each record and once more when the
// batch ends. Index is zero-based; the final snapshot has Index == Total and
// Fraction == 1.
type Progress struct {
	Index       int
	Total       int
	CurrentName string
	Fraction    float64
	Processed   int
	Failed      int
}

// Summary is the result of a batch. Outcomes follow input order.
type Summary struct {
	Processed int
	Failed    int
	Outcomes  []album.Outcome
	Cancelled bool
	Duration  time.Duration
}

// Attempted returns the number of records that were tried.
func (s Summary) Attempted() int {
	return len(s.Outcomes)
}

type Driver struct {
	extractor Extractor
	sink      logging.Sink
	history   History
	trigger   string
	timeout   time.Duration

	mu sync.Mutex
}

func NewDriver(extractor Extractor, options ...func(*Driver)) *Driver {
	d := &Driver{
		extractor: extractor,
		sink:      logging.Discard,
		trigger:   "cli",
		timeout:   10 * time.Second,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// WithSink sets the event sink
func WithSink(sink logging.Sink) func(*Driver) {
	return func(d *Driver) {
		d.sink = logging.OrDiscard(sink)
	}
}

// WithHistory records every outcome under trigger ("cli", "tui", "daemon").
func WithHistory(h History, trigger string) func(*Driver) {
	return func(d *Driver) {
		d.history = h
		if trigger != "" {
			d.trigger = trigger
		}
	}
}

// WithTimeout bounds the disk probes made by Validate
func WithTimeout(timeout time.Duration) func(*Driver) {
	return func(d *Driver) {
		d.timeout = timeout
	}
}

// Validate checks that sourceDir is a readable directory and that
// libraryRoot exists (creating it if needed) and is writable. Every problem
// found is listed in a single PathUnavailable error.
func (d *Driver) Validate(sourceDir, libraryRoot string) error {
	var problems []string

	if sourceDir == "" {
		problems = append(problems, "downloads folder is not set")
	} else if info, err := os.Stat(sourceDir); err != nil {
		problems = append(problems, fmt.Sprintf("downloads folder does not exist: %s", sourceDir))
	} else if !info.IsDir() {
		problems = append(problems, fmt.Sprintf("downloads folder is not a directory: %s", sourceDir))
	} else if _, err := os.ReadDir(sourceDir); err != nil {
		problems = append(problems, fmt.Sprintf("downloads folder is not readable: %s", sourceDir))
	}

	if libraryRoot == "" {
		problems = append(problems, "music library folder is not set")
	} else if err := os.MkdirAll(libraryRoot, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create music library folder %s: %v", libraryRoot, err))
	} else if health, err := transfer.CheckDiskHealth(libraryRoot, d.timeout); err != nil || !health.Writable {
		problems = append(problems, fmt.Sprintf("music library folder is not writable: %s", libraryRoot))
	}

	if len(problems) == 0 {
		return nil
	}
	for _, p := range problems {
		d.sink.LogEvent(logging.LevelError, p)
	}
	return album.Errorf(album.KindPathUnavailable, "", "%s", strings.Join(problems, "; "))
}

// ExtractAll processes records strictly in order on the calling goroutine.
// onProgress and onItemResult may be nil; they run on the same goroutine.
// A cancelled ctx stops the batch before the next record.
//
// ExtractAll blocks while another batch on the same driver is running.
func (d *Driver) ExtractAll(ctx context.Context, records []album.MatchRecord, libraryRoot string,
	onProgress func(Progress), onItemResult func(album.Outcome)) Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.run(ctx, records, libraryRoot, onProgress, onItemResult)
}

func (d *Driver) run(ctx context.Context, records []album.MatchRecord, libraryRoot string,
	onProgress func(Progress), onItemResult func(album.Outcome)) Summary {
	start := time.Now()
	total := len(records)
	summary := Summary{Outcomes: make([]album.Outcome, 0, total)}

	progress := func(i int, name string) {
		if onProgress == nil {
			return
		}
		p := Progress{
			Index:       i,
			Total:       total,
			CurrentName: name,
			Processed:   summary.Processed,
			Failed:      summary.Failed,
			Fraction:    1,
		}
		if total > 0 {
			p.Fraction = float64(i) / float64(total)
		}
		onProgress(p)
	}

	d.sink.LogEvent(logging.LevelInfo, fmt.Sprintf("Starting extraction of %d file(s)", total))

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			d.sink.LogEvent(logging.LevelWarn, fmt.Sprintf("Batch cancelled with %d of %d file(s) remaining", total-i, total))
			break
		}

		progress(i, record.FileName)
		d.sink.LogEvent(logging.LevelInfo, fmt.Sprintf("Processing %d/%d: %s", i+1, total, record.FileName))

		outcome := d.extractor.Extract(record, libraryRoot)
		if outcome.Success {
			summary.Processed++
		} else {
			summary.Failed++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)

		if d.history != nil {
			if err := d.history.RecordExtraction(outcome, d.trigger); err != nil {
				d.sink.LogEvent(logging.LevelWarn, fmt.Sprintf("Could not record history for %s: %v", record.FileName, err))
			}
		}
		if onItemResult != nil {
			onItemResult(outcome)
		}
	}

	if !summary.Cancelled {
		progress(total, "")
	}
	summary.Duration = time.Since(start)

	d.sink.LogEvent(logging.LevelInfo, fmt.Sprintf("Extraction complete: %d processed, %d failed", summary.Processed, summary.Failed))
	return summary
}
