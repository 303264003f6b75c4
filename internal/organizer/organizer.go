// Package organizer moves the contents of album archives into the library as
// <root>/<artist>/<album>.
package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/Nomadcxx/albumdrop/internal/archive"
	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/transfer"
)

// stagingPrefix names the per-record directories created under the staging
// root.
const stagingPrefix = "albumdrop-extract-"

var stagingSeq atomic.Uint64

type Extractor struct {
	deleteSource bool
	overwrite    bool
	spaceCheck   bool
	stagingRoot  string
	timeout      time.Duration
	sink         logging.Sink
}

func NewExtractor(options ...func(*Extractor)) *Extractor {
	e := &Extractor{
		deleteSource: true,
		overwrite:    true,
		spaceCheck:   true,
		timeout:      30 * time.Second,
		sink:         logging.Discard,
	}

	for _, opt := range options {
		opt(e)
	}

	return e
}

// WithDeleteSource sets whether the archive is removed after a successful
// extraction
func WithDeleteSource(del bool) func(*Extractor) {
	return func(e *Extractor) {
		e.deleteSource = del
	}
}

// WithOverwrite sets whether an existing album folder is replaced. When
// false a collision fails the record instead.
func WithOverwrite(overwrite bool) func(*Extractor) {
	return func(e *Extractor) {
		e.overwrite = overwrite
	}
}

// WithStagingRoot sets the parent of staging directories. Empty means the
// archive's own directory.
func WithStagingRoot(dir string) func(*Extractor) {
	return func(e *Extractor) {
		e.stagingRoot = dir
	}
}

// WithSink sets the event sink
func WithSink(sink logging.Sink) func(*Extractor) {
	return func(e *Extractor) {
		e.sink = logging.OrDiscard(sink)
	}
}

// WithTimeout bounds the disk probes and the source removal
func WithTimeout(timeout time.Duration) func(*Extractor) {
	return func(e *Extractor) {
		e.timeout = timeout
	}
}

func WithSpaceCheck(check bool) func(*Extractor) {
	return func(e *Extractor) {
		e.spaceCheck = check
	}
}

// DeleteSource reports whether archives are removed after success.
func (e *Extractor) DeleteSource() bool {
	return e.deleteSource
}

// Extract unpacks record's archive and moves its album folder to
// <libraryRoot>/<artist>/<album>. It never returns an error: failures are
// reported in the Outcome together with their kind.
func (e *Extractor) Extract(record album.MatchRecord, libraryRoot string) album.Outcome {
	start := time.Now()
	outcome, err := e.extract(record, libraryRoot)
	if err != nil {
		outcome = album.Failed(record, err)
		e.sink.LogEvent(logging.LevelError, fmt.Sprintf("✗ Failed to process %s: %v", record.FileName, err))
	}
	outcome.Duration = time.Since(start)
	return outcome
}

func (e *Extractor) extract(record album.MatchRecord, libraryRoot string) (album.Outcome, error) {
	outcome := album.Outcome{Record: record}

	artistDir, dest, err := albumDestination(libraryRoot, record)
	if err != nil {
		return outcome, err
	}

	layout, err := archive.Inspect(record.SourcePath)
	if err != nil {
		return outcome, err
	}
	e.sink.LogEvent(logging.LevelDebug, fmt.Sprintf("%s: album folder %q, %d files", record.FileName, layout.AlbumFolder, layout.Entries))

	stagingRoot := e.stagingRoot
	if stagingRoot == "" {
		stagingRoot = filepath.Dir(record.SourcePath)
	}
	if e.spaceCheck {
		if err := transfer.CheckSpace(stagingRoot, layout.UncompressedBytes, e.timeout); err != nil {
			return outcome, album.NewError(album.KindIoFailure, stagingRoot, err)
		}
	}

	staging, err := newStagingDir(stagingRoot)
	if err != nil {
		return outcome, album.NewError(album.KindIoFailure, stagingRoot, err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			e.sink.LogEvent(logging.LevelWarn, fmt.Sprintf("Could not remove staging directory %s: %v", staging, err))
		}
	}()

	stats, err := archive.Extract(record.SourcePath, staging)
	if err != nil {
		return outcome, err
	}
	outcome.Files = stats.Files
	outcome.Bytes = stats.Bytes
	for _, name := range stats.Skipped {
		e.sink.LogEvent(logging.LevelWarn, fmt.Sprintf("%s: skipped symlink %s", record.FileName, name))
	}

	staged := filepath.Join(staging, layout.AlbumFolder)
	if info, err := os.Stat(staged); err != nil || !info.IsDir() {
		return outcome, album.Errorf(album.KindAlbumFolderMissing, staged, "album folder %q not found after extraction", layout.AlbumFolder)
	}

	if err := os.MkdirAll(artistDir, 0755); err != nil {
		return outcome, album.NewError(album.KindIoFailure, artistDir, err)
	}

	if _, err := os.Lstat(dest); err == nil {
		if !e.overwrite {
			return outcome, album.Errorf(album.KindIoFailure, dest, "album folder already exists")
		}
		e.sink.LogEvent(logging.LevelWarn, fmt.Sprintf("Replacing existing album folder %s", dest))
		if err := os.RemoveAll(dest); err != nil {
			return outcome, album.NewError(album.KindIoFailure, dest, err)
		}
	}

	moved, err := transfer.MoveDir(staged, dest)
	if err != nil {
		if errors.Is(err, transfer.ErrSourceNotFound) {
			return outcome, album.NewError(album.KindAlbumFolderMissing, staged, err)
		}
		return outcome, album.NewError(album.KindIoFailure, dest, err)
	}
	if moved.Method == transfer.MethodCopy {
		e.sink.LogEvent(logging.LevelDebug, fmt.Sprintf("%s copied across devices in %s", record.FileName, moved.Duration))
	}

	outcome.Success = true
	outcome.DestinationPath = dest

	if e.deleteSource {
		if err := transfer.RemoveWithTimeout(record.SourcePath, e.timeout); err != nil {
			e.sink.LogEvent(logging.LevelWarn, fmt.Sprintf("Could not delete %s: %v", record.FileName, err))
		} else {
			outcome.SourceDeleted = true
			e.sink.LogEvent(logging.LevelInfo, fmt.Sprintf("Deleted %s", record.FileName))
		}
	}

	e.sink.LogEvent(logging.LevelInfo, fmt.Sprintf("✓ Successfully processed %s -> %s", record.FileName, dest))
	return outcome, nil
}

// albumDestination returns <libraryRoot>/<artist> and
// <libraryRoot>/<artist>/<album>. Both names must be single path segments;
// anything that resolves elsewhere is refused before the disk is touched.
func albumDestination(libraryRoot string, record album.MatchRecord) (artistDir, dest string, err error) {
	root := filepath.Clean(libraryRoot)
	artistDir = filepath.Join(root, record.Artist)
	dest = record.Destination(root)
	if filepath.Dir(artistDir) != root || filepath.Dir(dest) != artistDir {
		return "", "", album.Errorf(album.KindPathUnavailable, dest,
			"artist %q and album %q must be folder names inside the library", record.Artist, record.Album)
	}
	return artistDir, dest, nil
}

// newStagingDir creates a directory unique to this process and call.
func newStagingDir(root string) (string, error) {
	dir := filepath.Join(root, fmt.Sprintf("%s%d-%d", stagingPrefix, os.Getpid(), stagingSeq.Add(1)))
	if err := os.Mkdir(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
