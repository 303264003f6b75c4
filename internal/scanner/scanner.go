// Package scanner finds album archives in a downloads folder and parses the
// artist and album out of their filenames.
package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/naming"
)

// Scan lists sourceDir (non-recursively) and returns a record for every
// archive whose name matches pattern. Records come back sorted by filename.
//
// A missing, non-directory or unreadable sourceDir yields a PathUnavailable
// error and no records.
func Scan(sourceDir string, pattern naming.Pattern, sink logging.Sink) ([]album.MatchRecord, error) {
	sink = logging.OrDiscard(sink)

	dir, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, album.NewError(album.KindPathUnavailable, sourceDir, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = errors.New("folder does not exist")
		}
		sink.LogEvent(logging.LevelError, fmt.Sprintf("Downloads folder not found: %s", dir))
		return nil, album.NewError(album.KindPathUnavailable, dir, err)
	}
	if !info.IsDir() {
		return nil, album.Errorf(album.KindPathUnavailable, dir, "not a directory")
	}

	// os.ReadDir sorts by filename, which gives a stable record order.
	entries, err := os.ReadDir(dir)
	if err != nil {
		sink.LogEvent(logging.LevelError, fmt.Sprintf("Cannot read downloads folder %s: %v", dir, err))
		return nil, album.NewError(album.KindPathUnavailable, dir, err)
	}

	var records []album.MatchRecord
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !naming.IsArchive(name) {
			continue
		}
		artist, albumName, ok := pattern.Match(name)
		if !ok {
			sink.LogEvent(logging.LevelDebug, fmt.Sprintf("Skipped %s: does not match %q", name, pattern.Name))
			continue
		}

		records = append(records, album.MatchRecord{
			SourcePath: filepath.Join(dir, name),
			FileName:   name,
			Artist:     artist,
			Album:      albumName,
		})
		sink.LogEvent(logging.LevelInfo, fmt.Sprintf("Found: %s -> Artist: '%s', Album: '%s'", name, artist, albumName))
	}

	return records, nil
}

// Matcher binds a pattern and a sink so callers can rescan without carrying
// both around.
type Matcher struct {
	Pattern naming.Pattern
	Sink    logging.Sink
}

// NewMatcher returns a Matcher for pattern.
func NewMatcher(pattern naming.Pattern, sink logging.Sink) *Matcher {
	return &Matcher{Pattern: pattern, Sink: sink}
}

// Scan runs Scan with the matcher's pattern and sink.
func (m *Matcher) Scan(sourceDir string) ([]album.MatchRecord, error) {
	return Scan(sourceDir, m.Pattern, m.Sink)
}

// Matches reports whether a single path would be picked up by Scan.
func (m *Matcher) Matches(path string) bool {
	name := filepath.Base(path)
	if !naming.IsArchive(name) {
		return false
	}
	_, _, ok := m.Pattern.Match(name)
	return ok
}
