// Package album holds the records that flow between the scanner, the
// extractor and the batch driver.
package album

import (
	"path/filepath"
	"time"
)

// MatchRecord is one archive in the downloads folder whose name matched the
// active naming pattern.
type MatchRecord struct {
	SourcePath string `json:"source_path"`
	FileName   string `json:"file_name"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
}

// Destination returns <libraryRoot>/<artist>/<album>.
func (r MatchRecord) Destination(libraryRoot string) string {
	return filepath.Join(libraryRoot, r.Artist, r.Album)
}

// Outcome is the result of extracting a single MatchRecord.
type Outcome struct {
	Record          MatchRecord   `json:"record"`
	Success         bool          `json:"success"`
	DestinationPath string        `json:"destination_path,omitempty"`
	ErrorDetail     string        `json:"error,omitempty"`
	Kind            Kind          `json:"kind,omitempty"`
	Files           int           `json:"files,omitempty"`
	Bytes           int64         `json:"bytes,omitempty"`
	SourceDeleted   bool          `json:"source_deleted"`
	Duration        time.Duration `json:"duration"`
}

// Failed builds an unsuccessful Outcome from err, keeping its Kind when err
// is an *Error.
func Failed(record MatchRecord, err error) Outcome {
	return Outcome{
		Record:      record,
		Success:     false,
		ErrorDetail: err.Error(),
		Kind:        KindOf(err),
	}
}
