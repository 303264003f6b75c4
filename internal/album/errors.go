package album

import (
	"errors"
	"fmt"
)

// Kind classifies why a scan or an extraction failed.
type Kind string

const (
	KindPathUnavailable         Kind = "PathUnavailable"
	KindUnexpectedArchiveLayout Kind = "UnexpectedArchiveLayout"
	KindCorruptArchive          Kind = "CorruptArchive"
	KindAlbumFolderMissing      Kind = "AlbumFolderMissing"
	KindIoFailure               Kind = "IoFailure"
)

// Sentinels for errors.Is. They compare by Kind only.
var (
	ErrPathUnavailable         = &Error{Kind: KindPathUnavailable}
	ErrUnexpectedArchiveLayout = &Error{Kind: KindUnexpectedArchiveLayout}
	ErrCorruptArchive          = &Error{Kind: KindCorruptArchive}
	ErrAlbumFolderMissing      = &Error{Kind: KindAlbumFolderMissing}
	ErrIoFailure               = &Error{Kind: KindIoFailure}
)

// Error is a classified failure on a path.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// NewError wraps err with a kind and the path it concerns.
func NewError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// Errorf is NewError with a formatted cause.
func Errorf(kind Kind, path, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindIoFailure for any other non-nil error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindIoFailure
}
