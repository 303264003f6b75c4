package album

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	corrupt := NewError(KindCorruptArchive, "/dl/a.zip", errors.New("zip: not a valid zip file"))
	wrapped := fmt.Errorf("stage: %w", corrupt)

	assert.Equal(t, KindCorruptArchive, KindOf(corrupt))
	assert.Equal(t, KindCorruptArchive, KindOf(wrapped))
	assert.Equal(t, KindIoFailure, KindOf(os.ErrPermission))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorIsComparesKind(t *testing.T) {
	err := fmt.Errorf("batch: %w", Errorf(KindPathUnavailable, "/missing", "does not exist"))

	assert.True(t, errors.Is(err, ErrPathUnavailable))
	assert.False(t, errors.Is(err, ErrCorruptArchive))
}

func TestErrorUnwrapKeepsCause(t *testing.T) {
	err := NewError(KindIoFailure, "/music/a", os.ErrPermission)

	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.Equal(t, "IoFailure: /music/a: permission denied", err.Error())
}

func TestFailedOutcome(t *testing.T) {
	rec := MatchRecord{FileName: "A - B.zip", Artist: "A", Album: "B"}
	out := Failed(rec, ErrAlbumFolderMissing)

	assert.False(t, out.Success)
	assert.Equal(t, KindAlbumFolderMissing, out.Kind)
	assert.Equal(t, "AlbumFolderMissing", out.ErrorDetail)
	assert.Equal(t, rec, out.Record)
}
