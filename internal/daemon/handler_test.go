package daemon

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/batch"
	"github.com/Nomadcxx/albumdrop/internal/organizer"
	"github.com/Nomadcxx/albumdrop/internal/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAlbumZip(t *testing.T, path, folder string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create(folder + "/01 Track.mp3")
	require.NoError(t, err)
	_, err = w.Write([]byte("audio"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func newTestHandler(t *testing.T, debounce time.Duration) (h *Handler, downloads, library string) {
	t.Helper()
	downloads = t.TempDir()
	library = t.TempDir()

	h, err := NewHandler(HandlerConfig{
		DownloadsDir: downloads,
		LibraryDir:   library,
		Driver:       batch.NewDriver(organizer.NewExtractor()),
		DebounceTime: debounce,
	})
	require.NoError(t, err)
	t.Cleanup(h.Shutdown)
	return h, downloads, library
}

func TestNewHandler_RequiresDriver(t *testing.T) {
	_, err := NewHandler(HandlerConfig{DownloadsDir: t.TempDir()})
	assert.Error(t, err)
}

func TestHandler_IsArchive(t *testing.T) {
	h, downloads, _ := newTestHandler(t, time.Second)

	assert.True(t, h.IsArchive(filepath.Join(downloads, "Burial - Untrue.zip")))
	assert.False(t, h.IsArchive(filepath.Join(downloads, "Burial - Untrue.rar")))
	assert.False(t, h.IsArchive(filepath.Join(downloads, "untitled.zip")))
	assert.False(t, h.IsArchive(filepath.Join(downloads, "sub", "Burial - Untrue.zip")), "only the top level is watched")
}

func TestHandler_DebouncesAndExtracts(t *testing.T) {
	h, downloads, library := newTestHandler(t, 50*time.Millisecond)

	path := filepath.Join(downloads, "Burial - Untrue.zip")
	writeAlbumZip(t, path, "Untrue")

	for i := 0; i < 3; i++ {
		require.NoError(t, h.HandleFileEvent(watcher.FileEvent{Type: watcher.EventWrite, Path: path}))
	}
	assert.Equal(t, 1, h.PendingCount(), "repeated events collapse into one timer")

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(library, "Burial", "Untrue", "01 Track.mp3"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return h.Stats().Processed == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Zero(t, h.PendingCount())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestHandler_DeleteCancelsPending(t *testing.T) {
	h, downloads, _ := newTestHandler(t, time.Hour)
	path := filepath.Join(downloads, "Burial - Untrue.zip")

	require.NoError(t, h.HandleFileEvent(watcher.FileEvent{Type: watcher.EventCreate, Path: path}))
	assert.Equal(t, 1, h.PendingCount())

	require.NoError(t, h.HandleFileEvent(watcher.FileEvent{Type: watcher.EventDelete, Path: path}))
	assert.Zero(t, h.PendingCount())
}

func TestHandler_RunScan(t *testing.T) {
	h, downloads, library := newTestHandler(t, time.Hour)
	writeAlbumZip(t, filepath.Join(downloads, "Burial - Untrue.zip"), "Untrue")
	writeAlbumZip(t, filepath.Join(downloads, "Portishead - Dummy.zip"), "Dummy")
	require.NoError(t, os.WriteFile(filepath.Join(downloads, "Broken - Record.zip"), []byte("nope"), 0644))

	// A pending timer for a scanned archive is dropped
	require.NoError(t, h.HandleFileEvent(watcher.FileEvent{Type: watcher.EventCreate, Path: filepath.Join(downloads, "Burial - Untrue.zip")}))

	summary, err := h.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, h.PendingCount())

	_, err = os.Stat(filepath.Join(library, "Portishead", "Dummy", "01 Track.mp3"))
	assert.NoError(t, err)

	stats := h.Stats()
	assert.Equal(t, int64(2), stats.Processed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Scans)
}

func TestHandler_RunScanMissingDownloads(t *testing.T) {
	h, err := NewHandler(HandlerConfig{
		DownloadsDir: filepath.Join(t.TempDir(), "missing"),
		LibraryDir:   t.TempDir(),
		Driver:       batch.NewDriver(organizer.NewExtractor()),
	})
	require.NoError(t, err)
	defer h.Shutdown()

	_, err = h.RunScan(context.Background())
	assert.Error(t, err)
	assert.False(t, h.Scanning())
}
