package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []FileEvent
}

func (h *recordingHandler) HandleFileEvent(e FileEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *recordingHandler) IsArchive(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zip")
}

func (h *recordingHandler) paths() map[string]bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := map[string]bool{}
	for _, e := range h.events {
		out[filepath.Base(e.Path)] = true
	}
	return out
}

func TestWatcher_ForwardsArchiveEvents(t *testing.T) {
	dir := t.TempDir()
	h := &recordingHandler{}

	w, err := NewWatcher(h)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Burial - Untrue.zip"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.zip"), 0755))

	assert.Eventually(t, func() bool {
		return h.paths()["Burial - Untrue.zip"]
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	seen := h.paths()
	assert.False(t, seen["notes.txt"])
	assert.False(t, seen["folder.zip"], "directories are not archives")
}
