package batch

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/organizer"
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
	_, err = w.Write([]byte(folder))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func makeRecords(t *testing.T, dir string, n, corrupt int) []album.MatchRecord {
	t.Helper()
	var records []album.MatchRecord
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Artist %d - Album %d.zip", i, i)
		path := filepath.Join(dir, name)
		if i == corrupt {
			require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
		} else {
			writeAlbumZip(t, path, fmt.Sprintf("Album %d", i))
		}
		records = append(records, album.MatchRecord{
			SourcePath: path,
			FileName:   name,
			Artist:     fmt.Sprintf("Artist %d", i),
			Album:      fmt.Sprintf("Album %d", i),
		})
	}
	return records
}

type fakeHistory struct {
	mu       sync.Mutex
	outcomes []album.Outcome
	triggers []string
	err      error
}

func (h *fakeHistory) RecordExtraction(o album.Outcome, trigger string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes = append(h.outcomes, o)
	h.triggers = append(h.triggers, trigger)
	return h.err
}

type blockingExtractor struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExtractor) Extract(r album.MatchRecord, root string) album.Outcome {
	b.started <- struct{}{}
	<-b.release
	return album.Outcome{Record: r, Success: true, DestinationPath: r.Destination(root)}
}

func TestExtractAll_OneCorruptRecord(t *testing.T) {
	downloads := t.TempDir()
	library := t.TempDir()
	records := makeRecords(t, downloads, 5, 2)

	hist := &fakeHistory{}
	driver := NewDriver(organizer.NewExtractor(), WithHistory(hist, "tui"))

	var progress []Progress
	var results []album.Outcome
	summary := driver.ExtractAll(context.Background(), records, library,
		func(p Progress) { progress = append(progress, p) },
		func(o album.Outcome) { results = append(results, o) },
	)

	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.Cancelled)
	require.Len(t, summary.Outcomes, 5)
	for i, o := range summary.Outcomes {
		assert.Equal(t, records[i], o.Record, "outcomes must follow input order")
		assert.Equal(t, i != 2, o.Success)
	}
	assert.Equal(t, album.KindCorruptArchive, summary.Outcomes[2].Kind)
	assert.Equal(t, summary.Outcomes, results)

	require.Len(t, progress, 6)
	assert.Equal(t, 0.0, progress[0].Fraction)
	assert.Equal(t, records[0].FileName, progress[0].CurrentName)
	assert.Equal(t, 0.4, progress[2].Fraction)
	last := progress[5]
	assert.Equal(t, 1.0, last.Fraction)
	assert.Equal(t, 5, last.Index)
	assert.Equal(t, 4, last.Processed)
	assert.Equal(t, 1, last.Failed)

	assert.Len(t, hist.outcomes, 5)
	assert.Equal(t, "tui", hist.triggers[0])
}

func TestExtractAll_Empty(t *testing.T) {
	driver := NewDriver(organizer.NewExtractor())

	var progress []Progress
	summary := driver.ExtractAll(context.Background(), nil, t.TempDir(), func(p Progress) {
		progress = append(progress, p)
	}, nil)

	assert.Zero(t, summary.Processed)
	assert.Zero(t, summary.Attempted())
	require.Len(t, progress, 1)
	assert.Equal(t, 1.0, progress[0].Fraction)
}

func TestExtractAll_CancelBetweenRecords(t *testing.T) {
	downloads := t.TempDir()
	records := makeRecords(t, downloads, 3, -1)

	ctx, cancel := context.WithCancel(context.Background())
	driver := NewDriver(organizer.NewExtractor())
	summary := driver.ExtractAll(ctx, records, t.TempDir(), nil, func(album.Outcome) {
		cancel()
	})

	assert.True(t, summary.Cancelled)
	assert.Equal(t, 1, summary.Attempted())
	assert.Equal(t, 1, summary.Processed)
	_, err := os.Stat(records[1].SourcePath)
	assert.NoError(t, err, "records after the cancel must not be touched")
}

func TestExtractAll_HistoryErrorDoesNotFailRecord(t *testing.T) {
	downloads := t.TempDir()
	records := makeRecords(t, downloads, 1, -1)

	rec := &logging.Recorder{}
	hist := &fakeHistory{err: errors.New("disk full")}
	driver := NewDriver(organizer.NewExtractor(), WithHistory(hist, ""), WithSink(rec))
	summary := driver.ExtractAll(context.Background(), records, t.TempDir(), nil, nil)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, "cli", hist.triggers[0])

	var warned bool
	for _, e := range rec.Events() {
		if e.Level == logging.LevelWarn {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestValidate(t *testing.T) {
	driver := NewDriver(organizer.NewExtractor())
	root := t.TempDir()

	t.Run("ok and creates library", func(t *testing.T) {
		library := filepath.Join(root, "new", "Music")
		require.NoError(t, driver.Validate(root, library))
		info, err := os.Stat(library)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("missing downloads", func(t *testing.T) {
		err := driver.Validate(filepath.Join(root, "missing"), root)
		require.Error(t, err)
		assert.True(t, errors.Is(err, album.ErrPathUnavailable))
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("reports every problem", func(t *testing.T) {
		file := filepath.Join(root, "file.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		err := driver.Validate("", filepath.Join(file, "Music"))
		require.Error(t, err)
		assert.Equal(t, album.KindPathUnavailable, album.KindOf(err))
		assert.Contains(t, err.Error(), "downloads folder is not set")
		assert.Contains(t, err.Error(), "cannot create music library folder")
	})
}

func TestStart_RunsInBackground(t *testing.T) {
	downloads := t.TempDir()
	library := t.TempDir()
	records := makeRecords(t, downloads, 3, 1)

	driver := NewDriver(organizer.NewExtractor())
	job, err := driver.Start(context.Background(), records, library)
	require.NoError(t, err)

	var progress, outcomes int
	for u := range job.Updates() {
		switch {
		case u.Progress != nil:
			progress++
		case u.Outcome != nil:
			outcomes++
		}
	}
	summary := job.Wait()

	assert.Equal(t, 4, progress)
	assert.Equal(t, 3, outcomes)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
}

func TestStart_Busy(t *testing.T) {
	ext := &blockingExtractor{started: make(chan struct{}), release: make(chan struct{})}
	driver := NewDriver(ext)
	records := []album.MatchRecord{{FileName: "a.zip", Artist: "A", Album: "B"}}

	job, err := driver.Start(context.Background(), records, "/music")
	require.NoError(t, err)
	<-ext.started

	_, err = driver.Start(context.Background(), records, "/music")
	assert.ErrorIs(t, err, ErrBusy)

	close(ext.release)
	summary := job.Wait()
	assert.Equal(t, 1, summary.Processed)

	// Free again once the first job is done.
	go func() { <-ext.started }()
	job, err = driver.Start(context.Background(), records, "/music")
	require.NoError(t, err)
	job.Wait()
}

func TestJob_Cancel(t *testing.T) {
	ext := &blockingExtractor{started: make(chan struct{}), release: make(chan struct{})}
	driver := NewDriver(ext)
	records := []album.MatchRecord{
		{FileName: "a.zip", Artist: "A", Album: "1"},
		{FileName: "b.zip", Artist: "B", Album: "2"},
	}

	job, err := driver.Start(context.Background(), records, "/music")
	require.NoError(t, err)
	<-ext.started
	job.Cancel()
	close(ext.release)

	summary := job.Wait()
	assert.True(t, summary.Cancelled)
	assert.Equal(t, 1, summary.Attempted())
}
