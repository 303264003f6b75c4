package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *HistoryDB {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := OpenPath(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func sampleOutcome(name string, ok bool) album.Outcome {
	o := album.Outcome{
		Record: album.MatchRecord{
			SourcePath: "/downloads/" + name + ".zip",
			FileName:   name + ".zip",
			Artist:     "Radiohead",
			Album:      name,
		},
		Success:  ok,
		Duration: 1500 * time.Millisecond,
	}
	if ok {
		o.DestinationPath = "/music/Radiohead/" + name
		o.Files = 12
		o.Bytes = 1024
		o.SourceDeleted = true
	} else {
		o.Kind = album.KindCorruptArchive
		o.ErrorDetail = "zip: not a valid zip file"
	}
	return o
}

func TestMigrations(t *testing.T) {
	db := setupTestDB(t)

	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)

	// Reopening must not reapply anything
	path := db.Path()
	require.NoError(t, db.Close())
	db, err = OpenPath(path)
	require.NoError(t, err)
	defer db.Close()

	v, err = db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestRecordAndRecentExtractions(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.RecordExtraction(sampleOutcome("OK Computer", true), "cli"))
	require.NoError(t, db.RecordExtraction(sampleOutcome("Kid A", false), "daemon"))

	rows, err := db.RecentExtractions(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	newest := rows[0]
	assert.Equal(t, "Kid A.zip", newest.FileName)
	assert.False(t, newest.Success)
	assert.Equal(t, album.KindCorruptArchive, newest.ErrorKind)
	assert.Equal(t, "daemon", newest.TriggeredBy)

	oldest := rows[1]
	assert.True(t, oldest.Success)
	assert.Equal(t, "/music/Radiohead/OK Computer", oldest.DestinationPath)
	assert.Equal(t, 12, oldest.Files)
	assert.True(t, oldest.SourceDeleted)
	assert.Equal(t, 1500*time.Millisecond, oldest.Duration)
	assert.WithinDuration(t, time.Now(), oldest.CreatedAt, time.Minute)

	limited, err := db.RecentExtractions(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStats(t *testing.T) {
	db := setupTestDB(t)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.True(t, stats.LastExtraction.IsZero())

	require.NoError(t, db.RecordExtraction(sampleOutcome("A", true), "cli"))
	require.NoError(t, db.RecordExtraction(sampleOutcome("B", true), "cli"))
	require.NoError(t, db.RecordExtraction(sampleOutcome("C", false), "tui"))

	stats, err = db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, int64(2048), stats.BytesExtracted)
	assert.False(t, stats.LastExtraction.IsZero())
}

func TestPruneBefore(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.RecordExtraction(sampleOutcome("A", true), "cli"))

	n, err := db.PruneBefore(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = db.PruneBefore(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.RecordExtraction(sampleOutcome("A", true), "tui"))
	rows, err := db.RecentExtractions(0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
