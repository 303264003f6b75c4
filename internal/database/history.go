package database

import (
	"time"

	"github.com/Nomadcxx/albumdrop/internal/album"
)

// Extraction is one row of the history table
type Extraction struct {
	ID              int64
	FileName        string
	SourcePath      string
	Artist          string
	Album           string
	Success         bool
	DestinationPath string
	ErrorKind       album.Kind
	ErrorDetail     string
	Files           int
	Bytes           int64
	SourceDeleted   bool
	Duration        time.Duration
	TriggeredBy     string
	CreatedAt       time.Time
}

// HistoryStats aggregates the history table
type HistoryStats struct {
	Total          int
	Succeeded      int
	Failed         int
	BytesExtracted int64
	LastExtraction time.Time
}

// RecordExtraction stores an outcome. trigger names what started the batch.
func (h *HistoryDB) RecordExtraction(outcome album.Outcome, trigger string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := outcome.Record
	_, err := h.db.Exec(`
		INSERT INTO extractions (
			file_name, source_path, artist, album,
			success, destination_path, error_kind, error_detail,
			files, bytes, source_deleted, duration_ms,
			triggered_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.FileName, r.SourcePath, r.Artist, r.Album,
		outcome.Success, outcome.DestinationPath, string(outcome.Kind), outcome.ErrorDetail,
		outcome.Files, outcome.Bytes, outcome.SourceDeleted, outcome.Duration.Milliseconds(),
		trigger, time.Now().UnixMilli())

	return err
}

// RecentExtractions returns up to limit rows, newest first
func (h *HistoryDB) RecentExtractions(limit int) ([]Extraction, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := h.db.Query(`
		SELECT id, file_name, source_path, artist, album,
			success, destination_path, error_kind, error_detail,
			files, bytes, source_deleted, duration_ms,
			triggered_by, created_at
		FROM extractions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Extraction
	for rows.Next() {
		var e Extraction
		var kind string
		var durationMs, createdMs int64
		if err := rows.Scan(
			&e.ID, &e.FileName, &e.SourcePath, &e.Artist, &e.Album,
			&e.Success, &e.DestinationPath, &kind, &e.ErrorDetail,
			&e.Files, &e.Bytes, &e.SourceDeleted, &durationMs,
			&e.TriggeredBy, &createdMs,
		); err != nil {
			return nil, err
		}
		e.ErrorKind = album.Kind(kind)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, e)
	}

	return out, rows.Err()
}

// Stats returns totals over the whole history
func (h *HistoryDB) Stats() (*HistoryStats, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var stats HistoryStats
	var last int64
	err := h.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(success), 0),
			COALESCE(SUM(CASE WHEN success = 1 THEN bytes ELSE 0 END), 0),
			COALESCE(MAX(created_at), 0)
		FROM extractions
	`).Scan(&stats.Total, &stats.Succeeded, &stats.BytesExtracted, &last)
	if err != nil {
		return nil, err
	}

	stats.Failed = stats.Total - stats.Succeeded
	if last > 0 {
		stats.LastExtraction = time.UnixMilli(last)
	}
	return &stats, nil
}

// PruneBefore deletes rows older than cutoff and returns how many went
func (h *HistoryDB) PruneBefore(cutoff time.Time) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := h.db.Exec(`DELETE FROM extractions WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
