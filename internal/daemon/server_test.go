package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/Nomadcxx/albumdrop/internal/batch"
	"github.com/Nomadcxx/albumdrop/internal/database"
	"github.com/Nomadcxx/albumdrop/internal/naming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServerHealth(t *testing.T) {
	h, _, _ := newTestHandler(t, time.Second)
	server := NewServer(h, nil, nil, ":0", nil)

	w := serve(t, server, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestServerHealthUnhealthy(t *testing.T) {
	h, _, _ := newTestHandler(t, time.Second)
	server := NewServer(h, nil, nil, ":0", nil)
	server.SetHealthy(false)

	w := serve(t, server, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "unhealthy", resp.Status)

	w = serve(t, server, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServerHealthDegraded(t *testing.T) {
	h, _, _ := newTestHandler(t, time.Second)
	ps := NewPeriodicScanner(time.Hour, scannerFunc(func(context.Context) (batch.Summary, error) {
		return batch.Summary{}, errors.New("downloads folder does not exist")
	}), nil)
	ps.tick(context.Background())

	server := NewServer(h, ps, nil, ":0", nil)
	w := serve(t, server, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	require.NotNil(t, resp.ScannerStatus)
	assert.Contains(t, resp.ScannerStatus.LastError, "does not exist")
}

func TestServerReady(t *testing.T) {
	h, _, _ := newTestHandler(t, time.Second)
	server := NewServer(h, nil, nil, ":0", nil)

	w := serve(t, server, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", w.Body.String())
}

func TestServerStats(t *testing.T) {
	h, _, _ := newTestHandler(t, time.Second)
	h.stats.RecordOutcome(album.Outcome{Success: true, Bytes: 2 * 1024 * 1024})
	h.stats.RecordOutcome(album.Outcome{Success: false})
	server := NewServer(h, nil, nil, ":0", nil)

	w := serve(t, server, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(1), resp.Processed)
	assert.Equal(t, int64(1), resp.Failed)
	assert.Equal(t, 2.0, resp.BytesMB)
	assert.NotEmpty(t, resp.LastProcessed)
}

func TestServerHistory(t *testing.T) {
	h, _, _ := newTestHandler(t, time.Second)
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.RecordExtraction(album.Outcome{
		Record:          album.MatchRecord{FileName: "Burial - Untrue.zip", Artist: "Burial", Album: "Untrue"},
		Success:         true,
		DestinationPath: "/music/Burial/Untrue",
	}, "daemon"))
	require.NoError(t, db.RecordExtraction(album.Outcome{
		Record:      album.MatchRecord{FileName: "Broken - Record.zip", Artist: "Broken", Album: "Record"},
		Kind:        album.KindCorruptArchive,
		ErrorDetail: "zip: not a valid zip file",
	}, "daemon"))

	server := NewServer(h, nil, db, ":0", nil)

	w := serve(t, server, http.MethodGet, "/api/v1/history?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Broken - Record.zip", resp.Items[0].FileName)
	assert.Equal(t, "CorruptArchive", resp.Items[0].ErrorKind)

	w = serve(t, server, http.MethodGet, "/api/v1/history?limit=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerHistoryDisabled(t *testing.T) {
	h, _, _ := newTestHandler(t, time.Second)
	server := NewServer(h, nil, nil, ":0", nil)

	w := serve(t, server, http.MethodGet, "/api/v1/history")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerPatterns(t *testing.T) {
	h, _, _ := newTestHandler(t, time.Second)
	server := NewServer(h, nil, nil, ":0", nil)

	w := serve(t, server, http.MethodGet, "/api/v1/patterns")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []PatternResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp, len(naming.Patterns()))
	assert.True(t, resp[0].Active)
	assert.Equal(t, naming.DefaultPatternName, resp[0].Name)
}

func TestServerScan(t *testing.T) {
	h, downloads, _ := newTestHandler(t, time.Hour)
	writeAlbumZip(t, filepath.Join(downloads, "Burial - Untrue.zip"), "Untrue")
	server := NewServer(h, nil, nil, ":0", nil)

	w := serve(t, server, http.MethodPost, "/api/v1/scan")
	assert.Equal(t, http.StatusAccepted, w.Code)

	assert.Eventually(t, func() bool {
		return h.Stats().Processed == 1
	}, 5*time.Second, 20*time.Millisecond)

	w = serve(t, server, http.MethodGet, "/api/v1/scan")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type scannerFunc func(context.Context) (batch.Summary, error)

func (f scannerFunc) RunScan(ctx context.Context) (batch.Summary, error) {
	return f(ctx)
}

func TestPeriodicScanner_Status(t *testing.T) {
	var calls atomic.Int32
	ps := NewPeriodicScanner(time.Hour, scannerFunc(func(context.Context) (batch.Summary, error) {
		calls.Add(1)
		return batch.Summary{Processed: 2, Outcomes: make([]album.Outcome, 2)}, nil
	}), nil)

	ps.tick(context.Background())

	status := ps.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, 2, status.LastFound)
	assert.False(t, status.LastSuccess.IsZero())
	assert.Equal(t, int32(1), calls.Load())
}

func TestPeriodicScanner_SkipsWhileScanRunning(t *testing.T) {
	ps := NewPeriodicScanner(time.Hour, scannerFunc(func(context.Context) (batch.Summary, error) {
		return batch.Summary{}, ErrScanRunning
	}), nil)

	ps.tick(context.Background())

	status := ps.Status()
	assert.True(t, status.Healthy, "a concurrent scan is not a failure")
	assert.Equal(t, int64(1), status.SkippedTicks)
}

func TestPeriodicScanner_RecoversPanic(t *testing.T) {
	ps := NewPeriodicScanner(time.Hour, scannerFunc(func(context.Context) (batch.Summary, error) {
		panic("boom")
	}), nil)

	ps.tick(context.Background())
	assert.False(t, ps.IsHealthy())
	assert.Contains(t, ps.Status().LastError, "boom")
}

func TestPeriodicScanner_StartStops(t *testing.T) {
	var calls atomic.Int32
	ps := NewPeriodicScanner(10*time.Millisecond, scannerFunc(func(context.Context) (batch.Summary, error) {
		calls.Add(1)
		return batch.Summary{}, nil
	}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ps.Start(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
