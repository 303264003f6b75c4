package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/database"
	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/naming"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// HistoryReader is the read side of the history database.
type HistoryReader interface {
	RecentExtractions(limit int) ([]database.Extraction, error)
	Stats() (*database.HistoryStats, error)
}

type Server struct {
	httpServer *http.Server
	handler    *Handler
	scanner    *PeriodicScanner
	history    HistoryReader
	startTime  time.Time
	mu         sync.RWMutex
	healthy    bool
	logger     *logging.Logger
}

type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	Timestamp     time.Time      `json:"timestamp"`
	ScannerStatus *ScannerStatus `json:"scanner,omitempty"`
}

type StatsResponse struct {
	Processed      int64   `json:"processed"`
	Failed         int64   `json:"failed"`
	BytesExtracted int64   `json:"bytes_extracted"`
	BytesMB        float64 `json:"bytes_extracted_mb"`
	Scans          int64   `json:"scans"`
	Pending        int     `json:"pending"`
	Scanning       bool    `json:"scanning"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	LastProcessed  string  `json:"last_processed,omitempty"`
}

type HistoryEntry struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album"`
	Success     bool      `json:"success"`
	Destination string    `json:"destination,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	TriggeredBy string    `json:"triggered_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type HistoryResponse struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Items     []HistoryEntry `json:"items"`
}

type PatternResponse struct {
	Name    string `json:"name"`
	Example string `json:"example"`
	Expr    string `json:"expr"`
	Active  bool   `json:"active"`
}

// NewServer wires the health and API routes. periodicScanner and history
// may be nil.
func NewServer(handler *Handler, periodicScanner *PeriodicScanner, history HistoryReader, addr string, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		handler:   handler,
		scanner:   periodicScanner,
		history:   history,
		startTime: time.Now(),
		healthy:   true,
		logger:    logger,
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/stats", s.handleStats)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Get("/history", s.handleHistory)
		r.Get("/patterns", s.handlePatterns)
		r.Post("/scan", s.handleScan)
	})

	return r
}

func (s *Server) Start() error {
	s.logger.Info("server", "Health server starting", logging.F("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server error: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) SetHealthy(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	healthy := s.healthy
	s.mu.RUnlock()

	scannerHealthy := true
	var scannerStatus *ScannerStatus
	if s.scanner != nil {
		scannerHealthy = s.scanner.IsHealthy()
		status := s.scanner.Status()
		scannerStatus = &status
	}

	response := HealthResponse{
		Uptime:        time.Since(s.startTime).Round(time.Second).String(),
		Timestamp:     time.Now(),
		ScannerStatus: scannerStatus,
	}

	code := http.StatusOK
	switch {
	case healthy && scannerHealthy:
		response.Status = "healthy"
	case healthy:
		// Degraded but still serving
		response.Status = "degraded"
	default:
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, response)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	healthy := s.healthy
	s.mu.RUnlock()

	if healthy {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.handler.Stats()

	response := StatsResponse{
		Processed:      stats.Processed,
		Failed:         stats.Failed,
		BytesExtracted: stats.BytesExtracted,
		BytesMB:        float64(stats.BytesExtracted) / (1024 * 1024),
		Scans:          stats.Scans,
		Pending:        s.handler.PendingCount(),
		Scanning:       s.handler.Scanning(),
		UptimeSeconds:  stats.Uptime.Seconds(),
	}
	if !stats.LastProcessed.IsZero() {
		response.LastProcessed = stats.LastProcessed.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	rows, err := s.history.RecentExtractions(limit)
	if err != nil {
		s.logger.Error("server", "Failed to read history", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read history"})
		return
	}
	stats, err := s.history.Stats()
	if err != nil {
		s.logger.Error("server", "Failed to read history stats", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read history"})
		return
	}

	resp := HistoryResponse{
		Total:     stats.Total,
		Succeeded: stats.Succeeded,
		Failed:    stats.Failed,
		Items:     make([]HistoryEntry, 0, len(rows)),
	}
	for _, e := range rows {
		resp.Items = append(resp.Items, HistoryEntry{
			ID:          e.ID,
			FileName:    e.FileName,
			Artist:      e.Artist,
			Album:       e.Album,
			Success:     e.Success,
			Destination: e.DestinationPath,
			ErrorKind:   string(e.ErrorKind),
			Error:       e.ErrorDetail,
			TriggeredBy: e.TriggeredBy,
			CreatedAt:   e.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	active := s.handler.Pattern().Name
	var out []PatternResponse
	for _, p := range naming.Patterns() {
		out = append(out, PatternResponse{
			Name:    p.Name,
			Example: p.Example,
			Expr:    p.Expr(),
			Active:  p.Name == active,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if err := s.handler.TriggerScan(); err != nil {
		if errors.Is(err, ErrScanRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scan started"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
