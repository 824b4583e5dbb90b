// Package api exposes the DQM's read-only HTTP surface: process status,
// launch/landing readiness, and Prometheus metrics. It keeps the
// teacher's mux.Router-plus-graceful-shutdown shape, trimmed from full
// tenant CRUD down to what a queue-manager process needs to publish
// about itself (see DESIGN.md "Dropped teacher code").
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/hydrogen-project/hydrogen/internal/dbqueue"
	"github.com/hydrogen-project/hydrogen/internal/metrics"
	"github.com/hydrogen-project/hydrogen/internal/queuemgr"
	"github.com/hydrogen-project/hydrogen/internal/readiness"
)

// Server is the DQM's status/readiness/metrics HTTP server.
type Server struct {
	queues     *queuemgr.Manager
	gate       *readiness.Gate
	metrics    *metrics.Collector
	httpServer *http.Server
	startTime  time.Time
	apiKeyHash []byte // empty disables API-key middleware
}

// NewServer creates a Server. apiKeyHash, when non-empty, is a bcrypt
// hash checked against the X-API-Key header on every request.
func NewServer(q *queuemgr.Manager, g *readiness.Gate, m *metrics.Collector, apiKeyHash []byte) *Server {
	return &Server{
		queues:     q,
		gate:       g,
		metrics:    m,
		startTime:  time.Now(),
		apiKeyHash: apiKeyHash,
	}
}

// Start starts the HTTP server on port.
func (s *Server) Start(port int) error {
	r := mux.NewRouter()
	if len(s.apiKeyHash) > 0 {
		r.Use(s.apiKeyMiddleware)
	}

	r.HandleFunc("/status", s.statusHandler).Methods("GET")
	r.HandleFunc("/readiness", s.readinessHandler).Methods("GET")
	r.HandleFunc("/databases", s.listDatabasesHandler).Methods("GET")
	r.HandleFunc("/databases/{name}", s.databaseHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	slog.Info("api server listening", "addr", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server error", "err", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// apiKeyMiddleware rejects requests whose X-API-Key header does not
// bcrypt-match the configured hash.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" || bcrypt.CompareHashAndPassword(s.apiKeyHash, []byte(key)) != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Status ---

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	agg := s.queues.Aggregates()
	dbs := s.queues.Snapshot()

	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds":   int(time.Since(s.startTime).Seconds()),
		"go_version":       runtime.Version(),
		"goroutines":       runtime.NumGoroutine(),
		"memory_mb":        float64(mem.Alloc) / 1024 / 1024,
		"num_databases":    len(dbs),
		"queries_submitted": agg.Submitted,
		"queries_completed": agg.Completed,
		"queries_failed":    agg.Failed,
		"queries_timed_out": agg.Timeouts,
		"max_query_age_ms":  s.queues.FindMaxQueryAgeAcrossQueues().Milliseconds(),
	})
}

// --- Readiness ---

func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	results := s.gate.Launch()
	status := http.StatusOK
	if !readiness.HandleLandingPlan(results) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, results)
}

// --- Databases ---

type databaseSummary struct {
	Name          string `json:"name"`
	IsLead        bool   `json:"is_lead"`
	QueueType     string `json:"queue_type"`
	Tag           string `json:"tag"`
	QueueNumber   int    `json:"queue_number"`
	Depth         int    `json:"depth"`
	OldestAgeMs   int64  `json:"oldest_query_age_ms"`
}

func (s *Server) listDatabasesHandler(w http.ResponseWriter, r *http.Request) {
	dbs := s.queues.Snapshot()
	out := make([]databaseSummary, 0, len(dbs))
	for _, dq := range dbs {
		out = append(out, summarize(dq))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) databaseHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	dq := s.queues.Get(name)
	if dq == nil {
		writeError(w, http.StatusNotFound, "database not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, summarize(dq))
}

func summarize(dq *dbqueue.DatabaseQueue) databaseSummary {
	return databaseSummary{
		Name:        dq.DatabaseName,
		IsLead:      dq.IsLead(),
		QueueType:   dq.QueueType.String(),
		Tag:         dq.Tag,
		QueueNumber: dq.QueueNumber,
		Depth:       dq.Depth(),
		OldestAgeMs: dq.OldestQueryAge().Milliseconds(),
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
