package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/hydrogen-project/hydrogen/internal/dbqueue"
	"github.com/hydrogen-project/hydrogen/internal/metrics"
	"github.com/hydrogen-project/hydrogen/internal/queuemgr"
	"github.com/hydrogen-project/hydrogen/internal/readiness"
)

func newTestServer(t *testing.T) (*Server, *mux.Router) {
	t.Helper()

	qm := queuemgr.New(4)
	lead := dbqueue.New(dbqueue.Config{DatabaseName: "primary", IsLead: true, QueueType: dbqueue.Medium})
	if err := qm.Add(lead); err != nil {
		t.Fatalf("add: %v", err)
	}

	gate := readiness.NewGate()
	gate.Register(readiness.Database, func() readiness.LaunchReadiness {
		return readiness.NewLaunchReadiness(readiness.Database, true, readiness.GoMessage("connected"))
	}, nil)

	s := NewServer(qm, gate, metrics.New(), nil)

	r := mux.NewRouter()
	r.HandleFunc("/status", s.statusHandler).Methods("GET")
	r.HandleFunc("/readiness", s.readinessHandler).Methods("GET")
	r.HandleFunc("/databases", s.listDatabasesHandler).Methods("GET")
	r.HandleFunc("/databases/{name}", s.databaseHandler).Methods("GET")
	return s, r
}

func TestStatusHandler(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["num_databases"]; !ok {
		t.Error("expected num_databases in status body")
	}
}

func TestReadinessHandler(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest("GET", "/readiness", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestListDatabasesHandler(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest("GET", "/databases", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out []databaseSummary
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Name != "primary" {
		t.Errorf("expected one database named primary, got %+v", out)
	}
}

func TestDatabaseHandlerNotFound(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest("GET", "/databases/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAPIKeyMiddlewareRejectsMissingOrWrongKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt hash: %v", err)
	}

	qm := queuemgr.New(2)
	gate := readiness.NewGate()
	s := NewServer(qm, gate, metrics.New(), hash)

	r := mux.NewRouter()
	r.Use(s.apiKeyMiddleware)
	r.HandleFunc("/status", s.statusHandler).Methods("GET")

	req := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with no key, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/status", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/status", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct key, got %d", w.Code)
	}
}
