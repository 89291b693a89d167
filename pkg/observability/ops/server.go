// Package ops serves the health and metrics endpoints of a running job.
package ops

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/logger"
)

// Status is what /health reports about the run in progress.
type Status struct {
	RunID string `json:"run_id"`
	Phase string `json:"phase"`
	Table string `json:"table,omitempty"`
}

// Tracker holds the latest Status; the pipeline updates it, handlers read it.
type Tracker struct {
	v atomic.Value
}

func NewTracker(runID string) *Tracker {
	t := &Tracker{}
	t.v.Store(Status{RunID: runID, Phase: "starting"})
	return t
}

func (t *Tracker) Set(phase, table string) {
	if t == nil {
		return
	}
	s := t.Get()
	s.Phase, s.Table = phase, table
	t.v.Store(s)
}

func (t *Tracker) Get() Status {
	return t.v.Load().(Status)
}

func NewRouter(tracker *Tracker, metrics http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(Logging)
	router.Use(Recovery)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "healthy",
			"run":    tracker.Get(),
		})
	}).Methods("GET")
	router.Handle("/metrics", metrics).Methods("GET")
	return router
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		r.Header.Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)

		logger.Log.WithFields(map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": reqID,
			"duration":   time.Since(start).Milliseconds(),
		}).Debug("HTTP request")
	})
}

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Log.WithField("error", err).Error("Panic recovered")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
