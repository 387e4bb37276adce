package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/observability"
	"fluence-lab/internal/reporting"
	"fluence-lab/internal/storage"
)

// defaultHistory is the /forecast/runs window when no since is given.
const defaultHistory = 24 * time.Hour

// routes builds the HTTP handler for health, metrics, status and the forecast API.
func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Prometheus metrics
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	// Status endpoint
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	// Forecast API
	r.HandleFunc("/forecast/latest", s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/forecast/runs", s.handleRuns).Methods(http.MethodGet)
	r.HandleFunc("/forecast/runs/{id}", s.handleRun).Methods(http.MethodGet)
	r.HandleFunc("/forecast", s.handleTrigger).Methods(http.MethodPost)

	return handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stdout, r))
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	StartedAt     time.Time `json:"started_at"`
	SampleBackend string    `json:"sample_backend"`
	LastRun       time.Time `json:"last_run,omitempty"`
	LastStatus    string    `json:"last_status,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	ForecastRuns  int       `json:"forecast_runs"`
	Running       bool      `json:"running"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.startedAt).Round(time.Second).String(),
		StartedAt:     s.startedAt,
		SampleBackend: s.stores.SampleBackend,
		LastRun:       s.lastRun,
		LastStatus:    s.lastStatus,
		LastError:     s.lastError,
		ForecastRuns:  s.forecastRuns,
		Running:       s.running,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleLatest returns the most recent forecast run.
// ?format=csv returns its percentile curves, ?format=markdown a report.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	run, err := s.stores.Runs.GetLatest(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeRun(w, r, run)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.stores.Runs.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeRun(w, r, run)
}

// handleRuns lists runs created in [since, until], RFC3339 query params.
// Defaults to the last 24 hours.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	until := time.Now()
	since := until.Add(-defaultHistory)

	if v := r.URL.Query().Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until")
			return
		}
		until = t
	}
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
		since = t
	}

	runs, err := s.stores.Runs.GetByTimeRange(r.Context(), since.UnixMilli(), until.UnixMilli())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(reporting.RenderRunsCSV(runs)))
		return
	}
	if runs == nil {
		runs = []*domain.ForecastRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleTrigger runs a forecast now. Optional level and trend query params
// override the live state derived from recent samples.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var q *domain.LiveQuery
	if v := r.URL.Query().Get("level"); v != "" {
		level, err := strconv.ParseFloat(v, 64)
		if err != nil || level <= 0 {
			writeError(w, http.StatusBadRequest, "invalid level")
			return
		}
		q = &domain.LiveQuery{Level: level}
	}
	if v := r.URL.Query().Get("trend"); v != "" {
		if q == nil {
			writeError(w, http.StatusBadRequest, "trend requires level")
			return
		}
		trend, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid trend")
			return
		}
		q.Trend = &trend
	}

	result, err := s.runAndRecord(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		writeError(w, http.StatusConflict, "forecast already running")
		return
	}
	writeJSON(w, http.StatusCreated, result.Run)
}

func writeRun(w http.ResponseWriter, r *http.Request, run *domain.ForecastRun) {
	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(reporting.RenderCSV(runForecast(run))))
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown")
		w.Write([]byte(reporting.RenderMarkdown(run, 6)))
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

// runForecast rebuilds the percentile curves of a stored run.
func runForecast(run *domain.ForecastRun) *domain.FluenceForecast {
	hours := make([]int, len(run.P50))
	for i := range hours {
		hours[i] = i + 1
	}
	return &domain.FluenceForecast{
		Hours:            hours,
		P10:              run.P10,
		P50:              run.P50,
		P90:              run.P90,
		BinWidth:         run.BinWidth,
		MagnitudeMatches: run.MagnitudeMatches,
		Selected:         run.Selected,
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
