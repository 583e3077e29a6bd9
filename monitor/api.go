package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/civicwatch/nola-news-watch/internal/archive"
	"github.com/civicwatch/nola-news-watch/internal/config"
	"github.com/civicwatch/nola-news-watch/internal/fetch"
	"github.com/civicwatch/nola-news-watch/internal/models"
	"github.com/civicwatch/nola-news-watch/internal/monitor"
	"github.com/civicwatch/nola-news-watch/internal/relevance"
	"github.com/civicwatch/nola-news-watch/internal/store"
)

type server struct {
	log     *slog.Logger
	cfg     *config.Monitor
	store   *store.Store
	monitor *monitor.Monitor
	sched   *monitor.Scheduler
	archive *archive.Client
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	monitor.Status
	SchedulerRunning bool `json:"scheduler_running"`
	IntervalMinutes  int  `json:"interval_minutes,omitempty"`
}

type configResponse struct {
	Keywords   models.KeywordConfig `json:"keywords"`
	Automation models.Automation    `json:"automation"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:           s.monitor.Status(),
		SchedulerRunning: s.sched.Running(),
		IntervalMinutes:  int(s.sched.Interval().Minutes()),
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCheck triggers one cycle. A cycle already in flight yields 409;
// relay exhaustion yields 502 with a single readable message.
func (s *server) handleCheck(w http.ResponseWriter, r *http.Request) {
	result, err := s.monitor.RunCycle(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, monitor.ErrCycleInFlight):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "a check is already running"})
		default:
			var exhausted *fetch.ExhaustedError
			if errors.As(err, &exhausted) {
				writeJSON(w, http.StatusBadGateway, errorResponse{Error: "could not reach the news page through any relay"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	snap := s.store.LoadSnapshot()
	writeJSON(w, http.StatusOK, s.scoreForDisplay(snap.Current))
}

func (s *server) handlePreviousNews(w http.ResponseWriter, r *http.Request) {
	snap := s.store.LoadSnapshot()
	writeJSON(w, http.StatusOK, s.scoreForDisplay(snap.Previous))
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.LoadHistory())
}

func (s *server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		Keywords:   s.store.LoadKeywords(),
		Automation: s.store.LoadAutomation(int(s.cfg.DefaultInterval.Minutes())),
	})
}

func (s *server) handlePutKeywords(w http.ResponseWriter, r *http.Request) {
	var cfg models.KeywordConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid keyword config"})
		return
	}

	known := make(map[string]bool, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		if strings.TrimSpace(kw) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "keywords cannot be blank"})
			return
		}
		known[kw] = true
	}
	for _, kw := range cfg.ActiveKeywords {
		if !known[kw] {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "active keywords must be a subset of keywords"})
			return
		}
	}

	if err := s.store.SaveKeywords(cfg); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.log.Info("keyword config updated",
		slog.Int("keywords", len(cfg.Keywords)),
		slog.Int("active", len(cfg.ActiveKeywords)),
	)
	writeJSON(w, http.StatusOK, cfg)
}

// handlePutAutomation persists the setting and applies it to the running
// scheduler: enabling or changing the interval rearms the timer, disabling
// disarms it.
func (s *server) handlePutAutomation(w http.ResponseWriter, r *http.Request) {
	var auto models.Automation
	if err := json.NewDecoder(r.Body).Decode(&auto); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid automation config"})
		return
	}
	if auto.Enabled && auto.IntervalMinutes < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "interval must be at least one minute"})
		return
	}

	if err := s.store.SaveAutomation(auto); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if auto.Enabled {
		s.sched.Reschedule(time.Duration(auto.IntervalMinutes) * time.Minute)
	} else {
		s.sched.Stop()
	}
	s.log.Info("automation updated",
		slog.Bool("enabled", auto.Enabled),
		slog.Int("interval_minutes", auto.IntervalMinutes),
	)

	writeJSON(w, http.StatusOK, auto)
}

func (s *server) handleArchiveSearch(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "archive is not enabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	params := archive.SearchParams{
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		Source: strings.TrimSpace(r.URL.Query().Get("source")),
		Level:  strings.TrimSpace(r.URL.Query().Get("level")),
		From:   clampInt(r.URL.Query().Get("from"), 0, 10_000),
		Size:   clampInt(r.URL.Query().Get("size"), 20, 200),
	}

	result, err := s.archive.SearchRecords(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleClearData(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.sched.Stop()
	s.log.Warn("all stored data cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// scoreForDisplay re-scores stored records against the active keyword set
// at read time, so keyword edits show up without waiting for a cycle.
func (s *server) scoreForDisplay(records []models.NewsRecord) []models.ScoredRecord {
	keywords := s.store.LoadKeywords()
	now := time.Now()

	scored := make([]models.ScoredRecord, 0, len(records))
	for _, rec := range records {
		scored = append(scored, models.ScoredRecord{
			NewsRecord: rec,
			Relevance:  relevance.Score(rec, keywords.ActiveKeywords, now),
		})
	}
	return scored
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
