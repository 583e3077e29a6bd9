package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civicwatch/nola-news-watch/internal/config"
	"github.com/civicwatch/nola-news-watch/internal/extract"
	"github.com/civicwatch/nola-news-watch/internal/fetch"
	"github.com/civicwatch/nola-news-watch/internal/models"
	"github.com/civicwatch/nola-news-watch/internal/monitor"
	"github.com/civicwatch/nola-news-watch/internal/notify"
	"github.com/civicwatch/nola-news-watch/internal/store"
)

type fixedFetcher struct {
	markup string
}

func (f *fixedFetcher) Fetch(context.Context, string) (string, error) {
	return f.markup, nil
}

func newTestServer(t *testing.T, fetcher monitor.Fetcher) *server {
	t.Helper()

	cfg := &config.Monitor{
		TargetURL:           "https://nola.gov/next/news/",
		DefaultInterval:     30 * time.Minute,
		ZeroStreakThreshold: 3,
	}
	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)

	dispatcher := notify.NewDispatcher(notify.Nop{}, notify.NewSeenCache(10, time.Hour), nil)
	mon := monitor.New(cfg, st, fetcher, extract.New(nil), dispatcher, nil, nil)
	sched := monitor.NewScheduler(func(context.Context) {}, nil)
	t.Cleanup(sched.Stop)

	return &server{
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:     cfg,
		store:   st,
		monitor: mon,
		sched:   sched,
	}
}

func TestHandleCheckAndNews(t *testing.T) {
	markup := `<html><body>
<div>
  <h3><a href="/next/news/test-story/">Test Story Headline</a></h3>
  <p>A description line that is comfortably over twenty characters long.</p>
</div>
</body></html>`
	srv := newTestServer(t, &fixedFetcher{markup: markup})

	w := httptest.NewRecorder()
	srv.handleCheck(w, httptest.NewRequest(http.MethodPost, "/check", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result monitor.CycleResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	require.Len(t, result.Records, 1)
	require.Len(t, result.Changes, 1)
	require.NotEmpty(t, result.CycleID)

	w = httptest.NewRecorder()
	srv.handleNews(w, httptest.NewRequest(http.MethodGet, "/news", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var scored []models.ScoredRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&scored))
	require.Len(t, scored, 1)
	require.Equal(t, "test-story", scored[0].ID)
	require.GreaterOrEqual(t, scored[0].Relevance.Score, 1)
}

func TestHandleCheckRelayExhaustion(t *testing.T) {
	gateway := fetch.New([]string{"http://127.0.0.1:1/?url="}, time.Second, nil)
	srv := newTestServer(t, gateway)

	w := httptest.NewRecorder()
	srv.handleCheck(w, httptest.NewRequest(http.MethodPost, "/check", nil))

	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Contains(t, resp.Error, "relay")
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, &fixedFetcher{markup: "<html></html>"})

	w := httptest.NewRecorder()
	srv.handleStatus(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	require.False(t, status.SchedulerRunning)
	require.Zero(t, status.CurrentCount)
}

func TestHandlePutKeywordsValidation(t *testing.T) {
	srv := newTestServer(t, &fixedFetcher{})

	body := `{"keywords":["mayor"],"active_keywords":["ghost"]}`
	w := httptest.NewRecorder()
	srv.handlePutKeywords(w, httptest.NewRequest(http.MethodPut, "/config/keywords", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	body = `{"keywords":["mayor","council"],"active_keywords":["council"],"notifications_enabled":true}`
	w = httptest.NewRecorder()
	srv.handlePutKeywords(w, httptest.NewRequest(http.MethodPut, "/config/keywords", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	saved := srv.store.LoadKeywords()
	require.Equal(t, []string{"mayor", "council"}, saved.Keywords)
	require.Equal(t, []string{"council"}, saved.ActiveKeywords)
}

func TestHandlePutAutomation(t *testing.T) {
	srv := newTestServer(t, &fixedFetcher{})

	body := `{"enabled":true,"interval_minutes":0}`
	w := httptest.NewRecorder()
	srv.handlePutAutomation(w, httptest.NewRequest(http.MethodPut, "/config/automation", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	body = `{"enabled":true,"interval_minutes":15}`
	w = httptest.NewRecorder()
	srv.handlePutAutomation(w, httptest.NewRequest(http.MethodPut, "/config/automation", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, srv.sched.Running())
	require.Equal(t, 15*time.Minute, srv.sched.Interval())

	body = `{"enabled":false}`
	w = httptest.NewRecorder()
	srv.handlePutAutomation(w, httptest.NewRequest(http.MethodPut, "/config/automation", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, srv.sched.Running())

	auto := srv.store.LoadAutomation(30)
	require.False(t, auto.Enabled)
}

func TestHandleArchiveSearchDisabled(t *testing.T) {
	srv := newTestServer(t, &fixedFetcher{})

	w := httptest.NewRecorder()
	srv.handleArchiveSearch(w, httptest.NewRequest(http.MethodGet, "/archive/search?q=mayor", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleClearData(t *testing.T) {
	markup := `<html><body><h3><a href="/next/news/one-story/">One Story Headline</a></h3></body></html>`
	srv := newTestServer(t, &fixedFetcher{markup: markup})

	w := httptest.NewRecorder()
	srv.handleCheck(w, httptest.NewRequest(http.MethodPost, "/check", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, srv.store.LoadSnapshot().Current)

	w = httptest.NewRecorder()
	srv.handleClearData(w, httptest.NewRequest(http.MethodDelete, "/data", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, srv.store.LoadSnapshot().Current)
	require.Empty(t, srv.store.LoadHistory())
}
