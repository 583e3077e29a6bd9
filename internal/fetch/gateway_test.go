package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civicwatch/nola-news-watch/internal/fetch"
)

const target = "https://nola.gov/next/news/"

func relayServer(t *testing.T, hits *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, target, r.URL.Query().Get("url"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchFallsBackInOrder(t *testing.T) {
	var first, second, third, fourth atomic.Int32
	relays := []string{
		relayServer(t, &first, http.StatusInternalServerError, "").URL + "/?url=",
		relayServer(t, &second, http.StatusForbidden, "").URL + "/?url=",
		relayServer(t, &third, http.StatusOK, "<html>listing</html>").URL + "/?url=",
		relayServer(t, &fourth, http.StatusOK, "never reached").URL + "/?url=",
	}

	g := fetch.New(relays, 5*time.Second, nil)
	body, err := g.Fetch(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, "<html>listing</html>", body)

	require.Equal(t, int32(1), first.Load())
	require.Equal(t, int32(1), second.Load())
	require.Equal(t, int32(1), third.Load())
	require.Equal(t, int32(0), fourth.Load(), "success must not try further relays")
}

func TestFetchExhausted(t *testing.T) {
	var first, second atomic.Int32
	relays := []string{
		relayServer(t, &first, http.StatusBadGateway, "").URL + "/?url=",
		relayServer(t, &second, http.StatusNotFound, "").URL + "/?url=",
	}

	g := fetch.New(relays, 5*time.Second, nil)
	_, err := g.Fetch(context.Background(), target)

	var exhausted *fetch.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 2, exhausted.Relays)
	require.Equal(t, target, exhausted.Target)
	require.Equal(t, int32(1), first.Load())
	require.Equal(t, int32(1), second.Load())
}

func TestFetchRejectsEmptyBody(t *testing.T) {
	var first, second atomic.Int32
	relays := []string{
		relayServer(t, &first, http.StatusOK, "").URL + "/?url=",
		relayServer(t, &second, http.StatusOK, "fallback body").URL + "/?url=",
	}

	g := fetch.New(relays, 5*time.Second, nil)
	body, err := g.Fetch(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, "fallback body", body)
}

func TestFetchSetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("Accept"))
		require.Contains(t, r.Header.Get("User-Agent"), "nola-news-watch")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	g := fetch.New([]string{srv.URL + "/?url="}, 5*time.Second, nil)
	body, err := g.Fetch(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, "ok", body)
}

func TestFetchUnreachableRelay(t *testing.T) {
	// Closed port: transport error rather than bad status.
	g := fetch.New([]string{"http://127.0.0.1:1/?url="}, time.Second, nil)
	_, err := g.Fetch(context.Background(), target)

	var exhausted *fetch.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 1, exhausted.Relays)
}

func TestFetchCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	g := fetch.New([]string{srv.URL + "/?url=", srv.URL + "/?url="}, time.Second, nil)
	_, err := g.Fetch(ctx, target)
	require.Error(t, err)
}
