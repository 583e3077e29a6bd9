// Package fetch retrieves the raw markup of the monitored page through a
// list of relay endpoints. The page itself cannot be fetched by browser
// collaborators directly, so every request goes through a relay; this
// gateway keeps the same shape server-side for predictable behavior.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	acceptHeader = "text/html,application/xhtml+xml"
	userAgent    = "nola-news-watch/1.0 (+https://github.com/civicwatch/nola-news-watch)"
)

// ExhaustedError reports that every configured relay failed for a target.
// Individual relay failures are logged, not carried.
type ExhaustedError struct {
	Target string
	Relays int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d relays failed for %s", e.Relays, e.Target)
}

// Gateway tries an ordered list of relay URL templates. Order is static:
// no reordering by historical success rate.
type Gateway struct {
	relays []string
	client *http.Client
	log    *slog.Logger
}

// New builds a Gateway whose HTTP client carries the given timeout.
func New(relays []string, timeout time.Duration, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gateway{
		relays: relays,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Fetch retrieves the markup for target through the first relay that
// answers with a success status. It returns *ExhaustedError only after
// every relay has been attempted.
func (g *Gateway) Fetch(ctx context.Context, target string) (string, error) {
	for i, relay := range g.relays {
		body, err := g.tryRelay(ctx, relay, target)
		if err != nil {
			g.log.Warn("relay attempt failed",
				slog.Int("relay", i+1),
				slog.Int("relays_total", len(g.relays)),
				slog.Any("err", err),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		g.log.Debug("relay succeeded", slog.Int("relay", i+1))
		return body, nil
	}
	return "", &ExhaustedError{Target: target, Relays: len(g.relays)}
}

func (g *Gateway) tryRelay(ctx context.Context, relay, target string) (string, error) {
	requestURL := relay + url.QueryEscape(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty response body")
	}

	return string(data), nil
}
