// Package extract turns the raw markup of the city news listing into
// ordered NewsRecord values. The h3>a structural pattern is the extraction
// boundary: items outside it are invisible, and a page redesign yields zero
// records rather than an error.
package extract

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/civicwatch/nola-news-watch/internal/models"
)

// Extractor parses listing markup. It never fails on malformed per-item
// context; each missing field degrades to its documented default.
type Extractor struct {
	log *slog.Logger
}

// New builds an Extractor.
func New(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{log: log}
}

// Extract returns the records found in markup, in document order. The now
// argument anchors the timestamp fallback for items without a parseable
// date, keeping extraction deterministic under test.
func (e *Extractor) Extract(markup string, now time.Time) []models.NewsRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.log.Warn("markup parse failed", slog.Any("err", err))
		return nil
	}

	records := make([]models.NewsRecord, 0, 16)
	seen := make(map[string]bool)

	doc.Find("h3 a").Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok || !matchesNewsPattern(href) {
			return
		}

		title := strings.TrimSpace(anchor.Text())
		if utf8.RuneCountInString(title) <= 3 {
			return
		}

		index := len(records)
		newsURL := NormalizeURL(href)
		context := containerText(anchor)

		id := DeriveID(newsURL)
		if id == "" {
			id = fmt.Sprintf("item-%d", index)
		}
		if seen[id] {
			e.log.Debug("duplicate id in batch, skipping", slog.String("id", id))
			return
		}
		seen[id] = true

		date := FindDate(context)
		ts, ok := ParseDate(date)
		if !ok {
			ts = now.Add(-time.Duration(index) * time.Hour)
		}

		records = append(records, models.NewsRecord{
			ID:        id,
			Title:     title,
			URL:       newsURL,
			Date:      date,
			Source:    InferSource(context),
			Excerpt:   FindExcerpt(context, title),
			Timestamp: ts,
		})
	})

	return records
}

// matchesNewsPattern keeps only anchors whose target looks like a news
// path on the city site or lives on the known secondary domain.
func matchesNewsPattern(href string) bool {
	return strings.Contains(href, "/next/") ||
		strings.Contains(href, secondaryDomain) ||
		strings.HasPrefix(href, "/")
}

// containerText reads the anchor's enclosing block wrapper, falling back
// to the immediate parent when no div ancestor exists.
func containerText(anchor *goquery.Selection) string {
	container := anchor.ParentsFiltered("div").First()
	if container.Length() == 0 {
		container = anchor.Parent()
	}
	return container.Text()
}
