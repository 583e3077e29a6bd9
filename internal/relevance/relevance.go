// Package relevance assigns each record a bounded newsworthiness score
// against the active keyword set. Scoring is pure: same record, keywords
// and clock always produce the same verdict.
package relevance

import (
	"math"
	"strings"
	"time"

	"github.com/civicwatch/nola-news-watch/internal/models"
)

const (
	minScore = 1
	maxScore = 5
)

// Score evaluates one record. Matched keywords preserve the iteration
// order of active; matching is a case-insensitive substring search over
// the title and excerpt together.
func Score(record models.NewsRecord, active []string, now time.Time) models.Relevance {
	haystack := strings.ToLower(record.Title + " " + record.Excerpt)

	matched := make([]string, 0, len(active))
	for _, kw := range active {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}

	score := 1.0
	score += 1.5 * float64(len(matched))

	if strings.Contains(record.Source, "Mayor") {
		score++
	}
	if strings.Contains(record.Source, "City of New Orleans") {
		score += 0.5
	}

	title := strings.ToLower(record.Title)
	if strings.Contains(title, "breaking") || strings.Contains(title, "emergency") {
		score += 2
	}
	if strings.Contains(title, "budget") || strings.Contains(title, "council") {
		score++
	}

	switch age := now.Sub(record.Timestamp); {
	case age < 6*time.Hour:
		score++
	case age < 24*time.Hour:
		score += 0.5
	}

	final := int(math.Round(score))
	if final < minScore {
		final = minScore
	}
	if final > maxScore {
		final = maxScore
	}

	return models.Relevance{
		MatchedKeywords: matched,
		Score:           final,
		Level:           levelFor(final),
	}
}

func levelFor(score int) models.RelevanceLevel {
	switch {
	case score >= 4:
		return models.LevelHigh
	case score >= 3:
		return models.LevelMedium
	default:
		return models.LevelLow
	}
}
