package models

import "time"

// ChangeType tags a ChangeEvent as an addition or a removal.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
)

// NewsRecord is one extracted news item. Records are created by the
// extraction engine and are immutable afterwards, except for the transient
// IsNew annotation set by the change detector for display purposes.
type NewsRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Date      string    `json:"date"`
	Source    string    `json:"source"`
	Excerpt   string    `json:"excerpt"`
	Timestamp time.Time `json:"timestamp"`
	IsNew     bool      `json:"is_new,omitempty"`
}

// ChangeEvent records one addition or removal between two generations.
// Events live for a single cycle; only their count reaches history.
type ChangeEvent struct {
	Type   ChangeType `json:"type"`
	Record NewsRecord `json:"record"`
}

// CheckHistoryEntry summarizes one completed check.
type CheckHistoryEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	NewsCount    int       `json:"news_count"`
	ChangesCount int       `json:"changes_count"`
}

// RelevanceLevel buckets a score for display.
type RelevanceLevel string

const (
	LevelLow    RelevanceLevel = "low"
	LevelMedium RelevanceLevel = "medium"
	LevelHigh   RelevanceLevel = "high"
)

// Relevance is the scorer's verdict for a single record.
type Relevance struct {
	MatchedKeywords []string       `json:"matched_keywords"`
	Score           int            `json:"score"`
	Level           RelevanceLevel `json:"level"`
}

// ScoredRecord pairs a record with its relevance for rendering and alerts.
type ScoredRecord struct {
	NewsRecord
	Relevance Relevance `json:"relevance"`
}

// Snapshot holds the two retained generations plus the last check time.
type Snapshot struct {
	LastCheck time.Time    `json:"last_check"`
	Current   []NewsRecord `json:"current"`
	Previous  []NewsRecord `json:"previous"`
}

// Automation is the persisted periodic-check setting.
type Automation struct {
	Enabled         bool `json:"enabled"`
	IntervalMinutes int  `json:"interval_minutes"`
}

// KeywordConfig is the persisted keyword set. ActiveKeywords is always a
// subset of Keywords; the store enforces this on load.
type KeywordConfig struct {
	Keywords             []string `json:"keywords"`
	ActiveKeywords       []string `json:"active_keywords"`
	NotificationsEnabled bool     `json:"notifications_enabled"`
}
