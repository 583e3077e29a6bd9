// Package store persists monitor state as independent JSON buckets in a
// data directory. Each bucket loads and saves on its own; a corrupt or
// missing file degrades to defaults instead of failing, so one bad bucket
// never blocks a cycle.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/civicwatch/nola-news-watch/internal/models"
)

const (
	snapshotFile   = "snapshot.json"
	automationFile = "automation.json"
	historyFile    = "history.json"
	keywordsFile   = "keywords.json"

	// HistoryLimit caps the rolling check history, newest first.
	HistoryLimit = 10
)

// DefaultKeywords seeds the keyword config on first run; all of them
// start active.
var DefaultKeywords = []string{
	"mayor", "council", "budget", "police", "emergency",
	"infrastructure", "flood", "hurricane", "permit", "utility",
}

// Store owns all durable state. It assumes a single writer in a single
// process; saves are atomic at the granularity of one bucket overwrite.
type Store struct {
	dir string
	log *slog.Logger
}

// New creates the data directory if needed and returns a Store.
func New(dir string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// SaveSnapshot overwrites the two retained generations and the check time.
func (s *Store) SaveSnapshot(snap models.Snapshot) error {
	return s.writeBucket(snapshotFile, snap)
}

// LoadSnapshot returns the persisted generations, or an empty snapshot
// when nothing usable is on disk.
func (s *Store) LoadSnapshot() models.Snapshot {
	var snap models.Snapshot
	if !s.readBucket(snapshotFile, &snap) {
		return models.Snapshot{}
	}
	if snap.Current == nil {
		snap.Current = []models.NewsRecord{}
	}
	if snap.Previous == nil {
		snap.Previous = []models.NewsRecord{}
	}
	return snap
}

// SaveAutomation persists the periodic-check setting.
func (s *Store) SaveAutomation(auto models.Automation) error {
	return s.writeBucket(automationFile, auto)
}

// LoadAutomation returns the persisted setting, defaulting to disabled
// with the given interval.
func (s *Store) LoadAutomation(defaultIntervalMinutes int) models.Automation {
	auto := models.Automation{IntervalMinutes: defaultIntervalMinutes}
	if !s.readBucket(automationFile, &auto) {
		return models.Automation{IntervalMinutes: defaultIntervalMinutes}
	}
	if auto.IntervalMinutes <= 0 {
		auto.IntervalMinutes = defaultIntervalMinutes
	}
	return auto
}

// AppendHistory prepends one entry and evicts beyond HistoryLimit.
func (s *Store) AppendHistory(entry models.CheckHistoryEntry) error {
	history := s.LoadHistory()
	history = append([]models.CheckHistoryEntry{entry}, history...)
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}
	return s.writeBucket(historyFile, history)
}

// LoadHistory returns the rolling history, newest first.
func (s *Store) LoadHistory() []models.CheckHistoryEntry {
	var history []models.CheckHistoryEntry
	if !s.readBucket(historyFile, &history) {
		return []models.CheckHistoryEntry{}
	}
	if history == nil {
		history = []models.CheckHistoryEntry{}
	}
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}
	return history
}

// SaveKeywords persists the keyword config.
func (s *Store) SaveKeywords(cfg models.KeywordConfig) error {
	return s.writeBucket(keywordsFile, cfg)
}

// LoadKeywords returns the keyword config, seeding defaults when no usable
// bucket exists and forcing ActiveKeywords to stay a subset of Keywords.
// A persisted empty keyword set round-trips as empty; defaults apply only
// to missing or corrupt data, never to an explicit save.
func (s *Store) LoadKeywords() models.KeywordConfig {
	cfg := models.KeywordConfig{}
	if !s.readBucket(keywordsFile, &cfg) {
		return models.KeywordConfig{
			Keywords:             append([]string(nil), DefaultKeywords...),
			ActiveKeywords:       append([]string(nil), DefaultKeywords...),
			NotificationsEnabled: true,
		}
	}
	if cfg.Keywords == nil {
		cfg.Keywords = []string{}
	}

	known := make(map[string]bool, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		known[kw] = true
	}
	active := make([]string, 0, len(cfg.ActiveKeywords))
	for _, kw := range cfg.ActiveKeywords {
		if known[kw] {
			active = append(active, kw)
		}
	}
	cfg.ActiveKeywords = active

	return cfg
}

// ClearAll removes every bucket.
func (s *Store) ClearAll() error {
	for _, name := range []string{snapshotFile, automationFile, historyFile, keywordsFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// writeBucket marshals v and replaces the bucket file atomically via a
// temp file and rename.
func (s *Store) writeBucket(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// readBucket reports whether the bucket yielded usable data. Missing files
// are silent; unreadable or corrupt files are logged and treated as absent.
func (s *Store) readBucket(name string, v any) bool {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("bucket unreadable, using defaults", slog.String("bucket", name), slog.Any("err", err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn("bucket corrupt, using defaults", slog.String("bucket", name), slog.Any("err", err))
		return false
	}
	return true
}
