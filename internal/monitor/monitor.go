// Package monitor runs the fetch-extract-detect-score-persist cycle and
// owns its scheduling. One cycle may be in flight at a time; a concurrent
// trigger is dropped with a log, never allowed to corrupt the
// two-generation history.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/civicwatch/nola-news-watch/internal/archive"
	"github.com/civicwatch/nola-news-watch/internal/config"
	"github.com/civicwatch/nola-news-watch/internal/detect"
	"github.com/civicwatch/nola-news-watch/internal/extract"
	"github.com/civicwatch/nola-news-watch/internal/models"
	"github.com/civicwatch/nola-news-watch/internal/notify"
	"github.com/civicwatch/nola-news-watch/internal/relevance"
	"github.com/civicwatch/nola-news-watch/internal/store"
)

// ErrCycleInFlight is returned when a trigger arrives while a cycle is
// still running. The trigger is dropped, not queued.
var ErrCycleInFlight = errors.New("check cycle already in flight")

// Fetcher retrieves the raw markup for a target URL.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// Archiver indexes one archived document.
type Archiver interface {
	IndexRecord(ctx context.Context, doc archive.Document) error
}

// CycleResult is what one completed check hands to collaborators.
type CycleResult struct {
	CycleID   string                `json:"cycle_id"`
	CheckedAt time.Time             `json:"checked_at"`
	Records   []models.ScoredRecord `json:"records"`
	Changes   []models.ChangeEvent  `json:"changes"`
}

// Status summarizes monitor state for the API.
type Status struct {
	LastCheck     time.Time `json:"last_check"`
	CurrentCount  int       `json:"current_count"`
	PreviousCount int       `json:"previous_count"`
	ZeroStreak    int       `json:"zero_streak"`
	InFlight      bool      `json:"in_flight"`
}

// Monitor orchestrates one check cycle end to end.
type Monitor struct {
	cfg        *config.Monitor
	store      *store.Store
	fetcher    Fetcher
	extractor  *extract.Extractor
	dispatcher *notify.Dispatcher
	archiver   Archiver
	log        *slog.Logger

	inFlight   atomic.Bool
	zeroStreak atomic.Int32
}

// New wires a Monitor. The archiver may be nil when archiving is disabled.
func New(cfg *config.Monitor, st *store.Store, fetcher Fetcher, extractor *extract.Extractor, dispatcher *notify.Dispatcher, archiver Archiver, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{
		cfg:        cfg,
		store:      st,
		fetcher:    fetcher,
		extractor:  extractor,
		dispatcher: dispatcher,
		archiver:   archiver,
		log:        log,
	}
}

// RunCycle executes one full check. A fetch failure aborts the cycle with
// the prior generations untouched; every later stage absorbs its own
// failures so the cycle still completes.
func (m *Monitor) RunCycle(ctx context.Context) (*CycleResult, error) {
	if !m.inFlight.CompareAndSwap(false, true) {
		m.log.Warn("cycle trigger dropped, another cycle in flight")
		return nil, ErrCycleInFlight
	}
	defer m.inFlight.Store(false)

	cycleID := uuid.NewString()
	log := m.log.With(slog.String("cycle_id", cycleID))
	now := time.Now()

	markup, err := m.fetcher.Fetch(ctx, m.cfg.TargetURL)
	if err != nil {
		log.Error("fetch failed, generations untouched", slog.Any("err", err))
		return nil, fmt.Errorf("fetch %s: %w", m.cfg.TargetURL, err)
	}

	records := m.extractor.Extract(markup, now)
	m.trackZeroStreak(ctx, log, cycleID, len(records))

	prior := m.store.LoadSnapshot()
	changes := detect.Detect(prior.Current, records)

	addedIDs := make(map[string]bool, len(changes))
	for _, ev := range changes {
		if ev.Type == models.ChangeAdded {
			addedIDs[ev.Record.ID] = true
		}
	}

	keywords := m.store.LoadKeywords()
	scored := make([]models.ScoredRecord, 0, len(records))
	added := make([]models.ScoredRecord, 0, len(addedIDs))
	for _, rec := range records {
		view := rec
		view.IsNew = addedIDs[rec.ID]
		sr := models.ScoredRecord{
			NewsRecord: view,
			Relevance:  relevance.Score(rec, keywords.ActiveKeywords, now),
		}
		scored = append(scored, sr)
		if view.IsNew {
			added = append(added, sr)
		}
	}

	// Generations advance only here: current becomes previous, the new
	// batch becomes current. Display-only annotations stay out of the
	// persisted records.
	snap := models.Snapshot{
		LastCheck: now,
		Current:   records,
		Previous:  prior.Current,
	}
	if err := m.store.SaveSnapshot(snap); err != nil {
		log.Error("persist snapshot failed", slog.Any("err", err))
	}

	entry := models.CheckHistoryEntry{
		Timestamp:    now,
		NewsCount:    len(records),
		ChangesCount: len(changes),
	}
	if err := m.store.AppendHistory(entry); err != nil {
		log.Error("persist history failed", slog.Any("err", err))
	}

	if keywords.NotificationsEnabled && len(added) > 0 {
		m.dispatcher.DispatchAdded(ctx, cycleID, added)
	}

	m.archiveAdded(ctx, log, cycleID, now, added)

	log.Info("cycle completed",
		slog.Int("records", len(records)),
		slog.Int("changes", len(changes)),
		slog.Int("added", len(added)),
	)

	return &CycleResult{
		CycleID:   cycleID,
		CheckedAt: now,
		Records:   scored,
		Changes:   changes,
	}, nil
}

// Status reports current monitor state.
func (m *Monitor) Status() Status {
	snap := m.store.LoadSnapshot()
	return Status{
		LastCheck:     snap.LastCheck,
		CurrentCount:  len(snap.Current),
		PreviousCount: len(snap.Previous),
		ZeroStreak:    int(m.zeroStreak.Load()),
		InFlight:      m.inFlight.Load(),
	}
}

func (m *Monitor) trackZeroStreak(ctx context.Context, log *slog.Logger, cycleID string, count int) {
	if count > 0 {
		m.zeroStreak.Store(0)
		return
	}

	streak := int(m.zeroStreak.Add(1))
	log.Warn("extraction yielded zero records", slog.Int("streak", streak))

	if streak == m.cfg.ZeroStreakThreshold {
		log.Error("repeated empty extractions, page structure may have changed",
			slog.Int("streak", streak))
		m.dispatcher.DispatchDegraded(ctx, cycleID, streak)
	}
}

func (m *Monitor) archiveAdded(ctx context.Context, log *slog.Logger, cycleID string, now time.Time, added []models.ScoredRecord) {
	if m.archiver == nil {
		return
	}
	for _, rec := range added {
		doc := archive.Document{
			ScoredRecord: rec,
			CycleID:      cycleID,
			ArchivedAt:   now,
		}
		if err := m.archiver.IndexRecord(ctx, doc); err != nil {
			log.Warn("archive index failed", slog.String("id", rec.ID), slog.Any("err", err))
		}
	}
}
