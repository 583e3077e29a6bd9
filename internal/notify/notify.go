// Package notify raises alerts for newly detected records. Delivery is
// best effort: a failed or unconfigured notifier is logged and skipped,
// never fatal to the cycle that produced the alert.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/civicwatch/nola-news-watch/internal/models"
)

// Grouping tags let a collaborator coalesce alerts.
const (
	TagSingle   = "news-single"
	TagBatch    = "news-batch"
	TagDegraded = "monitor-degraded"
)

// Alert is the rendered notification payload.
type Alert struct {
	Title   string                `json:"title"`
	Body    string                `json:"body"`
	Tag     string                `json:"tag"`
	CycleID string                `json:"cycle_id"`
	Records []models.ScoredRecord `json:"records,omitempty"`
}

// Notifier delivers one alert.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Nop swallows alerts; used when no broker is configured.
type Nop struct{}

func (Nop) Notify(context.Context, Alert) error { return nil }

// Dispatcher builds alerts from added records and suppresses repeats of
// ids alerted within the suppression window.
type Dispatcher struct {
	notifier Notifier
	seen     *SeenCache
	log      *slog.Logger
}

// NewDispatcher wires a notifier with a suppression cache.
func NewDispatcher(notifier Notifier, seen *SeenCache, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{notifier: notifier, seen: seen, log: log}
}

// DispatchAdded alerts on the given added records, skipping ones already
// alerted inside the suppression window. Delivery failures are logged.
func (d *Dispatcher) DispatchAdded(ctx context.Context, cycleID string, added []models.ScoredRecord) {
	fresh := make([]models.ScoredRecord, 0, len(added))
	for _, rec := range added {
		if d.seen.IsSeen(rec.ID) {
			d.log.Debug("alert suppressed", slog.String("id", rec.ID))
			continue
		}
		fresh = append(fresh, rec)
	}
	if len(fresh) == 0 {
		return
	}

	alert := buildAlert(cycleID, fresh)
	if err := d.notifier.Notify(ctx, alert); err != nil {
		d.log.Warn("alert delivery failed",
			slog.String("cycle_id", cycleID),
			slog.String("tag", alert.Tag),
			slog.Any("err", err),
		)
		return
	}

	for _, rec := range fresh {
		d.seen.MarkSeen(rec.ID)
	}
}

// DispatchDegraded raises the structural-change alarm after repeated
// empty extractions.
func (d *Dispatcher) DispatchDegraded(ctx context.Context, cycleID string, streak int) {
	alert := Alert{
		Title:   "City news monitor degraded",
		Body:    fmt.Sprintf("%d consecutive checks extracted zero records; the page layout may have changed", streak),
		Tag:     TagDegraded,
		CycleID: cycleID,
	}
	if err := d.notifier.Notify(ctx, alert); err != nil {
		d.log.Warn("degradation alert delivery failed", slog.String("cycle_id", cycleID), slog.Any("err", err))
	}
}

func buildAlert(cycleID string, added []models.ScoredRecord) Alert {
	if len(added) == 1 {
		rec := added[0]
		return Alert{
			Title:   rec.Title,
			Body:    rec.Excerpt,
			Tag:     TagSingle,
			CycleID: cycleID,
			Records: added,
		}
	}

	titles := make([]string, 0, 3)
	for i, rec := range added {
		if i == 3 {
			break
		}
		titles = append(titles, rec.Title)
	}

	return Alert{
		Title:   fmt.Sprintf("%d new city news items", len(added)),
		Body:    strings.Join(titles, "; "),
		Tag:     TagBatch,
		CycleID: cycleID,
		Records: added,
	}
}
