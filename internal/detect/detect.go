// Package detect computes the id-keyed difference between two record
// generations. Identity is the record id alone: a record whose fields
// change under the same id is not reported.
package detect

import "github.com/civicwatch/nola-news-watch/internal/models"

// Detect returns the change events between previous and current: every
// id present only in current as an ADDED event (in current's order),
// followed by every id present only in previous as a REMOVED event (in
// previous's order). Added records carry the transient IsNew annotation.
func Detect(previous, current []models.NewsRecord) []models.ChangeEvent {
	prevIDs := indexIDs(previous)
	currIDs := indexIDs(current)

	events := make([]models.ChangeEvent, 0, len(current)+len(previous))

	for _, rec := range current {
		if prevIDs[rec.ID] {
			continue
		}
		rec.IsNew = true
		events = append(events, models.ChangeEvent{Type: models.ChangeAdded, Record: rec})
	}

	for _, rec := range previous {
		if currIDs[rec.ID] {
			continue
		}
		events = append(events, models.ChangeEvent{Type: models.ChangeRemoved, Record: rec})
	}

	return events
}

func indexIDs(records []models.NewsRecord) map[string]bool {
	ids := make(map[string]bool, len(records))
	for _, rec := range records {
		ids[rec.ID] = true
	}
	return ids
}
