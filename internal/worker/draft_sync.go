// Package worker contains event consumer workers that maintain derived data
// stores.
package worker

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/draft"
	"github.com/matthewbaird/dashgen/internal/event"
)

// DraftDeleter removes a saved draft by uid.
type DraftDeleter interface {
	Delete(ctx context.Context, id string) error
}

// DraftSyncWorker consumes generation events and drops the draft of every
// input that was generated successfully.
type DraftSyncWorker struct {
	drafts DraftDeleter
	log    logrus.FieldLogger
}

// NewDraftSyncWorker creates a new draft sync worker.
func NewDraftSyncWorker(drafts DraftDeleter, log logrus.FieldLogger) *DraftSyncWorker {
	return &DraftSyncWorker{drafts: drafts, log: log}
}

// HandleEvent processes a generation event.
func (w *DraftSyncWorker) HandleEvent(ctx context.Context, evt event.GenerationEvent) error {
	if evt.EventType != event.GenerationSucceeded || evt.UID == "" {
		return nil
	}
	err := w.drafts.Delete(ctx, evt.UID)
	switch {
	case err == nil:
		w.log.WithFields(logrus.Fields{"uid": evt.UID, "module": evt.Module}).Info("draft_sync: generated draft removed")
		return nil
	case errors.Is(err, draft.ErrNotFound):
		return nil
	}
	return err
}
