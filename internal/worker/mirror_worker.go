package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/mirror"
)

const (
	seenEventsSize = 4096
	seenEventsTTL  = 24 * time.Hour
)

// MirrorWorker writes consumed ledger events to a mirror. Redelivered events
// that were already written are skipped.
type MirrorWorker struct {
	writer mirror.Writer
	seen   cache.Cache[string]
	logger *applog.Logger
}

func NewMirrorWorker(writer mirror.Writer, seen cache.Cache[string]) *MirrorWorker {
	if seen == nil {
		seen = cache.NewLRUCache[string](seenEventsSize, seenEventsTTL)
	}
	return &MirrorWorker{
		writer: writer,
		seen:   seen,
		logger: applog.Default(applog.ComponentWorker),
	}
}

// HandleEvent matches events.Handler. A returned error requeues the event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, e *events.LedgerEvent) error {
	if ref, ok := w.seen.Get(e.ID); ok {
		w.logger.InfoContext(ctx, "Ledger event already mirrored, skipping",
			applog.FieldEventID, e.ID,
			"sheets_ref", ref)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing ledger event",
		applog.FieldEventID, e.ID,
		applog.FieldEventKind, e.Kind,
		applog.FieldUserID, e.UserID)

	row, err := mirror.RowFromEvent(e)
	if err != nil {
		// A malformed event will never succeed; requeueing it would loop.
		w.logger.ErrorContext(ctx, "Dropping malformed ledger event",
			applog.FieldEventID, e.ID, applog.FieldError, err)
		return nil
	}

	ref, err := w.writer.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}
	w.seen.Set(e.ID, ref)

	w.logger.InfoContext(ctx, "Successfully mirrored ledger event",
		applog.FieldEventID, e.ID,
		"sheets_ref", ref,
		applog.FieldAmountCents, e.AmountCents)
	return nil
}
