package workers

import (
	"chatspace/contract"
	"chatspace/domain/event"
	"context"
	"fmt"
	"log/slog"
)

// SubscriptionWorker keeps one collection subscription open and hands
// every snapshot to the dispatcher. Stream errors are logged and skipped.
type SubscriptionWorker struct {
	log        *slog.Logger
	store      contract.DirectoryStore
	collection event.Collection
	dispatcher *Dispatcher
}

func NewSubscriptionWorker(log *slog.Logger, store contract.DirectoryStore, collection event.Collection, dispatcher *Dispatcher) *SubscriptionWorker {
	return &SubscriptionWorker{log: log, store: store, collection: collection, dispatcher: dispatcher}
}

// Run returns nil once ctx is done and the store released the subscription.
func (w *SubscriptionWorker) Run(ctx context.Context) error {
	changes, err := w.store.Subscribe(ctx, w.collection)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", w.collection, err)
	}
	w.log.Debug("Subscribed", "collection", w.collection)

	for change := range changes {
		if change.Err != nil {
			w.log.Warn("Change stream error", "collection", w.collection, "error", change.Err)
			continue
		}
		w.dispatcher.Dispatch(ctx, change.Snapshot)
	}
	w.log.Debug("Subscription released", "collection", w.collection)
	return nil
}
