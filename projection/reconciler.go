package projection

import (
	"chatspace/domain/event"
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Reconciler holds the current View and advances it with every snapshot.
type Reconciler struct {
	mu   sync.RWMutex
	log  *slog.Logger
	view View
}

func NewReconciler(log *slog.Logger) *Reconciler {
	return &Reconciler{log: log}
}

func (r *Reconciler) Consume(_ context.Context, snapshot event.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view = Apply(r.view, snapshot)
	r.log.Debug("Snapshot applied", "collection", snapshot.Collection, "records", len(snapshot.Records))
	return nil
}

// View returns a copy safe to read while snapshots keep arriving.
func (r *Reconciler) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return View{
		Users:    slices.Clone(r.view.Users),
		Chats:    slices.Clone(r.view.Chats),
		Messages: slices.Clone(r.view.Messages),
	}
}

// Reset drops everything, used before a full resync.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view = View{}
}
