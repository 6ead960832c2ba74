//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatspace/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// DirectoryStore is the shared, eventually-consistent document store.
// Subscribe delivers the full current snapshot first, then a new full snapshot
// after every change. The channel is closed once ctx is done.
type DirectoryStore interface {
	Subscribe(ctx context.Context, collection event.Collection) (<-chan event.Change, error)
	Put(ctx context.Context, collection event.Collection, key string, doc event.Document) error
	Patch(ctx context.Context, collection event.Collection, key string, partial event.Document) error
	GetOnce(ctx context.Context, collection event.Collection, key string) (event.Document, bool, error)
}

// SnapshotSink consumes collection snapshots. Calls are never concurrent.
type SnapshotSink interface {
	Consume(ctx context.Context, snapshot event.Snapshot) error
}

// SnapshotSinkFunc adapts a function to SnapshotSink.
type SnapshotSinkFunc func(ctx context.Context, snapshot event.Snapshot) error

func (f SnapshotSinkFunc) Consume(ctx context.Context, snapshot event.Snapshot) error {
	return f(ctx, snapshot)
}

// KnownUsers answers whether a username is registered.
type KnownUsers interface {
	Exists(username string) bool
}
