package workers

import (
	"chatspace/contract"
	"chatspace/domain/event"
	"context"
	"log/slog"
	"sync"
)

// Dispatcher fans snapshots out to the sinks registered for their collection.
//
// A single mutex serializes every Dispatch call, whatever the subscription
// it comes from: sinks never run concurrently and see snapshots one at a time.
// A failing sink is logged and does not stop the others.
type Dispatcher struct {
	mu        sync.Mutex
	log       *slog.Logger
	sinks     map[event.Collection][]contract.SnapshotSink
	listeners []func(event.Collection)
}

func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{log: log, sinks: make(map[event.Collection][]contract.SnapshotSink)}
}

func (d *Dispatcher) Add(collection event.Collection, sinks ...contract.SnapshotSink) *Dispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[collection] = append(d.sinks[collection], sinks...)
	return d
}

// OnDispatch registers a callback run after every snapshot, once all sinks consumed it.
func (d *Dispatcher) OnDispatch(listener func(event.Collection)) *Dispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, listener)
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, snapshot event.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sink := range d.sinks[snapshot.Collection] {
		if err := sink.Consume(ctx, snapshot); err != nil {
			d.log.Warn("Sink failed to consume snapshot",
				"collection", snapshot.Collection,
				"sink", sinkName(sink),
				"error", err)
		}
	}
	for _, listener := range d.listeners {
		listener(snapshot.Collection)
	}
}

func sinkName(sink contract.SnapshotSink) string {
	if w, ok := sink.(contract.Worker); ok {
		return contract.GetWorkerName(w)
	}
	return "sink"
}
