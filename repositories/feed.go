package repositories

import (
	"chatspace/domain/event"
	"sync"
)

// feed delivers changes to a single subscriber. Snapshots are full, so when the
// subscriber lags a pending change is replaced by the newer one.
type feed struct {
	mu     sync.Mutex
	ch     chan event.Change
	closed bool
}

func newFeed() *feed {
	return &feed{ch: make(chan event.Change, 1)}
}

func (f *feed) publish(change event.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for {
		select {
		case f.ch <- change:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
