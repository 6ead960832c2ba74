package repositories

import (
	"chatspace/domain/event"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// awaitSnapshot reads changes until a snapshot holding every key arrives.
// poke is called on every idle tick, so a write racing with the subscription
// setup is eventually observed.
func awaitSnapshot(t *testing.T, changes <-chan event.Change, poke func(), keys ...string) event.Snapshot {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case change, ok := <-changes:
			require.True(t, ok, "subscription closed early")
			if change.Err != nil {
				continue
			}
			if lo.Every(change.Snapshot.Keys(), keys) {
				return change.Snapshot
			}
		case <-time.After(50 * time.Millisecond):
			if poke != nil {
				poke()
			}
		case <-deadline:
			require.FailNow(t, "snapshot never contained expected keys", "keys=%v", keys)
		}
	}
}

func awaitClosed(t *testing.T, changes <-chan event.Change) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		case <-deadline:
			require.FailNow(t, "subscription was not released")
		}
	}
}
