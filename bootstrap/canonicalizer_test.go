package bootstrap

import (
	"chatspace/contract"
	"chatspace/domain"
	"chatspace/domain/event"
	"chatspace/errors"
	"chatspace/mocks"
	"chatspace/repositories"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestCanonicalizer_EnsureGlobal(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx := context.Background()

	t.Run("should not write when the global channel exists", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		canonicalizer := NewCanonicalizer(log, store)

		store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		written, err := canonicalizer.EnsureGlobal(ctx, []domain.Chat{domain.NewGlobalChat()})

		req.NoError(err)
		req.False(written)
	})

	t.Run("should write the canonical record exactly once when absent", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		canonicalizer := NewCanonicalizer(log, store)

		store.EXPECT().
			Put(ctx, event.Chats, "global", event.Document{
				"id":           "global",
				"name":         "Global Chat",
				"type":         "channel",
				"participants": []any{"All"},
			}).
			Return(nil).
			Times(1)

		written, err := canonicalizer.EnsureGlobal(ctx, []domain.Chat{{ID: "chan_1", Kind: domain.KindChannel}})

		req.NoError(err)
		req.True(written)
	})

	t.Run("should surface store failures", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		canonicalizer := NewCanonicalizer(log, store)

		store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.ErrStoreUnavailable).Times(1)

		written, err := canonicalizer.EnsureGlobal(ctx, nil)

		req.ErrorIs(err, errors.ErrStoreUnavailable)
		req.False(written)
	})
}

func TestCanonicalizer_EnsureGlobal_ConcurrentClientsConverge(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	store := repositories.NewBadgerStore(db, log, "chatspace-test")
	ctx := context.Background()

	// Given N clients that all observed an empty chat set
	const clients = 16
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		canonicalizer := NewCanonicalizer(log, store)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := canonicalizer.EnsureGlobal(ctx, nil)
			req.NoError(err)
		}()
	}
	wg.Wait()

	// Then the store holds exactly one global record with the canonical defaults
	changes, err := store.Subscribe(ctx, event.Chats)
	req.NoError(err)
	snapshot := (<-changes).Snapshot
	req.Equal([]string{"global"}, snapshot.Keys())
	req.Equal(domain.NewGlobalChat(), event.DecodeChat("global", snapshot.Records[0].Document))
}

func TestCanonicalizer_Guard(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx := context.Background()

	t.Run("should complete a snapshot missing the global channel", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		canonicalizer := NewCanonicalizer(log, store)

		store.EXPECT().Put(gomock.Any(), event.Chats, "global", gomock.Any()).Return(nil).Times(1)

		var got event.Snapshot
		sink := canonicalizer.Guard(contract.SnapshotSinkFunc(func(_ context.Context, s event.Snapshot) error {
			got = s
			return nil
		}))
		input := event.Snapshot{Collection: event.Chats, Records: []event.Record{
			{Key: "chan_1", Document: event.Document{"name": "ops", "type": "channel"}},
		}}

		req.NoError(sink.Consume(ctx, input))

		req.Equal([]string{"chan_1", "global"}, got.Keys())
		// The incoming snapshot is left untouched
		req.Equal([]string{"chan_1"}, input.Keys())
	})

	t.Run("should still complete the view when the write fails", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		canonicalizer := NewCanonicalizer(log, store)

		store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.ErrStoreUnavailable).Times(1)

		next := mocks.NewMockSnapshotSink(ctrl)
		next.EXPECT().Consume(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, s event.Snapshot) error {
				req.Equal([]string{"global"}, s.Keys())
				return nil
			}).Times(1)

		req.NoError(canonicalizer.Guard(next).Consume(ctx, event.Snapshot{Collection: event.Chats}))
	})

	t.Run("should pass through snapshots that need nothing", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		canonicalizer := NewCanonicalizer(log, store)
		store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		withGlobal := event.Snapshot{Collection: event.Chats, Records: []event.Record{
			{Key: "global", Document: event.EncodeChat(domain.NewGlobalChat())},
		}}
		messages := event.Snapshot{Collection: event.Messages}

		next := mocks.NewMockSnapshotSink(ctrl)
		next.EXPECT().Consume(gomock.Any(), withGlobal).Return(nil).Times(1)
		next.EXPECT().Consume(gomock.Any(), messages).Return(nil).Times(1)

		sink := canonicalizer.Guard(next)
		req.NoError(sink.Consume(ctx, withGlobal))
		req.NoError(sink.Consume(ctx, messages))
	})
}

func TestCanonicalizer_OpenDM(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx := context.Background()

	t.Run("should reuse the same DM whatever the case of the target", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		canonicalizer := NewCanonicalizer(log, store)
		canonicalizer.now = fixedClock(1700000000000)

		store.EXPECT().
			Put(ctx, event.Chats, "dm_1700000000000", gomock.Any()).
			Return(nil).
			Times(1)

		// When a opens a DM with b
		first, created, err := canonicalizer.OpenDM(ctx, "a", "b", nil)
		req.NoError(err)
		req.True(created)

		// And the chat comes back through the stream
		chats := []domain.Chat{domain.NewGlobalChat(), first}

		// When a opens a DM with B
		second, created, err := canonicalizer.OpenDM(ctx, "a", "B", chats)

		// Then the same thread is reused
		req.NoError(err)
		req.False(created)
		req.Equal(first.ID, second.ID)
	})

	t.Run("should find the thread from the other side", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		canonicalizer := NewCanonicalizer(log, store)
		store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		chats := []domain.Chat{{ID: "dm_1", Name: "b", Kind: domain.KindDM, Participants: []string{"b"}, CreatedBy: "a"}}

		chat, created, err := canonicalizer.OpenDM(ctx, "B", "A", chats)

		req.NoError(err)
		req.False(created)
		req.Equal("dm_1", chat.ID)
		req.Equal("a", chat.DisplayName("b"))
	})

	t.Run("should not reuse a DM between two other users", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		canonicalizer := NewCanonicalizer(log, store)
		canonicalizer.now = fixedClock(42)

		store.EXPECT().Put(ctx, event.Chats, "dm_42", event.Document{
			"id":           "dm_42",
			"name":         "b",
			"type":         "dm",
			"participants": []any{"b"},
			"createdBy":    "a",
		}).Return(nil).Times(1)

		chats := []domain.Chat{{ID: "dm_1", Name: "b", Kind: domain.KindDM, Participants: []string{"b"}, CreatedBy: "c"}}

		chat, created, err := canonicalizer.OpenDM(ctx, "a", "b", chats)

		req.NoError(err)
		req.True(created)
		req.Equal("dm_42", chat.ID)
	})
}

func TestCanonicalizer_CreateChannel(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx := context.Background()

	t.Run("should reject a blank name without writing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := NewCanonicalizer(log, store).CreateChannel(ctx, "alice", "  ", nil)

		require.ErrorIs(t, err, errors.ErrEmptyInput)
	})

	t.Run("should keep the creator implicit", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDirectoryStore(ctrl)
		canonicalizer := NewCanonicalizer(log, store)
		canonicalizer.now = fixedClock(7)

		store.EXPECT().Put(ctx, event.Chats, "chan_7", event.Document{
			"id":           "chan_7",
			"name":         "ops",
			"type":         "channel",
			"participants": []any{"bob"},
			"createdBy":    "alice",
		}).Return(nil).Times(1)

		chat, err := canonicalizer.CreateChannel(ctx, "alice", " ops ", []string{"bob", "Alice"})

		req.NoError(err)
		req.Equal([]string{"bob"}, chat.Participants)
	})
}
