package runtime

import (
	"chatspace/domain"
	"chatspace/domain/event"
	"chatspace/errors"
	"chatspace/mocks"
	"chatspace/projection"
	"chatspace/repositories"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newStore(t *testing.T) *repositories.BadgerStore {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repositories.NewBadgerStore(db, logs.GetLoggerFromLevel(slog.LevelDebug), "chatspace-test")
}

func chatIDs(view projection.View) []string {
	return lo.Map(view.Chats, func(c domain.Chat, _ int) string { return c.ID })
}

func TestSession_Start_BuildsViewAndBootstrapsGlobal(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := newStore(t)
	ctx := context.Background()

	// Given a store with a user, a profile and a message whose chat is unknown
	req.NoError(store.Put(ctx, event.Users, "alice", event.EncodeUser(domain.User{Username: "Alice", JoinedAt: 1})))
	req.NoError(store.Put(ctx, event.Profiles, "uid-1", event.Document{"username": "Alice"}))
	req.NoError(store.Put(ctx, event.Messages, "msg_1", event.EncodeMessage(domain.Message{ChatID: "global", Sender: "Alice", Text: "hi", CreatedAt: 1})))

	session := NewSession(log, store, Account{UID: "uid-1"}, 10*time.Millisecond)

	// When the session starts
	req.NoError(session.Start(ctx))
	defer session.Stop()

	// Then the username is restored and the view converges
	req.Equal("Alice", session.Username())
	req.Eventually(func() bool {
		view := session.View()
		return lo.Contains(chatIDs(view), domain.GlobalChatID) && len(view.Messages) == 1
	}, 3*time.Second, 20*time.Millisecond)
	req.True(session.Registry().Exists("alice"))

	// And the global channel was written to the store
	doc, found, err := store.GetOnce(ctx, event.Chats, domain.GlobalChatID)
	req.NoError(err)
	req.True(found)
	req.Equal(domain.NewGlobalChat(), event.DecodeChat(domain.GlobalChatID, doc))
}

func TestSession_Updates(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := newStore(t)

	session := NewSession(log, store, Account{UID: "uid-1"}, 10*time.Millisecond)
	req.NoError(session.Start(context.Background()))
	defer session.Stop()

	select {
	case <-session.Updates():
	case <-time.After(3 * time.Second):
		req.Fail("no update signaled after the initial snapshots")
	}
}

func TestSession_StopReleasesSubscriptions(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDirectoryStore(ctrl)

	store.EXPECT().GetOnce(gomock.Any(), event.Profiles, "uid-1").Return(nil, false, nil).Times(1)
	// Each stream stays open until its context is canceled
	store.EXPECT().Subscribe(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ event.Collection) (<-chan event.Change, error) {
			changes := make(chan event.Change)
			go func() {
				<-ctx.Done()
				close(changes)
			}()
			return changes, nil
		}).Times(3)

	session := NewSession(log, store, Account{UID: "uid-1"}, time.Millisecond)
	req.NoError(session.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		session.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Stop did not release the subscriptions")
	}
	// A second Stop is a no-op
	session.Stop()
}

func TestSession_Start_ProfileFailure(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDirectoryStore(ctrl)

	store.EXPECT().GetOnce(gomock.Any(), event.Profiles, "uid-1").Return(nil, false, errors.ErrStoreUnavailable).Times(1)
	store.EXPECT().Subscribe(gomock.Any(), gomock.Any()).Times(0)

	err := NewSession(log, store, Account{UID: "uid-1"}, time.Millisecond).Start(context.Background())

	require.ErrorIs(t, err, errors.ErrStoreUnavailable)
}

func TestSession_Resync(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := newStore(t)
	ctx := context.Background()

	session := NewSession(log, store, Account{UID: "uid-1"}, 10*time.Millisecond)
	req.NoError(session.Start(ctx))
	defer session.Stop()
	req.Eventually(func() bool { return len(session.View().Chats) == 1 }, 3*time.Second, 20*time.Millisecond)

	// Given a chat written while the session is running
	req.NoError(store.Put(ctx, event.Chats, "chan_1", event.EncodeChat(domain.Chat{ID: "chan_1", Name: "ops", Kind: domain.KindChannel})))

	// When the session resyncs
	session.Resync(ctx)

	// Then the fresh snapshot holds both chats
	req.Eventually(func() bool { return len(session.View().Chats) == 2 }, 3*time.Second, 20*time.Millisecond)
}

func TestSession_Contacts(t *testing.T) {
	req := require.New(t)
	session := NewSession(logs.GetLoggerFromLevel(slog.LevelDebug), nil, Account{UID: "uid-1"}, time.Millisecond)

	session.AddContact("bob")
	session.AddContact("Bob")
	session.AddContact("carol")

	req.Equal([]string{"bob", "carol"}, session.Contacts())
}
