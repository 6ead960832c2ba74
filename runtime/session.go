// Package runtime owns the lifetime of a signed-in session: its subscriptions,
// the supervisor running them and the state derived from them.
// It wires components together without containing membership rules.
package runtime

import (
	"chatspace/bootstrap"
	"chatspace/contract"
	"chatspace/domain"
	"chatspace/domain/event"
	"chatspace/identity"
	"chatspace/projection"
	"chatspace/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Account is the signed-in identity a session is built for.
type Account struct {
	UID      string
	PhotoURL string
}

type extraSink struct {
	collection event.Collection
	sink       contract.SnapshotSink
}

// Session is constructed on sign-in and torn down on sign-out.
// Every view it holds is rebuilt from the store on Start and Resync.
type Session struct {
	log             *slog.Logger
	store           contract.DirectoryStore
	account         Account
	restartInterval time.Duration

	registry      *identity.Registry
	canonicalizer *bootstrap.Canonicalizer
	reconciler    *projection.Reconciler
	extra         []extraSink
	updates       chan struct{}

	mu       sync.RWMutex
	username string
	contacts []string
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSession(log *slog.Logger, store contract.DirectoryStore, account Account, restartInterval time.Duration) *Session {
	log = log.With("uid", account.UID)
	return &Session{
		log:             log,
		store:           store,
		account:         account,
		restartInterval: restartInterval,
		registry:        identity.NewRegistry(log, store),
		canonicalizer:   bootstrap.NewCanonicalizer(log, store),
		reconciler:      projection.NewReconciler(log),
		updates:         make(chan struct{}, 1),
	}
}

// AddSink registers an extra consumer for a streamed collection. Call before Start.
func (s *Session) AddSink(collection event.Collection, sink contract.SnapshotSink) *Session {
	s.extra = append(s.extra, extraSink{collection: collection, sink: sink})
	return s
}

// Start restores the username bound to the account, then opens the three subscriptions.
func (s *Session) Start(ctx context.Context) error {
	doc, found, err := s.store.GetOnce(ctx, event.Profiles, s.account.UID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if found {
		if username, _ := doc["username"].(string); username != "" {
			s.SetUsername(username)
			s.log.Info("Profile restored", "username", username)
		}
	}
	s.subscribe(ctx)
	return nil
}

func (s *Session) subscribe(ctx context.Context) {
	dispatcher := workers.NewDispatcher(s.log).
		Add(event.Users, s.registry, s.reconciler).
		Add(event.Chats, s.canonicalizer.Guard(s.reconciler)).
		Add(event.Messages, s.reconciler).
		OnDispatch(func(event.Collection) { s.notify() })
	for _, e := range s.extra {
		dispatcher.Add(e.collection, e.sink)
	}

	supervisor := workers.NewSupervisor(s.log, s.restartInterval)
	for _, collection := range event.Streamed {
		supervisor.Add(workers.NewSubscriptionWorker(s.log, s.store, collection, dispatcher))
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		supervisor.Run(sessionCtx)
	}()
}

// Stop releases every subscription and waits for the workers to exit.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("Session stopped")
}

// Resync drops the local view and resubscribes from a full snapshot.
func (s *Session) Resync(ctx context.Context) {
	s.Stop()
	s.reconciler.Reset()
	s.subscribe(ctx)
	s.log.Info("Session resynced")
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Updates signals that the view changed. Signals coalesce.
func (s *Session) Updates() <-chan struct{} { return s.updates }

func (s *Session) View() projection.View { return s.reconciler.View() }

func (s *Session) Account() Account { return s.account }

func (s *Session) Registry() *identity.Registry { return s.registry }

func (s *Session) Canonicalizer() *bootstrap.Canonicalizer { return s.canonicalizer }

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) SetUsername(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
}

// Contacts are the users this session opened a DM with. They are not persisted.
func (s *Session) Contacts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.contacts...)
}

func (s *Session) AddContact(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lo.ContainsBy(s.contacts, func(c string) bool { return domain.SameUser(c, username) }) {
		return
	}
	s.contacts = append(s.contacts, username)
}
