// Package identity keeps the set of known usernames, materialized from the users stream.
package identity

import (
	"chatspace/contract"
	"chatspace/domain"
	"chatspace/domain/event"
	"chatspace/errors"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

var (
	_ contract.SnapshotSink = (*Registry)(nil)
	_ contract.KnownUsers   = (*Registry)(nil)
)

type Registry struct {
	mu        sync.RWMutex
	log       *slog.Logger
	store     contract.DirectoryStore
	users     map[string]domain.User // lowercase username -> user
	ready     chan struct{}
	readyOnce sync.Once
	now       func() time.Time
}

func NewRegistry(log *slog.Logger, store contract.DirectoryStore) *Registry {
	return &Registry{
		log:   log,
		store: store,
		users: make(map[string]domain.User),
		ready: make(chan struct{}),
		now:   time.Now,
	}
}

// Consume replaces the known set with the users snapshot.
func (r *Registry) Consume(_ context.Context, snapshot event.Snapshot) error {
	if snapshot.Collection != event.Users {
		return nil
	}
	users := make(map[string]domain.User, len(snapshot.Records))
	for _, record := range snapshot.Records {
		user := event.DecodeUser(record.Key, record.Document)
		users[domain.UserKey(record.Key)] = user
	}

	r.mu.Lock()
	r.users = users
	r.mu.Unlock()

	r.readyOnce.Do(func() { close(r.ready) })
	return nil
}

// Ready is closed once the first users snapshot has been applied.
func (r *Registry) Ready() <-chan struct{} {
	return r.ready
}

func (r *Registry) Exists(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[domain.UserKey(username)]
	return ok
}

func (r *Registry) Lookup(username string) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[domain.UserKey(username)]
	return user, ok
}

// Usernames returns the known usernames as registered, sorted by key.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := lo.Keys(r.users)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) string { return r.users[k].Username })
}

// Register upserts the profile of username. It fails with ErrUsernameTaken when
// another identity already holds the same username, compared case-insensitively:
// a different spelling, or a different sign-in uid.
func (r *Registry) Register(ctx context.Context, username, photoURL, uid string) (domain.User, error) {
	if username == "" {
		return domain.User{}, errors.ErrEmptyInput
	}
	if existing, ok := r.Lookup(username); ok && !sameIdentity(existing, username, uid) {
		return domain.User{}, fmt.Errorf("%w: %s", errors.ErrUsernameTaken, existing.Username)
	}

	user := domain.User{
		Username: username,
		PhotoURL: photoURL,
		JoinedAt: r.now().UnixMilli(),
		UID:      uid,
	}
	if err := r.store.Put(ctx, event.Users, domain.UserKey(username), event.EncodeUser(user)); err != nil {
		return domain.User{}, err
	}
	r.log.Info("User registered", "username", username)
	return user, nil
}

func sameIdentity(existing domain.User, username, uid string) bool {
	if existing.Username != username {
		return false
	}
	return existing.UID == "" || uid == "" || existing.UID == uid
}
