// Package bootstrap keeps the canonical records every client must converge to:
// the single global channel and one DM thread per pair of users.
package bootstrap

import (
	"chatspace/contract"
	"chatspace/domain"
	"chatspace/domain/event"
	"chatspace/errors"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

type Canonicalizer struct {
	log   *slog.Logger
	store contract.DirectoryStore
	group singleflight.Group
	now   func() time.Time
}

func NewCanonicalizer(log *slog.Logger, store contract.DirectoryStore) *Canonicalizer {
	return &Canonicalizer{log: log, store: store, now: time.Now}
}

// EnsureGlobal writes the global channel when chats lacks it and reports whether
// a write was issued. The record id is a constant and the write a plain
// create-or-replace with fixed defaults, so clients racing here converge on one
// record without any lock; concurrent calls inside this process share one write.
func (c *Canonicalizer) EnsureGlobal(ctx context.Context, chats []domain.Chat) (bool, error) {
	if lo.ContainsBy(chats, func(chat domain.Chat) bool { return chat.ID == domain.GlobalChatID }) {
		return false, nil
	}
	_, err, shared := c.group.Do(domain.GlobalChatID, func() (any, error) {
		return nil, c.store.Put(ctx, event.Chats, domain.GlobalChatID, event.EncodeChat(domain.NewGlobalChat()))
	})
	if err != nil {
		return false, err
	}
	c.log.Debug("Global channel ensured", "shared", shared)
	return true, nil
}

// Guard wraps the sink of the chats stream. A snapshot missing the global
// channel triggers EnsureGlobal and is completed locally with the canonical
// record, so the view never waits for the round trip.
func (c *Canonicalizer) Guard(next contract.SnapshotSink) contract.SnapshotSink {
	return contract.SnapshotSinkFunc(func(ctx context.Context, snapshot event.Snapshot) error {
		if snapshot.Collection != event.Chats || slices.Contains(snapshot.Keys(), domain.GlobalChatID) {
			return next.Consume(ctx, snapshot)
		}
		if _, err := c.EnsureGlobal(ctx, nil); err != nil {
			c.log.Error("Global channel write failed", "error", err)
		}
		snapshot.Records = append(slices.Clone(snapshot.Records), event.Record{
			Key:      domain.GlobalChatID,
			Document: event.EncodeChat(domain.NewGlobalChat()),
		})
		return next.Consume(ctx, snapshot)
	})
}

// FindDM returns the DM thread between initiator and target, if one is known.
// Threads without a recorded creator match on the counterpart alone.
func FindDM(chats []domain.Chat, initiator, target string) (domain.Chat, bool) {
	return lo.Find(chats, func(chat domain.Chat) bool {
		if chat.Kind != domain.KindDM {
			return false
		}
		switch {
		case chat.HasParticipant(target):
			return chat.CreatedBy == "" || domain.SameUser(chat.CreatedBy, initiator)
		case chat.HasParticipant(initiator):
			return domain.SameUser(chat.CreatedBy, target)
		default:
			return false
		}
	})
}

// OpenDM reuses the DM between initiator and target or creates it.
// Ids are time based, not derived from the pair: two users opening a DM with
// each other within one round trip can still create two threads.
func (c *Canonicalizer) OpenDM(ctx context.Context, initiator, target string, chats []domain.Chat) (domain.Chat, bool, error) {
	if existing, ok := FindDM(chats, initiator, target); ok {
		return existing, false, nil
	}
	chat := domain.Chat{
		ID:           fmt.Sprintf("dm_%d", c.now().UnixMilli()),
		Name:         target,
		Kind:         domain.KindDM,
		Participants: []string{target},
		CreatedBy:    initiator,
	}
	if err := c.store.Put(ctx, event.Chats, chat.ID, event.EncodeChat(chat)); err != nil {
		return domain.Chat{}, false, err
	}
	c.log.Info("DM created", "id", chat.ID, "initiator", initiator, "target", target)
	return chat, true, nil
}

// CreateChannel writes a new channel. The creator is implicit and never listed.
func (c *Canonicalizer) CreateChannel(ctx context.Context, creator, name string, participants []string) (domain.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Chat{}, errors.ErrEmptyInput
	}
	chat := domain.Chat{
		ID:   fmt.Sprintf("chan_%d", c.now().UnixMilli()),
		Name: name,
		Kind: domain.KindChannel,
		Participants: lo.Reject(participants, func(p string, _ int) bool {
			return domain.SameUser(p, creator)
		}),
		CreatedBy: creator,
	}
	if chat.Participants == nil {
		chat.Participants = []string{}
	}
	if err := c.store.Put(ctx, event.Chats, chat.ID, event.EncodeChat(chat)); err != nil {
		return domain.Chat{}, err
	}
	c.log.Info("Channel created", "id", chat.ID, "name", name, "participants", len(chat.Participants))
	return chat, nil
}
