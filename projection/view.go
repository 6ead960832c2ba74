// Package projection builds the local view from collection snapshots.
// Handles ordering, reconciliation and derived per-tab lists.
// Does not write to the store or render anything.
package projection

import (
	"chatspace/domain"
	"chatspace/domain/event"
	"sort"

	"github.com/samber/lo"
)

// View is the reconciled state of the three streamed collections.
// Slices keep the order the store delivered the records in.
type View struct {
	Users    []domain.User
	Chats    []domain.Chat
	Messages []domain.Message
}

// Apply replaces the collection carried by snapshot and leaves the others untouched.
// The last applied snapshot wins; records are never merged field by field.
func Apply(view View, snapshot event.Snapshot) View {
	switch snapshot.Collection {
	case event.Users:
		view.Users = lo.Map(snapshot.Records, func(r event.Record, _ int) domain.User {
			return event.DecodeUser(r.Key, r.Document)
		})
	case event.Chats:
		view.Chats = lo.Map(snapshot.Records, func(r event.Record, _ int) domain.Chat {
			return event.DecodeChat(r.Key, r.Document)
		})
	case event.Messages:
		view.Messages = lo.Map(snapshot.Records, func(r event.Record, _ int) domain.Message {
			return event.DecodeMessage(r.Key, r.Document)
		})
	}
	return view
}

// ChatsForTab keeps the chats of one kind, in stream order.
func ChatsForTab(view View, kind domain.ChatKind) []domain.Chat {
	return lo.Filter(view.Chats, func(c domain.Chat, _ int) bool {
		return c.Kind == kind
	})
}

// VisibleTo keeps the chats viewer belongs to: open channels, chats listing
// viewer as a participant and chats viewer created.
func VisibleTo(chats []domain.Chat, viewer string) []domain.Chat {
	return lo.Filter(chats, func(c domain.Chat, _ int) bool {
		return c.IsOpen() || c.HasParticipant(viewer) || (c.CreatedBy != "" && domain.SameUser(c.CreatedBy, viewer))
	})
}

// Timeline returns the messages of one chat in ascending createdAt order.
// Equal timestamps keep stream order.
func Timeline(view View, chatID string) []domain.Message {
	messages := lo.Filter(view.Messages, func(m domain.Message, _ int) bool {
		return m.ChatID == chatID
	})
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt < messages[j].CreatedAt
	})
	return messages
}

// KnownUsers lists the registered usernames in stream order.
func KnownUsers(view View) []string {
	return lo.Map(view.Users, func(u domain.User, _ int) string { return u.Username })
}

// Chat finds a chat by id. An unknown id falls back to the global channel,
// which the view always holds once bootstrapped.
func Chat(view View, id string) domain.Chat {
	if chat, ok := lo.Find(view.Chats, func(c domain.Chat) bool { return c.ID == id }); ok {
		return chat
	}
	if chat, ok := lo.Find(view.Chats, func(c domain.Chat) bool { return c.ID == domain.GlobalChatID }); ok {
		return chat
	}
	return domain.NewGlobalChat()
}
