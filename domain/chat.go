package domain

import "github.com/samber/lo"

type ChatKind string

const (
	KindChannel ChatKind = "channel"
	KindDM      ChatKind = "dm"
)

const (
	GlobalChatID    = "global"
	GlobalChatName  = "Global Chat"
	AllParticipants = "All"
)

// Chat is a channel or a DM thread.
// Participants never contains the creator: the viewer is always an implicit member.
type Chat struct {
	ID           string
	Name         string
	Kind         ChatKind
	Participants []string
	CreatedBy    string
}

// NewGlobalChat returns the canonical open channel every client converges to.
func NewGlobalChat() Chat {
	return Chat{
		ID:           GlobalChatID,
		Name:         GlobalChatName,
		Kind:         KindChannel,
		Participants: []string{AllParticipants},
	}
}

func (c Chat) HasParticipant(username string) bool {
	return lo.ContainsBy(c.Participants, func(p string) bool {
		return SameUser(p, username)
	})
}

// IsOpen reports whether the chat admits everyone.
func (c Chat) IsOpen() bool {
	return lo.Contains(c.Participants, AllParticipants)
}

// Counterpart returns the other side of a DM, or "" for channels.
func (c Chat) Counterpart() string {
	if c.Kind != KindDM || len(c.Participants) == 0 {
		return ""
	}
	return c.Participants[0]
}

// DisplayName is the title viewer sees: for a DM, the other side of the thread.
func (c Chat) DisplayName(viewer string) string {
	if c.Kind == KindDM && c.CreatedBy != "" && c.HasParticipant(viewer) {
		return c.CreatedBy
	}
	return c.Name
}
