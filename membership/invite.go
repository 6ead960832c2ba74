package membership

import (
	"chatspace/contract"
	"chatspace/domain"
	"strings"

	"github.com/samber/lo"
)

// InviteBatch collects usernames before a single participant write.
// ChatID is empty while creating a new channel.
type InviteBatch struct {
	ChatID  string
	members []string
	staged  []string
}

// NewInviteBatch starts a batch against the current participants of chat.
func NewInviteBatch(chat domain.Chat) *InviteBatch {
	return &InviteBatch{
		ChatID:  chat.ID,
		members: append([]string(nil), chat.Participants...),
	}
}

// NewChannelBatch starts a batch for a channel that does not exist yet.
func NewChannelBatch() *InviteBatch {
	return &InviteBatch{}
}

// Stage validates target and adds it to the batch.
func (b *InviteBatch) Stage(actor, target string, known contract.KnownUsers) error {
	if err := Validate(actor, target, b.members, b.staged, known); err != nil {
		return err
	}
	b.staged = append(b.staged, strings.TrimSpace(target))
	return nil
}

// Remove drops an exact staged entry.
func (b *InviteBatch) Remove(target string) {
	b.staged = lo.Without(b.staged, target)
}

func (b *InviteBatch) Staged() []string {
	return append([]string(nil), b.staged...)
}

func (b *InviteBatch) Empty() bool {
	return len(b.staged) == 0
}

// Participants is the list to write: members known when the batch started plus new invites.
func (b *InviteBatch) Participants() []string {
	return MergeParticipants(b.members, b.staged)
}

// ParticipantsOf merges the invites into current, the live participant list at commit time.
// Invites already present in current are dropped.
func (b *InviteBatch) ParticipantsOf(current []string) []string {
	return MergeParticipants(current, b.staged)
}
