// Package services exposes the user-facing operations of a session.
// Every membership change goes through the validator before any write.
package services

import (
	"chatspace/contract"
	"chatspace/domain"
	"chatspace/domain/event"
	"chatspace/errors"
	"chatspace/membership"
	"chatspace/projection"
	"chatspace/runtime"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/jaevor/go-nanoid"
	"github.com/samber/lo"
)

const (
	messageIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	messageIDLength   = 9
	displayTimeLayout = "15:04"
)

// Searcher finds message ids matching a query.
type Searcher interface {
	Search(ctx context.Context, chatID, query string, limit int) ([]string, error)
}

// Censor masks forbidden words in a text.
type Censor interface {
	Censor(text string) (string, []string)
}

type IChatService interface {
	Join(ctx context.Context, cmd domain.JoinCommand) (domain.User, error)
	SendMessage(ctx context.Context, chatID, text string) (string, error)
	OpenDM(ctx context.Context, target string) (domain.Chat, error)
	CreateChannel(ctx context.Context, name string, participants []string) (domain.Chat, error)
	BeginInvite(chatID string) error
	StageInvite(target string) error
	RemoveInvite(target string)
	StagedInvites() []string
	CommitInvite(ctx context.Context) (domain.Chat, error)
	CommitChannel(ctx context.Context, name string) (domain.Chat, error)
	SearchMessages(ctx context.Context, cmd domain.SearchCommand) ([]domain.Message, error)
}

type ChatService struct {
	log      *slog.Logger
	store    contract.DirectoryStore
	session  *runtime.Session
	searcher Searcher
	censor   Censor
	newID    func() string
	now      func() time.Time

	mu    sync.Mutex
	batch *membership.InviteBatch
}

func NewChatService(log *slog.Logger, store contract.DirectoryStore, session *runtime.Session) (*ChatService, error) {
	suffix, err := gonanoid.CustomASCII(messageIDAlphabet, messageIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to build message id generator: %w", err)
	}
	return &ChatService{
		log:     log,
		store:   store,
		session: session,
		newID:   suffix,
		now:     time.Now,
	}, nil
}

func (s *ChatService) WithSearcher(searcher Searcher) *ChatService {
	s.searcher = searcher
	return s
}

func (s *ChatService) WithCensor(censor Censor) *ChatService {
	s.censor = censor
	return s
}

// Join registers the session username and binds it to the signed-in account.
// It waits for the first users snapshot so uniqueness is checked against the live set.
func (s *ChatService) Join(ctx context.Context, cmd domain.JoinCommand) (domain.User, error) {
	account := s.session.Account()
	if account.UID == "" {
		return domain.User{}, errors.ErrNoIdentity
	}
	cmd.Username = strings.TrimSpace(cmd.Username)
	if cmd.Username == "" {
		return domain.User{}, errors.ErrEmptyInput
	}
	if err := validateCommand(cmd); err != nil {
		return domain.User{}, err
	}

	registry := s.session.Registry()
	select {
	case <-registry.Ready():
	case <-ctx.Done():
		return domain.User{}, ctx.Err()
	}

	photoURL := lo.Ternary(cmd.PhotoURL != "", cmd.PhotoURL, account.PhotoURL)
	user, err := registry.Register(ctx, cmd.Username, photoURL, account.UID)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.store.Put(ctx, event.Profiles, account.UID, event.Document{"username": user.Username}); err != nil {
		return domain.User{}, err
	}
	s.session.SetUsername(user.Username)
	return user, nil
}

// SendMessage appends one message. The sender sees it once it comes back
// through the messages stream.
func (s *ChatService) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	sender := s.session.Username()
	if sender == "" {
		return "", errors.ErrNoIdentity
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.ErrEmptyInput
	}
	if chatID == "" {
		chatID = domain.GlobalChatID
	}
	if err := validateCommand(domain.PostMessageCommand{ChatID: chatID, Text: text}); err != nil {
		return "", err
	}
	if s.censor != nil {
		var words []string
		if text, words = s.censor.Censor(text); len(words) > 0 {
			s.log.Info("Outgoing message censored", "chat", chatID, "words", len(words))
		}
	}

	now := s.now()
	message := domain.Message{
		ID:          fmt.Sprintf("msg_%d_%s", now.UnixMilli(), s.newID()),
		ChatID:      chatID,
		Sender:      sender,
		Text:        text,
		CreatedAt:   now.UnixMilli(),
		Timestamp:   now.Format(displayTimeLayout),
		SenderPhoto: s.session.Account().PhotoURL,
	}
	if err := s.store.Put(ctx, event.Messages, message.ID, event.EncodeMessage(message)); err != nil {
		return "", err
	}
	return message.ID, nil
}

// OpenDM reuses or creates the DM with target and adds target to the contacts.
func (s *ChatService) OpenDM(ctx context.Context, target string) (domain.Chat, error) {
	actor := s.session.Username()
	if actor == "" {
		return domain.Chat{}, errors.ErrNoIdentity
	}
	registry := s.session.Registry()
	if err := membership.Validate(actor, target, nil, nil, registry); err != nil {
		return domain.Chat{}, err
	}
	target = strings.TrimSpace(target)
	if err := validateCommand(domain.OpenDMCommand{Target: target}); err != nil {
		return domain.Chat{}, err
	}
	if user, ok := registry.Lookup(target); ok {
		target = user.Username
	}

	chat, _, err := s.session.Canonicalizer().OpenDM(ctx, actor, target, s.session.View().Chats)
	if err != nil {
		return domain.Chat{}, err
	}
	s.session.AddContact(target)
	return chat, nil
}

// CreateChannel validates every participant, then writes the channel.
func (s *ChatService) CreateChannel(ctx context.Context, name string, participants []string) (domain.Chat, error) {
	actor := s.session.Username()
	if actor == "" {
		return domain.Chat{}, errors.ErrNoIdentity
	}
	batch := membership.NewChannelBatch()
	for _, p := range participants {
		if err := batch.Stage(actor, p, s.session.Registry()); err != nil {
			return domain.Chat{}, err
		}
	}
	return s.createChannel(ctx, actor, name, batch)
}

func (s *ChatService) createChannel(ctx context.Context, actor, name string, batch *membership.InviteBatch) (domain.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Chat{}, errors.ErrEmptyInput
	}
	if err := validateCommand(domain.CreateChannelCommand{Name: name, Participants: batch.Staged()}); err != nil {
		return domain.Chat{}, err
	}
	return s.session.Canonicalizer().CreateChannel(ctx, actor, name, batch.Participants())
}

// BeginInvite opens a pending batch for chatID, or for a new channel when chatID is empty.
// Any previous batch is discarded.
func (s *ChatService) BeginInvite(chatID string) error {
	if s.session.Username() == "" {
		return errors.ErrNoIdentity
	}
	batch := membership.NewChannelBatch()
	if chatID != "" {
		chat, ok := lo.Find(s.session.View().Chats, func(c domain.Chat) bool { return c.ID == chatID })
		if !ok {
			return fmt.Errorf("%w: %s", errors.ErrUnknownChat, chatID)
		}
		if chat.Kind != domain.KindChannel || chat.IsOpen() {
			return fmt.Errorf("%w: %s does not take invites", errors.ErrInvalidInput, chat.ID)
		}
		batch = membership.NewInviteBatch(chat)
	}
	s.mu.Lock()
	s.batch = batch
	s.mu.Unlock()
	return nil
}

func (s *ChatService) StageInvite(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return fmt.Errorf("%w: no pending invite", errors.ErrInvalidInput)
	}
	return s.batch.Stage(s.session.Username(), target, s.session.Registry())
}

func (s *ChatService) RemoveInvite(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch != nil {
		s.batch.Remove(target)
	}
}

func (s *ChatService) StagedInvites() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil
	}
	return s.batch.Staged()
}

// CommitInvite merges the pending batch into the participants the chat has now
// and writes the result in one patch. An empty batch writes nothing.
func (s *ChatService) CommitInvite(ctx context.Context) (domain.Chat, error) {
	s.mu.Lock()
	batch := s.batch
	s.mu.Unlock()
	if batch == nil || batch.ChatID == "" {
		return domain.Chat{}, fmt.Errorf("%w: no pending invite", errors.ErrInvalidInput)
	}

	chat := projection.Chat(s.session.View(), batch.ChatID)
	if batch.Empty() {
		return chat, nil
	}
	participants := batch.ParticipantsOf(chat.Participants)
	patch := event.Document{"participants": event.EncodeStrings(participants)}
	if err := s.store.Patch(ctx, event.Chats, batch.ChatID, patch); err != nil {
		return domain.Chat{}, err
	}
	s.log.Info("Participants invited", "chat", batch.ChatID, "invited", len(batch.Staged()))

	s.mu.Lock()
	if s.batch == batch {
		s.batch = nil
	}
	s.mu.Unlock()
	chat.Participants = participants
	return chat, nil
}

// CommitChannel creates a channel named name with the pending batch as participants.
func (s *ChatService) CommitChannel(ctx context.Context, name string) (domain.Chat, error) {
	s.mu.Lock()
	batch := s.batch
	s.mu.Unlock()
	if batch == nil || batch.ChatID != "" {
		return domain.Chat{}, fmt.Errorf("%w: no pending channel", errors.ErrInvalidInput)
	}
	chat, err := s.createChannel(ctx, s.session.Username(), name, batch)
	if err != nil {
		return domain.Chat{}, err
	}
	s.mu.Lock()
	if s.batch == batch {
		s.batch = nil
	}
	s.mu.Unlock()
	return chat, nil
}

// SearchMessages returns the matching messages present in the local view, oldest first.
func (s *ChatService) SearchMessages(ctx context.Context, cmd domain.SearchCommand) ([]domain.Message, error) {
	cmd.Query = strings.TrimSpace(cmd.Query)
	if cmd.Query == "" {
		return nil, errors.ErrEmptyInput
	}
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	if s.searcher == nil {
		return nil, fmt.Errorf("%w: search is disabled", errors.ErrInvalidInput)
	}
	ids, err := s.searcher.Search(ctx, cmd.ChatID, cmd.Query, cmd.Limit)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(s.session.View().Messages, func(m domain.Message) string { return m.ID })
	return lo.FilterMap(ids, func(id string, _ int) (domain.Message, bool) {
		m, ok := byID[id]
		return m, ok
	}), nil
}
