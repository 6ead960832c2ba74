// Package search keeps a full-text index of the messages a session has seen.
package search

import (
	"chatspace/domain"
	"chatspace/domain/event"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blugelabs/bluge"
)

const (
	fieldText      = "text"
	fieldChatID    = "chatId"
	fieldSender    = "sender"
	fieldCreatedAt = "createdAt"
	defaultLimit   = 10
)

// Index is a messages sink backed by a bluge writer.
// Messages are immutable, so a message id is indexed once.
type Index struct {
	mu     sync.Mutex
	log    *slog.Logger
	writer *bluge.Writer
	seen   map[string]struct{}
}

func NewIndex(log *slog.Logger, writer *bluge.Writer) *Index {
	return &Index{log: log, writer: writer, seen: make(map[string]struct{})}
}

// Consume indexes the messages of the snapshot not indexed yet.
func (i *Index) Consume(_ context.Context, snapshot event.Snapshot) error {
	if snapshot.Collection != event.Messages {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := bluge.NewBatch()
	var fresh []string
	for _, record := range snapshot.Records {
		if _, ok := i.seen[record.Key]; ok {
			continue
		}
		m := event.DecodeMessage(record.Key, record.Document)
		doc := toDocument(m)
		batch.Update(doc.ID(), doc)
		fresh = append(fresh, m.ID)
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := i.writer.Batch(batch); err != nil {
		return fmt.Errorf("failed to index messages: %w", err)
	}
	for _, id := range fresh {
		i.seen[id] = struct{}{}
	}
	i.log.Debug("Messages indexed", "count", len(fresh))
	return nil
}

func toDocument(m domain.Message) *bluge.Document {
	return bluge.NewDocument(m.ID).
		AddField(bluge.NewTextField(fieldText, m.Text)).
		AddField(bluge.NewKeywordField(fieldChatID, m.ChatID)).
		AddField(bluge.NewKeywordField(fieldSender, domain.UserKey(m.Sender))).
		AddField(bluge.NewNumericField(fieldCreatedAt, float64(m.CreatedAt)).Sortable())
}

// Search returns the ids of messages matching query, oldest first.
// An empty chatID searches every chat.
func (i *Index) Search(ctx context.Context, chatID, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	q := bluge.NewBooleanQuery().AddMust(bluge.NewMatchQuery(query).SetField(fieldText))
	if chatID != "" {
		q.AddMust(bluge.NewTermQuery(chatID).SetField(fieldChatID))
	}
	request := bluge.NewTopNSearch(limit, q).SortBy([]string{fieldCreatedAt})

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	var ids []string
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
				return false
			}
			return true
		})
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return ids, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}
