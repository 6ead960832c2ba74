package search

import (
	"chatspace/domain"
	"chatspace/domain/event"
	"context"
	"log/slog"
	"testing"

	"github.com/blugelabs/bluge"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T) *Index {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	index := NewIndex(logs.GetLoggerFromLevel(slog.LevelDebug), writer)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func messages(list ...domain.Message) event.Snapshot {
	records := make([]event.Record, 0, len(list))
	for _, m := range list {
		records = append(records, event.Record{Key: m.ID, Document: event.EncodeMessage(m)})
	}
	return event.Snapshot{Collection: event.Messages, Records: records}
}

func TestIndex_Search(t *testing.T) {
	req := require.New(t)
	index := newIndex(t)
	ctx := context.Background()

	// Given messages in two chats
	req.NoError(index.Consume(ctx, messages(
		domain.Message{ID: "msg_3", ChatID: "global", Sender: "bob", Text: "deploy is done", CreatedAt: 300},
		domain.Message{ID: "msg_1", ChatID: "global", Sender: "alice", Text: "Who runs the Deploy tonight?", CreatedAt: 100},
		domain.Message{ID: "msg_2", ChatID: "chan_1", Sender: "carol", Text: "deploy in ops", CreatedAt: 200},
		domain.Message{ID: "msg_4", ChatID: "global", Sender: "dave", Text: "lunch anyone", CreatedAt: 400},
	)))

	// When searching one chat
	ids, err := index.Search(ctx, "global", "deploy", 0)

	// Then only its matches are returned, oldest first
	req.NoError(err)
	req.Equal([]string{"msg_1", "msg_3"}, ids)

	// When searching every chat
	ids, err = index.Search(ctx, "", "deploy", 2)
	req.NoError(err)
	req.Equal([]string{"msg_1", "msg_2"}, ids)
}

func TestIndex_Consume_IndexesEachMessageOnce(t *testing.T) {
	req := require.New(t)
	index := newIndex(t)
	ctx := context.Background()
	first := domain.Message{ID: "msg_1", ChatID: "global", Text: "hello there", CreatedAt: 1}

	req.NoError(index.Consume(ctx, messages(first)))
	// A later snapshot carries the whole collection again
	req.NoError(index.Consume(ctx, messages(first, domain.Message{ID: "msg_2", ChatID: "global", Text: "hello again", CreatedAt: 2})))

	ids, err := index.Search(ctx, "global", "hello", 10)
	req.NoError(err)
	req.Equal([]string{"msg_1", "msg_2"}, ids)
	req.Len(index.seen, 2)
}

func TestIndex_Consume_IgnoresOtherCollections(t *testing.T) {
	req := require.New(t)
	index := newIndex(t)

	req.NoError(index.Consume(context.Background(), event.Snapshot{
		Collection: event.Chats,
		Records:    []event.Record{{Key: "global", Document: event.Document{"name": "hello"}}},
	}))

	req.Empty(index.seen)
}
