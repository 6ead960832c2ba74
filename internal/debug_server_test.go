package internal

import (
	"chatspace/domain/event"
	"chatspace/errors"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type dumperFunc func(ctx context.Context, collection event.Collection) (event.Snapshot, error)

func (f dumperFunc) Dump(ctx context.Context, collection event.Collection) (event.Snapshot, error) {
	return f(ctx, collection)
}

func TestInspectHandler(t *testing.T) {
	req := require.New(t)
	var asked event.Collection
	handler := InspectHandler(dumperFunc(func(_ context.Context, c event.Collection) (event.Snapshot, error) {
		asked = c
		return event.Snapshot{Collection: c, Records: []event.Record{
			{Key: "alice", Document: event.Document{"username": "Alice"}},
		}}, nil
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inspect?collection=users", nil))

	req.Equal(http.StatusOK, rec.Code)
	req.Equal(event.Users, asked)
	req.Contains(rec.Body.String(), "alice")
	req.Contains(rec.Body.String(), "Alice")
}

func TestInspectHandler_UnknownCollectionFallsBackToChats(t *testing.T) {
	req := require.New(t)
	var asked event.Collection
	handler := InspectHandler(dumperFunc(func(_ context.Context, c event.Collection) (event.Snapshot, error) {
		asked = c
		return event.Snapshot{}, errors.ErrStoreUnavailable
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inspect?collection=secrets", nil))

	req.Equal(event.Chats, asked)
	req.Contains(rec.Body.String(), errors.ErrStoreUnavailable.Error())
}
