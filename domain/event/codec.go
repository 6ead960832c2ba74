package event

import (
	"chatspace/domain"
	"encoding/json"
	"math"
	"strconv"

	"github.com/samber/lo"
)

// Decoders never fail: records may arrive partially written or ahead of
// the event that creates them, so missing or mistyped fields default to zero.

func DecodeUser(key string, doc Document) domain.User {
	username := stringField(doc, "username")
	if username == "" {
		username = key
	}
	return domain.User{
		Username: username,
		PhotoURL: stringField(doc, "photoURL"),
		JoinedAt: intField(doc, "joinedAt"),
		UID:      stringField(doc, "uid"),
	}
}

func EncodeUser(u domain.User) Document {
	doc := Document{
		"username": u.Username,
		"joinedAt": u.JoinedAt,
		"photoURL": u.PhotoURL,
	}
	if u.UID != "" {
		doc["uid"] = u.UID
	}
	return doc
}

func DecodeChat(key string, doc Document) domain.Chat {
	id := stringField(doc, "id")
	if id == "" {
		id = key
	}
	kind := domain.ChatKind(stringField(doc, "type"))
	if kind == "" {
		kind = domain.ChatKind(stringField(doc, "kind"))
	}
	return domain.Chat{
		ID:           id,
		Name:         stringField(doc, "name"),
		Kind:         kind,
		Participants: StringsField(doc, "participants"),
		CreatedBy:    stringField(doc, "createdBy"),
	}
}

func EncodeChat(c domain.Chat) Document {
	doc := Document{
		"id":           c.ID,
		"name":         c.Name,
		"type":         string(c.Kind),
		"participants": EncodeStrings(c.Participants),
	}
	if c.CreatedBy != "" {
		doc["createdBy"] = c.CreatedBy
	}
	return doc
}

func DecodeMessage(key string, doc Document) domain.Message {
	return domain.Message{
		ID:          key,
		ChatID:      stringField(doc, "chatId"),
		Sender:      stringField(doc, "sender"),
		Text:        stringField(doc, "text"),
		CreatedAt:   intField(doc, "createdAt"),
		Timestamp:   stringField(doc, "timestamp"),
		SenderPhoto: stringField(doc, "senderPhoto"),
	}
}

func EncodeMessage(m domain.Message) Document {
	return Document{
		"chatId":      m.ChatID,
		"text":        m.Text,
		"sender":      m.Sender,
		"createdAt":   m.CreatedAt,
		"timestamp":   m.Timestamp,
		"senderPhoto": m.SenderPhoto,
	}
}

// EncodeStrings converts a string list into the generic list form every adapter accepts.
func EncodeStrings(values []string) []any {
	return lo.Map(values, func(v string, _ int) any { return v })
}

func StringsField(doc Document, name string) []string {
	switch v := doc[name].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		return lo.FilterMap(v, func(item any, _ int) (string, bool) {
			s, ok := item.(string)
			return s, ok
		})
	default:
		return nil
	}
}

func stringField(doc Document, name string) string {
	s, _ := doc[name].(string)
	return s
}

func intField(doc Document, name string) int64 {
	switch v := doc[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
