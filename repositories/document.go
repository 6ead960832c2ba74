package repositories

import (
	"chatspace/domain/event"
	"chatspace/errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Documents are persisted as google.protobuf.Struct: binary in Badger, JSON in Redis.

func toStruct(doc event.Document) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(normalize(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	return s, nil
}

func marshalBinary(doc event.Document) ([]byte, error) {
	s, err := toStruct(doc)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func unmarshalBinary(data []byte) (event.Document, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s.AsMap(), nil
}

func marshalJSON(doc event.Document) ([]byte, error) {
	s, err := toStruct(doc)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

func unmarshalJSON(data []byte) (event.Document, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s.AsMap(), nil
}

// normalize rewrites typed slices that structpb refuses into []any.
func normalize(doc event.Document) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch typed := v.(type) {
		case []string:
			out[k] = event.EncodeStrings(typed)
		case event.Document:
			out[k] = normalize(typed)
		default:
			out[k] = v
		}
	}
	return out
}

// merge applies a top-level partial update over an existing document.
func merge(base, partial event.Document) event.Document {
	return lo.Assign(event.Document{}, base, partial)
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty record key", errors.ErrInvalidInput)
	}
	return nil
}
