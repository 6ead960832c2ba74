package repositories

import (
	"chatspace/contract"
	"chatspace/domain/event"
	"chatspace/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ contract.DirectoryStore = (*RedisStore)(nil)

// RedisStore shares the directory between processes. Each collection is one hash
// ("{namespace}:{collection}"); every write publishes the record key on
// "{namespace}:changes:{collection}" so subscribers rescan.
type RedisStore struct {
	client    *redis.Client
	log       *slog.Logger
	namespace string
}

// NewRedisStore connects to redisURL and checks the connection.
func NewRedisStore(ctx context.Context, redisURL string, log *slog.Logger, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: connect to redis: %v", errors.ErrStoreUnavailable, err)
	}
	return NewRedisStoreWithClient(client, log, namespace), nil
}

func NewRedisStoreWithClient(client *redis.Client, log *slog.Logger, namespace string) *RedisStore {
	return &RedisStore{client: client, log: log, namespace: namespace}
}

func (s *RedisStore) hashKey(collection event.Collection) string {
	return fmt.Sprintf("%s:%s", s.namespace, collection)
}

func (s *RedisStore) channel(collection event.Collection) string {
	return fmt.Sprintf("%s:changes:%s", s.namespace, collection)
}

func (s *RedisStore) Put(ctx context.Context, collection event.Collection, key string, doc event.Document) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := marshalJSON(doc)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hashKey(collection), key, data)
		pipe.Publish(ctx, s.channel(collection), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: put %s/%s: %v", errors.ErrStoreUnavailable, collection, key, err)
	}
	return nil
}

// Patch is an optimistic WATCH/MULTI merge: a concurrent writer on the same
// collection aborts the transaction and the merge is replayed.
func (s *RedisStore) Patch(ctx context.Context, collection event.Collection, key string, partial event.Document) error {
	if err := validKey(key); err != nil {
		return err
	}
	hashKey := s.hashKey(collection)
	txf := func(tx *redis.Tx) error {
		existing, _, err := s.get(ctx, tx, collection, key)
		if err != nil {
			return err
		}
		data, err := marshalJSON(merge(existing, partial))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hashKey, key, data)
			pipe.Publish(ctx, s.channel(collection), key)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.client.Watch(ctx, txf, hashKey)
		if !stderrors.Is(err, redis.TxFailedErr) {
			break
		}
		s.log.Debug("Patch conflict, replaying", "collection", collection, "key", key, "attempt", attempt)
	}
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("%w: patch %s/%s: %v", errors.ErrStoreUnavailable, collection, key, err)
	}
	return nil
}

func (s *RedisStore) GetOnce(ctx context.Context, collection event.Collection, key string) (event.Document, bool, error) {
	doc, found, err := s.get(ctx, s.client, collection, key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s/%s: %v", errors.ErrStoreUnavailable, collection, key, err)
	}
	return doc, found, nil
}

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func (s *RedisStore) get(ctx context.Context, cmd hashReader, collection event.Collection, key string) (event.Document, bool, error) {
	raw, err := cmd.HGet(ctx, s.hashKey(collection), key).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc, err := unmarshalJSON([]byte(raw))
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// Subscribe waits for the Pub/Sub subscription to be confirmed before taking the
// initial snapshot, so no write can fall between the two.
func (s *RedisStore) Subscribe(ctx context.Context, collection event.Collection) (<-chan event.Change, error) {
	pubsub := s.client.Subscribe(ctx, s.channel(collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", errors.ErrStoreUnavailable, collection, err)
	}
	snapshot, err := s.scan(ctx, collection)
	if err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", errors.ErrStoreUnavailable, collection, err)
	}

	f := newFeed()
	f.publish(event.Change{Snapshot: snapshot})

	go func() {
		defer f.close()
		defer func() { _ = pubsub.Close() }()
		notifications := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notifications:
				if !ok {
					f.publish(event.Change{Err: fmt.Errorf("%w: %s notifications closed", errors.ErrStoreUnavailable, collection)})
					return
				}
				snapshot, err := s.scan(ctx, collection)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					f.publish(event.Change{Err: fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)})
					continue
				}
				f.publish(event.Change{Snapshot: snapshot})
			}
		}
	}()
	return f.ch, nil
}

// scan returns the collection ordered by key, matching the badger adapter.
func (s *RedisStore) scan(ctx context.Context, collection event.Collection) (event.Snapshot, error) {
	raw, err := s.client.HGetAll(ctx, s.hashKey(collection)).Result()
	if err != nil {
		return event.Snapshot{}, err
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	snapshot := event.Snapshot{Collection: collection}
	for _, k := range keys {
		doc, err := unmarshalJSON([]byte(raw[k]))
		if err != nil {
			s.log.Warn("Skipping undecodable record", "collection", collection, "key", k, "error", err)
			continue
		}
		snapshot.Records = append(snapshot.Records, event.Record{Key: k, Document: doc})
	}
	return snapshot, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Dump reads the current content of a collection without subscribing.
func (s *RedisStore) Dump(ctx context.Context, collection event.Collection) (event.Snapshot, error) {
	return s.scan(ctx, collection)
}
