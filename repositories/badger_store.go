package repositories

import (
	"chatspace/contract"
	"chatspace/domain/event"
	"chatspace/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	badgerpb "github.com/dgraph-io/badger/v4/pb"
)

const maxConflictRetries = 3

var _ contract.DirectoryStore = (*BadgerStore)(nil)

// BadgerStore is an embedded DirectoryStore. Every session of the process shares
// the same DB; change streams are driven by badger's key subscriptions.
type BadgerStore struct {
	db        *badger.DB
	log       *slog.Logger
	namespace string
}

func NewBadgerStore(db *badger.DB, log *slog.Logger, namespace string) *BadgerStore {
	return &BadgerStore{db: db, log: log, namespace: namespace}
}

// Keys are formatted as "{namespace}:{collection}:{key}" so that one prefix scan
// returns a whole collection in key order.
func (s *BadgerStore) prefix(collection event.Collection) []byte {
	return []byte(fmt.Sprintf("%s:%s:", s.namespace, collection))
}

func (s *BadgerStore) key(collection event.Collection, key string) []byte {
	return append(s.prefix(collection), key...)
}

func (s *BadgerStore) Put(_ context.Context, collection event.Collection, key string, doc event.Document) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := marshalBinary(doc)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(collection, key), data)
	})
	if err != nil {
		return fmt.Errorf("%w: put %s/%s: %v", errors.ErrStoreUnavailable, collection, key, err)
	}
	return nil
}

// Patch merges partial into the stored document inside one transaction.
// Badger detects concurrent read-modify-write conflicts; the merge is replayed on conflict.
func (s *BadgerStore) Patch(_ context.Context, collection event.Collection, key string, partial event.Document) error {
	if err := validKey(key); err != nil {
		return err
	}
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			existing, _, err := s.get(txn, collection, key)
			if err != nil {
				return err
			}
			data, err := marshalBinary(merge(existing, partial))
			if err != nil {
				return err
			}
			return txn.Set(s.key(collection, key), data)
		})
		if !stderrors.Is(err, badger.ErrConflict) {
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

func (s *BadgerStore) GetOnce(_ context.Context, collection event.Collection, key string) (event.Document, bool, error) {
	var (
		doc   event.Document
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, found, err = s.get(txn, collection, key)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s/%s: %v", errors.ErrStoreUnavailable, collection, key, err)
	}
	return doc, found, nil
}

func (s *BadgerStore) get(txn *badger.Txn, collection event.Collection, key string) (event.Document, bool, error) {
	item, err := txn.Get(s.key(collection, key))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var doc event.Document
	err = item.Value(func(val []byte) error {
		doc, err = unmarshalBinary(val)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// Subscribe emits the current snapshot, then a fresh full snapshot after each
// committed write under the collection prefix. A write racing with the
// registration of the badger subscriber shows up with the next change.
func (s *BadgerStore) Subscribe(ctx context.Context, collection event.Collection) (<-chan event.Change, error) {
	snapshot, err := s.scan(collection)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %v", errors.ErrStoreUnavailable, collection, err)
	}
	f := newFeed()
	f.publish(event.Change{Snapshot: snapshot})

	go func() {
		defer f.close()
		err := s.db.Subscribe(ctx, func(_ *badgerpb.KVList) error {
			snapshot, err := s.scan(collection)
			if err != nil {
				f.publish(event.Change{Err: fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)})
				return nil
			}
			f.publish(event.Change{Snapshot: snapshot})
			return nil
		}, []badgerpb.Match{{Prefix: s.prefix(collection)}})
		if err != nil && ctx.Err() == nil {
			s.log.Warn("Badger subscription ended", "collection", collection, "error", err)
			f.publish(event.Change{Err: fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)})
		}
	}()
	return f.ch, nil
}

func (s *BadgerStore) scan(collection event.Collection) (event.Snapshot, error) {
	snapshot := event.Snapshot{Collection: collection}
	prefix := s.prefix(collection)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				doc, err := unmarshalBinary(val)
				if err != nil {
					s.log.Warn("Skipping undecodable record", "collection", collection, "key", key, "error", err)
					return nil
				}
				snapshot.Records = append(snapshot.Records, event.Record{Key: key, Document: doc})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return snapshot, err
}

// Dump reads the current content of a collection without subscribing.
func (s *BadgerStore) Dump(_ context.Context, collection event.Collection) (event.Snapshot, error) {
	return s.scan(collection)
}
