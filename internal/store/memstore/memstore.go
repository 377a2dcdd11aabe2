// Package memstore is an in-process document store with live snapshot
// subscriptions. It backs STORE_BACKEND=memory and the test suites.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"qgo-dispatch/internal/store"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// snapshotBuffer is how many undelivered snapshots a subscriber may queue
// before older ones are dropped. Every snapshot is complete, so dropping is lossless.
const snapshotBuffer = 8

type document map[string]interface{}

// Store keeps collections as JSON-shaped maps
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]document
	subs        map[*subscription]struct{}
	denied      map[string]bool
	now         func() time.Time
}

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]document),
		subs:        make(map[*subscription]struct{}),
		denied:      make(map[string]bool),
		now:         time.Now,
	}
}

// DenyAccess makes every call touching collection fail with ErrPermissionDenied,
// the way a locked-down security ruleset would. Live subscribers receive the error.
func (s *Store) DenyAccess(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.denied[collection] = true
	for sub := range s.subs {
		if sub.query.Collection == collection {
			sub.fail(fmt.Errorf("memstore: read %s: %w", collection, store.ErrPermissionDenied))
		}
	}
}

// AllowAccess lifts a previous DenyAccess
func (s *Store) AllowAccess(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.denied, collection)
}

// ActiveSubscriptions returns the number of open subscriptions
func (s *Store) ActiveSubscriptions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Store) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &subscription{
		store:     s,
		query:     q,
		snapshots: make(chan store.Snapshot, snapshotBuffer),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}
	s.subs[sub] = struct{}{}

	if s.denied[q.Collection] {
		sub.fail(fmt.Errorf("memstore: read %s: %w", q.Collection, store.ErrPermissionDenied))
	} else {
		sub.push(s.snapshotLocked(q))
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

func (s *Store) Create(ctx context.Context, collection string, record interface{}) (string, error) {
	doc, err := toDocument(record)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAccessLocked(collection); err != nil {
		return "", err
	}

	id := uuid.New().String()
	s.collectionLocked(collection)[id] = doc
	s.publishLocked(collection)
	return id, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, record interface{}) error {
	doc, err := toDocument(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAccessLocked(collection); err != nil {
		return err
	}

	s.collectionLocked(collection)[id] = doc
	s.publishLocked(collection)
	return nil
}

func (s *Store) Patch(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	encoded := make(document, len(fields))
	for k, v := range fields {
		value, err := toValue(v)
		if err != nil {
			return fmt.Errorf("memstore: encode field %s: %w", k, err)
		}
		encoded[k] = value
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAccessLocked(collection); err != nil {
		return err
	}

	existing, ok := s.collectionLocked(collection)[id]
	if !ok {
		return fmt.Errorf("memstore: patch %s/%s: %w", collection, id, store.ErrNotFound)
	}

	merged := make(document, len(existing)+len(encoded))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range encoded {
		merged[k] = v
	}
	s.collectionLocked(collection)[id] = merged
	s.publishLocked(collection)
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkAccessLocked(collection); err != nil {
		return store.Document{}, err
	}

	doc, ok := s.collections[collection][id]
	if !ok {
		return store.Document{}, fmt.Errorf("memstore: get %s/%s: %w", collection, id, store.ErrNotFound)
	}
	return frozen(id, doc)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAccessLocked(collection); err != nil {
		return err
	}

	delete(s.collectionLocked(collection), id)
	s.publishLocked(collection)
	return nil
}

func (s *Store) checkAccessLocked(collection string) error {
	if s.denied[collection] {
		return fmt.Errorf("memstore: %s: %w", collection, store.ErrPermissionDenied)
	}
	return nil
}

func (s *Store) collectionLocked(name string) map[string]document {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]document)
		s.collections[name] = c
	}
	return c
}

func (s *Store) publishLocked(collection string) {
	for sub := range s.subs {
		if sub.query.Collection == collection {
			sub.push(s.snapshotLocked(sub.query))
		}
	}
}

func (s *Store) snapshotLocked(q store.Query) store.Snapshot {
	ids := make([]string, 0, len(s.collections[q.Collection]))
	for id := range s.collections[q.Collection] {
		ids = append(ids, id)
	}

	docs := s.collections[q.Collection]
	sort.SliceStable(ids, func(i, j int) bool {
		if q.OrderBy == "" {
			return ids[i] < ids[j]
		}
		c := compareValues(docs[ids[i]][q.OrderBy], docs[ids[j]][q.OrderBy])
		if c == 0 {
			return ids[i] < ids[j]
		}
		if q.Descending {
			return c > 0
		}
		return c < 0
	})

	snap := store.Snapshot{Collection: q.Collection, ReadAt: s.now()}
	for _, id := range ids {
		doc, err := frozen(id, docs[id])
		if err != nil {
			log.Printf("❌ memstore: skipping %s/%s: %v", q.Collection, id, err)
			continue
		}
		snap.Docs = append(snap.Docs, doc)
	}
	return snap
}

// frozen captures the document bytes now so later writes cannot leak into a
// snapshot that was already handed out.
func frozen(id string, doc document) (store.Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return store.Document{}, err
	}
	return store.NewDocument(id, func(v interface{}) error {
		return json.Unmarshal(data, v)
	}), nil
}

func toDocument(record interface{}) (document, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("memstore: encode record: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("memstore: record is not an object: %w", err)
	}
	// The key is the identity; a body copy would go stale on Put at another id.
	delete(doc, "id")
	return doc, nil
}

func toValue(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// compareValues orders JSON values; timestamps (RFC 3339 strings) compare as times.
func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			at, aerr := time.Parse(time.RFC3339Nano, av)
			bt, berr := time.Parse(time.RFC3339Nano, bv)
			if aerr == nil && berr == nil {
				return at.Compare(bt)
			}
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	// Missing values sort first, like Firestore nulls
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return 0
}

type subscription struct {
	store     *Store
	query     store.Query
	snapshots chan store.Snapshot
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) Snapshots() <-chan store.Snapshot { return s.snapshots }
func (s *subscription) Errors() <-chan error             { return s.errs }

// Close stops delivery. Safe to call more than once.
func (s *subscription) Close() {
	s.closeOnce.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs, s)
		s.store.mu.Unlock()

		close(s.done)
		close(s.snapshots)
		close(s.errs)
	})
}

// push must be called with the store lock held, which also guards against Close.
func (s *subscription) push(snap store.Snapshot) {
	for {
		select {
		case s.snapshots <- snap:
			return
		default:
			// Buffer full, drop the oldest queued snapshot
			select {
			case <-s.snapshots:
			default:
			}
		}
	}
}

func (s *subscription) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
