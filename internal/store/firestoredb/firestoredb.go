// Package firestoredb implements store.Store on Cloud Firestore.
package firestoredb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"qgo-dispatch/internal/store"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store wraps a Firestore client
type Store struct {
	client *firestore.Client
}

// New opens the Firestore database of an initialized Firebase app
func New(ctx context.Context, app *firebase.App) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func NewFromClient(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	query := s.client.Collection(q.Collection).Query
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}

	subCtx, cancel := context.WithCancel(ctx)
	return listen(subCtx, cancel, query.Snapshots(subCtx), q.Collection), nil
}

func listen(ctx context.Context, cancel context.CancelFunc, it snapshotIterator, collection string) *subscription {
	sub := &subscription{
		it:        it,
		cancel:    cancel,
		snapshots: make(chan store.Snapshot, 1),
		errs:      make(chan error, 1),
		stopped:   make(chan struct{}),
	}
	go sub.run(ctx, collection)
	return sub
}

func (s *Store) Create(ctx context.Context, collection string, record interface{}) (string, error) {
	ref := s.client.Collection(collection).NewDoc()
	if _, err := ref.Create(ctx, record); err != nil {
		return "", translate(fmt.Sprintf("create %s", collection), err)
	}
	return ref.ID, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, record interface{}) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, record); err != nil {
		return translate(fmt.Sprintf("set %s/%s", collection, id), err)
	}
	return nil
}

func (s *Store) Patch(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	// Update fails with NotFound when the document is missing
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return translate(fmt.Sprintf("update %s/%s", collection, id), err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return store.Document{}, translate(fmt.Sprintf("get %s/%s", collection, id), err)
	}
	return toDocument(snap), nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return translate(fmt.Sprintf("delete %s/%s", collection, id), err)
	}
	return nil
}

func toDocument(snap *firestore.DocumentSnapshot) store.Document {
	return store.NewDocument(snap.Ref.ID, func(v interface{}) error {
		return decodeData(snap.DataTo, snap.Data, v)
	})
}

// decodeData decodes a document natively and falls back to JSON when that
// fails. Older clients store timestamps as ISO-8601 strings, which Firestore
// will not load into a time.Time.
func decodeData(dataTo func(interface{}) error, data func() map[string]interface{}, v interface{}) error {
	err := dataTo(v)
	if err == nil {
		return nil
	}
	raw, jerr := json.Marshal(data())
	if jerr != nil {
		return err
	}
	if jerr := json.Unmarshal(raw, v); jerr != nil {
		return fmt.Errorf("%w (json fallback: %v)", err, jerr)
	}
	return nil
}

// translate maps gRPC status codes onto the store error taxonomy
func translate(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("firestore %s: %w: %v", op, store.ErrNotFound, err)
	case codes.PermissionDenied:
		return fmt.Errorf("firestore %s: %w: %v", op, store.ErrPermissionDenied, err)
	}
	return fmt.Errorf("firestore %s: %w", op, err)
}

// snapshotIterator is the part of *firestore.QuerySnapshotIterator a
// subscription uses
type snapshotIterator interface {
	Next() (*firestore.QuerySnapshot, error)
	Stop()
}

type subscription struct {
	it        snapshotIterator
	cancel    context.CancelFunc
	snapshots chan store.Snapshot
	errs      chan error
	stopped   chan struct{}
	closeOnce sync.Once
}

func (s *subscription) Snapshots() <-chan store.Snapshot { return s.snapshots }
func (s *subscription) Errors() <-chan error             { return s.errs }

func (s *subscription) Close() {
	s.closeOnce.Do(func() {
		// Stop must not race Next; run stops the iterator on its way out
		s.cancel()
		<-s.stopped
	})
}

func (s *subscription) run(ctx context.Context, collection string) {
	defer func() {
		s.it.Stop()
		close(s.snapshots)
		close(s.errs)
		close(s.stopped)
	}()

	for {
		qs, err := s.it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
				return
			}
			// The iterator is unusable after an error. Report it and wait for Close.
			log.WithField("collection", collection).Printf("❌ Firestore listener error: %v", err)
			select {
			case s.errs <- translate(fmt.Sprintf("listen %s", collection), err):
			case <-ctx.Done():
			}
			<-ctx.Done()
			return
		}

		docs, err := qs.Documents.GetAll()
		if err != nil {
			log.WithField("collection", collection).Printf("❌ Failed to read snapshot documents: %v", err)
			continue
		}

		snap := store.Snapshot{Collection: collection, ReadAt: qs.ReadTime}
		if snap.ReadAt.IsZero() {
			snap.ReadAt = time.Now()
		}
		for _, d := range docs {
			snap.Docs = append(snap.Docs, toDocument(d))
		}

		// Keep only the newest undelivered snapshot
		select {
		case <-s.snapshots:
		default:
		}
		select {
		case s.snapshots <- snap:
		case <-ctx.Done():
			return
		}
	}
}
