// Package store defines the document store the dispatcher mirrors and mutates.
//
// Implementations live in sub-packages: firestoredb talks to a hosted Firestore
// project, memstore keeps everything in process.
package store

import (
	"context"
	"errors"
	"time"
)

// Collection names
const (
	CollectionDrivers  = "drivers"
	CollectionJobs     = "jobs"
	CollectionReceipts = "receipts"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnconfigured     = errors.New("remote store not configured")
)

// Query selects a whole collection, optionally ordered by one field
type Query struct {
	Collection string
	OrderBy    string
	Descending bool
}

// Document is one document of a snapshot or a Get
type Document struct {
	ID     string
	decode func(v interface{}) error
}

// NewDocument wraps an implementation specific decoder
func NewDocument(id string, decode func(v interface{}) error) Document {
	return Document{ID: id, decode: decode}
}

// DataTo decodes the document body into v
func (d Document) DataTo(v interface{}) error {
	if d.decode == nil {
		return errors.New("document has no data")
	}
	return d.decode(v)
}

// Snapshot is the full contents of a collection at ReadAt
type Snapshot struct {
	Collection string
	Docs       []Document
	ReadAt     time.Time
}

// Subscription is a live stream of full collection snapshots.
// Errors arrive on their own channel and do not close Snapshots.
// Both channels are closed once Close has been called.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Errors() <-chan error
	Close()
}

// Store is the capability set used by the mirror and the dispatch workflow.
// No guarantee spans more than one call.
type Store interface {
	Subscribe(ctx context.Context, q Query) (Subscription, error)
	Create(ctx context.Context, collection string, record interface{}) (string, error)
	Put(ctx context.Context, collection, id string, record interface{}) error
	// Patch merges fields into an existing document. Returns ErrNotFound when missing.
	Patch(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Get(ctx context.Context, collection, id string) (Document, error)
	Delete(ctx context.Context, collection, id string) error
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
