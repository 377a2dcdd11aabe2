// Package mirror keeps in-memory copies of the remote drivers, jobs and
// receipts collections in step with the store's live snapshots.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"qgo-dispatch/internal/fixtures"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/store"

	log "github.com/sirupsen/logrus"
)

// Listener is called on the reducer goroutine after every state change.
// Listeners must not block.
type Listener func(*State)

var ErrAlreadyStarted = errors.New("mirror: controller already started")

// Controller owns the three collection subscriptions. All state transitions
// happen on one reducer goroutine; readers get immutable State values.
type Controller struct {
	store    store.Store
	fixtures fixtures.Set

	state     atomic.Pointer[State]
	listeners []Listener
	mu        sync.Mutex

	events  chan Event
	subs    []store.Subscription
	cancel  context.CancelFunc
	pumps   sync.WaitGroup
	reducer chan struct{}
	started bool
	closed  bool
}

// NewController mirrors st. A nil st means no remote store is configured and
// the fixture set is served instead.
func NewController(st store.Store, fx fixtures.Set) *Controller {
	c := &Controller{
		store:    st,
		fixtures: fx,
		events:   make(chan Event, 16),
	}
	c.state.Store(Initial())
	return c
}

// OnChange registers a listener. Register before Start.
func (c *Controller) OnChange(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// State returns the latest published state
func (c *Controller) State() *State {
	return c.state.Load()
}

// Configured reports whether a remote store backs the mirror
func (c *Controller) Configured() bool {
	return c.store != nil
}

// Subscriptions returns how many live subscriptions the controller opened
func (c *Controller) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Start loads fixtures or opens the live subscriptions
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	if c.store == nil {
		log.Println("⚠️  Remote store not configured, serving fixture data")
		c.apply(DriversReplaced{Drivers: c.fixtures.Drivers})
		c.apply(JobsReplaced{Jobs: c.fixtures.Jobs})
		c.apply(ReceiptsReplaced{Receipts: c.fixtures.Receipts})
		c.apply(Loaded{Source: SourceFixtures})
		return nil
	}

	subCtx, cancel := context.WithCancel(ctx)

	queries := []store.Query{
		{Collection: store.CollectionDrivers},
		{Collection: store.CollectionJobs, OrderBy: models.JobFieldAssignedAt, Descending: true},
		{Collection: store.CollectionReceipts, OrderBy: models.ReceiptFieldDate, Descending: true},
	}

	subs := make([]store.Subscription, 0, len(queries))
	for _, q := range queries {
		sub, err := c.store.Subscribe(subCtx, q)
		if err != nil {
			for _, opened := range subs {
				opened.Close()
			}
			cancel()
			return fmt.Errorf("failed to subscribe to %s: %w", q.Collection, err)
		}
		subs = append(subs, sub)
	}

	c.mu.Lock()
	c.subs = subs
	c.cancel = cancel
	c.reducer = make(chan struct{})
	c.mu.Unlock()
	go c.reduceLoop()

	for i, sub := range subs {
		c.pumps.Add(1)
		go c.pump(subCtx, queries[i].Collection, sub)
	}

	// Loading ends once listeners are open, not on first data
	c.emit(subCtx, Loaded{Source: SourceRemote})
	log.Printf("✅ Mirroring %d collections", len(subs))
	return nil
}

// Close stops every subscription and waits for delivery to finish
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs, reducer, cancel := c.subs, c.reducer, c.cancel
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	if cancel != nil {
		cancel()
	}
	c.pumps.Wait()

	if reducer != nil {
		close(c.events)
		<-reducer
	}
}

func (c *Controller) pump(ctx context.Context, collection string, sub store.Subscription) {
	defer c.pumps.Done()

	snapshots := sub.Snapshots()
	errs := sub.Errors()
	for snapshots != nil || errs != nil {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			c.emit(ctx, decode(collection, snap))

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if store.IsPermissionDenied(err) {
				log.WithField("collection", collection).Printf("🔒 Sync permission denied: %v", err)
			} else {
				log.WithField("collection", collection).Printf("❌ Sync error: %v", err)
			}
			c.emit(ctx, SyncFailed{Collection: collection, Err: err})

		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

func (c *Controller) reduceLoop() {
	defer close(c.reducer)
	for ev := range c.events {
		c.apply(ev)
	}
}

func (c *Controller) apply(ev Event) {
	prev := c.state.Load()
	next := Reduce(prev, ev)
	if next == prev {
		return
	}
	c.state.Store(next)

	c.mu.Lock()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
}

func decode(collection string, snap store.Snapshot) Event {
	switch collection {
	case store.CollectionDrivers:
		drivers := make([]models.Driver, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			var d models.Driver
			if err := doc.DataTo(&d); err != nil {
				log.Printf("⚠️  Skipping undecodable driver %s: %v", doc.ID, err)
				continue
			}
			d.ID = doc.ID
			drivers = append(drivers, d)
		}
		return DriversReplaced{Drivers: drivers}

	case store.CollectionJobs:
		jobs := make([]models.Job, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			var j models.Job
			if err := doc.DataTo(&j); err != nil {
				log.Printf("⚠️  Skipping undecodable job %s: %v", doc.ID, err)
				continue
			}
			j.ID = doc.ID
			jobs = append(jobs, j)
		}
		// Timestamps stored as strings sort apart from native ones in the store
		sort.SliceStable(jobs, func(a, b int) bool { return jobs[a].AssignedAt.After(jobs[b].AssignedAt) })
		return JobsReplaced{Jobs: jobs}

	case store.CollectionReceipts:
		receipts := make([]models.ReceiptEntry, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			var r models.ReceiptEntry
			if err := doc.DataTo(&r); err != nil {
				log.Printf("⚠️  Skipping undecodable receipt %s: %v", doc.ID, err)
				continue
			}
			r.ID = doc.ID
			receipts = append(receipts, r)
		}
		sort.SliceStable(receipts, func(a, b int) bool { return receipts[a].Date.After(receipts[b].Date) })
		return ReceiptsReplaced{Receipts: receipts}
	}

	return SyncFailed{Collection: collection, Err: fmt.Errorf("unknown collection %q", collection)}
}
