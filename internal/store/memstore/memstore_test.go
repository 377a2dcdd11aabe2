package memstore

import (
	"context"
	"testing"
	"time"

	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextSnapshot(t *testing.T, sub store.Subscription) store.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "snapshot channel closed")
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
	return store.Snapshot{}
}

func TestSubscribePushesInitialAndChangedSnapshots(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Put(ctx, store.CollectionDrivers, "D1", models.Driver{Name: "Rajesh Kumar", Status: models.DriverStatusOnline}))

	sub, err := s.Subscribe(ctx, store.Query{Collection: store.CollectionDrivers})
	require.NoError(t, err)
	defer sub.Close()

	snap := nextSnapshot(t, sub)
	require.Len(t, snap.Docs, 1)
	assert.Equal(t, "D1", snap.Docs[0].ID)

	require.NoError(t, s.Put(ctx, store.CollectionDrivers, "D2", models.Driver{Name: "Amit Singh"}))
	snap = nextSnapshot(t, sub)
	assert.Len(t, snap.Docs, 2)

	require.NoError(t, s.Delete(ctx, store.CollectionDrivers, "D1"))
	snap = nextSnapshot(t, sub)
	require.Len(t, snap.Docs, 1)
	assert.Equal(t, "D2", snap.Docs[0].ID)
}

func TestSubscribeOrdersDescending(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, origin := range []string{"first", "second", "third"} {
		_, err := s.Create(ctx, store.CollectionJobs, models.Job{
			Origin:     origin,
			AssignedAt: base.Add(time.Duration(i) * 1500 * time.Millisecond),
		})
		require.NoError(t, err)
	}

	sub, err := s.Subscribe(ctx, store.Query{Collection: store.CollectionJobs, OrderBy: "assignedAt", Descending: true})
	require.NoError(t, err)
	defer sub.Close()

	snap := nextSnapshot(t, sub)
	var origins []string
	for _, doc := range snap.Docs {
		var job models.Job
		require.NoError(t, doc.DataTo(&job))
		origins = append(origins, job.Origin)
	}
	assert.Equal(t, []string{"third", "second", "first"}, origins)
}

func TestPatchMergesFields(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Put(ctx, store.CollectionDrivers, "D1", models.Driver{Name: "Rajesh Kumar", Phone: "+91 9876543210", Status: models.DriverStatusOffline}))
	require.NoError(t, s.Patch(ctx, store.CollectionDrivers, "D1", map[string]interface{}{
		"status": models.DriverStatusOnJob,
	}))

	doc, err := s.Get(ctx, store.CollectionDrivers, "D1")
	require.NoError(t, err)

	var d models.Driver
	require.NoError(t, doc.DataTo(&d))
	assert.Equal(t, models.DriverStatusOnJob, d.Status)
	assert.Equal(t, "+91 9876543210", d.Phone)
	assert.Equal(t, "Rajesh Kumar", d.Name)
}

func TestPatchMissingDocument(t *testing.T) {
	err := New().Patch(context.Background(), store.CollectionJobs, "nope", map[string]interface{}{"status": "PENDING"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetMissingDocument(t *testing.T) {
	_, err := New().Get(context.Background(), store.CollectionJobs, "nope")
	assert.True(t, store.IsNotFound(err))
}

func TestSnapshotIsFrozen(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, store.CollectionDrivers, "D1", models.Driver{Name: "before"}))

	doc, err := s.Get(ctx, store.CollectionDrivers, "D1")
	require.NoError(t, err)
	require.NoError(t, s.Patch(ctx, store.CollectionDrivers, "D1", map[string]interface{}{"name": "after"}))

	var d models.Driver
	require.NoError(t, doc.DataTo(&d))
	assert.Equal(t, "before", d.Name)
}

func TestDenyAccess(t *testing.T) {
	ctx := context.Background()
	s := New()

	sub, err := s.Subscribe(ctx, store.Query{Collection: store.CollectionReceipts})
	require.NoError(t, err)
	defer sub.Close()
	nextSnapshot(t, sub)

	s.DenyAccess(store.CollectionReceipts)

	select {
	case err := <-sub.Errors():
		assert.True(t, store.IsPermissionDenied(err))
	case <-time.After(time.Second):
		t.Fatal("no error delivered")
	}

	_, err = s.Create(ctx, store.CollectionReceipts, models.ReceiptEntry{DriverID: "D1"})
	assert.ErrorIs(t, err, store.ErrPermissionDenied)

	s.AllowAccess(store.CollectionReceipts)
	_, err = s.Create(ctx, store.CollectionReceipts, models.ReceiptEntry{DriverID: "D1"})
	assert.NoError(t, err)
}

func TestCloseStopsDelivery(t *testing.T) {
	ctx := context.Background()
	s := New()

	sub, err := s.Subscribe(ctx, store.Query{Collection: store.CollectionJobs})
	require.NoError(t, err)
	assert.Equal(t, 1, s.ActiveSubscriptions())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, s.ActiveSubscriptions())

	_, err = s.Create(ctx, store.CollectionJobs, models.Job{Origin: "Delhi Hub"})
	require.NoError(t, err)

	// Drain the initial snapshot; the channel must then report closed
	for range sub.Snapshots() {
	}
}

func TestContextCancelClosesSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New()

	_, err := s.Subscribe(ctx, store.Query{Collection: store.CollectionJobs})
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool { return s.ActiveSubscriptions() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSlowSubscriberKeepsLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()

	sub, err := s.Subscribe(ctx, store.Query{Collection: store.CollectionDrivers})
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < snapshotBuffer*3; i++ {
		require.NoError(t, s.Put(ctx, store.CollectionDrivers, string(rune('A'+i)), models.Driver{Name: "x"}))
	}

	var last store.Snapshot
	for i := 0; i < snapshotBuffer; i++ {
		last = nextSnapshot(t, sub)
	}
	assert.Len(t, last.Docs, snapshotBuffer*3)
}
