package dispatch

import (
	"context"
	"errors"
	"testing"

	"qgo-dispatch/internal/events"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	jobs []models.Job
	err  error
}

func (n *fakeNotifier) NotifyJobAssigned(_ context.Context, job models.Job) error {
	n.jobs = append(n.jobs, job)
	return n.err
}

func ptr[T any](v T) *T { return &v }

func TestAddJob(t *testing.T) {
	n := &fakeNotifier{err: errors.New("no token")}
	e := newEnv(t, WithNotifier(n))

	job, err := e.svc.AddJob(context.Background(), NewJob{
		DriverID:    "D2",
		Origin:      "Mumbai Port",
		Destination: "Pune Warehouse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.True(t, job.AssignedAt.Equal(clock))

	mirrored := e.waitJob(t, job.ID, status(models.JobStatusPending))
	assert.Equal(t, "Pune Warehouse", mirrored.Destination)
	assert.Nil(t, mirrored.StartTime)

	// notification failure does not fail the job
	require.Len(t, n.jobs, 1)
	assert.Equal(t, job.ID, n.jobs[0].ID)

	evs := e.pub.all()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeJobCreated, evs[0].Type)
	assert.Equal(t, "D2", evs[0].DriverID)
}

func TestAddJobValidation(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.AddJob(context.Background(), NewJob{DriverID: "D1"})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "Origin:required")
	assert.Contains(t, ve.Fields, "Destination:required")
	assert.Empty(t, e.ctrl.State().Jobs)
}

func TestAddDriver(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d, err := e.svc.AddDriver(ctx, NewDriver{ID: "D4", Name: "Suresh Patel", VehicleNo: "GJ-01-AB-1234", Phone: "+919800000004", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, models.DriverStatusOffline, d.Status)
	assert.NotEqual(t, "s3cret", d.Password)

	mirrored := e.waitDriver(t, "D4", driverStatus(models.DriverStatusOffline))
	assert.True(t, mirrored.CheckPassword("s3cret"))

	_, err = e.svc.AddDriver(ctx, NewDriver{ID: "D4", Name: "Other", VehicleNo: "X", Phone: "1"})
	assert.ErrorIs(t, err, ErrDriverExists)
}

func TestUpdateAndDeleteDriver(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.putDriver(t, "D1", models.Driver{Name: "Rajesh Kumar", VehicleNo: "DL-1", Status: models.DriverStatusOffline})

	require.NoError(t, e.svc.UpdateDriver(ctx, "D1", DriverUpdate{Status: ptr("ONLINE"), Phone: ptr("+91 99")}))
	d := e.waitDriver(t, "D1", driverStatus(models.DriverStatusOnline))
	assert.Equal(t, "Rajesh Kumar", d.Name)
	assert.Equal(t, "+91 99", d.Phone)

	err := e.svc.UpdateDriver(ctx, "D1", DriverUpdate{Status: ptr("ASLEEP")})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	assert.ErrorIs(t, e.svc.UpdateDriver(ctx, "D9", DriverUpdate{Name: ptr("x")}), ErrDriverNotFound)

	require.NoError(t, e.svc.DeleteDriver(ctx, "D1"))
	require.Eventually(t, func() bool {
		_, ok := e.ctrl.State().Driver("D1")
		return !ok
	}, waitFor, tick)
}

func TestReceipts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r, err := e.svc.LogReceipt(ctx, NewReceipt{DriverID: "D1", JobID: "J101", Type: "FUEL", Amount: 2450.5, Description: "Diesel"})
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptStatusPending, r.Status)
	assert.True(t, r.Date.Equal(clock))

	require.Eventually(t, func() bool {
		_, ok := e.ctrl.State().Receipt(r.ID)
		return ok
	}, waitFor, tick)

	require.NoError(t, e.svc.ReviewReceipt(ctx, r.ID, models.ReceiptStatusApproved))
	require.Eventually(t, func() bool {
		got, _ := e.ctrl.State().Receipt(r.ID)
		return got.Status == models.ReceiptStatusApproved
	}, waitFor, tick)

	var ve *ValidationError
	assert.ErrorAs(t, e.svc.ReviewReceipt(ctx, r.ID, models.ReceiptStatusPending), &ve)
	assert.ErrorIs(t, e.svc.ReviewReceipt(ctx, "missing", models.ReceiptStatusRejected), ErrReceiptNotFound)

	_, err = e.svc.LogReceipt(ctx, NewReceipt{DriverID: "D1", Type: "SNACKS", Amount: -1})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "Type:oneof")
	assert.Contains(t, ve.Fields, "Amount:gt")
}

func TestUpdateDriverLocation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.putDriver(t, "D2", models.Driver{Status: models.DriverStatusOnline})

	require.NoError(t, e.svc.UpdateDriverLocation(ctx, "D2", models.Location{Lat: 19.07, Lng: 72.87}))
	d := e.waitDriver(t, "D2", func(d models.Driver) bool { return d.LastKnownLocation != nil })
	require.NotNil(t, d.LastKnownLocation.Timestamp)
	assert.Equal(t, clock.UnixMilli(), *d.LastKnownLocation.Timestamp)

	var ve *ValidationError
	assert.ErrorAs(t, e.svc.UpdateDriverLocation(ctx, "D2", models.Location{Lat: 95}), &ve)
	assert.ErrorIs(t, e.svc.UpdateDriverLocation(ctx, "D9", models.Location{Lat: 1, Lng: 1}), ErrDriverNotFound)
}

func TestAuthenticateDriver(t *testing.T) {
	e := newEnv(t)
	hashed, err := models.HashPassword("1234")
	require.NoError(t, err)
	e.putDriver(t, "D1", models.Driver{Password: hashed})
	e.putDriver(t, "D2", models.Driver{Password: "legacy"})

	_, err = e.svc.AuthenticateDriver("D1", "1234")
	assert.NoError(t, err)
	_, err = e.svc.AuthenticateDriver("D2", "legacy")
	assert.NoError(t, err)
	_, err = e.svc.AuthenticateDriver("D1", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.svc.AuthenticateDriver("D7", "1234")
	assert.ErrorIs(t, err, ErrDriverNotFound)
}

func TestMutationsWithoutStore(t *testing.T) {
	svc := NewService(nil, nil)
	ctx := context.Background()

	_, err := svc.AddJob(ctx, NewJob{DriverID: "D1", Origin: "a", Destination: "b"})
	assert.ErrorIs(t, err, store.ErrUnconfigured)
	_, err = svc.AddDriver(ctx, NewDriver{ID: "D1"})
	assert.ErrorIs(t, err, store.ErrUnconfigured)
	assert.ErrorIs(t, svc.DeleteDriver(ctx, "D1"), store.ErrUnconfigured)
	assert.ErrorIs(t, svc.UpdateDriverLocation(ctx, "D1", models.Location{Lat: 1, Lng: 1}), store.ErrUnconfigured)
}
