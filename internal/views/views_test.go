package views

import (
	"encoding/json"
	"testing"
	"time"

	"qgo-dispatch/internal/fixtures"
	"qgo-dispatch/internal/mirror"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/session"
	"qgo-dispatch/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureState(t *testing.T) *mirror.State {
	t.Helper()
	fx, err := fixtures.Default(time.Now())
	require.NoError(t, err)
	s := mirror.Initial()
	s = mirror.Reduce(s, mirror.DriversReplaced{Drivers: fx.Drivers})
	s = mirror.Reduce(s, mirror.JobsReplaced{Jobs: fx.Jobs})
	s = mirror.Reduce(s, mirror.ReceiptsReplaced{Receipts: []models.ReceiptEntry{
		{ID: "R1", DriverID: "D1", Amount: 100, Status: models.ReceiptStatusApproved},
		{ID: "R2", DriverID: "D2", Amount: 40, Status: models.ReceiptStatusPending},
	}})
	return mirror.Reduce(s, mirror.Loaded{Source: mirror.SourceFixtures})
}

func TestAdminSeesEverything(t *testing.T) {
	s := fixtureState(t)
	v := Build(session.Admin{}, s)

	dash, ok := v.(AdminDashboard)
	require.True(t, ok)
	assert.Len(t, dash.Drivers, 3)
	assert.Len(t, dash.Jobs, 2)
	assert.Len(t, dash.Receipts, 2)
	assert.Equal(t, Stats{DriversOnline: 1, DriversOnJob: 1, ActiveJobs: 1, PendingReceipts: 1, ApprovedExpenses: 100}, dash.Stats)
	assert.Equal(t, mirror.SourceFixtures, dash.Sync.Source)
	assert.False(t, dash.Sync.Loading)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
}

func TestDriverSeesOwnRecords(t *testing.T) {
	s := fixtureState(t)
	v := Build(session.Driver{ID: "D2"}, s)

	portal, ok := v.(DriverPortal)
	require.True(t, ok)
	require.NotNil(t, portal.Driver)
	assert.Equal(t, "D2", portal.Driver.ID)
	require.Len(t, portal.Jobs, 1)
	assert.Equal(t, "J102", portal.Jobs[0].ID)
	require.Len(t, portal.Receipts, 1)
	assert.Equal(t, "R2", portal.Receipts[0].ID)
}

func TestUnknownDriverGetsEmptyPortal(t *testing.T) {
	v := Build(session.Driver{ID: "D99"}, fixtureState(t))

	portal := v.(DriverPortal)
	assert.Nil(t, portal.Driver)
	assert.Empty(t, portal.Jobs)

	data, err := json.Marshal(portal)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"jobs":[]`)
	assert.Contains(t, string(data), `"driver":null`)
}

func TestSyncCarriesPermissionFailure(t *testing.T) {
	s := mirror.Reduce(mirror.Initial(), mirror.SyncFailed{Collection: store.CollectionJobs, Err: store.ErrPermissionDenied})
	sync := Build(session.Admin{}, s).(AdminDashboard).Sync
	assert.Equal(t, mirror.PermissionDeniedMessage, sync.Error)
	assert.True(t, sync.ShowRulesHelper)
}
