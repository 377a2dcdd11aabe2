package fixtures

import (
	"context"
	"testing"
	"time"

	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/store"
	"qgo-dispatch/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	set, err := Default(time.Now())
	require.NoError(t, err)

	res, err := Seed(ctx, st, set, false)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Written: 5}, res)

	doc, err := st.Get(ctx, store.CollectionDrivers, "D1")
	require.NoError(t, err)
	var d models.Driver
	require.NoError(t, doc.DataTo(&d))
	assert.NotEqual(t, "1234", d.Password)
	assert.True(t, d.CheckPassword("1234"))

	require.NoError(t, st.Patch(ctx, store.CollectionJobs, "J102", map[string]interface{}{models.JobFieldStatus: models.JobStatusCancelled}))

	res, err = Seed(ctx, st, set, false)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Skipped: 5}, res)

	doc, err = st.Get(ctx, store.CollectionJobs, "J102")
	require.NoError(t, err)
	var j models.Job
	require.NoError(t, doc.DataTo(&j))
	assert.Equal(t, models.JobStatusCancelled, j.Status)

	res, err = Seed(ctx, st, set, true)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Written)
}
