package fixtures

import (
	"context"
	"fmt"
	"strings"

	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/store"

	log "github.com/sirupsen/logrus"
)

// SeedResult counts what Seed wrote
type SeedResult struct {
	Written int
	Skipped int
}

// Seed writes set into st under the fixture ids. Existing documents are
// left alone unless overwrite is set. Plaintext passwords are hashed.
func Seed(ctx context.Context, st store.Store, set Set, overwrite bool) (SeedResult, error) {
	var res SeedResult

	put := func(collection, id string, record interface{}) error {
		if !overwrite {
			_, err := st.Get(ctx, collection, id)
			if err == nil {
				res.Skipped++
				return nil
			}
			if !store.IsNotFound(err) {
				return fmt.Errorf("failed to check %s/%s: %w", collection, id, err)
			}
		}
		if err := st.Put(ctx, collection, id, record); err != nil {
			return fmt.Errorf("failed to seed %s/%s: %w", collection, id, err)
		}
		res.Written++
		return nil
	}

	for _, d := range set.Drivers {
		if d.Password != "" && !strings.HasPrefix(d.Password, "$2") {
			hashed, err := models.HashPassword(d.Password)
			if err != nil {
				return res, err
			}
			d.Password = hashed
		}
		if err := put(store.CollectionDrivers, d.ID, d); err != nil {
			return res, err
		}
	}
	for _, j := range set.Jobs {
		if err := put(store.CollectionJobs, j.ID, j); err != nil {
			return res, err
		}
	}
	for _, r := range set.Receipts {
		if err := put(store.CollectionReceipts, r.ID, r); err != nil {
			return res, err
		}
	}

	log.Printf("🌱 Seeded %d documents (%d already present)", res.Written, res.Skipped)
	return res, nil
}
