package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"qgo-dispatch/internal/session"

	"github.com/jmoiron/sqlx"
)

// LocalStorage is device-scoped key/value storage in the local_storage table
type LocalStorage struct {
	db *sqlx.DB
}

func NewLocalStorage(db *sqlx.DB) *LocalStorage {
	return &LocalStorage{db: db}
}

// Device returns the storage of one device
func (l *LocalStorage) Device(deviceID string) session.KV {
	return &deviceKV{db: l.db, deviceID: deviceID}
}

type deviceKV struct {
	db       *sqlx.DB
	deviceID string
}

func (d *deviceKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := d.db.GetContext(ctx, &value,
		`SELECT value FROM local_storage WHERE device_id = $1 AND key = $2`, d.deviceID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s for device %s: %w", key, d.deviceID, err)
	}
	return value, true, nil
}

func (d *deviceKV) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO local_storage (device_id, key, value, updated_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT(device_id, key) DO UPDATE SET
				  value = excluded.value,
				  updated_at = excluded.updated_at`

	if _, err := d.db.ExecContext(ctx, query, d.deviceID, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write %s for device %s: %w", key, d.deviceID, err)
	}
	return nil
}

func (d *deviceKV) Delete(ctx context.Context, key string) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM local_storage WHERE device_id = $1 AND key = $2`, d.deviceID, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s for device %s: %w", key, d.deviceID, err)
	}
	return nil
}
