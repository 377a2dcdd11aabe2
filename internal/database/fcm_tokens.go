package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// FCMToken is one registered push target
type FCMToken struct {
	ID         int    `db:"id" json:"id"`
	DriverID   string `db:"driver_id" json:"driver_id"`
	Token      string `db:"token" json:"token"`
	DeviceType string `db:"device_type" json:"device_type"`
	CreatedAt  int64  `db:"created_at" json:"created_at"`
	UpdatedAt  int64  `db:"updated_at" json:"updated_at"`
}

type FCMTokens struct {
	db *sqlx.DB
}

func NewFCMTokens(db *sqlx.DB) *FCMTokens {
	return &FCMTokens{db: db}
}

// Register stores token for driverID. A token moves to the latest driver that registers it.
func (f *FCMTokens) Register(ctx context.Context, driverID, token, deviceType string) error {
	now := time.Now().Unix()
	query := `INSERT INTO fcm_tokens (driver_id, token, device_type, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT(token) DO UPDATE SET
				  driver_id = excluded.driver_id,
				  device_type = excluded.device_type,
				  updated_at = excluded.updated_at`

	if _, err := f.db.ExecContext(ctx, query, driverID, token, deviceType, now, now); err != nil {
		return fmt.Errorf("failed to register FCM token: %w", err)
	}
	return nil
}

// ForDriver returns the driver's tokens, most recently updated first
func (f *FCMTokens) ForDriver(ctx context.Context, driverID string) ([]string, error) {
	var tokens []string
	err := f.db.SelectContext(ctx, &tokens,
		`SELECT token FROM fcm_tokens WHERE driver_id = $1 ORDER BY updated_at DESC`, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load FCM tokens for %s: %w", driverID, err)
	}
	return tokens, nil
}

// Remove drops tokens FCM reported as unregistered
func (f *FCMTokens) Remove(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM fcm_tokens WHERE token IN (?)`, tokens)
	if err != nil {
		return err
	}
	if _, err := f.db.ExecContext(ctx, f.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to remove FCM tokens: %w", err)
	}
	return nil
}
