package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleanhub/internal/models"
)

var ErrDeviceTokenNotFound = errors.New("device token not found")

type DeviceTokenRepository struct {
	db DBTX
}

func NewDeviceTokenRepository(db DBTX) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

// Upsert registers a token for a user, refreshing last_seen_at when it is
// already known.
func (r *DeviceTokenRepository) Upsert(ctx context.Context, token models.DeviceToken) error {
	const query = `
		INSERT INTO user_device_tokens (user_id, token, platform, created_at, last_seen_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id, token)
		DO UPDATE SET
			platform = EXCLUDED.platform,
			last_seen_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, token.UserID, token.Token, token.Platform); err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

func (r *DeviceTokenRepository) Delete(ctx context.Context, userID string, token string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM user_device_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	if err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrDeviceTokenNotFound
	}
	return nil
}

// DeleteStale removes tokens not seen since the cutoff and reports how many went.
func (r *DeviceTokenRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM user_device_tokens WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale device tokens: %w", err)
	}
	return cmd.RowsAffected(), nil
}
