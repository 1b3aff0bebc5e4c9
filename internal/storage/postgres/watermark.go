package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"order_syncer/internal/domain"
)

type WatermarkStore struct {
	db *sqlx.DB
}

func NewWatermarkStore(db *sqlx.DB) *WatermarkStore {
	return &WatermarkStore{db: db}
}

// Get returns the channel's watermark. A channel never synced before gets
// a zero LastSyncedAt.
func (s *WatermarkStore) Get(ctx context.Context, channel string) (*domain.SyncWatermark, error) {
	var w domain.SyncWatermark
	query := `SELECT channel, last_synced_at FROM sync_watermarks WHERE channel = $1`

	err := s.db.GetContext(ctx, &w, query, channel)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.SyncWatermark{Channel: channel}, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Update upserts the channel's watermark. Stamped at the end of every
// successful run, empty-result runs included.
func (s *WatermarkStore) Update(ctx context.Context, w *domain.SyncWatermark) error {
	query := `
		INSERT INTO sync_watermarks (channel, last_synced_at)
		VALUES ($1, $2)
		ON CONFLICT (channel) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at`

	_, err := s.db.ExecContext(ctx, query, w.Channel, w.LastSyncedAt)
	return err
}
