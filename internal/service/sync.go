package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"order_syncer/internal/domain"
	"order_syncer/internal/metrics"
)

// SyncService runs one channel's ingestion: fetch, reconcile, persist,
// stamp the watermark. One instance per channel. Stages run sequentially
// and fail fast; nothing is retried inside a run, the next scheduled or
// manual trigger is the retry.
type SyncService struct {
	source     Source
	orders     OrderStore
	watermarks WatermarkStore
	txManager  TransactionManager
	locker     RunLocker // optional
	enricher   Enricher  // optional
	logger     *slog.Logger
}

func NewSyncService(
	source Source,
	orders OrderStore,
	watermarks WatermarkStore,
	txManager TransactionManager,
	locker RunLocker,
	enricher Enricher,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		source:     source,
		orders:     orders,
		watermarks: watermarks,
		txManager:  txManager,
		locker:     locker,
		enricher:   enricher,
		logger:     logger.With("channel", source.ID()),
	}
}

func (s *SyncService) Channel() string { return s.source.ID() }

// Sync executes one run. On failure the stats reflect what was durably
// written before the abort; sub-batches already committed stay committed.
func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	start := time.Now()
	channel := s.source.ID()
	stats := &domain.SyncStats{Channel: channel}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, channel)
		if err != nil {
			return nil, s.fail(stats, fmt.Errorf("channel %s: acquire run lease: %w", channel, err))
		}
		defer release()
	}

	s.logger.Info("starting sync", "channel_name", s.source.Name())

	fetched, err := s.source.FetchOrders(ctx)
	if err != nil {
		return nil, s.fail(stats, fmt.Errorf("channel %s: fetch orders: %w", channel, err))
	}
	stats.Fetched = len(fetched)

	batch := dedupeOrders(fetched)
	if len(batch) < len(fetched) {
		s.logger.Debug("collapsed duplicate orders", "dropped", len(fetched)-len(batch))
	}

	orderIDs := make([]string, len(batch))
	for i, o := range batch {
		orderIDs[i] = o.ExternalID
	}

	stored, err := s.orders.ItemKeys(ctx, channel, orderIDs)
	if err != nil {
		return stats, s.fail(stats, fmt.Errorf("channel %s: load stored item keys: %w", channel, err))
	}
	stale := staleItemKeys(stored, batch)

	syncedAt := time.Now().UTC()
	for i := range batch {
		o := &batch[i]
		o.SyncedAt = syncedAt

		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := s.orders.UpsertOrder(txCtx, o); err != nil {
				return fmt.Errorf("upsert order: %w", err)
			}
			if err := s.orders.UpsertItems(txCtx, channel, o.ExternalID, o.Items); err != nil {
				return fmt.Errorf("upsert items: %w", err)
			}
			if keys := stale[o.ExternalID]; len(keys) > 0 {
				if err := s.orders.DeleteItems(txCtx, channel, o.ExternalID, keys); err != nil {
					return fmt.Errorf("delete stale items: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return stats, s.fail(stats, fmt.Errorf("channel %s: persist order %s: %w", channel, o.ExternalID, err))
		}

		stats.Orders++
		stats.Items += len(o.Items)
		stats.DeletedItems += len(stale[o.ExternalID])
	}

	watermark := &domain.SyncWatermark{Channel: channel, LastSyncedAt: time.Now().UTC()}
	if err := s.watermarks.Update(ctx, watermark); err != nil {
		return stats, s.fail(stats, fmt.Errorf("channel %s: stamp watermark: %w", channel, err))
	}

	// Enrichment runs downstream and asynchronously; its failure does not
	// fail a completed sync.
	if s.enricher != nil && len(orderIDs) > 0 {
		if err := s.enricher.RequestEnrichment(ctx, channel, orderIDs); err != nil {
			s.logger.Warn("enrichment request failed", "error", err)
		}
	}

	stats.Duration = time.Since(start)
	metrics.SyncRuns.WithLabelValues(channel, "success").Inc()
	metrics.OrdersWritten.WithLabelValues(channel).Add(float64(stats.Orders))
	metrics.ItemsWritten.WithLabelValues(channel).Add(float64(stats.Items))
	metrics.SyncDuration.WithLabelValues(channel).Observe(stats.Duration.Seconds())

	s.logger.Info("sync completed",
		"fetched", stats.Fetched,
		"orders", stats.Orders,
		"items", stats.Items,
		"deleted_items", stats.DeletedItems,
		"duration", stats.Duration,
	)
	return stats, nil
}

// PurgeCancelled runs the carrier's cancellation cleanup: fetch the
// confirmed-cancelled identifier set, delete those orders' items, then the
// orders. Destructive and gated only by feed membership.
func (s *SyncService) PurgeCancelled(ctx context.Context) (*domain.SyncStats, error) {
	start := time.Now()
	channel := s.source.ID()
	stats := &domain.SyncStats{Channel: channel}

	feed, ok := s.source.(CancellationSource)
	if !ok {
		return nil, fmt.Errorf("channel %s has no cancellation feed", channel)
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, channel+":cancellations")
		if err != nil {
			return nil, s.fail(stats, fmt.Errorf("channel %s: acquire run lease: %w", channel, err))
		}
		defer release()
	}

	ids, err := feed.FetchCancelled(ctx)
	if err != nil {
		return nil, s.fail(stats, fmt.Errorf("channel %s: fetch cancellation feed: %w", channel, err))
	}
	stats.Fetched = len(ids)
	if len(ids) == 0 {
		stats.Duration = time.Since(start)
		metrics.SyncRuns.WithLabelValues(channel, "success").Inc()
		return stats, nil
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		items, err := s.orders.DeleteItemsForOrders(txCtx, channel, ids)
		if err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		orders, err := s.orders.DeleteOrders(txCtx, channel, ids)
		if err != nil {
			return fmt.Errorf("delete orders: %w", err)
		}
		stats.DeletedItems = int(items)
		stats.DeletedOrders = int(orders)
		return nil
	})
	if err != nil {
		return stats, s.fail(stats, fmt.Errorf("channel %s: purge cancelled orders: %w", channel, err))
	}

	stats.Duration = time.Since(start)
	metrics.SyncRuns.WithLabelValues(channel, "success").Inc()
	metrics.OrdersDeleted.WithLabelValues(channel).Add(float64(stats.DeletedOrders))

	s.logger.Info("cancellation purge completed",
		"cancelled", stats.Fetched,
		"deleted_orders", stats.DeletedOrders,
		"deleted_items", stats.DeletedItems,
	)
	return stats, nil
}

func (s *SyncService) fail(stats *domain.SyncStats, err error) error {
	metrics.SyncRuns.WithLabelValues(stats.Channel, "error").Inc()

	var ue *domain.UpstreamError
	if errors.As(err, &ue) && ue.IsAuth() {
		s.logger.Error("run failed: channel rejected credential", "error", err)
	} else {
		s.logger.Error("run failed", "error", err)
	}
	return err
}
