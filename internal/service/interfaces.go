package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"order_syncer/internal/domain"
)

// Source is one channel connector: it produces the complete canonical
// order set the channel currently reports. The sequence is not
// restartable; a retry re-fetches from scratch.
type Source interface {
	ID() string
	Name() string
	FetchOrders(ctx context.Context) ([]domain.Order, error)
}

// CancellationSource is the carrier's extra feed of confirmed-cancelled
// order identifiers, used to build a deletion set.
type CancellationSource interface {
	FetchCancelled(ctx context.Context) ([]string, error)
}

// OrderStore is the persistence gateway: natural-key upserts and key-set
// deletes against the order tables.
type OrderStore interface {
	UpsertOrder(ctx context.Context, o *domain.Order) error
	UpsertItems(ctx context.Context, channel, orderID string, items []domain.OrderItem) error
	ItemKeys(ctx context.Context, channel string, orderIDs []string) (map[string][]string, error)
	DeleteItems(ctx context.Context, channel, orderID string, keys []string) error
	DeleteItemsForOrders(ctx context.Context, channel string, orderIDs []string) (int64, error)
	DeleteOrders(ctx context.Context, channel string, orderIDs []string) (int64, error)
}

// WatermarkStore records the last successful sync per channel.
type WatermarkStore interface {
	Update(ctx context.Context, w *domain.SyncWatermark) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RunLocker serializes runs of one channel. Acquire returns a release
// function, or domain.ErrSyncInProgress when the lease is held elsewhere.
type RunLocker interface {
	Acquire(ctx context.Context, channel string) (release func(), err error)
}

// Enricher requests the downstream geo-enrichment pass for a set of order
// identifiers just written.
type Enricher interface {
	RequestEnrichment(ctx context.Context, channel string, orderIDs []string) error
}
