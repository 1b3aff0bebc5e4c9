package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"order_syncer/internal/domain"
	"order_syncer/internal/service/mocks"
)

type cancellableSource struct {
	*mocks.MockSource
	*mocks.MockCancellationSource
}

type SyncServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source     *mocks.MockSource
	cancelFeed *mocks.MockCancellationSource
	orders     *mocks.MockOrderStore
	watermarks *mocks.MockWatermarkStore
	txManager  *mocks.MockTransactionManager
	enricher   *mocks.MockEnricher

	service *SyncService
	logger  *slog.Logger
}

func (s *SyncServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.cancelFeed = mocks.NewMockCancellationSource(s.ctrl)
	s.orders = mocks.NewMockOrderStore(s.ctrl)
	s.watermarks = mocks.NewMockWatermarkStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.enricher = mocks.NewMockEnricher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.source.EXPECT().ID().Return("carrier").AnyTimes()
	s.source.EXPECT().Name().Return("Carrier Fulfillment").AnyTimes()

	s.service = NewSyncService(
		cancellableSource{s.source, s.cancelFeed},
		s.orders,
		s.watermarks,
		s.txManager,
		nil,
		s.enricher,
		s.logger,
	)
}

func (s *SyncServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}

func (s *SyncServiceTestSuite) passThroughTx(times int) {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).Times(times)
}

func (s *SyncServiceTestSuite) TestSync_NormalRun() {
	ctx := context.Background()

	batch := make([]domain.Order, 80)
	ids := make([]string, 80)
	for i := range batch {
		id := fmt.Sprintf("ORD-%d", i)
		batch[i] = domain.Order{
			Channel:    "carrier",
			ExternalID: id,
			Items:      []domain.OrderItem{{ItemKey: "SKU-1", Quantity: 1}},
		}
		ids[i] = id
	}

	s.source.EXPECT().FetchOrders(ctx).Return(batch, nil)
	s.orders.EXPECT().ItemKeys(ctx, "carrier", ids).Return(map[string][]string{}, nil)
	s.passThroughTx(80)
	s.orders.EXPECT().UpsertOrder(gomock.Any(), gomock.Any()).Return(nil).Times(80)
	s.orders.EXPECT().UpsertItems(gomock.Any(), "carrier", gomock.Any(), gomock.Any()).Return(nil).Times(80)
	s.watermarks.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, w *domain.SyncWatermark) error {
			s.Equal("carrier", w.Channel)
			s.WithinDuration(time.Now(), w.LastSyncedAt, time.Minute)
			return nil
		},
	)
	s.enricher.EXPECT().RequestEnrichment(ctx, "carrier", ids).Return(nil)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(80, stats.Fetched)
	s.Equal(80, stats.Orders)
	s.Equal(80, stats.Items)
	s.Equal(0, stats.DeletedItems)
}

func (s *SyncServiceTestSuite) TestSync_DuplicateAcrossPagesNewerWins() {
	ctx := context.Background()
	older := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	batch := []domain.Order{
		{Channel: "carrier", ExternalID: "ORD-1", Status: "new", UpdatedAt: older},
		{Channel: "carrier", ExternalID: "ORD-1", Status: "shipped", UpdatedAt: newer},
	}

	s.source.EXPECT().FetchOrders(ctx).Return(batch, nil)
	s.orders.EXPECT().ItemKeys(ctx, "carrier", []string{"ORD-1"}).Return(map[string][]string{}, nil)
	s.passThroughTx(1)
	s.orders.EXPECT().UpsertOrder(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, o *domain.Order) error {
			s.Equal("shipped", o.Status)
			return nil
		},
	)
	s.orders.EXPECT().UpsertItems(gomock.Any(), "carrier", "ORD-1", gomock.Any()).Return(nil)
	s.watermarks.EXPECT().Update(ctx, gomock.Any()).Return(nil)
	s.enricher.EXPECT().RequestEnrichment(ctx, "carrier", gomock.Any()).Return(nil)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(2, stats.Fetched)
	s.Equal(1, stats.Orders, "exactly one stored row for the duplicated key")
}

func (s *SyncServiceTestSuite) TestSync_StaleItemsDeletedPerOrder() {
	ctx := context.Background()

	batch := []domain.Order{
		{Channel: "carrier", ExternalID: "ORD-1", Items: []domain.OrderItem{{ItemKey: "SKU-A"}}},
	}

	s.source.EXPECT().FetchOrders(ctx).Return(batch, nil)
	s.orders.EXPECT().ItemKeys(ctx, "carrier", []string{"ORD-1"}).Return(
		map[string][]string{"ORD-1": {"SKU-A", "SKU-GONE"}}, nil,
	)
	s.passThroughTx(1)
	s.orders.EXPECT().UpsertOrder(gomock.Any(), gomock.Any()).Return(nil)
	s.orders.EXPECT().UpsertItems(gomock.Any(), "carrier", "ORD-1", gomock.Any()).Return(nil)
	s.orders.EXPECT().DeleteItems(gomock.Any(), "carrier", "ORD-1", []string{"SKU-GONE"}).Return(nil)
	s.watermarks.EXPECT().Update(ctx, gomock.Any()).Return(nil)
	s.enricher.EXPECT().RequestEnrichment(ctx, "carrier", gomock.Any()).Return(nil)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.DeletedItems)
}

func (s *SyncServiceTestSuite) TestSync_EmptyResultStillStampsWatermark() {
	ctx := context.Background()

	s.source.EXPECT().FetchOrders(ctx).Return(nil, nil)
	s.orders.EXPECT().ItemKeys(ctx, "carrier", []string{}).Return(map[string][]string{}, nil)
	s.watermarks.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(0, stats.Fetched)
	s.Equal(0, stats.Orders)
}

func (s *SyncServiceTestSuite) TestSync_FetchErrorAbortsRun() {
	ctx := context.Background()

	s.source.EXPECT().FetchOrders(ctx).Return(nil, domain.NewUpstreamError(502, []byte("bad gateway")))

	stats, err := s.service.Sync(ctx)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "fetch orders")

	var ue *domain.UpstreamError
	s.ErrorAs(err, &ue)
}

func (s *SyncServiceTestSuite) TestSync_PersistenceErrorAbortsWithPartialStats() {
	ctx := context.Background()

	batch := []domain.Order{
		{Channel: "carrier", ExternalID: "ORD-1"},
		{Channel: "carrier", ExternalID: "ORD-2"},
	}

	s.source.EXPECT().FetchOrders(ctx).Return(batch, nil)
	s.orders.EXPECT().ItemKeys(ctx, "carrier", gomock.Any()).Return(map[string][]string{}, nil)

	// first order commits, second fails
	s.passThroughTx(2)
	first := s.orders.EXPECT().UpsertOrder(gomock.Any(), gomock.Any()).Return(nil)
	s.orders.EXPECT().UpsertItems(gomock.Any(), "carrier", "ORD-1", gomock.Any()).Return(nil)
	s.orders.EXPECT().UpsertOrder(gomock.Any(), gomock.Any()).Return(errors.New("constraint violation")).After(first)

	stats, err := s.service.Sync(ctx)

	s.Error(err)
	s.Contains(err.Error(), "persist order ORD-2")
	s.Equal(1, stats.Orders, "committed sub-batches stay committed")
}

func (s *SyncServiceTestSuite) TestSync_RunLeaseHeldElsewhere() {
	ctx := context.Background()

	locker := mocks.NewMockRunLocker(s.ctrl)
	locker.EXPECT().Acquire(ctx, "carrier").Return(nil, domain.ErrSyncInProgress)

	service := NewSyncService(s.source, s.orders, s.watermarks, s.txManager, locker, nil, s.logger)

	_, err := service.Sync(ctx)
	s.ErrorIs(err, domain.ErrSyncInProgress)
}

func (s *SyncServiceTestSuite) TestSync_EnrichmentFailureDoesNotFailRun() {
	ctx := context.Background()

	batch := []domain.Order{{Channel: "carrier", ExternalID: "ORD-1"}}

	s.source.EXPECT().FetchOrders(ctx).Return(batch, nil)
	s.orders.EXPECT().ItemKeys(ctx, "carrier", gomock.Any()).Return(map[string][]string{}, nil)
	s.passThroughTx(1)
	s.orders.EXPECT().UpsertOrder(gomock.Any(), gomock.Any()).Return(nil)
	s.orders.EXPECT().UpsertItems(gomock.Any(), "carrier", "ORD-1", gomock.Any()).Return(nil)
	s.watermarks.EXPECT().Update(ctx, gomock.Any()).Return(nil)
	s.enricher.EXPECT().RequestEnrichment(ctx, "carrier", gomock.Any()).Return(errors.New("queue down"))

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Orders)
}

func (s *SyncServiceTestSuite) TestPurgeCancelled_DeletesItemsThenOrders() {
	ctx := context.Background()

	s.cancelFeed.EXPECT().FetchCancelled(ctx).Return([]string{"ORD-7", "ORD-8", "ORD-9"}, nil)
	s.passThroughTx(1)
	s.orders.EXPECT().DeleteItemsForOrders(gomock.Any(), "carrier", []string{"ORD-7", "ORD-8", "ORD-9"}).Return(int64(5), nil)
	s.orders.EXPECT().DeleteOrders(gomock.Any(), "carrier", []string{"ORD-7", "ORD-8", "ORD-9"}).Return(int64(3), nil)

	stats, err := s.service.PurgeCancelled(ctx)

	s.NoError(err)
	s.Equal(3, stats.DeletedOrders)
	s.Equal(5, stats.DeletedItems)
}

func (s *SyncServiceTestSuite) TestPurgeCancelled_EmptyFeedDeletesNothing() {
	ctx := context.Background()

	s.cancelFeed.EXPECT().FetchCancelled(ctx).Return(nil, nil)

	stats, err := s.service.PurgeCancelled(ctx)

	s.NoError(err)
	s.Equal(0, stats.DeletedOrders)
	s.Equal(0, stats.DeletedItems)
}

func (s *SyncServiceTestSuite) TestPurgeCancelled_SourceWithoutFeed() {
	plain := NewSyncService(s.source, s.orders, s.watermarks, s.txManager, nil, nil, s.logger)

	_, err := plain.PurgeCancelled(context.Background())
	s.Error(err)
	s.Contains(err.Error(), "no cancellation feed")
}
