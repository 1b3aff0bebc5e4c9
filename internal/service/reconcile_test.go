package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order_syncer/internal/domain"
)

func TestDedupeOrders_LatestUpdatedAtWins(t *testing.T) {
	older := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	batch := []domain.Order{
		{ExternalID: "ORD-1", Status: "new", UpdatedAt: older},
		{ExternalID: "ORD-2", Status: "shipped", UpdatedAt: older},
		{ExternalID: "ORD-1", Status: "shipped", UpdatedAt: newer},
	}

	out := dedupeOrders(batch)
	require.Len(t, out, 2)
	assert.Equal(t, "ORD-1", out[0].ExternalID)
	assert.Equal(t, "shipped", out[0].Status, "page-2 record with newer updatedAt wins")
	assert.Equal(t, "ORD-2", out[1].ExternalID)
}

func TestDedupeOrders_OlderDuplicateIsIgnored(t *testing.T) {
	older := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	batch := []domain.Order{
		{ExternalID: "ORD-1", Status: "shipped", UpdatedAt: newer},
		{ExternalID: "ORD-1", Status: "new", UpdatedAt: older},
	}

	out := dedupeOrders(batch)
	require.Len(t, out, 1)
	assert.Equal(t, "shipped", out[0].Status)
}

func TestDedupeOrders_EqualOrAbsentTimestampLaterWins(t *testing.T) {
	ts := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("equal timestamps", func(t *testing.T) {
		out := dedupeOrders([]domain.Order{
			{ExternalID: "ORD-1", Status: "first", UpdatedAt: ts},
			{ExternalID: "ORD-1", Status: "second", UpdatedAt: ts},
		})
		require.Len(t, out, 1)
		assert.Equal(t, "second", out[0].Status)
	})

	t.Run("absent timestamps", func(t *testing.T) {
		out := dedupeOrders([]domain.Order{
			{ExternalID: "ORD-1", Status: "first"},
			{ExternalID: "ORD-1", Status: "second"},
		})
		require.Len(t, out, 1)
		assert.Equal(t, "second", out[0].Status)
	})
}

func TestStaleItemKeys_PerOrderDifference(t *testing.T) {
	stored := map[string][]string{
		"ORD-1": {"SKU-A", "SKU-B", "SKU-C"},
		"ORD-2": {"SKU-X"},
	}

	batch := []domain.Order{
		{ExternalID: "ORD-1", Items: []domain.OrderItem{
			{ItemKey: "SKU-A"},
			{ItemKey: "SKU-D"},
		}},
	}

	stale := staleItemKeys(stored, batch)

	assert.ElementsMatch(t, []string{"SKU-B", "SKU-C"}, stale["ORD-1"])
	_, touched := stale["ORD-2"]
	assert.False(t, touched, "orders outside the batch must never lose items")
}

func TestStaleItemKeys_NewOrderHasNoStaleKeys(t *testing.T) {
	batch := []domain.Order{
		{ExternalID: "ORD-9", Items: []domain.OrderItem{{ItemKey: "SKU-A"}}},
	}

	stale := staleItemKeys(map[string][]string{}, batch)
	assert.Empty(t, stale)
}

func TestStaleItemKeys_EmptyItemListDeletesEverything(t *testing.T) {
	stored := map[string][]string{"ORD-1": {"SKU-A", "SKU-B"}}
	batch := []domain.Order{{ExternalID: "ORD-1"}}

	stale := staleItemKeys(stored, batch)
	assert.ElementsMatch(t, []string{"SKU-A", "SKU-B"}, stale["ORD-1"])
}
