package carrier

import (
	"log/slog"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func strPtr(s string) *string { return &s }

func TestNormalizeOrder(t *testing.T) {
	rec := OrderRecord{
		ChannelOrderID: "ORD-42",
		Status:         "NEW",
		CreatedAt:      "31/01/2026 14:30",
		UpdatedAt:      "01/02/2026 09:00",
		CustomerName:   strPtr("A Customer"),
		CustomerPhone:  strPtr("9876543210"),
		Pincode:        strPtr("560001"),
		PaymentMethod:  strPtr("prepaid"),
		Total:          "₹1,234.50",
		Tax:            "₹34.50",
		Discount:       "",
		Products: []ProductRecord{
			{SKU: "SKU-A", Name: strPtr("Widget"), Quantity: 2, Price: "₹600.00"},
		},
	}

	o := normalizeOrder(rec)

	assert.Equal(t, "ORD-42", o.ExternalID)
	require.NotNil(t, o.OrderedAt)
	assert.Equal(t, "2026-01-31", o.OrderedAt.Format("2006-01-02"))
	assert.Equal(t, "2026-02-01", o.UpdatedAt.Format("2006-01-02"))
	assert.True(t, o.GrossAmount.Equal(decimal.RequireFromString("1234.5")))
	assert.True(t, o.TaxAmount.Equal(decimal.RequireFromString("34.5")))
	assert.True(t, o.DiscountAmount.IsZero(), "empty discount feeds arithmetic as zero")

	require.Len(t, o.Items, 1)
	assert.Equal(t, "SKU-A", o.Items[0].ItemKey)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, o.Items[0].NetPrice.Equal(decimal.RequireFromString("600")))
}

func TestNormalizeOrder_FirstShipmentStatusWins(t *testing.T) {
	rec := OrderRecord{
		ChannelOrderID: "ORD-43",
		Status:         "NEW",
		Shipments: []ShipmentRecord{
			{ID: 1, Status: "in_transit"},
			{ID: 2, Status: "rto"},
		},
	}

	o := normalizeOrder(rec)
	assert.Equal(t, "in_transit", o.Status)
}

func TestNormalizeOrder_UnparseableDateIsNil(t *testing.T) {
	rec := OrderRecord{ChannelOrderID: "ORD-44", CreatedAt: "not-a-date"}

	o := normalizeOrder(rec)
	assert.Nil(t, o.OrderedAt)
	assert.True(t, o.UpdatedAt.IsZero())
}

func TestNormalizeOrder_Idempotent(t *testing.T) {
	rec := OrderRecord{
		ChannelOrderID: "ORD-45",
		CreatedAt:      "15/03/2026",
		Total:          "₹99",
		Products:       []ProductRecord{{SKU: "X", Quantity: 1, Price: "50"}},
	}

	first := normalizeOrder(rec)
	second := normalizeOrder(rec)
	assert.Equal(t, first, second)
}
