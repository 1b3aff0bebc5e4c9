package marketa

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order_syncer/internal/domain"
)

type staticTokens struct{ token string }

func (s staticTokens) Token(context.Context, string) (string, error) { return s.token, nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func strPtr(s string) *string { return &s }

func TestNormalizeOrder_NetOfTaxItems(t *testing.T) {
	rec := OrderRecord{
		OrderID:        "A-100",
		PurchaseDate:   "2026-02-10T08:00:00Z",
		LastUpdateDate: "2026-02-11T09:30:00Z",
		OrderStatus:    "Shipped",
		OrderTotal:     &Money{Amount: "1180.00", CurrencyCode: "INR"},
		ShippingAddress: &Address{
			City:       strPtr("Bengaluru"),
			PostalCode: strPtr("560038"),
		},
		Items: []ItemRecord{
			{OrderItemID: "item-1", SKU: strPtr("SKU-1"), Quantity: 2, ItemPrice: &Money{Amount: "1180.00"}},
		},
	}

	o := normalizeOrder(rec, defaultTaxDivisor)

	assert.Equal(t, domain.ChannelMarketA, o.Channel)
	assert.Equal(t, "A-100", o.ExternalID)
	assert.Equal(t, "2026-02-11", o.UpdatedAt.Format("2006-01-02"))
	assert.True(t, o.GrossAmount.Equal(decimal.RequireFromString("1180")))

	require.Len(t, o.Items, 1)
	assert.Equal(t, "item-1", o.Items[0].ItemKey, "items keyed by the channel item identifier")
	assert.True(t, o.Items[0].NetPrice.Equal(decimal.RequireFromString("1000")),
		"gross 1180 over divisor 1.18 = net 1000, got %s", o.Items[0].NetPrice)
}

func TestNormalizeOrder_MissingOptionalFields(t *testing.T) {
	o := normalizeOrder(OrderRecord{OrderID: "A-101"}, defaultTaxDivisor)

	assert.Nil(t, o.OrderedAt)
	assert.Nil(t, o.CustomerName)
	assert.Nil(t, o.Pincode)
	assert.True(t, o.GrossAmount.IsZero())
	assert.Empty(t, o.Items)
}

func TestFetchOrders_FollowsNextToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.URL.Query().Get("lastUpdatedAfter"))
		require.Equal(t, "products,fulfillment", r.URL.Query().Get("include"))

		switch r.URL.Query().Get("nextToken") {
		case "":
			fmt.Fprint(w, `{"payload": {"orders": [{"orderId": "A-1"}], "nextToken": "tok-2"}}`)
		case "tok-2":
			fmt.Fprint(w, `{"payload": {"orders": [{"orderId": "A-2"}], "nextToken": ""}}`)
		default:
			t.Fatalf("unexpected nextToken %q", r.URL.Query().Get("nextToken"))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, staticTokens{token: "tok"}, testLogger())

	orders, err := conn.FetchOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "A-1", orders[0].ExternalID)
	assert.Equal(t, "A-2", orders[1].ExternalID)
}

func TestFetchOrders_RepeatedTokenFailsFast(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"payload": {"orders": [], "nextToken": "same"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, staticTokens{token: "tok"}, testLogger())

	_, err := conn.FetchOrders(context.Background())
	assert.ErrorIs(t, err, domain.ErrPaginationLoop)
}
