package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel identifiers. Every canonical row carries one of these.
const (
	ChannelCarrier = "carrier"
	ChannelMarketA = "marketa"
	ChannelMarketB = "marketb"
	ChannelSheet   = "sheet"
)

// Order is the canonical order row all channels are normalized into.
// (Channel, ExternalID) is the natural key; writes are full overwrites.
type Order struct {
	Channel        string
	ExternalID     string
	OrderedAt      *time.Time
	Status         string
	CustomerName   *string
	Phone          *string
	Email          *string
	AddressLine    *string
	City           *string
	State          *string
	Pincode        *string
	Latitude       *float64
	Longitude      *float64
	PaymentMethod  *string
	GrossAmount    decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountCodes  *string
	UTMSource      *string
	UTMCampaign    *string
	// UpdatedAt is the channel-reported modification time, used to pick a
	// winner when the same order appears more than once in a batch.
	UpdatedAt time.Time
	SyncedAt  time.Time
	Items     []OrderItem
}

// OrderItem is one line of an order. ItemKey is the SKU or the channel's
// own item identifier, whichever the channel keys lines by; it is unique
// within an order.
type OrderItem struct {
	ItemKey  string
	Name     *string
	Quantity int
	NetPrice decimal.Decimal
}

// Credential is the stored bearer token for one external service.
// A nil ExpiresAt means the token must be refreshed before use.
type Credential struct {
	Service   string     `db:"service"`
	Token     string     `db:"token"`
	ExpiresAt *time.Time `db:"expires_at"`
}

// SyncWatermark records the last successful sync per channel. It is a
// freshness indicator only and never gates what a connector fetches.
type SyncWatermark struct {
	Channel      string    `db:"channel"`
	LastSyncedAt time.Time `db:"last_synced_at"`
}
