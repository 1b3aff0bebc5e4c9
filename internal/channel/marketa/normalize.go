package marketa

import (
	"github.com/shopspring/decimal"

	"order_syncer/internal/domain"
	"order_syncer/internal/parse"
)

// defaultTaxDivisor converts gross item prices to net where the
// marketplace does not separate tax. A flat approximation; the real rate
// varies by category.
var defaultTaxDivisor = decimal.RequireFromString("1.18")

// normalizeOrder maps one marketplace-A record to the canonical schema.
func normalizeOrder(rec OrderRecord, taxDivisor decimal.Decimal) domain.Order {
	o := domain.Order{
		Channel:       domain.ChannelMarketA,
		ExternalID:    rec.OrderID,
		OrderedAt:     parse.Date(rec.PurchaseDate),
		Status:        rec.OrderStatus,
		CustomerName:  rec.BuyerName,
		Email:         rec.BuyerEmail,
		Phone:         rec.BuyerPhone,
		PaymentMethod: rec.PaymentMethod,
	}

	if updated := parse.Date(rec.LastUpdateDate); updated != nil {
		o.UpdatedAt = *updated
	}

	if addr := rec.ShippingAddress; addr != nil {
		o.AddressLine = addr.Line1
		o.City = addr.City
		o.State = addr.StateOrReg
		o.Pincode = addr.PostalCode
	}

	if rec.OrderTotal != nil {
		o.GrossAmount = parse.Amount(rec.OrderTotal.Amount)
	}

	o.Items = make([]domain.OrderItem, 0, len(rec.Items))
	for _, it := range rec.Items {
		var net decimal.Decimal
		if it.ItemPrice != nil {
			// TODO: confirm with the marketplace whether itemPrice is per
			// unit or per line; per line assumed here.
			net = parse.Amount(it.ItemPrice.Amount).Div(taxDivisor).Round(2)
		}
		o.Items = append(o.Items, domain.OrderItem{
			ItemKey:  it.OrderItemID,
			Name:     it.Title,
			Quantity: it.Quantity,
			NetPrice: net,
		})
	}

	return o
}
