package marketb

import (
	"strings"

	"github.com/shopspring/decimal"

	"order_syncer/internal/domain"
	"order_syncer/internal/parse"
)

// normalizeOrder maps one marketplace-B record to the canonical schema.
// Discount entries are collapsed: codes joined into one display string,
// amounts summed.
func normalizeOrder(rec OrderRecord) domain.Order {
	o := domain.Order{
		Channel:       domain.ChannelMarketB,
		ExternalID:    rec.OrderID,
		OrderedAt:     parse.Date(rec.OrderDate),
		Status:        rec.State,
		PaymentMethod: rec.PaymentMethod,
		GrossAmount:   parse.Amount(rec.Amount),
		TaxAmount:     parse.Amount(rec.TaxAmount),
		UTMSource:     rec.UTMSource,
		UTMCampaign:   rec.UTMCampaign,
	}

	if updated := parse.Date(rec.UpdatedAt); updated != nil {
		o.UpdatedAt = *updated
	}

	if c := rec.Customer; c != nil {
		o.CustomerName = c.Name
		o.Phone = c.Phone
		o.Email = c.Email
		o.AddressLine = c.Address
		o.City = c.City
		o.State = c.State
		o.Pincode = c.Pincode
	}

	if len(rec.Discounts) > 0 {
		codes := make([]string, 0, len(rec.Discounts))
		total := decimal.Zero
		for _, d := range rec.Discounts {
			if d.Code != "" {
				codes = append(codes, d.Code)
			}
			total = total.Add(parse.Amount(d.Amount))
		}
		if len(codes) > 0 {
			joined := strings.Join(codes, ",")
			o.DiscountCodes = &joined
		}
		o.DiscountAmount = total
	}

	o.Items = make([]domain.OrderItem, 0, len(rec.Lines))
	for _, l := range rec.Lines {
		o.Items = append(o.Items, domain.OrderItem{
			ItemKey:  l.SKU,
			Name:     l.Title,
			Quantity: l.Quantity,
			NetPrice: parse.Amount(l.NetPrice),
		})
	}

	return o
}
