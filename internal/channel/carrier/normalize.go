package carrier

import (
	"order_syncer/internal/domain"
	"order_syncer/internal/parse"
)

// normalizeOrder maps one carrier record to the canonical schema. Pure:
// the same record always yields the same output.
func normalizeOrder(rec OrderRecord) domain.Order {
	o := domain.Order{
		Channel:        domain.ChannelCarrier,
		ExternalID:     rec.ChannelOrderID,
		OrderedAt:      parse.Date(rec.CreatedAt),
		Status:         rec.Status,
		CustomerName:   rec.CustomerName,
		Phone:          rec.CustomerPhone,
		Email:          rec.CustomerEmail,
		AddressLine:    rec.Address,
		City:           rec.City,
		State:          rec.State,
		Pincode:        rec.Pincode,
		PaymentMethod:  rec.PaymentMethod,
		GrossAmount:    parse.Amount(rec.Total),
		TaxAmount:      parse.Amount(rec.Tax),
		DiscountAmount: parse.Amount(rec.Discount),
	}

	if updated := parse.Date(rec.UpdatedAt); updated != nil {
		o.UpdatedAt = *updated
	}

	// The carrier may report several shipments per order; the first one
	// carries the authoritative status.
	if len(rec.Shipments) > 0 && rec.Shipments[0].Status != "" {
		o.Status = rec.Shipments[0].Status
	}

	o.Items = make([]domain.OrderItem, 0, len(rec.Products))
	for _, p := range rec.Products {
		o.Items = append(o.Items, domain.OrderItem{
			ItemKey:  p.SKU,
			Name:     p.Name,
			Quantity: p.Quantity,
			NetPrice: parse.Amount(p.Price),
		})
	}

	return o
}
