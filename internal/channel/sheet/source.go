package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"order_syncer/internal/domain"
	"order_syncer/internal/parse"
)

// Source reads a manually exported order sheet (CSV). One row per line
// item; invoice-level fields repeat on every row of the invoice. Rows
// failing required-field validation are dropped, not fatal, and their line
// items drop with them.
type Source struct {
	path   string
	logger *slog.Logger
}

type Config struct {
	Path string
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		path:   cfg.Path,
		logger: logger.With("channel", domain.ChannelSheet),
	}
}

func (s *Source) ID() string   { return domain.ChannelSheet }
func (s *Source) Name() string { return "Manual Export Sheet" }

func (s *Source) FetchOrders(ctx context.Context) ([]domain.Order, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	defer f.Close()

	return s.Parse(f)
}

// Parse reads the export and groups rows into canonical orders. Duplicate
// SKU lines within one invoice are aggregated: quantities and net prices
// summed.
func (s *Source) Parse(r io.Reader) ([]domain.Order, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read sheet header: %w", err)
	}
	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := header["invoice_no"]; !ok {
		return nil, fmt.Errorf("sheet has no invoice_no column")
	}

	orders := make(map[string]*domain.Order)
	var sequence []string
	skipped := 0

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sheet row %d: %w", line, err)
		}

		get := func(col string) string {
			idx, ok := header[col]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		invoice := get("invoice_no")
		date := parse.Date(get("invoice_date"))
		if invoice == "" || date == nil {
			skipped++
			continue
		}

		o, exists := orders[invoice]
		if !exists {
			o = &domain.Order{
				Channel:        domain.ChannelSheet,
				ExternalID:     invoice,
				OrderedAt:      date,
				UpdatedAt:      *date,
				Status:         "completed",
				CustomerName:   optional(get("customer_name")),
				Phone:          optional(get("phone")),
				Email:          optional(get("email")),
				AddressLine:    optional(get("address")),
				City:           optional(get("city")),
				State:          optional(get("state")),
				Pincode:        optional(get("pincode")),
				PaymentMethod:  optional(get("payment_method")),
				UTMSource:      optional(get("utm_source")),
				UTMCampaign:    optional(get("utm_campaign")),
				DiscountCodes:  optional(get("discount_code")),
				GrossAmount:    parse.Amount(get("total")),
				TaxAmount:      parse.Amount(get("tax")),
				DiscountAmount: parse.Amount(get("discount_amount")),
			}
			orders[invoice] = o
			sequence = append(sequence, invoice)
		}

		sku := get("sku")
		if sku == "" {
			continue
		}

		qty, _ := strconv.Atoi(get("quantity"))
		net := parse.Amount(get("net_price"))

		merged := false
		for i := range o.Items {
			if o.Items[i].ItemKey == sku {
				o.Items[i].Quantity += qty
				o.Items[i].NetPrice = o.Items[i].NetPrice.Add(net)
				merged = true
				break
			}
		}
		if !merged {
			o.Items = append(o.Items, domain.OrderItem{
				ItemKey:  sku,
				Name:     optional(get("item_name")),
				Quantity: qty,
				NetPrice: net,
			})
		}
	}

	if skipped > 0 {
		s.logger.Warn("discarded invalid sheet rows", "count", skipped)
	}

	out := make([]domain.Order, 0, len(sequence))
	for _, invoice := range sequence {
		out = append(out, *orders[invoice])
	}
	return out, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
