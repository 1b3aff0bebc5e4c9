package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"order_syncer/internal/domain"
)

type OrderStore struct {
	db *sqlx.DB
}

func NewOrderStore(db *sqlx.DB) *OrderStore {
	return &OrderStore{db: db}
}

// UpsertOrder writes one canonical order with replace-on-conflict keyed by
// (channel, external_id). Every channel-supplied field is overwritten;
// latitude/longitude belong to the downstream enrichment pass and are left
// alone.
func (s *OrderStore) UpsertOrder(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (
			channel, external_id, ordered_at, status,
			customer_name, phone, email,
			address_line, city, state, pincode,
			payment_method, gross_amount, tax_amount, discount_amount,
			discount_codes, utm_source, utm_campaign,
			updated_at, synced_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		ON CONFLICT (channel, external_id) DO UPDATE SET
			ordered_at = EXCLUDED.ordered_at,
			status = EXCLUDED.status,
			customer_name = EXCLUDED.customer_name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			address_line = EXCLUDED.address_line,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			pincode = EXCLUDED.pincode,
			payment_method = EXCLUDED.payment_method,
			gross_amount = EXCLUDED.gross_amount,
			tax_amount = EXCLUDED.tax_amount,
			discount_amount = EXCLUDED.discount_amount,
			discount_codes = EXCLUDED.discount_codes,
			utm_source = EXCLUDED.utm_source,
			utm_campaign = EXCLUDED.utm_campaign,
			updated_at = EXCLUDED.updated_at,
			synced_at = EXCLUDED.synced_at`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		o.Channel,
		o.ExternalID,
		o.OrderedAt,
		o.Status,
		o.CustomerName,
		o.Phone,
		o.Email,
		o.AddressLine,
		o.City,
		o.State,
		o.Pincode,
		o.PaymentMethod,
		o.GrossAmount,
		o.TaxAmount,
		o.DiscountAmount,
		o.DiscountCodes,
		o.UTMSource,
		o.UTMCampaign,
		o.UpdatedAt,
		o.SyncedAt,
	)
	return err
}

// UpsertItems writes an order's item rows with replace-on-conflict keyed
// by (channel, order_external_id, item_key).
func (s *OrderStore) UpsertItems(ctx context.Context, channel, orderID string, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO order_items (channel, order_external_id, item_key, name, quantity, net_price) VALUES ")
	args := make([]interface{}, 0, len(items)*4+2)
	args = append(args, channel, orderID)

	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i*4 + 3
		sb.WriteString("($1, $2, $")
		sb.WriteString(strconv.Itoa(base))
		sb.WriteString(", $")
		sb.WriteString(strconv.Itoa(base + 1))
		sb.WriteString(", $")
		sb.WriteString(strconv.Itoa(base + 2))
		sb.WriteString(", $")
		sb.WriteString(strconv.Itoa(base + 3))
		sb.WriteString(")")
		args = append(args, item.ItemKey, item.Name, item.Quantity, item.NetPrice)
	}
	sb.WriteString(` ON CONFLICT (channel, order_external_id, item_key) DO UPDATE SET
		name = EXCLUDED.name,
		quantity = EXCLUDED.quantity,
		net_price = EXCLUDED.net_price`)

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	return err
}

// ItemKeys returns the stored item keys per order for the given orders.
func (s *OrderStore) ItemKeys(ctx context.Context, channel string, orderIDs []string) (map[string][]string, error) {
	result := make(map[string][]string)
	if len(orderIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT order_external_id, item_key
		FROM order_items
		WHERE channel = $1 AND order_external_id = ANY($2)`

	rows, err := GetExecutor(ctx, s.db).QueryContext(ctx, query, channel, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID, key string
		if err := rows.Scan(&orderID, &key); err != nil {
			return nil, err
		}
		result[orderID] = append(result[orderID], key)
	}
	return result, rows.Err()
}

// DeleteItems removes the given item keys for one order.
func (s *OrderStore) DeleteItems(ctx context.Context, channel, orderID string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM order_items WHERE channel = $1 AND order_external_id = $2 AND item_key = ANY($3)",
		channel, orderID, pq.Array(keys),
	)
	return err
}

// DeleteItemsForOrders removes every item row of the given orders and
// reports how many went.
func (s *OrderStore) DeleteItemsForOrders(ctx context.Context, channel string, orderIDs []string) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM order_items WHERE channel = $1 AND order_external_id = ANY($2)",
		channel, pq.Array(orderIDs),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteOrders removes the given orders and reports how many went.
func (s *OrderStore) DeleteOrders(ctx context.Context, channel string, orderIDs []string) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM orders WHERE channel = $1 AND external_id = ANY($2)",
		channel, pq.Array(orderIDs),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MissingGeo selects orders that still lack enrichment coordinates, most
// recently synced first. Default input for the enrichment trigger.
func (s *OrderStore) MissingGeo(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT external_id
		FROM orders
		WHERE latitude IS NULL AND pincode IS NOT NULL
		ORDER BY synced_at DESC
		LIMIT $1`

	var ids []string
	err := s.db.SelectContext(ctx, &ids, query, limit)
	return ids, err
}
