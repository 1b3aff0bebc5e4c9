package marketa

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"order_syncer/internal/channel"
	"order_syncer/internal/domain"
)

const (
	// ServiceID names the credential row for marketplace A.
	ServiceID = "marketa"

	windowDays = 25
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	TaxDivisor float64
}

// Connector pulls orders updated inside the query window from
// marketplace A, following its opaque nextToken pagination.
type Connector struct {
	client     *channel.Client
	tokens     channel.TokenSource
	baseURL    string
	taxDivisor decimal.Decimal
	logger     *slog.Logger
}

func New(cfg Config, tokens channel.TokenSource, logger *slog.Logger) *Connector {
	divisor := defaultTaxDivisor
	if cfg.TaxDivisor > 0 {
		divisor = decimal.NewFromFloat(cfg.TaxDivisor)
	}
	return &Connector{
		client:     channel.NewClient(cfg.Timeout),
		tokens:     tokens,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		taxDivisor: divisor,
		logger:     logger.With("channel", domain.ChannelMarketA),
	}
}

func (c *Connector) ID() string   { return domain.ChannelMarketA }
func (c *Connector) Name() string { return "Marketplace A" }

func (c *Connector) FetchOrders(ctx context.Context) ([]domain.Order, error) {
	token, err := c.tokens.Token(ctx, ServiceID)
	if err != nil {
		return nil, err
	}

	pages := &orderPages{
		conn:             c,
		token:            token,
		lastUpdatedAfter: time.Now().UTC().AddDate(0, 0, -windowDays),
	}

	// The marketplace enforces its own request quota; no inter-page delay.
	orders, err := channel.Collect(ctx, pages, nil)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched marketplace orders", "count", len(orders))
	return orders, nil
}

type orderPages struct {
	conn             *Connector
	token            string
	lastUpdatedAfter time.Time
}

func (p *orderPages) FetchPage(ctx context.Context, cursor string) ([]domain.Order, string, error) {
	q := url.Values{}
	q.Set("lastUpdatedAfter", p.lastUpdatedAfter.Format(time.RFC3339))
	q.Set("include", "products,fulfillment")
	if cursor != "" {
		q.Set("nextToken", cursor)
	}
	reqURL := p.conn.baseURL + "/orders?" + q.Encode()

	var resp ordersResponse
	if err := p.conn.client.GetJSON(ctx, reqURL, p.token, &resp); err != nil {
		return nil, "", err
	}

	orders := make([]domain.Order, 0, len(resp.Payload.Orders))
	for _, rec := range resp.Payload.Orders {
		orders = append(orders, normalizeOrder(rec, p.conn.taxDivisor))
	}
	return orders, resp.Payload.NextToken, nil
}
