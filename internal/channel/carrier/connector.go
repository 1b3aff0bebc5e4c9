package carrier

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"order_syncer/internal/channel"
	"order_syncer/internal/domain"
)

const (
	// ServiceID names the credential row for the carrier API.
	ServiceID = "carrier"

	// pageDelay paces page fetches; the carrier documents no rate limit.
	pageDelay = 300 * time.Millisecond

	windowDays = 30
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Connector pulls orders and the cancellation feed from the carrier API.
type Connector struct {
	client  *channel.Client
	tokens  channel.TokenSource
	baseURL string
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(cfg Config, tokens channel.TokenSource, logger *slog.Logger) *Connector {
	return &Connector{
		client:  channel.NewClient(cfg.Timeout),
		tokens:  tokens,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(rate.Every(pageDelay), 1),
		logger:  logger.With("channel", domain.ChannelCarrier),
	}
}

func (c *Connector) ID() string   { return domain.ChannelCarrier }
func (c *Connector) Name() string { return "Carrier Fulfillment" }

// FetchOrders returns every order the carrier reports for the query
// window, walking pagination to exhaustion.
func (c *Connector) FetchOrders(ctx context.Context) ([]domain.Order, error) {
	token, err := c.tokens.Token(ctx, ServiceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pages := &orderPages{
		conn:  c,
		token: token,
		from:  now.AddDate(0, 0, -windowDays),
		to:    now,
	}

	orders, err := channel.Collect(ctx, pages, c.limiter)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched carrier orders", "count", len(orders))
	return orders, nil
}

// FetchCancelled queries the cancellation feed (type=cancelled) and
// returns the set of cancelled channel order identifiers. Same pagination
// contract as the order feed; the records only carry identifiers.
func (c *Connector) FetchCancelled(ctx context.Context) ([]string, error) {
	token, err := c.tokens.Token(ctx, ServiceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pages := &orderPages{
		conn:      c,
		token:     token,
		from:      now.AddDate(0, 0, -windowDays),
		to:        now,
		cancelled: true,
	}

	records, err := channel.Collect(ctx, pages, c.limiter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ExternalID != "" {
			ids = append(ids, r.ExternalID)
		}
	}
	c.logger.Debug("fetched cancellation feed", "count", len(ids))
	return ids, nil
}

type orderPages struct {
	conn      *Connector
	token     string
	from      time.Time
	to        time.Time
	cancelled bool
}

func (p *orderPages) FetchPage(ctx context.Context, cursor string) ([]domain.Order, string, error) {
	q := url.Values{}
	q.Set("from", p.from.Format("2006-01-02"))
	q.Set("to", p.to.Format("2006-01-02"))
	if p.cancelled {
		q.Set("type", "cancelled")
	}
	if cursor != "" {
		q.Set("page", cursor)
	}
	reqURL := p.conn.baseURL + "/orders?" + q.Encode()

	var resp ordersResponse
	if err := p.conn.client.GetJSON(ctx, reqURL, p.token, &resp); err != nil {
		return nil, "", err
	}

	orders := make([]domain.Order, 0, len(resp.Data))
	for _, rec := range resp.Data {
		orders = append(orders, normalizeOrder(rec))
	}

	next, err := nextPageToken(resp.Meta.Pagination.Links.Next)
	if err != nil {
		return nil, "", err
	}
	return orders, next, nil
}

// nextPageToken extracts the continuation token embedded in the next-page
// link the carrier returns. An empty link means the last page.
func nextPageToken(rawURL string) (string, error) {
	if rawURL == "" {
		return "", nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse next link %q: %w", rawURL, err)
	}
	return u.Query().Get("page"), nil
}
