package marketb

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
	// ServiceID names the credential row for marketplace B.
	ServiceID = "marketb"

	// pageDelay paces page fetches; marketplace B throttles aggressively
	// and documents no limit.
	pageDelay = 500 * time.Millisecond

	windowDays = 30
)

// orderStates is the status set the search filter asks for.
var orderStates = []string{"APPROVED", "PACKED", "SHIPPED", "DELIVERED"}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Connector pulls orders from marketplace B's search endpoint, which takes
// a (type, states, dateRange) filter object and pages with hasMore plus a
// next-page URL carrying the continuation token.
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
		logger:  logger.With("channel", domain.ChannelMarketB),
	}
}

func (c *Connector) ID() string   { return domain.ChannelMarketB }
func (c *Connector) Name() string { return "Marketplace B" }

func (c *Connector) FetchOrders(ctx context.Context) ([]domain.Order, error) {
	token, err := c.tokens.Token(ctx, ServiceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pages := &orderPages{
		conn:  c,
		token: token,
		filter: searchFilter{
			Type:   "postDispatch",
			States: orderStates,
			DateRange: dateRange{
				From: now.AddDate(0, 0, -windowDays).Format("2006-01-02"),
				To:   now.Format("2006-01-02"),
			},
		},
	}

	orders, err := channel.Collect(ctx, pages, c.limiter)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched marketplace orders", "count", len(orders))
	return orders, nil
}

type orderPages struct {
	conn   *Connector
	token  string
	filter searchFilter
}

func (p *orderPages) FetchPage(ctx context.Context, cursor string) ([]domain.Order, string, error) {
	reqURL := p.conn.baseURL + "/orders/search"
	if cursor != "" {
		reqURL += "?page_token=" + url.QueryEscape(cursor)
	}

	var resp searchResponse
	if err := p.conn.client.PostJSON(ctx, reqURL, p.token, searchRequest{Filter: p.filter}, &resp); err != nil {
		return nil, "", err
	}

	orders := make([]domain.Order, 0, len(resp.Orders))
	for _, rec := range resp.Orders {
		orders = append(orders, normalizeOrder(rec))
	}

	if !resp.HasMore {
		return orders, "", nil
	}
	next, err := pageToken(resp.NextPageURL)
	if err != nil {
		return nil, "", err
	}
	return orders, next, nil
}

// pageToken extracts the continuation token from the next-page URL. A
// hasMore response with no extractable token is a contract violation.
func pageToken(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse next page url %q: %w", rawURL, err)
	}
	token := u.Query().Get("page_token")
	if token == "" {
		return "", fmt.Errorf("next page url %q carries no page_token", rawURL)
	}
	return token, nil
}
