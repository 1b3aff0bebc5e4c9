package channel

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"order_syncer/internal/domain"
)

// TokenSource supplies a valid bearer token for a named external service.
// Implementations refresh expired tokens before handing them out.
type TokenSource interface {
	Token(ctx context.Context, service string) (string, error)
}

// PageFetcher produces one page of canonical orders for a continuation
// cursor. An empty cursor requests the first page; an empty next cursor
// ends the walk. The sequence is not restartable: a retry must start over
// from an empty cursor.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (orders []domain.Order, next string, err error)
}

// Collect walks pagination to exhaustion and returns the concatenation of
// all pages in page order. A repeated cursor aborts with
// domain.ErrPaginationLoop. When limiter is non-nil it paces page fetches;
// channels without a documented rate limit use a fixed inter-page delay.
func Collect(ctx context.Context, f PageFetcher, limiter *rate.Limiter) ([]domain.Order, error) {
	var all []domain.Order
	seen := make(map[string]struct{})
	cursor := ""

	for {
		if _, dup := seen[cursor]; dup {
			return nil, fmt.Errorf("cursor %q seen twice: %w", cursor, domain.ErrPaginationLoop)
		}
		seen[cursor] = struct{}{}

		orders, next, err := f.FetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, orders...)

		if next == "" {
			return all, nil
		}
		cursor = next

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
	}
}
