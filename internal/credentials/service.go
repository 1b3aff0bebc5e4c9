package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"order_syncer/internal/domain"
)

const (
	// refreshMargin is the safety window: a token expiring within it is
	// treated as already stale.
	refreshMargin = 24 * time.Hour

	// fallbackTTL is assumed when a service does not report expires_in.
	fallbackTTL = 7 * 24 * time.Hour
)

// TokenResponse is what a channel auth endpoint hands back. ExpiresIn is
// in seconds; zero means the service did not report one.
type TokenResponse struct {
	Token     string
	ExpiresIn int
}

// Refresher obtains a fresh bearer token from one service's auth endpoint
// using that service's long-lived secrets.
type Refresher interface {
	Refresh(ctx context.Context) (TokenResponse, error)
}

// Store persists credentials. Get returns (nil, nil) when no credential is
// stored for the service.
type Store interface {
	Get(ctx context.Context, service string) (*domain.Credential, error)
	Put(ctx context.Context, cred *domain.Credential) error
}

// Service hands out bearer tokens, refreshing them when the stored expiry
// is unknown or inside the safety margin. It implements channel.TokenSource.
type Service struct {
	store      Store
	refreshers map[string]Refresher
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		refreshers: make(map[string]Refresher),
		logger:     logger,
		now:        time.Now,
	}
}

// Register wires the auth endpoint for a service.
func (s *Service) Register(service string, r Refresher) {
	s.refreshers[service] = r
}

// Token returns a token with a confirmed expiry window, refreshing first
// when needed.
func (s *Service) Token(ctx context.Context, service string) (string, error) {
	cred, err := s.store.Get(ctx, service)
	if err != nil {
		return "", fmt.Errorf("load credential for %s: %w", service, err)
	}

	if cred != nil && s.fresh(cred) {
		return cred.Token, nil
	}

	cred, err = s.Refresh(ctx, service)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// Refresh re-authenticates with the service and overwrites the stored
// credential. No history is kept.
func (s *Service) Refresh(ctx context.Context, service string) (*domain.Credential, error) {
	r, ok := s.refreshers[service]
	if !ok {
		return nil, fmt.Errorf("no refresher registered for %s: %w", service, domain.ErrCredentialMissing)
	}

	resp, err := r.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", service, err)
	}

	ttl := fallbackTTL
	if resp.ExpiresIn > 0 {
		ttl = time.Duration(resp.ExpiresIn) * time.Second
	}
	expiresAt := s.now().Add(ttl)

	cred := &domain.Credential{
		Service:   service,
		Token:     resp.Token,
		ExpiresAt: &expiresAt,
	}
	if err := s.store.Put(ctx, cred); err != nil {
		return nil, fmt.Errorf("store credential for %s: %w", service, err)
	}

	s.logger.Info("credential refreshed", "service", service, "expires_at", expiresAt)
	return cred, nil
}

// RefreshAll refreshes every registered service that needs it. Services
// are refreshed independently: one failure does not block the rest, and
// all failures are joined into the returned error.
func (s *Service) RefreshAll(ctx context.Context) error {
	var errs []error
	for service := range s.refreshers {
		cred, err := s.store.Get(ctx, service)
		if err != nil {
			errs = append(errs, fmt.Errorf("load credential for %s: %w", service, err))
			continue
		}
		if cred != nil && s.fresh(cred) {
			continue
		}
		if _, err := s.Refresh(ctx, service); err != nil {
			s.logger.Error("credential refresh failed", "service", service, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) fresh(cred *domain.Credential) bool {
	return cred.ExpiresAt != nil && cred.ExpiresAt.After(s.now().Add(refreshMargin))
}
