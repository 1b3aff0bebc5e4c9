package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"order_syncer/internal/domain"
)

type CredentialStore struct {
	db *sqlx.DB
}

func NewCredentialStore(db *sqlx.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Get returns the stored credential for a service, or (nil, nil) when none
// exists yet.
func (s *CredentialStore) Get(ctx context.Context, service string) (*domain.Credential, error) {
	var cred domain.Credential
	query := `SELECT service, token, expires_at FROM credentials WHERE service = $1`

	err := s.db.GetContext(ctx, &cred, query, service)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Put overwrites the credential for a service entirely. No history kept.
func (s *CredentialStore) Put(ctx context.Context, cred *domain.Credential) error {
	query := `
		INSERT INTO credentials (service, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (service) DO UPDATE SET
			token = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at`

	_, err := s.db.ExecContext(ctx, query, cred.Service, cred.Token, cred.ExpiresAt)
	return err
}
