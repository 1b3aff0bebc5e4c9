package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"order_syncer/internal/domain"
)

// PasswordRefresher logs in with an email/password pair. The carrier's
// auth endpoint works this way.
type PasswordRefresher struct {
	httpClient *http.Client
	authURL    string
	email      string
	password   string
}

func NewPasswordRefresher(authURL, email, password string, timeout time.Duration) *PasswordRefresher {
	return &PasswordRefresher{
		httpClient: &http.Client{Timeout: timeout},
		authURL:    authURL,
		email:      email,
		password:   password,
	}
}

func (r *PasswordRefresher) Refresh(ctx context.Context) (TokenResponse, error) {
	body := map[string]string{"email": r.email, "password": r.password}

	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := postJSON(ctx, r.httpClient, r.authURL, body, &resp); err != nil {
		return TokenResponse{}, err
	}
	if resp.Token == "" {
		return TokenResponse{}, fmt.Errorf("auth endpoint returned no token")
	}
	return TokenResponse{Token: resp.Token, ExpiresIn: resp.ExpiresIn}, nil
}

// AppKeyRefresher exchanges an app-id/app-secret pair for a bearer token,
// the grant style both marketplaces use.
type AppKeyRefresher struct {
	httpClient *http.Client
	authURL    string
	appID      string
	appSecret  string
}

func NewAppKeyRefresher(authURL, appID, appSecret string, timeout time.Duration) *AppKeyRefresher {
	return &AppKeyRefresher{
		httpClient: &http.Client{Timeout: timeout},
		authURL:    authURL,
		appID:      appID,
		appSecret:  appSecret,
	}
}

func (r *AppKeyRefresher) Refresh(ctx context.Context) (TokenResponse, error) {
	body := map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     r.appID,
		"client_secret": r.appSecret,
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := postJSON(ctx, r.httpClient, r.authURL, body, &resp); err != nil {
		return TokenResponse{}, err
	}
	if resp.AccessToken == "" {
		return TokenResponse{}, fmt.Errorf("auth endpoint returned no token")
	}
	return TokenResponse{Token: resp.AccessToken, ExpiresIn: resp.ExpiresIn}, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.NewUpstreamError(resp.StatusCode, raw)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}
