package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/assetforge/forge-cli/internal/api"
)

// ErrAuthExpired is returned when the refresh exchange fails and the session
// has been torn down. Errors from Refresh wrap it.
var ErrAuthExpired = errors.New("session expired")

// Refresher exchanges the durable refresh token for a fresh token pair.
// Concurrent callers share a single in-flight exchange: refresh tokens are
// rotated on use, so a second concurrent exchange would invalidate the
// first's new token and force a spurious logout.
//
// On success both credentials are replaced together: the access token in the
// CredentialStore and the rotated refresh token in durable storage. On
// failure both are cleared together and the store's auth-error handler is
// invoked exactly once per failed exchange.
type Refresher struct {
	baseURL    string
	httpClient *http.Client
	creds      *CredentialStore
	store      TokenStore
	group      singleflight.Group
}

// NewRefresher creates a refresher against the given API base URL. It uses
// its own bare HTTP client: the refresh endpoint is unauthenticated and must
// never recurse into the credential-attaching request path.
func NewRefresher(baseURL string, creds *CredentialStore, store TokenStore) *Refresher {
	return &Refresher{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		creds: creds,
		store: store,
	}
}

// Refresh performs the refresh exchange. A caller arriving while an exchange
// is already in flight awaits that exchange's outcome instead of starting a
// competing one.
func (r *Refresher) Refresh(ctx context.Context) error {
	_, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		return nil, r.exchange(ctx)
	})
	return err
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// exchange runs one refresh round-trip against POST /auth/refresh.
func (r *Refresher) exchange(ctx context.Context) error {
	refreshToken, err := r.store.RefreshToken()
	if err != nil {
		return r.fail(fmt.Errorf("failed to read refresh token: %v", err))
	}
	if refreshToken == "" {
		return r.fail(errors.New("no refresh token stored"))
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		// A canceled caller is not an auth failure; the session stays intact.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.fail(fmt.Errorf("refresh request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return r.fail(fmt.Errorf("refresh rejected with status %d", resp.StatusCode))
	}

	var pair api.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return r.fail(fmt.Errorf("failed to parse refresh response: %v", err))
	}

	r.creds.SetAccessToken(pair.AccessToken)
	if err := r.store.SetRefreshToken(pair.RefreshToken); err != nil {
		return fmt.Errorf("failed to persist rotated refresh token: %w", err)
	}

	return nil
}

// fail tears down both credentials and notifies the auth-error handler. The
// returned error wraps ErrAuthExpired.
func (r *Refresher) fail(cause error) error {
	r.creds.Clear()
	_ = r.store.ClearRefreshToken()
	r.creds.notifyAuthError()
	return fmt.Errorf("%w: %v", ErrAuthExpired, cause)
}
