// Package auth manages AssetForge session credentials: the short-lived
// access token held in process memory and the durable refresh token that is
// rotated on every exchange.
package auth

import "sync"

// CredentialStore is the single holder of the in-memory access token. It is
// a trusted cell with no validation: the session manager and refresher write
// it, the API client reads it on every outbound request. All methods are
// safe for concurrent use.
type CredentialStore struct {
	mu          sync.RWMutex
	accessToken string
	onAuthError func()
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// SetAccessToken replaces the current access token. An empty token marks the
// credential as absent.
func (s *CredentialStore) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

// AccessToken returns the current access token and whether one is held.
func (s *CredentialStore) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.accessToken != ""
}

// Clear removes the access token.
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
}

// SetAuthErrorHandler registers the callback invoked when the session can no
// longer be refreshed. Passing nil removes the handler.
func (s *CredentialStore) SetAuthErrorHandler(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAuthError = fn
}

// notifyAuthError invokes the registered handler, if any. The handler runs
// without the store lock held so it may call back into the store.
func (s *CredentialStore) notifyAuthError() {
	s.mu.RLock()
	fn := s.onAuthError
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// TokenStore persists the durable refresh credential. It is the only session
// state that survives a process restart.
type TokenStore interface {
	// RefreshToken returns the stored refresh token, or "" if none is stored.
	RefreshToken() (string, error)

	// SetRefreshToken replaces the stored refresh token.
	SetRefreshToken(token string) error

	// ClearRefreshToken removes the stored refresh token.
	ClearRefreshToken() error
}
