// Package session implements the session lifecycle for the forge CLI:
// sign-up, sign-in, sign-out, and restoration of a session from the durable
// refresh credential at startup.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/assetforge/forge-cli/internal/api"
	"github.com/assetforge/forge-cli/internal/auth"
)

// State is the session lifecycle state.
type State int

const (
	// Unauthenticated means no session is active.
	Unauthenticated State = iota

	// Restoring means a stored refresh credential is being exchanged for a
	// session.
	Restoring

	// Authenticated means a session and identity are established.
	Authenticated
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// ErrInvalidCredentials is returned by Login when the server rejects the
// email/password pair. Session state is unchanged.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationError is returned by Signup when the server rejects the new
// account, carrying the server's reason (e.g. a duplicate email). Session
// state is unchanged.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// Manager owns the session state machine. It is built on the authenticated
// API client and the refresher, and registers itself as the credential
// store's auth-error handler so a failed silent refresh forces a transition
// to Unauthenticated from any state.
type Manager struct {
	client    *api.Client
	creds     *auth.CredentialStore
	store     auth.TokenStore
	refresher api.Refresher

	mu    sync.Mutex
	state State
	user  *api.User
}

// NewManager creates a session manager and registers its auth-error handler
// with the credential store.
func NewManager(client *api.Client, creds *auth.CredentialStore, store auth.TokenStore, refresher api.Refresher) *Manager {
	m := &Manager{
		client:    client,
		creds:     creds,
		store:     store,
		refresher: refresher,
	}
	creds.SetAuthErrorHandler(m.forceLogout)
	return m
}

// Restore attempts to resume a session from the stored refresh credential
// and returns the resulting state. Absence of a stored credential, a failed
// exchange, or a failed identity fetch all leave the manager
// Unauthenticated; a failed exchange additionally tears down the stored
// credential via the refresher.
func (m *Manager) Restore(ctx context.Context) State {
	m.setState(Restoring, nil)

	token, err := m.store.RefreshToken()
	if err != nil || token == "" {
		m.setState(Unauthenticated, nil)
		return Unauthenticated
	}

	if err := m.refresher.Refresh(ctx); err != nil {
		m.setState(Unauthenticated, nil)
		return Unauthenticated
	}

	user, err := m.fetchIdentity(ctx)
	if err != nil {
		m.setState(Unauthenticated, nil)
		return Unauthenticated
	}

	m.setState(Authenticated, user)
	return Authenticated
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs in with the given credentials, stores the resulting token
// pair, fetches the identity, and transitions to Authenticated.
func (m *Manager) Login(ctx context.Context, email, password string) (*api.User, error) {
	var pair api.TokenPair
	if err := m.client.Post(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &pair); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	m.creds.SetAccessToken(pair.AccessToken)
	if err := m.store.SetRefreshToken(pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	user, err := m.fetchIdentity(ctx)
	if err != nil {
		return nil, err
	}

	m.setState(Authenticated, user)
	return user, nil
}

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup registers a new account and then signs in with the same
// credentials. Server-side rejections (duplicate email, invalid fields)
// surface as *ValidationError.
func (m *Manager) Signup(ctx context.Context, email, username, password string) (*api.User, error) {
	var user api.User
	req := signupRequest{Email: email, Username: username, Password: password}
	if err := m.client.Post(ctx, "/auth/signup", req, &user); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return nil, &ValidationError{Detail: apiErr.Detail}
		}
		return nil, err
	}

	return m.Login(ctx, email, password)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the refresh credential server-side on a best-effort basis,
// then unconditionally clears local session state and transitions to
// Unauthenticated. A failed revoke call never leaves the session stuck
// logged in.
func (m *Manager) Logout(ctx context.Context) error {
	if token, err := m.store.RefreshToken(); err == nil && token != "" {
		_ = m.client.Post(ctx, "/auth/logout", logoutRequest{RefreshToken: token}, nil)
	}

	m.creds.Clear()
	err := m.store.ClearRefreshToken()
	m.setState(Unauthenticated, nil)

	if err != nil {
		return fmt.Errorf("failed to clear stored refresh token: %w", err)
	}
	return nil
}

// CurrentUser returns the authenticated identity, if one is established.
func (m *Manager) CurrentUser() (*api.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.user != nil
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// fetchIdentity loads the authenticated user via GET /auth/me.
func (m *Manager) fetchIdentity(ctx context.Context) (*api.User, error) {
	var user api.User
	if err := m.client.Get(ctx, "/auth/me", &user); err != nil {
		return nil, fmt.Errorf("failed to fetch identity: %w", err)
	}
	return &user, nil
}

// forceLogout transitions to Unauthenticated from any state. It runs as the
// credential store's auth-error handler; by the time it fires, the refresher
// has already cleared both credentials.
func (m *Manager) forceLogout() {
	m.setState(Unauthenticated, nil)
}

func (m *Manager) setState(state State, user *api.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.user = user
}
