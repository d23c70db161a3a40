// Package iface defines service interfaces for the Forge CLI.
// These interfaces enable dependency injection and mocking for tests.
package iface

import (
	"context"

	"github.com/assetforge/forge-cli/internal/api"
	"github.com/assetforge/forge-cli/internal/session"
)

// SessionService defines the interface for session lifecycle operations
type SessionService interface {
	// Restore rebuilds the session from the stored refresh token at startup
	Restore(ctx context.Context) session.State

	// Login exchanges credentials for a session
	Login(ctx context.Context, email, password string) (*api.User, error)

	// Signup registers a new account and logs it in
	Signup(ctx context.Context, email, username, password string) (*api.User, error)

	// Logout revokes the refresh token and clears stored credentials
	Logout(ctx context.Context) error

	// CurrentUser returns the authenticated identity, if any
	CurrentUser() (*api.User, bool)

	// State returns the current session state
	State() session.State
}
