// Package assets implements the client for browsing previously generated
// assets.
package assets

import (
	"context"
	"fmt"
	"net/http"

	"github.com/assetforge/forge-cli/internal/api"
)

// Service fetches the caller's asset library through the authenticated API
// client.
type Service struct {
	client *api.Client
}

// NewService creates a new asset service
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// List returns a page of the caller's assets, newest first.
func (s *Service) List(ctx context.Context, skip, limit int) ([]api.Asset, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	var page []api.Asset
	path := fmt.Sprintf("/assets?skip=%d&limit=%d", skip, limit)
	if err := s.client.Get(ctx, path, &page); err != nil {
		return nil, err
	}
	return page, nil
}

// Get returns a single asset by ID.
func (s *Service) Get(ctx context.Context, id int64) (*api.Asset, error) {
	var asset api.Asset
	if err := s.client.Get(ctx, fmt.Sprintf("/assets/%d", id), &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// Delete removes an asset and its stored file.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.client.Request(ctx, http.MethodDelete, fmt.Sprintf("/assets/%d", id), nil, nil)
}
