package iface

import (
	"context"

	"github.com/assetforge/forge-cli/internal/api"
)

// AssetService defines the interface for asset library operations
type AssetService interface {
	// List returns a page of the caller's assets, newest first
	List(ctx context.Context, skip, limit int) ([]api.Asset, error)

	// Get returns a single asset by ID
	Get(ctx context.Context, id int64) (*api.Asset, error)

	// Delete removes an asset and its stored file
	Delete(ctx context.Context, id int64) error
}
