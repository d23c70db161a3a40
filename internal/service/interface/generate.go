package iface

import (
	"context"

	"github.com/assetforge/forge-cli/internal/api"
	"github.com/assetforge/forge-cli/internal/generate"
)

// GenerateService defines the interface for generation operations
type GenerateService interface {
	// Submit sends a generation request and returns the job handle
	Submit(ctx context.Context, req generate.Request) (*api.Submission, error)

	// Job fetches the current snapshot of a job
	Job(ctx context.Context, jobID string) (*api.Job, error)
}

// JobTracker defines the interface for following a job to completion
type JobTracker interface {
	// Track starts observing a job and returns its update channel;
	// any previous observation is stopped first
	Track(ctx context.Context, jobID string) <-chan generate.Update

	// Reset stops the active observation, if any
	Reset()
}
