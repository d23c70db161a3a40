// Package di provides dependency injection for the Forge CLI.
// It contains the service container and factory functions.
package di

import (
	"github.com/assetforge/forge-cli/internal/api"
	"github.com/assetforge/forge-cli/internal/assets"
	"github.com/assetforge/forge-cli/internal/auth"
	"github.com/assetforge/forge-cli/internal/config"
	"github.com/assetforge/forge-cli/internal/generate"
	iface "github.com/assetforge/forge-cli/internal/service/interface"
	"github.com/assetforge/forge-cli/internal/session"
)

// Container holds all service dependencies for the CLI.
// Services are accessed via interfaces to enable mocking in tests.
type Container struct {
	configManager   *config.Manager
	sessionService  iface.SessionService
	generateService iface.GenerateService
	jobTracker      iface.JobTracker
	assetService    iface.AssetService
}

// NewContainer creates a new dependency container with default implementations.
// It wires the credential store, token refresher, and API client together and
// selects the status transport named by the configuration.
func NewContainer() (*Container, error) {
	configManager, err := config.NewManager()
	if err != nil {
		return nil, err
	}

	cfg, err := configManager.Load()
	if err != nil {
		return nil, err
	}

	creds := auth.NewCredentialStore()
	refresher := auth.NewRefresher(cfg.APIURL, creds, configManager)
	client := api.NewClient(cfg.APIURL, creds, refresher)

	var observer generate.StatusObserver
	if cfg.Transport == config.TransportStream {
		observer = generate.NewStreamObserver(cfg.APIURL)
	} else {
		observer = generate.NewPollingObserver(cfg.APIURL, cfg.PollInterval())
	}

	return &Container{
		configManager:   configManager,
		sessionService:  session.NewManager(client, creds, configManager, refresher),
		generateService: generate.NewService(client),
		jobTracker:      generate.NewTracker(observer),
		assetService:    assets.NewService(client),
	}, nil
}

// NewContainerWithServices creates a container with custom service implementations.
// This is useful for testing with mock services.
func NewContainerWithServices(
	sessionService iface.SessionService,
	generateService iface.GenerateService,
	jobTracker iface.JobTracker,
	assetService iface.AssetService,
) *Container {
	return &Container{
		sessionService:  sessionService,
		generateService: generateService,
		jobTracker:      jobTracker,
		assetService:    assetService,
	}
}

// SessionService returns the session service
func (c *Container) SessionService() iface.SessionService {
	return c.sessionService
}

// GenerateService returns the generation service
func (c *Container) GenerateService() iface.GenerateService {
	return c.generateService
}

// JobTracker returns the job tracker
func (c *Container) JobTracker() iface.JobTracker {
	return c.jobTracker
}

// AssetService returns the asset service
func (c *Container) AssetService() iface.AssetService {
	return c.assetService
}

// ConfigManager returns the config manager
func (c *Container) ConfigManager() *config.Manager {
	return c.configManager
}
