// Package config provides configuration management for the forge CLI.
// It handles reading and writing the durable refresh credential and client
// settings to the config file.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultAPIURL is the default AssetForge API endpoint. The path prefix
	// is part of the base URL; all wire paths are relative to it.
	DefaultAPIURL = "http://localhost:8080/api"

	// ConfigDirName is the name of the config directory
	ConfigDirName = ".assetforge"

	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"

	// TransportPoll selects the fixed-interval polling transport for job
	// status observation.
	TransportPoll = "poll"

	// TransportStream selects the server-push (SSE) transport for job
	// status observation.
	TransportStream = "stream"

	// DefaultPollInterval is the poll spacing used when the config does not
	// specify one.
	DefaultPollInterval = 2 * time.Second

	// DefaultImageModel is the image generation model used when none is given.
	DefaultImageModel = "imagen-3.0-fast-generate-001"

	// DefaultVideoModel is the video generation model used when none is given.
	DefaultVideoModel = "veo-3.0-fast-generate-001"
)

// Environment variables that override the stored configuration.
const (
	EnvAPIURL    = "FORGE_API_URL"
	EnvTransport = "FORGE_TRANSPORT"
)

// Config represents the CLI configuration stored on disk. The access token
// is intentionally not part of it: it lives only in process memory, and only
// the refresh token survives a restart.
type Config struct {
	// APIURL is the base URL of the AssetForge API
	APIURL string `json:"api_url,omitempty"`

	// RefreshToken is the durable credential exchanged for new access
	// tokens; it is rotated on every exchange.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Transport selects how job status is observed: "poll" or "stream".
	Transport string `json:"transport,omitempty"`

	// PollIntervalMS is the polling interval in milliseconds when the poll
	// transport is selected.
	PollIntervalMS int `json:"poll_interval_ms,omitempty"`

	// ImageModel is the default model for image generation
	ImageModel string `json:"image_model,omitempty"`

	// VideoModel is the default model for video generation
	VideoModel string `json:"video_model,omitempty"`
}

// PollInterval returns the configured polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Manager handles configuration file operations
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(homeDir, ConfigDirName, ConfigFileName)
	return &Manager{configPath: configPath}, nil
}

// NewManagerWithPath creates a new configuration manager with a custom path
// This is useful for testing
func NewManagerWithPath(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// Load reads the configuration from disk. It returns a config populated with
// defaults if the file doesn't exist, and applies environment overrides.
func (m *Manager) Load() (*Config, error) {
	var config Config

	data, err := os.ReadFile(m.configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		// Fall through to defaults.
	default:
		return nil, err
	}

	if url := os.Getenv(EnvAPIURL); url != "" {
		config.APIURL = url
	}
	if transport := os.Getenv(EnvTransport); transport != "" {
		config.Transport = transport
	}

	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.Transport != TransportStream {
		config.Transport = TransportPoll
	}
	if config.ImageModel == "" {
		config.ImageModel = DefaultImageModel
	}
	if config.VideoModel == "" {
		config.VideoModel = DefaultVideoModel
	}

	return &config, nil
}

// Save writes the configuration to disk
func (m *Manager) Save(config *Config) error {
	// Ensure the config directory exists
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	// Write with restricted permissions (owner read/write only)
	return os.WriteFile(m.configPath, data, 0600)
}

// Delete removes the config file entirely
func (m *Manager) Delete() error {
	err := os.Remove(m.configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// RefreshToken returns the stored refresh token, or "" if none is stored.
func (m *Manager) RefreshToken() (string, error) {
	config, err := m.Load()
	if err != nil {
		return "", err
	}
	return config.RefreshToken, nil
}

// SetRefreshToken replaces the stored refresh token.
func (m *Manager) SetRefreshToken(token string) error {
	config, err := m.Load()
	if err != nil {
		return err
	}

	config.RefreshToken = token
	return m.Save(config)
}

// ClearRefreshToken removes the stored refresh token, keeping settings.
func (m *Manager) ClearRefreshToken() error {
	config, err := m.Load()
	if err != nil {
		return err
	}

	if config.RefreshToken == "" {
		return nil
	}
	config.RefreshToken = ""
	return m.Save(config)
}

// APIURL returns the configured API base URL
func (m *Manager) APIURL() (string, error) {
	config, err := m.Load()
	if err != nil {
		return "", err
	}
	return config.APIURL, nil
}

// ConfigPath returns the path to the config file
func (m *Manager) ConfigPath() string {
	return m.configPath
}
