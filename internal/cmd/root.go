// Package cmd provides the command-line interface for the Forge CLI.
// It contains all cobra commands and their implementations.
package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/assetforge/forge-cli/internal/api"
	"github.com/assetforge/forge-cli/internal/config"
	"github.com/assetforge/forge-cli/internal/di"
	"github.com/assetforge/forge-cli/internal/session"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

// RootCommand represents the root CLI command
type RootCommand struct {
	container *di.Container
	cmd       *cobra.Command

	// Subcommands
	loginCmd    *LoginCommand
	signupCmd   *SignupCommand
	logoutCmd   *LogoutCommand
	whoamiCmd   *WhoamiCommand
	generateCmd *GenerateCommand
	jobsCmd     *JobsCommand
	assetsCmd   *AssetsCommand
}

// NewRootCommand creates a new root command
func NewRootCommand() *RootCommand {
	r := &RootCommand{}

	r.cmd = &cobra.Command{
		Use:   "forge",
		Short: "Forge CLI - Command line interface for the AssetForge service",
		Long: `Forge is a command-line client for the AssetForge generation service.

AssetForge turns text prompts into images and videos through asynchronous
generation jobs. The CLI submits jobs, follows them to completion, and
browses the resulting asset library.

To get started, run:
  forge signup           - Create an account
  forge generate image   - Generate an image from a prompt
  forge assets list      - Browse your generated assets`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return r.initialize()
		},
	}

	// Global flags
	r.cmd.PersistentFlags().StringP("output", "o", "text", "Output format (text, json)")

	// Initialize subcommands (will be wired after container init)
	r.loginCmd = NewLoginCommand(r)
	r.signupCmd = NewSignupCommand(r)
	r.logoutCmd = NewLogoutCommand(r)
	r.whoamiCmd = NewWhoamiCommand(r)
	r.generateCmd = NewGenerateCommand(r)
	r.jobsCmd = NewJobsCommand(r)
	r.assetsCmd = NewAssetsCommand(r)

	// Add subcommands
	r.cmd.AddCommand(r.loginCmd.Command())
	r.cmd.AddCommand(r.signupCmd.Command())
	r.cmd.AddCommand(r.logoutCmd.Command())
	r.cmd.AddCommand(r.whoamiCmd.Command())
	r.cmd.AddCommand(r.generateCmd.Command())
	r.cmd.AddCommand(r.jobsCmd.Command())
	r.cmd.AddCommand(r.assetsCmd.Command())

	return r
}

// initialize sets up the DI container
func (r *RootCommand) initialize() error {
	// Skip if container is already set (e.g., for testing)
	if r.container != nil {
		return nil
	}

	var err error
	r.container, err = di.NewContainer()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	return nil
}

// Execute runs the root command
func (r *RootCommand) Execute() error {
	return r.cmd.Execute()
}

// Command returns the underlying cobra command
func (r *RootCommand) Command() *cobra.Command {
	return r.cmd
}

// Container returns the DI container
func (r *RootCommand) Container() *di.Container {
	return r.container
}

// SetContainer sets a custom container (for testing)
func (r *RootCommand) SetContainer(c *di.Container) {
	r.container = c
}

// Execute is the main entry point for the CLI
func Execute() error {
	root := NewRootCommand()
	return root.Execute()
}

// ExitWithError prints an error message and exits with code 1
func ExitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

// resolveURL turns a server-relative asset path into an absolute URL on the
// configured API origin. Absolute URLs pass through untouched.
func (r *RootCommand) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	base := config.DefaultAPIURL
	if r.container != nil && r.container.ConfigManager() != nil {
		if apiURL, err := r.container.ConfigManager().APIURL(); err == nil {
			base = apiURL
		}
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return parsed.Scheme + "://" + parsed.Host + path
}

// requireSession restores the session from the stored refresh token and
// returns the authenticated user. Commands that talk to protected endpoints
// call this first so the failure is a login hint instead of a raw 401.
func requireSession(cmd *cobra.Command, root *RootCommand) (*api.User, error) {
	sessionService := root.Container().SessionService()
	if sessionService.Restore(cmd.Context()) != session.Authenticated {
		return nil, fmt.Errorf("not logged in. Please run 'forge login' first")
	}

	user, ok := sessionService.CurrentUser()
	if !ok {
		return nil, fmt.Errorf("not logged in. Please run 'forge login' first")
	}
	return user, nil
}
