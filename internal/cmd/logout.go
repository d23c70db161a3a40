package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// LogoutCommand represents the logout command
type LogoutCommand struct {
	root *RootCommand
	cmd  *cobra.Command
}

// NewLogoutCommand creates a new logout command
func NewLogoutCommand(root *RootCommand) *LogoutCommand {
	l := &LogoutCommand{
		root: root,
	}

	l.cmd = &cobra.Command{
		Use:   "logout",
		Short: "Log out from AssetForge",
		Long: `Log out from the AssetForge service and clear stored credentials.

The refresh token is revoked on the server when possible; local credentials
are removed either way.

Example:
  forge logout`,
		RunE: l.Run,
	}

	return l
}

// Command returns the underlying cobra command
func (l *LogoutCommand) Command() *cobra.Command {
	return l.cmd
}

// Run executes the logout command
func (l *LogoutCommand) Run(cmd *cobra.Command, args []string) error {
	sessionService := l.root.Container().SessionService()

	if err := sessionService.Logout(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("✓ Logged out")
	return nil
}
