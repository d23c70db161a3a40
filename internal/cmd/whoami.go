package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/assetforge/forge-cli/internal/api"
	"github.com/spf13/cobra"
)

// WhoamiCommand represents the whoami command
type WhoamiCommand struct {
	root *RootCommand
	cmd  *cobra.Command
}

// NewWhoamiCommand creates a new whoami command
func NewWhoamiCommand(root *RootCommand) *WhoamiCommand {
	w := &WhoamiCommand{
		root: root,
	}

	w.cmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Long: `Show the account the stored session belongs to.

This restores the session from the stored refresh token and prints the
authenticated identity.

Examples:
  forge whoami
  forge whoami -o json`,
		RunE: w.Run,
	}

	return w
}

// Command returns the underlying cobra command
func (w *WhoamiCommand) Command() *cobra.Command {
	return w.cmd
}

// Run executes the whoami command
func (w *WhoamiCommand) Run(cmd *cobra.Command, args []string) error {
	user, err := requireSession(cmd, w.root)
	if err != nil {
		return err
	}

	outputFormat, _ := cmd.Flags().GetString("output")
	if outputFormat == "" {
		outputFormat, _ = cmd.Parent().PersistentFlags().GetString("output")
	}

	switch outputFormat {
	case "json":
		return w.outputJSON(user)
	default:
		fmt.Printf("Logged in as %s (%s)\n", user.Username, user.Email)
		return nil
	}
}

// outputJSON outputs the user in JSON format
func (w *WhoamiCommand) outputJSON(user *api.User) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(user)
}
