package cmd

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/assetforge/forge-cli/internal/session"
	"github.com/spf13/cobra"
)

// SignupCommand represents the signup command
type SignupCommand struct {
	root *RootCommand
	cmd  *cobra.Command
}

// NewSignupCommand creates a new signup command
func NewSignupCommand(root *RootCommand) *SignupCommand {
	s := &SignupCommand{
		root: root,
	}

	s.cmd = &cobra.Command{
		Use:   "signup",
		Short: "Create an AssetForge account",
		Long: `Create a new AssetForge account and log in.

You will be prompted for an email address, a username, and a password.
On success the new account is logged in immediately.

Example:
  forge signup`,
		RunE: s.Run,
	}

	return s
}

// Command returns the underlying cobra command
func (s *SignupCommand) Command() *cobra.Command {
	return s.cmd
}

// Run executes the signup command with interactive prompts
func (s *SignupCommand) Run(cmd *cobra.Command, args []string) error {
	var email string
	if err := survey.AskOne(&survey.Input{
		Message: "Email:",
	}, &email, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	var username string
	if err := survey.AskOne(&survey.Input{
		Message: "Username:",
	}, &username, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	var password string
	if err := survey.AskOne(&survey.Password{
		Message: "Password (min 8 characters):",
	}, &password, survey.WithValidator(survey.MinLength(8))); err != nil {
		return err
	}

	var confirm string
	if err := survey.AskOne(&survey.Password{
		Message: "Confirm password:",
	}, &confirm); err != nil {
		return err
	}
	if confirm != password {
		return fmt.Errorf("passwords do not match")
	}

	sessionService := s.root.Container().SessionService()

	user, err := sessionService.Signup(cmd.Context(), email, username, password)
	if err != nil {
		var validationErr *session.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("signup rejected: %s", validationErr.Detail)
		}
		return err
	}

	fmt.Printf("✓ Account created. Logged in as %s\n", user.Username)
	fmt.Println("\nNext steps:")
	fmt.Println("  forge generate image   - Generate an image from a prompt")
	fmt.Println("  forge assets list      - Browse your generated assets")

	return nil
}
