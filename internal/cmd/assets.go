package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/AlecAivazis/survey/v2"
	"github.com/assetforge/forge-cli/internal/api"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

// AssetsCommand represents the assets command group
type AssetsCommand struct {
	root *RootCommand
	cmd  *cobra.Command

	// Subcommands
	listCmd   *AssetsListCommand
	getCmd    *AssetsGetCommand
	deleteCmd *AssetsDeleteCommand
}

// NewAssetsCommand creates a new assets command
func NewAssetsCommand(root *RootCommand) *AssetsCommand {
	a := &AssetsCommand{
		root: root,
	}

	a.cmd = &cobra.Command{
		Use:   "assets",
		Short: "Browse generated assets",
		Long: `Browse the assets your completed generation jobs have produced.

Use subcommands to list your asset library or inspect a single asset.`,
	}

	// Initialize subcommands
	a.listCmd = NewAssetsListCommand(a)
	a.getCmd = NewAssetsGetCommand(a)
	a.deleteCmd = NewAssetsDeleteCommand(a)

	// Add subcommands
	a.cmd.AddCommand(a.listCmd.Command())
	a.cmd.AddCommand(a.getCmd.Command())
	a.cmd.AddCommand(a.deleteCmd.Command())

	return a
}

// Command returns the underlying cobra command
func (a *AssetsCommand) Command() *cobra.Command {
	return a.cmd
}

// Root returns the parent root command
func (a *AssetsCommand) Root() *RootCommand {
	return a.root
}

// AssetsListCommand represents the assets list command
type AssetsListCommand struct {
	parent *AssetsCommand
	cmd    *cobra.Command
}

// NewAssetsListCommand creates a new assets list command
func NewAssetsListCommand(parent *AssetsCommand) *AssetsListCommand {
	l := &AssetsListCommand{
		parent: parent,
	}

	l.cmd = &cobra.Command{
		Use:   "list",
		Short: "List your generated assets",
		Long: `List the assets your account has generated, newest first.

Examples:
  forge assets list
  forge assets list --limit 10
  forge assets list -o json`,
		RunE: l.Run,
	}

	l.cmd.Flags().Int("skip", 0, "Number of assets to skip")
	l.cmd.Flags().Int("limit", 50, "Maximum number of assets to return")

	return l
}

// Command returns the underlying cobra command
func (l *AssetsListCommand) Command() *cobra.Command {
	return l.cmd
}

// Run executes the assets list command
func (l *AssetsListCommand) Run(cmd *cobra.Command, args []string) error {
	if _, err := requireSession(cmd, l.parent.Root()); err != nil {
		return err
	}

	skip, _ := cmd.Flags().GetInt("skip")
	limit, _ := cmd.Flags().GetInt("limit")

	assetService := l.parent.Root().Container().AssetService()

	page, err := assetService.List(cmd.Context(), skip, limit)
	if err != nil {
		return err
	}

	outputFormat, _ := cmd.Flags().GetString("output")
	if outputFormat == "" {
		outputFormat, _ = cmd.Parent().Parent().PersistentFlags().GetString("output")
	}

	switch outputFormat {
	case "json":
		return l.outputJSON(page)
	default:
		return l.outputTable(page)
	}
}

// outputJSON outputs assets in JSON format
func (l *AssetsListCommand) outputJSON(page []api.Asset) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(page)
}

// outputTable outputs assets in table format
func (l *AssetsListCommand) outputTable(page []api.Asset) error {
	if len(page) == 0 {
		fmt.Println("No assets found.")
		fmt.Println("\nGenerate one with: forge generate image \"a lighthouse at dawn\"")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tMODEL\tCREATED\tPROMPT")
	fmt.Fprintln(w, "--\t----\t-----\t-------\t------")

	for _, asset := range page {
		prompt := asset.Prompt
		if len(prompt) > 40 {
			prompt = prompt[:37] + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			asset.ID,
			asset.AssetType,
			asset.Model,
			asset.CreatedAt.Format("2006-01-02 15:04"),
			prompt,
		)
	}

	return w.Flush()
}

// AssetsGetCommand represents the assets get command
type AssetsGetCommand struct {
	parent *AssetsCommand
	cmd    *cobra.Command
}

// NewAssetsGetCommand creates a new assets get command
func NewAssetsGetCommand(parent *AssetsCommand) *AssetsGetCommand {
	g := &AssetsGetCommand{
		parent: parent,
	}

	g.cmd = &cobra.Command{
		Use:   "get <asset-id>",
		Short: "Show a single asset",
		Long: `Show the details of a single asset.

Examples:
  forge assets get 42
  forge assets get 42 --open
  forge assets get 42 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: g.Run,
	}

	g.cmd.Flags().Bool("open", false, "Open the asset in a browser")

	return g
}

// Command returns the underlying cobra command
func (g *AssetsGetCommand) Command() *cobra.Command {
	return g.cmd
}

// Run executes the assets get command
func (g *AssetsGetCommand) Run(cmd *cobra.Command, args []string) error {
	if _, err := requireSession(cmd, g.parent.Root()); err != nil {
		return err
	}

	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return fmt.Errorf("invalid asset ID: %s", args[0])
	}

	assetService := g.parent.Root().Container().AssetService()

	asset, err := assetService.Get(cmd.Context(), id)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return fmt.Errorf("asset not found: %d\n\nUse 'forge assets list' to see your assets", id)
		}
		return err
	}

	outputFormat, _ := cmd.Flags().GetString("output")
	if outputFormat == "" {
		outputFormat, _ = cmd.Parent().Parent().PersistentFlags().GetString("output")
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(asset); err != nil {
			return err
		}
	} else {
		g.outputDetail(asset)
	}

	openFlag, _ := cmd.Flags().GetBool("open")
	if openFlag && asset.FilePath != "" {
		if err := browser.OpenURL(g.parent.Root().resolveURL(asset.FilePath)); err != nil {
			fmt.Fprintf(os.Stderr, "Could not open browser: %v\n", err)
		}
	}

	return nil
}

// outputDetail outputs the asset in human-readable format
func (g *AssetsGetCommand) outputDetail(asset *api.Asset) {
	fmt.Printf("Asset:   %d\n", asset.ID)
	fmt.Printf("Type:    %s\n", asset.AssetType)
	fmt.Printf("Model:   %s\n", asset.Model)
	fmt.Printf("Job:     %s\n", asset.JobID)
	fmt.Printf("Created: %s\n", asset.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("URL:     %s\n", g.parent.Root().resolveURL(asset.FilePath))
	fmt.Printf("\nPrompt:\n  %s\n", asset.Prompt)
}

// AssetsDeleteCommand represents the assets delete command
type AssetsDeleteCommand struct {
	parent *AssetsCommand
	cmd    *cobra.Command
}

// NewAssetsDeleteCommand creates a new assets delete command
func NewAssetsDeleteCommand(parent *AssetsCommand) *AssetsDeleteCommand {
	d := &AssetsDeleteCommand{
		parent: parent,
	}

	d.cmd = &cobra.Command{
		Use:   "delete <asset-id>",
		Short: "Delete an asset",
		Long: `Delete an asset and its stored file.

This action is irreversible.

Examples:
  forge assets delete 42
  forge assets delete 42 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: d.Run,
	}

	d.cmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")

	return d
}

// Command returns the underlying cobra command
func (d *AssetsDeleteCommand) Command() *cobra.Command {
	return d.cmd
}

// Run executes the assets delete command
func (d *AssetsDeleteCommand) Run(cmd *cobra.Command, args []string) error {
	if _, err := requireSession(cmd, d.parent.Root()); err != nil {
		return err
	}

	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return fmt.Errorf("invalid asset ID: %s", args[0])
	}

	skipConfirm, _ := cmd.Flags().GetBool("yes")
	if !skipConfirm {
		var confirm bool
		if err := survey.AskOne(&survey.Confirm{
			Message: fmt.Sprintf("Delete asset %d? This cannot be undone.", id),
			Default: false,
		}, &confirm); err != nil {
			return err
		}
		if !confirm {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	assetService := d.parent.Root().Container().AssetService()

	if err := assetService.Delete(cmd.Context(), id); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return fmt.Errorf("asset not found: %d", id)
		}
		return err
	}

	fmt.Printf("✓ Asset %d deleted\n", id)
	return nil
}
