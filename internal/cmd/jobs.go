package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/assetforge/forge-cli/internal/api"
	"github.com/assetforge/forge-cli/internal/generate"
	"github.com/spf13/cobra"
)

// JobsCommand represents the jobs command group
type JobsCommand struct {
	root *RootCommand
	cmd  *cobra.Command

	// Subcommands
	getCmd   *JobsGetCommand
	watchCmd *JobsWatchCommand
}

// NewJobsCommand creates a new jobs command
func NewJobsCommand(root *RootCommand) *JobsCommand {
	j := &JobsCommand{
		root: root,
	}

	j.cmd = &cobra.Command{
		Use:   "jobs",
		Short: "Inspect generation jobs",
		Long: `Inspect generation jobs by ID.

Every generation submission returns a job ID. Use these commands to check
on a job you detached from or lost track of.`,
	}

	// Initialize subcommands
	j.getCmd = NewJobsGetCommand(j)
	j.watchCmd = NewJobsWatchCommand(j)

	// Add subcommands
	j.cmd.AddCommand(j.getCmd.Command())
	j.cmd.AddCommand(j.watchCmd.Command())

	return j
}

// Command returns the underlying cobra command
func (j *JobsCommand) Command() *cobra.Command {
	return j.cmd
}

// Root returns the parent root command
func (j *JobsCommand) Root() *RootCommand {
	return j.root
}

// JobsGetCommand represents the jobs get command
type JobsGetCommand struct {
	parent *JobsCommand
	cmd    *cobra.Command
}

// NewJobsGetCommand creates a new jobs get command
func NewJobsGetCommand(parent *JobsCommand) *JobsGetCommand {
	g := &JobsGetCommand{
		parent: parent,
	}

	g.cmd = &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show the current state of a job",
		Long: `Show the current state of a generation job.

Examples:
  forge jobs get 2f0c9a4e-8c1d-4a6b-9a2f-3d87c4f1e9ab
  forge jobs get 2f0c9a4e-8c1d-4a6b-9a2f-3d87c4f1e9ab -o json`,
		Args: cobra.ExactArgs(1),
		RunE: g.Run,
	}

	return g
}

// Command returns the underlying cobra command
func (g *JobsGetCommand) Command() *cobra.Command {
	return g.cmd
}

// Run executes the jobs get command
func (g *JobsGetCommand) Run(cmd *cobra.Command, args []string) error {
	generateService := g.parent.Root().Container().GenerateService()

	job, err := generateService.Job(cmd.Context(), args[0])
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return fmt.Errorf("job not found: %s", args[0])
		}
		return err
	}

	outputFormat, _ := cmd.Flags().GetString("output")
	if outputFormat == "" {
		outputFormat, _ = cmd.Parent().Parent().PersistentFlags().GetString("output")
	}

	switch outputFormat {
	case "json":
		return g.outputJSON(job)
	default:
		return g.outputDetail(job)
	}
}

// outputJSON outputs the job in JSON format
func (g *JobsGetCommand) outputJSON(job *api.Job) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(job)
}

// outputDetail outputs the job in human-readable format
func (g *JobsGetCommand) outputDetail(job *api.Job) error {
	fmt.Printf("Job:    %s\n", job.ID)
	fmt.Printf("Status: %s\n", job.Status)

	if job.AssetID != nil {
		fmt.Printf("Asset:  %d\n", *job.AssetID)
	}
	if job.ResultURL != "" {
		fmt.Printf("URL:    %s\n", g.parent.Root().resolveURL(job.ResultURL))
	}
	if job.ErrorMessage != "" {
		fmt.Printf("Error:  %s\n", job.ErrorMessage)
	}

	return nil
}

// JobsWatchCommand represents the jobs watch command
type JobsWatchCommand struct {
	parent *JobsCommand
	cmd    *cobra.Command
}

// NewJobsWatchCommand creates a new jobs watch command
func NewJobsWatchCommand(parent *JobsCommand) *JobsWatchCommand {
	w := &JobsWatchCommand{
		parent: parent,
	}

	w.cmd = &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a job until it finishes",
		Long: `Follow a generation job until it reaches a terminal state.

Each status change is printed as it happens, using the configured status
transport (polling by default, server push when transport is "stream").

Examples:
  forge jobs watch 2f0c9a4e-8c1d-4a6b-9a2f-3d87c4f1e9ab`,
		Args: cobra.ExactArgs(1),
		RunE: w.Run,
	}

	return w
}

// Command returns the underlying cobra command
func (w *JobsWatchCommand) Command() *cobra.Command {
	return w.cmd
}

// Run executes the jobs watch command
func (w *JobsWatchCommand) Run(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	job, err := followJob(cmd, w.parent.Root().Container().JobTracker(), jobID)
	if err != nil {
		return err
	}

	if job.Status == api.StatusFailed {
		msg := job.ErrorMessage
		if msg == "" {
			msg = "no error message"
		}
		return fmt.Errorf("%w: %s", generate.ErrGenerationFailed, msg)
	}

	fmt.Println("✓ Job complete!")
	if job.AssetID != nil {
		fmt.Printf("  Asset ID: %d\n", *job.AssetID)
	}
	if job.ResultURL != "" {
		fmt.Printf("  URL:      %s\n", w.parent.Root().resolveURL(job.ResultURL))
	}

	return nil
}
