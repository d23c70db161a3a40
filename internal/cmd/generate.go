package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/assetforge/forge-cli/internal/api"
	"github.com/assetforge/forge-cli/internal/config"
	"github.com/assetforge/forge-cli/internal/generate"
	iface "github.com/assetforge/forge-cli/internal/service/interface"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

// GenerateCommand represents the generate command group
type GenerateCommand struct {
	root *RootCommand
	cmd  *cobra.Command

	// Subcommands
	imageCmd *GenerateImageCommand
	videoCmd *GenerateVideoCommand
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(root *RootCommand) *GenerateCommand {
	g := &GenerateCommand{
		root: root,
	}

	g.cmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate images and videos",
		Long: `Generate images and videos from text prompts.

Generation runs as an asynchronous job on the server. By default the CLI
follows the job and prints each status change until it finishes; use
--no-wait to detach after submission.`,
	}

	// Initialize subcommands
	g.imageCmd = NewGenerateImageCommand(g)
	g.videoCmd = NewGenerateVideoCommand(g)

	// Add subcommands
	g.cmd.AddCommand(g.imageCmd.Command())
	g.cmd.AddCommand(g.videoCmd.Command())

	return g
}

// Command returns the underlying cobra command
func (g *GenerateCommand) Command() *cobra.Command {
	return g.cmd
}

// Root returns the parent root command
func (g *GenerateCommand) Root() *RootCommand {
	return g.root
}

// defaultImageModel returns the configured default image model
func (g *GenerateCommand) defaultImageModel() string {
	if mgr := g.root.Container().ConfigManager(); mgr != nil {
		if cfg, err := mgr.Load(); err == nil && cfg.ImageModel != "" {
			return cfg.ImageModel
		}
	}
	return config.DefaultImageModel
}

// defaultVideoModel returns the configured default video model
func (g *GenerateCommand) defaultVideoModel() string {
	if mgr := g.root.Container().ConfigManager(); mgr != nil {
		if cfg, err := mgr.Load(); err == nil && cfg.VideoModel != "" {
			return cfg.VideoModel
		}
	}
	return config.DefaultVideoModel
}

// finishJob resolves a submission to its outcome: report immediately when
// the server answered from a prior identical generation, detach when asked
// to, and otherwise follow the job to its terminal state.
func (g *GenerateCommand) finishJob(cmd *cobra.Command, sub *api.Submission, noWait, open bool) error {
	container := g.root.Container()

	// A submission that arrives terminal needs no tracking.
	if sub.Status.Terminal() {
		job, err := container.GenerateService().Job(cmd.Context(), sub.JobID)
		if err != nil {
			return err
		}
		fmt.Printf("Job %s already finished (served from cache)\n", sub.JobID)
		return g.reportJob(job, open)
	}

	fmt.Printf("Submitted job %s\n", sub.JobID)

	if noWait {
		fmt.Printf("\nFollow progress with: forge jobs watch %s\n", sub.JobID)
		return nil
	}

	job, err := followJob(cmd, container.JobTracker(), sub.JobID)
	if err != nil {
		return err
	}
	return g.reportJob(job, open)
}

// reportJob prints the outcome of a finished job. A failed job becomes an
// error carrying the server's message.
func (g *GenerateCommand) reportJob(job *api.Job, open bool) error {
	if job.Status == api.StatusFailed {
		msg := job.ErrorMessage
		if msg == "" {
			msg = "no error message"
		}
		return fmt.Errorf("%w: %s", generate.ErrGenerationFailed, msg)
	}

	fmt.Println("✓ Generation complete!")
	if job.AssetID != nil {
		fmt.Printf("  Asset ID: %d\n", *job.AssetID)
	}
	if job.ResultURL != "" {
		fmt.Printf("  URL:      %s\n", g.root.resolveURL(job.ResultURL))
	}
	if job.AssetID != nil {
		fmt.Printf("\nView details with: forge assets get %d\n", *job.AssetID)
	}

	if open && job.ResultURL != "" {
		if err := browser.OpenURL(g.root.resolveURL(job.ResultURL)); err != nil {
			fmt.Fprintf(os.Stderr, "Could not open browser: %v\n", err)
		}
	}

	return nil
}

// followJob consumes tracker updates for jobID, printing each status
// transition, until the job ends. It returns the terminal snapshot.
func followJob(cmd *cobra.Command, tracker iface.JobTracker, jobID string) (*api.Job, error) {
	updates := tracker.Track(cmd.Context(), jobID)

	var last api.JobStatus
	for update := range updates {
		if update.Err != nil {
			return nil, fmt.Errorf("lost track of job %s: %v\n\nCheck it later with 'forge jobs get %s'", jobID, update.Err, jobID)
		}
		if update.Job.Status != last {
			fmt.Printf("  status: %s\n", update.Job.Status)
			last = update.Job.Status
		}
		if update.Job.Status.Terminal() {
			job := update.Job
			return &job, nil
		}
	}

	return nil, fmt.Errorf("tracking stopped before job %s finished", jobID)
}

// GenerateImageCommand represents the generate image command
type GenerateImageCommand struct {
	parent *GenerateCommand
	cmd    *cobra.Command
}

// NewGenerateImageCommand creates a new generate image command
func NewGenerateImageCommand(parent *GenerateCommand) *GenerateImageCommand {
	i := &GenerateImageCommand{
		parent: parent,
	}

	i.cmd = &cobra.Command{
		Use:   "image <prompt>",
		Short: "Generate an image from a text prompt",
		Long: `Generate an image from a text prompt.

The job runs asynchronously on the server; the CLI follows it to completion
unless --no-wait is given. Options left unset are decided by the server.

Examples:
  forge generate image "a lighthouse at dawn"
  forge generate image "a lighthouse at dawn" --count 2 --aspect-ratio 16:9
  forge generate image "a lighthouse at dawn" --no-wait`,
		Args: cobra.ExactArgs(1),
		RunE: i.Run,
	}

	i.cmd.Flags().String("model", "", "Model to generate with (defaults to the configured image model)")
	i.cmd.Flags().Int("count", 1, "Number of samples to generate")
	i.cmd.Flags().String("aspect-ratio", "", "Aspect ratio, e.g. 1:1 or 16:9")
	i.cmd.Flags().Bool("no-wait", false, "Detach after submission instead of following the job")
	i.cmd.Flags().Bool("open", false, "Open the result in a browser when the job completes")

	return i
}

// Command returns the underlying cobra command
func (i *GenerateImageCommand) Command() *cobra.Command {
	return i.cmd
}

// Run executes the generate image command
func (i *GenerateImageCommand) Run(cmd *cobra.Command, args []string) error {
	if _, err := requireSession(cmd, i.parent.Root()); err != nil {
		return err
	}

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = i.parent.defaultImageModel()
	}

	options := map[string]interface{}{}
	if cmd.Flags().Changed("count") {
		count, _ := cmd.Flags().GetInt("count")
		options["sample_count"] = count
	}
	if cmd.Flags().Changed("aspect-ratio") {
		ratio, _ := cmd.Flags().GetString("aspect-ratio")
		options["aspect_ratio"] = ratio
	}

	generateService := i.parent.Root().Container().GenerateService()

	sub, err := generateService.Submit(cmd.Context(), generate.Request{
		Kind:    generate.TextToImage,
		Prompt:  args[0],
		Model:   model,
		Options: options,
	})
	if err != nil {
		return err
	}

	noWait, _ := cmd.Flags().GetBool("no-wait")
	open, _ := cmd.Flags().GetBool("open")
	return i.parent.finishJob(cmd, sub, noWait, open)
}

// GenerateVideoCommand represents the generate video command
type GenerateVideoCommand struct {
	parent *GenerateCommand
	cmd    *cobra.Command
}

// NewGenerateVideoCommand creates a new generate video command
func NewGenerateVideoCommand(parent *GenerateCommand) *GenerateVideoCommand {
	v := &GenerateVideoCommand{
		parent: parent,
	}

	v.cmd = &cobra.Command{
		Use:   "video <prompt>",
		Short: "Generate a video from a text prompt",
		Long: `Generate a video from a text prompt, optionally conditioned on an image.

With --image the given file is uploaded and the video animates it; without
it the video is generated from the prompt alone.

Examples:
  forge generate video "waves rolling onto a beach"
  forge generate video "waves rolling onto a beach" --duration 8
  forge generate video "bring this to life" --image ./photo.png`,
		Args: cobra.ExactArgs(1),
		RunE: v.Run,
	}

	v.cmd.Flags().String("model", "", "Model to generate with (defaults to the configured video model)")
	v.cmd.Flags().Int("duration", 0, "Video duration in seconds")
	v.cmd.Flags().String("aspect-ratio", "", "Aspect ratio, e.g. 16:9")
	v.cmd.Flags().String("image", "", "Path to an image to animate")
	v.cmd.Flags().Bool("no-wait", false, "Detach after submission instead of following the job")
	v.cmd.Flags().Bool("open", false, "Open the result in a browser when the job completes")

	return v
}

// Command returns the underlying cobra command
func (v *GenerateVideoCommand) Command() *cobra.Command {
	return v.cmd
}

// Run executes the generate video command
func (v *GenerateVideoCommand) Run(cmd *cobra.Command, args []string) error {
	if _, err := requireSession(cmd, v.parent.Root()); err != nil {
		return err
	}

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = v.parent.defaultVideoModel()
	}

	options := map[string]interface{}{}
	if cmd.Flags().Changed("duration") {
		duration, _ := cmd.Flags().GetInt("duration")
		options["duration_seconds"] = duration
	}
	if cmd.Flags().Changed("aspect-ratio") {
		ratio, _ := cmd.Flags().GetString("aspect-ratio")
		options["aspect_ratio"] = ratio
	}

	req := generate.Request{
		Kind:    generate.TextToVideo,
		Prompt:  args[0],
		Model:   model,
		Options: options,
	}

	imagePath, _ := cmd.Flags().GetString("image")
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image %s: %w", imagePath, err)
		}
		req.Kind = generate.ImageToVideo
		req.Payload = &generate.Payload{
			Filename:    filepath.Base(imagePath),
			ContentType: mime.TypeByExtension(filepath.Ext(imagePath)),
			Data:        data,
		}
	}

	generateService := v.parent.Root().Container().GenerateService()

	sub, err := generateService.Submit(cmd.Context(), req)
	if err != nil {
		return err
	}

	noWait, _ := cmd.Flags().GetBool("no-wait")
	open, _ := cmd.Flags().GetBool("open")
	return v.parent.finishJob(cmd, sub, noWait, open)
}
