package devserver

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/assetforge/forge-cli/internal/api"
)

// Generation kinds as they appear in the submit routes.
const (
	kindTextToImage  = "text-to-image"
	kindTextToVideo  = "text-to-video"
	kindImageToVideo = "image-to-video"
)

// DelayRange bounds the simulated generation time for one asset kind.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

func (d DelayRange) pick() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min)))
}

// Pool runs queued generation jobs on a fixed set of workers. Each job
// sleeps for a kind-dependent delay, then either fails (safety trigger) or
// writes a placeholder file and records the asset.
type Pool struct {
	store      *Store
	storageDir string
	imageDelay DelayRange
	videoDelay DelayRange
	logger     *log.Logger

	queue chan string
	wg    sync.WaitGroup
}

// NewPool creates a Pool writing results under storageDir.
func NewPool(store *Store, storageDir string, imageDelay, videoDelay DelayRange, logger *log.Logger) *Pool {
	return &Pool{
		store:      store,
		storageDir: storageDir,
		imageDelay: imageDelay,
		videoDelay: videoDelay,
		logger:     logger,
		queue:      make(chan string, 256),
	}
}

// Start launches workers that run until ctx is canceled.
func (p *Pool) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Enqueue hands a job to the workers. A full queue means the pool is stuck,
// so the job fails immediately instead of blocking the request handler.
func (p *Pool) Enqueue(jobID string) {
	select {
	case p.queue <- jobID:
	default:
		p.store.FailJob(jobID, "generation queue is full")
	}
}

func (p *Pool) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-p.queue:
			p.process(ctx, jobID)
		}
	}
}

func (p *Pool) process(ctx context.Context, jobID string) {
	rec, ok := p.store.jobInput(jobID)
	if !ok {
		return
	}

	p.store.MarkProcessing(jobID)
	p.logger.Printf("job %s: processing (%s, model=%s)", jobID, rec.Kind, rec.Model)

	if reason, blocked := safetyViolation(rec.Prompt); blocked {
		p.store.FailJob(jobID, reason)
		p.logger.Printf("job %s: failed: %s", jobID, reason)
		return
	}

	delay := p.imageDelay
	if assetTypeFor(rec.Kind) == "video" {
		delay = p.videoDelay
	}
	select {
	case <-ctx.Done():
		p.store.FailJob(jobID, "server shutting down")
		return
	case <-time.After(delay.pick()):
	}

	asset, err := p.writeResult(rec)
	if err != nil {
		p.store.FailJob(jobID, "failed to store generated asset")
		p.logger.Printf("job %s: %v", jobID, err)
		return
	}

	p.store.CompleteJob(jobID, asset.ID, asset.FilePath)
	p.logger.Printf("job %s: completed (asset %d)", jobID, asset.ID)
}

func (p *Pool) writeResult(rec *jobRecord) (api.Asset, error) {
	assetType := assetTypeFor(rec.Kind)

	var relPath string
	var data []byte
	if assetType == "image" {
		relPath = filepath.Join("images", rec.ID+".png")
		data = []byte("mock-image-data")
	} else {
		relPath = filepath.Join("videos", rec.ID+".mp4")
		data = []byte("mock-video-data")
	}

	fullPath := filepath.Join(p.storageDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return api.Asset{}, fmt.Errorf("create storage dir: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return api.Asset{}, fmt.Errorf("write asset file: %w", err)
	}

	size := int64(len(data))
	asset := api.Asset{
		JobID:     rec.ID,
		FilePath:  "/storage/" + filepath.ToSlash(relPath),
		Prompt:    NormalizePrompt(rec.Prompt),
		Model:     rec.Model,
		AssetType: assetType,
		FileSize:  &size,
		UserID:    rec.UserID,
	}
	if assetType == "video" {
		duration := videoDuration(rec.Options)
		asset.Duration = &duration
	}
	return p.store.CreateAsset(asset), nil
}

// assetTypeFor maps a generation kind to the type of asset it produces.
func assetTypeFor(kind string) string {
	if kind == kindTextToImage {
		return "image"
	}
	return "video"
}

// safetyViolation simulates the upstream content filter. Prompts containing
// "unsafe" are rejected so failure handling can be exercised end to end.
func safetyViolation(prompt string) (string, bool) {
	if strings.Contains(NormalizePrompt(prompt), "unsafe") {
		return "The prompt was blocked by the content safety policy. Please rephrase and try again.", true
	}
	return "", false
}

// videoDuration reads the requested clip length from the job options.
// JSON submissions carry numbers, multipart submissions carry strings.
func videoDuration(options map[string]interface{}) float64 {
	switch v := options["duration_seconds"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return 5
}
