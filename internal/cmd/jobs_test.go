package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/assetforge/forge-cli/internal/api"
	"github.com/assetforge/forge-cli/internal/di"
	"github.com/assetforge/forge-cli/internal/generate"
)

func TestJobsGetCommand_Run(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		job        *api.Job
		jobErr     error
		wantOutput []string
		wantErr    bool
		wantErrMsg string
	}{
		{
			name: "shows job detail",
			args: []string{"jobs", "get", "job-1"},
			job: &api.Job{
				ID:        "job-1",
				Status:    api.StatusCompleted,
				AssetID:   assetID(7),
				ResultURL: "/storage/images/job-1.png",
			},
			wantOutput: []string{
				"Job:    job-1",
				"Status: completed",
				"Asset:  7",
				"http://localhost:8080/storage/images/job-1.png",
			},
		},
		{
			name: "shows the failure message",
			args: []string{"jobs", "get", "job-2"},
			job: &api.Job{
				ID:           "job-2",
				Status:       api.StatusFailed,
				ErrorMessage: "blocked by the content safety policy",
			},
			wantOutput: []string{
				"Status: failed",
				"Error:  blocked by the content safety policy",
			},
		},
		{
			name: "outputs json",
			args: []string{"jobs", "get", "job-1", "-o", "json"},
			job: &api.Job{
				ID:     "job-1",
				Status: api.StatusCompleted,
			},
			wantOutput: []string{`"job_id": "job-1"`, `"status": "completed"`},
		},
		{
			name:       "reports a missing job",
			args:       []string{"jobs", "get", "missing-job"},
			jobErr:     &api.Error{Status: 404, Detail: "Job not found"},
			wantErr:    true,
			wantErrMsg: "job not found: missing-job",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create mock services
			mockGenerate := &MockGenerateService{
				JobFunc: func(ctx context.Context, jobID string) (*api.Job, error) {
					if tt.jobErr != nil {
						return nil, tt.jobErr
					}
					return tt.job, nil
				},
			}

			container := di.NewContainerWithServices(
				&MockSessionService{}, mockGenerate, &MockJobTracker{}, &MockAssetService{},
			)

			root := NewRootCommand()
			root.SetContainer(container)

			// Capture stdout
			oldStdout := os.Stdout
			r, w, _ := os.Pipe()
			os.Stdout = w

			root.Command().SetArgs(tt.args)
			err := root.Command().Execute()

			w.Close()
			os.Stdout = oldStdout
			var buf bytes.Buffer
			io.Copy(&buf, r)
			output := buf.String()

			// Check error
			if (err != nil) != tt.wantErr {
				t.Errorf("Run() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.wantErrMsg != "" {
				if !strings.Contains(err.Error(), tt.wantErrMsg) {
					t.Errorf("Error should contain %q, got: %v", tt.wantErrMsg, err)
				}
				return
			}

			// Check output contains expected strings
			for _, want := range tt.wantOutput {
				if !strings.Contains(output, want) {
					t.Errorf("Output should contain %q, got: %s", want, output)
				}
			}
		})
	}
}

func TestJobsWatchCommand_Run(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		trackUpdates []generate.Update
		wantOutput   []string
		wantErr      bool
		wantErrMsg   string
	}{
		{
			name: "follows the job to completion",
			args: []string{"jobs", "watch", "job-1"},
			trackUpdates: []generate.Update{
				{Job: api.Job{ID: "job-1", Status: api.StatusPending}},
				{Job: api.Job{ID: "job-1", Status: api.StatusProcessing}},
				{Job: api.Job{ID: "job-1", Status: api.StatusCompleted, AssetID: assetID(7)}},
			},
			wantOutput: []string{
				"status: pending",
				"status: processing",
				"status: completed",
				"✓ Job complete!",
				"Asset ID: 7",
			},
		},
		{
			name: "reports a failed job",
			args: []string{"jobs", "watch", "job-2"},
			trackUpdates: []generate.Update{
				{Job: api.Job{ID: "job-2", Status: api.StatusFailed, ErrorMessage: "server shutting down"}},
			},
			wantErr:    true,
			wantErrMsg: "generation failed",
		},
		{
			name: "reports lost tracking",
			args: []string{"jobs", "watch", "job-3"},
			trackUpdates: []generate.Update{
				{Job: api.Job{ID: "job-3", Status: api.StatusProcessing}},
				{Err: fmt.Errorf("%w: stream closed before a terminal status", generate.ErrConnectionLost)},
			},
			wantErr:    true,
			wantErrMsg: "lost track of job job-3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create mock services
			mockTracker := &MockJobTracker{
				TrackFunc: func(ctx context.Context, jobID string) <-chan generate.Update {
					return updatesChannel(tt.trackUpdates...)
				},
			}

			container := di.NewContainerWithServices(
				&MockSessionService{}, &MockGenerateService{}, mockTracker, &MockAssetService{},
			)

			root := NewRootCommand()
			root.SetContainer(container)

			// Capture stdout
			oldStdout := os.Stdout
			r, w, _ := os.Pipe()
			os.Stdout = w

			root.Command().SetArgs(tt.args)
			err := root.Command().Execute()

			w.Close()
			os.Stdout = oldStdout
			var buf bytes.Buffer
			io.Copy(&buf, r)
			output := buf.String()

			// Check error
			if (err != nil) != tt.wantErr {
				t.Errorf("Run() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.wantErrMsg != "" {
				if !strings.Contains(err.Error(), tt.wantErrMsg) {
					t.Errorf("Error should contain %q, got: %v", tt.wantErrMsg, err)
				}
				return
			}

			// Check output contains expected strings
			for _, want := range tt.wantOutput {
				if !strings.Contains(output, want) {
					t.Errorf("Output should contain %q, got: %s", want, output)
				}
			}
		})
	}
}
