package generate

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/assetforge/forge-cli/internal/api"
)

// ErrConnectionLost marks a status transport that dropped before the job
// reached a terminal state. Observers never reconnect on their own; callers
// decide whether to re-observe or fall back to a single fetch.
var ErrConnectionLost = errors.New("status connection lost")

// StatusObserver delivers status snapshots for one job, in order, until the
// first terminal snapshot. Observe returns nil after a terminal snapshot,
// ctx.Err() on cancellation, and an error wrapping ErrConnectionLost when
// the transport fails first.
type StatusObserver interface {
	Observe(ctx context.Context, jobID string, emit func(api.Job)) error
}

// PollingObserver observes job status by fetching the status endpoint on a
// fixed interval, starting with an immediate fetch.
type PollingObserver struct {
	baseURL    string
	interval   time.Duration
	httpClient *http.Client
}

// NewPollingObserver creates a polling observer against the given API base
// URL. Status observation is unauthenticated, so the observer owns a plain
// HTTP client and never touches the credential store.
func NewPollingObserver(baseURL string, interval time.Duration) *PollingObserver {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &PollingObserver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		interval:   interval,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Observe fetches the job immediately and then once per interval, emitting
// every snapshot until a terminal status. A fetch failure ends the
// observation with ErrConnectionLost.
func (o *PollingObserver) Observe(ctx context.Context, jobID string, emit func(api.Job)) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		job, err := fetchJob(ctx, o.httpClient, o.baseURL, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}

		emit(*job)
		if job.Status.Terminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// fetchJob performs one unauthenticated status request.
func fetchJob(ctx context.Context, client *http.Client, baseURL, jobID string) (*api.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/generate/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status request failed with status %d", resp.StatusCode)
	}

	var job api.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to parse job status: %w", err)
	}
	return &job, nil
}

// StreamObserver observes job status over the server-push stream endpoint.
// Each stream event carries a full job snapshot as JSON.
type StreamObserver struct {
	baseURL    string
	httpClient *http.Client
}

// NewStreamObserver creates a push-stream observer against the given API
// base URL. The client carries no timeout: the stream stays open until the
// job finishes.
func NewStreamObserver(baseURL string) *StreamObserver {
	return &StreamObserver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Observe opens the stream and emits each snapshot until a terminal status.
// If the stream drops, stalls into a malformed event, or closes before a
// terminal snapshot, the observation ends with ErrConnectionLost.
func (o *StreamObserver) Observe(ctx context.Context, jobID string, emit func(api.Job)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/generate/jobs/"+jobID+"/stream", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: stream request failed with status %d", ErrConnectionLost, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data []byte
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, payload...)
		case line == "" && len(data) > 0:
			var job api.Job
			if err := json.Unmarshal(data, &job); err != nil {
				return fmt.Errorf("%w: malformed stream payload: %v", ErrConnectionLost, err)
			}
			data = data[:0]

			emit(job)
			if job.Status.Terminal() {
				return nil
			}
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return fmt.Errorf("%w: stream closed before a terminal status", ErrConnectionLost)
}
