// Package generate implements the client for the asynchronous generation
// API: submitting image and video jobs and observing them to completion.
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/assetforge/forge-cli/internal/api"
)

var (
	// ErrMissingPayload is returned when the chosen generation kind requires
	// a binary payload and none was given. No network call is made.
	ErrMissingPayload = errors.New("generation kind requires an image payload")

	// ErrSubmissionRejected is returned when the server declines a
	// generation request.
	ErrSubmissionRejected = errors.New("generation request rejected")

	// ErrGenerationFailed marks a job the server reported as failed,
	// carrying the server's message.
	ErrGenerationFailed = errors.New("generation failed")
)

// Kind identifies a generation endpoint and its transport shape.
type Kind string

// Generation kinds as they appear in the endpoint path.
const (
	TextToImage  Kind = "text-to-image"
	TextToVideo  Kind = "text-to-video"
	ImageToVideo Kind = "image-to-video"
)

// RequiresPayload reports whether the kind needs a binary image payload and
// therefore submits as a multipart form instead of a JSON body.
func (k Kind) RequiresPayload() bool {
	return k == ImageToVideo
}

// Payload is the binary input for image-conditioned generation kinds.
type Payload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Request is a generation intent prior to submission.
type Request struct {
	Kind    Kind
	Prompt  string
	Model   string
	Options map[string]interface{}
	Payload *Payload
}

// CleanOptions returns a copy of opts with absent values removed: nil values
// and empty strings mean "use the server default" and never reach the wire.
// Cleaning an already-clean set yields an equal set.
func CleanOptions(opts map[string]interface{}) map[string]interface{} {
	cleaned := make(map[string]interface{}, len(opts))
	for key, value := range opts {
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		cleaned[key] = value
	}
	return cleaned
}

// Service submits generation requests through the authenticated API client.
type Service struct {
	client *api.Client
}

// NewService creates a new generation service
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Submit sends the generation request and returns the job handle. The
// returned submission's status may already be terminal when the server
// satisfied the request from a prior identical generation; callers must
// check Status.Terminal() before starting any observation.
func (s *Service) Submit(ctx context.Context, req Request) (*api.Submission, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt must not be empty")
	}
	if req.Kind.RequiresPayload() && (req.Payload == nil || len(req.Payload.Data) == 0) {
		return nil, ErrMissingPayload
	}

	options := CleanOptions(req.Options)

	var submission api.Submission
	var err error
	if req.Kind.RequiresPayload() {
		err = s.submitMultipart(ctx, req, options, &submission)
	} else {
		err = s.submitJSON(ctx, req, options, &submission)
	}
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s", ErrSubmissionRejected, apiErr.Detail)
		}
		return nil, err
	}

	return &submission, nil
}

// Job fetches the current snapshot of a job.
func (s *Service) Job(ctx context.Context, jobID string) (*api.Job, error) {
	var job api.Job
	if err := s.client.Get(ctx, "/generate/jobs/"+jobID, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// submitJSON sends the request as a JSON body with the cleaned options
// merged alongside prompt and model.
func (s *Service) submitJSON(ctx context.Context, req Request, options map[string]interface{}, result *api.Submission) error {
	body := make(map[string]interface{}, len(options)+2)
	for key, value := range options {
		body[key] = value
	}
	body["prompt"] = req.Prompt
	body["model"] = req.Model

	return s.client.Post(ctx, "/generate/"+string(req.Kind), body, result)
}

// submitMultipart sends the request as a multipart form with the payload as
// the image part and each cleaned option flattened to a string field.
func (s *Service) submitMultipart(ctx context.Context, req Request, options map[string]interface{}, result *api.Submission) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("prompt", req.Prompt); err != nil {
		return fmt.Errorf("failed to write prompt field: %w", err)
	}
	if err := writer.WriteField("model", req.Model); err != nil {
		return fmt.Errorf("failed to write model field: %w", err)
	}
	for key, value := range options {
		if err := writer.WriteField(key, fmt.Sprint(value)); err != nil {
			return fmt.Errorf("failed to write %s field: %w", key, err)
		}
	}

	filename := req.Payload.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := req.Payload.ContentType
	if contentType == "" {
		contentType = "image/png"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(req.Payload.Data); err != nil {
		return fmt.Errorf("failed to write image payload: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return s.client.Do(ctx, http.MethodPost, "/generate/"+string(req.Kind), writer.FormDataContentType(), buf.Bytes(), result)
}
