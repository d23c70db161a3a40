// Package api provides the HTTP client for communicating with the AssetForge API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenSource supplies the access credential attached to outgoing requests.
// Implementations must be safe for concurrent use.
type TokenSource interface {
	// AccessToken returns the current access token and whether one is held.
	AccessToken() (string, bool)
}

// Refresher exchanges the durable refresh credential for a new access
// credential. The client invokes it at most once per logical request.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Client is an HTTP client for the AssetForge API. It attaches the bearer
// credential from its TokenSource to every request and transparently retries
// a request exactly once after a successful token refresh when the server
// answers 401.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	refresher  Refresher
}

// NewClient creates a new API client. tokens may be nil for a client that
// only calls unauthenticated endpoints; refresher may be nil to disable the
// silent refresh-and-retry behavior.
func NewClient(baseURL string, tokens TokenSource, refresher Refresher) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens:    tokens,
		refresher: refresher,
	}
}

// BaseURL returns the base URL the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs a JSON request to the API
func (c *Client) Request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}
	return c.Do(ctx, method, path, "application/json", jsonBody, result)
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.Request(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.Request(ctx, http.MethodPost, path, body, result)
}

// Do performs a request with a prebuilt body and content type. The body is
// held as a byte slice so the single post-refresh resend can replay it; this
// is what makes multipart uploads retryable.
//
// If the response is 401, a credential was attached, and a refresher is
// configured, Do asks the refresher for a new credential and resends the
// request exactly once. A second 401, or a failed refresh, is returned to
// the caller as-is so a server that always rejects cannot cause a retry
// loop. Requests sent without a credential are never refreshed.
func (c *Client) Do(ctx context.Context, method, path, contentType string, body []byte, result interface{}) error {
	status, respBody, attached, err := c.send(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && attached && c.refresher != nil {
		if refreshErr := c.refresher.Refresh(ctx); refreshErr == nil {
			status, respBody, _, err = c.send(ctx, method, path, contentType, body)
			if err != nil {
				return err
			}
		}
	}

	if status >= 400 {
		return decodeError(status, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// send issues a single HTTP request and reads the full response body.
// It reports whether a bearer credential was attached.
func (c *Client) send(ctx context.Context, method, path, contentType string, body []byte) (status int, respBody []byte, attached bool, err error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		if token, ok := c.tokens.AccessToken(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
			attached = true
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, attached, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, attached, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, attached, nil
}

// ErrorResponse is the error payload the API returns for non-2xx statuses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Error represents an error returned by the API
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Detail)
}

// IsUnauthorized checks if the error is an unauthorized error
func (e *Error) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// IsNotFound checks if the error is a not found error
func (e *Error) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// decodeError builds an *Error from a non-2xx response body.
func decodeError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
		return &Error{Status: status, Detail: errResp.Detail}
	}
	return &Error{Status: status, Detail: fmt.Sprintf("request failed with status %d", status)}
}
