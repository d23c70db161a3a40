package api

import "time"

// User represents an AssetForge account as returned by the auth endpoints.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// TokenPair is the credential pair issued by login and refresh.
// The access token is short-lived and held in memory only; the refresh
// token is durable and rotated on every exchange.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// JobStatus is the lifecycle state the service reports for a generation job.
type JobStatus string

// Job statuses as they appear on the wire.
const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final, i.e. no further updates
// will ever follow it.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is a read handle on a server-owned generation job. Only the server
// mutates it; clients observe snapshots until a terminal status.
type Job struct {
	ID           string    `json:"job_id"`
	Status       JobStatus `json:"status"`
	AssetID      *int64    `json:"asset_id,omitempty"`
	ResultURL    string    `json:"result_url,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Submission is the response to a generation request. Status may already be
// terminal when the service satisfied the request from a prior identical
// generation; callers must check Status.Terminal() before tracking.
type Submission struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Asset is the immutable record of a completed generation. Unlike the other
// payloads, asset fields travel in camelCase on the wire.
type Asset struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"jobId"`
	FilePath  string    `json:"filePath"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	AssetType string    `json:"assetType"`
	FileSize  *int64    `json:"fileSize,omitempty"`
	Duration  *float64  `json:"duration,omitempty"`
	UserID    int64     `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Health is the service health report, including job counts by status.
type Health struct {
	Status string         `json:"status"`
	Jobs   map[string]int `json:"jobs"`
}
