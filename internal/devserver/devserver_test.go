package devserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/assetforge/forge-cli/internal/api"
)

type harness struct {
	server *Server
	http   *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := DefaultConfig()
	cfg.StorageDir = t.TempDir()
	cfg.Workers = 2
	cfg.AccessTTL = time.Minute
	cfg.RefreshTTL = time.Hour
	cfg.ImageDelay = DelayRange{Min: 5 * time.Millisecond, Max: 10 * time.Millisecond}
	cfg.VideoDelay = cfg.ImageDelay

	srv := NewServer(cfg, log.New(io.Discard, "", 0))
	ctx, cancel := context.WithCancel(context.Background())
	srv.Start(ctx)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		srv.Wait()
	})

	return &harness{server: srv, http: ts}
}

// do performs one request and returns the status code and body. An empty
// token sends the request unauthenticated.
func (h *harness) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, h.http.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.http.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, raw
}

func detailOf(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error detail from %q: %v", body, err)
	}
	return resp.Detail
}

// account registers a fresh user and returns a logged-in token pair.
func (h *harness) account(t *testing.T, email, username string) api.TokenPair {
	t.Helper()

	status, body := h.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "username": username, "password": "password123",
	})
	if status != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", status, body)
	}

	status, body = h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body %s", status, body)
	}

	var pair api.TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	return pair
}

// submit queues a text generation and returns the submission.
func (h *harness) submit(t *testing.T, token, kind, prompt, model string) api.Submission {
	t.Helper()

	status, body := h.do(t, http.MethodPost, "/api/generate/"+kind, token, map[string]string{
		"prompt": prompt, "model": model,
	})
	if status != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", status, body)
	}

	var sub api.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if sub.JobID == "" {
		t.Fatal("submission carries no job ID")
	}
	return sub
}

// awaitJob polls the status endpoint until the job reaches a terminal state.
func (h *harness) awaitJob(t *testing.T, jobID string) api.Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, body := h.do(t, http.MethodGet, "/api/generate/jobs/"+jobID, "", nil)
		if status != http.StatusOK {
			t.Fatalf("job status = %d, body %s", status, body)
		}
		var job api.Job
		if err := json.Unmarshal(body, &job); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", jobID)
	return api.Job{}
}

func TestSignupLoginMe(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "t@example.com", "username": "tester", "password": "password123",
	})
	if status != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", status, body)
	}
	var user api.User
	if err := json.Unmarshal(body, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.ID == 0 || user.Email != "t@example.com" || user.Username != "tester" {
		t.Errorf("signup user = %+v", user)
	}

	status, body = h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "t@example.com", "password": "password123",
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body %s", status, body)
	}
	var pair api.TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.TokenType != "bearer" {
		t.Errorf("token pair = %+v", pair)
	}

	status, body = h.do(t, http.MethodGet, "/api/auth/me", pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("me status = %d, body %s", status, body)
	}
	var me api.User
	if err := json.Unmarshal(body, &me); err != nil {
		t.Fatalf("decode identity: %v", err)
	}
	if me.ID != user.ID || me.Username != "tester" {
		t.Errorf("me = %+v, want the signed-up user", me)
	}

	status, body = h.do(t, http.MethodGet, "/api/auth/me", "garbage-token", nil)
	if status != http.StatusUnauthorized || detailOf(t, body) != "invalid authentication token" {
		t.Errorf("me with bad token: status = %d, body %s", status, body)
	}

	status, body = h.do(t, http.MethodGet, "/api/auth/me", "", nil)
	if status != http.StatusUnauthorized || detailOf(t, body) != "not authenticated" {
		t.Errorf("me without token: status = %d, body %s", status, body)
	}
}

func TestSignupValidation(t *testing.T) {
	h := newHarness(t)
	h.account(t, "taken@example.com", "taken")

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "short password",
			body:       map[string]string{"email": "a@example.com", "username": "a", "password": "short"},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "email, username and a password of at least 8 characters are required",
		},
		{
			name:       "missing email",
			body:       map[string]string{"username": "a", "password": "password123"},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "email, username and a password of at least 8 characters are required",
		},
		{
			name:       "duplicate email",
			body:       map[string]string{"email": "taken@example.com", "username": "other", "password": "password123"},
			wantStatus: http.StatusConflict,
			wantDetail: "email already in use",
		},
		{
			name:       "duplicate username",
			body:       map[string]string{"email": "other@example.com", "username": "taken", "password": "password123"},
			wantStatus: http.StatusConflict,
			wantDetail: "username already in use",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := h.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", status, tt.wantStatus, body)
			}
			if detail := detailOf(t, body); detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", detail, tt.wantDetail)
			}
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t)
	h.account(t, "t@example.com", "tester")

	status, body := h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "t@example.com", "password": "wrong-password",
	})
	if status != http.StatusUnauthorized || detailOf(t, body) != "invalid email or password" {
		t.Errorf("status = %d, body %s", status, body)
	}
}

func TestRefreshRotationAndReuse(t *testing.T) {
	h := newHarness(t)
	first := h.account(t, "t@example.com", "tester")

	// A refresh rotates the token.
	status, body := h.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": first.RefreshToken,
	})
	if status != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", status, body)
	}
	var second api.TokenPair
	if err := json.Unmarshal(body, &second); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// Replaying the spent token is reuse.
	status, body = h.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": first.RefreshToken,
	})
	if status != http.StatusUnauthorized || detailOf(t, body) != "token_reuse_detected" {
		t.Fatalf("replay: status = %d, body %s", status, body)
	}

	// Reuse revokes the whole family, so the rotated token is dead too.
	status, body = h.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": second.RefreshToken,
	})
	if status != http.StatusUnauthorized {
		t.Errorf("rotated token survived family revocation: status = %d, body %s", status, body)
	}
}

func TestLogoutRevokesRefresh(t *testing.T) {
	h := newHarness(t)
	pair := h.account(t, "t@example.com", "tester")

	status, body := h.do(t, http.MethodPost, "/api/auth/logout", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	if status != http.StatusOK {
		t.Fatalf("logout status = %d, body %s", status, body)
	}

	status, _ = h.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	if status != http.StatusUnauthorized {
		t.Errorf("revoked token still refreshes: status = %d", status)
	}
}

func TestGenerateImageLifecycle(t *testing.T) {
	h := newHarness(t)
	pair := h.account(t, "t@example.com", "tester")

	sub := h.submit(t, pair.AccessToken, "text-to-image", "A Lighthouse At Dusk", "imagen-3.0-fast-generate-001")
	if sub.Status != api.StatusPending {
		t.Errorf("submission status = %q, want pending", sub.Status)
	}

	job := h.awaitJob(t, sub.JobID)
	if job.Status != api.StatusCompleted {
		t.Fatalf("job = %+v, want completed", job)
	}
	if job.AssetID == nil {
		t.Fatal("completed job carries no asset ID")
	}
	wantURL := "/storage/images/" + sub.JobID + ".png"
	if job.ResultURL != wantURL {
		t.Errorf("ResultURL = %q, want %q", job.ResultURL, wantURL)
	}

	// The result file is served from the static mount.
	status, file := h.do(t, http.MethodGet, job.ResultURL, "", nil)
	if status != http.StatusOK || string(file) != "mock-image-data" {
		t.Errorf("result fetch: status = %d, body %q", status, file)
	}

	// The asset record carries the normalized prompt.
	status, body := h.do(t, http.MethodGet, fmt.Sprintf("/api/assets/%d", *job.AssetID), pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("asset status = %d, body %s", status, body)
	}
	var asset api.Asset
	if err := json.Unmarshal(body, &asset); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if asset.JobID != sub.JobID || asset.AssetType != "image" {
		t.Errorf("asset = %+v", asset)
	}
	if asset.Prompt != "a lighthouse at dusk" {
		t.Errorf("Prompt = %q, want normalized", asset.Prompt)
	}
	if asset.FileSize == nil || *asset.FileSize != int64(len("mock-image-data")) {
		t.Errorf("FileSize = %v", asset.FileSize)
	}
}

func TestGenerateValidation(t *testing.T) {
	h := newHarness(t)
	pair := h.account(t, "t@example.com", "tester")

	status, body := h.do(t, http.MethodPost, "/api/generate/text-to-image", pair.AccessToken, map[string]string{
		"model": "imagen-3.0-fast-generate-001",
	})
	if status != http.StatusUnprocessableEntity || detailOf(t, body) != "prompt is required" {
		t.Errorf("missing prompt: status = %d, body %s", status, body)
	}

	status, body = h.do(t, http.MethodPost, "/api/generate/text-to-image", pair.AccessToken, map[string]string{
		"prompt": "a lighthouse",
	})
	if status != http.StatusUnprocessableEntity || detailOf(t, body) != "model is required" {
		t.Errorf("missing model: status = %d, body %s", status, body)
	}

	status, body = h.do(t, http.MethodPost, "/api/generate/text-to-image", "", map[string]string{
		"prompt": "a lighthouse", "model": "imagen-3.0-fast-generate-001",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("unauthenticated submit: status = %d, body %s", status, body)
	}
}

func TestGenerateServedFromCache(t *testing.T) {
	h := newHarness(t)
	pair := h.account(t, "t@example.com", "tester")

	first := h.submit(t, pair.AccessToken, "text-to-image", "  Calm Sea  ", "imagen-3.0-fast-generate-001")
	done := h.awaitJob(t, first.JobID)
	if done.Status != api.StatusCompleted {
		t.Fatalf("first job = %+v", done)
	}

	// Same prompt modulo case and whitespace, same model: answered from
	// cache as an already-completed job.
	second := h.submit(t, pair.AccessToken, "text-to-image", "calm sea", "imagen-3.0-fast-generate-001")
	if second.Status != api.StatusCompleted {
		t.Fatalf("cache hit status = %q, want completed", second.Status)
	}
	job := h.awaitJob(t, second.JobID)
	if job.AssetID == nil || *job.AssetID != *done.AssetID {
		t.Errorf("cached job asset = %v, want %v", job.AssetID, done.AssetID)
	}

	// A different model is a different generation.
	third := h.submit(t, pair.AccessToken, "text-to-image", "calm sea", "imagen-4.0-generate-001")
	if third.Status != api.StatusPending {
		t.Errorf("different model status = %q, want pending", third.Status)
	}
}

func TestGenerateSafetyRejection(t *testing.T) {
	h := newHarness(t)
	pair := h.account(t, "t@example.com", "tester")

	sub := h.submit(t, pair.AccessToken, "text-to-video", "something unsafe happens", "veo-3.0-fast-generate-001")
	job := h.awaitJob(t, sub.JobID)

	if job.Status != api.StatusFailed {
		t.Fatalf("job status = %q, want failed", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "safety") {
		t.Errorf("ErrorMessage = %q", job.ErrorMessage)
	}
	if job.AssetID != nil {
		t.Errorf("failed job carries asset %d", *job.AssetID)
	}
}

func TestJobStream(t *testing.T) {
	h := newHarness(t)
	pair := h.account(t, "t@example.com", "tester")
	sub := h.submit(t, pair.AccessToken, "text-to-image", "a drifting cloud", "imagen-3.0-fast-generate-001")

	resp, err := http.Get(h.http.URL + "/api/generate/jobs/" + sub.JobID + "/stream")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	var frames []api.Job
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var job api.Job
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &job); err != nil {
			t.Fatalf("decode frame %q: %v", line, err)
		}
		frames = append(frames, job)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("stream read: %v", err)
	}

	// The server closes the stream right after the terminal frame.
	if len(frames) == 0 {
		t.Fatal("stream delivered no frames")
	}
	last := frames[len(frames)-1]
	if last.Status != api.StatusCompleted {
		t.Errorf("final frame status = %q, want completed", last.Status)
	}
	for _, frame := range frames[:len(frames)-1] {
		if frame.Status.Terminal() {
			t.Errorf("terminal frame %q was not the last", frame.Status)
		}
	}
}

func TestJobNotFound(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodGet, "/api/generate/jobs/no-such-job", "", nil)
	if status != http.StatusNotFound || detailOf(t, body) != "Job not found" {
		t.Errorf("status = %d, body %s", status, body)
	}

	status, _ = h.do(t, http.MethodGet, "/api/generate/jobs/no-such-job/stream", "", nil)
	if status != http.StatusNotFound {
		t.Errorf("stream status = %d, want 404", status)
	}
}

func TestImageToVideoMultipart(t *testing.T) {
	h := newHarness(t)
	pair := h.account(t, "t@example.com", "tester")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("prompt", "Make It Move")
	writer.WriteField("model", "veo-3.0-fast-generate-001")
	writer.WriteField("duration_seconds", "8")
	part, err := writer.CreateFormFile("image", "still.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("png-bytes"))
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, h.http.URL+"/api/generate/image-to-video", &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	resp, err := h.http.Client().Do(req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var sub api.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}

	job := h.awaitJob(t, sub.JobID)
	if job.Status != api.StatusCompleted {
		t.Fatalf("job = %+v", job)
	}
	wantURL := "/storage/videos/" + sub.JobID + ".mp4"
	if job.ResultURL != wantURL {
		t.Errorf("ResultURL = %q, want %q", job.ResultURL, wantURL)
	}

	status, assetBody := h.do(t, http.MethodGet, fmt.Sprintf("/api/assets/%d", *job.AssetID), pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("asset status = %d", status)
	}
	var asset api.Asset
	if err := json.Unmarshal(assetBody, &asset); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if asset.AssetType != "video" {
		t.Errorf("AssetType = %q, want video", asset.AssetType)
	}
	if asset.Duration == nil || *asset.Duration != 8 {
		t.Errorf("Duration = %v, want 8", asset.Duration)
	}
}

func TestImageToVideoRequiresImage(t *testing.T) {
	h := newHarness(t)
	pair := h.account(t, "t@example.com", "tester")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("prompt", "make it move")
	writer.WriteField("model", "veo-3.0-fast-generate-001")
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, h.http.URL+"/api/generate/image-to-video", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	resp, err := h.http.Client().Do(req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity || detailOf(t, body) != "an image file is required" {
		t.Errorf("status = %d, body %s", resp.StatusCode, body)
	}
}

func TestAssetScopingAndDelete(t *testing.T) {
	h := newHarness(t)
	owner := h.account(t, "owner@example.com", "owner")
	other := h.account(t, "other@example.com", "other")

	sub := h.submit(t, owner.AccessToken, "text-to-image", "a quiet harbor", "imagen-3.0-fast-generate-001")
	job := h.awaitJob(t, sub.JobID)
	assetPath := fmt.Sprintf("/api/assets/%d", *job.AssetID)

	// Another user cannot see or delete the asset.
	status, body := h.do(t, http.MethodGet, "/api/assets", other.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	var foreign []api.Asset
	if err := json.Unmarshal(body, &foreign); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(foreign) != 0 {
		t.Errorf("another user sees %d assets, want 0", len(foreign))
	}
	if status, _ = h.do(t, http.MethodGet, assetPath, other.AccessToken, nil); status != http.StatusNotFound {
		t.Errorf("cross-user get status = %d, want 404", status)
	}
	if status, _ = h.do(t, http.MethodDelete, assetPath, other.AccessToken, nil); status != http.StatusNotFound {
		t.Errorf("cross-user delete status = %d, want 404", status)
	}

	// The owner deletes it, record and file both.
	filePath := filepath.Join(h.server.cfg.StorageDir, "images", sub.JobID+".png")
	if _, err := os.Stat(filePath); err != nil {
		t.Fatalf("result file missing before delete: %v", err)
	}

	status, body = h.do(t, http.MethodDelete, assetPath, owner.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", status, body)
	}
	if _, err := os.Stat(filePath); !os.IsNotExist(err) {
		t.Errorf("result file still on disk after delete: %v", err)
	}
	if status, _ = h.do(t, http.MethodGet, assetPath, owner.AccessToken, nil); status != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", status)
	}
	if status, _ = h.do(t, http.MethodDelete, assetPath, owner.AccessToken, nil); status != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", status)
	}
}

func TestListAssetsPagination(t *testing.T) {
	h := newHarness(t)
	pair := h.account(t, "t@example.com", "tester")

	prompts := []string{"first prompt", "second prompt", "third prompt"}
	var assetIDs []int64
	for _, prompt := range prompts {
		sub := h.submit(t, pair.AccessToken, "text-to-image", prompt, "imagen-3.0-fast-generate-001")
		job := h.awaitJob(t, sub.JobID)
		if job.Status != api.StatusCompleted {
			t.Fatalf("job for %q = %+v", prompt, job)
		}
		assetIDs = append(assetIDs, *job.AssetID)
	}

	list := func(query string) []api.Asset {
		t.Helper()
		status, body := h.do(t, http.MethodGet, "/api/assets"+query, pair.AccessToken, nil)
		if status != http.StatusOK {
			t.Fatalf("list%s status = %d, body %s", query, status, body)
		}
		var assets []api.Asset
		if err := json.Unmarshal(body, &assets); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		return assets
	}

	all := list("")
	if len(all) != 3 {
		t.Fatalf("list returned %d assets, want 3", len(all))
	}
	// Newest first.
	for i, asset := range all {
		if want := assetIDs[len(assetIDs)-1-i]; asset.ID != want {
			t.Errorf("list[%d].ID = %d, want %d", i, asset.ID, want)
		}
	}

	page := list("?skip=1&limit=1")
	if len(page) != 1 || page[0].ID != assetIDs[1] {
		t.Errorf("skip=1 limit=1 = %+v, want the middle asset", page)
	}

	// Out-of-range limits fall back to the default.
	if got := list("?limit=0"); len(got) != 3 {
		t.Errorf("limit=0 returned %d assets, want 3", len(got))
	}
	if got := list("?limit=500"); len(got) != 3 {
		t.Errorf("limit=500 returned %d assets, want 3", len(got))
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("health status = %d", status)
	}

	var health api.Health
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("Status = %q", health.Status)
	}
	for _, key := range []string{"pending", "processing", "completed", "failed"} {
		if _, ok := health.Jobs[key]; !ok {
			t.Errorf("job stats missing %q", key)
		}
	}
}
