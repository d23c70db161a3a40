package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/assetforge/forge-cli/internal/api"
)

func (s *Server) handleTextToImage(w http.ResponseWriter, r *http.Request) {
	s.handleTextSubmission(w, r, kindTextToImage)
}

func (s *Server) handleTextToVideo(w http.ResponseWriter, r *http.Request) {
	s.handleTextSubmission(w, r, kindTextToVideo)
}

// handleTextSubmission decodes a JSON generation request. Fields other than
// prompt and model pass through as generation options.
func (s *Server) handleTextSubmission(w http.ResponseWriter, r *http.Request, kind string) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt, _ := raw["prompt"].(string)
	model, _ := raw["model"].(string)
	delete(raw, "prompt")
	delete(raw, "model")

	s.submitJob(w, userFrom(r), kind, prompt, model, raw, nil, "")
}

func (s *Server) handleImageToVideo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "an image file is required")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "failed to read image upload")
		return
	}

	options := make(map[string]interface{})
	for key, values := range r.MultipartForm.Value {
		if key == "prompt" || key == "model" || len(values) == 0 {
			continue
		}
		options[key] = values[0]
	}

	s.submitJob(w, userFrom(r), kindImageToVideo, r.FormValue("prompt"), r.FormValue("model"),
		options, payload, header.Header.Get("Content-Type"))
}

// submitJob validates a generation request and either answers it from the
// asset cache or queues it for the workers. Cached answers return a job that
// is already completed; image-to-video never caches because the uploaded
// frame changes the output.
func (s *Server) submitJob(w http.ResponseWriter, user *User, kind, prompt, model string, options map[string]interface{}, payload []byte, mimeType string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		respondDetail(w, http.StatusUnprocessableEntity, "prompt is required")
		return
	}
	if model == "" {
		respondDetail(w, http.StatusUnprocessableEntity, "model is required")
		return
	}

	jobID := uuid.NewString()

	if kind != kindImageToVideo {
		if cached, ok := s.store.FindCachedAsset(prompt, model, assetTypeFor(kind)); ok {
			sub := s.store.CreateJob(jobID, user.ID, kind, prompt, model, options, nil, "")
			s.store.CompleteJob(jobID, cached.ID, cached.FilePath)
			sub.Status = api.StatusCompleted
			s.logger.Printf("job %s: served from cache (asset %d)", jobID, cached.ID)
			respondJSON(w, http.StatusOK, sub)
			return
		}
	}

	sub := s.store.CreateJob(jobID, user.ID, kind, prompt, model, options, payload, mimeType)
	s.pool.Enqueue(jobID)
	s.logger.Printf("job %s: queued (%s, model=%s)", jobID, kind, model)
	respondJSON(w, http.StatusOK, sub)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.store.JobSnapshot(chi.URLParam(r, "jobID"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// handleJobStream serves job updates as Server-Sent Events: the current
// snapshot immediately, then every change until a terminal status closes
// the stream. Subscribing before reading the snapshot means no update can
// slip between the two.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondDetail(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, cancel, ok := s.store.WatchJob(jobID)
	if !ok {
		respondDetail(w, http.StatusNotFound, "Job not found")
		return
	}
	defer cancel()

	setupSSEHeaders(w)

	snapshot, _ := s.store.JobSnapshot(jobID)
	sendSSEChunk(w, flusher, snapshot)
	if snapshot.Status.Terminal() {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-updates:
			if !ok {
				return
			}
			sendSSEChunk(w, flusher, job)
			if job.Status.Terminal() {
				return
			}
		}
	}
}
