// Package devserver implements an in-memory AssetForge service for local
// development and end-to-end testing of the CLI. It speaks the production
// wire protocol: JWT-authenticated endpoints under /api, mock generation
// with realistic delays, job status over polling and SSE, and static
// serving of generated files under /storage. All state is lost on restart.
package devserver

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/assetforge/forge-cli/internal/api"
)

// Config holds the server settings.
type Config struct {
	Addr       string
	JWTSecret  string
	StorageDir string
	Workers    int
	BcryptCost int
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ImageDelay DelayRange
	VideoDelay DelayRange
}

// DefaultConfig returns the settings used when nothing is overridden.
// The bcrypt cost is the minimum because this server only ever holds
// throwaway development accounts.
func DefaultConfig() Config {
	return Config{
		Addr:       ":8080",
		JWTSecret:  "forge-dev-secret",
		StorageDir: "storage",
		Workers:    5,
		BcryptCost: bcrypt.MinCost,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		ImageDelay: DelayRange{Min: 2 * time.Second, Max: 4 * time.Second},
		VideoDelay: DelayRange{Min: 3 * time.Second, Max: 6 * time.Second},
	}
}

// ConfigFromEnv returns DefaultConfig with FORGED_* environment overrides
// applied. FORGED_FAST=1 shrinks generation delays to tens of milliseconds.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("FORGED_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("FORGED_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("FORGED_STORAGE"); v != "" {
		cfg.StorageDir = v
	}
	if v := os.Getenv("FORGED_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("FORGED_FAST"); v == "1" || strings.EqualFold(v, "true") {
		cfg.ImageDelay = DelayRange{Min: 20 * time.Millisecond, Max: 50 * time.Millisecond}
		cfg.VideoDelay = cfg.ImageDelay
	}
	return cfg
}

// Server wires the store, token issuer, and worker pool behind an HTTP API.
type Server struct {
	cfg    Config
	store  *Store
	hasher *Hasher
	tokens *TokenIssuer
	pool   *Pool
	logger *log.Logger
}

// NewServer creates a Server with an empty store. A nil logger falls back
// to stderr.
func NewServer(cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	store := NewStore()
	return &Server{
		cfg:    cfg,
		store:  store,
		hasher: NewHasher(cfg.BcryptCost),
		tokens: NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL),
		pool:   NewPool(store, cfg.StorageDir, cfg.ImageDelay, cfg.VideoDelay, logger),
		logger: logger,
	}
}

// Start launches the generation workers. They stop when ctx is canceled.
func (s *Server) Start(ctx context.Context) {
	s.pool.Start(ctx, s.cfg.Workers)
}

// Wait blocks until the workers have exited after Start's context ended.
func (s *Server) Wait() {
	s.pool.Wait()
}

// Store exposes the backing store so tests can seed and inspect state.
func (s *Server) Store() *Store {
	return s.store
}

// Router assembles the HTTP API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
			r.With(s.requireUser).Get("/me", s.handleMe)
		})

		r.Route("/generate", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Post("/text-to-image", s.handleTextToImage)
				r.Post("/text-to-video", s.handleTextToVideo)
				r.Post("/image-to-video", s.handleImageToVideo)
			})
			r.Get("/jobs/{jobID}", s.handleJobStatus)
			r.Get("/jobs/{jobID}/stream", s.handleJobStream)
		})

		r.Route("/assets", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/", s.handleListAssets)
			r.Get("/{assetID}", s.handleGetAsset)
			r.Delete("/{assetID}", s.handleDeleteAsset)
		})
	})

	r.Handle("/storage/*", http.StripPrefix("/storage/", http.FileServer(http.Dir(s.cfg.StorageDir))))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, api.Health{Status: "healthy", Jobs: s.store.JobStats()})
}
