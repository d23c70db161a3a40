package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assetforge/forge-cli/internal/api"
)

type ctxKey int

const userKey ctxKey = 0

// userFrom returns the authenticated user set by requireUser.
func userFrom(r *http.Request) *User {
	user, _ := r.Context().Value(userKey).(*User)
	return user
}

// requireUser authenticates the request from its bearer token.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			respondDetail(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		userID, err := s.tokens.Validate(token)
		if err != nil {
			respondDetail(w, http.StatusUnauthorized, "invalid authentication token")
			return
		}
		user, ok := s.store.UserByID(userID)
		if !ok {
			respondDetail(w, http.StatusUnauthorized, "invalid authentication token")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || len(req.Password) < 8 {
		respondDetail(w, http.StatusUnprocessableEntity, "email, username and a password of at least 8 characters are required")
		return
	}

	hash, err := s.hasher.Hash([]byte(req.Password))
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := s.store.CreateUser(req.Email, req.Username, hash)
	if err != nil {
		respondDetail(w, http.StatusConflict, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, api.User{ID: user.ID, Email: user.Email, Username: user.Username})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, ok := s.store.UserByEmail(strings.TrimSpace(req.Email))
	if !ok || s.hasher.Compare(user.PasswordHash, []byte(req.Password)) != nil {
		respondDetail(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	s.issueTokens(w, user.ID)
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondDetail(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	userID, err := s.store.ConsumeRefresh(req.RefreshToken, time.Now().UTC())
	if err != nil {
		respondDetail(w, http.StatusUnauthorized, err.Error())
		return
	}

	s.issueTokens(w, userID)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondDetail(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	s.store.RevokeRefresh(req.RefreshToken)
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	respondJSON(w, http.StatusOK, api.User{ID: user.ID, Email: user.Email, Username: user.Username})
}

// issueTokens responds with a fresh access/refresh pair for the user. Every
// pair carries a new single-use refresh token.
func (s *Server) issueTokens(w http.ResponseWriter, userID int64) {
	access, err := s.tokens.Issue(userID)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "failed to issue access token")
		return
	}

	refresh := uuid.NewString()
	s.store.CreateRefresh(refresh, userID, time.Now().UTC().Add(s.cfg.RefreshTTL))

	respondJSON(w, http.StatusOK, api.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	})
}
