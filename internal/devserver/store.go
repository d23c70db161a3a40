package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/assetforge/forge-cli/internal/api"
)

var (
	// ErrEmailTaken is returned when a signup reuses an existing email.
	ErrEmailTaken = errors.New("email already in use")

	// ErrUsernameTaken is returned when a signup reuses an existing username.
	ErrUsernameTaken = errors.New("username already in use")

	// ErrRefreshReused marks a refresh token that was already spent or never
	// issued. Reuse of a rotated token revokes the whole family.
	ErrRefreshReused = errors.New("token_reuse_detected")

	// ErrRefreshExpired marks a refresh token past its expiry.
	ErrRefreshExpired = errors.New("refresh token expired")
)

// User is a registered account.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
}

// jobRecord is the server-side state of one generation job.
type jobRecord struct {
	ID           string
	UserID       int64
	Kind         string
	Prompt       string
	Model        string
	Options      map[string]interface{}
	Payload      []byte
	MIMEType     string
	Status       api.JobStatus
	AssetID      *int64
	ResultURL    string
	ErrorMessage string
	CreatedAt    time.Time
}

// refreshRecord is an active refresh token.
type refreshRecord struct {
	UserID    int64
	ExpiresAt time.Time
}

// Store holds all server state in memory: accounts, refresh tokens, jobs,
// assets, and job subscriptions. Everything resets on restart.
type Store struct {
	mu sync.Mutex

	nextUserID  int64
	nextAssetID int64
	nextSubID   int64

	usersByID    map[int64]*User
	usersByEmail map[string]*User
	usersByName  map[string]*User

	refresh map[string]refreshRecord
	// spent remembers rotated-away tokens so a replay can be traced back to
	// its owner and the whole family revoked.
	spent map[string]int64

	jobs map[string]*jobRecord
	subs map[string]map[int64]chan api.Job

	assets []api.Asset
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nextUserID:   1,
		nextAssetID:  1,
		usersByID:    make(map[int64]*User),
		usersByEmail: make(map[string]*User),
		usersByName:  make(map[string]*User),
		refresh:      make(map[string]refreshRecord),
		spent:        make(map[string]int64),
		jobs:         make(map[string]*jobRecord),
		subs:         make(map[string]map[int64]chan api.Job),
	}
}

// CreateUser registers an account. Email and username must be unique.
func (s *Store) CreateUser(email, username, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByEmail[email]; ok {
		return nil, ErrEmailTaken
	}
	if _, ok := s.usersByName[username]; ok {
		return nil, ErrUsernameTaken
	}

	user := &User{
		ID:           s.nextUserID,
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
	}
	s.nextUserID++

	s.usersByID[user.ID] = user
	s.usersByEmail[email] = user
	s.usersByName[username] = user
	return user, nil
}

// UserByEmail looks up an account by email.
func (s *Store) UserByEmail(email string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByEmail[email]
	return user, ok
}

// UserByID looks up an account by ID.
func (s *Store) UserByID(id int64) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByID[id]
	return user, ok
}

// CreateRefresh stores a newly issued refresh token.
func (s *Store) CreateRefresh(token string, userID int64, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token] = refreshRecord{UserID: userID, ExpiresAt: expiresAt}
}

// ConsumeRefresh spends a refresh token for rotation. A valid token is
// single-use: it moves to the spent set and its owner is returned. Replaying
// a spent token revokes every active token of its owner and fails with
// ErrRefreshReused. Unknown tokens fail the same way.
func (s *Store) ConsumeRefresh(token string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.refresh[token]
	if !ok {
		if userID, wasSpent := s.spent[token]; wasSpent {
			s.revokeAllLocked(userID)
			return 0, ErrRefreshReused
		}
		return 0, ErrRefreshReused
	}

	delete(s.refresh, token)
	s.spent[token] = rec.UserID

	if now.After(rec.ExpiresAt) {
		return 0, ErrRefreshExpired
	}
	return rec.UserID, nil
}

// RevokeRefresh drops a specific token. Unknown tokens are ignored.
func (s *Store) RevokeRefresh(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, token)
}

// RevokeAllRefresh drops every active token belonging to a user.
func (s *Store) RevokeAllRefresh(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokeAllLocked(userID)
}

func (s *Store) revokeAllLocked(userID int64) {
	for token, rec := range s.refresh {
		if rec.UserID == userID {
			delete(s.refresh, token)
		}
	}
}

// CreateJob records a new pending job and returns its submission receipt.
func (s *Store) CreateJob(jobID string, userID int64, kind, prompt, model string, options map[string]interface{}, payload []byte, mimeType string) api.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &jobRecord{
		ID:        jobID,
		UserID:    userID,
		Kind:      kind,
		Prompt:    prompt,
		Model:     model,
		Options:   options,
		Payload:   payload,
		MIMEType:  mimeType,
		Status:    api.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.jobs[jobID] = rec
	return api.Submission{JobID: rec.ID, Status: rec.Status, CreatedAt: rec.CreatedAt}
}

// JobSnapshot returns the current state of a job.
func (s *Store) JobSnapshot(jobID string) (api.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return api.Job{}, false
	}
	return snapshotLocked(rec), true
}

// jobInput returns the fields the worker needs to run a job.
func (s *Store) jobInput(jobID string) (*jobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return nil, false
	}
	copied := *rec
	return &copied, true
}

// MarkProcessing moves a job to processing and notifies watchers.
func (s *Store) MarkProcessing(jobID string) {
	s.updateJob(jobID, func(rec *jobRecord) {
		rec.Status = api.StatusProcessing
	})
}

// CompleteJob moves a job to completed with its result and notifies watchers.
func (s *Store) CompleteJob(jobID string, assetID int64, resultURL string) {
	s.updateJob(jobID, func(rec *jobRecord) {
		rec.Status = api.StatusCompleted
		rec.AssetID = &assetID
		rec.ResultURL = resultURL
	})
}

// FailJob moves a job to failed with an error message and notifies watchers.
func (s *Store) FailJob(jobID, message string) {
	s.updateJob(jobID, func(rec *jobRecord) {
		rec.Status = api.StatusFailed
		rec.ErrorMessage = message
	})
}

func (s *Store) updateJob(jobID string, mutate func(*jobRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return
	}
	mutate(rec)

	snapshot := snapshotLocked(rec)
	for _, ch := range s.subs[jobID] {
		// A job only ever emits a handful of updates, so the subscriber
		// buffer never fills in practice.
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// WatchJob subscribes to a job's updates. The returned cancel must be called
// to release the subscription.
func (s *Store) WatchJob(jobID string) (<-chan api.Job, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return nil, nil, false
	}

	id := s.nextSubID
	s.nextSubID++

	ch := make(chan api.Job, 16)
	if s.subs[jobID] == nil {
		s.subs[jobID] = make(map[int64]chan api.Job)
	}
	s.subs[jobID][id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ch, ok := s.subs[jobID][id]; ok {
			delete(s.subs[jobID], id)
			close(ch)
		}
	}
	return ch, cancel, true
}

// JobStats returns job counts by status.
func (s *Store) JobStats() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]int{
		"pending":    0,
		"processing": 0,
		"completed":  0,
		"failed":     0,
	}
	for _, rec := range s.jobs {
		stats[string(rec.Status)]++
	}
	return stats
}

// CreateAsset assigns an ID and creation time to a completed generation's
// output and records it.
func (s *Store) CreateAsset(asset api.Asset) api.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset.ID = s.nextAssetID
	asset.CreatedAt = time.Now().UTC()
	s.nextAssetID++

	s.assets = append(s.assets, asset)
	return asset
}

// FindCachedAsset looks for a prior generation with the same normalized
// prompt, model, and type, newest first.
func (s *Store) FindCachedAsset(prompt, model, assetType string) (api.Asset, bool) {
	normalized := NormalizePrompt(prompt)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.assets) - 1; i >= 0; i-- {
		asset := s.assets[i]
		if asset.Prompt == normalized && asset.Model == model && asset.AssetType == assetType && asset.FilePath != "" {
			return asset, true
		}
	}
	return api.Asset{}, false
}

// ListAssets returns a page of a user's assets, newest first.
func (s *Store) ListAssets(userID int64, skip, limit int) []api.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := make([]api.Asset, 0, len(s.assets))
	for _, asset := range s.assets {
		if asset.UserID == userID {
			owned = append(owned, asset)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if skip >= len(owned) {
		return []api.Asset{}
	}
	owned = owned[skip:]
	if limit > 0 && limit < len(owned) {
		owned = owned[:limit]
	}
	return owned
}

// AssetByID returns a user's asset. Other users' assets read as not found.
func (s *Store) AssetByID(id, userID int64) (api.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, asset := range s.assets {
		if asset.ID == id && asset.UserID == userID {
			return asset, true
		}
	}
	return api.Asset{}, false
}

// DeleteAsset removes a user's asset and returns the removed record so the
// caller can delete the stored file.
func (s *Store) DeleteAsset(id, userID int64) (api.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, asset := range s.assets {
		if asset.ID == id && asset.UserID == userID {
			s.assets = append(s.assets[:i], s.assets[i+1:]...)
			return asset, true
		}
	}
	return api.Asset{}, false
}

// NormalizePrompt canonicalizes a prompt for cache lookups and storage.
func NormalizePrompt(prompt string) string {
	return strings.ToLower(strings.TrimSpace(prompt))
}

func snapshotLocked(rec *jobRecord) api.Job {
	job := api.Job{
		ID:           rec.ID,
		Status:       rec.Status,
		ResultURL:    rec.ResultURL,
		ErrorMessage: rec.ErrorMessage,
	}
	if rec.AssetID != nil {
		id := *rec.AssetID
		job.AssetID = &id
	}
	return job
}
