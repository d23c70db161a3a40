package devserver

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	if skip < 0 {
		skip = 0
	}
	limit := queryInt(r, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	respondJSON(w, http.StatusOK, s.store.ListAssets(userFrom(r).ID, skip, limit))
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "assetID"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "asset ID must be an integer")
		return
	}

	asset, ok := s.store.AssetByID(id, userFrom(r).ID)
	if !ok {
		respondDetail(w, http.StatusNotFound, "Asset not found")
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "assetID"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "asset ID must be an integer")
		return
	}

	asset, ok := s.store.DeleteAsset(id, userFrom(r).ID)
	if !ok {
		respondDetail(w, http.StatusNotFound, "Asset not found")
		return
	}

	// Remove the stored file as well. A file already gone is not an error.
	if rel, found := strings.CutPrefix(asset.FilePath, "/storage/"); found && rel != "" {
		path := filepath.Join(s.cfg.StorageDir, filepath.FromSlash(rel))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Printf("asset %d: failed to remove %s: %v", id, path, err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "asset deleted"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
