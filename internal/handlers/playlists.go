package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// PlaylistHandler implements playlist management endpoints. Playlists are
// readable by anyone but only their owner may change them.
type PlaylistHandler struct {
	Playlists PlaylistStore
	NowFunc   func() time.Time
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid playlist payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(ctx, w, http.StatusBadRequest, "name is required")
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "a playlist with that name already exists")
			return
		}
		logger.Error("failed to create playlist", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create playlist")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, "playlist created", playlist)
}

// ListMine handles GET /api/v1/playlists.
func (h PlaylistHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	playlists, err := h.Playlists.ListForOwner(ctx, user.ID)
	if err != nil {
		logger.Error("failed to list playlists", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load playlists")
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	respondJSON(ctx, w, http.StatusOK, "playlists", playlists)
}

// ListForUser handles GET /api/v1/users/{id}/playlists. An unknown user id
// yields an empty list rather than a 404.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	ownerID := r.PathValue("id")
	if ownerID == "" {
		respondError(ctx, w, http.StatusBadRequest, "user id is required")
		return
	}

	playlists, err := h.Playlists.ListForOwner(ctx, ownerID)
	if err != nil {
		logger.Error("failed to list playlists", "error", err, "userId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load playlists")
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	respondJSON(ctx, w, http.StatusOK, "playlists", playlists)
}

// Get handles GET /api/v1/playlists/{id}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id := r.PathValue("id")
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "playlist id is required")
		return
	}

	playlist, err := h.Playlists.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return
		}
		logger.Error("playlist lookup failed", "error", err, "playlistId", id)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "playlist", playlist)
}

// Update handles PATCH /api/v1/playlists/{id}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	playlist, ok := h.loadOwned(w, r, user.ID)
	if !ok {
		return
	}

	var req updatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid playlist payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(ctx, w, http.StatusBadRequest, "name cannot be blank")
			return
		}
		playlist.Name = name
	}
	if req.Description != nil {
		playlist.Description = strings.TrimSpace(*req.Description)
	}
	playlist.UpdatedAt = h.now()

	if err := h.Playlists.Update(ctx, playlist); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "a playlist with that name already exists")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
		default:
			logger.Error("playlist update failed", "error", err, "playlistId", playlist.ID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to update playlist")
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, "playlist updated", playlist)
}

// Delete handles DELETE /api/v1/playlists/{id}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	playlist, ok := h.loadOwned(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return
		}
		logger.Error("playlist delete failed", "error", err, "playlistId", playlist.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "playlist deleted", nil)
}

// AddVideo handles POST /api/v1/playlists/{id}/videos/{videoID}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	playlist, ok := h.loadOwned(w, r, user.ID)
	if !ok {
		return
	}

	videoID := r.PathValue("videoID")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "video already in playlist")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "video not found")
		default:
			logger.Error("failed to add video to playlist", "error", err, "playlistId", playlist.ID, "videoId", videoID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to update playlist")
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, "video added to playlist", nil)
}

// RemoveVideo handles DELETE /api/v1/playlists/{id}/videos/{videoID}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	playlist, ok := h.loadOwned(w, r, user.ID)
	if !ok {
		return
	}

	videoID := r.PathValue("videoID")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusBadRequest, "video not in playlist")
			return
		}
		logger.Error("failed to remove video from playlist", "error", err, "playlistId", playlist.ID, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "video removed from playlist", nil)
}

// loadOwned fetches the playlist named in the path and verifies ownership.
// Existence is checked first so a 403 never reveals whether the id exists.
func (h PlaylistHandler) loadOwned(w http.ResponseWriter, r *http.Request, userID string) (models.Playlist, bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id := r.PathValue("id")
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "playlist id is required")
		return models.Playlist{}, false
	}

	playlist, err := h.Playlists.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return models.Playlist{}, false
		}
		logger.Error("playlist lookup failed", "error", err, "playlistId", id)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load playlist")
		return models.Playlist{}, false
	}

	if err := auth.AuthorizeOwner(playlist.OwnerID, userID); err != nil {
		logger.Warn("playlist access forbidden", "playlistId", id, "userId", userID)
		respondError(ctx, w, http.StatusForbidden, "forbidden")
		return models.Playlist{}, false
	}

	return playlist, true
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
