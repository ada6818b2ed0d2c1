package handlers

import (
	"errors"
	"net/http"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// LikeHandler implements like endpoints.
type LikeHandler struct {
	Likes  LikeStore
	Videos VideoStore
}

// Toggle handles POST /api/v1/videos/{id}/like. Liking an already-liked video
// removes the like.
func (h LikeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	videoID := r.PathValue("id")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("video lookup failed", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load video")
		return
	}

	liked, err := h.Likes.Toggle(ctx, videoID, user.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("failed to toggle like", "error", err, "videoId", videoID, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to toggle like")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "like toggled", map[string]bool{"liked": liked})
}

// ListLiked handles GET /api/v1/users/me/likes.
func (h LikeHandler) ListLiked(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	videos, err := h.Likes.ListLikedVideos(ctx, user.ID)
	if err != nil {
		logger.Error("failed to list liked videos", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load liked videos")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}

	respondJSON(ctx, w, http.StatusOK, "liked videos", videos)
}
