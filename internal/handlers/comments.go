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

// CommentHandler implements comment endpoints. Editing and deleting a comment
// require authorship, checked after existence.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	NowFunc  func() time.Time
}

// Create handles POST /api/v1/videos/{id}/comments.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid comment payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   user.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("failed to create comment", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create comment")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, "comment added", comment)
}

// List handles GET /api/v1/videos/{id}/comments.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

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

	comments, err := h.Comments.ListForVideo(ctx, videoID)
	if err != nil {
		logger.Error("failed to list comments", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load comments")
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	respondJSON(ctx, w, http.StatusOK, "comments", comments)
}

// Update handles PATCH /api/v1/comments/{id}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	comment, ok := h.loadOwned(w, r, user.ID)
	if !ok {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid comment payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	updated, err := h.Comments.UpdateContent(ctx, comment.ID, content)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return
		}
		logger.Error("comment update failed", "error", err, "commentId", comment.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update comment")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "comment updated", updated)
}

// Delete handles DELETE /api/v1/comments/{id}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	comment, ok := h.loadOwned(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return
		}
		logger.Error("comment delete failed", "error", err, "commentId", comment.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete comment")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "comment deleted", nil)
}

func (h CommentHandler) loadOwned(w http.ResponseWriter, r *http.Request, userID string) (models.Comment, bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id := r.PathValue("id")
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "comment id is required")
		return models.Comment{}, false
	}

	comment, err := h.Comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return models.Comment{}, false
		}
		logger.Error("comment lookup failed", "error", err, "commentId", id)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load comment")
		return models.Comment{}, false
	}

	if err := auth.AuthorizeOwner(comment.OwnerID, userID); err != nil {
		logger.Warn("comment access forbidden", "commentId", id, "userId", userID)
		respondError(ctx, w, http.StatusForbidden, "forbidden")
		return models.Comment{}, false
	}

	return comment, true
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
