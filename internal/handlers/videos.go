package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// VideoHandler implements video publishing and playback endpoints.
type VideoHandler struct {
	Videos    VideoStore
	Users     UserStore
	Media     Uploader
	UploadDir string
	NowFunc   func() time.Time
}

// Publish handles POST /api/v1/videos. The request is multipart: title and
// description fields plus the video file and a thumbnail image.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	owner, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if h.Media == nil {
		logger.Error("media host unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "media services unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		logger.Warn("invalid publish form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "multipart form required")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))

	duration := 0.0
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			respondError(ctx, w, http.StatusBadRequest, "duration must be a non-negative number")
			return
		}
		duration = parsed
	}

	videoFile, err := stageFormFile(r, "video", h.UploadDir)
	if err != nil {
		logger.Warn("failed to stage video", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "video upload could not be read")
		return
	}
	if videoFile == nil {
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}
	defer videoFile.Cleanup()

	thumbFile, err := stageFormFile(r, "thumbnail", h.UploadDir)
	if err != nil {
		logger.Warn("failed to stage thumbnail", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "thumbnail upload could not be read")
		return
	}
	if thumbFile == nil {
		respondError(ctx, w, http.StatusBadRequest, "thumbnail image is required")
		return
	}
	defer thumbFile.Cleanup()

	videoAsset, err := h.Media.Upload(ctx, videoFile.Path)
	if err != nil {
		logger.Error("video upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video")
		return
	}

	thumbAsset, err := h.Media.Upload(ctx, thumbFile.Path)
	if err != nil {
		logger.Error("thumbnail upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
		return
	}

	now := h.now()
	video := models.Video{
		ID:                uuid.NewString(),
		OwnerID:           owner.ID,
		Title:             title,
		Description:       description,
		VideoURL:          videoAsset.URL,
		VideoPublicID:     videoAsset.PublicID,
		ThumbnailURL:      thumbAsset.URL,
		ThumbnailPublicID: thumbAsset.PublicID,
		Duration:          duration,
		Published:         true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("failed to create video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to publish video")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, "video published", video)
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	videos, err := h.Videos.ListPublished(ctx)
	if err != nil {
		logger.Error("failed to list videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load videos")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}

	respondJSON(ctx, w, http.StatusOK, "videos", videos)
}

// Get handles GET /api/v1/videos/{id}. Fetching a video counts a view, and
// when the caller is authenticated it also appends to their watch history.
// Unpublished videos are visible only to their owner and look absent to
// everyone else.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id := r.PathValue("id")
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("video lookup failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load video")
		return
	}

	viewer, authenticated := middleware.CurrentUser(ctx)
	if !video.Published && (!authenticated || viewer.ID != video.OwnerID) {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	if err := h.Videos.IncrementViews(ctx, id); err != nil {
		logger.Warn("failed to count view", "error", err, "videoId", id)
	} else {
		video.Views++
	}

	if authenticated {
		if err := h.Users.AddWatchEntry(ctx, viewer.ID, id); err != nil {
			logger.Warn("failed to record watch history", "error", err, "userId", viewer.ID, "videoId", id)
		}
	}

	respondJSON(ctx, w, http.StatusOK, "video", video)
}

// Update handles PATCH /api/v1/videos/{id}. Only the owner may modify a
// video; ownership is checked after existence so callers cannot distinguish
// someone else's hidden video from a missing one by probing.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("video lookup failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load video")
		return
	}

	if err := auth.AuthorizeOwner(video.OwnerID, user.ID); err != nil {
		logger.Warn("video update forbidden", "videoId", id, "userId", user.ID)
		respondError(ctx, w, http.StatusForbidden, "forbidden")
		return
	}

	var req updateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid video payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			respondError(ctx, w, http.StatusBadRequest, "title must not be empty")
			return
		}
		video.Title = title
	}
	if req.Description != nil {
		video.Description = strings.TrimSpace(*req.Description)
	}
	if req.Published != nil {
		video.Published = *req.Published
	}
	video.UpdatedAt = h.now()

	if err := h.Videos.Update(ctx, video); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("video update failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "video updated", video)
}

// Delete handles DELETE /api/v1/videos/{id}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("video lookup failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load video")
		return
	}

	if err := auth.AuthorizeOwner(video.OwnerID, user.ID); err != nil {
		logger.Warn("video delete forbidden", "videoId", id, "userId", user.ID)
		respondError(ctx, w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.Videos.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("video delete failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "video deleted", nil)
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Published   *bool   `json:"published"`
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
