package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cliptube/backend/internal/models"
)

func seedVideo(t *testing.T, env *testEnv, ownerID string, published bool) models.Video {
	t.Helper()

	video := models.Video{
		ID:           "video-" + ownerID,
		OwnerID:      ownerID,
		Title:        "A video",
		VideoURL:     "https://media.test/video.mp4",
		ThumbnailURL: "https://media.test/thumb.png",
		Published:    published,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := env.videos.Create(context.Background(), video); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return video
}

func TestPublishVideo(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "uploader")

	body, contentType := multipartBody(t, map[string]string{
		"title":       "My first video",
		"description": "hello",
		"duration":    "12.5",
	}, map[string]string{
		"video":     "clip.mp4",
		"thumbnail": "thumb.png",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(t, req, token)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	if len(env.uploader.uploaded) != 2 {
		t.Fatalf("expected video and thumbnail uploads, got %d", len(env.uploader.uploaded))
	}

	data := decodeEnvelope(t, rec).Data.(map[string]any)
	if data["title"] != "My first video" {
		t.Fatalf("unexpected title %v", data["title"])
	}
	if data["published"] != true {
		t.Fatal("expected video to be published on creation")
	}
}

func TestPublishVideoRequiresFiles(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "uploader")

	body, contentType := multipartBody(t, map[string]string{"title": "No files"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(t, req, token)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestPublishVideoRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartBody(t, map[string]string{"title": "Anonymous"}, map[string]string{
		"video":     "clip.mp4",
		"thumbnail": "thumb.png",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(t, req, "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestGetVideoCountsViewAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.seedUser(t, "owner")
	viewer, viewerToken := env.seedUser(t, "viewer")
	video := seedVideo(t, env, owner.ID, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+video.ID, nil)
	rec := env.do(t, req, viewerToken)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	data := decodeEnvelope(t, rec).Data.(map[string]any)
	if data["views"].(float64) != 1 {
		t.Fatalf("expected one view, got %v", data["views"])
	}

	history, err := env.users.WatchHistory(context.Background(), viewer.ID)
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if len(history) != 1 || history[0].VideoID != video.ID {
		t.Fatalf("expected one history entry for %s, got %+v", video.ID, history)
	}
}

func TestGetVideoAnonymous(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.seedUser(t, "owner")
	video := seedVideo(t, env, owner.ID, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+video.ID, nil)
	rec := env.do(t, req, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
}

func TestGetUnpublishedVideoHiddenFromOthers(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.seedUser(t, "owner")
	_, otherToken := env.seedUser(t, "other")
	video := seedVideo(t, env, owner.ID, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+video.ID, nil)
	rec := env.do(t, req, otherToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d for non-owner, got %d", http.StatusNotFound, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+video.ID, nil)
	rec = env.do(t, req, ownerToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d for owner, got %d", http.StatusOK, rec.Code)
	}
}

func TestUpdateVideoOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.seedUser(t, "owner")
	_, otherToken := env.seedUser(t, "other")
	video := seedVideo(t, env, owner.ID, true)

	payload, _ := json.Marshal(map[string]any{"title": "Renamed"})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/videos/"+video.ID, bytes.NewReader(payload))
	rec := env.do(t, req, otherToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d for non-owner, got %d", http.StatusForbidden, rec.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/videos/"+video.ID, bytes.NewReader(payload))
	rec = env.do(t, req, ownerToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d for owner, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, err := env.videos.FindByID(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("find video: %v", err)
	}
	if stored.Title != "Renamed" {
		t.Fatalf("expected renamed video, got %q", stored.Title)
	}
}

func TestUpdateMissingVideoIs404BeforeOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "anyone")

	payload, _ := json.Marshal(map[string]any{"title": "Renamed"})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/videos/no-such-video", bytes.NewReader(payload))
	rec := env.do(t, req, token)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestDeleteVideo(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.seedUser(t, "owner")
	_, otherToken := env.seedUser(t, "other")
	video := seedVideo(t, env, owner.ID, true)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/videos/"+video.ID, nil)
	rec := env.do(t, req, otherToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d for non-owner, got %d", http.StatusForbidden, rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/videos/"+video.ID, nil)
	rec = env.do(t, req, ownerToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d for owner, got %d", http.StatusOK, rec.Code)
	}

	if _, err := env.videos.FindByID(context.Background(), video.ID); err == nil {
		t.Fatal("expected video to be deleted")
	}
}

func TestListVideos(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.seedUser(t, "owner")
	seedVideo(t, env, owner.ID, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	rec := env.do(t, req, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	data := decodeEnvelope(t, rec).Data.([]any)
	if len(data) != 1 {
		t.Fatalf("expected one video, got %d", len(data))
	}
}
