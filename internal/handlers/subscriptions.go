package handlers

import (
	"errors"
	"net/http"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
)

// SubscriptionHandler implements channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
}

// Toggle handles POST /api/v1/channels/{id}/subscribe. Subscribing to an
// already-subscribed channel unsubscribes. Subscribing to yourself is
// rejected.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	channelID := r.PathValue("id")
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channel id is required")
		return
	}
	if channelID == user.ID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logger.Error("channel lookup failed", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, channelID, user.ID)
	if err != nil {
		logger.Error("failed to toggle subscription", "error", err, "channelId", channelID, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to toggle subscription")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "subscription toggled", map[string]bool{"subscribed": subscribed})
}

// Subscribers handles GET /api/v1/channels/{id}/subscribers.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	channelID := r.PathValue("id")
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channel id is required")
		return
	}

	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logger.Error("channel lookup failed", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load channel")
		return
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		logger.Error("failed to list subscribers", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load subscribers")
		return
	}
	if subscribers == nil {
		subscribers = []models.PublicUser{}
	}

	respondJSON(ctx, w, http.StatusOK, "subscribers", subscribers)
}

// ForUser handles GET /api/v1/users/{id}/subscriptions.
func (h SubscriptionHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := r.PathValue("id")
	if userID == "" {
		respondError(ctx, w, http.StatusBadRequest, "user id is required")
		return
	}

	if _, err := h.Users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error("user lookup failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load user")
		return
	}

	channels, err := h.Subscriptions.Subscriptions(ctx, userID)
	if err != nil {
		logger.Error("failed to list subscriptions", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load subscriptions")
		return
	}
	if channels == nil {
		channels = []models.PublicUser{}
	}

	respondJSON(ctx, w, http.StatusOK, "subscriptions", channels)
}

// Mine handles GET /api/v1/users/me/subscriptions.
func (h SubscriptionHandler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	channels, err := h.Subscriptions.Subscriptions(ctx, user.ID)
	if err != nil {
		logger.Error("failed to list subscriptions", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load subscriptions")
		return
	}
	if channels == nil {
		channels = []models.PublicUser{}
	}

	respondJSON(ctx, w, http.StatusOK, "subscriptions", channels)
}
