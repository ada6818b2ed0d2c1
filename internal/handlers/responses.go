package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cliptube/backend/internal/logging"
)

// apiResponse is the uniform envelope returned by every endpoint. Data is
// never null: endpoints without a payload return an empty object.
type apiResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	if data == nil {
		data = map[string]any{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload := apiResponse{Status: status, Message: message, Data: data}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "message", message)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "message", message)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, message, nil)
}
