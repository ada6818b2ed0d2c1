package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
)

// UserHandler implements account and session endpoints.
type UserHandler struct {
	Users        UserStore
	Sessions     SessionManager
	Media        Uploader
	LoginLimiter RateLimiter
	UploadDir    string
	NowFunc      func() time.Time
}

// Register handles POST /api/v1/users/register. The request is multipart: text
// fields plus an avatar image (required) and a cover image (optional).
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Media == nil {
		logger.Error("registration dependencies unavailable", "hasUsers", h.Users != nil, "hasMedia", h.Media != nil)
		respondError(ctx, w, http.StatusInternalServerError, "registration services unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		logger.Warn("invalid registration form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "multipart form required")
		return
	}

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if username == "" || email == "" || fullName == "" || password == "" {
		logger.Warn("registration missing fields", "username", username)
		respondError(ctx, w, http.StatusBadRequest, "username, email, fullName, and password are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		logger.Warn("registration invalid email", "email", email, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(password) < 8 {
		logger.Warn("registration password too short", "username", username)
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	// Check for an existing account before touching the media host so a
	// conflict does not leave orphaned remote assets. The insert below still
	// enforces uniqueness if a concurrent registration slips through.
	for _, identifier := range []string{username, email} {
		if _, err := h.Users.FindByIdentifier(ctx, identifier); err == nil {
			logger.Warn("registration conflict", "username", username)
			respondError(ctx, w, http.StatusConflict, "username or email already registered")
			return
		} else if !errors.Is(err, auth.ErrUserNotFound) {
			logger.Error("registration lookup failed", "error", err, "username", username)
			respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
			return
		}
	}

	avatar, err := stageFormFile(r, "avatar", h.UploadDir)
	if err != nil {
		logger.Warn("failed to stage avatar", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "avatar upload could not be read")
		return
	}
	if avatar == nil {
		respondError(ctx, w, http.StatusBadRequest, "avatar image is required")
		return
	}
	defer avatar.Cleanup()

	cover, err := stageFormFile(r, "coverImage", h.UploadDir)
	if err != nil {
		logger.Warn("failed to stage cover image", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "cover image upload could not be read")
		return
	}
	defer cover.Cleanup()

	avatarAsset, err := h.Media.Upload(ctx, avatar.Path)
	if err != nil {
		logger.Error("avatar upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	var coverURL string
	if cover != nil {
		coverAsset, err := h.Media.Upload(ctx, cover.Path)
		if err != nil {
			logger.Error("cover image upload failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store cover image")
			return
		}
		coverURL = coverAsset.URL
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatarAsset.URL,
		CoverImageURL: coverURL,
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, auth.ErrDuplicateUser) {
			logger.Warn("registration conflict", "username", username)
			respondError(ctx, w, http.StatusConflict, "username or email already registered")
			return
		}
		logger.Error("failed to create user", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, "account created", user.Public())
}

// Login handles POST /api/v1/users/login. Credential failures are reported
// with one undifferentiated message regardless of whether the identifier or
// the password was wrong.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	if !allowRequest(h.LoginLimiter, r, "login") {
		logger.Warn("login rate limited", "ip", clientIP(r))
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := req.identifier()
	if identifier == "" || req.Password == "" {
		logger.Warn("login missing credentials")
		respondError(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	user, tokens, err := h.Sessions.Login(ctx, identifier, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidCredentials) {
			logger.Warn("login rejected", "identifier", identifier)
			respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		logger.Error("login failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setSessionCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, "logged in", loginResponse{User: user.Public(), Tokens: tokens})
}

// Refresh handles POST /api/v1/users/refresh-token. The token is read from
// the refresh cookie when present, falling back to the request body.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	presented := ""
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}

	tokens, err := h.Sessions.Refresh(ctx, presented)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenMissing):
			logger.Warn("refresh without token")
			respondError(ctx, w, http.StatusUnauthorized, "refresh token is required")
		case errors.Is(err, auth.ErrTokenReused):
			logger.Warn("stale refresh token presented")
			respondError(ctx, w, http.StatusUnauthorized, "refresh token expired or already used")
		case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenMalformed):
			logger.Warn("refresh token rejected", "error", err)
			respondError(ctx, w, http.StatusUnauthorized, "invalid refresh token")
		default:
			logger.Error("refresh failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		}
		return
	}

	setSessionCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, "session refreshed", refreshResponse{Tokens: tokens})
}

// Logout handles POST /api/v1/users/logout. It clears the stored refresh
// token and expires both session cookies. Logging out twice is not an error.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Sessions.Logout(ctx, user.ID); err != nil {
		logger.Error("logout failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to end session")
		return
	}

	clearSessionCookies(w)
	respondJSON(ctx, w, http.StatusOK, "logged out", nil)
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid change-password payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if err := h.Sessions.ChangePassword(ctx, user.ID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			logger.Warn("change-password old password mismatch", "userId", user.ID)
			respondError(ctx, w, http.StatusUnauthorized, "old password is incorrect")
		case errors.Is(err, auth.ErrPasswordUnchanged):
			respondError(ctx, w, http.StatusBadRequest, "new password must differ from the old one")
		default:
			logger.Error("change-password failed", "error", err, "userId", user.ID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, "password changed", nil)
}

// Me handles GET /api/v1/users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "current user", user)
}

// UpdateProfile handles PATCH /api/v1/users/me.
func (h UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" || email == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName and email are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	updated, err := h.Users.UpdateProfile(ctx, user.ID, fullName, email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateUser):
			respondError(ctx, w, http.StatusConflict, "email already registered")
		case errors.Is(err, auth.ErrUserNotFound):
			respondError(ctx, w, http.StatusNotFound, "user not found")
		default:
			logger.Error("profile update failed", "error", err, "userId", user.ID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, "profile updated", updated.Public())
}

// WatchHistory handles GET /api/v1/users/me/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.Users.WatchHistory(ctx, user.ID)
	if err != nil {
		logger.Error("watch history lookup failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load watch history")
		return
	}
	if entries == nil {
		entries = []models.WatchEntry{}
	}

	respondJSON(ctx, w, http.StatusOK, "watch history", entries)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// identifier returns the first populated identifier field so clients may send
// any of identifier, username, or email.
func (r loginRequest) identifier() string {
	for _, candidate := range []string{r.Identifier, r.Username, r.Email} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateProfileRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type loginResponse struct {
	User   models.PublicUser    `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}

type refreshResponse struct {
	Tokens models.SessionTokens `json:"tokens"`
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
