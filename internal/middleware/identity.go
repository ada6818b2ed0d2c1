package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
)

// AccessTokenCookie is the transport cookie carrying the access token. The
// Authorization header is accepted as a fallback for non-browser clients.
const AccessTokenCookie = "accessToken"

type identityCtxKey struct{}

// AccessVerifier validates access tokens and returns their claims.
type AccessVerifier interface {
	VerifyAccess(token string) (auth.Claims, error)
}

// IdentityStore loads the account referenced by a verified token.
type IdentityStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Identity resolves the authenticated user for every request it wraps. It
// rejects the request with 401 before the handler runs when no token is
// present, the token fails verification, or the account no longer exists. On
// success the sanitized user is attached to the request context.
func Identity(verifier AccessVerifier, users IdentityStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := resolveIdentity(w, r, verifier, users, true)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// OptionalIdentity attaches the authenticated user when a valid access token
// is presented but never rejects the request. Public read endpoints use it to
// personalize behavior (e.g. watch history) for logged-in viewers.
func OptionalIdentity(verifier AccessVerifier, users IdentityStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, ok := resolveIdentity(w, r, verifier, users, false); ok {
				r = r.WithContext(withUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser returns the identity attached by Identity or OptionalIdentity.
// The attachment is read-only for handlers.
func CurrentUser(ctx context.Context) (models.PublicUser, bool) {
	user, ok := ctx.Value(identityCtxKey{}).(models.PublicUser)
	return user, ok
}

func withUser(ctx context.Context, user models.PublicUser) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, user)
}

func resolveIdentity(w http.ResponseWriter, r *http.Request, verifier AccessVerifier, users IdentityStore, enforce bool) (models.PublicUser, bool) {
	logger := logging.FromContext(r.Context())

	token := extractAccessToken(r)
	if token == "" {
		if enforce {
			logger.Warn("request missing access token", "path", r.URL.Path)
			rejectUnauthorized(w)
		}
		return models.PublicUser{}, false
	}

	claims, err := verifier.VerifyAccess(token)
	if err != nil {
		if enforce {
			logger.Warn("access token rejected", "path", r.URL.Path, "error", err)
			rejectUnauthorized(w)
		}
		return models.PublicUser{}, false
	}

	user, err := users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if enforce {
			logger.Warn("token subject no longer exists", "userId", claims.UserID, "error", err)
			rejectUnauthorized(w)
		}
		return models.PublicUser{}, false
	}

	return user.Public(), true
}

func extractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func rejectUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  http.StatusUnauthorized,
		"message": "unauthorized",
		"data":    map[string]any{},
	})
}
