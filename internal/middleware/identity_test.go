package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/models"
)

type staticUserStore struct {
	users map[string]models.User
}

func (s staticUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

func identityFixture(t *testing.T) (*auth.TokenIssuer, staticUserStore, string) {
	t.Helper()

	issuer := auth.NewTokenIssuer("access-secret", "refresh-secret", time.Minute, time.Hour)
	store := staticUserStore{users: map[string]models.User{
		"user-1": {ID: "user-1", Username: "alice", Email: "alice@example.com"},
	}}

	token, _, err := issuer.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	return issuer, store, token
}

func echoIdentity(t *testing.T, called *bool) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		user, ok := CurrentUser(r.Context())
		if !ok {
			t.Fatal("expected identity on context")
		}
		if user.Username != "alice" {
			t.Fatalf("unexpected identity %q", user.Username)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestIdentityAcceptsCookie(t *testing.T) {
	issuer, store, token := identityFixture(t)

	var called bool
	handler := Identity(issuer, store)(echoIdentity(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected handler to run")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
}

func TestIdentityAcceptsBearerHeader(t *testing.T) {
	issuer, store, token := identityFixture(t)

	var called bool
	handler := Identity(issuer, store)(echoIdentity(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected handler to run")
	}
}

func TestIdentityRejectsBeforeHandler(t *testing.T) {
	issuer, store, token := identityFixture(t)

	cases := []struct {
		name    string
		prepare func(*http.Request)
	}{
		{name: "missing token", prepare: func(*http.Request) {}},
		{name: "malformed token", prepare: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "garbage"})
		}},
		{name: "wrong scheme", prepare: func(r *http.Request) {
			r.Header.Set("Authorization", "Basic "+token)
		}},
		{name: "unknown user", prepare: func(r *http.Request) {
			ghost, _, err := issuer.IssueAccess("user-ghost")
			if err != nil {
				t.Fatalf("issue access: %v", err)
			}
			r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: ghost})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var called bool
			handler := Identity(issuer, store)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tc.prepare(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if called {
				t.Fatal("expected request to be short-circuited")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 got %d", rec.Code)
			}
		})
	}
}

func TestIdentityRejectsExpiredToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("access-secret", "refresh-secret", -time.Minute, time.Hour)
	store := staticUserStore{users: map[string]models.User{"user-1": {ID: "user-1"}}}

	expired, _, err := issuer.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	var called bool
	handler := Identity(issuer, store)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: expired})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 short-circuit, called=%v code=%d", called, rec.Code)
	}
}

func TestOptionalIdentityNeverRejects(t *testing.T) {
	issuer, store, token := identityFixture(t)

	var sawUser bool
	handler := OptionalIdentity(issuer, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawUser = CurrentUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Without a token the request still reaches the handler, anonymously.
	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || sawUser {
		t.Fatalf("expected anonymous pass-through, code=%d sawUser=%v", rec.Code, sawUser)
	}

	// With a valid token the identity is attached.
	req = httptest.NewRequest(http.MethodGet, "/public", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !sawUser {
		t.Fatalf("expected authenticated pass-through, code=%d sawUser=%v", rec.Code, sawUser)
	}
}
