package auth

import (
	"context"
	"sync"
	"time"

	"github.com/cliptube/backend/internal/models"
)

// NewInMemoryCredentialStore returns a CredentialStore backed by in-memory
// maps. It implements the same at-most-one-winner rotation semantics as the
// SQL store and is used by tests and local development.
func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{users: make(map[string]models.User)}
}

// InMemoryCredentialStore implements CredentialStore without a database.
type InMemoryCredentialStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

// Create inserts a user record, failing when the id, username, or email is
// already taken.
func (s *InMemoryCredentialStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.ID == user.ID || existing.Username == user.Username || existing.Email == user.Email {
			return ErrDuplicateUser
		}
	}
	s.users[user.ID] = user
	return nil
}

// FindByIdentifier looks a user up by case-folded username or email.
func (s *InMemoryCredentialStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// FindByID looks a user up by id.
func (s *InMemoryCredentialStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
func (s *InMemoryCredentialStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshToken = token
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return nil
}

// RotateRefreshToken swaps the stored refresh token only when it still equals
// previous. The compare and the write happen under one lock, mirroring the
// conditional UPDATE used by the SQL store.
func (s *InMemoryCredentialStore) RotateRefreshToken(_ context.Context, userID, previous, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if user.RefreshToken == "" || user.RefreshToken != previous {
		return ErrTokenReused
	}
	user.RefreshToken = next
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return nil
}

// ClearRefreshToken removes any stored refresh token for the user.
func (s *InMemoryCredentialStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshToken = ""
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return nil
}

// UpdatePassword stores a new password hash for the user.
func (s *InMemoryCredentialStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return nil
}

// StoredRefreshToken reports the currently persisted refresh token. Useful for
// tests.
func (s *InMemoryCredentialStore) StoredRefreshToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].RefreshToken
}

var _ CredentialStore = (*InMemoryCredentialStore)(nil)
