package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cliptube/backend/internal/models"
)

var (
	// ErrUserNotFound indicates no account matches the supplied identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser indicates the username or email is already taken.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrInvalidCredentials indicates the password did not match. Handlers must
	// present it and ErrUserNotFound with one undifferentiated message so a
	// caller cannot probe which identifiers exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenMissing indicates no refresh token was presented at all.
	ErrTokenMissing = errors.New("refresh token missing")
	// ErrTokenReused indicates the presented refresh token verified correctly
	// but no longer matches the stored value: it was already rotated away,
	// cleared by logout, or lost a concurrent rotation race.
	ErrTokenReused = errors.New("refresh token expired or already used")
	// ErrPasswordUnchanged indicates a change-password request where the new
	// password equals the current one.
	ErrPasswordUnchanged = errors.New("new password must differ from the old one")
)

// CredentialStore persists user credentials and the single active refresh
// token per account. A missing user yields ErrUserNotFound; a rotation whose
// expected previous value no longer matches yields ErrTokenReused.
type CredentialStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, previous, next string) error
	ClearRefreshToken(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// SessionManager orchestrates the session lifecycle: credential verification,
// token issuance, rotation, and revocation.
type SessionManager struct {
	users  CredentialStore
	tokens *TokenIssuer
}

// NewSessionManager constructs a SessionManager over the provided store and
// token issuer.
func NewSessionManager(users CredentialStore, tokens *TokenIssuer) *SessionManager {
	if users == nil {
		panic("auth: credential store must not be nil")
	}
	if tokens == nil {
		panic("auth: token issuer must not be nil")
	}
	return &SessionManager{users: users, tokens: tokens}
}

// Login verifies the identifier/password pair and starts a new session.
// Issuing a new refresh token overwrites any previously stored value, so at
// most one session is active per account.
func (m *SessionManager) Login(ctx context.Context, identifier, password string) (models.User, models.SessionTokens, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return models.User{}, models.SessionTokens{}, ErrInvalidCredentials
	}

	user, err := m.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	if !VerifyPassword(user.PasswordHash, password) {
		return models.User{}, models.SessionTokens{}, ErrInvalidCredentials
	}

	tokens, err := m.issuePair(user.ID)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.User{}, models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return user, tokens, nil
}

// Refresh exchanges a presented refresh token for a new pair. The stored value
// is swapped in a single conditional update, so when two callers race with the
// same token exactly one wins and the other observes ErrTokenReused.
func (m *SessionManager) Refresh(ctx context.Context, presented string) (models.SessionTokens, error) {
	if strings.TrimSpace(presented) == "" {
		return models.SessionTokens{}, ErrTokenMissing
	}

	claims, err := m.tokens.VerifyRefresh(presented)
	if err != nil {
		return models.SessionTokens{}, err
	}

	user, err := m.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.SessionTokens{}, ErrTokenMalformed
		}
		return models.SessionTokens{}, err
	}

	tokens, err := m.issuePair(user.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.users.RotateRefreshToken(ctx, user.ID, presented, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Logout invalidates the active session by clearing the stored refresh token.
// Identity is established by the caller; no token comparison is needed, and
// clearing an already-empty value succeeds.
func (m *SessionManager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserNotFound
	}
	return m.users.ClearRefreshToken(ctx, userID)
}

// ChangePassword re-verifies the old secret before storing a new hash.
func (m *SessionManager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !VerifyPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	if newPassword == oldPassword {
		return ErrPasswordUnchanged
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return m.users.UpdatePassword(ctx, userID, hash)
}

func (m *SessionManager) issuePair(userID string) (models.SessionTokens, error) {
	access, accessExp, err := m.tokens.IssueAccess(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refresh, refreshExp, err := m.tokens.IssueRefresh(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
