package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/models"
)

// UserRepository defines the data access contract for users. It extends the
// session manager's credential contract with registration, profile, and
// watch-history operations. Lookups for missing users return
// auth.ErrUserNotFound so callers on both sides see one sentinel.
type UserRepository interface {
	auth.CredentialStore

	Create(ctx context.Context, user models.User) error
	UpdateProfile(ctx context.Context, userID, fullName, email string) (models.User, error)
	AddWatchEntry(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string) ([]models.WatchEntry, error)
}
