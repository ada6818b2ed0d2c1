package handlers

import (
	"context"

	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/models"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	UpdateProfile(ctx context.Context, userID, fullName, email string) (models.User, error)
	AddWatchEntry(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string) ([]models.WatchEntry, error)
}

// SessionManager drives the session lifecycle for the auth endpoints.
type SessionManager interface {
	Login(ctx context.Context, identifier, password string) (models.User, models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// VideoStore captures persistence for video publishing and playback.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListPublished(ctx context.Context) ([]models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

// PlaylistStore captures persistence for playlist management.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListForOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	Update(ctx context.Context, playlist models.Playlist) error
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}

// CommentStore captures persistence for video comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// LikeStore toggles and lists per-user video likes.
type LikeStore interface {
	Toggle(ctx context.Context, videoID, userID string) (bool, error)
	ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}

// SubscriptionStore toggles and lists channel subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, channelID, subscriberID string) (bool, error)
	Subscribers(ctx context.Context, channelID string) ([]models.PublicUser, error)
	Subscriptions(ctx context.Context, subscriberID string) ([]models.PublicUser, error)
}

// Uploader moves a locally staged file to the media host. Implementations
// remove the local file whether or not the upload succeeds.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (media.Asset, error)
}
