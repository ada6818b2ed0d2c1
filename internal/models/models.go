package models

import "time"

// User represents an account within the ClipTube platform. Username and email
// are stored case-folded and are globally unique. RefreshToken holds the single
// currently valid refresh token for the account, or the empty string when no
// session is active.
type User struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	AvatarURL     string
	CoverImageURL string
	PasswordHash  string
	RefreshToken  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Public strips credential material from a user record before it leaves the
// service boundary.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		CreatedAt:     u.CreatedAt,
	}
}

// PublicUser is the externally visible projection of a user.
type PublicUser struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Video represents a published video. OwnerID is set at creation and never
// reassigned.
type Video struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	VideoURL          string    `json:"videoUrl"`
	VideoPublicID     string    `json:"-"`
	ThumbnailURL      string    `json:"thumbnail"`
	ThumbnailPublicID string    `json:"-"`
	Duration          float64   `json:"duration"`
	Views             int64     `json:"views"`
	Published         bool      `json:"published"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"-"`
}

// Playlist groups videos under a user-owned, per-owner-unique name.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"videos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"-"`
}

// Comment is a user-authored remark attached to a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WatchEntry records one append-only watch-history event.
type WatchEntry struct {
	VideoID   string    `json:"videoId"`
	Title     string    `json:"title"`
	Thumbnail string    `json:"thumbnail"`
	WatchedAt time.Time `json:"watchedAt"`
}

// SessionTokens groups the credential pair issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
