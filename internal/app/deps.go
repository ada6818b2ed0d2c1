package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/handlers"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/repositories"
)

// buildDependencies assembles the repositories, auth services, and media host
// behind the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	playlists := repositories.NewPostgresPlaylistRepository(pool)
	comments := repositories.NewPostgresCommentRepository(pool)
	likes := repositories.NewPostgresLikeRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)

	issuer := auth.NewTokenIssuer(
		cfg.Tokens.AccessSecret,
		cfg.Tokens.RefreshSecret,
		cfg.Tokens.AccessTTL,
		cfg.Tokens.RefreshTTL,
	)
	sessions := auth.NewSessionManager(users, issuer)

	host, err := media.NewHost(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure media host: %w", err)
	}

	loginLimiter := middleware.NewIPRateLimiter(
		cfg.LoginLimit.Requests,
		cfg.LoginLimit.Window,
		cfg.LoginLimit.Burst,
		15*time.Minute,
	)

	return handlers.Dependencies{
		Users:         users,
		Sessions:      sessions,
		Videos:        videos,
		Playlists:     playlists,
		Comments:      comments,
		Likes:         likes,
		Subscriptions: subscriptions,
		Media:         host,
		Verifier:      issuer,
		Identities:    users,
		LoginLimiter:  loginLimiter,
		UploadDir:     cfg.UploadDir,
	}, nil
}
