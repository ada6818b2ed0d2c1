package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Playlists     PlaylistStore
	Comments      CommentStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Media         Uploader
	Verifier      middleware.AccessVerifier
	Identities    middleware.IdentityStore
	LoginLimiter  RateLimiter
	UploadDir     string
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Routes that
// require a caller identity are wrapped in the identity middleware; public
// video reads get the optional variant so signed-in viewers accumulate watch
// history.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	users := UserHandler{
		Users:        deps.Users,
		Sessions:     deps.Sessions,
		Media:        deps.Media,
		LoginLimiter: deps.LoginLimiter,
		UploadDir:    deps.UploadDir,
	}
	videos := VideoHandler{Videos: deps.Videos, Users: deps.Users, Media: deps.Media, UploadDir: deps.UploadDir}
	playlists := PlaylistHandler{Playlists: deps.Playlists}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos}
	likes := LikeHandler{Likes: deps.Likes, Videos: deps.Videos}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users}

	identity := middleware.Identity(deps.Verifier, deps.Identities)
	optionalIdentity := middleware.OptionalIdentity(deps.Verifier, deps.Identities)

	private := func(handler http.HandlerFunc) http.Handler {
		return identity(handler)
	}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", users.Register)
	mux.HandleFunc("POST /api/v1/users/login", users.Login)
	mux.HandleFunc("POST /api/v1/users/refresh-token", users.Refresh)
	mux.Handle("POST /api/v1/users/logout", private(users.Logout))
	mux.Handle("POST /api/v1/users/change-password", private(users.ChangePassword))
	mux.Handle("GET /api/v1/users/me", private(users.Me))
	mux.Handle("PATCH /api/v1/users/me", private(users.UpdateProfile))
	mux.Handle("GET /api/v1/users/me/history", private(users.WatchHistory))
	mux.Handle("GET /api/v1/users/me/likes", private(likes.ListLiked))
	mux.Handle("GET /api/v1/users/me/subscriptions", private(subscriptions.Mine))
	mux.HandleFunc("GET /api/v1/users/{id}/playlists", playlists.ListForUser)
	mux.HandleFunc("GET /api/v1/users/{id}/subscriptions", subscriptions.ForUser)

	mux.Handle("POST /api/v1/videos", private(videos.Publish))
	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.Handle("GET /api/v1/videos/{id}", optionalIdentity(http.HandlerFunc(videos.Get)))
	mux.Handle("PATCH /api/v1/videos/{id}", private(videos.Update))
	mux.Handle("DELETE /api/v1/videos/{id}", private(videos.Delete))
	mux.Handle("POST /api/v1/videos/{id}/like", private(likes.Toggle))
	mux.Handle("POST /api/v1/videos/{id}/comments", private(comments.Create))
	mux.HandleFunc("GET /api/v1/videos/{id}/comments", comments.List)

	mux.Handle("PATCH /api/v1/comments/{id}", private(comments.Update))
	mux.Handle("DELETE /api/v1/comments/{id}", private(comments.Delete))

	mux.Handle("POST /api/v1/playlists", private(playlists.Create))
	mux.Handle("GET /api/v1/playlists", private(playlists.ListMine))
	mux.HandleFunc("GET /api/v1/playlists/{id}", playlists.Get)
	mux.Handle("PATCH /api/v1/playlists/{id}", private(playlists.Update))
	mux.Handle("DELETE /api/v1/playlists/{id}", private(playlists.Delete))
	mux.Handle("POST /api/v1/playlists/{id}/videos/{videoID}", private(playlists.AddVideo))
	mux.Handle("DELETE /api/v1/playlists/{id}/videos/{videoID}", private(playlists.RemoveVideo))

	mux.Handle("POST /api/v1/channels/{id}/subscribe", private(subscriptions.Toggle))
	mux.HandleFunc("GET /api/v1/channels/{id}/subscribers", subscriptions.Subscribers)
}
