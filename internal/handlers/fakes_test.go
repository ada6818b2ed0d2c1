package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// fakeUserStore backs the user handlers, the session manager, and the
// identity middleware in tests.
type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	history map[string][]models.WatchEntry
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:   make(map[string]models.User),
		history: make(map[string][]models.WatchEntry),
	}
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return auth.ErrDuplicateUser
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, auth.ErrUserNotFound
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

func (s *fakeUserStore) RotateRefreshToken(_ context.Context, userID, previous, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	if user.RefreshToken == "" || user.RefreshToken != previous {
		return auth.ErrTokenReused
	}
	user.RefreshToken = next
	s.users[userID] = user
	return nil
}

func (s *fakeUserStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.RefreshToken = ""
	s.users[userID] = user
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	s.users[userID] = user
	return nil
}

func (s *fakeUserStore) UpdateProfile(_ context.Context, userID, fullName, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	for id, existing := range s.users {
		if id != userID && existing.Email == email {
			return models.User{}, auth.ErrDuplicateUser
		}
	}
	user.FullName = fullName
	user.Email = email
	s.users[userID] = user
	return user, nil
}

func (s *fakeUserStore) AddWatchEntry(_ context.Context, userID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = append(s.history[userID], models.WatchEntry{VideoID: videoID, WatchedAt: time.Now()})
	return nil
}

func (s *fakeUserStore) WatchHistory(_ context.Context, userID string) ([]models.WatchEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.WatchEntry(nil), s.history[userID]...), nil
}

type fakeVideoStore struct {
	mu     sync.Mutex
	videos map[string]models.Video
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{videos: make(map[string]models.Video)}
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *fakeVideoStore) ListPublished(_ context.Context) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Video
	for _, video := range s.videos {
		if video.Published {
			out = append(out, video)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeVideoStore) Update(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *fakeVideoStore) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return nil
}

type fakePlaylistStore struct {
	mu        sync.Mutex
	playlists map[string]models.Playlist
}

func newFakePlaylistStore() *fakePlaylistStore {
	return &fakePlaylistStore{playlists: make(map[string]models.Playlist)}
}

func (s *fakePlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.playlists {
		if existing.OwnerID == playlist.OwnerID && existing.Name == playlist.Name {
			return repositories.ErrConflict
		}
	}
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *fakePlaylistStore) FindByID(_ context.Context, id string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return playlist, nil
}

func (s *fakePlaylistStore) ListForOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Playlist
	for _, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			out = append(out, playlist)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakePlaylistStore) Update(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[playlist.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *fakePlaylistStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

func (s *fakePlaylistStore) AddVideo(_ context.Context, playlistID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[playlistID]
	if !ok {
		return repositories.ErrNotFound
	}
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			return repositories.ErrConflict
		}
	}
	playlist.VideoIDs = append(playlist.VideoIDs, videoID)
	s.playlists[playlistID] = playlist
	return nil
}

func (s *fakePlaylistStore) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[playlistID]
	if !ok {
		return repositories.ErrNotFound
	}
	for i, existing := range playlist.VideoIDs {
		if existing == videoID {
			playlist.VideoIDs = append(playlist.VideoIDs[:i], playlist.VideoIDs[i+1:]...)
			s.playlists[playlistID] = playlist
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeCommentStore struct {
	mu       sync.Mutex
	comments map[string]models.Comment
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: make(map[string]models.Comment)}
}

func (s *fakeCommentStore) Create(_ context.Context, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = comment
	return nil
}

func (s *fakeCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *fakeCommentStore) ListForVideo(_ context.Context, videoID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Comment
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			out = append(out, comment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeCommentStore) UpdateContent(_ context.Context, id, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content = content
	s.comments[id] = comment
	return comment, nil
}

func (s *fakeCommentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

type fakeLikeStore struct {
	mu     sync.Mutex
	likes  map[string]map[string]bool
	videos *fakeVideoStore
}

func newFakeLikeStore(videos *fakeVideoStore) *fakeLikeStore {
	return &fakeLikeStore{likes: make(map[string]map[string]bool), videos: videos}
}

func (s *fakeLikeStore) Toggle(_ context.Context, videoID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.likes[videoID] == nil {
		s.likes[videoID] = make(map[string]bool)
	}
	if s.likes[videoID][userID] {
		delete(s.likes[videoID], userID)
		return false, nil
	}
	s.likes[videoID][userID] = true
	return true, nil
}

func (s *fakeLikeStore) ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error) {
	s.mu.Lock()
	liked := make([]string, 0, len(s.likes))
	for videoID, users := range s.likes {
		if users[userID] {
			liked = append(liked, videoID)
		}
	}
	s.mu.Unlock()

	sort.Strings(liked)
	var out []models.Video
	for _, videoID := range liked {
		video, err := s.videos.FindByID(ctx, videoID)
		if err != nil {
			continue
		}
		out = append(out, video)
	}
	return out, nil
}

type fakeSubscriptionStore struct {
	mu    sync.Mutex
	subs  map[string]map[string]bool
	users *fakeUserStore
}

func newFakeSubscriptionStore(users *fakeUserStore) *fakeSubscriptionStore {
	return &fakeSubscriptionStore{subs: make(map[string]map[string]bool), users: users}
}

func (s *fakeSubscriptionStore) Toggle(_ context.Context, channelID, subscriberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[channelID] == nil {
		s.subs[channelID] = make(map[string]bool)
	}
	if s.subs[channelID][subscriberID] {
		delete(s.subs[channelID], subscriberID)
		return false, nil
	}
	s.subs[channelID][subscriberID] = true
	return true, nil
}

func (s *fakeSubscriptionStore) Subscribers(ctx context.Context, channelID string) ([]models.PublicUser, error) {
	s.mu.Lock()
	ids := make([]string, 0)
	for subscriberID := range s.subs[channelID] {
		ids = append(ids, subscriberID)
	}
	s.mu.Unlock()
	return s.profiles(ctx, ids)
}

func (s *fakeSubscriptionStore) Subscriptions(ctx context.Context, subscriberID string) ([]models.PublicUser, error) {
	s.mu.Lock()
	ids := make([]string, 0)
	for channelID, subscribers := range s.subs {
		if subscribers[subscriberID] {
			ids = append(ids, channelID)
		}
	}
	s.mu.Unlock()
	return s.profiles(ctx, ids)
}

func (s *fakeSubscriptionStore) profiles(ctx context.Context, ids []string) ([]models.PublicUser, error) {
	sort.Strings(ids)
	var out []models.PublicUser
	for _, id := range ids {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, user.Public())
	}
	return out, nil
}

// fakeUploader mirrors the media host contract: it removes the staged file
// whether or not the upload succeeds.
type fakeUploader struct {
	mu       sync.Mutex
	uploaded []string
	err      error
}

func (u *fakeUploader) Upload(_ context.Context, localPath string) (media.Asset, error) {
	defer os.Remove(localPath)

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return media.Asset{}, u.err
	}
	name := filepath.Base(localPath)
	u.uploaded = append(u.uploaded, name)
	return media.Asset{URL: "https://media.test/" + name, PublicID: name}, nil
}

// testEnv bundles the fake stores behind a fully routed mux so tests exercise
// the same middleware chain as production.
type testEnv struct {
	mux       *http.ServeMux
	users     *fakeUserStore
	videos    *fakeVideoStore
	playlists *fakePlaylistStore
	comments  *fakeCommentStore
	likes     *fakeLikeStore
	subs      *fakeSubscriptionStore
	uploader  *fakeUploader
	issuer    *auth.TokenIssuer
	sessions  *auth.SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newFakeUserStore()
	videos := newFakeVideoStore()
	playlists := newFakePlaylistStore()
	comments := newFakeCommentStore()
	likes := newFakeLikeStore(videos)
	subs := newFakeSubscriptionStore(users)
	uploader := &fakeUploader{}

	issuer := auth.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	sessions := auth.NewSessionManager(users, issuer)

	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Users:         users,
		Sessions:      sessions,
		Videos:        videos,
		Playlists:     playlists,
		Comments:      comments,
		Likes:         likes,
		Subscriptions: subs,
		Media:         uploader,
		Verifier:      issuer,
		Identities:    users,
		UploadDir:     t.TempDir(),
	})

	return &testEnv{
		mux:       mux,
		users:     users,
		videos:    videos,
		playlists: playlists,
		comments:  comments,
		likes:     likes,
		subs:      subs,
		uploader:  uploader,
		issuer:    issuer,
		sessions:  sessions,
	}
}

var testUserSeq int

// seedUser registers an account directly in the store and returns it together
// with a valid access token.
func (e *testEnv) seedUser(t *testing.T, username string) (models.User, string) {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	testUserSeq++
	user := models.User{
		ID:           fmt.Sprintf("user-%d-%s", testUserSeq, username),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	token, _, err := e.issuer.IssueAccess(user.ID)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	return user, token
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}
