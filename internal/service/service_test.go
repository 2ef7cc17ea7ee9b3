package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/auth"
	"github.com/Skotchmaster/deen_api/internal/models"
	"github.com/Skotchmaster/deen_api/internal/repo"
	"github.com/Skotchmaster/deen_api/internal/testdb"
	"github.com/Skotchmaster/deen_api/internal/transport"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []UserEvent
	keys   []string
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event.(UserEvent))
	p.keys = append(p.keys, topic+"/"+key)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeSearcher struct {
	indexed map[string]models.Video
	err     error
}

func (f *fakeSearcher) IndexVideo(_ context.Context, v *models.Video) error {
	if f.err != nil {
		return f.err
	}
	f.indexed[v.ID] = *v
	return nil
}

func (f *fakeSearcher) DeleteVideo(_ context.Context, id string) error {
	delete(f.indexed, id)
	return f.err
}

func (f *fakeSearcher) SearchVideos(_ context.Context, _ string, _, _ int) (int64, []models.Video, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	var out []models.Video
	for _, v := range f.indexed {
		out = append(out, v)
	}
	return int64(len(out)), out, nil
}

func newAuthService(t *testing.T) (*AuthService, *recordingPublisher, *repo.GormRepo) {
	t.Helper()
	r := repo.New(testdb.Open(t))
	pub := &recordingPublisher{}
	return &AuthService{
		Issuer: auth.NewLocalIssuer(r, []byte("test-secret"), time.Hour, "deen-api"),
		Users:  r,
		Events: pub,
	}, pub, r
}

func TestAuthService_RegisterLoginPublishEvents(t *testing.T) {
	svc, pub, _ := newAuthService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "a@x.com", "secret1", "Amina")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "A@X.com", "secret1")
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, "user_registered", pub.events[0].Type)
	assert.Equal(t, "user_logged_in", pub.events[1].Type)
	assert.Equal(t, reg.User.ID, pub.events[1].UserID)
	assert.Equal(t, DefaultUserTopic+"/"+reg.User.ID, pub.keys[0])

	_, err = svc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Len(t, pub.events, 2)
}

func TestAuthService_PublishFailureDoesNotFailRequest(t *testing.T) {
	svc, pub, _ := newAuthService(t)
	pub.err = errors.New("broker down")

	_, err := svc.Register(context.Background(), "a@x.com", "secret1", "")
	assert.NoError(t, err)
}

func TestAuthService_SetAdminAndProfile(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, "a@x.com", "secret1", "")
	require.NoError(t, err)

	u, err := svc.SetAdmin(ctx, reg.User.ID, true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	p, err := svc.Profile(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)

	_, err = svc.SetAdmin(ctx, "missing", true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func ptr[T any](v T) *T { return &v }

func TestPreferenceService(t *testing.T) {
	r := repo.New(testdb.Open(t))
	ctx := context.Background()
	require.NoError(t, r.CreateUser(ctx, &models.User{ID: "u1", Email: "u1@x.com"}))
	svc := &PreferenceService{Repo: r}

	p, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguage, p.Language)

	p, err = svc.Put(ctx, "u1", transport.PreferenceRequest{Language: ptr("AR"), PreferredCategory: ptr(" Fiqh ")})
	require.NoError(t, err)
	assert.Equal(t, "ar", p.Language)
	assert.Equal(t, "fiqh", p.PreferredCategory)

	p, err = svc.Put(ctx, "u1", transport.PreferenceRequest{PrayerMethod: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, "ar", p.Language, "unset fields are kept")
	assert.Equal(t, 4, p.PrayerMethod)

	for _, req := range []transport.PreferenceRequest{
		{Language: ptr("english")},
		{Language: ptr("e1")},
		{PrayerMethod: ptr(99)},
		{PrayerMethod: ptr(-1)},
	} {
		_, err := svc.Put(ctx, "u1", req)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	}
}

func TestVideoService_CRUDMirrorsIndex(t *testing.T) {
	r := repo.New(testdb.Open(t))
	search := &fakeSearcher{indexed: map[string]models.Video{}}
	svc := &VideoService{Repo: r, Prefs: r, Search: search}
	ctx := context.Background()
	admin := &auth.Identity{ID: "admin"}

	v, err := svc.Create(ctx, admin, transport.CreateVideoRequest{Title: "Wudu basics", URL: "https://videos.example/wudu", Category: "Fiqh"})
	require.NoError(t, err)
	assert.Equal(t, "fiqh", v.Category)
	assert.Equal(t, "admin", v.CreatedBy)
	assert.Contains(t, search.indexed, v.ID)

	patched, err := svc.Patch(ctx, v.ID, transport.PatchVideoRequest{Title: ptr("Wudu in detail")})
	require.NoError(t, err)
	assert.Equal(t, "Wudu in detail", patched.Title)
	assert.Equal(t, "Wudu in detail", search.indexed[v.ID].Title)

	_, err = svc.Patch(ctx, v.ID, transport.PatchVideoRequest{URL: ptr("ftp://nope")})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, v.ID))
	assert.NotContains(t, search.indexed, v.ID)
	assert.ErrorIs(t, svc.Delete(ctx, v.ID), apperr.ErrNotFound)
}

func TestVideoService_CreateValidation(t *testing.T) {
	svc := &VideoService{Repo: repo.New(testdb.Open(t))}
	admin := &auth.Identity{ID: "admin"}

	for _, req := range []transport.CreateVideoRequest{
		{Title: "", URL: "https://v.example/1", Category: "fiqh"},
		{Title: "t", URL: "not a url", Category: "fiqh"},
		{Title: "t", URL: "https://v.example/1", Category: ""},
	} {
		_, err := svc.Create(context.Background(), admin, req)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	}
}

func TestVideoService_ListPersonalized(t *testing.T) {
	r := repo.New(testdb.Open(t))
	svc := &VideoService{Repo: r, Prefs: r}
	ctx := context.Background()
	admin := &auth.Identity{ID: "admin"}

	for _, cat := range []string{"fiqh", "seerah", "fiqh"} {
		_, err := svc.Create(ctx, admin, transport.CreateVideoRequest{Title: "t", URL: "https://v.example/" + cat, Category: cat})
		require.NoError(t, err)
	}
	require.NoError(t, r.CreateUser(ctx, &models.User{ID: "viewer", Email: "v@x.com"}))
	require.NoError(t, r.UpsertPreference(ctx, &models.Preference{UserID: "viewer", Language: "en", PreferredCategory: "seerah"}))

	anon, err := svc.List(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, anon.Meta.Total)
	assert.False(t, anon.Personalized)

	mine, err := svc.List(ctx, &auth.Identity{ID: "viewer"}, 1, 10)
	require.NoError(t, err)
	assert.True(t, mine.Personalized)
	assert.Equal(t, "seerah", mine.Category)
	assert.EqualValues(t, 1, mine.Meta.Total)

	noPrefs, err := svc.List(ctx, &auth.Identity{ID: "someone-else"}, 1, 2)
	require.NoError(t, err)
	assert.False(t, noPrefs.Personalized)
	assert.Len(t, noPrefs.Items, 2)
	assert.True(t, noPrefs.Meta.HasNext)
}

func TestVideoService_Search(t *testing.T) {
	ctx := context.Background()

	disabled := &VideoService{}
	res, err := disabled.SearchVideos(ctx, "wudu", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	_, err = disabled.SearchVideos(ctx, "  ", 1, 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	broken := &VideoService{Search: &fakeSearcher{err: errors.New("es down")}}
	_, err = broken.SearchVideos(ctx, "wudu", 1, 10)
	assert.ErrorIs(t, err, apperr.ErrServiceUnavailable)
}
