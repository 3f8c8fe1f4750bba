package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"webforum/internal/auth"
	"webforum/internal/query"
	"webforum/internal/repository/memory"
	"webforum/internal/service"
	"webforum/internal/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeeder(t *testing.T, opts Options) (*Seeder, *memory.Store, *service.PostService) {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:   []byte("seed-test-secret-seed-test-secret"),
		Issuer:   "test",
		Audience: "test",
		Lifetime: time.Minute,
	})
	require.NoError(t, err)

	store := memory.New()
	posts := service.NewPostService(store.Posts(), store.Users(), store.Tags(), 0)
	identity := service.NewIdentityService(store.Users(), issuer)
	return NewSeeder(posts, identity, store.Posts(), opts), store, posts
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.NumUsers = 3
	opts.NumPosts = 8
	opts.MaxDays = 10
	opts.Seed = 42
	return opts
}

func TestFactory_InputsPassValidation(t *testing.T) {
	f := NewFactory(7, "password123", 30)
	author := uuid.New()
	for i := 0; i < 25; i++ {
		u := f.User(i, false)
		assert.NoError(t, validation.ValidateRegistration(u.Username, u.Email, u.Password))

		p := f.Post(author)
		assert.Equal(t, author, p.AuthorID)
		assert.NoError(t, validation.ValidatePost(p.Title, p.Body))
		assert.NoError(t, validation.ValidateComment(f.Comment()))
	}
}

func TestFactory_CreatedAtWithinWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := NewFactory(1, "x", 5)
	for i := 0; i < 50; i++ {
		at := f.CreatedAt(now)
		assert.False(t, at.After(now))
		assert.False(t, at.Before(now.Add(-5*24*time.Hour)))
	}
}

func TestFactory_SameSeedSameUsers(t *testing.T) {
	a := NewFactory(99, "pw", 1)
	b := NewFactory(99, "pw", 1)
	assert.Equal(t, a.User(0, true), b.User(0, true))
}

func TestSeeder_Run(t *testing.T) {
	opts := smallOptions()
	s, store, posts := newSeeder(t, opts)
	now := time.Now().UTC()

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Users)
	assert.Equal(t, 8, sum.Posts)

	all, err := posts.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 8)

	likes := 0
	for _, p := range all {
		assert.False(t, p.CreatedAt.After(now.Add(time.Second)))
		assert.False(t, p.CreatedAt.Before(now.Add(-11*24*time.Hour)))
		assert.LessOrEqual(t, len(p.Tags), opts.MaxTagsPerPost)
		likes += p.LikeCount
	}
	assert.Equal(t, sum.Likes, likes)

	page, err := posts.ListPosts(context.Background(), query.New())
	require.NoError(t, err)
	assert.Equal(t, int64(8), page.TotalCount)

	// the factory is deterministic, so a fresh one reproduces the first user
	first := NewFactory(opts.Seed, opts.Password, opts.MaxDays).User(0, true)
	mod, err := store.Users().GetByEmail(context.Background(), first.Email)
	require.NoError(t, err)
	require.NotNil(t, mod)
	assert.True(t, mod.IsModerator)
}

func TestSeeder_RequiresUsers(t *testing.T) {
	opts := smallOptions()
	opts.NumUsers = 0
	s, _, _ := newSeeder(t, opts)
	_, err := s.Run(context.Background())
	assert.Error(t, err)
}

func TestLoadPreset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.yml")
	require.NoError(t, os.WriteFile(path, []byte("users: 25\nposts: 200\ntags: [go, sql]\nseed: 5\n"), 0o600))

	opts, err := LoadPreset(path)
	require.NoError(t, err)
	assert.Equal(t, 25, opts.NumUsers)
	assert.Equal(t, 200, opts.NumPosts)
	assert.Equal(t, []string{"go", "sql"}, opts.Tags)
	assert.Equal(t, int64(5), opts.Seed)
	assert.Equal(t, DefaultOptions().Password, opts.Password)

	_, err = LoadPreset(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}
