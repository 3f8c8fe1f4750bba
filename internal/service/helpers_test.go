package service

import (
	"context"
	"errors"
	"testing"

	"webforum/internal/cache"
	"webforum/internal/models"
	"webforum/internal/repository"
	"webforum/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub wraps a real PostRepository; non-nil fn fields override single methods.
type postRepoStub struct {
	repository.PostRepository
	getByIDFn   func(context.Context, uuid.UUID) (*models.Post, error)
	addLikeFn   func(context.Context, uuid.UUID, uuid.UUID) (bool, error)
	attachTagFn func(context.Context, uuid.UUID, uuid.UUID) (bool, error)
}

func (s *postRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return s.PostRepository.GetByID(ctx, id)
}

func (s *postRepoStub) AddLike(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	if s.addLikeFn != nil {
		return s.addLikeFn(ctx, postID, userID)
	}
	return s.PostRepository.AddLike(ctx, postID, userID)
}

func (s *postRepoStub) AttachTag(ctx context.Context, postID, tagID uuid.UUID) (bool, error) {
	if s.attachTagFn != nil {
		return s.attachTagFn(ctx, postID, tagID)
	}
	return s.PostRepository.AttachTag(ctx, postID, tagID)
}

type fixture struct {
	store *memory.Store
	posts *postRepoStub
	svc   *PostService
	ident *IdentityService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	posts := &postRepoStub{PostRepository: store.Posts()}
	ident := NewIdentityService(store.Users(), testIssuer(t))
	ident.hashCost = 4
	return &fixture{
		store: store,
		posts: posts,
		svc:   NewPostService(posts, store.Users(), store.Tags(), 0),
		ident: ident,
	}
}

func (f *fixture) register(t *testing.T, name string) uuid.UUID {
	t.Helper()
	p, err := f.ident.Register(context.Background(), RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret-" + name,
	})
	require.NoError(t, err)
	return p.ID
}

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })
	return mr
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}
