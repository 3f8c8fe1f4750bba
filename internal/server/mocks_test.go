package server

import (
	"context"
	"testing"
	"time"

	"webforum/internal/auth"
	"webforum/internal/config"
	"webforum/internal/models"
	"webforum/internal/query"
	"webforum/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPostAPI is a mock of the PostAPI interface
type MockPostAPI struct {
	mock.Mock
}

func (m *MockPostAPI) CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostAPI) AddComment(ctx context.Context, in service.AddCommentInput) (*models.Comment, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockPostAPI) AddLike(ctx context.Context, postID, userID uuid.UUID) error {
	return m.Called(ctx, postID, userID).Error(0)
}

func (m *MockPostAPI) RemoveLike(ctx context.Context, postID, userID uuid.UUID) error {
	return m.Called(ctx, postID, userID).Error(0)
}

func (m *MockPostAPI) AddTag(ctx context.Context, postID uuid.UUID, tagName string) error {
	return m.Called(ctx, postID, tagName).Error(0)
}

func (m *MockPostAPI) ListPosts(ctx context.Context, q query.PostQuery) (query.Page[models.Post], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(query.Page[models.Post]), args.Error(1)
}

func (m *MockPostAPI) GetPost(ctx context.Context, postID, viewerID uuid.UUID) (*models.Post, error) {
	args := m.Called(ctx, postID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

// MockIdentityAPI is a mock of the IdentityAPI interface
type MockIdentityAPI struct {
	mock.Mock
}

func (m *MockIdentityAPI) Register(ctx context.Context, in service.RegisterInput) (*models.UserProfile, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockIdentityAPI) Login(ctx context.Context, email, password string) (auth.Token, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.Token), args.Error(1)
}

func testTokens(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:   []byte("server-test-secret-0123456789abcdefgh"),
		Issuer:   "WebForum",
		Audience: "WebForum",
		Lifetime: time.Hour,
	})
	require.NoError(t, err)
	return issuer
}

func testConfig() *config.Config {
	return &config.Config{Env: "test", Port: "0", AllowedOrigins: "*"}
}

func bearer(t *testing.T, tokens *auth.TokenIssuer, id uuid.UUID, moderator bool) string {
	t.Helper()
	tok, err := tokens.Issue(&models.User{ID: id, Username: "u", Email: "u@example.com", IsModerator: moderator})
	require.NoError(t, err)
	return "Bearer " + tok.Value
}
