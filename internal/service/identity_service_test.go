package service

import (
	"context"
	"testing"
	"time"

	"webforum/internal/auth"
	"webforum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:   []byte("service-test-secret-0123456789abcdef"),
		Issuer:   "WebForum",
		Audience: "WebForum",
		Lifetime: time.Hour,
	})
	require.NoError(t, err)
	return issuer
}

func TestRegister_TrimsAndHidesHash(t *testing.T) {
	f := newFixture(t)

	p, err := f.ident.Register(context.Background(), RegisterInput{
		Username: "  alice ",
		Email:    " Alice@Example.com ",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "Alice@Example.com", p.Email)
	assert.False(t, p.IsModerator)

	stored, err := f.store.Users().GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "hunter22", stored.PasswordHash)
}

func TestRegister_Conflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	_, err := f.ident.Register(ctx, RegisterInput{Username: "someone", Email: "ALICE@example.com", Password: "secret1"})
	assertAppError(t, err, models.CodeConflict)
	assert.Contains(t, err.Error(), "Email")

	_, err = f.ident.Register(ctx, RegisterInput{Username: "ALICE", Email: "new@example.com", Password: "secret1"})
	assertAppError(t, err, models.CodeConflict)
	assert.Contains(t, err.Error(), "Username")

	// email is checked first
	_, err = f.ident.Register(ctx, RegisterInput{Username: "Alice", Email: "alice@EXAMPLE.com", Password: "secret1"})
	assertAppError(t, err, models.CodeConflict)
	assert.Contains(t, err.Error(), "Email")
}

func TestLogin_IssuesTokenWithRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ident.Register(ctx, RegisterInput{
		Username:    "mod",
		Email:       "mod@example.com",
		Password:    "moderate",
		IsModerator: true,
	})
	require.NoError(t, err)

	tok, err := f.ident.Login(ctx, "MOD@example.com", "moderate")
	require.NoError(t, err)
	assert.True(t, tok.ExpiresAt.After(time.Now()))

	claims, err := testIssuer(t).Parse(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "mod", claims.Username)
	assert.True(t, claims.IsModerator())
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	_, wrongPassword := f.ident.Login(ctx, "alice@example.com", "nope")
	_, unknownEmail := f.ident.Login(ctx, "ghost@example.com", "nope")

	assertAppError(t, wrongPassword, models.CodeUnauthenticated)
	assertAppError(t, unknownEmail, models.CodeUnauthenticated)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestSetModerator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	require.NoError(t, f.ident.SetModerator(ctx, "ALICE@example.com", true))
	u, err := f.store.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsModerator)

	assertAppError(t, f.ident.SetModerator(ctx, "ghost@example.com", true), models.CodeNotFound)
}

func TestIdentityService_WithoutIssuerManagesRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	ident := NewIdentityService(f.store.Users(), nil)
	ident.hashCost = 4
	require.NoError(t, ident.SetModerator(ctx, "alice@example.com", true))
	u, err := f.store.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.IsModerator)

	_, err = ident.Login(ctx, "alice@example.com", "secret-alice")
	assertAppError(t, err, models.CodeInternal)
}
