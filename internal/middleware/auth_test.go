package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"webforum/internal/auth"
	"webforum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer(t *testing.T, lifetime time.Duration) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:   []byte("test-secret-key-12345678901234567890123456789012"),
		Issuer:   "WebForum",
		Audience: "WebForum",
		Lifetime: lifetime,
	})
	require.NoError(t, err)
	return issuer
}

func TestAuthRequired(t *testing.T) {
	issuer := testIssuer(t, time.Hour)
	app := fiber.New()
	app.Get("/test", AuthRequired(issuer), func(c *fiber.Ctx) error {
		id, _ := UserID(c)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": id.String()})
	})

	user := &models.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	tok, err := issuer.Issue(user)
	require.NoError(t, err)

	otherIssuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:   []byte("a-completely-different-secret-value-000"),
		Issuer:   "WebForum",
		Audience: "WebForum",
		Lifetime: time.Hour,
	})
	require.NoError(t, err)
	forged, err := otherIssuer.Issue(user)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"Happy Path", "Bearer " + tok.Value, http.StatusOK},
		{"Missing Header", "", http.StatusUnauthorized},
		{"Invalid Format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"Empty Bearer", "Bearer ", http.StatusUnauthorized},
		{"Garbage Token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"Wrong Key", "Bearer " + forged.Value, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, user.ID.String(), body["userID"])
			} else {
				assert.Equal(t, models.CodeUnauthenticated, body["code"])
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	issuer := testIssuer(t, time.Hour)
	app := fiber.New()
	app.Get("/test", OptionalAuth(issuer), func(c *fiber.Ctx) error {
		_, ok := UserID(c)
		return c.JSON(fiber.Map{"authenticated": ok})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.False(t, body["authenticated"])

	tok, err := issuer.Issue(&models.User{ID: uuid.New(), Username: "bob"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.True(t, body["authenticated"])

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer junk")
	resp, err = app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestModeratorRequired(t *testing.T) {
	issuer := testIssuer(t, time.Hour)
	app := fiber.New()
	app.Post("/mod", AuthRequired(issuer), ModeratorRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	call := func(moderator bool) int {
		tok, err := issuer.Issue(&models.User{ID: uuid.New(), Username: "u", IsModerator: moderator})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/mod", nil)
		req.Header.Set("Authorization", "Bearer "+tok.Value)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusForbidden, call(false))
	assert.Equal(t, http.StatusNoContent, call(true))
}

func TestContextLogging_CarriesIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	ConfigureLogger(&buf, true)
	t.Cleanup(func() { Logger = prev })

	uid := uuid.New()
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, uid)
	Logger.InfoContext(ctx, "hello")

	line := buf.String()
	assert.True(t, strings.Contains(line, `"request_id":"req-1"`), line)
	assert.True(t, strings.Contains(line, `"user_id":"`+uid.String()+`"`), line)
}
