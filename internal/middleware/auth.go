// Package middleware provides authentication, logging, tracing and rate limiting for the HTTP layer.
package middleware

import (
	"context"
	"strings"

	"webforum/internal/auth"
	"webforum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys set by the auth and tracing middleware.
const (
	LocalUserID  = "userID"
	LocalRole    = "role"
	LocalTraceID = "traceID"
)

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", models.NewUnauthenticatedError("Authorization header required")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", models.NewUnauthenticatedError("Invalid authorization header format")
	}
	return parts[1], nil
}

func authenticate(c *fiber.Ctx, tokens *auth.TokenIssuer) error {
	raw, err := bearerToken(c)
	if err != nil {
		return err
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return err
	}
	userID, err := claims.UserID()
	if err != nil {
		return models.NewUnauthenticatedError("Invalid user ID in token")
	}

	role := models.RoleUser
	if claims.IsModerator() {
		role = models.RoleModerator
	}
	c.Locals(LocalUserID, userID)
	c.Locals(LocalRole, role)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
	return nil
}

// AuthRequired rejects requests without a valid bearer token. On success the
// caller's id and role are stored in Locals.
func AuthRequired(tokens *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, tokens); err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a token is present and lets anonymous
// requests through. A malformed or expired token is still rejected.
func OptionalAuth(tokens *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Next()
		}
		if err := authenticate(c, tokens); err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		return c.Next()
	}
}

// ModeratorRequired must run after AuthRequired.
func ModeratorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, ok := c.Locals(LocalRole).(models.Role); !ok || role != models.RoleModerator {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Moderator role required"))
		}
		return c.Next()
	}
}

// UserID returns the authenticated caller, if any.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalUserID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
