package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"webforum/internal/middleware"
	"webforum/internal/models"
	"webforum/internal/query"
	"webforum/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// respond maps a service error onto its HTTP status.
func respond(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

func badRequest(c *fiber.Ctx, message string) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(message))
}

// parseID extracts a route parameter as a UUID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil || id == uuid.Nil {
		_ = badRequest(c, "Invalid "+param)
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// currentUser returns the authenticated caller; the auth middleware guarantees it on protected routes.
func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("User is not authenticated"))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = badRequest(c, "Invalid request body")
		return errResponseWritten
	}
	return nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts RFC 3339 timestamps or plain dates; values without a zone are UTC.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, models.NewValidationError("Dates must be ISO-8601, e.g. 2024-05-01 or 2024-05-01T10:00:00Z")
}

// parsePostQuery reads the listing parameters:
// page, pageSize, author, tags, fromDate, toDate, sortBy, sortDirection.
func parsePostQuery(c *fiber.Ctx) (query.PostQuery, error) {
	q := query.New()

	var err error
	if raw := c.Query("page"); raw != "" {
		if q.Page, err = atoi("Page", raw); err != nil {
			return q, err
		}
	}
	if raw := c.Query("pageSize"); raw != "" {
		if q.PageSize, err = atoi("PageSize", raw); err != nil {
			return q, err
		}
	}

	q.Author = strings.TrimSpace(c.Query("author"))
	if err := validation.ValidateAuthorFilter(q.Author); err != nil {
		return q, err
	}
	q.Tags = query.ParseTags(c.Query("tags"))

	if q.From, err = parseDate(c.Query("fromDate")); err != nil {
		return q, err
	}
	if q.To, err = parseDate(c.Query("toDate")); err != nil {
		return q, err
	}
	if q.SortBy, err = query.ParseSortField(c.Query("sortBy")); err != nil {
		return q, err
	}
	if q.Direction, err = query.ParseDirection(c.Query("sortDirection")); err != nil {
		return q, err
	}

	return q, q.Validate()
}

func atoi(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, models.NewValidationError(field + " must be an integer")
	}
	return n, nil
}
