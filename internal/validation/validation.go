// Package validation checks request models at the HTTP boundary before they reach the services.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"webforum/internal/models"
)

const (
	MaxTitleLength        = 100
	MaxBodyLength         = 10000
	MaxCommentLength      = 10000
	MaxTagNameLength      = 200
	MaxUsernameLength     = 100
	MaxEmailLength        = 200
	MaxAuthorFilterLength = 100
	MinPasswordLength     = 6
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return models.NewValidationError(field + " is required")
	}
	return nil
}

func maxLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return models.NewValidationError(fmt.Sprintf("%s must not exceed %d characters", field, limit))
	}
	return nil
}

// ValidateUsername checks a username is present and within length.
func ValidateUsername(username string) error {
	if err := required("Username", username); err != nil {
		return err
	}
	return maxLength("Username", strings.TrimSpace(username), MaxUsernameLength)
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if err := required("Email", email); err != nil {
		return err
	}
	if err := maxLength("Email", email, MaxEmailLength); err != nil {
		return err
	}
	if !emailRegex.MatchString(email) {
		return models.NewValidationError("Email is not a valid email address")
	}
	return nil
}

// ValidatePassword enforces the minimum length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return models.NewValidationError(fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return models.NewValidationError("Password must not exceed 72 bytes")
	}
	return nil
}

// ValidateRegistration validates the register request in field order.
func ValidateRegistration(username, email, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

// ValidateLogin only requires both fields; anything else is a credential failure.
func ValidateLogin(email, password string) error {
	if err := required("Email", email); err != nil {
		return err
	}
	return required("Password", password)
}

func ValidatePost(title, body string) error {
	if err := required("Title", title); err != nil {
		return err
	}
	if err := maxLength("Title", title, MaxTitleLength); err != nil {
		return err
	}
	if err := required("Body", body); err != nil {
		return err
	}
	return maxLength("Body", body, MaxBodyLength)
}

func ValidateComment(body string) error {
	if err := required("Body", body); err != nil {
		return err
	}
	return maxLength("Body", body, MaxCommentLength)
}

func ValidateTagName(name string) error {
	if err := required("TagName", name); err != nil {
		return err
	}
	return maxLength("TagName", strings.TrimSpace(name), MaxTagNameLength)
}

// ValidateAuthorFilter bounds the author substring accepted by the listing endpoint.
func ValidateAuthorFilter(author string) error {
	return maxLength("Author", author, MaxAuthorFilterLength)
}
