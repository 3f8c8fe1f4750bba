// Package models contains data structures for the forum's domain models.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of authorization roles a user can hold.
type Role int

const (
	RoleUser Role = iota
	RoleModerator
)

// String returns the claim value used for the role in issued tokens.
func (r Role) String() string {
	if r == RoleModerator {
		return "Moderator"
	}
	return "User"
}

// ParseRole maps a claim value back to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "Moderator":
		return RoleModerator, true
	case "User":
		return RoleUser, true
	default:
		return RoleUser, false
	}
}

// User represents a registered forum account.
// Username and email are unique case-insensitively through their normalized columns.
type User struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username           string    `gorm:"size:100;not null" json:"username"`
	UsernameNormalized string    `gorm:"size:100;not null;uniqueIndex" json:"-"`
	Email              string    `gorm:"size:200;not null" json:"email"`
	EmailNormalized    string    `gorm:"size:200;not null;uniqueIndex" json:"-"`
	PasswordHash       string    `gorm:"not null" json:"-"`
	IsModerator        bool      `gorm:"not null;default:false" json:"is_moderator"`
	CreatedAt          time.Time `json:"created_at"`
}

// BeforeCreate assigns an ID and fills the normalized lookup columns.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Normalize()
	return nil
}

// Normalize fills the lower-cased lookup columns from Username and Email.
func (u *User) Normalize() {
	u.UsernameNormalized = NormalizeKey(u.Username)
	u.EmailNormalized = NormalizeKey(u.Email)
}

// Role derives the user's role from the moderator flag.
func (u *User) Role() Role {
	if u.IsModerator {
		return RoleModerator
	}
	return RoleUser
}

// Profile returns the public view of the user. The password hash never leaves this type.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsModerator: u.IsModerator,
	}
}

// UserProfile is the public profile returned from registration.
type UserProfile struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsModerator bool      `json:"is_moderator"`
}

// NormalizeKey is the case-folding used for every case-insensitive identity (username, email, tag name).
func NormalizeKey(s string) string {
	return strings.ToLower(s)
}
