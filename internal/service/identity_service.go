package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"webforum/internal/auth"
	"webforum/internal/models"
	"webforum/internal/observability"
	"webforum/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// IdentityService registers accounts and exchanges credentials for tokens.
type IdentityService struct {
	users    repository.UserRepository
	tokens   *auth.TokenIssuer
	hashCost int

	dummyOnce sync.Once
	dummyHash []byte
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	IsModerator bool
}

// NewIdentityService builds the service. tokens may be nil for tools that
// register accounts or change roles but never log anyone in.
func NewIdentityService(users repository.UserRepository, tokens *auth.TokenIssuer) *IdentityService {
	return &IdentityService{
		users:    users,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
	}
}

func errInvalidCredentials() error {
	return models.NewUnauthenticatedError("Invalid email or password")
}

// Register creates an account. Email uniqueness is checked before username,
// both case-insensitively.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (profile *models.UserProfile, err error) {
	defer func() { observability.RecordAuthAttempt("register", err) }()

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email is already registered")
	}

	existing, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsModerator:  in.IsModerator,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	p := user.Profile()
	return &p, nil
}

// Login verifies credentials and issues a signed token. An unknown email and a
// wrong password fail identically.
func (s *IdentityService) Login(ctx context.Context, email, password string) (token auth.Token, err error) {
	defer func() { observability.RecordAuthAttempt("login", err) }()

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return auth.Token{}, err
	}
	if user == nil {
		// burn the same bcrypt work so response time does not reveal unknown emails
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return auth.Token{}, errInvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return auth.Token{}, errInvalidCredentials()
	}

	if s.tokens == nil {
		return auth.Token{}, models.NewInternalError(errors.New("no token issuer configured"))
	}
	token, err = s.tokens.Issue(user)
	if err != nil {
		return auth.Token{}, models.NewInternalError(err)
	}
	return token, nil
}

// SetModerator grants or revokes the Moderator role for the account with this email.
func (s *IdentityService) SetModerator(ctx context.Context, email string, isModerator bool) error {
	return s.users.SetModerator(ctx, strings.TrimSpace(email), isModerator)
}

func (s *IdentityService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.hashCost)
	})
	return s.dummyHash
}
