package server

import (
	"webforum/internal/service"
	"webforum/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	IsModerator bool   `json:"is_moderator"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/users/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := validation.ValidateRegistration(req.Username, req.Email, req.Password); err != nil {
		return respond(c, err)
	}

	profile, err := s.identity.Register(c.UserContext(), service.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		IsModerator: req.IsModerator,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// Login handles POST /api/users/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := validation.ValidateLogin(req.Email, req.Password); err != nil {
		return respond(c, err)
	}

	token, err := s.identity.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(token)
}
