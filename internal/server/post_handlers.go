package server

import (
	"webforum/internal/middleware"
	"webforum/internal/models"
	"webforum/internal/query"
	"webforum/internal/service"
	"webforum/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// pageResponse adds the derived page count to a listing.
type pageResponse struct {
	query.Page[models.Post]
	TotalPages int `json:"total_pages"`
}

// ListPosts handles GET /api/posts
func (s *Server) ListPosts(c *fiber.Ctx) error {
	q, err := parsePostQuery(c)
	if err != nil {
		return respond(c, err)
	}

	page, err := s.posts.ListPosts(c.UserContext(), q)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(pageResponse{Page: page, TotalPages: page.TotalPages()})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	viewer, _ := middleware.UserID(c)

	post, err := s.posts.GetPost(c.UserContext(), postID, viewer)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}

	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := validation.ValidatePost(req.Title, req.Body); err != nil {
		return respond(c, err)
	}

	post, err := s.posts.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: userID,
		Title:    req.Title,
		Body:     req.Body,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// AddLike handles POST /api/posts/:id/likes
func (s *Server) AddLike(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.posts.AddLike(c.UserContext(), postID, userID); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveLike handles DELETE /api/posts/:id/likes
func (s *Server) RemoveLike(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.posts.RemoveLike(c.UserContext(), postID, userID); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddTag handles POST /api/posts/:id/tags (moderators only)
func (s *Server) AddTag(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		TagName string `json:"tag_name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := validation.ValidateTagName(req.TagName); err != nil {
		return respond(c, err)
	}

	if err := s.posts.AddTag(c.UserContext(), postID, req.TagName); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
