// Package server contains the HTTP handlers for the forum API.
package server

import (
	"context"
	"time"

	"webforum/internal/auth"
	"webforum/internal/config"
	"webforum/internal/middleware"
	"webforum/internal/models"
	"webforum/internal/query"
	"webforum/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PostAPI is the content service as seen by the handlers.
type PostAPI interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
	AddComment(ctx context.Context, in service.AddCommentInput) (*models.Comment, error)
	AddLike(ctx context.Context, postID, userID uuid.UUID) error
	RemoveLike(ctx context.Context, postID, userID uuid.UUID) error
	AddTag(ctx context.Context, postID uuid.UUID, tagName string) error
	ListPosts(ctx context.Context, q query.PostQuery) (query.Page[models.Post], error)
	GetPost(ctx context.Context, postID, viewerID uuid.UUID) (*models.Post, error)
}

// IdentityAPI is the identity service as seen by the handlers.
type IdentityAPI interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.UserProfile, error)
	Login(ctx context.Context, email, password string) (auth.Token, error)
}

// Deps are the collaborators a Server routes to. DB, Redis and Prom are optional.
type Deps struct {
	Posts    PostAPI
	Identity IdentityAPI
	Tokens   *auth.TokenIssuer
	DB       *gorm.DB
	Redis    *redis.Client
	Prom     *fiberprometheus.FiberPrometheus
}

// Server holds all dependencies and provides handlers
type Server struct {
	config   *config.Config
	posts    PostAPI
	identity IdentityAPI
	tokens   *auth.TokenIssuer
	db       *gorm.DB
	redis    *redis.Client
	prom     *fiberprometheus.FiberPrometheus
	app      *fiber.App
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config, deps Deps) *Server {
	return &Server{
		config:   cfg,
		posts:    deps.Posts,
		identity: deps.Identity,
		tokens:   deps.Tokens,
		db:       deps.DB,
		redis:    deps.Redis,
		prom:     deps.Prom,
	}
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "WebForum API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.prom != nil {
		app.Use(middleware.MetricsMiddleware(s.prom))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.prom != nil {
		s.prom.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	users := api.Group("/users")
	users.Post("/register", s.Register)
	login := []fiber.Handler{}
	if s.config.LoginRateLimit > 0 {
		login = append(login, middleware.RateLimit(s.redis, s.config.LoginRateLimit, time.Minute, "login"))
	}
	users.Post("/login", append(login, s.Login)...)

	posts := api.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Get("/:id", middleware.OptionalAuth(s.tokens), s.GetPost)

	authed := middleware.AuthRequired(s.tokens)
	posts.Post("/", authed, s.CreatePost)
	posts.Post("/:id/comments", authed, s.CreateComment)
	posts.Post("/:id/likes", authed, s.AddLike)
	posts.Delete("/:id/likes", authed, s.RemoveLike)
	posts.Post("/:id/tags", authed, middleware.ModeratorRequired(), s.AddTag)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports storage and cache health. Redis is optional, so
// only an unreachable database makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "memory"
	if s.db != nil {
		dbStatus = "healthy"
		sqlDB, err := s.db.DB()
		if err != nil {
			dbStatus = "unhealthy"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
		}
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	return s.app.ShutdownWithContext(ctx)
}
