// Package server contains the HTTP handlers and page rendering for the application.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	store          cache.Store
	sessions       *middleware.SessionAuth
	limiter        *middleware.RateLimiter
	images         *service.ImageService
	feedService    *service.FeedService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	userService    *service.UserService
	groupService   *service.GroupService
	stopJanitor    context.CancelFunc
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; the page cache then lives in process memory.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("server: config and database are required")
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	store := cache.NewStore(redisClient)
	images := service.NewImageService(cfg)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("yatube"),
		store:          store,
		sessions:       middleware.NewSessionAuth(cfg.JWTSecret, redisClient, cfg.IsProduction()),
		limiter:        middleware.NewRateLimiter(redisClient, cfg.Env),
		images:         images,
	}
	s.feedService = service.NewFeedService(postRepo, groupRepo, userRepo, followRepo, store, cfg)
	s.postService = service.NewPostService(postRepo, groupRepo, commentRepo, images, store)
	s.commentService = service.NewCommentService(commentRepo, postRepo)
	s.followService = service.NewFollowService(followRepo, userRepo)
	s.userService = service.NewUserService(userRepo, store)
	s.groupService = service.NewGroupService(groupRepo, store)

	return s, nil
}

// NewApp builds the Fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Yatube",
		// Usernames may be non-ASCII; route params must arrive decoded.
		UnescapePath: true,
		Views:        newViewEngine(),
		ErrorHandler: s.errorHandler,
		BodyLimit:    int(s.images.MaxUploadBytes()) + 1<<20,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Session cookie -> userID; must precede the context middleware
	app.Use(s.sessions.LoadViewer())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// Global rate limiting (120 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return !middleware.RateLimitEnabled(s.config.Env) || isAssetPath(c.Path())
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests, please try again later.")
		},
	}))

	// CSRF: forms echo the token from the cookie; rejected requests get a 403 page
	app.Use(csrf.New(csrf.Config{
		Next: func(c *fiber.Ctx) bool {
			return isAssetPath(c.Path()) || strings.HasPrefix(c.Path(), "/health/") || c.Path() == "/metrics"
		},
		CookieName:     csrfCookie,
		CookieSameSite: "Lax",
		CookieSecure:   s.config.IsProduction(),
		CookieHTTPOnly: true,
		Expiration:     12 * time.Hour,
		ContextKey:     csrfLocal,
		Extractor:      csrfTokenFrom,
	}))
}

const (
	csrfCookie = "csrftoken"
	csrfField  = "csrfmiddlewaretoken"
	csrfLocal  = "csrf"
)

// csrfTokenFrom reads the token from the form body, falling back to the header
// for clients that post without a rendered form.
func csrfTokenFrom(c *fiber.Ctx) (string, error) {
	if token := c.FormValue(csrfField); token != "" {
		return token, nil
	}
	return csrf.CsrfFromHeader(csrf.HeaderName)(c)
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:       staticFS(),
		PathPrefix: "static",
		MaxAge:     3600,
	}))
	app.Static("/media", s.images.MediaRoot(), fiber.Static{MaxAge: 3600})

	// Feeds
	app.Get("/", s.Index)
	app.Get("/group/:slug/", s.GroupPosts)
	app.Get("/profile/:username/", s.Profile)
	app.Get("/follow/", middleware.LoginRequired, s.FollowIndex)

	// Posts; specific /:id/:action routes before the generic /:id
	posts := app.Group("/posts")
	posts.Get("/:id/edit/", middleware.LoginRequired, s.EditPostForm)
	posts.Post("/:id/edit/", middleware.LoginRequired, s.limiter.Limit("edit_post", 30, time.Minute), s.EditPost)
	posts.Post("/:id/delete/", middleware.LoginRequired, s.DeletePost)
	posts.Get("/:id/", s.PostDetail)

	app.Get("/create/", middleware.LoginRequired, s.CreatePostForm)
	app.Post("/create/", middleware.LoginRequired, s.limiter.Limit("create_post", 10, 5*time.Minute), s.CreatePost)

	// Follow, unfollow and comment accept GET for plain links and POST for forms
	for _, method := range []string{fiber.MethodGet, fiber.MethodPost} {
		posts.Add(method, "/:id/comment/", middleware.LoginRequired, s.limiter.Limit("create_comment", 10, time.Minute), s.AddComment)
		app.Add(method, "/profile/:username/follow/", middleware.LoginRequired, s.limiter.Limit("follow", 30, time.Minute), s.FollowAuthor)
		app.Add(method, "/profile/:username/unfollow/", middleware.LoginRequired, s.UnfollowAuthor)
	}

	// Auth
	auth := app.Group("/auth")
	auth.Get("/signup/", s.SignupForm)
	auth.Post("/signup/", s.limiter.Limit("signup", 3, 10*time.Minute), s.Signup)
	auth.Get("/login/", s.LoginForm)
	auth.Post("/login/", s.limiter.Limit("login", 10, 5*time.Minute), s.Login)
	auth.Get("/logout/", s.Logout)
	auth.Post("/logout/", s.Logout)

	// Static pages
	app.Get("/about/author/", s.page("about/author", "About the author"))
	app.Get("/about/tech/", s.page("about/tech", "Technologies"))

	// Everything else
	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: without it the
// page cache falls back to memory, so only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "degraded"
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
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()
	if mem, ok := s.store.(*cache.MemoryStore); ok {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopJanitor = cancel
		mem.StartJanitor(ctx, time.Minute)
	}
	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopJanitor != nil {
		s.stopJanitor()
	}
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
