// Package server wires the blog's HTTP routes, middleware and page rendering.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"yatube/internal/auth"
	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/media"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/pagecache"
	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/internal/views"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
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
	pageCache      *pagecache.Cache
	rateLimiter    *middleware.RateLimiter
	media          media.Storage
	userRepo       repository.UserRepository
	groupRepo      repository.GroupRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	followRepo     repository.FollowRepository
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	accountService *service.AccountService
}

// NewServer connects to the database and Redis described by cfg.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; the page cache then lives in process memory and
// sessions cannot be revoked before they expire.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	storage, err := media.NewLocalStorage(cfg.MediaRoot)
	if err != nil {
		return nil, err
	}

	var pageStore pagecache.Storage
	if redisClient != nil {
		pageStore = pagecache.NewRedisStorage(redisClient, cfg.PageCachePrefix)
	} else {
		pageStore = pagecache.NewMemoryStorage()
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("yatube"),
		pageCache:      pagecache.New(pageStore, cfg.PageCachePrefix, cfg.PageCacheTTL()),
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.Env),
		media:          storage,
		userRepo:       repository.NewUserRepository(db),
		groupRepo:      repository.NewGroupRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		followRepo:     repository.NewFollowRepository(db),
	}

	tokens := auth.NewManager(cfg.SessionSecret, cfg.SessionTTL())
	s.postService = service.NewPostService(s.postRepo, s.groupRepo, s.userRepo, s.media)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo)
	s.accountService = service.NewAccountService(s.userRepo, tokens, redisClient, cfg.BaseURL)

	return s, nil
}

// PageCache exposes the feed page cache for administrative clearing.
func (s *Server) PageCache() *pagecache.Cache {
	return s.pageCache
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Yatube",
		Views:        views.NewEngine(false),
		ViewsLayout:  views.Layout,
		ErrorHandler: s.errorHandler,
		// Multipart overhead on top of the largest accepted image.
		BodyLimit: s.config.MediaMaxUploadBytes() + 1024*1024,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Resolve the session before ContextMiddleware so the user id reaches logs.
	app.Use(s.CurrentUser())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/health/live" || p == "/health/ready" || p == "/metrics"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests, please try again later.")
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static("/media", s.media.BasePath(), fiber.Static{Browse: false})

	loginRequired := s.LoginRequired()

	app.Get("/", s.pageCache.Middleware(s.viewerKey), s.Index)
	app.Get("/group/:slug/", s.pageCache.Middleware(s.viewerKey), s.GroupPosts)
	app.Get("/profile/:username/", s.Profile)
	app.Get("/profile/:username/follow/", loginRequired, s.ProfileFollow)
	app.Get("/profile/:username/unfollow/", loginRequired, s.ProfileUnfollow)
	app.Get("/follow/", loginRequired, s.FollowIndex)

	app.Get("/create/", loginRequired, s.PostCreatePage)
	app.Post("/create/", loginRequired, s.rateLimiter.Limit(
		10, time.Minute, "create_post"), s.PostCreate)

	// Specific /posts/:id/:action routes before the generic detail route.
	app.Get("/posts/:id/edit/", loginRequired, s.PostEditPage)
	app.Post("/posts/:id/edit/", loginRequired, s.PostEdit)
	app.Post("/posts/:id/delete/", loginRequired, s.PostDelete)
	app.Post("/posts/:id/comment/", loginRequired, s.rateLimiter.Limit(
		20, time.Minute, "create_comment"), s.AddComment)
	app.Get("/posts/:id/", s.PostDetail)

	accounts := app.Group("/auth")
	accounts.Get("/signup/", s.SignupPage)
	accounts.Post("/signup/", s.rateLimiter.Limit(
		5, 10*time.Minute, "signup"), s.Signup)
	accounts.Get("/login/", s.LoginPage)
	accounts.Post("/login/", s.rateLimiter.Limit(
		10, 5*time.Minute, "login"), s.Login)
	accounts.Get("/logout/", s.Logout)
	accounts.Post("/logout/", s.Logout)
	accounts.Get("/password_change/", loginRequired, s.PasswordChangePage)
	accounts.Post("/password_change/", loginRequired, s.PasswordChange)
	accounts.Get("/password_change/done/", loginRequired, s.PasswordChangeDone)
	accounts.Get("/password_reset_form/", s.PasswordResetPage)
	accounts.Post("/password_reset_form/", s.rateLimiter.Limit(
		5, 10*time.Minute, "password_reset"), s.PasswordReset)
	accounts.Get("/password_reset/done/", s.PasswordResetDone)
	accounts.Get("/reset/done/", s.PasswordResetComplete)
	accounts.Get("/reset/:uid/:token/", s.PasswordResetConfirmPage)
	accounts.Post("/reset/:uid/:token/", s.PasswordResetConfirm)

	about := app.Group("/about")
	about.Get("/author/", s.AboutAuthor)
	about.Get("/tech/", s.AboutTech)

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

// ReadinessCheck handles readiness probe requests. Redis is optional: without
// it the page cache falls back to memory, so only a configured but failing
// Redis makes the app unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
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

// errorHandler renders the not-found and server-error pages. Other statuses
// raised by Fiber itself (405, 413, ...) go out as plain text.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var appErr *models.AppError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		status = appErr.Status()
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
	}

	switch {
	case status == fiber.StatusNotFound:
		c.Status(fiber.StatusNotFound)
		if rerr := c.Render("core/404", s.pageData(c, fiber.Map{"Title": "Page not found", "Path": c.Path()})); rerr != nil {
			return c.SendString("Not Found")
		}
		return nil
	case status >= fiber.StatusInternalServerError:
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		c.Status(status)
		if rerr := c.Render("core/500", s.pageData(c, fiber.Map{"Title": "Server error"})); rerr != nil {
			return c.SendString("Internal Server Error")
		}
		return nil
	default:
		msg := err.Error()
		if appErr != nil {
			msg = appErr.Message
		}
		return c.Status(status).SendString(msg)
	}
}

// Start starts the server
func (s *Server) Start() error {
	app := s.NewApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
