// Package server
//
// @title Voyago Gateway API
// @version 1.0
// @description Session-aware gateway in front of the travel booking backend
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voyago-dev/voyago/internal/apiclient"
	"github.com/voyago-dev/voyago/internal/audit"
	"github.com/voyago-dev/voyago/internal/auth"
	"github.com/voyago-dev/voyago/internal/config"
	"github.com/voyago-dev/voyago/internal/models"
	"github.com/voyago-dev/voyago/internal/validation"
)

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	client    *apiclient.Client
	audit     *audit.Service
	retention *audit.Retention
	version   string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	auditService := audit.NewService(db, zlog)
	retention, err := audit.NewRetention(
		auditService,
		cfg.Audit.RetentionSchedule,
		time.Duration(cfg.Audit.RetentionDays)*24*time.Hour,
		zlog,
	)
	if err != nil {
		return nil, err
	}

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: validation.New(),
		client:    apiclient.New(cfg.APIBaseURL(), cfg.Session.CookieName, cfg.Backend.Timeout, zlog),
		audit:     auditService,
		retention: retention,
		version:   version,
	}

	server.setupRouter()

	return server, nil
}

// initDatabase opens the audit database with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 4
		maxIdleConns    = 2
		connMaxLifetime = 300  // 5 minutes
		busyTimeout     = 5000 // 5 seconds
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL must be set first
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA temp_store=2",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	// Binding errors report JSON field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.UseJSONNames(v)
	}

	s.router = gin.New()
	s.router.SetHTMLTemplate(loadTemplates())

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders:    []string{"Content-Length", headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)

	s.router.Use(s.sessionMiddleware())

	// Pages
	s.router.GET("/", s.page("home.html", "Home"))
	s.router.GET("/login", s.Guard(GuestOnly()), s.page("login.html", "Log in"))
	s.router.GET("/signup", s.Guard(GuestOnly()), s.page("signup.html", "Sign up"))
	s.router.GET("/dashboard", s.Guard(), s.page("dashboard.html", "Dashboard"))
	s.router.GET("/admin", s.Guard(RequireRole(auth.RoleAdmin)), s.page("admin.html", "Admin"))
	s.router.GET("/logout", s.logoutPage)

	api := s.router.Group("/api")

	// Session
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/login", s.login)
		authRoutes.POST("/signup", s.signup)
		authRoutes.POST("/logout", s.logout)
		authRoutes.GET("/me", s.getCurrentUser)
		authRoutes.PATCH("/profile", s.updateProfile)
	}

	// Public content
	api.GET("/blog", s.proxyList("/blog", "blogs"))
	api.GET("/blog/slug/:slug", s.proxyGet("/blog/slug/:slug"))
	api.GET("/blog/:id", s.proxyGet("/blog/:id"))
	api.GET("/faqs", s.proxyList("/faqs", "faqs"))
	api.GET("/packages", s.proxyList("/packages", "packages"))
	api.GET("/packages/:id", s.proxyGet("/packages/:id"))

	// Package management is enforced upstream; the gateway only forwards
	packages := api.Group("/packages")
	{
		packages.POST("", s.proxyMutation(http.MethodPost, "/packages", newPackageInput))
		packages.PATCH("/:id", s.proxyMutation(http.MethodPatch, "/packages/:id", nil))
		packages.DELETE("/:id", s.proxyMutation(http.MethodDelete, "/packages/:id", nil))
		packages.PATCH("/:id/toggle-publish", s.proxyMutation(http.MethodPatch, "/packages/:id/toggle-publish", nil))
		packages.POST("/:id/duplicate", s.proxyMutation(http.MethodPost, "/packages/:id/duplicate", nil))
	}

	// Admin proxies forward credentials and let the upstream decide
	admin := api.Group("/admin")
	{
		admin.GET("/profile", s.getAdminProfile)
		admin.PATCH("/profile", s.updateAdminProfile)
		admin.GET("/contacts", s.proxyList("/admin/contacts", "contacts"))
		admin.PATCH("/contacts/:id", s.proxyMutation(http.MethodPatch, "/admin/contacts/:id", newContactStatusInput))
		admin.GET("/users", s.proxyList("/admin/users", "users"))

		// Gateway-local
		adminOnly := s.GuardAPI(RequireRole(auth.RoleAdmin))
		admin.GET("/audit", adminOnly, s.listAuditEntries)
		admin.GET("/audit/:id", adminOnly, s.getAuditEntry)
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "voyago-gateway",
		"version":   s.version,
	})
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := s.config.Server.ListenAddr

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.retention.Start()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("backend", s.client.BaseURL()).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		s.Close()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		s.Close()
		return err
	}

	s.Close()
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Close stops the retention schedule and closes the database to flush WAL writes
func (s *Server) Close() {
	s.retention.Stop()

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}
}
