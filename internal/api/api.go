package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	apiauth "github.com/jon4hz/wanderlust/internal/api/auth"
	"github.com/jon4hz/wanderlust/internal/api/handler"
	"github.com/jon4hz/wanderlust/internal/auth"
	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/jon4hz/wanderlust/internal/database"
	"github.com/jon4hz/wanderlust/internal/media"
	"github.com/jon4hz/wanderlust/internal/static"
	"github.com/jon4hz/wanderlust/internal/story"
	"github.com/samber/lo"
)

type Server struct {
	cfg          *config.Config
	ginEngine    *gin.Engine
	httpServer   *http.Server
	authProvider *apiauth.Provider
	handler      *handler.Handler
}

func New(cfg *config.Config, db database.DB, authService *auth.Service, stories *story.Service, relay *media.Relay, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:          cfg,
		ginEngine:    gin.New(),
		authProvider: apiauth.New(authService),
		handler:      handler.New(cfg, db, authService, stories, relay),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.ginEngine.Use(requestLogger())
	s.ginEngine.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic while handling request", "method", c.Request.Method, "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}))

	if corsConfig, ok := s.corsConfig(); ok {
		s.ginEngine.Use(cors.New(corsConfig))
	}

	// images are already compressed
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/uploads", "/assets"})))
}

func (s *Server) corsConfig() (cors.Config, bool) {
	if s.cfg.CORS == nil || len(s.cfg.CORS.AllowedOrigins) == 0 {
		return cors.Config{}, false
	}

	corsConfig := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       5 * time.Minute,
	}
	if lo.Contains(s.cfg.CORS.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.CORS.AllowedOrigins
	}
	return corsConfig, true
}

func (s *Server) setupRoutes() {
	h := s.handler

	s.ginEngine.GET("/healthz", h.Health)
	s.ginEngine.StaticFS("/assets", http.FS(static.Assets()))
	s.ginEngine.GET("/uploads/:name", h.ServeUpload)

	s.ginEngine.POST("/register", h.Register)
	s.ginEngine.POST("/login", h.Login)
	s.ginEngine.DELETE("/delete-image", h.DeleteImage)

	protected := s.ginEngine.Group("/")
	protected.Use(s.authProvider.RequireAuth())

	protected.GET("/get-users", h.Me)
	protected.POST("/add-travelstory", h.AddStory)
	protected.GET("/get-allstory", h.GetAllStories)
	protected.POST("/image-upload", h.UploadImage)
	protected.PUT("/edit-story/:id", h.EditStory)
	protected.DELETE("/delete-story/:id", h.DeleteStory)
	protected.PUT("/favourite-story/:id", h.FavouriteStory)
	protected.GET("/search", h.Search)
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	log.Info("starting API server", "listen", s.cfg.Listen)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	logger := log.Default().WithPrefix("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}
