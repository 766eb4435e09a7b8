package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arkham-nexus/internal/config"
	"arkham-nexus/internal/handler"
	"arkham-nexus/internal/middleware"
	"arkham-nexus/internal/services"
	"arkham-nexus/internal/transport/httpdto"
	"arkham-nexus/pkg/database"
	"arkham-nexus/pkg/logger"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	db         *gorm.DB
}

var (
	ReleaseMode = "production"
	TestMode    = "test"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	Group        *handler.GroupHandler
	Series       *handler.SeriesHandler
	Session      *handler.SessionHandler
	Poll         *handler.PollHandler
	Availability *handler.AvailabilityHandler
	Stream       *WebSocketHandler
}

func New(cfg *config.Config, l *logger.Logger, db *gorm.DB) *Server {
	switch cfg.Server.Environment {
	case ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
		db:     db,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(s.db); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	v1 := s.engine.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	// The share-link view is the one read that works without a token.
	v1.GET("/sessions/shared/:token", handlers.Session.GetShared)

	authed := v1.Group("", middleware.AuthMiddleware(authService))
	{
		groups := authed.Group("/groups")
		{
			groups.POST("", handlers.Group.Create)
			groups.GET("/:id", handlers.Group.Get)
			groups.POST("/:id/members", handlers.Group.AddMember)
			groups.GET("/:id/sessions", handlers.Group.ListSessions)
		}

		series := authed.Group("/series")
		{
			series.POST("", handlers.Series.Create)
			series.GET("/:id", handlers.Series.Get)
			series.PATCH("/:id", handlers.Series.Update)
			series.DELETE("/:id", handlers.Series.Delete)
			series.GET("/:id/occurrences", handlers.Series.ListOccurrences)
			series.POST("/:id/advance", handlers.Series.Advance)
		}

		occurrences := authed.Group("/occurrences")
		{
			occurrences.POST("/:id/cancel", handlers.Series.CancelOccurrence)
			occurrences.POST("/:id/session", handlers.Series.BindSession)
			occurrences.GET("/:id/availability", handlers.Availability.ListForOccurrence)
		}

		sessions := authed.Group("/sessions")
		{
			sessions.POST("", handlers.Session.Create)
			sessions.GET("/:id", handlers.Session.Get)
			sessions.PATCH("/:id/status", handlers.Session.UpdateStatus)
			sessions.GET("/:id/availability", handlers.Availability.ListForSession)
		}

		polls := authed.Group("/polls")
		{
			polls.POST("", handlers.Poll.Create)
			polls.GET("/:id", handlers.Poll.Get)
			polls.POST("/:id/votes", handlers.Poll.CastVote)
			polls.DELETE("/:id/votes/:option_id", handlers.Poll.WithdrawVote)
			polls.POST("/:id/comments", handlers.Poll.PostComment)
			polls.GET("/:id/comments", handlers.Poll.ListComments)
			polls.POST("/:id/close", handlers.Poll.Close)
			polls.POST("/:id/confirm", handlers.Poll.Confirm)
			polls.GET("/:id/tally", handlers.Poll.Tally)
		}

		availability := authed.Group("/availability")
		{
			availability.POST("", handlers.Availability.Set)
			availability.DELETE("", handlers.Availability.Clear)
		}
	}

	// Websocket auth happens inside the handler: browsers cannot set
	// headers on the upgrade request, so the token may arrive as a
	// query parameter.
	v1.GET("/stream", handlers.Stream.Handle)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.Server.Port)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
