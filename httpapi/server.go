// Package httpapi exposes the graph service over HTTP with echo: login,
// statement execution, transaction control and session administration.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/server"
)

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	Host            string
	Port            int
	BodyLimit       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns listener defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "127.0.0.1",
		Port:            9669,
		BodyLimit:       "10M",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the graph service over HTTP.
type Server struct {
	echo    *echo.Echo
	service *server.GraphService
	cfg     ServerConfig
	logger  *logrus.Entry
}

// NewServer builds the echo server with the standard middleware stack and
// routes.
func NewServer(service *server.GraphService, cfg ServerConfig, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = common.Logger
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))

	s := &Server{
		echo:    e,
		service: service,
		cfg:     cfg,
		logger:  logger.WithField("component", "http"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)
	s.echo.POST("/auth/login", s.login)
	s.echo.POST("/auth/logout", s.logout)
	s.echo.POST("/query", s.query)
	s.echo.GET("/sessions", s.listSessions)
	s.echo.GET("/sessions/:id", s.getSession)
	s.echo.DELETE("/sessions/:id", s.killSession)
	s.echo.DELETE("/sessions/:id/queries/:qid", s.killQuery)
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.WithField("addr", addr).Info("http server listening")
	s.echo.Server.ReadTimeout = s.cfg.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.WriteTimeout
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }
