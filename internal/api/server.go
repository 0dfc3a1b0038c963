// Package api serves the aggregate feed over HTTP as JSON and RSS.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bakkerme/herald/internal/core"
	"github.com/bakkerme/herald/internal/feedstore"
	"github.com/bakkerme/herald/internal/feedxml"
	"github.com/bakkerme/herald/internal/sourcestatus"
)

const cacheControl = "public, max-age=3600"

// NewsSource produces a fresh aggregate for every call.
type NewsSource interface {
	Aggregate(ctx context.Context) (*feedstore.Snapshot, error)
}

// StatusLister lists the latest outcome of each source.
type StatusLister interface {
	List(ctx context.Context) ([]sourcestatus.Status, error)
}

type Server struct {
	news   NewsSource
	feed   *feedxml.Generator
	status StatusLister
	logger *slog.Logger
	echo   *echo.Echo
}

// NewServer wires the routes. status may be nil, in which case /api/sources answers 404.
func NewServer(news NewsSource, feed *feedxml.Generator, status StatusLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if feed == nil {
		feed = feedxml.NewGenerator("", "", "")
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	server := &Server{
		news:   news,
		feed:   feed,
		status: status,
		logger: logger,
		echo:   e,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	}))

	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/rss.xml", s.handleRSS)

	api := s.echo.Group("/api")
	api.GET("/news", s.handleNews)
	api.GET("/sources", s.handleSources)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "herald",
	})
}

func (s *Server) handleNews(c echo.Context) error {
	ctx, logger := s.requestContext(c)
	snap, err := s.news.Aggregate(ctx)
	if err != nil {
		logger.Error("aggregate news failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch news"})
	}
	data, err := json.Marshal(snap)
	if err != nil {
		logger.Error("encode news failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch news"})
	}
	c.Response().Header().Set("Cache-Control", cacheControl)
	return c.JSONBlob(http.StatusOK, data)
}

func (s *Server) handleRSS(c echo.Context) error {
	ctx, logger := s.requestContext(c)
	snap, err := s.news.Aggregate(ctx)
	if err != nil {
		logger.Error("aggregate news for rss failed", "error", err)
		return c.String(http.StatusInternalServerError, "Failed to generate feed")
	}
	out, err := s.feed.RSS(snap)
	if err != nil {
		logger.Error("render rss failed", "error", err)
		return c.String(http.StatusInternalServerError, "Failed to generate feed")
	}
	c.Response().Header().Set("Cache-Control", cacheControl)
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, []byte(out))
}

func (s *Server) handleSources(c echo.Context) error {
	if s.status == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "source status is not enabled"})
	}
	statuses, err := s.status.List(c.Request().Context())
	if err != nil {
		s.logger.Error("list source status failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list sources"})
	}
	return c.JSON(http.StatusOK, statuses)
}

// requestContext tags the request with a run id so the aggregation logs can be correlated.
func (s *Server) requestContext(c echo.Context) (context.Context, *slog.Logger) {
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID, "path", c.Path())
	ctx := core.WithRunID(c.Request().Context(), runID)
	return core.WithLogger(ctx, logger), logger
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				logger.LogAttrs(c.Request().Context(), slog.LevelError, "request failed", attrs...)
				return nil
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	})
}
