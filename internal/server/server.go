package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"PaperRadar/internal/ports"
	"PaperRadar/internal/usecase"
)

// Deps collects everything the HTTP surface exposes.
type Deps struct {
	Scheduler   *usecase.Scheduler
	Research    *usecase.Research
	Papers      ports.PaperRepository
	Enrichments ports.EnrichmentRepository
	Logger      *slog.Logger
}

// Server is the JSON HTTP API in front of the core.
type Server struct {
	echo   *echo.Echo
	logger *slog.Logger
}

// New builds the echo instance and registers all routes.
func New(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
	}))

	logger := deps.Logger
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		if logger != nil {
			logger.Warn("request failed",
				"status", code, "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
		}
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]string{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	h := &handlers{
		scheduler:   deps.Scheduler,
		research:    deps.Research,
		papers:      deps.Papers,
		enrichments: deps.Enrichments,
	}
	h.register(e.Group("/api"))

	return &Server{echo: e, logger: logger}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	if s.logger != nil {
		s.logger.Info("http server listening", "addr", addr)
	}
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
