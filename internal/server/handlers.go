package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
	"PaperRadar/internal/usecase"
)

const (
	defaultPageLimit    = 10
	defaultSearchLimit  = 5
	defaultProcessLimit = 10
)

type handlers struct {
	scheduler   *usecase.Scheduler
	research    *usecase.Research
	papers      ports.PaperRepository
	enrichments ports.EnrichmentRepository
}

func (h *handlers) register(g *echo.Group) {
	g.GET("/status", h.status)
	g.GET("/papers", h.listPapers)
	g.GET("/papers/:id", h.getPaper)
	g.POST("/collect", h.collect)
	g.POST("/process", h.process)
	g.POST("/search", h.search)
	g.POST("/brief", h.brief)
	g.POST("/scheduler/start", h.startScheduler)
	g.POST("/scheduler/stop", h.stopScheduler)
}

func (h *handlers) status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.Status())
}

func (h *handlers) listPapers(c echo.Context) error {
	filter := ports.PaperFilter{
		Limit:    intQuery(c, "limit", defaultPageLimit),
		Offset:   intQuery(c, "offset", 0),
		Category: c.QueryParam("category"),
		Query:    c.QueryParam("query"),
	}

	papers, err := h.papers.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, papers)
}

func (h *handlers) getPaper(c echo.Context) error {
	ctx := c.Request().Context()

	paper, err := h.papers.Get(ctx, c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "paper not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	enriched := domain.EnrichedPaper{Paper: paper}
	summary, err := h.enrichments.LatestSummary(ctx, paper.ID)
	if err == nil {
		enriched.Summary = &summary
	} else if !errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, enriched)
}

func (h *handlers) collect(c echo.Context) error {
	stats, err := h.scheduler.RunCollectionNow(c.Request().Context())
	if errors.Is(err, domain.ErrJobInProgress) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *handlers) process(c echo.Context) error {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = defaultProcessLimit
	}

	stats, err := h.scheduler.RunProcessingNow(c.Request().Context(), req.Limit)
	if errors.Is(err, domain.ErrJobInProgress) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *handlers) search(c echo.Context) error {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	results, err := h.research.Search(c.Request().Context(), req.Query, req.Limit)
	if errors.Is(err, domain.ErrInvalidQuery) {
		return echo.NewHTTPError(http.StatusBadRequest, "no query provided")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, results)
}

func (h *handlers) brief(c echo.Context) error {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	brief, err := h.research.Brief(c.Request().Context(), req.Query, req.Limit)
	if errors.Is(err, domain.ErrInvalidQuery) {
		return echo.NewHTTPError(http.StatusBadRequest, "no query provided")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, brief)
}

func (h *handlers) startScheduler(c echo.Context) error {
	started := h.scheduler.Start(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]bool{"success": started})
}

func (h *handlers) stopScheduler(c echo.Context) error {
	stopped := h.scheduler.Stop(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]bool{"success": stopped})
}

func intQuery(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
