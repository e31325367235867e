package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PaperRadar/internal/collector"
	"PaperRadar/internal/config"
	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

// CollectionDeps wires the source registry and storage into the
// collection workflow.
type CollectionDeps struct {
	Registry   *collector.Registry
	Sources    []config.SourceConfig
	Repository ports.PaperRepository
	Logger     *slog.Logger
}

// Collection fetches recent papers from every configured source and
// upserts them into the record store.
type Collection struct {
	registry   *collector.Registry
	sources    []config.SourceConfig
	repository ports.PaperRepository
	logger     *slog.Logger
}

// NewCollection constructs the collection workflow.
func NewCollection(deps CollectionDeps) *Collection {
	return &Collection{
		registry:   deps.Registry,
		sources:    deps.Sources,
		repository: deps.Repository,
		logger:     deps.Logger,
	}
}

// Run iterates over configured sources and persists what they return.
// A failing source or a failing upsert is counted and skipped; only a
// missing registry or repository aborts the run.
func (c *Collection) Run(ctx context.Context) (domain.CollectionStats, error) {
	stats := domain.CollectionStats{
		BySource:  map[string]int{},
		Timestamp: time.Now().UTC(),
	}

	if c.registry == nil || c.repository == nil {
		return stats, fmt.Errorf("collection is not configured")
	}

	for _, source := range c.sources {
		strategy, err := c.registry.Resolve(source.Collector)
		if err != nil {
			c.warn("source skipped", "source", source.Name, "error", err)
			stats.Errors++
			continue
		}

		req := collector.Request{
			SourceName: source.Name,
			URL:        source.URL,
			Categories: source.Categories,
			Topics:     source.Topics,
			MaxResults: source.MaxResults,
			SinceDays:  source.SinceDays,
		}

		papers, err := strategy.FetchRecent(ctx, req)
		if err != nil {
			c.warn("source fetch failed", "source", source.Name, "error", err)
			stats.Errors++
			continue
		}

		saved := 0
		for _, paper := range papers {
			if err := c.repository.Upsert(ctx, paper); err != nil {
				c.warn("paper upsert failed", "source", source.Name, "paper", paper.ID, "error", err)
				stats.Errors++
				continue
			}
			saved++
		}

		stats.BySource[source.Name] += saved
		stats.Total += saved
		c.debug("source collected", "source", source.Name, "saved", saved)
	}

	return stats, nil
}

func (c *Collection) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Collection) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
