package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

// PipelineDeps wires storage and provider capabilities into the
// enrichment pipeline.
type PipelineDeps struct {
	Papers      ports.PaperRepository
	Enrichments ports.EnrichmentRepository
	Summarizer  ports.Summarizer
	Embedder    ports.Embedder
	PaperDelay  time.Duration
	Logger      *slog.Logger
}

// Pipeline enriches stored papers with summaries and embeddings, one
// paper at a time, at most once per paper.
type Pipeline struct {
	papers      ports.PaperRepository
	enrichments ports.EnrichmentRepository
	summarizer  ports.Summarizer
	embedder    ports.Embedder
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewPipeline constructs the enrichment workflow. PaperDelay spaces out
// provider calls between consecutive papers.
func NewPipeline(deps PipelineDeps) *Pipeline {
	delay := deps.PaperDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Pipeline{
		papers:      deps.Papers,
		enrichments: deps.Enrichments,
		summarizer:  deps.Summarizer,
		embedder:    deps.Embedder,
		limiter:     rate.NewLimiter(rate.Every(delay), 1),
		logger:      deps.Logger,
	}
}

// ProcessPending walks up to limit stored papers and fills in whichever
// half of the enrichment each one is missing. A summary that already
// exists is never regenerated, and the same holds for embeddings, so a
// paper whose summary failed last round gets only the summary retried.
// Provider and parse failures are counted per paper and never abort the
// batch; only a storage failure during selection does.
func (p *Pipeline) ProcessPending(ctx context.Context, limit int) (domain.ProcessingStats, error) {
	stats := domain.ProcessingStats{Timestamp: time.Now().UTC()}

	if p.papers == nil || p.enrichments == nil {
		return stats, fmt.Errorf("pipeline is not configured")
	}

	papers, err := p.papers.List(ctx, ports.PaperFilter{Limit: limit})
	if err != nil {
		return stats, fmt.Errorf("select papers: %w", err)
	}

	for i, paper := range papers {
		hasSummary, err := p.hasSummary(ctx, paper.ID)
		if err != nil {
			p.warn("summary lookup failed", "paper", paper.ID, "error", err)
			stats.Errors++
			continue
		}
		hasEmbedding, err := p.hasEmbedding(ctx, paper.ID)
		if err != nil {
			p.warn("embedding lookup failed", "paper", paper.ID, "error", err)
			stats.Errors++
			continue
		}

		if hasSummary && hasEmbedding {
			continue
		}

		// Pace provider calls between papers, not before the first one.
		if i > 0 {
			if err := p.limiter.Wait(ctx); err != nil {
				return stats, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		if !hasSummary {
			p.summarize(ctx, paper, &stats)
		}
		if !hasEmbedding {
			p.embed(ctx, paper, &stats)
		}
	}

	return stats, nil
}

func (p *Pipeline) summarize(ctx context.Context, paper domain.Paper, stats *domain.ProcessingStats) {
	if p.summarizer == nil {
		return
	}

	summary, err := p.summarizer.Summarize(ctx, paper)
	if err != nil {
		p.warn("summarize failed", "paper", paper.ID, "error", err)
		stats.Errors++
		return
	}

	if err := p.enrichments.AddSummary(ctx, summary); err != nil {
		p.warn("summary write failed", "paper", paper.ID, "error", err)
		stats.Errors++
		return
	}

	stats.Summarized++
	p.debug("paper summarized", "paper", paper.ID)
}

func (p *Pipeline) embed(ctx context.Context, paper domain.Paper, stats *domain.ProcessingStats) {
	if p.embedder == nil {
		return
	}

	vector, err := p.embedder.Embed(ctx, paper.Title+" "+paper.Abstract)
	if err != nil {
		p.warn("embed failed", "paper", paper.ID, "error", err)
		stats.Errors++
		return
	}

	_, err = p.enrichments.AddEmbedding(ctx, domain.Embedding{
		PaperID:   paper.ID,
		Vector:    vector,
		Model:     p.embedder.Model(),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		p.warn("embedding write failed", "paper", paper.ID, "error", err)
		stats.Errors++
		return
	}

	stats.Embedded++
	p.debug("paper embedded", "paper", paper.ID)
}

func (p *Pipeline) hasSummary(ctx context.Context, paperID string) (bool, error) {
	_, err := p.enrichments.LatestSummary(ctx, paperID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Pipeline) hasEmbedding(ctx context.Context, paperID string) (bool, error) {
	_, err := p.enrichments.LatestEmbedding(ctx, paperID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
