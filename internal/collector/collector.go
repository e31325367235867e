package collector

import (
	"context"
	"fmt"

	"PaperRadar/internal/domain"
)

// Request carries all parameters required to execute one source fetch.
type Request struct {
	SourceName string
	URL        string
	Categories []string
	Topics     []string
	MaxResults int
	SinceDays  int
}

// Collector captures a single source strategy (arXiv, SSRN, etc.).
type Collector interface {
	Name() string
	FetchRecent(ctx context.Context, req Request) ([]domain.Paper, error)
}

// Registry keeps a mapping from collector names to their implementations.
type Registry struct {
	collectors map[string]Collector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: map[string]Collector{}}
}

// Register adds or replaces a collector implementation.
func (r *Registry) Register(c Collector) {
	if r.collectors == nil {
		r.collectors = map[string]Collector{}
	}
	r.collectors[c.Name()] = c
}

// Resolve returns a collector by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Collector, error) {
	if c, ok := r.collectors[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("collector %s is not registered", name)
}
