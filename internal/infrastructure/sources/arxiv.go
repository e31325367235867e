package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"PaperRadar/internal/collector"
	"PaperRadar/internal/domain"
)

const defaultArxivURL = "https://export.arxiv.org/api/query"

// ArxivCollector pulls recent papers from the arXiv Atom API, one query
// per configured category.
type ArxivCollector struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

var _ collector.Collector = (*ArxivCollector)(nil)

// NewArxivCollector wires an HTTP client; requests between categories are
// paced to stay polite to the export API.
func NewArxivCollector(client *http.Client, log *slog.Logger) *ArxivCollector {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ArxivCollector{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
		logger:  log,
		now:     time.Now,
	}
}

// Name identifies the strategy inside the registry.
func (a *ArxivCollector) Name() string {
	return "arxiv"
}

// FetchRecent walks through each category and returns papers published
// within the since-days window. A failing category is logged and skipped;
// it never aborts the remaining categories.
func (a *ArxivCollector) FetchRecent(ctx context.Context, req collector.Request) ([]domain.Paper, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for source %s", req.SourceName)
	}

	sinceDays := req.SinceDays
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cutoff := a.now().UTC().AddDate(0, 0, -sinceDays)

	results := make([]domain.Paper, 0)
	seen := map[string]struct{}{}

	for _, category := range req.Categories {
		if err := a.limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("rate limit wait: %w", err)
		}

		papers, err := a.fetchCategory(ctx, req, category, cutoff)
		if err != nil {
			a.debug("category fetch failed", "category", category, "error", err)
			continue
		}

		for _, paper := range papers {
			if _, ok := seen[paper.ID]; ok {
				continue
			}
			seen[paper.ID] = struct{}{}
			results = append(results, paper)
		}
	}

	return results, nil
}

func (a *ArxivCollector) fetchCategory(ctx context.Context, req collector.Request, category string, cutoff time.Time) ([]domain.Paper, error) {
	queryURL, err := buildQueryURL(req.URL, category, req.MaxResults)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "PaperRadar/1.0")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	papers := make([]domain.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paper, ok := entryToPaper(entry, a.now().UTC())
		if !ok {
			continue
		}
		if paper.PublishedAt.Before(cutoff) {
			continue
		}
		papers = append(papers, paper)
	}

	return papers, nil
}

func (a *ArxivCollector) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func buildQueryURL(base, category string, maxResults int) (string, error) {
	if base == "" {
		base = defaultArxivURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid source url %s: %w", base, err)
	}

	if maxResults <= 0 {
		maxResults = 50
	}

	query := parsed.Query()
	query.Set("search_query", "cat:"+category)
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")
	query.Set("max_results", strconv.Itoa(maxResults))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func entryToPaper(entry atomEntry, retrievedAt time.Time) (domain.Paper, bool) {
	rawID := strings.TrimSpace(entry.ID)
	if rawID == "" {
		return domain.Paper{}, false
	}

	id := rawID
	if idx := strings.LastIndex(rawID, "/"); idx >= 0 {
		id = rawID[idx+1:]
	}

	publishedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(entry.Published))
	if err != nil {
		return domain.Paper{}, false
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, author := range entry.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			authors = append(authors, name)
		}
	}

	categories := make([]string, 0, 1)
	if term := strings.TrimSpace(entry.PrimaryCategory.Term); term != "" {
		categories = append(categories, term)
	}

	pdfURL := strings.Replace(rawID, "/abs/", "/pdf/", 1) + ".pdf"

	return domain.Paper{
		ID:          id,
		Title:       strings.TrimSpace(entry.Title),
		Abstract:    strings.TrimSpace(entry.Summary),
		Authors:     authors,
		URL:         rawID,
		PDFURL:      pdfURL,
		PublishedAt: publishedAt.UTC(),
		Source:      "arxiv",
		Categories:  categories,
		RetrievedAt: retrievedAt,
	}, true
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID              string       `xml:"id"`
	Title           string       `xml:"title"`
	Summary         string       `xml:"summary"`
	Published       string       `xml:"published"`
	Authors         []atomAuthor `xml:"author"`
	PrimaryCategory atomCategory `xml:"primary_category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}
