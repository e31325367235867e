package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PaperRadar/internal/collector"
	"PaperRadar/internal/domain"
)

var (
	dateExpr       = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)
	abstractIDExpr = regexp.MustCompile(`abstract(?:_id|=)?[=/](\d+)`)
)

// SSRNCollector scrapes SSRN topic listing pages. SSRN has no public
// API, so papers are extracted from the rendered HTML.
type SSRNCollector struct {
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

var _ collector.Collector = (*SSRNCollector)(nil)

// NewSSRNCollector wires an HTTP client with a sane default timeout.
func NewSSRNCollector(client *http.Client, log *slog.Logger) *SSRNCollector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &SSRNCollector{client: client, logger: log, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (s *SSRNCollector) Name() string {
	return "ssrn"
}

// FetchRecent walks each configured topic listing and returns papers
// published within the since-days window. A failing topic is logged and
// skipped so the remaining topics still get collected.
func (s *SSRNCollector) FetchRecent(ctx context.Context, req collector.Request) ([]domain.Paper, error) {
	if len(req.Topics) == 0 {
		return nil, fmt.Errorf("no topics provided for source %s", req.SourceName)
	}

	sinceDays := req.SinceDays
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cutoff := s.now().UTC().AddDate(0, 0, -sinceDays).Truncate(24 * time.Hour)

	results := make([]domain.Paper, 0)
	seen := map[string]struct{}{}

	for _, topic := range req.Topics {
		doc, err := s.fetchListing(ctx, req.URL, topic)
		if err != nil {
			s.debug("topic fetch failed", "topic", topic, "error", err)
			continue
		}

		for _, paper := range s.extractPapers(doc, topic, cutoff) {
			if _, ok := seen[paper.ID]; ok {
				continue
			}
			seen[paper.ID] = struct{}{}
			results = append(results, paper)
		}
	}

	return results, nil
}

func (s *SSRNCollector) fetchListing(ctx context.Context, base, topic string) (*goquery.Document, error) {
	listingURL, err := buildListingURL(base, topic)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "PaperRadar/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ssrn returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (s *SSRNCollector) extractPapers(doc *goquery.Document, topic string, cutoff time.Time) []domain.Paper {
	var collected []domain.Paper

	doc.Find(".paper-card, .search-result").Each(func(i int, card *goquery.Selection) {
		paper, ok := parseCard(card, topic, s.now().UTC())
		if !ok {
			return
		}
		if paper.PublishedAt.Before(cutoff) {
			return
		}
		collected = append(collected, paper)
	})

	return collected
}

func parseCard(card *goquery.Selection, topic string, retrievedAt time.Time) (domain.Paper, bool) {
	link := card.Find("a[href*=\"abstract\"]").First()
	href, _ := link.Attr("href")
	match := abstractIDExpr.FindStringSubmatch(href)
	if match == nil {
		return domain.Paper{}, false
	}
	id := "ssrn-" + match[1]

	title := strings.TrimSpace(link.Text())
	if title == "" {
		title = strings.TrimSpace(card.Find(".title").First().Text())
	}
	if title == "" {
		return domain.Paper{}, false
	}

	abstract := strings.TrimSpace(card.Find(".abstract").First().Text())

	var authors []string
	card.Find(".authors a, .authors span").Each(func(i int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	publishedAt := retrievedAt
	dateText := strings.TrimSpace(card.Find(".date").First().Text())
	if m := dateExpr.FindString(dateText); m != "" {
		if parsed, err := time.Parse("2 Jan 2006", m); err == nil {
			publishedAt = parsed.UTC()
		}
	}

	return domain.Paper{
		ID:          id,
		Title:       title,
		Abstract:    abstract,
		Authors:     authors,
		URL:         href,
		PublishedAt: publishedAt,
		Source:      "ssrn",
		Categories:  []string{topic},
		RetrievedAt: retrievedAt,
	}, true
}

func buildListingURL(base, topic string) (string, error) {
	if base == "" {
		base = "https://www.ssrn.com"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid source url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("topic", topic)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (s *SSRNCollector) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
