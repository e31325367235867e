package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

var (
	fencedBlockExpr = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	objectExpr      = regexp.MustCompile(`\{[\s\S]*\}`)
)

var _ ports.Summarizer = (*Client)(nil)
var _ ports.BriefWriter = (*Client)(nil)

// summaryPayload is the structured shape the prompt asks the model for.
type summaryPayload struct {
	Summary      string   `json:"summary"`
	ESGScore     float64  `json:"esg_relevance_score"`
	FinanceScore float64  `json:"finance_relevance_score"`
	KeyFindings  []string `json:"key_findings"`
	Keywords     []string `json:"keywords"`
}

// Summarize asks the model for a structured analysis of the paper and
// parses the JSON object out of the reply.
func (c *Client) Summarize(ctx context.Context, paper domain.Paper) (domain.Summary, error) {
	reply, err := c.complete(ctx, summaryPrompt(paper))
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize paper %s: %w", paper.ID, err)
	}

	payload, ok := extractJSON(reply)
	if !ok {
		return domain.Summary{}, fmt.Errorf("summarize paper %s: %w", paper.ID, ErrParse)
	}

	return domain.Summary{
		PaperID:      paper.ID,
		Text:         payload.Summary,
		ESGScore:     clampScore(payload.ESGScore),
		FinanceScore: clampScore(payload.FinanceScore),
		KeyFindings:  payload.KeyFindings,
		Keywords:     payload.Keywords,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ComposeBrief asks the model for a free-text research brief over the
// supplied search hits.
func (c *Client) ComposeBrief(ctx context.Context, query string, papers []domain.SearchResult) (string, error) {
	brief, err := c.complete(ctx, briefPrompt(query, papers))
	if err != nil {
		return "", fmt.Errorf("compose brief: %w", err)
	}
	return strings.TrimSpace(brief), nil
}

func summaryPrompt(paper domain.Paper) string {
	var b strings.Builder
	b.WriteString("# Paper Analysis Task\n\n")
	b.WriteString("## Paper Information\n")
	fmt.Fprintf(&b, "Title: %s\n", paper.Title)
	fmt.Fprintf(&b, "Authors: %s\n", strings.Join(paper.Authors, ", "))
	fmt.Fprintf(&b, "Abstract: %s\n\n", paper.Abstract)
	b.WriteString("## Analysis Instructions\n")
	b.WriteString("Analyze this academic paper from an ESG and Finance perspective.\n\n")
	b.WriteString("Please provide:\n")
	b.WriteString("1. A concise summary (3-5 sentences)\n")
	b.WriteString("2. ESG relevance score (0-100)\n")
	b.WriteString("3. Finance relevance score (0-100)\n")
	b.WriteString("4. 3-5 key findings or contributions\n")
	b.WriteString("5. 5-8 relevant keywords\n\n")
	b.WriteString("Format your response as a JSON object with these keys:\n")
	b.WriteString("- summary: string\n")
	b.WriteString("- esg_relevance_score: number\n")
	b.WriteString("- finance_relevance_score: number\n")
	b.WriteString("- key_findings: list of strings\n")
	b.WriteString("- keywords: list of strings\n")
	return b.String()
}

func briefPrompt(query string, papers []domain.SearchResult) string {
	type item struct {
		Title       string   `json:"title"`
		Authors     []string `json:"authors"`
		Summary     string   `json:"summary"`
		KeyFindings []string `json:"key_findings"`
		URL         string   `json:"url"`
	}

	items := make([]item, 0, len(papers))
	for _, paper := range papers {
		it := item{
			Title:   paper.Title,
			Authors: paper.Authors,
			URL:     paper.URL,
		}
		if paper.Summary != nil {
			it.Summary = paper.Summary.Text
			it.KeyFindings = paper.Summary.KeyFindings
		}
		items = append(items, it)
	}
	encoded, _ := json.MarshalIndent(items, "", "  ")

	var b strings.Builder
	b.WriteString("# Research Brief Generation Task\n\n")
	fmt.Fprintf(&b, "## Query\n%q\n\n", query)
	fmt.Fprintf(&b, "## Relevant Papers\n%s\n\n", encoded)
	b.WriteString("## Instructions\n")
	b.WriteString("Generate a comprehensive research brief based on the user's query and the relevant papers provided.\n\n")
	b.WriteString("Your brief should include:\n")
	b.WriteString("1. An executive summary (2-3 paragraphs)\n")
	b.WriteString("2. Key themes and findings across the papers\n")
	b.WriteString("3. Research gaps or opportunities\n")
	b.WriteString("4. Practical implications for ESG and Finance professionals\n")
	b.WriteString("5. Recommended next steps or areas for further research\n")
	return b.String()
}

// extractJSON tries the whole reply first, then a fenced code block,
// then the widest {...} span.
func extractJSON(reply string) (summaryPayload, bool) {
	var payload summaryPayload

	if err := json.Unmarshal([]byte(reply), &payload); err == nil {
		return payload, true
	}

	if match := fencedBlockExpr.FindStringSubmatch(reply); match != nil {
		if err := json.Unmarshal([]byte(match[1]), &payload); err == nil {
			return payload, true
		}
	}

	if match := objectExpr.FindString(reply); match != "" {
		if err := json.Unmarshal([]byte(match), &payload); err == nil {
			return payload, true
		}
	}

	return summaryPayload{}, false
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
