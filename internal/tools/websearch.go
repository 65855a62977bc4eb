package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

var webQueryPrefixRe = regexp.MustCompile(`(?i)^\s*(?:recherche|cherche|chercher)(?:\s+sur\s+(?:le\s+)?(?:web|internet|google))?\s*:?\s*|^\s*(?:search|google)\s*:?\s*`)

// CleanWebQuery strips the leading search command from free text, keeping
// the actual query.
func CleanWebQuery(raw string) string {
	return strings.TrimSpace(webQueryPrefixRe.ReplaceAllString(raw, ""))
}

// WebSearcher runs queries against the DuckDuckGo HTML endpoint and scrapes
// the result list.
type WebSearcher struct {
	http       *http.Client
	userAgent  string
	searchURL  string
	maxResults int
	logger     *zap.Logger
}

// NewWebSearcher creates a searcher returning at most maxResults hits.
func NewWebSearcher(timeout time.Duration, userAgent string, maxResults int, logger *zap.Logger) *WebSearcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSearcher{
		http:       &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		searchURL:  "https://html.duckduckgo.com/html/",
		maxResults: maxResults,
		logger:     logger,
	}
}

// Search runs a query and returns the scraped results. The command prefix,
// if any, is stripped from the query first.
func (s *WebSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = CleanWebQuery(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.searchURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	var results []SearchResult
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())
		if title == "" || href == "" {
			return true
		}
		results = append(results, SearchResult{
			Title:   clip(title, 120),
			URL:     resolveRedirect(href),
			Snippet: clip(snippet, 300),
		})
		return len(results) < s.maxResults
	})

	s.logger.Debug("web search completed",
		zap.String("query", query),
		zap.Int("results", len(results)))
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" {
		return "https:" + href
	}
	return href
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}
