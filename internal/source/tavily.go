package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	TavilyName    = "tavily"
	tavilyBaseURL = "https://api.tavily.com"
)

// ErrNoAPIKey is returned by adapters that cannot run anonymously.
var ErrNoAPIKey = errors.New("api key not configured")

// Tavily wraps the Tavily web search API. As an Adapter it rewrites the
// query with QueryFormat and maps hits to candidates; Query exposes raw
// results for research.
type Tavily struct {
	BaseURL     string
	APIKey      string
	MaxResults  int
	QueryFormat string
	HTTP        *http.Client
}

// NewTavily returns an adapter that searches for "best books on <query>".
func NewTavily(apiKey string) *Tavily {
	return &Tavily{
		BaseURL:     tavilyBaseURL,
		APIKey:      apiKey,
		MaxResults:  5,
		QueryFormat: "best books on %s",
	}
}

func (t *Tavily) Name() string { return TavilyName }

// SearchResult is one raw Tavily hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []SearchResult `json:"results"`
}

// Query runs a raw search.
func (t *Tavily) Query(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if t.APIKey == "" {
		return nil, fmt.Errorf("tavily: %w", ErrNoAPIKey)
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	base := strings.TrimRight(t.BaseURL, "/")
	if base == "" {
		base = tavilyBaseURL
	}

	var resp tavilyResponse
	err := doJSON(ctx, defaultClient(t.HTTP), http.MethodPost, base+"/search",
		map[string]string{"Authorization": "Bearer " + t.APIKey},
		tavilyRequest{Query: query, SearchDepth: "basic", MaxResults: maxResults},
		&resp)
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	return resp.Results, nil
}

// Search implements Adapter.
func (t *Tavily) Search(ctx context.Context, query string) ([]Candidate, error) {
	q := query
	if t.QueryFormat != "" {
		q = fmt.Sprintf(t.QueryFormat, query)
	}
	results, err := t.Query(ctx, q, t.MaxResults)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, Candidate{
			Title:       r.Title,
			Authors:     []string{"N/A"},
			Description: r.Content,
			URL:         r.URL,
			Source:      TavilyName,
			Signals:     map[string]float64{SignalSearchScore: r.Score},
		})
	}
	return keepValid(out), nil
}
