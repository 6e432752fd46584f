package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	GoogleBooksName    = "google-books"
	googleBooksBaseURL = "https://www.googleapis.com/books/v1"
)

// GoogleBooks searches the Google Books volumes API.
type GoogleBooks struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	Language   string
	HTTP       *http.Client
}

// NewGoogleBooks returns an adapter with the default endpoint. An empty key
// uses the anonymous quota.
func NewGoogleBooks(apiKey string) *GoogleBooks {
	return &GoogleBooks{
		BaseURL:    googleBooksBaseURL,
		APIKey:     apiKey,
		MaxResults: 20,
		Language:   "en",
	}
}

func (g *GoogleBooks) Name() string { return GoogleBooksName }

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title         string   `json:"title"`
			Subtitle      string   `json:"subtitle"`
			Authors       []string `json:"authors"`
			Publisher     string   `json:"publisher"`
			PublishedDate string   `json:"publishedDate"`
			Description   string   `json:"description"`
			AverageRating float64  `json:"averageRating"`
			RatingsCount  float64  `json:"ratingsCount"`
			InfoLink      string   `json:"infoLink"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Search queries volumes by relevance.
func (g *GoogleBooks) Search(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("orderBy", "relevance")
	if g.Language != "" {
		params.Set("langRestrict", g.Language)
	}
	max := g.MaxResults
	if max <= 0 || max > 40 {
		max = 20
	}
	params.Set("maxResults", strconv.Itoa(max))
	if g.APIKey != "" {
		params.Set("key", g.APIKey)
	}

	base := strings.TrimRight(g.BaseURL, "/")
	if base == "" {
		base = googleBooksBaseURL
	}

	var resp volumesResponse
	if err := getJSON(ctx, defaultClient(g.HTTP), base+"/volumes?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("google books search: %w", err)
	}

	out := make([]Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		info := item.VolumeInfo
		c := Candidate{
			Title:         info.Title,
			Authors:       info.Authors,
			Description:   info.Description,
			Publisher:     orDefault(info.Publisher, "Unknown Publisher"),
			PublishedDate: orDefault(info.PublishedDate, "Unknown Date"),
			URL:           info.InfoLink,
			Source:        GoogleBooksName,
			Signals: map[string]float64{
				SignalCatalogRating:       info.AverageRating,
				SignalCatalogRatingsCount: info.RatingsCount,
			},
		}
		if len(c.Authors) == 0 {
			c.Authors = []string{"Unknown"}
		}
		out = append(out, c)
	}
	return keepValid(out), nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
