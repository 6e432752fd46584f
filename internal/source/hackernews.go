package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const hackerNewsBaseURL = "https://hn.algolia.com/api/v1"

// HackerNews reads discussion signals from the Algolia HN API.
type HackerNews struct {
	BaseURL string
	HTTP    *http.Client

	// MinStoryPoints filters low-signal stories from the points lookup.
	MinStoryPoints int
	// CommentStoryPoints is the minimum score of a story whose comments are
	// harvested.
	CommentStoryPoints int
	// MaxDepth bounds comment tree traversal; the story is depth 0.
	MaxDepth int
	// MaxComments caps the harvested comments.
	MaxComments int
}

// NewHackerNews returns a client with the default endpoint and limits.
func NewHackerNews() *HackerNews {
	return &HackerNews{
		BaseURL:            hackerNewsBaseURL,
		MinStoryPoints:     20,
		CommentStoryPoints: 50,
		MaxDepth:           3,
		MaxComments:        30,
	}
}

type hnSearchResponse struct {
	Hits []struct {
		ObjectID    string `json:"objectID"`
		Title       string `json:"title"`
		Points      int    `json:"points"`
		NumComments int    `json:"num_comments"`
	} `json:"hits"`
}

// Item is a node in an HN discussion tree.
type Item struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Author   string `json:"author"`
	Points   int    `json:"points"`
	Children []Item `json:"children"`
}

// Discussion summarizes HN activity around a title.
type Discussion struct {
	Points   int
	Comments int
	Stories  int
}

func (h *HackerNews) base() string {
	b := strings.TrimRight(h.BaseURL, "/")
	if b == "" {
		return hackerNewsBaseURL
	}
	return b
}

func (h *HackerNews) search(ctx context.Context, query string, minPoints int) (hnSearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", "story")
	if minPoints > 0 {
		params.Set("numericFilters", "points>"+strconv.Itoa(minPoints))
	}
	var resp hnSearchResponse
	if err := getJSON(ctx, defaultClient(h.HTTP), h.base()+"/search?"+params.Encode(), &resp); err != nil {
		return resp, fmt.Errorf("hacker news search: %w", err)
	}
	return resp, nil
}

// Discussion sums points and comment counts of stories matching title.
func (h *HackerNews) Discussion(ctx context.Context, title string) (Discussion, error) {
	resp, err := h.search(ctx, title, h.MinStoryPoints)
	if err != nil {
		return Discussion{}, err
	}
	var d Discussion
	for _, hit := range resp.Hits {
		d.Points += hit.Points
		d.Comments += hit.NumComments
		d.Stories++
	}
	return d, nil
}

// Enrich writes hn_points and hn_comments signals onto each candidate.
// Lookup failures leave the candidate unchanged.
func (h *HackerNews) Enrich(ctx context.Context, candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = c
		d, err := h.Discussion(ctx, c.Title)
		if err != nil {
			continue
		}
		out[i] = c.WithSignal(SignalHNPoints, float64(d.Points)).
			WithSignal(SignalHNComments, float64(d.Comments))
	}
	return out
}

// Comments returns plain-text comments from the top story about topic.
// An empty slice means no story cleared CommentStoryPoints.
func (h *HackerNews) Comments(ctx context.Context, topic string) ([]string, error) {
	resp, err := h.search(ctx, topic, 0)
	if err != nil {
		return nil, err
	}
	if len(resp.Hits) == 0 || resp.Hits[0].Points <= h.CommentStoryPoints {
		return nil, nil
	}

	var root Item
	if err := getJSON(ctx, defaultClient(h.HTTP), h.base()+"/items/"+url.PathEscape(resp.Hits[0].ObjectID), &root); err != nil {
		return nil, fmt.Errorf("hacker news item %s: %w", resp.Hits[0].ObjectID, err)
	}
	return FlattenComments(root, h.MaxDepth, h.MaxComments), nil
}

// FlattenComments walks the tree depth-first in document order and returns
// up to limit stripped comment texts from nodes no deeper than maxDepth.
// The walk uses an explicit stack, so arbitrarily deep trees are safe.
func FlattenComments(root Item, maxDepth, limit int) []string {
	type frame struct {
		item  *Item
		depth int
	}
	var out []string
	stack := []frame{{item: &root, depth: 0}}
	for len(stack) > 0 && (limit <= 0 || len(out) < limit) {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if text := StripHTML(top.item.Text); text != "" {
			out = append(out, text)
		}
		if top.depth >= maxDepth {
			continue
		}
		for i := len(top.item.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{item: &top.item.Children[i], depth: top.depth + 1})
		}
	}
	return out
}

// StripHTML returns the text content of an HTML fragment with entities
// decoded. Block boundaries become single spaces.
func StripHTML(fragment string) string {
	if fragment == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "p" || string(name) == "br" {
				b.WriteByte(' ')
			}
		}
	}
}
