package product

import (
	"context"
	"strings"
	"sync"

	"github.com/lucasnoah/deepcontext/internal/source"
)

// routeGen answers by matching the start of the user prompt.
type routeGen struct {
	mu     sync.Mutex
	routes []route
	calls  []string
}

type route struct {
	prefix string
	reply  func(user string) (string, error)
}

func (g *routeGen) on(prefix string, reply func(user string) (string, error)) *routeGen {
	g.routes = append(g.routes, route{prefix: prefix, reply: reply})
	return g
}

func (g *routeGen) Generate(ctx context.Context, system, user string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, user)
	g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range g.routes {
		if strings.HasPrefix(user, r.prefix) {
			return r.reply(user)
		}
	}
	return "", nil
}

func (g *routeGen) count(prefix string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func fixed(s string) func(string) (string, error) {
	return func(string) (string, error) { return s, nil }
}

type fakeSelector struct {
	cands []source.Candidate
	err   error
	query string
}

func (f *fakeSelector) Select(ctx context.Context, query string) ([]source.Candidate, error) {
	f.query = query
	return f.cands, f.err
}

type fakeComments struct {
	comments []string
	err      error
}

func (f *fakeComments) Comments(ctx context.Context, topic string) ([]string, error) {
	return f.comments, f.err
}

type fakeReviews struct {
	results []source.SearchResult
	err     error
	query   string
}

func (f *fakeReviews) Query(ctx context.Context, query string, maxResults int) ([]source.SearchResult, error) {
	f.query = query
	return f.results, f.err
}
