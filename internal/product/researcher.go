package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lucasnoah/deepcontext/internal/prompt"
	"github.com/lucasnoah/deepcontext/internal/source"
)

// CommentSource returns plain-text discussion about a topic.
type CommentSource interface {
	Comments(ctx context.Context, topic string) ([]string, error)
}

// ReviewSource runs a raw web search.
type ReviewSource interface {
	Query(ctx context.Context, query string, maxResults int) ([]source.SearchResult, error)
}

// Research is everything gathered about one book.
type Research struct {
	Comments []string
	Reviews  []source.SearchResult
	// Text is the fused source text handed to the analyst.
	Text string
}

// Empty reports whether no outside material was found.
func (r *Research) Empty() bool { return len(r.Comments) == 0 && len(r.Reviews) == 0 }

// Researcher gathers outside discussion of a book. Either source may be nil.
type Researcher struct {
	comments   CommentSource
	reviews    ReviewSource
	prompts    *prompt.Library
	maxReviews int
	logger     *zap.Logger
}

// NewResearcher returns a Researcher.
func NewResearcher(comments CommentSource, reviews ReviewSource, prompts *prompt.Library, maxReviews int, logger *zap.Logger) (*Researcher, error) {
	if prompts == nil {
		return nil, errors.New("researcher: prompts are required")
	}
	if maxReviews <= 0 {
		maxReviews = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{
		comments:   comments,
		reviews:    reviews,
		prompts:    prompts,
		maxReviews: maxReviews,
		logger:     logger.Named("researcher"),
	}, nil
}

// Gather fetches HN comments and web reviews concurrently. A failing source
// contributes nothing; only context cancellation is an error.
func (r *Researcher) Gather(ctx context.Context, book source.Candidate) (*Research, error) {
	var res Research
	g, gctx := errgroup.WithContext(ctx)

	if r.comments != nil {
		g.Go(func() error {
			comments, err := r.comments.Comments(gctx, book.Title)
			if err != nil {
				r.logger.Warn("comment lookup failed", zap.String("title", book.Title), zap.Error(err))
				return nil
			}
			res.Comments = comments
			return nil
		})
	}
	if r.reviews != nil {
		g.Go(func() error {
			reviews, err := r.Reviews(gctx, book.Title)
			if err != nil {
				r.logger.Warn("review search failed", zap.String("title", book.Title), zap.Error(err))
				return nil
			}
			res.Reviews = reviews
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := r.fuse(book, &res)
	if err != nil {
		return nil, err
	}
	res.Text = text
	r.logger.Info("research gathered",
		zap.String("title", book.Title),
		zap.Int("comments", len(res.Comments)),
		zap.Int("reviews", len(res.Reviews)),
	)
	return &res, nil
}

// Reviews searches for reviews of a title, dropping social media results.
func (r *Researcher) Reviews(ctx context.Context, title string) ([]source.SearchResult, error) {
	if r.reviews == nil {
		return nil, nil
	}
	results, err := r.reviews.Query(ctx, fmt.Sprintf("reviews of the book %q", title), r.maxReviews)
	if err != nil {
		return nil, err
	}
	var kept []source.SearchResult
	for _, res := range results {
		if strings.Contains(res.URL, "twitter.com") {
			continue
		}
		kept = append(kept, res)
	}
	return kept, nil
}

func (r *Researcher) fuse(book source.Candidate, res *Research) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Book Title: %s\n", book.Title)
	if len(book.Authors) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(book.Authors, ", "))
	}
	fmt.Fprintf(&b, "Description: %s\n", book.Description)

	b.WriteString("\n--- Hacker News Engineer Discussions ---\n")
	if len(res.Comments) == 0 {
		b.WriteString("No discussions available.\n")
	}
	for _, c := range res.Comments {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}

	b.WriteString("\n--- Reviews ---\n")
	if len(res.Reviews) == 0 {
		b.WriteString("No reviews available.\n")
	}
	for _, rv := range res.Reviews {
		fmt.Fprintf(&b, "%s (%s)\n%s\n\n", rv.Title, rv.URL, rv.Content)
	}

	if res.Empty() {
		note, err := r.prompts.Render("no-sources.md", prompt.Vars{"topic": book.Title})
		if err != nil {
			return "", fmt.Errorf("rendering no-sources note: %w", err)
		}
		b.WriteString(note)
	}
	return b.String(), nil
}
