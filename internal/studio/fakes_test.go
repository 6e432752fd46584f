package studio

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lucasnoah/deepcontext/internal/checks"
	"github.com/lucasnoah/deepcontext/internal/github"
	"github.com/lucasnoah/deepcontext/internal/worktree"
)

type fakeVCS struct {
	mu sync.Mutex

	prs       []github.PullRequest
	bodies    map[int][]string // successive PRBody answers; the last repeats
	bodyCalls map[int]int
	diff      string
	fetchErr  error
	mergeErr  error

	fetched  []int
	released []int
	merged   []int
	comments map[int][]string
}

func newFakeVCS(prs ...github.PullRequest) *fakeVCS {
	return &fakeVCS{
		prs:       prs,
		bodies:    map[int][]string{},
		bodyCalls: map[int]int{},
		comments:  map[int][]string{},
		diff:      "diff --git a/x.go b/x.go\n+func X() {}\n",
	}
}

func (f *fakeVCS) ListOpenPRs(ctx context.Context) ([]github.PullRequest, error) {
	return f.prs, nil
}

func (f *fakeVCS) PRBody(ctx context.Context, pr int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	answers := f.bodies[pr]
	i := f.bodyCalls[pr]
	f.bodyCalls[pr]++
	if len(answers) == 0 {
		return "", nil
	}
	if i >= len(answers) {
		i = len(answers) - 1
	}
	return answers[i], nil
}

func (f *fakeVCS) PRDiff(ctx context.Context, pr int) (string, error) {
	return f.diff, nil
}

func (f *fakeVCS) FetchChange(ctx context.Context, pr int) (*worktree.LocalRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, pr)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &worktree.LocalRef{PR: pr, Branch: worktree.Branch(pr), Path: fmt.Sprintf("/work/pr-%d", pr)}, nil
}

func (f *fakeVCS) ReleaseChange(ctx context.Context, ref *worktree.LocalRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, ref.PR)
	return nil
}

func (f *fakeVCS) PostComment(ctx context.Context, pr int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[pr] = append(f.comments[pr], body)
	return nil
}

func (f *fakeVCS) Merge(ctx context.Context, pr int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merged = append(f.merged, pr)
	return nil
}

// fakeTests answers per working directory; unknown dirs pass.
type fakeTests struct {
	results map[string]*checks.RunResult
	dirs    []string
}

func (f *fakeTests) RunTests(ctx context.Context, dir string) (*checks.RunResult, error) {
	f.dirs = append(f.dirs, dir)
	if r, ok := f.results[dir]; ok {
		return r, nil
	}
	return &checks.RunResult{Passed: true, Summary: "ok"}, nil
}

// scriptGen answers by matching the start of the user prompt.
type scriptGen struct {
	mu      sync.Mutex
	answers map[string]func(user string) (string, error)
	calls   []string
}

func newScriptGen() *scriptGen {
	return &scriptGen{answers: map[string]func(string) (string, error){}}
}

func (g *scriptGen) on(prefix, reply string) *scriptGen {
	g.answers[prefix] = func(string) (string, error) { return reply, nil }
	return g
}

func (g *scriptGen) Generate(ctx context.Context, system, user string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, user)
	g.mu.Unlock()
	for prefix, fn := range g.answers {
		if strings.HasPrefix(user, prefix) {
			return fn(user)
		}
	}
	return "", nil
}

func (g *scriptGen) count(prefix string) int {
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

func (g *scriptGen) first(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.calls {
		if strings.HasPrefix(c, prefix) {
			return c
		}
	}
	return ""
}
