package github

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type mockCmd struct {
	calls   [][]string
	results []mockResult
	idx     int
}

type mockResult struct {
	output string
	err    error
}

func (m *mockCmd) Run(_ context.Context, args ...string) (string, error) {
	m.calls = append(m.calls, args)
	if m.idx >= len(m.results) {
		return "", nil
	}
	r := m.results[m.idx]
	m.idx++
	return r.output, r.err
}

func TestListOpenPRs(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{output: `[
		{"number": 9, "title": "newer", "headRefName": "feat-b", "author": {"login": "jules"}},
		{"number": 7, "title": "older", "headRefName": "feat-a", "headRefOid": "3f2c9e1", "author": {"login": "jules"}}
	]`}}}

	prs, err := NewClient(mock, "acme/deepcontext").ListOpenPRs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prs) != 2 {
		t.Fatalf("expected 2 PRs, got %d", len(prs))
	}
	if prs[0].Number != 7 || prs[1].Number != 9 {
		t.Errorf("expected oldest first, got %d then %d", prs[0].Number, prs[1].Number)
	}
	if prs[0].Author.Login != "jules" {
		t.Errorf("expected author jules, got %q", prs[0].Author.Login)
	}
	if prs[0].HeadRefOid != "3f2c9e1" {
		t.Errorf("expected head commit 3f2c9e1, got %q", prs[0].HeadRefOid)
	}

	call := mock.calls[0]
	if call[0] != "pr" || call[1] != "list" {
		t.Errorf("expected pr list, got %v", call)
	}
	if call[len(call)-2] != "--repo" || call[len(call)-1] != "acme/deepcontext" {
		t.Errorf("expected --repo flag last, got %v", call)
	}
	if !strings.Contains(strings.Join(call, " "), "headRefOid") {
		t.Errorf("expected head commit in --json fields, got %v", call)
	}
}

func TestListOpenPRs_Empty(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{output: ""}}}
	prs, err := NewClient(mock, "").ListOpenPRs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prs) != 0 {
		t.Errorf("expected no PRs, got %d", len(prs))
	}
}

func TestListOpenPRs_BadJSON(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{output: "not json"}}}
	if _, err := NewClient(mock, "").ListOpenPRs(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPRBody(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{output: `{"body":"## 🤖 Copilot Consultation Log\n- asked"}`}}}
	body, err := NewClient(mock, "").PRBody(context.Background(), 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "## 🤖 Copilot Consultation Log\n- asked" {
		t.Errorf("unexpected body %q", body)
	}
	want := []string{"pr", "view", "12", "--json", "body"}
	if !reflect.DeepEqual(mock.calls[0], want) {
		t.Errorf("expected %v, got %v", want, mock.calls[0])
	}
}

func TestPRDiff(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{output: "diff --git a/x b/x"}}}
	diff, err := NewClient(mock, "").PRDiff(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff != "diff --git a/x b/x" {
		t.Errorf("unexpected diff %q", diff)
	}
}

func TestComment(t *testing.T) {
	mock := &mockCmd{}
	if err := NewClient(mock, "").Comment(context.Background(), 5, "tests failed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"pr", "comment", "5", "--body", "tests failed"}
	if !reflect.DeepEqual(mock.calls[0], want) {
		t.Errorf("expected %v, got %v", want, mock.calls[0])
	}
}

func TestComment_Error(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{err: errors.New("rate limited")}}}
	if err := NewClient(mock, "").Comment(context.Background(), 5, "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMergePR(t *testing.T) {
	mock := &mockCmd{}
	if err := NewClient(mock, "").MergePR(context.Background(), 42, "rebase"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"pr", "merge", "42", "--rebase", "--delete-branch"}
	if !reflect.DeepEqual(mock.calls[0], want) {
		t.Errorf("expected %v, got %v", want, mock.calls[0])
	}
}

func TestMergePR_DefaultStrategy(t *testing.T) {
	mock := &mockCmd{}
	if err := NewClient(mock, "").MergePR(context.Background(), 42, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls[0][3] != "--squash" {
		t.Errorf("expected --squash default, got %v", mock.calls[0])
	}
}

func TestMergePR_InvalidStrategy(t *testing.T) {
	mock := &mockCmd{}
	err := NewClient(mock, "").MergePR(context.Background(), 42, "octopus")
	if err == nil {
		t.Fatal("expected error for invalid strategy")
	}
	if len(mock.calls) != 0 {
		t.Errorf("expected no gh calls, got %d", len(mock.calls))
	}
}

func TestValidMergeStrategy(t *testing.T) {
	for _, s := range []string{"", "squash", "merge", "rebase"} {
		if !ValidMergeStrategy(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if ValidMergeStrategy("fast-forward") {
		t.Error("expected fast-forward to be invalid")
	}
}

func TestCreateIssue(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{output: "https://github.com/acme/x/issues/3"}}}
	url, err := NewClient(mock, "").CreateIssue(context.Background(), IssueCreateOpts{
		Title:  "[Feature] add RSS",
		Body:   "body",
		Labels: []string{"jules"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://github.com/acme/x/issues/3" {
		t.Errorf("unexpected url %q", url)
	}
	want := []string{"issue", "create", "--title", "[Feature] add RSS", "--body", "body", "--label", "jules"}
	if !reflect.DeepEqual(mock.calls[0], want) {
		t.Errorf("expected %v, got %v", want, mock.calls[0])
	}
}

func TestCreateIssue_RequiresTitle(t *testing.T) {
	if _, err := NewClient(&mockCmd{}, "").CreateIssue(context.Background(), IssueCreateOpts{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateNumber(t *testing.T) {
	if ValidateNumber(0) == nil || ValidateNumber(-1) == nil {
		t.Error("expected non-positive numbers to be rejected")
	}
	if err := ValidateNumber(1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
