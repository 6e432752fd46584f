package checks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PytestParser parses pytest's terminal summary.
type PytestParser struct{}

var (
	pytestCountRe = regexp.MustCompile(`(\d+) (passed|failed|errors?|skipped|xfailed|xpassed)`)
	pytestFailRe  = regexp.MustCompile(`^(FAILED|ERROR) (\S+)(?: - (.*))?$`)
)

// pytest exits 5 when nothing was collected.
const pytestNoTests = 5

type pytestFailure struct {
	Test    string `json:"test"`
	Message string `json:"message,omitempty"`
}

type pytestResult struct {
	Passed   int             `json:"passed"`
	Failed   int             `json:"failed"`
	Errors   int             `json:"errors"`
	Skipped  int             `json:"skipped"`
	Failures []pytestFailure `json:"failures,omitempty"`
}

func (p *PytestParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	if exitCode == pytestNoTests {
		return ParseResult{Passed: false, Summary: "no tests collected", Findings: pytestResult{}}
	}

	var result pytestResult
	var summaryLine string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if m := pytestFailRe.FindStringSubmatch(line); m != nil {
			result.Failures = append(result.Failures, pytestFailure{Test: m[2], Message: m[3]})
			continue
		}
		if strings.HasPrefix(line, "=") && pytestCountRe.MatchString(line) {
			summaryLine = line
		}
	}

	if summaryLine == "" {
		return ParseResult{
			Passed:   exitCode == 0,
			Summary:  fmt.Sprintf("exit code %d (no pytest summary line)", exitCode),
			Findings: tail(joinOutput(stdout, stderr), maxOutputLen),
		}
	}

	for _, m := range pytestCountRe.FindAllStringSubmatch(summaryLine, -1) {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "passed":
			result.Passed = n
		case "failed":
			result.Failed = n
		case "error", "errors":
			result.Errors = n
		case "skipped":
			result.Skipped = n
		}
	}

	passed := exitCode == 0 && result.Failed == 0 && result.Errors == 0
	summary := fmt.Sprintf("%d passed, %d failed, %d errors, %d skipped", result.Passed, result.Failed, result.Errors, result.Skipped)

	return ParseResult{
		Passed:   passed,
		Summary:  summary,
		Findings: result,
	}
}
