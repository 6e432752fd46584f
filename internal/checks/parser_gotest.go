package checks

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
)

// GoTestParser parses `go test -json` event streams.
type GoTestParser struct{}

type goTestEvent struct {
	Action  string `json:"Action"`
	Package string `json:"Package"`
	Test    string `json:"Test"`
	Output  string `json:"Output"`
}

type goTestFailure struct {
	Package string `json:"package"`
	Test    string `json:"test"`
	Output  string `json:"output"`
}

type goTestResult struct {
	Passed         int             `json:"passed"`
	Failed         int             `json:"failed"`
	Skipped        int             `json:"skipped"`
	FailedPackages []string        `json:"failed_packages,omitempty"`
	Failures       []goTestFailure `json:"failures,omitempty"`
}

func (p *GoTestParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	var result goTestResult
	outputs := map[string]*strings.Builder{}
	events := 0

	sc := bufio.NewScanner(strings.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var ev goTestEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		events++
		key := ev.Package + "." + ev.Test

		switch ev.Action {
		case "output":
			if ev.Test == "" {
				continue
			}
			b, ok := outputs[key]
			if !ok {
				b = &strings.Builder{}
				outputs[key] = b
			}
			b.WriteString(ev.Output)
		case "pass":
			if ev.Test != "" {
				result.Passed++
			}
		case "skip":
			if ev.Test != "" {
				result.Skipped++
			}
		case "fail":
			if ev.Test == "" {
				result.FailedPackages = append(result.FailedPackages, ev.Package)
				continue
			}
			result.Failed++
			out := ""
			if b, ok := outputs[key]; ok {
				out = tail(b.String(), 2000)
			}
			result.Failures = append(result.Failures, goTestFailure{
				Package: ev.Package,
				Test:    ev.Test,
				Output:  out,
			})
		}
	}

	if events == 0 {
		return ParseResult{
			Passed:   exitCode == 0,
			Summary:  fmt.Sprintf("exit code %d (could not parse go test JSON)", exitCode),
			Findings: tail(joinOutput(stdout, stderr), maxOutputLen),
		}
	}

	passed := exitCode == 0 && result.Failed == 0 && len(result.FailedPackages) == 0
	summary := fmt.Sprintf("%d passed, %d failed, %d skipped", result.Passed, result.Failed, result.Skipped)
	if n := len(result.FailedPackages); n > 0 && result.Failed == 0 {
		summary += fmt.Sprintf(" (%d packages failed to build or run)", n)
	}

	return ParseResult{
		Passed:   passed,
		Summary:  summary,
		Findings: result,
	}
}
