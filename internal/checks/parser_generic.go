package checks

import (
	"fmt"
	"unicode/utf8"
)

// GenericParser is the fallback parser that captures exit code and actual output.
type GenericParser struct{}

// maxOutputLen caps how much stdout/stderr is retained in findings and reports.
const maxOutputLen = 8000

func (p *GenericParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	passed := exitCode == 0
	summary := fmt.Sprintf("exit code %d, stdout=%d bytes, stderr=%d bytes", exitCode, len(stdout), len(stderr))
	if passed {
		summary = "passed (exit code 0)"
	}

	findings := ""
	if !passed {
		findings = tail(joinOutput(stdout, stderr), maxOutputLen)
	}

	return ParseResult{
		Passed:   passed,
		Summary:  summary,
		Findings: findings,
	}
}

func joinOutput(stdout, stderr string) string {
	combined := stdout
	if stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += stderr
	}
	return combined
}

// tail keeps the end of s; error summaries and tracebacks are usually there.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return "…(truncated)\n" + s[start:]
}
