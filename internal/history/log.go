// Package history maintains the append-only, human-readable review log.
//
// Each entry is a markdown block:
//
//	## PR #43: FAILED
//
//	- **Gate**: tests
//
//	### Review Suggestions
//	...
//
//	### Raw Failure Log
//	```
//	...
//	```
//	---
package history

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"
)

// Status values written by the reviewer.
const (
	StatusPassed = "PASSED"
	StatusFailed = "FAILED"
)

// Field is one "- **Key**: value" line.
type Field struct {
	Key   string
	Value string
}

// Section is a "### Title" block.
type Section struct {
	Title string
	Body  string
}

// Entry is one log record.
type Entry struct {
	Subject  string // e.g. "PR #43"
	Status   string
	Fields   []Field
	Sections []Section
	Raw      string // rendered as a fenced "Raw Failure Log" block
}

// Render formats the entry exactly as it is written to disk.
func (e Entry) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s: %s\n\n", e.Subject, e.Status)
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "- **%s**: %s\n", f.Key, oneLine(f.Value))
	}
	if len(e.Fields) > 0 {
		b.WriteString("\n")
	}
	for _, s := range e.Sections {
		fmt.Fprintf(&b, "### %s\n%s\n\n", s.Title, s.Body)
	}
	if e.Raw != "" {
		fmt.Fprintf(&b, "### Raw Failure Log\n```\n%s\n```\n", e.Raw)
	}
	b.WriteString("---\n")
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Log appends entries to a single file. Safe for concurrent use within one
// process.
type Log struct {
	path string
	mu   sync.Mutex
}

// Open returns a Log writing to path. The file is created on first append.
func Open(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Append writes e to the end of the log.
func (l *Log) Append(e Entry) error {
	if e.Subject == "" || e.Status == "" {
		return errors.New("history entry needs a subject and a status")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if _, err := f.WriteString(e.Render()); err != nil {
		f.Close()
		return fmt.Errorf("write history: %w", err)
	}
	return f.Close()
}

// Read returns the whole log. A missing file reads as empty.
func (l *Log) Read() (string, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read history: %w", err)
	}
	return string(data), nil
}

// Tail returns at most the last n bytes of the log.
func (l *Log) Tail(n int64) (string, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat history: %w", err)
	}
	offset := info.Size() - n
	if offset < 0 || n <= 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek history: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read history: %w", err)
	}
	// Drop the tail of a rune cut by the offset.
	for offset > 0 && len(data) > 0 && !utf8.RuneStart(data[0]) {
		data = data[1:]
	}
	return string(data), nil
}

// Header is the subject and status of one logged entry.
type Header struct {
	Subject string
	Status  string
}

// Headers scans the log for entry headers in file order.
func (l *Log) Headers() ([]Header, error) {
	content, err := l.Read()
	if err != nil {
		return nil, err
	}
	var out []Header
	for _, line := range strings.Split(content, "\n") {
		rest, ok := strings.CutPrefix(line, "## ")
		if !ok {
			continue
		}
		i := strings.LastIndex(rest, ": ")
		if i < 0 {
			continue
		}
		out = append(out, Header{Subject: rest[:i], Status: rest[i+2:]})
	}
	return out, nil
}
