package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Library resolves templates by name. A file with the same name in the
// override directory wins over the built-in copy.
type Library struct {
	overrideDir string
}

// NewLibrary creates a library. An empty overrideDir disables overrides.
func NewLibrary(overrideDir string) *Library {
	return &Library{overrideDir: overrideDir}
}

// Names returns the built-in template names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(builtinTemplates))
	for name := range builtinTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a built-in template.
func (l *Library) Known(name string) bool {
	_, ok := builtinTemplates[name]
	return ok
}

// OverridePath returns where an override for name lives, or "" when
// overrides are disabled.
func (l *Library) OverridePath(name string) string {
	if l.overrideDir == "" {
		return ""
	}
	return filepath.Join(l.overrideDir, name)
}

// Source returns the raw template text for name.
func (l *Library) Source(name string) (string, error) {
	builtin, ok := builtinTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	if path := l.OverridePath(name); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read override %q: %w", path, err)
		}
	}
	return builtin, nil
}

// Overridden reports whether an override file exists for name.
func (l *Library) Overridden(name string) bool {
	path := l.OverridePath(name)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Render resolves name and expands it with vars.
func (l *Library) Render(name string, vars Vars) (string, error) {
	src, err := l.Source(name)
	if err != nil {
		return "", err
	}
	out, err := Render(src, vars)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return out, nil
}

// WriteOverride stores content as the override for a built-in template.
// Empty content is rejected so a bad generation never blanks a prompt.
func (l *Library) WriteOverride(name, content string) error {
	if !l.Known(name) {
		return fmt.Errorf("unknown template %q", name)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("refusing to write empty override for %q", name)
	}
	if _, err := processConditionals(content, Vars{}); err != nil {
		return fmt.Errorf("override for %q is not a valid template: %w", name, err)
	}
	path := l.OverridePath(name)
	if path == "" {
		return errors.New("override directory not configured")
	}
	if err := os.MkdirAll(l.overrideDir, 0o755); err != nil {
		return fmt.Errorf("create override dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write override %q: %w", name, err)
	}
	return nil
}

// Install writes every built-in template into the override directory,
// leaving existing files alone.
func (l *Library) Install() error {
	if l.overrideDir == "" {
		return errors.New("override directory not configured")
	}
	if err := os.MkdirAll(l.overrideDir, 0o755); err != nil {
		return fmt.Errorf("create templates dir: %w", err)
	}

	for name, content := range builtinTemplates {
		path := filepath.Join(l.overrideDir, name)
		if _, err := os.Stat(path); err == nil {
			continue // don't overwrite existing
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write template %q: %w", name, err)
		}
	}
	return nil
}
