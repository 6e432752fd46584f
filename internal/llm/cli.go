package llm

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ExecFunc runs a binary with arguments and returns its combined output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CLI implements Generator by shelling out to `claude --print`. It is the
// fallback used when no Gemini credentials are configured.
type CLI struct {
	Binary string
	Model  string
	exec   ExecFunc
}

// NewCLI creates a CLI generator. Empty binary and model default to
// "claude" and "haiku".
func NewCLI(binary, model string) *CLI {
	if binary == "" {
		binary = "claude"
	}
	if model == "" {
		model = "haiku"
	}
	return &CLI{Binary: binary, Model: model, exec: execCombined}
}

// WithExec replaces the process runner (for testing).
func (c *CLI) WithExec(fn ExecFunc) *CLI {
	c.exec = fn
	return c
}

// Generate folds the system context into the prompt, since --print takes a
// single prompt argument.
func (c *CLI) Generate(ctx context.Context, system, user string) (string, error) {
	prompt := user
	if system != "" {
		prompt = system + "\n\n---\n\n" + user
	}
	out, err := c.exec(ctx, c.Binary, "--print", "--model", c.Model, prompt)
	if err != nil {
		return "", fmt.Errorf("%s --print: %s: %w", c.Binary, strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}
