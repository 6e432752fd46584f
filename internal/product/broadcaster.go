package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lucasnoah/deepcontext/internal/llm"
	"github.com/lucasnoah/deepcontext/internal/prompt"
)

// Line is one spoken turn.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Host is a named speaker with a synthesis voice.
type Host struct {
	Name  string
	Voice string
}

// Broadcaster turns an analysis into a two-host script.
type Broadcaster struct {
	gen     llm.Generator
	prompts *prompt.Library
	hosts   [2]Host
	logger  *zap.Logger
}

// NewBroadcaster returns a Broadcaster for exactly two hosts.
func NewBroadcaster(gen llm.Generator, prompts *prompt.Library, hosts []Host, logger *zap.Logger) (*Broadcaster, error) {
	if gen == nil || prompts == nil {
		return nil, errors.New("broadcaster: generator and prompts are required")
	}
	if len(hosts) != 2 {
		return nil, fmt.Errorf("broadcaster: need two hosts, got %d", len(hosts))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{gen: gen, prompts: prompts, hosts: [2]Host{hosts[0], hosts[1]}, logger: logger.Named("broadcaster")}, nil
}

// Script asks the generator for dialogue. Output that cannot be decoded
// yields an empty script rather than an error; lines with no text are
// dropped.
func (b *Broadcaster) Script(ctx context.Context, analysis string) ([]Line, error) {
	system, err := b.prompts.Render("broadcaster-system.md", nil)
	if err != nil {
		return nil, err
	}
	user, err := b.prompts.Render("script.md", prompt.Vars{
		"host_a":   b.hosts[0].Name,
		"host_b":   b.hosts[1].Name,
		"analysis": analysis,
	})
	if err != nil {
		return nil, err
	}

	raw, err := b.gen.Generate(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	var lines []Line
	if err := llm.DecodeJSON(raw, &lines); err != nil {
		b.logger.Warn("script not decodable, returning empty script", zap.Error(err))
		return []Line{}, nil
	}
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		out = append(out, l)
	}
	b.logger.Info("script ready", zap.Int("lines", len(out)))
	return out, nil
}

// Voice returns the synthesis voice for a speaker. The first host is
// matched by name; every other speaker gets the second host's voice.
func (b *Broadcaster) Voice(speaker string) string {
	if strings.EqualFold(strings.TrimSpace(speaker), b.hosts[0].Name) {
		return b.hosts[0].Voice
	}
	return b.hosts[1].Voice
}
