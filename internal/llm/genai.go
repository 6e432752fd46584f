package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIConfig configures a Gemini-backed generator. When APIKey is set the
// Gemini API backend is used; otherwise Project and Location select Vertex AI.
type GenAIConfig struct {
	APIKey          string
	Project         string
	Location        string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// GenAI implements Generator on top of google.golang.org/genai.
type GenAI struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGenAI creates a client for the configured backend.
func NewGenAI(ctx context.Context, cfg GenAIConfig) (*GenAI, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-pro"
	}

	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("genai: either an API key or a Vertex AI project is required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAI{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
	}, nil
}

// Model returns the model name requests are sent to.
func (g *GenAI) Model() string {
	return g.model
}

// Generate sends user content with an optional system instruction and returns
// the concatenated text of the first candidate.
func (g *GenAI) Generate(ctx context.Context, system, user string) (string, error) {
	temperature := g.temperature
	conf := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if g.maxTokens > 0 {
		conf.MaxOutputTokens = g.maxTokens
	}
	if system != "" {
		conf.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), conf)
	if err != nil {
		return "", fmt.Errorf("genai generate (%s): %w", g.model, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("genai generate (%s): empty response", g.model)
	}
	return text, nil
}
