package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini generate-content API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiClient constructs a Gemini-backed provider.
func NewGeminiClient(ctx context.Context, cfg ProviderConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash-001"
	}
	return &GeminiClient{client: client, model: model, temperature: cfg.Temperature}, nil
}

func (g *GeminiClient) Name() string  { return "gemini" }
func (g *GeminiClient) Model() string { return g.model }

// Complete maps system messages to the system instruction and the rest of
// the history to user/model turns.
func (g *GeminiClient) Complete(ctx context.Context, messages []Message) (string, error) {
	contents, system := toGeminiContents(messages)
	temp := g.temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if system != nil {
		cfg.SystemInstruction = system
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func toGeminiContents(messages []Message) ([]*genai.Content, *genai.Content) {
	var (
		contents    []*genai.Content
		systemParts []*genai.Part
	)
	for _, m := range messages {
		if m.Role == RoleSystem {
			systemParts = append(systemParts, &genai.Part{Text: m.Content})
			continue
		}
		role := string(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = string(genai.RoleModel)
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	if len(systemParts) == 0 {
		return contents, nil
	}
	return contents, &genai.Content{Parts: systemParts}
}
