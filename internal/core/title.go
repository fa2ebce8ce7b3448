package core

import (
	"context"
	"strings"

	"docseek/internal/llm"
)

// maxTitleRunes bounds generated thread titles.
const maxTitleRunes = 60

// TitleGenerator names a thread after its first patient message.
type TitleGenerator struct {
	LLM llm.CompletionService
}

// NewTitleGenerator constructs a title generator.
func NewTitleGenerator(client llm.CompletionService) *TitleGenerator {
	return &TitleGenerator{LLM: client}
}

// Generate returns a short title. On failure DefaultTitle is returned
// together with the error.
func (g *TitleGenerator) Generate(ctx context.Context, firstMessage string) (string, error) {
	resp, err := g.LLM.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: TitlePrompt},
		{Role: llm.RoleUser, Content: firstMessage},
	})
	if err != nil {
		return DefaultTitle, err
	}
	title, _, _ := strings.Cut(strings.TrimSpace(resp), "\n")
	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if title == "" {
		return DefaultTitle, nil
	}
	return truncate(title, maxTitleRunes), nil
}
