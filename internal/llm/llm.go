package llm

import "context"

// Roles accepted in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a minimal chat message used by the core services.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// CompletionService turns a prompt into text. Implementations wrap a
// third-party model API; callers treat the output as untrusted free text.
type CompletionService interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Provider is a CompletionService that can identify itself in logs.
type Provider interface {
	CompletionService
	Name() string
	Model() string
}

// ProviderConfig configures a single provider.
type ProviderConfig struct {
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}
