package core

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"docseek/internal/llm"
	"docseek/pkg"
)

// findDoctorsDirective prefixes the line the model emits when it is ready
// to route the patient.
const findDoctorsDirective = "FIND_DOCTORS"

// ChatReply is the outcome of ChatService.Reply.
type ChatReply struct {
	Text           string
	Request        *RecommendationRequest
	Recommendation *Recommendation
}

// ChatService orchestrates the chat between a patient and the assistant.
// Conversation history is loaded and persisted by the caller; the service
// only turns it into a reply.
type ChatService struct {
	LLM     llm.CompletionService
	Doctors *DoctorService
	logger  *zap.Logger
}

// NewChatService constructs a new ChatService.
func NewChatService(client llm.CompletionService, doctors *DoctorService, logger *zap.Logger) *ChatService {
	return &ChatService{LLM: client, Doctors: doctors, logger: logger}
}

// Reply generates the assistant's answer to message given the prior
// history. When the model asks for doctors, the recommendation is resolved
// and appended to the reply. On completion failure a generic fallback reply
// is returned together with the error.
func (s *ChatService) Reply(ctx context.Context, history []pkg.Message, message string) (ChatReply, error) {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: DiagnosticPrompt})
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == pkg.RoleBot {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	resp, err := s.LLM.Complete(ctx, msgs)
	if err != nil {
		return ChatReply{Text: FallbackReply}, err
	}

	visible, args, ok := splitDirective(resp)
	reply := ChatReply{Text: visible}
	if !ok {
		return reply, nil
	}

	req, err := NewRecommendationRequest(args.Diagnosis, args.Symptoms, args.Severity, "")
	if err != nil {
		s.logger.Warn("ignoring malformed doctor directive", zap.Error(err))
		return reply, nil
	}
	rec, err := s.Doctors.FindDoctors(ctx, req)
	if err != nil {
		s.logger.Warn("doctor lookup from chat failed", zap.Error(err))
		return reply, nil
	}
	reply.Request = &req
	reply.Recommendation = &rec
	if reply.Text == "" {
		reply.Text = rec.Text
	} else {
		reply.Text += "\n\n" + rec.Text
	}
	return reply, nil
}

type directiveArgs struct {
	Diagnosis string `json:"diagnosis"`
	Symptoms  string `json:"symptoms"`
	Severity  string `json:"severity"`
}

// splitDirective removes the first FIND_DOCTORS line from resp and decodes
// its arguments. ok is false when there is no well-formed directive; the
// directive line is still stripped from the visible text.
func splitDirective(resp string) (visible string, args directiveArgs, ok bool) {
	lines := strings.Split(resp, "\n")
	kept := make([]string, 0, len(lines))
	found := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if found || !strings.HasPrefix(trimmed, findDoctorsDirective) {
			kept = append(kept, line)
			continue
		}
		found = true
		payload := strings.TrimSpace(strings.TrimPrefix(trimmed, findDoctorsDirective))
		payload = strings.TrimSpace(strings.TrimPrefix(payload, ":"))
		if err := json.Unmarshal([]byte(payload), &args); err == nil {
			ok = true
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), args, ok
}
