package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"docseek/internal/directory"
	"docseek/internal/llm"
)

// ErrNoSpecialty is returned when a selector cannot name a specialty.
var ErrNoSpecialty = errors.New("no specialty selected")

// Selection is the outcome of a Selector. Text is set when the selector
// rendered the recommendation itself.
type Selection struct {
	Specialty string
	Text      string
}

// Selector maps a request to a specialty.
type Selector interface {
	Select(ctx context.Context, req RecommendationRequest) (Selection, error)
}

// matchingMessage is the user message sent to the completion service.
func matchingMessage(req RecommendationRequest, doctorTypes []byte) string {
	return fmt.Sprintf("Diagnosis: %s\nSymptoms: %s\nSeverity: %s\nDoctorTypes: %s",
		req.Diagnosis, req.Symptoms, req.Severity, doctorTypes)
}

// CompletionSelector asks the completion service for a specialty name.
type CompletionSelector struct {
	llm         llm.CompletionService
	doctorTypes []byte
}

// NewCompletionSelector serializes dir once; the directory never changes.
func NewCompletionSelector(client llm.CompletionService, dir *directory.Directory) (*CompletionSelector, error) {
	doctorTypes, err := dir.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize directory: %w", err)
	}
	return &CompletionSelector{llm: client, doctorTypes: doctorTypes}, nil
}

func (s *CompletionSelector) Select(ctx context.Context, req RecommendationRequest) (Selection, error) {
	resp, err := s.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: SpecialtySelectionPrompt},
		{Role: llm.RoleUser, Content: matchingMessage(req, s.doctorTypes)},
	})
	if err != nil {
		return Selection{}, err
	}
	specialty := ParseSpecialty(resp)
	if specialty == "" {
		return Selection{}, fmt.Errorf("%w: unusable completion %q", ErrNoSpecialty, truncate(resp, 80))
	}
	return Selection{Specialty: specialty}, nil
}

// ComposeSelector lets the completion service render the full
// recommendation, as the matching agent of the chat does.
type ComposeSelector struct {
	llm         llm.CompletionService
	doctorTypes []byte
}

// NewComposeSelector serializes dir once.
func NewComposeSelector(client llm.CompletionService, dir *directory.Directory) (*ComposeSelector, error) {
	doctorTypes, err := dir.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize directory: %w", err)
	}
	return &ComposeSelector{llm: client, doctorTypes: doctorTypes}, nil
}

func (s *ComposeSelector) Select(ctx context.Context, req RecommendationRequest) (Selection, error) {
	resp, err := s.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: MatchingAgentPrompt},
		{Role: llm.RoleUser, Content: matchingMessage(req, s.doctorTypes)},
	})
	if err != nil {
		return Selection{}, err
	}
	text := strings.Trim(strings.TrimSpace(resp), `"`)
	if text == "" {
		return Selection{}, fmt.Errorf("%w: empty recommendation", ErrNoSpecialty)
	}
	return Selection{Specialty: specialtyFromText(text), Text: text}, nil
}

// SymptomSelector picks the specialty of the first doctor routed for any of
// the request's symptoms, without calling a model.
type SymptomSelector struct {
	router   *Router
	fallback string
}

// NewSymptomSelector falls back to fallback when no symptom matches. A
// fallback that is not a specialty of dir is ignored.
func NewSymptomSelector(dir *directory.Directory, router *Router, fallback string) *SymptomSelector {
	if fallback != "" && !dir.Has(fallback) {
		fallback = ""
	}
	return &SymptomSelector{router: router, fallback: directory.NormalizeSpecialty(fallback)}
}

var symptomSeparators = regexp.MustCompile(`\s*(?:,|;|\band\b|\n)\s*`)

func (s *SymptomSelector) Select(_ context.Context, req RecommendationRequest) (Selection, error) {
	for _, term := range SplitSymptoms(req.Symptoms) {
		if res := s.router.Route(term, req.Location); res.Found() {
			return Selection{Specialty: res.Doctor.Specialty}, nil
		}
	}
	if s.fallback == "" {
		return Selection{}, fmt.Errorf("%w: no doctor treats %q", ErrNoSpecialty, req.Symptoms)
	}
	return Selection{Specialty: s.fallback}, nil
}

// SplitSymptoms splits a free-text symptom list on commas, semicolons,
// newlines and the word "and".
func SplitSymptoms(symptoms string) []string {
	var out []string
	for _, part := range symptomSeparators.Split(strings.TrimSpace(symptoms), -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ParseSpecialty extracts a specialty from a completion: either a JSON object
// with a "specialty" field or a bare name on the first line. The result is
// lower-cased; an empty string means nothing usable was found.
func ParseSpecialty(resp string) string {
	text := strings.TrimSpace(resp)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if strings.HasPrefix(text, "{") {
		var out struct {
			Specialty string `json:"specialty"`
		}
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return ""
		}
		return directory.NormalizeSpecialty(out.Specialty)
	}
	line, _, _ := strings.Cut(text, "\n")
	line = strings.Trim(strings.TrimSpace(line), `"'.`+"`")
	if line == "" || len(strings.Fields(line)) > 4 {
		return ""
	}
	return directory.NormalizeSpecialty(line)
}

var (
	recommendPattern   = regexp.MustCompile(`I recommend seeing an? ([^.\n]+)\.`)
	appropriatePattern = regexp.MustCompile(`an? ([^,.\n]+) would be appropriate`)
)

// specialtyFromText recovers the specialty from a rendered recommendation.
func specialtyFromText(text string) string {
	for _, p := range []*regexp.Regexp{recommendPattern, appropriatePattern} {
		if m := p.FindStringSubmatch(text); m != nil {
			return directory.NormalizeSpecialty(m[1])
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
