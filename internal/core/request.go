package core

import (
	"fmt"
	"strings"
)

// Severity is a coarse urgency classification attached to a request.
type Severity string

const (
	SeverityLow       Severity = "low"
	SeverityMedium    Severity = "medium"
	SeverityHigh      Severity = "high"
	SeverityEmergency Severity = "emergency"
)

// ParseSeverity accepts the four levels in any case. An empty value means
// medium.
func ParseSeverity(s string) (Severity, error) {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return SeverityMedium, nil
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityEmergency:
		return v, nil
	default:
		return "", &ValidationError{Field: "severity", Reason: fmt.Sprintf("must be one of low, medium, high, emergency (got %q)", s)}
	}
}

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RecommendationRequest is the input of DoctorService.FindDoctors.
type RecommendationRequest struct {
	Diagnosis string
	Symptoms  string
	Severity  Severity
	// Location optionally narrows symptom routing.
	Location string
}

// NewRecommendationRequest builds a validated request from raw fields.
func NewRecommendationRequest(diagnosis, symptoms, severity, location string) (RecommendationRequest, error) {
	sev, err := ParseSeverity(severity)
	if err != nil {
		return RecommendationRequest{}, err
	}
	req := RecommendationRequest{
		Diagnosis: strings.TrimSpace(diagnosis),
		Symptoms:  strings.TrimSpace(symptoms),
		Severity:  sev,
		Location:  strings.TrimSpace(location),
	}
	if err := req.Validate(); err != nil {
		return RecommendationRequest{}, err
	}
	return req, nil
}

// Validate checks the required fields. A zero Severity is accepted and
// treated as medium.
func (r RecommendationRequest) Validate() error {
	if strings.TrimSpace(r.Diagnosis) == "" {
		return &ValidationError{Field: "diagnosis", Reason: "is required"}
	}
	if strings.TrimSpace(r.Symptoms) == "" {
		return &ValidationError{Field: "symptoms", Reason: "is required"}
	}
	if r.Severity != "" {
		if _, err := ParseSeverity(string(r.Severity)); err != nil {
			return err
		}
	}
	return nil
}

// normalized returns a copy with trimmed fields and a concrete severity.
func (r RecommendationRequest) normalized() RecommendationRequest {
	sev, err := ParseSeverity(string(r.Severity))
	if err != nil {
		sev = SeverityMedium
	}
	return RecommendationRequest{
		Diagnosis: strings.TrimSpace(r.Diagnosis),
		Symptoms:  strings.TrimSpace(r.Symptoms),
		Severity:  sev,
		Location:  strings.TrimSpace(r.Location),
	}
}
