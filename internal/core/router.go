package core

import (
	"fmt"
	"strings"

	"docseek/internal/directory"
)

// RouteResult is the outcome of Router.Route. Doctor is nil when nothing
// matched.
type RouteResult struct {
	Doctor *directory.DoctorEntry
	Reason string
}

// Found reports whether a doctor matched.
func (r RouteResult) Found() bool { return r.Doctor != nil }

// Router picks a doctor by exact symptom match.
type Router struct {
	doctors []directory.DoctorEntry
}

// NewRouter snapshots the doctors of dir in directory order.
func NewRouter(dir *directory.Directory) *Router {
	return &Router{doctors: dir.Doctors()}
}

// Route returns the first doctor, in directory order, listing symptom and,
// when location is not empty, practising at location. Both comparisons
// ignore case. The scan order is an implementation detail, not a ranking.
func (r *Router) Route(symptom, location string) RouteResult {
	wantSymptom := strings.TrimSpace(symptom)
	wantLocation := strings.TrimSpace(location)

	if wantSymptom != "" {
		for i := range r.doctors {
			d := &r.doctors[i]
			if !d.TreatsSymptom(wantSymptom) {
				continue
			}
			if wantLocation != "" && !strings.EqualFold(d.Location, wantLocation) {
				continue
			}
			match := *d
			match.Symptoms = append([]string(nil), d.Symptoms...)
			return RouteResult{Doctor: &match, Reason: routeReason("Matched doctor", symptom, location)}
		}
	}
	return RouteResult{Reason: routeReason("No doctor found", symptom, location)}
}

func routeReason(prefix, symptom, location string) string {
	reason := fmt.Sprintf("%s for symptom '%s'", prefix, symptom)
	if strings.TrimSpace(location) != "" {
		reason += " in " + location
	}
	return reason + "."
}
