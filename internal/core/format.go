package core

import (
	"fmt"
	"strings"

	"docseek/internal/directory"
)

// Format renders the recommendation shown to the patient for a specialty
// lookup. The three shapes are: doctors listed in directory order, a known
// specialty without doctors, and an unknown specialty.
func Format(diagnosis, specialty string, res directory.LookupResult) string {
	diagnosis = strings.TrimSpace(diagnosis)
	specialty = strings.TrimSpace(specialty)

	if len(res.Doctors) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "Based on the diagnosis of %s, I recommend seeing a %s.\n\nRecommended doctors:", diagnosis, specialty)
		for _, d := range res.Doctors {
			b.WriteString("\n- ")
			b.WriteString(d.DisplayName())
		}
		return b.String()
	}
	if res.Presence == directory.Absent {
		return fmt.Sprintf("Based on the diagnosis of %s, a %s would be appropriate. However, the specialty %s is not available in the provided list of doctors.",
			diagnosis, specialty, specialty)
	}
	return fmt.Sprintf("Based on the diagnosis of %s, a %s would be appropriate. However, no %s doctors were found in the provided list for that specialty.",
		diagnosis, specialty, specialty)
}

const upstreamErrorPrefix = "Error: Unable to find appropriate doctors at this time. Please try again later."

// maxErrorDetail caps the cause echoed back to the patient.
const maxErrorDetail = 120

// UpstreamErrorMessage renders the patient-facing text for a failed
// completion call. Only a short detail of err is included.
func UpstreamErrorMessage(err error) string {
	if err == nil {
		return upstreamErrorPrefix + " "
	}
	return upstreamErrorPrefix + " " + truncate(strings.TrimSpace(err.Error()), maxErrorDetail)
}
