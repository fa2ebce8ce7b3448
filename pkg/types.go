package pkg

import "time"

// Thread represents one patient conversation. It is keyed by a UUID and
// carries the per-thread message cap.
type Thread struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	MessageCap int       `json:"message_cap"`
}

// MessageRole describes who authored a message.  There are only two roles:
// patient and bot.
type MessageRole string

const (
	RolePatient MessageRole = "patient"
	RoleBot     MessageRole = "bot"
)

// Message represents a chat message in a thread.
type Message struct {
	ID        int64       `json:"id"`
	ThreadID  string      `json:"thread_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// RecommendationRecord is a doctor recommendation stored against a thread.
type RecommendationRecord struct {
	ID        int64     `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Diagnosis string    `json:"diagnosis"`
	Symptoms  string    `json:"symptoms"`
	Severity  string    `json:"severity"`
	Specialty string    `json:"specialty,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest represents a request to send a message from the patient.
type ChatRequest struct {
	Content string `json:"content" binding:"required,notblank"`
}

// ChatResponse contains the bot's reply and whether the thread is
// capped due to exceeding the message limit.
type ChatResponse struct {
	Reply          string `json:"reply"`
	Capped         bool   `json:"capped"`
	Recommendation string `json:"recommendation,omitempty"`
}

// RecommendRequest is the JSON body of POST /api/recommendations.
type RecommendRequest struct {
	Diagnosis string `json:"diagnosis"           binding:"required,notblank"`
	Symptoms  string `json:"symptoms"            binding:"required,notblank"`
	Severity  string `json:"severity,omitempty"  binding:"omitempty,oneof=low medium high emergency"`
	Location  string `json:"location,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// RecommendResponse carries the rendered recommendation string.
type RecommendResponse struct {
	Recommendation string `json:"recommendation"`
	Specialty      string `json:"specialty,omitempty"`
	// Failed is set when the recommendation is the upstream error message.
	Failed bool `json:"failed,omitempty"`
}

// RouteRequest holds the query of GET /api/doctors/route.
type RouteRequest struct {
	Symptom  string `form:"symptom"  binding:"required,notblank"`
	Location string `form:"location"`
}

// RouteResponse is returned by the symptom router endpoint.
type RouteResponse struct {
	Found  bool        `json:"found"`
	Doctor interface{} `json:"doctor,omitempty"`
	Reason string      `json:"reason"`
}

// ThreadDetail bundles a thread with its transcript and recommendations.
type ThreadDetail struct {
	Thread          *Thread                `json:"thread"`
	Transcript      []Message              `json:"transcript"`
	Recommendations []RecommendationRecord `json:"recommendations"`
}
