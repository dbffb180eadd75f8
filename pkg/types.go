package pkg

import "time"

// Role describes who spoke an utterance.  The voice transport only reports
// two speakers: the patient and the AI doctor.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Utterance is one finalized turn of speech-to-text output.
type Utterance struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Doctor is a selectable AI doctor persona.  VoiceID and AgentPrompt are
// passed to the voice transport when a call starts.
type Doctor struct {
	ID          int    `json:"id"`
	Specialist  string `json:"specialist"`
	Description string `json:"description"`
	Image       string `json:"image"`
	AgentPrompt string `json:"agentPrompt"`
	VoiceID     string `json:"voiceId"`
}

// SessionDetail represents one consultation.  It is keyed by a UUID session
// id and carries the selected persona, the conversation as submitted with
// the report request, and the generated report if there is one.
type SessionDetail struct {
	ID             int64       `json:"id"`
	SessionID      string      `json:"sessionId"`
	Notes          string      `json:"notes"`
	SelectedDoctor Doctor      `json:"selectedDoctor"`
	Conversation   []Utterance `json:"conversation,omitempty"`
	Report         *Report     `json:"report"`
	CreatedBy      string      `json:"createdBy,omitempty"`
	CreatedOn      time.Time   `json:"createdOn"`
}

// Report is the structured summary of a consultation.  All eleven fields are
// always present once the report has been normalized.
type Report struct {
	SessionID            string   `json:"sessionId"`
	Agent                string   `json:"agent"`
	User                 string   `json:"user"`
	Timestamp            string   `json:"timestamp"`
	ChiefComplaint       string   `json:"chiefComplaint"`
	Summary              string   `json:"summary"`
	Symptoms             []string `json:"symptoms"`
	Duration             string   `json:"duration"`
	Severity             string   `json:"severity"`
	MedicationsMentioned []string `json:"medicationsMentioned"`
	Recommendations      []string `json:"recommendations"`
}

// ReportRequest is the body of POST /api/medical-report.
type ReportRequest struct {
	Messages      []Utterance    `json:"messages"`
	SessionDetail *SessionDetail `json:"sessionDetail"`
	SessionID     string         `json:"sessionId"`
}

// CreateSessionRequest is the body of POST /api/session-chat.
type CreateSessionRequest struct {
	Notes          string `json:"notes"`
	SelectedDoctor Doctor `json:"selectedDoctor"`
}

// SuggestDoctorsRequest is the body of POST /api/suggest-doctors.
type SuggestDoctorsRequest struct {
	Notes string `json:"notes"`
}

// ErrorResponse is returned by every API endpoint on failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
