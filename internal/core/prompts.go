package core

// prompts.go holds the language model prompts used by report generation and
// doctor suggestion, plus the voice agent defaults used when a persona does
// not provide its own.

const (
	// ReportPrompt instructs the model to turn a finished voice consultation
	// into the eleven-field report.  The model must answer with JSON only.
	ReportPrompt = `You are an AI Medical Voice Agent that just finished a voice conversation with a user. Based on doctor AI AGENT info and conversation between ai medical agent and user, generate a structured report with ALL the following fields (even if empty):

REQUIRED FIELDS - ALL MUST BE INCLUDED:
1. sessionId: the session identifier provided
2. agent: the medical specialist name (e.g., "General Physician AI")
3. user: name of the patient or "Anonymous" if not provided
4. timestamp: current date and time in ISO format
5. chiefComplaint: one-sentence summary of the main health concern
6. summary: a 2-3 sentence summary of the conversation, symptoms, and recommendations
7. symptoms: array of symptoms mentioned by the user (empty array if none)
8. duration: how long the user has experienced the symptoms ("Not specified" if not mentioned)
9. severity: "mild", "moderate", "severe", or "Not specified"
10. medicationsMentioned: array of any medicines mentioned (empty array if none)
11. recommendations: array of AI suggestions (empty array if none)

IMPORTANT: You MUST include ALL 11 fields in your response. Use empty arrays [] for lists with no items, and "Not specified" for unknown text fields.

Return ONLY this exact JSON format with ALL fields:
{
  "sessionId": "string",
  "agent": "string",
  "user": "string",
  "timestamp": "ISO Date string",
  "chiefComplaint": "string",
  "summary": "string",
  "symptoms": ["symptom1", "symptom2"],
  "duration": "string",
  "severity": "string",
  "medicationsMentioned": ["med1", "med2"],
  "recommendations": ["rec1", "rec2"]
}

Respond with ONLY the JSON object, nothing else.`

	// SuggestDoctorsInstruction is appended to the patient's notes.  The
	// catalog itself is sent as the system message.
	SuggestDoctorsInstruction = "Based on these symptoms, suggest the most relevant doctors from the provided list. " +
		"Return ONLY the IDs of the most suitable doctors as a JSON array of numbers. Example: [1, 4, 7]"

	// DefaultAgentPrompt is used when the selected persona has no prompt.
	DefaultAgentPrompt = "You are a helpful medical AI assistant. Ask about symptoms and provide general health guidance."

	// FirstMessage is spoken by the agent as soon as the call connects.
	FirstMessage = "Hello, how can I help you today?"

	// EndCallMessage is spoken by the agent before the transport hangs up.
	EndCallMessage = "Thank you for the consultation. Take care!"

	// NotSpecified replaces missing text fields in a report.
	NotSpecified = "Not specified"
)

// EndCallPhrases make the voice agent hang up when the patient says them.
var EndCallPhrases = []string{"goodbye", "end call", "hang up", "that's all"}
