package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"medical-voice-agent/internal/llm"
	"medical-voice-agent/pkg"
)

var (
	// ErrMissingSessionID is returned when a report request has no session id.
	ErrMissingSessionID = errors.New("core: session id is required")
	// ErrEmptyConversation is returned when a report request has no messages.
	ErrEmptyConversation = errors.New("core: no conversation messages")
)

const defaultSummary = "Medical consultation completed."

// ReportGenerator turns a finished conversation into a normalized Report
// using the language model.
type ReportGenerator struct {
	LLM       llm.Client
	Model     string
	MaxTokens int
	Now       func() time.Time
}

// NewReportGenerator constructs a report generator.  A zero maxTokens uses
// the default of 500.
func NewReportGenerator(client llm.Client, model string, maxTokens int) *ReportGenerator {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &ReportGenerator{LLM: client, Model: model, MaxTokens: maxTokens, Now: time.Now}
}

// Generate validates the request, asks the model for a report and
// normalizes the reply.  The request is rejected before any model call when
// the session id or the conversation is missing.
func (g *ReportGenerator) Generate(ctx context.Context, req pkg.ReportRequest) (*pkg.Report, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, ErrMissingSessionID
	}
	if len(req.Messages) == 0 {
		return nil, ErrEmptyConversation
	}

	detail, err := json.Marshal(req.SessionDetail)
	if err != nil {
		return nil, fmt.Errorf("encode session detail: %w", err)
	}
	conversation, err := json.Marshal(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("encode conversation: %w", err)
	}
	userInput := "AI DOCTOR AGENT INFO:" + string(detail) + " , Conversation :" + string(conversation)

	reply, err := g.LLM.Complete(ctx, llm.Request{
		Model: g.Model,
		Messages: []llm.Message{
			{Role: "system", Content: ReportPrompt},
			{Role: "user", Content: userInput},
		},
		MaxTokens: g.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("report completion: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(CleanJSONReply(reply)), &raw); err != nil {
		return nil, fmt.Errorf("parse report reply: %w", err)
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	report := NormalizeReport(raw, req.SessionID, req.SessionDetail, now())
	return &report, nil
}

// CleanJSONReply strips the markdown code fences models like to wrap JSON in.
func CleanJSONReply(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// NormalizeReport builds a Report from a decoded model reply.  Missing or
// mistyped text fields get their defaults and missing or mistyped list
// fields become empty lists; everything else passes through unchanged.
func NormalizeReport(raw map[string]interface{}, sessionID string, detail *pkg.SessionDetail, now time.Time) pkg.Report {
	r := pkg.Report{
		SessionID:            stringField(raw, "sessionId"),
		Agent:                stringField(raw, "agent"),
		User:                 stringField(raw, "user"),
		Timestamp:            stringField(raw, "timestamp"),
		ChiefComplaint:       stringField(raw, "chiefComplaint"),
		Summary:              stringField(raw, "summary"),
		Symptoms:             listField(raw, "symptoms"),
		Duration:             stringField(raw, "duration"),
		Severity:             stringField(raw, "severity"),
		MedicationsMentioned: listField(raw, "medicationsMentioned"),
		Recommendations:      listField(raw, "recommendations"),
	}
	FillReportDefaults(&r, sessionID, detail, now)
	return r
}

// FillReportDefaults replaces empty fields of r with their defaults.
func FillReportDefaults(r *pkg.Report, sessionID string, detail *pkg.SessionDetail, now time.Time) {
	if r.SessionID == "" {
		r.SessionID = sessionID
	}
	if r.Agent == "" {
		r.Agent = "AI Medical Agent"
		if detail != nil && detail.SelectedDoctor.Specialist != "" {
			r.Agent = detail.SelectedDoctor.Specialist + " AI"
		}
	}
	if r.User == "" {
		r.User = "Anonymous"
	}
	if r.Timestamp == "" {
		r.Timestamp = now.UTC().Format(time.RFC3339)
	}
	if r.ChiefComplaint == "" {
		r.ChiefComplaint = NotSpecified
	}
	if r.Summary == "" {
		r.Summary = defaultSummary
	}
	if r.Duration == "" {
		r.Duration = NotSpecified
	}
	if r.Severity == "" {
		r.Severity = NotSpecified
	}
	if r.Symptoms == nil {
		r.Symptoms = []string{}
	}
	if r.MedicationsMentioned == nil {
		r.MedicationsMentioned = []string{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
}

func stringField(raw map[string]interface{}, key string) string {
	s, _ := raw[key].(string)
	return s
}

func listField(raw map[string]interface{}, key string) []string {
	items, ok := raw[key].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
