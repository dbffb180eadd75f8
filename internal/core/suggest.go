package core

import (
	"context"
	"encoding/json"
	"fmt"

	"medical-voice-agent/internal/llm"
	"medical-voice-agent/pkg"
)

const maxSuggestions = 3

// DoctorSuggester picks the personas best suited to a patient's notes.
type DoctorSuggester struct {
	LLM       llm.Client
	Model     string
	MaxTokens int
	Catalog   []pkg.Doctor
}

// NewDoctorSuggester constructs a suggester over the default catalog.
func NewDoctorSuggester(client llm.Client, model string, maxTokens int) *DoctorSuggester {
	if maxTokens <= 0 {
		maxTokens = 200
	}
	return &DoctorSuggester{LLM: client, Model: model, MaxTokens: maxTokens, Catalog: Doctors}
}

// Suggest returns up to three doctors for the notes.  It always returns a
// usable list: on any failure, or when the model names no known doctor,
// the first entries of the catalog are returned.  The error is only
// reported so the caller can log it.
func (s *DoctorSuggester) Suggest(ctx context.Context, notes string) ([]pkg.Doctor, error) {
	catalog, err := json.Marshal(s.Catalog)
	if err != nil {
		return s.fallback(), fmt.Errorf("encode catalog: %w", err)
	}
	reply, err := s.LLM.Complete(ctx, llm.Request{
		Model: s.Model,
		Messages: []llm.Message{
			{Role: "system", Content: string(catalog)},
			{Role: "user", Content: fmt.Sprintf("User Notes/Symptoms: %s. %s", notes, SuggestDoctorsInstruction)},
		},
		MaxTokens: s.MaxTokens,
	})
	if err != nil {
		return s.fallback(), fmt.Errorf("suggest completion: %w", err)
	}

	var ids []int
	if err := json.Unmarshal([]byte(CleanJSONReply(reply)), &ids); err != nil {
		return s.fallback(), fmt.Errorf("parse suggestion reply: %w", err)
	}
	wanted := make(map[int]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make([]pkg.Doctor, 0, maxSuggestions)
	for _, d := range s.Catalog {
		if wanted[d.ID] {
			out = append(out, d)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	if len(out) == 0 {
		return s.fallback(), nil
	}
	return out, nil
}

func (s *DoctorSuggester) fallback() []pkg.Doctor {
	n := maxSuggestions
	if len(s.Catalog) < n {
		n = len(s.Catalog)
	}
	out := make([]pkg.Doctor, n)
	copy(out, s.Catalog[:n])
	return out
}
