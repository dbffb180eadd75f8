package voice

import (
	"context"
	"errors"

	"medical-voice-agent/internal/core"
	"medical-voice-agent/pkg"
)

// EventType names an event emitted by the voice transport.
type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventMessage     EventType = "message"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventError       EventType = "error"
)

// TranscriptType distinguishes speech still in progress from a finished
// utterance.
type TranscriptType string

const (
	TranscriptPartial TranscriptType = "partial"
	TranscriptFinal   TranscriptType = "final"
)

// Event is delivered to handlers registered with Transport.On.  Only the
// fields relevant to Type are set.
type Event struct {
	Type           EventType
	Role           pkg.Role
	TranscriptType TranscriptType
	Transcript     string
	Reason         string
	Err            error
}

// Handler receives transport events.  Handlers may be called from a
// transport goroutine.
type Handler func(Event)

// Transport is a real-time voice call against the hosted voice agent.  A
// Transport is used for a single call.
type Transport interface {
	Start(ctx context.Context, cfg CallConfig) error
	Stop() error
	On(ev EventType, h Handler)
	RemoveAllListeners(ev EventType) error
}

// ErrNotStarted is returned by Stop when the transport never started.
var ErrNotStarted = errors.New("voice: transport not started")

// CallConfig is the assistant configuration sent when a call starts.
type CallConfig struct {
	Name                  string      `json:"name"`
	FirstMessage          string      `json:"firstMessage"`
	Transcriber           Transcriber `json:"transcriber"`
	Voice                 VoiceConfig `json:"voice"`
	Model                 ModelConfig `json:"model"`
	EndCallMessage        string      `json:"endCallMessage"`
	EndCallPhrases        []string    `json:"endCallPhrases"`
	SilenceTimeoutSeconds int         `json:"silenceTimeoutSeconds"`
	MaxDurationSeconds    int         `json:"maxDurationSeconds"`
	BackgroundSound       string      `json:"backgroundSound"`
}

type Transcriber struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type VoiceConfig struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type ModelConfig struct {
	Provider    string         `json:"provider"`
	Model       string         `json:"model"`
	Messages    []ModelMessage `json:"messages"`
	MaxTokens   int            `json:"maxTokens"`
	Temperature float64        `json:"temperature"`
}

type ModelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewCallConfig builds the assistant configuration for the persona of the
// session.  The termination policy is fixed: ten minutes at most, thirty
// seconds of silence, or one of the end-call phrases.
func NewCallConfig(detail *pkg.SessionDetail) CallConfig {
	voiceID := "will"
	prompt := core.DefaultAgentPrompt
	if detail != nil {
		if detail.SelectedDoctor.VoiceID != "" {
			voiceID = detail.SelectedDoctor.VoiceID
		}
		if detail.SelectedDoctor.AgentPrompt != "" {
			prompt = detail.SelectedDoctor.AgentPrompt
		}
	}
	phrases := make([]string, len(core.EndCallPhrases))
	copy(phrases, core.EndCallPhrases)
	return CallConfig{
		Name:         "AI Medical Voice Agent",
		FirstMessage: core.FirstMessage,
		Transcriber:  Transcriber{Provider: "deepgram", Model: "nova-2", Language: "en"},
		Voice:        VoiceConfig{Provider: "playht", VoiceID: voiceID},
		Model: ModelConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			Messages:    []ModelMessage{{Role: "system", Content: prompt}},
			MaxTokens:   150,
			Temperature: 0.7,
		},
		EndCallMessage:        core.EndCallMessage,
		EndCallPhrases:        phrases,
		SilenceTimeoutSeconds: 30,
		MaxDurationSeconds:    600,
		BackgroundSound:       "off",
	}
}

// handlerOrder is the order subscriptions are installed and released in.
var handlerOrder = []EventType{EventCallStart, EventCallEnd, EventMessage, EventSpeechStart, EventSpeechEnd, EventError}

// subscriptions is the set of handlers one call installed on its transport.
type subscriptions struct {
	t      Transport
	events []EventType
}

func subscribe(t Transport, table map[EventType]Handler) *subscriptions {
	s := &subscriptions{t: t}
	for _, ev := range handlerOrder {
		h, ok := table[ev]
		if !ok {
			continue
		}
		t.On(ev, h)
		s.events = append(s.events, ev)
	}
	return s
}

// release detaches every installed handler.  Each event is attempted even
// when an earlier one fails; the failures are joined.  Calling release
// again is a no-op.
func (s *subscriptions) release() error {
	if s == nil || s.t == nil {
		return nil
	}
	var errs []error
	for _, ev := range s.events {
		if err := s.t.RemoveAllListeners(ev); err != nil {
			errs = append(errs, err)
		}
	}
	s.t = nil
	s.events = nil
	return errors.Join(errs...)
}
