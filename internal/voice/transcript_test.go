package voice

import (
	"errors"
	"testing"

	"medical-voice-agent/pkg"
)

func TestTranscriptKeepsDuplicates(t *testing.T) {
	var tr Transcript
	tr.AppendFinal(pkg.RoleUser, "yes")
	tr.AppendFinal(pkg.RoleUser, "yes")
	tr.AppendFinal(pkg.RoleAssistant, "")
	if tr.Len() != 3 {
		t.Fatalf("want 3 utterances, got %d", tr.Len())
	}
}

func TestTranscriptMessagesIsCopy(t *testing.T) {
	var tr Transcript
	tr.AppendFinal(pkg.RoleUser, "hello")
	got := tr.Messages()
	got[0].Text = "changed"
	if tr.Messages()[0].Text != "hello" {
		t.Fatal("Messages exposed internal storage")
	}
}

func TestTranscriptRecent(t *testing.T) {
	var tr Transcript
	if got := tr.Recent(4); len(got) != 0 {
		t.Fatalf("empty log: %+v", got)
	}
	for _, s := range []string{"a", "b", "c", "d", "e", "f"} {
		tr.AppendFinal(pkg.RoleUser, s)
	}
	got := tr.Recent(4)
	if len(got) != 4 || got[0].Text != "c" || got[3].Text != "f" {
		t.Fatalf("recent: %+v", got)
	}
	if got := tr.Recent(0); len(got) != 0 {
		t.Fatalf("recent(0): %+v", got)
	}
	tr.Reset()
	if tr.Len() != 0 {
		t.Fatal("reset did not clear")
	}
}

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from, to CallState
		ok       bool
	}{
		{StateIdle, StateConnecting, true},
		{StateIdle, StateConnected, false},
		{StateIdle, StateEnding, false},
		{StateConnecting, StateConnected, true},
		{StateConnecting, StateEnding, true},
		{StateConnecting, StateIdle, true},
		{StateConnected, StateEnding, true},
		{StateConnected, StateIdle, true},
		{StateConnected, StateConnecting, false},
		{StateEnding, StateIdle, true},
		{StateEnding, StateConnected, false},
	}
	for _, tc := range cases {
		got, err := tc.from.next(tc.to)
		if tc.ok {
			if err != nil || got != tc.to {
				t.Errorf("%s -> %s: got %s, %v", tc.from, tc.to, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidTransition) || got != tc.from {
			t.Errorf("%s -> %s: want rejection, got %s, %v", tc.from, tc.to, got, err)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateConnected.String() != "connected" || CallState(9).String() != "CallState(9)" {
		t.Fatalf("unexpected names %q %q", StateConnected, CallState(9))
	}
}

func TestSubscriptionsReleaseJoinsErrors(t *testing.T) {
	tr := newFakeTransport()
	tr.removeErr = errors.New("boom")
	subs := subscribe(tr, map[EventType]Handler{
		EventCallStart: func(Event) {},
		EventMessage:   func(Event) {},
	})
	err := subs.release()
	if err == nil || !errors.Is(err, tr.removeErr) {
		t.Fatalf("want joined error, got %v", err)
	}
	if len(tr.removed) != 2 {
		t.Fatalf("removals attempted: %v", tr.removed)
	}
	if err := subs.release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if len(tr.removed) != 2 {
		t.Fatal("second release touched the transport")
	}
	var none *subscriptions
	if err := none.release(); err != nil {
		t.Fatalf("nil release: %v", err)
	}
}

func TestNewCallConfigDefaults(t *testing.T) {
	cfg := NewCallConfig(nil)
	if cfg.Voice.VoiceID != "will" {
		t.Fatalf("default voice: %q", cfg.Voice.VoiceID)
	}
	if cfg.Model.MaxTokens != 150 || cfg.Model.Temperature != 0.7 || cfg.Transcriber.Model != "nova-2" {
		t.Fatalf("model config: %+v", cfg)
	}
	if cfg.Model.Messages[0].Role != "system" || cfg.Model.Messages[0].Content == "" {
		t.Fatalf("system prompt missing: %+v", cfg.Model.Messages)
	}
}
