package voice

import (
	"sync"

	"medical-voice-agent/pkg"
)

// Transcript is the ordered conversation log of one call.  Utterances are
// appended in arrival order and never merged or deduplicated.
type Transcript struct {
	mu         sync.Mutex
	utterances []pkg.Utterance
}

// AppendFinal appends a finalized utterance.
func (t *Transcript) AppendFinal(role pkg.Role, text string) {
	t.mu.Lock()
	t.utterances = append(t.utterances, pkg.Utterance{Role: role, Text: text})
	t.mu.Unlock()
}

// Reset clears the log.
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.utterances = nil
	t.mu.Unlock()
}

// Len returns the number of utterances.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.utterances)
}

// Messages returns a copy of the full log.
func (t *Transcript) Messages() []pkg.Utterance {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]pkg.Utterance, len(t.utterances))
	copy(out, t.utterances)
	return out
}

// Recent returns a copy of the last n utterances.
func (t *Transcript) Recent(n int) []pkg.Utterance {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 {
		return []pkg.Utterance{}
	}
	start := len(t.utterances) - n
	if start < 0 {
		start = 0
	}
	out := make([]pkg.Utterance, len(t.utterances)-start)
	copy(out, t.utterances[start:])
	return out
}
