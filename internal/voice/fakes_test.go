package voice

import (
	"context"
	"sync"
	"time"

	"medical-voice-agent/pkg"
)

// fakeTransport is an in-memory Transport. Tests drive it with emit.
type fakeTransport struct {
	mu        sync.Mutex
	handlers  map[EventType][]Handler
	cfg       CallConfig
	started   int
	stopped   int
	removed   []EventType
	startErr  error
	stopErr   error
	removeErr error
	// endOnStop makes Stop emit call-end synchronously, like SDKs that
	// report their own hang-up.
	endOnStop bool
	// entered and gate, when set, make Start signal entry and then block
	// until gate is closed.
	entered chan struct{}
	gate    chan struct{}
	running bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: map[EventType][]Handler{}}
}

func (f *fakeTransport) Start(ctx context.Context, cfg CallConfig) error {
	f.mu.Lock()
	f.started++
	f.cfg = cfg
	entered, gate := f.entered, f.gate
	f.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}

func (f *fakeTransport) Stop() error {
	f.mu.Lock()
	f.stopped++
	if !f.running {
		f.mu.Unlock()
		return ErrNotStarted
	}
	f.running = false
	end := f.endOnStop
	f.mu.Unlock()
	if end {
		f.emit(Event{Type: EventCallEnd, Reason: "local-stop"})
	}
	return f.stopErr
}

func (f *fakeTransport) On(ev EventType, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[ev] = append(f.handlers[ev], h)
}

func (f *fakeTransport) RemoveAllListeners(ev EventType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ev)
	if f.removeErr != nil && ev == EventMessage {
		return f.removeErr
	}
	delete(f.handlers, ev)
	return nil
}

func (f *fakeTransport) emit(ev Event) {
	f.mu.Lock()
	hs := append([]Handler(nil), f.handlers[ev.Type]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *fakeTransport) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, hs := range f.handlers {
		n += len(hs)
	}
	return n
}

func (f *fakeTransport) isRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeTransport) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeTransport) final(role pkg.Role, text string) {
	f.emit(Event{Type: EventMessage, Role: role, TranscriptType: TranscriptFinal, Transcript: text})
}

func (f *fakeTransport) partial(role pkg.Role, text string) {
	f.emit(Event{Type: EventMessage, Role: role, TranscriptType: TranscriptPartial, Transcript: text})
}

type fakeReports struct {
	mu       sync.Mutex
	calls    int
	messages [][]pkg.Utterance
	err      error
}

func (f *fakeReports) GenerateReport(ctx context.Context, messages []pkg.Utterance, detail *pkg.SessionDetail, sessionID string) (*pkg.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.messages = append(f.messages, messages)
	if f.err != nil {
		return nil, f.err
	}
	return &pkg.Report{SessionID: sessionID}, nil
}

func (f *fakeReports) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu       sync.Mutex
	success  []string
	warnings []string
	errors   []string
}

func (n *fakeNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = append(n.success, msg)
}

func (n *fakeNotifier) Warn(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, msg)
}

func (n *fakeNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

type fakeNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *fakeNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

// fakeScheduler records requested delays and runs the callback at once.
type fakeScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	f()
}

type harness struct {
	ctl        *Controller
	transports []*fakeTransport
	reports    *fakeReports
	notifier   *fakeNotifier
	nav        *fakeNavigator
	sched      *fakeScheduler
	configure  func(*fakeTransport)
}

func newHarness() *harness {
	h := &harness{
		reports:  &fakeReports{},
		notifier: &fakeNotifier{},
		nav:      &fakeNavigator{},
		sched:    &fakeScheduler{},
	}
	h.ctl = NewController(ControllerConfig{
		SessionID: "sess-1",
		Detail: &pkg.SessionDetail{
			SessionID:      "sess-1",
			SelectedDoctor: pkg.Doctor{ID: 1, Specialist: "General Physician", VoiceID: "chris", AgentPrompt: "You are a GP."},
		},
		NewTransport: func() Transport {
			t := newFakeTransport()
			if h.configure != nil {
				h.configure(t)
			}
			h.transports = append(h.transports, t)
			return t
		},
		Reports:       h.reports,
		Notifier:      h.notifier,
		Navigator:     h.nav,
		RedirectDelay: 5 * time.Second,
		AfterFunc:     h.sched.AfterFunc,
	})
	return h
}

func (h *harness) transport() *fakeTransport { return h.transports[len(h.transports)-1] }
