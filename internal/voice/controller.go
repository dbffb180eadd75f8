package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"medical-voice-agent/internal/logging"
	"medical-voice-agent/pkg"

	"github.com/google/uuid"
)

var (
	// ErrCallActive is returned by StartCall when a call is already running.
	ErrCallActive = errors.New("voice: a call is already active")
	// ErrNoActiveCall is returned by EndCall when there is nothing to end.
	ErrNoActiveCall = errors.New("voice: no active call")
	// ErrCallEnding is returned by EndCall while a previous EndCall runs.
	ErrCallEnding = errors.New("voice: call is already ending")
	// ErrEmptyConversation is returned when there is no conversation to
	// report on.  No report request is sent.
	ErrEmptyConversation = errors.New("voice: no conversation to report")
	// ErrCallCanceled is returned by StartCall when EndCall ran while the
	// transport was still connecting.  The late connection is stopped.
	ErrCallCanceled = errors.New("voice: call ended before it connected")
)

const (
	// DashboardPath is where the patient is sent once a report exists.
	DashboardPath = "/dashboard"
	// DefaultRedirectDelay leaves the success notification on screen
	// before navigating away.
	DefaultRedirectDelay = 5 * time.Second
	// RecentUtterances is how many utterances the live view shows.
	RecentUtterances = 4

	MsgReportReady    = "Your report has been generated! Redirecting to dashboard..."
	MsgReportFailed   = "Failed to generate report. Please try again."
	MsgNoConversation = "No conversation detected. Please have a conversation before ending the call."
	MsgEndFailed      = "Failed to end the call. Please try again."
)

// ReportRequester turns a finished conversation into a stored report.
type ReportRequester interface {
	GenerateReport(ctx context.Context, messages []pkg.Utterance, detail *pkg.SessionDetail, sessionID string) (*pkg.Report, error)
}

// Notifier shows transient messages to the patient.
type Notifier interface {
	Success(msg string)
	Warn(msg string)
	Error(msg string)
}

// Navigator moves the patient to another page.
type Navigator interface {
	Navigate(path string)
}

// ControllerConfig wires a Controller to its collaborators.
type ControllerConfig struct {
	SessionID     string
	Detail        *pkg.SessionDetail
	NewTransport  func() Transport
	Reports       ReportRequester
	Notifier      Notifier
	Navigator     Navigator
	RedirectDelay time.Duration
	// AfterFunc schedules the delayed navigation; time.AfterFunc when nil.
	AfterFunc func(d time.Duration, f func())
}

// Snapshot is a read-only view of the controller.
type Snapshot struct {
	State          CallState
	Loading        bool
	LiveTranscript string
	Speaker        pkg.Role
	Recent         []pkg.Utterance
	Utterances     int

	// Redirecting is set once a report succeeded and navigation to the
	// dashboard is scheduled.
	Redirecting bool
}

// Controller owns the lifecycle of one call at a time against the voice
// transport.  It accumulates the transcript, tracks who is speaking and
// requests a report when the call ends, whichever side ends it.
//
// Transport events and user actions may arrive on different goroutines;
// all controller state is guarded by mu, and no lock is held while calling
// into the transport or the report requester.
type Controller struct {
	cfg        ControllerConfig
	transcript Transcript

	mu        sync.Mutex
	state     CallState
	loading   bool
	live      string
	speaker   pkg.Role
	transport Transport
	subs      *subscriptions
	callID    string

	// redirecting is set when the last finished call scheduled navigation.
	redirecting bool

	pending sync.WaitGroup
}

// NewController constructs an idle controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = DefaultRedirectDelay
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	return &Controller{cfg: cfg}
}

func (c *Controller) logCtx(callID string) context.Context {
	ctx := logging.WithFields(context.Background(), logging.SessionFields(c.cfg.SessionID)...)
	if callID != "" {
		ctx = logging.WithFields(ctx, "call.id", callID)
	}
	return ctx
}

// setState applies a transition.  Callers hold mu.
func (c *Controller) setState(to CallState) error {
	next, err := c.state.next(to)
	if err != nil {
		logging.WarnwCtx(c.logCtx(c.callID), "voice: rejected transition", "err", err)
		return err
	}
	c.state = next
	return nil
}

// StartCall opens a new call with the session's persona.  The transcript
// of any previous call is discarded.
func (c *Controller) StartCall(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrCallActive
	}
	if err := c.setState(StateConnecting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.loading = true
	c.live = ""
	c.speaker = ""
	c.redirecting = false
	c.transcript.Reset()
	callID := uuid.NewString()
	t := c.cfg.NewTransport()
	c.callID = callID
	c.transport = t
	c.subs = subscribe(t, c.handlers(callID))
	c.mu.Unlock()

	lctx := c.logCtx(callID)
	logging.InfowCtx(lctx, "voice: starting call")
	if err := t.Start(ctx, NewCallConfig(c.cfg.Detail)); err != nil {
		logging.ErrorwCtx(lctx, "voice: transport start failed", "err", err)
		c.mu.Lock()
		var subs *subscriptions
		if c.callID == callID && c.transport == t {
			subs = c.detachLocked()
			c.state = StateIdle
			c.loading = false
		}
		c.mu.Unlock()
		if rerr := subs.release(); rerr != nil {
			logging.WarnwCtx(lctx, "voice: error removing listeners", "err", rerr)
		}
		return fmt.Errorf("start call: %w", err)
	}

	c.mu.Lock()
	current := c.callID == callID && c.transport == t
	c.mu.Unlock()
	if !current {
		// EndCall ran while connecting and has already detached this call.
		logging.WarnwCtx(lctx, "voice: call ended while connecting, stopping transport")
		if err := t.Stop(); err != nil {
			logging.WarnwCtx(lctx, "voice: stopping late transport failed", "err", err)
		}
		return ErrCallCanceled
	}
	return nil
}

// detachLocked drops the transport handle and returns the subscriptions
// for release outside the lock.  Callers hold mu.
func (c *Controller) detachLocked() *subscriptions {
	subs := c.subs
	c.subs = nil
	c.transport = nil
	c.callID = ""
	return subs
}

// EndCall stops the active call and requests the report.  Ending an idle
// controller is a no-op that returns ErrNoActiveCall.  With an empty
// transcript a warning is shown and ErrEmptyConversation returned without
// any report request.  Exactly one report request is made otherwise.
func (c *Controller) EndCall(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.state == StateEnding:
		c.mu.Unlock()
		return ErrCallEnding
	case c.state == StateIdle || c.transport == nil:
		c.mu.Unlock()
		logging.WarnwCtx(c.logCtx(""), "voice: end requested without an active call")
		return ErrNoActiveCall
	}
	if err := c.setState(StateEnding); err != nil {
		c.mu.Unlock()
		return err
	}
	c.loading = true
	callID := c.callID
	t := c.transport
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	lctx := c.logCtx(callID)
	logging.InfowCtx(lctx, "voice: ending call")
	stopErr := t.Stop()
	if errors.Is(stopErr, ErrNotStarted) {
		// StartCall is still connecting; it stops the transport once it
		// sees the call is gone.
		stopErr = nil
	}

	c.mu.Lock()
	subs := c.detachLocked()
	_ = c.setState(StateIdle)
	c.live = ""
	c.speaker = ""
	c.mu.Unlock()
	if err := subs.release(); err != nil {
		logging.WarnwCtx(lctx, "voice: error removing listeners", "err", err)
	}

	if stopErr != nil {
		logging.ErrorwCtx(lctx, "voice: transport stop failed", "err", stopErr)
		c.cfg.Notifier.Error(MsgEndFailed)
		return fmt.Errorf("end call: %w", stopErr)
	}

	messages := c.transcript.Messages()
	if len(messages) == 0 {
		logging.WarnwCtx(lctx, "voice: no messages, skipping report")
		c.cfg.Notifier.Warn(MsgNoConversation)
		return ErrEmptyConversation
	}
	return c.finish(ctx, callID, messages)
}

// finish requests the report and, on success, schedules navigation to the
// dashboard.  Failure leaves the patient on the page.
func (c *Controller) finish(ctx context.Context, callID string, messages []pkg.Utterance) error {
	lctx := c.logCtx(callID)
	logging.InfowCtx(lctx, "voice: generating report", "messages", len(messages))
	_, err := c.cfg.Reports.GenerateReport(ctx, messages, c.cfg.Detail, c.cfg.SessionID)
	if err != nil {
		logging.ErrorwCtx(lctx, "voice: report generation failed", "err", err)
		c.cfg.Notifier.Error(MsgReportFailed)
		return fmt.Errorf("generate report: %w", err)
	}
	logging.InfowCtx(lctx, "voice: report generated")
	c.cfg.Notifier.Success(MsgReportReady)
	c.mu.Lock()
	c.redirecting = true
	c.mu.Unlock()
	c.cfg.AfterFunc(c.cfg.RedirectDelay, func() {
		c.cfg.Navigator.Navigate(DashboardPath)
	})
	return nil
}

// handlers returns the event table for one call.  Each handler ignores
// events from any call other than callID, so a late event from a torn
// down transport cannot touch the next call.
func (c *Controller) handlers(callID string) map[EventType]Handler {
	return map[EventType]Handler{
		EventCallStart:   func(Event) { c.onCallStart(callID) },
		EventCallEnd:     func(ev Event) { c.onCallEnd(callID, ev) },
		EventMessage:     func(ev Event) { c.onMessage(callID, ev) },
		EventSpeechStart: func(Event) { c.onSpeaker(callID, pkg.RoleAssistant) },
		EventSpeechEnd:   func(Event) { c.onSpeaker(callID, pkg.RoleUser) },
		EventError:       func(ev Event) { c.onError(callID, ev) },
	}
}

func (c *Controller) onCallStart(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callID != callID || c.state != StateConnecting {
		return
	}
	if err := c.setState(StateConnected); err == nil {
		c.loading = false
		logging.InfowCtx(c.logCtx(callID), "voice: call started")
	}
}

// onCallEnd handles a hang-up from the transport side.  While a local
// EndCall is in progress the controller is ending and the event is
// ignored, so a call end produces one report request at most.
func (c *Controller) onCallEnd(callID string, ev Event) {
	c.mu.Lock()
	if c.callID != callID || (c.state != StateConnecting && c.state != StateConnected) {
		c.mu.Unlock()
		return
	}
	_ = c.setState(StateIdle)
	subs := c.detachLocked()
	c.loading = false
	c.live = ""
	c.speaker = ""
	messages := c.transcript.Messages()
	auto := len(messages) > 1
	if auto {
		c.loading = true
		c.pending.Add(1)
	}
	c.mu.Unlock()

	lctx := c.logCtx(callID)
	logging.InfowCtx(lctx, "voice: call ended by transport", "reason", ev.Reason, "messages", len(messages))
	if err := subs.release(); err != nil {
		logging.WarnwCtx(lctx, "voice: error removing listeners", "err", err)
	}
	if !auto {
		return
	}
	go func() {
		defer c.pending.Done()
		defer func() {
			c.mu.Lock()
			c.loading = false
			c.mu.Unlock()
		}()
		_ = c.finish(context.Background(), callID, messages)
	}()
}

func (c *Controller) onMessage(callID string, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callID != callID {
		return
	}
	switch ev.TranscriptType {
	case TranscriptPartial:
		c.live = ev.Transcript
		c.speaker = ev.Role
	case TranscriptFinal:
		c.transcript.AppendFinal(ev.Role, ev.Transcript)
		c.live = ""
		c.speaker = ""
	}
}

func (c *Controller) onSpeaker(callID string, role pkg.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callID == callID {
		c.speaker = role
	}
}

// onError only logs.  A transport error does not change the call state.
func (c *Controller) onError(callID string, ev Event) {
	logging.ErrorwCtx(c.logCtx(callID), "voice: transport error", "err", ev.Err)
}

// Snapshot returns the current view of the controller.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:          c.state,
		Loading:        c.loading,
		LiveTranscript: c.live,
		Speaker:        c.speaker,
		Recent:         c.transcript.Recent(RecentUtterances),
		Utterances:     c.transcript.Len(),
		Redirecting:    c.redirecting,
	}
}

// Messages returns the full transcript of the current or last call.
func (c *Controller) Messages() []pkg.Utterance { return c.transcript.Messages() }

// Wait blocks until report requests started by a transport hang-up have
// finished.
func (c *Controller) Wait() { c.pending.Wait() }
