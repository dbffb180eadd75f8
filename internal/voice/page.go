package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medical-voice-agent/internal/logging"
	"medical-voice-agent/pkg"
)

// ErrMissingSessionID is returned when a page is opened without a session.
var ErrMissingSessionID = errors.New("voice: session id is required")

// ErrNotLoaded is returned when the page is used before Load succeeded.
var ErrNotLoaded = errors.New("voice: session not loaded")

// ErrAlreadyLoaded is returned by a second Load.  The session metadata is
// fetched once per page and the existing controller keeps its call.
var ErrAlreadyLoaded = errors.New("voice: session already loaded")

// SessionFetcher loads session metadata.  *APIClient implements it.
type SessionFetcher interface {
	FetchSession(ctx context.Context, sessionID string) (*pkg.SessionDetail, error)
}

// PageOptions are the collaborators of the session page.
type PageOptions struct {
	NewTransport  func() Transport
	Reports       ReportRequester
	Notifier      Notifier
	Navigator     Navigator
	RedirectDelay time.Duration
	AfterFunc     func(d time.Duration, f func())
}

// PageView is what the session page renders.
type PageView struct {
	Status         string
	Connected      bool
	Specialist     string
	Avatar         string
	Recent         []pkg.Utterance
	LiveLine       string
	Button         string
	ButtonDisabled bool
}

// Page composes the call controller for one consultation session.  It
// loads the session metadata once and delegates the call lifecycle to a
// Controller.
type Page struct {
	sessionID string
	sessions  SessionFetcher
	opts      PageOptions

	detail *pkg.SessionDetail
	ctl    *Controller
}

// NewPage prepares the page for sessionID.
func NewPage(sessionID string, sessions SessionFetcher, opts PageOptions) (*Page, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	return &Page{sessionID: sessionID, sessions: sessions, opts: opts}, nil
}

// Load fetches the session metadata.  Failures are returned as is; there
// is no retry.
func (p *Page) Load(ctx context.Context) error {
	if p.ctl != nil {
		return ErrAlreadyLoaded
	}
	detail, err := p.sessions.FetchSession(ctx, p.sessionID)
	if err != nil {
		logging.Errorw("page: failed to load session", append(logging.SessionFields(p.sessionID), "err", err)...)
		return fmt.Errorf("load session %s: %w", p.sessionID, err)
	}
	p.detail = detail
	p.ctl = NewController(ControllerConfig{
		SessionID:     p.sessionID,
		Detail:        detail,
		NewTransport:  p.opts.NewTransport,
		Reports:       p.opts.Reports,
		Notifier:      p.opts.Notifier,
		Navigator:     p.opts.Navigator,
		RedirectDelay: p.opts.RedirectDelay,
		AfterFunc:     p.opts.AfterFunc,
	})
	logging.Infow("page: session loaded", append(logging.SessionFields(p.sessionID), logging.DoctorFields(detail.SelectedDoctor.ID, detail.SelectedDoctor.Specialist)...)...)
	return nil
}

// Detail returns the loaded session metadata.
func (p *Page) Detail() *pkg.SessionDetail { return p.detail }

// Controller returns the call controller, nil before Load.
func (p *Page) Controller() *Controller { return p.ctl }

// Start is the "Start Call" button.
func (p *Page) Start(ctx context.Context) error {
	if p.ctl == nil {
		return ErrNotLoaded
	}
	return p.ctl.StartCall(ctx)
}

// End is the "End Call" button.
func (p *Page) End(ctx context.Context) error {
	if p.ctl == nil {
		return ErrNotLoaded
	}
	return p.ctl.EndCall(ctx)
}

// Wait blocks until outstanding report requests finish.
func (p *Page) Wait() {
	if p.ctl != nil {
		p.ctl.Wait()
	}
}

// View renders the call-state dependent page.
func (p *Page) View() PageView {
	v := PageView{Status: "Not Connected", Button: "Start Call"}
	if p.detail != nil {
		v.Specialist = p.detail.SelectedDoctor.Specialist
		v.Avatar = p.detail.SelectedDoctor.Image
	}
	if p.ctl == nil {
		v.ButtonDisabled = true
		return v
	}
	snap := p.ctl.Snapshot()
	v.Recent = snap.Recent
	v.ButtonDisabled = snap.Loading
	switch snap.State {
	case StateConnected:
		v.Status, v.Connected, v.Button = "Connected...", true, "End Call"
	case StateConnecting, StateEnding:
		v.Button = "End Call"
	}
	if snap.LiveTranscript != "" {
		v.LiveLine = string(snap.Speaker) + ":" + snap.LiveTranscript
	}
	return v
}
