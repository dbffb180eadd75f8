package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"medical-voice-agent/pkg"
)

type stubSessions struct {
	detail *pkg.SessionDetail
	err    error
	calls  int
}

func (s *stubSessions) FetchSession(ctx context.Context, sessionID string) (*pkg.SessionDetail, error) {
	s.calls++
	return s.detail, s.err
}

func TestNewPageRequiresSessionID(t *testing.T) {
	if _, err := NewPage("", &stubSessions{}, PageOptions{}); !errors.Is(err, ErrMissingSessionID) {
		t.Fatalf("want ErrMissingSessionID, got %v", err)
	}
}

func TestPageLoadFailureIsNotRetried(t *testing.T) {
	sessions := &stubSessions{err: errors.New("status 404")}
	p, err := NewPage("s1", sessions, PageOptions{})
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := p.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if sessions.calls != 1 {
		t.Fatalf("fetch attempts: %d", sessions.calls)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("want ErrNotLoaded, got %v", err)
	}
	if v := p.View(); !v.ButtonDisabled || v.Status != "Not Connected" {
		t.Fatalf("view before load: %+v", v)
	}
}

func TestPageViewFollowsCall(t *testing.T) {
	var tr *fakeTransport
	sessions := &stubSessions{detail: &pkg.SessionDetail{
		SessionID:      "s1",
		SelectedDoctor: pkg.Doctor{ID: 3, Specialist: "Dermatologist", Image: "/doctor3.png", VoiceID: "sam"},
	}}
	reports := &fakeReports{}
	nav := &fakeNavigator{}
	sched := &fakeScheduler{}
	p, err := NewPage("s1", sessions, PageOptions{
		NewTransport:  func() Transport { tr = newFakeTransport(); return tr },
		Reports:       reports,
		Notifier:      &fakeNotifier{},
		Navigator:     nav,
		RedirectDelay: time.Second,
		AfterFunc:     sched.AfterFunc,
	})
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	v := p.View()
	if v.Specialist != "Dermatologist" || v.Avatar != "/doctor3.png" || v.Button != "Start Call" || v.ButtonDisabled {
		t.Fatalf("idle view: %+v", v)
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if v := p.View(); !v.ButtonDisabled || v.Connected {
		t.Fatalf("connecting view: %+v", v)
	}
	if tr.cfg.Voice.VoiceID != "sam" {
		t.Fatalf("voice: %q", tr.cfg.Voice.VoiceID)
	}

	tr.emit(Event{Type: EventCallStart})
	tr.partial(pkg.RoleUser, "my skin")
	v = p.View()
	if v.Status != "Connected..." || !v.Connected || v.Button != "End Call" || v.LiveLine != "user:my skin" {
		t.Fatalf("connected view: %+v", v)
	}

	tr.final(pkg.RoleUser, "my skin itches")
	if err := p.End(context.Background()); err != nil {
		t.Fatalf("End: %v", err)
	}
	p.Wait()
	if reports.count() != 1 || len(nav.paths) != 1 || sched.delays[0] != time.Second {
		t.Fatalf("reports=%d nav=%v delays=%v", reports.count(), nav.paths, sched.delays)
	}
	if v := p.View(); v.Button != "Start Call" || v.Connected || len(v.Recent) != 1 {
		t.Fatalf("ended view: %+v", v)
	}
}

func TestPageLoadOnlyOnce(t *testing.T) {
	sessions := &stubSessions{detail: &pkg.SessionDetail{SessionID: "s1"}}
	p, err := NewPage("s1", sessions, PageOptions{
		NewTransport: func() Transport { return newFakeTransport() },
		Reports:      &fakeReports{},
		Notifier:     &fakeNotifier{},
		Navigator:    &fakeNavigator{},
	})
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctl := p.Controller()

	if err := p.Load(context.Background()); !errors.Is(err, ErrAlreadyLoaded) {
		t.Fatalf("want ErrAlreadyLoaded, got %v", err)
	}
	if p.Controller() != ctl || sessions.calls != 1 {
		t.Fatalf("second load replaced the controller (fetches=%d)", sessions.calls)
	}
	if s := ctl.Snapshot().State; s != StateConnecting {
		t.Fatalf("live call lost, state %s", s)
	}
}
