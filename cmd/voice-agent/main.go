// Command voice-agent runs one consultation session against the hosted
// voice agent.  The call starts once the session is loaded; Ctrl-C ends it
// and requests the medical report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"medical-voice-agent/internal/config"
	"medical-voice-agent/internal/logging"
	"medical-voice-agent/internal/voice"
)

// consoleNotifier prints notifications for the patient and logs them.
type consoleNotifier struct{}

func (consoleNotifier) Success(msg string) {
	fmt.Fprintln(os.Stderr, "[ok] "+msg)
	logging.Infow("notify", "level", "success", "msg", msg)
}

func (consoleNotifier) Warn(msg string) {
	fmt.Fprintln(os.Stderr, "[warn] "+msg)
	logging.Warnw("notify", "level", "warn", "msg", msg)
}

func (consoleNotifier) Error(msg string) {
	fmt.Fprintln(os.Stderr, "[error] "+msg)
	logging.Errorw("notify", "level", "error", "msg", msg)
}

// exitNavigator records the navigation target; the process leaves the
// session once it fires.
type exitNavigator struct {
	once sync.Once
	done chan string
}

func (n *exitNavigator) Navigate(path string) {
	n.once.Do(func() { n.done <- path })
}

func main() {
	sessionFlag := flag.String("session", "", "consultation session id")
	refresh := flag.Duration("refresh", 500*time.Millisecond, "view refresh interval")
	flag.Parse()

	cfg := config.Load()
	logging.Init()
	defer logging.Sync()

	sessionID := *sessionFlag
	if sessionID == "" && flag.NArg() > 0 {
		sessionID = flag.Arg(0)
	}
	if cfg.VoiceAgentURL == "" {
		log.Fatal("VOICE_AGENT_URL must be set")
	}

	api := voice.NewAPIClient(cfg.APIBaseURL, cfg.ReportTimeout)
	nav := &exitNavigator{done: make(chan string, 1)}
	page, err := voice.NewPage(sessionID, api, voice.PageOptions{
		NewTransport: func() voice.Transport {
			return voice.NewWSTransport(cfg.VoiceAgentURL, cfg.VoiceAPIKey)
		},
		Reports:       api,
		Notifier:      consoleNotifier{},
		Navigator:     nav,
		RedirectDelay: cfg.RedirectDelay,
	})
	if err != nil {
		log.Fatalf("usage: voice-agent -session <id>: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := page.Load(ctx); err != nil {
		log.Fatalf("failed to load session: %v", err)
	}
	detail := page.Detail()
	fmt.Printf("Session %s with %s\n", detail.SessionID, detail.SelectedDoctor.Specialist)

	if err := page.Start(ctx); err != nil {
		log.Fatalf("failed to start call: %v", err)
	}

	ticker := time.NewTicker(*refresh)
	defer ticker.Stop()
	var last string
	active := true
	for active {
		select {
		case <-ctx.Done():
			if err := page.End(context.Background()); err != nil {
				logging.Warnw("end call", "err", err)
			}
			active = false
		case <-ticker.C:
			v := page.View()
			line := render(v)
			if line != last {
				fmt.Println(line)
				last = line
			}
			snap := page.Controller().Snapshot()
			if snap.State == voice.StateIdle && !snap.Loading {
				active = false
			}
		}
	}

	page.Wait()
	if !page.Controller().Snapshot().Redirecting {
		return
	}
	select {
	case path := <-nav.done:
		logging.Infow("navigating", "path", path)
		fmt.Printf("Report ready. Continue at %s%s\n", cfg.APIBaseURL, path)
	case <-time.After(cfg.RedirectDelay + time.Second):
	}
}

func render(v voice.PageView) string {
	s := fmt.Sprintf("[%s] %s | %s", v.Status, v.Specialist, v.Button)
	if v.ButtonDisabled {
		s += " (busy)"
	}
	for _, u := range v.Recent {
		s += fmt.Sprintf("\n  %s: %s", u.Role, u.Text)
	}
	if v.LiveLine != "" {
		s += "\n  " + v.LiveLine
	}
	return s
}
