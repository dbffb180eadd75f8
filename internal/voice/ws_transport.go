package voice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"medical-voice-agent/internal/logging"
	"medical-voice-agent/pkg"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// wsFrame is the JSON frame exchanged with the voice agent over the
// websocket, in both directions.
type wsFrame struct {
	Type           string      `json:"type"`
	Assistant      *CallConfig `json:"assistant,omitempty"`
	Role           string      `json:"role,omitempty"`
	TranscriptType string      `json:"transcriptType,omitempty"`
	Transcript     string      `json:"transcript,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// WSTransport connects to a hosted voice agent over a websocket.  Audio is
// handled by the agent platform; the socket carries the call control and
// transcript events only.
type WSTransport struct {
	URL    string
	APIKey string
	Dialer *websocket.Dialer

	mu       sync.Mutex
	handlers map[EventType][]Handler
	conn     *websocket.Conn
	stopped  bool

	writeMu sync.Mutex
	done    chan struct{}
	endOnce sync.Once
}

// NewWSTransport returns a transport for the agent at url.
func NewWSTransport(url, apiKey string) *WSTransport {
	return &WSTransport{URL: url, APIKey: apiKey, Dialer: websocket.DefaultDialer}
}

// On registers h for ev.
func (t *WSTransport) On(ev EventType, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handlers == nil {
		t.handlers = make(map[EventType][]Handler)
	}
	t.handlers[ev] = append(t.handlers[ev], h)
}

// RemoveAllListeners drops every handler registered for ev.
func (t *WSTransport) RemoveAllListeners(ev EventType) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, ev)
	return nil
}

func (t *WSTransport) emit(ev Event) {
	t.mu.Lock()
	hs := append([]Handler(nil), t.handlers[ev.Type]...)
	t.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

// Start dials the agent and sends the assistant configuration.  Events
// are delivered from a reader goroutine until the call ends.
func (t *WSTransport) Start(ctx context.Context, cfg CallConfig) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return errors.New("voice: transport already started")
	}
	t.mu.Unlock()

	header := http.Header{}
	if t.APIKey != "" {
		header.Set("Authorization", "Bearer "+t.APIKey)
	}
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, t.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial voice agent: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial voice agent: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.done = make(chan struct{})
	t.mu.Unlock()

	if err := t.write(wsFrame{Type: "start", Assistant: &cfg}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send start: %w", err)
	}
	go t.readLoop(conn)
	return nil
}

func (t *WSTransport) write(f wsFrame) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotStarted
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	defer conn.SetWriteDeadline(time.Time{})
	return conn.WriteJSON(f)
}

func (t *WSTransport) readLoop(conn *websocket.Conn) {
	defer close(t.done)
	reason := "connection-closed"
	remote := true
	for {
		var f wsFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.mu.Lock()
			stopped := t.stopped
			t.mu.Unlock()
			if stopped {
				remote = false
				reason = "local-stop"
			} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.emit(Event{Type: EventError, Err: err})
				reason = "connection-lost"
			}
			break
		}
		if f.Type == "call-end" {
			if f.Reason != "" {
				reason = f.Reason
			}
			break
		}
		t.dispatch(f)
	}
	if remote {
		_ = conn.Close()
	}
	t.endOnce.Do(func() {
		t.emit(Event{Type: EventCallEnd, Reason: reason})
	})
}

func (t *WSTransport) dispatch(f wsFrame) {
	switch f.Type {
	case "call-start":
		t.emit(Event{Type: EventCallStart})
	case "transcript":
		t.emit(Event{
			Type:           EventMessage,
			Role:           pkg.Role(f.Role),
			TranscriptType: TranscriptType(f.TranscriptType),
			Transcript:     f.Transcript,
		})
	case "speech-start":
		t.emit(Event{Type: EventSpeechStart})
	case "speech-end":
		t.emit(Event{Type: EventSpeechEnd})
	case "error":
		t.emit(Event{Type: EventError, Err: errors.New(f.Error)})
	default:
		logging.Debugw("voice: ignoring transport frame", "type", f.Type)
	}
}

// Stop asks the agent to hang up and closes the socket.  The call-end
// event still fires once the reader exits.
func (t *WSTransport) Stop() error {
	t.mu.Lock()
	conn := t.conn
	if conn == nil {
		t.mu.Unlock()
		return ErrNotStarted
	}
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	done := t.done
	t.mu.Unlock()

	if err := t.write(wsFrame{Type: "stop"}); err != nil {
		logging.Debugw("voice: stop frame not sent", "err", err)
	}
	t.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteTimeout))
	t.writeMu.Unlock()

	select {
	case <-done:
	case <-time.After(wsWriteTimeout):
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
