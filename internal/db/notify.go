package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"medical-voice-agent/internal/logging"

	"github.com/lib/pq"
)

// Notifier wraps PostgreSQL LISTEN/NOTIFY.  The server notifies the channel
// with a session id each time a report is saved, and the dashboard stream
// listens for those ids.
type Notifier struct {
	DB      *sql.DB
	DSN     string
	Channel string
}

// NewNotifier constructs a new Notifier.  dsn is needed for Listen because
// pq listeners hold their own connection.
func NewNotifier(db *sql.DB, dsn, channel string) *Notifier {
	return &Notifier{DB: db, DSN: dsn, Channel: channel}
}

// Notify sends sessionID as the payload on the configured channel.
func (n *Notifier) Notify(ctx context.Context, sessionID string) error {
	_, err := n.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.Channel, sessionID)
	return err
}

// Listen subscribes to the channel and yields session ids until ctx is
// cancelled, at which point the returned channel is closed.
func (n *Notifier) Listen(ctx context.Context) (<-chan string, error) {
	l := pq.NewListener(n.DSN, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logging.Warnw("notifier: listener event", "event", ev, "err", err)
		}
	})
	if err := l.Listen(n.Channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("listen %q: %w", n.Channel, err)
	}
	ch := make(chan string)
	go func() {
		defer func() {
			_ = l.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-l.Notify:
				// nil after a reconnect; notifications sent meanwhile are lost
				if note == nil {
					continue
				}
				select {
				case ch <- note.Extra:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				if err := l.Ping(); err != nil {
					logging.Warnw("notifier: ping failed", "err", err)
				}
			}
		}
	}()
	return ch, nil
}
