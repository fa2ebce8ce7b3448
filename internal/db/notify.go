package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Notifier wraps the LISTEN/NOTIFY mechanism in PostgreSQL. The server
// notifies the thread ID whenever a recommendation is stored, and the
// stream endpoint listens for them.
type Notifier struct {
	DB      *sql.DB
	DSN     string
	Channel string
	logger  *zap.Logger
}

// NewNotifier constructs a new Notifier. dsn is used to open the dedicated
// listener connection.
func NewNotifier(db *sql.DB, dsn, channel string, logger *zap.Logger) *Notifier {
	return &Notifier{DB: db, DSN: dsn, Channel: channel, logger: logger}
}

// Notify sends threadID on the notifier channel.
func (n *Notifier) Notify(ctx context.Context, threadID string) error {
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, threadID)
	return err
}

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	listenerPingInterval = 90 * time.Second
)

// Listen subscribes to the notifier channel and yields payloads until ctx is
// cancelled, at which point the returned channel is closed.
func (n *Notifier) Listen(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(n.DSN, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				n.logger.Warn("notification listener event", zap.Int("event", int(ev)), zap.Error(err))
			}
		})
	if err := listener.Listen(n.Channel); err != nil {
		_ = listener.Close()
		return nil, err
	}

	ch := make(chan string)
	go func() {
		defer close(ch)
		defer listener.Close()
		ticker := time.NewTicker(listenerPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-listener.Notify:
				// nil after a reconnect; notifications may have been lost.
				if note == nil {
					continue
				}
				select {
				case ch <- note.Extra:
				case <-ctx.Done():
					return
				}
			case <-ticker.C:
				if err := listener.Ping(); err != nil {
					n.logger.Warn("notification listener ping failed", zap.Error(err))
				}
			}
		}
	}()
	return ch, nil
}
