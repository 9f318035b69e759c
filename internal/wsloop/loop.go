// Package wsloop runs the persistent event stream connection: it reads
// frames serially, hands each one to the event handler, and keeps the
// connection alive with a heartbeat timer. Transport framing is behind the
// Conn interface so the loop itself carries no websocket dependency.
package wsloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Infomaniak/err-backend-kchat/internal/logger"
)

// Conn is the minimal connection surface the loop needs. The production
// implementation wraps a gorilla websocket connection.
type Conn interface {
	// ReadMessage blocks until the next frame arrives
	ReadMessage() ([]byte, error)
	// Ping sends a keep-alive probe
	Ping() error
	Close() error
}

// ErrStopped is returned by Run after a cooperative Stop
var ErrStopped = errors.New("event loop stopped")

// Loop delivers frames from one connection to one handler, one at a time
// in arrival order. Handlers may block on network calls; the loop simply
// waits, it never processes two frames concurrently.
type Loop struct {
	conn      Conn
	handler   func([]byte)
	heartbeat time.Duration

	stopOnce sync.Once
	stopped  chan struct{}
}

// New builds a loop over an established connection. heartbeat is the
// keep-alive interval; zero or negative disables the timer.
func New(conn Conn, heartbeat time.Duration, handler func([]byte)) *Loop {
	return &Loop{
		conn:      conn,
		handler:   handler,
		heartbeat: heartbeat,
		stopped:   make(chan struct{}),
	}
}

// Run blocks until the connection fails, the context is cancelled or Stop
// is called. Cooperative exits return nil, read failures return the error.
// The connection is closed on every exit path.
func (l *Loop) Run(ctx context.Context) error {
	// Stop rather than a bare close: the reader goroutine may be blocked
	// sending a frame and only the stopped channel releases it
	defer l.Stop()

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			payload, err := l.conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- payload:
			case <-l.stopped:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var ping <-chan time.Time
	if l.heartbeat > 0 {
		ticker := time.NewTicker(l.heartbeat)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case payload := <-frames:
			l.handler(payload)
		case <-ping:
			if err := l.conn.Ping(); err != nil {
				logger.WithError(err).Error("websocket-heartbeat-failed")
				return err
			}
		case err := <-readErr:
			select {
			case <-l.stopped:
				// Read error caused by our own close, not a failure
				return nil
			default:
			}
			return err
		case <-l.stopped:
			return nil
		case <-ctx.Done():
			logger.Debug("event loop context cancelled")
			return nil
		}
	}
}

// Stop asks Run to exit; safe to call from any goroutine and more than
// once. Closing the connection unblocks a pending read.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopped)
		l.conn.Close()
	})
}
