package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/pkg/relaydto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Session is one client connection. Outbound frames go through a bounded queue drained
// by a single writer, so publishers never block on a slow socket.
type Session struct {
	id      string
	conn    *websocket.Conn
	out     chan relaydto.Frame
	limiter *rate.Limiter

	closeOnce sync.Once
	done      chan struct{}

	// abort ends the connection; set by the server once the read context exists.
	abort      func()
	overflowed atomic.Bool
}

func newSession(id string, conn *websocket.Conn, queue int, limiter *rate.Limiter) *Session {
	return &Session{
		id:      id,
		conn:    conn,
		out:     make(chan relaydto.Frame, queue),
		limiter: limiter,
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Deliver implements topic.Sink.
func (s *Session) Deliver(ev relaydto.Event) {
	s.enqueue(relaydto.Frame{Event: ev.Name, Data: ev.Data})
}

// reply sends an ack. Requests without an ack id get none.
func (s *Session) reply(ack *int64, body relaydto.Ack) {
	if ack == nil {
		return
	}
	s.enqueue(relaydto.Frame{Event: relaydto.EventAck, Ack: ack, Data: body})
}

func (s *Session) enqueue(f relaydto.Frame) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.out <- f:
	default:
		// 큐 초과 시 프레임만 버리지 않고 세션을 끊음
		if s.overflowed.CompareAndSwap(false, true) {
			obslog.L().Warn("relay_queue_full", zap.String("session_id", s.id), zap.String("event", f.Event))
			s.close()
			if s.abort != nil {
				s.abort()
			}
		}
	}
}

func (s *Session) allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// writeLoop drains the queue until the session closes or a write fails.
func (s *Session) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case f := <-s.out:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, s.conn, f)
			wcancel()
			if err != nil {
				obslog.L().Debug("relay_write_error", zap.String("session_id", s.id), zap.Error(err))
				cancel()
				return
			}
		}
	}
}

// pingLoop closes the connection after two missed pongs in a row.
func (s *Session) pingLoop(ctx context.Context, cancel context.CancelFunc, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, 3*time.Second)
			err := s.conn.Ping(pctx)
			pcancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				obslog.L().Info("relay_ping_timeout", zap.String("session_id", s.id))
				_ = s.conn.Close(websocket.StatusGoingAway, "ping failure")
				cancel()
				return
			}
		}
	}
}
