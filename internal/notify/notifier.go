package notify

import (
	"context"
	"sync"
	"time"

	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/pkg/relaydto"
	"go.uber.org/zap"
)

// Poster is anything that can deliver a result. *Client is the production one.
type Poster interface {
	PostResult(ctx context.Context, res relaydto.GameResult) error
}

// Notifier queues results and posts them from a single background worker, so a slow
// webhook never holds up a room.
type Notifier struct {
	poster  Poster
	queue   chan relaydto.GameResult
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewNotifier(p Poster, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 32
	}
	n := &Notifier{
		poster:  p,
		queue:   make(chan relaydto.GameResult, buffer),
		timeout: 15 * time.Second,
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

// Enqueue hands res to the worker. It never blocks; results are dropped when the queue is full.
func (n *Notifier) Enqueue(_ context.Context, res relaydto.GameResult) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- res:
	default:
		obslog.L().Warn("notify_queue_full", zap.String("code", res.Code))
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for res := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err := n.poster.PostResult(ctx, res)
		cancel()
		if err != nil {
			obslog.L().Warn("notify_result_error", zap.String("code", res.Code), zap.Error(err))
			continue
		}
		obslog.L().Info("notify_result", zap.String("code", res.Code), zap.Int("winner", res.WinnerPlayerNumber))
	}
}

// Close stops accepting results and waits for the queue to drain.
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}
