package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-relay/internal/match"
	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/topic"
	"github.com/park285/chess-relay/pkg/relaydto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

type Options struct {
	AllowedOrigins []string
	SendQueue      int
	EventRate      float64
	EventBurst     int
	PingInterval   time.Duration
	DebugOps       bool
}

func (o Options) withDefaults() Options {
	if o.SendQueue <= 0 {
		o.SendQueue = 64
	}
	if o.EventRate <= 0 {
		o.EventRate = 20
	}
	if o.EventBurst <= 0 {
		o.EventBurst = 40
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	return o
}

// Server accepts websocket sessions and serves the health endpoint.
type Server struct {
	h    *Handler
	reg  *match.Registry
	bus  topic.Bus
	opts Options

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func NewServer(reg *match.Registry, coord *match.Coordinator, bus topic.Bus, opts Options) *Server {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		h:       NewHandler(reg, coord, bus, opts.DebugOps),
		reg:     reg,
		bus:     bus,
		opts:    opts,
		baseCtx: ctx,
		stop:    cancel,
	}
}

// Routes mounts /ws, /healthz and, when staticDir is set, a file server on /.
func (s *Server) Routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	mux.HandleFunc("/healthz", s.healthz)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	st := s.reg.Stats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		OK bool `json:"ok"`
		match.Stats
	}{OK: true, Stats: st})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.opts.AllowedOrigins})
	if err != nil {
		obslog.L().Warn("relay_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	sess := newSession(uuid.NewString(), conn, s.opts.SendQueue, rate.NewLimiter(rate.Limit(s.opts.EventRate), s.opts.EventBurst))
	ctx, cancel := context.WithCancel(s.baseCtx)
	sess.abort = cancel
	s.bus.Attach(sess.id, sess)
	obslog.L().Info("relay_session_open", zap.String("session_id", sess.id), zap.String("remote", r.RemoteAddr))

	var loops sync.WaitGroup
	loops.Add(2)
	go func() { defer loops.Done(); sess.writeLoop(ctx, cancel) }()
	go func() { defer loops.Done(); sess.pingLoop(ctx, cancel, s.opts.PingInterval) }()

	err = s.readLoop(ctx, sess)

	cancel()
	s.h.Disconnect(context.Background(), sess)
	loops.Wait()
	if sess.overflowed.Load() {
		_ = conn.Close(websocket.StatusTryAgainLater, "send queue overflow")
	} else {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
	obslog.L().Info("relay_session_close", zap.String("session_id", sess.id), zap.String("reason", closeReason(err)))
}

func (s *Server) readLoop(ctx context.Context, sess *Session) error {
	for {
		typ, b, err := sess.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			obslog.L().Debug("relay_binary_frame_dropped", zap.String("session_id", sess.id))
			continue
		}
		var req relaydto.Request
		if err := json.Unmarshal(b, &req); err != nil {
			obslog.L().Warn("relay_bad_frame", zap.String("session_id", sess.id), zap.Int("bytes", len(b)), zap.Error(err))
			continue
		}
		s.h.Handle(ctx, sess, req)
	}
}

func closeReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "server"
	}
	if st := websocket.CloseStatus(err); st != -1 {
		return st.String()
	}
	return err.Error()
}

// Close disconnects every open session and waits for their cleanup.
func (s *Server) Close(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
