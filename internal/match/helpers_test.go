package match

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/park285/chess-relay/internal/topic"
	"github.com/park285/chess-relay/pkg/relaydto"
)

type recorder struct {
	mu  sync.Mutex
	got []relaydto.Event
}

func (r *recorder) Deliver(ev relaydto.Event) {
	r.mu.Lock()
	r.got = append(r.got, ev)
	r.mu.Unlock()
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, ev := range r.got {
		out = append(out, ev.Name)
	}
	return out
}

func (r *recorder) last(name string) (relaydto.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.got) - 1; i >= 0; i-- {
		if r.got[i].Name == name {
			return r.got[i], true
		}
	}
	return relaydto.Event{}, false
}

func (r *recorder) count(name string) int {
	n := 0
	for _, s := range r.names() {
		if s == name {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.got = nil
	r.mu.Unlock()
}

type fixture struct {
	bus   *topic.LocalBus
	reg   *Registry
	coord *Coordinator
	sinks map[string]*recorder
}

func newFixture(t *testing.T, sessions ...string) *fixture {
	t.Helper()
	bus := topic.NewLocalBus()
	reg := NewRegistry(bus)
	f := &fixture{bus: bus, reg: reg, coord: NewCoordinator(reg), sinks: map[string]*recorder{}}
	for _, id := range sessions {
		f.sinks[id] = &recorder{}
		bus.Attach(id, f.sinks[id])
	}
	return f
}

// startedRoom creates a room for a, seats b, and readies both.
func (f *fixture) startedRoom(t *testing.T, a, b string) string {
	t.Helper()
	ctx := context.Background()
	code, err := f.reg.CreateRoom(ctx, a)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := f.reg.JoinRoom(ctx, code, b); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if err := f.coord.MarkReady(ctx, code, a); err != nil {
		t.Fatalf("MarkReady(a): %v", err)
	}
	if err := f.coord.MarkReady(ctx, code, b); err != nil {
		t.Fatalf("MarkReady(b): %v", err)
	}
	return code
}

func (f *fixture) state(t *testing.T, code string) RoomState {
	t.Helper()
	room, ok := f.reg.Lookup(code)
	if !ok {
		t.Fatalf("room %s not found", code)
	}
	return room.Snapshot()
}

func decodeMove(t *testing.T, raw string) *relaydto.Move {
	t.Helper()
	var mv relaydto.Move
	if err := json.Unmarshal([]byte(raw), &mv); err != nil {
		t.Fatalf("decode move %s: %v", raw, err)
	}
	return &mv
}

func wantCode(t *testing.T, err error, want Error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	if got := Code(err); got != string(want) {
		t.Fatalf("expected %s, got %s (%v)", want, got, err)
	}
}
