package match

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/park285/chess-relay/pkg/relaydto"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestCreateRoomSeatsCreatorInSlotOne(t *testing.T) {
	f := newFixture(t, "a")
	ctx := context.Background()

	code, err := f.reg.CreateRoom(ctx, "a")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if !codePattern.MatchString(code) {
		t.Fatalf("unexpected code %q", code)
	}
	st := f.state(t, code)
	if st.Players["a"] != First || len(st.Players) != 1 {
		t.Fatalf("creator seating: %+v", st.Players)
	}
	if st.Started || st.Turn != NoSlot || len(st.Ready) != 0 || len(st.MovedPieces) != 0 {
		t.Fatalf("fresh room state: %+v", st)
	}
	if s := f.reg.Stats(); s.Rooms != 1 || s.Sessions != 1 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestCreateRoomSkipsCodesInUse(t *testing.T) {
	f := newFixture(t)
	codes := []string{"AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB"}
	f.reg.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	ctx := context.Background()
	first, err := f.reg.CreateRoom(ctx, "a")
	if err != nil || first != "AAAAAA" {
		t.Fatalf("first CreateRoom: %q %v", first, err)
	}
	second, err := f.reg.CreateRoom(ctx, "b")
	if err != nil || second != "BBBBBB" {
		t.Fatalf("second CreateRoom: %q %v", second, err)
	}
}

func TestCreateRoomCodeExhausted(t *testing.T) {
	f := newFixture(t)
	f.reg.newCode = func() (string, error) { return "AAAAAA", nil }
	ctx := context.Background()
	if _, err := f.reg.CreateRoom(ctx, "a"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	_, err := f.reg.CreateRoom(ctx, "b")
	if !errors.Is(err, ErrCodeExhausted) {
		t.Fatalf("expected ErrCodeExhausted, got %v", err)
	}
	wantCode(t, err, ErrInternal)
}

func TestJoinAssignsSecondSlotThenFull(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	ctx := context.Background()
	code, _ := f.reg.CreateRoom(ctx, "a")

	slot, err := f.reg.JoinRoom(ctx, code, "b")
	if err != nil || slot != Second {
		t.Fatalf("JoinRoom(b): slot=%d err=%v", slot, err)
	}
	ev, ok := f.sinks["a"].last(relaydto.EventPeerJoined)
	if !ok {
		t.Fatalf("creator did not see peer-joined: %v", f.sinks["a"].names())
	}
	if p := ev.Data.(relaydto.PeerPayload); p.ID != "b" || p.PlayerNumber != 2 {
		t.Fatalf("peer-joined payload: %+v", p)
	}
	if f.sinks["b"].count(relaydto.EventPeerJoined) != 0 {
		t.Fatalf("joiner must not receive its own peer-joined")
	}

	_, err = f.reg.JoinRoom(ctx, code, "c")
	wantCode(t, err, ErrRoomFull)

	again, err := f.reg.JoinRoom(ctx, code, "b")
	if err != nil || again != Second {
		t.Fatalf("re-join: slot=%d err=%v", again, err)
	}
	if f.sinks["a"].count(relaydto.EventPeerJoined) != 1 {
		t.Fatalf("re-join must not announce again")
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	f := newFixture(t, "a")
	_, err := f.reg.JoinRoom(context.Background(), "ZZZZZZ", "a")
	wantCode(t, err, ErrNoRoom)
}

func TestJoinTakesLowestFreeSlot(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	ctx := context.Background()
	code, _ := f.reg.CreateRoom(ctx, "a")
	if _, err := f.reg.JoinRoom(ctx, code, "b"); err != nil {
		t.Fatalf("JoinRoom(b): %v", err)
	}
	f.reg.RemoveSession(ctx, "a")

	slot, err := f.reg.JoinRoom(ctx, code, "c")
	if err != nil || slot != First {
		t.Fatalf("expected freed slot 1, got %d (%v)", slot, err)
	}
}

func TestRemoveSessionDeletesEmptyRoom(t *testing.T) {
	f := newFixture(t, "a", "b")
	ctx := context.Background()
	code, _ := f.reg.CreateRoom(ctx, "a")
	if _, err := f.reg.JoinRoom(ctx, code, "b"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if err := f.coord.MarkReady(ctx, code, "b"); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}

	f.reg.RemoveSession(ctx, "b")
	ev, ok := f.sinks["a"].last(relaydto.EventPeerLeft)
	if !ok || ev.Data.(relaydto.PeerPayload).ID != "b" {
		t.Fatalf("expected peer-left for b, got %v", f.sinks["a"].names())
	}
	st := f.state(t, code)
	if len(st.Players) != 1 || len(st.Ready) != 0 {
		t.Fatalf("b not fully removed: %+v", st)
	}

	f.reg.RemoveSession(ctx, "a")
	if _, ok := f.reg.Lookup(code); ok {
		t.Fatalf("empty room should be deleted")
	}
	_, err := f.reg.JoinRoom(ctx, code, "b")
	wantCode(t, err, ErrNoRoom)

	f.reg.RemoveSession(ctx, "a")
	if s := f.reg.Stats(); s.Rooms != 0 || s.Sessions != 0 {
		t.Fatalf("stats after cleanup: %+v", s)
	}
}

func TestSessionForSlot(t *testing.T) {
	f := newFixture(t, "a", "b")
	ctx := context.Background()
	code, _ := f.reg.CreateRoom(ctx, "a")
	if id, ok := f.reg.SessionForSlot(code, Second); ok {
		t.Fatalf("slot 2 should be empty, got %q", id)
	}
	_, _ = f.reg.JoinRoom(ctx, code, "b")
	if id, ok := f.reg.SessionForSlot(code, Second); !ok || id != "b" {
		t.Fatalf("slot 2: %q %v", id, ok)
	}
	if _, ok := f.reg.SessionForSlot("NOPE00", First); ok {
		t.Fatalf("unknown room must resolve nothing")
	}
}
