package match

import (
	"sort"
	"sync"
	"time"
)

// Slot is a seat number inside a room. NoSlot stands for "absent".
type Slot int

const (
	NoSlot Slot = 0
	First  Slot = 1
	Second Slot = 2
)

// Other returns the opposing seat.
func (s Slot) Other() Slot {
	if s == First {
		return Second
	}
	return First
}

// advance is the two-player turn toggle. An unset turn is taken as First before
// toggling, so it lands on Second.
func (s Slot) advance() Slot {
	if s == NoSlot {
		s = First
	}
	return s.Other()
}

// Room is one match. Every field below mu is guarded by it.
type Room struct {
	Code      string
	CreatedAt time.Time

	mu          sync.Mutex
	players     map[string]Slot
	ready       map[string]struct{}
	started     bool
	turn        Slot
	movedPieces map[string]struct{}
	closed      bool

	startedAt time.Time
	moves     int
}

func newRoom(code string, now time.Time) *Room {
	return &Room{
		Code:        code,
		CreatedAt:   now,
		players:     make(map[string]Slot, 2),
		ready:       make(map[string]struct{}, 2),
		movedPieces: make(map[string]struct{}),
	}
}

// RoomState is a point-in-time copy of a room.
type RoomState struct {
	Code        string
	Players     map[string]Slot
	Ready       []string
	Started     bool
	Turn        Slot
	MovedPieces []string
}

func (r *Room) Snapshot() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := RoomState{
		Code:    r.Code,
		Players: make(map[string]Slot, len(r.players)),
		Started: r.started,
		Turn:    r.turn,
	}
	for id, s := range r.players {
		st.Players[id] = s
	}
	for id := range r.ready {
		st.Ready = append(st.Ready, id)
	}
	for id := range r.movedPieces {
		st.MovedPieces = append(st.MovedPieces, id)
	}
	sort.Strings(st.Ready)
	sort.Strings(st.MovedPieces)
	return st
}

func (r *Room) sessionForSlotLocked(slot Slot) (string, bool) {
	for id, s := range r.players {
		if s == slot {
			return id, true
		}
	}
	return "", false
}

// freeSlotLocked returns the lowest unoccupied seat, or NoSlot when both are taken.
func (r *Room) freeSlotLocked() Slot {
	taken := map[Slot]bool{}
	for _, s := range r.players {
		taken[s] = true
	}
	for _, s := range []Slot{First, Second} {
		if !taken[s] {
			return s
		}
	}
	return NoSlot
}

func (r *Room) allReadyLocked() bool {
	if len(r.players) < 2 {
		return false
	}
	for id := range r.players {
		if _, ok := r.ready[id]; !ok {
			return false
		}
	}
	return true
}
