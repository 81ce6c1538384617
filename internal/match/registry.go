// Package match holds the room table and the per-room turn state machine.
package match

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/pkg/relaydto"
	"go.uber.org/zap"
)

const (
	codeLen      = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAttempts = 5

	releaseTimeout = 2 * time.Second
)

// Publisher is the topic capability the match layer needs. topic.Bus satisfies it.
type Publisher interface {
	Subscribe(topic, id string)
	Unsubscribe(topic, id string)
	Publish(ctx context.Context, topic string, ev relaydto.Event, except string)
}

// Registry owns every live room. Lock order is always Registry.mu then Room.mu.
type Registry struct {
	pub Publisher

	mu        sync.RWMutex
	rooms     map[string]*Room
	bySession map[string][]string // session id -> room codes in join order

	now     func() time.Time
	newCode func() (string, error)
	codes   CodeReserver
}

func NewRegistry(pub Publisher) *Registry {
	return &Registry{
		pub:       pub,
		rooms:     make(map[string]*Room),
		bySession: make(map[string][]string),
		now:       time.Now,
		newCode:   codeGen,
	}
}

// UseCodeReserver makes CreateRoom claim each code in cr before handing it out, so
// relays sharing cr never issue the same live code. Call before serving.
func (r *Registry) UseCodeReserver(cr CodeReserver) {
	r.codes = cr
}

// codeGen returns 6 upper alnum characters.
func codeGen() (string, error) {
	b := make([]byte, codeLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

// CreateRoom opens a new room with sessionID seated in slot 1.
func (r *Registry) CreateRoom(ctx context.Context, sessionID string) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		c, err := r.newCode()
		if err != nil {
			return "", err
		}
		r.mu.RLock()
		_, taken := r.rooms[c]
		r.mu.RUnlock()
		if taken {
			continue
		}
		if r.codes != nil {
			ok, err := r.codes.Reserve(ctx, c)
			if err != nil {
				obslog.L().Error("room_create_error", zap.String("session_id", sessionID), zap.Error(err))
				return "", err
			}
			if !ok {
				continue
			}
		}

		r.mu.Lock()
		if _, taken := r.rooms[c]; taken {
			r.mu.Unlock()
			continue
		}
		room := newRoom(c, r.now())
		room.players[sessionID] = First
		r.rooms[c] = room
		r.bySession[sessionID] = append(r.bySession[sessionID], c)
		r.pub.Subscribe(c, sessionID)
		r.mu.Unlock()

		obslog.L().Info("room_create", zap.String("code", c), zap.String("session_id", sessionID))
		return c, nil
	}
	obslog.L().Error("room_create_error", zap.String("session_id", sessionID), zap.Error(ErrCodeExhausted))
	return "", ErrCodeExhausted
}

// JoinRoom seats sessionID in the lowest free slot. A session that is already seated
// gets its slot back.
func (r *Registry) JoinRoom(ctx context.Context, code, sessionID string) (Slot, error) {
	r.mu.Lock()
	room, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return NoSlot, ErrNoRoom
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if s, seated := room.players[sessionID]; seated {
		r.mu.Unlock()
		return s, nil
	}
	slot := room.freeSlotLocked()
	if slot == NoSlot {
		r.mu.Unlock()
		return NoSlot, ErrRoomFull
	}
	room.players[sessionID] = slot
	r.bySession[sessionID] = append(r.bySession[sessionID], code)
	r.mu.Unlock()

	r.pub.Subscribe(code, sessionID)
	r.pub.Publish(ctx, code, relaydto.Event{
		Name: relaydto.EventPeerJoined,
		Data: relaydto.PeerPayload{ID: sessionID, PlayerNumber: int(slot)},
	}, sessionID)
	obslog.L().Info("room_join", zap.String("code", code), zap.String("session_id", sessionID), zap.Int("slot", int(slot)))
	return slot, nil
}

// RemoveSession drops sessionID from every room it sits in and deletes rooms left
// empty. Removing an unknown session is a no-op.
func (r *Registry) RemoveSession(ctx context.Context, sessionID string) {
	r.mu.Lock()
	codes := r.bySession[sessionID]
	delete(r.bySession, sessionID)
	left := make([]string, 0, len(codes))
	var deleted []string
	for _, code := range codes {
		room, ok := r.rooms[code]
		if !ok {
			continue
		}
		room.mu.Lock()
		delete(room.players, sessionID)
		delete(room.ready, sessionID)
		if len(room.players) == 0 {
			room.closed = true
			delete(r.rooms, code)
			deleted = append(deleted, code)
			obslog.L().Info("room_delete", zap.String("code", code))
		}
		room.mu.Unlock()
		left = append(left, code)
	}
	r.mu.Unlock()

	for _, code := range left {
		r.pub.Unsubscribe(code, sessionID)
		r.pub.Publish(ctx, code, relaydto.Event{
			Name: relaydto.EventPeerLeft,
			Data: relaydto.PeerPayload{ID: sessionID},
		}, sessionID)
		obslog.L().Info("room_leave", zap.String("code", code), zap.String("session_id", sessionID))
	}
	r.releaseCodes(ctx, deleted)
}

// releaseCodes frees deleted codes in the shared reserver, ignoring cancellation of ctx.
func (r *Registry) releaseCodes(ctx context.Context, codes []string) {
	if r.codes == nil || len(codes) == 0 {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	for _, code := range codes {
		if err := r.codes.Release(rctx, code); err != nil {
			obslog.L().Warn("room_code_release_error", zap.String("code", code), zap.Error(err))
		}
	}
}

// Lookup returns the live room for code.
func (r *Registry) Lookup(code string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

// RoomsOf returns the codes of the rooms seating sessionID, in join order.
func (r *Registry) RoomsOf(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.bySession[sessionID]...)
}

// SessionForSlot resolves the session currently seated in slot of room code.
func (r *Registry) SessionForSlot(code string, slot Slot) (string, bool) {
	room, ok := r.Lookup(code)
	if !ok {
		return "", false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.sessionForSlotLocked(slot)
}

// Stats is a live room and seated session count.
type Stats struct {
	Rooms    int `json:"rooms"`
	Sessions int `json:"sessions"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Rooms: len(r.rooms), Sessions: len(r.bySession)}
}
