// Package relay binds websocket sessions to rooms and turns client requests into
// registry and coordinator calls.
package relay

import (
	"context"
	"errors"

	"github.com/park285/chess-relay/internal/match"
	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/topic"
	"github.com/park285/chess-relay/pkg/relaydto"
	"go.uber.org/zap"
)

const statusRoomCreated = "room-created"

type Handler struct {
	reg      *match.Registry
	coord    *match.Coordinator
	bus      topic.Bus
	debugOps bool
}

func NewHandler(reg *match.Registry, coord *match.Coordinator, bus topic.Bus, debugOps bool) *Handler {
	return &Handler{reg: reg, coord: coord, bus: bus, debugOps: debugOps}
}

// Handle runs one client request to completion and acks the result.
func (h *Handler) Handle(ctx context.Context, s *Session, req relaydto.Request) {
	if !s.allow() {
		s.reply(req.Ack, relaydto.Fail(string(match.ErrRateLimited)))
		return
	}
	switch req.Event {
	case relaydto.EventCreate:
		h.create(ctx, s, req)
	case relaydto.EventJoin:
		h.join(ctx, s, req)
	case relaydto.EventReady:
		h.ready(ctx, s, req)
	case relaydto.EventWhoami:
		h.whoami(ctx, s, req)
	case relaydto.EventPlayerMove:
		h.playerMove(ctx, s, req)
	case relaydto.EventAdvanceTurn:
		h.advanceTurn(ctx, s, req)
	default:
		obslog.L().Debug("relay_unknown_event", zap.String("session_id", s.id), zap.String("event", req.Event))
		s.reply(req.Ack, relaydto.Fail(string(match.ErrUnknownEvent)))
	}
}

// Disconnect releases every seat the session holds. Safe to call twice.
func (h *Handler) Disconnect(ctx context.Context, s *Session) {
	h.reg.RemoveSession(ctx, s.id)
	h.bus.Detach(s.id)
	s.close()
}

func (h *Handler) direct(ctx context.Context, s *Session, name string, data any) {
	h.bus.Publish(ctx, s.id, relaydto.Event{Name: name, Data: data}, "")
}

func (h *Handler) currentTurn(code string) match.Slot {
	room, ok := h.reg.Lookup(code)
	if !ok {
		return match.NoSlot
	}
	return room.Snapshot().Turn
}

func (h *Handler) create(ctx context.Context, s *Session, req relaydto.Request) {
	code, err := h.reg.CreateRoom(ctx, s.id)
	if err != nil {
		s.reply(req.Ack, relaydto.Fail(match.Code(err)))
		return
	}
	h.direct(ctx, s, relaydto.EventPlayerNumber, int(match.First))
	if turn := h.currentTurn(code); turn != match.NoSlot {
		h.direct(ctx, s, relaydto.EventTurn, relaydto.Turn(int(turn)))
	}
	s.reply(req.Ack, relaydto.Ack{OK: true, Code: code})
	h.direct(ctx, s, relaydto.EventStatus, statusRoomCreated)
}

func (h *Handler) join(ctx context.Context, s *Session, req relaydto.Request) {
	slot, err := h.reg.JoinRoom(ctx, req.Code, s.id)
	if err != nil {
		s.reply(req.Ack, relaydto.Fail(match.Code(err)))
		return
	}
	s.reply(req.Ack, relaydto.Ack{OK: true, PlayerNumber: int(slot)})
	h.direct(ctx, s, relaydto.EventPlayerNumber, int(slot))

	room, ok := h.reg.Lookup(req.Code)
	if !ok {
		return
	}
	st := room.Snapshot()
	if st.Turn != match.NoSlot {
		h.direct(ctx, s, relaydto.EventTurn, relaydto.Turn(int(st.Turn)))
	}
	// 다른 플레이어에게 각자의 번호를 다시 알려줌
	for id, n := range st.Players {
		if id == s.id {
			continue
		}
		h.bus.Publish(ctx, id, relaydto.Event{Name: relaydto.EventPlayerNumber, Data: int(n)}, "")
	}
}

func (h *Handler) ready(ctx context.Context, s *Session, req relaydto.Request) {
	if err := h.coord.MarkReady(ctx, req.Code, s.id); err != nil {
		s.reply(req.Ack, relaydto.Fail(match.Code(err)))
		return
	}
	s.reply(req.Ack, relaydto.Ack{OK: true})
}

func (h *Handler) whoami(ctx context.Context, s *Session, req relaydto.Request) {
	seat, err := h.coord.PlayerNumber(ctx, s.id)
	if err != nil {
		s.reply(req.Ack, relaydto.Fail(match.Code(err)))
		return
	}
	s.reply(req.Ack, relaydto.Ack{OK: true, PlayerNumber: int(seat.Slot)})
	h.direct(ctx, s, relaydto.EventPlayerNumber, int(seat.Slot))
	if seat.Turn != match.NoSlot {
		h.direct(ctx, s, relaydto.EventTurn, relaydto.Turn(int(seat.Turn)))
	}
}

func (h *Handler) playerMove(ctx context.Context, s *Session, req relaydto.Request) {
	res, err := h.coord.SubmitMove(ctx, req.Code, s.id, req.Move)
	if err != nil {
		ack := relaydto.Fail(match.Code(err))
		var te *match.TurnError
		if errors.As(err, &te) {
			cur := int(te.CurrentTurn)
			ack.CurrentTurn = &cur
		}
		s.reply(req.Ack, ack)
		return
	}
	if res.GameOver {
		s.reply(req.Ack, relaydto.Ack{OK: true, GameOver: true})
		return
	}
	s.reply(req.Ack, relaydto.Ack{OK: true, Turn: int(res.Turn)})
}

func (h *Handler) advanceTurn(ctx context.Context, s *Session, req relaydto.Request) {
	if !h.debugOps {
		s.reply(req.Ack, relaydto.Fail(string(match.ErrDisabled)))
		return
	}
	turn, err := h.coord.AdvanceTurn(ctx, req.Code)
	if err != nil {
		s.reply(req.Ack, relaydto.Fail(match.Code(err)))
		return
	}
	s.reply(req.Ack, relaydto.Ack{OK: true, Turn: int(turn)})
}
