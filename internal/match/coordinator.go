package match

import (
	"context"

	"github.com/park285/chess-relay/internal/coord"
	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/pkg/relaydto"
	"go.uber.org/zap"
)

const (
	capturedKing      = "king"
	reasonKingCapture = "king-captured"
)

// GameOverHook is called once per finished game, after the room lock is released.
type GameOverHook func(ctx context.Context, res relaydto.GameResult)

// Coordinator runs readiness gating and move submission for rooms in a Registry.
type Coordinator struct {
	reg        *Registry
	pub        Publisher
	onGameOver GameOverHook
}

func NewCoordinator(reg *Registry) *Coordinator {
	return &Coordinator{reg: reg, pub: reg.pub}
}

// OnGameOver installs h. Call before serving traffic.
func (c *Coordinator) OnGameOver(h GameOverHook) { c.onGameOver = h }

// lockRoom resolves code and returns the room locked. A room deleted between lookup
// and lock counts as unknown.
func (c *Coordinator) lockRoom(code string) (*Room, error) {
	room, ok := c.reg.Lookup(code)
	if !ok {
		return nil, ErrNoRoom
	}
	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return nil, ErrNoRoom
	}
	return room, nil
}

// MarkReady records that sessionID finished loading. The match starts once at least
// two players are seated and all of them are ready.
func (c *Coordinator) MarkReady(ctx context.Context, code, sessionID string) error {
	room, err := c.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	if room.started {
		return ErrAlreadyStarted
	}
	room.ready[sessionID] = struct{}{}
	c.pub.Publish(ctx, code, relaydto.Event{Name: relaydto.EventPeerReady, Data: relaydto.PeerPayload{ID: sessionID}}, sessionID)

	if !room.allReadyLocked() {
		return nil
	}
	room.started = true
	room.movedPieces = make(map[string]struct{})
	room.turn = First
	room.startedAt = c.reg.now()
	room.moves = 0
	c.pub.Publish(ctx, code, relaydto.Event{Name: relaydto.EventStartGame, Data: relaydto.StartPayload{Code: code}}, "")
	c.pub.Publish(ctx, code, relaydto.Event{Name: relaydto.EventTurn, Data: relaydto.Turn(int(First))}, "")
	obslog.L().Info("match_start", zap.String("code", code), zap.Int("players", len(room.players)))
	return nil
}

// AdvanceTurn toggles the turn without any validation.
func (c *Coordinator) AdvanceTurn(ctx context.Context, code string) (Slot, error) {
	room, err := c.lockRoom(code)
	if err != nil {
		return NoSlot, err
	}
	defer room.mu.Unlock()
	room.turn = room.turn.advance()
	c.pub.Publish(ctx, code, relaydto.Event{Name: relaydto.EventTurn, Data: relaydto.Turn(int(room.turn))}, "")
	obslog.L().Debug("match_advance_turn", zap.String("code", code), zap.Int("turn", int(room.turn)))
	return room.turn, nil
}

// MoveResult is the outcome of an accepted move: either the next turn or game over.
type MoveResult struct {
	Turn     Slot
	GameOver bool
}

// SubmitMove runs a move claim through the room's state machine. Nothing is published
// for a rejected claim.
func (c *Coordinator) SubmitMove(ctx context.Context, code, sessionID string, mv *relaydto.Move) (MoveResult, error) {
	room, err := c.lockRoom(code)
	if err != nil {
		return MoveResult{}, err
	}
	res, result, err := c.submitLocked(ctx, room, sessionID, mv)
	room.mu.Unlock()
	if err != nil {
		return MoveResult{}, err
	}
	if result != nil && c.onGameOver != nil {
		c.onGameOver(ctx, *result)
	}
	return res, nil
}

func (c *Coordinator) submitLocked(ctx context.Context, room *Room, sessionID string, mv *relaydto.Move) (MoveResult, *relaydto.GameResult, error) {
	slot, ok := room.players[sessionID]
	if !ok {
		return MoveResult{}, nil, ErrNotInRoom
	}
	if !room.started {
		return MoveResult{}, nil, ErrNotStarted
	}
	if room.turn != slot {
		return MoveResult{}, nil, &TurnError{CurrentTurn: room.turn}
	}
	if !mv.WellFormed() {
		return MoveResult{}, nil, ErrInvalidMove
	}
	if err := validateLocked(room, mv); err != nil {
		return MoveResult{}, nil, err
	}

	code := room.Code
	room.moves++
	c.pub.Publish(ctx, code, relaydto.Event{Name: relaydto.EventMove, Data: relaydto.MovePayload{By: int(slot), Move: *mv}}, "")

	if mv.CapturedKind() == capturedKing {
		return MoveResult{GameOver: true}, c.endLocked(ctx, room, sessionID, slot, mv), nil
	}

	room.turn = room.turn.advance()
	if mv.HasID() {
		room.movedPieces[mv.ID] = struct{}{}
	}
	c.pub.Publish(ctx, code, relaydto.Event{Name: relaydto.EventTurn, Data: relaydto.Turn(int(room.turn))}, "")
	obslog.L().Info("match_move",
		zap.String("code", code),
		zap.String("session_id", sessionID),
		zap.Int("by", int(slot)),
		zap.String("piece_id", mv.ID),
		zap.String("piece_type", mv.Type),
		zap.String("uci", coord.UCI(mv.From, mv.To)),
		zap.Int("next_turn", int(room.turn)),
	)
	return MoveResult{Turn: room.turn}, nil, nil
}

// endLocked finishes the game in favour of slot. Either seat may already be empty,
// so session ids are resolved from the current seating.
func (c *Coordinator) endLocked(ctx context.Context, room *Room, sessionID string, winner Slot, mv *relaydto.Move) *relaydto.GameResult {
	loser := winner.Other()
	winnerID, ok := room.sessionForSlotLocked(winner)
	if !ok {
		winnerID = sessionID
	}
	var loserID *string
	if id, ok := room.sessionForSlotLocked(loser); ok {
		loserID = &id
	}

	endedAt := c.reg.now()
	room.started = false
	room.turn = NoSlot
	room.movedPieces = make(map[string]struct{})
	// 재대국은 양쪽 모두 다시 ready 해야 시작
	room.ready = make(map[string]struct{}, 2)

	code := room.Code
	c.pub.Publish(ctx, code, relaydto.Event{Name: relaydto.EventGameOver, Data: relaydto.GameOverPayload{
		WinnerPlayerNumber: int(winner),
		LoserPlayerNumber:  int(loser),
		WinnerSocketID:     winnerID,
		LoserSocketID:      loserID,
		Reason:             reasonKingCapture,
		Move:               *mv,
	}}, "")
	c.pub.Publish(ctx, code, relaydto.Event{Name: relaydto.EventTurn, Data: relaydto.TurnGameOver()}, "")

	res := &relaydto.GameResult{
		Code:               code,
		WinnerPlayerNumber: int(winner),
		LoserPlayerNumber:  int(loser),
		WinnerSessionID:    winnerID,
		Reason:             reasonKingCapture,
		Move:               *mv,
		StartedAt:          room.startedAt,
		EndedAt:            endedAt,
		MoveCount:          room.moves,
	}
	if loserID != nil {
		res.LoserSessionID = *loserID
	}
	obslog.L().Info("match_game_over",
		zap.String("code", code),
		zap.Int("winner", int(winner)),
		zap.String("winner_session_id", winnerID),
		zap.String("uci", coord.UCI(mv.From, mv.To)),
		zap.Int("moves", room.moves),
		zap.Duration("duration", endedAt.Sub(room.startedAt)),
	)
	return res
}

// Seat is where a session sits, with the room's current turn (NoSlot when unset).
type Seat struct {
	Code string
	Slot Slot
	Turn Slot
}

// PlayerNumber finds the first room, in join order, that seats sessionID.
func (c *Coordinator) PlayerNumber(ctx context.Context, sessionID string) (Seat, error) {
	for _, code := range c.reg.RoomsOf(sessionID) {
		room, err := c.lockRoom(code)
		if err != nil {
			continue
		}
		slot, ok := room.players[sessionID]
		turn := room.turn
		room.mu.Unlock()
		if ok {
			return Seat{Code: code, Slot: slot, Turn: turn}, nil
		}
	}
	return Seat{}, ErrNotInRoom
}
