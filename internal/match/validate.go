package match

import (
	"github.com/park285/chess-relay/internal/coord"
	"github.com/park285/chess-relay/pkg/relaydto"
)

const pieceTypePawn = "pawn"

// validateLocked applies the only legality rule the server enforces: a pawn id may make
// a two-rank advance only before it has moved. Every other claim is trusted.
func validateLocked(room *Room, mv *relaydto.Move) error {
	if mv.Type != pieceTypePawn || !mv.HasID() {
		return nil
	}
	delta, err := coord.RankDelta(mv.From, mv.To)
	if err != nil {
		return ErrInvalidCoords
	}
	if delta != 2 && delta != -2 {
		return nil
	}
	if _, moved := room.movedPieces[mv.ID]; moved {
		return ErrPawnAlreadyMoved
	}
	return nil
}
