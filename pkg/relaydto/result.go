package relaydto

import "time"

// GameResult is posted to the result webhook when a match ends.
type GameResult struct {
	Code               string    `json:"code"`
	WinnerPlayerNumber int       `json:"winner_player_number"`
	LoserPlayerNumber  int       `json:"loser_player_number"`
	WinnerSessionID    string    `json:"winner_session_id"`
	LoserSessionID     string    `json:"loser_session_id,omitempty"`
	Reason             string    `json:"reason"`
	Move               Move      `json:"move"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at"`
	MoveCount          int       `json:"move_count"`
}
