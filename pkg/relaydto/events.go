package relaydto

// Client → server event names.
const (
	EventCreate      = "create"
	EventJoin        = "join"
	EventReady       = "ready"
	EventWhoami      = "whoami"
	EventPlayerMove  = "player-move"
	EventAdvanceTurn = "advance-turn"
)

// Server → client event names.
const (
	EventAck          = "ack"
	EventStatus       = "status"
	EventPlayerNumber = "player-number"
	EventPeerJoined   = "peer-joined"
	EventPeerReady    = "peer-ready"
	EventPeerLeft     = "peer-left"
	EventStartGame    = "start-game"
	EventTurn         = "turn"
	EventMove         = "move"
	EventGameOver     = "game-over"
)

// Event is one server-initiated message addressed to a topic.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

type PeerPayload struct {
	ID           string `json:"id"`
	PlayerNumber int    `json:"playerNumber,omitempty"`
}

type StartPayload struct {
	Code string `json:"code"`
}

// TurnPayload carries a null playerNumber once the game is over.
type TurnPayload struct {
	PlayerNumber *int `json:"playerNumber"`
	GameOver     bool `json:"gameOver,omitempty"`
}

func Turn(slot int) TurnPayload {
	return TurnPayload{PlayerNumber: &slot}
}

func TurnGameOver() TurnPayload {
	return TurnPayload{PlayerNumber: nil, GameOver: true}
}

type MovePayload struct {
	By   int  `json:"by"`
	Move Move `json:"move"`
}

type GameOverPayload struct {
	WinnerPlayerNumber int     `json:"winnerPlayerNumber"`
	LoserPlayerNumber  int     `json:"loserPlayerNumber"`
	WinnerSocketID     string  `json:"winnerSocketId"`
	LoserSocketID      *string `json:"loserSocketId"`
	Reason             string  `json:"reason"`
	Move               Move    `json:"move"`
}
