package relaydto

// Request is a single client frame. Ack is echoed back on the reply when present.
type Request struct {
	Event string `json:"event"`
	Ack   *int64 `json:"ack,omitempty"`
	Code  string `json:"code,omitempty"`
	Move  *Move  `json:"move,omitempty"`
}

// Frame is a single server frame: either an ack reply or a pushed event.
type Frame struct {
	Event string `json:"event"`
	Ack   *int64 `json:"ack,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Ack is the acknowledgement body. Only the fields relevant to the event are set.
type Ack struct {
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"code,omitempty"`
	PlayerNumber int    `json:"playerNumber,omitempty"`
	Turn         int    `json:"turn,omitempty"`
	CurrentTurn  *int   `json:"currentTurn,omitempty"`
	GameOver     bool   `json:"gameOver,omitempty"`
}

func Fail(code string) Ack { return Ack{OK: false, Error: code} }
