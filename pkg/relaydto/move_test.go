package relaydto

import (
	"encoding/json"
	"testing"
)

func TestMoveDecodeIsLenient(t *testing.T) {
	cases := []struct {
		raw  string
		well bool
	}{
		{`{"from":"E2","to":"E4","id":"w_p_5","type":"pawn"}`, true},
		{`{"from":"E2","to":"E4","extra":{"deep":[1,2]}}`, true},
		{`{"from":"E2"}`, false},
		{`{"from":1,"to":"E4"}`, false},
		{`"E2E4"`, false},
		{`[1,2]`, false},
		{`null`, false},
	}
	for _, tc := range cases {
		var m Move
		if err := json.Unmarshal([]byte(tc.raw), &m); err != nil {
			t.Fatalf("%s: decode error %v", tc.raw, err)
		}
		if m.WellFormed() != tc.well {
			t.Fatalf("%s: WellFormed=%v want %v", tc.raw, m.WellFormed(), tc.well)
		}
	}
}

func TestMoveRequestWithNullMove(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"event":"player-move","code":"AB12CD","move":null}`), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Move.WellFormed() {
		t.Fatalf("null move must not be well formed")
	}
}

func TestMoveEchoesClientBytes(t *testing.T) {
	raw := `{"to":"E4","from":"E2","id":"w_p_5","type":"pawn","meta":{"ms":12}}`
	var m Move
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := json.Marshal(MovePayload{By: 1, Move: m})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"by":1,"move":` + raw + `}`
	if string(out) != want {
		t.Fatalf("got %s\nwant %s", out, want)
	}
}

func TestCapturedKind(t *testing.T) {
	cases := map[string]string{
		`{"from":"A1","to":"A2","capturedType":"king"}`:                           "king",
		`{"from":"A1","to":"A2","captured":{"type":"king"}}`:                      "king",
		`{"from":"A1","to":"A2","capturedType":"rook","captured":{"type":"king"}}`: "rook",
		`{"from":"A1","to":"A2"}`: "",
	}
	for raw, want := range cases {
		var m Move
		_ = json.Unmarshal([]byte(raw), &m)
		if got := m.CapturedKind(); got != want {
			t.Fatalf("%s: got %q want %q", raw, got, want)
		}
	}
}

func TestTurnPayloadEncoding(t *testing.T) {
	b, _ := json.Marshal(Turn(2))
	if string(b) != `{"playerNumber":2}` {
		t.Fatalf("turn: %s", b)
	}
	b, _ = json.Marshal(TurnGameOver())
	if string(b) != `{"playerNumber":null,"gameOver":true}` {
		t.Fatalf("game over turn: %s", b)
	}
}

func TestMoveHasID(t *testing.T) {
	cases := map[string]bool{
		`{"from":"A1","to":"A2","id":"w_p_1"}`: true,
		`{"from":"A1","to":"A2","id":""}`:      true,
		`{"from":"A1","to":"A2","id":5}`:       false,
		`{"from":"A1","to":"A2"}`:              false,
	}
	for raw, want := range cases {
		var m Move
		_ = json.Unmarshal([]byte(raw), &m)
		if m.HasID() != want {
			t.Fatalf("%s: HasID=%v want %v", raw, m.HasID(), want)
		}
	}
	if (&Move{From: "A1", To: "A2", ID: "x"}).HasID() != true {
		t.Fatalf("literal id must count")
	}
}
