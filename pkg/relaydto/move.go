package relaydto

import "encoding/json"

// CapturedPiece is the nested capture description some clients send instead of capturedType.
type CapturedPiece struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
}

// Move is a client move claim. Labels are opaque to the server.
//
// Decoding never fails on a JSON value: a claim that is not an object, or that lacks
// string from/to fields, is kept and reported by WellFormed. The client bytes are
// retained so the claim is rebroadcast exactly as the client sent it.
type Move struct {
	From         string         `json:"from"`
	To           string         `json:"to"`
	ID           string         `json:"id,omitempty"`
	Type         string         `json:"type,omitempty"`
	CapturedID   string         `json:"capturedId,omitempty"`
	CapturedType string         `json:"capturedType,omitempty"`
	Captured     *CapturedPiece `json:"captured,omitempty"`

	idSet     bool
	malformed bool
	raw       json.RawMessage
}

func (m *Move) WellFormed() bool { return m != nil && !m.malformed }

// HasID reports whether the claim carries a string id, including an empty one.
func (m *Move) HasID() bool { return m != nil && (m.idSet || m.ID != "") }

// CapturedKind resolves the captured piece type, preferring the flat field.
func (m *Move) CapturedKind() string {
	if m == nil {
		return ""
	}
	if m.CapturedType != "" {
		return m.CapturedType
	}
	if m.Captured != nil {
		return m.Captured.Type
	}
	return ""
}

func (m *Move) UnmarshalJSON(b []byte) error {
	*m = Move{raw: append(json.RawMessage(nil), b...)}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		m.malformed = true
		return nil
	}
	var fromOK, toOK bool
	m.From, fromOK = stringField(fields, "from")
	m.To, toOK = stringField(fields, "to")
	m.malformed = !fromOK || !toOK
	m.ID, m.idSet = stringField(fields, "id")
	m.Type, _ = stringField(fields, "type")
	m.CapturedID, _ = stringField(fields, "capturedId")
	m.CapturedType, _ = stringField(fields, "capturedType")
	if c, ok := fields["captured"]; ok {
		var cp CapturedPiece
		if json.Unmarshal(c, &cp) == nil {
			m.Captured = &cp
		}
	}
	return nil
}

func (m Move) MarshalJSON() ([]byte, error) {
	if len(m.raw) > 0 {
		return m.raw, nil
	}
	type plain Move
	return json.Marshal(plain(m))
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
