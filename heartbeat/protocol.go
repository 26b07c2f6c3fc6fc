package heartbeat

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Message types on the heartbeat channel
const (
	TypeWelcome        = "welcome"
	TypePing           = "ping"
	TypeServerInfo     = "serverinfo"
	TypeEnergyUpdate   = "energy_update"
	TypeUserUpdate     = "userupdate"
	TypeUserCoordinate = "usercoordinate"
	TypeChat           = "chat"
)

// SummonPrefix prefixes the page URL in an invite chat message
const SummonPrefix = "summon:"

// inbound is one server message. Optional fields stay raw so presence and
// JSON type can be checked separately.
type inbound struct {
	Type            string          `json:"type"`
	Time            json.RawMessage `json:"time"`
	NumUsers        json.RawMessage `json:"numUsers"`
	WorldtreeEnergy json.RawMessage `json:"worldtreeEnergy"`
}

// Coordinates is the position announced after welcome
type Coordinates struct {
	TX float64 `json:"tx"`
	TY float64 `json:"ty"`
	TZ float64 `json:"tz"`
}

// UserCoordinate is the outbound presence announcement
type UserCoordinate struct {
	Type        string      `json:"type"`
	Coordinates Coordinates `json:"coordinates"`
}

// Chat is an outbound chat message
type Chat struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func zeroCoordinate() UserCoordinate {
	return UserCoordinate{Type: TypeUserCoordinate}
}

func summon(pageURL string) Chat {
	return Chat{Type: TypeChat, Text: SummonPrefix + pageURL}
}

// parseInbound decodes a frame. ok is false for anything that is not a
// JSON object.
func parseInbound(data []byte) (inbound, bool) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return inbound{}, false
	}
	return msg, true
}

// users returns numUsers when present and a JSON number
func (m inbound) users() (int, bool) {
	if len(m.NumUsers) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(m.NumUsers, &n); err != nil {
		return 0, false
	}
	return int(n), true
}

// energy returns worldtreeEnergy when the key is present, whatever its type.
// A JSON null is present with a nil value.
func (m inbound) energy() (interface{}, bool) {
	if len(m.WorldtreeEnergy) == 0 {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(m.WorldtreeEnergy, &v); err != nil {
		return nil, false
	}
	return v, true
}

// timeText renders the ping time as shown in the heartbeat row
func (m inbound) timeText() string {
	raw := bytes.TrimSpace(m.Time)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// FormatEnergy renders an energy value: "—" when absent or null, numbers
// without trailing zeros, other JSON values as JSON.
func FormatEnergy(v interface{}) string {
	switch e := v.(type) {
	case nil:
		return "—"
	case float64:
		return strconv.FormatFloat(e, 'f', -1, 64)
	case string:
		return e
	case bool:
		return strconv.FormatBool(e)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "—"
	}
	return string(b)
}
