package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Response codes sent by the simulator.
const (
	CodeShotReceived = 200
	CodePlayerInfo   = 201
	CodeReady        = 202
	CodeRoundEnded   = 203
)

// ErrMissingCode is returned when an inbound object has no numeric Code.
var ErrMissingCode = errors.New("inbound message has no Code")

// Player is the golfer state the simulator reports with code 201.
type Player struct {
	Handed           *string  `json:"Handed,omitempty"`
	Club             *string  `json:"Club,omitempty"`
	DistanceToTarget *float64 `json:"DistanceToTarget,omitempty"`
}

// InboundMessage is one decoded response frame.
// Keys other than Code, Message and Player are kept in Extra, as are
// Message and Player values of the wrong JSON type.
type InboundMessage struct {
	Code    int
	Message *string
	Player  *Player
	Extra   map[string]any
}

var knownInboundKeys = map[string]struct{}{
	"Code":    {},
	"Message": {},
	"Player":  {},
}

// UnmarshalJSON decodes the typed fields and collects every other top-level
// key into Extra. Key matching is exact.
func (m *InboundMessage) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("inbound message is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("inbound message is %s, want object", root.Type)
	}

	code := root.Get("Code")
	if code.Type != gjson.Number {
		return ErrMissingCode
	}

	out := InboundMessage{
		Code:  int(code.Int()),
		Extra: make(map[string]any),
	}

	mistyped := make(map[string]struct{})
	switch msg := root.Get("Message"); {
	case msg.Type == gjson.String:
		s := msg.String()
		out.Message = &s
	case msg.Exists() && msg.Type != gjson.Null:
		mistyped["Message"] = struct{}{}
	}

	switch player := root.Get("Player"); {
	case player.IsObject():
		var p Player
		if err := json.Unmarshal([]byte(player.Raw), &p); err != nil {
			return fmt.Errorf("decode Player: %w", err)
		}
		out.Player = &p
	case player.Exists() && player.Type != gjson.Null:
		mistyped["Player"] = struct{}{}
	}

	root.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		_, known := knownInboundKeys[k]
		_, wrongType := mistyped[k]
		if !known || wrongType {
			out.Extra[k] = value.Value()
		}
		return true
	})

	*m = out
	return nil
}

// MarshalJSON writes the typed fields alongside the extra keys.
func (m InboundMessage) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		obj[k] = v
	}
	obj["Code"] = m.Code
	if m.Message != nil {
		obj["Message"] = *m.Message
	}
	if m.Player != nil {
		obj["Player"] = m.Player
	}
	return json.Marshal(obj)
}

// IsError reports whether the simulator rejected the last request.
func (m *InboundMessage) IsError() bool {
	return m.Code >= 500
}

// Text returns the human readable message or an empty string.
func (m *InboundMessage) Text() string {
	if m.Message == nil {
		return ""
	}
	return *m.Message
}

// DecodeInbound parses one frame into an InboundMessage.
func DecodeInbound(frame []byte) (InboundMessage, error) {
	var m InboundMessage
	if err := json.Unmarshal(frame, &m); err != nil {
		return InboundMessage{}, err
	}
	return m, nil
}
