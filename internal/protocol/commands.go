package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// CommandType names a client to server command
type CommandType string

const (
	CommandCreateSession CommandType = "create-session"
	CommandJoinSession   CommandType = "join-session"
	CommandRollDice      CommandType = "roll-dice"
	CommandCheckRoll     CommandType = "check-roll"
	CommandResetRound    CommandType = "reset-round"
	CommandGetSession    CommandType = "get-session"
)

// Command is the wire frame sent by clients
type Command struct {
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CreateSessionPayload carries the host's settings. Pointers distinguish an
// omitted field from an explicit zero.
type CreateSessionPayload struct {
	Mode         string `json:"mode"`
	TargetNumber *int   `json:"targetNumber,omitempty"`
	MaxRerolls   *int   `json:"maxRerolls,omitempty"`
}

// CodePayload addresses a session. Both {"code":"ABC123"} and the bare
// string "ABC123" are accepted.
type CodePayload struct {
	Code string `json:"code"`
}

// UnmarshalJSON implements json.Unmarshaler
func (p *CodePayload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var code string
		if err := json.Unmarshal(data, &code); err != nil {
			return err
		}
		p.Code = strings.TrimSpace(code)
		return nil
	}

	type plain CodePayload
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.Code = strings.TrimSpace(v.Code)
	return nil
}

// ErrEmptyPayload is returned when a command requires a payload and has none
var ErrEmptyPayload = errors.New("payload is required")

// DecodePayload unmarshals the command payload into v
func (c *Command) DecodePayload(v any) error {
	if len(bytes.TrimSpace(c.Payload)) == 0 || string(bytes.TrimSpace(c.Payload)) == "null" {
		return ErrEmptyPayload
	}
	return json.Unmarshal(c.Payload, v)
}
