package protocol

import "encoding/json"

// EventType names a server to client event
type EventType string

const (
	EventConnected           EventType = "connected"
	EventSessionCreated      EventType = "session-created"
	EventSessionJoined       EventType = "session-joined"
	EventGameSettingsUpdated EventType = "game-settings-updated"
	EventPlayerJoined        EventType = "player-joined"
	EventPlayerRolled        EventType = "player-rolled"
	EventGameResult          EventType = "game-result"
	EventCheckResult         EventType = "check-result"
	EventRoundReset          EventType = "round-reset"
	EventSessionState        EventType = "session-state"
	EventOpponentLeft        EventType = "opponent-left"
	EventResultMedia         EventType = "result-media"
	EventError               EventType = "error"
)

// Event is the wire frame pushed to clients. Seq is the session revision the
// event was built from; it is zero for connection level events.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
	Seq     int64     `json:"seq,omitempty"`
}

// Marshal encodes the event frame
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Scope says who receives an event
type Scope string

const (
	// ScopePrivate targets the requesting connection only
	ScopePrivate Scope = "private"

	// ScopeBroadcast targets every member of a session
	ScopeBroadcast Scope = "broadcast"
)

// Delivery pairs an event with its resolved recipients
type Delivery struct {
	Scope Scope

	// Code is the session the event concerns, empty for connection level events
	Code string

	// To lists recipient connection ids
	To []string

	Event *Event
}

// ConnectedPayload tells a client its connection id
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// SettingsPayload is the client view of a session's game configuration
type SettingsPayload struct {
	Mode         string `json:"mode"`
	TargetNumber int    `json:"targetNumber,omitempty"`
	MaxRerolls   *int   `json:"maxRerolls,omitempty"`
}

// SessionJoinedPayload confirms a join to the challenger
type SessionJoinedPayload struct {
	Code    string   `json:"code"`
	Players []string `json:"players"`
}

// PlayerJoinedPayload lists the seats after a join
type PlayerJoinedPayload struct {
	Players []string `json:"players"`
}

// PlayerRolledPayload reports one versus roll and the round so far
type PlayerRolledPayload struct {
	RollerID     string         `json:"rollerId"`
	Value        int            `json:"value"`
	PendingRolls map[string]int `json:"pendingRolls"`
}

// GameResultPayload resolves a versus round
type GameResultPayload struct {
	// Winner is empty when a tie is rerolled
	Winner      string         `json:"winner"`
	HighestRoll int            `json:"highestRoll"`
	Rolls       map[string]int `json:"rolls"`
	Tie         bool           `json:"tie"`
}

// CheckResultPayload reports a check roll against the target number
type CheckResultPayload struct {
	Success          bool     `json:"success"`
	Roll             int      `json:"roll"`
	TargetNumber     int      `json:"targetNumber"`
	RemainingRerolls int      `json:"remainingRerolls"`
	RollerID         string   `json:"rollerId"`
	Players          []string `json:"players"`
	Complete         bool     `json:"complete"`
}

// RoundResetPayload announces a reopened round
type RoundResetPayload struct {
	Code             string `json:"code"`
	RemainingRerolls int    `json:"remainingRerolls"`
}

// SessionStatePayload is a full snapshot for a seated player
type SessionStatePayload struct {
	Code             string          `json:"code"`
	State            string          `json:"state"`
	Players          []string        `json:"players"`
	Settings         SettingsPayload `json:"settings"`
	PendingRolls     map[string]int  `json:"pendingRolls"`
	RemainingRerolls int             `json:"remainingRerolls"`
	Complete         bool            `json:"complete"`
	Round            int             `json:"round"`
}

// OpponentLeftPayload tells the remaining player the other one left
type OpponentLeftPayload struct {
	Code    string   `json:"code"`
	Players []string `json:"players"`
}

// ResultMediaPayload decorates a concluded round
type ResultMediaPayload struct {
	Code    string `json:"code"`
	Outcome string `json:"outcome"`
	URL     string `json:"url"`
}

// ErrorPayload describes a rejected command
type ErrorPayload struct {
	// Message is the machine readable kind
	Message ErrorKind `json:"message"`
	Detail  string    `json:"detail,omitempty"`
}
