package protocol

// ErrorKind is the taxonomy carried in error events
type ErrorKind string

const (
	ErrorSessionNotFound ErrorKind = "SessionNotFound"
	ErrorSessionFull     ErrorKind = "SessionFull"
	ErrorAlreadyJoined   ErrorKind = "AlreadyJoined"
	ErrorWrongMode       ErrorKind = "WrongMode"
	ErrorNotChallenger   ErrorKind = "NotChallenger"
	ErrorNotInSession    ErrorKind = "NotInSession"
	ErrorAlreadyRolled   ErrorKind = "AlreadyRolled"
	ErrorRoundComplete   ErrorKind = "RoundComplete"
	ErrorInvalidSettings ErrorKind = "InvalidSettings"
	ErrorInvalidCommand  ErrorKind = "InvalidCommand"
	ErrorInternal        ErrorKind = "Internal"
)

// NewErrorEvent builds an error event
func NewErrorEvent(kind ErrorKind, detail string) *Event {
	return &Event{
		Type: EventError,
		Payload: &ErrorPayload{
			Message: kind,
			Detail:  detail,
		},
	}
}
