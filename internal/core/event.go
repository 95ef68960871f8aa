package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUserJoined announces a newly bound identity to every connection.
	EventUserJoined EventKind = iota
	// EventNewMessage delivers a persisted message to every connection.
	EventNewMessage
	// EventUserLeft announces the teardown of a bound connection.
	EventUserLeft
	// EventError reports a failed command to the originating connection only.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventUserJoined:
		return "user_joined"
	case EventNewMessage:
		return "new_message"
	case EventUserLeft:
		return "user_left"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	User    *User    // EventUserJoined
	Message *Message // EventNewMessage
	UserID  int64    // EventUserLeft
	Error   *CoreError
}
