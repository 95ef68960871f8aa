package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin binds the connection to an identity for the given username.
	CommandJoin CommandKind = iota
	// CommandSendMessage persists a chat message and broadcasts it.
	CommandSendMessage
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Username string
	Content  string
	ImageURL string
}
