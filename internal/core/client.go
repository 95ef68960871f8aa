package core

// DefaultClientBuffer is the event and command buffer size used when none is given.
const DefaultClientBuffer = 64

// Client is a live connection as seen by the core layer.
// Commands are processed in order by Hub.Serve; Events are drained by the transport.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
	}
}
