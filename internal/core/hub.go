package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobby-server/internal/store"
)

// DefaultStoreTimeout bounds a single store call made on behalf of a connection.
const DefaultStoreTimeout = 5 * time.Second

// Options tunes the hub's limits.
type Options struct {
	JoinAttempts      int
	MaxUsernameLength int
	MaxContentLength  int
	StoreTimeout      time.Duration
}

// Hub coordinates connections, identities and fan-out for the shared room.
//
// Each connection moves through Unbound -> Bound -> Closed (or Unbound -> Closed).
// Commands from one connection are handled in order by that connection's Serve
// loop; commands from different connections run concurrently.
type Hub struct {
	registry     *Registry
	resolver     *Resolver
	pipeline     *Pipeline
	broadcaster  *Broadcaster
	storeTimeout time.Duration
	log          *zerolog.Logger
}

// NewHub creates a new chat hub instance.
func NewHub(users store.UserStore, messages store.MessageStore, opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}

	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, users, logger)
	return &Hub{
		registry:     registry,
		resolver:     NewResolver(users, registry, opts.JoinAttempts, opts.MaxUsernameLength),
		pipeline:     NewPipeline(messages, registry, broadcaster, opts.MaxContentLength),
		broadcaster:  broadcaster,
		storeTimeout: opts.StoreTimeout,
		log:          logger,
	}
}

// Connect registers a new, unbound connection.
func (h *Hub) Connect(c *Client) {
	if !h.registry.Register(c) {
		h.log.Warn().Str("client_id", c.ID).Msg("duplicate client id ignored")
		return
	}
	h.log.Debug().Str("client_id", c.ID).Msg("client connected")
}

// Serve processes the client's commands in order until Commands is closed.
// Callers close Commands when the transport stops reading, then call Disconnect
// once Serve has returned.
func (h *Hub) Serve(ctx context.Context, c *Client) {
	for cmd := range c.Commands {
		h.Handle(ctx, c, cmd)
	}
}

// Handle executes one command. Failures are reported to the originating connection only.
func (h *Hub) Handle(ctx context.Context, c *Client, cmd *Command) {
	// Closing the connection must not cancel a store write already under way.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.storeTimeout)
	defer cancel()

	var err error
	switch cmd.Kind {
	case CommandJoin:
		err = h.join(storeCtx, c, cmd.Username)
	case CommandSendMessage:
		err = h.send(storeCtx, c, cmd.Content, cmd.ImageURL)
	default:
		err = coreError(ErrCodeValidation, "unknown command")
	}

	if err != nil {
		ce := ToCoreError(err)
		logEvent := h.log.Debug()
		if ce.Code == ErrCodePersistence || ce.Code == ErrCodeInternal {
			logEvent = h.log.Error()
		}
		logEvent.Err(err).Str("client_id", c.ID).Str("code", ce.Code).Msg("command failed")
		h.Reject(c, ce)
	}
}

// Reject sends an error event to one connection.
func (h *Hub) Reject(c *Client, ce *CoreError) {
	h.broadcaster.SendTo(c, &Event{Kind: EventError, Error: ce})
}

func (h *Hub) join(ctx context.Context, c *Client, username string) error {
	if _, bound := h.registry.Bound(c.ID); bound {
		return ErrAlreadyBound
	}

	user, err := h.resolver.Resolve(ctx, c.ID, username)
	if err != nil {
		return err
	}

	h.log.Info().Str("client_id", c.ID).Int64("user_id", user.ID).Str("username", user.Username).Msg("user joined")
	h.broadcaster.OnJoin(user)
	return nil
}

func (h *Hub) send(ctx context.Context, c *Client, content, imageURL string) error {
	msg, err := h.pipeline.Accept(ctx, c.ID, content, imageURL)
	if err != nil {
		return err
	}
	h.log.Debug().Str("client_id", c.ID).Int64("message_id", msg.ID).Int64("user_id", msg.UserID).Msg("message accepted")
	return nil
}

// Disconnect tears the connection down. For a bound connection it touches the
// user's last seen time and announces user_left to the remaining connections.
// Calling it more than once is a no-op.
func (h *Hub) Disconnect(ctx context.Context, c *Client) {
	user, ok := h.registry.Unregister(c.ID)
	if !ok {
		return
	}
	h.log.Debug().Str("client_id", c.ID).Msg("client disconnected")
	if user == nil {
		return
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.storeTimeout)
	defer cancel()

	h.broadcaster.OnLeave(storeCtx, *user)
	h.log.Info().Str("client_id", c.ID).Int64("user_id", user.ID).Str("username", user.Username).Msg("user left")
}

// OnlineUsers returns identities currently bound to live connections.
func (h *Hub) OnlineUsers() []User {
	return h.registry.OnlineUsers()
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	return h.registry.Len()
}
