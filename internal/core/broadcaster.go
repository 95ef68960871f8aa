package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobby-server/internal/store"
)

// Broadcaster fans presence and message events out to every live connection.
// Delivery is attempted once per connection live at the instant of the call;
// there is no queuing and no replay.
type Broadcaster struct {
	registry *Registry
	users    store.UserStore
	log      *zerolog.Logger
	now      func() time.Time
}

// NewBroadcaster creates a broadcaster over the registry's connections.
func NewBroadcaster(registry *Registry, users store.UserStore, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		users:    users,
		log:      logger,
		now:      time.Now,
	}
}

// Broadcast sends an event to all live connections and returns how many accepted it.
func (b *Broadcaster) Broadcast(event *Event) int {
	delivered := 0
	for _, client := range b.registry.Clients() {
		if b.SendTo(client, event) {
			delivered++
		}
	}
	return delivered
}

// SendTo delivers an event to a single connection without blocking.
func (b *Broadcaster) SendTo(client *Client, event *Event) bool {
	select {
	case client.Events <- event:
		return true
	default:
		// Drop if slow consumer.
		b.log.Debug().Str("client_id", client.ID).Stringer("event", event.Kind).Msg("event dropped, client buffer full")
		return false
	}
}

// OnJoin announces a newly bound identity, including to the joiner.
func (b *Broadcaster) OnJoin(user User) {
	b.Broadcast(&Event{Kind: EventUserJoined, User: &user})
}

// OnMessage delivers an accepted message, including to its sender.
func (b *Broadcaster) OnMessage(msg Message) {
	b.Broadcast(&Event{Kind: EventNewMessage, Message: &msg})
}

// OnLeave touches the user's last seen time and announces the departure.
// The touch is best-effort: a failure is logged and the event fires regardless.
func (b *Broadcaster) OnLeave(ctx context.Context, user User) {
	if err := b.users.TouchLastSeen(ctx, user.ID, b.now()); err != nil {
		b.log.Warn().Err(err).Int64("user_id", user.ID).Str("username", user.Username).Msg("failed to update last seen")
	}
	b.Broadcast(&Event{Kind: EventUserLeft, UserID: user.ID})
}
