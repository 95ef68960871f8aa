package core

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/lobby-server/internal/store"
	"github.com/vovakirdan/lobby-server/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func expectNoEvent(t *testing.T, ch <-chan *Event, wait time.Duration) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got %v %+v", ev.Kind, ev)
	case <-time.After(wait):
	}
}

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestHub(t *testing.T, st store.Store) *Hub {
	t.Helper()
	return NewHub(st, st, Options{StoreTimeout: time.Second}, nil)
}

// testConn drives a client the way the transport does: a Serve goroutine
// per connection, Commands closed before Disconnect.
type testConn struct {
	*Client
	hub    *Hub
	served chan struct{}
	closed bool
}

func connect(t *testing.T, hub *Hub, id string) *testConn {
	t.Helper()

	c := &testConn{Client: NewClient(id, 16), hub: hub, served: make(chan struct{})}
	hub.Connect(c.Client)
	go func() {
		hub.Serve(context.Background(), c.Client)
		close(c.served)
	}()
	t.Cleanup(c.close)
	return c
}

func (c *testConn) join(username string) {
	c.Commands <- &Command{Kind: CommandJoin, Username: username}
}

func (c *testConn) say(content string) {
	c.Commands <- &Command{Kind: CommandSendMessage, Content: content}
}

func (c *testConn) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.Commands)
	<-c.served
	c.hub.Disconnect(context.Background(), c.Client)
}

// faultyStore fails selected operations of an otherwise working store.
type faultyStore struct {
	*sqlite.SQLiteStore
	appendErr error
	touchErr  error
}

func (s *faultyStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.SQLiteStore.AppendMessage(ctx, msg)
}

func (s *faultyStore) TouchLastSeen(ctx context.Context, userID int64, at time.Time) error {
	if s.touchErr != nil {
		return s.touchErr
	}
	return s.SQLiteStore.TouchLastSeen(ctx, userID, at)
}
