package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/lobby-server/internal/store"
)

// takenUsers reports every username as already taken.
type takenUsers struct {
	store.UserStore
	mu    sync.Mutex
	names []string
}

func (s *takenUsers) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	return nil, store.ErrNotFound
}

func (s *takenUsers) InsertUserIfAbsent(_ context.Context, username string, _ time.Time) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, username)
	return nil, store.ErrUsernameTaken
}

// brokenUsers fails every insert.
type brokenUsers struct {
	store.UserStore
}

func (brokenUsers) InsertUserIfAbsent(context.Context, string, time.Time) (*store.User, error) {
	return nil, errors.New("connection refused")
}

// newTestResolver returns a resolver over users with live connections ids registered.
func newTestResolver(users store.UserStore, attempts, maxLen int, ids ...string) *Resolver {
	registry := NewRegistry()
	for _, id := range ids {
		registry.Register(NewClient(id, 1))
	}
	return NewResolver(users, registry, attempts, maxLen)
}

func TestResolverConcurrentSameName(t *testing.T) {
	st := newTestStore(t)
	ids := []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6", "c7"}
	resolver := newTestResolver(st, DefaultJoinAttempts, DefaultMaxUsernameLength, ids...)

	n := len(ids)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		users []User
	)
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := resolver.Resolve(context.Background(), id, "same")
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			mu.Lock()
			users = append(users, u)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(users) != n {
		t.Fatalf("expected %d users, got %d", n, len(users))
	}

	names := make(map[string]struct{})
	userIDs := make(map[int64]struct{})
	exact := 0
	for _, u := range users {
		if u.Username == "same" {
			exact++
		} else if !strings.HasPrefix(u.Username, "same_") {
			t.Fatalf("unexpected derived name %q", u.Username)
		}
		names[u.Username] = struct{}{}
		userIDs[u.ID] = struct{}{}
	}
	if exact != 1 {
		t.Fatalf("expected exactly one user named same, got %d", exact)
	}
	if len(names) != n || len(userIDs) != n {
		t.Fatalf("expected %d distinct names and ids, got %d and %d", n, len(names), len(userIDs))
	}
}

func TestResolverTrimsUsername(t *testing.T) {
	st := newTestStore(t)
	resolver := newTestResolver(st, 0, 0, "c")

	u, err := resolver.Resolve(context.Background(), "c", "  alice  ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if u.Username != "alice" || u.LastSeen.IsZero() {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestResolverRejectsInvalidUsername(t *testing.T) {
	st := newTestStore(t)
	resolver := newTestResolver(st, 0, 5, "c")

	for _, name := range []string{"", "   ", "toolongname"} {
		if _, err := resolver.Resolve(context.Background(), "c", name); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation for %q, got %v", name, err)
		}
	}
}

func TestResolverConflictExhausted(t *testing.T) {
	users := &takenUsers{}
	resolver := newTestResolver(users, 3, 0, "c")
	resolver.suffix = func() string { return "abc" }

	_, err := resolver.Resolve(context.Background(), "c", "alice")
	if !errors.Is(err, ErrIdentityConflict) {
		t.Fatalf("expected ErrIdentityConflict, got %v", err)
	}

	expected := []string{"alice", "alice_abc", "alice_abc", "alice_abc"}
	if strings.Join(users.names, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected attempts %v, got %v", expected, users.names)
	}
}

func TestResolverStoreFailure(t *testing.T) {
	resolver := newTestResolver(brokenUsers{}, 0, 0, "c")

	_, err := resolver.Resolve(context.Background(), "c", "alice")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if ce := ToCoreError(err); ce.Code != ErrCodePersistence {
		t.Fatalf("expected persistence_error code, got %q", ce.Code)
	}
}

func TestResolverReclaimsOfflineUser(t *testing.T) {
	st := newTestStore(t)
	resolver := newTestResolver(st, 0, 0, "first", "second")

	first, err := resolver.Resolve(context.Background(), "first", "alice")
	if err != nil {
		t.Fatalf("resolve first: %v", err)
	}
	resolver.registry.Unregister("first")

	later := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
	resolver.now = func() time.Time { return later }

	second, err := resolver.Resolve(context.Background(), "second", "alice")
	if err != nil {
		t.Fatalf("resolve second: %v", err)
	}
	if second.ID != first.ID || second.Username != "alice" {
		t.Fatalf("expected alice %d back, got %+v", first.ID, second)
	}
	if bound, ok := resolver.registry.Bound("second"); !ok || bound.ID != first.ID {
		t.Fatalf("expected second bound to alice, got %+v", bound)
	}

	stored, err := st.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get alice: %v", err)
	}
	if !stored.LastSeen.Equal(later) {
		t.Fatalf("expected last_seen %v, got %v", later, stored.LastSeen)
	}
}

func TestResolverDerivesWhileHolderLive(t *testing.T) {
	st := newTestStore(t)
	resolver := newTestResolver(st, 0, 0, "first", "second")
	resolver.suffix = func() string { return "x1z" }

	first, err := resolver.Resolve(context.Background(), "first", "alice")
	if err != nil {
		t.Fatalf("resolve first: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), "second", "alice")
	if err != nil {
		t.Fatalf("resolve second: %v", err)
	}
	if second.Username != "alice_x1z" || second.ID == first.ID {
		t.Fatalf("expected derived alice_x1z, got %+v", second)
	}
}

func TestResolverConcurrentReclaim(t *testing.T) {
	st := newTestStore(t)
	ids := []string{"old", "r0", "r1", "r2", "r3", "r4", "r5"}
	resolver := newTestResolver(st, DefaultJoinAttempts, 0, ids...)

	alice, err := resolver.Resolve(context.Background(), "old", "alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resolver.registry.Unregister("old")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		reclaimed int
	)
	for _, id := range ids[1:] {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := resolver.Resolve(context.Background(), id, "alice")
			if err != nil {
				t.Errorf("resolve %s: %v", id, err)
				return
			}
			if u.ID == alice.ID {
				mu.Lock()
				reclaimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if reclaimed != 1 {
		t.Fatalf("expected exactly one connection to reclaim alice, got %d", reclaimed)
	}
}

func TestResolverClaimAfterTeardown(t *testing.T) {
	st := newTestStore(t)
	resolver := newTestResolver(st, 0, 0)

	_, err := resolver.Resolve(context.Background(), "gone", "alice")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if ce := ToCoreError(err); ce.Code != ErrCodeNotConnected {
		t.Fatalf("expected not_connected code, got %q", ce.Code)
	}
}
