package core

import (
	"errors"
	"testing"
)

func TestRegistryClaimOnce(t *testing.T) {
	r := NewRegistry()
	c := NewClient("c", 1)
	r.Register(c)

	if _, ok := r.Bound("c"); ok {
		t.Fatalf("new connection must be unbound")
	}
	if err := r.Claim("c", User{ID: 1, Username: "alice"}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := r.Claim("c", User{ID: 2, Username: "bob"}); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}
	if u, ok := r.Bound("c"); !ok || u.ID != 1 {
		t.Fatalf("expected alice to stay bound, got %+v", u)
	}
}

func TestRegistryClaimAfterUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(NewClient("c", 1))
	r.Unregister("c")

	if err := r.Claim("c", User{ID: 1}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestRegistryUnregisterOnce(t *testing.T) {
	r := NewRegistry()
	r.Register(NewClient("c", 1))
	_ = r.Claim("c", User{ID: 7, Username: "alice"})

	user, ok := r.Unregister("c")
	if !ok || user == nil || user.ID != 7 {
		t.Fatalf("expected bound user 7, got %+v ok=%v", user, ok)
	}
	if _, ok := r.Unregister("c"); ok {
		t.Fatalf("second unregister must report ok=false")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	if !r.Register(NewClient("c", 1)) {
		t.Fatalf("first register should succeed")
	}
	if r.Register(NewClient("c", 1)) {
		t.Fatalf("duplicate id should be rejected")
	}
}

func TestRegistryClaimIsExclusive(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"a", "b"} {
		r.Register(NewClient(id, 1))
	}
	alice := User{ID: 1, Username: "alice"}

	if err := r.Claim("a", alice); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !r.Holds(alice.ID) {
		t.Fatalf("expected alice to be held")
	}
	if err := r.Claim("b", alice); !errors.Is(err, errIdentityHeld) {
		t.Fatalf("expected errIdentityHeld, got %v", err)
	}
	if _, ok := r.Bound("b"); ok {
		t.Fatalf("rejected claim must leave b unbound")
	}

	r.Unregister("a")
	if r.Holds(alice.ID) {
		t.Fatalf("alice must be free after teardown")
	}
	if err := r.Claim("b", alice); err != nil {
		t.Fatalf("claim after release: %v", err)
	}
}

func TestRegistryOnlineUsersOrdered(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		r.Register(NewClient(id, 1))
	}
	_ = r.Claim("a", User{ID: 2, Username: "bob"})
	_ = r.Claim("b", User{ID: 1, Username: "alice"})

	online := r.OnlineUsers()
	if len(online) != 2 || online[0].ID != 1 || online[1].ID != 2 {
		t.Fatalf("expected [alice bob], got %+v", online)
	}
	if len(r.Clients()) != 3 {
		t.Fatalf("expected 3 clients in snapshot")
	}
}
