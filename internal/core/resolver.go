package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vovakirdan/lobby-server/internal/store"
	"github.com/vovakirdan/lobby-server/internal/utils"
)

const (
	// DefaultJoinAttempts is how many derived usernames are tried after a collision.
	DefaultJoinAttempts = 3
	// DefaultMaxUsernameLength bounds requested usernames, in runes.
	DefaultMaxUsernameLength = 32

	derivedSuffixLength = 3
)

// Resolver turns a requested username into a durable User and binds it to a
// connection.
//
// The store's conditional insert is the only uniqueness check. When the
// requested name already exists and no live connection holds it, the existing
// user is reclaimed and its last seen time is touched. When a live connection
// holds it, the resolver inserts a derived name (requested name plus "_" and a
// short random suffix) instead, trying a fresh suffix up to attempts times.
type Resolver struct {
	users    store.UserStore
	registry *Registry
	attempts int
	maxLen   int
	suffix   func() string
	now      func() time.Time
}

// NewResolver creates a resolver backed by users that binds through registry.
func NewResolver(users store.UserStore, registry *Registry, attempts, maxLen int) *Resolver {
	if attempts <= 0 {
		attempts = DefaultJoinAttempts
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxUsernameLength
	}
	return &Resolver{
		users:    users,
		registry: registry,
		attempts: attempts,
		maxLen:   maxLen,
		suffix:   func() string { return utils.RandomSuffix(derivedSuffixLength) },
		now:      time.Now,
	}
}

// Resolve binds clientID to the user named desired, creating or reclaiming it,
// or to a freshly derived user if desired is held by another live connection.
func (r *Resolver) Resolve(ctx context.Context, clientID, desired string) (User, error) {
	name := strings.TrimSpace(desired)
	if name == "" {
		return User{}, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > r.maxLen {
		return User{}, fmt.Errorf("%w: username exceeds %d characters", ErrValidation, r.maxLen)
	}

	user, err := r.insert(ctx, name)
	switch {
	case err == nil:
		err = r.registry.Claim(clientID, user)
	case errors.Is(err, store.ErrUsernameTaken):
		user, err = r.reclaim(ctx, clientID, name)
	}
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, errIdentityHeld) {
		return User{}, err
	}

	for range r.attempts {
		user, err = r.insert(ctx, name+"_"+r.suffix())
		if err == nil {
			err = r.registry.Claim(clientID, user)
		}
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, store.ErrUsernameTaken) && !errors.Is(err, errIdentityHeld) {
			return User{}, err
		}
	}

	return User{}, fmt.Errorf("%w: %q is taken", ErrIdentityConflict, name)
}

// reclaim binds the existing user named username when no live connection holds it.
// It returns errIdentityHeld when the name must be derived instead.
func (r *Resolver) reclaim(ctx context.Context, clientID, username string) (User, error) {
	existing, err := r.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return User{}, errIdentityHeld
	}
	if err != nil {
		return User{}, fmt.Errorf("%w: load user: %w", ErrPersistence, err)
	}
	if r.registry.Holds(existing.ID) {
		return User{}, errIdentityHeld
	}

	at := r.now()
	if err := r.users.TouchLastSeen(ctx, existing.ID, at); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return User{}, errIdentityHeld
		}
		return User{}, fmt.Errorf("%w: touch last seen: %w", ErrPersistence, err)
	}

	user := userFromStore(existing)
	user.LastSeen = at.UTC()
	if err := r.registry.Claim(clientID, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// insert passes ErrUsernameTaken through untouched and wraps every other
// store failure as ErrPersistence.
func (r *Resolver) insert(ctx context.Context, username string) (User, error) {
	created, err := r.users.InsertUserIfAbsent(ctx, username, r.now())
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return User{}, err
		}
		return User{}, fmt.Errorf("%w: create user: %w", ErrPersistence, err)
	}
	return userFromStore(created), nil
}
