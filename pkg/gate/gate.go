// Package gate guards the dashboard behind a single shared password.
//
// Authentication state is kept per session: a successful Login creates a
// session id which the caller hands back on every request. Sessions live in
// a SessionStore (in-memory or Redis) and never expire unless a TTL is set.
package gate

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrBadCredential is returned by Login when the candidate does not match.
var ErrBadCredential = errors.New("incorrect password")

// ErrDisabled is returned by Login when no password is configured.
var ErrDisabled = errors.New("access gate disabled: no password configured")

// Gate compares candidates against the configured secret and tracks
// authenticated sessions.
type Gate struct {
	digest  [sha256.Size]byte
	enabled bool
	store   SessionStore
	ttl     time.Duration
}

// New creates a Gate. An empty secret disables the gate: the dashboard is
// open and Authenticate rejects every candidate.
func New(secret string, store SessionStore, ttl time.Duration) *Gate {
	g := &Gate{store: store, ttl: ttl, enabled: secret != ""}
	if g.enabled {
		g.digest = sha256.Sum256([]byte(secret))
	}
	return g
}

// Enabled reports whether a password is configured.
func (g *Gate) Enabled() bool {
	return g.enabled
}

// Authenticate reports whether candidate equals the secret.
// Digests are compared in constant time so timing does not leak the length.
func (g *Gate) Authenticate(candidate string) bool {
	if !g.enabled {
		return false
	}
	sum := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(sum[:], g.digest[:]) == 1
}

// Login checks the candidate and, on success, opens a new session.
func (g *Gate) Login(ctx context.Context, candidate string) (string, error) {
	if !g.enabled {
		return "", ErrDisabled
	}
	if !g.Authenticate(candidate) {
		return "", ErrBadCredential
	}

	id := uuid.NewString()
	if err := g.store.Create(ctx, id, g.ttl); err != nil {
		return "", fmt.Errorf("gate: create session: %w", err)
	}
	return id, nil
}

// Logout ends the session. Unknown ids are not an error.
func (g *Gate) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := g.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("gate: delete session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether the session may use the dashboard.
// With the gate disabled every caller is allowed.
func (g *Gate) IsAuthenticated(ctx context.Context, id string) (bool, error) {
	if !g.enabled {
		return true, nil
	}
	if id == "" {
		return false, nil
	}
	ok, err := g.store.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("gate: lookup session: %w", err)
	}
	return ok, nil
}

// Ping checks the session backend.
func (g *Gate) Ping(ctx context.Context) error {
	return g.store.Ping(ctx)
}
