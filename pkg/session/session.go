// Package session persists the view state of image hosts.
//
// A [Session] records, per host id, the content URL and the [host.State]
// (viewport transforms, navigation stack and hidden selectors) so a server
// can restore every host after a restart. Backends:
//   - [MemoryStore]: in-process, for tests and one-shot CLI runs
//   - [FileStore]: one JSON file per session, for the CLI
//   - [SQLiteStore]: a single embedded database file
//   - [RedisStore]: shared storage for multi-instance deployments
//   - [MongoStore]: document database storage
//
// [Open] selects a backend from a [Config].
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/dynsvg/pkg/host"
)

// ErrNotFound is returned by helpers that treat a missing session as an
// error. Store.Get itself returns nil, nil.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is the default session lifetime.
const DefaultTTL = 30 * 24 * time.Hour

// Session is the stored state of one host.
type Session struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	State     host.State `json:"state"`
	UpdatedAt time.Time  `json:"updated_at"`
	// ExpiresAt is zero for sessions that never expire.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// New records the current state of h. A non-positive ttl never expires.
func New(h *host.Host, ttl time.Duration) *Session {
	now := time.Now()
	s := &Session{ID: h.ID(), URL: h.URL(), State: h.State(), UpdatedAt: now}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl)
	}
	return s
}

// IsExpired reports whether the session has expired.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by id. It returns nil, nil if the session
	// does not exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session, replacing any earlier one with the same id.
	Set(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every live session.
	List(ctx context.Context) ([]*Session, error)

	// Cleanup removes expired sessions. Backends with native expiry may
	// treat it as a no-op.
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

func encode(s *Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &s, nil
}

// MustGet is Get returning ErrNotFound for a missing session.
func MustGet(ctx context.Context, st Store, id string) (*Session, error) {
	s, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotFound
	}
	return s, nil
}
