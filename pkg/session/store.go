package session

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	// ErrSessionNotFound is returned when ending a session that doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoItems is returned when reading the latest item of an empty session.
	ErrNoItems = errors.New("no clipboard items found in session")
	// ErrCodespaceExhausted is returned when a unique session code could not
	// be generated within the retry bound.
	ErrCodespaceExhausted = errors.New("session code space exhausted")
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("session store is closed")
)

// Store is the session store contract shared by the in-memory and Redis
// implementations. Implementations must be safe for concurrent use and must
// serialize each operation, including the expiry sweep it triggers, as one
// atomic unit.
//
// Reads against an unknown session id do not fail: they materialize an empty
// session (see GetOrCreate). Only Latest on an empty session and End on an
// unknown id report not-found conditions.
type Store interface {
	// Start sweeps expired sessions, generates a fresh unique session code
	// and inserts an empty session for it.
	Start(ctx context.Context) (string, error)

	// GetOrCreate returns the session for id, creating an empty one if the
	// id is unknown. The id is not validated for format: any string is a
	// valid key. It stamps the session's last activity and records hostname
	// if non-empty. The returned session is a snapshot copy.
	GetOrCreate(ctx context.Context, id, hostname string) (*Session, error)

	// AddItem appends a clipboard item to the session, creating the session
	// if needed, and trims the item list to the configured bound (FIFO).
	AddItem(ctx context.Context, id, content, hostname string) (Item, error)

	// Latest returns the most recent item, or ErrNoItems if the session is
	// empty. Like all reads it materializes unknown sessions.
	Latest(ctx context.Context, id, hostname string) (Item, error)

	// History returns a copy of the session's items, oldest first. A session
	// with no items yields an empty slice, not an error.
	History(ctx context.Context, id, hostname string) ([]Item, error)

	// End deletes the session, or returns ErrSessionNotFound.
	End(ctx context.Context, id string) error

	// ListActive sweeps expired sessions and returns a summary per
	// remaining session. Order is not guaranteed to be chronological.
	ListActive(ctx context.Context) ([]Summary, error)

	// SweepExpired removes every session idle beyond the TTL and returns
	// the number removed. The other operations invoke it opportunistically;
	// calling it directly is only needed for scheduled janitor runs.
	SweepExpired(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
