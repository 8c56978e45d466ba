package session

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// DefaultMaxItems is the per-session clipboard history bound.
const DefaultMaxItems = 10

// Config holds tunables for a store.
type Config struct {
	// TTL is how long a session survives without activity (default 24h).
	TTL time.Duration
	// MaxItems bounds per-session history; older items are evicted FIFO
	// (default 10).
	MaxItems int
}

func (c *Config) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxItems <= 0 {
		c.MaxItems = DefaultMaxItems
	}
}

// MemoryStore is the canonical in-memory Store. One mutex guards the whole
// session map; every operation, including the lazy expiry sweep it triggers,
// runs inside a single critical section, so a get-or-create followed by a
// mutation is atomic and two concurrent writers cannot both create the same
// session.
type MemoryStore struct {
	cfg      Config
	mu       sync.Mutex
	sessions map[string]*Session
	order    []string // session ids in insertion order
	closed   bool

	// now is swapped out in tests to simulate the passage of time.
	now func() time.Time
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(cfg Config) *MemoryStore {
	cfg.applyDefaults()
	return &MemoryStore{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Start sweeps expired sessions, generates a fresh unique session code and
// inserts an empty session for it.
func (s *MemoryStore) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	now := s.now()
	s.sweepLocked(now)

	code, err := generateCode(func(id string) bool {
		_, ok := s.sessions[id]
		return ok
	})
	if err != nil {
		return "", err
	}

	s.insertLocked(code, now)
	return code, nil
}

// GetOrCreate returns a snapshot of the session for id, materializing an
// empty session if the id is unknown.
func (s *MemoryStore) GetOrCreate(ctx context.Context, id, hostname string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	sess := s.getOrCreateLocked(id, hostname)
	return snapshot(sess), nil
}

// AddItem appends a clipboard item to the session, creating the session if
// needed, and trims history to the configured bound.
func (s *MemoryStore) AddItem(ctx context.Context, id, content, hostname string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Item{}, ErrStoreClosed
	}

	sess := s.getOrCreateLocked(id, hostname)

	sess.nextSeq++
	if hostname == "" {
		hostname = "unknown"
	}
	item := Item{
		ID:        itemID(id, sess.nextSeq),
		Content:   content,
		Timestamp: s.now(),
		Hostname:  hostname,
	}

	sess.Items = append(sess.Items, item)
	if len(sess.Items) > s.cfg.MaxItems {
		sess.Items = sess.Items[len(sess.Items)-s.cfg.MaxItems:]
	}

	return item, nil
}

// Latest returns the most recent item, or ErrNoItems for an empty session.
func (s *MemoryStore) Latest(ctx context.Context, id, hostname string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Item{}, ErrStoreClosed
	}

	sess := s.getOrCreateLocked(id, hostname)
	if len(sess.Items) == 0 {
		return Item{}, ErrNoItems
	}
	return sess.Items[len(sess.Items)-1], nil
}

// History returns a copy of the session's items, oldest first.
func (s *MemoryStore) History(ctx context.Context, id, hostname string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	sess := s.getOrCreateLocked(id, hostname)
	items := make([]Item, len(sess.Items))
	copy(items, sess.Items)
	return items, nil
}

// End deletes the session, or returns ErrSessionNotFound.
func (s *MemoryStore) End(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	s.removeLocked(id)
	return nil
}

// ListActive sweeps expired sessions and returns one summary per remaining
// session, in insertion order.
func (s *MemoryStore) ListActive(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	s.sweepLocked(s.now())

	summaries := make([]Summary, 0, len(s.order))
	for _, id := range s.order {
		summaries = append(summaries, s.sessions[id].summary())
	}
	return summaries, nil
}

// SweepExpired removes every session idle beyond the TTL and returns the
// number removed.
func (s *MemoryStore) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	return s.sweepLocked(s.now()), nil
}

// Close marks the store closed. Subsequent operations fail with
// ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.sessions = make(map[string]*Session)
	s.order = nil
	return nil
}

// getOrCreateLocked is the shared sweep + materialize + touch path. The
// caller must hold s.mu.
func (s *MemoryStore) getOrCreateLocked(id, hostname string) *Session {
	now := s.now()
	s.sweepLocked(now)

	sess, ok := s.sessions[id]
	if !ok {
		sess = s.insertLocked(id, now)
	}

	sess.LastActivity = now
	sess.addHostname(hostname)
	return sess
}

// insertLocked adds an empty session. The caller must hold s.mu.
func (s *MemoryStore) insertLocked(id string, now time.Time) *Session {
	sess := &Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		Hostnames:    []string{},
		Items:        []Item{},
	}
	s.sessions[id] = sess
	s.order = append(s.order, id)
	return sess
}

// removeLocked deletes a session from the map and the order index. The
// caller must hold s.mu.
func (s *MemoryStore) removeLocked(id string) {
	delete(s.sessions, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// sweepLocked removes expired sessions as of now and returns the count.
// The caller must hold s.mu.
func (s *MemoryStore) sweepLocked(now time.Time) int {
	var expired []string
	for id, sess := range s.sessions {
		if Expired(sess.LastActivity, now, s.cfg.TTL) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.removeLocked(id)
	}
	return len(expired)
}

// snapshot copies a session so callers never share slices with the store.
func snapshot(sess *Session) *Session {
	out := &Session{
		ID:           sess.ID,
		CreatedAt:    sess.CreatedAt,
		LastActivity: sess.LastActivity,
		Hostnames:    make([]string, len(sess.Hostnames)),
		Items:        make([]Item, len(sess.Items)),
	}
	copy(out.Hostnames, sess.Hostnames)
	copy(out.Items, sess.Items)
	return out
}

func itemID(sessionID string, seq int) string {
	return "clip_" + sessionID + "_" + strconv.Itoa(seq)
}
