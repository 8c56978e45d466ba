package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of Redis, for deployments where the
// clipboard service runs on more than one node. Semantics match MemoryStore;
// operations are serialized through a process-local mutex, so the
// single-creation guarantee holds per process. MemoryStore remains the
// canonical store for a single-node deployment.
type RedisStore struct {
	cfg    Config
	client *redis.Client
	prefix string
	mu     sync.Mutex
	closed bool

	now func() time.Time
}

// RedisConfig holds Redis connection configuration for a session store.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all session keys
	// (default: "cloudclip:session:").
	Prefix string
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
	// Store carries the session tunables (TTL, history bound).
	Store Config
}

// redisMeta is the persisted session record minus its items, which live in
// a Redis list of their own.
type redisMeta struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Hostnames    []string  `json:"hostnames"`
	NextSeq      int       `json:"next_seq"`
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisStore(client, cfg.Prefix, cfg.Store), nil
}

// NewRedisStoreFromClient creates a Redis store from an existing client.
// This is useful for testing with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, cfg Config) *RedisStore {
	return newRedisStore(client, prefix, cfg)
}

func newRedisStore(client *redis.Client, prefix string, cfg Config) *RedisStore {
	if prefix == "" {
		prefix = "cloudclip:session:"
	}
	cfg.applyDefaults()
	return &RedisStore{
		cfg:    cfg,
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Key helpers
func (s *RedisStore) metaKey(id string) string  { return s.prefix + "meta:" + id }
func (s *RedisStore) itemsKey(id string) string { return s.prefix + "items:" + id }
func (s *RedisStore) indexKey() string          { return s.prefix + "index" }

// Start sweeps expired sessions, generates a fresh unique session code and
// inserts an empty session for it.
func (s *RedisStore) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	now := s.now()
	if _, err := s.sweepLocked(ctx, now); err != nil {
		return "", err
	}

	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return "", fmt.Errorf("list session index: %w", err)
	}
	live := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
	}

	code, err := generateCode(func(id string) bool {
		_, ok := live[id]
		return ok
	})
	if err != nil {
		return "", err
	}

	if err := s.saveMeta(ctx, &redisMeta{
		ID:           code,
		CreatedAt:    now,
		LastActivity: now,
		Hostnames:    []string{},
	}); err != nil {
		return "", err
	}

	return code, nil
}

// GetOrCreate returns the session for id, materializing an empty session if
// the id is unknown.
func (s *RedisStore) GetOrCreate(ctx context.Context, id, hostname string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	meta, err := s.getOrCreateLocked(ctx, id, hostname)
	if err != nil {
		return nil, err
	}

	items, err := s.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:           meta.ID,
		CreatedAt:    meta.CreatedAt,
		LastActivity: meta.LastActivity,
		Hostnames:    meta.Hostnames,
		Items:        items,
	}, nil
}

// AddItem appends a clipboard item, creating the session if needed, and
// trims history to the configured bound.
func (s *RedisStore) AddItem(ctx context.Context, id, content, hostname string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Item{}, ErrStoreClosed
	}

	meta, err := s.getOrCreateLocked(ctx, id, hostname)
	if err != nil {
		return Item{}, err
	}

	meta.NextSeq++
	if err := s.saveMeta(ctx, meta); err != nil {
		return Item{}, err
	}

	if hostname == "" {
		hostname = "unknown"
	}
	item := Item{
		ID:        itemID(id, meta.NextSeq),
		Content:   content,
		Timestamp: s.now(),
		Hostname:  hostname,
	}

	data, err := json.Marshal(item)
	if err != nil {
		return Item{}, fmt.Errorf("marshal item: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.itemsKey(id), data)
	pipe.LTrim(ctx, s.itemsKey(id), int64(-s.cfg.MaxItems), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return Item{}, fmt.Errorf("append item: %w", err)
	}

	return item, nil
}

// Latest returns the most recent item, or ErrNoItems for an empty session.
func (s *RedisStore) Latest(ctx context.Context, id, hostname string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Item{}, ErrStoreClosed
	}

	if _, err := s.getOrCreateLocked(ctx, id, hostname); err != nil {
		return Item{}, err
	}

	data, err := s.client.LIndex(ctx, s.itemsKey(id), -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Item{}, ErrNoItems
		}
		return Item{}, fmt.Errorf("load latest item: %w", err)
	}

	var item Item
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return Item{}, fmt.Errorf("unmarshal item: %w", err)
	}
	return item, nil
}

// History returns the session's items, oldest first.
func (s *RedisStore) History(ctx context.Context, id, hostname string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	if _, err := s.getOrCreateLocked(ctx, id, hostname); err != nil {
		return nil, err
	}

	return s.loadItems(ctx, id)
}

// End deletes the session, or returns ErrSessionNotFound.
func (s *RedisStore) End(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	exists, err := s.client.SIsMember(ctx, s.indexKey(), id).Result()
	if err != nil {
		return fmt.Errorf("check session index: %w", err)
	}
	if !exists {
		return ErrSessionNotFound
	}

	return s.deleteLocked(ctx, id)
}

// ListActive sweeps expired sessions and returns a summary per remaining
// session. Redis sets are unordered; ids are sorted for determinism.
func (s *RedisStore) ListActive(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	if _, err := s.sweepLocked(ctx, s.now()); err != nil {
		return nil, err
	}

	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list session index: %w", err)
	}
	sort.Strings(ids)

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		meta, err := s.loadMeta(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				// Index entry outlived its metadata; repair it.
				s.client.SRem(ctx, s.indexKey(), id)
				continue
			}
			return nil, err
		}
		count, err := s.client.LLen(ctx, s.itemsKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("count items: %w", err)
		}
		summaries = append(summaries, Summary{
			SessionID:    meta.ID,
			CreatedAt:    meta.CreatedAt,
			LastActivity: meta.LastActivity,
			Hostnames:    meta.Hostnames,
			ItemCount:    int(count),
		})
	}

	return summaries, nil
}

// SweepExpired removes every session idle beyond the TTL and returns the
// number removed.
func (s *RedisStore) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	return s.sweepLocked(ctx, s.now())
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

// Ping checks if the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	return s.client.Ping(ctx).Err()
}

// getOrCreateLocked is the shared sweep + materialize + touch path. The
// caller must hold s.mu.
func (s *RedisStore) getOrCreateLocked(ctx context.Context, id, hostname string) (*redisMeta, error) {
	now := s.now()
	if _, err := s.sweepLocked(ctx, now); err != nil {
		return nil, err
	}

	meta, err := s.loadMeta(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		meta = &redisMeta{
			ID:        id,
			CreatedAt: now,
			Hostnames: []string{},
		}
		err = nil
	}
	if err != nil {
		return nil, err
	}

	meta.LastActivity = now
	if hostname != "" {
		present := false
		for _, h := range meta.Hostnames {
			if h == hostname {
				present = true
				break
			}
		}
		if !present {
			meta.Hostnames = append(meta.Hostnames, hostname)
		}
	}

	if err := s.saveMeta(ctx, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// sweepLocked removes expired sessions as of now. The caller must hold s.mu.
func (s *RedisStore) sweepLocked(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("list session index: %w", err)
	}

	removed := 0
	for _, id := range ids {
		meta, err := s.loadMeta(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				s.client.SRem(ctx, s.indexKey(), id)
				continue
			}
			return removed, err
		}
		if Expired(meta.LastActivity, now, s.cfg.TTL) {
			if err := s.deleteLocked(ctx, id); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (s *RedisStore) deleteLocked(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.metaKey(id))
	pipe.Del(ctx, s.itemsKey(id))
	pipe.SRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) saveMeta(ctx context.Context, meta *redisMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.metaKey(meta.ID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), meta.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) loadMeta(ctx context.Context, id string) (*redisMeta, error) {
	data, err := s.client.Get(ctx, s.metaKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var meta redisMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &meta, nil
}

func (s *RedisStore) loadItems(ctx context.Context, id string) ([]Item, error) {
	data, err := s.client.LRange(ctx, s.itemsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	items := make([]Item, 0, len(data))
	for _, d := range data {
		var item Item
		if err := json.Unmarshal([]byte(d), &item); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
