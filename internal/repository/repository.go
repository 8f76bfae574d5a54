// Package repository implements the Session Repository (spec C8): an
// external collaborator storing Sessions and their trace events.
// Create/Get/List/Append with snapshot-consistent reads.
//
// Grounded on the teacher's cache.RedisClient
// (internal/cache/redis.go — JSON-serialize-then-Set/Get over a raw
// *redis.Client) for the Redis-backed implementation, and on its
// in-memory test doubles for the default implementation.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/vasic-digital/council/internal/events"
	"github.com/vasic-digital/council/internal/models"
)

// ErrNotFound is returned by Get when no session exists for the id.
var ErrNotFound = errors.New("repository: session not found")

// Repository is the C8 contract (spec.md §4.8 / §6.3).
type Repository interface {
	Create(ctx context.Context, session models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	List(ctx context.Context, limit int) ([]models.Session, error)
	Append(ctx context.Context, id string, event events.TraceEvent) error
	Update(ctx context.Context, session models.Session) error
}

// memoryRepository is the default in-memory implementation. Each
// session id gets a private copy to guarantee Get returns a
// snapshot-consistent, independently mutable value.
type memoryRepository struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	order    []string
}

// NewMemoryRepository builds the default in-memory Repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{sessions: make(map[string]models.Session)}
}

func (r *memoryRepository) Create(ctx context.Context, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.ID]; !exists {
		r.order = append(r.order, session.ID)
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *memoryRepository) Update(ctx context.Context, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.ID]; !exists {
		return ErrNotFound
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *memoryRepository) Get(ctx context.Context, id string) (models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	return s, nil
}

func (r *memoryRepository) List(ctx context.Context, limit int) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) Append(ctx context.Context, id string, event events.TraceEvent) error {
	// Trace events themselves are persisted by the events.Bus's own
	// Store (spec.md §4.7); Append on the session repository only
	// needs to keep Session.UpdatedAt coherent so List/Get reflect
	// recent activity.
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.UpdatedAt = event.Timestamp
	r.sessions[id] = s
	return nil
}

// redisRepository persists sessions as JSON blobs in Redis, grounded
// on the teacher's cache.RedisClient Set/Get-with-JSON pattern. As in
// the in-memory repository, Append stores no trace event itself; it
// reads the session and rewrites it with UpdatedAt set to the event's
// timestamp.
type redisRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRepository builds a Repository backed by an existing
// *redis.Client (construct with miniredis in tests).
func NewRedisRepository(client *redis.Client, keyPrefix string) Repository {
	if keyPrefix == "" {
		keyPrefix = "council:session:"
	}
	return &redisRepository{client: client, keyPrefix: keyPrefix}
}

func (r *redisRepository) sessionKey(id string) string { return r.keyPrefix + id }
func (r *redisRepository) indexKey() string            { return r.keyPrefix + "index" }

func (r *redisRepository) Create(ctx context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("repository: marshal session: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(session.ID), data, 0)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(session.CreatedAt.Unix()), Member: session.ID})
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) Update(ctx context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("repository: marshal session: %w", err)
	}
	return r.client.Set(ctx, r.sessionKey(session.ID), data, 0).Err()
}

func (r *redisRepository) Get(ctx context.Context, id string) (models.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return models.Session{}, fmt.Errorf("repository: unmarshal session: %w", err)
	}
	return s, nil
}

func (r *redisRepository) List(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *redisRepository) Append(ctx context.Context, id string, event events.TraceEvent) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	s.UpdatedAt = event.Timestamp
	return r.Update(ctx, s)
}
