package repository

import (
	"context"
	"sync"
	"time"

	"jobtracker/internal/models"
)

type memoryEntry struct {
	record    models.SessionRecord
	expiresAt time.Time
}

// MemorySessionRepository keeps sessions in process memory with the same TTL semantics as Redis.
type MemorySessionRepository struct {
	sessions sync.Map
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (*models.SessionRecord, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.sessions.Delete(id)
		return nil, nil
	}
	rec := entry.record
	return &rec, nil
}

func (r *MemorySessionRepository) Save(_ context.Context, rec *models.SessionRecord) error {
	r.sessions.Store(rec.ID, &memoryEntry{record: *rec, expiresAt: r.now().Add(r.ttl)})
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}

// Sweep drops expired sessions and reports how many were removed.
func (r *MemorySessionRepository) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	now := r.now()
	removed := 0
	r.sessions.Range(func(key, val any) bool {
		if now.After(val.(*memoryEntry).expiresAt) {
			r.sessions.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
