package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"jobtracker/internal/domain"
	"jobtracker/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionRepository uses primary until it fails, then serves from fallback
// and retries primary once per recoveryInterval.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// shouldProbe сообщает, пора ли снова попробовать основной репозиторий.
func (r *FailoverSessionRepository) shouldProbe() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverSessionRepository) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	if r.shouldProbe() {
		rec, err := r.primary.Get(ctx, id)
		if err == nil {
			if r.isDown.Swap(false) {
				r.logger.Info().Msg("Primary session repository recovered")
			}
			if rec != nil {
				return rec, nil
			}
			// сессия могла быть создана, пока основной был недоступен
			return r.fallback.Get(ctx, id)
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, id)
}

func (r *FailoverSessionRepository) Save(ctx context.Context, rec *models.SessionRecord) error {
	if !r.isDown.Load() {
		err := r.primary.Save(ctx, rec)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Save(ctx, rec)
}

func (r *FailoverSessionRepository) Delete(ctx context.Context, id string) error {
	// удаляем из обоих, чтобы не воскресить сессию после восстановления
	fbErr := r.fallback.Delete(ctx, id)
	if !r.isDown.Load() {
		if err := r.primary.Delete(ctx, id); err != nil {
			r.markDown(err)
		}
	}
	return fbErr
}
