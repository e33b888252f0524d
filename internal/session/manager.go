package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"jobtracker/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClientFactory builds the spreadsheet client owned by a new session.
type ClientFactory func(ctx context.Context) (domain.SpreadsheetClient, error)

// Manager creates, restores and persists sessions.
// Live sessions are cached per process so each keeps its own spreadsheet client.
type Manager struct {
	repo      domain.SessionRepository
	verifier  TokenVerifier
	newClient ClientFactory
	logger    *zerolog.Logger
	live      sync.Map
	now       func() time.Time
	newID     func() string
}

func NewManager(repo domain.SessionRepository, verifier TokenVerifier, newClient ClientFactory, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{
		repo:      repo,
		verifier:  verifier,
		newClient: newClient,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s, err := m.build(ctx, m.newID(), m.now())
	if err != nil {
		return nil, err
	}
	if err := m.repo.Save(ctx, s.Record(m.now())); err != nil {
		return nil, &domain.InfraError{Op: "save session", Err: err}
	}
	m.live.Store(s.ID(), s)
	m.logger.Debug().Str("session_id", s.ID()).Msg("session created")
	return s, nil
}

// Get restores a session by id. Unknown or expired ids yield a NotFoundError.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &domain.NotFoundError{Resource: "session", ID: id}
	}

	rec, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, &domain.InfraError{Op: "load session", Err: err}
	}
	if rec == nil {
		if v, ok := m.live.LoadAndDelete(id); ok {
			v.(*Session).SignOut()
		}
		return nil, &domain.NotFoundError{Resource: "session", ID: id}
	}

	if v, ok := m.live.Load(id); ok {
		s := v.(*Session)
		s.apply(rec)
		return s, nil
	}

	s, err := m.build(ctx, rec.ID, rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.apply(rec)
	actual, _ := m.live.LoadOrStore(id, s)
	return actual.(*Session), nil
}

// SignIn verifies the token and signs the session in. An empty id creates a new session.
func (m *Manager) SignIn(ctx context.Context, id, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.NewValidationError("token", "token is required")
	}
	if m.verifier == nil {
		return nil, domain.ErrAuthNotConfigured
	}
	if err := m.verifier.Verify(ctx, token); err != nil {
		m.logger.Warn().Err(err).Msg("token verification failed")
		return nil, err
	}

	var (
		s   *Session
		err error
	)
	if strings.TrimSpace(id) == "" {
		s, err = m.Create(ctx)
	} else {
		s, err = m.Get(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	if err := s.SignIn(token); err != nil {
		return nil, err
	}
	if err := m.repo.Save(ctx, s.Record(m.now())); err != nil {
		return nil, &domain.InfraError{Op: "save session", Err: err}
	}
	m.logger.Info().Str("session_id", s.ID()).Msg("signed in")
	return s, nil
}

func (m *Manager) SignOut(ctx context.Context, id string) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return err
	}

	s.SignOut()
	if err := m.repo.Save(ctx, s.Record(m.now())); err != nil {
		return &domain.InfraError{Op: "save session", Err: err}
	}
	m.logger.Info().Str("session_id", s.ID()).Msg("signed out")
	return nil
}

// Delete forgets the session entirely.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if v, ok := m.live.LoadAndDelete(id); ok {
		v.(*Session).SignOut()
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return &domain.InfraError{Op: "delete session", Err: err}
	}
	return nil
}

func (m *Manager) build(ctx context.Context, id string, createdAt time.Time) (*Session, error) {
	var client domain.SpreadsheetClient
	if m.newClient != nil {
		c, err := m.newClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create spreadsheet client: %w", err)
		}
		client = c
	}
	return New(id, client, createdAt), nil
}
