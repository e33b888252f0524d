package session

import (
	"strings"
	"sync"
	"time"

	"jobtracker/internal/domain"
	"jobtracker/internal/models"
)

// Session is one client's sign-in state plus its own spreadsheet client.
// SignIn and SignOut push the token change to the client before returning.
type Session struct {
	mu            sync.RWMutex
	id            string
	authenticated bool
	token         string
	createdAt     time.Time
	sheets        domain.SpreadsheetClient
}

func New(id string, sheets domain.SpreadsheetClient, createdAt time.Time) *Session {
	return &Session{id: id, sheets: sheets, createdAt: createdAt}
}

func (s *Session) ID() string { return s.id }

func (s *Session) SignIn(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError("token", "token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	s.token = token
	if s.sheets != nil {
		s.sheets.SetAuthToken(token)
	}
	return nil
}

func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
	s.token = ""
	if s.sheets != nil {
		s.sheets.SetAuthToken("")
	}
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Sheets() domain.SpreadsheetClient {
	return s.sheets
}

// Record snapshots the session for storage.
func (s *Session) Record(now time.Time) *models.SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &models.SessionRecord{
		ID:            s.id,
		Authenticated: s.authenticated,
		Token:         s.token,
		CreatedAt:     s.createdAt,
		UpdatedAt:     now,
	}
}

// apply приводит живую сессию к сохраненному состоянию.
func (s *Session) apply(rec *models.SessionRecord) {
	if rec.Authenticated && rec.Token != "" {
		if s.Token() != rec.Token {
			_ = s.SignIn(rec.Token)
		}
		return
	}
	if s.IsAuthenticated() || s.Token() != "" {
		s.SignOut()
	}
}
