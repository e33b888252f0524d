package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobtracker/internal/domain"

	"google.golang.org/api/googleapi"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Scopes requested by the sign-in flow.
var Scopes = []string{
	sheets.SpreadsheetsReadonlyScope,
	oauth2api.UserinfoProfileScope,
	oauth2api.UserinfoEmailScope,
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

// TokeninfoError означает, что tokeninfo недоступен, а не что токен плохой.
type TokeninfoError struct {
	Err error
}

func (e *TokeninfoError) Error() string { return "tokeninfo: " + e.Err.Error() }

func (e *TokeninfoError) Unwrap() error { return e.Err }

func (e *TokeninfoError) Upstream() string { return "google_oauth2" }

// GoogleVerifier checks access tokens against Google's tokeninfo endpoint.
type GoogleVerifier struct {
	clientID string
	srv      *oauth2api.Service
	timeout  time.Duration
}

func NewGoogleVerifier(ctx context.Context, clientID string, timeout time.Duration, opts ...option.ClientOption) (*GoogleVerifier, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, domain.ErrAuthNotConfigured
	}
	// tokeninfo не требует учетных данных
	opts = append([]option.ClientOption{option.WithoutAuthentication()}, opts...)
	srv, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create oauth2 service: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleVerifier{clientID: clientID, srv: srv, timeout: timeout}, nil
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	info, err := v.srv.Tokeninfo().AccessToken(token).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusBadRequest || gerr.Code == http.StatusUnauthorized) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
		}
		return &TokeninfoError{Err: err}
	}
	if info.Audience != v.clientID && info.IssuedTo != v.clientID {
		return fmt.Errorf("%w: issued to another client", domain.ErrInvalidToken)
	}
	if info.ExpiresIn <= 0 {
		return fmt.Errorf("%w: expired", domain.ErrInvalidToken)
	}
	if !hasSheetsScope(info.Scope) {
		return fmt.Errorf("%w: spreadsheets scope not granted", domain.ErrInvalidToken)
	}
	return nil
}

func hasSheetsScope(scope string) bool {
	for _, s := range strings.Fields(scope) {
		if s == sheets.SpreadsheetsScope || s == sheets.SpreadsheetsReadonlyScope {
			return true
		}
	}
	return false
}

// NoopVerifier accepts any non-empty token.
type NoopVerifier struct{}

func (NoopVerifier) Verify(_ context.Context, _ string) error { return nil }
