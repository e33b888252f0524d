package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"jobtracker/internal/domain"
	"jobtracker/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const DefaultEndpoint = "https://sheets.googleapis.com/"

// SpreadsheetAccessError описывает неудачное обращение к Sheets API.
type SpreadsheetAccessError struct {
	SpreadsheetID string
	Range         string
	Op            string
	Err           error
}

func (e *SpreadsheetAccessError) Error() string {
	return fmt.Sprintf("spreadsheet %s %s %q: %v", e.Op, e.SpreadsheetID, e.Range, e.Err)
}

func (e *SpreadsheetAccessError) Unwrap() error { return e.Err }

func (e *SpreadsheetAccessError) Upstream() string { return "google_sheets" }

// StatusCode returns the HTTP status reported by Google, or 0 for transport failures.
func (e *SpreadsheetAccessError) StatusCode() int {
	var gerr *googleapi.Error
	if errors.As(e.Err, &gerr) {
		return gerr.Code
	}
	return 0
}

type Options struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a Sheets values client bound to one bearer token.
// The token can be swapped at any time; an empty token disables all calls.
type Client struct {
	mu      sync.RWMutex
	token   string
	source  oauth2.TokenSource
	srv     *sheets.Service
	timeout time.Duration
}

// NewClient builds a client without a token.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	c := &Client{timeout: opts.Timeout}
	if c.timeout <= 0 {
		c.timeout = models.DefaultSheetsTimeout * time.Second
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: c, Base: base.Transport},
		Timeout:   base.Timeout,
	}

	srv, err := sheets.NewService(ctx,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(normalizeEndpoint(opts.Endpoint)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	c.srv = srv
	return c, nil
}

// NewServiceAccountClient builds a client that authenticates with a service account key.
func NewServiceAccountClient(ctx context.Context, credentialsJSON []byte, opts Options) (*Client, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	c, err := NewClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	c.source = oauth2.ReuseTokenSource(nil, cfg.TokenSource(context.Background()))
	return c, nil
}

func normalizeEndpoint(endpoint string) string {
	if endpoint == "" {
		return DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return endpoint
}

// SetAuthToken заменяет токен; пустая строка означает "не авторизован".
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source != nil || c.token != ""
}

// Token implements oauth2.TokenSource for the transport.
func (c *Client) Token() (*oauth2.Token, error) {
	c.mu.RLock()
	source, token := c.source, c.token
	c.mu.RUnlock()

	if source != nil {
		return source.Token()
	}
	if token == "" {
		return nil, domain.ErrAuthRequired
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

func (c *Client) GetRange(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	if !c.HasToken() {
		return nil, domain.ErrAuthRequired
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.srv.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, accessError("get", spreadsheetID, rng, err)
	}
	if resp.Values == nil {
		return [][]interface{}{}, nil
	}
	return resp.Values, nil
}

// UpdateRange overwrites the range with values as entered (valueInputOption=RAW).
func (c *Client) UpdateRange(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (*domain.UpdateResult, error) {
	if !c.HasToken() {
		return nil, domain.ErrAuthRequired
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.srv.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return nil, accessError("update", spreadsheetID, rng, err)
	}

	return &domain.UpdateResult{
		SpreadsheetID:  resp.SpreadsheetId,
		UpdatedRange:   resp.UpdatedRange,
		UpdatedRows:    resp.UpdatedRows,
		UpdatedColumns: resp.UpdatedColumns,
		UpdatedCells:   resp.UpdatedCells,
	}, nil
}

func (c *Client) ClearRange(ctx context.Context, spreadsheetID, rng string) error {
	if !c.HasToken() {
		return domain.ErrAuthRequired
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.srv.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return accessError("clear", spreadsheetID, rng, err)
	}
	return nil
}

func accessError(op, spreadsheetID, rng string, err error) error {
	// транспорт мог вернуть ErrAuthRequired, если токен сбросили посреди запроса
	if errors.Is(err, domain.ErrAuthRequired) {
		return domain.ErrAuthRequired
	}
	return &SpreadsheetAccessError{SpreadsheetID: spreadsheetID, Range: rng, Op: op, Err: err}
}
