package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"jobtracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/sheets/v4"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   []byte
}

type fakeSheets struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	})
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeSheets) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeSheets) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func setupFakeSheets(t *testing.T, handler http.HandlerFunc) (*fakeSheets, *Client) {
	t.Helper()
	fake := &fakeSheets{handler: handler}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	c, err := NewClient(context.Background(), Options{Endpoint: server.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return fake, c
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_NoTokenNoNetwork(t *testing.T) {
	fake, c := setupFakeSheets(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, sheets.ValueRange{})
	})
	ctx := context.Background()

	_, err := c.GetRange(ctx, "sheet-1", "Jobs!A1:B2")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = c.UpdateRange(ctx, "sheet-1", "Jobs!A1:B2", [][]interface{}{{"a"}})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	assert.ErrorIs(t, c.ClearRange(ctx, "sheet-1", "Jobs!A2:Z"), domain.ErrAuthRequired)
	assert.Equal(t, 0, fake.count())
}

func TestClient_GetRange(t *testing.T) {
	fake, c := setupFakeSheets(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, sheets.ValueRange{
			Range:  "Jobs!A1:B2",
			Values: [][]interface{}{{"Title", "Client"}, {"Rig A", "Acme"}},
		})
	})
	c.SetAuthToken("tok-1")

	values, err := c.GetRange(context.Background(), "sheet-1", "Jobs!A1:B2")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "Rig A", values[1][0])

	req := fake.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Jobs!A1:B2", req.Path)
	assert.Equal(t, "Bearer tok-1", req.Auth)
}

func TestClient_GetRange_EmptyValues(t *testing.T) {
	_, c := setupFakeSheets(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, sheets.ValueRange{Range: "Jobs!A1:B2"})
	})
	c.SetAuthToken("tok")

	values, err := c.GetRange(context.Background(), "sheet-1", "Jobs!A1:B2")
	require.NoError(t, err)
	assert.NotNil(t, values)
	assert.Empty(t, values)
}

func TestClient_UpdateRange(t *testing.T) {
	fake, c := setupFakeSheets(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, sheets.UpdateValuesResponse{
			SpreadsheetId:  "sheet-1",
			UpdatedRange:   "Jobs!A1:B2",
			UpdatedRows:    2,
			UpdatedColumns: 2,
			UpdatedCells:   4,
		})
	})
	c.SetAuthToken("tok-1")

	res, err := c.UpdateRange(context.Background(), "sheet-1", "Jobs!A1:B2", [][]interface{}{{"a", "b"}, {"c", "d"}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.UpdatedCells)
	assert.Equal(t, "Jobs!A1:B2", res.UpdatedRange)

	req := fake.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Contains(t, req.Query, "valueInputOption=RAW")

	var body sheets.ValueRange
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, [][]interface{}{{"a", "b"}, {"c", "d"}}, body.Values)
}

func TestClient_TokenSwap(t *testing.T) {
	fake, c := setupFakeSheets(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, sheets.ValueRange{})
	})
	ctx := context.Background()

	c.SetAuthToken("first")
	_, err := c.GetRange(ctx, "s", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer first", fake.last().Auth)

	c.SetAuthToken("second")
	_, err = c.GetRange(ctx, "s", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer second", fake.last().Auth)

	c.SetAuthToken("")
	_, err = c.GetRange(ctx, "s", "A1")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Equal(t, 2, fake.count())
}

func TestClient_UpstreamError(t *testing.T) {
	_, c := setupFakeSheets(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`))
	})
	c.SetAuthToken("tok")

	_, err := c.GetRange(context.Background(), "sheet-1", "Jobs!A1:B2")
	require.Error(t, err)

	var accessErr *SpreadsheetAccessError
	require.True(t, errors.As(err, &accessErr))
	assert.Equal(t, "sheet-1", accessErr.SpreadsheetID)
	assert.Equal(t, "Jobs!A1:B2", accessErr.Range)
	assert.Equal(t, "get", accessErr.Op)
	assert.Equal(t, http.StatusForbidden, accessErr.StatusCode())
	assert.True(t, domain.IsUpstream(err))
}

func TestClient_Timeout(t *testing.T) {
	fake := &fakeSheets{handler: func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}}
	server := httptest.NewServer(fake)
	defer server.Close()

	c, err := NewClient(context.Background(), Options{Endpoint: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	c.SetAuthToken("tok")

	start := time.Now()
	_, err = c.GetRange(context.Background(), "s", "A1")
	assert.True(t, domain.IsUpstream(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewServiceAccountClient_BadJSON(t *testing.T) {
	_, err := NewServiceAccountClient(context.Background(), []byte("not json"), Options{})
	assert.Error(t, err)
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, DefaultEndpoint, normalizeEndpoint(""))
	assert.Equal(t, "http://localhost:1/", normalizeEndpoint("http://localhost:1"))
}
