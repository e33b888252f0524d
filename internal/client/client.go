package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobtracker/internal/models"
)

const DefaultSessionHeader = "X-Session-ID"

// JobsClient ходит в HTTP API трекера работ.
type JobsClient struct {
	BaseURL       string
	SessionID     string
	SessionHeader string
	HTTPClient    *http.Client
}

func NewJobsClient(baseURL, sessionID string) *JobsClient {
	return &JobsClient{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		SessionID:     sessionID,
		SessionHeader: DefaultSessionHeader,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type CreateJobRequest struct {
	Title  string `json:"title"`
	Client string `json:"client"`
	Date   string `json:"date"`
}

type SessionStatus struct {
	SessionID     string `json:"sessionId"`
	Authenticated bool   `json:"authenticated"`
}

func (c *JobsClient) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := c.do(ctx, http.MethodGet, "/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	return jobs, nil
}

func (c *JobsClient) CreateJob(ctx context.Context, req CreateJobRequest) (*models.Job, error) {
	var job models.Job
	if err := c.do(ctx, http.MethodPost, "/jobs", req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *JobsClient) DeleteJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, nil)
}

// SignIn обменивает access token на сессию и запоминает ее id.
func (c *JobsClient) SignIn(ctx context.Context, token string) (*SessionStatus, error) {
	var st SessionStatus
	if err := c.do(ctx, http.MethodPost, "/auth/session", map[string]string{"token": token}, &st); err != nil {
		return nil, err
	}
	c.SessionID = st.SessionID
	return &st, nil
}

func (c *JobsClient) Session(ctx context.Context) (*SessionStatus, error) {
	var st SessionStatus
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *JobsClient) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/auth/session", nil, nil)
}

func (c *JobsClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.SessionID != "" {
		header := c.SessionHeader
		if header == "" {
			header = DefaultSessionHeader
		}
		req.Header.Set(header, c.SessionID)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Code = payload.Code
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
