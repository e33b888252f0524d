// Package view держит состояние экрана работ отдельно от способа отрисовки.
package view

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"jobtracker/internal/client"
	"jobtracker/internal/models"

	"github.com/rs/zerolog"
)

type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

type ViewMode string

const (
	ViewModeGrid ViewMode = models.ViewModeGrid
	ViewModeList ViewMode = models.ViewModeList
)

// ErrBusy is returned when a create or delete is already in flight.
var ErrBusy = errors.New("another operation is in progress")

// JobsAPI is the subset of the jobs HTTP API the controller drives.
type JobsAPI interface {
	ListJobs(ctx context.Context) ([]models.Job, error)
	CreateJob(ctx context.Context, req client.CreateJobRequest) (*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

var _ JobsAPI = (*client.JobsClient)(nil)

type Draft struct {
	Title  string
	Client string
	Date   string
}

// State is a snapshot of everything the jobs screen renders.
type State struct {
	Phase         Phase
	Jobs          []models.Job
	Err           string
	Filter        string
	ViewMode      ViewMode
	Creating      bool
	Draft         Draft
	Authenticated bool
	Busy          bool
}

type Controller struct {
	mu     sync.Mutex
	api    JobsAPI
	state  State
	logger *zerolog.Logger
	now    func() time.Time
}

func NewController(api JobsAPI, logger *zerolog.Logger) *Controller {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	c := &Controller{
		api:    api,
		logger: logger,
		now:    time.Now,
	}
	c.state = State{
		Phase:    PhaseLoading,
		Jobs:     []models.Job{},
		ViewMode: ViewModeGrid,
		Draft:    c.emptyDraft(),
	}
	return c
}

// State returns a copy safe to read while operations run.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Jobs = append([]models.Job(nil), c.state.Jobs...)
	return st
}

// Load запрашивает список работ. Ошибка переводит экран в PhaseError.
func (c *Controller) Load(ctx context.Context) error {
	if !c.acquire() {
		return ErrBusy
	}
	c.mu.Lock()
	c.state.Phase = PhaseLoading
	c.mu.Unlock()

	jobs, err := c.api.ListJobs(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Busy = false
	if err != nil {
		c.fail(err, "Failed to fetch jobs")
		return err
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	c.state.Jobs = jobs
	c.state.Phase = PhaseReady
	return nil
}

func (c *Controller) SetFilter(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Filter = query
}

func (c *Controller) ToggleViewMode() ViewMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.ViewMode == ViewModeGrid {
		c.state.ViewMode = ViewModeList
	} else {
		c.state.ViewMode = ViewModeGrid
	}
	return c.state.ViewMode
}

func (c *Controller) SetAuthenticated(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Authenticated = ok
	if !ok {
		c.state.Creating = false
	}
}

// CanWrite reports whether create and delete controls are shown.
func (c *Controller) CanWrite() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Authenticated
}

// OpenCreate открывает форму; без входа ничего не делает.
func (c *Controller) OpenCreate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Authenticated {
		return false
	}
	c.state.Creating = true
	return true
}

func (c *Controller) CancelCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Creating = false
}

func (c *Controller) UpdateDraft(d Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Draft = d
}

// SubmitCreate отправляет черновик. Пустые title или client: no-op без запроса.
func (c *Controller) SubmitCreate(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Busy {
		c.mu.Unlock()
		return ErrBusy
	}
	draft := c.state.Draft
	if draft.Title == "" || draft.Client == "" {
		c.mu.Unlock()
		return nil
	}
	c.state.Busy = true
	c.mu.Unlock()

	job, err := c.api.CreateJob(ctx, client.CreateJobRequest{
		Title:  draft.Title,
		Client: draft.Client,
		Date:   draft.Date,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Busy = false
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to create job")
		c.fail(err, "Failed to create job")
		return err
	}
	c.state.Jobs = append(c.state.Jobs, *job)
	c.state.Draft = c.emptyDraft()
	c.state.Creating = false
	return nil
}

// Delete удаляет работу на сервере, затем из локального списка.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if !c.acquire() {
		return ErrBusy
	}

	err := c.api.DeleteJob(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Busy = false
	if err != nil {
		c.logger.Error().Err(err).Str("job_id", id).Msg("Failed to delete job")
		c.fail(err, "Failed to delete job")
		return err
	}
	kept := c.state.Jobs[:0:0]
	for _, j := range c.state.Jobs {
		if j.ID != id {
			kept = append(kept, j)
		}
	}
	c.state.Jobs = kept
	return nil
}

func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Err = ""
	if c.state.Phase == PhaseError {
		c.state.Phase = PhaseReady
	}
}

// Visible returns the jobs matching the filter by title or client, case-insensitively.
func (c *Controller) Visible() []models.Job {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := strings.ToLower(c.state.Filter)
	out := make([]models.Job, 0, len(c.state.Jobs))
	for _, j := range c.state.Jobs {
		if strings.Contains(strings.ToLower(j.Title), q) || strings.Contains(strings.ToLower(j.Client), q) {
			out = append(out, j)
		}
	}
	return out
}

func (c *Controller) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy {
		return false
	}
	c.state.Busy = true
	return true
}

// fail вызывается под c.mu.
func (c *Controller) fail(err error, fallback string) {
	c.state.Phase = PhaseError
	c.state.Err = displayMessage(err, fallback)
}

func (c *Controller) emptyDraft() Draft {
	return Draft{Date: c.now().Format(models.DateLayout)}
}

// displayMessage показывает текст сервера только для ошибок клиента.
func displayMessage(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusBadRequest &&
		apiErr.StatusCode < http.StatusInternalServerError && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
