package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"jobtracker/internal/database"
	"jobtracker/internal/domain"
	"jobtracker/internal/events"
	"jobtracker/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CreateJobInput is the raw create request as submitted by a client.
type CreateJobInput struct {
	Title  string `json:"title"`
	Client string `json:"client"`
	Date   string `json:"date"`
}

type AddEquipmentInput struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Notes    *string `json:"notes,omitempty"`
}

type JobService struct {
	repo     domain.JobRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
	newID    func() string
}

func NewJobService(repo domain.JobRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *JobService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &JobService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func (s *JobService) CreateJob(ctx context.Context, in CreateJobInput) (*models.Job, error) {
	title := strings.TrimSpace(in.Title)
	client := strings.TrimSpace(in.Client)

	verr := &domain.ValidationError{}
	if title == "" {
		verr.Add("title", "title is required")
	}
	if client == "" {
		verr.Add("client", "client is required")
	}

	var date models.Date
	if strings.TrimSpace(in.Date) == "" {
		verr.Add("date", "date is required")
	} else if parsed, err := models.ParseDate(in.Date); err != nil {
		verr.Add("date", "date must be YYYY-MM-DD")
	} else {
		date = parsed
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	job := &models.Job{
		ID:        s.newID(),
		Title:     title,
		Client:    client,
		Date:      date,
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, &domain.InfraError{Op: "create job", Err: err}
	}

	s.logger.Info().Str("job_id", job.ID).Str("title", job.Title).Msg("job created")
	s.publish(events.EventJobCreated, events.NewJobPayload(job, "api"))
	return job, nil
}

func (s *JobService) ListJobs(ctx context.Context) ([]*models.Job, error) {
	jobs, err := s.repo.ListJobs(ctx)
	if err != nil {
		return nil, &domain.InfraError{Op: "list jobs", Err: err}
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	return jobs, nil
}

func (s *JobService) GetJob(ctx context.Context, id string) (*models.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("id", "id is required")
	}
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, s.storeError("get job", id, err)
	}
	return job, nil
}

// DeleteJob удаляет работу вместе с ее оборудованием.
func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.NewValidationError("id", "id is required")
	}

	if err := s.repo.DeleteJob(ctx, id); err != nil {
		return s.storeError("delete job", id, err)
	}

	s.logger.Info().Str("job_id", id).Msg("job deleted")
	s.publish(events.EventJobDeleted, events.JobEventPayload{JobID: id, ChangedBy: "api"})
	return nil
}

func (s *JobService) AddEquipment(ctx context.Context, jobID string, in AddEquipmentInput) (*models.Equipment, error) {
	jobID = strings.TrimSpace(jobID)

	verr := &domain.ValidationError{}
	if jobID == "" {
		verr.Add("jobId", "job id is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.Add("name", "name is required")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		verr.Add("category", "category is required")
	}
	if in.Quantity <= 0 {
		verr.Add("quantity", "quantity must be positive")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var notes *string
	if in.Notes != nil {
		if trimmed := strings.TrimSpace(*in.Notes); trimmed != "" {
			notes = &trimmed
		}
	}

	eq := &models.Equipment{
		ID:        s.newID(),
		JobID:     jobID,
		Name:      name,
		Category:  category,
		Quantity:  in.Quantity,
		Notes:     notes,
		CreatedAt: s.now(),
	}
	if err := s.repo.AddEquipment(ctx, eq); err != nil {
		return nil, s.storeError("add equipment", jobID, err)
	}

	s.publish(events.EventEquipmentAdded, events.JobEventPayload{JobID: jobID, ChangedBy: "api"})
	return eq, nil
}

func (s *JobService) ListEquipment(ctx context.Context, jobID string) ([]*models.Equipment, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListEquipment(ctx, strings.TrimSpace(jobID))
	if err != nil {
		return nil, &domain.InfraError{Op: "list equipment", Err: err}
	}
	if items == nil {
		items = []*models.Equipment{}
	}
	return items, nil
}

func (s *JobService) storeError(op, id string, err error) error {
	if errors.Is(err, database.ErrJobNotFound) {
		return &domain.NotFoundError{Resource: "job", ID: id}
	}
	return &domain.InfraError{Op: op, Err: err}
}

func (s *JobService) publish(eventType string, payload events.JobEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Str("job_id", payload.JobID).Msg("event handler failed")
	}
}
