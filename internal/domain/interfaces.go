package domain

import (
	"context"

	"jobtracker/internal/models"
)

type JobRepository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context) ([]*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
	AddEquipment(ctx context.Context, eq *models.Equipment) error
	ListEquipment(ctx context.Context, jobID string) ([]*models.Equipment, error)
}

type SessionRepository interface {
	Get(ctx context.Context, id string) (*models.SessionRecord, error)
	Save(ctx context.Context, rec *models.SessionRecord) error
	Delete(ctx context.Context, id string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SpreadsheetClient reads and writes rectangular value ranges.
type SpreadsheetClient interface {
	SetAuthToken(token string)
	GetRange(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
	UpdateRange(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (*UpdateResult, error)
}

// UpdateResult is the confirmation payload of a range overwrite.
type UpdateResult struct {
	SpreadsheetID  string `json:"spreadsheetId"`
	UpdatedRange   string `json:"updatedRange"`
	UpdatedRows    int64  `json:"updatedRows"`
	UpdatedColumns int64  `json:"updatedColumns"`
	UpdatedCells   int64  `json:"updatedCells"`
}

type JobsSheetWriter interface {
	ReplaceJobs(ctx context.Context, jobs []*models.Job) error
}

type SyncWorker interface {
	EnqueueExport(ctx context.Context, reason string) error
}
