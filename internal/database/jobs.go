package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jobtracker/internal/models"
)

const jobColumns = `
        SELECT j.id, j.title, j.client, j.date, j.status, COUNT(e.id), j.created_at, j.updated_at
        FROM jobs j
        LEFT JOIN equipment e ON e.job_id = j.id`

// CreateJob сохраняет новую работу. Идентификатор и статус выставляет сервис.
func (db *DB) CreateJob(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}

	query := `
        INSERT INTO jobs (id, title, client, date, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := db.ExecContext(ctx, query,
		job.ID,
		job.Title,
		job.Client,
		job.Date,
		string(job.Status),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	job.EquipmentCount = 0
	db.logger.Debug().Str("job_id", job.ID).Msg("job created")
	return nil
}

// GetJob возвращает работу вместе с количеством оборудования.
func (db *DB) GetJob(ctx context.Context, id string) (*models.Job, error) {
	query := jobColumns + `
        WHERE j.id = ?
        GROUP BY j.id
    `
	job, err := scanJob(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs возвращает все работы, новые даты первыми.
func (db *DB) ListJobs(ctx context.Context) ([]*models.Job, error) {
	query := jobColumns + `
        GROUP BY j.id
        ORDER BY j.date DESC, j.created_at DESC
    `
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*models.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// DeleteJob удаляет работу; оборудование уходит каскадом.
func (db *DB) DeleteJob(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}

	db.logger.Debug().Str("job_id", id).Msg("job deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job    models.Job
		status string
	)
	err := row.Scan(
		&job.ID,
		&job.Title,
		&job.Client,
		&job.Date,
		&status,
		&job.EquipmentCount,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)
	return &job, nil
}
