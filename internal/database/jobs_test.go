package database

import (
	"context"
	"testing"
	"time"

	"jobtracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(t *testing.T, title, date string) *models.Job {
	t.Helper()
	d, err := models.ParseDate(date)
	require.NoError(t, err)
	return &models.Job{
		ID:     uuid.NewString(),
		Title:  title,
		Client: "Acme",
		Date:   d,
		Status: models.JobStatusPending,
	}
}

func TestCreateAndGetJob(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	job := newTestJob(t, "Rig A", "2024-05-01")
	require.NoError(t, db.CreateJob(ctx, job))
	assert.False(t, job.CreatedAt.IsZero())

	got, err := db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rig A", got.Title)
	assert.Equal(t, "Acme", got.Client)
	assert.Equal(t, "2024-05-01", got.Date.String())
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, 0, got.EquipmentCount)
	assert.WithinDuration(t, job.CreatedAt, got.CreatedAt, time.Second)
}

func TestGetJob_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestCreateJob_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	job := newTestJob(t, "Rig A", "2024-05-01")
	require.NoError(t, db.CreateJob(ctx, job))

	dup := *job
	assert.Error(t, db.CreateJob(ctx, &dup))
}

func TestListJobs_Empty(t *testing.T) {
	db := setupTestDB(t)

	jobs, err := db.ListJobs(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Len(t, jobs, 0)
}

func TestListJobs_OrderAndCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	older := newTestJob(t, "Older", "2024-01-10")
	newer := newTestJob(t, "Newer", "2024-03-01")
	sameDayFirst := newTestJob(t, "Same day first", "2024-02-01")
	sameDaySecond := newTestJob(t, "Same day second", "2024-02-01")
	sameDaySecond.CreatedAt = time.Now().UTC().Add(time.Minute)

	for _, j := range []*models.Job{older, newer, sameDayFirst, sameDaySecond} {
		require.NoError(t, db.CreateJob(ctx, j))
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, db.AddEquipment(ctx, &models.Equipment{
			ID: uuid.NewString(), JobID: newer.ID, Name: "Cable", Category: "power", Quantity: 1,
		}))
	}
	require.NoError(t, db.AddEquipment(ctx, &models.Equipment{
		ID: uuid.NewString(), JobID: older.ID, Name: "Light", Category: "lighting", Quantity: 4,
	}))

	jobs, err := db.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	titles := make([]string, 0, len(jobs))
	for _, j := range jobs {
		titles = append(titles, j.Title)
	}
	assert.Equal(t, []string{"Newer", "Same day second", "Same day first", "Older"}, titles)
	assert.Equal(t, 3, jobs[0].EquipmentCount)
	assert.Equal(t, 0, jobs[1].EquipmentCount)
	assert.Equal(t, 1, jobs[3].EquipmentCount)
}

func TestDeleteJob(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	job := newTestJob(t, "Rig A", "2024-05-01")
	require.NoError(t, db.CreateJob(ctx, job))

	require.NoError(t, db.DeleteJob(ctx, job.ID))

	_, err := db.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	// повторное удаление
	assert.ErrorIs(t, db.DeleteJob(ctx, job.ID), ErrJobNotFound)
}

func TestDeleteJob_UnknownLeavesOthers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	job := newTestJob(t, "Rig A", "2024-05-01")
	require.NoError(t, db.CreateJob(ctx, job))

	assert.ErrorIs(t, db.DeleteJob(ctx, "unknown-id"), ErrJobNotFound)

	jobs, err := db.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}
