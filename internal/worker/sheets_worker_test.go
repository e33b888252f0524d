package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"jobtracker/internal/config"
	"jobtracker/internal/database"
	"jobtracker/internal/events"
	"jobtracker/internal/models"
	"jobtracker/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobs struct {
	jobs []*models.Job
	err  error
}

func (f *fakeJobs) ListJobs(context.Context) ([]*models.Job, error) {
	return f.jobs, f.err
}

type fakeSheet struct {
	mu    sync.Mutex
	err   error
	calls int
	last  []*models.Job
}

func (f *fakeSheet) ReplaceJobs(_ context.Context, jobs []*models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = jobs
	return f.err
}

func (f *fakeSheet) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		Enabled:      true,
		MaxRetries:   3,
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		PollInterval: 20 * time.Millisecond,
		QueueKey:     "sheets:sync:queue",
		DeadLetter:   "sheets:sync:dead",
	}
}

func sampleJobs() []*models.Job {
	return []*models.Job{{ID: "j1", Title: "Rig A", Client: "Acme", Status: models.JobStatusPending}}
}

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	sheet := &fakeSheet{}
	w := NewSheetsWorker(db, &fakeJobs{jobs: sampleJobs()}, sheet, nil, testSyncConfig(), nil)

	ctx := context.Background()
	require.NoError(t, w.EnqueueExport(ctx, "manual"))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, TaskExportJobs, task.TaskType)

	w.processTask(ctx, &task)

	stored, err := db.GetSyncTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Nil(t, stored.NextRetryAt)
	assert.Equal(t, 1, sheet.callCount())
	require.Len(t, sheet.last, 1)
	assert.Equal(t, "Rig A", sheet.last[0].Title)

	// повторная обработка завершенной задачи ничего не делает
	w.processTask(ctx, &task)
	assert.Equal(t, 1, sheet.callCount())
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	sheet := &fakeSheet{err: errors.New("quota exceeded")}
	w := NewSheetsWorker(db, &fakeJobs{jobs: sampleJobs()}, sheet, nil, testSyncConfig(), nil)

	ctx := context.Background()
	require.NoError(t, w.EnqueueExport(ctx, "manual"))
	task, ok := w.tryLocalQueue()
	require.True(t, ok)

	w.processTask(ctx, &task)

	stored, err := db.GetSyncTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusRetry, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.After(time.Now().UTC()))
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "quota exceeded")

	// не раньше next_retry_at
	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessTaskRespectsBackoff(t *testing.T) {
	db := newTestDB(t)
	sheet := &fakeSheet{err: errors.New("quota exceeded")}
	w := NewSheetsWorker(db, &fakeJobs{jobs: sampleJobs()}, sheet, nil, testSyncConfig(), nil)

	ctx := context.Background()
	require.NoError(t, w.EnqueueExport(ctx, "manual"))
	task, ok := w.tryLocalQueue()
	require.True(t, ok)

	w.processTask(ctx, &task)
	require.Equal(t, 1, sheet.callCount())

	// та же задача пришла из очереди повторно до истечения бэкоффа
	w.processTask(ctx, &task)
	assert.Equal(t, 1, sheet.callCount())

	stored, err := db.GetSyncTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusRetry, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)

	// после next_retry_at задача выполняется
	require.NotNil(t, stored.NextRetryAt)
	due := *stored.NextRetryAt
	w.now = func() time.Time { return due.Add(time.Second) }
	sheet.mu.Lock()
	sheet.err = nil
	sheet.mu.Unlock()

	w.processTask(ctx, &task)
	assert.Equal(t, 2, sheet.callCount())

	stored, err = db.GetSyncTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, stored.Status)
}

func TestProcessTaskFailToDeadLetter(t *testing.T) {
	s := miniredis.RunT(t)
	client := repository.NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer repository.Close(client)

	db := newTestDB(t)
	cfg := testSyncConfig()
	cfg.MaxRetries = 1
	w := NewSheetsWorker(db, &fakeJobs{err: errors.New("db down")}, &fakeSheet{}, client, cfg, nil)

	ctx := context.Background()
	require.NoError(t, w.EnqueueExport(ctx, "manual"))

	task, ok := w.tryRedis(ctx)
	require.True(t, ok)
	w.processTask(ctx, &task)

	stored, err := db.GetSyncTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, stored.Status)

	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	dead, err := s.List(cfg.DeadLetter)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	var deadTask models.SyncTask
	require.NoError(t, json.Unmarshal([]byte(dead[0]), &deadTask))
	assert.Equal(t, task.ID, deadTask.ID)
}

func TestProcessTaskUnknownType(t *testing.T) {
	db := newTestDB(t)
	w := NewSheetsWorker(db, &fakeJobs{}, &fakeSheet{}, nil, testSyncConfig(), nil)

	ctx := context.Background()
	task := models.SyncTask{TaskType: "upsert", Payload: "{}", Status: models.SyncStatusPending}
	require.NoError(t, db.CreateSyncTask(ctx, &task))

	w.processTask(ctx, &task)

	stored, err := db.GetSyncTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, stored.Status)
}

func TestEnqueueExport_Redis(t *testing.T) {
	s := miniredis.RunT(t)
	client := repository.NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer repository.Close(client)

	db := newTestDB(t)
	w := NewSheetsWorker(db, &fakeJobs{}, &fakeSheet{}, client, testSyncConfig(), nil)

	require.NoError(t, w.EnqueueExport(context.Background(), "manual"))

	queued, err := s.List("sheets:sync:queue")
	require.NoError(t, err)
	assert.Len(t, queued, 1)

	_, ok := w.tryLocalQueue()
	assert.False(t, ok)
}

func TestEnqueueExport_RedisDownFallsBackToMemory(t *testing.T) {
	// никто не слушает этот порт
	client := repository.NewRedisClient(config.RedisConfig{Address: "127.0.0.1:1"})
	defer repository.Close(client)

	db := newTestDB(t)
	w := NewSheetsWorker(db, &fakeJobs{}, &fakeSheet{}, client, testSyncConfig(), nil)

	require.NoError(t, w.EnqueueExport(context.Background(), "manual"))
	_, ok := w.tryLocalQueue()
	assert.True(t, ok)
}

func TestEnqueueExport_RequiresReason(t *testing.T) {
	w := NewSheetsWorker(newTestDB(t), &fakeJobs{}, &fakeSheet{}, nil, testSyncConfig(), nil)
	assert.Error(t, w.EnqueueExport(context.Background(), ""))
}

func TestSubscribe(t *testing.T) {
	db := newTestDB(t)
	w := NewSheetsWorker(db, &fakeJobs{}, &fakeSheet{}, nil, testSyncConfig(), nil)

	bus := events.NewEventBus()
	w.Subscribe(bus)

	require.NoError(t, bus.PublishJSON(events.EventJobCreated, events.JobEventPayload{JobID: "j1"}))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, "j1", task.JobID)

	var payload exportPayload
	require.NoError(t, json.Unmarshal([]byte(task.Payload), &payload))
	assert.Equal(t, events.EventJobCreated, payload.Reason)
}

func TestStartProcessesQueue(t *testing.T) {
	db := newTestDB(t)
	sheet := &fakeSheet{}
	w := NewSheetsWorker(db, &fakeJobs{jobs: sampleJobs()}, sheet, nil, testSyncConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.NoError(t, w.EnqueueExport(context.Background(), "manual"))
	assert.Eventually(t, func() bool { return sheet.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStartPicksUpPersistedTasks(t *testing.T) {
	db := newTestDB(t)
	sheet := &fakeSheet{}
	ctx := context.Background()

	// задача осталась в БД после рестарта
	task := models.SyncTask{TaskType: TaskExportJobs, Payload: `{"reason":"restart"}`, Status: models.SyncStatusPending}
	require.NoError(t, db.CreateSyncTask(ctx, &task))

	w := NewSheetsWorker(db, &fakeJobs{jobs: sampleJobs()}, sheet, nil, testSyncConfig(), nil)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go w.Start(runCtx)

	assert.Eventually(t, func() bool {
		stored, err := db.GetSyncTask(ctx, task.ID)
		return err == nil && stored.Status == models.SyncStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRetryPolicy(t *testing.T) {
	p := PolicyFromConfig(config.SyncConfig{})
	assert.Equal(t, 5, p.MaxRetries)
	assert.Equal(t, 2*time.Second, p.NextDelay(1))
	assert.Equal(t, 4*time.Second, p.NextDelay(2))
	assert.Equal(t, time.Minute, p.NextDelay(10))
	assert.Equal(t, 2*time.Second, p.NextDelay(0))
	assert.False(t, p.Exhausted(4))
	assert.True(t, p.Exhausted(5))
}
