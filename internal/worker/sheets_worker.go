package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobtracker/internal/config"
	"jobtracker/internal/domain"
	"jobtracker/internal/events"
	"jobtracker/internal/metrics"
	"jobtracker/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TaskExportJobs выгружает весь список работ в таблицу.
const TaskExportJobs = "export_jobs"

// TaskStore is the sync_queue part of the database.
type TaskStore interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetSyncTask(ctx context.Context, id int64) (*models.SyncTask, error)
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

type JobsSource interface {
	ListJobs(ctx context.Context) ([]*models.Job, error)
}

// exportPayload is persisted in SyncTask.Payload as JSON.
type exportPayload struct {
	Reason string `json:"reason"`
	JobID  string `json:"job_id,omitempty"`
}

// SheetsWorker consumes sync_queue tasks and mirrors jobs into Google Sheets.
type SheetsWorker struct {
	store         TaskStore
	jobs          JobsSource
	sheets        domain.JobsSheetWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
	now           func() time.Time
}

// NewSheetsWorker builds a worker; redisClient may be nil.
func NewSheetsWorker(store TaskStore, jobs JobsSource, sheets domain.JobsSheetWriter, redisClient *redis.Client, cfg config.SyncConfig, logger *zerolog.Logger) *SheetsWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	w := &SheetsWorker{
		store:         store,
		jobs:          jobs,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   PolicyFromConfig(cfg),
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: cfg.QueueKey,
		deadLetterKey: cfg.DeadLetter,
		pollInterval:  cfg.PollInterval,
		batchSize:     20,
		logger:        logger,
		now:           time.Now,
	}
	if w.redisQueueKey == "" {
		w.redisQueueKey = "sheets:sync:queue"
	}
	if w.deadLetterKey == "" {
		w.deadLetterKey = "sheets:sync:dead"
	}
	if w.pollInterval <= 0 {
		w.pollInterval = 30 * time.Second
	}
	return w
}

// EnqueueExport persists an export task and schedules it via redis or the in-memory queue.
func (w *SheetsWorker) EnqueueExport(ctx context.Context, reason string) error {
	return w.enqueue(ctx, exportPayload{Reason: reason})
}

func (w *SheetsWorker) enqueue(ctx context.Context, payload exportPayload) error {
	if payload.Reason == "" {
		return errors.New("export reason is required")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  TaskExportJobs,
		JobID:     payload.JobID,
		Payload:   string(payloadBytes),
		Status:    models.SyncStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.store.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushList(ctx, w.redisQueueKey, &task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}
	return nil
}

// Subscribe ставит выгрузку на каждое изменение работ.
func (w *SheetsWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(w.handleEvent, events.EventJobCreated, events.EventJobDeleted, events.EventEquipmentAdded)
}

func (w *SheetsWorker) handleEvent(event *events.Event) error {
	var payload events.JobEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s event: %w", event.Type, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.enqueue(ctx, exportPayload{Reason: event.Type, JobID: payload.JobID})
}

// Start launches main loop; stops when ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sheets worker started")
	defer w.logger.Info().Msg("sheets worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.store.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("fetch pending sync tasks")
			}
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *SheetsWorker) sleep(ctx context.Context) {
	t := time.NewTimer(w.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return models.SyncTask{}, false
		}
		w.logger.Warn().Err(err).Msg("redis BRPOP failed")
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	// задача могла уже уйти через опрос БД
	if task.ID != 0 {
		current, err := w.store.GetSyncTask(ctx, task.ID)
		if err == nil && (current.Status == models.SyncStatusCompleted || current.Status == models.SyncStatusFailed) {
			return
		}
		if err == nil && current.Status == models.SyncStatusRetry &&
			current.NextRetryAt != nil && current.NextRetryAt.After(w.now().UTC()) {
			// бэкофф еще идет, задачу заберет опрос БД
			w.logger.Debug().Int64("task_id", current.ID).Time("next_retry_at", *current.NextRetryAt).Msg("retry not due yet")
			return
		}
		if err == nil {
			task = current
		}
	}

	if task.TaskType != TaskExportJobs {
		w.failTask(ctx, task, fmt.Errorf("unknown task type: %s", task.TaskType))
		return
	}

	var payload exportPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.exportJobs(ctx); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
	}
	metrics.IncSyncTask(models.SyncStatusCompleted)
	w.logger.Debug().Int64("task_id", task.ID).Str("reason", payload.Reason).Msg("jobs exported")
}

func (w *SheetsWorker) exportJobs(ctx context.Context) error {
	jobs, err := w.jobs.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	return w.sheets.ReplaceJobs(ctx, jobs)
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	nextTime := w.now().UTC().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
	metrics.IncSyncTask(models.SyncStatusRetry)
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Time("next_retry_at", nextTime).Msg("export failed, will retry")
}

func (w *SheetsWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	metrics.IncSyncTask(models.SyncStatusFailed)
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Msg("export failed permanently")

	if w.redis == nil {
		return
	}
	if err := w.pushList(ctx, w.deadLetterKey, task); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}

func (w *SheetsWorker) pushList(ctx context.Context, key string, task *models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
