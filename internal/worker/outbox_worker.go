package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"viagens/internal/database"
	"viagens/internal/metrics"
	"viagens/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Outbox task types.
const (
	TaskEmailReceipt = "email_receipt"
	TaskEmailGeneric = "email_generic"
	TaskSheetsRoster = "sheets_roster"
	TaskStaffAlert   = "staff_alert"
)

// ErrPermanent marks a handler failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

// Handler delivers one outbox task.
type Handler func(ctx context.Context, task *models.OutboxTask) error

// OutboxWorker delivers outbox tasks. Committed tasks arrive through
// Dispatch (local queue, or Redis when configured); the outbox table is
// polled as the durable fallback.
type OutboxWorker struct {
	db            *database.DB
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan int64
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

// Options tune the polling loop; zero values use defaults.
type Options struct {
	PollInterval time.Duration
	BatchSize    int
	KeyPrefix    string
}

func NewOutboxWorker(db *database.DB, redisClient *redis.Client, retry RetryPolicy, opts Options, logger *zerolog.Logger) *OutboxWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &OutboxWorker{
		db:            db,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan int64, 128),
		redisQueueKey: opts.KeyPrefix + "outbox:queue",
		deadLetterKey: opts.KeyPrefix + "outbox:deadletter",
		pollInterval:  opts.PollInterval,
		batchSize:     opts.BatchSize,
		logger:        logger,
		handlers:      make(map[string]Handler),
	}
}

// Handle registers the handler for a task type.
func (w *OutboxWorker) Handle(taskType string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[taskType] = h
}

// Dispatch schedules a committed task for prompt delivery. Tasks that do not
// fit in any queue are still picked up by polling.
func (w *OutboxWorker) Dispatch(ctx context.Context, task *models.OutboxTask) {
	if task == nil || task.ID == 0 {
		return
	}
	if w.redis != nil {
		if err := w.redis.LPush(ctx, w.redisQueueKey, task.ID).Err(); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, fallback to memory queue")
		} else {
			return
		}
	}

	select {
	case w.queue <- task.ID:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}
}

// Start launches main loop; stops when ctx is done.
func (w *OutboxWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("outbox worker started")
	defer w.logger.Info().Msg("outbox worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if id, ok := w.tryLocalQueue(); ok {
			w.processByID(ctx, id)
			continue
		}

		if id, ok := w.tryRedis(ctx); ok {
			w.processByID(ctx, id)
			continue
		}

		n, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending outbox tasks")
		}
		if err != nil || n == 0 {
			select {
			case <-ctx.Done():
				return
			case id := <-w.queue:
				w.processByID(ctx, id)
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// RunOnce processes one batch of due tasks from the table.
func (w *OutboxWorker) RunOnce(ctx context.Context) (int, error) {
	tasks, err := w.db.GetPendingOutboxTasks(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks), nil
}

func (w *OutboxWorker) tryLocalQueue() (int64, bool) {
	select {
	case id := <-w.queue:
		return id, true
	default:
		return 0, false
	}
}

func (w *OutboxWorker) tryRedis(ctx context.Context) (int64, bool) {
	if w.redis == nil {
		return 0, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, redis.Nil) {
			return 0, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		return 0, false
	}
	if len(res) != 2 {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscan(res[1], &id); err != nil {
		w.logger.Error().Err(err).Str("value", res[1]).Msg("decode redis task id")
		return 0, false
	}
	return id, true
}

// processByID reloads a dispatched task so one already handled by polling
// is not delivered twice.
func (w *OutboxWorker) processByID(ctx context.Context, id int64) {
	task, err := w.db.GetOutboxTask(ctx, id)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", id).Msg("load dispatched task")
		return
	}
	if task.Status != models.TaskStatusPending && task.Status != models.TaskStatusRetry {
		return
	}
	if task.NextRetryAt != nil && task.NextRetryAt.After(time.Now()) {
		return
	}
	w.processTask(ctx, task)
}

func (w *OutboxWorker) processTask(ctx context.Context, task *models.OutboxTask) {
	w.mu.RLock()
	handler, ok := w.handlers[task.TaskType]
	w.mu.RUnlock()
	if !ok {
		w.failTask(ctx, task, fmt.Errorf("unknown task type: %s", task.TaskType))
		return
	}

	if err := handler(ctx, task); err != nil {
		if errors.Is(err, ErrPermanent) {
			w.failTask(ctx, task, err)
			return
		}
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateOutboxTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
	}
	metrics.IncOutbox(task.TaskType, models.TaskStatusCompleted)
}

func (w *OutboxWorker) retryOrFail(ctx context.Context, task *models.OutboxTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	nextTime := w.retryPolicy.NextRun(time.Now(), attempt)
	if err := w.db.UpdateOutboxTaskStatus(ctx, task.ID, models.TaskStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Str("type", task.TaskType).
		Int("attempt", attempt).Time("next_retry_at", nextTime).Msg("outbox task will be retried")
	metrics.IncOutbox(task.TaskType, models.TaskStatusRetry)
}

func (w *OutboxWorker) failTask(ctx context.Context, task *models.OutboxTask, cause error) {
	if err := w.db.UpdateOutboxTaskStatus(ctx, task.ID, models.TaskStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("type", task.TaskType).Msg("outbox task failed")
	metrics.IncOutbox(task.TaskType, models.TaskStatusFailed)
	w.pushDeadLetter(ctx, task)
}

func (w *OutboxWorker) pushDeadLetter(ctx context.Context, task *models.OutboxTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}
