package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"viagens/internal/models"
)

const outboxColumns = `id, task_type, aggregate_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

func (s *Store) CreateOutboxTask(ctx context.Context, task *models.OutboxTask) error {
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	query := `INSERT INTO outbox (task_type, aggregate_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	ts := now()
	result, err := s.q.ExecContext(ctx, query,
		task.TaskType,
		task.AggregateID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		ts,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = ts
	return nil
}

// EnqueueOutbox records a side effect with a JSON payload. Call it inside
// the transaction of the change that causes it.
func (s *Store) EnqueueOutbox(ctx context.Context, taskType string, aggregateID int64, payload interface{}) (*models.OutboxTask, error) {
	if taskType == "" {
		return nil, errors.New("task type is required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	task := &models.OutboxTask{
		TaskType:    taskType,
		AggregateID: aggregateID,
		Payload:     string(raw),
		Status:      models.TaskStatusPending,
	}
	if err := s.CreateOutboxTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Store) GetPendingOutboxTasks(ctx context.Context, limit int) ([]models.OutboxTask, error) {
	query := `SELECT ` + outboxColumns + `
              FROM outbox
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC, id ASC LIMIT ?`
	return s.queryOutbox(ctx, query, now(), limit)
}

func (s *Store) GetOutboxTask(ctx context.Context, id int64) (*models.OutboxTask, error) {
	tasks, err := s.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM outbox WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return &tasks[0], nil
}

func (s *Store) UpdateOutboxTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var (
		query string
		args  []interface{}
	)
	ts := now()
	var lastErr *string
	if errMsg != "" {
		lastErr = &errMsg
	}
	if nextRetryAt != nil {
		utc := nextRetryAt.UTC()
		nextRetryAt = &utc
	}

	switch status {
	case models.TaskStatusRetry:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, lastErr, nextRetryAt, id}
	case models.TaskStatusCompleted, models.TaskStatusFailed:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, lastErr, nextRetryAt, ts, id}
	default:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, lastErr, nextRetryAt, id}
	}

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update outbox task status: %w", err)
	}
	return affectedOne(res, ErrNotFound)
}

func (s *Store) GetFailedOutboxTasks(ctx context.Context) ([]models.OutboxTask, error) {
	return s.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM outbox WHERE status = 'failed' ORDER BY created_at DESC, id DESC`)
}

// RequeueOutboxTask moves a dead task back to pending with a fresh retry budget.
func (s *Store) RequeueOutboxTask(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE outbox SET status = 'pending', retry_count = 0, next_retry_at = NULL, processed_at = NULL
         WHERE id = ? AND status = 'failed'`, id)
	if err != nil {
		return fmt.Errorf("failed to requeue outbox task: %w", err)
	}
	return affectedOne(res, ErrNotFound)
}

func (s *Store) queryOutbox(ctx context.Context, query string, args ...interface{}) ([]models.OutboxTask, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.OutboxTask
	for rows.Next() {
		var t models.OutboxTask
		err := rows.Scan(
			&t.ID, &t.TaskType, &t.AggregateID, &t.Payload, &t.Status, &t.RetryCount, &t.LastError,
			&t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
