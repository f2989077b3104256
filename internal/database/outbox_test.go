package database

import (
	"context"
	"testing"
	"time"

	"viagens/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.OutboxTask{
		TaskType:    "email_receipt",
		AggregateID: 100,
		Payload:     `{"payment_id": 100}`,
	}
	require.NoError(t, db.CreateOutboxTask(ctx, task))
	assert.Equal(t, models.TaskStatusPending, task.Status)

	tasks, err := db.GetPendingOutboxTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(100), tasks[0].AggregateID)

	require.NoError(t, db.UpdateOutboxTaskStatus(ctx, tasks[0].ID, models.TaskStatusCompleted, "", nil))
	tasks, _ = db.GetPendingOutboxTasks(ctx, 10)
	assert.Len(t, tasks, 0)

	done, err := db.GetOutboxTask(ctx, task.ID)
	require.NoError(t, err)
	assert.NotNil(t, done.ProcessedAt)
	assert.Nil(t, done.LastError)

	t.Run("Failed", func(t *testing.T) {
		errMsg := "smtp down"
		dead := &models.OutboxTask{TaskType: "email_generic", AggregateID: 101, Payload: "{}",
			Status: models.TaskStatusFailed, LastError: &errMsg}
		require.NoError(t, db.CreateOutboxTask(ctx, dead))

		failed, err := db.GetFailedOutboxTasks(ctx)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "smtp down", *failed[0].LastError)

		require.NoError(t, db.RequeueOutboxTask(ctx, dead.ID))
		assert.ErrorIs(t, db.RequeueOutboxTask(ctx, dead.ID), ErrNotFound)
		require.NoError(t, db.UpdateOutboxTaskStatus(ctx, dead.ID, models.TaskStatusCompleted, "", nil))
	})

	t.Run("Retry", func(t *testing.T) {
		retry := &models.OutboxTask{TaskType: "sheets_roster", AggregateID: 102, Payload: "{}"}
		require.NoError(t, db.CreateOutboxTask(ctx, retry))

		future := time.Now().Add(time.Hour)
		require.NoError(t, db.UpdateOutboxTaskStatus(ctx, retry.ID, models.TaskStatusRetry, "temporary", &future))
		tasks, err := db.GetPendingOutboxTasks(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, tasks, "future retry must wait")

		past := time.Now().Add(-time.Hour)
		require.NoError(t, db.UpdateOutboxTaskStatus(ctx, retry.ID, models.TaskStatusRetry, "temporary", &past))
		tasks, err = db.GetPendingOutboxTasks(ctx, 10)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, 2, tasks[0].RetryCount)
		assert.Equal(t, "temporary", *tasks[0].LastError)
	})

	assert.ErrorIs(t, db.UpdateOutboxTaskStatus(ctx, 999, models.TaskStatusCompleted, "", nil), ErrNotFound)
}

func TestEnqueueOutbox(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task, err := db.EnqueueOutbox(ctx, "email_receipt", 42, map[string]int64{"payment_id": 42})
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
	assert.JSONEq(t, `{"payment_id": 42}`, task.Payload)

	_, err = db.EnqueueOutbox(ctx, "", 1, nil)
	assert.Error(t, err)

	_, err = db.EnqueueOutbox(ctx, "x", 1, make(chan int))
	assert.Error(t, err)
}
