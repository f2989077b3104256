package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"viagens/internal/models"
	"viagens/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg *models.EmailMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type mockStaff struct {
	mock.Mock
}

func (m *mockStaff) Notify(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

type mockRoster struct {
	mock.Mock
}

func (m *mockRoster) ReplaceRoster(ctx context.Context, trip *models.Trip, clients []*models.Client) error {
	return m.Called(ctx, trip, clients).Error(0)
}

type handlerEnv struct {
	*testEnv
	mailer   *mockMailer
	staff    *mockStaff
	roster   *mockRoster
	handlers *NotificationHandlers
	worker   *worker.OutboxWorker
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	env := newTestEnv(t)
	h := &handlerEnv{testEnv: env, mailer: &mockMailer{}, staff: &mockStaff{}, roster: &mockRoster{}}
	h.handlers = NewNotificationHandlers(env.db, env.billing, env.render, env.docs, h.mailer, h.staff, h.roster, nil)
	h.worker = worker.NewOutboxWorker(env.db, nil, worker.RetryPolicy{MaxRetries: 3}, worker.Options{}, nil)
	h.handlers.Register(h.worker)
	return h
}

func (h *handlerEnv) taskStatus(t *testing.T, id int64) string {
	t.Helper()
	task, err := h.db.GetOutboxTask(context.Background(), id)
	require.NoError(t, err)
	return task.Status
}

func TestNotificationHandlers_DeliverPaymentTasks(t *testing.T) {
	h := newHandlerEnv(t)
	ctx := context.Background()
	trip := h.createTrip(t, 10, true)
	client := h.createClient(t, trip.ID, "Ana")

	p := &models.Payment{ClientID: client.ID, AmountCents: 50000, Method: "pix"}
	require.NoError(t, h.billing.RecordPayment(ctx, p))

	var sent *models.EmailMessage
	h.mailer.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*models.EmailMessage)
	}).Return(nil).Once()
	h.staff.On("Notify", mock.Anything, mock.MatchedBy(func(text string) bool {
		return bytes.Contains([]byte(text), []byte("Ana"))
	})).Return(nil).Once()
	h.roster.On("ReplaceRoster", mock.Anything, mock.MatchedBy(func(tr *models.Trip) bool {
		return tr.ID == trip.ID
	}), mock.MatchedBy(func(cs []*models.Client) bool {
		return len(cs) == 1
	})).Return(nil).Once()

	n, err := h.worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	h.mailer.AssertExpectations(t)
	h.staff.AssertExpectations(t)
	h.roster.AssertExpectations(t)

	require.NotNil(t, sent)
	assert.Equal(t, []string{"cliente@example.com"}, sent.To)
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "application/pdf", sent.Attachments[0].ContentType)
	assert.Regexp(t, `^recibo-\d{6}\.pdf$`, sent.Attachments[0].Name)
	assert.True(t, bytes.HasPrefix(sent.Attachments[0].Data, []byte("%PDF")))

	n, err = h.worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNotificationHandlers_RetryAndPermanentFailures(t *testing.T) {
	h := newHandlerEnv(t)
	ctx := context.Background()
	trip := h.createTrip(t, 10, true)
	client := h.createClient(t, trip.ID, "Ana")

	generic, err := h.db.EnqueueOutbox(ctx, worker.TaskEmailGeneric, client.ID, emailTask{To: "ana@example.com", Subject: "Oi", Body: "Lembrete"})
	require.NoError(t, err)
	noRecipient, err := h.db.EnqueueOutbox(ctx, worker.TaskEmailGeneric, client.ID, emailTask{Subject: "Oi"})
	require.NoError(t, err)
	badPayload := &models.OutboxTask{TaskType: worker.TaskStaffAlert, Payload: "{not json"}
	require.NoError(t, h.db.CreateOutboxTask(ctx, badPayload))
	missingTrip, err := h.db.EnqueueOutbox(ctx, worker.TaskSheetsRoster, 9999, rosterTask{TripID: 9999})
	require.NoError(t, err)
	missingPayment, err := h.db.EnqueueOutbox(ctx, worker.TaskEmailReceipt, 9999, receiptTask{PaymentID: 9999})
	require.NoError(t, err)

	h.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp: connection refused"))
	h.roster.On("ReplaceRoster", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err = h.worker.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusRetry, h.taskStatus(t, generic.ID))
	assert.Equal(t, models.TaskStatusFailed, h.taskStatus(t, noRecipient.ID))
	assert.Equal(t, models.TaskStatusFailed, h.taskStatus(t, badPayload.ID))
	assert.Equal(t, models.TaskStatusFailed, h.taskStatus(t, missingTrip.ID))
	assert.Equal(t, models.TaskStatusFailed, h.taskStatus(t, missingPayment.ID))

	failed, err := h.db.GetFailedOutboxTasks(ctx)
	require.NoError(t, err)
	types := map[string]int{}
	for _, task := range failed {
		types[task.TaskType]++
	}
	assert.Equal(t, map[string]int{"email_generic": 1, "staff_alert": 1, "sheets_roster": 1, "email_receipt": 1}, types)
}

func TestNotificationHandlers_OptionalTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	handlers := NewNotificationHandlers(env.db, env.billing, env.render, env.docs, &mockMailer{}, nil, nil, nil)

	alert := &models.OutboxTask{TaskType: worker.TaskStaffAlert, Payload: `{"text":"novo contato"}`}
	assert.NoError(t, handlers.StaffAlert(ctx, alert))

	roster := &models.OutboxTask{TaskType: worker.TaskSheetsRoster, Payload: `{"trip_id":1}`}
	assert.NoError(t, handlers.SheetsRoster(ctx, roster))

	bad := &models.OutboxTask{TaskType: worker.TaskSheetsRoster, Payload: `[]`}
	assert.ErrorIs(t, handlers.SheetsRoster(ctx, bad), worker.ErrPermanent)
}

func TestNotificationHandlers_ReceiptWithoutEmailIsSkipped(t *testing.T) {
	h := newHandlerEnv(t)
	ctx := context.Background()
	trip := h.createTrip(t, 10, true)
	c := &models.Client{TripID: trip.ID, Name: "Sem Email"}
	require.NoError(t, h.clients.Create(ctx, c, nil))
	p := &models.Payment{ClientID: c.ID, AmountCents: 1000}
	require.NoError(t, h.billing.RecordPayment(ctx, p))

	task := &models.OutboxTask{TaskType: worker.TaskEmailReceipt, Payload: fmt.Sprintf(`{"payment_id":%d}`, p.ID)}
	require.NoError(t, h.handlers.EmailReceipt(ctx, task))
	h.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
