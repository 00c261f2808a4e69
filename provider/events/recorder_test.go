package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mstgnz/coursepay/infra/opensearch"
	"github.com/mstgnz/coursepay/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockIndexer struct {
	logs []opensearch.WebhookLog
	err  error
}

func (m *mockIndexer) LogWebhookEvent(_ context.Context, log opensearch.WebhookLog) error {
	m.logs = append(m.logs, log)
	return m.err
}

type sinkFunc func(ctx context.Context, event *provider.WebhookEvent) error

func (f sinkFunc) HandleEvent(ctx context.Context, event *provider.WebhookEvent) error {
	return f(ctx, event)
}

func sampleEvent() *provider.WebhookEvent {
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return &provider.WebhookEvent{
		Valid:     true,
		Gateway:   provider.GatewayRazorpay,
		EventType: "payment.captured",
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Status:    provider.StatusCaptured,
		Amount:    decimal.RequireFromString("999.5"),
		Success:   true,
		Processed: true,
		Timestamp: &ts,
	}
}

func TestRecorder_IndexesEvent(t *testing.T) {
	indexer := &mockIndexer{}
	r := NewRecorder(indexer)

	require.NoError(t, r.HandleEvent(context.Background(), sampleEvent()))
	require.Len(t, indexer.logs, 1)

	log := indexer.logs[0]
	assert.Equal(t, "razorpay", log.Gateway)
	assert.Equal(t, "pay_1", log.PaymentID)
	assert.Equal(t, "captured", log.Status)
	assert.Equal(t, "999.50", log.Amount)
	assert.True(t, log.Success)
}

func TestRecorder_IndexFailureIsNotFatal(t *testing.T) {
	r := NewRecorder(&mockIndexer{err: errors.New("cluster down")})
	assert.NoError(t, r.HandleEvent(context.Background(), sampleEvent()))
}

func TestRecorder_ChainedSinks(t *testing.T) {
	var seen []string
	first := sinkFunc(func(_ context.Context, e *provider.WebhookEvent) error {
		seen = append(seen, "first:"+e.PaymentID)
		return nil
	})
	failing := sinkFunc(func(context.Context, *provider.WebhookEvent) error {
		return errors.New("enrolment failed")
	})

	r := NewRecorder(nil, first, failing)
	err := r.HandleEvent(context.Background(), sampleEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrolment failed")
	assert.Equal(t, []string{"first:pay_1"}, seen)
}

func TestRecorder_NilEvent(t *testing.T) {
	assert.NoError(t, NewRecorder(nil).HandleEvent(context.Background(), nil))
}
