package provider

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAdapter counts calls so tests can assert that nothing reached the gateway
type mockAdapter struct {
	gateway          Gateway
	createOrderFunc  func(ctx context.Context, req OrderRequest) (*Order, error)
	verifyFunc       func(ctx context.Context, req VerificationRequest) (*VerificationResult, error)
	getStatusFunc    func(ctx context.Context, id string) (*StatusResult, error)
	refundFunc       func(ctx context.Context, req RefundRequest) (*RefundResult, error)
	checkHeadersFunc func(headers http.Header) error
	parseWebhookFunc func(ctx context.Context, payload []byte, headers http.Header) (*WebhookEvent, error)
	calls            atomic.Int32
	parseCalls       atomic.Int32
}

func (m *mockAdapter) Gateway() Gateway { return m.gateway }

func (m *mockAdapter) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	m.calls.Add(1)
	return m.createOrderFunc(ctx, req)
}

func (m *mockAdapter) Verify(ctx context.Context, req VerificationRequest) (*VerificationResult, error) {
	m.calls.Add(1)
	return m.verifyFunc(ctx, req)
}

func (m *mockAdapter) GetStatus(ctx context.Context, id string) (*StatusResult, error) {
	m.calls.Add(1)
	return m.getStatusFunc(ctx, id)
}

func (m *mockAdapter) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	m.calls.Add(1)
	return m.refundFunc(ctx, req)
}

func (m *mockAdapter) CheckWebhookHeaders(headers http.Header) error {
	if m.checkHeadersFunc == nil {
		return nil
	}
	return m.checkHeadersFunc(headers)
}

func (m *mockAdapter) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*WebhookEvent, error) {
	m.parseCalls.Add(1)
	return m.parseWebhookFunc(ctx, payload, headers)
}

type sinkFunc func(ctx context.Context, event *WebhookEvent) error

func (f sinkFunc) HandleEvent(ctx context.Context, event *WebhookEvent) error { return f(ctx, event) }

func validOrderRequest() OrderRequest {
	return OrderRequest{
		Amount:   decimal.NewFromInt(999),
		Gateway:  "razorpay",
		Customer: Customer{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"},
	}
}

func newService(adapter *mockAdapter, opts ...ServiceOption) *PaymentService {
	return NewPaymentService(NewRegistry(adapter), opts...)
}

func TestPaymentService_CreateOrder(t *testing.T) {
	adapter := &mockAdapter{
		gateway: GatewayRazorpay,
		createOrderFunc: func(ctx context.Context, req OrderRequest) (*Order, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			assert.Equal(t, "INR", req.Currency)
			minor, err := ToMinorUnits(req.Amount)
			require.NoError(t, err)
			return &Order{OrderID: "order_1", Amount: minor, Currency: req.Currency, Status: StatusCreated, RazorpayKey: "rzp_test"}, nil
		},
	}
	service := newService(adapter)

	order, err := service.CreateOrder(context.Background(), validOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(99900), order.Amount)
	assert.NotEmpty(t, order.RazorpayKey)
	assert.Equal(t, int32(1), adapter.calls.Load())
}

func TestPaymentService_CreateOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *OrderRequest)
		wantMsg string
	}{
		{name: "zero amount", mutate: func(r *OrderRequest) { r.Amount = decimal.Zero }, wantMsg: "Invalid amount"},
		{name: "negative amount", mutate: func(r *OrderRequest) { r.Amount = decimal.NewFromInt(-5) }, wantMsg: "Invalid amount"},
		{name: "three decimals", mutate: func(r *OrderRequest) { r.Amount = decimal.RequireFromString("9.999") }, wantMsg: "Invalid amount"},
		{name: "unsupported gateway", mutate: func(r *OrderRequest) { r.Gateway = "paypal" }, wantMsg: "Unsupported gateway"},
		{name: "missing customer name", mutate: func(r *OrderRequest) { r.Customer.Name = "" }, wantMsg: "Customer details (name, email, phone) are required"},
		{name: "invalid email", mutate: func(r *OrderRequest) { r.Customer.Email = "not-an-email" }, wantMsg: "Invalid customer email"},
		{name: "invalid phone", mutate: func(r *OrderRequest) { r.Customer.Phone = "12ab" }, wantMsg: "Invalid customer phone"},
		{name: "foreign currency", mutate: func(r *OrderRequest) { r.Currency = "USD" }, wantMsg: "Only INR payments are supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := &mockAdapter{gateway: GatewayRazorpay}
			service := newService(adapter)

			req := validOrderRequest()
			tt.mutate(&req)

			_, err := service.CreateOrder(context.Background(), req)
			require.Error(t, err)
			assert.True(t, IsValidation(err))

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.wantMsg, e.Message)
			assert.Equal(t, int32(0), adapter.calls.Load())
		})
	}
}

func TestPaymentService_UnregisteredGateway(t *testing.T) {
	service := newService(&mockAdapter{gateway: GatewayRazorpay})

	req := validOrderRequest()
	req.Gateway = "cashfree"
	_, err := service.CreateOrder(context.Background(), req)
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
}

func TestPaymentService_UpstreamTimeout(t *testing.T) {
	adapter := &mockAdapter{
		gateway: GatewayRazorpay,
		createOrderFunc: func(ctx context.Context, req OrderRequest) (*Order, error) {
			<-ctx.Done()
			return nil, NewGatewayError(GatewayRazorpay, "create_order", ctx.Err())
		},
	}
	service := newService(adapter, WithUpstreamTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := service.CreateOrder(context.Background(), validOrderRequest())
	require.Error(t, err)
	assert.True(t, IsGateway(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPaymentService_VerifyPayment(t *testing.T) {
	adapter := &mockAdapter{
		gateway: GatewayRazorpay,
		verifyFunc: func(ctx context.Context, req VerificationRequest) (*VerificationResult, error) {
			return &VerificationResult{Success: req.Signature == "good", Gateway: GatewayRazorpay, Status: StatusCaptured}, nil
		},
	}
	service := newService(adapter)

	result, err := service.VerifyPayment(context.Background(), VerificationRequest{
		Gateway: "razorpay", OrderID: "order_1", PaymentID: "pay_1", Signature: "good",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = service.VerifyPayment(context.Background(), VerificationRequest{
		Gateway: "razorpay", OrderID: "order_1", PaymentID: "pay_1", Signature: "bad",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)

	_, err = service.VerifyPayment(context.Background(), VerificationRequest{Gateway: "razorpay", OrderID: "order_1"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, int32(2), adapter.calls.Load())
}

func TestPaymentService_GetStatus(t *testing.T) {
	adapter := &mockAdapter{
		gateway: GatewayCashfree,
		getStatusFunc: func(ctx context.Context, id string) (*StatusResult, error) {
			return &StatusResult{Gateway: GatewayCashfree, ID: id, Status: StatusSuccessful, Success: true}, nil
		},
	}
	service := newService(adapter)

	first, err := service.GetStatus(context.Background(), "CASHFREE", "ORD_1")
	require.NoError(t, err)
	second, err := service.GetStatus(context.Background(), "cashfree", "ORD_1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = service.GetStatus(context.Background(), "cashfree", " ")
	assert.True(t, IsValidation(err))

	_, err = service.GetStatus(context.Background(), "unknown", "ORD_1")
	assert.True(t, IsValidation(err))
}

func TestPaymentService_Refund(t *testing.T) {
	adapter := &mockAdapter{
		gateway: GatewayPhonePe,
		refundFunc: func(ctx context.Context, req RefundRequest) (*RefundResult, error) {
			return &RefundResult{Success: true, Gateway: GatewayPhonePe, RefundID: "RFND_1", Status: StatusPending, Amount: req.Amount}, nil
		},
	}
	service := newService(adapter)

	result, err := service.Refund(context.Background(), RefundRequest{Gateway: "phonepe", TransactionID: "TXN_1", Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.Equal(t, "RFND_1", result.RefundID)

	_, err = service.Refund(context.Background(), RefundRequest{Gateway: "phonepe", Amount: decimal.NewFromInt(100)})
	assert.True(t, IsValidation(err))

	_, err = service.Refund(context.Background(), RefundRequest{Gateway: "phonepe", TransactionID: "TXN_1"})
	assert.True(t, IsValidation(err))
	assert.Equal(t, int32(1), adapter.calls.Load())
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	t.Run("missing header skips parsing", func(t *testing.T) {
		adapter := &mockAdapter{
			gateway: GatewayRazorpay,
			checkHeadersFunc: func(http.Header) error {
				return NewWebhookError(GatewayRazorpay, StageHeader, "Missing signature", nil)
			},
		}
		service := newService(adapter)

		_, err := service.HandleWebhook(context.Background(), "razorpay", []byte(`{}`), http.Header{})
		var we *WebhookError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, StageHeader, we.Stage)
		assert.Equal(t, int32(0), adapter.parseCalls.Load())
	})

	t.Run("valid event reaches sink", func(t *testing.T) {
		adapter := &mockAdapter{
			gateway: GatewayRazorpay,
			parseWebhookFunc: func(ctx context.Context, payload []byte, headers http.Header) (*WebhookEvent, error) {
				return &WebhookEvent{Valid: true, Gateway: GatewayRazorpay, PaymentID: "pay_1", Success: true, Processed: true}, nil
			},
		}
		var delivered atomic.Int32
		service := newService(adapter, WithEventSink(sinkFunc(func(ctx context.Context, e *WebhookEvent) error {
			delivered.Add(1)
			return nil
		})))

		event, err := service.HandleWebhook(context.Background(), "razorpay", []byte(`{}`), http.Header{})
		require.NoError(t, err)
		assert.Equal(t, "pay_1", event.PaymentID)
		assert.Equal(t, int32(1), delivered.Load())
	})

	t.Run("invalid signature does not reach sink", func(t *testing.T) {
		adapter := &mockAdapter{
			gateway: GatewayRazorpay,
			parseWebhookFunc: func(ctx context.Context, payload []byte, headers http.Header) (*WebhookEvent, error) {
				return &WebhookEvent{Gateway: GatewayRazorpay}, NewWebhookError(GatewayRazorpay, StageSignature, "Invalid signature", nil)
			},
		}
		var delivered atomic.Int32
		service := newService(adapter, WithEventSink(sinkFunc(func(ctx context.Context, e *WebhookEvent) error {
			delivered.Add(1)
			return nil
		})))

		_, err := service.HandleWebhook(context.Background(), "razorpay", []byte(`{}`), http.Header{})
		var we *WebhookError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, StageSignature, we.Stage)
		assert.Equal(t, int32(0), delivered.Load())
	})

	t.Run("sink failure is a process error", func(t *testing.T) {
		adapter := &mockAdapter{
			gateway: GatewayRazorpay,
			parseWebhookFunc: func(ctx context.Context, payload []byte, headers http.Header) (*WebhookEvent, error) {
				return &WebhookEvent{Valid: true, Gateway: GatewayRazorpay}, nil
			},
		}
		service := newService(adapter, WithEventSink(sinkFunc(func(ctx context.Context, e *WebhookEvent) error {
			return errors.New("db down")
		})))

		event, err := service.HandleWebhook(context.Background(), "razorpay", []byte(`{}`), http.Header{})
		var we *WebhookError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, StageProcess, we.Stage)
		assert.NotNil(t, event)
	})
}
