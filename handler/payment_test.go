package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/coursepay/infra/validate"
	"github.com/mstgnz/coursepay/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock PaymentService for testing
type mockPaymentService struct {
	createOrderFunc   func(ctx context.Context, request provider.OrderRequest) (*provider.Order, error)
	verifyPaymentFunc func(ctx context.Context, request provider.VerificationRequest) (*provider.VerificationResult, error)
	getStatusFunc     func(ctx context.Context, gateway, id string) (*provider.StatusResult, error)
	refundFunc        func(ctx context.Context, request provider.RefundRequest) (*provider.RefundResult, error)
	handleWebhookFunc func(ctx context.Context, gateway string, payload []byte, headers http.Header) (*provider.WebhookEvent, error)
	gateways          []provider.Gateway

	calls atomic.Int32
}

func (m *mockPaymentService) CreateOrder(ctx context.Context, request provider.OrderRequest) (*provider.Order, error) {
	m.calls.Add(1)
	if m.createOrderFunc != nil {
		return m.createOrderFunc(ctx, request)
	}
	return &provider.Order{OrderID: "order_test123", Amount: 99900, Currency: "INR", Status: provider.StatusCreated}, nil
}

func (m *mockPaymentService) VerifyPayment(ctx context.Context, request provider.VerificationRequest) (*provider.VerificationResult, error) {
	m.calls.Add(1)
	if m.verifyPaymentFunc != nil {
		return m.verifyPaymentFunc(ctx, request)
	}
	return &provider.VerificationResult{Success: true, Gateway: provider.GatewayRazorpay, Status: provider.StatusCaptured}, nil
}

func (m *mockPaymentService) GetStatus(ctx context.Context, gateway, id string) (*provider.StatusResult, error) {
	m.calls.Add(1)
	if m.getStatusFunc != nil {
		return m.getStatusFunc(ctx, gateway, id)
	}
	return &provider.StatusResult{Gateway: provider.Gateway(gateway), ID: id, Success: true, Status: provider.StatusSuccessful}, nil
}

func (m *mockPaymentService) Refund(ctx context.Context, request provider.RefundRequest) (*provider.RefundResult, error) {
	m.calls.Add(1)
	if m.refundFunc != nil {
		return m.refundFunc(ctx, request)
	}
	return &provider.RefundResult{Success: true, RefundID: "rfnd_1", Status: provider.StatusPending, Amount: request.Amount}, nil
}

func (m *mockPaymentService) HandleWebhook(ctx context.Context, gateway string, payload []byte, headers http.Header) (*provider.WebhookEvent, error) {
	m.calls.Add(1)
	if m.handleWebhookFunc != nil {
		return m.handleWebhookFunc(ctx, gateway, payload, headers)
	}
	return &provider.WebhookEvent{Valid: true, Gateway: provider.Gateway(gateway)}, nil
}

func (m *mockPaymentService) Gateways() []provider.Gateway {
	return m.gateways
}

func newTestHandler(svc *mockPaymentService, production bool) *PaymentHandler {
	return NewPaymentHandler(svc, validate.CustomValidate(), production)
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed), w.Body.String())
	return w, parsed
}

const validOrderBody = `{"amount":999,"gateway":"razorpay","customer":{"name":"Asha Rao","email":"asha@example.com","phone":"9876543210"},"description":"Go course"}`

func TestPaymentHandler_CreateOrder(t *testing.T) {
	svc := &mockPaymentService{
		createOrderFunc: func(ctx context.Context, req provider.OrderRequest) (*provider.Order, error) {
			assert.True(t, req.Amount.Equal(decimal.NewFromInt(999)))
			assert.Equal(t, "Asha Rao", req.Customer.Name)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return &provider.Order{OrderID: "order_abc", Amount: 99900, Currency: "INR", RazorpayKey: "rzp_test"}, nil
		},
	}
	h := newTestHandler(svc, false)

	w, body := doJSON(t, h.CreateOrder, http.MethodPost, "/api/payment/create-order", validOrderBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "razorpay", body["gateway"])
	order := body["order"].(map[string]any)
	assert.Equal(t, "order_abc", order["orderId"])
	assert.Equal(t, float64(99900), order["amount"])
	assert.Equal(t, "rzp_test", order["razorpayKey"])
}

func TestPaymentHandler_CreateOrderRejected(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "malformed json",
			body:      `{"amount":`,
			wantError: "Invalid request format",
		},
		{
			name:      "missing customer",
			body:      `{"amount":999,"gateway":"razorpay"}`,
			wantError: "Customer details (name, email, phone) are required",
		},
		{
			name:      "unknown gateway",
			body:      `{"amount":999,"gateway":"stripe","customer":{"name":"A","email":"a@b.io","phone":"9876543210"}}`,
			wantError: "Unsupported gateway",
		},
		{
			name:      "bad email",
			body:      `{"amount":999,"gateway":"phonepe","customer":{"name":"A","email":"nope","phone":"9876543210"}}`,
			wantError: "Invalid customer email",
		},
		{
			name:      "bad phone",
			body:      `{"amount":999,"gateway":"cashfree","customer":{"name":"A","email":"a@b.io","phone":"12"}}`,
			wantError: "Invalid customer phone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPaymentService{}
			h := newTestHandler(svc, false)

			w, body := doJSON(t, h.CreateOrder, http.MethodPost, "/api/payment/create-order", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantError, body["error"])
			assert.Equal(t, int32(0), svc.calls.Load())
		})
	}
}

func TestPaymentHandler_ErrorMapping(t *testing.T) {
	upstream := provider.NewGatewayError(provider.GatewayCashfree, "create order", errors.New("authentication Failed (request_failed)"))

	tests := []struct {
		name        string
		err         error
		production  bool
		wantCode    int
		wantError   string
		wantDetails bool
	}{
		{
			name:      "validation echoed",
			err:       provider.NewValidationError("Invalid amount"),
			wantCode:  http.StatusBadRequest,
			wantError: "Invalid amount",
		},
		{
			name:      "configuration hidden",
			err:       provider.NewConfigurationError(provider.GatewayRazorpay, []string{"RAZORPAY_KEY_SECRET"}),
			wantCode:  http.StatusInternalServerError,
			wantError: "Payment gateway is not configured",
		},
		{
			name:        "gateway details outside production",
			err:         upstream,
			wantCode:    http.StatusInternalServerError,
			wantError:   "Payment gateway request failed",
			wantDetails: true,
		},
		{
			name:       "gateway details hidden in production",
			err:        upstream,
			production: true,
			wantCode:   http.StatusInternalServerError,
			wantError:  "Payment gateway request failed",
		},
		{
			name:       "untyped error",
			err:        errors.New("boom"),
			production: true,
			wantCode:   http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPaymentService{
				createOrderFunc: func(context.Context, provider.OrderRequest) (*provider.Order, error) {
					return nil, tt.err
				},
			}
			h := newTestHandler(svc, tt.production)

			w, body := doJSON(t, h.CreateOrder, http.MethodPost, "/api/payment/create-order", validOrderBody)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantError, body["error"])
			details, hasDetails := body["details"]
			assert.Equal(t, tt.wantDetails, hasDetails)
			if hasDetails {
				assert.Contains(t, details, "authentication Failed")
			}
			assert.NotContains(t, w.Body.String(), "RAZORPAY_KEY_SECRET")
		})
	}
}

func TestPaymentHandler_VerifyPayment(t *testing.T) {
	tests := []struct {
		name       string
		result     *provider.VerificationResult
		wantCode   int
		wantError  string
		wantStatus string
	}{
		{
			name:       "captured",
			result:     &provider.VerificationResult{Success: true, Gateway: provider.GatewayRazorpay, PaymentID: "pay_1", Status: provider.StatusCaptured},
			wantCode:   http.StatusOK,
			wantStatus: "captured",
		},
		{
			name:       "signature mismatch",
			result:     &provider.VerificationResult{Gateway: provider.GatewayRazorpay, Status: provider.StatusFailed, Message: provider.MsgSignatureMismatch},
			wantCode:   http.StatusBadRequest,
			wantError:  "Payment signature verification failed",
			wantStatus: "failed",
		},
		{
			name:       "gateway declined",
			result:     &provider.VerificationResult{Gateway: provider.GatewayPhonePe, Status: provider.StatusPending, Message: "Payment is pending"},
			wantCode:   http.StatusBadRequest,
			wantError:  "Payment verification failed",
			wantStatus: "pending",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPaymentService{
				verifyPaymentFunc: func(_ context.Context, req provider.VerificationRequest) (*provider.VerificationResult, error) {
					assert.Equal(t, "order_1", req.OrderID)
					return tt.result, nil
				},
			}
			h := newTestHandler(svc, false)

			w, body := doJSON(t, h.VerifyPayment, http.MethodPost, "/api/payment/verify-payment",
				`{"gateway":"razorpay","orderId":"order_1","paymentId":"pay_1","signature":"abc"}`)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantCode == http.StatusOK, body["success"])
			assert.Equal(t, tt.wantStatus, body["status"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}
		})
	}
}

func TestPaymentHandler_VerifyPaymentMissingGateway(t *testing.T) {
	svc := &mockPaymentService{}
	h := newTestHandler(svc, false)

	w, body := doJSON(t, h.VerifyPayment, http.MethodPost, "/api/payment/verify-payment", `{"orderId":"order_1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "gateway is required", body["error"])
	assert.Equal(t, int32(0), svc.calls.Load())
}

func TestPaymentHandler_GetStatus(t *testing.T) {
	svc := &mockPaymentService{}
	h := newTestHandler(svc, false)

	r := chi.NewRouter()
	r.Get("/api/payment/status/{gateway}/{id}", h.GetStatus)

	req := httptest.NewRequest(http.MethodGet, "/api/payment/status/cashfree/ORD_1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	status := body["status"].(map[string]any)
	assert.Equal(t, "cashfree", status["gateway"])
	assert.Equal(t, "ORD_1", status["id"])
	assert.Equal(t, "successful", status["status"])
}

func TestPaymentHandler_Refund(t *testing.T) {
	svc := &mockPaymentService{
		refundFunc: func(_ context.Context, req provider.RefundRequest) (*provider.RefundResult, error) {
			assert.Equal(t, "pay_1", req.PaymentID)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("499.5")))
			return &provider.RefundResult{Success: true, Gateway: provider.GatewayRazorpay, RefundID: "rfnd_1", Status: provider.StatusRefunded, Amount: req.Amount}, nil
		},
	}
	h := newTestHandler(svc, false)

	w, body := doJSON(t, h.Refund, http.MethodPost, "/api/payment/refund",
		`{"gateway":"razorpay","paymentId":"pay_1","amount":"499.50","note":"duplicate purchase"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	refund := body["refund"].(map[string]any)
	assert.Equal(t, "rfnd_1", refund["refundId"])
	assert.Equal(t, "refunded", refund["status"])
}

func TestPaymentHandler_RefundNotAccepted(t *testing.T) {
	svc := &mockPaymentService{
		refundFunc: func(_ context.Context, req provider.RefundRequest) (*provider.RefundResult, error) {
			return &provider.RefundResult{Success: false, Gateway: provider.GatewayCashfree, RefundID: "refund_1", Status: provider.StatusFailed, GatewayStatus: "CANCELLED", Amount: req.Amount}, nil
		},
	}
	h := newTestHandler(svc, false)

	w, body := doJSON(t, h.Refund, http.MethodPost, "/api/payment/refund",
		`{"gateway":"cashfree","orderId":"ORD_1","amount":"100"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Refund was not accepted by the payment gateway", body["error"])
	refund := body["refund"].(map[string]any)
	assert.Equal(t, "refund_1", refund["refundId"])
	assert.Equal(t, "CANCELLED", refund["gatewayStatus"])
}
