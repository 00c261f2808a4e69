package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mstgnz/coursepay/infra/logger"
	"github.com/mstgnz/coursepay/infra/metrics"
)

// PaymentService validates requests and dispatches them to gateway adapters.
// It holds no per-payment state.
type PaymentService struct {
	registry *Registry
	sink     EventSink
	timeout  time.Duration
}

// ServiceOption customizes a PaymentService
type ServiceOption func(*PaymentService)

// WithEventSink sets where verified webhook events are delivered
func WithEventSink(sink EventSink) ServiceOption {
	return func(s *PaymentService) { s.sink = sink }
}

// WithUpstreamTimeout bounds every adapter call
func WithUpstreamTimeout(d time.Duration) ServiceOption {
	return func(s *PaymentService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewPaymentService creates a new payment service
func NewPaymentService(registry *Registry, opts ...ServiceOption) *PaymentService {
	s := &PaymentService{
		registry: registry,
		timeout:  DefaultUpstreamTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Gateways returns the gateways that have an adapter
func (s *PaymentService) Gateways() []Gateway {
	return s.registry.Gateways()
}

// CreateOrder validates the request and opens an order at the chosen gateway.
// On a validation failure no adapter is called.
func (s *PaymentService) CreateOrder(ctx context.Context, request OrderRequest) (*Order, error) {
	gateway, _, err := ValidateOrderRequest(request)
	if err != nil {
		label := "unknown"
		if g, perr := ParseGateway(request.Gateway); perr == nil {
			label = g.String()
		}
		metrics.IncOrderCreated(label, outcome(err))
		return nil, err
	}
	if request.Currency == "" {
		request.Currency = DefaultCurrency
	}
	request.Gateway = gateway.String()

	adapter, err := s.registry.Get(gateway)
	if err != nil {
		metrics.IncOrderCreated(gateway.String(), outcome(err))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	order, err := adapter.CreateOrder(ctx, request)
	metrics.ObserveGatewayCall(gateway.String(), "create_order", start)
	metrics.IncOrderCreated(gateway.String(), outcome(err))
	if err != nil {
		logger.Error("Order creation failed", err, logger.LogContext{Gateway: gateway.String()})
		return nil, err
	}

	logger.Info("Order created", logger.LogContext{
		Gateway: gateway.String(),
		Fields: map[string]any{
			"order_id":       order.OrderID,
			"amount":         order.Amount,
			"customer_email": request.Customer.Email,
			"customer_phone": request.Customer.Phone,
		},
	})
	return order, nil
}

// VerifyPayment checks the per-gateway proof of payment
func (s *PaymentService) VerifyPayment(ctx context.Context, request VerificationRequest) (*VerificationResult, error) {
	gateway, err := ParseGateway(request.Gateway)
	if err != nil {
		return nil, err
	}
	if err := ValidateVerificationRequest(gateway, request); err != nil {
		metrics.IncVerification(gateway.String(), "invalid")
		return nil, err
	}

	adapter, err := s.registry.Get(gateway)
	if err != nil {
		metrics.IncVerification(gateway.String(), "error")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := adapter.Verify(ctx, request)
	metrics.ObserveGatewayCall(gateway.String(), "verify", start)
	if err != nil {
		metrics.IncVerification(gateway.String(), "error")
		logger.Error("Payment verification failed", err, logger.LogContext{Gateway: gateway.String()})
		return nil, err
	}

	if result.Success {
		metrics.IncVerification(gateway.String(), "success")
	} else {
		metrics.IncVerification(gateway.String(), "failed")
		logger.Warn("Payment not verified", logger.LogContext{
			Gateway: gateway.String(),
			Fields: map[string]any{
				"order_id":       request.OrderID,
				"payment_id":     request.PaymentID,
				"transaction_id": request.TransactionID,
				"status":         result.GatewayStatus,
			},
		})
	}
	return result, nil
}

// GetStatus looks up an order or payment. It never changes gateway state.
func (s *PaymentService) GetStatus(ctx context.Context, gatewayName, id string) (*StatusResult, error) {
	gateway, err := ParseGateway(gatewayName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, NewValidationError("ID is required")
	}

	adapter, err := s.registry.Get(gateway)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := adapter.GetStatus(ctx, id)
	metrics.ObserveGatewayCall(gateway.String(), "status", start)
	if err != nil {
		logger.Error("Status lookup failed", err, logger.LogContext{Gateway: gateway.String(), Fields: map[string]any{"id": id}})
		return nil, err
	}
	return result, nil
}

// Refund asks the gateway to refund a payment
func (s *PaymentService) Refund(ctx context.Context, request RefundRequest) (*RefundResult, error) {
	gateway, err := ParseGateway(request.Gateway)
	if err != nil {
		return nil, err
	}
	if err := ValidateRefundRequest(gateway, request); err != nil {
		metrics.IncRefund(gateway.String(), outcome(err))
		return nil, err
	}

	adapter, err := s.registry.Get(gateway)
	if err != nil {
		metrics.IncRefund(gateway.String(), outcome(err))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := adapter.Refund(ctx, request)
	metrics.ObserveGatewayCall(gateway.String(), "refund", start)
	metrics.IncRefund(gateway.String(), outcome(err))
	if err != nil {
		logger.Error("Refund failed", err, logger.LogContext{Gateway: gateway.String()})
		return nil, err
	}

	logger.Info("Refund requested", logger.LogContext{
		Gateway: gateway.String(),
		Fields: map[string]any{
			"refund_id": result.RefundID,
			"status":    result.GatewayStatus,
		},
	})
	return result, nil
}

// HandleWebhook authenticates and parses a gateway notification, then hands
// valid events to the sink. Header checks run before the body is parsed.
func (s *PaymentService) HandleWebhook(ctx context.Context, gatewayName string, payload []byte, headers http.Header) (*WebhookEvent, error) {
	gateway, err := ParseGateway(gatewayName)
	if err != nil {
		return nil, err
	}

	adapter, err := s.registry.Get(gateway)
	if err != nil {
		return nil, err
	}

	if err := adapter.CheckWebhookHeaders(headers); err != nil {
		metrics.IncWebhook(gateway.String(), webhookOutcome(err))
		return nil, err
	}

	event, err := adapter.ParseWebhook(ctx, payload, headers)
	if err != nil {
		metrics.IncWebhook(gateway.String(), webhookOutcome(err))
		return event, err
	}

	if s.sink != nil && event.Valid {
		if err := s.sink.HandleEvent(ctx, event); err != nil {
			metrics.IncWebhook(gateway.String(), string(StageProcess))
			return event, NewWebhookError(gateway, StageProcess, "event processing failed", err)
		}
	}

	metrics.IncWebhook(gateway.String(), "accepted")
	return event, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func webhookOutcome(err error) string {
	var we *WebhookError
	if errors.As(err, &we) {
		return string(we.Stage)
	}
	return "error"
}
