package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/mstgnz/coursepay/infra/config"
	"github.com/mstgnz/coursepay/provider"
	"github.com/mstgnz/coursepay/provider/signature"
	razorpaysdk "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

const (
	// Razorpay status values
	statusCreated    = "created"
	statusAttempted  = "attempted"
	statusPaid       = "paid"
	statusAuthorized = "authorized"
	statusCaptured   = "captured"
	statusRefunded   = "refunded"
	statusFailed     = "failed"
	statusProcessed  = "processed"
	statusPending    = "pending"

	// Webhook events
	eventPaymentAuthorized = "payment.authorized"
	eventPaymentCaptured   = "payment.captured"
	eventPaymentFailed     = "payment.failed"
	eventRefundCreated     = "refund.created"
	eventRefundProcessed   = "refund.processed"
	eventOrderPaid         = "order.paid"

	headerSignature = "X-Razorpay-Signature"
	orderIDPrefix   = "order_"
)

// orderAPI is the part of the SDK order resource the adapter uses
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// paymentAPI is the part of the SDK payment resource the adapter uses
type paymentAPI interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayProvider implements provider.Adapter on top of the official SDK
type RazorpayProvider struct {
	keyID         string
	keySecret     string
	webhookSecret string
	missing       []string
	orders        orderAPI
	payments      paymentAPI
}

// NewProvider creates a Razorpay adapter. Missing credentials do not fail
// construction; every call returns a configuration error instead.
func NewProvider(cfg config.RazorpayConfig) *RazorpayProvider {
	client := razorpaysdk.NewClient(cfg.KeyID, cfg.KeySecret)
	return newProvider(cfg, client.Order, client.Payment)
}

func newProvider(cfg config.RazorpayConfig, orders orderAPI, payments paymentAPI) *RazorpayProvider {
	return &RazorpayProvider{
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		missing:       cfg.Missing(),
		orders:        orders,
		payments:      payments,
	}
}

func (p *RazorpayProvider) Gateway() provider.Gateway {
	return provider.GatewayRazorpay
}

func (p *RazorpayProvider) configured() error {
	if len(p.missing) > 0 {
		return provider.NewConfigurationError(provider.GatewayRazorpay, p.missing)
	}
	return nil
}

// CreateOrder opens a Razorpay order. The client opens checkout with the
// returned order id and razorpayKey.
func (p *RazorpayProvider) CreateOrder(ctx context.Context, request provider.OrderRequest) (*provider.Order, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	minor, err := provider.ToMinorUnits(request.Amount)
	if err != nil {
		return nil, provider.NewValidationError("Invalid amount")
	}

	currency := request.Currency
	if currency == "" {
		currency = provider.DefaultCurrency
	}
	receipt := provider.NewReceipt("rcpt")

	data := map[string]interface{}{
		"amount":   minor,
		"currency": currency,
		"receipt":  receipt,
		"notes": map[string]interface{}{
			"customer_name":  request.Customer.Name,
			"customer_email": request.Customer.Email,
			"customer_phone": provider.NormalizePhone(request.Customer.Phone),
			"description":    request.Description,
		},
	}

	res, err := call(ctx, func() (map[string]interface{}, error) {
		return p.orders.Create(data, nil)
	})
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayRazorpay, "create_order", err)
	}

	orderID := stringField(res, "id")
	if orderID == "" {
		return nil, provider.NewGatewayError(provider.GatewayRazorpay, "create_order", errors.New("response has no order id"))
	}

	amount := intField(res, "amount")
	if amount == 0 {
		amount = minor
	}
	var createdAt *time.Time
	if ts := intField(res, "created_at"); ts > 0 {
		t := time.Unix(ts, 0)
		createdAt = &t
	}
	gwStatus := stringField(res, "status")

	return &provider.Order{
		OrderID:       orderID,
		Receipt:       receipt,
		Amount:        amount,
		Currency:      strings.ToUpper(firstNonEmpty(stringField(res, "currency"), currency)),
		Status:        mapStatus(gwStatus),
		GatewayStatus: gwStatus,
		CreatedAt:     createdAt,
		RazorpayKey:   p.keyID,
	}, nil
}

// Verify checks the checkout signature and, when it matches, fetches the
// payment for its details. A mismatch never reaches the API.
func (p *RazorpayProvider) Verify(ctx context.Context, request provider.VerificationRequest) (*provider.VerificationResult, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	result := &provider.VerificationResult{
		Gateway:   provider.GatewayRazorpay,
		OrderID:   request.OrderID,
		PaymentID: request.PaymentID,
	}

	if !signature.VerifyRazorpayPayment(request.OrderID, request.PaymentID, request.Signature, p.keySecret) {
		result.Status = provider.StatusFailed
		result.Message = provider.MsgSignatureMismatch
		return result, nil
	}

	res, err := call(ctx, func() (map[string]interface{}, error) {
		return p.payments.Fetch(request.PaymentID, nil, nil)
	})
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayRazorpay, "verify", err)
	}

	gwStatus := stringField(res, "status")
	result.GatewayStatus = gwStatus
	result.Status = mapStatus(gwStatus)
	result.Amount = provider.FromMinorUnits(intField(res, "amount"))
	result.Currency = stringField(res, "currency")
	result.Method = stringField(res, "method")
	if ts := intField(res, "created_at"); ts > 0 {
		t := time.Unix(ts, 0)
		result.Timestamp = &t
	}

	if fetched := stringField(res, "order_id"); fetched != "" && fetched != request.OrderID {
		result.Status = provider.StatusFailed
		result.Message = "Payment does not belong to order"
		return result, nil
	}

	result.Success = result.Status != provider.StatusFailed
	if !result.Success {
		result.Message = firstNonEmpty(stringField(res, "error_description"), "Payment failed")
	}
	return result, nil
}

// GetStatus accepts either an order id (order_...) or a payment id
func (p *RazorpayProvider) GetStatus(ctx context.Context, id string) (*provider.StatusResult, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	isOrder := strings.HasPrefix(id, orderIDPrefix)
	res, err := call(ctx, func() (map[string]interface{}, error) {
		if isOrder {
			return p.orders.Fetch(id, nil, nil)
		}
		return p.payments.Fetch(id, nil, nil)
	})
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayRazorpay, "status", err)
	}

	gwStatus := stringField(res, "status")
	status := mapStatus(gwStatus)
	return &provider.StatusResult{
		Gateway:       provider.GatewayRazorpay,
		ID:            id,
		Success:       status == provider.StatusSuccessful || status == provider.StatusCaptured || status == provider.StatusAuthorized,
		Status:        status,
		GatewayStatus: gwStatus,
		Amount:        provider.FromMinorUnits(intField(res, "amount")),
		Currency:      stringField(res, "currency"),
		Method:        stringField(res, "method"),
		Raw:           res,
	}, nil
}

// Refund refunds part or all of a captured payment
func (p *RazorpayProvider) Refund(ctx context.Context, request provider.RefundRequest) (*provider.RefundResult, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	minor, err := provider.ToMinorUnits(request.Amount)
	if err != nil {
		return nil, provider.NewValidationError("Invalid amount")
	}
	if minor > math.MaxInt32 {
		return nil, provider.NewValidationError("Invalid amount")
	}

	data := map[string]interface{}{}
	if request.Note != "" {
		data["notes"] = map[string]interface{}{"reason": request.Note}
	}

	res, err := call(ctx, func() (map[string]interface{}, error) {
		return p.payments.Refund(request.PaymentID, int(minor), data, nil)
	})
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayRazorpay, "refund", err)
	}

	gwStatus := stringField(res, "status")
	status := provider.StatusPending
	switch gwStatus {
	case statusProcessed:
		status = provider.StatusRefunded
	case statusFailed:
		status = provider.StatusFailed
	}

	return &provider.RefundResult{
		Success:       status != provider.StatusFailed,
		Gateway:       provider.GatewayRazorpay,
		RefundID:      stringField(res, "id"),
		Status:        status,
		GatewayStatus: gwStatus,
		Amount:        provider.FromMinorUnits(firstPositive(intField(res, "amount"), minor)),
	}, nil
}

// CheckWebhookHeaders requires the X-Razorpay-Signature header
func (p *RazorpayProvider) CheckWebhookHeaders(headers http.Header) error {
	if strings.TrimSpace(headers.Get(headerSignature)) == "" {
		return provider.NewWebhookError(provider.GatewayRazorpay, provider.StageHeader, "Missing signature", nil)
	}
	return nil
}

type webhookEntity struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	PaymentID        string          `json:"payment_id"`
	Status           string          `json:"status"`
	Amount           json.Number     `json:"amount"`
	Currency         string          `json:"currency"`
	ErrorDescription string          `json:"error_description"`
	CreatedAt        json.Number     `json:"created_at"`
	Notes            json.RawMessage `json:"notes"`
}

type webhookPayload struct {
	Event     string      `json:"event"`
	CreatedAt json.Number `json:"created_at"`
	Payload   struct {
		Payment *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"refund"`
		Order *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseWebhook verifies the HMAC of the raw body and maps the event.
// Unknown events are valid but not processed.
func (p *RazorpayProvider) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*provider.WebhookEvent, error) {
	secret := firstNonEmpty(p.webhookSecret, p.keySecret)
	if secret == "" {
		return nil, provider.NewWebhookError(provider.GatewayRazorpay, provider.StageProcess, "webhook secret is not configured",
			provider.NewConfigurationError(provider.GatewayRazorpay, []string{"RAZORPAY_WEBHOOK_SECRET"}))
	}

	event := &provider.WebhookEvent{Gateway: provider.GatewayRazorpay}
	if !signature.VerifyRazorpayWebhook(payload, headers.Get(headerSignature), secret) {
		return event, provider.NewWebhookError(provider.GatewayRazorpay, provider.StageSignature, "Invalid signature", nil)
	}

	var body webhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return event, provider.NewWebhookError(provider.GatewayRazorpay, provider.StageParse, "invalid payload", err)
	}

	event.Valid = true
	event.EventType = body.Event
	if ts, err := body.CreatedAt.Int64(); err == nil && ts > 0 {
		t := time.Unix(ts, 0)
		event.Timestamp = &t
	}

	var payment *webhookEntity
	if body.Payload.Payment != nil {
		payment = &body.Payload.Payment.Entity
	}

	switch body.Event {
	case eventPaymentAuthorized, eventPaymentCaptured, eventPaymentFailed:
		if payment == nil {
			return event, provider.NewWebhookError(provider.GatewayRazorpay, provider.StageParse, "payment entity missing", nil)
		}
		fillFromPayment(event, payment)
		event.Processed = true
		switch body.Event {
		case eventPaymentAuthorized:
			event.Status = provider.StatusAuthorized
			event.Success = true
		case eventPaymentCaptured:
			event.Status = provider.StatusCaptured
			event.Success = true
		case eventPaymentFailed:
			event.Status = provider.StatusFailed
			event.Reason = payment.ErrorDescription
		}
	case eventOrderPaid:
		if body.Payload.Order != nil {
			event.OrderID = body.Payload.Order.Entity.ID
			event.GatewayStatus = body.Payload.Order.Entity.Status
			event.Amount = entityAmount(body.Payload.Order.Entity)
			event.Currency = body.Payload.Order.Entity.Currency
		}
		if payment != nil {
			event.PaymentID = payment.ID
		}
		event.Status = provider.StatusSuccessful
		event.Success = true
		event.Processed = true
	case eventRefundCreated, eventRefundProcessed:
		if body.Payload.Refund == nil {
			return event, provider.NewWebhookError(provider.GatewayRazorpay, provider.StageParse, "refund entity missing", nil)
		}
		refund := body.Payload.Refund.Entity
		event.RefundID = refund.ID
		event.PaymentID = refund.PaymentID
		event.GatewayStatus = refund.Status
		event.Amount = entityAmount(refund)
		event.Currency = refund.Currency
		event.Status = provider.StatusRefunded
		event.Success = true
		event.Processed = true
	default:
		event.Processed = false
	}

	return event, nil
}

func fillFromPayment(event *provider.WebhookEvent, payment *webhookEntity) {
	event.PaymentID = payment.ID
	event.OrderID = payment.OrderID
	event.GatewayStatus = payment.Status
	event.Amount = entityAmount(*payment)
	event.Currency = payment.Currency
}

func entityAmount(e webhookEntity) decimal.Decimal {
	minor, err := e.Amount.Int64()
	if err != nil {
		return provider.FromMinorUnits(0)
	}
	return provider.FromMinorUnits(minor)
}

// call runs a blocking SDK request and gives up when ctx is done. The SDK
// has no context support, so an abandoned request finishes in the background.
func call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	type result struct {
		res map[string]interface{}
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := fn()
		done <- result{res, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("razorpay request aborted: %w", ctx.Err())
	case r := <-done:
		return r.res, r.err
	}
}

func mapStatus(status string) provider.PaymentStatus {
	switch status {
	case statusCreated:
		return provider.StatusCreated
	case statusAttempted, statusPending:
		return provider.StatusPending
	case statusPaid:
		return provider.StatusSuccessful
	case statusAuthorized:
		return provider.StatusAuthorized
	case statusCaptured:
		return provider.StatusCaptured
	case statusRefunded:
		return provider.StatusRefunded
	case statusFailed:
		return provider.StatusFailed
	default:
		return provider.StatusUnknown
	}
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// intField reads a JSON number decoded by the SDK as float64
func intField(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int64) int64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
