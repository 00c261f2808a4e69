package cashfree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mstgnz/coursepay/infra/config"
	"github.com/mstgnz/coursepay/provider"
	"github.com/mstgnz/coursepay/provider/signature"
	"github.com/shopspring/decimal"
)

const (
	// API URLs
	apiSandboxURL    = "https://sandbox.cashfree.com/pg"
	apiProductionURL = "https://api.cashfree.com/pg"

	// API Endpoints
	endpointOrders  = "/orders"
	endpointOrder   = "/orders/%s"
	endpointPayment = "/orders/%s/payments/%s"
	endpointRefunds = "/orders/%s/refunds"

	// Cashfree order statuses
	orderStatusActive     = "ACTIVE"
	orderStatusPaid       = "PAID"
	orderStatusExpired    = "EXPIRED"
	orderStatusTerminated = "TERMINATED"

	// Cashfree payment statuses
	paymentStatusSuccess   = "SUCCESS"
	paymentStatusPending   = "PENDING"
	paymentStatusFailed    = "FAILED"
	paymentStatusCancelled = "CANCELLED"
	paymentStatusUserDrop  = "USER_DROPPED"

	// Cashfree refund statuses
	refundStatusSuccess   = "SUCCESS"
	refundStatusPending   = "PENDING"
	refundStatusCancelled = "CANCELLED"
	refundStatusOnHold    = "ONHOLD"

	defaultRefundNote = "Course refund"
	defaultOrderNote  = "Payment for courses"

	headerAPIVersion  = "x-api-version"
	headerClientID    = "x-client-id"
	headerSecret      = "x-client-secret"
	headerIdempotency = "x-idempotency-key"
	headerSignature   = "x-webhook-signature"
	headerRequestID   = "x-request-id"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// CashfreeProvider implements provider.Adapter for Cashfree PG
type CashfreeProvider struct {
	appID      string
	secretKey  string
	apiVersion string
	urls       provider.CallbackURLs
	missing    []string
	client     *provider.ProviderHTTPClient
}

// NewProvider creates a Cashfree adapter. cfg.BaseURL overrides the host
// chosen from cfg.Environment.
func NewProvider(cfg config.CashfreeConfig, urls provider.CallbackURLs, timeout time.Duration) *CashfreeProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = apiSandboxURL
		if cfg.IsProduction() {
			baseURL = apiProductionURL
		}
	}

	httpConfig := provider.CreateHTTPClientConfig(baseURL, timeout)
	httpConfig.DefaultHeaders[headerAPIVersion] = cfg.APIVersion
	httpConfig.DefaultHeaders[headerClientID] = cfg.AppID
	httpConfig.DefaultHeaders[headerSecret] = cfg.SecretKey

	return &CashfreeProvider{
		appID:      cfg.AppID,
		secretKey:  cfg.SecretKey,
		apiVersion: cfg.APIVersion,
		urls:       urls,
		missing:    cfg.Missing(),
		client:     provider.NewProviderHTTPClient(httpConfig),
	}
}

func (p *CashfreeProvider) Gateway() provider.Gateway {
	return provider.GatewayCashfree
}

func (p *CashfreeProvider) configured() error {
	if len(p.missing) > 0 {
		return provider.NewConfigurationError(provider.GatewayCashfree, p.missing)
	}
	return nil
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url"`
	NotifyURL string `json:"notify_url"`
}

type createOrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     json.Number       `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails customerDetails   `json:"customer_details"`
	OrderMeta       orderMeta         `json:"order_meta"`
	OrderNote       string            `json:"order_note,omitempty"`
	OrderTags       map[string]string `json:"order_tags,omitempty"`
}

type orderEntity struct {
	CFOrderID          json.Number `json:"cf_order_id"`
	OrderID            string      `json:"order_id"`
	OrderAmount        json.Number `json:"order_amount"`
	OrderCurrency      string      `json:"order_currency"`
	OrderStatus        string      `json:"order_status"`
	OrderPaymentStatus string      `json:"order_payment_status"`
	PaymentSessionID   string      `json:"payment_session_id"`
	PaymentLink        string      `json:"payment_link"`
	CreatedAt          string      `json:"created_at"`
	OrderCreationTime  string      `json:"order_creation_time"`
	Payments           *struct {
		URL string `json:"url"`
	} `json:"payments"`
}

type paymentEntity struct {
	CFPaymentID   json.Number     `json:"cf_payment_id"`
	OrderID       string          `json:"order_id"`
	PaymentStatus string          `json:"payment_status"`
	PaymentAmount json.Number     `json:"payment_amount"`
	PaymentCurr   string          `json:"payment_currency"`
	PaymentGroup  string          `json:"payment_group"`
	PaymentMethod json.RawMessage `json:"payment_method"`
	PaymentTime   string          `json:"payment_time"`
	PaymentMsg    string          `json:"payment_message"`
}

type refundEntity struct {
	CFRefundID   json.Number `json:"cf_refund_id"`
	RefundID     string      `json:"refund_id"`
	OrderID      string      `json:"order_id"`
	RefundAmount json.Number `json:"refund_amount"`
	RefundStatus string      `json:"refund_status"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// CreateOrder opens a Cashfree order. The client starts checkout with the
// returned payment session id.
func (p *CashfreeProvider) CreateOrder(ctx context.Context, request provider.OrderRequest) (*provider.Order, error) {
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
	orderID := provider.NewReceipt("ORD")
	note := request.Description
	if note == "" {
		note = defaultOrderNote
	}

	body := createOrderRequest{
		OrderID:       orderID,
		OrderAmount:   json.Number(provider.FromMinorUnits(minor).StringFixed(2)),
		OrderCurrency: currency,
		CustomerDetails: customerDetails{
			CustomerID:    customerID(request.Customer.Email),
			CustomerName:  request.Customer.Name,
			CustomerEmail: request.Customer.Email,
			CustomerPhone: provider.NormalizePhone(request.Customer.Phone),
		},
		OrderMeta: orderMeta{
			ReturnURL: p.urls.Frontend + "/payment-status?gateway=cashfree&orderId=" + url.QueryEscape(orderID),
			NotifyURL: p.urls.Backend + "/api/webhook/cashfree",
		},
		OrderNote: note,
		OrderTags: map[string]string{"source": "course", "type": "payment"},
	}

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointOrders,
		Headers:  map[string]string{headerIdempotency: orderID},
		Body:     body,
	})
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayCashfree, "create_order", describe(resp, err))
	}

	var order orderEntity
	if err := p.client.ParseJSONResponse(resp, &order); err != nil {
		return nil, provider.NewGatewayError(provider.GatewayCashfree, "create_order", err)
	}
	if order.PaymentSessionID == "" {
		return nil, provider.NewGatewayError(provider.GatewayCashfree, "create_order", errors.New("response has no payment_session_id"))
	}

	amount := minor
	if a, err := decimal.NewFromString(order.OrderAmount.String()); err == nil {
		if m, err := provider.ToMinorUnits(a); err == nil {
			amount = m
		}
	}

	paymentLink := order.PaymentLink
	if paymentLink == "" && order.Payments != nil {
		paymentLink = order.Payments.URL
	}

	return &provider.Order{
		OrderID:          firstNonEmpty(order.OrderID, orderID),
		Receipt:          orderID,
		Amount:           amount,
		Currency:         firstNonEmpty(order.OrderCurrency, currency),
		Status:           mapOrderStatus(order.OrderStatus),
		GatewayStatus:    order.OrderStatus,
		CreatedAt:        parseTime(firstNonEmpty(order.CreatedAt, order.OrderCreationTime)),
		PaymentSessionID: order.PaymentSessionID,
		PaymentLink:      paymentLink,
	}, nil
}

// Verify fetches one payment of an order. Only payment_status SUCCESS
// counts as paid.
func (p *CashfreeProvider) Verify(ctx context.Context, request provider.VerificationRequest) (*provider.VerificationResult, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodGet,
		Endpoint: fmt.Sprintf(endpointPayment, url.PathEscape(request.OrderID), url.PathEscape(request.PaymentID)),
	})
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayCashfree, "verify", describe(resp, err))
	}

	var payment paymentEntity
	if err := p.client.ParseJSONResponse(resp, &payment); err != nil {
		return nil, provider.NewGatewayError(provider.GatewayCashfree, "verify", err)
	}

	result := &provider.VerificationResult{
		Success:       payment.PaymentStatus == paymentStatusSuccess,
		Gateway:       provider.GatewayCashfree,
		OrderID:       request.OrderID,
		PaymentID:     firstNonEmpty(payment.CFPaymentID.String(), request.PaymentID),
		Status:        mapPaymentStatus(payment.PaymentStatus),
		GatewayStatus: payment.PaymentStatus,
		Amount:        toDecimal(payment.PaymentAmount),
		Currency:      payment.PaymentCurr,
		Method:        paymentMethod(payment),
	}
	result.Timestamp = parseTime(payment.PaymentTime)
	if !result.Success {
		result.Message = payment.PaymentMsg
	}
	return result, nil
}

// GetStatus looks up an order by id
func (p *CashfreeProvider) GetStatus(ctx context.Context, id string) (*provider.StatusResult, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodGet,
		Endpoint: fmt.Sprintf(endpointOrder, url.PathEscape(id)),
	})
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayCashfree, "status", describe(resp, err))
	}

	var order orderEntity
	if err := p.client.ParseJSONResponse(resp, &order); err != nil {
		return nil, provider.NewGatewayError(provider.GatewayCashfree, "status", err)
	}

	var raw map[string]any
	_ = p.client.ParseJSONResponse(resp, &raw)

	return &provider.StatusResult{
		Gateway:       provider.GatewayCashfree,
		ID:            id,
		Success:       order.OrderStatus == orderStatusPaid,
		Status:        mapOrderStatus(order.OrderStatus),
		GatewayStatus: order.OrderStatus,
		Amount:        toDecimal(order.OrderAmount),
		Currency:      order.OrderCurrency,
		Raw:           raw,
	}, nil
}

// Refund creates a refund against an order
func (p *CashfreeProvider) Refund(ctx context.Context, request provider.RefundRequest) (*provider.RefundResult, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	minor, err := provider.ToMinorUnits(request.Amount)
	if err != nil {
		return nil, provider.NewValidationError("Invalid amount")
	}

	refundID := provider.NewReceipt("RFND")
	note := request.Note
	if note == "" {
		note = defaultRefundNote
	}

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: fmt.Sprintf(endpointRefunds, url.PathEscape(request.OrderID)),
		Headers:  map[string]string{headerIdempotency: refundID},
		Body: map[string]any{
			"refund_amount": json.Number(provider.FromMinorUnits(minor).StringFixed(2)),
			"refund_id":     refundID,
			"refund_note":   note,
		},
	})
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayCashfree, "refund", describe(resp, err))
	}

	var refund refundEntity
	if err := p.client.ParseJSONResponse(resp, &refund); err != nil {
		return nil, provider.NewGatewayError(provider.GatewayCashfree, "refund", err)
	}

	status := provider.StatusPending
	switch refund.RefundStatus {
	case refundStatusSuccess:
		status = provider.StatusRefunded
	case refundStatusCancelled:
		status = provider.StatusFailed
	}

	amount := toDecimal(refund.RefundAmount)
	if amount.IsZero() {
		amount = request.Amount
	}
	return &provider.RefundResult{
		Success:       status != provider.StatusFailed,
		Gateway:       provider.GatewayCashfree,
		RefundID:      firstNonEmpty(refund.RefundID, refund.CFRefundID.String(), refundID),
		Status:        status,
		GatewayStatus: refund.RefundStatus,
		Amount:        amount,
	}, nil
}

// CheckWebhookHeaders requires the x-webhook-signature header
func (p *CashfreeProvider) CheckWebhookHeaders(headers http.Header) error {
	if strings.TrimSpace(headers.Get(headerSignature)) == "" {
		return provider.NewWebhookError(provider.GatewayCashfree, provider.StageHeader, "Missing signature", nil)
	}
	return nil
}

type webhookPayload struct {
	Type      string `json:"type"`
	EventTime string `json:"event_time"`
	Data      *struct {
		Order   *orderEntity   `json:"order"`
		Payment *paymentEntity `json:"payment"`
		Refund  *refundEntity  `json:"refund"`
	} `json:"data"`
}

// ParseWebhook checks sha256(order_id + order_amount + order_currency +
// secret) and maps the order and payment fields.
func (p *CashfreeProvider) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*provider.WebhookEvent, error) {
	if err := p.configured(); err != nil {
		return nil, provider.NewWebhookError(provider.GatewayCashfree, provider.StageProcess, "gateway is not configured", err)
	}

	event := &provider.WebhookEvent{Gateway: provider.GatewayCashfree}

	var body webhookPayload
	dec := json.NewDecoder(strings.NewReader(string(payload)))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return event, provider.NewWebhookError(provider.GatewayCashfree, provider.StageParse, "invalid payload", err)
	}
	if body.Data == nil {
		return event, provider.NewWebhookError(provider.GatewayCashfree, provider.StageSignature, "Invalid signature", errors.New("no data in webhook"))
	}

	var order orderEntity
	if body.Data.Order != nil {
		order = *body.Data.Order
	}
	amount := toDecimal(order.OrderAmount)

	if !signature.VerifyCashfree(order.OrderID, amount, order.OrderCurrency, p.secretKey, headers.Get(headerSignature)) {
		return event, provider.NewWebhookError(provider.GatewayCashfree, provider.StageSignature, "Invalid signature", nil)
	}

	event.Valid = true
	event.Processed = true
	event.EventType = body.Type
	event.OrderID = order.OrderID
	event.Amount = amount
	event.Currency = order.OrderCurrency
	event.GatewayStatus = firstNonEmpty(order.OrderPaymentStatus, order.OrderStatus)
	event.Success = order.OrderPaymentStatus == orderStatusPaid

	if payment := body.Data.Payment; payment != nil {
		event.PaymentID = payment.CFPaymentID.String()
		if payment.PaymentStatus == paymentStatusSuccess {
			event.Success = true
		}
		if event.GatewayStatus == "" {
			event.GatewayStatus = payment.PaymentStatus
		}
		if !event.Success {
			event.Reason = payment.PaymentMsg
		}
	}
	if refund := body.Data.Refund; refund != nil {
		event.RefundID = firstNonEmpty(refund.RefundID, refund.CFRefundID.String())
	}

	switch {
	case event.RefundID != "":
		event.Status = provider.StatusRefunded
	case event.Success:
		event.Status = provider.StatusSuccessful
	case body.Data.Payment != nil:
		event.Status = mapPaymentStatus(body.Data.Payment.PaymentStatus)
	default:
		event.Status = mapOrderStatus(order.OrderStatus)
	}

	event.Timestamp = parseTime(firstNonEmpty(order.OrderCreationTime, body.EventTime))

	return event, nil
}

// describe prefers Cashfree's error message over the raw status error and
// keeps the x-request-id Cashfree support asks for.
func describe(resp *provider.HTTPResponse, err error) error {
	if resp == nil || len(resp.Body) == 0 {
		return err
	}
	var apiErr apiError
	if json.Unmarshal(resp.Body, &apiErr) != nil || apiErr.Message == "" {
		return err
	}
	if id := resp.Headers.Get(headerRequestID); id != "" {
		return fmt.Errorf("%s (%s, request %s): %w", apiErr.Message, apiErr.Code, id, err)
	}
	return fmt.Errorf("%s (%s): %w", apiErr.Message, apiErr.Code, err)
}

func mapOrderStatus(status string) provider.PaymentStatus {
	switch status {
	case orderStatusPaid:
		return provider.StatusSuccessful
	case orderStatusActive:
		return provider.StatusCreated
	case orderStatusExpired, orderStatusTerminated:
		return provider.StatusFailed
	default:
		return provider.StatusUnknown
	}
}

func mapPaymentStatus(status string) provider.PaymentStatus {
	switch status {
	case paymentStatusSuccess:
		return provider.StatusSuccessful
	case paymentStatusPending:
		return provider.StatusPending
	case paymentStatusFailed, paymentStatusCancelled, paymentStatusUserDrop:
		return provider.StatusFailed
	default:
		return provider.StatusUnknown
	}
}

// paymentMethod returns payment_group or, failing that, the single key of
// the payment_method object ({"upi": {...}}).
func paymentMethod(p paymentEntity) string {
	if p.PaymentGroup != "" {
		return p.PaymentGroup
	}
	var methods map[string]json.RawMessage
	if json.Unmarshal(p.PaymentMethod, &methods) == nil {
		for name := range methods {
			return name
		}
	}
	return ""
}

// customerID is the email with everything but letters and digits removed
func customerID(email string) string {
	return nonAlnum.ReplaceAllString(email, "")
}

func toDecimal(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseTime returns nil for anything that is not RFC 3339
func parseTime(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
