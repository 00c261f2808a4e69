package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway identifies a supported payment gateway
type Gateway string

const (
	GatewayRazorpay Gateway = "razorpay"
	GatewayPhonePe  Gateway = "phonepe"
	GatewayCashfree Gateway = "cashfree"
)

// SupportedGateways lists every gateway the service knows about
var SupportedGateways = []Gateway{GatewayRazorpay, GatewayPhonePe, GatewayCashfree}

// ParseGateway resolves a gateway name case-insensitively
func ParseGateway(name string) (Gateway, error) {
	g := Gateway(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range SupportedGateways {
		if g == known {
			return g, nil
		}
	}
	return "", NewValidationError("Unsupported gateway")
}

func (g Gateway) String() string {
	return string(g)
}

// PaymentStatus is the gateway-independent payment state
type PaymentStatus string

const (
	StatusCreated    PaymentStatus = "created"
	StatusPending    PaymentStatus = "pending"
	StatusAuthorized PaymentStatus = "authorized"
	StatusCaptured   PaymentStatus = "captured"
	StatusSuccessful PaymentStatus = "successful"
	StatusFailed     PaymentStatus = "failed"
	StatusRefunded   PaymentStatus = "refunded"
	StatusUnknown    PaymentStatus = "unknown"
)

// DefaultCurrency is used when a request does not name one
const DefaultCurrency = "INR"

// MsgSignatureMismatch is the message of a verification rejected because the
// client-supplied signature did not match
const MsgSignatureMismatch = "Payment signature verification failed"

// Customer represents the buyer information
type Customer struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

// OrderRequest contains everything needed to open a gateway order
type OrderRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Gateway     string          `json:"gateway" validate:"required,gateway"`
	Customer    Customer        `json:"customer"`
	Description string          `json:"description,omitempty" validate:"max=255"`
}

// Order is the gateway's acknowledgement of a created order. Amount is in
// minor units (paise) for every gateway.
type Order struct {
	OrderID          string        `json:"orderId"`
	Receipt          string        `json:"receipt,omitempty"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Status           PaymentStatus `json:"status"`
	GatewayStatus    string        `json:"gatewayStatus,omitempty"`
	CreatedAt        *time.Time    `json:"createdAt,omitempty"`
	RazorpayKey      string        `json:"razorpayKey,omitempty"`
	PaymentSessionID string        `json:"paymentSessionId,omitempty"`
	PaymentLink      string        `json:"paymentLink,omitempty"`
	RedirectURL      string        `json:"redirectUrl,omitempty"`
	TransactionID    string        `json:"transactionId,omitempty"`
}

// VerificationRequest carries the proof a client received from a gateway.
// Which fields are required depends on the gateway.
type VerificationRequest struct {
	Gateway       string `json:"gateway" validate:"required,gateway"`
	OrderID       string `json:"orderId,omitempty"`
	PaymentID     string `json:"paymentId,omitempty"`
	Signature     string `json:"signature,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// VerificationResult is the outcome of a verification. A false Success is a
// valid result, not an error.
type VerificationResult struct {
	Success       bool            `json:"success"`
	Gateway       Gateway         `json:"gateway"`
	OrderID       string          `json:"orderId,omitempty"`
	PaymentID     string          `json:"paymentId,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Status        PaymentStatus   `json:"status"`
	GatewayStatus string          `json:"gatewayStatus,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	Method        string          `json:"method,omitempty"`
	Timestamp     *time.Time      `json:"timestamp,omitempty"`
	ResponseCode  string          `json:"responseCode,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// StatusResult is a read-only view of an order or payment at the gateway
type StatusResult struct {
	Gateway       Gateway         `json:"gateway"`
	ID            string          `json:"id"`
	Success       bool            `json:"success"`
	Status        PaymentStatus   `json:"status"`
	GatewayStatus string          `json:"gatewayStatus,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	Method        string          `json:"method,omitempty"`
	Raw           map[string]any  `json:"raw,omitempty"`
}

// RefundRequest asks a gateway to return money for a captured payment.
// Amount is in rupees and may be less than the captured amount.
type RefundRequest struct {
	Gateway       string          `json:"gateway" validate:"required,gateway"`
	OrderID       string          `json:"orderId,omitempty"`
	PaymentID     string          `json:"paymentId,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note,omitempty" validate:"max=255"`
}

// RefundResult contains the gateway's answer to a refund request
type RefundResult struct {
	Success       bool            `json:"success"`
	Gateway       Gateway         `json:"gateway"`
	RefundID      string          `json:"refundId"`
	Status        PaymentStatus   `json:"status"`
	GatewayStatus string          `json:"gatewayStatus,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// WebhookEvent is a gateway notification normalized to one shape. Business
// fields are only populated when Valid is true.
type WebhookEvent struct {
	Valid         bool            `json:"valid"`
	Gateway       Gateway         `json:"gateway"`
	EventType     string          `json:"eventType,omitempty"`
	OrderID       string          `json:"orderId,omitempty"`
	PaymentID     string          `json:"paymentId,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	RefundID      string          `json:"refundId,omitempty"`
	Status        PaymentStatus   `json:"status,omitempty"`
	GatewayStatus string          `json:"gatewayStatus,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	Success       bool            `json:"success"`
	Processed     bool            `json:"processed"`
	Reason        string          `json:"reason,omitempty"`
	Timestamp     *time.Time      `json:"timestamp,omitempty"`
}

// Adapter is implemented by every gateway integration. Implementations must
// be safe for concurrent use and make at most one upstream call per method.
type Adapter interface {
	Gateway() Gateway
	CreateOrder(ctx context.Context, request OrderRequest) (*Order, error)
	Verify(ctx context.Context, request VerificationRequest) (*VerificationResult, error)
	GetStatus(ctx context.Context, id string) (*StatusResult, error)
	Refund(ctx context.Context, request RefundRequest) (*RefundResult, error)

	// CheckWebhookHeaders rejects deliveries whose authentication headers
	// are missing or malformed before the body is looked at.
	CheckWebhookHeaders(headers http.Header) error
	ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*WebhookEvent, error)
}

// EventSink receives verified webhook events. It is the integration point
// for fulfilment (enrolment, email) and must not block for long.
type EventSink interface {
	HandleEvent(ctx context.Context, event *WebhookEvent) error
}

// CallbackURLs are the public addresses gateways send the customer back to
// (Frontend) and post notifications to (Backend).
type CallbackURLs struct {
	Frontend string
	Backend  string
}
