package phonepe

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mstgnz/coursepay/infra/config"
	"github.com/mstgnz/coursepay/infra/logger"
	"github.com/mstgnz/coursepay/provider"
	"github.com/mstgnz/coursepay/provider/signature"
	"github.com/shopspring/decimal"
)

const (
	// API URLs
	apiSandboxURL    = "https://api-preprod.phonepe.com/apis/pg-sandbox"
	apiProductionURL = "https://api.phonepe.com/apis/hermes"

	// API Endpoints
	endpointPay    = "/pg/v1/pay"
	endpointStatus = "/pg/v1/status/%s/%s" // merchant id, merchant transaction id
	endpointRefund = "/pg/v1/refund"

	// PhonePe response codes
	codeSuccess       = "PAYMENT_SUCCESS"
	codePending       = "PAYMENT_PENDING"
	codeInitiated     = "PAYMENT_INITIATED"
	codeError         = "PAYMENT_ERROR"
	codeDeclined      = "PAYMENT_DECLINED"
	codeCancelled     = "PAYMENT_CANCELLED"
	codeTimedOut      = "TIMED_OUT"
	codeNotFound      = "TRANSACTION_NOT_FOUND"
	codeAuthFailed    = "AUTHORIZATION_FAILED"
	codeBadRequest    = "BAD_REQUEST"
	codeInternalError = "INTERNAL_SERVER_ERROR"

	instrumentPayPage    = "PAY_PAGE"
	redirectModeRedirect = "REDIRECT"

	headerXVerify    = "X-VERIFY"
	headerMerchantID = "X-MERCHANT-ID"
	headerAuth       = "Authorization"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// PhonePeProvider implements provider.Adapter for PhonePe PG (v1 pay page)
type PhonePeProvider struct {
	merchantID      string
	saltKey         string
	saltIndex       string
	webhookUsername string
	webhookPassword string
	urls            provider.CallbackURLs
	missing         []string
	client          *provider.ProviderHTTPClient
}

// NewProvider creates a PhonePe adapter. cfg.BaseURL overrides the host
// chosen from cfg.Environment.
func NewProvider(cfg config.PhonePeConfig, urls provider.CallbackURLs, timeout time.Duration) *PhonePeProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = apiSandboxURL
		if cfg.IsProduction() {
			baseURL = apiProductionURL
		}
	}

	return &PhonePeProvider{
		merchantID:      cfg.MerchantID,
		saltKey:         cfg.SaltKey,
		saltIndex:       cfg.SaltIndex,
		webhookUsername: cfg.WebhookUsername,
		webhookPassword: cfg.WebhookPassword,
		urls:            urls,
		missing:         cfg.Missing(),
		client:          provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(baseURL, timeout)),
	}
}

func (p *PhonePeProvider) Gateway() provider.Gateway {
	return provider.GatewayPhonePe
}

func (p *PhonePeProvider) configured() error {
	if len(p.missing) > 0 {
		return provider.NewConfigurationError(provider.GatewayPhonePe, p.missing)
	}
	return nil
}

type paymentInstrument struct {
	Type string `json:"type"`
}

type payRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	MobileNumber          string            `json:"mobileNumber,omitempty"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type refundRequest struct {
	MerchantID            string `json:"merchantId"`
	MerchantUserID        string `json:"merchantUserId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	Amount                int64  `json:"amount"`
	CallbackURL           string `json:"callbackUrl"`
}

type transactionData struct {
	MerchantID            string      `json:"merchantId"`
	MerchantTransactionID string      `json:"merchantTransactionId"`
	TransactionID         string      `json:"transactionId"`
	Amount                json.Number `json:"amount"`
	State                 string      `json:"state"`
	ResponseCode          string      `json:"responseCode"`
	PaymentInstrument     *struct {
		Type string `json:"type"`
	} `json:"paymentInstrument"`
	InstrumentResponse *struct {
		Type         string `json:"type"`
		RedirectInfo struct {
			URL    string `json:"url"`
			Method string `json:"method"`
		} `json:"redirectInfo"`
	} `json:"instrumentResponse"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    transactionData `json:"data"`
}

func (d transactionData) amount() decimal.Decimal {
	minor, err := d.Amount.Int64()
	if err != nil {
		return decimal.Zero
	}
	return provider.FromMinorUnits(minor)
}

func (d transactionData) method() string {
	if d.PaymentInstrument != nil {
		return d.PaymentInstrument.Type
	}
	return ""
}

// CreateOrder starts a pay page transaction. The client is sent to the
// returned RedirectURL.
func (p *PhonePeProvider) CreateOrder(ctx context.Context, request provider.OrderRequest) (*provider.Order, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	minor, err := provider.ToMinorUnits(request.Amount)
	if err != nil {
		return nil, provider.NewValidationError("Invalid amount")
	}

	transactionID := provider.NewReceipt("TXN")
	payload := payRequest{
		MerchantID:            p.merchantID,
		MerchantTransactionID: transactionID,
		MerchantUserID:        merchantUserID(request.Customer.Email),
		Amount:                minor,
		RedirectURL:           p.urls.Frontend + "/payment-status?gateway=phonepe&transactionId=" + url.QueryEscape(transactionID),
		RedirectMode:          redirectModeRedirect,
		CallbackURL:           p.urls.Backend + "/api/webhook/phonepe",
		MobileNumber:          mobileNumber(request.Customer.Phone),
		PaymentInstrument:     paymentInstrument{Type: instrumentPayPage},
	}

	res, err := p.signedPost(ctx, endpointPay, payload)
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayPhonePe, "create_order", err)
	}
	if !res.Success || res.Data.InstrumentResponse == nil || res.Data.InstrumentResponse.RedirectInfo.URL == "" {
		return nil, provider.NewGatewayError(provider.GatewayPhonePe, "create_order",
			fmt.Errorf("pay request rejected: %s %s", res.Code, res.Message))
	}

	createdAt := time.Now()
	return &provider.Order{
		OrderID:       transactionID,
		Receipt:       transactionID,
		TransactionID: transactionID,
		Amount:        minor,
		Currency:      provider.DefaultCurrency,
		Status:        provider.StatusPending,
		GatewayStatus: res.Code,
		CreatedAt:     &createdAt,
		RedirectURL:   res.Data.InstrumentResponse.RedirectInfo.URL,
	}, nil
}

// Verify asks PhonePe for the transaction status. Only PAYMENT_SUCCESS
// counts as paid.
func (p *PhonePeProvider) Verify(ctx context.Context, request provider.VerificationRequest) (*provider.VerificationResult, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	res, err := p.status(ctx, request.TransactionID)
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayPhonePe, "verify", err)
	}

	result := &provider.VerificationResult{
		Success:       res.Code == codeSuccess,
		Gateway:       provider.GatewayPhonePe,
		TransactionID: request.TransactionID,
		PaymentID:     res.Data.TransactionID,
		Status:        mapCode(res.Code),
		GatewayStatus: res.Code,
		Amount:        res.Data.amount(),
		Currency:      provider.DefaultCurrency,
		Method:        res.Data.method(),
		ResponseCode:  res.Data.ResponseCode,
	}
	if !result.Success {
		result.Message = res.Message
	}
	return result, nil
}

// GetStatus looks up a merchant transaction id
func (p *PhonePeProvider) GetStatus(ctx context.Context, id string) (*provider.StatusResult, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	res, err := p.status(ctx, id)
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayPhonePe, "status", err)
	}

	raw := map[string]any{
		"code":          res.Code,
		"message":       res.Message,
		"transactionId": res.Data.TransactionID,
		"amount":        res.Data.Amount.String(),
		"state":         res.Data.State,
		"responseCode":  res.Data.ResponseCode,
	}
	if m := res.Data.method(); m != "" {
		raw["paymentInstrument"] = map[string]any{"type": m}
	}

	return &provider.StatusResult{
		Gateway:       provider.GatewayPhonePe,
		ID:            id,
		Success:       res.Code == codeSuccess,
		Status:        mapCode(res.Code),
		GatewayStatus: res.Code,
		Amount:        res.Data.amount(),
		Currency:      provider.DefaultCurrency,
		Method:        res.Data.method(),
		Raw:           raw,
	}, nil
}

// Refund refunds part or all of a completed transaction
func (p *PhonePeProvider) Refund(ctx context.Context, request provider.RefundRequest) (*provider.RefundResult, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}

	minor, err := provider.ToMinorUnits(request.Amount)
	if err != nil {
		return nil, provider.NewValidationError("Invalid amount")
	}

	refundID := provider.NewReceipt("RFND")
	payload := refundRequest{
		MerchantID:            p.merchantID,
		MerchantUserID:        "MUID_REFUND",
		OriginalTransactionID: request.TransactionID,
		MerchantTransactionID: refundID,
		Amount:                minor,
		CallbackURL:           p.urls.Backend + "/api/webhook/phonepe",
	}

	res, err := p.signedPost(ctx, endpointRefund, payload)
	if err != nil {
		return nil, provider.NewGatewayError(provider.GatewayPhonePe, "refund", err)
	}

	status := provider.StatusFailed
	switch res.Code {
	case codeSuccess:
		status = provider.StatusRefunded
	case codePending:
		status = provider.StatusPending
	}

	amount := res.Data.amount()
	if amount.IsZero() {
		amount = request.Amount
	}
	return &provider.RefundResult{
		Success:       res.Success && status != provider.StatusFailed,
		Gateway:       provider.GatewayPhonePe,
		RefundID:      firstNonEmpty(res.Data.MerchantTransactionID, refundID),
		Status:        status,
		GatewayStatus: res.Code,
		Amount:        amount,
	}, nil
}

// CheckWebhookHeaders requires Basic authorization and an X-VERIFY header.
// When webhook credentials are configured they must match.
func (p *PhonePeProvider) CheckWebhookHeaders(headers http.Header) error {
	auth := headers.Get(headerAuth)
	if !strings.HasPrefix(auth, "Basic ") {
		return provider.NewWebhookError(provider.GatewayPhonePe, provider.StageAuth, "Unauthorized", nil)
	}
	if p.webhookUsername != "" || p.webhookPassword != "" {
		if !p.checkBasicAuth(auth) {
			return provider.NewWebhookError(provider.GatewayPhonePe, provider.StageAuth, "Unauthorized", nil)
		}
	}

	if strings.TrimSpace(headers.Get(headerXVerify)) == "" {
		return provider.NewWebhookError(provider.GatewayPhonePe, provider.StageHeader, "Missing signature", nil)
	}
	return nil
}

func (p *PhonePeProvider) checkBasicAuth(header string) bool {
	r := &http.Request{Header: http.Header{headerAuth: []string{header}}}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(p.webhookUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(p.webhookPassword)) == 1
	return userOK && passOK
}

// ParseWebhook verifies X-VERIFY over the base64 response field and decodes it
func (p *PhonePeProvider) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*provider.WebhookEvent, error) {
	if err := p.configured(); err != nil {
		return nil, provider.NewWebhookError(provider.GatewayPhonePe, provider.StageProcess, "gateway is not configured", err)
	}

	event := &provider.WebhookEvent{Gateway: provider.GatewayPhonePe}

	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.Response == "" {
		if err == nil {
			err = errors.New("response field is empty")
		}
		return event, provider.NewWebhookError(provider.GatewayPhonePe, provider.StageParse, "invalid payload", err)
	}

	if !signature.VerifyPhonePe(envelope.Response, "", p.saltKey, p.saltIndex, headers.Get(headerXVerify)) {
		return event, provider.NewWebhookError(provider.GatewayPhonePe, provider.StageSignature, "Invalid signature", nil)
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return event, provider.NewWebhookError(provider.GatewayPhonePe, provider.StageParse, "invalid response encoding", err)
	}

	var res apiResponse
	if err := json.Unmarshal(decoded, &res); err != nil {
		return event, provider.NewWebhookError(provider.GatewayPhonePe, provider.StageParse, "invalid response body", err)
	}

	event.Valid = true
	event.Processed = true
	event.EventType = res.Code
	event.OrderID = res.Data.MerchantTransactionID
	event.TransactionID = res.Data.MerchantTransactionID
	event.PaymentID = res.Data.TransactionID
	event.Status = mapCode(res.Code)
	event.GatewayStatus = firstNonEmpty(res.Data.State, res.Code)
	event.Amount = res.Data.amount()
	event.Currency = provider.DefaultCurrency
	event.Success = res.Code == codeSuccess
	if !event.Success {
		event.Reason = firstNonEmpty(res.Message, res.Data.ResponseCode)
	}
	now := time.Now()
	event.Timestamp = &now

	return event, nil
}

// signedPost sends {"request": base64(payload)} with its X-VERIFY header
func (p *PhonePeProvider) signedPost(ctx context.Context, endpoint string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(body)

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpoint,
		Headers: map[string]string{
			headerXVerify: signature.PhonePeXVerify(encoded, endpoint, p.saltKey, p.saltIndex),
		},
		Body: map[string]string{"request": encoded},
	})
	return p.decode(resp, err)
}

func (p *PhonePeProvider) status(ctx context.Context, transactionID string) (*apiResponse, error) {
	endpoint := fmt.Sprintf(endpointStatus, url.PathEscape(p.merchantID), url.PathEscape(transactionID))
	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodGet,
		Endpoint: endpoint,
		Headers: map[string]string{
			headerXVerify:    signature.PhonePeXVerify("", endpoint, p.saltKey, p.saltIndex),
			headerMerchantID: p.merchantID,
		},
	})
	return p.decode(resp, err)
}

// decode accepts any non-5xx answer that carries a payment response code.
// PhonePe reports declined or unknown transactions with 4xx bodies. Codes
// that reject the request itself (credentials, malformed call, PhonePe
// internal errors) are returned as errors, never as payment results.
func (p *PhonePeProvider) decode(resp *provider.HTTPResponse, sendErr error) (*apiResponse, error) {
	if resp == nil {
		return nil, sendErr
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, sendErr
	}

	var res apiResponse
	if err := p.client.ParseJSONResponse(resp, &res); err != nil || res.Code == "" {
		if sendErr != nil {
			return nil, sendErr
		}
		if err == nil {
			err = errors.New("response has no code")
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if rejected(resp.StatusCode, res.Code) {
		logger.WithGateway(string(provider.GatewayPhonePe)).
			AddField("http_status", resp.StatusCode).
			AddField("code", res.Code).
			Warn("PhonePe rejected the request")
		if sendErr == nil {
			sendErr = &provider.HTTPStatusError{StatusCode: resp.StatusCode, Body: resp.Body}
		}
		return nil, fmt.Errorf("request rejected with %s: %w", res.Code, sendErr)
	}
	return &res, nil
}

func rejected(statusCode int, code string) bool {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return true
	}
	switch code {
	case codeAuthFailed, codeBadRequest, codeInternalError:
		return true
	}
	return false
}

func mapCode(code string) provider.PaymentStatus {
	switch code {
	case codeSuccess:
		return provider.StatusSuccessful
	case codePending, codeInitiated:
		return provider.StatusPending
	case codeError, codeDeclined, codeCancelled, codeTimedOut, codeNotFound:
		return provider.StatusFailed
	default:
		return provider.StatusUnknown
	}
}

// merchantUserID derives a stable alphanumeric user id from the email
func merchantUserID(email string) string {
	id := nonAlnum.ReplaceAllString(email, "")
	if len(id) > 30 {
		id = id[:30]
	}
	return "MUID" + id
}

// mobileNumber keeps the last ten digits of an Indian phone number
func mobileNumber(phone string) string {
	digits := strings.TrimPrefix(provider.NormalizePhone(phone), "+")
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
