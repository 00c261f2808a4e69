package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/coursepay/infra/logger"
	"github.com/mstgnz/coursepay/infra/response"
	"github.com/mstgnz/coursepay/infra/validate"
	"github.com/mstgnz/coursepay/provider"
)

const requestTimeout = 30 * time.Second

// PaymentServiceInterface defines the interface for payment operations
type PaymentServiceInterface interface {
	CreateOrder(ctx context.Context, request provider.OrderRequest) (*provider.Order, error)
	VerifyPayment(ctx context.Context, request provider.VerificationRequest) (*provider.VerificationResult, error)
	GetStatus(ctx context.Context, gateway, id string) (*provider.StatusResult, error)
	Refund(ctx context.Context, request provider.RefundRequest) (*provider.RefundResult, error)
	HandleWebhook(ctx context.Context, gateway string, payload []byte, headers http.Header) (*provider.WebhookEvent, error)
	Gateways() []provider.Gateway
}

// PaymentHandler handles payment related HTTP requests
type PaymentHandler struct {
	paymentService PaymentServiceInterface
	validate       *validator.Validate
	production     bool
}

// NewPaymentHandler creates a new payment handler. In production upstream
// error details are never sent to the client.
func NewPaymentHandler(paymentService PaymentServiceInterface, validate *validator.Validate, production bool) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		validate:       validate,
		production:     production,
	}
}

type orderResponse struct {
	Code    int              `json:"code"`
	Success bool             `json:"success"`
	Gateway provider.Gateway `json:"gateway"`
	Order   *provider.Order  `json:"order"`
}

type refundResponse struct {
	Code    int                    `json:"code"`
	Success bool                   `json:"success"`
	Error   string                 `json:"error,omitempty"`
	Refund  *provider.RefundResult `json:"refund"`
}

// CreateOrder handles POST /api/payment/create-order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req provider.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	if err := validate.Struct(h.validate, req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	order, err := h.paymentService.CreateOrder(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	gateway, _ := provider.ParseGateway(req.Gateway)
	_ = response.WriteJSON(w, http.StatusOK, orderResponse{
		Code:    http.StatusOK,
		Success: true,
		Gateway: gateway,
		Order:   order,
	})
}

// VerifyPayment handles POST /api/payment/verify-payment. A payment the
// gateway did not confirm is answered with 400 and its status.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req provider.VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	if err := validate.Struct(h.validate, req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.paymentService.VerifyPayment(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !result.Success {
		message := "Payment verification failed"
		if result.Message == provider.MsgSignatureMismatch {
			message = result.Message
		}
		response.Failure(w, http.StatusBadRequest, message, result.Status)
		return
	}

	_ = response.WriteJSON(w, http.StatusOK, result)
}

// GetStatus handles GET /api/payment/status/{gateway}/{id}
func (h *PaymentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	gateway := chi.URLParam(r, "gateway")
	id := chi.URLParam(r, "id")

	result, err := h.paymentService.GetStatus(ctx, gateway, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	_ = response.WriteJSON(w, http.StatusOK, response.Response{
		Code:    http.StatusOK,
		Success: true,
		Status:  result,
	})
}

// Refund handles POST /api/payment/refund
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req provider.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	if err := validate.Struct(h.validate, req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.paymentService.Refund(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// a refund the gateway cancelled or failed keeps its details in the body
	if !result.Success {
		_ = response.WriteJSON(w, http.StatusBadRequest, refundResponse{
			Code:   http.StatusBadRequest,
			Error:  "Refund was not accepted by the payment gateway",
			Refund: result,
		})
		return
	}

	_ = response.WriteJSON(w, http.StatusOK, refundResponse{
		Code:    http.StatusOK,
		Success: true,
		Refund:  result,
	})
}

// writeError maps a typed service error to a status code. Only validation
// messages are echoed; the rest stay in the logs.
func (h *PaymentHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *provider.Error
	if errors.As(err, &perr) && perr.Kind == provider.KindValidation {
		response.Error(w, http.StatusBadRequest, perr.Message, nil)
		return
	}

	logCtx := logger.LogContext{RequestID: middleware.GetReqID(r.Context())}
	if perr != nil {
		logCtx.Gateway = perr.Gateway.String()
	}

	var details error
	if !h.production {
		details = err
	}

	switch provider.KindOf(err) {
	case provider.KindConfiguration:
		logger.Error("Payment gateway is not configured", err, logCtx)
		response.Error(w, http.StatusInternalServerError, "Payment gateway is not configured", nil)
	case provider.KindGateway:
		logger.Error("Payment gateway request failed", err, logCtx)
		response.Error(w, http.StatusInternalServerError, "Payment gateway request failed", details)
	default:
		logger.Error("Payment request failed", err, logCtx)
		response.Error(w, http.StatusInternalServerError, "Internal server error", details)
	}
}
