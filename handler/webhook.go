package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/coursepay/infra/logger"
	"github.com/mstgnz/coursepay/infra/opensearch"
	"github.com/mstgnz/coursepay/infra/response"
	"github.com/mstgnz/coursepay/provider"
)

// HandleWebhook handles POST /api/webhook/{gateway}.
//
// Missing signature headers are answered with 400 and failed authentication
// with 401. Anything that goes wrong after the delivery is authenticated is
// logged and answered with 200, so the gateway does not keep redelivering.
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	gateway := chi.URLParam(r, "gateway")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "Payload too large", nil)
			return
		}
		response.Error(w, http.StatusBadRequest, "Invalid webhook payload", nil)
		return
	}

	event, err := h.paymentService.HandleWebhook(r.Context(), gateway, payload, r.Header)
	if err == nil {
		response.Acknowledge(w, true, "Webhook received", event)
		return
	}

	var we *provider.WebhookError
	if !errors.As(err, &we) {
		h.writeError(w, r, err)
		return
	}

	logCtx := logger.LogContext{
		Gateway:   we.Gateway.String(),
		RequestID: middleware.GetReqID(r.Context()),
		Fields:    map[string]any{"stage": string(we.Stage)},
	}

	switch we.Stage {
	case provider.StageHeader:
		logger.Warn("Webhook rejected: "+we.Message, logCtx)
		response.Error(w, http.StatusBadRequest, we.Message, nil)
	case provider.StageAuth, provider.StageSignature:
		logger.Warn("Webhook rejected: "+we.Message, logCtx)
		response.Error(w, http.StatusUnauthorized, we.Message, nil)
	default:
		logCtx.Fields["payload"] = opensearch.SanitizeForLog(preview(payload))
		logger.Error("Webhook processing failed", err, logCtx)
		response.Acknowledge(w, false, "Webhook received with errors", map[string]string{
			"stage": string(we.Stage),
			"error": we.Message,
		})
	}
}

const maxPayloadPreview = 2048

func preview(payload []byte) string {
	if len(payload) > maxPayloadPreview {
		return string(payload[:maxPayloadPreview]) + "..."
	}
	return string(payload)
}
