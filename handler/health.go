package handler

import (
	"net/http"
	"time"

	"github.com/mstgnz/coursepay/infra/response"
	"github.com/mstgnz/coursepay/provider"
)

// GatewayLister reports which gateways have an adapter
type GatewayLister interface {
	Gateways() []provider.Gateway
}

// HealthHandler handles health check requests
type HealthHandler struct {
	service GatewayLister
	missing map[string][]string
}

// HealthStatus is the body of GET /health
type HealthStatus struct {
	Status    string          `json:"status"`
	Gateways  []GatewayHealth `json:"gateways"`
	Timestamp time.Time       `json:"timestamp"`
}

// GatewayHealth tells whether a gateway has all the credentials it needs
type GatewayHealth struct {
	Name       string   `json:"name"`
	Configured bool     `json:"configured"`
	Missing    []string `json:"missing,omitempty"`
}

// NewHealthHandler creates a health handler. missing is the result of
// config.GatewayConfig.Validate.
func NewHealthHandler(service GatewayLister, missing map[string][]string) *HealthHandler {
	return &HealthHandler{service: service, missing: missing}
}

// CheckHealth reports "ok" when every registered gateway is configured and
// "degraded" otherwise. The service stays up either way.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Gateways:  []GatewayHealth{},
		Timestamp: time.Now().UTC(),
	}

	for _, g := range h.service.Gateways() {
		gh := GatewayHealth{Name: g.String(), Configured: true}
		if keys := h.missing[g.String()]; len(keys) > 0 {
			gh.Configured = false
			gh.Missing = keys
			status.Status = "degraded"
		}
		status.Gateways = append(status.Gateways, gh)
	}

	if len(status.Gateways) == 0 {
		status.Status = "degraded"
	}

	response.Success(w, http.StatusOK, "Payment service is running", status)
}
