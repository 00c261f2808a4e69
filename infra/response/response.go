package response

import (
	"encoding/json"
	"net/http"
)

// Response is a standardized API response structure
type Response struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
	Status  any    `json:"status,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success writes a successful response with data
func Success(w http.ResponseWriter, statusCode int, message string, data any) {
	resp := Response{
		Code:    statusCode,
		Success: true,
		Message: message,
		Data:    data,
	}
	_ = WriteJSON(w, statusCode, resp)
}

// Error writes an error response. message is what the client sees; err, when
// given, is exposed as details and must already be safe to show.
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	resp := Response{
		Code:    statusCode,
		Success: false,
		Error:   message,
	}

	if err != nil {
		resp.Details = err.Error()
	}

	_ = WriteJSON(w, statusCode, resp)
}

// Failure writes an unsuccessful outcome that carries a gateway status,
// e.g. a payment the gateway reported as declined.
func Failure(w http.ResponseWriter, statusCode int, message string, status any) {
	_ = WriteJSON(w, statusCode, Response{
		Code:    statusCode,
		Success: false,
		Error:   message,
		Status:  status,
	})
}

// WriteJSON encodes v as the response body
func WriteJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(v)
}

// Acknowledge always answers 200. success tells the sender whether the
// delivery was processed.
func Acknowledge(w http.ResponseWriter, success bool, message string, data any) {
	_ = WriteJSON(w, http.StatusOK, Response{
		Code:    http.StatusOK,
		Success: success,
		Message: message,
		Data:    data,
	})
}
