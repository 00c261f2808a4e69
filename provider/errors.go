package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures so the HTTP layer can pick a status code
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindGateway       ErrorKind = "gateway"
)

// ErrInvalidAmount is returned when an amount is not positive or cannot be
// expressed in whole minor units.
var ErrInvalidAmount = errors.New("invalid amount")

// Error is the typed error returned by the orchestrator and adapters
type Error struct {
	Kind    ErrorKind
	Gateway Gateway
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Gateway != "" {
		b.WriteString(string(e.Gateway))
		b.WriteString(": ")
	}
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports a problem with the caller's input. The message
// is shown to the client as is.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewConfigurationError reports missing gateway credentials
func NewConfigurationError(gateway Gateway, missing []string) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Gateway: gateway,
		Message: "gateway is not configured",
		Err:     fmt.Errorf("missing %s", strings.Join(missing, ", ")),
	}
}

// NewGatewayError wraps a transport failure, timeout or rejected upstream call
func NewGatewayError(gateway Gateway, op string, err error) *Error {
	return &Error{Kind: KindGateway, Gateway: gateway, Op: op, Message: "upstream call failed", Err: err}
}

// KindOf returns the kind of a typed error, or "" for anything else
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool    { return KindOf(err) == KindValidation }
func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }
func IsGateway(err error) bool       { return KindOf(err) == KindGateway }

// WebhookStage tells at which step a webhook delivery was rejected
type WebhookStage string

const (
	StageHeader    WebhookStage = "header"
	StageAuth      WebhookStage = "auth"
	StageSignature WebhookStage = "signature"
	StageParse     WebhookStage = "parse"
	StageProcess   WebhookStage = "process"
)

// WebhookError is returned while receiving a webhook
type WebhookError struct {
	Gateway Gateway
	Stage   WebhookStage
	Message string
	Err     error
}

func (e *WebhookError) Error() string {
	msg := fmt.Sprintf("%s webhook %s: %s", e.Gateway, e.Stage, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WebhookError) Unwrap() error {
	return e.Err
}

// NewWebhookError builds a WebhookError for the given stage
func NewWebhookError(gateway Gateway, stage WebhookStage, message string, err error) *WebhookError {
	return &WebhookError{Gateway: gateway, Stage: stage, Message: message, Err: err}
}
