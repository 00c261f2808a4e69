package provider

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// local@domain.tld, no whitespace
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// optional leading +, then 10 to 15 digits
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// IsValidEmail reports whether s looks like a deliverable email address
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// IsValidPhone accepts 10 to 15 digits with an optional leading "+". Spaces
// and dashes are ignored.
func IsValidPhone(s string) bool {
	return phonePattern.MatchString(NormalizePhone(s))
}

// NormalizePhone strips spaces and dashes
func NormalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}

// ValidateCustomer checks the checkout form fields
func ValidateCustomer(c Customer) error {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" || strings.TrimSpace(c.Phone) == "" {
		return NewValidationError("Customer details (name, email, phone) are required")
	}
	if !IsValidEmail(c.Email) {
		return NewValidationError("Invalid customer email")
	}
	if !IsValidPhone(c.Phone) {
		return NewValidationError("Invalid customer phone")
	}
	return nil
}

// ValidateOrderRequest checks amount, gateway and customer. It returns the
// parsed gateway and the amount in minor units.
func ValidateOrderRequest(req OrderRequest) (Gateway, int64, error) {
	minor, err := ToMinorUnits(req.Amount)
	if err != nil {
		return "", 0, amountError(err)
	}

	gateway, err := ParseGateway(req.Gateway)
	if err != nil {
		return "", 0, err
	}

	if err := ValidateCustomer(req.Customer); err != nil {
		return "", 0, err
	}

	if req.Currency != "" && req.Currency != DefaultCurrency {
		return "", 0, NewValidationError("Only INR payments are supported")
	}

	return gateway, minor, nil
}

// ValidateVerificationRequest checks the per-gateway required fields
func ValidateVerificationRequest(gateway Gateway, req VerificationRequest) error {
	switch gateway {
	case GatewayRazorpay:
		if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
			return NewValidationError("Missing required Razorpay verification parameters (orderId, paymentId, signature)")
		}
	case GatewayPhonePe:
		if req.TransactionID == "" {
			return NewValidationError("Transaction ID required for PhonePe")
		}
	case GatewayCashfree:
		if req.OrderID == "" || req.PaymentID == "" {
			return NewValidationError("Order ID and Payment ID required for Cashfree")
		}
	}
	return nil
}

// ValidateRefundRequest checks the per-gateway identifiers and the amount
func ValidateRefundRequest(gateway Gateway, req RefundRequest) error {
	switch gateway {
	case GatewayRazorpay:
		if req.PaymentID == "" {
			return NewValidationError("Payment ID required for Razorpay refunds")
		}
	case GatewayPhonePe:
		if req.TransactionID == "" {
			return NewValidationError("Transaction ID required for PhonePe refunds")
		}
	case GatewayCashfree:
		if req.OrderID == "" {
			return NewValidationError("Order ID required for Cashfree refunds")
		}
	}

	if _, err := ToMinorUnits(req.Amount); err != nil {
		return amountError(err)
	}
	return nil
}

func amountError(err error) error {
	if errors.Is(err, ErrInvalidAmount) {
		return NewValidationError("Invalid amount")
	}
	return err
}
