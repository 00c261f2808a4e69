// Package signature holds the hashing and comparison helpers shared by the
// gateway adapters. All comparisons are constant time.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

// PhonePeSeparator joins the checksum and the salt index in X-VERIFY
const PhonePeSeparator = "###"

// HMACSHA256Hex returns the lowercase hex HMAC-SHA256 of message under key
func HMACSHA256Hex(key, message []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// SHA256Hex returns the lowercase hex SHA-256 of message
func SHA256Hex(message []byte) string {
	sum := sha256.Sum256(message)
	return hex.EncodeToString(sum[:])
}

// Equal compares two signatures in constant time. Hex digests are compared
// case-insensitively.
func Equal(expected, received string) bool {
	if received == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(expected)), []byte(strings.ToLower(strings.TrimSpace(received)))) == 1
}

// RazorpayPayment is the checkout handler signature:
// hex(HMAC-SHA256(keySecret, orderId + "|" + paymentId)).
func RazorpayPayment(orderID, paymentID, keySecret string) string {
	return HMACSHA256Hex([]byte(keySecret), []byte(orderID+"|"+paymentID))
}

// VerifyRazorpayPayment checks a checkout handler signature
func VerifyRazorpayPayment(orderID, paymentID, received, keySecret string) bool {
	return Equal(RazorpayPayment(orderID, paymentID, keySecret), received)
}

// VerifyRazorpayWebhook checks x-razorpay-signature against the raw body
func VerifyRazorpayWebhook(body []byte, received, secret string) bool {
	return Equal(HMACSHA256Hex([]byte(secret), body), received)
}

// CashfreeAmount renders an amount the way it is concatenated into the
// Cashfree webhook signature: shortest decimal form, empty when zero.
func CashfreeAmount(amount decimal.Decimal) string {
	if amount.IsZero() {
		return ""
	}
	return amount.String()
}

// Cashfree is hex(SHA256(orderId + orderAmount + orderCurrency + secret))
func Cashfree(orderID string, amount decimal.Decimal, currency, secret string) string {
	return SHA256Hex([]byte(orderID + CashfreeAmount(amount) + currency + secret))
}

// VerifyCashfree checks x-webhook-signature
func VerifyCashfree(orderID string, amount decimal.Decimal, currency, secret, received string) bool {
	return Equal(Cashfree(orderID, amount, currency, secret), received)
}

// PhonePeXVerify builds the X-VERIFY header value:
// sha256(payload + path + saltKey) + "###" + saltIndex. For callbacks path is
// empty and payload is the base64 response field.
func PhonePeXVerify(payload, path, saltKey, saltIndex string) string {
	return SHA256Hex([]byte(payload+path+saltKey)) + PhonePeSeparator + saltIndex
}

// VerifyPhonePe checks an X-VERIFY header. The salt index must match too.
func VerifyPhonePe(payload, path, saltKey, saltIndex, received string) bool {
	return Equal(PhonePeXVerify(payload, path, saltKey, saltIndex), received)
}
