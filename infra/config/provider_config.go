package config

import (
	"strings"
)

// RazorpayConfig holds Razorpay API credentials
type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// PhonePeConfig holds PhonePe PG credentials
type PhonePeConfig struct {
	MerchantID      string
	SaltKey         string
	SaltIndex       string
	Environment     string
	BaseURL         string
	WebhookUsername string
	WebhookPassword string
}

// CashfreeConfig holds Cashfree PG credentials
type CashfreeConfig struct {
	AppID       string
	SecretKey   string
	Environment string
	BaseURL     string
	APIVersion  string
}

// GatewayConfig groups the credentials of every supported gateway
type GatewayConfig struct {
	Razorpay RazorpayConfig
	PhonePe  PhonePeConfig
	Cashfree CashfreeConfig
}

// LoadGatewayConfig reads gateway credentials from the environment.
// CASHFREE_APP_SECRET and CASHFREE_API_URL are accepted as older names of
// CASHFREE_SECRET_KEY and CASHFREE_BASE_URL.
func LoadGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Razorpay: RazorpayConfig{
			KeyID:         GetEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:     GetEnv("RAZORPAY_KEY_SECRET", ""),
			WebhookSecret: GetEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		},
		PhonePe: PhonePeConfig{
			MerchantID:      GetEnv("PHONEPE_MERCHANT_ID", ""),
			SaltKey:         GetEnv("PHONEPE_SALT_KEY", ""),
			SaltIndex:       GetEnv("PHONEPE_SALT_INDEX", "1"),
			Environment:     strings.ToLower(GetEnv("PHONEPE_ENV", "sandbox")),
			BaseURL:         GetEnv("PHONEPE_BASE_URL", ""),
			WebhookUsername: GetEnv("PHONEPE_WEBHOOK_USERNAME", ""),
			WebhookPassword: GetEnv("PHONEPE_WEBHOOK_PASSWORD", ""),
		},
		Cashfree: CashfreeConfig{
			AppID:       GetEnv("CASHFREE_APP_ID", ""),
			SecretKey:   GetEnv("CASHFREE_SECRET_KEY", GetEnv("CASHFREE_APP_SECRET", "")),
			Environment: strings.ToLower(GetEnv("CASHFREE_ENV", "sandbox")),
			BaseURL:     GetEnv("CASHFREE_BASE_URL", GetEnv("CASHFREE_API_URL", "")),
			APIVersion:  GetEnv("CASHFREE_API_VERSION", "2023-08-01"),
		},
	}
}

// Missing returns the names of the required Razorpay settings that are empty
func (c RazorpayConfig) Missing() []string {
	return missing(map[string]string{
		"RAZORPAY_KEY_ID":     c.KeyID,
		"RAZORPAY_KEY_SECRET": c.KeySecret,
	}, "RAZORPAY_KEY_ID", "RAZORPAY_KEY_SECRET")
}

// Missing returns the names of the required PhonePe settings that are empty
func (c PhonePeConfig) Missing() []string {
	return missing(map[string]string{
		"PHONEPE_MERCHANT_ID": c.MerchantID,
		"PHONEPE_SALT_KEY":    c.SaltKey,
		"PHONEPE_SALT_INDEX":  c.SaltIndex,
	}, "PHONEPE_MERCHANT_ID", "PHONEPE_SALT_KEY", "PHONEPE_SALT_INDEX")
}

// IsProduction reports whether the PhonePe production host is used
func (c PhonePeConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Missing returns the names of the required Cashfree settings that are empty
func (c CashfreeConfig) Missing() []string {
	return missing(map[string]string{
		"CASHFREE_APP_ID":     c.AppID,
		"CASHFREE_SECRET_KEY": c.SecretKey,
	}, "CASHFREE_APP_ID", "CASHFREE_SECRET_KEY")
}

// IsProduction reports whether the Cashfree production host is used
func (c CashfreeConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Validate reports missing settings per gateway. An empty map means every
// gateway is fully configured.
func (c GatewayConfig) Validate() map[string][]string {
	result := make(map[string][]string)
	if m := c.Razorpay.Missing(); len(m) > 0 {
		result["razorpay"] = m
	}
	if m := c.PhonePe.Missing(); len(m) > 0 {
		result["phonepe"] = m
	}
	if m := c.Cashfree.Missing(); len(m) > 0 {
		result["cashfree"] = m
	}
	return result
}

func missing(values map[string]string, order ...string) []string {
	var out []string
	for _, key := range order {
		if strings.TrimSpace(values[key]) == "" {
			out = append(out, key)
		}
	}
	return out
}
