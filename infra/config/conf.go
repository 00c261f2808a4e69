package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Validator *validator.Validate
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port             string
	Environment      string
	FrontendURL      string
	BackendURL       string
	GatewayTimeout   time.Duration
	RateLimit        float64
	RateBurst        int
	AllowedOrigins   []string
	LogLevel         string
	LogFormat        string
	OpenSearchURL    string
	OpenSearchUser   string
	OpenSearchPass   string
	EnableOpenSearch bool
}

var (
	instance          *Config
	appConfigInstance *AppConfig
)

func App() *Config {
	if instance == nil {
		instance = &Config{
			Validator: validator.New(),
		}
	}
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			Port:             GetEnv("PORT", "5000"),
			Environment:      GetEnv("APP_ENV", GetEnv("NODE_ENV", "development")),
			FrontendURL:      strings.TrimSuffix(GetEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
			BackendURL:       strings.TrimSuffix(GetEnv("BACKEND_URL", "http://localhost:5000"), "/"),
			GatewayTimeout:   GetDurationEnv("GATEWAY_TIMEOUT", 20*time.Second),
			RateLimit:        GetFloatEnv("RATE_LIMIT_PER_SECOND", 5),
			RateBurst:        GetIntEnv("RATE_LIMIT_BURST", 20),
			AllowedOrigins:   GetListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
			LogLevel:         GetEnv("LOG_LEVEL", "info"),
			LogFormat:        GetEnv("LOG_FORMAT", "json"),
			OpenSearchURL:    GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUser:   GetEnv("OPENSEARCH_USER", ""),
			OpenSearchPass:   GetEnv("OPENSEARCH_PASSWORD", ""),
			EnableOpenSearch: GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", false),
		}
	}
	return appConfigInstance
}

// IsProduction reports whether error details must be hidden from clients.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// IsDevelopment reports whether the service runs in development mode.
func (c *AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetFloatEnv returns the float value of an environment variable or a default value
func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetDurationEnv accepts Go duration strings ("15s") or a plain number of seconds.
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// GetListEnv splits a comma separated variable, dropping empty items
func GetListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
