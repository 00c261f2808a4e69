package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp(t *testing.T) {
	config1 := App()
	config2 := App()

	require.NotNil(t, config1)
	assert.Same(t, config1, config2, "App() should return singleton instance")
	assert.NotNil(t, config1.Validator, "Validator should be initialized")
}

func TestGetAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *AppConfig)
	}{
		{
			name:    "default_values",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, "5000", cfg.Port)
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
				assert.Equal(t, 20*time.Second, cfg.GatewayTimeout)
				assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
				assert.False(t, cfg.EnableOpenSearch)
				assert.False(t, cfg.IsProduction())
				assert.True(t, cfg.IsDevelopment())
			},
		},
		{
			name: "custom_values",
			envVars: map[string]string{
				"PORT":                      "8080",
				"APP_ENV":                   "production",
				"FRONTEND_URL":              "https://courses.example.in/",
				"BACKEND_URL":               "https://api.example.in",
				"GATEWAY_TIMEOUT":           "5s",
				"CORS_ALLOWED_ORIGINS":      "https://courses.example.in, https://www.example.in",
				"ENABLE_OPENSEARCH_LOGGING": "true",
			},
			check: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, "8080", cfg.Port)
				assert.True(t, cfg.IsProduction())
				assert.Equal(t, "https://courses.example.in", cfg.FrontendURL, "trailing slash is trimmed")
				assert.Equal(t, "https://api.example.in", cfg.BackendURL)
				assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
				assert.Equal(t, []string{"https://courses.example.in", "https://www.example.in"}, cfg.AllowedOrigins)
				assert.True(t, cfg.EnableOpenSearch)
			},
		},
		{
			name: "node_env_fallback",
			envVars: map[string]string{
				"APP_ENV":  "",
				"NODE_ENV": "production",
			},
			check: func(t *testing.T, cfg *AppConfig) {
				assert.True(t, cfg.IsProduction())
			},
		},
		{
			name: "timeout_in_plain_seconds",
			envVars: map[string]string{
				"GATEWAY_TIMEOUT": "12",
			},
			check: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, 12*time.Second, cfg.GatewayTimeout)
			},
		},
		{
			name: "invalid_timeout_falls_back",
			envVars: map[string]string{
				"GATEWAY_TIMEOUT": "soon",
			},
			check: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, 20*time.Second, cfg.GatewayTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appConfigInstance = nil
			defer func() { appConfigInstance = nil }()

			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg := GetAppConfig()
			require.NotNil(t, cfg)
			tt.check(t, cfg)
			assert.Same(t, cfg, GetAppConfig(), "GetAppConfig() should return singleton instance")
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("COURSEPAY_TEST_STR", "custom")
	t.Setenv("COURSEPAY_TEST_BOOL", "true")
	t.Setenv("COURSEPAY_TEST_BAD_BOOL", "maybe")
	t.Setenv("COURSEPAY_TEST_INT", "42")
	t.Setenv("COURSEPAY_TEST_FLOAT", "2.5")
	t.Setenv("COURSEPAY_TEST_LIST", " , ")

	assert.Equal(t, "custom", GetEnv("COURSEPAY_TEST_STR", "default"))
	assert.Equal(t, "default", GetEnv("COURSEPAY_TEST_MISSING", "default"))
	assert.True(t, GetBoolEnv("COURSEPAY_TEST_BOOL", false))
	assert.True(t, GetBoolEnv("COURSEPAY_TEST_BAD_BOOL", true))
	assert.Equal(t, 42, GetIntEnv("COURSEPAY_TEST_INT", 0))
	assert.Equal(t, 7, GetIntEnv("COURSEPAY_TEST_MISSING", 7))
	assert.Equal(t, 2.5, GetFloatEnv("COURSEPAY_TEST_FLOAT", 0))
	assert.Equal(t, []string{"x"}, GetListEnv("COURSEPAY_TEST_LIST", []string{"x"}))
}
