package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}
			require.Equal(t, tc.expected, getEnvOrDefault(tc.key, tc.defaultVal))
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}
			require.Equal(t, tc.expected, getEnvAsIntOrDefault(tc.key, tc.defaultVal))
		})
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	t.Setenv("TEST_DUR_1", "90m")
	require.Equal(t, 90*time.Minute, getEnvAsDurationOrDefault("TEST_DUR_1", time.Hour))

	t.Setenv("TEST_DUR_2", "soon")
	require.Equal(t, time.Hour, getEnvAsDurationOrDefault("TEST_DUR_2", time.Hour))

	t.Setenv("TEST_DUR_3", "-5m")
	require.Equal(t, time.Hour, getEnvAsDurationOrDefault("TEST_DUR_3", time.Hour))
}

func TestMustGetEnv_Panics(t *testing.T) {
	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	require.Panics(t, func() { mustGetEnv("NONEXISTENT_REQUIRED_VAR") })
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "value123")
	require.Equal(t, "value123", mustGetEnv("TEST_REQUIRED"))
}

func TestLoad_MemoryStoreSkipsDatabaseURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CHAT_STORE", StoreMemory)
	t.Setenv("DATABASE_URL", "")

	cfg := Load()
	require.Equal(t, StoreMemory, cfg.ChatStore)
	require.Empty(t, cfg.DatabaseURL)
	require.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	require.Equal(t, 24*time.Hour, cfg.JWTAccessTTL)
}

func TestLoad_PostgresStoreRequiresDatabaseURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CHAT_STORE", StorePostgres)
	t.Setenv("DATABASE_URL", "")

	require.Panics(t, func() { Load() })
}

func TestIsProduction(t *testing.T) {
	require.True(t, (&Config{Env: "production"}).IsProduction())
	require.False(t, (&Config{Env: "development"}).IsProduction())
	require.False(t, (&Config{}).IsProduction())
}
