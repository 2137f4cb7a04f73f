package main

import (
	"os"
	"strconv"
	"time"
)

// bridgeConfig is the bridge's environment-variable configuration (spec §6).
// No configuration library appears anywhere in the reference corpus, so this
// parses os.Getenv directly, the same unadorned style as the teacher's
// cmd/nfctest flag defaults.
type bridgeConfig struct {
	Host string
	Port string

	UseMockPN532 bool

	I2CBus     string
	I2CAddress int

	ReadyTimeout   time.Duration
	TaggingTimeout time.Duration
	SessionTimeout time.Duration
	MaxRetries     int

	RedirectBaseURL string
	RedirectAPIKey  string
}

func loadConfig() bridgeConfig {
	cfg := bridgeConfig{
		Host:            envOr("HOST", "0.0.0.0"),
		Port:            envOr("PORT", "3001"),
		UseMockPN532:    envBool("USE_MOCK_PN532", false),
		I2CBus:          envOr("I2C_BUS", "/dev/i2c-1"),
		I2CAddress:      envInt("I2C_ADDRESS", 0x24),
		ReadyTimeout:    envMillis("READY_TIMEOUT_MS", 3*time.Second),
		TaggingTimeout:  envMillis("TAGGING_TIMEOUT_MS", 20*time.Second),
		SessionTimeout:  envMillis("SESSION_TIMEOUT_MS", 60*time.Second),
		MaxRetries:      envInt("MAX_RETRIES", 3),
		RedirectBaseURL: envOr("REDIRECT_BASE_URL", ""),
		RedirectAPIKey:  envOr("REDIRECT_API_KEY", ""),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envMillis(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
