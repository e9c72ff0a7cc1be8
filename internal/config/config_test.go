package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "JOB_EVENT_QUEUE")
	unsetEnvWithCleanup(t, "REDIS_RATE_LIMIT_PREFIX")
	unsetEnvWithCleanup(t, "CHARGE_RATE_LIMIT_PER_MINUTE")
	unsetEnvWithCleanup(t, "PENDING_CAPTURE_TIMEOUT_SECONDS")
	unsetEnvWithCleanup(t, "CORS_ALLOWED_ORIGINS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("expected default ServerPort 8080, got %q", cfg.ServerPort)
	}
	if cfg.JobEventQueue != "payments_service.job_updates" {
		t.Errorf("unexpected default JobEventQueue %q", cfg.JobEventQueue)
	}
	if cfg.RedisRateLimitPrefix != "jamii:rate_limit" {
		t.Errorf("unexpected default RedisRateLimitPrefix %q", cfg.RedisRateLimitPrefix)
	}
	if cfg.ChargeRateLimitPerMinute != 10 {
		t.Errorf("expected default ChargeRateLimitPerMinute 10, got %d", cfg.ChargeRateLimitPerMinute)
	}
	if cfg.PendingCaptureTimeoutSeconds != 30 {
		t.Errorf("expected default PendingCaptureTimeoutSeconds 30, got %d", cfg.PendingCaptureTimeoutSeconds)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("expected wildcard CORS origins by default, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfig_PlatformPortWinsOverServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9191")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9191" {
		t.Fatalf("expected PORT to take precedence, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_ProcessorAPIKeyAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "PROCESSOR_API_KEY")
	setEnvWithCleanup(t, "PAYMENT_PROCESSOR_API_KEY", "alias-only-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ProcessorAPIKey != "alias-only-key" {
		t.Fatalf("expected ProcessorAPIKey from alias env var, got %q", cfg.ProcessorAPIKey)
	}
}

func TestLoadConfig_SplitsCORSOrigins(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "CORS_ALLOWED_ORIGINS", "https://jamii.app, https://staging.jamii.app,")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"https://jamii.app", "https://staging.jamii.app"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("expected %d origins, got %v", len(want), cfg.CORSAllowedOrigins)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Errorf("origin %d: expected %q, got %q", i, want[i], cfg.CORSAllowedOrigins[i])
		}
	}
}

func TestLoadConfig_NegativeChargeRateLimitDisablesLimiter(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "CHARGE_RATE_LIMIT_PER_MINUTE", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ChargeRateLimitPerMinute != 0 {
		t.Fatalf("expected negative rate limit to coerce to 0, got %d", cfg.ChargeRateLimitPerMinute)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
		}
	})
}
