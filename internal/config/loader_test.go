package config

import (
	"errors"
	"testing"
	"time"
)

// setRequiredEnv sets the minimal environment for a valid configuration.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SENSOR_APPLICATION_ID", "frost-nodes")
	t.Setenv("SENSOR_API_KEY", "test-api-key")
	t.Setenv("TWILIO_ACCOUNT_SID", "ACtest")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_WHATSAPP_NUMBER", "+14155238886")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want local", cfg.Environment)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Forecast.WindowDays != 10 {
		t.Errorf("WindowDays = %d, want 10", cfg.Forecast.WindowDays)
	}
	if cfg.Forecast.ModelTimeout != 10*time.Minute {
		t.Errorf("ModelTimeout = %v, want 10m", cfg.Forecast.ModelTimeout)
	}
	if cfg.Sensor.CacheWindow != time.Hour {
		t.Errorf("CacheWindow = %v, want 1h", cfg.Sensor.CacheWindow)
	}
	if len(cfg.Sensor.DeviceIDs) != 3 {
		t.Errorf("DeviceIDs = %v, want three default nodes", cfg.Sensor.DeviceIDs)
	}
	if cfg.Alert.SendConcurrency != 4 {
		t.Errorf("SendConcurrency = %d, want 4", cfg.Alert.SendConcurrency)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9000")
	t.Setenv("FORECAST_WINDOW_DAYS", "5")
	t.Setenv("SENSOR_DEVICE_IDS", "nodo-a,nodo-b")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environment != "prod" {
		t.Errorf("Environment = %q, want prod", cfg.Environment)
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Server.Port)
	}
	if cfg.Forecast.WindowDays != 5 {
		t.Errorf("WindowDays = %d, want 5", cfg.Forecast.WindowDays)
	}
	if len(cfg.Sensor.DeviceIDs) != 2 || cfg.Sensor.DeviceIDs[0] != "nodo-a" {
		t.Errorf("DeviceIDs = %v, want [nodo-a nodo-b]", cfg.Sensor.DeviceIDs)
	}
}

func TestLoad_MissingRequiredFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SENSOR_APPLICATION_ID", "")

	_, err := Load()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Type != ErrValidation {
		t.Errorf("Type = %s, want %s", cfgErr.Type, ErrValidation)
	}
}

func TestLoad_InvalidEnvironmentFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production-ish")

	_, err := Load()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Type != ErrValidation {
		t.Errorf("Type = %s, want %s", cfgErr.Type, ErrValidation)
	}
}

func TestLoad_UnparsableDurationFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SENSOR_CACHE_WINDOW", "not-a-duration")

	_, err := Load()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Type != ErrParsing {
		t.Errorf("Type = %s, want %s", cfgErr.Type, ErrParsing)
	}
}

func TestConfig_SecretsRedactedInLogs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SENSOR_API_KEY", "super-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Sensor.APIKey.String() == "super-secret" {
		t.Error("String() leaked the raw secret")
	}
	if cfg.Sensor.APIKey.Unmask() != "super-secret" {
		t.Errorf("Unmask = %q, want raw value", cfg.Sensor.APIKey.Unmask())
	}
}
