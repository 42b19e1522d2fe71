// Package config defines the process-wide configuration for FrostWatch.
// Configuration is loaded once at startup and is immutable thereafter,
// following 12-Factor principles: values come from the OS environment, with
// an optional .env file for local development. Any missing required value or
// invalid format fails startup immediately.
package config

import (
	"time"

	"frostwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used for credentials to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Components receive only the
// subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"frostwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	Sensor   SensorConfig
	Forecast ForecastConfig
	Twilio   TwilioConfig
	Alert    AlertConfig
}

// ServerConfig holds HTTP server settings for the manual trigger surface.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds Postgres connection and pool tuning parameters.
// URL may be empty, in which case predictions and farmers are kept in
// process memory only.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// SensorConfig holds the upstream sensor platform (LoRaWAN storage API)
// connection settings and the cache refresh window.
type SensorConfig struct {
	ServerURL     string       `envconfig:"SENSOR_SERVER_URL" default:"https://eu1.cloud.thethings.network" validate:"required,url"`
	ApplicationID string       `envconfig:"SENSOR_APPLICATION_ID" validate:"required"`
	APIKey        SecretString `envconfig:"SENSOR_API_KEY" validate:"required"`
	// DeviceIDs limits ingestion to the listed nodes; empty means all devices.
	DeviceIDs     []string      `envconfig:"SENSOR_DEVICE_IDS" default:"nodo-lora-ud-1,nodo-lora-ud-6,nodo-lora-ud-7"`
	CacheWindow   time.Duration `envconfig:"SENSOR_CACHE_WINDOW" default:"1h"`
	ClientTimeout time.Duration `envconfig:"SENSOR_CLIENT_TIMEOUT" default:"30s"`
}

// ForecastConfig holds prediction pipeline tuning.
type ForecastConfig struct {
	// WindowDays is the size of the reading window fed to the models.
	WindowDays int `envconfig:"FORECAST_WINDOW_DAYS" default:"10" validate:"min=1"`
	// ModelTimeout bounds one Train+Predict pair per capability. Expiry is
	// treated as a computation failure and the neutral signal is substituted.
	ModelTimeout time.Duration `envconfig:"FORECAST_MODEL_TIMEOUT" default:"10m"`
}

// TwilioConfig holds WhatsApp notification delivery credentials.
type TwilioConfig struct {
	AccountSID     string       `envconfig:"TWILIO_ACCOUNT_SID" validate:"required"`
	AuthToken      SecretString `envconfig:"TWILIO_AUTH_TOKEN" validate:"required"`
	WhatsAppNumber string       `envconfig:"TWILIO_WHATSAPP_NUMBER" validate:"required"`
	ClientTimeout  time.Duration `envconfig:"TWILIO_CLIENT_TIMEOUT" default:"10s"`
}

// AlertConfig holds alert dispatch tuning.
type AlertConfig struct {
	// SendConcurrency bounds the parallel notification fan-out.
	SendConcurrency int `envconfig:"ALERT_SEND_CONCURRENCY" default:"4" validate:"min=1"`
}
