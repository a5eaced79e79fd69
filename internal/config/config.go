package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnectAttempts    int
}

// ObjectStoreConfig holds settings for the archive of raw uploads.
// Backend selects the client: "minio" (any S3-compatible endpoint) or "s3" (AWS SDK).
type ObjectStoreConfig struct {
	Backend   string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MailConfig holds the outgoing mail identity and SendGrid credentials.
// Backend is "sendgrid" or "log"; the log-only sender never delivers and must be chosen explicitly.
type MailConfig struct {
	Backend       string
	APIKey        string
	FromEmail     string
	FromName      string
	Subject       string
	RatePerSecond float64
	Burst         int
}

// DeliveryConfig tunes the delivery engine.
type DeliveryConfig struct {
	PageLength    int
	BufferLength  int
	Workers       int
	PassTimeout   time.Duration
	SendAttempts  int
	RetryInterval time.Duration
}

// SchedulerConfig holds the daily trigger settings.
type SchedulerConfig struct {
	Enabled  bool
	Spec     string
	TimeZone string
}

// TracingConfig mirrors the standard OTEL_* variables used by the tracer provider.
// An empty Endpoint leaves the exporter default in place.
type TracingConfig struct {
	Disabled    bool
	ServiceName string
	Protocol    string
	Endpoint    string
	Sampler     string
	SamplerArg  float64
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Environment string
	Level       string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost        string
	Port           string
	MaxUploadBytes int
	Database       DatabaseConfig
	ObjectStore    ObjectStoreConfig
	Mail           MailConfig
	Delivery       DeliveryConfig
	Scheduler      SchedulerConfig
	Tracing        TracingConfig
	Log            LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:        getEnv("APP_HOST", "localhost:8080"),
		Port:           getEnv("PORT", "8080"),
		MaxUploadBytes: getEnvInt("MAX_UPLOAD_BYTES", 32<<20),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectAttempts:    getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		},
		ObjectStore: ObjectStoreConfig{
			Backend:   getEnv("OBJECT_STORE_BACKEND", "minio"),
			Endpoint:  getEnv("OBJECT_STORE_ENDPOINT", ""),
			AccessKey: getEnv("OBJECT_STORE_ACCESS_KEY", ""),
			SecretKey: getEnv("OBJECT_STORE_SECRET_KEY", ""),
			Bucket:    getEnv("OBJECT_STORE_BUCKET", "dailypages-uploads"),
			Region:    getEnv("OBJECT_STORE_REGION", "us-east-1"),
			UseSSL:    getEnvBool("OBJECT_STORE_USE_SSL", false),
		},
		Mail: MailConfig{
			Backend:       getEnv("MAIL_BACKEND", "sendgrid"),
			APIKey:        getEnv("SENDGRID_API_KEY", ""),
			FromEmail:     getEnv("MAIL_FROM_EMAIL", "pages@dailypages.local"),
			FromName:      getEnv("MAIL_FROM_NAME", "Daily Pages"),
			Subject:       getEnv("MAIL_SUBJECT", "Your daily pages"),
			RatePerSecond: getEnvFloat("MAIL_RATE_PER_SECOND", 10),
			Burst:         getEnvInt("MAIL_BURST", 10),
		},
		Delivery: DeliveryConfig{
			PageLength:    getEnvInt("DELIVERY_PAGE_LENGTH", 10000),
			BufferLength:  getEnvInt("DELIVERY_BUFFER_LENGTH", 50),
			Workers:       getEnvInt("DELIVERY_WORKERS", 8),
			PassTimeout:   getEnvDuration("DELIVERY_PASS_TIMEOUT", 30*time.Minute),
			SendAttempts:  getEnvInt("DELIVERY_SEND_ATTEMPTS", 3),
			RetryInterval: getEnvDuration("DELIVERY_RETRY_INTERVAL", 2*time.Second),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getEnvBool("SCHEDULER_ENABLED", true),
			Spec:     getEnv("SCHEDULER_SPEC", "30 6 * * *"),
			TimeZone: getEnv("SCHEDULER_TZ", "Local"),
		},
		Tracing: TracingConfig{
			Disabled:    getEnvBool("OTEL_SDK_DISABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "dailypages"),
			Protocol:    getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
			Sampler:     getEnv("OTEL_TRACES_SAMPLER", "parentbased_traceidratio"),
			SamplerArg:  getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		},
		Log: LogConfig{
			Environment: getEnv("APP_ENV", "production"),
			Level:       getEnv("LOG_LEVEL", "info"),
		},
	}
}

// Validate rejects delivery settings the engine cannot work with.
func (c DeliveryConfig) Validate() error {
	if c.PageLength <= 0 {
		return errors.New("delivery page length must be positive")
	}
	if c.BufferLength < 0 {
		return errors.New("delivery buffer length must not be negative")
	}
	if c.Workers <= 0 {
		return errors.New("delivery workers must be positive")
	}
	if c.SendAttempts <= 0 {
		return errors.New("delivery send attempts must be positive")
	}
	return nil
}

// Location resolves the scheduler time zone. "Local" and "" map to time.Local.
func (c SchedulerConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
