package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverRedis    = "redis"
	StoreDriverDynamoDB = "dynamodb"

	EmailProviderLog    = "log"
	EmailProviderSMTP   = "smtp"
	EmailProviderSES    = "ses"
	EmailProviderResend = "resend"
)

type Config struct {
	Env      string
	HTTPPort string

	AccountStoreDriver string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisKeyPrefix     string
	DynamoDBTable      string
	DynamoDBEndpoint   string
	AWSRegion          string

	JWTIssuer           string
	JWTAudience         string
	JWTSecret           string
	JWTSessionTTL       time.Duration
	VerificationCodeTTL time.Duration
	CookieDomain        string
	CookieSecure        bool
	CookieSameSite      string
	CORSAllowedOrigins  []string

	EmailProvider        string
	EmailFrom            string
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	ResendAPIKey         string
	EmailSendMaxRetries  int
	EmailSendBaseBackoff time.Duration

	ReadinessProbeTimeout        time.Duration
	ServerStartGracePeriod       time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:                strings.ToLower(env),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		AccountStoreDriver: strings.ToLower(getEnv("ACCOUNT_STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix:     getEnv("REDIS_KEY_PREFIX", "account"),
		DynamoDBTable:      getEnv("DYNAMODB_TABLE", "Users"),
		DynamoDBEndpoint:   os.Getenv("DYNAMODB_ENDPOINT"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),

		JWTIssuer:          getEnv("JWT_ISSUER", "account-verification-service"),
		JWTAudience:        getEnv("JWT_AUDIENCE", "account-verification-service-api"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		CookieDomain:       os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:       getEnvBool("COOKIE_SECURE", true),
		CookieSameSite:     strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		EmailProvider:       strings.ToLower(getEnv("EMAIL_PROVIDER", EmailProviderLog)),
		EmailFrom:           getEnv("EMAIL_FROM", "noreply@example.com"),
		SMTPHost:            getEnv("SMTP_HOST", "localhost"),
		SMTPPort:            getEnvInt("SMTP_PORT", 1025),
		SMTPUsername:        os.Getenv("SMTP_USERNAME"),
		SMTPPassword:        os.Getenv("SMTP_PASSWORD"),
		ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
		EmailSendMaxRetries: getEnvInt("EMAIL_SEND_MAX_RETRIES", 2),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "account-verification-service"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key    string
		def    string
		target *time.Duration
	}{
		{"JWT_SESSION_TTL", "24h", &cfg.JWTSessionTTL},
		{"VERIFICATION_CODE_TTL", "15m", &cfg.VerificationCodeTTL},
		{"EMAIL_SEND_BASE_BACKOFF", "200ms", &cfg.EmailSendBaseBackoff},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "0s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.target = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	switch c.AccountStoreDriver {
	case StoreDriverPostgres, StoreDriverSQLite:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when ACCOUNT_STORE_DRIVER="+c.AccountStoreDriver)
		}
	case StoreDriverRedis:
		if c.RedisAddr == "" {
			errs = append(errs, "REDIS_ADDR is required when ACCOUNT_STORE_DRIVER=redis")
		}
	case StoreDriverDynamoDB:
		if c.DynamoDBTable == "" {
			errs = append(errs, "DYNAMODB_TABLE is required when ACCOUNT_STORE_DRIVER=dynamodb")
		}
		if c.AWSRegion == "" {
			errs = append(errs, "AWS_REGION is required when ACCOUNT_STORE_DRIVER=dynamodb")
		}
	default:
		errs = append(errs, "ACCOUNT_STORE_DRIVER must be one of postgres, sqlite, redis, dynamodb")
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 chars")
	}
	if c.JWTSessionTTL <= 0 || c.JWTSessionTTL > 7*24*time.Hour {
		errs = append(errs, "JWT_SESSION_TTL must be between 1s and 7d")
	}
	if c.VerificationCodeTTL <= 0 || c.VerificationCodeTTL > 24*time.Hour {
		errs = append(errs, "VERIFICATION_CODE_TTL must be between 1s and 24h")
	}
	switch c.CookieSameSite {
	case "lax", "strict", "none":
	default:
		errs = append(errs, "COOKIE_SAMESITE must be one of lax, strict, none")
	}
	if c.CookieSameSite == "none" && !c.CookieSecure && !isLocalLikeEnv(c.Env) {
		errs = append(errs, "COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
	}
	if isProdLikeEnv(c.Env) && !c.CookieSecure {
		errs = append(errs, "COOKIE_SECURE must be true in production")
	}

	switch c.EmailProvider {
	case EmailProviderLog:
		if isProdLikeEnv(c.Env) {
			errs = append(errs, "EMAIL_PROVIDER=log is not allowed in production")
		}
	case EmailProviderSMTP:
		if c.SMTPHost == "" || c.SMTPPort <= 0 {
			errs = append(errs, "SMTP_HOST and SMTP_PORT are required when EMAIL_PROVIDER=smtp")
		}
	case EmailProviderSES:
		if c.AWSRegion == "" {
			errs = append(errs, "AWS_REGION is required when EMAIL_PROVIDER=ses")
		}
	case EmailProviderResend:
		if c.ResendAPIKey == "" {
			errs = append(errs, "RESEND_API_KEY is required when EMAIL_PROVIDER=resend")
		}
	default:
		errs = append(errs, "EMAIL_PROVIDER must be one of log, smtp, ses, resend")
	}
	if c.EmailFrom == "" {
		errs = append(errs, "EMAIL_FROM is required")
	}
	if c.EmailSendMaxRetries < 0 {
		errs = append(errs, "EMAIL_SEND_MAX_RETRIES must be >= 0")
	}
	if c.EmailSendBaseBackoff <= 0 {
		errs = append(errs, "EMAIL_SEND_BASE_BACKOFF must be > 0")
	}

	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ServerStartGracePeriod < 0 {
		errs = append(errs, "SERVER_START_GRACE_PERIOD must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if c.ShutdownObservabilityTimeout <= 0 || c.ShutdownObservabilityTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_OBSERVABILITY_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}

	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// UsesSQLStore reports whether the account store is backed by gorm.
func (c *Config) UsesSQLStore() bool {
	return c.AccountStoreDriver == StoreDriverPostgres || c.AccountStoreDriver == StoreDriverSQLite
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
