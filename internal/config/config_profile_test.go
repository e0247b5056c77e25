package config

import (
	"strings"
	"testing"
	"time"
)

func baseConfig(env string) *Config {
	return &Config{
		Env:                          env,
		AccountStoreDriver:           StoreDriverPostgres,
		DatabaseURL:                  "postgres://x",
		JWTSecret:                    "abcdefghijklmnopqrstuvwxyz123456",
		JWTSessionTTL:                24 * time.Hour,
		VerificationCodeTTL:          15 * time.Minute,
		CookieSecure:                 true,
		CookieSameSite:               "lax",
		EmailProvider:                EmailProviderSMTP,
		EmailFrom:                    "noreply@example.com",
		SMTPHost:                     "localhost",
		SMTPPort:                     1025,
		EmailSendMaxRetries:          2,
		EmailSendBaseBackoff:         200 * time.Millisecond,
		OTELTraceSamplingRatio:       1.0,
		OTELMetricsExportInterval:    10 * time.Second,
		OTELLogLevel:                 "info",
		OTELExporterOTLPEndpoint:     "localhost:4317",
		ReadinessProbeTimeout:        1 * time.Second,
		ShutdownTimeout:              20 * time.Second,
		ShutdownHTTPDrainTimeout:     10 * time.Second,
		ShutdownObservabilityTimeout: 8 * time.Second,
	}
}

func TestValidateProdProfileStrictRules(t *testing.T) {
	cfg := baseConfig("production")
	cfg.CookieSecure = false
	cfg.CookieSameSite = "none"
	cfg.EmailProvider = EmailProviderLog

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected strict prod validation errors")
	}
	for _, want := range []string{"COOKIE_SECURE must be true", "COOKIE_SAMESITE=none", "EMAIL_PROVIDER=log"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}
}

func TestValidateDevelopmentProfileAllowsRelaxedSettings(t *testing.T) {
	cfg := baseConfig("development")
	cfg.CookieSecure = false
	cfg.CookieSameSite = "none"
	cfg.EmailProvider = EmailProviderLog

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected relaxed dev validation to pass: %v", err)
	}
}

func TestValidateStoreDriverRequirements(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "sql needs url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "DATABASE_URL is required"},
		{name: "redis needs addr", mutate: func(c *Config) { c.AccountStoreDriver = StoreDriverRedis; c.RedisAddr = "" }, wantErr: "REDIS_ADDR is required"},
		{name: "dynamodb needs table", mutate: func(c *Config) {
			c.AccountStoreDriver = StoreDriverDynamoDB
			c.AWSRegion = "us-east-1"
			c.DynamoDBTable = ""
		}, wantErr: "DYNAMODB_TABLE is required"},
		{name: "unknown driver", mutate: func(c *Config) { c.AccountStoreDriver = "mongo" }, wantErr: "ACCOUNT_STORE_DRIVER must be one of"},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, wantErr: "JWT_SECRET must be at least 32 chars"},
		{name: "session ttl too long", mutate: func(c *Config) { c.JWTSessionTTL = 8 * 24 * time.Hour }, wantErr: "JWT_SESSION_TTL"},
		{name: "resend needs key", mutate: func(c *Config) { c.EmailProvider = EmailProviderResend }, wantErr: "RESEND_API_KEY is required"},
		{name: "unknown provider", mutate: func(c *Config) { c.EmailProvider = "pigeon" }, wantErr: "EMAIL_PROVIDER must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig("development")
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
