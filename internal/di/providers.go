package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/google/wire"

	"github.com/sandeepkv93/account-verification-service/internal/app"
	"github.com/sandeepkv93/account-verification-service/internal/config"
	"github.com/sandeepkv93/account-verification-service/internal/database"
	"github.com/sandeepkv93/account-verification-service/internal/health"
	"github.com/sandeepkv93/account-verification-service/internal/http/handler"
	"github.com/sandeepkv93/account-verification-service/internal/http/middleware"
	"github.com/sandeepkv93/account-verification-service/internal/http/router"
	"github.com/sandeepkv93/account-verification-service/internal/observability"
	"github.com/sandeepkv93/account-verification-service/internal/repository"
	"github.com/sandeepkv93/account-verification-service/internal/security"
	"github.com/sandeepkv93/account-verification-service/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var StoreSet = wire.NewSet(
	provideAccountStore,
	provideAccountRepository,
	provideReadinessProbeRunner,
)

var SecuritySet = wire.NewSet(
	security.NewPasswordHasher,
	wire.Bind(new(security.PasswordHasher), new(*security.Argon2PasswordHasher)),
	provideJWTManager,
	wire.Bind(new(security.TokenSigner), new(*security.JWTManager)),
	wire.Bind(new(middleware.SessionTokenParser), new(*security.JWTManager)),
	provideCookieManager,
)

var EmailSet = wire.NewSet(provideEmailSender)

var ServiceSet = wire.NewSet(
	service.NewRegistrationService,
	provideVerificationService,
	provideAuthService,
	wire.Bind(new(service.RegistrationServiceInterface), new(*service.RegistrationService)),
	wire.Bind(new(service.VerificationServiceInterface), new(*service.VerificationService)),
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	handler.NewAccountHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

// ToolSet backs the accountctl injectors: config plus a stdout logger, no
// OTLP exporters.
var ToolSet = wire.NewSet(ConfigSet, provideToolLogger)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideToolLogger(cfg *config.Config) *slog.Logger {
	return observability.NewBootstrapLogger(cfg)
}

func provideAccountStore(cfg *config.Config, logger *slog.Logger) (*database.AccountStore, error) {
	return database.OpenAccountStore(context.Background(), cfg, logger, true)
}

func provideAccountRepository(store *database.AccountStore) repository.AccountRepository {
	return store.Accounts
}

func provideReadinessProbeRunner(cfg *config.Config, store *database.AccountStore) *health.ProbeRunner {
	return health.NewProbeRunner(
		cfg.ReadinessProbeTimeout,
		cfg.ServerStartGracePeriod,
		health.NewStoreChecker(store.Driver, store.Accounts),
	)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

// provideEmailSender selects the provider named by EMAIL_PROVIDER. Network
// providers are wrapped in the retrying sender; the log sender is not.
func provideEmailSender(cfg *config.Config, logger *slog.Logger) (service.EmailSender, error) {
	var sender service.EmailSender
	switch cfg.EmailProvider {
	case config.EmailProviderLog:
		return service.NewLogEmailSender(logger), nil
	case config.EmailProviderSMTP:
		sender = service.NewSMTPEmailSender(service.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			From:        cfg.EmailFrom,
			DialTimeout: 10 * time.Second,
		})
	case config.EmailProviderSES:
		awsCfg, err := database.LoadAWSConfig(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		sender = service.NewSESEmailSender(sesv2.NewFromConfig(awsCfg), cfg.EmailFrom)
	case config.EmailProviderResend:
		resendSender, err := service.NewResendEmailSender(cfg.ResendAPIKey, cfg.EmailFrom)
		if err != nil {
			return nil, err
		}
		sender = resendSender
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.EmailProvider)
	}
	return service.NewRetryingEmailSender(sender, cfg.EmailProvider, cfg.EmailSendMaxRetries, cfg.EmailSendBaseBackoff, logger), nil
}

func provideVerificationService(cfg *config.Config, accounts repository.AccountRepository, sender service.EmailSender, logger *slog.Logger) *service.VerificationService {
	return service.NewVerificationService(accounts, sender, cfg.VerificationCodeTTL, logger)
}

func provideAuthService(cfg *config.Config, accounts repository.AccountRepository, hasher security.PasswordHasher, signer security.TokenSigner, logger *slog.Logger) *service.AuthService {
	return service.NewAuthService(accounts, hasher, signer, cfg.JWTSessionTTL, logger)
}

func provideAuthHandler(
	registration service.RegistrationServiceInterface,
	verification service.VerificationServiceInterface,
	authSvc service.AuthServiceInterface,
	cookieMgr *security.CookieManager,
	cfg *config.Config,
) *handler.AuthHandler {
	return handler.NewAuthHandler(registration, verification, authSvc, cookieMgr, cfg.JWTSessionTTL)
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	accountHandler *handler.AccountHandler,
	parser middleware.SessionTokenParser,
	readiness *health.ProbeRunner,
	logger *slog.Logger,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:    authHandler,
		AccountHandler: accountHandler,
		SessionParser:  parser,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		Readiness:      readiness,
		Logger:         logger,
		EnableOTelHTTP: cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	store *database.AccountStore,
	readiness *health.ProbeRunner,
) *app.App {
	return app.New(cfg, logger, server, runtime, store, readiness)
}
