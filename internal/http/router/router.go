package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/account-verification-service/internal/health"
	"github.com/sandeepkv93/account-verification-service/internal/http/handler"
	"github.com/sandeepkv93/account-verification-service/internal/http/middleware"
	"github.com/sandeepkv93/account-verification-service/internal/http/response"
)

const defaultBodyLimit = 64 << 10

type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	SessionParser  middleware.SessionTokenParser
	CORSOrigins    []string
	BodyLimitBytes int64
	Readiness      *health.ProbeRunner
	Logger         *slog.Logger
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	bodyLimit := dep.BodyLimitBytes
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger(dep.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(bodyLimit))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	requireSession := middleware.AuthMiddleware(dep.SessionParser)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", dep.AuthHandler.Register)
			r.Post("/verify/request", dep.AuthHandler.VerifyRequest)
			r.Post("/verify/confirm", dep.AuthHandler.VerifyConfirm)
			r.Post("/login", dep.AuthHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Use(middleware.CSRFMiddleware)
				r.Post("/logout", dep.AuthHandler.Logout)
			})
		})
		r.With(requireSession).Get("/me", dep.AccountHandler.Me)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
