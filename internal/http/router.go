// Package http arma el router del servicio y su instrumentación.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctl "github.com/dropDatabas3/paperauth/internal/http/controllers/auth"
	healthctl "github.com/dropDatabas3/paperauth/internal/http/controllers/health"
	"github.com/dropDatabas3/paperauth/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/paperauth/internal/jwt"
	"github.com/dropDatabas3/paperauth/internal/rate"
)

// RouterDeps agrupa lo necesario para armar el router.
type RouterDeps struct {
	Auth   *authctl.Controllers
	Health *healthctl.Controller
	Issuer *jwtx.Issuer

	// Limiter aplica a login, envío de códigos y pedidos de reset.
	// Nil desactiva el rate limiting.
	Limiter rate.Limiter

	// Metrics es el handler de /metrics; nil omite la ruta.
	Metrics http.Handler
}

// NewRouter construye el árbol de rutas con la cadena estándar de
// middlewares: request id, logging y métricas en todas las rutas; auth y
// rate limiting por grupo.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return middlewares.Chain(next,
			middlewares.WithRequestID(),
			middlewares.WithLogging(),
			WithMetrics,
		)
	})

	limited := func(scope string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return middlewares.WithRateLimit(deps.Limiter, scope)(next)
		}
	}
	requireAuth := func(next http.Handler) http.Handler {
		return middlewares.RequireAuth(deps.Issuer)(next)
	}
	requireFull := func(next http.Handler) http.Handler {
		return middlewares.RequireFull()(next)
	}

	r.Get("/healthz", deps.Health.Healthz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(limited("login"))
		r.Post("/token", deps.Auth.Token.Token)
	})

	// El token restringido alcanza para completar el segundo factor.
	r.Group(func(r chi.Router) {
		r.Use(requireAuth, limited("2fa"))
		r.Post("/2fa/verify", deps.Auth.TwoFactor.Verify)
	})

	// El resto del ciclo de segundo factor exige token completo.
	r.Group(func(r chi.Router) {
		r.Use(requireAuth, requireFull)
		r.Get("/verify", deps.Auth.Verify.Verify)
		r.Get("/2fa/status", deps.Auth.TwoFactor.Status)
		r.Post("/2fa/setup", deps.Auth.TwoFactor.Setup)
		r.Post("/2fa/disable", deps.Auth.TwoFactor.Disable)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth, requireFull, limited("2fa"))
		r.Post("/2fa/setup/send-otp", deps.Auth.TwoFactor.SendSetupOTP)
		r.Post("/2fa/disable/send-otp", deps.Auth.TwoFactor.SendDisableOTP)
	})

	r.Group(func(r chi.Router) {
		r.Use(limited("reset"))
		r.Post("/forgot-password/request", deps.Auth.Reset.Request)
		r.Post("/forgot-password/reset", deps.Auth.Reset.Reset)
		r.Get("/verify-reset-token", deps.Auth.Reset.VerifyToken)
	})

	return r
}

// Start levanta el servidor en addr con el handler dado.
func Start(addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	return srv.ListenAndServe()
}
