package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/paperauth/internal/http/errors"
	jwtx "github.com/dropDatabas3/paperauth/internal/jwt"
)

// bearerToken extrae el token del header Authorization o, en su defecto,
// de la cookie access_token.
func bearerToken(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah != "" && strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		return strings.TrimSpace(ah[len("Bearer "):])
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// RequireAuth valida el token firmado y guarda las claims en el contexto.
// Acepta tanto tokens completos como restringidos; los endpoints que no
// admiten un token restringido encadenan RequireFull después.
func RequireAuth(issuer *jwtx.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}

			claims, err := issuer.Verify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				if err == jwtx.ErrExpired {
					errors.WriteError(w, errors.ErrTokenExpired)
					return
				}
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(setClaims(r.Context(), claims)))
		})
	}
}

// RequireFull rechaza tokens restringidos pendientes de segundo factor.
// Debe usarse después de RequireAuth.
func RequireFull() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			if claims.Pending2FA() {
				errors.WriteError(w, errors.ErrTwoFactorRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
