package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/paperauth/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/paperauth/internal/http/errors"
	svc "github.com/dropDatabas3/paperauth/internal/http/services/auth"
	"github.com/dropDatabas3/paperauth/internal/observability/logger"
)

const (
	maxBodySize     = 64 * 1024 // 64KB
	contentTypeJSON = "application/json; charset=utf-8"
)

// TokenController maneja el endpoint de emisión de tokens.
type TokenController struct {
	service svc.LoginService
}

// NewTokenController crea un nuevo controller de token.
func NewTokenController(service svc.LoginService) *TokenController {
	return &TokenController{service: service}
}

// Token maneja POST /token
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TokenController.Token"))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	var req dto.LoginRequest
	ct := strings.ToLower(r.Header.Get("Content-Type"))

	switch {
	case strings.Contains(ct, "application/json"):
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.WriteError(w, httperrors.ErrInvalidJSON)
			return
		}

	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid form"))
			return
		}
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
		req.Provider = r.FormValue("provider")
		req.Code = r.FormValue("code")

	default:
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("unsupported content type"))
		return
	}

	// El provider también puede venir como query param
	if qp := r.URL.Query().Get("provider"); qp != "" {
		req.Provider = qp
	}

	result, err := c.service.Login(ctx, req)
	if err != nil {
		log.Debug("login failed", logger.Err(err))
		writeLoginError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	setTokenCookie(w, r, result)

	if result.RequiresTwoFactor {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(dto.TwoFactorRequiredResponse{
			RequiresTwoFactor: true,
			AccessToken:       result.AccessToken,
			TokenType:         result.TokenType,
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dto.TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresIn:   result.ExpiresIn,
	})
}

// setTokenCookie deja el token también como cookie de sesión para los
// clientes web del servicio de documentos.
func setTokenCookie(w http.ResponseWriter, r *http.Request, result *dto.LoginResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    result.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(result.ExpiresIn),
	})
}

// ─── Helpers ───

func writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)

	case errors.Is(err, svc.ErrUnknownProvider):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("unknown provider"))

	case errors.Is(err, svc.ErrProviderDisabled):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("provider not configured"))

	case errors.Is(err, svc.ErrInvalidOTP):
		httperrors.WriteError(w, httperrors.ErrInvalidOTP)

	case errors.Is(err, svc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)

	case errors.Is(err, svc.ErrOTPSendFailed):
		httperrors.WriteError(w, httperrors.ErrDeliveryFailed)

	case errors.Is(err, svc.ErrTokenIssueFailed):
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithDetail("error al emitir tokens"))

	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
