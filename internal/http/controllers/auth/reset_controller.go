package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/paperauth/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/paperauth/internal/http/errors"
	"github.com/dropDatabas3/paperauth/internal/observability/logger"
	"github.com/dropDatabas3/paperauth/internal/pwreset"
)

// ResetController maneja los endpoints de recuperación de contraseña.
type ResetController struct {
	service *pwreset.Service
}

// NewResetController crea un nuevo controller de recuperación.
func NewResetController(service *pwreset.Service) *ResetController {
	return &ResetController{service: service}
}

// Request maneja POST /forgot-password/request. La respuesta es la misma
// exista o no la cuenta; solo la falla de entrega del email se reporta.
func (c *ResetController) Request(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ResetController.Request"))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	var req dto.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email is required"))
		return
	}

	if err := c.service.RequestReset(ctx, req.Email); err != nil {
		log.Debug("reset request failed", logger.Err(err))
		if errors.Is(err, pwreset.ErrDeliveryFailed) {
			httperrors.WriteError(w, httperrors.ErrDeliveryFailed)
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	httperrors.WriteJSON(w, http.StatusAccepted, dto.StatusResponse{Status: "sent"})
}

// VerifyToken maneja GET /verify-reset-token?token=...
func (c *ResetController) VerifyToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("token is required"))
		return
	}

	account, err := c.service.VerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, pwreset.ErrInvalidToken) {
			httperrors.WriteError(w, httperrors.ErrInvalidResetToken)
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.ResetTokenStatusResponse{
		Valid:    true,
		Username: account.Username,
	})
}

// Reset maneja POST /forgot-password/reset
func (c *ResetController) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ResetController.Reset"))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	var req dto.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	if req.Token == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("token and password are required"))
		return
	}

	if err := c.service.ResetPassword(ctx, req.Token, req.Password); err != nil {
		log.Debug("reset failed", logger.Err(err))
		if errors.Is(err, pwreset.ErrInvalidToken) {
			httperrors.WriteError(w, httperrors.ErrInvalidResetToken)
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok"})
}
