package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/paperauth/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/paperauth/internal/http/errors"
	"github.com/dropDatabas3/paperauth/internal/http/middlewares"
	svc "github.com/dropDatabas3/paperauth/internal/http/services/auth"
	"github.com/dropDatabas3/paperauth/internal/observability/logger"
)

// TwoFactorController maneja los endpoints del segundo factor.
type TwoFactorController struct {
	login     svc.LoginService
	twoFactor svc.TwoFactorService
}

// NewTwoFactorController crea un nuevo controller de segundo factor.
func NewTwoFactorController(login svc.LoginService, twoFactor svc.TwoFactorService) *TwoFactorController {
	return &TwoFactorController{login: login, twoFactor: twoFactor}
}

func (c *TwoFactorController) readCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	var req dto.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return "", false
	}
	if req.Code == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("code is required"))
		return "", false
	}
	return req.Code, true
}

// Verify maneja POST /2fa/verify: canjea el token restringido más el código
// por el token completo.
func (c *TwoFactorController) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TwoFactorController.Verify"))

	code, ok := c.readCode(w, r)
	if !ok {
		return
	}

	result, err := c.login.CompleteTwoFactor(ctx, middlewares.GetAccountID(ctx), code)
	if err != nil {
		log.Debug("second factor rejected", logger.Err(err))
		writeLoginError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	setTokenCookie(w, r, result)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dto.TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresIn:   result.ExpiresIn,
	})
}

// SendSetupOTP maneja POST /2fa/setup/send-otp
func (c *TwoFactorController) SendSetupOTP(w http.ResponseWriter, r *http.Request) {
	c.sendOTP(w, r, c.twoFactor.SendSetupOTP)
}

// SendDisableOTP maneja POST /2fa/disable/send-otp
func (c *TwoFactorController) SendDisableOTP(w http.ResponseWriter, r *http.Request) {
	c.sendOTP(w, r, c.twoFactor.SendDisableOTP)
}

func (c *TwoFactorController) sendOTP(w http.ResponseWriter, r *http.Request, send func(ctx context.Context, accountID string) error) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TwoFactorController.sendOTP"))

	if err := send(ctx, middlewares.GetAccountID(ctx)); err != nil {
		log.Debug("send failed", logger.Err(err))
		writeTwoFactorError(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusAccepted, dto.StatusResponse{Status: "sent"})
}

// Setup maneja POST /2fa/setup: confirma la activación con el código.
func (c *TwoFactorController) Setup(w http.ResponseWriter, r *http.Request) {
	c.toggle(w, r, c.twoFactor.Enable)
}

// Disable maneja POST /2fa/disable: confirma la baja con el código.
func (c *TwoFactorController) Disable(w http.ResponseWriter, r *http.Request) {
	c.toggle(w, r, c.twoFactor.Disable)
}

func (c *TwoFactorController) toggle(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, accountID, code string) error) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TwoFactorController.toggle"))

	code, ok := c.readCode(w, r)
	if !ok {
		return
	}

	if err := apply(ctx, middlewares.GetAccountID(ctx), code); err != nil {
		log.Debug("toggle failed", logger.Err(err))
		writeTwoFactorError(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// Status maneja GET /2fa/status
func (c *TwoFactorController) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	enabled, err := c.twoFactor.Status(ctx, middlewares.GetAccountID(ctx))
	if err != nil {
		writeTwoFactorError(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.TwoFactorStatusResponse{Enabled: enabled})
}

func writeTwoFactorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)

	case errors.Is(err, svc.ErrAccountNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound)

	case errors.Is(err, svc.ErrInvalidOTP):
		httperrors.WriteError(w, httperrors.ErrInvalidOTP)

	case errors.Is(err, svc.ErrAlreadyEnabled), errors.Is(err, svc.ErrAlreadyDisabled):
		httperrors.WriteError(w, httperrors.ErrConflict.WithDetail(err.Error()))

	case errors.Is(err, svc.ErrOTPSendFailed):
		httperrors.WriteError(w, httperrors.ErrDeliveryFailed)

	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
