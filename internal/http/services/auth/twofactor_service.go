package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	"github.com/dropDatabas3/paperauth/internal/observability/logger"
	"github.com/dropDatabas3/paperauth/internal/otp"
	"github.com/dropDatabas3/paperauth/internal/store"
)

// Errores del ciclo de segundo factor
var (
	ErrAccountNotFound = fmt.Errorf("account not found")
	ErrAlreadyEnabled  = fmt.Errorf("second factor already enabled")
	ErrAlreadyDisabled = fmt.Errorf("second factor already disabled")
	ErrOTPSendFailed   = fmt.Errorf("failed to send one-time code")
)

// TwoFactorDeps contiene las dependencias del servicio de segundo factor.
type TwoFactorDeps struct {
	Store store.Store
	OTP   *otp.Service
}

type twoFactorService struct {
	deps TwoFactorDeps
}

// NewTwoFactorService crea el servicio de segundo factor.
func NewTwoFactorService(deps TwoFactorDeps) TwoFactorService {
	return &twoFactorService{deps: deps}
}

func (s *twoFactorService) SendSetupOTP(ctx context.Context, accountID string) error {
	return s.send(ctx, accountID, repository.OTPPurposeSetup, false)
}

func (s *twoFactorService) SendDisableOTP(ctx context.Context, accountID string) error {
	return s.send(ctx, accountID, repository.OTPPurposeDisable, true)
}

// send valida el estado actual del flag antes de emitir: no se envía código
// de setup a una cuenta que ya lo tiene activo ni de disable a una que no.
func (s *twoFactorService) send(ctx context.Context, accountID string, purpose repository.OTPPurpose, wantEnabled bool) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.twofactor"),
		logger.AccountID(accountID),
		logger.Purpose(string(purpose)),
	)

	account, err := s.deps.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if account.TwoFactorEnabled != wantEnabled {
		if wantEnabled {
			return ErrAlreadyDisabled
		}
		return ErrAlreadyEnabled
	}

	if err := s.deps.OTP.CreateAndSend(ctx, accountID, purpose); err != nil {
		log.Error("failed to issue code", logger.Err(err))
		return ErrOTPSendFailed
	}
	return nil
}

func (s *twoFactorService) Enable(ctx context.Context, accountID, code string) error {
	return s.toggle(ctx, accountID, code, repository.OTPPurposeSetup, true)
}

func (s *twoFactorService) Disable(ctx context.Context, accountID, code string) error {
	return s.toggle(ctx, accountID, code, repository.OTPPurposeDisable, false)
}

func (s *twoFactorService) toggle(ctx context.Context, accountID, code string, purpose repository.OTPPurpose, enable bool) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.twofactor"),
		logger.AccountID(accountID),
		logger.Purpose(string(purpose)),
	)
	if code == "" {
		return ErrMissingFields
	}

	if err := s.deps.OTP.Verify(ctx, accountID, code, purpose); err != nil {
		if errors.Is(err, otp.ErrInvalidCode) {
			log.Debug("code rejected")
			return ErrInvalidOTP
		}
		return fmt.Errorf("verify code: %w", err)
	}

	if err := s.deps.Store.Accounts().SetTwoFactorEnabled(ctx, accountID, enable); err != nil {
		if repository.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("update flag: %w", err)
	}
	log.Info("second factor flag updated", logger.Bool("enabled", enable))
	return nil
}

func (s *twoFactorService) Status(ctx context.Context, accountID string) (bool, error) {
	account, err := s.deps.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, ErrAccountNotFound
		}
		return false, fmt.Errorf("lookup account: %w", err)
	}
	return account.TwoFactorEnabled, nil
}
