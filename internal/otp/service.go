// Package otp implementa el ciclo de vida de códigos de un solo uso:
// emisión con invalidación de códigos previos, entrega por email, consumo
// de un solo uso y limpieza periódica.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	"github.com/dropDatabas3/paperauth/internal/email"
	"github.com/dropDatabas3/paperauth/internal/metrics"
	"github.com/dropDatabas3/paperauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/paperauth/internal/security/token"
)

// DefaultTTL es la ventana de validez de un código emitido.
const DefaultTTL = 10 * time.Minute

// ErrInvalidCode cubre código incorrecto, ya usado o expirado: el caller
// recibe una sola señal y no puede distinguir los tres casos.
var ErrInvalidCode = errors.New("otp: invalid or expired code")

// Deps son las dependencias del servicio.
type Deps struct {
	Accounts   repository.AccountRepository
	Codes      repository.OTPRepository
	Templates  *email.Templates
	Dispatcher *email.Dispatcher

	// TTL de los códigos emitidos. Cero usa DefaultTTL.
	TTL time.Duration
}

// Service gestiona códigos de un solo uso por (cuenta, propósito).
type Service struct {
	deps Deps
}

// NewService crea el servicio con sus dependencias.
func NewService(deps Deps) *Service {
	if deps.TTL <= 0 {
		deps.TTL = DefaultTTL
	}
	return &Service{deps: deps}
}

// CreateAndSend emite un código nuevo para (accountID, purpose) y lo envía
// por email. El código queda persistido antes de encolar la entrega; los
// códigos previos del mismo scope quedan invalidados en la misma unidad de
// trabajo. Si la entrega falla en forma definitiva (permanente, o
// transitoria con reintentos agotados) el código se quema y ya no puede
// verificarse.
func (s *Service) CreateAndSend(ctx context.Context, accountID string, purpose repository.OTPPurpose) error {
	log := logger.From(ctx).With(
		logger.Component("otp.service"),
		logger.AccountID(accountID),
		logger.Purpose(string(purpose)),
	)

	account, err := s.deps.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("otp: load account: %w", err)
	}

	code, err := tokens.GenerateOTPCode()
	if err != nil {
		return fmt.Errorf("otp: generate code: %w", err)
	}

	rec, err := s.deps.Codes.Create(ctx, accountID, code, purpose, time.Now().Add(s.deps.TTL))
	if err != nil {
		return fmt.Errorf("otp: persist code: %w", err)
	}
	metrics.OTPIssued.WithLabelValues(string(purpose)).Inc()
	log.Info("one-time code issued", logger.ID(rec.ID))

	msg, err := s.deps.Templates.RenderOTP(account.Email, account.Username, code, s.deps.TTL)
	if err != nil {
		s.burn(rec.ID, log)
		return fmt.Errorf("otp: render message: %w", err)
	}

	codeID := rec.ID
	err = s.deps.Dispatcher.Enqueue(email.Job{
		Msg: msg,
		OnResult: func(deliveryErr error) {
			if deliveryErr != nil {
				s.burn(codeID, log)
			}
		},
	})
	if err != nil {
		// Cola llena: no hubo intento de entrega, el código no sirve.
		s.burn(rec.ID, log)
		return fmt.Errorf("otp: enqueue delivery: %w", err)
	}
	return nil
}

// burn marca un código como inutilizable tras una falla de entrega. Corre
// también desde el callback del dispatcher, fuera del request que lo creó.
func (s *Service) burn(id string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Codes.Burn(ctx, id); err != nil && !repository.IsNotFound(err) {
		log.Error("failed to burn undeliverable code", logger.ID(id), logger.Err(err))
		return
	}
	log.Warn("code burned after delivery failure", logger.ID(id))
}

// Verify consume el código si está vivo. Un código solo se verifica una
// vez: verificaciones concurrentes del mismo código resuelven a un único
// éxito porque el consumo es un compare-and-set en storage.
func (s *Service) Verify(ctx context.Context, accountID, code string, purpose repository.OTPPurpose) error {
	err := s.deps.Codes.Consume(ctx, accountID, code, purpose)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.OTPVerifications.WithLabelValues(string(purpose), "invalid").Inc()
			return ErrInvalidCode
		}
		return fmt.Errorf("otp: consume code: %w", err)
	}
	metrics.OTPVerifications.WithLabelValues(string(purpose), "ok").Inc()
	return nil
}

// RunCleanup barre códigos expirados cada interval hasta que ctx se cancele.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	log := logger.From(ctx).With(logger.Component("otp.cleanup"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.deps.Codes.DeleteExpired(ctx)
			if err != nil {
				log.Error("cleanup sweep failed", logger.Err(err))
				continue
			}
			if n > 0 {
				log.Info("expired codes removed", logger.Count(n))
			}
		}
	}
}
