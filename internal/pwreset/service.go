// Package pwreset implementa el ciclo de vida de tokens de recuperación de
// contraseña: emisión con invalidación de tokens previos, entrega por email,
// verificación y consumo de un solo uso atado al cambio de credencial.
package pwreset

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	"github.com/dropDatabas3/paperauth/internal/email"
	"github.com/dropDatabas3/paperauth/internal/observability/logger"
	"github.com/dropDatabas3/paperauth/internal/security/password"
	tokens "github.com/dropDatabas3/paperauth/internal/security/token"
)

const (
	// DefaultTTL es la ventana de validez de un token de recuperación.
	DefaultTTL = time.Hour

	// DefaultDeliverTimeout acota los reintentos de la entrega síncrona.
	// Tiene que quedar por debajo del write timeout del servidor HTTP: el
	// request de reset espera esta entrega.
	DefaultDeliverTimeout = 20 * time.Second

	// tokenBytes es la entropía del token crudo antes de codificar.
	tokenBytes = 32
)

var (
	// ErrInvalidToken cubre token desconocido, ya usado o expirado; una
	// sola señal para el caller.
	ErrInvalidToken = errors.New("pwreset: invalid or expired token")

	// ErrDeliveryFailed indica que el token quedó emitido pero el email no
	// pudo entregarse.
	ErrDeliveryFailed = errors.New("pwreset: delivery failed")
)

// Deps son las dependencias del servicio.
type Deps struct {
	Accounts   repository.AccountRepository
	Tokens     repository.ResetTokenRepository
	Templates  *email.Templates
	Dispatcher *email.Dispatcher
	Hasher     password.Params

	// BaseURL es la raíz pública del frontend donde vive la pantalla de
	// reset; el link del email es BaseURL + "/reset-password?token=...".
	BaseURL string

	// TTL de los tokens emitidos. Cero usa DefaultTTL.
	TTL time.Duration

	// DeliverTimeout acota la entrega síncrona del email. Cero usa
	// DefaultDeliverTimeout.
	DeliverTimeout time.Duration
}

// Service gestiona tokens de recuperación de contraseña.
type Service struct {
	deps Deps
}

// NewService crea el servicio con sus dependencias.
func NewService(deps Deps) *Service {
	if deps.TTL <= 0 {
		deps.TTL = DefaultTTL
	}
	if deps.DeliverTimeout <= 0 {
		deps.DeliverTimeout = DefaultDeliverTimeout
	}
	return &Service{deps: deps}
}

// RequestReset emite un token de recuperación para la cuenta dueña del
// email y envía el link. Para un email desconocido retorna éxito sin emitir
// nada: la respuesta no revela si la cuenta existe. La entrega es síncrona
// porque su falla sí se reporta al caller; el token emitido sigue vivo
// aunque el email no haya salido, de modo que un reintento de entrega por
// otro canal sigue siendo posible dentro del TTL.
func (s *Service) RequestReset(ctx context.Context, emailAddr string) error {
	log := logger.From(ctx).With(logger.Component("pwreset.service"))

	account, err := s.deps.Accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Info("reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("pwreset: lookup account: %w", err)
	}
	log = log.With(logger.AccountID(account.ID))

	raw, err := tokens.GenerateOpaqueToken(tokenBytes)
	if err != nil {
		return fmt.Errorf("pwreset: generate token: %w", err)
	}

	rec, err := s.deps.Tokens.Create(ctx, account.ID, tokens.SHA256Base64URL(raw), time.Now().Add(s.deps.TTL))
	if err != nil {
		return fmt.Errorf("pwreset: persist token: %w", err)
	}
	log.Info("reset token issued", logger.ID(rec.ID))

	link := s.deps.BaseURL + "/reset-password?token=" + url.QueryEscape(raw)
	msg, err := s.deps.Templates.RenderReset(account.Email, account.Username, link, s.deps.TTL)
	if err != nil {
		return fmt.Errorf("pwreset: render message: %w", err)
	}

	// La política de reintentos del dispatcher puede tardar más que el
	// write timeout del servidor; acá el caller está esperando, así que el
	// deadline propio más corto manda.
	dctx, cancel := context.WithTimeout(ctx, s.deps.DeliverTimeout)
	defer cancel()
	if err := s.deps.Dispatcher.Deliver(dctx, msg); err != nil {
		log.Error("reset email not delivered", logger.Err(err))
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// VerifyToken valida un token crudo sin consumirlo y retorna la cuenta
// dueña. Token desconocido, usado o expirado resuelven a ErrInvalidToken.
func (s *Service) VerifyToken(ctx context.Context, raw string) (*repository.Account, error) {
	rec, err := s.deps.Tokens.GetActiveByHash(ctx, tokens.SHA256Base64URL(raw))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("pwreset: lookup token: %w", err)
	}
	if !rec.ExpiresAt.After(time.Now()) {
		return nil, ErrInvalidToken
	}
	account, err := s.deps.Accounts.GetByID(ctx, rec.AccountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("pwreset: lookup account: %w", err)
	}
	return account, nil
}

// ResetPassword consume el token y reemplaza la credencial de la cuenta.
// Marcar el token como usado y actualizar el hash ocurren en una sola
// unidad de trabajo en storage; dos resets concurrentes con el mismo token
// resuelven a un único éxito.
func (s *Service) ResetPassword(ctx context.Context, raw, newPassword string) error {
	hash, err := password.Hash(s.deps.Hasher, newPassword)
	if err != nil {
		return fmt.Errorf("pwreset: hash password: %w", err)
	}

	accountID, err := s.deps.Tokens.Consume(ctx, tokens.SHA256Base64URL(raw), hash)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrInvalidToken
		}
		return fmt.Errorf("pwreset: consume token: %w", err)
	}

	logger.From(ctx).Info("password reset completed",
		logger.Component("pwreset.service"),
		logger.AccountID(accountID),
	)
	return nil
}

// RunCleanup barre tokens expirados cada interval hasta que ctx se cancele.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	log := logger.From(ctx).With(logger.Component("pwreset.cleanup"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.deps.Tokens.DeleteExpired(ctx)
			if err != nil {
				log.Error("cleanup sweep failed", logger.Err(err))
				continue
			}
			if n > 0 {
				log.Info("expired tokens removed", logger.Count(n))
			}
		}
	}
}
