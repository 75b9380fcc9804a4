package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	dto "github.com/dropDatabas3/paperauth/internal/http/dto/auth"
	jwtx "github.com/dropDatabas3/paperauth/internal/jwt"
	"github.com/dropDatabas3/paperauth/internal/metrics"
	"github.com/dropDatabas3/paperauth/internal/observability/logger"
	"github.com/dropDatabas3/paperauth/internal/otp"
	"github.com/dropDatabas3/paperauth/internal/security/password"
	"github.com/dropDatabas3/paperauth/internal/store"
)

// Providers soportados por el endpoint de token.
const (
	ProviderPassword = "password"
	ProviderLDAP     = "ldap"
	ProviderOIDC     = "oidc"
)

// Errores de login
var (
	ErrMissingFields      = fmt.Errorf("missing required fields")
	ErrUnknownProvider    = fmt.Errorf("unknown provider")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidOTP         = fmt.Errorf("invalid one-time code")
	ErrProviderDisabled   = fmt.Errorf("provider not configured")
	ErrTokenIssueFailed   = fmt.Errorf("failed to issue token")
)

// LoginDeps contiene las dependencias para el login service.
type LoginDeps struct {
	Store     store.Store
	Issuer    *jwtx.Issuer
	OTP       *otp.Service
	Directory DirectoryClient // nil = provider ldap deshabilitado
	Federated FederatedClient // nil = provider oidc deshabilitado
}

type loginService struct {
	deps LoginDeps
}

// NewLoginService crea un nuevo servicio de login.
func NewLoginService(deps LoginDeps) LoginService {
	return &loginService{deps: deps}
}

func (s *loginService) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResult, error) {
	provider := strings.TrimSpace(strings.ToLower(in.Provider))
	if provider == "" {
		provider = ProviderPassword
	}

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Provider(provider),
	)

	var (
		result *dto.LoginResult
		err    error
	)
	switch provider {
	case ProviderPassword:
		result, err = s.loginPassword(ctx, in, log)
	case ProviderLDAP:
		result, err = s.loginDirectory(ctx, in, log)
	case ProviderOIDC:
		result, err = s.loginFederated(ctx, in, log)
	default:
		log.Debug("unknown provider requested")
		return nil, ErrUnknownProvider
	}

	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	metrics.AuthAttempts.WithLabelValues(provider, outcome).Inc()
	return result, err
}

// loginPassword resuelve la estrategia local: lookup por username y
// verificación argon2id. Username inexistente y password incorrecta
// colapsan a la misma señal.
func (s *loginService) loginPassword(ctx context.Context, in dto.LoginRequest, log *zap.Logger) (*dto.LoginResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	account, err := s.deps.Store.Accounts().GetByUsername(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Debug("account not found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	log = log.With(logger.AccountID(account.ID))

	if account.PasswordHash == "" || !password.Verify(in.Password, account.PasswordHash) {
		log.Debug("password mismatch")
		return nil, ErrInvalidCredentials
	}

	if !account.TwoFactorEnabled {
		return s.issueFull(account, log)
	}

	// Segundo factor activo: sin código, disparar el envío y emitir token
	// restringido; con código, verificarlo acá mismo. Si el código no pudo
	// emitirse no hay token restringido que entregar: quedaría un pending
	// imposible de completar.
	if in.Code == "" {
		if err := s.deps.OTP.CreateAndSend(ctx, account.ID, repository.OTPPurposeLogin); err != nil {
			log.Error("failed to send login code", logger.Err(err))
			return nil, fmt.Errorf("%w: %v", ErrOTPSendFailed, err)
		}
		return s.issuePending(account, log)
	}

	if err := s.deps.OTP.Verify(ctx, account.ID, in.Code, repository.OTPPurposeLogin); err != nil {
		if errors.Is(err, otp.ErrInvalidCode) {
			log.Debug("login code rejected")
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("verify login code: %w", err)
	}
	return s.issueFull(account, log)
}

// loginDirectory delega la verificación en el directorio externo y
// resuelve la cuenta local por email, creándola si es la primera vez.
func (s *loginService) loginDirectory(ctx context.Context, in dto.LoginRequest, log *zap.Logger) (*dto.LoginResult, error) {
	if s.deps.Directory == nil {
		return nil, ErrProviderDisabled
	}
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	email, err := s.deps.Directory.Authenticate(ctx, username, in.Password)
	if err != nil {
		log.Debug("directory bind rejected", logger.Err(err))
		return nil, ErrInvalidCredentials
	}

	account, err := s.deps.Store.Accounts().GetOrCreateByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("resolve directory account: %w", err)
	}
	return s.issueFull(account, log.With(logger.AccountID(account.ID)))
}

// loginFederated intercambia el authorization code y devuelve el token del
// proveedor upstream tal cual; este servicio no emite token propio en este
// flujo.
func (s *loginService) loginFederated(ctx context.Context, in dto.LoginRequest, log *zap.Logger) (*dto.LoginResult, error) {
	if s.deps.Federated == nil {
		return nil, ErrProviderDisabled
	}
	if in.Code == "" {
		return nil, ErrMissingFields
	}

	tr, err := s.deps.Federated.ExchangeCode(ctx, in.Code)
	if err != nil {
		log.Debug("code exchange rejected", logger.Err(err))
		return nil, ErrInvalidCredentials
	}

	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &dto.LoginResult{
		AccessToken: tr.AccessToken,
		TokenType:   tokenType,
		ExpiresIn:   int64(tr.ExpiresIn),
	}, nil
}

func (s *loginService) CompleteTwoFactor(ctx context.Context, accountID, code string) (*dto.LoginResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.AccountID(accountID),
	)
	if code == "" {
		return nil, ErrMissingFields
	}

	account, err := s.deps.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if err := s.deps.OTP.Verify(ctx, account.ID, code, repository.OTPPurposeLogin); err != nil {
		if errors.Is(err, otp.ErrInvalidCode) {
			log.Debug("login code rejected")
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("verify login code: %w", err)
	}
	return s.issueFull(account, log)
}

func (s *loginService) issueFull(account *repository.Account, log *zap.Logger) (*dto.LoginResult, error) {
	token, exp, err := s.deps.Issuer.IssueAccess(account.ID, account.Username, account.Email, account.Scopes)
	if err != nil {
		log.Error("token issuance failed", logger.Err(err))
		return nil, ErrTokenIssueFailed
	}
	log.Info("access token issued")
	return &dto.LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(exp).Seconds()),
	}, nil
}

func (s *loginService) issuePending(account *repository.Account, log *zap.Logger) (*dto.LoginResult, error) {
	token, exp, err := s.deps.Issuer.IssuePending2FA(account.ID, account.Username, account.Email)
	if err != nil {
		log.Error("restricted token issuance failed", logger.Err(err))
		return nil, ErrTokenIssueFailed
	}
	log.Info("restricted token issued, second factor pending")
	return &dto.LoginResult{
		AccessToken:       token,
		TokenType:         "Bearer",
		ExpiresIn:         int64(time.Until(exp).Seconds()),
		RequiresTwoFactor: true,
	}, nil
}
