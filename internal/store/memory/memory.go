// Package memory implementa store.Store en memoria. Sirve para desarrollo
// local y para los tests de concurrencia de los servicios: las mismas
// garantías atómicas del adapter pg (invalidar+insertar, compare-and-set
// de consumo) se cumplen aquí bajo un mutex por store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	"github.com/dropDatabas3/paperauth/internal/store"
)

// Store implementa store.Store sobre mapas en memoria.
type Store struct {
	mu sync.Mutex

	accounts map[string]*repository.Account // por ID
	codes    map[string]*repository.OneTimeCode
	resets   map[string]*repository.ResetToken

	defaultScopes []string
	now           func() time.Time
}

var _ store.Store = (*Store)(nil)

// Options configura el adapter.
type Options struct {
	DefaultScopes []string

	// Now permite inyectar el reloj en tests. Nil usa time.Now.
	Now func() time.Time
}

// New crea un Store vacío.
func New(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		accounts:      make(map[string]*repository.Account),
		codes:         make(map[string]*repository.OneTimeCode),
		resets:        make(map[string]*repository.ResetToken),
		defaultScopes: opts.DefaultScopes,
		now:           now,
	}
}

func (s *Store) Accounts() repository.AccountRepository       { return (*accountRepo)(s) }
func (s *Store) OTPs() repository.OTPRepository               { return (*otpRepo)(s) }
func (s *Store) ResetTokens() repository.ResetTokenRepository { return (*resetTokenRepo)(s) }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// ─── Accounts ────────────────────────────────────────────────────────────────

type accountRepo Store

func cloneAccount(a *repository.Account) *repository.Account {
	cp := *a
	cp.Scopes = append([]string(nil), a.Scopes...)
	return &cp
}

func (r *accountRepo) GetByID(_ context.Context, id string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *accountRepo) GetByUsername(_ context.Context, username string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == username {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.findByEmail(email); a != nil {
		return cloneAccount(a), nil
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) findByEmail(email string) *repository.Account {
	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			return a
		}
	}
	return nil
}

func (r *accountRepo) GetOrCreateByEmail(_ context.Context, email string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.findByEmail(email); a != nil {
		return cloneAccount(a), nil
	}
	a := &repository.Account{
		ID:        uuid.NewString(),
		Username:  email,
		Email:     email,
		Scopes:    append([]string(nil), r.defaultScopes...),
		CreatedAt: r.now(),
	}
	r.accounts[a.ID] = a
	return cloneAccount(a), nil
}

func (r *accountRepo) Create(_ context.Context, input repository.CreateAccountInput) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == input.Username || strings.EqualFold(a.Email, input.Email) {
			return nil, repository.ErrConflict
		}
	}
	a := &repository.Account{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Scopes:       append([]string(nil), input.Scopes...),
		CreatedAt:    r.now(),
	}
	r.accounts[a.ID] = a
	return cloneAccount(a), nil
}

func (r *accountRepo) SetTwoFactorEnabled(_ context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.TwoFactorEnabled = enabled
	return nil
}

func (r *accountRepo) SetPasswordHash(_ context.Context, id string, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

// ─── One-time codes ──────────────────────────────────────────────────────────

type otpRepo Store

func (r *otpRepo) Create(_ context.Context, accountID, code string, purpose repository.OTPPurpose, expiresAt time.Time) (*repository.OneTimeCode, error) {
	if !purpose.Valid() {
		return nil, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.AccountID == accountID && c.Purpose == purpose && !c.Used {
			c.Used = true
		}
	}
	rec := &repository.OneTimeCode{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: r.now(),
		ExpiresAt: expiresAt,
	}
	r.codes[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (r *otpRepo) Consume(_ context.Context, accountID, code string, purpose repository.OTPPurpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.AccountID == accountID && c.Code == code && c.Purpose == purpose &&
			!c.Used && c.ExpiresAt.After(r.now()) {
			c.Used = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *otpRepo) Burn(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Used = true
	return nil
}

func (r *otpRepo) CountActive(_ context.Context, accountID string, purpose repository.OTPPurpose) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.codes {
		if c.AccountID == accountID && c.Purpose == purpose && !c.Used && c.ExpiresAt.After(r.now()) {
			n++
		}
	}
	return n, nil
}

func (r *otpRepo) DeleteExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	now := r.now()
	for id, c := range r.codes {
		if c.ExpiresAt.Before(now) {
			delete(r.codes, id)
			n++
		}
	}
	return n, nil
}

// ─── Reset tokens ────────────────────────────────────────────────────────────

type resetTokenRepo Store

func (r *resetTokenRepo) Create(_ context.Context, accountID, tokenHash string, expiresAt time.Time) (*repository.ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.resets {
		if t.AccountID == accountID && !t.Used {
			t.Used = true
		}
	}
	rec := &repository.ResetToken{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TokenHash: tokenHash,
		CreatedAt: r.now(),
		ExpiresAt: expiresAt,
	}
	r.resets[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (r *resetTokenRepo) GetActiveByHash(_ context.Context, tokenHash string) (*repository.ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.resets {
		if t.TokenHash == tokenHash && !t.Used {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *resetTokenRepo) Consume(_ context.Context, tokenHash, newPasswordHash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.resets {
		if t.TokenHash == tokenHash && !t.Used && t.ExpiresAt.After(r.now()) {
			a, ok := r.accounts[t.AccountID]
			if !ok {
				return "", repository.ErrNotFound
			}
			t.Used = true
			a.PasswordHash = newPasswordHash
			return t.AccountID, nil
		}
	}
	return "", repository.ErrNotFound
}

func (r *resetTokenRepo) DeleteExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	now := r.now()
	for id, t := range r.resets {
		if t.ExpiresAt.Before(now) {
			delete(r.resets, id)
			n++
		}
	}
	return n, nil
}
