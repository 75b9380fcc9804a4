package pwreset

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	"github.com/dropDatabas3/paperauth/internal/email"
	"github.com/dropDatabas3/paperauth/internal/security/password"
	tokens "github.com/dropDatabas3/paperauth/internal/security/token"
	"github.com/dropDatabas3/paperauth/internal/store/memory"
)

// lightHasher mantiene los tests rápidos sin tocar la semántica.
var lightHasher = password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}

var linkRe = regexp.MustCompile(`https?://\S+`)

type captureSender struct {
	mu   sync.Mutex
	sent []email.Message
	fail error
}

func (c *captureSender) Send(to, subject, htmlBody, textBody string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.sent = append(c.sent, email.Message{To: to, TextBody: textBody})
	return nil
}

type fixture struct {
	store   *memory.Store
	sender  *captureSender
	svc     *Service
	account *repository.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New(memory.Options{})
	account, err := st.Accounts().Create(context.Background(), repository.CreateAccountInput{
		Username: "mgarcia", Email: "mgarcia@test", PasswordHash: "old-hash",
	})
	if err != nil {
		t.Fatal(err)
	}
	tmpl, err := email.NewTemplates()
	if err != nil {
		t.Fatal(err)
	}
	sender := &captureSender{}
	d := email.NewDispatcher(sender, email.DispatcherConfig{Workers: 1, MaxAttempts: 2, BaseDelay: time.Millisecond})

	svc := NewService(Deps{
		Accounts:   st.Accounts(),
		Tokens:     st.ResetTokens(),
		Templates:  tmpl,
		Dispatcher: d,
		Hasher:     lightHasher,
		BaseURL:    "https://docs.test",
	})
	return &fixture{store: st, sender: sender, svc: svc, account: account}
}

// sentToken extrae el token crudo del último email enviado.
func (f *fixture) sentToken(t *testing.T) string {
	t.Helper()
	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()
	if len(f.sender.sent) == 0 {
		t.Fatal("no se envió ningún email")
	}
	link := linkRe.FindString(f.sender.sent[len(f.sender.sent)-1].TextBody)
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("link inválido %q: %v", link, err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("el link no lleva token: %q", link)
	}
	return token
}

func TestRequestReset_FullRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.RequestReset(ctx, "mgarcia@test"); err != nil {
		t.Fatalf("RequestReset err: %v", err)
	}
	raw := f.sentToken(t)
	if !strings.HasPrefix(f.sender.sent[0].To, "mgarcia@") {
		t.Fatalf("destinatario %q", f.sender.sent[0].To)
	}

	account, err := f.svc.VerifyToken(ctx, raw)
	if err != nil {
		t.Fatalf("VerifyToken err: %v", err)
	}
	if account.ID != f.account.ID {
		t.Fatal("VerifyToken resolvió otra cuenta")
	}

	if err := f.svc.ResetPassword(ctx, raw, "nueva password segura"); err != nil {
		t.Fatalf("ResetPassword err: %v", err)
	}

	got, err := f.store.Accounts().GetByID(ctx, f.account.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !password.Verify("nueva password segura", got.PasswordHash) {
		t.Fatal("la credencial nueva debería verificar")
	}
	if password.Verify("old-hash", got.PasswordHash) {
		t.Fatal("la credencial vieja no debería verificar")
	}
}

func TestRequestReset_UnknownEmailSucceedsSilently(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.RequestReset(context.Background(), "nadie@test"); err != nil {
		t.Fatalf("email desconocido debe retornar éxito: %v", err)
	}
	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()
	if len(f.sender.sent) != 0 {
		t.Fatal("no debería enviarse email alguno")
	}
}

// hashCapturingRepo delega en el repo real guardando el último hash que
// pasó por Create. El raw nunca sale por email en los tests de falla, así
// que el hash es la única manera de ubicar el token emitido.
type hashCapturingRepo struct {
	repository.ResetTokenRepository
	lastHash string
}

func (r *hashCapturingRepo) Create(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) (*repository.ResetToken, error) {
	r.lastHash = tokenHash
	return r.ResetTokenRepository.Create(ctx, accountID, tokenHash, expiresAt)
}

func TestRequestReset_DeliveryFailureKeepsTokenAlive(t *testing.T) {
	f := newFixture(t)
	f.sender.fail = errors.New("535 authentication failed")
	tokens := &hashCapturingRepo{ResetTokenRepository: f.store.ResetTokens()}
	svc := NewService(Deps{
		Accounts: f.store.Accounts(), Tokens: tokens,
		Templates: mustTemplates(t), Dispatcher: email.NewDispatcher(f.sender, email.DispatcherConfig{Workers: 1, MaxAttempts: 2, BaseDelay: time.Millisecond}),
		Hasher: lightHasher, BaseURL: "https://docs.test",
	})
	ctx := context.Background()

	err := svc.RequestReset(ctx, "mgarcia@test")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("esperaba ErrDeliveryFailed, got %v", err)
	}

	// El token emitido sigue vivo aunque el email no haya salido.
	if _, err := f.store.ResetTokens().GetActiveByHash(ctx, tokens.lastHash); err != nil {
		t.Fatalf("el token debería seguir activo: %v", err)
	}
}

func TestRequestReset_TransientFailureRespectsDeliverTimeout(t *testing.T) {
	f := newFixture(t)
	f.sender.fail = errors.New("dial tcp 10.0.0.1:587: connect: connection refused")
	// Backoff largo: sin el tope propio, la entrega quedaría bloqueada
	// esperando el próximo reintento mucho más allá del request.
	d := email.NewDispatcher(f.sender, email.DispatcherConfig{Workers: 1, MaxAttempts: 5, BaseDelay: 30 * time.Second, MaxElapsed: 2 * time.Minute})
	svc := NewService(Deps{
		Accounts: f.store.Accounts(), Tokens: f.store.ResetTokens(),
		Templates: mustTemplates(t), Dispatcher: d,
		Hasher: lightHasher, BaseURL: "https://docs.test",
		DeliverTimeout: 50 * time.Millisecond,
	})
	ctx := context.Background()

	start := time.Now()
	err := svc.RequestReset(ctx, "mgarcia@test")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("esperaba ErrDeliveryFailed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("la entrega síncrona no respetó su tope: tardó %v", elapsed)
	}
}

func mustTemplates(t *testing.T) *email.Templates {
	t.Helper()
	tmpl, err := email.NewTemplates()
	if err != nil {
		t.Fatal(err)
	}
	return tmpl
}

func TestResetPassword_TokenSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.RequestReset(ctx, "mgarcia@test"); err != nil {
		t.Fatal(err)
	}
	raw := f.sentToken(t)

	if err := f.svc.ResetPassword(ctx, raw, "primera nueva"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.ResetPassword(ctx, raw, "segunda nueva"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token consumido debería fallar, got %v", err)
	}
	if _, err := f.svc.VerifyToken(ctx, raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token consumido no debería verificar, got %v", err)
	}
}

func TestRequestReset_NewTokenInvalidatesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.RequestReset(ctx, "mgarcia@test"); err != nil {
		t.Fatal(err)
	}
	first := f.sentToken(t)

	if err := f.svc.RequestReset(ctx, "mgarcia@test"); err != nil {
		t.Fatal(err)
	}
	second := f.sentToken(t)

	if _, err := f.svc.VerifyToken(ctx, first); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("el primer token debería estar invalidado, got %v", err)
	}
	if _, err := f.svc.VerifyToken(ctx, second); err != nil {
		t.Fatalf("el segundo token debería estar vivo: %v", err)
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	f := newFixture(t)
	for _, raw := range []string{"", "no-token", strings.Repeat("A", 64)} {
		if _, err := f.svc.VerifyToken(context.Background(), raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: esperaba ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Token ya vencido, insertado directo en storage con su raw conocido.
	raw := "token-vencido"
	if _, err := f.store.ResetTokens().Create(ctx, f.account.ID, tokens.SHA256Base64URL(raw), time.Now().Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.VerifyToken(ctx, raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token expirado: esperaba ErrInvalidToken, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, raw, "da igual"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token expirado no debe consumirse, got %v", err)
	}
}
