package otp

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	"github.com/dropDatabas3/paperauth/internal/email"
	"github.com/dropDatabas3/paperauth/internal/store/memory"
)

var codeRe = regexp.MustCompile(`\d{6}`)

// captureSender guarda los mensajes enviados y permite forzar fallas.
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
	c.sent = append(c.sent, email.Message{To: to, Subject: subject, HTMLBody: htmlBody, TextBody: textBody})
	return nil
}

func (c *captureSender) last() (email.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return email.Message{}, false
	}
	return c.sent[len(c.sent)-1], true
}

type fixture struct {
	store   *memory.Store
	sender  *captureSender
	svc     *Service
	account *repository.Account
}

func newFixture(t *testing.T, cfg email.DispatcherConfig) *fixture {
	t.Helper()
	st := memory.New(memory.Options{})
	account, err := st.Accounts().Create(context.Background(), repository.CreateAccountInput{
		Username: "mgarcia", Email: "mgarcia@test", PasswordHash: "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	tmpl, err := email.NewTemplates()
	if err != nil {
		t.Fatal(err)
	}
	sender := &captureSender{}
	d := email.NewDispatcher(sender, cfg)
	d.Start(context.Background())
	t.Cleanup(d.Close)

	svc := NewService(Deps{
		Accounts:   st.Accounts(),
		Codes:      st.OTPs(),
		Templates:  tmpl,
		Dispatcher: d,
	})
	return &fixture{store: st, sender: sender, svc: svc, account: account}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condición no alcanzada a tiempo")
}

func TestCreateAndSend_DeliversAndCodeVerifies(t *testing.T) {
	f := newFixture(t, email.DispatcherConfig{Workers: 1, BaseDelay: time.Millisecond})
	ctx := context.Background()

	if err := f.svc.CreateAndSend(ctx, f.account.ID, repository.OTPPurposeLogin); err != nil {
		t.Fatalf("CreateAndSend err: %v", err)
	}

	waitFor(t, func() bool { _, ok := f.sender.last(); return ok })
	msg, _ := f.sender.last()
	if msg.To != "mgarcia@test" {
		t.Fatalf("destinatario %q", msg.To)
	}
	code := codeRe.FindString(msg.TextBody)
	if code == "" {
		t.Fatalf("el cuerpo no contiene un código de 6 dígitos: %q", msg.TextBody)
	}

	if err := f.svc.Verify(ctx, f.account.ID, code, repository.OTPPurposeLogin); err != nil {
		t.Fatalf("el código entregado debería verificar: %v", err)
	}
}

func TestCreateAndSend_UnknownAccount(t *testing.T) {
	f := newFixture(t, email.DispatcherConfig{Workers: 1, BaseDelay: time.Millisecond})
	err := f.svc.CreateAndSend(context.Background(), "nope", repository.OTPPurposeLogin)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("esperaba ErrNotFound envuelto, got %v", err)
	}
}

func TestCreateAndSend_BurnsCodeOnPermanentFailure(t *testing.T) {
	f := newFixture(t, email.DispatcherConfig{Workers: 1, MaxAttempts: 2, BaseDelay: time.Millisecond})
	f.sender.fail = errors.New("550 5.1.1 user unknown")
	ctx := context.Background()

	// El encolado en sí no falla: la falla llega por el callback.
	if err := f.svc.CreateAndSend(ctx, f.account.ID, repository.OTPPurposeLogin); err != nil {
		t.Fatalf("CreateAndSend err: %v", err)
	}

	waitFor(t, func() bool {
		n, _ := f.store.OTPs().CountActive(ctx, f.account.ID, repository.OTPPurposeLogin)
		return n == 0
	})
}

func TestCreateAndSend_QueueFullBurnsImmediately(t *testing.T) {
	st := memory.New(memory.Options{})
	account, err := st.Accounts().Create(context.Background(), repository.CreateAccountInput{
		Username: "jlopez", Email: "jlopez@test",
	})
	if err != nil {
		t.Fatal(err)
	}
	tmpl, err := email.NewTemplates()
	if err != nil {
		t.Fatal(err)
	}
	// Dispatcher sin arrancar con cola de 1: el segundo encolado rebota.
	d := email.NewDispatcher(&captureSender{}, email.DispatcherConfig{Workers: 1, QueueSize: 1})
	svc := NewService(Deps{Accounts: st.Accounts(), Codes: st.OTPs(), Templates: tmpl, Dispatcher: d})
	ctx := context.Background()

	if err := svc.CreateAndSend(ctx, account.ID, repository.OTPPurposeSetup); err != nil {
		t.Fatalf("primer envío debería encolar: %v", err)
	}
	if err := svc.CreateAndSend(ctx, account.ID, repository.OTPPurposeSetup); !errors.Is(err, email.ErrQueueFull) {
		t.Fatalf("esperaba ErrQueueFull envuelto, got %v", err)
	}

	// El segundo código quedó quemado; el primero fue invalidado al emitir
	// el segundo. No queda nada verificable.
	n, err := st.OTPs().CountActive(ctx, account.ID, repository.OTPPurposeSetup)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("CountActive = %d, esperaba 0", n)
	}
}

func TestVerify_SingleUse(t *testing.T) {
	f := newFixture(t, email.DispatcherConfig{Workers: 1, BaseDelay: time.Millisecond})
	ctx := context.Background()

	if _, err := f.store.OTPs().Create(ctx, f.account.ID, "123456", repository.OTPPurposeDisable, time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Verify(ctx, f.account.ID, "123456", repository.OTPPurposeDisable); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Verify(ctx, f.account.ID, "123456", repository.OTPPurposeDisable); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("segundo uso debería fallar con ErrInvalidCode, got %v", err)
	}
}

func TestVerify_WrongCodeAndWrongPurpose(t *testing.T) {
	f := newFixture(t, email.DispatcherConfig{Workers: 1, BaseDelay: time.Millisecond})
	ctx := context.Background()

	if _, err := f.store.OTPs().Create(ctx, f.account.ID, "123456", repository.OTPPurposeLogin, time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Verify(ctx, f.account.ID, "999999", repository.OTPPurposeLogin); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("código incorrecto: esperaba ErrInvalidCode, got %v", err)
	}
	if err := f.svc.Verify(ctx, f.account.ID, "123456", repository.OTPPurposeSetup); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("propósito incorrecto: esperaba ErrInvalidCode, got %v", err)
	}
	// El código sigue vivo: los intentos fallidos no lo consumen.
	if err := f.svc.Verify(ctx, f.account.ID, "123456", repository.OTPPurposeLogin); err != nil {
		t.Fatalf("el código correcto debería seguir verificando: %v", err)
	}
}

// sweepCountingRepo delega en el repo real contando las filas que los
// barridos de cleanup eliminan.
type sweepCountingRepo struct {
	repository.OTPRepository
	swept atomic.Int64
}

func (r *sweepCountingRepo) DeleteExpired(ctx context.Context) (int, error) {
	n, err := r.OTPRepository.DeleteExpired(ctx)
	r.swept.Add(int64(n))
	return n, err
}

func TestRunCleanup_SweepsExpired(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := now
	st := memory.New(memory.Options{Now: func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}})
	account, err := st.Accounts().Create(context.Background(), repository.CreateAccountInput{
		Username: "mgarcia", Email: "mgarcia@test",
	})
	if err != nil {
		t.Fatal(err)
	}
	tmpl, _ := email.NewTemplates()
	d := email.NewDispatcher(&captureSender{}, email.DispatcherConfig{Workers: 1})
	codes := &sweepCountingRepo{OTPRepository: st.OTPs()}
	svc := NewService(Deps{Accounts: st.Accounts(), Codes: codes, Templates: tmpl, Dispatcher: d})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := st.OTPs().Create(ctx, account.ID, "111111", repository.OTPPurposeLogin, now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	clock = now.Add(2 * time.Minute)
	mu.Unlock()

	go svc.RunCleanup(ctx, 10*time.Millisecond)

	waitFor(t, func() bool { return codes.swept.Load() == 1 })
}
