package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/paperauth/internal/auth/oidc"
	"github.com/dropDatabas3/paperauth/internal/config"
	"github.com/dropDatabas3/paperauth/internal/email"
	authctl "github.com/dropDatabas3/paperauth/internal/http/controllers/auth"
	healthctl "github.com/dropDatabas3/paperauth/internal/http/controllers/health"
	svc "github.com/dropDatabas3/paperauth/internal/http/services/auth"
	jwtx "github.com/dropDatabas3/paperauth/internal/jwt"
	"github.com/dropDatabas3/paperauth/internal/observability/logger"
	"github.com/dropDatabas3/paperauth/internal/otp"
	"github.com/dropDatabas3/paperauth/internal/pwreset"
	"github.com/dropDatabas3/paperauth/internal/rate"
	"github.com/dropDatabas3/paperauth/internal/security/password"
	"github.com/dropDatabas3/paperauth/internal/store"
	"github.com/dropDatabas3/paperauth/internal/store/memory"
	"github.com/dropDatabas3/paperauth/internal/store/pg"

	httpx "github.com/dropDatabas3/paperauth/internal/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	var (
		configPath = flag.String("config", "", "Path to YAML config")
		migrate    = flag.Bool("migrate", false, "Apply pending migrations on startup (pg driver)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "paperauth"})
	defer func() { _ = logger.Sync() }()
	logg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, *migrate)
	if err != nil {
		logg.Fatal("store init failed", logger.Err(err))
	}
	defer st.Close()

	key, err := signingKey(cfg.JWT.SigningKey)
	if err != nil {
		logg.Fatal("signing key", logger.Err(err))
	}
	issuer := jwtx.NewIssuer(cfg.JWT.Issuer, key)
	issuer.AccessTTL = cfg.JWT.AccessTTL.Std()

	sender := email.FromConfig(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		TLSMode:  cfg.SMTP.TLS,
		Timeout:  cfg.SMTP.Timeout.Std(),
	})
	sender.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify

	templates, err := email.NewTemplates()
	if err != nil {
		logg.Fatal("email templates", logger.Err(err))
	}

	dispatcher := email.NewDispatcher(sender, email.DispatcherConfig{
		Workers:     cfg.Dispatcher.Workers,
		QueueSize:   cfg.Dispatcher.QueueSize,
		MaxAttempts: uint64(cfg.Dispatcher.MaxAttempts),
		BaseDelay:   cfg.Dispatcher.BaseDelay.Std(),
		MaxElapsed:  cfg.Dispatcher.MaxElapsed.Std(),
	})
	dispatcher.Start(ctx)
	defer dispatcher.Close()

	otpSvc := otp.NewService(otp.Deps{
		Accounts:   st.Accounts(),
		Codes:      st.OTPs(),
		Templates:  templates,
		Dispatcher: dispatcher,
		TTL:        cfg.OTP.TTL.Std(),
	})
	resetSvc := pwreset.NewService(pwreset.Deps{
		Accounts:   st.Accounts(),
		Tokens:     st.ResetTokens(),
		Templates:  templates,
		Dispatcher: dispatcher,
		Hasher:     password.Default,
		BaseURL:    cfg.Server.BaseURL,
		TTL:        cfg.Reset.TTL.Std(),
	})

	var federated svc.FederatedClient
	if cfg.OIDC.Enabled {
		federated = oidc.New(cfg.OIDC.IssuerURL, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
	}

	services := svc.Services{
		Login: svc.NewLoginService(svc.LoginDeps{
			Store:     st,
			Issuer:    issuer,
			OTP:       otpSvc,
			Federated: federated,
		}),
		TwoFactor: svc.NewTwoFactorService(svc.TwoFactorDeps{
			Store: st,
			OTP:   otpSvc,
		}),
	}

	metricsHandler, err := httpx.RegisterMetrics(nil)
	if err != nil {
		logg.Fatal("metrics registration failed", logger.Err(err))
	}

	handler := httpx.NewRouter(httpx.RouterDeps{
		Auth:    authctl.NewControllers(services, resetSvc, st.Accounts()),
		Health:  healthctl.NewController(st),
		Issuer:  issuer,
		Limiter: buildLimiter(cfg),
		Metrics: metricsHandler,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logg.Info("server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		otpSvc.RunCleanup(logger.ToContext(gctx, logg), cfg.OTP.CleanupInterval.Std())
		return nil
	})
	g.Go(func() error {
		resetSvc.RunCleanup(logger.ToContext(gctx, logg), cfg.OTP.CleanupInterval.Std())
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logg.Fatal("server exited", logger.Err(err))
	}
	logg.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, migrate bool) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "pg":
		st, err := pg.Open(ctx, cfg.Storage.DSN, pg.Options{DefaultScopes: cfg.Storage.DefaultScopes})
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := pg.Migrate(ctx, st.DB()); err != nil {
				st.Close()
				return nil, err
			}
		}
		return st, nil
	case "memory":
		return memory.New(memory.Options{DefaultScopes: cfg.Storage.DefaultScopes}), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// signingKey decodifica la seed ed25519 de la config. Sin seed configurada
// se genera una clave efímera: sirve para dev, pero invalida los tokens en
// cada reinicio.
func signingKey(seedB64 string) (ed25519.PrivateKey, error) {
	if seedB64 == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	}
	seed, err := base64.StdEncoding.DecodeString(seedB64)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func buildLimiter(cfg *config.Config) rate.Limiter {
	if !cfg.Rate.Enabled {
		return nil
	}
	if cfg.Rate.Backend == "redis" {
		client := rdb.NewClient(&rdb.Options{Addr: cfg.Rate.Redis.Addr, DB: cfg.Rate.Redis.DB})
		return rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix, cfg.Rate.Limit, cfg.Rate.Window.Std())
	}
	return rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.Rate.Window.Std())
}

