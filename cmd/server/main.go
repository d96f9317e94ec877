package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"signup/internal/bonus"
	"signup/internal/events"
	"signup/internal/identity/handler"
	"signup/internal/identity/listeners"
	"signup/internal/identity/service"
	"signup/internal/identity/store"
	userstore "signup/internal/identity/store/user"
	"signup/internal/identity/token"
	"signup/internal/notification"
	"signup/internal/platform/config"
	"signup/internal/platform/httpserver"
	"signup/internal/platform/logger"
	"signup/internal/platform/metrics"
	"signup/internal/platform/postgres"
	platformredis "signup/internal/platform/redis"
	httptransport "signup/internal/transport/http"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal services.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.Env)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Identity store: PostgreSQL when configured, in-memory otherwise.
	var (
		userStore service.UserStore
		txRunner  service.StoreTx = service.NoopTx{}
		health    func() error
	)
	if cfg.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		userStore = userstore.NewPostgres(db)
		txRunner = store.NewSQLTx(db)
		health = db.Ping
		log.Info("using postgres identity store")
	} else {
		userStore = userstore.NewInMemory()
		log.Info("using in-memory identity store")
	}

	// Bonus balances: Redis when configured, in-memory otherwise.
	var bonusStore bonus.Store = bonus.NewMemory()
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		bonusStore = bonus.NewRedis(redisClient.Client)
		log.Info("using redis bonus store")
	}

	// Mail: SMTP when configured, log-only otherwise.
	var gateway notification.Gateway
	if cfg.SMTPHost != "" {
		gateway, err = notification.NewSMTPGateway(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			TLS:      cfg.SMTPTLS,
		})
		if err != nil {
			return err
		}
	} else {
		gateway = notification.NewLogGateway(log)
	}
	mailer := notification.NewVerificationMailer(gateway, notification.NewLinks(cfg.BaseURL))

	dispatcher := events.NewDispatcher(events.WithLogger(log))
	listeners.Attach(dispatcher,
		listeners.NewWelcomeListener(gateway, log),
		listeners.NewBonusListener(bonusStore, log),
	)

	svc, err := service.New(userStore, token.NewCryptoGenerator(),
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithPublisher(dispatcher),
		service.WithVerificationSender(mailer),
		service.WithTx(txRunner),
		service.WithTokenTTL(cfg.TokenTTL),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  m,
		Identity: handler.New(svc, bonusStore, log),
		Health:   health,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting signup server", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
