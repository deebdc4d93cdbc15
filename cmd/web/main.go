package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bagsoflaundry.com/web/internal/identity"
	"bagsoflaundry.com/web/internal/intake"
	"bagsoflaundry.com/web/internal/platform/config"
	"bagsoflaundry.com/web/internal/platform/observability"
	"bagsoflaundry.com/web/internal/platform/secrets"
	"bagsoflaundry.com/web/internal/session"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}
	resolver := secrets.NewResolver(
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithDefaultProject(envValues["LAUNDRY_WEB_SECRETS_PROJECT_ID"]),
	)
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("secret resolver close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(resolver))
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			logger.Fatal("invalid configuration", zap.Strings("fields", verr.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	store, closeStore, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise session store", zap.Error(err))
	}
	cleanups = append(cleanups, closeStore)

	submitter, closeSubmitter, err := buildSubmitter(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise order intake", zap.Error(err))
	}
	cleanups = append(cleanups, closeSubmitter)

	application, err := newApp(appOptions{
		Logger:         logger,
		Store:          store,
		Submitter:      submitter,
		Identity:       buildIdentity(logger),
		CSRF:           cfg.Security.CSRF,
		AuthPerMinute:  cfg.Security.AuthRatePerMinute,
		TraceProjectID: traceProjectID(cfg),
	})
	if err != nil {
		logger.Fatal("failed to initialise application", zap.Error(err))
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(application),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(
		zap.String("addr", server.Addr),
		zap.String("env", cfg.Env),
		zap.String("session_backend", cfg.Session.Backend),
		zap.String("intake_mode", cfg.Intake.Mode),
	)
	go func() {
		serverLogger.Info("bags of laundry web listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func sessionConfig(cfg config.Config, logger *zap.Logger) session.Config {
	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		logger.Warn("session: using ephemeral secret; sessions will not survive a restart")
		secret = session.EphemeralSecret()
	}
	return session.Config{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Production(),
		TTL:        cfg.Session.TTL,
		Secret:     secret,
	}
}

func buildSessionStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (session.Store, func(), error) {
	scfg := sessionConfig(cfg, logger)
	noop := func() {}

	switch cfg.Session.Backend {
	case config.BackendMemory:
		store, err := session.NewServerStore(scfg, session.NewMemoryBackend(nil))
		return store, noop, err
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed; continuing", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		store, err := session.NewServerStore(scfg, session.NewRedisBackend(client, ""))
		return store, func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}, err
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return nil, noop, fmt.Errorf("firestore client: %w", err)
		}
		store, err := session.NewServerStore(scfg, session.NewFirestoreBackend(client, cfg.Firestore.Collection))
		return store, func() {
			if err := client.Close(); err != nil {
				logger.Warn("firestore close error", zap.Error(err))
			}
		}, err
	default:
		store, err := session.NewCookieStore(scfg)
		return store, noop, err
	}
}

func buildSubmitter(ctx context.Context, cfg config.Config, logger *zap.Logger) (intake.Submitter, func(), error) {
	noop := func() {}
	switch cfg.Intake.Mode {
	case config.IntakePubSub:
		client, err := pubsub.NewClient(ctx, cfg.Intake.ProjectID)
		if err != nil {
			return nil, noop, fmt.Errorf("pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Intake.Topic)
		submitter, err := intake.NewPubSubSubmitter(topic)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return submitter, func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}, nil
	case config.IntakeHTTP:
		return intake.NewHTTPSubmitter(cfg.Intake.APIURL, &http.Client{Timeout: cfg.Intake.HTTPTimeout}), noop, nil
	default:
		return intake.NewLogSubmitter(logger.Named("intake")), noop, nil
	}
}

// buildIdentity wires the development provider. Confirmation links are logged instead
// of emailed.
func buildIdentity(logger *zap.Logger) identity.Provider {
	identityLogger := logger.Named("identity")
	return identity.NewMemoryProvider(identity.WithConfirmation(func(email, code string) {
		identityLogger.Info("confirmation link issued",
			zap.String("email", observability.MaskEmail(email)),
			zap.String("link", "/auth/callback?code="+url.QueryEscape(code)),
		)
	}))
}

func traceProjectID(cfg config.Config) string {
	for _, id := range []string{cfg.Secrets.ProjectID, cfg.Firestore.ProjectID, cfg.Intake.ProjectID} {
		if id != "" {
			return id
		}
	}
	return ""
}
