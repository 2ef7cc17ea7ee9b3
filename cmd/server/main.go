package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/deen_api/internal/auth"
	"github.com/Skotchmaster/deen_api/internal/config"
	"github.com/Skotchmaster/deen_api/internal/es"
	"github.com/Skotchmaster/deen_api/internal/httpserver"
	authmw "github.com/Skotchmaster/deen_api/internal/middleware/auth"
	"github.com/Skotchmaster/deen_api/internal/migrations"
	"github.com/Skotchmaster/deen_api/internal/mykafka"
	"github.com/Skotchmaster/deen_api/internal/repo"
	"github.com/Skotchmaster/deen_api/internal/service"
	"github.com/Skotchmaster/deen_api/pkg/authclient"
	"github.com/Skotchmaster/deen_api/pkg/db"
	"github.com/Skotchmaster/deen_api/pkg/logging"
	loggingmw "github.com/Skotchmaster/deen_api/pkg/middleware/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).With("service", "deen_api")
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func authStack(cfg *config.Config, r *repo.GormRepo) (auth.Issuer, auth.Verifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeFederated:
		verifier, err := auth.NewFederatedVerifier(auth.FederatedConfig{
			JWKSURL:  cfg.IDPJWKSURL,
			Issuer:   cfg.IDPIssuer,
			Audience: cfg.IDPProjectID,
			Timeout:  cfg.IDPTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		client := authclient.NewClient(cfg.IDPBaseURL, cfg.IDPAPIKey, cfg.IDPTimeout)
		return auth.NewFederatedIssuer(client, r), verifier, nil
	default:
		return auth.NewLocalIssuer(r, cfg.JWTSecret, cfg.TokenTTL, cfg.TokenIssuer),
			auth.NewLocalVerifier(cfg.JWTSecret, cfg.TokenIssuer), nil
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeDB(logger, gdb)

	if err := db.Migrate(ctx, gdb, migrations.FS); err != nil {
		return err
	}
	store := repo.New(gdb)

	issuer, verifier, err := authStack(cfg, store)
	if err != nil {
		return fmt.Errorf("auth setup: %w", err)
	}
	logger.Info("auth_configured", "mode", cfg.AuthMode)

	var events mykafka.Publisher = mykafka.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		events = mykafka.NewProducer(cfg.KafkaBrokers)
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaUserTopic)
	}
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}()

	videos := &service.VideoService{Repo: store, Prefs: store}
	if cfg.ESURL != "" {
		esCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := es.NewClient(esCtx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		cancel()
		if err != nil {
			return err
		}
		videos.Search = &es.VideoIndex{Client: client, Index: cfg.ESVideoIndex}
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler(cfg.IsProduction())
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: &service.AuthService{
			Issuer: issuer,
			Users:  store,
			Events: events,
			Topic:  cfg.KafkaUserTopic,
		}},
		VideoHandler:      &httpserver.VideoHTTP{Svc: videos},
		PreferenceHandler: &httpserver.PreferenceHTTP{Svc: &service.PreferenceService{Repo: store}},
		Gate:              authmw.NewGate(verifier, auth.NewAuthorizer(store)),
		AuthRateLimit:     cfg.AuthRateLimit,
		Ready:             func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutdown_started", "signal", sig.String())
	}

	go func() {
		<-quit
		logger.Warn("force_exit")
		os.Exit(1)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	logger.Info("shutdown_complete")
	return nil
}

func closeDB(logger *slog.Logger, gdb *gorm.DB) {
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_failed", "error", err)
	}
}
