package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agromart/internal/auth"
	"agromart/internal/config"
	"agromart/internal/http/handlers"
	applog "agromart/internal/log"
	"agromart/internal/mongostore"
	"agromart/internal/notify"
	"agromart/internal/repos"
	"agromart/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := applog.New(cfg.Log)
	applog.SetLogger(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store open failed", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer closeStore()

	authSvc := services.NewAuthService(st.Users, st.Sessions,
		auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, logger)
	if err := authSvc.EnsureAdminUser(ctx); err != nil {
		logger.Fatal("env admin setup failed", zap.Error(err))
	}

	var sinks []notify.Sink
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, &notify.WebhookSink{URL: cfg.Notify.WebhookURL, Timeout: cfg.Notify.Timeout})
	}
	if len(cfg.Notify.KafkaBrokers) > 0 {
		k := notify.NewKafkaSink(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic)
		defer func() { _ = k.Close() }()
		sinks = append(sinks, k)
	}
	events := notify.NewDispatcher(notify.Options{
		QueueSize:   cfg.Notify.QueueSize,
		MaxRetries:  cfg.Notify.MaxRetries,
		BaseBackoff: cfg.Notify.BaseBackoff,
		Timeout:     cfg.Notify.Timeout,
	}, logger, sinks...)

	var access io.Writer
	if cfg.Env != "production" {
		access = os.Stdout
	}
	app := handlers.NewApp(
		handlers.NewDeps(st, authSvc, events, logger, cfg.Auth.SecureCookies),
		handlers.Options{CSRF: cfg.CSRF, SecureCookies: cfg.Auth.SecureCookies, AccessLog: access},
	)

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdown); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("port", cfg.Port), zap.String("store", cfg.Store), zap.Int("sinks", len(sinks)))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}

	drain, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := events.Close(drain); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("event drain", zap.Error(err))
	}
}

// openStores wires the configured backend behind the store contracts.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (handlers.Stores, func(), error) {
	if cfg.Store == "mongo" {
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return handlers.Stores{}, nil, err
		}
		s := mongostore.New(client, cfg.Mongo.Database)
		if err := s.EnsureIndexes(ctx); err != nil {
			return handlers.Stores{}, nil, err
		}
		if err := s.SeedIfEmpty(ctx); err != nil {
			return handlers.Stores{}, nil, err
		}
		users := s.Users()
		st := handlers.Stores{
			Products:     s.Products(),
			Carts:        s.Carts(),
			Orders:       s.Orders(),
			Users:        users,
			Sessions:     users,
			Applications: s.Applications(),
			News:         s.News(),
		}
		return st, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("mongo disconnect", zap.Error(err))
			}
		}, nil
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return handlers.Stores{}, nil, err
	}
	users := repos.NewUserRepo(db)
	st := handlers.Stores{
		Products:     repos.NewProductRepo(db),
		Carts:        repos.NewCartRepo(db),
		Orders:       repos.NewOrderRepo(db),
		Users:        users,
		Sessions:     users,
		Applications: repos.NewApplicationRepo(db),
		News:         repos.NewNewsRepo(db),
	}
	return st, func() { _ = db.Close() }, nil
}
