package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/auth"
	"github.com/ukydev/luxury-rentals/internal/config"
	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/handlers"
	"github.com/ukydev/luxury-rentals/internal/kvstore"
	"github.com/ukydev/luxury-rentals/internal/logging"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/rental"
	"github.com/ukydev/luxury-rentals/internal/server"
	"github.com/ukydev/luxury-rentals/internal/session"
	"github.com/ukydev/luxury-rentals/internal/storage"
)

// newBroker connects to MQTT when a broker is configured and falls back to
// the in-process bus otherwise.
func newBroker(cfg config.EventsConfig) (events.Broker, error) {
	if cfg.MQTTBroker == "" {
		log.Info("No MQTT broker configured, using in-process events")
		return events.NewMemory(), nil
	}
	b, err := events.ConnectMQTT(events.MQTTConfig{
		BrokerURL:   cfg.MQTTBroker,
		ClientID:    cfg.ClientID,
		TopicPrefix: cfg.TopicPrefix,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("broker", cfg.MQTTBroker).Info("Connected to MQTT broker")
	return b, nil
}

// newSettingsStore opens the configured backend. The closer is nil unless the
// backend holds a connection.
func newSettingsStore(ctx context.Context, cfg config.SettingsConfig) (kvstore.Store, io.Closer, error) {
	switch cfg.Backend {
	case "", "memory":
		return kvstore.NewMemory(), nil, nil
	case "file":
		s, err := kvstore.OpenFile(cfg.FilePath)
		return s, nil, err
	case "redis":
		s, err := kvstore.ConnectRedis(ctx, kvstore.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "rentals:settings:",
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown settings backend %q", cfg.Backend)
	}
}

func newOAuthProvider(cfg config.OAuthConfig) auth.OAuthProvider {
	if !cfg.Enabled() {
		return nil
	}
	return auth.NewGoogleProvider(cfg)
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	if cfg.UsesDefaultSecret() {
		log.Warn("Using the default JWT secret; set JWT_SECRET in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	log.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")

	database := client.Database(cfg.Mongo.Database)
	store := db.NewStore(database)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	avatars, err := storage.NewGridFS(database, rental.AvatarBucket, cfg.Server.PublicURL)
	if err != nil {
		log.Fatalf("Failed to open avatar storage: %v", err)
	}
	if err := avatars.EnsureBucket(ctx); err != nil {
		log.Fatalf("Failed to prepare avatar storage: %v", err)
	}

	broker, err := newBroker(cfg.Events)
	if err != nil {
		log.Fatalf("Failed to connect to event broker: %v", err)
	}
	defer broker.Close()

	kv, kvCloser, err := newSettingsStore(ctx, cfg.Settings)
	if err != nil {
		log.Fatalf("Failed to open settings store: %v", err)
	}
	if kvCloser != nil {
		defer kvCloser.Close()
	}

	authService, err := auth.NewService(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to create auth service: %v", err)
	}
	manager := auth.NewManager(authService, store.Users, store.Sessions, broker, auth.ManagerOptions{
		RefreshTTL:      cfg.Auth.RefreshTokenTTL,
		ResetTTL:        cfg.Auth.ResetTokenTTL,
		OAuth:           newOAuthProvider(cfg.Auth.OAuth),
		RedirectOrigins: cfg.ResetRedirectOrigins(),
	})

	settings := session.NewSettings(kv, models.TimeoutSettings{
		Enabled: cfg.Session.DefaultTimeoutEnabled,
		Minutes: cfg.Session.DefaultTimeoutMinutes,
	})
	idle := session.NewIdleManager(settings, manager, session.IdleOptions{Debounce: cfg.Session.ActivityDebounce})
	if err := idle.Listen(broker); err != nil {
		log.Fatalf("Failed to subscribe to auth events: %v", err)
	}
	defer idle.Close()

	services := rental.New(rental.Deps{
		Cars:       store.Cars,
		Bookings:   store.Bookings,
		Reviews:    store.Reviews,
		Profiles:   store.Profiles,
		Promotions: store.Promotions,
		FAQs:       store.FAQs,
		Users:      store.Users,
		Avatars:    avatars,
		Events:     broker,
	})

	srv := server.New(server.Deps{
		Config:        cfg.Server,
		Auth:          manager,
		Services:      services,
		Settings:      settings,
		Idle:          idle,
		Avatars:       avatars,
		SecureCookies: cfg.Auth.SecureCookies,
		Checks: map[string]handlers.Pinger{
			"mongo": func(ctx context.Context) error { return client.Ping(ctx, nil) },
		},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Graceful shutdown failed")
		}
	}
}
