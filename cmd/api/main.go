package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/media"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/store/memory"
	mongostore "github.com/safar/storefront/internal/store/mongo"
	"github.com/safar/storefront/internal/store/postgres"
	"github.com/safar/storefront/migrations"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const startupTimeout = 30 * time.Second

// backend is an opened storage driver together with its health probe and
// release function.
type backend struct {
	store  store.Store
	health func(ctx context.Context) error
	close  func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Load config: %v", err)
	}

	logger := logging.New(cfg.Log)
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Open storage")
	}
	defer b.close()

	m := metrics.New()

	revoker, closeRevoker := openRevoker(ctx, cfg, logger)
	defer closeRevoker()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	authSvc := auth.NewService(b.store, tokens, revoker, m)

	if cfg.Auth.AdminEmail != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.WithError(err).Fatal("Seed admin")
		}
	}

	uploader, err := newUploader(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Configure image host")
	}

	srv := api.NewServer(api.Deps{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Auth:    authSvc,
		Catalog: catalog.NewService(b.store),
		Cart:    cart.NewService(b.store, b.store, m),
		Media:   media.NewService(uploader, cfg.Upload.MaxBytes),
		Health:  b.health,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":  cfg.Server.Port,
			"store": cfg.Database.StoreDriver,
			"env":   cfg.Env,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server error")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	logger.Info("Server stopped")
}

func openBackend(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*backend, error) {
	switch cfg.Database.StoreDriver {
	case "postgres":
		db, err := database.NewConnection(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(db, migrations.FS, database.Up); err != nil {
				db.Close()
				return nil, err
			}
			logger.Info("Database migrations applied")
		}
		logger.Info("Connected to database successfully")
		return &backend{
			store:  postgres.New(db),
			health: db.PingContext,
			close:  func() { db.Close() },
		}, nil

	case "mongo":
		client, err := database.NewMongoClient(ctx, &cfg.Mongo)
		if err != nil {
			return nil, err
		}
		st := mongostore.New(client.Database(cfg.Mongo.Database))
		if err := st.EnsureIndexes(ctx); err != nil {
			client.Disconnect(context.Background())
			return nil, err
		}
		logger.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB successfully")
		return &backend{
			store:  st,
			health: func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:  func() { client.Disconnect(context.Background()) },
		}, nil

	default:
		logger.Warn("Using in-memory store; data is lost on restart")
		return &backend{store: memory.New(), close: func() {}}, nil
	}
}

// openRevoker connects the Redis revocation store when configured. Without it
// logout only clears the cookie and tokens stay valid until they expire.
func openRevoker(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (auth.Revoker, func()) {
	if cfg.Redis.URL == "" {
		return auth.NopRevoker{}, func() {}
	}

	client, err := auth.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		logger.WithError(err).Fatal("Connect to Redis")
	}
	return auth.NewRedisRevoker(client), func() { client.Close() }
}

func newUploader(cfg *config.Config) (media.Uploader, error) {
	if cfg.Upload.ImageHost == "cloudinary" {
		return media.NewCloudinaryUploader(media.CloudinaryConfig{
			BaseURL:   cfg.Upload.CloudinaryBaseURL,
			CloudName: cfg.Upload.CloudinaryCloudName,
			APIKey:    cfg.Upload.CloudinaryAPIKey,
			APISecret: cfg.Upload.CloudinaryAPISecret,
		}, &http.Client{Timeout: 30 * time.Second}), nil
	}
	return media.NewDiskUploader(cfg.Upload.Dir, cfg.Upload.PublicBase)
}
