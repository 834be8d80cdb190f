package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gift-storefront-api/internal/auth"
	"gift-storefront-api/internal/bundle"
	"gift-storefront-api/internal/cache"
	"gift-storefront-api/internal/config"
	"gift-storefront-api/internal/database"
	"gift-storefront-api/internal/handlers"
	"gift-storefront-api/internal/logging"
	"gift-storefront-api/internal/marketplace"
	"gift-storefront-api/internal/media"
	"gift-storefront-api/internal/proxy"
	"gift-storefront-api/internal/realtime"
	"gift-storefront-api/internal/routes"
	"gift-storefront-api/internal/storage"
	"gift-storefront-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logging is not configured yet
		logging.Setup(logging.Config{}).Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Setup(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	if logging.ParseLevel(cfg.LogLevel) > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db, err := database.Open(cfg.DBPath, logging.NewLogger("database"))
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	kv, closeKV, err := openKV(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeKV()

	cacheLog := logging.NewLogger("cache")
	storeCache := cache.NewLRUCache[string, any](cache.Options{
		Name:            "store",
		MaxSize:         cfg.Cache.MaxSize,
		DefaultTTL:      cfg.Cache.DefaultTTL,
		ConcurrencySafe: true,
	})
	bundleCache := cache.NewLRUCache[string, bundle.State](cache.Options{
		Name:            "bundles",
		MaxSize:         cfg.Cache.MaxSize,
		DefaultTTL:      cfg.Cache.DefaultTTL,
		ConcurrencySafe: true,
	})
	janitors := []<-chan struct{}{
		cache.StartJanitor(ctx, storeCache, cfg.Cache.CleanupInterval, cacheLog.With().Str("cache", "store").Logger()),
		cache.StartJanitor(ctx, bundleCache, cfg.Cache.CleanupInterval, cacheLog.With().Str("cache", "bundles").Logger()),
	}

	st := store.New(db, store.Options{
		Cache:    storeCache,
		Coalesce: cfg.Cache.Coalesce,
		TTLs:     store.DefaultTTLs(cfg.Cache.DefaultTTL),
		Logger:   logging.NewLogger("store"),
	})
	bundles := bundle.NewService(kv, bundle.ServiceOptions{
		Limits: bundle.Limits{Min: cfg.Bundle.MinItems, Max: cfg.Bundle.MaxItems},
		Hot:    bundleCache,
		HotTTL: cfg.Cache.DefaultTTL,
		Logger: logging.NewLogger("bundle"),
	})

	uploader, err := openUploader(ctx, cfg, logger)
	if err != nil {
		return err
	}

	authn := auth.New(auth.Config{
		Secret:       cfg.JWT.Secret,
		Issuer:       cfg.JWT.Issuer,
		Audience:     cfg.JWT.Audience,
		TTL:          cfg.JWT.TTL,
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
	})
	if cfg.Admin.PasswordHash == "" {
		logger.Warn().Msg("ADMIN_PASSWORD_HASH is not set, admin login is disabled")
	}

	px := proxy.New(proxy.Options{
		AllowedHosts: cfg.Proxy.AllowedHosts,
		Timeout:      cfg.Proxy.Timeout,
		Logger:       logging.NewLogger("proxy"),
	})

	var market *marketplace.Service
	if cfg.Marketplace.Enabled {
		marketLog := logging.NewLogger("marketplace")
		market = marketplace.NewService(
			marketplace.NewParser(px, marketplace.ParserOptions{CardAPI: cfg.Marketplace.CardAPI, Logger: marketLog}),
			st,
			marketplace.ServiceOptions{
				DefaultMargin: cfg.Marketplace.DefaultMargin,
				StaleAfter:    cfg.Marketplace.StaleAfter,
				Logger:        marketLog,
			},
		)
		if cfg.Marketplace.SyncInterval > 0 {
			janitors = append(janitors, marketplace.StartPriceSync(ctx, market, cfg.Marketplace.SyncInterval, marketLog))
		}
	}

	h := handlers.New(handlers.Deps{
		Store:                st,
		Bundles:              bundles,
		Hub:                  realtime.NewHub(),
		Auth:                 authn,
		Uploader:             uploader,
		Marketplace:          market,
		Caches:               []handlers.StatsReporter{storeCache, bundleCache},
		AssemblyServicePrice: cfg.Bundle.AssemblyServicePrice,
		Logger:               logging.NewLogger("http"),
	})
	router := routes.SetupRoutes(routes.Options{
		Handler: h,
		Auth:    authn,
		Proxy:   px,
		Logger:  logging.NewLogger("access"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Backend).Bool("uploads", uploader != nil).Bool("marketplace", market != nil).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, stopShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopShutdown()
	err = srv.Shutdown(shutdownCtx)

	// stop background workers
	cancel()
	for _, done := range janitors {
		<-done
	}
	return err
}

// openKV returns the store bundles are persisted to and a func releasing it.
func openKV(ctx context.Context, cfg config.Config, db *gorm.DB) (storage.KV, func(), error) {
	switch cfg.Storage.Backend {
	case storage.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return storage.NewRedisKV(client, "giftshop:", 0), func() { client.Close() }, nil
	default:
		return storage.NewGormKV(db), func() {}, nil
	}
}

// openUploader returns nil when no object store is configured.
func openUploader(ctx context.Context, cfg config.Config, logger zerolog.Logger) (media.Uploader, error) {
	if !cfg.UploadsEnabled() {
		logger.Info().Msg("MINIO_ENDPOINT is not set, uploads are disabled")
		return nil, nil
	}
	up, err := media.NewMinioUploader(media.Config{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		UseSSL:    cfg.Minio.UseSSL,
		PublicURL: cfg.Minio.PublicURL,
	})
	if err != nil {
		return nil, err
	}
	bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := up.EnsureBucket(bucketCtx); err != nil {
		return nil, err
	}
	return up, nil
}
