package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/events"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	bus := events.NewBus()

	// Session storage and cart mirror
	var (
		storage session.Storage
		mirror  cart.Mirror
	)
	switch cfg.SessionBackend {
	case "memory":
		storage = session.NewMemoryStorage()
		mirror = cart.NewMemoryMirror()
	case "mongo":
		db, err := session.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatal("failed to connect to mongo", zap.Error(err))
		}
		defer db.Client().Disconnect(context.Background())
		mongoStorage := session.NewMongoStorage(db)
		if err := mongoStorage.EnsureTTLIndex(ctx, cfg.SessionTTL); err != nil {
			log.Fatal("failed to create session ttl index", zap.Error(err))
		}
		storage = mongoStorage
		mirror = cart.NewMemoryMirror()
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		storage = session.NewRedisStorage(rdb, cfg.SessionTTL)
		mirror = cart.NewRedisMirror(rdb)
	}
	log.Info("session storage ready", zap.String("backend", cfg.SessionBackend))

	sessions := session.NewStore(storage, bus)
	identity := session.ContextIdentity{}

	// Storefront REST API
	client, err := backend.New(backend.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.BackendTimeout,
	})
	if err != nil {
		log.Fatal("failed to create backend client", zap.Error(err))
	}

	// Cross-instance cart events
	if len(cfg.KafkaBrokers) > 0 {
		relay := events.NewKafkaRelay(bus, cfg.KafkaBrokers...)
		defer relay.Close()
		go relay.Run(ctx)
		log.Info("cart event relay started",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("instance_id", relay.InstanceID()))
	}

	carts := cart.NewStore(client, mirror, bus, identity)
	defer carts.Close()

	badge := cart.NewBadge(client, bus, cfg.BadgePollInterval)
	defer badge.Close()
	go badge.Run(ctx)

	orchestrator := checkout.NewOrchestrator(client, carts, identity, checkout.Options{
		SuccessURL: cfg.SuccessURL(),
		CancelURL:  cfg.CancelURL(),
	})

	// Payment ledger
	ledger, err := payment.NewSQLLedger(&payment.Credentials{
		Driver:   cfg.DB.Driver,
		Path:     cfg.DB.Path,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.Name,
	})
	if err != nil {
		log.Fatal("failed to open payment ledger", zap.Error(err))
	}
	defer ledger.Close()
	if err := ledger.RunMigrations(cfg.DB.MigrationsPath); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	router := h.NewRouter(log, sessions, h.Handlers{
		Session:  h.NewSessionHandler(sessions, cfg.SessionTTL),
		Cart:     h.NewCartHandler(carts, badge, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(orchestrator, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(client, cfg.RequestTimeout),
		Payment:  h.NewPaymentHandler(payment.NewReturnHandler(client, ledger), orchestrator, cfg.PublicBaseURL),
	}, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	log.Info("server exited")
}
