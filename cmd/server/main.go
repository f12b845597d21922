package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/maiams/NomaCardHouse/internal/cart"
	"github.com/maiams/NomaCardHouse/internal/catalog"
	"github.com/maiams/NomaCardHouse/internal/checkout"
	"github.com/maiams/NomaCardHouse/internal/config"
	"github.com/maiams/NomaCardHouse/internal/httpapi"
	"github.com/maiams/NomaCardHouse/internal/inventory"
	"github.com/maiams/NomaCardHouse/internal/order"
	"github.com/maiams/NomaCardHouse/internal/outbox"
	"github.com/maiams/NomaCardHouse/internal/payment"
	"github.com/maiams/NomaCardHouse/internal/storage"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenPostgres(cfg.PostgresDSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	if err := storage.RunMigrations(db, cfg.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	mongoDB, err := storage.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer mongoDB.Client().Disconnect(context.Background())

	redisClient, err := storage.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	cartRepo := cart.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to create cart indexes")
	}
	cartCache := cart.NewRedisCache(redisClient)

	catalogRepo := catalog.NewRepository(db)
	inventoryRepo := inventory.NewRepository(db)
	orderRepo := order.NewRepository(db)

	cartService := cart.NewService(
		cartRepo, cartCache, inventoryRepo, catalogRepo,
		cfg.CartExpiry, cfg.ReservationTimeout, logger)

	provider := payment.NewStubProvider(cfg.MerchantName)
	checkoutService := checkout.NewService(cartService, orderRepo, catalogRepo, provider, logger)
	statusUpdater := order.NewStatusUpdater(orderRepo, logger)

	// Background loops: outbox publisher and cart reservation janitor.
	writer := outbox.NewWriter(strings.Split(cfg.KafkaBrokers, ",")...)
	defer writer.Close()
	poller := outbox.NewPoller(orderRepo, writer, logger)
	go poller.Run(ctx)

	janitor := cart.NewJanitor(cartRepo, cartCache, inventoryRepo, logger)
	go janitor.Run(ctx)

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Catalog:        catalogRepo,
		Carts:          cartService,
		Checkout:       checkoutService,
		Orders:         orderRepo,
		Webhooks:       statusUpdater,
		AdminCat:       catalogRepo,
		AdminInv:       inventoryRepo,
		AdminOrd:       orderRepo,
		WebhookSecret:  cfg.WebhookSecret,
		AdminToken:     cfg.AdminToken,
		SessionTTL:     cfg.CartExpiry,
		RequestTimeout: cfg.RequestTimeout,
		Log:            logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.ServerPort).Msg("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
