package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"quizstake/application"
	"quizstake/config"
	"quizstake/database"
	"quizstake/domain/interfaces"
	"quizstake/domain/services"
	"quizstake/httpapi"
	"quizstake/infrastructure"
	"quizstake/infrastructure/observability"
	"quizstake/repository"
	"quizstake/repository/memory"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type repositoryFactory interface {
	CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) interfaces.UnitOfWork
}

type balanceCache interface {
	application.BalanceCache
	Close() error
}

// Run initializes and starts the service, blocking until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	cfg.ConfigureLogging()

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"storage":     cfg.StorageDriver,
	}).Info("Starting quizstake...")

	feePolicy, err := services.NewFeePolicy(cfg.FeeRate.String(), cfg.PlatformAccountID)
	if err != nil {
		return fmt.Errorf("invalid fee policy: %w", err)
	}

	log.Info("Initializing storage...")
	repoFactory, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	log.Info("Initializing event publisher...")
	publisher, closeNATS, err := openPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNATS()

	log.Info("Initializing balance cache...")
	cache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	metrics := observability.NewMetrics()
	uowFactory := infrastructure.NewUnitOfWorkFactory(repoFactory, publisher)

	log.Info("Initializing wagering service...")
	wagering := application.NewWagering(uowFactory, feePolicy, cache, metrics, cfg.MaxTxAttempts)
	wagering.RegisterLocalHandlers(uowFactory)

	stopWorker, err := application.NewReconcileWorker(wagering, cfg.ReconcileInterval).Start(ctx)
	if err != nil {
		return err
	}
	defer stopWorker()

	handler := httpapi.NewHandler(wagering, cfg.JWTSecret, cfg.OperatorIDs)
	router := httpapi.NewRouter(handler, httpapi.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:      cfg.RateLimit,
		Metrics:        metrics.Handler(),
		Timeout:        30 * time.Second,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal, shutting down gracefully...")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	log.Info("Shutdown complete")
	return nil
}

// Deposit credits a user's account from the command line. Events are not
// published; cached balances catch up on expiry or reconciliation.
func Deposit(ctx context.Context, userID string, amount int64) error {
	cfg := config.Get()
	cfg.ConfigureLogging()

	feePolicy, err := services.NewFeePolicy(cfg.FeeRate.String(), cfg.PlatformAccountID)
	if err != nil {
		return fmt.Errorf("invalid fee policy: %w", err)
	}

	if cfg.StorageDriver != config.StorageDriverPostgres {
		return fmt.Errorf("deposit requires the postgres storage driver")
	}
	repoFactory, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	uowFactory := infrastructure.NewUnitOfWorkFactory(repoFactory, infrastructure.NewNoopEventPublisher())
	wagering := application.NewWagering(uowFactory, feePolicy, infrastructure.NewNoopBalanceCache(), observability.NewMetrics(), cfg.MaxTxAttempts)

	entry, err := wagering.Deposit(ctx, userID, amount)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"userId":  userID,
		"amount":  amount,
		"entryId": entry.ID,
	}).Info("Deposit recorded")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config) (repositoryFactory, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn("Using in-memory storage; all data is lost on exit")
		return memory.NewUnitOfWorkFactory(memory.NewStore()), func() {}, nil
	}

	databaseURL := cfg.GetDatabaseURL()
	if err := database.RunMigrationsWithURL(databaseURL); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.NewConnectionWithOptions(ctx, databaseURL, database.Options{
		StatementTimeout: 10 * time.Second,
		LockTimeout:      5 * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	return repository.NewUnitOfWorkFactory(db), db.Close, nil
}

func openPublisher(ctx context.Context, cfg *config.Config) (*infrastructure.NATSEventPublisher, func(), error) {
	if cfg.NATSServers == "" {
		log.Info("NATS_SERVERS not set, events stay in-process")
		return infrastructure.NewLocalEventPublisher(), func() {}, nil
	}

	client := infrastructure.NewNATSClient(cfg.NATSServers)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, nil, err
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureStream(infrastructure.DomainEventStream, mapper.GetAllSubjects()); err != nil {
		client.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Error("Failed to close NATS client")
		}
	}
	return infrastructure.NewNATSEventPublisher(client, mapper), closeFn, nil
}

func openCache(ctx context.Context, cfg *config.Config) (balanceCache, error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, balances are read from the ledger")
		return infrastructure.NewNoopBalanceCache(), nil
	}
	cache, err := infrastructure.NewRedisBalanceCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.BalanceCacheTTL)
	if err != nil {
		return nil, err
	}
	return cache, nil
}
