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

	"github.com/joho/godotenv"

	"cmaxbonds/configs"
	"cmaxbonds/internal/database"
	httpdelivery "cmaxbonds/internal/delivery/http"
	"cmaxbonds/internal/domain"
	"cmaxbonds/internal/infra"
	"cmaxbonds/internal/metrics"
	"cmaxbonds/internal/middleware"
	"cmaxbonds/internal/repository"
	"cmaxbonds/internal/service"
	"cmaxbonds/internal/usecase"
	"cmaxbonds/internal/utils"
	"cmaxbonds/pkg/logger"
)

func main() {
	// a missing .env is normal outside development
	envErr := godotenv.Load()

	cfg, err := configs.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	if envErr != nil {
		log.Debug(".env file not found, using environment variables")
	}

	ctx := context.Background()
	rec := metrics.New()

	users, checks, closeUsers, err := openUserStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open user store", logger.Error(err))
	}
	defer closeUsers()

	resets, resetChecks, closeResets, err := openResetStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open reset store", logger.Error(err))
	}
	defer closeResets()
	for name, check := range resetChecks {
		checks[name] = check
	}

	accounts := usecase.NewAccountService(users, resets, cfg.Reset.CodeTTL, log, rec)
	if err := accounts.EnsureDefaultUsers(ctx); err != nil {
		log.Fatal("failed to seed default users", logger.Error(err))
	}

	valuation, err := cfg.Market.Valuation()
	if err != nil {
		log.Fatal("invalid valuation date", logger.Error(err))
	}
	catalog := service.DefaultBondCatalog()
	bonds := usecase.NewBondService(
		catalog,
		service.NewPricingService(catalog, service.WithClock(utils.ClockIn(utils.LoadLocation(cfg.Market.Timezone)))),
		service.NewRecommendationService(valuation),
		rec,
	)

	scheduler := infra.NewScheduler(resets, cfg.Reset.PurgeSchedule, log)
	if err := scheduler.Start(); err != nil {
		log.Fatal("failed to start scheduler", logger.Error(err))
	}
	defer scheduler.Stop()

	e, err := httpdelivery.NewServer(httpdelivery.ServerDeps{
		Accounts:       accounts,
		Admin:          usecase.NewAdminService(users, log, rec),
		Bonds:          bonds,
		Auth:           middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, users),
		SecureCookie:   cfg.Auth.SecureCookie,
		ExposeCode:     cfg.Reset.ExposesCode(),
		StreamInterval: cfg.Market.StreamInterval,
		Logger:         log,
		Metrics:        rec,
	})
	if err != nil {
		log.Fatal("failed to build http server", logger.Error(err))
	}

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     e,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout: websocket streams outlive any fixed deadline
	}
	ops := &http.Server{
		Addr:         ":" + cfg.Server.OpsPort,
		Handler:      newOpsRouter(rec, checks),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	for _, s := range []*http.Server{srv, ops} {
		go func(s *http.Server) {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("server failed", logger.String("addr", s.Addr), logger.Error(err))
			}
		}(s)
	}

	log.Info("CMAX bond dashboard started",
		logger.String("addr", srv.Addr),
		logger.String("ops_addr", ops.Addr),
		logger.String("env", cfg.Server.Env),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("reset_store", cfg.Reset.Store),
		logger.String("valuation_date", cfg.Market.ValuationDate),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	for _, s := range []*http.Server{srv, ops} {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", logger.String("addr", s.Addr), logger.Error(err))
		}
	}

	log.Info("server exited gracefully")
}

// openUserStore opens the configured user store and returns its health checks
func openUserStore(ctx context.Context, cfg *configs.Config, log *logger.Logger) (domain.UserRepository, map[string]healthCheck, func(), error) {
	checks := map[string]healthCheck{}

	switch cfg.Storage.Driver {
	case "postgres":
		db, err := infra.NewDatabase(ctx, cfg.Database.URL, log)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.RunMigrations(ctx, db, log); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		checks["database"] = db.Ping
		return repository.NewUserPostgresRepository(db), checks, db.Close, nil
	default:
		log.Info("using json user store", logger.String("path", cfg.Storage.UsersFile))
		return repository.NewUserJSONRepository(cfg.Storage.UsersFile), checks, func() {}, nil
	}
}

// openResetStore opens the configured reset session store
func openResetStore(ctx context.Context, cfg *configs.Config, log *logger.Logger) (domain.ResetSessionStore, map[string]healthCheck, func(), error) {
	switch cfg.Reset.Store {
	case "redis":
		store, err := repository.NewResetRedisStore(cfg.Redis.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info("using redis reset store")
		closeFn := func() {
			if err := store.Close(); err != nil {
				log.Warn("failed to close redis", logger.Error(err))
			}
		}
		return store, map[string]healthCheck{"redis": store.Ping}, closeFn, nil
	default:
		return repository.NewResetMemoryStore(time.Now), nil, func() {}, nil
	}
}
