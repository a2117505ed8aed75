package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payme-wallet/config"
	httpHandler "payme-wallet/internal/adapter/http/handler"
	"payme-wallet/internal/adapter/notify"
	"payme-wallet/internal/adapter/ratesource"
	pgStorage "payme-wallet/internal/adapter/storage/postgres"
	redisStorage "payme-wallet/internal/adapter/storage/redis"
	"payme-wallet/internal/core/ports"
	"payme-wallet/internal/service"
	"payme-wallet/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting PayMe Wallet")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	instrumentRepo := pgStorage.NewInstrumentRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	challengeRepo := pgStorage.NewChallengeRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	rateCache := redisStorage.NewRateCache(rdb, cfg.Rates.CacheTTL)
	throttleStore := redisStorage.NewThrottleStore(rdb)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	fees, err := service.NewFeeCalculator(cfg.Fees)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize fee calculator")
	}

	// Initialize business services
	authSvc := service.NewAuthService(accountRepo, balanceRepo, hashSvc, tokenSvc, log)
	ledger := service.NewLedger(balanceRepo, log)
	instruments := service.NewInstrumentService(instrumentRepo, encSvc, log)
	smsSender := notify.NewLogSMSSender(log)
	challenges := service.NewChallengeService(challengeRepo, smsSender, cfg.OTP, log)
	rateFetcher := ratesource.NewClient(cfg.Rates.SourceURL, cfg.Rates.Timeout, log)
	rateSvc, err := service.NewRateService(rateFetcher, rateCache, cfg.Rates, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate service")
	}
	engine := service.NewTransactionEngine(
		transactor,
		ledger,
		fees,
		rateSvc,
		challenges,
		instruments,
		accountRepo,
		txRepo,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		Engine:         engine,
		Ledger:         ledger,
		Instruments:    instruments,
		Rates:          rateSvc,
		TokenSvc:       tokenSvc,
		ThrottleStore:  throttleStore,
		OTPLimit:       cfg.OTP.RequestLimit,
		OTPWindow:      cfg.OTP.RequestWindow,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
