package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashboard/internal/api"
	"dashboard/internal/api/middleware"
	"dashboard/internal/binance"
	"dashboard/internal/config"
	"dashboard/internal/repository"
	"dashboard/internal/service"
	"dashboard/internal/websocket"
	"dashboard/pkg/ratelimit"
	"dashboard/pkg/retry"
	"dashboard/pkg/utils"

	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Connected to database",
		zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Инициализация репозитория профилей
	profileRepo := repository.NewProfileRepository(db)
	if err := profileRepo.EnsureSchema(); err != nil {
		logger.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	// HTTP клиент и rate limiter для Binance REST API
	httpClient := binance.NewHTTPClient(binance.HTTPClientConfig{
		TotalTimeout: cfg.Binance.HTTPTimeout,
	})
	defer httpClient.Close()

	limiter := ratelimit.NewRateLimiter(cfg.Binance.RateLimit, cfg.Binance.RateBurst)
	binanceClient := binance.NewClient(httpClient, limiter, cfg.Binance.RecvWindowMs)

	// Инициализация сервисов
	selectorService := service.NewSelectorService(profileRepo)
	accountService := service.NewAccountService(
		profileRepo,
		selectorService,
		binanceClient,
		cfg.Binance,
		cfg.Security.EncryptionKey,
	)
	sessionService := service.NewSessionService(
		profileRepo,
		binanceClient,
		cfg.Binance,
		cfg.Security.EncryptionKey,
	)
	tickerService := service.NewTickerService(
		binanceClient,
		cfg.Binance.TestnetRestBase,
		cfg.Binance.TickerTTL,
	)

	// Аутентификация по статическим токенам
	authenticator := middleware.NewAuthenticator(cfg.Security.AuthTokens)

	// WebSocket мост к Binance user data stream
	relay := websocket.NewRelay(
		authenticator,
		profileRepo,
		cfg.Binance.TestnetStreamBase,
		logger.Logger,
	)

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		Logger:          logger.Logger,
		Authenticator:   authenticator,
		AccountService:  accountService,
		SelectorService: selectorService,
		SessionService:  sessionService,
		TickerService:   tickerService,
		Relay:           relay,
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Server failed", zap.Error(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Server failed", zap.Error(err))
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения: БД может подниматься дольше приложения,
	// поэтому ping повторяется с backoff
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = retry.Do(ctx, func() error {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		return db.PingContext(pingCtx)
	}, retry.NetworkConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
