package service

import (
	"context"

	"dashboard/internal/binance"
	"dashboard/internal/models"
)

// ProfileRepositoryInterface определяет интерфейс хранилища профилей.
// Хранилище - единственный источник истины: каждый вызов сервиса
// читает актуальное состояние, учетные данные не кэшируются дольше
// одного запроса.
type ProfileRepositoryInterface interface {
	GetByEmail(email string) (*models.UserProfile, error)
	UpsertBase(email, passwordHash string) error
	SetCredentials(email, env, apiKey, apiSecret string) error
	SetListenKey(email, env, listenKey string) error
	TouchListenKey(email, env string) error
	SetActiveExchange(email, exchangeID string) error
}

// BinanceAPI определяет интерфейс REST клиента Binance
type BinanceAPI interface {
	GetAccount(ctx context.Context, base, apiKey, apiSecret string) ([]byte, error)
	GetPrice(ctx context.Context, base, symbol string) (*binance.TickerPrice, error)
	StartUserStream(ctx context.Context, base, apiKey string) (string, error)
	KeepaliveUserStream(ctx context.Context, base, apiKey, listenKey string) error
}

// SelectorServiceInterface определяет интерфейс выбора активного подключения
type SelectorServiceInterface interface {
	ListConfigured(email string) ([]models.ConfiguredExchange, error)
	ResolveActive(email string) (models.ExchangeID, error)
	SetActive(email, candidate string) (models.ExchangeID, error)
}

// AccountServiceInterface определяет интерфейс сервиса аккаунта
type AccountServiceInterface interface {
	SetCredentials(ctx context.Context, email, env, apiKey, apiSecret string) error
	GetBalances(ctx context.Context, email string) ([]models.Balance, error)
	UpsertProfile(email, password string) error
}

// SessionServiceInterface определяет интерфейс управления стриминговой сессией
type SessionServiceInterface interface {
	Start(ctx context.Context, email, env string) (string, error)
	Keepalive(ctx context.Context, email, env string) error
}

// TickerServiceInterface определяет интерфейс кэша цен
type TickerServiceInterface interface {
	GetPrice(ctx context.Context, symbol string) (TickerQuote, error)
}
