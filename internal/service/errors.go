package service

import (
	"errors"

	"dashboard/internal/binance"
	"dashboard/internal/models"
	"dashboard/internal/repository"
)

// Ошибки сервисного слоя
var (
	ErrNoCredentials      = errors.New("no credentials configured for environment")
	ErrNoListenKey        = errors.New("no listen key on file")
	ErrNoActiveExchange   = errors.New("no active exchange configured")
	ErrEnvNotSupported    = errors.New("environment not supported")
	ErrInvalidCredentials = errors.New("invalid API credentials")
)

// Машинные коды ошибок для in-band ответов API и WebSocket envelope
const (
	CodeNotAuthenticated  = "not_authenticated"
	CodeNoProfile         = "no_profile"
	CodeNoCredentials     = "no_credentials"
	CodeUnsupportedEnv    = "unsupported_env"
	CodeInvalidExchangeID = "invalid_exchange_id"
	CodeNoListenKey       = "no_listen_key"
	CodeNoActiveExchange  = "no_active_exchange"
	CodeInvalidRequest    = "invalid_request"
	CodeInternalError     = "internal_error"
)

// ErrorCode переводит ошибку в машинный код для in-band ответа.
// Каждый сбой возвращается клиенту структурированным кодом,
// а не текстом исключения.
func ErrorCode(err error) string {
	var apiErr *binance.APIError
	switch {
	case err == nil:
		return ""
	// Отвергнутая пара ключей несет в цепочке и APIError от биржи:
	// для клиента это ошибка конфигурации, проверяется первой
	case errors.Is(err, ErrNoCredentials), errors.Is(err, ErrInvalidCredentials):
		return CodeNoCredentials
	case errors.As(err, &apiErr):
		return apiErr.Kind // fetch_failed / start_failed / keepalive_failed
	case errors.Is(err, repository.ErrProfileNotFound):
		return CodeNoProfile
	case errors.Is(err, ErrEnvNotSupported), errors.Is(err, repository.ErrEnvNotSupported):
		return CodeUnsupportedEnv
	case errors.Is(err, models.ErrInvalidExchangeID), errors.Is(err, models.ErrInvalidEnv):
		return CodeInvalidExchangeID
	case errors.Is(err, ErrNoListenKey):
		return CodeNoListenKey
	case errors.Is(err, ErrNoActiveExchange):
		return CodeNoActiveExchange
	default:
		return CodeInternalError
	}
}
