package binance

import (
	"errors"
	"fmt"
)

// Классы транспортных ошибок Binance API.
// Клиент только классифицирует сбой, retry решает вызывающая сторона.
const (
	KindFetchFailed     = "fetch_failed"
	KindStartFailed     = "start_failed"
	KindKeepaliveFailed = "keepalive_failed"
)

// APIError представляет ошибку обращения к Binance API
type APIError struct {
	Kind     string // fetch_failed / start_failed / keepalive_failed
	Status   int    // HTTP статус (0, если запрос не дошел до ответа)
	Message  string
	Original error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("binance: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("binance: %s: %s", e.Kind, e.Message)
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *APIError) Unwrap() error {
	return e.Original
}

// IsKind проверяет класс ошибки
func (e *APIError) IsKind(kind string) bool {
	return e.Kind == kind
}

// IsKind проверяет, что в цепочке err есть APIError указанного класса
func IsKind(err error, kind string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
