package models

import (
	"errors"
	"fmt"
	"strings"
)

// Окружения биржи
const (
	EnvMainnet = "mainnet"
	EnvTestnet = "testnet"
)

// Поддерживаемые биржи (в текущей версии только Binance)
const (
	ExchangeBinance = "binance"
)

// Ошибки разбора идентификатора биржи
var (
	ErrInvalidExchangeID = errors.New("invalid exchange id")
	ErrInvalidEnv        = errors.New("env must be 'mainnet' or 'testnet'")
)

// ExchangeID - составной идентификатор биржевого подключения
// в формате "exchange:environment", например "binance:testnet".
// Сериализуется одним токеном с разделителем ':'.
type ExchangeID struct {
	Exchange string `json:"exchange"`
	Env      string `json:"env"`
}

// MakeExchangeID создает идентификатор из названия биржи и окружения
func MakeExchangeID(exchange, env string) ExchangeID {
	return ExchangeID{Exchange: exchange, Env: env}
}

// ParseExchangeID разбирает токен "exchange:environment".
// Токен должен состоять ровно из двух непустых lowercase сегментов,
// некорректные токены отклоняются целиком.
func ParseExchangeID(token string) (ExchangeID, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return ExchangeID{}, fmt.Errorf("%w: %q", ErrInvalidExchangeID, token)
	}
	for _, p := range parts {
		if p == "" || p != strings.ToLower(p) {
			return ExchangeID{}, fmt.Errorf("%w: %q", ErrInvalidExchangeID, token)
		}
	}
	if parts[1] != EnvMainnet && parts[1] != EnvTestnet {
		return ExchangeID{}, fmt.Errorf("%w: %q", ErrInvalidExchangeID, token)
	}
	return ExchangeID{Exchange: parts[0], Env: parts[1]}, nil
}

// String возвращает сериализованный токен "exchange:environment"
func (id ExchangeID) String() string {
	return id.Exchange + ":" + id.Env
}

// IsZero сообщает, что идентификатор не задан
func (id ExchangeID) IsZero() bool {
	return id.Exchange == "" && id.Env == ""
}

// ValidEnv проверяет, что окружение входит в известный набор
func ValidEnv(env string) bool {
	return env == EnvMainnet || env == EnvTestnet
}

// ConfiguredExchange - элемент списка настроенных подключений пользователя.
// Вычисляется заново на каждый запрос из непустых пар ключей,
// напрямую в БД не хранится.
type ConfiguredExchange struct {
	ID       string `json:"id"` // сериализованный ExchangeID
	Label    string `json:"label"`
	Exchange string `json:"exchange"`
	Env      string `json:"env"`
}
