package models

import (
	"database/sql"
	"time"
)

// UserProfile представляет профиль пользователя с биржевыми ключами
//
// Пары ключей хранятся по одной на окружение (mainnet/testnet), зашифрованы
// AES-256-GCM перед записью в БД и никогда не возвращаются в JSON.
// Частичная пара (ключ без секрета или наоборот) считается не настроенной.
type UserProfile struct {
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`

	MainnetAPIKey    string `json:"-" db:"mainnet_api_key"`    // зашифрован
	MainnetAPISecret string `json:"-" db:"mainnet_api_secret"` // зашифрован
	TestnetAPIKey    string `json:"-" db:"testnet_api_key"`    // зашифрован
	TestnetAPISecret string `json:"-" db:"testnet_api_secret"` // зашифрован

	TestnetListenKey        string       `json:"-" db:"testnet_listen_key"`
	TestnetListenKeyUpdated sql.NullTime `json:"-" db:"testnet_listen_key_updated"`

	// Сериализованный ExchangeID активного подключения ("" = не выбрано)
	ActiveExchange string `json:"active_exchange" db:"active_exchange"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CredentialPair - пара API ключей одного окружения
type CredentialPair struct {
	APIKey    string
	APISecret string
}

// IsConfigured сообщает, что присутствуют оба поля пары
func (p CredentialPair) IsConfigured() bool {
	return p.APIKey != "" && p.APISecret != ""
}

// Credentials возвращает пару ключей для окружения.
// Для неизвестного окружения возвращается пустая пара.
func (u *UserProfile) Credentials(env string) CredentialPair {
	switch env {
	case EnvMainnet:
		return CredentialPair{APIKey: u.MainnetAPIKey, APISecret: u.MainnetAPISecret}
	case EnvTestnet:
		return CredentialPair{APIKey: u.TestnetAPIKey, APISecret: u.TestnetAPISecret}
	default:
		return CredentialPair{}
	}
}

// ListenKey возвращает сохраненный listen key для окружения.
// Сессии поддерживаются только для testnet.
func (u *UserProfile) ListenKey(env string) string {
	if env == EnvTestnet {
		return u.TestnetListenKey
	}
	return ""
}
