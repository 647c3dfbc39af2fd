package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dashboard/internal/models"
)

// Ошибки репозитория профилей
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrEnvNotSupported = errors.New("environment not supported")
)

// ProfileRepository - работа с таблицей user_profiles.
// Хранилище является единственным источником истины для учетных данных
// и listen key: семантика last-write-wins, без optimistic locking.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository создает новый экземпляр репозитория
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// EnsureSchema создает таблицу профилей, если ее еще нет
func (r *ProfileRepository) EnsureSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS user_profiles (
			email TEXT PRIMARY KEY,
			password_hash TEXT,
			mainnet_api_key TEXT,
			mainnet_api_secret TEXT,
			testnet_api_key TEXT,
			testnet_api_secret TEXT,
			testnet_listen_key TEXT,
			testnet_listen_key_updated TIMESTAMPTZ,
			active_exchange TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	_, err := r.db.Exec(query)
	return err
}

// GetByEmail возвращает профиль пользователя
func (r *ProfileRepository) GetByEmail(email string) (*models.UserProfile, error) {
	query := `
		SELECT email,
		       COALESCE(password_hash, ''),
		       COALESCE(mainnet_api_key, ''),
		       COALESCE(mainnet_api_secret, ''),
		       COALESCE(testnet_api_key, ''),
		       COALESCE(testnet_api_secret, ''),
		       COALESCE(testnet_listen_key, ''),
		       testnet_listen_key_updated,
		       COALESCE(active_exchange, ''),
		       created_at, updated_at
		FROM user_profiles
		WHERE email = $1`

	profile := &models.UserProfile{}
	err := r.db.QueryRow(query, email).Scan(
		&profile.Email,
		&profile.PasswordHash,
		&profile.MainnetAPIKey,
		&profile.MainnetAPISecret,
		&profile.TestnetAPIKey,
		&profile.TestnetAPISecret,
		&profile.TestnetListenKey,
		&profile.TestnetListenKeyUpdated,
		&profile.ActiveExchange,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	return profile, nil
}

// UpsertBase гарантирует существование записи пользователя.
// Идемпотентна: повторный вызов обновляет только updated_at
// (и password_hash, если он передан).
func (r *ProfileRepository) UpsertBase(email, passwordHash string) error {
	var query string
	var err error

	if passwordHash != "" {
		query = `
			INSERT INTO user_profiles (email, password_hash)
			VALUES ($1, $2)
			ON CONFLICT (email)
			DO UPDATE SET password_hash = $2, updated_at = NOW()`
		_, err = r.db.Exec(query, email, passwordHash)
	} else {
		query = `
			INSERT INTO user_profiles (email)
			VALUES ($1)
			ON CONFLICT (email)
			DO UPDATE SET updated_at = NOW()`
		_, err = r.db.Exec(query, email)
	}

	return err
}

// SetCredentials сохраняет пару API ключей для окружения.
// Значения приходят уже зашифрованными из сервисного слоя.
func (r *ProfileRepository) SetCredentials(email, env, apiKey, apiSecret string) error {
	var query string
	switch env {
	case models.EnvMainnet:
		query = `
			UPDATE user_profiles
			SET mainnet_api_key = $1, mainnet_api_secret = $2, updated_at = NOW()
			WHERE email = $3`
	case models.EnvTestnet:
		query = `
			UPDATE user_profiles
			SET testnet_api_key = $1, testnet_api_secret = $2, updated_at = NOW()
			WHERE email = $3`
	default:
		return fmt.Errorf("%w: %q", models.ErrInvalidEnv, env)
	}

	result, err := r.db.Exec(query, apiKey, apiSecret, email)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetListenKey сохраняет новый listen key и время его обновления.
// Новый ключ молча вытесняет предыдущее значение - координация
// ротации не предпринимается. Поддерживается только testnet.
func (r *ProfileRepository) SetListenKey(email, env, listenKey string) error {
	if env != models.EnvTestnet {
		if !models.ValidEnv(env) {
			return fmt.Errorf("%w: %q", models.ErrInvalidEnv, env)
		}
		return ErrEnvNotSupported
	}

	query := `
		UPDATE user_profiles
		SET testnet_listen_key = $1,
		    testnet_listen_key_updated = NOW(),
		    updated_at = NOW()
		WHERE email = $2`

	result, err := r.db.Exec(query, listenKey, email)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// TouchListenKey обновляет только отметку времени listen key
// (успешный keepalive не меняет значение ключа)
func (r *ProfileRepository) TouchListenKey(email, env string) error {
	if env != models.EnvTestnet {
		if !models.ValidEnv(env) {
			return fmt.Errorf("%w: %q", models.ErrInvalidEnv, env)
		}
		return ErrEnvNotSupported
	}

	query := `
		UPDATE user_profiles
		SET testnet_listen_key_updated = NOW(), updated_at = NOW()
		WHERE email = $1`

	result, err := r.db.Exec(query, email)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetActiveExchange сохраняет выбор активного подключения
// (сериализованный ExchangeID, "" = не выбрано)
func (r *ProfileRepository) SetActiveExchange(email, exchangeID string) error {
	query := `
		UPDATE user_profiles
		SET active_exchange = $1, updated_at = NOW()
		WHERE email = $2`

	result, err := r.db.Exec(query, exchangeID, email)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// requireRow переводит "ни одна строка не обновлена" в ErrProfileNotFound
func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// StaleListenKey сообщает, не протух ли listen key по локальной отметке.
// Binance гасит ключ молча: это лишь подсказка для UI, а не гарантия -
// фактическую смерть ключа видно только по отказу keepalive или
// обрыву upstream соединения.
func StaleListenKey(updated sql.NullTime, maxAge time.Duration) bool {
	if !updated.Valid {
		return true
	}
	return time.Since(updated.Time) > maxAge
}
