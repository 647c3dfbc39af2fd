package service

import (
	"context"
	"fmt"

	"dashboard/internal/config"
	"dashboard/internal/models"
	"dashboard/pkg/crypto"
)

// SessionService управляет жизненным циклом listen key на пару
// (пользователь, окружение).
//
// Состояния: Absent -> Start() -> Active(listenKey, lastRefreshed=now);
// Active -> Keepalive() -> Active(тот же ключ, lastRefreshed=now).
// Binance гасит неосвежаемый ключ молча; единственные наблюдаемые
// признаки - отказ keepalive или обрыв upstream соединения.
// Сервис не перезапускает сессию сам: retry и повторный Start -
// решение вызывающей стороны.
type SessionService struct {
	profileRepo   ProfileRepositoryInterface
	api           BinanceAPI
	binanceCfg    config.BinanceConfig
	encryptionKey []byte
}

// NewSessionService создает новый экземпляр сервиса
func NewSessionService(
	profileRepo ProfileRepositoryInterface,
	api BinanceAPI,
	binanceCfg config.BinanceConfig,
	encryptionKey string,
) *SessionService {
	return &SessionService{
		profileRepo:   profileRepo,
		api:           api,
		binanceCfg:    binanceCfg,
		encryptionKey: []byte(encryptionKey),
	}
}

// Start создает новую стриминговую сессию и сохраняет listen key.
// Требует непустой API ключ окружения; без него сетевой вызов
// не выполняется. Новый ключ вытесняет предыдущий в хранилище.
// Поддерживается только testnet - для mainnet быстрый отказ.
func (s *SessionService) Start(ctx context.Context, email, env string) (string, error) {
	if env != models.EnvTestnet {
		if !models.ValidEnv(env) {
			return "", fmt.Errorf("%w: %q", models.ErrInvalidEnv, env)
		}
		return "", ErrEnvNotSupported
	}

	profile, err := s.profileRepo.GetByEmail(email)
	if err != nil {
		return "", err
	}

	creds := profile.Credentials(env)
	if creds.APIKey == "" {
		return "", ErrNoCredentials
	}

	apiKey, err := crypto.Decrypt(creds.APIKey, s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("decrypt api key: %w", err)
	}

	listenKey, err := s.api.StartUserStream(ctx, s.binanceCfg.RestBase(env), apiKey)
	if err != nil {
		return "", err
	}

	if err := s.profileRepo.SetListenKey(email, env, listenKey); err != nil {
		return "", err
	}

	return listenKey, nil
}

// Keepalive продлевает существующую сессию.
// Требует сохраненные API ключ и listen key; успешный вызов обновляет
// только отметку времени, значение ключа не меняется. Non-2xx ответ
// поднимается как keepalive_failed - без автоматического рестарта.
func (s *SessionService) Keepalive(ctx context.Context, email, env string) error {
	if env != models.EnvTestnet {
		if !models.ValidEnv(env) {
			return fmt.Errorf("%w: %q", models.ErrInvalidEnv, env)
		}
		return ErrEnvNotSupported
	}

	profile, err := s.profileRepo.GetByEmail(email)
	if err != nil {
		return err
	}

	creds := profile.Credentials(env)
	if creds.APIKey == "" {
		return ErrNoCredentials
	}

	listenKey := profile.ListenKey(env)
	if listenKey == "" {
		return ErrNoListenKey
	}

	apiKey, err := crypto.Decrypt(creds.APIKey, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("decrypt api key: %w", err)
	}

	if err := s.api.KeepaliveUserStream(ctx, s.binanceCfg.RestBase(env), apiKey, listenKey); err != nil {
		return err
	}

	return s.profileRepo.TouchListenKey(email, env)
}
