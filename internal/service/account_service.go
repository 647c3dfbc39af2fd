package service

import (
	"context"
	"errors"
	"fmt"

	"dashboard/internal/binance"
	"dashboard/internal/config"
	"dashboard/internal/models"
	"dashboard/pkg/crypto"
	"dashboard/pkg/utils"
)

// AccountService - бизнес-логика аккаунта: привязка учетных данных
// и выдача балансов активного подключения.
//
// Секреты живут в памяти не дольше одного запроса: на каждый вызов
// читаются из хранилища, расшифровываются, используются и забываются.
type AccountService struct {
	profileRepo   ProfileRepositoryInterface
	selector      *SelectorService
	api           BinanceAPI
	binanceCfg    config.BinanceConfig
	encryptionKey []byte
	allowlist     map[string]struct{}
}

// NewAccountService создает новый экземпляр сервиса
func NewAccountService(
	profileRepo ProfileRepositoryInterface,
	selector *SelectorService,
	api BinanceAPI,
	binanceCfg config.BinanceConfig,
	encryptionKey string,
) *AccountService {
	allowlist := make(map[string]struct{}, len(binanceCfg.AssetAllowlist))
	for _, asset := range binanceCfg.AssetAllowlist {
		allowlist[asset] = struct{}{}
	}
	return &AccountService{
		profileRepo:   profileRepo,
		selector:      selector,
		api:           api,
		binanceCfg:    binanceCfg,
		encryptionKey: []byte(encryptionKey),
		allowlist:     allowlist,
	}
}

// SetCredentials привязывает пару API ключей к окружению.
// Выполняет:
// 1. Проверку окружения и полноты пары
// 2. Тестовый запрос аккаунта (проверка ключей)
// 3. Шифрование ключей перед сохранением
// 4. Сохранение в БД
func (s *AccountService) SetCredentials(ctx context.Context, email, env, apiKey, apiSecret string) error {
	if !models.ValidEnv(env) {
		return fmt.Errorf("%w: %q", models.ErrInvalidEnv, env)
	}

	// Частичная пара эквивалентна "не настроено" - не сохраняем ее
	if apiKey == "" || apiSecret == "" {
		return ErrInvalidCredentials
	}
	if err := utils.ValidateAPIKey(apiKey); err != nil {
		return errors.Join(ErrInvalidCredentials, err)
	}
	if err := utils.ValidateAPISecret(apiSecret); err != nil {
		return errors.Join(ErrInvalidCredentials, err)
	}

	// Тестовое подключение: ключи должны открывать доступ к аккаунту
	if _, err := s.api.GetAccount(ctx, s.binanceCfg.RestBase(env), apiKey, apiSecret); err != nil {
		return errors.Join(ErrInvalidCredentials, err)
	}

	encryptedKey, err := crypto.Encrypt(apiKey, s.encryptionKey)
	if err != nil {
		return err
	}
	encryptedSecret, err := crypto.Encrypt(apiSecret, s.encryptionKey)
	if err != nil {
		return err
	}

	// Запись могла еще не существовать
	if err := s.profileRepo.UpsertBase(email, ""); err != nil {
		return err
	}

	return s.profileRepo.SetCredentials(email, env, encryptedKey, encryptedSecret)
}

// GetBalances возвращает балансы активного подключения пользователя.
// Из сырого снимка остаются только записи с ненулевым free/locked,
// затем применяется allow-list активов.
func (s *AccountService) GetBalances(ctx context.Context, email string) ([]models.Balance, error) {
	active, err := s.selector.ResolveActive(email)
	if err != nil {
		return nil, err
	}
	if active.IsZero() {
		return nil, ErrNoActiveExchange
	}

	profile, err := s.profileRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}

	creds := profile.Credentials(active.Env)
	if !creds.IsConfigured() {
		return nil, ErrNoCredentials
	}

	apiKey, err := crypto.Decrypt(creds.APIKey, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt api key: %w", err)
	}
	apiSecret, err := crypto.Decrypt(creds.APISecret, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt api secret: %w", err)
	}

	body, err := s.api.GetAccount(ctx, s.binanceCfg.RestBase(active.Env), apiKey, apiSecret)
	if err != nil {
		return nil, err
	}

	balances := binance.ExtractBalances(body, 0)
	return s.filterAllowlist(balances), nil
}

// filterAllowlist оставляет только активы из явного allow-list
func (s *AccountService) filterAllowlist(balances []models.Balance) []models.Balance {
	out := make([]models.Balance, 0, len(balances))
	for _, b := range balances {
		if _, ok := s.allowlist[b.Asset]; ok {
			out = append(out, b)
		}
	}
	return out
}

// UpsertProfile создает или обновляет базовую запись профиля.
// Пароль (если задан) хешируется bcrypt перед сохранением.
func (s *AccountService) UpsertProfile(email, password string) error {
	passwordHash := ""
	if password != "" {
		hash, err := crypto.HashPassword(password)
		if err != nil {
			return err
		}
		passwordHash = hash
	}
	return s.profileRepo.UpsertBase(email, passwordHash)
}
