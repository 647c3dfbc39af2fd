package service

import (
	"fmt"

	"dashboard/internal/models"
)

// SelectorService выбирает активное биржевое подключение пользователя.
//
// Набор настроенных подключений нигде не хранится: он каждый раз
// вычисляется заново из непустых пар ключей профиля. Сохраненный выбор
// обязан быть элементом текущего набора; если ключи удалили, выбор
// инвалидируется и заменяется первым доступным элементом.
type SelectorService struct {
	profileRepo ProfileRepositoryInterface
}

// NewSelectorService создает новый экземпляр сервиса
func NewSelectorService(profileRepo ProfileRepositoryInterface) *SelectorService {
	return &SelectorService{profileRepo: profileRepo}
}

// ConfiguredExchanges возвращает настроенные подключения профиля
// в стабильном порядке: mainnet раньше testnet.
func (s *SelectorService) ConfiguredExchanges(profile *models.UserProfile) []models.ConfiguredExchange {
	var entries []models.ConfiguredExchange
	for _, env := range []string{models.EnvMainnet, models.EnvTestnet} {
		if !profile.Credentials(env).IsConfigured() {
			continue
		}
		id := models.MakeExchangeID(models.ExchangeBinance, env)
		entries = append(entries, models.ConfiguredExchange{
			ID:       id.String(),
			Label:    exchangeLabel(models.ExchangeBinance, env),
			Exchange: models.ExchangeBinance,
			Env:      env,
		})
	}
	return entries
}

// ListConfigured возвращает настроенные подключения по email
func (s *SelectorService) ListConfigured(email string) ([]models.ConfiguredExchange, error) {
	profile, err := s.profileRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	return s.ConfiguredExchanges(profile), nil
}

// ResolveActive возвращает активное подключение пользователя.
// Если сохраненный выбор больше не входит в настроенный набор,
// он заменяется первым элементом набора (или пустым значением при
// пустом наборе), замена персистится.
func (s *SelectorService) ResolveActive(email string) (models.ExchangeID, error) {
	profile, err := s.profileRepo.GetByEmail(email)
	if err != nil {
		return models.ExchangeID{}, err
	}

	entries := s.ConfiguredExchanges(profile)

	// Сохраненный выбор валиден - возвращаем как есть
	if profile.ActiveExchange != "" {
		if stored, err := models.ParseExchangeID(profile.ActiveExchange); err == nil {
			for _, e := range entries {
				if e.ID == stored.String() {
					return stored, nil
				}
			}
		}
	}

	// Детерминированный fallback: первый элемент набора или "ничего"
	replacement := ""
	if len(entries) > 0 {
		replacement = entries[0].ID
	}
	if err := s.profileRepo.SetActiveExchange(email, replacement); err != nil {
		return models.ExchangeID{}, err
	}
	if replacement == "" {
		return models.ExchangeID{}, nil
	}
	return models.ParseExchangeID(replacement)
}

// SetActive сохраняет выбор активного подключения.
// Кандидат принимается только если он входит в текущий настроенный
// набор, иначе прежнее значение остается нетронутым.
func (s *SelectorService) SetActive(email, candidate string) (models.ExchangeID, error) {
	id, err := models.ParseExchangeID(candidate)
	if err != nil {
		return models.ExchangeID{}, err
	}

	profile, err := s.profileRepo.GetByEmail(email)
	if err != nil {
		return models.ExchangeID{}, err
	}

	for _, e := range s.ConfiguredExchanges(profile) {
		if e.ID == id.String() {
			if err := s.profileRepo.SetActiveExchange(email, id.String()); err != nil {
				return models.ExchangeID{}, err
			}
			return id, nil
		}
	}

	return models.ExchangeID{}, fmt.Errorf("%w: %q is not configured", models.ErrInvalidExchangeID, candidate)
}

// exchangeLabel строит человекочитаемую подпись для UI
func exchangeLabel(exchange, env string) string {
	label := "Binance"
	if exchange != models.ExchangeBinance {
		label = exchange
	}
	if env == models.EnvTestnet {
		return label + " Testnet"
	}
	return label + " Mainnet"
}
