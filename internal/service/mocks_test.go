package service

import (
	"context"
	"database/sql"
	"time"

	"dashboard/internal/binance"
	"dashboard/internal/models"
	"dashboard/internal/repository"
)

// ============ Mock ProfileRepository ============

type MockProfileRepository struct {
	profiles map[string]*models.UserProfile

	getErr       error
	upsertErr    error
	setCredsErr  error
	setKeyErr    error
	touchErr     error
	setActiveErr error

	setActiveCalls []string // история сохранений активного подключения
	touchCalls     int
	setKeyCalls    int
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{profiles: make(map[string]*models.UserProfile)}
}

func (m *MockProfileRepository) put(p *models.UserProfile) {
	m.profiles[p.Email] = p
}

func (m *MockProfileRepository) GetByEmail(email string) (*models.UserProfile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.profiles[email]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *MockProfileRepository) UpsertBase(email, passwordHash string) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if p, ok := m.profiles[email]; ok {
		if passwordHash != "" {
			p.PasswordHash = passwordHash
		}
		p.UpdatedAt = time.Now()
		return nil
	}
	m.profiles[email] = &models.UserProfile{Email: email, PasswordHash: passwordHash}
	return nil
}

func (m *MockProfileRepository) SetCredentials(email, env, apiKey, apiSecret string) error {
	if m.setCredsErr != nil {
		return m.setCredsErr
	}
	p, ok := m.profiles[email]
	if !ok {
		return repository.ErrProfileNotFound
	}
	switch env {
	case models.EnvMainnet:
		p.MainnetAPIKey, p.MainnetAPISecret = apiKey, apiSecret
	case models.EnvTestnet:
		p.TestnetAPIKey, p.TestnetAPISecret = apiKey, apiSecret
	default:
		return models.ErrInvalidEnv
	}
	return nil
}

func (m *MockProfileRepository) SetListenKey(email, env, listenKey string) error {
	m.setKeyCalls++
	if m.setKeyErr != nil {
		return m.setKeyErr
	}
	if env != models.EnvTestnet {
		return repository.ErrEnvNotSupported
	}
	p, ok := m.profiles[email]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.TestnetListenKey = listenKey
	p.TestnetListenKeyUpdated = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

func (m *MockProfileRepository) TouchListenKey(email, env string) error {
	m.touchCalls++
	if m.touchErr != nil {
		return m.touchErr
	}
	if env != models.EnvTestnet {
		return repository.ErrEnvNotSupported
	}
	p, ok := m.profiles[email]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.TestnetListenKeyUpdated = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

func (m *MockProfileRepository) SetActiveExchange(email, exchangeID string) error {
	if m.setActiveErr != nil {
		return m.setActiveErr
	}
	p, ok := m.profiles[email]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.ActiveExchange = exchangeID
	m.setActiveCalls = append(m.setActiveCalls, exchangeID)
	return nil
}

// ============ Mock BinanceAPI ============

type MockBinanceAPI struct {
	accountJSON []byte
	accountErr  error

	price    *binance.TickerPrice
	priceErr error

	listenKey string
	startErr  error

	keepaliveErr error

	accountCalls   int
	priceCalls     int
	startCalls     int
	keepaliveCalls int

	lastBase   string
	lastAPIKey string
}

func NewMockBinanceAPI() *MockBinanceAPI {
	return &MockBinanceAPI{
		accountJSON: []byte(`{"balances": []}`),
		listenKey:   "mock-listen-key",
	}
}

func (m *MockBinanceAPI) GetAccount(ctx context.Context, base, apiKey, apiSecret string) ([]byte, error) {
	m.accountCalls++
	m.lastBase, m.lastAPIKey = base, apiKey
	if m.accountErr != nil {
		return nil, m.accountErr
	}
	return m.accountJSON, nil
}

func (m *MockBinanceAPI) GetPrice(ctx context.Context, base, symbol string) (*binance.TickerPrice, error) {
	m.priceCalls++
	if m.priceErr != nil {
		return nil, m.priceErr
	}
	if m.price != nil {
		return m.price, nil
	}
	return &binance.TickerPrice{Symbol: symbol, Price: "100.0"}, nil
}

func (m *MockBinanceAPI) StartUserStream(ctx context.Context, base, apiKey string) (string, error) {
	m.startCalls++
	m.lastBase, m.lastAPIKey = base, apiKey
	if m.startErr != nil {
		return "", m.startErr
	}
	return m.listenKey, nil
}

func (m *MockBinanceAPI) KeepaliveUserStream(ctx context.Context, base, apiKey, listenKey string) error {
	m.keepaliveCalls++
	m.lastBase, m.lastAPIKey = base, apiKey
	return m.keepaliveErr
}
