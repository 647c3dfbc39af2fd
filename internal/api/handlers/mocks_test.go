package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	"dashboard/internal/api/middleware"
	"dashboard/internal/models"
	"dashboard/internal/service"
)

// ErrMockUpstream имитирует сбой Binance
var ErrMockUpstream = errors.New("mock upstream failure")

// authedRequest создает запрос с аутентифицированным пользователем в context
func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(middleware.ContextWithEmail(req.Context(), "user@example.com"))
}

// ============ Mock AccountService ============

type MockAccountService struct {
	balances []models.Balance

	setCredsErr error
	balancesErr error
	upsertErr   error

	setCredsCalls int
	lastEnv       string
	lastAPIKey    string
}

func NewMockAccountService() *MockAccountService {
	return &MockAccountService{}
}

func (m *MockAccountService) SetCredentials(ctx context.Context, email, env, apiKey, apiSecret string) error {
	m.setCredsCalls++
	m.lastEnv, m.lastAPIKey = env, apiKey
	return m.setCredsErr
}

func (m *MockAccountService) GetBalances(ctx context.Context, email string) ([]models.Balance, error) {
	if m.balancesErr != nil {
		return nil, m.balancesErr
	}
	return m.balances, nil
}

func (m *MockAccountService) UpsertProfile(email, password string) error {
	return m.upsertErr
}

// ============ Mock SelectorService ============

type MockSelectorService struct {
	exchanges []models.ConfiguredExchange
	active    models.ExchangeID

	listErr    error
	resolveErr error
	setErr     error
}

func NewMockSelectorService() *MockSelectorService {
	return &MockSelectorService{}
}

func (m *MockSelectorService) ListConfigured(email string) ([]models.ConfiguredExchange, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.exchanges, nil
}

func (m *MockSelectorService) ResolveActive(email string) (models.ExchangeID, error) {
	if m.resolveErr != nil {
		return models.ExchangeID{}, m.resolveErr
	}
	return m.active, nil
}

func (m *MockSelectorService) SetActive(email, candidate string) (models.ExchangeID, error) {
	if m.setErr != nil {
		return models.ExchangeID{}, m.setErr
	}
	id, err := models.ParseExchangeID(candidate)
	if err != nil {
		return models.ExchangeID{}, err
	}
	m.active = id
	return id, nil
}

// ============ Mock SessionService ============

type MockSessionService struct {
	listenKey string

	startErr     error
	keepaliveErr error

	startCalls     int
	keepaliveCalls int
	lastEnv        string
}

func NewMockSessionService() *MockSessionService {
	return &MockSessionService{listenKey: "mock-listen-key"}
}

func (m *MockSessionService) Start(ctx context.Context, email, env string) (string, error) {
	m.startCalls++
	m.lastEnv = env
	if m.startErr != nil {
		return "", m.startErr
	}
	return m.listenKey, nil
}

func (m *MockSessionService) Keepalive(ctx context.Context, email, env string) error {
	m.keepaliveCalls++
	m.lastEnv = env
	return m.keepaliveErr
}

// ============ Mock TickerService ============

type MockTickerService struct {
	quote    service.TickerQuote
	priceErr error
}

func NewMockTickerService() *MockTickerService {
	return &MockTickerService{
		quote: service.TickerQuote{Symbol: "BTCUSDT", Price: "50000.00"},
	}
}

func (m *MockTickerService) GetPrice(ctx context.Context, symbol string) (service.TickerQuote, error) {
	if m.priceErr != nil {
		return service.TickerQuote{}, m.priceErr
	}
	q := m.quote
	q.Symbol = symbol
	return q, nil
}
