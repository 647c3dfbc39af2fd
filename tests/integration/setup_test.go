// Package integration contains integration tests for the exchange dashboard backend.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle against a fake Binance upstream
// - WebSocket tests: relay handshake and frame bridging
// - Database tests: schema, profile repository CRUD
//
// Tests that need PostgreSQL skip automatically when the database is unreachable.
// Run with: go test ./tests/integration/...
package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"dashboard/internal/api"
	"dashboard/internal/api/middleware"
	"dashboard/internal/binance"
	"dashboard/internal/config"
	"dashboard/internal/repository"
	"dashboard/internal/service"
	"dashboard/internal/websocket"
	"dashboard/pkg/ratelimit"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	testToken         = "integration-test-token"
	testEmail         = "integration@example.com"
	testEncryptionKey = "0123456789abcdef0123456789abcdef"
)

// TestConfig contains database configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB          *sql.DB
	Router      *mux.Router
	Server      *httptest.Server
	FakeBinance *FakeBinance
	ProfileRepo *repository.ProfileRepository
	Cleanup     func()
}

// FakeBinance emulates the subset of the Binance REST API the dashboard talks to.
// It records signed requests and lets tests toggle failure modes.
type FakeBinance struct {
	Server *httptest.Server

	mu            sync.Mutex
	accountJSON   string
	price         string
	listenKey     string
	rejectAccount bool
	requests      []string
}

// NewFakeBinance starts the fake upstream with sane defaults
func NewFakeBinance() *FakeBinance {
	fb := &FakeBinance{
		accountJSON: `{"balances":[{"asset":"BTC","free":"0.5","locked":"0.1"},{"asset":"USDT","free":"1000","locked":"0"}]}`,
		price:       "65000.10",
		listenKey:   "integration-listen-key",
	}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.handle))
	return fb
}

func (fb *FakeBinance) handle(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	fb.requests = append(fb.requests, r.Method+" "+r.URL.Path)
	rejectAccount := fb.rejectAccount
	accountJSON := fb.accountJSON
	price := fb.price
	listenKey := fb.listenKey
	fb.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/v3/account"):
		// Signed endpoint: signature and timestamp must be present
		q := r.URL.Query()
		if q.Get("signature") == "" || q.Get("timestamp") == "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":-1102,"msg":"Mandatory parameter missing"}`)
			return
		}
		if r.Header.Get("X-MBX-APIKEY") == "" || rejectAccount {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":-2015,"msg":"Invalid API-key, IP, or permissions for action."}`)
			return
		}
		fmt.Fprint(w, accountJSON)

	case strings.HasSuffix(r.URL.Path, "/v3/ticker/price"):
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":-1100,"msg":"Illegal characters found in parameter 'symbol'"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"symbol": symbol, "price": price})

	case strings.HasSuffix(r.URL.Path, "/v3/userDataStream"):
		if r.Header.Get("X-MBX-APIKEY") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":-2014,"msg":"API-key format invalid."}`)
			return
		}
		switch r.Method {
		case http.MethodPost:
			json.NewEncoder(w).Encode(map[string]string{"listenKey": listenKey})
		case http.MethodPut:
			fmt.Fprint(w, `{}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// SetRejectAccount makes /v3/account respond 401 regardless of the key
func (fb *FakeBinance) SetRejectAccount(reject bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.rejectAccount = reject
}

// Requests returns a copy of the request log
func (fb *FakeBinance) Requests() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]string, len(fb.requests))
	copy(out, fb.requests)
	return out
}

// Close shuts the fake upstream down
func (fb *FakeBinance) Close() {
	fb.Server.Close()
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "dashboard_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection or skips the test
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	cfg := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)

	db, err := sql.Open(cfg.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// SetupTestServer wires real services against a fake Binance upstream
// and a real PostgreSQL database. Skips the test when the DB is unreachable.
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	profileRepo := repository.NewProfileRepository(db)
	if err := profileRepo.EnsureSchema(); err != nil {
		dbCleanup()
		t.Skipf("Skipping integration test: cannot ensure schema: %v", err)
		return nil
	}
	cleanupProfiles(db)

	fakeBinance := NewFakeBinance()

	binanceCfg := config.BinanceConfig{
		MainnetRestBase: fakeBinance.Server.URL + "/api",
		TestnetRestBase: fakeBinance.Server.URL + "/api",
		RecvWindowMs:    5000,
		HTTPTimeout:     5 * time.Second,
		TickerTTL:       5 * time.Second,
		AssetAllowlist:  []string{"BTC", "ETH", "BNB", "USDT"},
	}

	httpClient := binance.NewHTTPClient(binance.HTTPClientConfig{TotalTimeout: 5 * time.Second})
	limiter := ratelimit.NewRateLimiter(100, 200)
	client := binance.NewClient(httpClient, limiter, binanceCfg.RecvWindowMs)

	selectorService := service.NewSelectorService(profileRepo)
	accountService := service.NewAccountService(profileRepo, selectorService, client, binanceCfg, testEncryptionKey)
	sessionService := service.NewSessionService(profileRepo, client, binanceCfg, testEncryptionKey)
	tickerService := service.NewTickerService(client, binanceCfg.TestnetRestBase, binanceCfg.TickerTTL)

	authenticator := middleware.NewAuthenticator(map[string]string{testToken: testEmail})
	relay := websocket.NewRelay(authenticator, profileRepo, "ws://127.0.0.1:1", zap.NewNop())

	deps := &api.Dependencies{
		Logger:          zap.NewNop(),
		Authenticator:   authenticator,
		AccountService:  accountService,
		SelectorService: selectorService,
		SessionService:  sessionService,
		TickerService:   tickerService,
		Relay:           relay,
	}
	router := api.SetupRoutes(deps)
	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		fakeBinance.Close()
		httpClient.Close()
		cleanupProfiles(db)
		dbCleanup()
	}

	return &TestServer{
		DB:          db,
		Router:      router,
		Server:      server,
		FakeBinance: fakeBinance,
		ProfileRepo: profileRepo,
		Cleanup:     cleanup,
	}
}

// cleanupProfiles removes test profiles between runs
func cleanupProfiles(db *sql.DB) {
	db.Exec("DELETE FROM user_profiles WHERE email LIKE '%@example.com'")
}
