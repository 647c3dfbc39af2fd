package api

import (
	"net/http"

	"dashboard/internal/api/handlers"
	"dashboard/internal/api/middleware"
	"dashboard/internal/service"
	"dashboard/internal/websocket"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Logger          *zap.Logger
	Authenticator   *middleware.Authenticator
	AccountService  service.AccountServiceInterface
	SelectorService service.SelectorServiceInterface
	SessionService  service.SessionServiceInterface
	TickerService   service.TickerServiceInterface
	Relay           *websocket.Relay
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/ (требует Bearer токен)
//
//	├── /exchanges/
//	│   ├── GET / - настроенные подключения и активный выбор
//	│   ├── POST /{env}/credentials - привязка API ключей окружения
//	│   ├── GET /active - активное подключение
//	│   └── PUT /active - смена активного подключения
//	├── /account/
//	│   └── GET /balances - балансы активного подключения
//	├── /stream/
//	│   ├── POST /start - запуск user data stream сессии
//	│   └── POST /keepalive - продление сессии
//	├── /ticker - GET, кэшированная цена символа
//	└── /profile - POST, создание/обновление профиля
//
// /ws/
//
//	└── /stream - мост к user data stream Binance
//	    (аутентификация внутри handshake, не через middleware:
//	    порядок проверок протокола требует hello до отказа)
//
// /health - проверка живости, без аутентификации
// /metrics - Prometheus метрики, без аутентификации
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (только для /api/v1)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS)

	// API v1 routes, все за аутентификацией
	api := router.PathPrefix("/api/v1").Subrouter()
	if deps.Authenticator != nil {
		api.Use(deps.Authenticator.Middleware)
	}

	if deps.AccountService != nil && deps.SelectorService != nil {
		exchangeHandler := handlers.NewExchangeHandler(deps.AccountService, deps.SelectorService)
		api.HandleFunc("/exchanges", exchangeHandler.GetExchanges).Methods("GET")
		api.HandleFunc("/exchanges/active", exchangeHandler.GetActiveExchange).Methods("GET")
		api.HandleFunc("/exchanges/active", exchangeHandler.SetActiveExchange).Methods("PUT")
		api.HandleFunc("/exchanges/{env}/credentials", exchangeHandler.SetCredentials).Methods("POST")
	}

	if deps.AccountService != nil {
		balanceHandler := handlers.NewBalanceHandler(deps.AccountService)
		api.HandleFunc("/account/balances", balanceHandler.GetBalances).Methods("GET")

		profileHandler := handlers.NewProfileHandler(deps.AccountService)
		api.HandleFunc("/profile", profileHandler.UpsertProfile).Methods("POST")
	}

	if deps.SessionService != nil {
		streamHandler := handlers.NewStreamHandler(deps.SessionService)
		api.HandleFunc("/stream/start", streamHandler.StartStream).Methods("POST")
		api.HandleFunc("/stream/keepalive", streamHandler.KeepaliveStream).Methods("POST")
	}

	if deps.TickerService != nil {
		tickerHandler := handlers.NewTickerHandler(deps.TickerService)
		api.HandleFunc("/ticker", tickerHandler.GetPrice).Methods("GET")
	}

	// WebSocket мост: сам выполняет проверки в порядке протокола
	if deps.Relay != nil {
		router.HandleFunc("/ws/stream", deps.Relay.ServeWS)
	}

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}
