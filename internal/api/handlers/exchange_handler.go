package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"dashboard/internal/models"
	"dashboard/internal/service"

	"github.com/gorilla/mux"
)

// SetCredentialsRequest - тело запроса привязки API ключей
type SetCredentialsRequest struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// ExchangeListResponse - список настроенных подключений и активный выбор
type ExchangeListResponse struct {
	Exchanges []models.ConfiguredExchange `json:"exchanges"`
	Active    string                      `json:"active,omitempty"`
}

// ActiveExchangeRequest - тело запроса выбора активного подключения
type ActiveExchangeRequest struct {
	ID string `json:"id"`
}

// ActiveExchangeResponse - ответ с активным подключением
type ActiveExchangeResponse struct {
	Active string `json:"active,omitempty"`
}

// ExchangeHandler отвечает за управление биржевыми подключениями
//
// Endpoints:
// - POST /api/v1/exchanges/{env}/credentials - привязка API ключей окружения
// - GET /api/v1/exchanges - список настроенных подключений
// - GET /api/v1/exchanges/active - активное подключение
// - PUT /api/v1/exchanges/active - смена активного подключения
type ExchangeHandler struct {
	accountService  service.AccountServiceInterface
	selectorService service.SelectorServiceInterface
}

// NewExchangeHandler создает новый ExchangeHandler
func NewExchangeHandler(accountService service.AccountServiceInterface, selectorService service.SelectorServiceInterface) *ExchangeHandler {
	return &ExchangeHandler{
		accountService:  accountService,
		selectorService: selectorService,
	}
}

// SetCredentials привязывает пару API ключей к окружению
// POST /api/v1/exchanges/{env}/credentials
//
// Тело запроса:
//
//	{
//	  "api_key": "your-api-key",
//	  "api_secret": "your-api-secret"
//	}
//
// Ответы:
// - 200 OK: ключи проверены и сохранены
// - 400 Bad Request: неизвестное окружение или неполная пара
// - 502 Bad Gateway: Binance отверг ключи или недоступен
func (h *ExchangeHandler) SetCredentials(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	env := strings.ToLower(mux.Vars(r)["env"])
	if !models.ValidEnv(env) {
		respondWithError(w, http.StatusBadRequest, service.CodeUnsupportedEnv,
			"Environment is not supported", "Supported environments: mainnet, testnet")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var req SetCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, service.CodeInvalidRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.accountService.SetCredentials(r.Context(), email, env, req.APIKey, req.APISecret); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Credentials verified and saved",
		Data:    map[string]string{"env": env},
	})
}

// GetExchanges возвращает настроенные подключения пользователя
// GET /api/v1/exchanges
//
// Ответ:
//
//	{
//	  "exchanges": [
//	    {"id": "binance:testnet", "label": "Binance Testnet", "exchange": "binance", "env": "testnet"}
//	  ],
//	  "active": "binance:testnet"
//	}
func (h *ExchangeHandler) GetExchanges(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	exchanges, err := h.selectorService.ListConfigured(email)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	active, err := h.selectorService.ResolveActive(email)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	response := ExchangeListResponse{Exchanges: exchanges}
	if !active.IsZero() {
		response.Active = active.String()
	}
	respondWithJSON(w, http.StatusOK, response)
}

// GetActiveExchange возвращает активное подключение
// GET /api/v1/exchanges/active
//
// Пустое поле active означает, что не настроено ни одного подключения.
func (h *ExchangeHandler) GetActiveExchange(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	active, err := h.selectorService.ResolveActive(email)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	response := ActiveExchangeResponse{}
	if !active.IsZero() {
		response.Active = active.String()
	}
	respondWithJSON(w, http.StatusOK, response)
}

// SetActiveExchange меняет активное подключение
// PUT /api/v1/exchanges/active
//
// Тело запроса: {"id": "binance:testnet"}
//
// Кандидат вне настроенного набора отклоняется с кодом
// invalid_exchange_id, прежний выбор при этом не меняется.
func (h *ExchangeHandler) SetActiveExchange(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var req ActiveExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, service.CodeInvalidRequest, "Invalid request body", err.Error())
		return
	}
	if req.ID == "" {
		respondWithError(w, http.StatusBadRequest, service.CodeInvalidRequest, "Exchange id is required", "")
		return
	}

	active, err := h.selectorService.SetActive(email, req.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ActiveExchangeResponse{Active: active.String()})
}
