package handlers

import (
	"net/http"

	"dashboard/internal/models"
	"dashboard/internal/service"
)

// BalancesResponse - ответ со снимком балансов активного подключения
type BalancesResponse struct {
	Balances []models.Balance `json:"balances"`
}

// BalanceHandler отвечает за выдачу балансов аккаунта
//
// Endpoints:
// - GET /api/v1/account/balances - балансы активного подключения
type BalanceHandler struct {
	accountService service.AccountServiceInterface
}

// NewBalanceHandler создает новый BalanceHandler
func NewBalanceHandler(accountService service.AccountServiceInterface) *BalanceHandler {
	return &BalanceHandler{accountService: accountService}
}

// GetBalances возвращает балансы активного подключения пользователя
// GET /api/v1/account/balances
//
// Ответ:
//
//	{
//	  "balances": [
//	    {"asset": "BTC", "free": 1.5, "locked": 0},
//	    {"asset": "USDT", "free": 0, "locked": 10}
//	  ]
//	}
//
// Ответы:
// - 200 OK: снимок балансов (возможно пустой)
// - 400 Bad Request: нет активного подключения или ключей
// - 502 Bad Gateway: Binance недоступен
func (h *BalanceHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	balances, err := h.accountService.GetBalances(r.Context(), email)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if balances == nil {
		balances = []models.Balance{}
	}
	respondWithJSON(w, http.StatusOK, BalancesResponse{Balances: balances})
}
