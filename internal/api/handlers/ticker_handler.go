package handlers

import (
	"net/http"

	"dashboard/internal/service"
	"dashboard/pkg/utils"
)

// TickerHandler отвечает за выдачу кэшированных цен
//
// Endpoints:
// - GET /api/v1/ticker?symbol=BTCUSDT - цена символа
type TickerHandler struct {
	tickerService service.TickerServiceInterface
}

// NewTickerHandler создает новый TickerHandler
func NewTickerHandler(tickerService service.TickerServiceInterface) *TickerHandler {
	return &TickerHandler{tickerService: tickerService}
}

// GetPrice возвращает цену символа из кэша или от Binance
// GET /api/v1/ticker?symbol=BTCUSDT
//
// Ответ:
//
//	{"symbol": "BTCUSDT", "price": "50000.00", "fetched_at": "...", "stale": false}
//
// Поле stale=true означает, что свежую цену получить не удалось
// и отдано последнее известное значение.
func (h *TickerHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireEmail(w, r); !ok {
		return
	}

	symbol := utils.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		respondWithError(w, http.StatusBadRequest, service.CodeInvalidRequest, "Symbol is required", "Pass ?symbol=BTCUSDT")
		return
	}
	if err := utils.ValidateSymbol(symbol); err != nil {
		respondWithError(w, http.StatusBadRequest, service.CodeInvalidRequest, "Invalid symbol", err.Error())
		return
	}

	quote, err := h.tickerService.GetPrice(r.Context(), symbol)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, quote)
}
