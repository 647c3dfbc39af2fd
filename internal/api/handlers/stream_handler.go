package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"dashboard/internal/models"
	"dashboard/internal/service"
)

// StreamRequest - тело запросов управления стриминговой сессией.
// Окружение опционально, по умолчанию testnet.
type StreamRequest struct {
	Env string `json:"env,omitempty"`
}

// StreamResponse - ответ с listen key текущей сессии
type StreamResponse struct {
	ListenKey string `json:"listen_key"`
	Env       string `json:"env"`
}

// StreamHandler управляет жизненным циклом стриминговой сессии Binance
//
// Endpoints:
// - POST /api/v1/stream/start - создание сессии (новый listen key)
// - POST /api/v1/stream/keepalive - продление сессии
type StreamHandler struct {
	sessionService service.SessionServiceInterface
}

// NewStreamHandler создает новый StreamHandler
func NewStreamHandler(sessionService service.SessionServiceInterface) *StreamHandler {
	return &StreamHandler{sessionService: sessionService}
}

// decodeStreamRequest разбирает тело запроса, пустое тело допустимо
func decodeStreamRequest(w http.ResponseWriter, r *http.Request) (StreamRequest, bool) {
	req := StreamRequest{Env: models.EnvTestnet}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondWithError(w, http.StatusBadRequest, service.CodeInvalidRequest, "Invalid request body", err.Error())
		return req, false
	}
	if req.Env == "" {
		req.Env = models.EnvTestnet
	}
	return req, true
}

// StartStream создает новую стриминговую сессию
// POST /api/v1/stream/start
//
// Тело запроса (опционально): {"env": "testnet"}
//
// Ответы:
// - 200 OK: {"listen_key": "...", "env": "testnet"}
// - 400 Bad Request: нет ключей или окружение не поддерживается
// - 502 Bad Gateway: Binance отверг запрос
func (h *StreamHandler) StartStream(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	req, ok := decodeStreamRequest(w, r)
	if !ok {
		return
	}

	listenKey, err := h.sessionService.Start(r.Context(), email, req.Env)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, StreamResponse{ListenKey: listenKey, Env: req.Env})
}

// KeepaliveStream продлевает существующую сессию
// POST /api/v1/stream/keepalive
//
// Ответы:
// - 200 OK: отметка времени ключа обновлена
// - 400 Bad Request: сессия не запускалась (нет listen key)
// - 502 Bad Gateway: Binance отверг keepalive (ключ истек)
func (h *StreamHandler) KeepaliveStream(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	req, ok := decodeStreamRequest(w, r)
	if !ok {
		return
	}

	if err := h.sessionService.Keepalive(r.Context(), email, req.Env); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Stream session refreshed",
		Data:    map[string]string{"env": req.Env},
	})
}
