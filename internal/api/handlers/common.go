package handlers

import (
	"encoding/json"
	"net/http"

	"dashboard/internal/api/middleware"
	"dashboard/internal/service"
)

// MaxRequestBodySize ограничение размера тела запроса (1 MB)
const MaxRequestBodySize = 1 << 20 // 1 MB

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints.
// Поле code - машинный код, по которому frontend ветвит обработку,
// поле error - человекочитаемое описание.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal response","code":"internal_error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError отправляет JSON ответ с ошибкой и машинным кодом
func respondWithError(w http.ResponseWriter, status int, code, message, details string) {
	respondWithJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// respondWithServiceError переводит ошибку сервисного слоя в HTTP ответ.
// Машинный код всегда присутствует в теле: клиент различает сбои
// по коду, а не по тексту.
func respondWithServiceError(w http.ResponseWriter, err error) {
	code := service.ErrorCode(err)
	respondWithError(w, statusForCode(code), code, messageForCode(code), err.Error())
}

// statusForCode возвращает HTTP статус для машинного кода ошибки
func statusForCode(code string) int {
	switch code {
	case service.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case service.CodeNoProfile:
		return http.StatusNotFound
	case service.CodeNoCredentials,
		service.CodeUnsupportedEnv,
		service.CodeInvalidExchangeID,
		service.CodeNoListenKey,
		service.CodeNoActiveExchange,
		service.CodeInvalidRequest:
		return http.StatusBadRequest
	case "fetch_failed", "start_failed", "keepalive_failed":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageForCode возвращает человекочитаемое описание кода
func messageForCode(code string) string {
	switch code {
	case service.CodeNotAuthenticated:
		return "Authentication required"
	case service.CodeNoProfile:
		return "Profile not found"
	case service.CodeNoCredentials:
		return "No API credentials configured"
	case service.CodeUnsupportedEnv:
		return "Environment is not supported"
	case service.CodeInvalidExchangeID:
		return "Invalid exchange identifier"
	case service.CodeNoListenKey:
		return "No listen key on file"
	case service.CodeNoActiveExchange:
		return "No active exchange configured"
	case service.CodeInvalidRequest:
		return "Invalid request"
	case "fetch_failed":
		return "Failed to fetch data from Binance"
	case "start_failed":
		return "Failed to start user data stream"
	case "keepalive_failed":
		return "Failed to keep user data stream alive"
	default:
		return "Internal server error"
	}
}

// requireEmail извлекает email аутентифицированного пользователя.
// Auth middleware гарантирует его наличие на защищенных маршрутах;
// отсутствие означает ошибку конфигурации маршрутов.
func requireEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := middleware.EmailFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, service.CodeNotAuthenticated, "Authentication required", "")
		return "", false
	}
	return email, true
}
