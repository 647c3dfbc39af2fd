package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"dashboard/internal/service"
)

// ProfileRequest - тело запроса создания/обновления профиля
type ProfileRequest struct {
	Password string `json:"password,omitempty"`
}

// ProfileHandler отвечает за базовую запись профиля пользователя
//
// Endpoints:
// - POST /api/v1/profile - создание или обновление профиля
type ProfileHandler struct {
	accountService service.AccountServiceInterface
}

// NewProfileHandler создает новый ProfileHandler
func NewProfileHandler(accountService service.AccountServiceInterface) *ProfileHandler {
	return &ProfileHandler{accountService: accountService}
}

// UpsertProfile создает или обновляет профиль аутентифицированного
// пользователя. Пароль опционален и хранится только bcrypt-хешем.
// POST /api/v1/profile
func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	var req ProfileRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondWithError(w, http.StatusBadRequest, service.CodeInvalidRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.accountService.UpsertProfile(email, req.Password); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Profile saved",
		Data:    map[string]string{"email": email},
	})
}
