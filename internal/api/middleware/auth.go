package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

// userEmailKey - ключ context для email аутентифицированного пользователя
const userEmailKey contextKey = "user_email"

// Authenticator - аутентификация по статическим bearer токенам.
//
// Токены задаются в конфигурации (AUTH_TOKENS) и отображаются на
// email профиля. Идентичность пользователя везде выражается email:
// он служит ключом профиля, учетных данных и активного подключения.
//
// Сравнение токенов constant-time для предотвращения timing attacks.
type Authenticator struct {
	tokens map[string]string // token -> email
}

// NewAuthenticator создает аутентификатор со статической таблицей токенов
func NewAuthenticator(tokens map[string]string) *Authenticator {
	copied := make(map[string]string, len(tokens))
	for token, email := range tokens {
		copied[token] = email
	}
	return &Authenticator{tokens: copied}
}

// Resolve возвращает email по токену.
// Перебирает всю таблицу с constant-time сравнением каждого токена,
// чтобы время ответа не зависело от совпадения префиксов.
func (a *Authenticator) Resolve(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	email, found := "", false
	for candidate, candidateEmail := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
			email, found = candidateEmail, true
		}
	}
	return email, found
}

// ResolveRequest извлекает токен из запроса и возвращает email.
// Токен принимается из заголовка Authorization: Bearer <token>
// или из query параметра token (для WebSocket клиентов, которым
// недоступны произвольные заголовки).
func (a *Authenticator) ResolveRequest(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return "", false
		}
		return a.Resolve(token)
	}
	return a.Resolve(r.URL.Query().Get("token"))
}

// Middleware проверяет аутентификацию и кладет email в context запроса.
// Неаутентифицированные запросы получают 401 с машинным кодом.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := a.ResolveRequest(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Authentication required","code":"not_authenticated"}`))
			return
		}
		ctx := context.WithValue(r.Context(), userEmailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ContextWithEmail кладет email пользователя в context.
// Используется там, где аутентификация выполняется вне middleware,
// например при WebSocket upgrade.
func ContextWithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userEmailKey, email)
}

// EmailFromContext возвращает email аутентифицированного пользователя
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(userEmailKey).(string)
	return email, ok && email != ""
}
