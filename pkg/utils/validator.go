package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Ошибки валидации
var (
	ErrEmptySymbol    = errors.New("symbol is empty")
	ErrInvalidSymbol  = errors.New("symbol must be 5-20 uppercase letters and digits")
	ErrEmptyEmail     = errors.New("email is empty")
	ErrInvalidEmail   = errors.New("invalid email format")
	ErrEmptyAPIKey    = errors.New("api key is empty")
	ErrInvalidAPIKey  = errors.New("api key contains invalid characters")
	ErrAPIKeyTooLong  = errors.New("api key is too long")
	ErrEmptyAPISecret = errors.New("api secret is empty")
)

// maxAPIKeyLength с запасом покрывает ключи Binance (64 символа)
const maxAPIKeyLength = 256

var (
	symbolRegexp = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)
	emailRegexp  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// NormalizeSymbol приводит символ к каноническому виду: BTCUSDT
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateSymbol проверяет формат торгового символа (BTCUSDT).
// Символ должен быть предварительно нормализован.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return ErrEmptySymbol
	}
	if !symbolRegexp.MatchString(symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return nil
}

// ValidateEmail проверяет базовый формат email
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	if !emailRegexp.MatchString(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

// ValidateAPIKey проверяет форму API ключа.
// Настоящая проверка - тестовый запрос к бирже; здесь отсекаются
// только заведомо битые значения (пробелы, управляющие символы).
func ValidateAPIKey(apiKey string) error {
	if apiKey == "" {
		return ErrEmptyAPIKey
	}
	if len(apiKey) > maxAPIKeyLength {
		return ErrAPIKeyTooLong
	}
	for _, r := range apiKey {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrInvalidAPIKey
		}
	}
	return nil
}

// ValidateAPISecret проверяет форму API секрета
func ValidateAPISecret(secret string) error {
	if secret == "" {
		return ErrEmptyAPISecret
	}
	if len(secret) > maxAPIKeyLength {
		return ErrAPIKeyTooLong
	}
	for _, r := range secret {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrInvalidAPIKey
		}
	}
	return nil
}
