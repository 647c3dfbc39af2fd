package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dashboard/pkg/utils"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Binance  BinanceConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// Ключ для шифрования API ключей перед записью в БД (AES-256)
	EncryptionKey string

	// Статические токены доступа в формате "token1:email1,token2:email2".
	// Идентичность вычисляется один раз на запрос/подключение.
	AuthTokens map[string]string
}

// BinanceConfig - адреса и параметры Binance API
type BinanceConfig struct {
	MainnetRestBase   string        // базовый REST URL mainnet (оканчивается на /api)
	TestnetRestBase   string        // базовый REST URL testnet (оканчивается на /api)
	TestnetStreamBase string        // базовый WebSocket URL testnet user data stream
	RecvWindowMs      int64         // recvWindow для подписанных запросов
	HTTPTimeout       time.Duration // таймаут одного REST запроса
	TickerTTL         time.Duration // TTL кэша тикера
	AssetAllowlist    []string      // активы, отдаваемые в ответе балансов
	RateLimit         float64       // лимит REST запросов к Binance, req/sec
	RateBurst         float64       // burst для token bucket
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "dashboard"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
			AuthTokens:    parseAuthTokens(getEnv("AUTH_TOKENS", "")),
		},
		Binance: BinanceConfig{
			MainnetRestBase:   getEnv("BINANCE_MAINNET_REST", "https://api.binance.com/api"),
			TestnetRestBase:   getEnv("BINANCE_TESTNET_REST", "https://testnet.binance.vision/api"),
			TestnetStreamBase: getEnv("BINANCE_TESTNET_STREAM", "wss://stream.testnet.binance.vision"),
			RecvWindowMs:      int64(getEnvAsInt("BINANCE_RECV_WINDOW_MS", 5000)),
			HTTPTimeout:       getEnvAsDuration("BINANCE_HTTP_TIMEOUT", 5*time.Second),
			TickerTTL:         getEnvAsDuration("TICKER_CACHE_TTL", 5*time.Second),
			AssetAllowlist:    parseList(getEnv("ASSET_ALLOWLIST", "BTC,ETH,BNB,USDT")),
			RateLimit:         float64(getEnvAsInt("BINANCE_RATE_LIMIT", 10)),
			RateBurst:         float64(getEnvAsInt("BINANCE_RATE_BURST", 20)),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// ENCRYPTION_KEY обязателен для шифрования API ключей
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required for encrypting API keys")
	}

	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	for token, email := range c.Security.AuthTokens {
		if err := utils.ValidateEmail(email); err != nil {
			return fmt.Errorf("AUTH_TOKENS: invalid email for token %s...: %w", maskToken(token), err)
		}
	}

	return nil
}

// maskToken оставляет короткий префикс токена для сообщений об ошибках
func maskToken(token string) string {
	if len(token) <= 4 {
		return token
	}
	return token[:4]
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Binance.HTTPTimeout <= 0 {
		return fmt.Errorf("BINANCE_HTTP_TIMEOUT must be positive, got %v", c.Binance.HTTPTimeout)
	}

	if c.Binance.TickerTTL <= 0 {
		return fmt.Errorf("TICKER_CACHE_TTL must be positive, got %v", c.Binance.TickerTTL)
	}

	if c.Binance.RecvWindowMs < 1 || c.Binance.RecvWindowMs > 60000 {
		return fmt.Errorf("BINANCE_RECV_WINDOW_MS must be between 1 and 60000, got %d", c.Binance.RecvWindowMs)
	}

	return nil
}

// RestBase возвращает базовый REST URL для окружения ("" для неизвестного)
func (b BinanceConfig) RestBase(env string) string {
	switch env {
	case "mainnet":
		return b.MainnetRestBase
	case "testnet":
		return b.TestnetRestBase
	default:
		return ""
	}
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// parseAuthTokens разбирает строку "token:email,token:email"
func parseAuthTokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.IndexByte(pair, ':')
		if idx <= 0 || idx == len(pair)-1 {
			continue
		}
		tokens[pair[:idx]] = pair[idx+1:]
	}
	return tokens
}

// parseList разбирает comma-separated список
func parseList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
