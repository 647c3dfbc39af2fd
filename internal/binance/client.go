package binance

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"dashboard/internal/models"
	"dashboard/pkg/ratelimit"
)

// json - drop-in замена encoding/json для горячих путей декодирования
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Заголовок аутентификации Binance
const apiKeyHeader = "X-MBX-APIKEY"

// Client - клиент Binance Spot REST API.
// Не хранит учетные данные: ключ и секрет передаются на каждый вызов
// и живут не дольше одного запроса.
type Client struct {
	http         *HTTPClient
	limiter      *ratelimit.RateLimiter
	recvWindowMs int64
}

// NewClient создает новый REST клиент
func NewClient(httpClient *HTTPClient, limiter *ratelimit.RateLimiter, recvWindowMs int64) *Client {
	if recvWindowMs <= 0 {
		recvWindowMs = 5000
	}
	return &Client{
		http:         httpClient,
		limiter:      limiter,
		recvWindowMs: recvWindowMs,
	}
}

// do выполняет запрос, проверяет статус и классифицирует сбой.
// kind определяет класс ошибки для вызывающей стороны
// (fetch_failed / start_failed / keepalive_failed).
func (c *Client) do(ctx context.Context, method, reqURL, apiKey, kind string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Kind: kind, Message: "rate limiter: " + err.Error(), Original: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, &APIError{Kind: kind, Message: err.Error(), Original: err}
	}
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		requestErrors.WithLabelValues(kind).Inc()
		return nil, &APIError{Kind: kind, Message: err.Error(), Original: err}
	}
	defer resp.Body.Close()

	requestDuration.WithLabelValues(method).Observe(float64(time.Since(start).Milliseconds()))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		requestErrors.WithLabelValues(kind).Inc()
		return nil, &APIError{Kind: kind, Status: resp.StatusCode, Message: err.Error(), Original: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		requestErrors.WithLabelValues(kind).Inc()
		return nil, &APIError{
			Kind:    kind,
			Status:  resp.StatusCode,
			Message: string(body),
		}
	}

	return body, nil
}

// SignedGet выполняет подписанный GET запрос: добавляет timestamp и
// recvWindow, подписывает закодированную строку запроса и передает
// API ключ в заголовке. Non-2xx ответы классифицируются как fetch_failed.
func (c *Client) SignedGet(ctx context.Context, base, path, apiKey, apiSecret string, params url.Values) ([]byte, error) {
	qs := SignedQuery(apiSecret, params, c.recvWindowMs)
	return c.do(ctx, http.MethodGet, base+path+"?"+qs, apiKey, KindFetchFailed)
}

// GetAccount возвращает сырой снимок аккаунта (/v3/account, подписанный)
func (c *Client) GetAccount(ctx context.Context, base, apiKey, apiSecret string) ([]byte, error) {
	return c.SignedGet(ctx, base, "/v3/account", apiKey, apiSecret, nil)
}

// TickerPrice - ответ публичного эндпоинта /v3/ticker/price
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetPrice возвращает текущую цену символа (публичный, без подписи)
func (c *Client) GetPrice(ctx context.Context, base, symbol string) (*TickerPrice, error) {
	query := url.Values{}
	query.Set("symbol", symbol)

	body, err := c.do(ctx, http.MethodGet, base+"/v3/ticker/price?"+query.Encode(), "", KindFetchFailed)
	if err != nil {
		return nil, err
	}

	var ticker TickerPrice
	if err := json.Unmarshal(body, &ticker); err != nil {
		return nil, &APIError{Kind: KindFetchFailed, Message: "malformed ticker response", Original: err}
	}
	return &ticker, nil
}

// rawBalance - запись баланса в сыром снимке аккаунта
type rawBalance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// ExtractBalances разбирает массив balances сырого снимка аккаунта.
// Записи с нечисловыми полями молча пропускаются, остаются записи
// с free > minFree или locked > 0.
func ExtractBalances(accountJSON []byte, minFree float64) []models.Balance {
	var account struct {
		Balances []rawBalance `json:"balances"`
	}
	if err := json.Unmarshal(accountJSON, &account); err != nil {
		return nil
	}

	out := make([]models.Balance, 0, 8)
	for _, b := range account.Balances {
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			continue
		}
		locked, err := strconv.ParseFloat(b.Locked, 64)
		if err != nil {
			continue
		}
		if free > minFree || locked > 0 {
			out = append(out, models.Balance{Asset: b.Asset, Free: free, Locked: locked})
		}
	}
	return out
}
