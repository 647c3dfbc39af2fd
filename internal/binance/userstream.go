package binance

import (
	"context"
	"net/http"
	"net/url"
)

// Эндпоинт user data stream. base уже оканчивается на /api,
// поэтому полный путь - {base}/v3/userDataStream.
const userDataStreamPath = "/v3/userDataStream"

// StartUserStream создает listenKey для user data stream.
// Запрос не подписывается, аутентификация только API ключом в заголовке.
// Отсутствие поля listenKey в ответе - фатальная ошибка start_failed.
func (c *Client) StartUserStream(ctx context.Context, base, apiKey string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, base+userDataStreamPath, apiKey, KindStartFailed)
	if err != nil {
		return "", err
	}

	var resp struct {
		ListenKey string `json:"listenKey"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &APIError{Kind: KindStartFailed, Message: "malformed userDataStream response", Original: err}
	}
	if resp.ListenKey == "" {
		return "", &APIError{Kind: KindStartFailed, Message: "no listenKey returned"}
	}
	return resp.ListenKey, nil
}

// KeepaliveUserStream продлевает listenKey.
// PUT {base}/v3/userDataStream?listenKey=... с API ключом в заголовке.
// Non-2xx классифицируется как keepalive_failed; значение ключа не меняется.
func (c *Client) KeepaliveUserStream(ctx context.Context, base, apiKey, listenKey string) error {
	query := url.Values{}
	query.Set("listenKey", listenKey)

	_, err := c.do(ctx, http.MethodPut, base+userDataStreamPath+"?"+query.Encode(), apiKey, KindKeepaliveFailed)
	return err
}
