// Package binance реализует REST и user data stream API Binance Spot
// для mainnet и testnet окружений.
package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// Sign создает HMAC-SHA256 подпись над точной URL-encoded строкой запроса.
// Ключ - UTF-8 байты секрета, выход - hex digest.
// Подпись детерминирована для одной и той же закодированной строки.
func Sign(secret, queryString string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(queryString))
	return hex.EncodeToString(h.Sum(nil))
}

// SignedQuery строит подписанную строку запроса: добавляет к параметрам
// свежий timestamp (миллисекунды, генерируется на каждый вызов) и
// recvWindow, кодирует, подписывает ровно ту строку, которая будет
// отправлена, и присоединяет подпись последним параметром.
// Переданные params не изменяются.
func SignedQuery(secret string, params url.Values, recvWindowMs int64) string {
	signed := make(url.Values, len(params)+2)
	for key, values := range params {
		signed[key] = values
	}
	signed.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	signed.Set("recvWindow", strconv.FormatInt(recvWindowMs, 10))

	qs := signed.Encode()
	signature := Sign(secret, qs)
	return qs + "&signature=" + signature
}
