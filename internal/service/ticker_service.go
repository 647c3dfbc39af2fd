package service

import (
	"context"
	"sync"
	"time"
)

// TickerQuote - цена символа с возрастом данных
type TickerQuote struct {
	Symbol    string    `json:"symbol"`
	Price     string    `json:"price"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale,omitempty"` // отдан старый кэш после неудачного refetch
}

// cachedQuote - явный объект кэша {timestamp, payload}
type cachedQuote struct {
	fetchedAt time.Time
	quote     TickerQuote
}

// TickerService - кэш цен с коротким TTL, ограничивающий частоту
// обращений к Binance.
//
// Кэш - собственное поле сервиса, без глобального состояния.
// Чтение вне окна TTL запускает refetch; неудачный refetch отдает
// последнее хорошее значение, а при его отсутствии - ошибку
// fetch_failed. Никогда не паникует.
type TickerService struct {
	api  BinanceAPI
	base string
	ttl  time.Duration

	mu    sync.Mutex
	cache map[string]cachedQuote
}

// NewTickerService создает новый экземпляр сервиса
func NewTickerService(api BinanceAPI, base string, ttl time.Duration) *TickerService {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &TickerService{
		api:   api,
		base:  base,
		ttl:   ttl,
		cache: make(map[string]cachedQuote),
	}
}

// GetPrice возвращает цену символа, используя кэш в пределах TTL
func (s *TickerService) GetPrice(ctx context.Context, symbol string) (TickerQuote, error) {
	s.mu.Lock()
	cached, ok := s.cache[symbol]
	s.mu.Unlock()

	if ok && time.Since(cached.fetchedAt) <= s.ttl {
		return cached.quote, nil
	}

	ticker, err := s.api.GetPrice(ctx, s.base, symbol)
	if err != nil {
		// Refetch не удался: отдаем последнее хорошее значение, если есть
		if ok {
			stale := cached.quote
			stale.Stale = true
			return stale, nil
		}
		return TickerQuote{}, err
	}

	quote := TickerQuote{
		Symbol:    ticker.Symbol,
		Price:     ticker.Price,
		FetchedAt: time.Now(),
	}

	s.mu.Lock()
	s.cache[symbol] = cachedQuote{fetchedAt: quote.FetchedAt, quote: quote}
	s.mu.Unlock()

	return quote, nil
}
