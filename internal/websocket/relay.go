package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"dashboard/internal/api/middleware"
	"dashboard/internal/models"
	"dashboard/internal/repository"
	"dashboard/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Время ожидания записи сообщения
	writeWait = 10 * time.Second

	// Время ожидания pong от downstream клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping сообщений (должен быть меньше pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Binance шлет ping сам; мост только отвечает pong и считает
	// поток мертвым после длительного молчания
	upstreamIdleTimeout = 10 * time.Minute

	// Максимальный размер кадра в обе стороны
	maxMessageSize = 65536

	// Окно бездействия, после которого Binance считает listen key мертвым
	listenKeyMaxAge = 60 * time.Minute
)

// OriginChecker проверяет Origin с O(1) lookup через map.
// Потокобезопасен для чтения после инициализации.
type OriginChecker struct {
	allowedOrigins map[string]struct{}
	allowAll       bool
}

var originChecker = initOriginChecker()

func initOriginChecker() *OriginChecker {
	checker := &OriginChecker{
		allowedOrigins: make(map[string]struct{}),
	}

	// Читаем из переменной окружения (comma-separated)
	// Пример: ALLOWED_ORIGINS=http://localhost:3000,https://example.com
	envOrigins := os.Getenv("ALLOWED_ORIGINS")

	if envOrigins == "" || envOrigins == "*" {
		checker.allowAll = true
	} else {
		for _, origin := range strings.Split(envOrigins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				checker.allowedOrigins[origin] = struct{}{}
			}
		}
	}

	return checker
}

// Check проверяет origin за O(1)
func (oc *OriginChecker) Check(origin string) bool {
	if origin == "" {
		return true // non-browser клиенты (curl, тесты)
	}
	if oc.allowAll {
		return true
	}
	_, ok := oc.allowedOrigins[origin]
	return ok
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return originChecker.Check(r.Header.Get("Origin"))
	},
	EnableCompression: true,
}

// Relay - шлюз между браузерным WebSocket клиентом и user data stream
// Binance.
//
// На каждое downstream соединение открывается ровно одно upstream
// соединение wss://.../ws/<listenKey>; кадры пробрасываются в обе
// стороны. Мост живет, пока живы обе стороны: обрыв любой из них
// завершает мост, автоматических переподключений нет.
//
// Протокол к клиенту, фиксированный порядок при успехе:
// hello -> status(connected=false) -> status(connected=true) -> binance_event*
//
// Проверки перед подключением выполняются в строгом порядке:
// окружение -> аутентификация -> профиль -> listen key. Каждый отказ
// отправляется сообщением error с машинным кодом и закрывает
// соединение кодом 1008 (policy violation); внутренние сбои
// закрывают кодом 1011.
type Relay struct {
	auth        *middleware.Authenticator
	profileRepo service.ProfileRepositoryInterface
	streamBase  string // ws:// или wss:// база без завершающего /
	log         *zap.Logger
	dialer      *websocket.Dialer
}

// NewRelay создает новый Relay
func NewRelay(auth *middleware.Authenticator, profileRepo service.ProfileRepositoryInterface, streamBase string, log *zap.Logger) *Relay {
	return &Relay{
		auth:        auth,
		profileRepo: profileRepo,
		streamBase:  strings.TrimRight(streamBase, "/"),
		log:         log,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// ServeWS обрабатывает WebSocket запросы клиентов
// GET /ws/stream?env=testnet&token=<token>
//
// Использование в routes:
// router.HandleFunc("/ws/stream", relay.ServeWS)
func (rl *Relay) ServeWS(w http.ResponseWriter, r *http.Request) {
	env := r.URL.Query().Get("env")
	if env == "" {
		env = models.EnvTestnet
	}

	down, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rl.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	b := &bridge{env: env, down: down, log: rl.log}

	// hello уходит первым, до любых проверок
	if err := b.writeJSON(newHello()); err != nil {
		_ = down.Close()
		return
	}

	if env != models.EnvTestnet {
		b.reject(service.CodeUnsupportedEnv, websocket.ClosePolicyViolation)
		return
	}

	email, ok := rl.auth.ResolveRequest(r)
	if !ok {
		b.reject(service.CodeNotAuthenticated, websocket.ClosePolicyViolation)
		return
	}

	profile, err := rl.profileRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			b.reject(service.CodeNoProfile, websocket.ClosePolicyViolation)
		} else {
			rl.log.Error("profile lookup failed", zap.String("email", email), zap.Error(err))
			b.reject(service.CodeInternalError, websocket.CloseInternalServerErr)
		}
		return
	}

	listenKey := profile.ListenKey(env)
	if listenKey == "" {
		b.reject(service.CodeNoListenKey, websocket.ClosePolicyViolation)
		return
	}

	// Binance гасит listen key молча после часа без keepalive.
	// Подключение все равно выполняется: фактическое состояние ключа
	// видно только по результату dial.
	if repository.StaleListenKey(profile.TestnetListenKeyUpdated, listenKeyMaxAge) {
		rl.log.Warn("listen key possibly stale", zap.String("email", email), zap.String("env", env))
	}

	_ = b.writeJSON(newStatus(false, env, PhaseConnecting))

	up, resp, err := rl.dialer.Dial(rl.streamBase+"/ws/"+listenKey, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		rl.log.Error("upstream dial failed",
			zap.String("email", email),
			zap.Int("status", status),
			zap.Error(err),
		)
		b.reject(service.CodeInternalError, websocket.CloseInternalServerErr)
		return
	}
	b.up = up

	_ = b.writeJSON(newStatus(true, env, PhaseConnected))

	rl.log.Info("bridge established", zap.String("email", email), zap.String("env", env))
	activeBridges.Inc()
	b.run()
	activeBridges.Dec()
	rl.log.Info("bridge closed", zap.String("email", email), zap.String("env", env))
}

// bridge - одно активное downstream-upstream соединение.
// Все записи в downstream сериализуются через writeMu: в сокет пишут
// насос upstream кадров, ping loop и отказы.
type bridge struct {
	env  string
	log  *zap.Logger
	down *websocket.Conn
	up   *websocket.Conn

	writeMu sync.Mutex
}

// writeJSON отправляет сообщение downstream клиенту
func (b *bridge) writeJSON(v interface{}) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = b.down.SetWriteDeadline(time.Now().Add(writeWait))
	return b.down.WriteJSON(v)
}

// reject отправляет error сообщение и закрывает downstream соединение
func (b *bridge) reject(code string, closeCode int) {
	bridgeRejections.WithLabelValues(code).Inc()
	_ = b.writeJSON(newError(code))
	b.closeDown(closeCode, code)
}

// closeDown отправляет close кадр и закрывает downstream сокет
func (b *bridge) closeDown(closeCode int, text string) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(closeCode, text)
	_ = b.down.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = b.down.Close()
}

// run гоняет кадры в обе стороны до обрыва любой из сторон
func (b *bridge) run() {
	stop := make(chan struct{})
	errc := make(chan error, 2)

	go func() { errc <- b.pumpFromUpstream() }()
	go func() { errc <- b.pumpFromDownstream() }()
	go b.pingLoop(stop)

	// Первый обрыв завершает мост; закрытие сокетов выбивает второй
	// насос из блокирующего чтения
	err := <-errc
	close(stop)
	_ = b.up.Close()

	// Штатное закрытие завершает мост молча. Любой другой сбой,
	// включая сетевые ошибки и таймауты без close кадра, сообщается
	// error конвертом (best effort: клиент мог уже отвалиться)
	// и кодом 1011.
	if gracefulClose(err) {
		b.closeDown(websocket.CloseNormalClosure, "")
	} else {
		b.log.Warn("bridge terminated with error", zap.Error(err))
		_ = b.writeJSON(newError(service.CodeInternalError))
		b.closeDown(websocket.CloseInternalServerErr, service.CodeInternalError)
	}
	<-errc
}

// gracefulClose отличает штатное завершение потока от сбоя.
// Штатным считается только close кадр с кодом 1000 или 1001.
func gracefulClose(err error) bool {
	if err == nil {
		return true
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}

// pumpFromUpstream читает кадры user data stream и пробрасывает их
// клиенту внутри binance_event конвертов
func (b *bridge) pumpFromUpstream() error {
	b.up.SetReadLimit(maxMessageSize)
	_ = b.up.SetReadDeadline(time.Now().Add(upstreamIdleTimeout))
	b.up.SetPingHandler(func(appData string) error {
		_ = b.up.SetReadDeadline(time.Now().Add(upstreamIdleTimeout))
		return b.up.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, frame, err := b.up.ReadMessage()
		if err != nil {
			return err
		}
		_ = b.up.SetReadDeadline(time.Now().Add(upstreamIdleTimeout))

		// Недекодируемый кадр не роняет мост, а оборачивается как есть
		data := json.RawMessage(frame)
		if !json.Valid(frame) {
			wrapped, merr := json.Marshal(map[string]string{"raw": string(frame)})
			if merr != nil {
				continue
			}
			data = wrapped
		}

		if err := b.writeJSON(newBinanceEvent(b.env, data)); err != nil {
			return err
		}
		relayedFrames.WithLabelValues("downstream").Inc()
	}
}

// pumpFromDownstream пробрасывает текстовые кадры клиента в Binance
func (b *bridge) pumpFromDownstream() error {
	b.down.SetReadLimit(maxMessageSize)
	_ = b.down.SetReadDeadline(time.Now().Add(pongWait))
	b.down.SetPongHandler(func(string) error {
		_ = b.down.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, frame, err := b.down.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}

		_ = b.up.SetWriteDeadline(time.Now().Add(writeWait))
		if err := b.up.WriteMessage(websocket.TextMessage, frame); err != nil {
			return err
		}
		relayedFrames.WithLabelValues("upstream").Inc()
	}
}

// pingLoop поддерживает downstream соединение живым
func (b *bridge) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.writeMu.Lock()
			err := b.down.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			b.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
