package websocket

import (
	"encoding/json"
	"time"
)

// MessageType определяет тип исходящего WebSocket сообщения
type MessageType string

// Типы сообщений моста.
// Порядок при успешном подключении фиксирован:
// hello -> status(connected=false) -> status(connected=true) -> binance_event*
const (
	// MessageTypeHello - первое сообщение после upgrade, до любых проверок
	MessageTypeHello MessageType = "hello"

	// MessageTypeStatus - состояние моста к Binance
	MessageTypeStatus MessageType = "status"

	// MessageTypeBinanceEvent - кадр user data stream, проброшенный с Binance
	MessageTypeBinanceEvent MessageType = "binance_event"

	// MessageTypeError - отказ с машинным кодом, отправляется перед close
	MessageTypeError MessageType = "error"
)

// Фазы моста для status сообщений
const (
	PhaseConnecting = "connecting_upstream"
	PhaseConnected  = "connected"
)

// BaseMessage - базовая структура для всех сообщений моста
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// HelloMessage подтверждает установку соединения
type HelloMessage struct {
	BaseMessage
}

// StatusMessage описывает состояние моста к Binance
type StatusMessage struct {
	BaseMessage
	Connected bool   `json:"connected"`
	Env       string `json:"env"`
	Phase     string `json:"phase"`
}

// BinanceEventMessage - кадр upstream потока.
// Data содержит исходный JSON кадра; кадры, которые не декодируются
// как JSON, оборачиваются объектом {"raw": "<текст>"}.
type BinanceEventMessage struct {
	BaseMessage
	Env  string          `json:"env"`
	Data json.RawMessage `json:"data"`
}

// ErrorMessage - отказ моста с машинным кодом
type ErrorMessage struct {
	BaseMessage
	Error string `json:"error"`
}

func newHello() HelloMessage {
	return HelloMessage{BaseMessage{Type: MessageTypeHello, Timestamp: time.Now()}}
}

func newStatus(connected bool, env, phase string) StatusMessage {
	return StatusMessage{
		BaseMessage: BaseMessage{Type: MessageTypeStatus, Timestamp: time.Now()},
		Connected:   connected,
		Env:         env,
		Phase:       phase,
	}
}

func newBinanceEvent(env string, data json.RawMessage) BinanceEventMessage {
	return BinanceEventMessage{
		BaseMessage: BaseMessage{Type: MessageTypeBinanceEvent, Timestamp: time.Now()},
		Env:         env,
		Data:        data,
	}
}

func newError(code string) ErrorMessage {
	return ErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeError, Timestamp: time.Now()},
		Error:       code,
	}
}
