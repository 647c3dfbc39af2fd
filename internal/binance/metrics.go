package binance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики REST клиента Binance

// requestDuration - длительность REST запросов к Binance
var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "dashboard",
		Subsystem: "binance",
		Name:      "request_duration_ms",
		Help:      "Duration of Binance REST requests in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	},
	[]string{"method"},
)

// requestErrors - количество неуспешных запросов по классам ошибок
var requestErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "binance",
		Name:      "request_errors_total",
		Help:      "Total number of failed Binance REST requests by error kind",
	},
	[]string{"kind"},
)
