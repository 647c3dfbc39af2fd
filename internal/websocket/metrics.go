package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики моста user data stream
var (
	activeBridges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard",
		Subsystem: "relay",
		Name:      "active_bridges",
		Help:      "Number of currently open downstream-upstream bridges.",
	})

	relayedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "relay",
		Name:      "frames_total",
		Help:      "Frames relayed across the bridge by direction.",
	}, []string{"direction"}) // upstream / downstream

	bridgeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "relay",
		Name:      "rejections_total",
		Help:      "Bridge handshakes rejected before connecting upstream.",
	}, []string{"code"})
)
