package services

import (
	"corewatch/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics exports stream and reconciliation counters. A nil
// *StreamMetrics is valid and records nothing.
type StreamMetrics struct {
	framesReceived     *prometheus.CounterVec
	failures           *prometheus.CounterVec
	reconnects         *prometheus.CounterVec
	streamState        *prometheus.GaugeVec
	connectionsAlive   prometheus.Gauge
	connectionsTracked prometheus.Gauge
	reconcileChanges   prometheus.Counter
}

// NewStreamMetrics creates and registers the collectors on reg
func NewStreamMetrics(reg prometheus.Registerer) (*StreamMetrics, error) {
	m := &StreamMetrics{
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corewatch",
			Subsystem: "stream",
			Name:      "frames_received_total",
			Help:      "Frames received per channel",
		}, []string{"channel"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corewatch",
			Subsystem: "stream",
			Name:      "failures_total",
			Help:      "Stream failures per channel and kind",
		}, []string{"channel", "kind"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corewatch",
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Scheduled reconnects that fired",
		}, []string{"channel"}),
		streamState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "corewatch",
			Subsystem: "stream",
			Name:      "state",
			Help:      "1 for the current lifecycle state of each channel",
		}, []string{"channel", "state"}),
		connectionsAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "corewatch",
			Subsystem: "connections",
			Name:      "alive",
			Help:      "Connections currently alive",
		}),
		connectionsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "corewatch",
			Subsystem: "connections",
			Name:      "tracked",
			Help:      "Connections in the table, alive or dead",
		}),
		reconcileChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corewatch",
			Subsystem: "connections",
			Name:      "reconcile_changes_total",
			Help:      "Snapshots that changed the connection table",
		}),
	}

	collectors := []prometheus.Collector{
		m.framesReceived, m.failures, m.reconnects, m.streamState,
		m.connectionsAlive, m.connectionsTracked, m.reconcileChanges,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *StreamMetrics) frame(channel models.Channel) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(string(channel)).Inc()
}

func (m *StreamMetrics) failure(channel models.Channel, kind ErrorKind) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(channel), kind.String()).Inc()
}

func (m *StreamMetrics) reconnect(channel models.Channel) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(string(channel)).Inc()
}

func (m *StreamMetrics) state(channel models.Channel, state models.StreamState) {
	if m == nil {
		return
	}
	for _, s := range []models.StreamState{
		models.StateDisconnected, models.StateConnecting, models.StateConnected,
		models.StateError, models.StatePaused,
	} {
		v := 0.0
		if s == state {
			v = 1
		}
		m.streamState.WithLabelValues(string(channel), string(s)).Set(v)
	}
}

func (m *StreamMetrics) table(alive, tracked int, changed bool) {
	if m == nil {
		return
	}
	m.connectionsAlive.Set(float64(alive))
	m.connectionsTracked.Set(float64(tracked))
	if changed {
		m.reconcileChanges.Inc()
	}
}
