// Package metrics exposes Prometheus metrics for countd.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryzhenkov/countd/internal/domain"
	"github.com/ryzhenkov/countd/internal/eventbus"
	"github.com/ryzhenkov/countd/internal/logger"
)

// MetricsService tracks timer state, broadcast volume and failure counts.
type MetricsService struct {
	eventBus *eventbus.EventBus

	// Counters
	controlOpsTotal    *prometheus.CounterVec
	expirationsTotal   prometheus.Counter
	persistFailures    prometheus.Counter
	broadcastsTotal    prometheus.Counter
	notificationsTotal *prometheus.CounterVec

	// Gauges
	timerSeconds     prometheus.Gauge
	timerRunning     prometheus.Gauge
	connectedClients prometheus.Gauge
}

// NewMetricsService creates and registers Prometheus metrics
func NewMetricsService(eb *eventbus.EventBus) *MetricsService {
	m := &MetricsService{
		eventBus: eb,

		controlOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "countd_control_operations_total",
				Help: "Total number of timer control operations by type",
			},
			[]string{"operation"}, // started, paused, reset, adjusted, set
		),

		expirationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "countd_timer_expirations_total",
				Help: "Total number of times the countdown reached zero",
			},
		),

		persistFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "countd_persist_failures_total",
				Help: "Total number of failed state snapshot writes",
			},
		),

		broadcastsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "countd_broadcasts_total",
				Help: "Total number of tick broadcasts to subscribers",
			},
		),

		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "countd_notifications_total",
				Help: "Total number of expiry notifications sent by outcome",
			},
			[]string{"outcome"}, // sent, failed
		),

		timerSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "countd_timer_seconds",
				Help: "Remaining countdown time in seconds",
			},
		),

		timerRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "countd_timer_running",
				Help: "Whether the countdown is running (1) or paused (0)",
			},
		),

		connectedClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "countd_connected_clients",
				Help: "Number of currently connected push subscribers",
			},
		),
	}

	prometheus.MustRegister(
		m.controlOpsTotal,
		m.expirationsTotal,
		m.persistFailures,
		m.broadcastsTotal,
		m.notificationsTotal,
		m.timerSeconds,
		m.timerRunning,
		m.connectedClients,
	)

	return m
}

// Start subscribes to events and updates metrics
func (m *MetricsService) Start() {
	m.eventBus.Subscribe(domain.TimerStarted, m.timerEventHandler("started"))
	m.eventBus.Subscribe(domain.TimerPaused, m.timerEventHandler("paused"))
	m.eventBus.Subscribe(domain.TimerReset, m.timerEventHandler("reset"))
	m.eventBus.Subscribe(domain.TimerAdjusted, m.timerEventHandler("adjusted"))
	m.eventBus.Subscribe(domain.TimerSet, m.timerEventHandler("set"))
	m.eventBus.Subscribe(domain.TimerExpired, m.handleTimerExpired)
	m.eventBus.Subscribe(domain.SnapshotSaveFailed, m.handleSnapshotSaveFailed)
	m.eventBus.Subscribe(domain.ClientConnected, m.handleClientConnected)
	m.eventBus.Subscribe(domain.ClientDisconnected, m.handleClientDisconnected)
	m.eventBus.Subscribe(domain.NotificationSent, m.handleNotificationSent)
	m.eventBus.Subscribe(domain.NotificationFailed, m.handleNotificationFailed)

	logger.Infof("Metrics service started")
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (m *MetricsService) Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveState records the current timer state. Called by the broadcast
// path so the gauges follow every tick.
func (m *MetricsService) ObserveState(seconds int, running bool) {
	m.timerSeconds.Set(float64(seconds))
	if running {
		m.timerRunning.Set(1)
	} else {
		m.timerRunning.Set(0)
	}
	m.broadcastsTotal.Inc()
}

// Event handlers

func (m *MetricsService) timerEventHandler(operation string) func(domain.Event) {
	return func(event domain.Event) {
		m.controlOpsTotal.WithLabelValues(operation).Inc()
		m.applyStateFromEvent(event)
	}
}

func (m *MetricsService) handleTimerExpired(event domain.Event) {
	m.expirationsTotal.Inc()
	m.applyStateFromEvent(event)
}

func (m *MetricsService) handleSnapshotSaveFailed(event domain.Event) {
	m.persistFailures.Inc()
}

func (m *MetricsService) handleClientConnected(event domain.Event) {
	m.connectedClients.Inc()
}

func (m *MetricsService) handleClientDisconnected(event domain.Event) {
	m.connectedClients.Dec()
}

func (m *MetricsService) handleNotificationSent(event domain.Event) {
	m.notificationsTotal.WithLabelValues("sent").Inc()
}

func (m *MetricsService) handleNotificationFailed(event domain.Event) {
	m.notificationsTotal.WithLabelValues("failed").Inc()
}

func (m *MetricsService) applyStateFromEvent(event domain.Event) {
	if seconds, ok := event.EventData["seconds"].(int); ok {
		m.timerSeconds.Set(float64(seconds))
	}
	if running, ok := event.EventData["running"].(bool); ok {
		if running {
			m.timerRunning.Set(1)
		} else {
			m.timerRunning.Set(0)
		}
	}
}
