package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	QueueLength     *prometheus.GaugeVec
	LobbiesActive   prometheus.Gauge
	Connections     prometheus.Gauge
	LobbiesFormed   *prometheus.CounterVec
	MatchesStarted  *prometheus.CounterVec
	ChatMessages    prometheus.Counter
	PlayersRemoved  prometheus.Counter
	Reconnects      prometheus.Counter
	SlowClientDrops prometheus.Counter
	TaskFailures    *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg leaves them unregistered, which
// tests use to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "matchqueue_queue_length",
			Help: "Players waiting in the queue per game.",
		}, []string{"game"}),
		LobbiesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matchqueue_lobbies_active",
			Help: "Lobbies currently held in memory.",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matchqueue_connections",
			Help: "Live realtime connections.",
		}),
		LobbiesFormed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchqueue_lobbies_formed_total",
			Help: "Lobbies formed from the queue.",
		}, []string{"game"}),
		MatchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchqueue_matches_started_total",
			Help: "All-ready transitions.",
		}, []string{"game"}),
		ChatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchqueue_chat_messages_total",
			Help: "Accepted lobby chat messages.",
		}),
		PlayersRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchqueue_players_removed_total",
			Help: "Players removed after the disconnect grace window.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchqueue_reconnects_total",
			Help: "Lobby joins that cancelled a pending removal.",
		}),
		SlowClientDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchqueue_slow_client_drops_total",
			Help: "Connections dropped because their outbox was full.",
		}),
		TaskFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchqueue_detached_task_failures_total",
			Help: "Persistence tasks that failed or were dropped.",
		}, []string{"task"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.QueueLength,
			m.LobbiesActive,
			m.Connections,
			m.LobbiesFormed,
			m.MatchesStarted,
			m.ChatMessages,
			m.PlayersRemoved,
			m.Reconnects,
			m.SlowClientDrops,
			m.TaskFailures,
		)
	}
	return m
}

// SetQueue replaces the per-game queue gauges.
func (m *Metrics) SetQueue(byGame map[string]int) {
	m.QueueLength.Reset()
	for game, n := range byGame {
		m.QueueLength.WithLabelValues(game).Set(float64(n))
	}
}
