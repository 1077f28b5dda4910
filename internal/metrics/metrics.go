package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the trivia service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	Answers          *prometheus.CounterVec
	GamesStarted     prometheus.Counter
	GamesFinished    prometheus.Counter
	ActiveGames      prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trivia",
				Name:      "upstream_requests_total",
				Help:      "Requests to the trivia API by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		Answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trivia",
				Name:      "answers_total",
				Help:      "Recorded answers by question difficulty and outcome",
			},
			[]string{"difficulty", "outcome"},
		),
		GamesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "games_started_total",
			Help:      "Games started",
		}),
		GamesFinished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "games_finished_total",
			Help:      "Games that reached game over",
		}),
		ActiveGames: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "trivia",
			Name:      "active_games",
			Help:      "Games currently held in memory",
		}),
	}
}

func (m *Metrics) ObserveUpstream(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) ObserveAnswer(difficulty string, correct bool) {
	if m == nil {
		return
	}
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	m.Answers.WithLabelValues(difficulty, outcome).Inc()
}

func (m *Metrics) GameStarted() {
	if m == nil {
		return
	}
	m.GamesStarted.Inc()
	m.ActiveGames.Inc()
}

func (m *Metrics) GameEnded(finished bool) {
	if m == nil {
		return
	}
	if finished {
		m.GamesFinished.Inc()
	}
	m.ActiveGames.Dec()
}
