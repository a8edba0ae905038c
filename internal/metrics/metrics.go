// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelVariant = "variant"
	labelOutcome = "outcome"
)

// Metric names follow boardshow_<name>.

var (
	activeGames = promauto.NewGauge(prometheus.GaugeOpts{Name: "boardshow_active_games", Help: "Games currently running"})
	gamesTotal  = newCounter("boardshow_games_total", "Finished games by outcome", labelOutcome)
	turnsTotal  = promauto.NewCounter(prometheus.CounterOpts{Name: "boardshow_turns_total", Help: "Turns taken"})

	bombsTotal     = newCounter("boardshow_bombs_total", "Bombs detonated by variant", labelVariant)
	eventsTotal    = newCounter("boardshow_events_total", "Events triggered by variant", labelVariant)
	minigamesTotal = newCounter("boardshow_minigames_total", "Minigame sessions by variant and outcome", labelVariant, labelOutcome)

	minigamePayout = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boardshow_minigame_payout",
		Help:    "Money credited from minigames",
		Buckets: prometheus.ExponentialBuckets(10_000, 4, 8),
	}, []string{labelVariant})
)

func newCounter(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

// GameStarted marks a game as running.
func GameStarted() { activeGames.Inc() }

// GameEnded records a finished game. Only call it for games that started.
func GameEnded(aborted bool) {
	activeGames.Dec()
	outcome := "completed"
	if aborted {
		outcome = "aborted"
	}
	gamesTotal.WithLabelValues(outcome).Inc()
}

// Turn counts one turn.
func Turn() { turnsTotal.Inc() }

// Bomb counts a detonation.
func Bomb(variant string) { bombsTotal.WithLabelValues(variant).Inc() }

// Event counts a triggered event.
func Event(variant string) { eventsTotal.WithLabelValues(variant).Inc() }

// Minigame records a finished session and what it paid.
func Minigame(variant string, payout int, aborted bool) {
	outcome := "finished"
	if aborted {
		outcome = "aborted"
	}
	minigamesTotal.WithLabelValues(variant, outcome).Inc()
	minigamePayout.WithLabelValues(variant).Observe(float64(payout))
}
