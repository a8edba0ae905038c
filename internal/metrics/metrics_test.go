// internal/metrics/metrics_test.go
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGameLifecycle(t *testing.T) {
	active := testutil.ToFloat64(activeGames)
	aborted := testutil.ToFloat64(gamesTotal.WithLabelValues("aborted"))

	GameStarted()
	assert.Equal(t, active+1, testutil.ToFloat64(activeGames))
	GameEnded(true)
	assert.Equal(t, active, testutil.ToFloat64(activeGames))
	assert.Equal(t, aborted+1, testutil.ToFloat64(gamesTotal.WithLabelValues("aborted")))
}

func TestVariantCounters(t *testing.T) {
	before := testutil.ToFloat64(bombsTotal.WithLabelValues("bankrupt"))
	Bomb("bankrupt")
	Bomb("bankrupt")
	assert.Equal(t, before+2, testutil.ToFloat64(bombsTotal.WithLabelValues("bankrupt")))

	Event("lockdown")
	assert.GreaterOrEqual(t, testutil.ToFloat64(eventsTotal.WithLabelValues("lockdown")), 1.0)

	Minigame("domino_train", 75_000, false)
	assert.GreaterOrEqual(t, testutil.ToFloat64(minigamesTotal.WithLabelValues("domino_train", "finished")), 1.0)

	turns := testutil.ToFloat64(turnsTotal)
	Turn()
	assert.Equal(t, turns+1, testutil.ToFloat64(turnsTotal))
}
