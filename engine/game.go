// Package engine implements the board game show rules: player economy, the
// board, and the bomb and event effects that mutate them.
//
// Everything here runs synchronously on the caller's goroutine. The game
// controller owns the Context it passes in and must hold its lock for the
// duration of a call.
package engine

import (
	"math/rand/v2"
	"time"

	"github.com/jason-s-yu/boardshow/engine/narration"
)

// DramaticPause is the scripted pause before a bomb's reveal lines.
const DramaticPause = 3 * time.Second

// AchievementFunc receives observational achievement signals. It must not
// touch the player's economy.
type AchievementFunc func(p *Player, a Achievement)

// Context is the shared game state handed to an effect handler.
type Context struct {
	Players []*Player
	Board   *Board
	Script  *narration.Script
	Achieve AchievementFunc
	Rand    *rand.Rand
}

// NewContext returns a context with a fresh script.
func NewContext(players []*Player, board *Board, rng *rand.Rand) *Context {
	return &Context{
		Players: players,
		Board:   board,
		Script:  &narration.Script{},
		Rand:    rng,
	}
}

// AlivePlayers counts players with StatusAlive.
func (c *Context) AlivePlayers() int {
	n := 0
	for _, p := range c.Players {
		if p.IsAlive() {
			n++
		}
	}
	return n
}

func (c *Context) achieve(p *Player, a Achievement) {
	if c.Achieve != nil {
		c.Achieve(p, a)
	}
}

func (c *Context) script() *narration.Script {
	if c.Script == nil {
		c.Script = &narration.Script{}
	}
	return c.Script
}

func (c *Context) intN(n int) int {
	if c.Rand == nil {
		return rand.IntN(n)
	}
	return c.Rand.IntN(n)
}

func (c *Context) float() float64 {
	if c.Rand == nil {
		return rand.Float64()
	}
	return c.Rand.Float64()
}
