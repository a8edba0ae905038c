package minigame

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/jason-s-yu/boardshow/engine"
	"github.com/jason-s-yu/boardshow/engine/narration"
)

func init() {
	Register(engine.GameDominoTrain, "Domino Train", newDominoTrain)
}

// dollarsPerPoint climbs every seven placements. The last step needs all 28
// tiles on the train.
var dollarsPerPoint = [...]int{7_500, 10_000, 12_500, 15_000, 25_000}

const (
	dominoMax       = 6 // double-six set
	dominoStartHand = 4
	dominoStep      = 7
)

var sigils = [...]string{"   ", " · ", "· ·", "···", ": :", ":·:", ":::"}

type domino struct{ left, right int }

func (d *domino) flip() { d.left, d.right = d.right, d.left }

// Zero is wild on either side of a join.
func (d domino) matchesLeft(v int) bool  { return d.left == v || d.left == 0 || v == 0 }
func (d domino) matchesRight(v int) bool { return d.right == v || d.right == 0 || v == 0 }
func (d domino) matches(v int) bool      { return d.matchesLeft(v) || d.matchesRight(v) }
func (d domino) double() bool            { return d.left == d.right }
func (d domino) String() string          { return fmt.Sprintf("[%d|%d]", d.left, d.right) }

type dominoMove struct {
	index   int
	right   bool
	flipped bool
}

type dominoTrain struct {
	enhanced bool

	pool  []domino
	train []domino // left to right
	hand  []domino

	maxHand  int
	round    int
	score    int
	perPoint int

	pending narration.Script // produced by the last state update, flushed by Render
}

func newDominoTrain(cfg Config, rng *rand.Rand) Rules[dominoMove] {
	var set []domino
	for l := 0; l <= dominoMax; l++ {
		for r := l; r <= dominoMax; r++ {
			d := domino{l, r}
			if rng.Float64() > 0.5 {
				d.flip()
			}
			set = append(set, d)
		}
	}
	g := &dominoTrain{
		enhanced: cfg.Enhanced,
		train:    []domino{set[0]}, // 0|0
		pool:     set[1:],
		maxHand:  dominoStartHand,
		perPoint: dollarsPerPoint[0],
	}
	rng.Shuffle(len(g.pool), func(i, j int) { g.pool[i], g.pool[j] = g.pool[j], g.pool[i] })
	g.advance()
	return g
}

func (g *dominoTrain) Intro() []string {
	lines := []string{
		"In this game, you must create the longest train you can using dominoes.",
		"There are 28 dominoes in total, one for each pair of numbers between 0 and 6.",
		"A domino can be placed next to another domino if they share a number.",
		"Zeroes are wild and can be placed next to any other number.",
		"You can play on either end of the train, so long as the domino matches.",
		"Dominoes can be flipped before being placed.",
		"Every time you make a match, you score points equal to the number on the dominoes.",
		"However, a number matched with Zero scores no points.",
		"You'll start with a hand of four dominoes, and this number decreases as you proceed.",
		"But every time this happens, you'll also get more dollars for every point.",
	}
	if g.enhanced {
		lines = append(lines, "ENHANCED: doubles score twice their points.")
	}
	return lines
}

func (g *dominoTrain) leftEnd() int  { return g.train[0].left }
func (g *dominoTrain) rightEnd() int { return g.train[len(g.train)-1].right }

func (g *dominoTrain) playable(d domino) bool {
	return d.matches(g.rightEnd()) || d.matches(g.leftEnd())
}

func (g *dominoTrain) CanMove() bool {
	for _, d := range g.hand {
		if g.playable(d) {
			return true
		}
	}
	return false
}

func (g *dominoTrain) Finished() bool { return len(g.hand) == 0 && len(g.pool) == 0 }

func (g *dominoTrain) Payout() int { return g.score * g.perPoint }

func (g *dominoTrain) nextRate() int {
	i := g.round/dominoStep + 1
	if i >= len(dollarsPerPoint) {
		i = len(dollarsPerPoint) - 1
	}
	return dollarsPerPoint[i]
}

func (g *dominoTrain) Render() narration.Script {
	s := g.pending
	g.pending = narration.Script{}

	s.Sayf("```\n"+
		".-------.  DOMINO .-------.\n"+
		"|%s|%s|         |%s|%s|\n"+
		"`-------´  TRAIN  `-------´\n"+
		"Score:           %7dpts\n"+
		"Dollars/Point:  %11s\n"+
		"Prize:          %11s\n\n"+
		"Next $/pt:      %11s\n```",
		sigils[g.train[0].left], sigils[g.train[0].right],
		sigils[g.train[len(g.train)-1].left], sigils[g.train[len(g.train)-1].right],
		g.score, engine.FormatMoney(g.perPoint), engine.FormatMoney(g.Payout()), engine.FormatMoney(g.nextRate()))
	s.Sayf("```\nTRAIN:\n\n%s\n\nHAND:\n\n%s```", g.trainString(), g.handString())

	if g.CanMove() {
		s.Say("Choose a domino to play, which side (LEFT or RIGHT), and whether it is FLIPPED or not, in that order. " +
			"For instance, type 'A LEFT' or 'B RIGHT FLIPPED' or you may shorten it to 'AL', 'BRF', etc.")
	} else {
		s.Sayf("No domino in your hand can be played. The train leaves the station with **%d** points.", g.score)
	}
	return s
}

func (g *dominoTrain) trainString() string {
	var b strings.Builder
	for i, d := range g.train {
		if i != 0 && i%7 == 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.String())
	}
	return b.String()
}

func (g *dominoTrain) handString() string {
	var b strings.Builder
	for i, d := range g.hand {
		var ways []string
		if d.matchesLeft(g.rightEnd()) {
			ways = append(ways, "RIGHT")
		}
		if d.matchesRight(g.rightEnd()) && !d.double() {
			ways = append(ways, "RIGHT FLIPPED")
		}
		if d.matchesRight(g.leftEnd()) {
			ways = append(ways, "LEFT")
		}
		if d.matchesLeft(g.leftEnd()) && !d.double() {
			ways = append(ways, "LEFT FLIPPED")
		}
		desc := "UNPLAYABLE"
		if len(ways) > 0 {
			desc = strings.Join(ways, ", ")
		}
		fmt.Fprintf(&b, "%c - %s (%s)\n", 'A'+i, d, desc)
	}
	return b.String()
}

// Parse accepts "A LEFT", "B RIGHT FLIPPED", "A L N" and the one-word
// abbreviations "AL", "BRF".
func (g *dominoTrain) Parse(line string) (dominoMove, error) {
	var m dominoMove
	words := strings.Fields(strings.ToLower(line))

	var tile, side, orient string
	switch {
	case len(words) == 2 || len(words) == 3:
		tile, side = words[0], words[1]
		if len(words) == 3 {
			orient = words[2]
		}
		if len(tile) != 1 {
			return m, Reject("Please designate a domino by letter.")
		}
	case len(words) == 1 && (len(words[0]) == 2 || len(words[0]) == 3):
		w := words[0]
		tile, side = w[:1], w[1:2]
		if len(w) == 3 {
			orient = w[2:]
		}
	default:
		return m, Reject("I need output formatted like 'A LEFT' or 'B RIGHT FLIPPED' or an abbreviation.")
	}

	m.index = int(tile[0]) - 'a'
	if m.index < 0 || m.index >= len(g.hand) {
		return m, Reject("Please type a valid letter from the list.")
	}
	d := g.hand[m.index]
	if !g.playable(d) {
		return m, Reject("That domino cannot be played.")
	}

	switch side {
	case "left", "l":
	case "right", "r":
		m.right = true
	default:
		return m, Reject("Please tell me whether to place the domino LEFT or RIGHT.")
	}
	switch orient {
	case "", "normal", "n":
	case "flipped", "f":
		m.flipped = true
	default:
		return m, Reject("Please tell me whether the domino is NORMAL or FLIPPED (leave it off for NORMAL).")
	}

	var fits bool
	switch {
	case m.right && m.flipped:
		fits = d.matchesRight(g.rightEnd())
	case m.right:
		fits = d.matchesLeft(g.rightEnd())
	case m.flipped:
		fits = d.matchesLeft(g.leftEnd())
	default:
		fits = d.matchesRight(g.leftEnd())
	}
	if !fits {
		return m, Reject("Cannot place that domino %s. Try again.", describe(m))
	}
	return m, nil
}

func describe(m dominoMove) string {
	s := "LEFT"
	if m.right {
		s = "RIGHT"
	}
	if m.flipped {
		s += " FLIPPED"
	}
	return s
}

// Apply places a move that Parse accepted.
func (g *dominoTrain) Apply(m dominoMove) narration.Script {
	d := g.hand[m.index]
	if m.flipped {
		d.flip()
	}

	gained := 0
	if m.right {
		if end := g.rightEnd(); end != 0 && d.left != 0 {
			gained = end
		}
		g.train = append(g.train, d)
	} else {
		if end := g.leftEnd(); end != 0 && d.right != 0 {
			gained = end
		}
		g.train = append([]domino{d}, g.train...)
	}
	if g.enhanced && d.double() {
		gained *= 2
	}
	g.score += gained
	g.hand = append(g.hand[:m.index], g.hand[m.index+1:]...)

	var s narration.Script
	if gained > 0 {
		s.Sayf("Placed domino `%s`, scoring **%d** points.", d, gained)
	} else {
		s.Sayf("Placed domino `%s`, but you scored nothing for it, because you matched with a wild.", d)
	}
	g.advance()
	return s
}

// advance moves to the next round: every seventh round the rate climbs and
// the hand shrinks, then the hand is refilled from the pool.
func (g *dominoTrain) advance() {
	if g.round%dominoStep == dominoStep-1 {
		i := g.round/dominoStep + 1
		if i < len(dollarsPerPoint) {
			g.perPoint = dollarsPerPoint[i]
		}
		if g.maxHand > 0 {
			g.maxHand--
		}
		g.pending.Sayf("Good job getting this far! Your hand size has decreased by one and you will now receive **%s** for every point.",
			engine.FormatMoney(g.perPoint))
	}
	g.round++

	if len(g.hand) < g.maxHand && len(g.pool) > 0 {
		g.pending.Sayf("Drawing to hand size of %d...", g.maxHand)
	}
	for len(g.hand) < g.maxHand && len(g.pool) > 0 {
		drawn := g.pool[len(g.pool)-1]
		g.pool = g.pool[:len(g.pool)-1]
		g.hand = append(g.hand, drawn)
		g.pending.Sayf("Drew this domino: `%s`", drawn)
	}
}
