// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"

	"github.com/jason-s-yu/boardshow/engine"
	"github.com/jason-s-yu/boardshow/engine/minigame"
	"github.com/jason-s-yu/boardshow/engine/narration"
	"github.com/jason-s-yu/boardshow/internal/cache"
	"github.com/jason-s-yu/boardshow/internal/metrics"
	"github.com/jason-s-yu/boardshow/internal/scores"
)

// Phase is the lifecycle stage of a game.
type Phase int

const (
	PhaseSignupsOpen Phase = iota
	PhaseInProgress
	PhaseRoundEnd
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseSignupsOpen:
		return "signups_open"
	case PhaseInProgress:
		return "in_progress"
	case PhaseRoundEnd:
		return "round_end"
	case PhaseGameOver:
		return "game_over"
	}
	return "unknown"
}

// Player-facing errors. These never end the game.
var (
	ErrSignupsClosed    = errors.New("signups are closed")
	ErrAlreadyJoined    = errors.New("player already joined")
	ErrTableFull        = errors.New("table is full")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrUnknownPlayer    = errors.New("not a player in this game")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInputDropped     = errors.New("too many pending inputs")
	ErrPlayerActing     = errors.New("player is taking their turn")
	ErrGameOver         = errors.New("game is already over")
)

// Invalid game state. Returned from the turn loop, these abort the game.
var (
	ErrIneligiblePlayer = errors.New("player is not eligible to act")
	ErrUnknownSpace     = errors.New("unknown space type")
)

// ScoreSource seeds returning players from their saved row.
type ScoreSource interface {
	Lookup(ctx context.Context, id uuid.UUID) (scores.Record, bool, error)
}

// OnGameEndFunc is called once when a game ends, with every player's final row.
type OnGameEndFunc func(gameID uuid.UUID, aborted bool, final []scores.Record)

// AchievementFunc receives achievement signals off the game goroutine.
type AchievementFunc func(gameID, playerID uuid.UUID, a engine.Achievement)

// BoardFunc builds the board for a round.
type BoardFunc func(r engine.BoardRules, players int, rng *rand.Rand) *engine.Board

// ShowGame is one board game show in one channel.
type ShowGame struct {
	ID      uuid.UUID
	Channel string
	Rules   Rules

	Players []*engine.Player // table order is turn order
	Board   *engine.Board
	Phase   Phase
	Round   int // 1-based once started

	Mu sync.Mutex // guards everything above plus the turn state below

	// Collaborators. Set before the first AddPlayer.
	Announcer           *narration.Announcer
	Scores              ScoreSource
	Pool                *ants.Pool // must be nonblocking; see dispatch
	NewBoard            BoardFunc
	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	OnGameEnd           OnGameEndFunc
	OnAchievement       AchievementFunc

	rng *rand.Rand

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	doneOnce     sync.Once
	done         chan struct{}

	// Turn state.
	turn         int  // round-robin cursor
	current      int  // index of the acting player
	acting       bool // a turn is in progress
	picks        *minigame.LineQueue
	session      *minigame.Session
	sessionInput *minigame.LineQueue

	signupTimer *time.Timer
	actionIndex int
	started     bool
	aborted     bool
	err         error
}

// NewShowGame creates a game with signups open.
func NewShowGame(channel string, rules Rules, announcer *narration.Announcer) *ShowGame {
	ctx, cancel := context.WithCancel(context.Background())
	seed := uint64(time.Now().UnixNano())
	return &ShowGame{
		ID:        uuid.New(),
		Channel:   channel,
		Rules:     rules,
		Phase:     PhaseSignupsOpen,
		Announcer: announcer,
		NewBoard:  engine.Generate,
		rng:       rand.New(rand.NewPCG(seed, seed>>1)),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		turn:      -1,
	}
}

// AddPlayer joins a player while signups are open. Returning players are
// restored from their score row; a failing score source only degrades to
// baseline values.
func (g *ShowGame) AddPlayer(id uuid.UUID, name string) error {
	var rec scores.Record
	var found bool
	if g.Scores != nil {
		ctx, cancel := context.WithTimeout(g.ctx, 2*time.Second)
		r, ok, err := g.Scores.Lookup(ctx, id)
		cancel()
		if err != nil {
			log.Warnf("Game %s: score lookup for %s failed, joining with baseline: %v", g.ID, id, err)
		} else {
			rec, found = r, ok
		}
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != PhaseSignupsOpen {
		return ErrSignupsClosed
	}
	if g.indexOfLocked(id) >= 0 {
		return ErrAlreadyJoined
	}
	if g.Rules.MaxPlayers > 0 && len(g.Players) >= g.Rules.MaxPlayers {
		return ErrTableFull
	}

	p := engine.NewPlayer(id, name)
	if found {
		p.Restore(rec.Money, rec.Booster, rec.WinStreak)
	}
	g.Players = append(g.Players, p)
	log.Printf("Game %s: %s joined (%d players).", g.ID, name, len(g.Players))

	g.logAction(id, "player_join", map[string]interface{}{"name": name, "money": p.Money, "returning": found})
	g.fireEvent(GameEvent{
		Type:    EventPlayerJoined,
		User:    &EventUser{ID: id, Name: name},
		Payload: map[string]interface{}{"money": p.Money, "booster": p.Booster, "players": len(g.Players)},
	})

	if len(g.Players) == 1 && g.Rules.SignupTimeout > 0 && g.signupTimer == nil {
		g.signupTimer = time.AfterFunc(g.Rules.SignupTimeout, g.signupExpired)
	}
	return nil
}

// signupExpired starts the game when the signup timer fires, or cancels it
// if too few players joined.
func (g *ShowGame) signupExpired() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.Phase != PhaseSignupsOpen {
		return
	}
	if err := g.startLocked(); err != nil {
		log.Printf("Game %s: Signups expired with %d players, cancelling: %v", g.ID, len(g.Players), err)
		g.endGameLocked(nil)
	}
}

// Start closes signups and launches the turn loop.
func (g *ShowGame) Start() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.startLocked()
}

// startLocked transitions to InProgress.
// Assumes lock is held by caller.
func (g *ShowGame) startLocked() error {
	if g.Phase != PhaseSignupsOpen {
		return ErrSignupsClosed
	}
	need := g.Rules.MinPlayers
	if need < 1 {
		need = 1
	}
	if len(g.Players) < need {
		return fmt.Errorf("%d of %d: %w", len(g.Players), need, ErrNotEnoughPlayers)
	}
	if g.signupTimer != nil {
		g.signupTimer.Stop()
		g.signupTimer = nil
	}

	g.started = true
	g.Round = 1
	g.newRoundLocked()
	metrics.GameStarted()
	log.Printf("Game %s: Starting with %d players, %d round(s).", g.ID, len(g.Players), g.Rules.Rounds)

	g.logAction(uuid.Nil, "game_start", map[string]interface{}{"players": len(g.Players), "rounds": g.Rules.Rounds})
	snap := g.snapshotLocked()
	g.fireEvent(GameEvent{Type: EventGameStart, State: &snap})

	go g.run()
	return nil
}

// newRoundLocked deals a fresh board and revives everyone still playing.
// Assumes lock is held by caller.
func (g *ShowGame) newRoundLocked() {
	g.Phase = PhaseInProgress
	playing := 0
	for _, p := range g.Players {
		if p.Status == engine.StatusSpectating {
			continue
		}
		p.Status = engine.StatusAlive
		p.StartRound()
		playing++
	}
	g.Board = g.NewBoard(g.Rules.Board, playing, g.rng)
	g.turn = -1

	g.logAction(uuid.Nil, "round_start", map[string]interface{}{"round": g.Round, "spaces": g.Board.Size()})
	g.fireEvent(GameEvent{Type: EventRoundStart, Payload: map[string]interface{}{"round": g.Round, "spaces": g.Board.Size()}})
}

// run is the turn engine goroutine.
func (g *ShowGame) run() {
	err := g.playRounds()
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.endGameLocked(err)
}

func (g *ShowGame) playRounds() error {
	for {
		if err := g.playRound(); err != nil {
			return err
		}
		g.Mu.Lock()
		summary := g.endRoundLocked()
		more := g.Round < g.Rules.Rounds
		g.Mu.Unlock()
		g.say(summary)
		if !more {
			return nil
		}
		if err := g.ctx.Err(); err != nil {
			return err
		}
		g.Mu.Lock()
		g.Round++
		g.newRoundLocked()
		g.Mu.Unlock()
	}
}

// playRound runs turns until the round is over.
func (g *ShowGame) playRound() error {
	for {
		if err := g.ctx.Err(); err != nil {
			return err
		}
		g.Mu.Lock()
		if g.roundOverLocked() {
			g.Mu.Unlock()
			return nil
		}
		idx := g.nextPlayerLocked()
		g.Mu.Unlock()

		if err := g.takeTurn(idx); err != nil {
			return err
		}
	}
}

// roundOverLocked reports whether at most one player is alive or the board is used up.
// Assumes lock is held by caller.
func (g *ShowGame) roundOverLocked() bool {
	alive := 0
	for _, p := range g.Players {
		if p.IsAlive() {
			alive++
		}
	}
	return alive <= 1 || g.Board.Exhausted()
}

// nextPlayerLocked advances the cursor to the next alive player. Eliminated
// and spectating players are passed over without using a turn.
// Assumes lock is held by caller.
func (g *ShowGame) nextPlayerLocked() int {
	n := len(g.Players)
	for k := 1; k <= n; k++ {
		i := (g.turn + k) % n
		if g.Players[i].IsAlive() {
			g.turn = i
			return i
		}
	}
	return -1
}

// takeTurn prompts the player for a space and resolves it.
func (g *ShowGame) takeTurn(idx int) error {
	g.Mu.Lock()
	if idx < 0 || idx >= len(g.Players) || !g.Players[idx].IsAlive() {
		g.Mu.Unlock()
		return fmt.Errorf("turn for player %d: %w", idx, ErrIneligiblePlayer)
	}
	p := g.Players[idx]

	var intro narration.Script
	if p.BoostCharge > 0 {
		p.AddBooster(p.BoostCharge)
		intro.Sayf("%s's boost charger adds %d%%, booster now at %d%%.", p.Name, p.BoostCharge, p.Booster)
	}
	intro.Sayf("%s, it's your turn. Pick a space: %s", p.Name, g.openSpacesLocked())

	g.current, g.acting = idx, true
	g.picks = minigame.NewLineQueue(4)
	picks := g.picks
	metrics.Turn()
	g.logAction(p.ID, "turn_start", map[string]interface{}{"round": g.Round})
	g.fireEvent(GameEvent{Type: EventGamePlayerTurn, User: &EventUser{ID: p.ID, Name: p.Name}})
	g.Mu.Unlock()

	defer func() {
		g.Mu.Lock()
		g.acting = false
		g.picks = nil
		g.Mu.Unlock()
	}()

	g.say(intro)
	space, err := g.awaitPick(idx, picks)
	if err != nil {
		return err
	}
	return g.ResolveSpace(idx, space)
}

// openSpacesLocked lists the unpicked spaces, 1-based.
// Assumes lock is held by caller.
func (g *ShowGame) openSpacesLocked() string {
	open := g.Board.Unpicked()
	parts := make([]string, len(open))
	for i, s := range open {
		parts[i] = strconv.Itoa(s + 1)
	}
	return strings.Join(parts, " ")
}

// awaitPick blocks for a valid space number. Bad picks are answered and
// re-prompted. When the turn timer runs out a random open space is taken.
func (g *ShowGame) awaitPick(idx int, picks *minigame.LineQueue) (int, error) {
	ctx, cancel := g.ctx, context.CancelFunc(func() {})
	if g.Rules.TurnTimeout > 0 {
		ctx, cancel = context.WithTimeout(g.ctx, g.Rules.TurnTimeout)
	}
	defer cancel()

	g.Mu.Lock()
	id, size := g.Players[idx].ID, g.Board.Size()
	g.Mu.Unlock()

	for {
		line, err := picks.Next(ctx)
		if err != nil {
			if gerr := g.ctx.Err(); gerr != nil {
				return 0, gerr
			}
			return g.autoPick(idx)
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			g.notifyPlayer(id, "Pick a space by its number.")
			continue
		}

		g.Mu.Lock()
		_, err = g.Board.Pick(n - 1)
		g.Mu.Unlock()
		switch {
		case err == nil:
			return n - 1, nil
		case errors.Is(err, engine.ErrSpaceTaken):
			g.notifyPlayer(id, fmt.Sprintf("Space %d has already been picked.", n))
		default:
			g.notifyPlayer(id, fmt.Sprintf("Pick a space between 1 and %d.", size))
		}
	}
}

// autoPick takes a random open space for a player who ran out of time.
func (g *ShowGame) autoPick(idx int) (int, error) {
	g.Mu.Lock()
	open := g.Board.Unpicked()
	if len(open) == 0 {
		g.Mu.Unlock()
		return 0, fmt.Errorf("auto pick for player %d: board exhausted: %w", idx, ErrIneligiblePlayer)
	}
	space := open[g.rng.IntN(len(open))]
	if _, err := g.Board.Pick(space); err != nil {
		g.Mu.Unlock()
		return 0, fmt.Errorf("auto pick space %d: %w", space+1, err)
	}
	name := g.Players[idx].Name
	g.Mu.Unlock()

	log.Printf("Game %s: %s timed out, auto-picking space %d.", g.ID, name, space+1)
	var s narration.Script
	s.Sayf("%s ran out of time, so space %d was picked for them.", name, space+1)
	g.say(s)
	return space, nil
}

// ResolveSpace applies the space at index space to the player at index
// player. Effects run inline; a minigame space blocks until its session ends
// and its payout is credited. Any returned error is invalid game state.
func (g *ShowGame) ResolveSpace(player, space int) error {
	g.Mu.Lock()
	if player < 0 || player >= len(g.Players) || !g.Players[player].IsAlive() {
		g.Mu.Unlock()
		return fmt.Errorf("resolve space %d for player %d: %w", space+1, player, ErrIneligiblePlayer)
	}
	if g.Board == nil || space < 0 || space >= g.Board.Size() {
		g.Mu.Unlock()
		return fmt.Errorf("resolve space %d: %w", space+1, engine.ErrSpaceOutOfRange)
	}

	p := g.Players[player]
	sp := g.Board.Spaces[space]
	c := g.effectContextLocked()
	c.Script.Sayf("Space %d selected...", space+1)

	launch, kind, err := g.applyLocked(c, player, sp)
	if err == nil {
		pos := space + 1
		g.logAction(p.ID, "space_resolved", map[string]interface{}{
			"space": pos, "type": sp.Type.String(), "money": p.Money, "booster": p.Booster,
		})
		g.fireEvent(GameEvent{
			Type:    EventSpaceResolved,
			User:    &EventUser{ID: p.ID, Name: p.Name},
			Space:   &pos,
			Payload: map[string]interface{}{"type": sp.Type.String(), "money": p.Money, "booster": p.Booster, "multiplier": g.Board.Multiplier},
		})
		if p.Status == engine.StatusEliminated {
			g.fireEvent(GameEvent{Type: EventPlayerEliminated, User: &EventUser{ID: p.ID, Name: p.Name}})
		}
	}
	script := *c.Script
	script.Skippable = true
	g.Mu.Unlock()

	g.say(script)
	if err != nil {
		return err
	}
	if launch {
		return g.runMinigame(player, kind)
	}
	return nil
}

// applyLocked dispatches on the space type. It reports whether a minigame
// must be launched once the lock is released.
// Assumes lock is held by caller.
func (g *ShowGame) applyLocked(c *engine.Context, player int, sp engine.Space) (bool, engine.MinigameKind, error) {
	p := g.Players[player]
	switch sp.Type {
	case engine.SpaceCash:
		won := p.Boosted(sp.Cash * g.Board.Multiplier)
		p.AddMoney(won)
		c.Script.Sayf("It's **%s**!", engine.FormatMoney(won))
	case engine.SpaceBooster:
		p.AddBooster(sp.Booster)
		c.Script.Sayf("A **+%d%%** booster! %s is now at %d%%.", sp.Booster, p.Name, p.Booster)
	case engine.SpaceGame:
		name, ok := minigame.Name(sp.Game)
		if !ok {
			return false, 0, fmt.Errorf("space game %d: %w", sp.Game, minigame.ErrUnknownVariant)
		}
		c.Script.Sayf("It's a minigame, **%s**!", name)
		return true, sp.Game, nil
	case engine.SpaceEvent:
		if err := engine.TriggerEvent(c, sp.Event, player); err != nil {
			return false, 0, err
		}
		metrics.Event(sp.Event.String())
	case engine.SpaceGrabBag:
		c.Script.Say("It's a **Grab Bag**, let's see what's inside...")
		return g.applyLocked(c, player, g.grabBagLocked(sp))
	case engine.SpaceBlammo:
		c.Script.Say("It's a **BLAMMO**!")
		engine.BasicBomb(c, player, g.Rules.BombPenalty)
		metrics.Bomb("blammo")
	case engine.SpaceBomb, engine.SpaceGrabBagBomb:
		c.Script.Say("It's a **BOMB**.")
		engine.Detonate(c, sp.Bomb, player, g.Rules.BombPenalty)
		metrics.Bomb(sp.Bomb.String())
	default:
		return false, 0, fmt.Errorf("space type %d: %w", sp.Type, ErrUnknownSpace)
	}
	return false, 0, nil
}

// grabBagLocked rolls the non-bomb effect hidden in a grab bag.
// Assumes lock is held by caller.
func (g *ShowGame) grabBagLocked(sp engine.Space) engine.Space {
	out := engine.Space{Cash: sp.Cash, Picked: sp.Picked}
	switch g.rng.IntN(4) {
	case 0:
		out.Type = engine.SpaceCash
	case 1:
		out.Type = engine.SpaceBooster
		lo, hi := g.Rules.Board.MinBoost, g.Rules.Board.MaxBoost
		out.Booster = lo
		if hi > lo {
			out.Booster += g.rng.IntN(hi - lo + 1)
		}
	case 2:
		kinds := engine.EventKinds()
		out.Type = engine.SpaceEvent
		out.Event = kinds[g.rng.IntN(len(kinds))]
	default:
		kinds := engine.MinigameKinds()
		out.Type = engine.SpaceGame
		out.Game = kinds[g.rng.IntN(len(kinds))]
	}
	return out
}

// effectContextLocked hands the shared state to an effect handler.
// Assumes lock is held by caller.
func (g *ShowGame) effectContextLocked() *engine.Context {
	c := engine.NewContext(g.Players, g.Board, g.rng)
	c.Achieve = g.achieve
	return c
}

// achieve is the engine's achievement hook. The callback runs on the worker
// pool so it can never stall the turn engine.
// Assumes lock is held by caller.
func (g *ShowGame) achieve(p *engine.Player, a engine.Achievement) {
	id, name := p.ID, p.Name
	log.Printf("Game %s: %s earned achievement %s.", g.ID, name, a)
	g.logAction(id, "achievement", map[string]interface{}{"achievement": a.String()})
	g.fireEvent(GameEvent{
		Type:    EventAchievement,
		User:    &EventUser{ID: id, Name: name},
		Payload: map[string]interface{}{"achievement": a.String()},
	})
	if g.OnAchievement == nil {
		return
	}
	gameID, fn := g.ID, g.OnAchievement
	g.dispatch(func() { fn(gameID, id, a) })
}

// runMinigame launches a session for the player, waits for it to end and
// credits its payout scaled by the board multiplier and the player's booster.
func (g *ShowGame) runMinigame(player int, kind engine.MinigameKind) error {
	g.Mu.Lock()
	p := g.Players[player]
	cfg := minigame.Config{
		BaseNumerator:   g.Rules.BaseNumerator,
		BaseDenominator: g.Rules.BaseDenominator,
		Multiplier:      1,
		Players:         g.tablePlayersLocked(),
		Player:          player,
		Enhanced:        g.Rules.EnhancedGames,
		Seed:            g.rng.Uint64(),
		InputTimeout:    g.Rules.TurnTimeout,
	}
	input := minigame.NewLineQueue(8)
	sess, err := minigame.Start(g.ctx, kind, cfg, input, g.Announcer)
	if err != nil {
		g.Mu.Unlock()
		return fmt.Errorf("start minigame for %s: %w", p.Name, err)
	}
	g.session, g.sessionInput = sess, input
	log.Printf("Game %s: %s is playing %s (session %s).", g.ID, p.Name, sess.Name, sess.ID)
	g.logAction(p.ID, "minigame_start", map[string]interface{}{"game": sess.Name, "session": sess.ID.String()})
	g.fireEvent(GameEvent{
		Type:    EventMinigameStart,
		User:    &EventUser{ID: p.ID, Name: p.Name},
		Payload: map[string]interface{}{"game": sess.Name},
	})
	g.Mu.Unlock()

	// The session finalizes itself on Shutdown, so this always returns.
	<-sess.Done()

	g.Mu.Lock()
	g.session, g.sessionInput = nil, nil
	won := p.Boosted(sess.Payout() * g.Board.Multiplier)
	p.AddMoney(won)
	metrics.Minigame(kind.String(), won, sess.Aborted())
	g.logAction(p.ID, "minigame_end", map[string]interface{}{
		"game": sess.Name, "payout": sess.Payout(), "credited": won, "aborted": sess.Aborted(),
	})
	g.fireEvent(GameEvent{
		Type:    EventMinigameEnd,
		User:    &EventUser{ID: p.ID, Name: p.Name},
		Payload: map[string]interface{}{"game": sess.Name, "credited": won, "aborted": sess.Aborted()},
	})
	var s narration.Script
	s.Sayf("%s won **%s** from %s.", p.Name, engine.FormatMoney(won), sess.Name)
	g.Mu.Unlock()

	g.say(s)
	return nil
}

// endRoundLocked pays the survivors' win streak and returns the round summary.
// Survivors gain half a multiplier point per eliminated opponent.
// Assumes lock is held by caller.
func (g *ShowGame) endRoundLocked() narration.Script {
	g.Phase = PhaseRoundEnd
	eliminated := 0
	for _, p := range g.Players {
		if p.Status == engine.StatusEliminated {
			eliminated++
		}
	}

	var s narration.Script
	s.Sayf("Round %d is over!", g.Round)
	survivors := 0
	for _, p := range g.Players {
		if !p.IsAlive() {
			continue
		}
		survivors++
		p.WinStreak += 5 * eliminated
		s.Sayf("%s survives with **%s**, win streak now x%d.%d.", p.Name, engine.FormatMoney(p.Money), p.WinStreak/10, p.WinStreak%10)
	}
	if survivors == 0 {
		s.Say("Nobody survived this round.")
	}

	g.logAction(uuid.Nil, "round_end", map[string]interface{}{"round": g.Round, "eliminated": eliminated, "survivors": survivors})
	snap := g.snapshotLocked()
	g.fireEvent(GameEvent{Type: EventRoundEnd, Payload: map[string]interface{}{"round": g.Round}, State: &snap})
	return s
}

// endGameLocked finishes the game. err is nil for a normal end, the game
// context's error for a shutdown, and anything else for invalid state, in
// which case the game is reported as aborted.
// Assumes lock is held by caller.
func (g *ShowGame) endGameLocked(err error) {
	if g.Phase == PhaseGameOver {
		log.Printf("Game %s: endGame called, but game is already over.", g.ID)
		return
	}
	shutdown := err != nil && g.ctx.Err() != nil && errors.Is(err, g.ctx.Err())
	if err != nil && !shutdown {
		g.aborted, g.err = true, err
		log.Errorf("Game %s: aborting on invalid game state: %v", g.ID, err)
	}
	g.Phase = PhaseGameOver
	g.acting = false
	if g.signupTimer != nil {
		g.signupTimer.Stop()
		g.signupTimer = nil
	}
	g.cancel()

	final := make([]scores.Record, len(g.Players))
	for i, p := range g.Players {
		final[i] = scores.FromPlayer(p)
	}
	if g.started {
		metrics.GameEnded(g.aborted)
	}

	evType := EventGameEnd
	payload := map[string]interface{}{"standings": final, "shutdown": shutdown}
	if g.aborted {
		evType = EventGameAborted
		payload["reason"] = err.Error()
	}
	g.logAction(uuid.Nil, string(evType), payload)
	snap := g.snapshotLocked()
	g.fireEvent(GameEvent{Type: evType, Payload: payload, State: &snap})

	if g.OnGameEnd != nil {
		g.OnGameEnd(g.ID, g.aborted, final)
	}
	g.doneOnce.Do(func() { close(g.done) })
	log.Printf("Game %s: Ended (aborted=%v, shutdown=%v).", g.ID, g.aborted, shutdown)
}

// Shutdown ends the game. A running minigame finalizes and its accrued
// payout is still credited. Further calls are no-ops.
func (g *ShowGame) Shutdown() {
	g.shutdownOnce.Do(func() {
		log.Printf("Game %s: Shutdown requested.", g.ID)
		g.Mu.Lock()
		if !g.started && g.Phase != PhaseGameOver {
			g.endGameLocked(nil)
		}
		g.Mu.Unlock()
		g.cancel()
	})
}

// Done is closed once the game is over.
func (g *ShowGame) Done() <-chan struct{} { return g.done }

// Err returns the invalid-state error that aborted the game, if any.
func (g *ShowGame) Err() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.err
}

// SubmitInput routes a line from a player to the running minigame if it is
// theirs, otherwise to their pending space pick.
func (g *ShowGame) SubmitInput(playerID uuid.UUID, line string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	idx := g.indexOfLocked(playerID)
	if idx < 0 {
		return ErrUnknownPlayer
	}
	if g.session != nil {
		if g.session.Player() != idx {
			return ErrNotYourTurn
		}
		if !g.sessionInput.Submit(line) {
			return ErrInputDropped
		}
		return nil
	}
	if !g.acting || g.current != idx || g.picks == nil {
		return ErrNotYourTurn
	}
	if !g.picks.Submit(line) {
		return ErrInputDropped
	}
	return nil
}

// Skip collapses pending narration pauses. During a minigame only its
// player, or an operator passing uuid.Nil, may skip.
func (g *ShowGame) Skip(playerID uuid.UUID) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.session != nil {
		if playerID != uuid.Nil && g.indexOfLocked(playerID) != g.session.Player() {
			return false
		}
		return g.session.SkipMessages()
	}
	if g.Announcer == nil {
		return false
	}
	return g.Announcer.Skip()
}

// Withdraw removes a player during signups, or moves them to spectating once
// the game is running. A player cannot withdraw in the middle of their turn.
func (g *ShowGame) Withdraw(playerID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	idx := g.indexOfLocked(playerID)
	if idx < 0 {
		return ErrUnknownPlayer
	}
	p := g.Players[idx]
	switch g.Phase {
	case PhaseGameOver:
		return ErrGameOver
	case PhaseSignupsOpen:
		g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	default:
		if g.acting && g.current == idx {
			return ErrPlayerActing
		}
		p.Status = engine.StatusSpectating
	}
	log.Printf("Game %s: %s withdrew.", g.ID, p.Name)
	g.logAction(p.ID, "player_withdraw", map[string]interface{}{"phase": g.Phase.String()})
	g.fireEvent(GameEvent{Type: EventPlayerWithdrew, User: &EventUser{ID: p.ID, Name: p.Name}})
	return nil
}

// indexOfLocked returns the table index of id or -1.
// Assumes lock is held by caller.
func (g *ShowGame) indexOfLocked(id uuid.UUID) int {
	for i, p := range g.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// say delivers narration. Failures degrade to a log line; game state is
// already final by the time narration is sent.
func (g *ShowGame) say(s narration.Script) {
	if g.Announcer == nil || s.Len() == 0 {
		return
	}
	if err := g.Announcer.Deliver(g.ctx, s); err != nil && g.ctx.Err() == nil {
		log.Warnf("Game %s: narration degraded: %v", g.ID, err)
	}
}

// fireEvent broadcasts an event via the BroadcastFn callback.
// Assumes lock is held by caller.
func (g *ShowGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	} else {
		log.Debugf("Game %s: BroadcastFn is nil, dropping event %s.", g.ID, ev.Type)
	}
}

// notifyPlayer sends a private notice, falling back to the channel.
func (g *ShowGame) notifyPlayer(playerID uuid.UUID, text string) {
	if g.BroadcastToPlayerFn != nil {
		g.BroadcastToPlayerFn(playerID, GameEvent{Type: EventNotice, Payload: map[string]interface{}{"text": text}})
		return
	}
	var s narration.Script
	s.Say(text)
	g.say(s)
}

// dispatch runs fn on the worker pool, or a plain goroutine when there is
// no pool or it is full. It is called with the lock held and must never block.
func (g *ShowGame) dispatch(fn func()) {
	if g.Pool == nil {
		go fn()
		return
	}
	if err := g.Pool.Submit(fn); err != nil {
		if !errors.Is(err, ants.ErrPoolOverload) {
			log.Warnf("Game %s: worker pool rejected task: %v", g.ID, err)
		}
		go fn()
	}
}

// logAction publishes a lifecycle step to the action log.
// Assumes lock is held by caller.
func (g *ShowGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	if cache.Rdb == nil {
		return
	}
	g.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			log.Printf("Error: Game %s: Failed publishing action %d ('%s') to Redis: %v", rec.GameID, rec.ActionIndex, rec.ActionType, err)
		}
	})
}
