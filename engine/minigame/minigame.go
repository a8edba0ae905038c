// Package minigame runs interactive sub-games bound to one player. Each
// session owns its own state, runs on its own goroutine and reports a single
// payout when it ends, whether it finished normally or was aborted.
package minigame

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jason-s-yu/boardshow/engine"
	"github.com/jason-s-yu/boardshow/engine/narration"
)

var (
	ErrInvalidMove    = errors.New("invalid move")
	ErrUnknownVariant = errors.New("unknown minigame variant")
)

// MoveError is a rejected input line. Reason is shown to the player.
type MoveError struct{ Reason string }

func (e *MoveError) Error() string { return "invalid move: " + e.Reason }
func (e *MoveError) Unwrap() error { return ErrInvalidMove }

// Reject builds a MoveError.
func Reject(format string, args ...interface{}) error {
	return &MoveError{Reason: fmt.Sprintf(format, args...)}
}

// Config is what a session is started with.
type Config struct {
	BaseNumerator   int
	BaseDenominator int
	Multiplier      int             // extra factor, e.g. number of copies landed on
	Players         []engine.Player // read-only copy of the table
	Player          int             // index of the acting player in Players
	Enhanced        bool
	Seed            uint64

	// InputTimeout bounds each wait for a valid move. When it runs out the
	// session ends as if aborted and keeps its payout. 0 waits forever.
	InputTimeout time.Duration
}

// scale converts raw variant winnings to the reported payout.
func (c Config) scale(raw int) int {
	num, den, mult := c.BaseNumerator, c.BaseDenominator, c.Multiplier
	if num == 0 {
		num = 1
	}
	if den <= 0 {
		den = 1
	}
	if mult <= 0 {
		mult = 1
	}
	return int(int64(raw) * int64(mult) * int64(num) / int64(den))
}

// Rules is the capability set a variant implements. A session drives it with
// one generic loop; the variant never sees input channels or cancellation.
type Rules[M any] interface {
	// Intro is the skippable explanation sent once at the start.
	Intro() []string
	// Render describes the current state and prompt.
	Render() narration.Script
	// CanMove reports whether any legal move remains.
	CanMove() bool
	// Finished reports a variant-specific terminal condition.
	Finished() bool
	// Parse validates a line against the current state. Errors should be MoveErrors.
	Parse(line string) (M, error)
	// Apply performs a validated move and narrates the result.
	Apply(m M) narration.Script
	// Payout is the raw accrued winnings. It must never decrease.
	Payout() int
}

type variant struct {
	name  string
	start func(cfg Config, rng *rand.Rand) func(s *Session)
}

var (
	registryMu sync.RWMutex
	registry   = map[engine.MinigameKind]variant{}
)

// Register installs a variant. newRules is called once per session.
func Register[M any](kind engine.MinigameKind, name string, newRules func(cfg Config, rng *rand.Rand) Rules[M]) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = variant{
		name: name,
		start: func(cfg Config, rng *rand.Rand) func(s *Session) {
			r := newRules(cfg, rng)
			return func(s *Session) { run(s, r) }
		},
	}
}

// Name returns the registered display name of kind.
func Name(kind engine.MinigameKind) (string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	v, ok := registry[kind]
	return v.name, ok
}

// Session is one running minigame.
type Session struct {
	ID   uuid.UUID
	Kind engine.MinigameKind
	Name string

	cfg   Config
	input Input
	out   *narration.Announcer

	ctx       context.Context
	cancel    context.CancelFunc
	abortOnce sync.Once
	done      chan struct{}

	mu      sync.Mutex
	payout  int
	aborted bool
}

// Start launches a session for kind on its own goroutine. Cancelling ctx
// aborts the session the same way Abort does.
func Start(ctx context.Context, kind engine.MinigameKind, cfg Config, input Input, out *narration.Announcer) (*Session, error) {
	registryMu.RLock()
	v, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("minigame %d: %w", kind, ErrUnknownVariant)
	}
	if cfg.Player < 0 || cfg.Player >= len(cfg.Players) {
		return nil, fmt.Errorf("minigame %s: player index %d out of range", v.name, cfg.Player)
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:     uuid.New(),
		Kind:   kind,
		Name:   v.name,
		cfg:    cfg,
		input:  input,
		out:    out,
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	loop := v.start(cfg, rand.New(rand.NewPCG(cfg.Seed, uint64(kind)+1)))

	go func() {
		defer close(s.done)
		defer cancel()
		loop(s)
		log.Printf("Session %s: %s finished for %s, payout %d", s.ID, s.Name, cfg.Players[cfg.Player].Name, s.Payout())
	}()
	return s, nil
}

// run is the generic turn loop shared by every variant.
func run[M any](s *Session, r Rules[M]) {
	s.mu.Lock()
	s.payout = s.cfg.scale(r.Payout())
	s.mu.Unlock()

	if intro := r.Intro(); len(intro) > 0 {
		script := narration.Script{Skippable: true}
		for _, line := range intro {
			script.After(engine.DramaticPause/3, line)
		}
		s.deliver(script)
	}

	for {
		s.deliver(r.Render())
		if r.Finished() || !r.CanMove() {
			return
		}

		move, ok := await(s, r)
		if !ok {
			return
		}

		// Apply and record under the lock so an observer never sees a half move.
		s.mu.Lock()
		result := r.Apply(move)
		s.payout = s.cfg.scale(r.Payout())
		s.mu.Unlock()

		s.deliver(result)
	}
}

// await blocks until a valid move arrives. Rejected lines are answered and
// re-prompted without consuming a turn, but do not extend the input timeout.
// ok is false when the session is aborted or the player ran out of time.
func await[M any](s *Session, r Rules[M]) (m M, ok bool) {
	ctx, cancel := s.ctx, context.CancelFunc(func() {})
	if s.cfg.InputTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.cfg.InputTimeout)
	}
	defer cancel()

	for {
		line, err := s.input.Next(ctx)
		if err != nil {
			s.markAborted(err)
			return m, false
		}
		m, err = r.Parse(line)
		if err == nil {
			return m, true
		}
		var me *MoveError
		if errors.As(err, &me) {
			s.deliver(narration.Script{Lines: []narration.Line{{Text: me.Reason}}})
		} else {
			s.deliver(narration.Script{Lines: []narration.Line{{Text: err.Error()}}})
		}
	}
}

func (s *Session) markAborted(err error) {
	s.mu.Lock()
	s.aborted = true
	s.mu.Unlock()
	log.Printf("Session %s: stopped waiting for input: %v", s.ID, err)
}

func (s *Session) deliver(script narration.Script) {
	if s.out == nil || script.Len() == 0 {
		return
	}
	if err := s.out.Deliver(s.ctx, script); err != nil {
		log.Warnf("Session %s: narration degraded: %v", s.ID, err)
	}
}

// Done is closed once the session has ended and its payout is final.
func (s *Session) Done() <-chan struct{} { return s.done }

// Payout returns the accrued payout. It is final once Done is closed.
func (s *Session) Payout() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payout
}

// Aborted reports whether the session ended by abort rather than by play.
func (s *Session) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Abort ends the session at its next input wait. Accrued payout is kept.
// Further calls are no-ops.
func (s *Session) Abort() {
	s.abortOnce.Do(func() {
		log.Printf("Session %s: abort requested", s.ID)
		s.cancel()
	})
}

// SkipMessages collapses the pauses of the skippable narration in flight.
func (s *Session) SkipMessages() bool {
	if s.out == nil {
		return false
	}
	return s.out.Skip()
}

// Player returns the index of the acting player.
func (s *Session) Player() int { return s.cfg.Player }
