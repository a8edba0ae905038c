package minigame

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/boardshow/engine"
	"github.com/jason-s-yu/boardshow/engine/narration"
)

const (
	counterKind engine.MinigameKind = 250 + iota
	blockedKind
)

// counter accrues whatever "+N" lines it is sent until limit.
type counter struct {
	score   int
	limit   int
	blocked bool
}

func (c *counter) Intro() []string { return nil }
func (c *counter) Render() narration.Script {
	var s narration.Script
	s.Sayf("score %d", c.score)
	return s
}
func (c *counter) CanMove() bool  { return !c.blocked }
func (c *counter) Finished() bool { return c.limit > 0 && c.score >= c.limit }
func (c *counter) Payout() int    { return c.score }
func (c *counter) Parse(line string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(line, "+"))
	if err != nil || n <= 0 || !strings.HasPrefix(line, "+") {
		return 0, Reject("Send +N.")
	}
	return n, nil
}
func (c *counter) Apply(n int) narration.Script {
	c.score += n
	return narration.Script{}
}

func init() {
	Register(counterKind, "Counter", func(Config, *rand.Rand) Rules[int] {
		return &counter{}
	})
	Register(blockedKind, "Blocked", func(Config, *rand.Rand) Rules[int] {
		return &counter{blocked: true}
	})
}

type sink struct {
	mu    sync.Mutex
	lines []string
}

func (s *sink) Send(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
	return nil
}

func (s *sink) contains(sub string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func testConfig() Config {
	return Config{Players: []engine.Player{*engine.NewPlayer(uuid.New(), "solo")}}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestSessionNoLegalMoves: a session with nothing to play ends on its first
// render and pays nothing.
func TestSessionNoLegalMoves(t *testing.T) {
	s, err := Start(context.Background(), blockedKind, testConfig(), NewLineQueue(1), narration.NewAnnouncer(&sink{}, 0))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, s)
	if s.Payout() != 0 || s.Aborted() {
		t.Errorf("payout %d aborted %v, want 0 and false", s.Payout(), s.Aborted())
	}
}

// TestSessionAbortKeepsPayout verifies an abort at an input wait keeps what was
// accrued and a second abort is harmless.
func TestSessionAbortKeepsPayout(t *testing.T) {
	q := NewLineQueue(4)
	s, err := Start(context.Background(), counterKind, testConfig(), q, narration.NewAnnouncer(&sink{}, 0))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	q.Submit("+5")
	q.Submit("+7")
	waitFor(t, func() bool { return s.Payout() == 12 })

	s.Abort()
	s.Abort()
	waitDone(t, s)
	if s.Payout() != 12 || !s.Aborted() {
		t.Errorf("payout %d aborted %v, want 12 and true", s.Payout(), s.Aborted())
	}
}

// TestSessionParentCancel verifies cancelling the game context finalizes the session.
func TestSessionParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewLineQueue(1)
	s, err := Start(ctx, counterKind, testConfig(), q, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	q.Submit("+3")
	waitFor(t, func() bool { return s.Payout() == 3 })
	cancel()
	waitDone(t, s)
	if s.Payout() != 3 {
		t.Errorf("payout = %d, want 3", s.Payout())
	}
}

// TestSessionInputTimeout verifies a silent player is timed out like an
// abort and keeps what was accrued, and that rejected lines do not reset the clock.
func TestSessionInputTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.InputTimeout = 40 * time.Millisecond
	q := NewLineQueue(4)
	s, err := Start(context.Background(), counterKind, cfg, q, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	q.Submit("+4")
	waitFor(t, func() bool { return s.Payout() == 4 })

	stop := time.After(200 * time.Millisecond)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case <-s.Done():
			break loop
		case <-tick.C:
			q.Submit("nonsense")
		case <-stop:
			t.Fatal("rejected lines kept the session waiting past its timeout")
		}
	}
	if s.Payout() != 4 || !s.Aborted() {
		t.Errorf("payout %d aborted %v, want 4 and true", s.Payout(), s.Aborted())
	}
}

// TestSessionRejectsAndReprompts verifies a bad line is answered without
// consuming a move.
func TestSessionRejectsAndReprompts(t *testing.T) {
	out := &sink{}
	q := NewLineQueue(4)
	s, err := Start(context.Background(), counterKind, testConfig(), q, narration.NewAnnouncer(out, 0))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	q.Submit("banana")
	q.Submit("+4")
	waitFor(t, func() bool { return s.Payout() == 4 })
	s.Abort()
	waitDone(t, s)

	if !out.contains("Send +N.") {
		t.Error("corrective message not sent")
	}
	if out.contains("invalid move") {
		t.Error("error prefix leaked to the player")
	}
}

// TestSessionScalesPayout verifies the base multiplier and extra factor.
func TestSessionScalesPayout(t *testing.T) {
	cfg := testConfig()
	cfg.BaseNumerator, cfg.BaseDenominator, cfg.Multiplier = 3, 4, 2
	q := NewLineQueue(1)
	s, err := Start(context.Background(), counterKind, cfg, q, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	q.Submit("+1000")
	waitFor(t, func() bool { return s.Payout() != 0 })
	s.Abort()
	waitDone(t, s)
	if s.Payout() != 1500 {
		t.Errorf("payout = %d, want 1500", s.Payout())
	}
}

// TestStartUnknownVariant verifies an unregistered kind is refused.
func TestStartUnknownVariant(t *testing.T) {
	_, err := Start(context.Background(), engine.MinigameKind(249), testConfig(), NewLineQueue(1), nil)
	if !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("err = %v, want ErrUnknownVariant", err)
	}
}

// TestDominoTrainRegistered verifies the built-in variant is available.
func TestDominoTrainRegistered(t *testing.T) {
	name, ok := Name(engine.GameDominoTrain)
	if !ok || name != "Domino Train" {
		t.Errorf("Name = %q, %v", name, ok)
	}
}

// TestLineQueue verifies buffering, overflow and close.
func TestLineQueue(t *testing.T) {
	q := NewLineQueue(1)
	if !q.Submit("a") || q.Submit("b") {
		t.Fatal("expected first submit to succeed and second to drop")
	}
	if line, err := q.Next(context.Background()); err != nil || line != "a" {
		t.Fatalf("Next = %q, %v", line, err)
	}
	q.Close()
	if _, err := q.Next(context.Background()); !errors.Is(err, ErrInputClosed) {
		t.Errorf("err = %v, want ErrInputClosed", err)
	}
}
