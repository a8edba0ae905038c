// Package narration delivers staged announcements in order, with optional
// pacing between lines that a skip request can collapse.
package narration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Line is one announcement, sent after Pause has elapsed.
type Line struct {
	Text  string
	Pause time.Duration
}

// Script is an append-only ordered sequence of lines for one effect or
// one session cycle.
type Script struct {
	Lines     []Line
	Skippable bool
}

// Say appends a line with no pause.
func (s *Script) Say(text string) { s.Lines = append(s.Lines, Line{Text: text}) }

// Sayf appends a formatted line with no pause.
func (s *Script) Sayf(format string, args ...interface{}) { s.Say(fmt.Sprintf(format, args...)) }

// After appends a line delivered once d has elapsed.
func (s *Script) After(d time.Duration, text string) {
	s.Lines = append(s.Lines, Line{Text: text, Pause: d})
}

// Append adds every line of other, keeping order.
func (s *Script) Append(other Script) { s.Lines = append(s.Lines, other.Lines...) }

// Len returns the number of lines.
func (s *Script) Len() int { return len(s.Lines) }

// Texts returns the line texts in order.
func (s *Script) Texts() []string {
	out := make([]string, len(s.Lines))
	for i, l := range s.Lines {
		out[i] = l.Text
	}
	return out
}

// Messenger is the outbound chat channel.
type Messenger interface {
	Send(ctx context.Context, text string) error
}

// MessengerFunc adapts a function to Messenger.
type MessengerFunc func(ctx context.Context, text string) error

func (f MessengerFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }

// Announcer serializes script delivery to a Messenger.
type Announcer struct {
	out  Messenger
	pace float64 // scales every pause; 0 disables pacing

	deliverMu sync.Mutex // one script at a time

	skipMu sync.Mutex
	skipCh chan struct{} // non-nil while a skippable script is in flight
}

// NewAnnouncer returns an announcer writing to out. pace scales pauses (1 = as
// scripted, 0 = no waiting).
func NewAnnouncer(out Messenger, pace float64) *Announcer {
	if pace < 0 {
		pace = 0
	}
	return &Announcer{out: out, pace: pace}
}

// Deliver sends every line of s in order. Send failures are logged and
// collected; delivery carries on with the next line. Cancelling ctx stops
// delivery of the remaining lines.
func (a *Announcer) Deliver(ctx context.Context, s Script) error {
	if len(s.Lines) == 0 {
		return nil
	}
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	var skip chan struct{}
	if s.Skippable {
		skip = make(chan struct{})
		a.skipMu.Lock()
		a.skipCh = skip
		a.skipMu.Unlock()
		defer func() {
			a.skipMu.Lock()
			if a.skipCh == skip {
				a.skipCh = nil
			}
			a.skipMu.Unlock()
		}()
	}

	var errs []error
	for _, line := range s.Lines {
		if err := a.wait(ctx, line.Pause, skip); err != nil {
			errs = append(errs, err)
			break
		}
		if err := a.out.Send(ctx, line.Text); err != nil {
			log.Warnf("Announcer: failed sending line: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Announcer) wait(ctx context.Context, d time.Duration, skip <-chan struct{}) error {
	d = time.Duration(float64(d) * a.pace)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-skip: // nil for non-skippable scripts, never fires
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Skip collapses the remaining pauses of the skippable script currently being
// delivered. It is a no-op when none is in flight or the script is not skippable.
func (a *Announcer) Skip() bool {
	a.skipMu.Lock()
	defer a.skipMu.Unlock()
	if a.skipCh == nil {
		return false
	}
	close(a.skipCh)
	a.skipCh = nil
	return true
}

// Say delivers a single unpaced line.
func (a *Announcer) Say(ctx context.Context, text string) error {
	return a.Deliver(ctx, Script{Lines: []Line{{Text: text}}})
}
