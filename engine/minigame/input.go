package minigame

import (
	"context"
	"errors"
)

// ErrInputClosed is returned by a LineQueue after Close.
var ErrInputClosed = errors.New("input closed")

// Input delivers one line of player text per call. Next blocks until a line
// arrives or ctx is done.
type Input interface {
	Next(ctx context.Context) (string, error)
}

// LineQueue is a buffered channel-backed Input. Lines submitted while the
// buffer is full are dropped.
type LineQueue struct {
	lines  chan string
	closed chan struct{}
}

// NewLineQueue returns a queue buffering up to size lines.
func NewLineQueue(size int) *LineQueue {
	if size < 1 {
		size = 1
	}
	return &LineQueue{lines: make(chan string, size), closed: make(chan struct{})}
}

// Submit enqueues line without blocking. It reports false if the line was dropped.
func (q *LineQueue) Submit(line string) bool {
	select {
	case <-q.closed:
		return false
	default:
	}
	select {
	case q.lines <- line:
		return true
	default:
		return false
	}
}

// Next implements Input.
func (q *LineQueue) Next(ctx context.Context) (string, error) {
	select {
	case line := <-q.lines:
		return line, nil
	case <-q.closed:
		return "", ErrInputClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close wakes any pending Next. Calling it more than once panics, like closing a channel.
func (q *LineQueue) Close() { close(q.closed) }
