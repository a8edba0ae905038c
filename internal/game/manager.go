// internal/game/manager.go
package game

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrGameRunning = errors.New("a game is already running in this channel")

// FactoryFunc builds a configured game for a channel.
type FactoryFunc func(channel string) *ShowGame

// Manager tracks at most one live game per channel and the users waiting
// to be pinged when the next one opens.
type Manager struct {
	mu    sync.Mutex
	games map[string]*ShowGame
	pings map[string][]string

	Factory FactoryFunc
	PingFn  func(channel string, mentions []string)
}

// NewManager creates an empty manager.
func NewManager(factory FactoryFunc) *Manager {
	return &Manager{
		games:   make(map[string]*ShowGame),
		pings:   make(map[string][]string),
		Factory: factory,
	}
}

// Open creates a game in channel and flushes its ping list.
func (m *Manager) Open(channel string) (*ShowGame, error) {
	m.mu.Lock()
	if g, ok := m.games[channel]; ok {
		select {
		case <-g.Done():
		default:
			m.mu.Unlock()
			return g, ErrGameRunning
		}
	}
	g := m.Factory(channel)
	m.games[channel] = g
	mentions := m.pings[channel]
	delete(m.pings, channel)
	m.mu.Unlock()

	log.Printf("Manager: Opened game %s in channel %s.", g.ID, channel)
	go m.reap(channel, g)

	if len(mentions) > 0 && m.PingFn != nil {
		m.PingFn(channel, mentions)
	}
	return g, nil
}

// reap forgets a game once it is over.
func (m *Manager) reap(channel string, g *ShowGame) {
	<-g.Done()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.games[channel] == g {
		delete(m.games, channel)
	}
}

// Get returns the live game in channel, if any.
func (m *Manager) Get(channel string) (*ShowGame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[channel]
	return g, ok
}

// NotifyNext adds a mention to channel's ping list. It reports false when
// the mention is already queued.
func (m *Manager) NotifyNext(channel, mention string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.pings[channel] {
		if existing == mention {
			return false
		}
	}
	m.pings[channel] = append(m.pings[channel], mention)
	return true
}

// ShutdownAll shuts down every live game and waits for each to finish.
func (m *Manager) ShutdownAll() {
	m.mu.Lock()
	games := make([]*ShowGame, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	m.mu.Unlock()

	for _, g := range games {
		g.Shutdown()
	}
	for _, g := range games {
		<-g.Done()
	}
	log.Printf("Manager: Shut down %d game(s).", len(games))
}
