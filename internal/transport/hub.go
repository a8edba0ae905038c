// internal/transport/hub.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"

	"github.com/jason-s-yu/boardshow/engine/narration"
	"github.com/jason-s-yu/boardshow/internal/game"
	"github.com/jason-s-yu/boardshow/internal/scores"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNoGame         = errors.New("no game in this channel")
	ErrUnknownMessage = errors.New("unknown message type")
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 64
	readLimit    = 4096
)

// RankSource lists a channel's saved score rows.
type RankSource interface {
	Load(ctx context.Context) ([]scores.Record, error)
}

// inbound is a message from a player.
type inbound struct {
	Type string `json:"type"` // open, join, start, input, skip, withdraw, next, rank, state
	Text string `json:"text,omitempty"`
}

// client is one websocket connection bound to a user and a channel.
type client struct {
	id      uuid.UUID
	name    string
	channel string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub binds websocket clients to per-channel games.
type Hub struct {
	Manager        *game.Manager
	Ranks          func(channel string) RankSource
	Secret         []byte
	Pace           float64
	OriginPatterns []string

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

// NewHub creates a hub. Manager must be set before serving.
func NewHub(secret []byte, pace float64) *Hub {
	return &Hub{
		Secret: secret,
		Pace:   pace,
		rooms:  make(map[string]map[*client]struct{}),
	}
}

// Announcer returns a narration announcer writing to everyone in channel.
func (h *Hub) Announcer(channel string) *narration.Announcer {
	return narration.NewAnnouncer(h.Messenger(channel), h.Pace)
}

// Messenger sends each narration line to channel as an event.
func (h *Hub) Messenger(channel string) narration.Messenger {
	return narration.MessengerFunc(func(ctx context.Context, text string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.Broadcast(channel, game.GameEvent{Type: game.EventNarration, Payload: map[string]interface{}{"text": text}})
		return nil
	})
}

// Attach routes a game's events to its channel.
func (h *Hub) Attach(g *game.ShowGame) {
	channel := g.Channel
	g.BroadcastFn = func(ev game.GameEvent) { h.Broadcast(channel, ev) }
	g.BroadcastToPlayerFn = func(id uuid.UUID, ev game.GameEvent) { h.SendTo(channel, id, ev) }
}

// Ping announces newly opened signups to the users who asked for it.
func (h *Hub) Ping(channel string, mentions []string) {
	h.Broadcast(channel, game.GameEvent{
		Type:    game.EventNotice,
		Payload: map[string]interface{}{"text": "Signups are open! " + strings.Join(mentions, " "), "mentions": mentions},
	})
}

// Broadcast queues ev for every client in channel. Slow clients drop events.
func (h *Hub) Broadcast(channel string, ev game.GameEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("Hub: failed to encode %s event: %v", ev.Type, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[channel] {
		h.queue(c, msg)
	}
}

// SendTo queues ev for one user's connections in channel.
func (h *Hub) SendTo(channel string, id uuid.UUID, ev game.GameEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("Hub: failed to encode %s event: %v", ev.Type, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[channel] {
		if c.id == id {
			h.queue(c, msg)
		}
	}
}

// queue does a non-blocking send.
// Assumes h.mu is held by caller.
func (h *Hub) queue(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		log.Warnf("Hub: send buffer full for %s in %s, dropping message.", c.id, c.channel)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.channel]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.channel] = room
	}
	room[c] = struct{}{}
	log.Printf("Hub: %s connected to %s (%d clients).", c.name, c.channel, len(room))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[c.channel]
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.channel)
	}
	close(c.send)
	log.Printf("Hub: %s disconnected from %s.", c.name, c.channel)
}

// ServeHTTP upgrades /ws?channel=..&token=.. and runs the client's read loop.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, name, err := ParseToken(h.Secret, tokenFromRequest(r))
	if err != nil {
		log.Warnf("Hub: rejected connection from %s: %v", r.RemoteAddr, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		http.Error(w, "missing channel", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		log.Warnf("Hub: websocket accept failed for %s: %v", name, err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	c := &client{id: id, name: name, channel: channel, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	defer h.unregister(c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.writeLoop(ctx, c)

	if g, ok := h.Manager.Get(channel); ok {
		snap := g.Snapshot()
		h.reply(c, game.GameEvent{Type: game.EventSyncState, State: &snap})
	}

	for {
		var msg inbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				log.Debugf("Hub: read from %s ended: %v", name, err)
			}
			return
		}
		h.handle(ctx, c, msg)
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				log.Warnf("Hub: write to %s failed: %v", c.name, err)
				c.conn.CloseNow()
				return
			}
		}
	}
}

// handle dispatches one player message. Errors are answered privately.
func (h *Hub) handle(ctx context.Context, c *client, msg inbound) {
	var err error
	switch msg.Type {
	case "open":
		_, err = h.Manager.Open(c.channel)
	case "join":
		err = h.withGame(c, func(g *game.ShowGame) error { return g.AddPlayer(c.id, c.name) })
	case "start":
		err = h.withGame(c, func(g *game.ShowGame) error { return g.Start() })
	case "input":
		err = h.withGame(c, func(g *game.ShowGame) error { return g.SubmitInput(c.id, msg.Text) })
	case "skip":
		err = h.withGame(c, func(g *game.ShowGame) error {
			g.Skip(c.id)
			return nil
		})
	case "withdraw":
		err = h.withGame(c, func(g *game.ShowGame) error { return g.Withdraw(c.id) })
	case "state":
		err = h.withGame(c, func(g *game.ShowGame) error {
			snap := g.Snapshot()
			h.reply(c, game.GameEvent{Type: game.EventSyncState, State: &snap})
			return nil
		})
	case "next":
		h.next(c)
	case "rank":
		err = h.rank(ctx, c, msg.Text)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	if err != nil {
		h.reply(c, game.GameEvent{Type: game.EventNotice, Payload: map[string]interface{}{"text": err.Error(), "error": true}})
	}
}

func (h *Hub) withGame(c *client, fn func(g *game.ShowGame) error) error {
	g, ok := h.Manager.Get(c.channel)
	if !ok {
		return ErrNoGame
	}
	return fn(g)
}

// next queues the user on the channel's ping list.
func (h *Hub) next(c *client) {
	if g, ok := h.Manager.Get(c.channel); ok && g.Snapshot().Phase == game.PhaseSignupsOpen.String() {
		h.notice(c, "Signups are open right now.")
		return
	}
	if h.Manager.NotifyNext(c.channel, "<@"+c.id.String()+">") {
		h.notice(c, "You'll be pinged when the next game opens.")
	} else {
		h.notice(c, "You're already on the list.")
	}
}

// rank answers a rank query against the channel's saved scores.
func (h *Hub) rank(ctx context.Context, c *client, query string) error {
	if h.Ranks == nil {
		return errors.New("rankings are not available")
	}
	list, err := h.Ranks(c.channel).Load(ctx)
	if err != nil {
		log.Warnf("Hub: loading ranks for %s failed: %v", c.channel, err)
		return errors.New("rankings are not available")
	}
	scores.Sort(list)
	rank, rec, err := scores.Find(list, query, c.id)
	if err != nil {
		return err
	}
	h.notice(c, scores.FormatRank(rec, rank, len(list)))
	return nil
}

func (h *Hub) notice(c *client, text string) {
	h.reply(c, game.GameEvent{Type: game.EventNotice, Payload: map[string]interface{}{"text": text}})
}

// reply queues an event for a single connection.
func (h *Hub) reply(c *client, ev game.GameEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("Hub: failed to encode %s event: %v", ev.Type, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[c.channel][c]; ok {
		h.queue(c, msg)
	}
}
