// internal/transport/hub_test.go
package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/boardshow/internal/game"
	"github.com/jason-s-yu/boardshow/internal/scores"
)

var testSecret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	id := uuid.New()
	tok, err := IssueToken(testSecret, id, "Alice", time.Minute)
	require.NoError(t, err)

	gotID, name, err := ParseToken(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "Alice", name)
}

func TestTokenRejected(t *testing.T) {
	id := uuid.New()

	expired, err := IssueToken(testSecret, id, "Alice", -time.Minute)
	require.NoError(t, err)
	_, _, err = ParseToken(testSecret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := IssueToken([]byte("other"), id, "Alice", time.Minute)
	require.NoError(t, err)
	_, _, err = ParseToken(testSecret, other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name:             "Alice",
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()},
	}).SignedString(testSecret)
	require.NoError(t, err)
	_, _, err = ParseToken(testSecret, noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	tampered, err := IssueToken(testSecret, id, "Alice", time.Minute)
	require.NoError(t, err)
	_, _, err = ParseToken(testSecret, tampered+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = ParseToken(testSecret, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type stubRanks []scores.Record

func (s stubRanks) Load(context.Context) ([]scores.Record, error) {
	out := make([]scores.Record, len(s))
	copy(out, s)
	return out, nil
}

// newTestHub serves a hub backed by a real manager.
func newTestHub(t *testing.T, ranks stubRanks) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(testSecret, 0)
	hub.Manager = game.NewManager(func(channel string) *game.ShowGame {
		rules := game.DefaultRules()
		rules.SignupTimeout = 0
		g := game.NewShowGame(channel, rules, hub.Announcer(channel))
		hub.Attach(g)
		return g
	})
	hub.Manager.PingFn = hub.Ping
	hub.Ranks = func(string) RankSource { return ranks }

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Manager.ShutdownAll()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, channel string, id uuid.UUID, name string) *websocket.Conn {
	t.Helper()
	tok, err := IssueToken(testSecret, id, name, time.Minute)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?channel=" + channel + "&token=" + tok

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

// readUntil reads events until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want game.GameEventType) game.GameEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var ev game.GameEvent
		require.NoError(t, wsjson.Read(ctx, conn, &ev), "waiting for %s", want)
		if ev.Type == want {
			return ev
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, typ, text string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, inbound{Type: typ, Text: text}))
}

func TestHubRejectsBadToken(t *testing.T) {
	_, srv := newTestHub(t, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?channel=lobby&token=nope"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHubJoinFlow(t *testing.T) {
	hub, srv := newTestHub(t, nil)
	alice, bob := uuid.New(), uuid.New()
	a := dial(t, srv, "lobby", alice, "Alice")
	b := dial(t, srv, "lobby", bob, "Bob")

	send(t, a, "join", "")
	ev := readUntil(t, a, game.EventNotice)
	assert.Equal(t, ErrNoGame.Error(), ev.Payload["text"])

	send(t, b, "next", "")
	ev = readUntil(t, b, game.EventNotice)
	assert.Equal(t, "You'll be pinged when the next game opens.", ev.Payload["text"])

	send(t, a, "open", "")
	ev = readUntil(t, b, game.EventNotice)
	assert.Contains(t, ev.Payload["text"], "<@"+bob.String()+">")

	send(t, a, "join", "")
	ev = readUntil(t, a, game.EventPlayerJoined)
	require.NotNil(t, ev.User)
	assert.Equal(t, "Alice", ev.User.Name)
	send(t, b, "join", "")
	ev = readUntil(t, a, game.EventPlayerJoined)
	assert.Equal(t, "Bob", ev.User.Name)

	send(t, a, "state", "")
	ev = readUntil(t, a, game.EventSyncState)
	require.NotNil(t, ev.State)
	assert.Len(t, ev.State.Players, 2)

	g, ok := hub.Manager.Get("lobby")
	require.True(t, ok)
	send(t, b, "start", "")
	ev = readUntil(t, a, game.EventGamePlayerTurn)
	assert.Equal(t, alice, ev.User.ID)

	send(t, b, "input", "1")
	ev = readUntil(t, b, game.EventNotice)
	assert.Equal(t, game.ErrNotYourTurn.Error(), ev.Payload["text"])

	send(t, a, "input", "1")
	ev = readUntil(t, a, game.EventSpaceResolved)
	require.NotNil(t, ev.Space)
	assert.Equal(t, 1, *ev.Space)
	assert.NotEqual(t, game.PhaseSignupsOpen.String(), g.Snapshot().Phase)
}

func TestHubRank(t *testing.T) {
	self := uuid.New()
	ranks := stubRanks{
		{ID: uuid.New(), Name: "Low", Money: 10, Booster: 100, WinStreak: 10},
		{ID: self, Name: "Me", Money: 500, Booster: 150, WinStreak: 15},
	}
	_, srv := newTestHub(t, ranks)
	conn := dial(t, srv, "lobby", self, "Me")

	send(t, conn, "rank", "")
	ev := readUntil(t, conn, game.EventNotice)
	assert.Equal(t, "Me: $500 [150%x1.5] - Rank #1/2", ev.Payload["text"])

	send(t, conn, "rank", "#2")
	ev = readUntil(t, conn, game.EventNotice)
	assert.Equal(t, "Low: $10 [100%x1.0] - Rank #2/2", ev.Payload["text"])

	send(t, conn, "rank", "nobody")
	ev = readUntil(t, conn, game.EventNotice)
	assert.Equal(t, true, ev.Payload["error"])
}

func TestHubUnknownMessage(t *testing.T) {
	_, srv := newTestHub(t, nil)
	conn := dial(t, srv, "lobby", uuid.New(), "Alice")

	send(t, conn, "dance", "")
	ev := readUntil(t, conn, game.EventNotice)
	assert.Contains(t, ev.Payload["text"], ErrUnknownMessage.Error())
}
