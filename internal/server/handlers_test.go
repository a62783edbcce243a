package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"reactionduel/internal/broadcast"
	"reactionduel/internal/engine"
	"reactionduel/internal/metrics"
	"reactionduel/internal/repo"
	"reactionduel/internal/wshub"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	m := metrics.New()
	log := zap.NewNop().Sugar()
	hub := wshub.NewHub(m, log)
	store := repo.NewMemory()
	bc := broadcast.New(store, hub, m, log)
	eng := engine.New(store, bc, engine.NewTargetGenerator(), clockwork.NewRealClock(), log)

	srv := &Server{Engine: eng, Hub: hub, Metrics: m, Log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.handleWS)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/metrics", m.Handler)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server, playerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if playerID != "" {
		url += "?playerId=" + playerID
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"type": msgType, "data": data})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
}

// readUntil reads messages until one of the wanted type arrives, skipping the
// broadcasts in between.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, want string) wireMessage {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("waiting for %q: %v", want, err)
		}
		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func TestHandleWS_Welcome(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, "")
	msg := readUntil(t, ctx, conn, "welcome")

	var w welcomePayload
	if err := json.Unmarshal(msg.Data, &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.PlayerID == "" {
		t.Error("welcome should carry a generated player id")
	}
}

func TestHandleWS_WelcomeEchoesHeldIdentity(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, "alice")
	msg := readUntil(t, ctx, conn, "welcome")

	var w welcomePayload
	if err := json.Unmarshal(msg.Data, &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.PlayerID != "alice" {
		t.Errorf("playerId = %q, want alice", w.PlayerID)
	}
}

func TestHandleWS_MatchFlow(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dial(t, ctx, ts, "alice")
	readUntil(t, ctx, alice, "welcome")
	send(t, ctx, alice, "joinRequest", map[string]string{"playerName": "Alice", "roomName": "duel"})

	msg := readUntil(t, ctx, alice, "joinResponse")
	var jr joinResponsePayload
	if err := json.Unmarshal(msg.Data, &jr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !jr.Success || len(jr.Players) != 1 {
		t.Fatalf("joinResponse = %+v, want success with one player", jr)
	}

	bob := dial(t, ctx, ts, "bob")
	readUntil(t, ctx, bob, "welcome")
	send(t, ctx, bob, "joinRequest", map[string]string{"playerName": "Bob", "roomName": "duel"})

	msg = readUntil(t, ctx, bob, "joinResponse")
	if err := json.Unmarshal(msg.Data, &jr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !jr.Success || len(jr.Players) != 2 {
		t.Fatalf("joinResponse = %+v, want success with two players", jr)
	}

	// both see the match start and the opening 0-0 score
	readUntil(t, ctx, alice, "startGame")
	readUntil(t, ctx, bob, "startGame")
	readUntil(t, ctx, alice, "scoreUpdate")

	send(t, ctx, alice, "reportClick", map[string]any{"time": 1200, "isTimeout": false})
	send(t, ctx, bob, "reportClick", map[string]any{"time": 1800, "isTimeout": false})

	msg = readUntil(t, ctx, alice, "scoreUpdate")
	var score struct {
		Players []struct {
			ID        string `json:"id"`
			WonRounds int    `json:"wonRounds"`
		} `json:"players"`
	}
	if err := json.Unmarshal(msg.Data, &score); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	wins := map[string]int{}
	for _, p := range score.Players {
		wins[p.ID] = p.WonRounds
	}
	if wins["alice"] != 1 || wins["bob"] != 0 {
		t.Errorf("score = %v, want alice 1, bob 0", wins)
	}

	readUntil(t, ctx, bob, "advanceRound")
}

func TestHandleWS_OpponentName(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dial(t, ctx, ts, "alice")
	readUntil(t, ctx, alice, "welcome")
	send(t, ctx, alice, "joinRequest", map[string]string{"playerName": "Alice", "roomName": "duel"})
	readUntil(t, ctx, alice, "joinResponse")

	bob := dial(t, ctx, ts, "bob")
	readUntil(t, ctx, bob, "welcome")
	send(t, ctx, bob, "joinRequest", map[string]string{"playerName": "Bob", "roomName": "duel"})
	readUntil(t, ctx, bob, "joinResponse")

	send(t, ctx, alice, "requestOpponentName", nil)
	msg := readUntil(t, ctx, alice, "opponentJoined")

	var op opponentPayload
	if err := json.Unmarshal(msg.Data, &op); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if op.PlayerName != "Bob" {
		t.Errorf("playerName = %q, want Bob", op.PlayerName)
	}
}

func TestHandleWS_ReconnectKeepsPlayerInMatch(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dial(t, ctx, ts, "alice")
	readUntil(t, ctx, alice, "welcome")
	send(t, ctx, alice, "joinRequest", map[string]string{"playerName": "Alice", "roomName": "duel"})
	readUntil(t, ctx, alice, "joinResponse")

	bob := dial(t, ctx, ts, "bob")
	readUntil(t, ctx, bob, "welcome")
	send(t, ctx, bob, "joinRequest", map[string]string{"playerName": "Bob", "roomName": "duel"})
	readUntil(t, ctx, bob, "startGame")

	// alice reconnects with her held identity, then the superseded socket
	// closes; bob must not be told she left
	alice2 := dial(t, ctx, ts, "alice")
	readUntil(t, ctx, alice2, "welcome")
	alice.Close(websocket.StatusNormalClosure, "")
	time.Sleep(100 * time.Millisecond)

	send(t, ctx, bob, "requestOpponentName", nil)
	for {
		_, data, err := bob.Read(ctx)
		if err != nil {
			t.Fatalf("waiting for opponentJoined: %v", err)
		}
		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type == "playerLeft" {
			t.Fatal("superseded connection's close was broadcast as the player leaving")
		}
		if msg.Type == "opponentJoined" {
			break
		}
	}

	// the replacement connection is live and room-bound
	send(t, ctx, alice2, "requestOpponentName", nil)
	msg := readUntil(t, ctx, alice2, "opponentJoined")
	var op opponentPayload
	if err := json.Unmarshal(msg.Data, &op); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if op.PlayerName != "Bob" {
		t.Errorf("playerName = %q, want Bob", op.PlayerName)
	}
}

func TestHandleWS_MalformedMessageIgnored(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, "alice")
	readUntil(t, ctx, conn, "welcome")

	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	// the connection must survive garbage input
	send(t, ctx, conn, "joinRequest", map[string]string{"playerName": "Alice", "roomName": "duel"})
	readUntil(t, ctx, conn, "joinResponse")
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
