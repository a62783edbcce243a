package wshub

import (
	"encoding/json"
	"testing"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"reactionduel/internal/metrics"
)

func newTestHub() *Hub {
	return NewHub(metrics.New(), zap.NewNop().Sugar())
}

func newTestClient(playerID, roomID string, buf int) *Client {
	return &Client{
		PlayerID: playerID,
		RoomID:   roomID,
		Conn:     new(websocket.Conn),
		Send:     make(chan []byte, buf),
	}
}

func recvType(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg.Type
	default:
		t.Fatal("no message queued")
		return ""
	}
}

func TestBroadcastRoom(t *testing.T) {
	hub := newTestHub()
	a := newTestClient("alice", "room-1", 4)
	b := newTestClient("bob", "room-1", 4)
	c := newTestClient("carol", "room-2", 4)
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)

	hub.BroadcastRoom("room-1", Message{Type: "startGame"})

	if got := recvType(t, a); got != "startGame" {
		t.Errorf("alice got %q, want startGame", got)
	}
	if got := recvType(t, b); got != "startGame" {
		t.Errorf("bob got %q, want startGame", got)
	}
	if len(c.Send) != 0 {
		t.Error("carol should not receive another room's broadcast")
	}
}

func TestSendTo(t *testing.T) {
	hub := newTestHub()
	a := newTestClient("alice", "room-1", 4)
	b := newTestClient("bob", "room-1", 4)
	hub.Register(a)
	hub.Register(b)

	hub.SendTo("alice", Message{Type: "welcome"})

	if got := recvType(t, a); got != "welcome" {
		t.Errorf("alice got %q, want welcome", got)
	}
	if len(b.Send) != 0 {
		t.Error("bob should not receive a direct message to alice")
	}
}

func TestSendTo_UnknownPlayer(t *testing.T) {
	hub := newTestHub()
	// must not panic or block
	hub.SendTo("nobody", Message{Type: "welcome"})
}

func TestSetRoom(t *testing.T) {
	hub := newTestHub()
	a := newTestClient("alice", "", 4)
	hub.Register(a)

	hub.SetRoom("alice", "room-1")
	hub.BroadcastRoom("room-1", Message{Type: "playerJoined"})

	if got := recvType(t, a); got != "playerJoined" {
		t.Errorf("alice got %q, want playerJoined", got)
	}
}

func TestUnregister(t *testing.T) {
	hub := newTestHub()
	a := newTestClient("alice", "room-1", 4)
	hub.Register(a)

	if !hub.Unregister("alice", a.Conn) {
		t.Error("Unregister should report removing the current connection")
	}

	if _, ok := <-a.Send; ok {
		t.Error("send channel should be closed")
	}
	hub.BroadcastRoom("room-1", Message{Type: "startGame"})
}

func TestRegister_ReplacesExistingConnection(t *testing.T) {
	hub := newTestHub()
	old := newTestClient("alice", "room-1", 4)
	hub.Register(old)

	replacement := newTestClient("alice", "room-1", 4)
	hub.Register(replacement)

	if _, ok := <-old.Send; ok {
		t.Error("old connection's send channel should be closed")
	}

	hub.SendTo("alice", Message{Type: "welcome"})
	if got := recvType(t, replacement); got != "welcome" {
		t.Errorf("replacement got %q, want welcome", got)
	}
}

func TestUnregister_StaleConnIgnored(t *testing.T) {
	hub := newTestHub()
	old := newTestClient("alice", "room-1", 4)
	hub.Register(old)
	replacement := newTestClient("alice", "room-1", 4)
	hub.Register(replacement)

	// the old connection's deferred cleanup must not tear down the new one
	if hub.Unregister("alice", old.Conn) {
		t.Error("Unregister of a replaced connection should report false")
	}

	hub.SendTo("alice", Message{Type: "welcome"})
	if got := recvType(t, replacement); got != "welcome" {
		t.Errorf("replacement got %q, want welcome", got)
	}
}

func TestBroadcastRoom_DropsWhenFull(t *testing.T) {
	hub := newTestHub()
	a := newTestClient("alice", "room-1", 1)
	hub.Register(a)

	// second message is dropped instead of blocking the broadcast
	hub.BroadcastRoom("room-1", Message{Type: "first"})
	hub.BroadcastRoom("room-1", Message{Type: "second"})

	if got := recvType(t, a); got != "first" {
		t.Errorf("got %q, want first", got)
	}
	if len(a.Send) != 0 {
		t.Error("overflow message should have been dropped")
	}
}
