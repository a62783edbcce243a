package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"reactionduel/internal/models"
	"reactionduel/internal/repo"
	"reactionduel/internal/wshub"
)

// clientMessage is the inbound half of the wire envelope; Data is decoded
// per message type.
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type joinData struct {
	PlayerName string `json:"playerName"`
	RoomName   string `json:"roomName"`
}

type clickData struct {
	Time      int  `json:"time"`
	IsTimeout bool `json:"isTimeout"`
}

type elapsedData struct {
	Time int `json:"time"`
}

type welcomePayload struct {
	PlayerID string `json:"playerId"`
}

type joinResponsePayload struct {
	Success bool             `json:"success"`
	Players []*models.Player `json:"players"`
}

type opponentPayload struct {
	PlayerName string `json:"playerName"`
}

type playAgainPayload struct {
	Player *models.Player `json:"player"`
}

// handleWS upgrades the connection and runs the read loop. The client holds
// its player identity across reconnects by echoing back the playerId issued
// in the welcome message.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		playerID = uuid.NewString()
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.Log.Warnw("websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	client := &wshub.Client{
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, 32),
	}
	s.Hub.Register(client)
	s.Metrics.ConnectionOpened()
	s.Log.Infow("connection opened", "player", playerID)

	ctx := r.Context()
	go client.WritePump(ctx)

	// Reconnects rebind the connection to the player's current room so
	// in-flight match broadcasts keep flowing.
	if player, err := s.Engine.PlayAgain(ctx, playerID); err == nil && player.RoomID != "" {
		s.Hub.SetRoom(playerID, player.RoomID)
	}
	s.Hub.SendTo(playerID, wshub.Message{Type: "welcome", Data: welcomePayload{PlayerID: playerID}})

	defer func() {
		// A superseded socket closing must not look like the player leaving;
		// only the teardown of their current connection reaches the engine.
		current := s.Hub.Unregister(playerID, conn)
		s.Metrics.ConnectionClosed()
		if current {
			s.Engine.Disconnect(context.Background(), playerID)
		}
		s.Log.Infow("connection closed", "player", playerID, "replaced", !current)
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		s.Metrics.MessageReceived()

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Log.Debugw("malformed message dropped", "player", playerID, "err", err)
			continue
		}
		s.dispatch(ctx, playerID, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, playerID string, msg clientMessage) {
	switch msg.Type {
	case "joinRequest":
		var d joinData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return
		}
		s.handleJoin(ctx, playerID, d)

	case "requestReveal":
		if err := s.Engine.RequestReveal(ctx, playerID); err != nil {
			s.Log.Errorw("reveal request failed", "player", playerID, "err", err)
		}

	case "reportClick":
		var d clickData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return
		}
		if err := s.Engine.ReportClick(ctx, playerID, d.Time, d.IsTimeout); err != nil {
			s.Log.Errorw("click report failed", "player", playerID, "err", err)
		}

	case "reportElapsed":
		var d elapsedData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return
		}
		if err := s.Engine.AddReactionTime(ctx, playerID, d.Time); err != nil {
			s.Log.Errorw("elapsed report failed", "player", playerID, "err", err)
		}

	case "requestOpponentName":
		opponent, err := s.Engine.Opponent(ctx, playerID)
		if errors.Is(err, repo.ErrNotFound) {
			return // no opponent yet
		}
		if err != nil {
			s.Log.Errorw("opponent lookup failed", "player", playerID, "err", err)
			return
		}
		s.Hub.SendTo(playerID, wshub.Message{
			Type: "opponentJoined",
			Data: opponentPayload{PlayerName: opponent.PlayerName},
		})

	case "playAgainRequest":
		player, err := s.Engine.PlayAgain(ctx, playerID)
		if err != nil {
			if !errors.Is(err, repo.ErrNotFound) {
				s.Log.Errorw("play again lookup failed", "player", playerID, "err", err)
			}
			return
		}
		s.Hub.SendTo(playerID, wshub.Message{
			Type: "playAgainResponse",
			Data: playAgainPayload{Player: player},
		})

	default:
		s.Log.Debugw("unknown message type dropped", "player", playerID, "type", msg.Type)
	}
}

func (s *Server) handleJoin(ctx context.Context, playerID string, d joinData) {
	players, _, err := s.Engine.Join(ctx, playerID, d.PlayerName, d.RoomName)
	if err != nil {
		s.Log.Errorw("join failed", "player", playerID, "err", err)
		s.Hub.SendTo(playerID, wshub.Message{
			Type: "joinResponse",
			Data: joinResponsePayload{Success: false},
		})
		return
	}
	s.Hub.SendTo(playerID, wshub.Message{
		Type: "joinResponse",
		Data: joinResponsePayload{Success: true, Players: players},
	})
}
