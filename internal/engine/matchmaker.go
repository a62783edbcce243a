package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"reactionduel/internal/models"
	"reactionduel/internal/repo"
)

// Join pairs the player into a match. If a room is waiting for an opponent
// the player is attached to it, round 1 is created and the match starts;
// otherwise a new waiting room is opened. Returns the room's players and
// whether the room is now full.
func (e *Engine) Join(ctx context.Context, playerID, playerName, roomLabel string) ([]*models.Player, bool, error) {
	e.mmMu.Lock()
	defer e.mmMu.Unlock()

	waiting, err := e.repo.WaitingRoom(ctx)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, false, fmt.Errorf("finding waiting room: %w", err)
	}

	if err == nil {
		occupants, err := e.repo.PlayersInRoom(ctx, waiting.ID)
		if err != nil {
			return nil, false, fmt.Errorf("listing room players: %w", err)
		}
		// A retried join from the player already waiting here must not pair
		// them against themselves.
		if len(occupants) == 1 && occupants[0].ID == playerID {
			return occupants, false, nil
		}
		return e.joinWaiting(ctx, waiting, playerID, playerName)
	}

	room := &models.Room{
		ID:          uuid.NewString(),
		Name:        roomLabel,
		PlayerCount: 1,
		CreatedAt:   e.clock.Now(),
	}
	if err := e.repo.CreateRoom(ctx, room); err != nil {
		return nil, false, fmt.Errorf("creating room: %w", err)
	}
	if err := e.attachPlayer(ctx, playerID, playerName, room.ID); err != nil {
		return nil, false, err
	}
	e.log.Infow("player waiting for opponent", "player", playerID, "room", room.ID)

	e.notify.JoinRoom(ctx, playerID, room.ID)
	e.notify.PlayerJoined(ctx, room.ID, playerName, room.PlayerCount)
	e.postJoinProjections(ctx, room.ID)

	player, err := e.repo.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, false, err
	}
	return []*models.Player{player}, false, nil
}

func (e *Engine) joinWaiting(ctx context.Context, room *models.Room, playerID, playerName string) ([]*models.Player, bool, error) {
	if err := e.attachPlayer(ctx, playerID, playerName, room.ID); err != nil {
		return nil, false, err
	}
	e.notify.JoinRoom(ctx, playerID, room.ID)
	if err := e.repo.SetRoomPlayerCount(ctx, room.ID, 2); err != nil {
		return nil, false, fmt.Errorf("filling room: %w", err)
	}
	if err := e.createRound(ctx, room.ID, 1); err != nil {
		return nil, false, err
	}

	players, err := e.repo.PlayersInRoom(ctx, room.ID)
	if err != nil {
		return nil, false, fmt.Errorf("listing room players: %w", err)
	}
	e.log.Infow("match started", "room", room.ID, "players", len(players))

	e.notify.OnlinePlayers(ctx, room.ID)
	e.notify.StartGame(ctx, room.ID)
	e.notify.ScoreUpdate(ctx, room.ID)
	e.postJoinProjections(ctx, room.ID)

	return players, true, nil
}

// attachPlayer reuses an existing record by identity (resetting its match
// state) or creates a fresh one.
func (e *Engine) attachPlayer(ctx context.Context, playerID, playerName, roomID string) error {
	err := e.repo.ResetPlayerForMatch(ctx, playerID, roomID)
	if errors.Is(err, repo.ErrNotFound) {
		return e.repo.CreatePlayer(ctx, &models.Player{
			ID:         playerID,
			PlayerName: playerName,
			RoomID:     roomID,
			JoinedAt:   e.clock.Now(),
		})
	}
	if err != nil {
		return fmt.Errorf("resetting player: %w", err)
	}
	return nil
}

func (e *Engine) createRound(ctx context.Context, roomID string, number int) error {
	delay, cell := e.gen.Next()
	round := &models.Round{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		RoundNumber: number,
		TargetCell:  cell,
		DelayMs:     delay,
		CreatedAt:   e.clock.Now(),
	}
	if err := e.repo.CreateRound(ctx, round); err != nil {
		return fmt.Errorf("creating round %d: %w", number, err)
	}
	return nil
}

// postJoinProjections pushes the global views every fresh joiner expects.
func (e *Engine) postJoinProjections(ctx context.Context, roomID string) {
	e.notify.Leaderboard(ctx, roomID)
	e.notify.RecentMatches(ctx, roomID)
}
