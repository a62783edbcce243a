package engine

import (
	"context"
	"errors"

	"reactionduel/internal/repo"
)

// Disconnect handles a participant's connection going away. The remaining
// participant is told whether the match had already finished, so it can tell
// an expected end-of-match departure from a mid-match abandonment. Unfinished
// rooms are left as they are; the remaining client returns to matchmaking on
// this signal.
func (e *Engine) Disconnect(ctx context.Context, playerID string) {
	player, err := e.repo.GetPlayer(ctx, playerID)
	if errors.Is(err, repo.ErrNotFound) {
		return
	}
	if err != nil {
		e.log.Warnw("disconnect lookup failed", "player", playerID, "err", err)
		return
	}
	if player.RoomID == "" {
		return
	}

	finished := false
	if room, err := e.repo.GetRoom(ctx, player.RoomID); err == nil {
		finished = room.FinishedGame
	}
	e.log.Infow("player left", "player", playerID, "room", player.RoomID, "finished", finished)
	e.notify.PlayerLeft(ctx, player, finished)
}
