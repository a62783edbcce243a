package engine

import (
	"context"
	"errors"
	"time"

	"reactionduel/internal/repo"
)

// RequestReveal schedules the broadcast of the current round's target cell,
// delayMs after the round was created. The delay is enforced server-side; a
// client asking early just arms (or re-arms) the timer, and asking after the
// reveal fires it immediately with the same stable target. The room lock is
// held only for the round read, never across the wait.
func (e *Engine) RequestReveal(ctx context.Context, playerID string) error {
	player, err := e.repo.GetPlayer(ctx, playerID)
	if errors.Is(err, repo.ErrNotFound) {
		e.log.Debugw("reveal request from unknown player dropped", "player", playerID)
		return nil
	}
	if err != nil {
		return err
	}
	if player.RoomID == "" {
		return nil
	}
	roomID := player.RoomID

	unlock := e.locks.Lock(roomID)
	room, err := e.repo.GetRoom(ctx, roomID)
	if err != nil {
		unlock()
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	if room.FinishedGame {
		unlock()
		return nil
	}
	round, err := e.repo.CurrentRound(ctx, roomID)
	unlock()
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	remaining := time.Duration(round.DelayMs)*time.Millisecond - e.clock.Since(round.CreatedAt)
	if remaining < 0 {
		remaining = 0
	}
	e.armReveal(roomID, round.TargetCell, remaining)
	return nil
}

// armReveal replaces any pending reveal timer for the room. The fired timer
// re-checks the room state so a reveal pending when the match finishes is a
// no-op.
func (e *Engine) armReveal(roomID string, cell int, d time.Duration) {
	e.revealMu.Lock()
	defer e.revealMu.Unlock()

	if t, ok := e.reveals[roomID]; ok {
		t.Stop()
	}
	e.reveals[roomID] = e.clock.AfterFunc(d, func() {
		e.revealMu.Lock()
		delete(e.reveals, roomID)
		e.revealMu.Unlock()

		ctx := context.Background()
		room, err := e.repo.GetRoom(ctx, roomID)
		if err != nil || room.FinishedGame {
			return
		}
		e.log.Debugw("target revealed", "room", roomID, "cell", cell)
		e.notify.RevealTarget(ctx, roomID, cell)
	})
}

// cancelReveal makes any pending reveal for the room inert. Called when the
// match reaches its terminal state.
func (e *Engine) cancelReveal(roomID string) {
	e.revealMu.Lock()
	defer e.revealMu.Unlock()
	if t, ok := e.reveals[roomID]; ok {
		t.Stop()
		delete(e.reveals, roomID)
	}
}
