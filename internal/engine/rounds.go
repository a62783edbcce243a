package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"reactionduel/internal/models"
	"reactionduel/internal/repo"
)

// ReportClick ingests one player's report for the current round: a genuine
// click with its elapsed time, or a timeout after the maximum wait. The whole
// record → count → resolve → advance sequence runs under the room lock, so
// the two players' racing reports are serialized and each round is resolved
// exactly once.
func (e *Engine) ReportClick(ctx context.Context, playerID string, elapsedMs int, isTimeout bool) error {
	player, err := e.repo.GetPlayer(ctx, playerID)
	if errors.Is(err, repo.ErrNotFound) {
		e.log.Debugw("click from unknown player dropped", "player", playerID)
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
	defer unlock()

	room, err := e.repo.GetRoom(ctx, roomID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if room.FinishedGame {
		e.log.Warnw("click after match finished", "room", roomID, "player", playerID)
		return nil
	}

	round, err := e.repo.CurrentRound(ctx, roomID)
	if errors.Is(err, repo.ErrNotFound) {
		e.log.Debugw("click before any round exists dropped", "room", roomID)
		return nil
	}
	if err != nil {
		return err
	}

	// A genuine click can race the same client's local timeout firing; the
	// first report for this round wins and the rest are ignored.
	if hasClick(round, playerID) {
		return nil
	}

	if len(round.Clicks) == 0 && isTimeout {
		recorded, err := e.jointTimeout(ctx, roomID, round, playerID)
		if err != nil || !recorded {
			return err
		}
	} else {
		t := elapsedMs
		if isTimeout {
			t = MaxClickTime
		}
		if err := e.recordClick(ctx, round, playerID, t); err != nil {
			return err
		}
	}

	e.notify.ReactionTimes(ctx, roomID, playerID)

	round, err = e.repo.CurrentRound(ctx, roomID)
	if err != nil {
		return err
	}
	if len(round.Clicks) != 2 {
		return nil
	}
	return e.resolveRound(ctx, roomID, round)
}

// jointTimeout handles the case where neither player clicked before the max
// wait. Both players' independent timers fire near-simultaneously, so only
// the player who is not first in join order may trigger it; the first-joined
// player's timeout is discarded and the opponent's report drives resolution.
func (e *Engine) jointTimeout(ctx context.Context, roomID string, round *models.Round, reporterID string) (bool, error) {
	players, err := e.repo.PlayersInRoom(ctx, roomID)
	if err != nil {
		return false, fmt.Errorf("listing room players: %w", err)
	}
	if len(players) > 0 && players[0].ID == reporterID {
		return false, nil
	}
	for _, p := range players {
		if err := e.recordClick(ctx, round, p.ID, MaxClickTime); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (e *Engine) recordClick(ctx context.Context, round *models.Round, playerID string, playerTime int) error {
	err := e.repo.CreateClick(ctx, &models.ClickRecord{
		ID:         uuid.NewString(),
		PlayerID:   playerID,
		RoundID:    round.ID,
		RoomID:     round.RoomID,
		PlayerTime: playerTime,
	})
	if errors.Is(err, repo.ErrDuplicateClick) {
		// The room lock makes this unreachable from racing reports; seeing
		// it means a bug upstream, not something to retry.
		e.log.Warnw("duplicate click rejected", "round", round.ID, "player", playerID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("recording click: %w", err)
	}
	return nil
}

// resolveRound scores a resolved round (both records present) and makes the
// single advance decision: next round, tie-break, or finish.
func (e *Engine) resolveRound(ctx context.Context, roomID string, round *models.Round) error {
	a, b := round.Clicks[0], round.Clicks[1]

	// An all-timeout round scores no one. Ties on identical times score no
	// one either; only a strictly lower time wins.
	if !(a.PlayerTime == MaxClickTime && b.PlayerTime == MaxClickTime) && a.PlayerTime != b.PlayerTime {
		winner := a
		if b.PlayerTime < a.PlayerTime {
			winner = b
		}
		if err := e.repo.IncrementWonRounds(ctx, winner.PlayerID); err != nil {
			return fmt.Errorf("scoring round: %w", err)
		}
		// Pulse the winner's flicker around the announcement broadcast.
		if err := e.repo.SetFlicker(ctx, winner.PlayerID, true); err != nil {
			return err
		}
		e.notify.ScoreUpdate(ctx, roomID)
		if err := e.repo.SetFlicker(ctx, winner.PlayerID, false); err != nil {
			return err
		}
	}

	switch {
	case round.RoundNumber >= TieBreakRound:
		return e.finishMatch(ctx, roomID)
	case round.RoundNumber == RegulationRounds:
		players, err := e.repo.PlayersInRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("listing room players: %w", err)
		}
		if len(players) == 2 && players[0].WonRounds == players[1].WonRounds {
			if err := e.createRound(ctx, roomID, TieBreakRound); err != nil {
				return err
			}
			if err := e.repo.MarkRoomTied(ctx, roomID); err != nil {
				return fmt.Errorf("marking tie-break: %w", err)
			}
			e.log.Infow("tie-break round created", "room", roomID)
			e.notify.AdvanceRound(ctx, roomID)
			return nil
		}
		return e.finishMatch(ctx, roomID)
	default:
		if err := e.createRound(ctx, roomID, round.RoundNumber+1); err != nil {
			return err
		}
		e.notify.AdvanceRound(ctx, roomID)
		return nil
	}
}

func (e *Engine) finishMatch(ctx context.Context, roomID string) error {
	if err := e.repo.FinishRoom(ctx, roomID); err != nil {
		return fmt.Errorf("finishing room: %w", err)
	}
	e.cancelReveal(roomID)
	e.log.Infow("match finished", "room", roomID)

	e.notify.Leaderboard(ctx, roomID)
	e.notify.RecentMatches(ctx, roomID)
	e.notify.MatchResult(ctx, roomID)
	e.notify.MatchEnded(ctx, roomID)
	return nil
}

func hasClick(round *models.Round, playerID string) bool {
	for _, c := range round.Clicks {
		if c.PlayerID == playerID {
			return true
		}
	}
	return false
}
