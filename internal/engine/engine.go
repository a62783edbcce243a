// Package engine owns the match session lifecycle: pairing players into
// rooms, scheduling target reveals, resolving rounds from the two players'
// independent click streams, and deciding when a match advances, tie-breaks
// or ends. All round mutation for a room happens under that room's lock, so
// concurrent reports can never resolve a round twice.
package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"reactionduel/internal/models"
	"reactionduel/internal/repo"
)

const (
	// MaxClickTime is the max-time sentinel recorded for a player who never
	// clicked before the round's maximum wait elapsed.
	MaxClickTime = 30000

	// RegulationRounds is the number of rounds in a normal match.
	// TieBreakRound is played only when regulation ends with equal wins.
	RegulationRounds = 10
	TieBreakRound    = 11
)

// Notifier receives the engine's outbound notifications. The session
// broadcaster implements it by projecting repository state to the two
// participants; delivery failures must not affect the game flow, so the
// methods return nothing.
type Notifier interface {
	// JoinRoom binds the player's connection to the room so the broadcasts
	// below reach it; it must happen before the room is notified about the
	// join (the transport-level equivalent of joining a socket room).
	JoinRoom(ctx context.Context, playerID, roomID string)
	PlayerJoined(ctx context.Context, roomID, playerName string, roomSize int)
	OnlinePlayers(ctx context.Context, roomID string)
	StartGame(ctx context.Context, roomID string)
	ScoreUpdate(ctx context.Context, roomID string)
	RevealTarget(ctx context.Context, roomID string, cell int)
	AdvanceRound(ctx context.Context, roomID string)
	ReactionTimes(ctx context.Context, roomID, playerID string)
	MatchEnded(ctx context.Context, roomID string)
	Leaderboard(ctx context.Context, roomID string)
	RecentMatches(ctx context.Context, roomID string)
	MatchResult(ctx context.Context, roomID string)
	PlayerLeft(ctx context.Context, player *models.Player, matchFinished bool)
}

type Engine struct {
	repo   repo.Repository
	notify Notifier
	gen    *TargetGenerator
	clock  clockwork.Clock
	log    *zap.SugaredLogger

	// mmMu serializes matchmaking so a third player can never race into a
	// room that is transitioning to full.
	mmMu  sync.Mutex
	locks *roomLocks

	revealMu sync.Mutex
	reveals  map[string]clockwork.Timer
}

func New(r repo.Repository, n Notifier, gen *TargetGenerator, clock clockwork.Clock, log *zap.SugaredLogger) *Engine {
	return &Engine{
		repo:    r,
		notify:  n,
		gen:     gen,
		clock:   clock,
		log:     log,
		locks:   newRoomLocks(),
		reveals: make(map[string]clockwork.Timer),
	}
}

// AddReactionTime accumulates elapsed time reported by the client into the
// player's cumulative reaction time, independent of round resolution.
func (e *Engine) AddReactionTime(ctx context.Context, playerID string, ms int) error {
	err := e.repo.AddReactionTime(ctx, playerID, ms)
	if errors.Is(err, repo.ErrNotFound) {
		e.log.Debugw("elapsed report from unknown player dropped", "player", playerID)
		return nil
	}
	return err
}

// Opponent resolves the other participant in the player's room.
func (e *Engine) Opponent(ctx context.Context, playerID string) (*models.Player, error) {
	player, err := e.repo.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player.RoomID == "" {
		return nil, repo.ErrNotFound
	}
	players, err := e.repo.PlayersInRoom(ctx, player.RoomID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if p.ID != playerID {
			return p, nil
		}
	}
	return nil, repo.ErrNotFound
}

// PlayAgain returns the player's current record so the client can re-enter
// matchmaking with its held identity.
func (e *Engine) PlayAgain(ctx context.Context, playerID string) (*models.Player, error) {
	return e.repo.GetPlayer(ctx, playerID)
}
