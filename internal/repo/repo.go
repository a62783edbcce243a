package repo

import (
	"context"
	"errors"

	"reactionduel/internal/models"
)

// ErrNotFound is returned when a player, room or round does not exist.
// Callers handling stale connection events treat it as a silent drop.
var ErrNotFound = errors.New("repo: not found")

// ErrDuplicateClick is returned when a second ClickRecord is attempted for
// the same (player, round) pair.
var ErrDuplicateClick = errors.New("repo: duplicate click record")

// Repository is the durable storage collaborator for players, rooms, rounds
// and click records. Implementations: Memory (tests, DB-less mode) and
// Postgres.
type Repository interface {
	// Players
	CreatePlayer(ctx context.Context, p *models.Player) error
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	// PlayersInRoom returns the room's players in join order. The ordering
	// is load-bearing: the joint-timeout rule keys off the first-joined player.
	PlayersInRoom(ctx context.Context, roomID string) ([]*models.Player, error)
	// ResetPlayerForMatch moves an existing player into a room and zeroes
	// wonRounds, reactionTime, flicker and isTie.
	ResetPlayerForMatch(ctx context.Context, playerID, roomID string) error
	IncrementWonRounds(ctx context.Context, playerID string) error
	SetFlicker(ctx context.Context, playerID string, flicker bool) error
	AddReactionTime(ctx context.Context, playerID string, ms int) error
	MarkRoomTied(ctx context.Context, roomID string) error
	// TopPlayers returns up to limit players of finished rooms ordered by
	// ascending cumulative reaction time.
	TopPlayers(ctx context.Context, limit int) ([]*models.Player, error)

	// Rooms
	CreateRoom(ctx context.Context, r *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	// WaitingRoom returns a room with playerCount == 1, or ErrNotFound.
	WaitingRoom(ctx context.Context) (*models.Room, error)
	SetRoomPlayerCount(ctx context.Context, roomID string, count int) error
	FinishRoom(ctx context.Context, roomID string) error
	// RecentFinishedRooms returns up to limit finished rooms, newest first.
	RecentFinishedRooms(ctx context.Context, limit int) ([]*models.Room, error)

	// Rounds
	CreateRound(ctx context.Context, r *models.Round) error
	// CurrentRound returns the room's highest-numbered round with its
	// click records attached.
	CurrentRound(ctx context.Context, roomID string) (*models.Round, error)

	// Clicks
	CreateClick(ctx context.Context, c *models.ClickRecord) error
	ClicksForPlayer(ctx context.Context, roomID, playerID string) ([]models.ClickRecord, error)
}
