package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reactionduel/internal/models"
)

func (d *Postgres) CreatePlayer(ctx context.Context, p *models.Player) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO players (id, player_name, room_id, won_rounds, reaction_time, flicker, is_tie)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.PlayerName, nullableID(p.RoomID), p.WonRounds, p.ReactionTime, p.Flicker, p.IsTie)
	if err != nil {
		return fmt.Errorf("creating player: %w", err)
	}
	return nil
}

func (d *Postgres) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT id, player_name, room_id, won_rounds, reaction_time, flicker, is_tie, joined_at
		FROM players WHERE id = $1
	`, id)
	return scanPlayer(row)
}

func (d *Postgres) PlayersInRoom(ctx context.Context, roomID string) ([]*models.Player, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, player_name, room_id, won_rounds, reaction_time, flicker, is_tie, joined_at
		FROM players WHERE room_id = $1
		ORDER BY joined_at ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("listing room players: %w", err)
	}
	defer rows.Close()
	return collectPlayers(rows)
}

func (d *Postgres) ResetPlayerForMatch(ctx context.Context, playerID, roomID string) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE players
		SET room_id = $2, won_rounds = 0, reaction_time = 0, flicker = FALSE, is_tie = FALSE, joined_at = now()
		WHERE id = $1
	`, playerID, roomID)
	if err != nil {
		return fmt.Errorf("resetting player: %w", err)
	}
	return requireRow(res)
}

func (d *Postgres) IncrementWonRounds(ctx context.Context, playerID string) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE players SET won_rounds = won_rounds + 1 WHERE id = $1
	`, playerID)
	if err != nil {
		return fmt.Errorf("incrementing won rounds: %w", err)
	}
	return requireRow(res)
}

func (d *Postgres) SetFlicker(ctx context.Context, playerID string, flicker bool) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE players SET flicker = $2 WHERE id = $1
	`, playerID, flicker)
	if err != nil {
		return fmt.Errorf("setting flicker: %w", err)
	}
	return requireRow(res)
}

func (d *Postgres) AddReactionTime(ctx context.Context, playerID string, ms int) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE players SET reaction_time = reaction_time + $2 WHERE id = $1
	`, playerID, ms)
	if err != nil {
		return fmt.Errorf("adding reaction time: %w", err)
	}
	return requireRow(res)
}

func (d *Postgres) MarkRoomTied(ctx context.Context, roomID string) error {
	_, err := d.conn.ExecContext(ctx, `
		UPDATE players SET is_tie = TRUE WHERE room_id = $1
	`, roomID)
	if err != nil {
		return fmt.Errorf("marking room tied: %w", err)
	}
	return nil
}

func (d *Postgres) TopPlayers(ctx context.Context, limit int) ([]*models.Player, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT p.id, p.player_name, p.room_id, p.won_rounds, p.reaction_time, p.flicker, p.is_tie, p.joined_at
		FROM players p
		JOIN rooms r ON r.id = p.room_id
		WHERE r.finished_game = TRUE
		ORDER BY p.reaction_time ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top players: %w", err)
	}
	defer rows.Close()
	return collectPlayers(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*models.Player, error) {
	var p models.Player
	var roomID sql.NullString
	err := row.Scan(&p.ID, &p.PlayerName, &roomID, &p.WonRounds, &p.ReactionTime, &p.Flicker, &p.IsTie, &p.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning player: %w", err)
	}
	p.RoomID = roomID.String
	return &p, nil
}

func collectPlayers(rows *sql.Rows) ([]*models.Player, error) {
	var list []*models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
