package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reactionduel/internal/models"
)

func (d *Postgres) CreateRound(ctx context.Context, r *models.Round) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO rounds (id, room_id, round_number, target_cell, delay_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.RoomID, r.RoundNumber, r.TargetCell, r.DelayMs, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating round: %w", err)
	}
	return nil
}

func (d *Postgres) CurrentRound(ctx context.Context, roomID string) (*models.Round, error) {
	var r models.Round
	err := d.conn.QueryRowContext(ctx, `
		SELECT id, room_id, round_number, target_cell, delay_ms, created_at
		FROM rounds
		WHERE room_id = $1
		ORDER BY round_number DESC
		LIMIT 1
	`, roomID).Scan(&r.ID, &r.RoomID, &r.RoundNumber, &r.TargetCell, &r.DelayMs, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying current round: %w", err)
	}

	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, player_id, round_id, room_id, player_time
		FROM click_records
		WHERE round_id = $1
		ORDER BY created_at ASC
	`, r.ID)
	if err != nil {
		return nil, fmt.Errorf("querying round clicks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.ClickRecord
		if err := rows.Scan(&c.ID, &c.PlayerID, &c.RoundID, &c.RoomID, &c.PlayerTime); err != nil {
			return nil, fmt.Errorf("scanning click: %w", err)
		}
		r.Clicks = append(r.Clicks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}
