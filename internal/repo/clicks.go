package repo

import (
	"context"
	"fmt"

	"reactionduel/internal/models"
)

func (d *Postgres) CreateClick(ctx context.Context, c *models.ClickRecord) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO click_records (id, player_id, round_id, room_id, player_time)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.PlayerID, c.RoundID, c.RoomID, c.PlayerTime)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateClick
		}
		return fmt.Errorf("recording click: %w", err)
	}
	return nil
}

func (d *Postgres) ClicksForPlayer(ctx context.Context, roomID, playerID string) ([]models.ClickRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, player_id, round_id, room_id, player_time
		FROM click_records
		WHERE room_id = $1 AND player_id = $2
		ORDER BY created_at ASC
	`, roomID, playerID)
	if err != nil {
		return nil, fmt.Errorf("querying player clicks: %w", err)
	}
	defer rows.Close()

	var list []models.ClickRecord
	for rows.Next() {
		var c models.ClickRecord
		if err := rows.Scan(&c.ID, &c.PlayerID, &c.RoundID, &c.RoomID, &c.PlayerTime); err != nil {
			return nil, fmt.Errorf("scanning click: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
