package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reactionduel/internal/models"
)

func (d *Postgres) CreateRoom(ctx context.Context, r *models.Room) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO rooms (id, name, player_count, finished_game)
		VALUES ($1, $2, $3, $4)
	`, r.ID, r.Name, r.PlayerCount, r.FinishedGame)
	if err != nil {
		return fmt.Errorf("creating room: %w", err)
	}
	return nil
}

func (d *Postgres) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	return d.roomQuery(ctx, `
		SELECT id, name, player_count, finished_game, created_at
		FROM rooms WHERE id = $1
	`, id)
}

func (d *Postgres) WaitingRoom(ctx context.Context) (*models.Room, error) {
	return d.roomQuery(ctx, `
		SELECT id, name, player_count, finished_game, created_at
		FROM rooms
		WHERE player_count = 1 AND finished_game = FALSE
		ORDER BY created_at ASC
		LIMIT 1
	`)
}

func (d *Postgres) SetRoomPlayerCount(ctx context.Context, roomID string, count int) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE rooms SET player_count = $2 WHERE id = $1
	`, roomID, count)
	if err != nil {
		return fmt.Errorf("setting room player count: %w", err)
	}
	return requireRow(res)
}

func (d *Postgres) FinishRoom(ctx context.Context, roomID string) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE rooms SET finished_game = TRUE WHERE id = $1
	`, roomID)
	if err != nil {
		return fmt.Errorf("finishing room: %w", err)
	}
	return requireRow(res)
}

func (d *Postgres) RecentFinishedRooms(ctx context.Context, limit int) ([]*models.Room, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, name, player_count, finished_game, created_at
		FROM rooms
		WHERE finished_game = TRUE
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent rooms: %w", err)
	}
	defer rows.Close()

	var list []*models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.PlayerCount, &r.FinishedGame, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		list = append(list, &r)
	}
	return list, rows.Err()
}

func (d *Postgres) roomQuery(ctx context.Context, query string, args ...any) (*models.Room, error) {
	var r models.Room
	err := d.conn.QueryRowContext(ctx, query, args...).
		Scan(&r.ID, &r.Name, &r.PlayerCount, &r.FinishedGame, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying room: %w", err)
	}
	return &r, nil
}
