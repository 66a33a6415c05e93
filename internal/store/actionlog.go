package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"belote-lobby/internal/game"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var actionLogSchema string

// ActionRecorder receives one record per committed room mutation.
type ActionRecorder interface {
	Record(ctx context.Context, action game.Action) error
}

// NopActionLog drops every action.
type NopActionLog struct{}

func (NopActionLog) Record(context.Context, game.Action) error { return nil }

// ActionLog appends room actions to Postgres.
type ActionLog struct {
	Pool *pgxpool.Pool
}

func NewActionLog(ctx context.Context, dsn string) (*ActionLog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &ActionLog{Pool: pool}, nil
}

func (l *ActionLog) Close() {
	if l.Pool != nil {
		l.Pool.Close()
	}
}

func (l *ActionLog) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return l.Pool.Ping(ctx)
}

// EnsureSchema creates the action table if it is missing.
func (l *ActionLog) EnsureSchema(ctx context.Context) error {
	_, err := l.Pool.Exec(ctx, actionLogSchema)
	return err
}

func (l *ActionLog) Record(ctx context.Context, a game.Action) error {
	data := a.Data
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode action data: %w", err)
	}
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = l.Pool.Exec(ctx,
		`INSERT INTO room_actions (id, room_id, action_type, player_id, data, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		NewID(), a.RoomID, string(a.Type), a.PlayerID, string(b), ts,
	)
	return err
}

// ListByRoom returns a room's actions oldest first.
func (l *ActionLog) ListByRoom(ctx context.Context, roomID string, limit int) ([]game.Action, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := l.Pool.Query(ctx,
		`SELECT room_id, action_type, player_id, data, created_at
		 FROM room_actions WHERE room_id = $1
		 ORDER BY created_at, id LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []game.Action{}
	for rows.Next() {
		var (
			a    game.Action
			typ  string
			data []byte
		)
		if err := rows.Scan(&a.RoomID, &typ, &a.PlayerID, &data, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Type = game.ActionType(typ)
		if len(data) > 0 {
			if err := json.Unmarshal(data, &a.Data); err != nil {
				return nil, fmt.Errorf("decode action data: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
