package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factoria/game-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Snapshots and month logs are stored as JSONB; monetary amounts travel
// inside the JSON as decimal strings, never floats.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, sessionID string, snapshot model.GameSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", sessionID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_snapshots (session_id, month_index, state, updated_at)
		 VALUES ($1, $2, $3::JSONB, $4)
		 ON CONFLICT (session_id)
		 DO UPDATE SET month_index = EXCLUDED.month_index,
		               state = EXCLUDED.state,
		               updated_at = EXCLUDED.updated_at`,
		sessionID, snapshot.MonthIndex, data, time.Now().UTC(),
	)
	return err
}

func (s *PostgresStore) LoadSnapshot(ctx context.Context, sessionID string) (model.GameSnapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM game_snapshots WHERE session_id = $1`, sessionID).
		Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GameSnapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return model.GameSnapshot{}, fmt.Errorf("load snapshot %s: %w", sessionID, err)
	}

	var snapshot model.GameSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.GameSnapshot{}, fmt.Errorf("unmarshal snapshot %s: %w", sessionID, err)
	}
	return snapshot, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM month_logs WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM game_snapshots WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id FROM game_snapshots ORDER BY session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) AppendMonthLog(ctx context.Context, sessionID string, log model.MonthLog) error {
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal month log for %s: %w", sessionID, err)
	}
	// Unique (session_id, month_index) keeps the journal append-only.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO month_logs (session_id, month_index, journal, created_at)
		 VALUES ($1, $2, $3::JSONB, $4)`,
		sessionID, log.MonthIndex, data, time.Now().UTC(),
	)
	return err
}

func (s *PostgresStore) MonthLogs(ctx context.Context, sessionID string) ([]model.MonthLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT journal FROM month_logs
		 WHERE session_id = $1 ORDER BY month_index`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.MonthLog
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var log model.MonthLog
		if err := json.Unmarshal(data, &log); err != nil {
			return nil, fmt.Errorf("unmarshal month log for %s: %w", sessionID, err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
