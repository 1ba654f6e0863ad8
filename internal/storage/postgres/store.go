package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lendingScope/internal/model"
	"lendingScope/internal/storage"
)

// Store provides Postgres persistence for sync state and events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema creates the state and events tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create state table: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			block_number BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			log_index BIGINT NOT NULL,
			contract TEXT NOT NULL,
			event_name TEXT NOT NULL,
			args_json JSONB NOT NULL DEFAULT '{}',
			timestamp BIGINT NOT NULL,
			UNIQUE (tx_hash, log_index)
		)
	`)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS events_block_log_idx
		ON events (block_number, log_index)
	`)
	if err != nil {
		return fmt.Errorf("create events index: %w", err)
	}

	return nil
}

// GetState returns the value for a key, reporting absence without error.
func (s *Store) GetState(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, fmt.Errorf("state key required")
	}
	var value string
	row := s.pool.QueryRow(ctx, `SELECT value FROM state WHERE key=$1`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// SetState upserts a key-value pair.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("state key required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO state (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	return err
}

// InsertEvent stores an event; a duplicate (tx_hash, log_index) is a no-op.
func (s *Store) InsertEvent(ctx context.Context, event model.Event) error {
	argsJSON := []byte(event.Args)
	if len(argsJSON) == 0 {
		argsJSON = []byte("{}")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (block_number, tx_hash, log_index, contract, event_name, args_json, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`,
		int64(event.BlockNumber),
		event.TxHash,
		int64(event.LogIndex),
		event.Contract,
		event.EventName,
		argsJSON,
		int64(event.Timestamp),
	)
	return err
}

// QueryEvents returns events matching the filter ordered by
// (block_number, log_index) ascending.
func (s *Store) QueryEvents(ctx context.Context, filter storage.EventFilter, limit int) ([]model.Event, error) {
	where, params := buildWhere(filter)
	params = append(params, limit)

	sql := `
		SELECT block_number, tx_hash, log_index, contract, event_name, args_json, timestamp
		FROM events
	` + where + fmt.Sprintf(" ORDER BY block_number ASC, log_index ASC LIMIT $%d", len(params))

	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.Event, 0, limit)
	for rows.Next() {
		var (
			blockNumber int64
			logIndex    int64
			timestamp   int64
			argsJSON    []byte
			event       model.Event
		)
		if err := rows.Scan(&blockNumber, &event.TxHash, &logIndex, &event.Contract, &event.EventName, &argsJSON, &timestamp); err != nil {
			return nil, err
		}
		event.BlockNumber = uint64(blockNumber)
		event.LogIndex = uint64(logIndex)
		event.Timestamp = uint64(timestamp)
		event.Args = argsJSON
		events = append(events, event)
	}
	return events, rows.Err()
}

// EventStats returns per-(contract, event_name) counts ordered by count
// descending.
func (s *Store) EventStats(ctx context.Context, filter storage.EventFilter) ([]model.EventStat, error) {
	where, params := buildWhere(filter)

	sql := `
		SELECT contract, event_name, COUNT(*) AS count
		FROM events
	` + where + ` GROUP BY contract, event_name ORDER BY count DESC`

	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]model.EventStat, 0)
	for rows.Next() {
		var (
			stat  model.EventStat
			count int64
		)
		if err := rows.Scan(&stat.Contract, &stat.EventName, &count); err != nil {
			return nil, err
		}
		stat.Count = uint64(count)
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func buildWhere(filter storage.EventFilter) (string, []interface{}) {
	clauses := make([]string, 0, 4)
	params := make([]interface{}, 0, 4)

	if filter.Contract != "" {
		params = append(params, filter.Contract)
		clauses = append(clauses, fmt.Sprintf("contract = $%d", len(params)))
	}
	if filter.EventName != "" {
		params = append(params, filter.EventName)
		clauses = append(clauses, fmt.Sprintf("event_name = $%d", len(params)))
	}
	if filter.FromBlock != nil {
		params = append(params, int64(*filter.FromBlock))
		clauses = append(clauses, fmt.Sprintf("block_number >= $%d", len(params)))
	}
	if filter.ToBlock != nil {
		params = append(params, int64(*filter.ToBlock))
		clauses = append(clauses, fmt.Sprintf("block_number <= $%d", len(params)))
	}

	if len(clauses) == 0 {
		return "", params
	}
	return " WHERE " + strings.Join(clauses, " AND "), params
}
