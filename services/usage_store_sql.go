package services

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLStore keeps one row per day in a daily_usage table. Works with sqlite and postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) placeholders() (string, string) {
	if s.driver == "postgres" {
		return "$1", "$2"
	}
	return "?", "?"
}

// Init creates the table when missing.
func (s *SQLStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS daily_usage (
			day TEXT PRIMARY KEY,
			usd DOUBLE PRECISION NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create daily_usage table: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, usd FROM daily_usage`)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]float64)
	for rows.Next() {
		var day string
		var usd float64
		if err := rows.Scan(&day, &usd); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		usage[day] = usd
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage rows: %w", err)
	}
	return usage, nil
}

// Save upserts every day in one transaction.
func (s *SQLStore) Save(ctx context.Context, usage map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin usage transaction: %w", err)
	}
	defer tx.Rollback()

	p1, p2 := s.placeholders()
	query := fmt.Sprintf(`
		INSERT INTO daily_usage (day, usd) VALUES (%s, %s)
		ON CONFLICT(day) DO UPDATE SET usd = excluded.usd`, p1, p2)

	for day, usd := range usage {
		if _, err := tx.ExecContext(ctx, query, day, usd); err != nil {
			return fmt.Errorf("failed to save usage[%s]: %w", day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage: %w", err)
	}
	return nil
}
