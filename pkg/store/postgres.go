package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore keeps snapshots in a single table, one row per save.
// Load returns the most recent row, so earlier snapshots double as history.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DefaultPostgresConfig returns default PostgreSQL settings.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "bankledger",
		SSLMode:  "disable",
	}
}

// NewPostgresStore opens a connection pool, verifies it and ensures the
// snapshot table exists.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_snapshots (
			id        BIGSERIAL PRIMARY KEY,
			taken_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			state     JSONB NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("postgres store: create table: %w", err)
	}
	return nil
}

// Save inserts the snapshot as a new row.
func (s *PostgresStore) Save(ctx context.Context, snap Snapshot) error {
	snap.stamp(s.Name())

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("postgres store: marshal: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ledger_snapshots (state) VALUES ($1)`, data)
	if err != nil {
		return fmt.Errorf("postgres store: insert: %w", err)
	}
	return nil
}

// Load returns the most recently saved snapshot.
func (s *PostgresStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var data []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM ledger_snapshots ORDER BY id DESC LIMIT 1`).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return snap, ErrSnapshotNotFound
		}
		return snap, fmt.Errorf("postgres store: query: %w", err)
	}

	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("postgres store: unmarshal: %w", err)
	}
	return snap, nil
}

// Name returns the backend identifier.
func (s *PostgresStore) Name() string { return "postgres" }

// Close closes the connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }
