package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/sentiment_mint/internal/domain"
)

// DefaultSQLiteDSN keeps the registry in memory; it lives as long as the process.
const DefaultSQLiteDSN = ":memory:"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = DefaultSQLiteDSN
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS mints (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			gif_url TEXT NOT NULL,
			original_image_url TEXT NOT NULL,
			category TEXT NOT NULL,
			price_a REAL NOT NULL,
			price_b REAL NOT NULL,
			artifact_path TEXT NOT NULL DEFAULT '',
			source_path TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MintRepository Implementation

func (s *SQLiteStore) Append(ctx context.Context, r *domain.MintRecord) error {
	query := `INSERT INTO mints (id, gif_url, original_image_url, category, price_a, price_b, artifact_path, source_path, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.GifURL, r.OriginalImageURL, string(r.Category), r.PriceA, r.PriceB,
		r.ArtifactPath, r.SourcePath, r.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]*domain.MintRecord, error) {
	query := `SELECT id, gif_url, original_image_url, category, price_a, price_b, artifact_path, source_path, created_at FROM mints ORDER BY seq ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*domain.MintRecord{}
	for rows.Next() {
		var (
			r         domain.MintRecord
			category  string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.GifURL, &r.OriginalImageURL, &category, &r.PriceA, &r.PriceB, &r.ArtifactPath, &r.SourcePath, &createdAt); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("mint %s: bad created_at %q: %w", r.ID, createdAt, err)
		}
		r.Category = domain.Category(category)
		r.CreatedAt = domain.NewTimestamp(ts)
		records = append(records, &r)
	}
	return records, rows.Err()
}
