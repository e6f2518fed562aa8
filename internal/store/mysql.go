// Package store is the narrow read interface over the MySQL market_data
// database. Everything here is request-scoped: connections come from the
// database/sql pool and are released on every exit path, and nothing is
// cached between calls.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"market-qa/internal/models"
)

// ErrConnectionFailed marks store-unreachable conditions, distinct from
// query execution errors.
var ErrConnectionFailed = errors.New("database connection failed")

// Store wraps the MySQL connection pool.
type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Open connects to MySQL using the given DSN and verifies the connection.
func Open(ctx context.Context, dsn string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	logger.Info("connected to MySQL")
	return &Store{db: db, logger: logger}, nil
}

// NewFromDB wraps an existing *sql.DB. Used by tests with sqlmock.
func NewFromDB(db *sql.DB, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{db: db, logger: logger}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		s.logger.Debug("closing MySQL connection pool")
		return s.db.Close()
	}
	return nil
}

// Ping checks whether the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// ListAssets returns the live asset catalog ordered by id. Fetched per
// request so newly added assets are immediately visible to the resolver
// and the LLM prompt.
func (s *Store) ListAssets(ctx context.Context) ([]models.Asset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT asset_id, name, symbol FROM Asset ORDER BY asset_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.AssetID, &a.Name, &a.Symbol); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("asset iteration error: %w", err)
	}
	return out, nil
}

// ListAssetsWithTypes returns all assets joined with their type name,
// ordered by asset name.
func (s *Store) ListAssetsWithTypes(ctx context.Context) ([]models.AssetWithType, error) {
	const query = `
		SELECT a.asset_id, a.name, a.symbol, at.name AS type_name
		FROM Asset a
		JOIN AssetType at ON a.asset_type_id = at.asset_type_id
		ORDER BY a.name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets with types: %w", err)
	}
	defer rows.Close()

	var out []models.AssetWithType
	for rows.Next() {
		var a models.AssetWithType
		if err := rows.Scan(&a.AssetID, &a.Name, &a.Symbol, &a.TypeName); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("asset iteration error: %w", err)
	}
	return out, nil
}

// QueryRows executes a SELECT with bound parameters and returns every row
// as a column→value map, in store order. []byte values are converted to
// strings so results marshal cleanly to JSON.
func (s *Store) QueryRows(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
				continue
			}
			rowMap[col] = values[i]
		}
		out = append(out, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return out, nil
}
