package organization

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS organizations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	profile TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);`

// SQLite stores profiles as JSON documents keyed by organization ID.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLite{db: db, logger: logger.OrNop(log)}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, id string) (*grants.Organization, error) {
	id = strings.TrimSpace(id)

	var profile string
	err := s.db.QueryRowContext(ctx, `SELECT profile FROM organizations WHERE id = ?`, id).Scan(&profile)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query organization: %w", err)
	}

	var org grants.Organization
	if err := json.Unmarshal([]byte(profile), &org); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	org.ID = id
	return &org, nil
}

func (s *SQLite) List(ctx context.Context) ([]*grants.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, profile FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	var out []*grants.Organization
	for rows.Next() {
		var id, profile string
		if err := rows.Scan(&id, &profile); err != nil {
			return nil, err
		}
		var org grants.Organization
		if err := json.Unmarshal([]byte(profile), &org); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", id, err)
		}
		org.ID = id
		out = append(out, &org)
	}
	return out, rows.Err()
}

// Put inserts or replaces a profile.
func (s *SQLite) Put(ctx context.Context, org *grants.Organization) error {
	if org == nil || strings.TrimSpace(org.ID) == "" {
		return errors.New("organization id is required")
	}

	profile, err := json.Marshal(org)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, profile, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, profile = excluded.profile, updated_at = excluded.updated_at`,
		strings.TrimSpace(org.ID), org.Name, string(profile), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store organization %s: %w", org.ID, err)
	}

	s.logger.Debug("organization stored", zap.String(logger.FieldOrganization, org.ID))
	return nil
}
