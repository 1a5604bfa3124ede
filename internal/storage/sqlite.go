package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	_ "modernc.org/sqlite"
)

// SQLiteStorage keeps creatures and the full resolution history in a single
// SQLite file. Creature files from the data directory are imported on open
// without overwriting rows that already exist.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Storage = (*SQLiteStorage)(nil)

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string, dataDir string, logger *slog.Logger) (*SQLiteStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStorage{db: db, logger: logger}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if dataDir != "" {
		if err := s.importCreatures(ctx, dataDir); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *SQLiteStorage) init(ctx context.Context) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS creatures (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS resolutions (
			id TEXT PRIMARY KEY,
			attacker_id INTEGER NOT NULL,
			target_id INTEGER NOT NULL,
			method TEXT NOT NULL,
			weights TEXT NOT NULL,
			outcome_index INTEGER NOT NULL,
			outcome TEXT NOT NULL DEFAULT '',
			fallback INTEGER NOT NULL DEFAULT 0,
			resolved_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS resolutions_attacker ON resolutions(attacker_id, resolved_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite init: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) importCreatures(ctx context.Context, dataDir string) error {
	seed, err := loadCreatureDir(dataDir, s.logger)
	if err != nil {
		return err
	}
	for _, c := range sortedCreatures(seed) {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal creature: %w", err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO creatures (id, name, kind, data) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, string(c.Kind), string(data)); err != nil {
			return fmt.Errorf("failed to import creature %d: %w", c.ID, err)
		}
	}
	s.logger.Debug("Imported creatures", "count", len(seed), "data_dir", dataDir)
	return nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) GetCreature(ctx context.Context, id int) (*actor.Creature, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM creatures WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("creature %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load creature: %w", err)
	}

	var c actor.Creature
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal creature: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStorage) ListCreatures(ctx context.Context) ([]*actor.Creature, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM creatures ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list creatures: %w", err)
	}
	defer rows.Close()

	creatures := []*actor.Creature{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var c actor.Creature
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			s.logger.Warn("Failed to unmarshal creature row", "error", err)
			continue
		}
		creatures = append(creatures, &c)
	}
	return creatures, rows.Err()
}

func (s *SQLiteStorage) SaveCreature(ctx context.Context, c *actor.Creature) error {
	if c == nil {
		return errors.New("creature cannot be nil")
	}
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal creature: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO creatures (id, name, kind, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, kind = excluded.kind, data = excluded.data`,
		c.ID, c.Name, string(c.Kind), string(data))
	if err != nil {
		return fmt.Errorf("failed to save creature: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SaveResolution(ctx context.Context, res *combat.Resolution) error {
	if res == nil {
		return errors.New("resolution cannot be nil")
	}

	weights, err := json.Marshal(res.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	fallback := 0
	if res.Fallback {
		fallback = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO resolutions (id, attacker_id, target_id, method, weights, outcome_index, outcome, fallback, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID.String(), res.AttackerID, res.TargetID, string(res.Method), string(weights),
		res.OutcomeIndex, res.Outcome, fallback, res.ResolvedAt.UnixNano())
	if err != nil {
		s.logger.Error("Failed to save resolution", "id", res.ID, "error", err)
		return fmt.Errorf("failed to save resolution: %w", err)
	}
	return nil
}

const resolutionColumns = `id, attacker_id, target_id, method, weights, outcome_index, outcome, fallback, resolved_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResolution(row rowScanner) (*combat.Resolution, error) {
	var (
		res      combat.Resolution
		id       string
		method   string
		weights  string
		fallback int
		resolved int64
	)
	if err := row.Scan(&id, &res.AttackerID, &res.TargetID, &method, &weights,
		&res.OutcomeIndex, &res.Outcome, &fallback, &resolved); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad resolution id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(weights), &res.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	res.ID = parsed
	res.Method = combat.Method(method)
	res.Fallback = fallback != 0
	res.ResolvedAt = time.Unix(0, resolved).UTC()
	return &res, nil
}

func (s *SQLiteStorage) GetResolution(ctx context.Context, id uuid.UUID) (*combat.Resolution, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resolutionColumns+` FROM resolutions WHERE id = ?`, id.String())
	res, err := scanResolution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("resolution %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load resolution: %w", err)
	}
	return res, nil
}

func (s *SQLiteStorage) ListResolutions(ctx context.Context, attackerID int, limit int) ([]*combat.Resolution, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resolutionColumns+` FROM resolutions WHERE attacker_id = ? ORDER BY resolved_at DESC LIMIT ?`,
		attackerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	results := []*combat.Resolution{}
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
