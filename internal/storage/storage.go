package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
)

// ErrNotFound is returned when a creature or resolution does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines a unified interface for all storage operations
// Creatures are seeded from the data directory; resolutions are runtime records.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Creature operations
	GetCreature(ctx context.Context, id int) (*actor.Creature, error)
	ListCreatures(ctx context.Context) ([]*actor.Creature, error)
	SaveCreature(ctx context.Context, c *actor.Creature) error

	// Resolution operations
	SaveResolution(ctx context.Context, res *combat.Resolution) error
	GetResolution(ctx context.Context, id uuid.UUID) (*combat.Resolution, error)
	// ListResolutions returns up to limit resolutions by attackerID, newest first
	ListResolutions(ctx context.Context, attackerID int, limit int) ([]*combat.Resolution, error)
}

// Options selects and configures a storage backend.
type Options struct {
	Driver        string // "redis" or "sqlite"
	RedisURL      string
	SQLitePath    string
	DataDir       string
	ResolutionTTL time.Duration
}

// Open builds the backend named by opts.Driver and waits for it to answer a ping.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Storage, error) {
	switch opts.Driver {
	case "redis":
		rs, err := NewRedisStorage(opts.RedisURL, opts.DataDir, opts.ResolutionTTL, logger)
		if err != nil {
			return nil, err
		}
		if err := rs.WaitForConnection(ctx); err != nil {
			_ = rs.Close()
			return nil, err
		}
		return rs, nil
	case "sqlite":
		return OpenSQLite(ctx, opts.SQLitePath, opts.DataDir, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
