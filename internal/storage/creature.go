package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/redis/go-redis/v9"
)

// loadCreatureDir reads every creature JSON file under dataDir/creatures.
// Unreadable files are logged and skipped.
func loadCreatureDir(dataDir string, logger *slog.Logger) (map[int]*actor.Creature, error) {
	creaturesDir := filepath.Join(dataDir, "creatures")
	creatures := make(map[int]*actor.Creature)

	if _, err := os.Stat(creaturesDir); os.IsNotExist(err) {
		logger.Debug("Creatures directory does not exist", "path", creaturesDir)
		return creatures, nil
	}

	err := filepath.WalkDir(creaturesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		c, err := actor.LoadCreature(path)
		if err != nil {
			logger.Warn("Failed to load creature file", "path", path, "error", err)
			return nil
		}
		if prev, ok := creatures[c.ID]; ok {
			logger.Warn("Duplicate creature id", "id", c.ID, "kept", prev.Name, "skipped", c.Name)
			return nil
		}
		creatures[c.ID] = c
		return nil
	})
	if err != nil {
		logger.Error("Failed to walk creatures directory", "error", err)
		return nil, fmt.Errorf("failed to list creatures: %w", err)
	}

	return creatures, nil
}

func sortedCreatures(m map[int]*actor.Creature) []*actor.Creature {
	out := make([]*actor.Creature, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func creatureKey(id int) string {
	return "creature:" + strconv.Itoa(id)
}

// Creature operations: Redis overrides first, then the filesystem seed.

func (r *RedisStorage) GetCreature(ctx context.Context, id int) (*actor.Creature, error) {
	data, err := r.client.Get(ctx, creatureKey(id)).Result()
	switch {
	case err == nil:
		var c actor.Creature
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal creature: %w", err)
		}
		return &c, nil
	case !errors.Is(err, redis.Nil):
		r.logger.Error("Failed to load creature", "id", id, "error", err)
		return nil, fmt.Errorf("failed to load creature: %w", err)
	}

	r.logger.Debug("Loading creature from data directory", "id", id, "data_dir", r.dataDir)
	seed, err := loadCreatureDir(r.dataDir, r.logger)
	if err != nil {
		return nil, err
	}
	c, ok := seed[id]
	if !ok {
		return nil, fmt.Errorf("creature %d: %w", id, ErrNotFound)
	}
	return c, nil
}

func (r *RedisStorage) ListCreatures(ctx context.Context) ([]*actor.Creature, error) {
	creatures, err := loadCreatureDir(r.dataDir, r.logger)
	if err != nil {
		return nil, err
	}

	iter := r.client.Scan(ctx, 0, "creature:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id, err := strconv.Atoi(strings.TrimPrefix(key, "creature:"))
		if err != nil {
			continue
		}
		c, err := r.GetCreature(ctx, id)
		if err != nil {
			r.logger.Warn("Failed to load saved creature", "key", key, "error", err)
			continue
		}
		creatures[c.ID] = c
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan creatures: %w", err)
	}

	return sortedCreatures(creatures), nil
}

func (r *RedisStorage) SaveCreature(ctx context.Context, c *actor.Creature) error {
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
	if err := r.client.Set(ctx, creatureKey(c.ID), data, 0).Err(); err != nil {
		r.logger.Error("Failed to save creature", "id", c.ID, "error", err)
		return fmt.Errorf("failed to save creature: %w", err)
	}
	return nil
}
