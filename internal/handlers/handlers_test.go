package handlers

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/jwebster45206/combat-engine/internal/services"
	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/outcome"
	"github.com/stretchr/testify/require"
)

const testProfiles = `
methods:
  melee:
    attack_stat: strength
    miss: miss
    outcomes:
      - {name: hit, base: 60, per_point: 3}
      - {name: graze, base: 20, per_point: 0}
      - {name: miss, base: 20, per_point: -3}
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func seededStorage(t *testing.T) *storage.MockStorage {
	t.Helper()
	sto := storage.NewMockStorage()
	ctx := context.Background()
	require.NoError(t, sto.SaveCreature(ctx, &actor.Creature{
		ID: 1, Name: "Innkeeper", Kind: actor.KindPC, MaxHP: 24, AC: 12,
		Stats: actor.Stats{Strength: 14}, Ratings: actor.Ratings{Melee: 3},
	}))
	require.NoError(t, sto.SaveCreature(ctx, &actor.Creature{
		ID: 2, Name: "Cellar Rat", Kind: actor.KindMonster, MaxHP: 6, AC: 12,
	}))
	return sto
}

func newTestService(t *testing.T, sto storage.Storage, policy combat.FallbackPolicy) *services.CombatService {
	t.Helper()
	profiles, err := combat.ParseProfiles([]byte(testProfiles))
	require.NoError(t, err)
	resolver := combat.NewResolver(outcome.NewLockedSource(outcome.NewSource(5)), policy, profiles)
	return services.NewCombatService(sto, resolver, testLogger())
}
