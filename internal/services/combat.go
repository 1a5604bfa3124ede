package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
)

// CombatService resolves attacks end to end: it derives weights from the
// stored creatures when the caller does not supply them, samples an outcome,
// and records the resolution.
type CombatService struct {
	storage  storage.Storage
	resolver *combat.Resolver
	logger   *slog.Logger
}

func NewCombatService(storage storage.Storage, resolver *combat.Resolver, logger *slog.Logger) *CombatService {
	return &CombatService{
		storage:  storage,
		resolver: resolver,
		logger:   logger,
	}
}

// Resolve validates req, resolves it and persists the result.
func (s *CombatService) Resolve(ctx context.Context, req combat.Request) (*combat.Resolution, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if len(req.Weights) == 0 {
		weights, err := s.DeriveWeights(ctx, req.AttackerID, req.TargetID, req.Method)
		if err != nil {
			return nil, err
		}
		req.Weights = weights
	}

	resp, err := s.resolver.Resolve(req)
	if err != nil {
		s.logger.Warn("Combat request rejected",
			"attacker_id", req.AttackerID,
			"target_id", req.TargetID,
			"method", req.Method,
			"error", err)
		return nil, err
	}

	label := s.resolver.Profiles().Label(req.Method, resp.OutcomeIndex)
	res := combat.NewResolution(req, resp, label)
	if err := s.storage.SaveResolution(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to record resolution: %w", err)
	}

	s.logger.Debug("Combat resolved",
		"resolution_id", res.ID.String(),
		"attacker_id", res.AttackerID,
		"target_id", res.TargetID,
		"method", res.Method,
		"outcome_index", res.OutcomeIndex,
		"outcome", res.Outcome,
		"fallback", res.Fallback)
	return res, nil
}

// Check validates req and its weights without resolving it. Derived weights
// are not checked since the creatures may change before a worker runs.
func (s *CombatService) Check(req combat.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.resolver.Check(req)
}

// DeriveWeights loads both creatures and computes the profile weights for method.
func (s *CombatService) DeriveWeights(ctx context.Context, attackerID, targetID int, method combat.Method) ([]float64, error) {
	attacker, err := s.combatant(ctx, attackerID)
	if err != nil {
		return nil, err
	}
	target, err := s.combatant(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return s.resolver.Profiles().Weights(method, attacker, target)
}

func (s *CombatService) combatant(ctx context.Context, id int) (*actor.Combatant, error) {
	c, err := s.storage.GetCreature(ctx, id)
	if err != nil {
		return nil, err
	}
	return actor.NewCombatant(c)
}
