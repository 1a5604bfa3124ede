package combat

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/combat-engine/pkg/outcome"
)

// FallbackPolicy decides what happens when a request's weights cannot be sampled.
type FallbackPolicy string

const (
	// FallbackMiss resolves the attack as the method's miss outcome.
	FallbackMiss FallbackPolicy = "miss"
	// FallbackReject returns the sampler error to the caller.
	FallbackReject FallbackPolicy = "reject"
)

// ParseFallbackPolicy converts a config value into a FallbackPolicy.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(s); p {
	case FallbackMiss, FallbackReject:
		return p, nil
	}
	return "", fmt.Errorf("unknown fallback policy %q", s)
}

// Resolver turns combat requests into outcome indexes. It builds a fresh
// sampling table for every request; the source must be safe for concurrent
// use if the Resolver is shared.
type Resolver struct {
	src      outcome.Source
	policy   FallbackPolicy
	profiles *Profiles
}

// NewResolver creates a Resolver. profiles may be nil, in which case the
// miss fallback uses the last index of the weight vector.
func NewResolver(src outcome.Source, policy FallbackPolicy, profiles *Profiles) *Resolver {
	if src == nil {
		src = outcome.GlobalSource{}
	}
	if policy == "" {
		policy = FallbackMiss
	}
	return &Resolver{src: src, policy: policy, profiles: profiles}
}

// Resolve samples one outcome for req.
func (r *Resolver) Resolve(req Request) (Response, error) {
	table, err := outcome.New(req.Weights)
	if err != nil {
		if errors.Is(err, outcome.ErrInvalidWeights) && r.policy == FallbackMiss {
			if idx, ok := r.missIndex(req); ok {
				return Response{OutcomeIndex: idx, Fallback: true}, nil
			}
		}
		return Response{}, err
	}
	return Response{OutcomeIndex: table.Pick(r.src)}, nil
}

// Check reports the error Resolve would return for req's weights without
// drawing. A request with no weights always passes.
func (r *Resolver) Check(req Request) error {
	if len(req.Weights) == 0 {
		return nil
	}
	if _, err := outcome.New(req.Weights); err != nil {
		if errors.Is(err, outcome.ErrInvalidWeights) && r.policy == FallbackMiss {
			if _, ok := r.missIndex(req); ok {
				return nil
			}
		}
		return err
	}
	return nil
}

func (r *Resolver) missIndex(req Request) (int, bool) {
	if idx, ok := r.profiles.MissIndex(req.Method); ok && (len(req.Weights) == 0 || idx < len(req.Weights)) {
		return idx, true
	}
	if len(req.Weights) > 0 {
		return len(req.Weights) - 1, true
	}
	return 0, false
}

// Profiles returns the outcome profiles the resolver labels with.
func (r *Resolver) Profiles() *Profiles {
	return r.profiles
}

// Policy returns the fallback policy.
func (r *Resolver) Policy() FallbackPolicy {
	return r.policy
}
