package combat

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/outcome"
)

const testProfiles = `
methods:
  melee:
    attack_stat: strength
    miss: miss
    outcomes:
      - {name: critical, base: 5, per_point: 1}
      - {name: hit, base: 55, per_point: 3}
      - {name: graze, base: 20, per_point: 0}
      - {name: miss, base: 20, per_point: -3}
  magic:
    attack_stat: intelligence
    miss: fizzle
    outcomes:
      - {name: hit, base: 70, per_point: 2}
      - {name: fizzle, base: 30, per_point: -30}
`

func mustProfiles(t *testing.T) *Profiles {
	t.Helper()
	p, err := ParseProfiles([]byte(testProfiles))
	if err != nil {
		t.Fatalf("ParseProfiles() error = %v", err)
	}
	return p
}

func mustCombatant(t *testing.T, c *actor.Creature) *actor.Combatant {
	t.Helper()
	cb, err := actor.NewCombatant(c)
	if err != nil {
		t.Fatalf("NewCombatant() error = %v", err)
	}
	return cb
}

func innkeeper() *actor.Creature {
	return &actor.Creature{
		ID: 1, Name: "Innkeeper", Kind: actor.KindPC,
		Stats:   actor.Stats{Strength: 14, Accuracy: 13, Intelligence: 10, Dexterity: 12},
		Ratings: actor.Ratings{Melee: 3, Ranged: 2},
		MaxHP:   24, AC: 12,
	}
}

func rat() *actor.Creature {
	return &actor.Creature{
		ID: 2, Name: "Cellar Rat", Kind: actor.KindMonster,
		Stats:   actor.Stats{Strength: 7, Accuracy: 10, Intelligence: 2, Dexterity: 15},
		Ratings: actor.Ratings{Melee: 1},
		MaxHP:   6, AC: 12, DifficultyRating: 1,
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"melee", MethodMelee, false},
		{"Ranged", MethodRanged, false},
		{" MAGIC ", MethodMagic, false},
		{"", "", true},
		{"thrown", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMethod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMethod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownMethod) {
				t.Errorf("error %v does not match ErrUnknownMethod", err)
			}
			if got != tt.want {
				t.Errorf("ParseMethod(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRequest_JSON(t *testing.T) {
	var req Request
	err := json.Unmarshal([]byte(`{"attacker_id":1,"target_id":2,"method":"Magic","weights":[1,2]}`), &req)
	if err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if req.Method != MethodMagic {
		t.Errorf("Method = %q, want magic", req.Method)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	if err := json.Unmarshal([]byte(`{"attacker_id":1,"target_id":2,"method":"kick"}`), &req); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no attacker", Request{TargetID: 2, Method: MethodMelee}},
		{"no target", Request{AttackerID: 1, Method: MethodMelee}},
		{"no method", Request{AttackerID: 1, TargetID: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err == nil {
				t.Error("Validate() should return error")
			}
		})
	}
}

func TestParseProfiles(t *testing.T) {
	p := mustProfiles(t)

	labels := p.Labels(MethodMelee)
	want := []string{"critical", "hit", "graze", "miss"}
	if len(labels) != len(want) {
		t.Fatalf("Labels(melee) = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("Labels(melee)[%d] = %q, want %q", i, labels[i], want[i])
		}
	}
	if idx, ok := p.MissIndex(MethodMagic); !ok || idx != 1 {
		t.Errorf("MissIndex(magic) = %d, %v; want 1, true", idx, ok)
	}
	if p.Label(MethodMelee, 9) != "" {
		t.Error("Label out of range should be empty")
	}
	if _, err := p.Method(MethodRanged); !errors.Is(err, ErrNoProfile) {
		t.Errorf("Method(ranged) error = %v, want ErrNoProfile", err)
	}
}

func TestParseProfiles_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "methods: [unclosed"},
		{"unknown method", "methods:\n  kick:\n    outcomes:\n      - {name: hit, base: 1}\n"},
		{"no outcomes", "methods:\n  melee:\n    attack_stat: strength\n"},
		{"unnamed outcome", "methods:\n  melee:\n    outcomes:\n      - {base: 1}\n"},
		{"duplicate outcome", "methods:\n  melee:\n    outcomes:\n      - {name: hit, base: 1}\n      - {name: hit, base: 2}\n"},
		{"missing miss", "methods:\n  melee:\n    miss: whiff\n    outcomes:\n      - {name: hit, base: 1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseProfiles([]byte(tt.yaml)); err == nil {
				t.Error("ParseProfiles() should return error")
			}
		})
	}
}

func TestAbilityModifier(t *testing.T) {
	tests := map[int]int{10: 0, 11: 0, 12: 1, 14: 2, 9: -1, 8: -1, 7: -2, 2: -4, 20: 5}
	for score, want := range tests {
		if got := AbilityModifier(score); got != want {
			t.Errorf("AbilityModifier(%d) = %d, want %d", score, got, want)
		}
	}
}

func TestProfiles_Weights(t *testing.T) {
	p := mustProfiles(t)
	attacker := mustCombatant(t, innkeeper())
	target := mustCombatant(t, rat())

	// melee 3 + mod(14)=2 - (12-10) = 3
	weights, err := p.Weights(MethodMelee, attacker, target)
	if err != nil {
		t.Fatalf("Weights() error = %v", err)
	}
	want := []float64{8, 64, 20, 11}
	for i := range want {
		if weights[i] != want[i] {
			t.Errorf("weights[%d] = %g, want %g", i, weights[i], want[i])
		}
	}

	// magic 0 + mod(10)=0 - 2 = -2; fizzle 30+60 = 90, hit 70-4 = 66
	weights, err = p.Weights(MethodMagic, attacker, target)
	if err != nil {
		t.Fatalf("Weights() error = %v", err)
	}
	if weights[0] != 66 || weights[1] != 90 {
		t.Errorf("magic weights = %v, want [66 90]", weights)
	}

	// A strong edge floors the miss weight at zero.
	witch := innkeeper()
	witch.Stats.Intelligence = 18
	witch.Ratings.Magic = 4
	weights, err = p.Weights(MethodMagic, mustCombatant(t, witch), target)
	if err != nil {
		t.Fatalf("Weights() error = %v", err)
	}
	if weights[1] != 0 {
		t.Errorf("fizzle weight = %g, want 0", weights[1])
	}

	if _, err := p.Weights(MethodRanged, attacker, target); !errors.Is(err, ErrNoProfile) {
		t.Errorf("Weights(ranged) error = %v, want ErrNoProfile", err)
	}
	if _, err := p.Weights(MethodMelee, nil, target); err == nil {
		t.Error("Weights() with nil attacker should return error")
	}
}

func TestResolver_Resolve(t *testing.T) {
	p := mustProfiles(t)

	t.Run("samples within range", func(t *testing.T) {
		r := NewResolver(outcome.NewSource(5), FallbackMiss, p)
		req := Request{AttackerID: 1, TargetID: 2, Method: MethodMelee, Weights: []float64{1, 2, 3, 4}}
		for i := 0; i < 500; i++ {
			resp, err := r.Resolve(req)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if resp.OutcomeIndex < 0 || resp.OutcomeIndex > 3 || resp.Fallback {
				t.Fatalf("Resolve() = %+v", resp)
			}
		}
	})

	t.Run("single outcome", func(t *testing.T) {
		r := NewResolver(outcome.NewSource(6), FallbackReject, nil)
		resp, err := r.Resolve(Request{AttackerID: 1, TargetID: 2, Method: MethodRanged, Weights: []float64{5}})
		if err != nil || resp.OutcomeIndex != 0 {
			t.Fatalf("Resolve() = %+v, %v; want index 0", resp, err)
		}
	})

	t.Run("miss fallback uses profile", func(t *testing.T) {
		r := NewResolver(outcome.NewSource(7), FallbackMiss, p)
		resp, err := r.Resolve(Request{AttackerID: 1, TargetID: 2, Method: MethodMagic, Weights: []float64{0, 0}})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !resp.Fallback || resp.OutcomeIndex != 1 {
			t.Errorf("Resolve() = %+v, want fallback to index 1", resp)
		}
	})

	t.Run("miss fallback without profile uses last index", func(t *testing.T) {
		r := NewResolver(outcome.NewSource(8), FallbackMiss, nil)
		resp, err := r.Resolve(Request{AttackerID: 1, TargetID: 2, Method: MethodMelee, Weights: []float64{-1, 2, 3}})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !resp.Fallback || resp.OutcomeIndex != 2 {
			t.Errorf("Resolve() = %+v, want fallback to index 2", resp)
		}
	})

	t.Run("miss fallback impossible for empty weights without profile", func(t *testing.T) {
		r := NewResolver(outcome.NewSource(9), FallbackMiss, nil)
		_, err := r.Resolve(Request{AttackerID: 1, TargetID: 2, Method: MethodMelee})
		if !errors.Is(err, outcome.ErrInvalidWeights) {
			t.Errorf("Resolve() error = %v, want ErrInvalidWeights", err)
		}
	})

	t.Run("reject policy returns error", func(t *testing.T) {
		r := NewResolver(outcome.NewSource(10), FallbackReject, p)
		_, err := r.Resolve(Request{AttackerID: 1, TargetID: 2, Method: MethodMelee, Weights: []float64{0, 0}})
		if !errors.Is(err, outcome.ErrInvalidWeights) {
			t.Errorf("Resolve() error = %v, want ErrInvalidWeights", err)
		}
	})
}

func TestResolver_Check(t *testing.T) {
	p := mustProfiles(t)
	tests := []struct {
		name    string
		policy  FallbackPolicy
		weights []float64
		wantErr bool
	}{
		{"valid weights", FallbackReject, []float64{1, 2}, false},
		{"no weights", FallbackReject, nil, false},
		{"zero sum rejected", FallbackReject, []float64{0, 0}, true},
		{"zero sum falls back", FallbackMiss, []float64{0, 0}, false},
		{"negative rejected", FallbackReject, []float64{-1, 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(outcome.NewSource(1), tt.policy, p)
			err := r.Check(Request{AttackerID: 1, TargetID: 2, Method: MethodMagic, Weights: tt.weights})
			if tt.wantErr && !errors.Is(err, outcome.ErrInvalidWeights) {
				t.Errorf("Check() error = %v, want ErrInvalidWeights", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Check() error = %v, want nil", err)
			}
		})
	}
}

func TestParseFallbackPolicy(t *testing.T) {
	if p, err := ParseFallbackPolicy("reject"); err != nil || p != FallbackReject {
		t.Errorf("ParseFallbackPolicy(reject) = %q, %v", p, err)
	}
	if _, err := ParseFallbackPolicy("retry"); err == nil {
		t.Error("ParseFallbackPolicy(retry) should return error")
	}
}

func TestNewResolution(t *testing.T) {
	req := Request{AttackerID: 1, TargetID: 2, Method: MethodMelee, Weights: []float64{1, 1}}
	res := NewResolution(req, Response{OutcomeIndex: 1}, "hit")
	if res.ID.String() == "" || res.ResolvedAt.IsZero() {
		t.Errorf("NewResolution() = %+v, want id and time", res)
	}
	if res.Outcome != "hit" || res.OutcomeIndex != 1 || res.Method != MethodMelee {
		t.Errorf("NewResolution() = %+v", res)
	}
	other := NewResolution(req, Response{}, "")
	if other.ID == res.ID {
		t.Error("resolutions should get distinct ids")
	}
}
