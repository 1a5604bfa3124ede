package combat

import (
	"fmt"
	"math"
	"os"

	"github.com/jwebster45206/combat-engine/pkg/actor"
	"gopkg.in/yaml.v3"
)

// OutcomeWeight is one row of a method's outcome table. The weight of the
// outcome is base + per_point * edge, floored at zero.
type OutcomeWeight struct {
	Name     string  `yaml:"name" json:"name"`
	Base     float64 `yaml:"base" json:"base"`
	PerPoint float64 `yaml:"per_point" json:"per_point"`
}

// MethodProfile describes how one attack method turns stats into weights.
type MethodProfile struct {
	AttackStat string          `yaml:"attack_stat" json:"attack_stat"`
	Miss       string          `yaml:"miss" json:"miss"`
	Outcomes   []OutcomeWeight `yaml:"outcomes" json:"outcomes"`

	missIndex int
}

// Profiles maps each attack method to its outcome table.
type Profiles struct {
	methods map[Method]*MethodProfile
}

type profilesFile struct {
	Methods map[string]*MethodProfile `yaml:"methods"`
}

// LoadProfiles reads outcome profiles from a YAML file.
func LoadProfiles(path string) (*Profiles, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read outcome profiles: %w", err)
	}
	return ParseProfiles(raw)
}

// ParseProfiles decodes and validates outcome profiles from YAML.
func ParseProfiles(raw []byte) (*Profiles, error) {
	var f profilesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("outcome profiles: %w", err)
	}

	p := &Profiles{methods: make(map[Method]*MethodProfile, len(f.Methods))}
	for name, mp := range f.Methods {
		m, err := ParseMethod(name)
		if err != nil {
			return nil, fmt.Errorf("outcome profiles: %w", err)
		}
		if mp == nil || len(mp.Outcomes) == 0 {
			return nil, fmt.Errorf("outcome profiles: %s has no outcomes", m)
		}
		mp.missIndex = -1
		seen := make(map[string]bool, len(mp.Outcomes))
		for i, o := range mp.Outcomes {
			if o.Name == "" {
				return nil, fmt.Errorf("outcome profiles: %s outcome %d has no name", m, i)
			}
			if seen[o.Name] {
				return nil, fmt.Errorf("outcome profiles: %s outcome %q listed twice", m, o.Name)
			}
			seen[o.Name] = true
			if o.Name == mp.Miss {
				mp.missIndex = i
			}
		}
		if mp.Miss != "" && mp.missIndex < 0 {
			return nil, fmt.Errorf("outcome profiles: %s miss outcome %q not listed", m, mp.Miss)
		}
		p.methods[m] = mp
	}
	return p, nil
}

// Method returns the profile for m.
func (p *Profiles) Method(m Method) (*MethodProfile, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoProfile, m)
	}
	mp, ok := p.methods[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProfile, m)
	}
	return mp, nil
}

// Labels returns the outcome names for m in index order.
func (p *Profiles) Labels(m Method) []string {
	mp, err := p.Method(m)
	if err != nil {
		return nil
	}
	labels := make([]string, len(mp.Outcomes))
	for i, o := range mp.Outcomes {
		labels[i] = o.Name
	}
	return labels
}

// Label names outcome index i of m, or "" when unknown.
func (p *Profiles) Label(m Method, i int) string {
	labels := p.Labels(m)
	if i < 0 || i >= len(labels) {
		return ""
	}
	return labels[i]
}

// MissIndex returns the index of the miss outcome for m.
func (p *Profiles) MissIndex(m Method) (int, bool) {
	mp, err := p.Method(m)
	if err != nil || mp.missIndex < 0 {
		return 0, false
	}
	return mp.missIndex, true
}

// Edge is the attacker's advantage for a method against a target:
// method rating plus the attack stat modifier, minus the target's armor above 10.
func Edge(m Method, mp *MethodProfile, attacker, target *actor.Combatant) int {
	edge := attacker.Attribute(string(m))
	if mp.AttackStat != "" {
		edge += AbilityModifier(attacker.Attribute(mp.AttackStat))
	}
	return edge - (target.AC() - 10)
}

// AbilityModifier is floor((score - 10) / 2).
func AbilityModifier(score int) int {
	return int(math.Floor(float64(score-10) / 2))
}

// Weights derives the outcome weights for an attack.
func (p *Profiles) Weights(m Method, attacker, target *actor.Combatant) ([]float64, error) {
	mp, err := p.Method(m)
	if err != nil {
		return nil, err
	}
	if attacker == nil || target == nil {
		return nil, fmt.Errorf("attacker and target are required")
	}

	edge := float64(Edge(m, mp, attacker, target))
	weights := make([]float64, len(mp.Outcomes))
	for i, o := range mp.Outcomes {
		weights[i] = math.Max(0, o.Base+o.PerPoint*edge)
	}
	return weights, nil
}
