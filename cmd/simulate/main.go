// Command simulate draws outcomes offline and compares them with the
// configured weights.
//
//	simulate -weights 8,64,20,11 -n 100000 -seed 7
//	simulate -attacker data/creatures/innkeeper.json -target data/creatures/cellar_rat.json -method melee
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/outcome"
)

func main() {
	var (
		weightsFlag  = flag.String("weights", "", "comma-separated outcome weights")
		attackerPath = flag.String("attacker", "", "attacker creature file")
		targetPath   = flag.String("target", "", "target creature file")
		methodFlag   = flag.String("method", "melee", "attack method: melee, ranged or magic")
		profilesPath = flag.String("profiles", "data/outcomes.yaml", "outcome profiles file")
		samples      = flag.Int("n", 10000, "number of draws")
		seed         = flag.Uint64("seed", 0, "random seed (0 uses the current time)")
		width        = flag.Int("width", 72, "wrap width for notes")
	)
	flag.Parse()

	sim, err := buildSimulation(*weightsFlag, *attackerPath, *targetPath, *methodFlag, *profilesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
	if *samples <= 0 {
		fmt.Fprintln(os.Stderr, "simulate: -n must be positive")
		os.Exit(1)
	}

	table, err := outcome.New(sim.Weights)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}

	sim.Seed = *seed
	sim.Counts = draw(table, outcome.NewSource(*seed), *samples)
	fmt.Print(render(sim, *width))
}

// Simulation is one batch of draws and the inputs that produced it.
type Simulation struct {
	Title   string
	Note    string
	Labels  []string
	Weights []float64
	Seed    uint64
	Counts  []int
}

func buildSimulation(weightsFlag, attackerPath, targetPath, methodFlag, profilesPath string) (*Simulation, error) {
	if weightsFlag != "" {
		weights, err := parseWeights(weightsFlag)
		if err != nil {
			return nil, err
		}
		return &Simulation{Title: "custom weights", Weights: weights}, nil
	}

	if attackerPath == "" || targetPath == "" {
		return nil, fmt.Errorf("either -weights or both -attacker and -target are required")
	}

	method, err := combat.ParseMethod(methodFlag)
	if err != nil {
		return nil, err
	}
	profiles, err := combat.LoadProfiles(profilesPath)
	if err != nil {
		return nil, err
	}
	attacker, err := loadCombatant(attackerPath)
	if err != nil {
		return nil, fmt.Errorf("attacker: %w", err)
	}
	target, err := loadCombatant(targetPath)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	weights, err := profiles.Weights(method, attacker, target)
	if err != nil {
		return nil, err
	}
	mp, err := profiles.Method(method)
	if err != nil {
		return nil, err
	}

	return &Simulation{
		Title: fmt.Sprintf("%s %s attack on %s", attacker.Creature.Name, method, target.Creature.Name),
		Note: fmt.Sprintf("%s attacks with an edge of %d against armor class %d. %s",
			attacker.Creature.Name, combat.Edge(method, mp, attacker, target), target.AC(), target.Creature.Description),
		Labels:  profiles.Labels(method),
		Weights: weights,
	}, nil
}

func loadCombatant(path string) (*actor.Combatant, error) {
	c, err := actor.LoadCreature(path)
	if err != nil {
		return nil, err
	}
	return actor.NewCombatant(c)
}

func parseWeights(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	weights := make([]float64, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", p, err)
		}
		weights = append(weights, w)
	}
	return weights, nil
}

func draw(table *outcome.Table, src outcome.Source, n int) []int {
	counts := make([]int, table.Len())
	for range n {
		counts[table.Pick(src)]++
	}
	return counts
}
