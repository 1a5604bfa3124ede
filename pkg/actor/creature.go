package actor

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
)

// Kind distinguishes the player character from the other creatures.
type Kind string

const (
	KindPC      Kind = "pc"
	KindNPC     Kind = "npc"
	KindMonster Kind = "monster"
)

// Stats are the core ability scores shared by every creature.
type Stats struct {
	Strength     int `json:"strength"`
	Accuracy     int `json:"accuracy"`
	Intelligence int `json:"intelligence"`
	Dexterity    int `json:"dexterity"`
}

// Ratings are the per-method attack ratings.
type Ratings struct {
	Melee  int `json:"melee"`
	Ranged int `json:"ranged"`
	Magic  int `json:"magic"`
}

// Creature is the serializable record for anything that can attack or be attacked.
type Creature struct {
	ID               int            `json:"id"`
	Name             string         `json:"name"`
	Kind             Kind           `json:"kind"`
	Description      string         `json:"description,omitempty"`
	Stats            Stats          `json:"stats"`
	Ratings          Ratings        `json:"ratings"`
	HP               int            `json:"hp,omitempty"`
	MaxHP            int            `json:"max_hp"`
	AC               int            `json:"ac"`
	DifficultyRating int            `json:"difficulty_rating,omitempty"` // monsters only
	Attributes       map[string]int `json:"attributes,omitempty"`        // extra attributes, override stats of the same name
}

// ToAttributes flattens stats and ratings into a map for d20.Actor compatibility
func (c *Creature) ToAttributes() map[string]int {
	attrs := map[string]int{
		"strength":     c.Stats.Strength,
		"accuracy":     c.Stats.Accuracy,
		"intelligence": c.Stats.Intelligence,
		"dexterity":    c.Stats.Dexterity,
		"melee":        c.Ratings.Melee,
		"ranged":       c.Ratings.Ranged,
		"magic":        c.Ratings.Magic,
	}
	maps.Copy(attrs, c.Attributes)
	return attrs
}

// Validate checks the fields required to build a combatant.
func (c *Creature) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("creature id must be positive, got %d", c.ID)
	}
	if c.Name == "" {
		return fmt.Errorf("creature %d: name is required", c.ID)
	}
	switch c.Kind {
	case KindPC, KindNPC, KindMonster:
	default:
		return fmt.Errorf("creature %d: unknown kind %q", c.ID, c.Kind)
	}
	if c.MaxHP <= 0 {
		return fmt.Errorf("creature %d: max_hp must be positive", c.ID)
	}
	if c.HP < 0 || c.HP > c.MaxHP {
		return fmt.Errorf("creature %d: hp %d outside [0,%d]", c.ID, c.HP, c.MaxHP)
	}
	return nil
}

// LoadCreature reads a creature record from a JSON file.
func LoadCreature(path string) (*Creature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read creature file: %w", err)
	}

	var c Creature
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal creature: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.HP == 0 {
		c.HP = c.MaxHP
	}
	return &c, nil
}
