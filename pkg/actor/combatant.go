package actor

import (
	"fmt"
	"strconv"

	"github.com/jwebster45206/d20"
)

// Combatant is the runtime form of a Creature.
type Combatant struct {
	Creature *Creature
	Actor    *d20.Actor // Built at runtime from Creature
}

// NewCombatant builds the d20 actor for a creature.
func NewCombatant(c *Creature) (*Combatant, error) {
	if c == nil {
		return nil, fmt.Errorf("creature cannot be nil")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	actor, err := d20.NewActor(strconv.Itoa(c.ID)).
		WithHP(c.MaxHP).
		WithAC(c.AC).
		WithAttributes(c.ToAttributes()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	if c.HP != c.MaxHP && c.HP > 0 {
		if err := actor.SetHP(c.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}

	return &Combatant{Creature: c, Actor: actor}, nil
}

// Attribute returns a named attribute, zero when absent.
func (cb *Combatant) Attribute(name string) int {
	v, _ := cb.Actor.Attribute(name)
	return v
}

// AC returns the armor class.
func (cb *Combatant) AC() int {
	return cb.Actor.AC()
}

// ID returns the creature id.
func (cb *Combatant) ID() int {
	return cb.Creature.ID
}
