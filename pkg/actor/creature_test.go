package actor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func testCreature() *Creature {
	return &Creature{
		ID:   1,
		Name: "Innkeeper",
		Kind: KindPC,
		Stats: Stats{
			Strength:     14,
			Accuracy:     12,
			Intelligence: 10,
			Dexterity:    16,
		},
		Ratings: Ratings{Melee: 3, Ranged: 5, Magic: 1},
		HP:      18,
		MaxHP:   20,
		AC:      13,
	}
}

func TestCreature_ToAttributes(t *testing.T) {
	c := testCreature()
	c.Attributes = map[string]int{"fishing": 4, "magic": 2}

	attrs := c.ToAttributes()

	tests := []struct {
		key      string
		expected int
	}{
		{"strength", 14},
		{"accuracy", 12},
		{"intelligence", 10},
		{"dexterity", 16},
		{"melee", 3},
		{"ranged", 5},
		{"magic", 2}, // extra attributes win
		{"fishing", 4},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := attrs[tt.key]; got != tt.expected {
				t.Errorf("ToAttributes()[%q] = %d, want %d", tt.key, got, tt.expected)
			}
		})
	}
}

func TestCreature_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Creature)
		wantErr bool
	}{
		{"valid", func(c *Creature) {}, false},
		{"zero id", func(c *Creature) { c.ID = 0 }, true},
		{"missing name", func(c *Creature) { c.Name = "" }, true},
		{"unknown kind", func(c *Creature) { c.Kind = "dragon" }, true},
		{"no max hp", func(c *Creature) { c.MaxHP = 0 }, true},
		{"hp above max", func(c *Creature) { c.HP = 30 }, true},
		{"monster", func(c *Creature) { c.Kind = KindMonster; c.DifficultyRating = 3 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCreature()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCreature(t *testing.T) {
	dir := t.TempDir()

	t.Run("loads and fills HP", func(t *testing.T) {
		c := testCreature()
		c.HP = 0
		data, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("Failed to marshal creature: %v", err)
		}
		path := filepath.Join(dir, "innkeeper.json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}

		loaded, err := LoadCreature(path)
		if err != nil {
			t.Fatalf("LoadCreature() error = %v", err)
		}
		if loaded.Name != "Innkeeper" {
			t.Errorf("Name = %q, want %q", loaded.Name, "Innkeeper")
		}
		if loaded.HP != loaded.MaxHP {
			t.Errorf("HP = %d, want MaxHP %d", loaded.HP, loaded.MaxHP)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadCreature(filepath.Join(dir, "nope.json")); err == nil {
			t.Error("LoadCreature() with nonexistent file should return error")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte("{ invalid json }"), 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}
		if _, err := LoadCreature(path); err == nil {
			t.Error("LoadCreature() with invalid JSON should return error")
		}
	})

	t.Run("invalid record", func(t *testing.T) {
		path := filepath.Join(dir, "noname.json")
		if err := os.WriteFile(path, []byte(`{"id": 4, "kind": "npc", "max_hp": 5}`), 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}
		if _, err := LoadCreature(path); err == nil {
			t.Error("LoadCreature() without a name should return error")
		}
	})
}

func TestNewCombatant(t *testing.T) {
	c := testCreature()

	cb, err := NewCombatant(c)
	if err != nil {
		t.Fatalf("NewCombatant() error = %v", err)
	}
	if cb.Actor == nil {
		t.Fatal("Combatant.Actor is nil, want non-nil")
	}
	if cb.ID() != 1 {
		t.Errorf("ID() = %d, want 1", cb.ID())
	}
	if cb.AC() != 13 {
		t.Errorf("AC() = %d, want 13", cb.AC())
	}
	if cb.Actor.MaxHP() != 20 {
		t.Errorf("Actor.MaxHP() = %d, want 20", cb.Actor.MaxHP())
	}
	if cb.Actor.HP() != 18 {
		t.Errorf("Actor.HP() = %d, want 18", cb.Actor.HP())
	}
	if got := cb.Attribute("ranged"); got != 5 {
		t.Errorf("Attribute(ranged) = %d, want 5", got)
	}
	if got := cb.Attribute("missing"); got != 0 {
		t.Errorf("Attribute(missing) = %d, want 0", got)
	}
}

func TestNewCombatant_Errors(t *testing.T) {
	if _, err := NewCombatant(nil); err == nil {
		t.Error("NewCombatant(nil) should return error")
	}
	bad := testCreature()
	bad.MaxHP = 0
	if _, err := NewCombatant(bad); err == nil {
		t.Error("NewCombatant() with invalid creature should return error")
	}
}
