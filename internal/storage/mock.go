package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu          sync.RWMutex
	creatures   map[int]*actor.Creature
	resolutions map[uuid.UUID]*combat.Resolution
	history     map[int][]uuid.UUID // newest last
	pingError   error
	saveError   error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		creatures:   make(map[int]*actor.Creature),
		resolutions: make(map[uuid.UUID]*combat.Resolution),
		history:     make(map[int][]uuid.UUID),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes SaveResolution fail with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) GetCreature(ctx context.Context, id int) (*actor.Creature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creatures[id]
	if !ok {
		return nil, fmt.Errorf("creature %d: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *MockStorage) ListCreatures(ctx context.Context) ([]*actor.Creature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*actor.Creature, 0, len(m.creatures))
	for _, c := range m.creatures {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockStorage) SaveCreature(ctx context.Context, c *actor.Creature) error {
	if c == nil {
		return errors.New("creature cannot be nil")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creatures[c.ID] = c
	return nil
}

func (m *MockStorage) SaveResolution(ctx context.Context, res *combat.Resolution) error {
	if res == nil {
		return errors.New("resolution cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.resolutions[res.ID] = res
	m.history[res.AttackerID] = append(m.history[res.AttackerID], res.ID)
	return nil
}

func (m *MockStorage) GetResolution(ctx context.Context, id uuid.UUID) (*combat.Resolution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.resolutions[id]
	if !ok {
		return nil, fmt.Errorf("resolution %s: %w", id, ErrNotFound)
	}
	return res, nil
}

func (m *MockStorage) ListResolutions(ctx context.Context, attackerID int, limit int) ([]*combat.Resolution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.history[attackerID]
	out := []*combat.Resolution{}
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.resolutions[ids[i]])
	}
	return out, nil
}
