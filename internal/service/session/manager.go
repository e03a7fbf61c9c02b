package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/seralis/fableforge/internal/model/game"
	"github.com/seralis/fableforge/internal/service/save"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// Manager owns the process-wide settings and the live engines. Each engine
// exclusively owns its session state; the manager only hands out references.
type Manager struct {
	model ModelClient
	saves *save.Service

	mu       sync.RWMutex
	settings game.Settings
	engines  map[string]*Engine
}

// NewManager loads settings once at construction and prepares the session
// registry.
func NewManager(ctx context.Context, model ModelClient, saves *save.Service) *Manager {
	settings := game.DefaultSettings()
	if saves != nil {
		settings = saves.LoadSettings(ctx)
	}
	return &Manager{
		model:    model,
		saves:    saves,
		settings: settings,
		engines:  make(map[string]*Engine),
	}
}

// CreateSession provisions a new engine with the current settings and the
// persisted achievement catalog.
func (m *Manager) CreateSession(ctx context.Context) *Engine {
	achievements := game.SeedAchievements()
	if m.saves != nil {
		achievements = m.saves.LoadAchievements(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	engine := NewEngine(uuid.NewString(), m.model, m.saves, m.settings, achievements)
	m.engines[engine.ID()] = engine
	return engine
}

// GetSession retrieves a live engine by id.
func (m *Manager) GetSession(id string) (*Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	engine, ok := m.engines[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return engine, nil
}

// DeleteSession drops a live engine. Saved slots are unaffected.
func (m *Manager) DeleteSession(id string) {
	m.mu.Lock()
	delete(m.engines, id)
	m.mu.Unlock()
}

// Settings returns the current process-wide settings.
func (m *Manager) Settings() game.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// UpdateSettings is the single mutation entry point: it normalizes,
// persists, and pushes the new settings to every live engine.
func (m *Manager) UpdateSettings(ctx context.Context, settings game.Settings) (game.Settings, error) {
	settings = settings.Normalize()

	if m.saves != nil {
		if err := m.saves.SaveSettings(ctx, settings); err != nil {
			return game.Settings{}, err
		}
	}

	m.mu.Lock()
	m.settings = settings
	engines := make([]*Engine, 0, len(m.engines))
	for _, engine := range m.engines {
		engines = append(engines, engine)
	}
	m.mu.Unlock()

	for _, engine := range engines {
		engine.ApplySettings(settings)
	}
	return settings, nil
}

// Saves exposes the persistence service for slot management endpoints.
func (m *Manager) Saves() *save.Service { return m.saves }
