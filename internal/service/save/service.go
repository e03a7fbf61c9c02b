// Package save implements save-slot, settings and achievement persistence on
// top of the key-value store.
package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/seralis/fableforge/internal/model/game"
	"github.com/seralis/fableforge/internal/storage"
)

const (
	keySettings     = "settings"
	keyAchievements = "achievements"
	slotStatePrefix = "save:slot:"
	slotMetaPrefix  = "save:meta:"
)

// ErrSlotIDRequired is returned when a save operation names no slot.
var ErrSlotIDRequired = errors.New("slot id is required")

// SavedGame is the full persisted session: the restorable state plus the
// tracker sets and counters that accompany it.
type SavedGame struct {
	State         game.SessionState    `json:"state"`
	Tracked       game.TrackedEntities `json:"tracked"`
	ActionHistory []string             `json:"actionHistory"`
	Counters      game.Counters        `json:"counters"`
	SavedAt       time.Time            `json:"savedAt"`
}

// Service persists games, settings and achievement state.
type Service struct {
	store storage.Store
}

// NewService wraps the given key-value store.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// SaveGame writes the state blob and then upserts the slot metadata, in that
// order, so an interrupted save never leaves metadata pointing at nothing.
func (s *Service) SaveGame(ctx context.Context, slotID, name string, saved SavedGame) (game.SaveSlot, error) {
	slotID = strings.TrimSpace(slotID)
	if slotID == "" {
		return game.SaveSlot{}, ErrSlotIDRequired
	}
	if name == "" {
		name = slotID
	}
	if saved.SavedAt.IsZero() {
		saved.SavedAt = time.Now().UTC()
	}

	blob, err := json.Marshal(saved)
	if err != nil {
		return game.SaveSlot{}, fmt.Errorf("encode save blob: %w", err)
	}
	if err := s.store.Set(ctx, slotStatePrefix+slotID, blob); err != nil {
		return game.SaveSlot{}, fmt.Errorf("write save blob: %w", err)
	}

	slot := game.SaveSlot{
		ID:           slotID,
		Name:         name,
		SavedAt:      saved.SavedAt,
		MessageCount: len(saved.State.DisplayLog),
	}
	meta, err := json.Marshal(slot)
	if err != nil {
		return game.SaveSlot{}, fmt.Errorf("encode slot metadata: %w", err)
	}
	if err := s.store.Set(ctx, slotMetaPrefix+slotID, meta); err != nil {
		return game.SaveSlot{}, fmt.Errorf("write slot metadata: %w", err)
	}
	return slot, nil
}

// LoadGame reads the slot's state. Absent or corrupt data reports ok=false
// rather than an error: callers keep their current in-memory state.
func (s *Service) LoadGame(ctx context.Context, slotID string) (SavedGame, bool) {
	blob, err := s.store.Get(ctx, slotStatePrefix+slotID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("[save] read slot %q: %v", slotID, err)
		}
		return SavedGame{}, false
	}

	var saved SavedGame
	if err := json.Unmarshal(blob, &saved); err != nil {
		log.Printf("[save] corrupt blob for slot %q: %v", slotID, err)
		return SavedGame{}, false
	}
	return saved, true
}

// ListSlots returns all slot metadata sorted by save time, newest first.
// Corrupt metadata records are skipped.
func (s *Service) ListSlots(ctx context.Context) ([]game.SaveSlot, error) {
	keys, err := s.store.Keys(ctx, slotMetaPrefix)
	if err != nil {
		return nil, fmt.Errorf("list slot keys: %w", err)
	}

	slots := make([]game.SaveSlot, 0, len(keys))
	for _, key := range keys {
		meta, err := s.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var slot game.SaveSlot
		if err := json.Unmarshal(meta, &slot); err != nil {
			log.Printf("[save] corrupt metadata at %q: %v", key, err)
			continue
		}
		slots = append(slots, slot)
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].SavedAt.After(slots[j].SavedAt)
	})
	return slots, nil
}

// DeleteSlot removes a slot's metadata and state blob.
func (s *Service) DeleteSlot(ctx context.Context, slotID string) error {
	if err := s.store.Delete(ctx, slotMetaPrefix+slotID); err != nil {
		return fmt.Errorf("delete slot metadata: %w", err)
	}
	if err := s.store.Delete(ctx, slotStatePrefix+slotID); err != nil {
		return fmt.Errorf("delete save blob: %w", err)
	}
	return nil
}

// DeleteAll removes every save slot. Settings and achievements survive.
func (s *Service) DeleteAll(ctx context.Context) error {
	for _, prefix := range []string{slotMetaPrefix, slotStatePrefix} {
		keys, err := s.store.Keys(ctx, prefix)
		if err != nil {
			return fmt.Errorf("list keys for %q: %w", prefix, err)
		}
		for _, key := range keys {
			if err := s.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("delete %q: %w", key, err)
			}
		}
	}
	return nil
}

// LoadSettings returns persisted settings, or defaults when absent or
// corrupt.
func (s *Service) LoadSettings(ctx context.Context) game.Settings {
	blob, err := s.store.Get(ctx, keySettings)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("[save] read settings: %v", err)
		}
		return game.DefaultSettings()
	}

	var settings game.Settings
	if err := json.Unmarshal(blob, &settings); err != nil {
		log.Printf("[save] corrupt settings record: %v", err)
		return game.DefaultSettings()
	}
	return settings.Normalize()
}

// SaveSettings persists the settings record.
func (s *Service) SaveSettings(ctx context.Context, settings game.Settings) error {
	blob, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.store.Set(ctx, keySettings, blob); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// unlockRecord is the persisted per-achievement unlock state.
type unlockRecord struct {
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// LoadAchievements merges the fixed catalog with persisted unlock state.
// Unknown persisted ids are ignored; catalog entries never disappear.
func (s *Service) LoadAchievements(ctx context.Context) []game.Achievement {
	catalog := game.SeedAchievements()

	blob, err := s.store.Get(ctx, keyAchievements)
	if err != nil {
		return catalog
	}

	var records map[string]unlockRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		log.Printf("[save] corrupt achievement record: %v", err)
		return catalog
	}

	for i := range catalog {
		record, ok := records[catalog[i].ID]
		if !ok || !record.Unlocked {
			continue
		}
		catalog[i].Unlocked = true
		catalog[i].UnlockedAt = record.UnlockedAt
	}
	return catalog
}

// SaveAchievements persists unlock state for the whole catalog.
func (s *Service) SaveAchievements(ctx context.Context, catalog []game.Achievement) error {
	records := make(map[string]unlockRecord, len(catalog))
	for _, a := range catalog {
		if !a.Unlocked {
			continue
		}
		records[a.ID] = unlockRecord{Unlocked: true, UnlockedAt: a.UnlockedAt}
	}

	blob, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode achievements: %w", err)
	}
	if err := s.store.Set(ctx, keyAchievements, blob); err != nil {
		return fmt.Errorf("write achievements: %w", err)
	}
	return nil
}
