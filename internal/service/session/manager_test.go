package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/seralis/fableforge/internal/model/game"
	"github.com/seralis/fableforge/internal/service/save"
	"github.com/seralis/fableforge/internal/service/session"
	"github.com/seralis/fableforge/internal/storage"
)

type stubModel struct{}

func (stubModel) ModelName() string { return "stub" }

func (stubModel) Complete(context.Context, []game.Message, float64) (string, error) {
	return "Scene.\nACTIONS: a | b", nil
}

func (stubModel) Stream(ctx context.Context, messages []game.Message, temp float64, onChunk func(string)) (string, error) {
	return "Scene.\nACTIONS: a | b", nil
}

func TestManagerSessionLifecycle(t *testing.T) {
	saves := save.NewService(storage.NewMemoryStore())
	mgr := session.NewManager(context.Background(), stubModel{}, saves)

	engine := mgr.CreateSession(context.Background())
	got, err := mgr.GetSession(engine.ID())
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got != engine {
		t.Fatal("GetSession returned a different engine")
	}

	mgr.DeleteSession(engine.ID())
	if _, err := mgr.GetSession(engine.ID()); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerUpdateSettingsPersistsAndPropagates(t *testing.T) {
	store := storage.NewMemoryStore()
	saves := save.NewService(store)
	ctx := context.Background()
	mgr := session.NewManager(ctx, stubModel{}, saves)
	mgr.CreateSession(ctx)

	updated := mgr.Settings()
	updated.Tone = game.ToneSerious
	updated.Temperature = 1.7 // out of range, must be clamped

	applied, err := mgr.UpdateSettings(ctx, updated)
	if err != nil {
		t.Fatalf("UpdateSettings err: %v", err)
	}
	if applied.Temperature != 1 {
		t.Fatalf("temperature not clamped: %f", applied.Temperature)
	}

	// A fresh manager against the same store sees the persisted settings.
	reloaded := session.NewManager(ctx, stubModel{}, save.NewService(store))
	if reloaded.Settings().Tone != game.ToneSerious {
		t.Fatalf("settings not persisted: %+v", reloaded.Settings())
	}
}
