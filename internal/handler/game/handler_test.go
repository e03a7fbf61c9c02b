package game

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	gamemodel "github.com/seralis/fableforge/internal/model/game"
	"github.com/seralis/fableforge/internal/service/save"
	"github.com/seralis/fableforge/internal/service/session"
	"github.com/seralis/fableforge/internal/storage"
)

type fakeModel struct {
	reply string
	err   error
}

func (f *fakeModel) ModelName() string { return "test-model" }

func (f *fakeModel) Complete(ctx context.Context, messages []gamemodel.Message, temperature float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeModel) Stream(ctx context.Context, messages []gamemodel.Message, temperature float64, onChunk func(string)) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	onChunk(f.reply)
	return f.reply, nil
}

func setupRouter(t *testing.T) (*chi.Mux, *session.Manager) {
	t.Helper()
	model := &fakeModel{reply: "You stand at a crossroads.\nACTIONS: Go north | Go south"}
	saves := save.NewService(storage.NewMemoryStore())
	manager := session.NewManager(context.Background(), model, saves)
	handler := New(manager)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, manager
}

func createSession(t *testing.T, r *chi.Mux) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/game/session", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["id"] == "" {
		t.Fatal("expected a session id")
	}
	return body["id"]
}

func TestNewGameReturnsStateView(t *testing.T) {
	r, _ := setupRouter(t)
	id := createSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/new", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var view sessionView
	if err := json.Unmarshal(resp.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if view.Phase != session.PhaseIdle {
		t.Fatalf("expected idle phase, got %q", view.Phase)
	}
	if len(view.CurrentActions) != 2 {
		t.Fatalf("expected 2 suggested actions, got %v", view.CurrentActions)
	}
}

func TestActionRequiresBody(t *testing.T) {
	r, _ := setupRouter(t)
	id := createSession(t, r)

	payload := []byte(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/action", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestActionUnknownSession(t *testing.T) {
	r, _ := setupRouter(t)

	payload := []byte(`{"action":"Look around"}`)
	req := httptest.NewRequest(http.MethodPost, "/game/session/no-such-id/action", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestActionModelFailureReturnsBadGateway(t *testing.T) {
	model := &fakeModel{err: context.DeadlineExceeded}
	saves := save.NewService(storage.NewMemoryStore())
	manager := session.NewManager(context.Background(), model, saves)
	handler := New(manager)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	id := createSession(t, r)

	payload := []byte(`{"action":"Open the door"}`)
	req := httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/action", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}

	// The engine stays usable for the next action.
	engine, err := manager.GetSession(id)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if engine.Phase() != session.PhaseIdle {
		t.Fatalf("expected idle phase after failure, got %q", engine.Phase())
	}
}

func TestTranscriptIsPlainText(t *testing.T) {
	r, _ := setupRouter(t)
	id := createSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/new", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/game/session/"+id+"/transcript", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %q", ct)
	}
	if !strings.HasPrefix(resp.Body.String(), "=== FABLEFORGE TRANSCRIPT ===") {
		t.Fatalf("unexpected transcript header: %q", resp.Body.String())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r, _ := setupRouter(t)
	id := createSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/new", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	payload := []byte(`{"name":"Before the cave"}`)
	req = httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/save/slot-1", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var slot gamemodel.SaveSlot
	if err := json.Unmarshal(resp.Body.Bytes(), &slot); err != nil {
		t.Fatalf("failed to decode slot: %v", err)
	}
	if slot.Name != "Before the cave" {
		t.Fatalf("expected slot name preserved, got %q", slot.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/load/slot-1", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestLoadMissingSlot(t *testing.T) {
	r, _ := setupRouter(t)
	id := createSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/load/empty-slot", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListAndDeleteSaves(t *testing.T) {
	r, _ := setupRouter(t)
	id := createSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/new", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/save/slot-a", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/game/saves", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var slots []gamemodel.SaveSlot
	if err := json.Unmarshal(resp.Body.Bytes(), &slots); err != nil {
		t.Fatalf("failed to decode slots: %v", err)
	}
	// Autosave from the opening turn plus the manual slot.
	if len(slots) < 2 {
		t.Fatalf("expected at least 2 slots, got %d", len(slots))
	}

	req = httptest.NewRequest(http.MethodDelete, "/game/saves/slot-a", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodDelete, "/game/saves", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/game/saves", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	slots = nil
	if err := json.Unmarshal(resp.Body.Bytes(), &slots); err != nil {
		t.Fatalf("failed to decode slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots after delete all, got %d", len(slots))
	}
}

func TestUpdateSettingsClampsAndPersists(t *testing.T) {
	r, manager := setupRouter(t)

	payload := []byte(`{"fontSize":99,"temperature":1.5,"detailLevel":"detailed","tone":"whimsical","streamingEnabled":true,"autoSaveEnabled":true,"theme":"dark"}`)
	req := httptest.NewRequest(http.MethodPut, "/settings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var applied gamemodel.Settings
	if err := json.Unmarshal(resp.Body.Bytes(), &applied); err != nil {
		t.Fatalf("failed to decode settings: %v", err)
	}
	if applied.Temperature > 1 {
		t.Fatalf("expected temperature clamped to 1, got %v", applied.Temperature)
	}
	if manager.Settings().Tone != gamemodel.ToneWhimsical {
		t.Fatalf("expected manager to carry updated tone, got %q", manager.Settings().Tone)
	}
}

func TestUndoEndpoint(t *testing.T) {
	r, _ := setupRouter(t)
	id := createSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/new", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	payload := []byte(`{"action":"Go north"}`)
	req = httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/action", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/undo", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var body struct {
		Applied bool        `json:"applied"`
		State   sessionView `json:"state"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode undo response: %v", err)
	}
	if !body.Applied {
		t.Fatal("expected undo to apply")
	}

	// Second undo has nothing left to revert.
	req = httptest.NewRequest(http.MethodPost, "/game/session/"+id+"/undo", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode undo response: %v", err)
	}
	if body.Applied {
		t.Fatal("expected second undo to be a no-op")
	}
}
