package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/seralis/fableforge/internal/model/game"
	"github.com/seralis/fableforge/internal/service/save"
	"github.com/seralis/fableforge/internal/service/session"
	"github.com/seralis/fableforge/internal/storage"
)

type chunkedModel struct {
	chunks []string
	err    error
}

func (m *chunkedModel) ModelName() string { return "test-model" }

func (m *chunkedModel) Complete(ctx context.Context, messages []game.Message, temperature float64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return strings.Join(m.chunks, ""), nil
}

func (m *chunkedModel) Stream(ctx context.Context, messages []game.Message, temperature float64, onChunk func(string)) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	for _, chunk := range m.chunks {
		onChunk(chunk)
	}
	return strings.Join(m.chunks, ""), nil
}

func setup(model session.ModelClient) (*chi.Mux, *session.Manager) {
	saves := save.NewService(storage.NewMemoryStore())
	manager := session.NewManager(context.Background(), model, saves)
	handler := New(manager)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, manager
}

func TestStreamNewGameEmitsDeltasAndEnd(t *testing.T) {
	model := &chunkedModel{chunks: []string{"You wake ", "in a meadow.", "\nACTIONS: Stand up | Look around"}}
	r, manager := setup(model)
	engine := manager.CreateSession(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/stream/"+engine.ID()+"?new=1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	body := resp.Body.String()
	if !strings.Contains(body, `"event":"start"`) {
		t.Fatalf("missing start frame: %s", body)
	}
	if strings.Count(body, `"event":"delta"`) != 3 {
		t.Fatalf("expected 3 delta frames, got: %s", body)
	}
	if !strings.Contains(body, `"event":"message"`) {
		t.Fatalf("missing message frame: %s", body)
	}
	if !strings.Contains(body, `"actions":["Stand up","Look around"]`) {
		t.Fatalf("missing parsed actions: %s", body)
	}
	if !strings.Contains(body, `"event":"end"`) {
		t.Fatalf("missing end frame: %s", body)
	}
}

func TestStreamRequiresActionOrNew(t *testing.T) {
	r, manager := setup(&chunkedModel{chunks: []string{"x"}})
	engine := manager.CreateSession(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/stream/"+engine.ID(), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStreamUnknownSession(t *testing.T) {
	r, _ := setup(&chunkedModel{chunks: []string{"x"}})

	req := httptest.NewRequest(http.MethodGet, "/stream/no-such?new=1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestStreamModelFailureEmitsErrorFrame(t *testing.T) {
	r, manager := setup(&chunkedModel{err: context.DeadlineExceeded})
	engine := manager.CreateSession(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/stream/"+engine.ID()+"?new=1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	body := resp.Body.String()
	if !strings.Contains(body, `"event":"error"`) {
		t.Fatalf("missing error frame: %s", body)
	}
	if strings.Contains(body, `"event":"end"`) {
		t.Fatalf("end frame after failure: %s", body)
	}
}
