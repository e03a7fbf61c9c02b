// Package stream serves one game turn as a Server-Sent Events stream.
package stream

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seralis/fableforge/internal/service/session"
	"github.com/seralis/fableforge/pkg/utils"
)

// Handler streams turn output over SSE.
type Handler struct {
	sessions *session.Manager
}

// New creates a new stream handler.
func New(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the streaming routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// StreamResponse is one streaming frame.
type StreamResponse struct {
	Event         string   `json:"event"`
	SessionID     string   `json:"sessionId,omitempty"`
	Content       string   `json:"content,omitempty"`
	Actions       []string `json:"actions,omitempty"`
	AchievementID string   `json:"achievementId,omitempty"`
	Finished      bool     `json:"finished,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// handleStream runs one turn and streams it. The client asks either for a
// fresh story (?new=1) or submits an action (?action=...). Text deltas arrive
// as "delta" frames in order; the parsed narrative and suggested actions
// arrive as a "message" frame before "end".
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	engine, err := h.sessions.GetSession(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	action := r.URL.Query().Get("action")
	newGame := r.URL.Query().Get("new") != ""
	if !newGame && action == "" {
		http.Error(w, "action or new is required", http.StatusBadRequest)
		return
	}

	utils.SetupSSEHeaders(w)

	h.sendSSE(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})

	unsubscribe := engine.Subscribe(func(event session.Event) {
		switch event.Type {
		case session.EventAchievementUnlocked:
			h.sendSSE(w, flusher, StreamResponse{
				Event:         "achievement",
				SessionID:     sessionID,
				AchievementID: event.AchievementID,
			})
		case session.EventTurnCompleted:
			h.sendSSE(w, flusher, StreamResponse{
				Event:     "message",
				SessionID: sessionID,
				Content:   event.Narrative,
				Actions:   event.Actions,
			})
		}
	})
	defer unsubscribe()

	onChunk := func(chunk string) {
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   chunk,
		})
	}

	if newGame {
		err = engine.StartNewGame(r.Context(), onChunk)
	} else {
		err = engine.PerformAction(r.Context(), action, onChunk)
	}
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("turn failed: %v", err))
		return
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed turn for session=%s", sessionID)
}

// sendSSE sends a Server-Sent Event
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

// sendSSEError sends an error via Server-Sent Events
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
