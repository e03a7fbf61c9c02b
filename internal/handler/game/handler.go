// Package game exposes the session engine over plain REST endpoints.
package game

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	gamemodel "github.com/seralis/fableforge/internal/model/game"
	"github.com/seralis/fableforge/internal/service/session"
	"github.com/seralis/fableforge/pkg/utils"
)

// recentWindow caps the tracked-entity lists shown to the client; the full
// sets keep growing underneath.
const recentWindow = 10

// Handler serves game session endpoints.
type Handler struct {
	sessions *session.Manager
}

// New creates the game handler.
func New(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the game routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/game/session", h.handleCreateSession)
	r.Get("/game/session/{sessionID}", h.handleGetState)
	r.Post("/game/session/{sessionID}/new", h.handleNewGame)
	r.Post("/game/session/{sessionID}/action", h.handleAction)
	r.Post("/game/session/{sessionID}/undo", h.handleUndo)
	r.Get("/game/session/{sessionID}/transcript", h.handleTranscript)
	r.Get("/game/session/{sessionID}/achievements", h.handleAchievements)
	r.Post("/game/session/{sessionID}/save/{slotID}", h.handleSave)
	r.Post("/game/session/{sessionID}/load/{slotID}", h.handleLoad)
	r.Get("/game/saves", h.handleListSaves)
	r.Delete("/game/saves/{slotID}", h.handleDeleteSave)
	r.Delete("/game/saves", h.handleDeleteAllSaves)
	r.Get("/settings", h.handleGetSettings)
	r.Put("/settings", h.handleUpdateSettings)
}

// sessionView is the observable state a client re-renders from.
type sessionView struct {
	ID              string                   `json:"id"`
	Phase           session.Phase            `json:"phase"`
	DisplayLog      []gamemodel.DisplayEntry `json:"displayLog"`
	CurrentActions  []string                 `json:"currentActions"`
	RecentLocations []string                 `json:"recentLocations"`
	RecentNPCs      []string                 `json:"recentNpcs"`
	RecentItems     []string                 `json:"recentItems"`
	Counters        gamemodel.Counters       `json:"counters"`
}

func viewOf(engine *session.Engine) sessionView {
	state := engine.State()
	tracked := engine.Tracked()
	return sessionView{
		ID:              engine.ID(),
		Phase:           engine.Phase(),
		DisplayLog:      state.DisplayLog,
		CurrentActions:  state.CurrentActions,
		RecentLocations: gamemodel.Recent(tracked.Locations, recentWindow),
		RecentNPCs:      gamemodel.Recent(tracked.NPCs, recentWindow),
		RecentItems:     gamemodel.Recent(tracked.Items, recentWindow),
		Counters:        engine.Counters(),
	}
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	engine := h.sessions.CreateSession(r.Context())
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"id": engine.ID()})
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, viewOf(engine))
}

func (h *Handler) handleNewGame(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	if err := engine.StartNewGame(r.Context(), nil); err != nil {
		h.respondTurnError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, viewOf(engine))
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var payload struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Action == "" {
		utils.RespondError(w, http.StatusBadRequest, "action is required")
		return
	}

	if err := engine.PerformAction(r.Context(), payload.Action, nil); err != nil {
		h.respondTurnError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, viewOf(engine))
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	applied := engine.Undo()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"state":   viewOf(engine),
	})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(engine.ExportTranscript()))
}

func (h *Handler) handleAchievements(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, engine.Achievements())
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	// Body is optional; the slot id doubles as the name.
	_ = json.NewDecoder(r.Body).Decode(&payload)

	slot, err := engine.SaveTo(r.Context(), chi.URLParam(r, "slotID"), payload.Name)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, slot)
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	if !engine.LoadFrom(r.Context(), chi.URLParam(r, "slotID")) {
		utils.RespondError(w, http.StatusNotFound, "nothing to load")
		return
	}
	utils.RespondJSON(w, http.StatusOK, viewOf(engine))
}

func (h *Handler) handleListSaves(w http.ResponseWriter, r *http.Request) {
	slots, err := h.sessions.Saves().ListSlots(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, slots)
}

func (h *Handler) handleDeleteSave(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Saves().DeleteSlot(r.Context(), chi.URLParam(r, "slotID")); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleDeleteAllSaves(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Saves().DeleteAll(r.Context()); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.sessions.Settings())
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings gamemodel.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	applied, err := h.sessions.UpdateSettings(r.Context(), settings)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, applied)
}

func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*session.Engine, bool) {
	engine, err := h.sessions.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return engine, true
}

func (h *Handler) respondTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrTurnInFlight):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrActionRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		// The engine already appended the error block to the display log.
		utils.RespondError(w, http.StatusBadGateway, err.Error())
	}
}
