// Package play runs interactive game sessions over a WebSocket connection.
package play

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/seralis/fableforge/internal/service/session"
)

// WebSocketHandler drives one engine per connection.
type WebSocketHandler struct {
	sessions *session.Manager
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the play handler.
func NewWebSocketHandler(sessions *session.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes mounts the play routes.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// ActionMessage is the payload of a "action" frame.
type ActionMessage struct {
	Action string `json:"action"`
}

// ConfigMessage adjusts per-connection behavior.
type ConfigMessage struct {
	StreamMode *bool `json:"streamMode,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes outbound frames: the ping loop and the read-loop
// handlers write concurrently, and gorilla/websocket permits only one
// writer on a connection at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

type connectionState struct {
	sessionID  string
	streamMode bool
}

func newConnectionState(sessionID string) *connectionState {
	return &connectionState{
		sessionID:  sessionID,
		streamMode: true,
	}
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	engine, err := h.sessions.GetSession(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	sock := &wsConn{conn: conn}

	go h.pingLoop(ctx, sock)

	state := newConnectionState(sessionID)

	unsubscribe := engine.Subscribe(func(event session.Event) {
		if event.Type == session.EventAchievementUnlocked {
			h.sendInfo(sock, sessionID, map[string]any{
				"type":          "achievement",
				"achievementId": event.AchievementID,
			})
		}
	})
	defer unsubscribe()

	h.sendInfo(sock, sessionID, map[string]any{
		"type":  "connected",
		"phase": engine.Phase(),
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[websocket] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if msg.SessionID != "" && msg.SessionID != sessionID {
				h.sendError(sock, "session mismatch")
				continue
			}

			h.handleMessage(ctx, sock, engine, state, &msg)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, sock *wsConn, engine *session.Engine, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "action":
		h.handleActionMessage(ctx, sock, engine, state, msg.Data)
	case "new":
		h.runTurn(ctx, sock, engine, state, "")
	case "undo":
		h.handleUndoMessage(sock, engine, state)
	case "config":
		h.handleConfigMessage(sock, state, msg.Data)
	default:
		h.sendError(sock, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleActionMessage(ctx context.Context, sock *wsConn, engine *session.Engine, state *connectionState, raw json.RawMessage) {
	var action ActionMessage
	if err := json.Unmarshal(raw, &action); err != nil {
		h.sendError(sock, "invalid action payload")
		return
	}
	if action.Action == "" {
		h.sendError(sock, "action is required")
		return
	}

	h.runTurn(ctx, sock, engine, state, action.Action)
}

// runTurn drives one turn and reports its outcome on the connection. An empty
// action starts a new game.
func (h *WebSocketHandler) runTurn(ctx context.Context, sock *wsConn, engine *session.Engine, state *connectionState, action string) {
	var onChunk func(string)
	if state.streamMode {
		onChunk = func(chunk string) {
			h.sendInfo(sock, state.sessionID, map[string]any{
				"type": "delta",
				"text": chunk,
			})
		}
	}

	var err error
	if action == "" {
		err = engine.StartNewGame(ctx, onChunk)
	} else {
		err = engine.PerformAction(ctx, action, onChunk)
	}
	if err != nil {
		h.sendError(sock, err.Error())
		return
	}

	gameState := engine.State()
	h.sendInfo(sock, state.sessionID, map[string]any{
		"type":    "narrative",
		"actions": gameState.CurrentActions,
		"isFinal": true,
	})
}

func (h *WebSocketHandler) handleUndoMessage(sock *wsConn, engine *session.Engine, state *connectionState) {
	applied := engine.Undo()
	gameState := engine.State()
	h.sendInfo(sock, state.sessionID, map[string]any{
		"type":    "undo",
		"applied": applied,
		"actions": gameState.CurrentActions,
	})
}

func (h *WebSocketHandler) handleConfigMessage(sock *wsConn, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(sock, "invalid config payload")
		return
	}

	h.applyConfig(state, cfg)

	log.Printf("[websocket] config applied session=%s streamMode=%v", state.sessionID, state.streamMode)

	h.sendInfo(sock, state.sessionID, map[string]any{
		"type":       "config",
		"streamMode": state.streamMode,
	})
}

func (h *WebSocketHandler) applyConfig(state *connectionState, cfg ConfigMessage) {
	if cfg.StreamMode != nil {
		state.streamMode = *cfg.StreamMode
	}
}

func (h *WebSocketHandler) sendInfo(sock *wsConn, sessionID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := sock.writeJSON(msg); err != nil {
		log.Printf("[websocket] write info failed: %v", err)
	}
}

func (h *WebSocketHandler) sendError(sock *wsConn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := sock.writeJSON(msg); err != nil {
		log.Printf("[websocket] write error failed: %v", err)
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, sock *wsConn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sock.ping(); err != nil {
				return
			}
		}
	}
}
