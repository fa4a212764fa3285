package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	storyHandler "github.com/zhouzirui/z-story/backend/internal/handler/story"
	"github.com/zhouzirui/z-story/backend/internal/service/ai"
	storyService "github.com/zhouzirui/z-story/backend/internal/service/story"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// 客户端消息类型
const (
	MessageChoose  = "choose"
	MessageSummary = "summary"
)

// 服务端消息类型
const (
	MessageSnapshot = "snapshot"
	MessageError    = "error"
	MessageClosed   = "closed"
)

type inboundMessage struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws        *websocket.Conn
	sessionID string
	mu        sync.Mutex
}

func (c *conn) send(msgType string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 推送快照，并接受 choose / summary 指令
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.svc.Snapshot(r.Context(), sessionID); err != nil {
		http.Error(w, err.Error(), storyHandler.StatusFor(err))
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	log := h.logger.With(zap.String("session_id", sessionID))
	log.Info("websocket connected")

	updates, unsubscribe, err := h.svc.Subscribe(sessionID)
	if err != nil {
		_ = ws.WriteJSON(outgoingMessage{Type: MessageError, Data: map[string]string{"message": err.Error()}, Timestamp: time.Now().Unix()})
		return
	}
	defer unsubscribe()

	c := &conn{ws: ws, sessionID: sessionID}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pushLoop(ctx, cancel, c, updates)

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", zap.Error(err))
			}
			cancel()
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			h.handleMessage(ctx, c, msg)
		}()
	}
}

func (h *Handler) pushLoop(ctx context.Context, cancel context.CancelFunc, c *conn, updates <-chan storyService.Snapshot) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				_ = c.send(MessageClosed, nil)
				cancel()
				_ = c.ws.Close()
				return
			}
			if err := c.send(MessageSnapshot, storyHandler.NewSessionView(snap)); err != nil {
				cancel()
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				cancel()
				return
			}
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, msg inboundMessage) {
	switch msg.Type {
	case MessageChoose:
		// The resulting state arrives through the subscription. The turn
		// outlives the socket so a disconnect does not fail the action.
		if _, err := h.svc.Choose(context.WithoutCancel(ctx), c.sessionID, msg.Action); err != nil {
			h.sendError(c, err)
		}
	case MessageSummary:
		text, err := h.svc.Summary(ctx, c.sessionID)
		if err != nil && !errors.Is(err, ai.ErrGeneration) {
			h.sendError(c, err)
			return
		}
		_ = c.send(MessageSummary, storyHandler.SummaryResponse{Summary: text, Failed: err != nil})
	default:
		_ = c.send(MessageError, map[string]string{"message": "unsupported message type: " + msg.Type})
	}
}

func (h *Handler) sendError(c *conn, err error) {
	payload, _ := json.Marshal(map[string]any{
		"message": err.Error(),
		"status":  storyHandler.StatusFor(err),
	})
	_ = c.send(MessageError, json.RawMessage(payload))
}
