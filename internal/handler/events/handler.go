package events

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	storyHandler "github.com/zhouzirui/z-story/backend/internal/handler/story"
	storyService "github.com/zhouzirui/z-story/backend/internal/service/story"
	"github.com/zhouzirui/z-story/backend/pkg/utils"
)

// Handler pushes session snapshots to clients over SSE and websocket.
type Handler struct {
	svc       *storyService.Service
	logger    *zap.Logger
	heartbeat time.Duration
	upgrader  websocket.Upgrader
}

// New creates an events handler.
func New(svc *storyService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:       svc,
		logger:    logger,
		heartbeat: 15 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册推送相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/events", h.handleSSE)
	r.Get("/sessions/{sessionID}/ws", h.handleWebSocket)
}

// handleSSE streams one "snapshot" event per state change until the client
// leaves or the session is reset.
func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, cancel, err := h.svc.Subscribe(sessionID)
	if err != nil {
		utils.RespondError(w, storyHandler.StatusFor(err), err.Error())
		return
	}
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	log := h.logger.With(zap.String("session_id", sessionID))
	log.Debug("sse stream opened")
	defer log.Debug("sse stream closed")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				_ = utils.SendSSEEvent(w, flusher, "closed", map[string]string{"sessionId": sessionID})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "snapshot", storyHandler.NewSessionView(snap)); err != nil {
				log.Debug("sse write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
