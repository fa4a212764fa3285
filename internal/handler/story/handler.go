package story

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	storymodel "github.com/zhouzirui/z-story/backend/internal/model/story"
	"github.com/zhouzirui/z-story/backend/internal/service/ai"
	storyService "github.com/zhouzirui/z-story/backend/internal/service/story"
	"github.com/zhouzirui/z-story/backend/pkg/utils"
)

// Handler 故事会话的HTTP处理器
type Handler struct {
	svc     *storyService.Service
	enabled bool
	logger  *zap.Logger
}

// New 创建故事处理器。enabled 为 false 时生成类接口返回 503。
func New(svc *storyService.Service, enabled bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:     svc,
		enabled: enabled,
		logger:  logger,
	}
}

// RegisterRoutes 注册故事相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleResetSession)
		r.Post("/start", h.handleStart)
		r.Post("/choices", h.handleChoose)
		r.Get("/summary", h.handleSummary)
	})
}

// SessionView is a snapshot plus the choices currently offered.
type SessionView struct {
	storyService.Snapshot
	Choices []string `json:"choices"`
}

// NewSessionView decorates a snapshot for clients.
func NewSessionView(snap storyService.Snapshot) SessionView {
	choices := snap.Choices()
	if choices == nil {
		choices = []string{}
	}
	if snap.Segments == nil {
		snap.Segments = []storymodel.Segment{}
	}
	return SessionView{Snapshot: snap, Choices: choices}
}

// SummaryResponse 摘要接口的响应
type SummaryResponse struct {
	Summary string `json:"summary"`
	Failed  bool   `json:"failed"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Create(r.Context())
	utils.RespondJSON(w, http.StatusCreated, NewSessionView(snap))
}

// handleGetSession 获取会话快照
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, NewSessionView(snap))
}

// handleResetSession 结束会话
func (h *Handler) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStart 生成开篇
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		utils.RespondError(w, http.StatusServiceUnavailable, "story generation unavailable")
		return
	}

	var settings storymodel.GameSettings
	if err := utils.DecodeJSON(w, r, &settings); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.svc.Start(r.Context(), chi.URLParam(r, "sessionID"), settings)
	if err != nil {
		if errors.Is(err, ai.ErrGeneration) {
			utils.RespondJSON(w, http.StatusBadGateway, NewSessionView(snap))
			return
		}
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, NewSessionView(snap))
}

// handleChoose 提交玩家行动（选项或自由输入）
func (h *Handler) handleChoose(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		utils.RespondError(w, http.StatusServiceUnavailable, "story generation unavailable")
		return
	}

	var payload struct {
		Action string `json:"action"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.svc.Choose(r.Context(), chi.URLParam(r, "sessionID"), payload.Action)
	if err != nil {
		if errors.Is(err, ai.ErrGeneration) {
			utils.RespondJSON(w, http.StatusBadGateway, NewSessionView(snap))
			return
		}
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, NewSessionView(snap))
}

// handleSummary 生成可作为下次设定的摘要
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		utils.RespondError(w, http.StatusServiceUnavailable, "story generation unavailable")
		return
	}

	text, err := h.svc.Summary(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, ai.ErrGeneration) {
			utils.RespondJSON(w, http.StatusOK, SummaryResponse{Summary: text, Failed: true})
			return
		}
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, SummaryResponse{Summary: text})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("story request failed", zap.Error(err))
	}
	utils.RespondError(w, status, err.Error())
}

// StatusFor maps controller errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, storyService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, storymodel.ErrInvalidSettings),
		errors.Is(err, storyService.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, storyService.ErrAlreadyStarted),
		errors.Is(err, storyService.ErrBusy),
		errors.Is(err, storyService.ErrNotPlaying),
		errors.Is(err, storyService.ErrEmptyTranscript):
		return http.StatusConflict
	case errors.Is(err, ai.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
