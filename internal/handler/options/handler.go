package options

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-story/backend/internal/model/preset"
	"github.com/zhouzirui/z-story/backend/pkg/utils"
)

// Handler 设定表单选项的HTTP处理器
type Handler struct {
	presets preset.Store
}

// New 创建选项处理器
func New(presets preset.Store) *Handler {
	return &Handler{
		presets: presets,
	}
}

// RegisterRoutes 注册选项相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/options", h.handleOptions)
	r.Get("/genres", h.handleListGenres)
}

// handleOptions 返回表单的默认值与候选项
func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.presets.Options())
}

// handleListGenres 列出所有题材
func (h *Handler) handleListGenres(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.presets.List())
}
