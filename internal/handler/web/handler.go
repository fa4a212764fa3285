// Package web serves the server-rendered play screens.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	storyHandler "github.com/zhouzirui/z-story/backend/internal/handler/story"
	"github.com/zhouzirui/z-story/backend/internal/model/preset"
	storymodel "github.com/zhouzirui/z-story/backend/internal/model/story"
	"github.com/zhouzirui/z-story/backend/internal/service/ai"
	storyService "github.com/zhouzirui/z-story/backend/internal/service/story"
)

//go:embed templates/*.html
var templateFS embed.FS

// refreshSeconds is the auto-refresh interval while anything is loading.
const refreshSeconds = 2

// Handler renders the setup form, the play view and the summary dialog.
type Handler struct {
	svc     *storyService.Service
	presets preset.Store
	enabled bool
	logger  *zap.Logger
	tmpl    *template.Template
}

// New parses the embedded templates.
func New(svc *storyService.Service, presets preset.Store, enabled bool, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.New("web").Funcs(template.FuncMap{
		"imageURL": imageURL,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handler{
		svc:     svc,
		presets: presets,
		enabled: enabled,
		logger:  logger,
		tmpl:    tmpl,
	}, nil
}

// RegisterRoutes 注册页面路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleSetup)
	r.Post("/play", h.handleCreate)
	r.Route("/play/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handlePlay)
		r.Post("/start", h.handleStart)
		r.Post("/choose", h.handleChoose)
		r.Get("/summary", h.handleSummary)
		r.Post("/reset", h.handleReset)
	})
}

type pageData struct {
	Title   string
	Enabled bool
	Refresh int

	// setup
	Options  preset.Options
	Settings storymodel.GameSettings
	Action   string
	Error    string

	// play
	Session storyHandler.SessionView

	// summary
	Summary       string
	SummaryFailed bool
}

func (h *Handler) handleSetup(w http.ResponseWriter, r *http.Request) {
	h.renderSetup(w, http.StatusOK, "/play", h.defaultSettings(), "")
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	settings := settingsFromForm(r)
	if !h.enabled {
		h.renderSetup(w, http.StatusServiceUnavailable, "/play", settings, "AI backend is not configured.")
		return
	}
	if err := settings.Validate(); err != nil {
		h.renderSetup(w, http.StatusBadRequest, "/play", settings, "すべての項目を入力してください。")
		return
	}

	snap := h.svc.Create(r.Context())
	h.startAndRedirect(w, r, snap.ID, settings)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	settings := settingsFromForm(r)
	action := "/play/" + sessionID + "/start"
	if !h.enabled {
		h.renderSetup(w, http.StatusServiceUnavailable, action, settings, "AI backend is not configured.")
		return
	}
	if err := settings.Validate(); err != nil {
		h.renderSetup(w, http.StatusBadRequest, action, settings, "すべての項目を入力してください。")
		return
	}
	h.startAndRedirect(w, r, sessionID, settings)
}

func (h *Handler) startAndRedirect(w http.ResponseWriter, r *http.Request, sessionID string, settings storymodel.GameSettings) {
	_, err := h.svc.StartAsync(r.Context(), sessionID, settings)
	switch {
	case err == nil, errors.Is(err, storyService.ErrAlreadyStarted):
		http.Redirect(w, r, "/play/"+sessionID, http.StatusSeeOther)
	case errors.Is(err, storyService.ErrSessionNotFound):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		h.renderSetup(w, storyHandler.StatusFor(err), "/play/"+sessionID+"/start", settings, err.Error())
	}
}

func (h *Handler) handlePlay(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap, err := h.svc.Snapshot(r.Context(), sessionID)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if snap.Phase == storyService.PhaseSetup {
		settings := h.defaultSettings()
		if snap.Settings != nil {
			settings = *snap.Settings
		}
		h.renderSetup(w, http.StatusOK, "/play/"+sessionID+"/start", settings, snap.Error)
		return
	}

	data := pageData{
		Title:   "物語",
		Enabled: h.enabled,
		Session: storyHandler.NewSessionView(snap),
	}
	if snap.TextLoading || snap.ImageLoading {
		data.Refresh = refreshSeconds
	}
	h.render(w, http.StatusOK, "play", data)
}

func (h *Handler) handleChoose(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	action := r.PostFormValue("action")
	if custom := strings.TrimSpace(r.PostFormValue("custom")); custom != "" {
		action = custom
	}

	_, err := h.svc.ChooseAsync(r.Context(), sessionID, action)
	switch {
	case err == nil,
		errors.Is(err, storyService.ErrBusy),
		errors.Is(err, storyService.ErrInvalidAction):
		http.Redirect(w, r, "/play/"+sessionID, http.StatusSeeOther)
	case errors.Is(err, storyService.ErrSessionNotFound):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		h.logger.Warn("choice rejected", zap.String("session_id", sessionID), zap.Error(err))
		http.Redirect(w, r, "/play/"+sessionID, http.StatusSeeOther)
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap, err := h.svc.Snapshot(r.Context(), sessionID)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	text, err := h.svc.Summary(r.Context(), sessionID)
	if err != nil && !errors.Is(err, ai.ErrGeneration) {
		http.Redirect(w, r, "/play/"+sessionID, http.StatusSeeOther)
		return
	}

	h.render(w, http.StatusOK, "summary", pageData{
		Title:         "あらすじ",
		Enabled:       h.enabled,
		Session:       storyHandler.NewSessionView(snap),
		Summary:       text,
		SummaryFailed: err != nil,
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.svc.Reset(r.Context(), sessionID); err != nil && !errors.Is(err, storyService.ErrSessionNotFound) {
		h.logger.Warn("reset failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderSetup(w http.ResponseWriter, status int, action string, settings storymodel.GameSettings, errMsg string) {
	h.render(w, status, "setup", pageData{
		Title:    "新しい物語",
		Enabled:  h.enabled,
		Options:  h.presets.Options(),
		Settings: settings,
		Action:   action,
		Error:    errMsg,
	})
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
	}
}

func (h *Handler) defaultSettings() storymodel.GameSettings {
	opts := h.presets.Options()
	return storymodel.GameSettings{
		Gender:  opts.DefaultGender,
		Age:     opts.DefaultAge,
		Genre:   opts.DefaultGenre,
		Setting: opts.DefaultSetting,
	}
}

func settingsFromForm(r *http.Request) storymodel.GameSettings {
	_ = r.ParseForm()
	return storymodel.GameSettings{
		Gender:  r.PostFormValue("gender"),
		Age:     r.PostFormValue("age"),
		Genre:   r.PostFormValue("genre"),
		Setting: r.PostFormValue("setting"),
	}
}

// imageURL marks generated data URLs and https references as safe for src
// attributes; anything else is dropped.
func imageURL(ref string) template.URL {
	switch {
	case strings.HasPrefix(ref, "data:image/"), strings.HasPrefix(ref, "https://"):
		return template.URL(ref)
	default:
		return ""
	}
}
