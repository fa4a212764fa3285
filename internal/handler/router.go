package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-story/backend/internal/handler/events"
	"github.com/zhouzirui/z-story/backend/internal/handler/options"
	"github.com/zhouzirui/z-story/backend/internal/handler/story"
	"github.com/zhouzirui/z-story/backend/internal/handler/web"
	middlewarePkg "github.com/zhouzirui/z-story/backend/internal/middleware"
	"github.com/zhouzirui/z-story/backend/internal/model/preset"
	storyService "github.com/zhouzirui/z-story/backend/internal/service/story"
	"github.com/zhouzirui/z-story/backend/pkg/utils"
)

// Dependencies bundles what the router needs.
type Dependencies struct {
	Presets preset.Store
	Stories *storyService.Service
	// GenerationEnabled is false when no AI backend is configured; generation
	// endpoints then answer 503.
	GenerationEnabled bool
	Logger            *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) (http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.ZapLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	optionsHandler := options.New(deps.Presets)
	storyHandler := story.New(deps.Stories, deps.GenerationEnabled, logger.Named("story"))
	eventsHandler := events.New(deps.Stories, logger.Named("events"))
	webHandler, err := web.New(deps.Stories, deps.Presets, deps.GenerationEnabled, logger.Named("web"))
	if err != nil {
		return nil, err
	}

	r.Route("/api", func(api chi.Router) {
		optionsHandler.RegisterRoutes(api)
		storyHandler.RegisterRoutes(api)
		eventsHandler.RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":     "ok",
				"generation": deps.GenerationEnabled,
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	webHandler.RegisterRoutes(r)

	return r, nil
}
