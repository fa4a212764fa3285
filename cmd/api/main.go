package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-story/backend/internal/config"
	"github.com/zhouzirui/z-story/backend/internal/handler"
	"github.com/zhouzirui/z-story/backend/internal/logger"
	"github.com/zhouzirui/z-story/backend/internal/model/preset"
	"github.com/zhouzirui/z-story/backend/internal/service/ai"
	"github.com/zhouzirui/z-story/backend/internal/service/story"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)

	presets := preset.NewMemoryStore(preset.Seed())

	// Without a configured backend the UI still loads, generation answers 503.
	client, err := ai.NewClientFromConfig(ctx, cfg.AI, zlog.Named("ai"))
	generationEnabled := err == nil
	if err != nil {
		zlog.Warn("AI backend unavailable, continuing without generation",
			zap.String("provider", cfg.AI.TextProvider), zap.Error(err))
		client = ai.NewClient(nil, nil, zlog.Named("ai"), ai.ClientOptions{PlaceholderURL: cfg.AI.ImagePlaceholderURL})
	}

	stories := story.NewService(client, zlog.Named("story"), story.Options{
		Genres:           presets,
		ImageStyleSuffix: cfg.AI.ImageStyleSuffix,
	})

	router, err := handler.NewRouter(handler.Dependencies{
		Presets:           presets,
		Stories:           stories,
		GenerationEnabled: generationEnabled,
		Logger:            zlog,
	})
	if err != nil {
		zlog.Fatal("failed to build router", zap.Error(err))
	}

	startServer(ctx, zlog, cfg.Server, router)

	zlog.Info("waiting for background generations")
	stories.Wait()
}

func startServer(ctx context.Context, zlog *zap.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zlog.Info("Z Story backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
