package ai

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zhouzirui/z-story/backend/internal/config"
)

// ErrNotConfigured is returned when the selected text backend lacks credentials.
var ErrNotConfigured = errors.New("ai backend not configured")

// NewClientFromConfig builds the text model for the configured provider and,
// when a Gemini key is present, the image model.
func NewClientFromConfig(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: provider %q", ErrNotConfigured, cfg.TextProvider)
	}

	var gemini *genai.Client
	if cfg.GeminiAPIKey != "" {
		var err error
		gemini, err = NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
	}

	var text TextModel
	switch cfg.TextProvider {
	case config.ProviderArk:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("create ark chat model: %w", err)
		}
		chain, err := NewChainTextModel(ctx, chatModel)
		if err != nil {
			return nil, err
		}
		text = chain
		logger.Info("text backend ready", zap.String("provider", config.ProviderArk), zap.String("model", cfg.Model))
	default:
		text = NewGeminiTextModel(gemini, cfg.GeminiTextModel)
		logger.Info("text backend ready", zap.String("provider", config.ProviderGemini), zap.String("model", cfg.GeminiTextModel))
	}

	var image ImageModel
	if cfg.ImageEnabled() && gemini != nil {
		image = NewGeminiImageModel(gemini, cfg.GeminiImageModel)
		logger.Info("image backend ready", zap.String("model", cfg.GeminiImageModel))
	} else {
		logger.Warn("image backend disabled, illustrations fall back to the placeholder")
	}

	return NewClient(text, image, logger, ClientOptions{
		Timeout:        cfg.RequestTimeout,
		PlaceholderURL: cfg.ImagePlaceholderURL,
	}), nil
}
