package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/ilyakaznacheev/cleanenv"
)

// Text backends selectable through AI_TEXT_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Log    LogConfig
	AI     AIConfig
}

// Load 从环境变量加载配置。.env 由调用方预先通过 godotenv 加载。
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	addr, err := cfg.Server.resolveAddr()
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	cfg.AI.TextProvider = strings.ToLower(strings.TrimSpace(cfg.AI.TextProvider))
	switch cfg.AI.TextProvider {
	case "":
		cfg.AI.TextProvider = ProviderGemini
	case ProviderGemini, ProviderArk:
	default:
		return nil, fmt.Errorf("invalid AI_TEXT_PROVIDER value %q", cfg.AI.TextProvider)
	}
	if cfg.AI.RequestTimeout < 0 {
		return nil, fmt.Errorf("invalid AI_REQUEST_TIMEOUT value %s", cfg.AI.RequestTimeout)
	}

	return &cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `env:"PORT" env-default:"8080"`
	Addr string
}

func (c ServerConfig) resolveAddr() (string, error) {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level    string `env:"LOG_LEVEL" env-default:"info"`
	Encoding string `env:"LOG_ENCODING" env-default:"console"`
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	TextProvider string `env:"AI_TEXT_PROVIDER" env-default:"gemini"`

	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiTextModel  string `env:"GEMINI_TEXT_MODEL" env-default:"gemini-3-flash-preview"`
	GeminiImageModel string `env:"GEMINI_IMAGE_MODEL" env-default:"gemini-2.5-flash-image"`

	APIKey      string  `env:"ARK_API_KEY"`
	AccessKey   string  `env:"ARK_ACCESS_KEY"`
	SecretKey   string  `env:"ARK_SECRET_KEY"`
	Model       string  `env:"ARK_MODEL"`
	BaseURL     string  `env:"ARK_BASE_URL" env-default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string  `env:"ARK_REGION" env-default:"cn-beijing"`
	Temperature float32 `env:"ARK_TEMPERATURE"`
	TopP        float32 `env:"ARK_TOP_P"`
	MaxTokens   int     `env:"ARK_MAX_TOKENS"`

	RequestTimeout      time.Duration `env:"AI_REQUEST_TIMEOUT" env-default:"2m"`
	ImageStyleSuffix    string        `env:"IMAGE_STYLE_SUFFIX"`
	ImagePlaceholderURL string        `env:"IMAGE_PLACEHOLDER_URL" env-default:"https://picsum.photos/800/800?grayscale&blur=2"`
}

// Enabled 表示是否提供了所选文本后端的必需密钥。
func (c AIConfig) Enabled() bool {
	switch c.TextProvider {
	case ProviderArk:
		return c.arkEnabled()
	default:
		return strings.TrimSpace(c.GeminiAPIKey) != ""
	}
}

// ImageEnabled reports whether illustrations can be requested at all. Without
// it every illustration resolves to the placeholder.
func (c AIConfig) ImageEnabled() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != "" && c.GeminiImageModel != ""
}

func (c AIConfig) arkEnabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.arkEnabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != 0 {
		val := c.Temperature
		temperature = &val
	}

	var topP *float32
	if c.TopP != 0 {
		val := c.TopP
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens > 0 {
		val := c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}
