package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrGeneration is the GenerationFailure of the text backend: transport
// errors, timeouts and unparsable payloads all wrap it.
var ErrGeneration = errors.New("generation failed")

// ErrNoImage is returned by image models when the response has no image part.
var ErrNoImage = errors.New("no image data found in response")

// ErrEmptySummary is returned with SummaryFallbackText when the backend
// answers with no summary text.
var ErrEmptySummary = fmt.Errorf("%w: empty summary payload", ErrGeneration)

// SummaryFallbackText replaces an empty summary payload.
const SummaryFallbackText = "あらすじの生成に失敗しました。"

// DefaultPlaceholderURL is shown whenever an illustration cannot be produced.
const DefaultPlaceholderURL = "https://picsum.photos/800/800?grayscale&blur=2"

// TextModel produces raw text for an assembled request.
type TextModel interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Image is an inline image payload.
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURL renders the image as a directly displayable reference.
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}

// ImageModel renders an English scene description.
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string) (Image, error)
}

// ClientOptions tunes a Client.
type ClientOptions struct {
	// Timeout bounds every backend call. Zero disables it.
	Timeout        time.Duration
	PlaceholderURL string
}

// Client is the only I/O boundary towards the generative backend. Narrative
// failures are returned to the caller; illustration failures degrade to a
// placeholder.
type Client struct {
	text        TextModel
	image       ImageModel
	logger      *zap.Logger
	timeout     time.Duration
	placeholder string
}

// NewClient wires the text and image models. image may be nil, in which case
// every illustration is the placeholder.
func NewClient(text TextModel, image ImageModel, logger *zap.Logger, opts ClientOptions) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	placeholder := strings.TrimSpace(opts.PlaceholderURL)
	if placeholder == "" {
		placeholder = DefaultPlaceholderURL
	}
	return &Client{
		text:        text,
		image:       image,
		logger:      logger,
		timeout:     opts.Timeout,
		placeholder: placeholder,
	}
}

// PlaceholderURL returns the fallback illustration reference.
func (c *Client) PlaceholderURL() string {
	return c.placeholder
}

// RequestStory sends an opening or continuation request and validates the shape.
func (c *Client) RequestStory(ctx context.Context, req Request) (StoryResult, error) {
	log := c.logger.With(zap.String("kind", string(req.Kind)))

	content, err := c.generate(ctx, req)
	if err != nil {
		log.Error("story generation failed", zap.Error(err))
		generationRequests.WithLabelValues(string(req.Kind), outcomeError).Inc()
		return StoryResult{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	result, err := ParseStory(content)
	if err != nil {
		log.Error("story response could not be parsed", zap.Error(err), zap.Int("length", len(content)))
		generationRequests.WithLabelValues(string(req.Kind), outcomeMalformed).Inc()
		return StoryResult{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	generationRequests.WithLabelValues(string(req.Kind), outcomeSuccess).Inc()
	log.Info("story segment generated",
		zap.Int("text_length", len([]rune(result.Text))),
		zap.Int("choices", len(result.Choices)),
	)
	return result, nil
}

// RequestIllustration never fails: any error yields the placeholder.
func (c *Client) RequestIllustration(ctx context.Context, prompt string) string {
	log := c.logger.With(zap.String("kind", kindIllustration))

	if c.image == nil {
		illustrationFallbacks.Inc()
		log.Debug("no image model configured, using placeholder")
		return c.placeholder
	}
	if strings.TrimSpace(prompt) == "" {
		illustrationFallbacks.Inc()
		log.Warn("empty image prompt, using placeholder")
		return c.placeholder
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	img, err := c.image.GenerateImage(ctx, prompt)
	generationDuration.WithLabelValues(kindIllustration).Observe(time.Since(started).Seconds())
	if err == nil && len(img.Data) == 0 {
		err = ErrNoImage
	}
	if err != nil {
		generationRequests.WithLabelValues(kindIllustration, outcomeError).Inc()
		illustrationFallbacks.Inc()
		log.Warn("illustration generation failed, using placeholder", zap.Error(err))
		return c.placeholder
	}

	if img.MIMEType == "" {
		img.MIMEType = "image/png"
	}
	generationRequests.WithLabelValues(kindIllustration, outcomeSuccess).Inc()
	log.Info("illustration generated", zap.String("mime_type", img.MIMEType), zap.Int("size_bytes", len(img.Data)))
	return img.DataURL()
}

// RequestSummary returns the raw summary text without structural validation.
func (c *Client) RequestSummary(ctx context.Context, req Request) (string, error) {
	log := c.logger.With(zap.String("kind", string(req.Kind)))

	content, err := c.generate(ctx, req)
	if err != nil {
		log.Error("summary generation failed", zap.Error(err))
		generationRequests.WithLabelValues(string(req.Kind), outcomeError).Inc()
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		generationRequests.WithLabelValues(string(req.Kind), outcomeEmpty).Inc()
		log.Warn("summary payload was empty")
		return SummaryFallbackText, ErrEmptySummary
	}

	generationRequests.WithLabelValues(string(req.Kind), outcomeSuccess).Inc()
	return content, nil
}

func (c *Client) generate(ctx context.Context, req Request) (string, error) {
	if c.text == nil {
		return "", errors.New("text model is not configured")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	content, err := c.text.Generate(ctx, req)
	generationDuration.WithLabelValues(string(req.Kind)).Observe(time.Since(started).Seconds())
	return content, err
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
