package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// NewGeminiClient opens a Gemini API client for the given key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

// storySchema mirrors storyResponseFormat for structured-output mode.
var storySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"storyText": {
			Type:        genai.TypeString,
			Description: "The narrative content of the story segment in Japanese.",
		},
		"choices": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "A list of 3-4 possible actions the user can take next in Japanese.",
		},
		"imagePrompt": {
			Type:        genai.TypeString,
			Description: "A detailed visual description of the current scene to be used for image generation. Focus on environment, lighting, and characters. MUST BE IN ENGLISH.",
		},
	},
	Required: []string{"storyText", "choices", "imagePrompt"},
}

// GeminiTextModel implements TextModel on the Gemini API.
type GeminiTextModel struct {
	client *genai.Client
	model  string
}

// NewGeminiTextModel binds a client to a text model name.
func NewGeminiTextModel(client *genai.Client, model string) *GeminiTextModel {
	return &GeminiTextModel{client: client, model: model}
}

// Generate sends the request, in JSON mode when it is structured.
func (m *GeminiTextModel) Generate(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Structured {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = storySchema
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, userContents(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", m.model, err)
	}
	return responseText(resp), nil
}

// GeminiImageModel implements ImageModel on a Gemini image model.
type GeminiImageModel struct {
	client *genai.Client
	model  string
}

// NewGeminiImageModel binds a client to an image model name.
func NewGeminiImageModel(client *genai.Client, model string) *GeminiImageModel {
	return &GeminiImageModel{client: client, model: model}
}

// GenerateImage returns the first inline image part of the response.
func (m *GeminiImageModel) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, userContents(prompt), nil)
	if err != nil {
		return Image{}, fmt.Errorf("gemini %s: %w", m.model, err)
	}
	return responseImage(resp)
}

func userContents(text string) []*genai.Content {
	return []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: text}},
	}}
}

func firstCandidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil
	}
	return candidate.Content.Parts
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, part := range firstCandidateParts(resp) {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func responseImage(resp *genai.GenerateContentResponse) (Image, error) {
	for _, part := range firstCandidateParts(resp) {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
	}
	return Image{}, ErrNoImage
}
