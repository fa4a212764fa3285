// Package aitest provides scripted TextModel and ImageModel fakes.
package aitest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/zhouzirui/z-story/backend/internal/service/ai"
)

// ErrScriptExhausted is returned when no scripted response is left.
var ErrScriptExhausted = errors.New("aitest: no scripted response left")

// Response is one scripted reply.
type Response struct {
	Content string
	Err     error
}

// TextModel replays scripted responses in order.
type TextModel struct {
	mu        sync.Mutex
	responses []Response
	requests  []ai.Request

	// Gate, when set, makes every call wait for a receive before answering.
	Gate chan struct{}
}

// Push queues a reply.
func (m *TextModel) Push(content string, err error) *TextModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, Response{Content: content, Err: err})
	return m
}

// PushStory queues a well-formed story payload.
func (m *TextModel) PushStory(text string, choices []string, imagePrompt string) *TextModel {
	return m.Push(StoryJSON(text, choices, imagePrompt), nil)
}

// Generate implements ai.TextModel.
func (m *TextModel) Generate(ctx context.Context, req ai.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		return "", ErrScriptExhausted
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return next.Content, next.Err
}

// Requests returns every request received so far.
func (m *TextModel) Requests() []ai.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.Request(nil), m.requests...)
}

// Calls counts received requests.
func (m *TextModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// ImageModel returns a fixed image or error.
type ImageModel struct {
	mu      sync.Mutex
	Image   ai.Image
	Err     error
	prompts []string

	Gate chan struct{}
}

// GenerateImage implements ai.ImageModel.
func (m *ImageModel) GenerateImage(ctx context.Context, prompt string) (ai.Image, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ai.Image{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Image, m.Err
}

// Prompts returns every prompt received so far.
func (m *ImageModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// StoryJSON encodes a story payload the way the backend returns it.
func StoryJSON(text string, choices []string, imagePrompt string) string {
	data, _ := json.Marshal(map[string]any{
		"storyText":   text,
		"choices":     choices,
		"imagePrompt": imagePrompt,
	})
	return string(data)
}

// PNG is a tiny payload usable as image data.
var PNG = ai.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}
