package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks a payload that does not match the story shape.
var ErrMalformedResponse = errors.New("malformed story response")

// StoryResult is the structured answer to an opening or continuation request.
type StoryResult struct {
	Text        string   `json:"storyText"`
	Choices     []string `json:"choices"`
	ImagePrompt string   `json:"imagePrompt"`
}

type storyPayload struct {
	StoryText   *string  `json:"storyText"`
	Choices     []string `json:"choices"`
	ImagePrompt *string  `json:"imagePrompt"`
}

// ParseStory extracts the JSON object from content and validates it. Missing
// fields are reported as malformed rather than defaulted.
func ParseStory(content string) (StoryResult, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return StoryResult{}, fmt.Errorf("%w: missing json object", ErrMalformedResponse)
	}

	var payload storyPayload
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return StoryResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if payload.StoryText == nil || strings.TrimSpace(*payload.StoryText) == "" {
		return StoryResult{}, fmt.Errorf("%w: storyText is missing", ErrMalformedResponse)
	}
	if payload.ImagePrompt == nil {
		return StoryResult{}, fmt.Errorf("%w: imagePrompt is missing", ErrMalformedResponse)
	}

	choices := make([]string, 0, len(payload.Choices))
	for _, choice := range payload.Choices {
		if c := strings.TrimSpace(choice); c != "" {
			choices = append(choices, c)
		}
	}
	if len(choices) == 0 {
		return StoryResult{}, fmt.Errorf("%w: choices are missing", ErrMalformedResponse)
	}

	return StoryResult{
		Text:        strings.TrimSpace(*payload.StoryText),
		Choices:     choices,
		ImagePrompt: strings.TrimSpace(*payload.ImagePrompt),
	}, nil
}
