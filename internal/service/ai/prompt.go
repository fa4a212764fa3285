package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/z-story/backend/internal/model/preset"
	"github.com/zhouzirui/z-story/backend/internal/model/story"
)

// Kind identifies which of the three request shapes was assembled.
type Kind string

const (
	KindOpening      Kind = "opening"
	KindContinuation Kind = "continuation"
	KindSummary      Kind = "summary"
)

// ErrEmptyTranscript guards the continuation and summary builders: both need
// at least the opening segment to have context.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Request is a fully assembled prompt. Structured requests expect a JSON object
// with storyText, choices and imagePrompt.
type Request struct {
	Kind       Kind
	System     string
	Prompt     string
	Structured bool
}

const (
	openingSystemPrompt      = "You are a master novelist. Write long, immersive, and highly descriptive Japanese prose. Each response should feel like a substantial chapter of a book, roughly 1000 characters. Output strict JSON."
	continuationSystemPrompt = "You are a master novelist. Maintain continuity. Write immersive, long-form Japanese prose (approx 1000 chars per segment). Output strict JSON."
	summarySystemPrompt      = "You are a chronicler. Summarize the adventure concisely but with enough detail to resume play."
)

// storyResponseFormat is appended to structured prompts so that backends
// without schema support still return the expected object.
const storyResponseFormat = `Response format (JSON object only, no extra text):
{
  "storyText": "the narrative segment in Japanese",
  "choices": ["3 to 4 possible next actions in Japanese"],
  "imagePrompt": "a detailed visual description of the scene in English"
}`

// PromptAssembler turns settings and transcripts into backend requests. It is
// pure: the same input always yields the same Request.
type PromptAssembler struct {
	genres preset.Store
}

// NewPromptAssembler creates an assembler. genres may be nil.
func NewPromptAssembler(genres preset.Store) *PromptAssembler {
	return &PromptAssembler{genres: genres}
}

// BuildOpeningRequest asks for the first segment. Whether Setting is a fresh
// premise or a previous summary is left to the backend to decide.
func (a *PromptAssembler) BuildOpeningRequest(settings story.GameSettings) Request {
	settings = settings.Normalize()

	var b strings.Builder
	b.WriteString("Create the opening of an interactive novel OR continue from a provided summary.\n\n")
	b.WriteString("User Settings / Context:\n")
	fmt.Fprintf(&b, "- Gender: %s\n", settings.Gender)
	fmt.Fprintf(&b, "- Age: %s\n", settings.AgeLabel())
	fmt.Fprintf(&b, "- Genre: %s\n", settings.Genre)
	fmt.Fprintf(&b, "- Setting / Previous Summary: %s\n", settings.Setting)
	if hint := a.genreHint(settings.Genre); hint != "" {
		fmt.Fprintf(&b, "- Genre Guidance: %s\n", hint)
	}
	b.WriteString(`
Instructions:
1. Analyze the "Setting / Previous Summary" field.
   - If it describes a specific world setting or premise, start a NEW story (Chapter 1).
   - If it looks like a summary of a previous adventure, CONTINUE from that point.
2. Write an extensive, descriptive segment (about 1000 Japanese characters) in JAPANESE.
3. Focus on sensory details, internal monologue, and atmospheric setting.
4. Provide 3 distinct choices for the character to take next in JAPANESE.
5. Provide a detailed image prompt for the scene in ENGLISH.

`)
	b.WriteString(storyResponseFormat)

	return Request{
		Kind:       KindOpening,
		System:     openingSystemPrompt,
		Prompt:     b.String(),
		Structured: true,
	}
}

// BuildContinuationRequest replays the transcript and appends the latest action.
func (a *PromptAssembler) BuildContinuationRequest(transcript []story.Segment, action string) (Request, error) {
	if len(transcript) == 0 {
		return Request{}, ErrEmptyTranscript
	}

	var b strings.Builder
	b.WriteString("Continue the story based on the user's action.\n\n")
	b.WriteString("Previous Story Context:\n")
	b.WriteString(FormatTranscript(transcript))
	fmt.Fprintf(&b, "\n\nLatest User Action: %q\n", strings.TrimSpace(action))
	b.WriteString(`
Instructions:
1. Write a long, detailed next segment (about 1000 Japanese characters) in JAPANESE.
2. Advance the plot significantly while maintaining a high level of descriptive detail.
3. Provide 3 distinct choices for the next step in JAPANESE.
4. Provide a descriptive image prompt for the NEW scene in ENGLISH.

`)
	b.WriteString(storyResponseFormat)

	return Request{
		Kind:       KindContinuation,
		System:     continuationSystemPrompt,
		Prompt:     b.String(),
		Structured: true,
	}, nil
}

// BuildSummaryRequest asks for a save-data summary. The output is meant to be
// pasted into Setting of a new session, which BuildOpeningRequest accepts.
func (a *PromptAssembler) BuildSummaryRequest(transcript []story.Segment, settings story.GameSettings) (Request, error) {
	if len(transcript) == 0 {
		return Request{}, ErrEmptyTranscript
	}
	settings = settings.Normalize()

	var b strings.Builder
	b.WriteString("Summarize the current state of this interactive story so the player can continue later.\n\n")
	b.WriteString("Original Settings:\n")
	fmt.Fprintf(&b, "- Age/Gender: %s, %s\n", settings.AgeLabel(), settings.Gender)
	fmt.Fprintf(&b, "- Genre: %s\n\n", settings.Genre)
	b.WriteString("Story Log:\n")
	b.WriteString(FormatTranscript(transcript))
	b.WriteString(`

Instructions:
1. Create a detailed summary (about 300-500 characters) in JAPANESE.
2. Include location, key events, status, and items.
3. Output as a "Save Data" log.
4. Write plain text only, so it can be pasted as the "Setting / Previous Summary" of a new story.
`)

	return Request{
		Kind:   KindSummary,
		System: summarySystemPrompt,
		Prompt: b.String(),
	}, nil
}

// FormatTranscript renders segments as the linear context block.
func FormatTranscript(segments []story.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.IsUserAction {
			parts = append(parts, "User Action: "+seg.UserActionText)
			continue
		}
		parts = append(parts, "Story: "+seg.Text)
	}
	return strings.Join(parts, "\n\n")
}

func (a *PromptAssembler) genreHint(genre string) string {
	if a == nil || a.genres == nil {
		return ""
	}
	g, ok := a.genres.FindByName(genre)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s (tone: %s)", g.PromptHint, g.Tone)
}
