package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestResponseImagePicksInlineData(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Here is your scene."},
				{InlineData: &genai.Blob{Data: []byte("jpeg-bytes"), MIMEType: "image/jpeg"}},
			}},
		}},
	}

	img, err := responseImage(resp)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, "data:image/jpeg;base64,anBlZy1ieXRlcw==", img.DataURL())
}

func TestResponseImageWithoutImagePart(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "I cannot draw that."}}},
		}},
	}

	_, err := responseImage(resp)
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = responseImage(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = responseImage(nil)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestResponseTextJoinsParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: `{"storyText": "a",`},
				{Text: ` "choices": ["b"], "imagePrompt": "c"}`},
			}},
		}},
	}

	got := responseText(resp)
	assert.Equal(t, `{"storyText": "a", "choices": ["b"], "imagePrompt": "c"}`, got)

	parsed, err := ParseStory(got)
	require.NoError(t, err)
	assert.Equal(t, "a", parsed.Text)
}

func TestStorySchemaRequiresAllFields(t *testing.T) {
	assert.ElementsMatch(t, []string{"storyText", "choices", "imagePrompt"}, storySchema.Required)
	assert.Equal(t, genai.TypeArray, storySchema.Properties["choices"].Type)
}
