package story

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks whether a user action has been answered by the narrator.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Segment is one transcript entry: either narrator prose with choices or a
// recorded user action.
type Segment struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	Choices        []string  `json:"choices"`
	ImagePrompt    string    `json:"imagePrompt"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	IsUserAction   bool      `json:"isUserAction,omitempty"`
	UserActionText string    `json:"userActionText,omitempty"`
	Status         Status    `json:"status"`
	Mood           string    `json:"mood,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewNarratorSegment builds a confirmed narrator entry.
func NewNarratorSegment(text string, choices []string, imagePrompt string) Segment {
	return Segment{
		ID:          uuid.NewString(),
		Text:        text,
		Choices:     append([]string(nil), choices...),
		ImagePrompt: imagePrompt,
		Status:      StatusConfirmed,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewUserActionSegment builds a pending user-action entry.
func NewUserActionSegment(action string) Segment {
	return Segment{
		ID:             uuid.NewString(),
		Choices:        []string{},
		IsUserAction:   true,
		UserActionText: action,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}

// Valid checks that exactly one of the narrator or user-action shapes is populated.
func (s Segment) Valid() bool {
	if s.ID == "" {
		return false
	}
	if s.IsUserAction {
		return s.UserActionText != "" && s.Text == "" && len(s.Choices) == 0 && s.ImagePrompt == ""
	}
	return s.Text != "" && s.UserActionText == ""
}

func (s Segment) clone() Segment {
	s.Choices = append([]string(nil), s.Choices...)
	if s.Choices == nil {
		s.Choices = []string{}
	}
	return s
}
