package story

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidSettings is returned when a required setting is blank.
var ErrInvalidSettings = errors.New("invalid game settings")

// GameSettings 描述一次会话的初始设定，开局后不再修改。
type GameSettings struct {
	Gender  string `json:"gender"`
	Age     string `json:"age"`
	Genre   string `json:"genre"`
	Setting string `json:"setting"`
}

// Normalize trims every field and returns the copy.
func (s GameSettings) Normalize() GameSettings {
	return GameSettings{
		Gender:  strings.TrimSpace(s.Gender),
		Age:     strings.TrimSpace(s.Age),
		Genre:   strings.TrimSpace(s.Genre),
		Setting: strings.TrimSpace(s.Setting),
	}
}

// Validate reports the first missing field. Setting is free text and may hold a
// previous session's summary, so only emptiness is checked.
func (s GameSettings) Validate() error {
	n := s.Normalize()
	switch {
	case n.Gender == "":
		return errors.Join(ErrInvalidSettings, errors.New("gender is required"))
	case n.Age == "":
		return errors.Join(ErrInvalidSettings, errors.New("age is required"))
	case n.Genre == "":
		return errors.Join(ErrInvalidSettings, errors.New("genre is required"))
	case n.Setting == "":
		return errors.Join(ErrInvalidSettings, errors.New("setting is required"))
	}
	return nil
}

// AgeLabel renders a bare number such as "15" as "15歳".
func (s GameSettings) AgeLabel() string {
	age := strings.TrimSpace(s.Age)
	if age == "" {
		return age
	}
	for _, r := range age {
		if !unicode.IsDigit(r) {
			return age
		}
	}
	return age + "歳"
}
