package domain

import (
	"fmt"
	"strings"
)

// Difficulty is both a question attribute and a game filter. DifficultyAny
// only appears as a filter; parsed questions are Easy, Medium, Hard or Unknown.
type Difficulty int

const (
	DifficultyAny Difficulty = iota
	DifficultyEasy
	DifficultyMedium
	DifficultyHard
	DifficultyUnknown
)

func (d Difficulty) String() string {
	switch d {
	case DifficultyAny:
		return "any"
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	default:
		return "unknown"
	}
}

// APIValue is the query value understood by the trivia API, empty when no
// filter should be sent.
func (d Difficulty) APIValue() string {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d.String()
	default:
		return ""
	}
}

func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDifficulty maps a question payload value to a Difficulty. Values
// other than easy, medium and hard become DifficultyUnknown.
func ParseDifficulty(raw string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	default:
		return DifficultyUnknown
	}
}

// ParseDifficultyFilter parses a user supplied filter; empty means any.
func ParseDifficultyFilter(raw string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "any":
		return DifficultyAny, nil
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	}
	return DifficultyAny, fmt.Errorf("%w: difficulty %q", ErrInvalidOption, raw)
}

// QuestionType selects the question variant. TypeAny is a filter value.
type QuestionType int

const (
	TypeAny QuestionType = iota
	TypeMultiple
	TypeBoolean
)

func (t QuestionType) String() string {
	switch t {
	case TypeMultiple:
		return "multiple"
	case TypeBoolean:
		return "boolean"
	default:
		return "any"
	}
}

func (t QuestionType) APIValue() string {
	if t == TypeAny {
		return ""
	}
	return t.String()
}

func (t QuestionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseQuestionType parses a discriminator or filter value.
func ParseQuestionType(raw string) (QuestionType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "any":
		return TypeAny, nil
	case "multiple":
		return TypeMultiple, nil
	case "boolean":
		return TypeBoolean, nil
	}
	return TypeAny, fmt.Errorf("%w: question type %q", ErrInvalidOption, raw)
}
