package domain

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Question is a trivia question. The set of implementations is closed:
// *MultipleChoiceQuestion and *TrueFalseQuestion.
type Question interface {
	Text() string
	Category() string
	Difficulty() Difficulty
	Type() QuestionType
	// Answers lists every choice, correct answer first.
	Answers() []string
	CorrectAnswer() string
	Answered() bool
	PickedAnswer() (string, bool)

	base() *questionBase
}

type questionBase struct {
	text       string
	category   string
	difficulty Difficulty
	answered   bool
	picked     string
}

func (b *questionBase) Text() string { return b.text }
func (b *questionBase) Category() string { return b.category }
func (b *questionBase) Difficulty() Difficulty { return b.difficulty }
func (b *questionBase) Answered() bool { return b.answered }
func (b *questionBase) base() *questionBase { return b }

func (b *questionBase) PickedAnswer() (string, bool) {
	return b.picked, b.answered
}

// MultipleChoiceQuestion has one correct answer and at least one incorrect one.
type MultipleChoiceQuestion struct {
	questionBase
	correct   string
	incorrect []string
}

func NewMultipleChoiceQuestion(text, category string, difficulty Difficulty, correct string, incorrect []string) *MultipleChoiceQuestion {
	return &MultipleChoiceQuestion{
		questionBase: questionBase{text: text, category: category, difficulty: difficulty},
		correct:      correct,
		incorrect:    append([]string(nil), incorrect...),
	}
}

func (q *MultipleChoiceQuestion) Type() QuestionType { return TypeMultiple }
func (q *MultipleChoiceQuestion) CorrectAnswer() string { return q.correct }

func (q *MultipleChoiceQuestion) IncorrectAnswers() []string {
	return append([]string(nil), q.incorrect...)
}

func (q *MultipleChoiceQuestion) Answers() []string {
	answers := make([]string, 0, len(q.incorrect)+1)
	answers = append(answers, q.correct)
	return append(answers, q.incorrect...)
}

// TrueFalseQuestion is answered with "true" or "false".
type TrueFalseQuestion struct {
	questionBase
	correct bool
}

func NewTrueFalseQuestion(text, category string, difficulty Difficulty, correct bool) *TrueFalseQuestion {
	return &TrueFalseQuestion{
		questionBase: questionBase{text: text, category: category, difficulty: difficulty},
		correct:      correct,
	}
}

func (q *TrueFalseQuestion) Type() QuestionType { return TypeBoolean }
func (q *TrueFalseQuestion) Correct() bool { return q.correct }
func (q *TrueFalseQuestion) CorrectAnswer() string { return strconv.FormatBool(q.correct) }

func (q *TrueFalseQuestion) Answers() []string {
	return []string{"true", "false"}
}

// CheckAnswer reports whether answer is the correct answer of q.
func CheckAnswer(q Question, answer string) bool {
	switch q := q.(type) {
	case *MultipleChoiceQuestion:
		return answer == q.correct
	case *TrueFalseQuestion:
		value, ok := parseBoolAnswer(answer)
		return ok && value == q.correct
	default:
		panic(fmt.Sprintf("domain: unknown question variant %T", q))
	}
}

// IsChoice reports whether answer is one of the choices of q.
func IsChoice(q Question, answer string) bool {
	switch q := q.(type) {
	case *MultipleChoiceQuestion:
		if answer == q.correct {
			return true
		}
		for _, wrong := range q.incorrect {
			if answer == wrong {
				return true
			}
		}
		return false
	case *TrueFalseQuestion:
		_, ok := parseBoolAnswer(answer)
		return ok
	default:
		panic(fmt.Sprintf("domain: unknown question variant %T", q))
	}
}

// Pick records answer on q and reports whether it was correct. A question
// can be answered once.
func Pick(q Question, answer string) (bool, error) {
	b := q.base()
	if b.answered {
		return false, ErrAlreadyAnswered
	}
	if !IsChoice(q, answer) {
		return false, fmt.Errorf("%w: %q", ErrInvalidAnswer, answer)
	}
	correct := CheckAnswer(q, answer)
	b.answered = true
	b.picked = answer
	return correct, nil
}

// ShuffledAnswers returns the choices of q in random order for presentation.
func ShuffledAnswers(q Question, rnd *rand.Rand) []string {
	answers := q.Answers()
	rnd.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
	})
	return answers
}

func parseBoolAnswer(answer string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
