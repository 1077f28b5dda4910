package domain

import "fmt"

// GameState is the coarse state of a GameSession.
type GameState int

const (
	StateNotStarted GameState = iota
	StateInProgress
	StateGameOver
)

func (s GameState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	default:
		return "game_over"
	}
}

func (s GameState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// GameOptions configures a new GameSession. Amount 0 is arcade mode.
type GameOptions struct {
	Amount     int
	Difficulty Difficulty
	CategoryID *int
	Type       QuestionType
}

// GameSession is the progression and scoring state of one quiz. It is not
// safe for concurrent use; callers serialise every call.
type GameSession struct {
	questions    []Question
	index        int
	amount       int
	score        float64
	combo        int
	difficulty   Difficulty
	category     *int
	questionType QuestionType
	gameOver     bool
}

func NewGameSession(opts GameOptions) *GameSession {
	amount := opts.Amount
	if amount < 0 {
		amount = 0
	}
	var category *int
	if opts.CategoryID != nil {
		id := *opts.CategoryID
		category = &id
	}
	return &GameSession{
		amount:       amount,
		difficulty:   opts.Difficulty,
		category:     category,
		questionType: opts.Type,
	}
}

// ScoreDelta is the unmultiplied score change for an answer to a question
// of difficulty d.
func ScoreDelta(d Difficulty, correct bool) float64 {
	switch d {
	case DifficultyEasy:
		if correct {
			return 5
		}
		return -5
	case DifficultyMedium:
		if correct {
			return 10
		}
		return -2.5
	case DifficultyHard:
		if correct {
			return 20
		}
		return -0.75
	default:
		return 0
	}
}

// Ingest replaces the question list when nothing has been loaded yet and
// appends otherwise. The cursor is left untouched.
func (s *GameSession) Ingest(questions []Question) {
	if s.index == 0 && len(s.questions) == 0 {
		s.questions = append([]Question(nil), questions...)
		return
	}
	s.questions = append(s.questions, questions...)
}

// Current returns the question under the cursor, or ErrIndexOutOfRange when
// it has not been fetched yet.
func (s *GameSession) Current() (Question, error) {
	if s.index < 0 || s.index >= len(s.questions) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrIndexOutOfRange, s.index, len(s.questions))
	}
	return s.questions[s.index], nil
}

// Advance moves the cursor forward and ends a bounded game once the cursor
// reaches the question amount. Callers check GameOver first.
func (s *GameSession) Advance() {
	s.index++
	if s.amount != 0 && s.index >= s.amount {
		s.gameOver = true
	}
}

// RecordAnswer scores an answer to the current question. The delta is
// multiplied by the combo as it was before this answer; a correct answer then
// extends the combo and a wrong one breaks it. Panics without a current question.
func (s *GameSession) RecordAnswer(correct bool) float64 {
	q, err := s.Current()
	if err != nil {
		panic(fmt.Sprintf("domain: RecordAnswer without a current question: %v", err))
	}
	delta := ScoreDelta(q.Difficulty(), correct) * float64(max(s.combo, 1))
	if correct {
		s.combo++
	} else if s.combo > 0 {
		s.combo = 0
	}
	s.score += delta
	return delta
}

// SetQuestionIndex moves the cursor without bounds checks.
func (s *GameSession) SetQuestionIndex(i int) {
	s.index = i
}

// End forces the terminal state.
func (s *GameSession) End() {
	s.gameOver = true
}

func (s *GameSession) State() GameState {
	switch {
	case s.gameOver:
		return StateGameOver
	case len(s.questions) == 0:
		return StateNotStarted
	default:
		return StateInProgress
	}
}

func (s *GameSession) Score() float64 { return s.score }
func (s *GameSession) Combo() int { return s.combo }
func (s *GameSession) GameOver() bool { return s.gameOver }
func (s *GameSession) QuestionIndex() int { return s.index }
func (s *GameSession) QuestionAmount() int { return s.amount }
func (s *GameSession) Len() int { return len(s.questions) }
func (s *GameSession) Arcade() bool { return s.amount == 0 }
func (s *GameSession) Difficulty() Difficulty { return s.difficulty }
func (s *GameSession) QuestionType() QuestionType { return s.questionType }

func (s *GameSession) CategoryID() *int {
	if s.category == nil {
		return nil
	}
	id := *s.category
	return &id
}

// Missing is how many questions still have to be fetched for a bounded game
// to reach its amount, or 0 in arcade mode.
func (s *GameSession) Missing() int {
	if s.amount == 0 || len(s.questions) >= s.amount {
		return 0
	}
	return s.amount - len(s.questions)
}
