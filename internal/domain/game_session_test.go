package domain_test

import (
	"errors"
	"testing"

	"trivia-game-service/internal/domain"
)

func TestScoreDeltaTable(t *testing.T) {
	cases := []struct {
		difficulty domain.Difficulty
		correct    bool
		want       float64
	}{
		{domain.DifficultyEasy, true, 5},
		{domain.DifficultyEasy, false, -5},
		{domain.DifficultyMedium, true, 10},
		{domain.DifficultyMedium, false, -2.5},
		{domain.DifficultyHard, true, 20},
		{domain.DifficultyHard, false, -0.75},
		{domain.DifficultyUnknown, true, 0},
		{domain.DifficultyUnknown, false, 0},
	}
	for _, tc := range cases {
		if got := domain.ScoreDelta(tc.difficulty, tc.correct); got != tc.want {
			t.Fatalf("ScoreDelta(%s, %v) = %v, want %v", tc.difficulty, tc.correct, got, tc.want)
		}
	}
}

func TestComboMultipliesBeforeUpdate(t *testing.T) {
	session := newSession(0, easyQuestions(3)...)

	wantDeltas := []float64{5, 5, 10}
	wantCombos := []int{1, 2, 3}
	for i := range wantDeltas {
		delta := session.RecordAnswer(true)
		if delta != wantDeltas[i] {
			t.Fatalf("answer %d: expected delta %v, got %v", i, wantDeltas[i], delta)
		}
		if session.Combo() != wantCombos[i] {
			t.Fatalf("answer %d: expected combo %d, got %d", i, wantCombos[i], session.Combo())
		}
		session.Advance()
	}
	if session.Score() != 20 {
		t.Fatalf("expected score 20, got %v", session.Score())
	}
}

func TestWrongAnswerBreaksComboAndIsMultiplied(t *testing.T) {
	session := newSession(0, easyQuestions(4)...)

	session.RecordAnswer(true)
	session.Advance()
	session.RecordAnswer(true)
	session.Advance()
	session.RecordAnswer(true)
	session.Advance()
	if session.Combo() != 3 {
		t.Fatalf("expected combo 3, got %d", session.Combo())
	}

	delta := session.RecordAnswer(false)
	if delta != -15 {
		t.Fatalf("expected punishment -5 x 3, got %v", delta)
	}
	if session.Combo() != 0 {
		t.Fatalf("expected combo reset, got %d", session.Combo())
	}
	if session.Score() != 5 {
		t.Fatalf("expected score 5, got %v", session.Score())
	}
}

func TestScoreMayGoNegative(t *testing.T) {
	session := newSession(0,
		domain.NewTrueFalseQuestion("q1", "c", domain.DifficultyHard, true),
		domain.NewTrueFalseQuestion("q2", "c", domain.DifficultyMedium, true),
	)
	session.RecordAnswer(false)
	session.Advance()
	session.RecordAnswer(false)
	if session.Score() != -3.25 {
		t.Fatalf("expected -3.25, got %v", session.Score())
	}
	if session.Combo() != 0 {
		t.Fatalf("expected combo 0, got %d", session.Combo())
	}
}

func TestAdvanceEndsBoundedGame(t *testing.T) {
	session := newSession(2, easyQuestions(2)...)
	session.Advance()
	if session.GameOver() {
		t.Fatalf("game ended one question early")
	}
	session.Advance()
	if !session.GameOver() {
		t.Fatalf("expected game over after the last question")
	}
	if session.State() != domain.StateGameOver {
		t.Fatalf("expected state game_over, got %s", session.State())
	}

	session.SetQuestionIndex(0)
	if !session.GameOver() {
		t.Fatalf("game over must not revert")
	}
}

func TestArcadeNeverEnds(t *testing.T) {
	session := newSession(0, easyQuestions(1)...)
	for i := 0; i < 500; i++ {
		session.Advance()
	}
	if session.GameOver() {
		t.Fatalf("arcade game ended by advancing")
	}
	if session.QuestionIndex() != 500 {
		t.Fatalf("expected index 500, got %d", session.QuestionIndex())
	}
}

func TestIngestReplacesThenAppends(t *testing.T) {
	session := domain.NewGameSession(domain.GameOptions{Amount: 0})
	if session.State() != domain.StateNotStarted {
		t.Fatalf("expected not_started, got %s", session.State())
	}

	session.Ingest(easyQuestions(3))
	if session.Len() != 3 {
		t.Fatalf("expected 3 questions, got %d", session.Len())
	}

	session.Advance()
	session.Ingest(easyQuestions(2))
	if session.Len() != 5 {
		t.Fatalf("expected append to 5 questions, got %d", session.Len())
	}
	if session.QuestionIndex() != 1 {
		t.Fatalf("ingest moved the cursor to %d", session.QuestionIndex())
	}
}

func TestIngestAtIndexZeroWithQuestionsAppends(t *testing.T) {
	session := newSession(0, easyQuestions(2)...)
	session.Ingest(easyQuestions(2))
	if session.Len() != 4 {
		t.Fatalf("expected 4 questions, got %d", session.Len())
	}
}

func TestCurrentOutOfRange(t *testing.T) {
	session := domain.NewGameSession(domain.GameOptions{Amount: 10})
	if _, err := session.Current(); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}

	questions := easyQuestions(1)
	session.Ingest(questions)
	q, err := session.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if q != questions[0] {
		t.Fatalf("expected first question")
	}

	session.Advance()
	if _, err := session.Current(); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange after advancing past fetched questions, got %v", err)
	}
	if session.Missing() != 9 {
		t.Fatalf("expected 9 missing questions, got %d", session.Missing())
	}
}

func TestRecordAnswerWithoutQuestionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	domain.NewGameSession(domain.GameOptions{}).RecordAnswer(true)
}

func TestTenQuestionGame(t *testing.T) {
	questions := easyQuestions(10)
	session := newSession(10, questions...)

	q, err := session.Current()
	if err != nil || q != questions[0] {
		t.Fatalf("expected questions[0], got %v (%v)", q, err)
	}
	for i := 0; i < 9; i++ {
		session.Advance()
	}
	if session.QuestionIndex() != 9 || session.GameOver() {
		t.Fatalf("expected index 9 and running game, got %d gameOver=%v", session.QuestionIndex(), session.GameOver())
	}
	session.Advance()
	if !session.GameOver() {
		t.Fatalf("expected game over")
	}
}

func newSession(amount int, questions ...domain.Question) *domain.GameSession {
	session := domain.NewGameSession(domain.GameOptions{Amount: amount})
	session.Ingest(questions)
	return session
}

func easyQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.NewMultipleChoiceQuestion(
			"question", "General Knowledge", domain.DifficultyEasy, "right", []string{"wrong"},
		))
	}
	return questions
}
