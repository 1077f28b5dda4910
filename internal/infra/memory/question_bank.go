package memory

import (
	"context"

	"trivia-game-service/internal/domain"
)

// StaticQuestionBank is a question bank backed by a slice (useful for tests/demos).
type StaticQuestionBank struct {
	questions []domain.StoredQuestion
}

func NewStaticQuestionBank(questions []domain.StoredQuestion) *StaticQuestionBank {
	return &StaticQuestionBank{questions: append([]domain.StoredQuestion(nil), questions...)}
}

func (b *StaticQuestionBank) LoadQuestions(_ context.Context) ([]domain.StoredQuestion, error) {
	return append([]domain.StoredQuestion(nil), b.questions...), nil
}
