package domain_test

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"trivia-game-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultipleChoiceAnswers(t *testing.T) {
	q := domain.NewMultipleChoiceQuestion("Is this working?", "Science", domain.DifficultyEasy,
		"yes", []string{"no", "not really", "maybe"})

	answers := q.Answers()
	require.Len(t, answers, 4)
	assert.Equal(t, "yes", answers[0])
	assert.ElementsMatch(t, []string{"yes", "no", "not really", "maybe"}, answers)

	shuffled := domain.ShuffledAnswers(q, rand.New(rand.NewSource(7)))
	sort.Strings(shuffled)
	sort.Strings(answers)
	assert.Equal(t, answers, shuffled)
	assert.Equal(t, domain.TypeMultiple, q.Type())
}

func TestTrueFalseAnswers(t *testing.T) {
	for _, correct := range []bool{true, false} {
		q := domain.NewTrueFalseQuestion("The sky is blue", "Science", domain.DifficultyMedium, correct)
		assert.ElementsMatch(t, []string{"true", "false"}, q.Answers())
		assert.True(t, domain.CheckAnswer(q, q.CorrectAnswer()))
		assert.Equal(t, domain.TypeBoolean, q.Type())
	}
}

func TestCheckAnswer(t *testing.T) {
	mc := domain.NewMultipleChoiceQuestion("q", "c", domain.DifficultyHard, "Paris", []string{"Lyon"})
	assert.True(t, domain.CheckAnswer(mc, "Paris"))
	assert.False(t, domain.CheckAnswer(mc, "Lyon"))
	assert.False(t, domain.CheckAnswer(mc, "paris"))

	tf := domain.NewTrueFalseQuestion("q", "c", domain.DifficultyHard, false)
	assert.True(t, domain.CheckAnswer(tf, "False"))
	assert.False(t, domain.CheckAnswer(tf, "true"))
	assert.False(t, domain.CheckAnswer(tf, "maybe"))
}

func TestPickAnswersOnce(t *testing.T) {
	q := domain.NewMultipleChoiceQuestion("q", "c", domain.DifficultyEasy, "a", []string{"b", "c"})
	assert.False(t, q.Answered())

	_, err := domain.Pick(q, "z")
	require.True(t, errors.Is(err, domain.ErrInvalidAnswer))
	assert.False(t, q.Answered(), "an invalid answer must not mark the question")

	correct, err := domain.Pick(q, "b")
	require.NoError(t, err)
	assert.False(t, correct)

	picked, ok := q.PickedAnswer()
	assert.True(t, ok)
	assert.Equal(t, "b", picked)

	_, err = domain.Pick(q, "a")
	assert.ErrorIs(t, err, domain.ErrAlreadyAnswered)
	picked, _ = q.PickedAnswer()
	assert.Equal(t, "b", picked)
}

func TestParseFilters(t *testing.T) {
	d, err := domain.ParseDifficultyFilter("")
	require.NoError(t, err)
	assert.Equal(t, domain.DifficultyAny, d)

	d, err = domain.ParseDifficultyFilter("Hard")
	require.NoError(t, err)
	assert.Equal(t, domain.DifficultyHard, d)

	_, err = domain.ParseDifficultyFilter("impossible")
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	assert.Equal(t, domain.DifficultyUnknown, domain.ParseDifficulty("impossible"))

	typ, err := domain.ParseQuestionType("boolean")
	require.NoError(t, err)
	assert.Equal(t, domain.TypeBoolean, typ)
	_, err = domain.ParseQuestionType("essay")
	assert.ErrorIs(t, err, domain.ErrInvalidOption)
}

func TestRequestSessionQuery(t *testing.T) {
	zero := 0
	nine := 9
	session := domain.RequestSession{Token: "tok", CategoryID: &zero, Difficulty: domain.DifficultyEasy}

	q := session.Query(80)
	assert.Equal(t, domain.MaxQuestionsPerRequest, q.Amount)
	assert.Equal(t, "tok", q.Token)
	assert.Nil(t, q.CategoryID)

	session.CategoryID = &nine
	q = session.Query(10)
	require.NotNil(t, q.CategoryID)
	assert.Equal(t, 9, *q.CategoryID)
	assert.Equal(t, 10, q.Amount)
}

func TestUpstreamErrorMatching(t *testing.T) {
	var err error = &domain.UpstreamError{Endpoint: domain.EndpointQuestions, Code: domain.CodeTokenEmpty, Message: "no remaining questions"}
	assert.ErrorIs(t, err, domain.ErrUpstream)

	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.True(t, upstream.TokenProblem())
	assert.Contains(t, err.Error(), domain.EndpointQuestions)
}
