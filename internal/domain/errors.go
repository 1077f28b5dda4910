package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGameNotFound is returned when a game id is unknown or already ended.
	ErrGameNotFound = errors.New("game not found")
	// ErrIndexOutOfRange signals that more questions must be fetched before
	// the current question can be read.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrMalformedQuestion marks a question payload that cannot be parsed.
	ErrMalformedQuestion = errors.New("malformed trivia question")
	// ErrAlreadyAnswered is returned when an answer is picked twice.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrInvalidAnswer is returned for an answer that is not one of the choices.
	ErrInvalidAnswer = errors.New("answer is not one of the choices")
	// ErrGameOver is returned for moves attempted after the game ended.
	ErrGameOver = errors.New("game is over")
	// ErrNoPreviousQuestion is returned when going back from the first question.
	ErrNoPreviousQuestion = errors.New("no previous question")
	// ErrNoNextQuestion is returned when no further questions can be provided.
	ErrNoNextQuestion = errors.New("no next question")
	// ErrInvalidOption indicates a bad game filter or amount.
	ErrInvalidOption = errors.New("invalid game option")
	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("trivia api error")
)

// MalformedQuestionError describes which part of a question payload was unusable.
type MalformedQuestionError struct {
	Field  string
	Reason string
}

func (e *MalformedQuestionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed trivia question: %s", e.Reason)
	}
	return fmt.Sprintf("malformed trivia question: %s: %s", e.Field, e.Reason)
}

func (e *MalformedQuestionError) Is(target error) bool {
	return target == ErrMalformedQuestion
}

// UpstreamError is a failed call to the trivia API, either a non-zero
// response_code or a transport failure (Code == CodeTransport).
type UpstreamError struct {
	Endpoint string
	Code     int
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %s: %v", e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("request to %s failed: %s", e.Endpoint, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// TokenProblem reports whether recovering needs a new or reset session token
// rather than another question request.
func (e *UpstreamError) TokenProblem() bool {
	return e.Endpoint == EndpointToken || e.Code == CodeTokenNotFound || e.Code == CodeTokenEmpty
}
