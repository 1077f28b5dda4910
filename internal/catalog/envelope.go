package catalog

import (
	"encoding/json"
	"fmt"

	"trivia-game-service/internal/domain"
)

// Envelope is a decoded trivia API response. Only the fields relevant to the
// endpoint that was called are populated.
type Envelope struct {
	ResponseCode          *int              `json:"response_code"`
	ResponseMessage       *string           `json:"response_message"`
	Token                 *string           `json:"token"`
	Results               []json.RawMessage `json:"results"`
	TriviaCategories      json.RawMessage   `json:"trivia_categories"`
	Overall               json.RawMessage   `json:"overall"`
	Categories            json.RawMessage   `json:"categories"`
	CategoryID            *int              `json:"category_id"`
	CategoryQuestionCount json.RawMessage   `json:"category_question_count"`
}

// FreshToken reports whether a token envelope answers a token request rather
// than a reset; only fresh tokens carry a response_message.
func (e Envelope) FreshToken() bool {
	return e.ResponseMessage != nil
}

var responseMessages = map[int]string{
	domain.CodeNoResults:        "no results",
	domain.CodeInvalidParameter: "contained an invalid parameter",
	domain.CodeTokenNotFound:    "token not found",
	domain.CodeTokenEmpty:       "no remaining questions",
}

// ResponseMessage returns the description of a non-zero response code.
func ResponseMessage(code int) string {
	if msg, ok := responseMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("unexpected response code %d", code)
}

// DecodeEnvelope decodes body and converts a non-zero response_code into an
// *domain.UpstreamError for endpoint. Category and count endpoints do not
// send a response code.
func DecodeEnvelope(endpoint string, body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, &domain.UpstreamError{
			Endpoint: endpoint,
			Code:     domain.CodeTransport,
			Message:  "could not parse response",
			Err:      err,
		}
	}
	if env.ResponseCode != nil && *env.ResponseCode != domain.CodeSuccess {
		return env, &domain.UpstreamError{
			Endpoint: endpoint,
			Code:     *env.ResponseCode,
			Message:  ResponseMessage(*env.ResponseCode),
		}
	}
	return env, nil
}
