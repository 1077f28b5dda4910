package domain

import (
	"encoding/json"
	"time"
)

// Trivia API endpoints, relative to the API root.
const (
	EndpointToken         = "api_token.php"
	EndpointQuestions     = "api.php"
	EndpointCategories    = "api_category.php"
	EndpointCategoryCount = "api_count.php"
	EndpointGlobalCount   = "api_count_global.php"
)

// Upstream response codes. CodeTransport is local: the request never
// produced a decodable response.
const (
	CodeTransport        = -1
	CodeSuccess          = 0
	CodeNoResults        = 1
	CodeInvalidParameter = 2
	CodeTokenNotFound    = 3
	CodeTokenEmpty       = 4
)

// MaxQuestionsPerRequest is the upstream cap on the amount parameter.
const MaxQuestionsPerRequest = 50

// QuestionQuery is the parameter set of one question fetch.
type QuestionQuery struct {
	Amount     int
	Token      string
	Difficulty Difficulty
	CategoryID *int
	Type       QuestionType
}

// RequestSession holds the session token and filters attached to every
// question fetch of one game.
type RequestSession struct {
	Token      string
	CategoryID *int
	Difficulty Difficulty
	Type       QuestionType
}

func (r RequestSession) HasToken() bool {
	return r.Token != ""
}

// Query builds the fetch parameters for amount questions. The amount is
// clamped to 1..MaxQuestionsPerRequest and non-positive categories are dropped.
func (r RequestSession) Query(amount int) QuestionQuery {
	if amount > MaxQuestionsPerRequest {
		amount = MaxQuestionsPerRequest
	}
	if amount < 1 {
		amount = 1
	}
	q := QuestionQuery{
		Amount:     amount,
		Token:      r.Token,
		Difficulty: r.Difficulty,
		Type:       r.Type,
	}
	if r.CategoryID != nil && *r.CategoryID > 0 {
		id := *r.CategoryID
		q.CategoryID = &id
	}
	return q
}

// QuestionCount is the result of a count request. -1 means the value could
// not be retrieved.
type QuestionCount struct {
	Total    int `json:"total"`
	Filtered int `json:"filtered"`
}

// ScoreUpdate is emitted to game subscribers after every recorded answer.
type ScoreUpdate struct {
	GameID        string    `json:"gameId"`
	QuestionIndex int       `json:"questionIndex"`
	Correct       bool      `json:"correct"`
	Delta         float64   `json:"delta"`
	Score         float64   `json:"score"`
	Combo         int       `json:"combo"`
	GameOver      bool      `json:"gameOver"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Highscore is one entry of the in-memory highscore board.
type Highscore struct {
	Name     string    `json:"name"`
	Score    float64   `json:"score"`
	Position int       `json:"position"`
	At       time.Time `json:"at"`
}

// StoredQuestion is a raw question payload kept in a local question bank,
// indexed by the attributes the trivia API filters on.
type StoredQuestion struct {
	ID         int64           `json:"id"`
	CategoryID int             `json:"categoryId"`
	Category   string          `json:"category"`
	Difficulty Difficulty      `json:"difficulty"`
	Type       QuestionType    `json:"type"`
	Payload    json.RawMessage `json:"payload"`
}
