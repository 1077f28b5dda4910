package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"trivia-game-service/internal/domain"
)

// ErrUnknownPayload is returned when a count payload has neither the global
// nor the per-category shape.
var ErrUnknownPayload = errors.New("unrecognized trivia payload")

// ParseQuestion converts one entry of a results array into a Question.
// Percent-encoded fields that fail to decode become empty strings.
func ParseQuestion(raw json.RawMessage) (domain.Question, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, &domain.MalformedQuestionError{Reason: "payload is not an object"}
	}

	kind, err := stringField(fields, "type")
	if err != nil {
		return nil, err
	}
	text, err := stringField(fields, "question")
	if err != nil {
		return nil, err
	}
	difficulty, err := stringField(fields, "difficulty")
	if err != nil {
		return nil, err
	}
	category, err := stringField(fields, "category")
	if err != nil {
		return nil, err
	}
	correct, err := stringField(fields, "correct_answer")
	if err != nil {
		return nil, err
	}

	switch decode(kind) {
	case "boolean":
		return domain.NewTrueFalseQuestion(
			decode(text),
			decode(category),
			domain.ParseDifficulty(decode(difficulty)),
			parseBool(decode(correct)),
		), nil
	case "multiple":
		incorrect, err := stringsField(fields, "incorrect_answers")
		if err != nil {
			return nil, err
		}
		for i := range incorrect {
			incorrect[i] = decode(incorrect[i])
		}
		return domain.NewMultipleChoiceQuestion(
			decode(text),
			decode(category),
			domain.ParseDifficulty(decode(difficulty)),
			decode(correct),
			incorrect,
		), nil
	default:
		return nil, &domain.MalformedQuestionError{Field: "type", Reason: fmt.Sprintf("unknown question type %q", kind)}
	}
}

// ParseQuestions parses a results batch, skipping malformed entries. The
// returned error joins the skipped entries' errors and is nil when every
// entry parsed.
func ParseQuestions(batch []json.RawMessage) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(batch))
	var errs []error
	for i, raw := range batch {
		q, err := ParseQuestion(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("result %d: %w", i, err))
			continue
		}
		questions = append(questions, q)
	}
	return questions, errors.Join(errs...)
}

// StoredQuestionOf validates a results entry and indexes it for a local
// question bank under categoryID. The payload is kept as received.
func StoredQuestionOf(raw json.RawMessage, categoryID int) (domain.StoredQuestion, error) {
	q, err := ParseQuestion(raw)
	if err != nil {
		return domain.StoredQuestion{}, err
	}
	return domain.StoredQuestion{
		CategoryID: categoryID,
		Category:   q.Category(),
		Difficulty: q.Difficulty(),
		Type:       q.Type(),
		Payload:    append(json.RawMessage(nil), raw...),
	}, nil
}

// ParseCategoryList maps category ids to names. Missing ids become -1,
// missing names "Unknown"; a repeated id keeps the last name.
func ParseCategoryList(raw json.RawMessage) (map[int]string, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	categories := make(map[int]string, len(entries))
	for _, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			continue
		}
		name := "Unknown"
		if v, ok := fields["name"]; ok {
			var s string
			if json.Unmarshal(v, &s) == nil {
				name = s
			}
		}
		categories[intField(fields, "id")] = name
	}
	return categories, nil
}

// ParseQuestionCount reads a global or per-category count payload.
//
// Global payloads report the overall verified total; Filtered is the count of
// category when one is set and listed, otherwise the total. Category payloads
// report the category total; Filtered is the count for difficulty, or the
// total when no difficulty is set. Missing numbers are -1.
func ParseQuestionCount(body json.RawMessage, category *int, difficulty domain.Difficulty) (domain.QuestionCount, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.QuestionCount{}, fmt.Errorf("parse question count: %w", err)
	}

	switch {
	case env.Overall != nil:
		total := intField(objectOf(env.Overall), "total_num_of_verified_questions")
		count := domain.QuestionCount{Total: total, Filtered: total}
		if category != nil && *category != -1 && env.Categories != nil {
			perCategory := objectOf(env.Categories)
			count.Filtered = intField(objectOf(perCategory[strconv.Itoa(*category)]), "total_num_of_verified_questions")
		}
		return count, nil

	case env.CategoryID != nil:
		counts := objectOf(env.CategoryQuestionCount)
		total := intField(counts, "total_question_count")
		count := domain.QuestionCount{Total: total, Filtered: total}
		switch difficulty {
		case domain.DifficultyEasy:
			count.Filtered = intField(counts, "total_easy_question_count")
		case domain.DifficultyMedium:
			count.Filtered = intField(counts, "total_medium_question_count")
		case domain.DifficultyHard:
			count.Filtered = intField(counts, "total_hard_question_count")
		}
		return count, nil
	}
	return domain.QuestionCount{}, ErrUnknownPayload
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return "", &domain.MalformedQuestionError{Field: name, Reason: "missing"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &domain.MalformedQuestionError{Field: name, Reason: "not a string"}
	}
	return s, nil
}

func stringsField(fields map[string]json.RawMessage, name string) ([]string, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return nil, &domain.MalformedQuestionError{Field: name, Reason: "missing"}
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, &domain.MalformedQuestionError{Field: name, Reason: "not a list of strings"}
	}
	if len(values) == 0 {
		return nil, &domain.MalformedQuestionError{Field: name, Reason: "empty"}
	}
	return values, nil
}

func intField(fields map[string]json.RawMessage, name string) int {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return -1
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return -1
	}
	return n
}

func objectOf(raw json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		return nil
	}
	return fields
}

// decode undoes RFC 3986 percent-encoding; undecodable input yields "".
func decode(encoded string) string {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return ""
	}
	return decoded
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
