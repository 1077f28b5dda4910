// Package offline serves trivia questions from a local question bank with
// the same contract as the Open Trivia DB, so games can run without network
// access.
package offline

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"trivia-game-service/internal/catalog"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// QuestionBank returns every stored question.
type QuestionBank interface {
	LoadQuestions(ctx context.Context) ([]domain.StoredQuestion, error)
}

// DefaultTokenIdleTTL matches how long the public API keeps an unused token.
const DefaultTokenIdleTTL = 6 * time.Hour

// Fetcher answers token, question, category and count requests from a
// QuestionBank. Each token remembers the questions it has been served until
// it is released or left idle for longer than the idle TTL.
type Fetcher struct {
	bank     QuestionBank
	log      *logrus.Entry
	metrics  *metrics.Metrics
	newToken func() string
	now      func() time.Time
	idleTTL  time.Duration

	mu     sync.Mutex
	rnd    *rand.Rand
	tokens map[string]*tokenState
}

type tokenState struct {
	served   map[int64]struct{}
	lastUsed time.Time
}

type Option func(*Fetcher)

func WithLogger(log *logrus.Entry) Option {
	return func(f *Fetcher) { f.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithTokenIdleTTL sets how long an unused token is kept.
func WithTokenIdleTTL(ttl time.Duration) Option {
	return func(f *Fetcher) { f.idleTTL = ttl }
}

// WithRand fixes the question order, for tests.
func WithRand(rnd *rand.Rand) Option {
	return func(f *Fetcher) { f.rnd = rnd }
}

func NewFetcher(bank QuestionBank, opts ...Option) *Fetcher {
	f := &Fetcher{
		bank:     bank,
		log:      logrus.NewEntry(logrus.StandardLogger()),
		newToken: uuid.NewString,
		now:      time.Now,
		idleTTL:  DefaultTokenIdleTTL,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		tokens:   make(map[string]*tokenState),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.WithField("component", "offline_fetcher")
	return f
}

func (f *Fetcher) FetchSessionToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", f.fail(domain.EndpointToken, domain.CodeTransport, err)
	}
	token := f.newToken()
	f.mu.Lock()
	now := f.now()
	f.pruneLocked(now)
	f.tokens[token] = &tokenState{served: make(map[int64]struct{}), lastUsed: now}
	f.mu.Unlock()
	f.metrics.ObserveUpstream(domain.EndpointToken, "ok")
	return token, nil
}

// ResetSessionToken forgets what token has been served and returns it.
func (f *Fetcher) ResetSessionToken(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", f.fail(domain.EndpointToken, domain.CodeTransport, err)
	}
	f.mu.Lock()
	state, ok := f.liveLocked(token)
	if ok {
		state.served = make(map[int64]struct{})
	}
	f.mu.Unlock()
	if !ok {
		return "", f.fail(domain.EndpointToken, domain.CodeTokenNotFound, nil)
	}
	f.metrics.ObserveUpstream(domain.EndpointToken, "ok")
	return token, nil
}

// ReleaseSessionToken forgets token. Unknown tokens are ignored.
func (f *Fetcher) ReleaseSessionToken(_ context.Context, token string) error {
	f.mu.Lock()
	delete(f.tokens, token)
	f.mu.Unlock()
	return nil
}

// liveLocked returns the state of token and marks it used. An idle token is
// dropped and reported as unknown.
func (f *Fetcher) liveLocked(token string) (*tokenState, bool) {
	state, ok := f.tokens[token]
	if !ok {
		return nil, false
	}
	now := f.now()
	if f.idleTTL > 0 && now.Sub(state.lastUsed) > f.idleTTL {
		delete(f.tokens, token)
		return nil, false
	}
	state.lastUsed = now
	return state, true
}

func (f *Fetcher) pruneLocked(now time.Time) {
	if f.idleTTL <= 0 {
		return
	}
	for token, state := range f.tokens {
		if now.Sub(state.lastUsed) > f.idleTTL {
			delete(f.tokens, token)
		}
	}
}

// FetchQuestions returns up to q.Amount matching questions the token has not
// been served yet, as results entries in RFC 3986 encoding.
func (f *Fetcher) FetchQuestions(ctx context.Context, q domain.QuestionQuery) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, f.fail(domain.EndpointQuestions, domain.CodeTransport, err)
	}
	if q.Amount < 1 || q.Amount > domain.MaxQuestionsPerRequest {
		return nil, f.fail(domain.EndpointQuestions, domain.CodeInvalidParameter, nil)
	}
	stored, err := f.bank.LoadQuestions(ctx)
	if err != nil {
		return nil, f.fail(domain.EndpointQuestions, domain.CodeTransport, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var served map[int64]struct{}
	if q.Token != "" {
		state, ok := f.liveLocked(q.Token)
		if !ok {
			return nil, f.fail(domain.EndpointQuestions, domain.CodeTokenNotFound, nil)
		}
		served = state.served
	}

	matching := 0
	var available []domain.StoredQuestion
	for _, sq := range stored {
		if !matches(sq, q) {
			continue
		}
		matching++
		if _, seen := served[sq.ID]; !seen {
			available = append(available, sq)
		}
	}
	switch {
	case matching == 0:
		return nil, f.fail(domain.EndpointQuestions, domain.CodeNoResults, nil)
	case len(available) == 0:
		return nil, f.fail(domain.EndpointQuestions, domain.CodeTokenEmpty, nil)
	}

	f.rnd.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})
	if len(available) > q.Amount {
		available = available[:q.Amount]
	}

	results := make([]json.RawMessage, 0, len(available))
	for _, sq := range available {
		results = append(results, sq.Payload)
		if served != nil {
			served[sq.ID] = struct{}{}
		}
	}
	f.metrics.ObserveUpstream(domain.EndpointQuestions, "ok")
	f.log.WithFields(logrus.Fields{"requested": q.Amount, "served": len(results)}).Debug("questions served")
	return results, nil
}

type categoryEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// FetchCategories returns the categories of the bank as a trivia_categories
// array, ordered by id.
func (f *Fetcher) FetchCategories(ctx context.Context) (json.RawMessage, error) {
	stored, err := f.bank.LoadQuestions(ctx)
	if err != nil {
		return nil, f.fail(domain.EndpointCategories, domain.CodeTransport, err)
	}
	names := make(map[int]string)
	for _, sq := range stored {
		names[sq.CategoryID] = sq.Category
	}
	entries := make([]categoryEntry, 0, len(names))
	for id, name := range names {
		entries = append(entries, categoryEntry{ID: id, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, f.fail(domain.EndpointCategories, domain.CodeTransport, err)
	}
	f.metrics.ObserveUpstream(domain.EndpointCategories, "ok")
	return raw, nil
}

type globalCount struct {
	Total    int `json:"total_num_of_questions"`
	Verified int `json:"total_num_of_verified_questions"`
}

type categoryCount struct {
	Total  int `json:"total_question_count"`
	Easy   int `json:"total_easy_question_count"`
	Medium int `json:"total_medium_question_count"`
	Hard   int `json:"total_hard_question_count"`
}

// FetchQuestionCount returns a global count payload when categoryID is nil or
// -1 and a per-category payload otherwise.
func (f *Fetcher) FetchQuestionCount(ctx context.Context, categoryID *int) (json.RawMessage, error) {
	endpoint := domain.EndpointGlobalCount
	if categoryID != nil && *categoryID != -1 {
		endpoint = domain.EndpointCategoryCount
	}
	stored, err := f.bank.LoadQuestions(ctx)
	if err != nil {
		return nil, f.fail(endpoint, domain.CodeTransport, err)
	}

	var payload any
	if endpoint == domain.EndpointGlobalCount {
		perCategory := make(map[string]globalCount)
		for _, sq := range stored {
			key := strconv.Itoa(sq.CategoryID)
			c := perCategory[key]
			c.Total++
			c.Verified++
			perCategory[key] = c
		}
		payload = struct {
			Overall    globalCount            `json:"overall"`
			Categories map[string]globalCount `json:"categories"`
		}{
			Overall:    globalCount{Total: len(stored), Verified: len(stored)},
			Categories: perCategory,
		}
	} else {
		var c categoryCount
		for _, sq := range stored {
			if sq.CategoryID != *categoryID {
				continue
			}
			c.Total++
			switch sq.Difficulty {
			case domain.DifficultyEasy:
				c.Easy++
			case domain.DifficultyMedium:
				c.Medium++
			case domain.DifficultyHard:
				c.Hard++
			}
		}
		payload = struct {
			CategoryID int           `json:"category_id"`
			Count      categoryCount `json:"category_question_count"`
		}{CategoryID: *categoryID, Count: c}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, f.fail(endpoint, domain.CodeTransport, err)
	}
	f.metrics.ObserveUpstream(endpoint, "ok")
	return raw, nil
}

func matches(sq domain.StoredQuestion, q domain.QuestionQuery) bool {
	if q.Difficulty != domain.DifficultyAny && sq.Difficulty != q.Difficulty {
		return false
	}
	if q.Type != domain.TypeAny && sq.Type != q.Type {
		return false
	}
	if q.CategoryID != nil && *q.CategoryID > 0 && sq.CategoryID != *q.CategoryID {
		return false
	}
	return true
}

func (f *Fetcher) fail(endpoint string, code int, cause error) error {
	err := &domain.UpstreamError{Endpoint: endpoint, Code: code, Err: cause}
	outcome := "transport_error"
	if code > 0 {
		err.Message = catalog.ResponseMessage(code)
		outcome = "code_" + strconv.Itoa(code)
	} else {
		err.Message = "question bank unavailable"
	}
	f.metrics.ObserveUpstream(endpoint, outcome)
	f.log.WithFields(logrus.Fields{"endpoint": endpoint, "code": code}).Warnf("offline request failed: %s", err.Message)
	return err
}
