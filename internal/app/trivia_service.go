package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trivia-game-service/internal/catalog"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TriviaFetcher is the remote question source. Every call carries its own
// parameters and returns its own result.
type TriviaFetcher interface {
	FetchSessionToken(ctx context.Context) (string, error)
	ResetSessionToken(ctx context.Context, token string) (string, error)
	FetchQuestions(ctx context.Context, q domain.QuestionQuery) ([]json.RawMessage, error)
	FetchCategories(ctx context.Context) (json.RawMessage, error)
	FetchQuestionCount(ctx context.Context, categoryID *int) (json.RawMessage, error)
}

// TokenReleaser is implemented by fetchers that keep per-token state and can
// drop it once a game ends.
type TokenReleaser interface {
	ReleaseSessionToken(ctx context.Context, token string) error
}

// GameRepository abstracts where running games are kept (in-memory, Redis, etc).
type GameRepository interface {
	Put(game *Game)
	Get(id string) (*Game, bool)
	Delete(id string)
}

// CategoryRepository returns the category list, usually from a cache.
type CategoryRepository interface {
	GetCategories(ctx context.Context) (map[int]string, error)
}

// HighscoreBoard keeps the scores of finished named games.
type HighscoreBoard interface {
	Add(name string, score float64) domain.Highscore
	Top(n int) []domain.Highscore
	ByName(name string) []domain.Highscore
	LastAdded() (domain.Highscore, bool)
}

// CategoryLoaderFunc adapts a function to the loader interfaces of the
// category caches.
type CategoryLoaderFunc func(ctx context.Context) (map[int]string, error)

func (f CategoryLoaderFunc) LoadCategories(ctx context.Context) (map[int]string, error) {
	return f(ctx)
}

// CategoriesFrom loads and parses the category list of a fetcher.
func CategoriesFrom(fetcher TriviaFetcher) CategoryLoaderFunc {
	return func(ctx context.Context) (map[int]string, error) {
		raw, err := fetcher.FetchCategories(ctx)
		if err != nil {
			return nil, err
		}
		return catalog.ParseCategoryList(raw)
	}
}

type Option func(*TriviaService)

func WithLogger(log *logrus.Entry) Option {
	return func(s *TriviaService) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *TriviaService) { s.metrics = m }
}

func WithHighscores(board HighscoreBoard) Option {
	return func(s *TriviaService) { s.highscores = board }
}

// WithIDGenerator replaces the uuid game ids, for tests.
func WithIDGenerator(next func() string) Option {
	return func(s *TriviaService) { s.newID = next }
}

// WithMaxAmount caps the question amount of bounded games.
func WithMaxAmount(n int) Option {
	return func(s *TriviaService) { s.maxAmount = n }
}

// TriviaService contains the trivia game use cases.
type TriviaService struct {
	fetcher    TriviaFetcher
	games      GameRepository
	categories CategoryRepository
	highscores HighscoreBoard
	log        *logrus.Entry
	metrics    *metrics.Metrics
	newID      func() string
	maxAmount  int
}

func NewTriviaService(fetcher TriviaFetcher, games GameRepository, categories CategoryRepository, opts ...Option) *TriviaService {
	s := &TriviaService{
		fetcher:    fetcher,
		games:      games,
		categories: categories,
		log:        logrus.NewEntry(logrus.StandardLogger()),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "trivia_service")
	return s
}

// StartGame obtains a session token, loads the first batch of questions and
// registers the game. Nothing is registered when either fetch fails.
func (s *TriviaService) StartGame(ctx context.Context, player string, opts domain.GameOptions) (GameSnapshot, error) {
	if opts.Amount < 0 {
		return GameSnapshot{}, fmt.Errorf("%w: amount %d", domain.ErrInvalidOption, opts.Amount)
	}
	if s.maxAmount > 0 && opts.Amount > s.maxAmount {
		return GameSnapshot{}, fmt.Errorf("%w: amount %d exceeds %d", domain.ErrInvalidOption, opts.Amount, s.maxAmount)
	}

	game := NewGame(s.newID(), player, opts)
	game.mu.Lock()
	defer game.mu.Unlock()

	token, err := s.fetcher.FetchSessionToken(ctx)
	if err != nil {
		game.cancel()
		return GameSnapshot{}, err
	}
	game.request.Token = token

	first := domain.MaxQuestionsPerRequest
	if !game.session.Arcade() {
		first = min(opts.Amount, domain.MaxQuestionsPerRequest)
	}
	if err := s.fetchLocked(ctx, game, first); err != nil {
		game.cancel()
		return GameSnapshot{}, err
	}

	s.games.Put(game)
	s.metrics.GameStarted()
	s.log.WithFields(logrus.Fields{
		"game_id": game.id,
		"amount":  opts.Amount,
		"loaded":  game.session.Len(),
	}).Info("game started")
	return game.snapshotLocked(), nil
}

// CurrentQuestion returns the question under the cursor. When it has not
// been fetched yet and the game is not over, the missing questions are
// fetched once and the lookup retried.
func (s *TriviaService) CurrentQuestion(ctx context.Context, gameID string) (QuestionView, error) {
	game, err := s.lookup(gameID)
	if err != nil {
		return QuestionView{}, err
	}
	game.mu.Lock()
	defer game.mu.Unlock()

	q, err := game.session.Current()
	if errors.Is(err, domain.ErrIndexOutOfRange) {
		if game.session.GameOver() {
			return QuestionView{}, domain.ErrGameOver
		}
		amount := domain.MaxQuestionsPerRequest
		if !game.session.Arcade() {
			amount = game.session.Missing()
		}
		if amount <= 0 {
			return QuestionView{}, domain.ErrNoNextQuestion
		}
		if err := s.fetchLocked(ctx, game, amount); err != nil {
			return QuestionView{}, err
		}
		q, err = game.session.Current()
	}
	if err != nil {
		return QuestionView{}, fmt.Errorf("%w: %v", domain.ErrNoNextQuestion, err)
	}
	return game.viewLocked(q), nil
}

// Answer records answer for the current question and publishes the score.
func (s *TriviaService) Answer(_ context.Context, gameID, answer string) (AnswerResult, error) {
	game, err := s.lookup(gameID)
	if err != nil {
		return AnswerResult{}, err
	}
	game.mu.Lock()
	defer game.mu.Unlock()

	if game.session.GameOver() {
		return AnswerResult{}, domain.ErrGameOver
	}
	q, err := game.session.Current()
	if err != nil {
		return AnswerResult{}, err
	}
	correct, err := domain.Pick(q, answer)
	if err != nil {
		return AnswerResult{}, err
	}
	delta := game.session.RecordAnswer(correct)
	s.metrics.ObserveAnswer(q.Difficulty().String(), correct)

	game.broadcast(domain.ScoreUpdate{
		GameID:        game.id,
		QuestionIndex: game.session.QuestionIndex(),
		Correct:       correct,
		Delta:         delta,
		Score:         game.session.Score(),
		Combo:         game.session.Combo(),
		UpdatedAt:     game.now(),
	})

	amount := game.session.QuestionAmount()
	return AnswerResult{
		Correct:       correct,
		CorrectAnswer: q.CorrectAnswer(),
		Delta:         delta,
		Score:         game.session.Score(),
		Combo:         game.session.Combo(),
		LastQuestion:  amount != 0 && game.session.QuestionIndex() == amount-1,
	}, nil
}

// Next moves to the following question. Moving past the last question of a
// bounded game ends it and submits the score of a named player.
func (s *TriviaService) Next(_ context.Context, gameID string) (GameSnapshot, error) {
	game, err := s.lookup(gameID)
	if err != nil {
		return GameSnapshot{}, err
	}
	game.mu.Lock()
	defer game.mu.Unlock()

	if game.session.GameOver() {
		return GameSnapshot{}, domain.ErrGameOver
	}
	game.session.Advance()
	snapshot := game.snapshotLocked()
	if game.session.GameOver() {
		snapshot.Highscore = s.finishLocked(game)
	}
	return snapshot, nil
}

// Previous moves back one question.
func (s *TriviaService) Previous(_ context.Context, gameID string) (GameSnapshot, error) {
	game, err := s.lookup(gameID)
	if err != nil {
		return GameSnapshot{}, err
	}
	game.mu.Lock()
	defer game.mu.Unlock()

	index := game.session.QuestionIndex()
	if index <= 0 {
		return GameSnapshot{}, domain.ErrNoPreviousQuestion
	}
	game.session.SetQuestionIndex(index - 1)
	return game.snapshotLocked(), nil
}

// ResetToken resets the session token of a game so that questions already
// served can be served again. A game without a token gets a new one.
func (s *TriviaService) ResetToken(ctx context.Context, gameID string) (string, error) {
	game, err := s.lookup(gameID)
	if err != nil {
		return "", err
	}
	game.mu.Lock()
	defer game.mu.Unlock()

	fctx, cancel := game.fetchContext(ctx)
	defer cancel()

	var token string
	if game.request.HasToken() {
		token, err = s.fetcher.ResetSessionToken(fctx, game.request.Token)
	} else {
		token, err = s.fetcher.FetchSessionToken(fctx)
	}
	if err != nil {
		return "", err
	}
	if game.Ended() {
		return "", domain.ErrGameNotFound
	}
	game.request.Token = token
	s.log.WithField("game_id", game.id).Debug("session token reset")
	return token, nil
}

// EndGame forces the game over and removes it. A named player's score is
// submitted if it was not already, which is how arcade games are scored.
// In-flight fetches are canceled and the session token is released.
func (s *TriviaService) EndGame(ctx context.Context, gameID string) (GameSnapshot, error) {
	game, err := s.lookup(gameID)
	if err != nil {
		return GameSnapshot{}, err
	}
	game.cancel()
	s.games.Delete(gameID)

	game.mu.Lock()
	finished := game.session.GameOver()
	game.session.End()
	snapshot := game.snapshotLocked()
	snapshot.Highscore = s.finishLocked(game)
	token := game.request.Token
	game.mu.Unlock()

	game.closeSubscribers()
	if releaser, ok := s.fetcher.(TokenReleaser); ok && token != "" {
		if err := releaser.ReleaseSessionToken(ctx, token); err != nil {
			s.log.WithError(err).WithField("game_id", gameID).Warn("could not release session token")
		}
	}
	s.metrics.GameEnded(finished)
	s.log.WithFields(logrus.Fields{
		"game_id":  gameID,
		"score":    snapshot.Score,
		"finished": finished,
	}).Info("game ended")
	return snapshot, nil
}

// Snapshot returns the progress of a game.
func (s *TriviaService) Snapshot(gameID string) (GameSnapshot, error) {
	game, err := s.lookup(gameID)
	if err != nil {
		return GameSnapshot{}, err
	}
	game.mu.Lock()
	defer game.mu.Unlock()
	return game.snapshotLocked(), nil
}

// Subscribe returns a channel that receives the score updates of a game.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *TriviaService) Subscribe(_ context.Context, gameID string) (<-chan domain.ScoreUpdate, func(), error) {
	game, err := s.lookup(gameID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := game.subscribe()
	return ch, cancel, nil
}

// Categories returns the category id to name map.
func (s *TriviaService) Categories(ctx context.Context) (map[int]string, error) {
	return s.categories.GetCategories(ctx)
}

// QuestionCount returns the number of questions for a category, or the global
// count when categoryID is nil or -1.
func (s *TriviaService) QuestionCount(ctx context.Context, categoryID *int, difficulty domain.Difficulty) (domain.QuestionCount, error) {
	raw, err := s.fetcher.FetchQuestionCount(ctx, categoryID)
	if err != nil {
		return domain.QuestionCount{}, err
	}
	return catalog.ParseQuestionCount(raw, categoryID, difficulty)
}

// Highscores returns the best n scores; n <= 0 returns all of them.
func (s *TriviaService) Highscores(n int) []domain.Highscore {
	if s.highscores == nil {
		return nil
	}
	return s.highscores.Top(n)
}

// HighscoresOf returns every score of player, best first.
func (s *TriviaService) HighscoresOf(player string) []domain.Highscore {
	if s.highscores == nil {
		return nil
	}
	return s.highscores.ByName(player)
}

// LastHighscore returns the most recently submitted score.
func (s *TriviaService) LastHighscore() (domain.Highscore, bool) {
	if s.highscores == nil {
		return domain.Highscore{}, false
	}
	return s.highscores.LastAdded()
}

func (s *TriviaService) lookup(gameID string) (*Game, error) {
	game, ok := s.games.Get(gameID)
	if !ok || game.Ended() {
		return nil, domain.ErrGameNotFound
	}
	return game, nil
}

// fetchLocked requests amount questions with the game's parameters and
// ingests the ones that parse. Must be called with game.mu held.
func (s *TriviaService) fetchLocked(ctx context.Context, game *Game, amount int) error {
	fctx, cancel := game.fetchContext(ctx)
	defer cancel()

	raw, err := s.fetcher.FetchQuestions(fctx, game.request.Query(amount))
	if err != nil {
		return err
	}
	if game.Ended() {
		return domain.ErrGameNotFound
	}

	questions, skipped := catalog.ParseQuestions(raw)
	if skipped != nil {
		s.log.WithError(skipped).WithField("game_id", game.id).Warn("skipped malformed questions")
	}
	if len(questions) == 0 {
		return &domain.UpstreamError{
			Endpoint: domain.EndpointQuestions,
			Code:     domain.CodeNoResults,
			Message:  "no usable questions",
		}
	}
	game.session.Ingest(questions)
	return nil
}

// finishLocked publishes the final score once and submits it to the
// highscore board when the player is named.
func (s *TriviaService) finishLocked(game *Game) *domain.Highscore {
	if game.finished {
		return nil
	}
	game.finished = true
	game.broadcast(domain.ScoreUpdate{
		GameID:        game.id,
		QuestionIndex: game.session.QuestionIndex(),
		Score:         game.session.Score(),
		Combo:         game.session.Combo(),
		GameOver:      true,
		UpdatedAt:     game.now(),
	})
	if game.player == "" || s.highscores == nil {
		return nil
	}

	entry := s.highscores.Add(game.player, game.session.Score())
	s.log.WithFields(logrus.Fields{
		"game_id":  game.id,
		"player":   game.player,
		"score":    entry.Score,
		"position": entry.Position,
	}).Info("highscore submitted")
	return &entry
}
