package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-game-service/internal/domain"
)

// Game is one running trivia game: the session state machine, the request
// parameters of its fetches and the subscribers of its score stream.
type Game struct {
	id        string
	player    string
	createdAt time.Time
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// mu serialises every operation on the game, fetches included.
	mu       sync.Mutex
	session  *domain.GameSession
	request  domain.RequestSession
	rnd      *rand.Rand
	finished bool

	subMu       sync.Mutex
	subscribers map[chan domain.ScoreUpdate]struct{}
}

// NewGame is exported for infrastructure layers that need to seed games.
func NewGame(id, player string, opts domain.GameOptions) *Game {
	return newGameWithClock(id, player, opts, time.Now)
}

// NewGameWithClock uses now for timestamps instead of the wall clock.
func NewGameWithClock(id, player string, opts domain.GameOptions, now func() time.Time) *Game {
	return newGameWithClock(id, player, opts, now)
}

func newGameWithClock(id, player string, opts domain.GameOptions, now func() time.Time) *Game {
	ctx, cancel := context.WithCancel(context.Background())
	created := now()
	return &Game{
		id:        id,
		player:    player,
		createdAt: created,
		now:       now,
		ctx:       ctx,
		cancel:    cancel,
		session:   domain.NewGameSession(opts),
		request: domain.RequestSession{
			CategoryID: opts.CategoryID,
			Difficulty: opts.Difficulty,
			Type:       opts.Type,
		},
		rnd:         rand.New(rand.NewSource(created.UnixNano())),
		subscribers: make(map[chan domain.ScoreUpdate]struct{}),
	}
}

func (g *Game) ID() string { return g.id }
func (g *Game) Player() string { return g.player }
func (g *Game) CreatedAt() time.Time { return g.createdAt }

// Ended reports whether the game has been removed from play.
func (g *Game) Ended() bool {
	return g.ctx.Err() != nil
}

// fetchContext derives a context for one fetch that is canceled when either
// parent is done or the game ends.
func (g *Game) fetchContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(g.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (g *Game) snapshotLocked() GameSnapshot {
	return GameSnapshot{
		ID:            g.id,
		Player:        g.player,
		State:         g.session.State(),
		QuestionIndex: g.session.QuestionIndex(),
		Amount:        g.session.QuestionAmount(),
		Loaded:        g.session.Len(),
		Score:         g.session.Score(),
		Combo:         g.session.Combo(),
		GameOver:      g.session.GameOver(),
		Difficulty:    g.session.Difficulty(),
		Type:          g.session.QuestionType(),
		CategoryID:    g.session.CategoryID(),
	}
}

func (g *Game) viewLocked(q domain.Question) QuestionView {
	picked, answered := q.PickedAnswer()
	return QuestionView{
		Index:      g.session.QuestionIndex(),
		Amount:     g.session.QuestionAmount(),
		Text:       q.Text(),
		Category:   q.Category(),
		Difficulty: q.Difficulty(),
		Type:       q.Type(),
		Answers:    domain.ShuffledAnswers(q, g.rnd),
		Answered:   answered,
		Picked:     picked,
	}
}

func (g *Game) subscribe() (<-chan domain.ScoreUpdate, func()) {
	ch := make(chan domain.ScoreUpdate, 8)

	g.mu.Lock()
	initial := domain.ScoreUpdate{
		GameID:        g.id,
		QuestionIndex: g.session.QuestionIndex(),
		Score:         g.session.Score(),
		Combo:         g.session.Combo(),
		GameOver:      g.session.GameOver(),
		UpdatedAt:     g.now(),
	}
	g.mu.Unlock()

	g.subMu.Lock()
	// closeSubscribers has run or is about to; it would never see ch.
	if g.ctx.Err() != nil {
		g.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	g.subscribers[ch] = struct{}{}
	ch <- initial
	g.subMu.Unlock()

	cancel := func() {
		g.subMu.Lock()
		if _, ok := g.subscribers[ch]; ok {
			delete(g.subscribers, ch)
			close(ch)
		}
		g.subMu.Unlock()
	}
	return ch, cancel
}

// broadcast never blocks: a subscriber that has not drained its buffer loses
// its oldest pending update.
func (g *Game) broadcast(update domain.ScoreUpdate) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	for ch := range g.subscribers {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

func (g *Game) closeSubscribers() {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	for ch := range g.subscribers {
		delete(g.subscribers, ch)
		close(ch)
	}
}

// GameSnapshot is the externally visible progress of a game.
type GameSnapshot struct {
	ID            string              `json:"id"`
	Player        string              `json:"player,omitempty"`
	State         domain.GameState    `json:"state"`
	QuestionIndex int                 `json:"questionIndex"`
	Amount        int                 `json:"amount"`
	Loaded        int                 `json:"loaded"`
	Score         float64             `json:"score"`
	Combo         int                 `json:"combo"`
	GameOver      bool                `json:"gameOver"`
	Difficulty    domain.Difficulty   `json:"difficulty"`
	Type          domain.QuestionType `json:"type"`
	CategoryID    *int                `json:"categoryId,omitempty"`
	Highscore     *domain.Highscore   `json:"highscore,omitempty"`
}

// QuestionView is a question as presented to a player. Answers are shuffled
// and the correct answer is withheld.
type QuestionView struct {
	Index      int                 `json:"index"`
	Amount     int                 `json:"amount"`
	Text       string              `json:"text"`
	Category   string              `json:"category"`
	Difficulty domain.Difficulty   `json:"difficulty"`
	Type       domain.QuestionType `json:"type"`
	Answers    []string            `json:"answers"`
	Answered   bool                `json:"answered"`
	Picked     string              `json:"picked,omitempty"`
}

// AnswerResult is the outcome of one answer.
type AnswerResult struct {
	Correct       bool    `json:"correct"`
	CorrectAnswer string  `json:"correctAnswer"`
	Delta         float64 `json:"delta"`
	Score         float64 `json:"score"`
	Combo         int     `json:"combo"`
	LastQuestion  bool    `json:"lastQuestion"`
}
