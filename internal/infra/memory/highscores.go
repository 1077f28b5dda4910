package memory

import (
	"sort"
	"sync"
	"time"

	"trivia-game-service/internal/domain"
)

// HighscoreBoard keeps scores in memory, best first. Equal scores keep
// submission order.
type HighscoreBoard struct {
	mu        sync.RWMutex
	now       func() time.Time
	entries   []domain.Highscore
	lastAdded *domain.Highscore
}

func NewHighscoreBoard() *HighscoreBoard {
	return &HighscoreBoard{now: time.Now}
}

// Add records a score and returns it with its 1-based position.
func (b *HighscoreBoard) Add(name string, score float64) domain.Highscore {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := domain.Highscore{Name: name, Score: score, At: b.now()}
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].Score < score
	})
	b.entries = append(b.entries, domain.Highscore{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = entry
	for j := i; j < len(b.entries); j++ {
		b.entries[j].Position = j + 1
	}

	added := b.entries[i]
	b.lastAdded = &added
	return added
}

// Top returns the best n entries; n <= 0 returns all of them.
func (b *HighscoreBoard) Top(n int) []domain.Highscore {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > len(b.entries) {
		n = len(b.entries)
	}
	return append([]domain.Highscore(nil), b.entries[:n]...)
}

// ByName returns every entry of name, best first.
func (b *HighscoreBoard) ByName(name string) []domain.Highscore {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []domain.Highscore
	for _, entry := range b.entries {
		if entry.Name == name {
			out = append(out, entry)
		}
	}
	return out
}

// LastAdded returns the most recent entry as it was when added.
func (b *HighscoreBoard) LastAdded() (domain.Highscore, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastAdded == nil {
		return domain.Highscore{}, false
	}
	return *b.lastAdded, true
}
