package redis

import (
	"context"
	"sync"
	"time"

	"trivia-game-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// GameStore is a Redis-aware implementation of app.GameRepository.
// Notes:
//   - Games stay in a local map: the session state machine and its
//     subscribers live in this process.
//   - Redis holds a liveness key per game (value: player name) so that other
//     instances and operators can see which games are running.
type GameStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	games  map[string]*app.Game
}

func NewGameStore(client *redis.Client, ttl time.Duration) *GameStore {
	return &GameStore{
		client: client,
		ttl:    ttl,
		games:  make(map[string]*app.Game),
	}
}

func (s *GameStore) Put(game *app.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID()] = game
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(game.ID()), game.Player(), s.ttl).Err()
}

// Get returns a local game and refreshes its liveness key.
func (s *GameStore) Get(id string) (*app.Game, bool) {
	s.mu.RLock()
	game, ok := s.games[id]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(id), s.ttl).Err()
	}
	return game, ok
}

func (s *GameStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

// Live counts the liveness keys across all instances.
func (s *GameStore) Live(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return 0, err
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

const keyPrefix = "trivia:game:"

func (s *GameStore) key(id string) string {
	return keyPrefix + id
}
