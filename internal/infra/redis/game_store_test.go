package redis

import (
	"context"
	"testing"
	"time"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestGameStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	store := NewGameStore(client, time.Minute)

	store.Put(app.NewGame("game-1", "alice", domain.GameOptions{Amount: 10}))
	if !mr.Exists("trivia:game:game-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, _ := mr.Get("trivia:game:game-1"); got != "alice" {
		t.Fatalf("expected player name as value, got %q", got)
	}

	mr.FastForward(30 * time.Second)
	if _, ok := store.Get("game-1"); !ok {
		t.Fatalf("expected game present")
	}
	if ttl := mr.TTL("trivia:game:game-1"); ttl != time.Minute {
		t.Fatalf("expected ttl refreshed on access, got %v", ttl)
	}

	live, err := store.Live(context.Background())
	if err != nil || live != 1 {
		t.Fatalf("expected 1 live game, got %d (%v)", live, err)
	}

	store.Delete("game-1")
	if mr.Exists("trivia:game:game-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("game-1"); ok {
		t.Fatalf("expected game removed locally")
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
