package app

import (
	"testing"
	"time"

	"trivia-game-service/internal/domain"
)

func TestGameUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	game := NewGameWithClock("g1", "alice", domain.GameOptions{Amount: 3}, func() time.Time { return fixed })

	if !game.CreatedAt().Equal(fixed) {
		t.Fatalf("expected created at %v, got %v", fixed, game.CreatedAt())
	}
	ch, cancel := game.subscribe()
	defer cancel()
	initial := <-ch
	if initial.GameID != "g1" || !initial.UpdatedAt.Equal(fixed) {
		t.Fatalf("unexpected initial update %+v", initial)
	}
}

func TestSubscribeAfterEndReturnsClosedChannel(t *testing.T) {
	game := NewGameWithClock("g1", "", domain.GameOptions{Amount: 1}, time.Now)

	game.cancel()
	game.closeSubscribers()

	ch, cancel := game.subscribe()
	defer cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel for an ended game")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel of an ended game was never closed")
	}
	if len(game.subscribers) != 0 {
		t.Fatalf("ended game kept %d subscribers", len(game.subscribers))
	}
}

func TestSubscribeBeforeEndIsClosedByEnd(t *testing.T) {
	game := NewGameWithClock("g1", "", domain.GameOptions{Amount: 1}, time.Now)

	ch, cancel := game.subscribe()
	defer cancel()
	<-ch

	game.cancel()
	game.closeSubscribers()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed by end")
	}
}
