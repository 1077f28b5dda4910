package memory

import (
	"testing"
	"time"
)

func TestHighscoreBoardOrdersAndPositions(t *testing.T) {
	board := NewHighscoreBoard()
	board.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	board.Add("foo", 100)
	board.Add("bar", 5)
	board.Add("baz", -1)
	added := board.Add("qux", 20)
	if added.Position != 2 {
		t.Fatalf("expected qux at position 2, got %d", added.Position)
	}

	top := board.Top(0)
	want := []string{"foo", "qux", "bar", "baz"}
	if len(top) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(top))
	}
	for i, name := range want {
		if top[i].Name != name || top[i].Position != i+1 {
			t.Fatalf("entry %d: expected %s at %d, got %+v", i, name, i+1, top[i])
		}
	}

	if got := board.Top(2); len(got) != 2 || got[1].Name != "qux" {
		t.Fatalf("unexpected top 2: %+v", got)
	}
}

func TestHighscoreBoardTiesKeepSubmissionOrder(t *testing.T) {
	board := NewHighscoreBoard()
	board.Add("first", 10)
	second := board.Add("second", 10)
	if second.Position != 2 {
		t.Fatalf("expected later equal score below earlier one, got position %d", second.Position)
	}
}

func TestHighscoreBoardByNameAndLastAdded(t *testing.T) {
	board := NewHighscoreBoard()
	if _, ok := board.LastAdded(); ok {
		t.Fatalf("expected no last added entry on empty board")
	}

	board.Add("fun", 1)
	board.Add("fun", 2)
	board.Add("other", 50)
	board.Add("fun", 3)

	scores := board.ByName("fun")
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores by fun, got %d", len(scores))
	}
	if scores[0].Score != 3 {
		t.Fatalf("expected best score first, got %+v", scores[0])
	}
	if board.ByName("fake news") != nil {
		t.Fatalf("expected no scores for unknown player")
	}

	last, ok := board.LastAdded()
	if !ok || last.Name != "fun" || last.Score != 3 || last.Position != 2 {
		t.Fatalf("unexpected last added %+v", last)
	}
}
