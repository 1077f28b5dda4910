package http

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/catalog"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/memory"
	"trivia-game-service/internal/logger"
	"trivia-game-service/internal/metrics"
	"trivia-game-service/internal/offline"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

func TestWebSocketGameFlow(t *testing.T) {
	server := newTestServer(t)

	conn := dial(t, server, "/ws?amount=2&name=Alice")
	defer conn.Close()

	started := readUntil(t, conn, "started")
	if started["amount"] != float64(2) || started["player"] != "Alice" {
		t.Fatalf("unexpected started payload %v", started)
	}

	for i := 0; i < 2; i++ {
		question := readUntil(t, conn, "question")
		if question["index"] != float64(i) {
			t.Fatalf("expected question %d, got %v", i, question["index"])
		}
		send(t, conn, "answer", map[string]any{"answer": "true"})
		result := readUntil(t, conn, "answerResult")
		if result["correct"] != true {
			t.Fatalf("expected correct answer, got %v", result)
		}
		send(t, conn, "next", nil)
	}

	over := readUntil(t, conn, "gameOver")
	if over["score"] != float64(10) || over["gameOver"] != true {
		t.Fatalf("unexpected game over payload %v", over)
	}
	highscore, ok := over["highscore"].(map[string]any)
	if !ok || highscore["name"] != "Alice" || highscore["position"] != float64(1) {
		t.Fatalf("expected highscore entry, got %v", over["highscore"])
	}
	send(t, conn, "quit", nil)

	resp, err := http.Get(server.URL + "/highscores?limit=5")
	if err != nil {
		t.Fatalf("get highscores: %v", err)
	}
	defer resp.Body.Close()
	var scores []domain.Highscore
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		t.Fatalf("decode highscores: %v", err)
	}
	if len(scores) != 1 || scores[0].Name != "Alice" || scores[0].Score != 10 {
		t.Fatalf("unexpected highscores %+v", scores)
	}

	getJSON(t, server.URL+"/highscores?name=Bob", http.StatusOK, &scores)
	if len(scores) != 0 {
		t.Fatalf("expected no scores for Bob, got %+v", scores)
	}
	var last domain.Highscore
	getJSON(t, server.URL+"/highscores/last", http.StatusOK, &last)
	if last.Name != "Alice" || last.Position != 1 {
		t.Fatalf("unexpected last highscore %+v", last)
	}
}

func TestWebSocketErrorsCarryEndpoint(t *testing.T) {
	server := newTestServer(t)

	conn := dial(t, server, "/ws?amount=2&category=99")
	defer conn.Close()

	payload := readUntil(t, conn, "error")
	if payload["endpoint"] != domain.EndpointQuestions || payload["code"] != float64(domain.CodeNoResults) {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestWebSocketPreviousAndInvalidMoves(t *testing.T) {
	server := newTestServer(t)

	conn := dial(t, server, "/ws?amount=2")
	defer conn.Close()
	readUntil(t, conn, "question")

	send(t, conn, "previous", nil)
	payload := readUntil(t, conn, "error")
	if payload["message"] != domain.ErrNoPreviousQuestion.Error() {
		t.Fatalf("unexpected error %v", payload)
	}

	send(t, conn, "answer", map[string]any{"answer": "maybe"})
	payload = readUntil(t, conn, "error")
	if !strings.Contains(payload["message"].(string), domain.ErrInvalidAnswer.Error()) {
		t.Fatalf("unexpected error %v", payload)
	}

	send(t, conn, "next", nil)
	readUntil(t, conn, "question")
	send(t, conn, "previous", nil)
	question := readUntil(t, conn, "question")
	if question["index"] != float64(0) {
		t.Fatalf("expected to be back at question 0, got %v", question["index"])
	}

	send(t, conn, "shout", nil)
	readUntil(t, conn, "error")

	send(t, conn, "quit", nil)
	over := readUntil(t, conn, "gameOver")
	if over["state"] != "game_over" {
		t.Fatalf("expected game over state, got %v", over["state"])
	}
}

func TestBadGameOptionsAreRejected(t *testing.T) {
	server := newTestServer(t)

	for _, query := range []string{"amount=-1", "amount=ten", "difficulty=impossible", "type=essay", "category=books"} {
		resp, err := http.Get(server.URL + "/ws?" + query)
		if err != nil {
			t.Fatalf("get %s: %v", query, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, resp.StatusCode)
		}
	}
}

func TestLobbyEndpoints(t *testing.T) {
	server := newTestServer(t)

	var categories []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	getJSON(t, server.URL+"/categories", http.StatusOK, &categories)
	if len(categories) != 1 || categories[0].ID != 9 || categories[0].Name != "General Knowledge" {
		t.Fatalf("unexpected categories %+v", categories)
	}

	var count domain.QuestionCount
	getJSON(t, server.URL+"/count?category=9&difficulty=easy", http.StatusOK, &count)
	if count != (domain.QuestionCount{Total: 3, Filtered: 3}) {
		t.Fatalf("unexpected count %+v", count)
	}
	getJSON(t, server.URL+"/count", http.StatusOK, &count)
	if count.Total != 3 {
		t.Fatalf("unexpected global count %+v", count)
	}

	var failure errorPayload
	getJSON(t, server.URL+"/count?category=nine", http.StatusBadRequest, &failure)
	getJSON(t, server.URL+"/highscores/last", http.StatusNotFound, &failure)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", resp.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/categories", nil)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logger.Discard()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	bank := memory.NewStaticQuestionBank([]domain.StoredQuestion{
		storedQuestion(t, 1),
		storedQuestion(t, 2),
		storedQuestion(t, 3),
	})
	fetcher := offline.NewFetcher(bank, offline.WithLogger(log), offline.WithMetrics(m), offline.WithRand(rand.New(rand.NewSource(1))))
	service := app.NewTriviaService(
		fetcher,
		memory.NewGameStore(),
		memory.NewCategoryRepository(app.CategoriesFrom(fetcher), time.Minute),
		app.WithLogger(log),
		app.WithMetrics(m),
		app.WithHighscores(memory.NewHighscoreBoard()),
	)

	router := NewRouter(NewGameHandler(service, log, 10), NewRESTHandler(service, log), registry, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func storedQuestion(t *testing.T, id int64) domain.StoredQuestion {
	t.Helper()
	payload := fmt.Sprintf(`{"type":"boolean","difficulty":"easy","category":"General%%20Knowledge","question":"Statement%%20%d","correct_answer":"True","incorrect_answers":["False"]}`, id)
	stored, err := catalog.StoredQuestionOf(json.RawMessage(payload), 9)
	if err != nil {
		t.Fatalf("stored question: %v", err)
	}
	stored.ID = id
	return stored
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips messages of other types, such as score updates.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", expect, err)
		}
		if msg.Type == expect {
			return msg.Payload
		}
		if msg.Type == "error" {
			t.Fatalf("unexpected error while waiting for %s: %v", expect, msg.Payload)
		}
	}
	t.Fatalf("no %s message", expect)
	return nil
}

func getJSON(t *testing.T, url string, status int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != status {
		t.Fatalf("get %s: expected %d, got %d", url, status, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
