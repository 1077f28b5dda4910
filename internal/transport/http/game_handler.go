package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// GameHandler plays one game per websocket connection.
type GameHandler struct {
	service       *app.TriviaService
	log           *logrus.Entry
	defaultAmount int
	upgrader      websocket.Upgrader
}

func NewGameHandler(service *app.TriviaService, log *logrus.Entry, defaultAmount int) *GameHandler {
	return &GameHandler{
		service:       service,
		log:           log.WithField("component", "ws"),
		defaultAmount: defaultAmount,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Endpoint string `json:"endpoint,omitempty"`
	Code     int    `json:"code,omitempty"`
	Message  string `json:"message"`
}

func errorOf(err error) errorPayload {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return errorPayload{Endpoint: upstream.Endpoint, Code: upstream.Code, Message: upstream.Message}
	}
	return errorPayload{Message: err.Error()}
}

// ServeWS upgrades HTTP requests to websockets and plays a game over them.
func (h *GameHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	opts, err := h.gameOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	player := r.URL.Query().Get("name")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	started, err := h.service.StartGame(ctx, player, opts)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorOf(err)})
		return
	}
	gameID := started.ID
	log := h.log.WithField("game_id", gameID)

	updates, cancel, err := h.service.Subscribe(ctx, gameID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorOf(err)})
		_, _ = h.service.EndGame(context.Background(), gameID)
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	emit := func(typ string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
		case <-writerDone:
		}
	}
	fail := func(err error) {
		emit("error", errorOf(err))
	}
	sendQuestion := func() {
		view, err := h.service.CurrentQuestion(ctx, gameID)
		if err != nil {
			fail(err)
			return
		}
		emit("question", view)
	}

	// Only the writer goroutine touches the connection for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "score", Payload: update}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	emit("started", started)
	sendQuestion()

	quit := false
	for !quit {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail(errors.New("invalid answer payload"))
				continue
			}
			result, err := h.service.Answer(ctx, gameID, payload.Answer)
			if err != nil {
				fail(err)
				continue
			}
			emit("answerResult", result)
		case "next":
			snapshot, err := h.service.Next(ctx, gameID)
			if err != nil {
				fail(err)
				continue
			}
			if snapshot.GameOver {
				emit("gameOver", snapshot)
				continue
			}
			sendQuestion()
		case "previous":
			if _, err := h.service.Previous(ctx, gameID); err != nil {
				fail(err)
				continue
			}
			sendQuestion()
		case "resetToken":
			if _, err := h.service.ResetToken(ctx, gameID); err != nil {
				fail(err)
				continue
			}
			sendQuestion()
		case "quit":
			quit = true
		default:
			fail(errors.New("unsupported message type"))
		}
	}

	final, err := h.service.EndGame(context.Background(), gameID)
	if err == nil && quit {
		emit("gameOver", final)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *GameHandler) gameOptions(r *http.Request) (domain.GameOptions, error) {
	query := r.URL.Query()
	opts := domain.GameOptions{Amount: h.defaultAmount}

	if raw := query.Get("amount"); raw != "" {
		amount, err := strconv.Atoi(raw)
		if err != nil || amount < 0 {
			return opts, fmt.Errorf("%w: amount %q", domain.ErrInvalidOption, raw)
		}
		opts.Amount = amount
	}
	difficulty, err := domain.ParseDifficultyFilter(query.Get("difficulty"))
	if err != nil {
		return opts, err
	}
	opts.Difficulty = difficulty

	kind, err := domain.ParseQuestionType(query.Get("type"))
	if err != nil {
		return opts, err
	}
	opts.Type = kind

	if raw := query.Get("category"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return opts, fmt.Errorf("%w: category %q", domain.ErrInvalidOption, raw)
		}
		opts.CategoryID = &id
	}
	return opts, nil
}
