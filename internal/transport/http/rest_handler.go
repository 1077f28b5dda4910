package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// RESTHandler serves the read-only lobby endpoints.
type RESTHandler struct {
	service *app.TriviaService
	log     *logrus.Entry
}

func NewRESTHandler(service *app.TriviaService, log *logrus.Entry) *RESTHandler {
	return &RESTHandler{service: service, log: log.WithField("component", "rest")}
}

type category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Categories lists the trivia categories ordered by id.
func (h *RESTHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]category, 0, len(categories))
	for id, name := range categories {
		out = append(out, category{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

// Count reports the question count of a category, or the global count when
// no category is given.
func (h *RESTHandler) Count(w http.ResponseWriter, r *http.Request) {
	var categoryID *int
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, fmt.Errorf("%w: category %q", domain.ErrInvalidOption, raw))
			return
		}
		categoryID = &id
	}
	difficulty, err := domain.ParseDifficultyFilter(r.URL.Query().Get("difficulty"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	count, err := h.service.QuestionCount(r.Context(), categoryID, difficulty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, count)
}

// Highscores lists the best scores, all of them without a limit. With a name
// only that player's scores are listed.
func (h *RESTHandler) Highscores(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		scores := h.service.HighscoresOf(name)
		if scores == nil {
			scores = []domain.Highscore{}
		}
		writeJSON(w, http.StatusOK, scores)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, fmt.Errorf("%w: limit %q", domain.ErrInvalidOption, raw))
			return
		}
		limit = n
	}
	scores := h.service.Highscores(limit)
	if scores == nil {
		scores = []domain.Highscore{}
	}
	writeJSON(w, http.StatusOK, scores)
}

// LastHighscore returns the most recently submitted score, 404 before the
// first one.
func (h *RESTHandler) LastHighscore(w http.ResponseWriter, r *http.Request) {
	score, ok := h.service.LastHighscore()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload{Message: "no highscores yet"})
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *RESTHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidOption):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstream):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorOf(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
