package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"trivia-game-service/internal/domain"
	"github.com/uptrace/bun"
)

type questionRow struct {
	bun.BaseModel `bun:"table:trivia_questions"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Fingerprint string `bun:"fingerprint,notnull,unique"`
	CategoryID  int    `bun:"category_id,notnull"`
	Category    string `bun:"category,notnull"`
	Difficulty  string `bun:"difficulty,notnull"`
	Type        string `bun:"type,notnull"`
	Payload     string `bun:"payload,type:jsonb,notnull"`
}

func rowOf(q domain.StoredQuestion) questionRow {
	sum := sha256.Sum256(q.Payload)
	return questionRow{
		ID:          q.ID,
		Fingerprint: hex.EncodeToString(sum[:]),
		CategoryID:  q.CategoryID,
		Category:    q.Category,
		Difficulty:  q.Difficulty.String(),
		Type:        q.Type.String(),
		Payload:     string(q.Payload),
	}
}

func (r questionRow) stored() (domain.StoredQuestion, error) {
	kind, err := domain.ParseQuestionType(r.Type)
	if err != nil {
		return domain.StoredQuestion{}, fmt.Errorf("question %d: %w", r.ID, err)
	}
	return domain.StoredQuestion{
		ID:         r.ID,
		CategoryID: r.CategoryID,
		Category:   r.Category,
		Difficulty: domain.ParseDifficulty(r.Difficulty),
		Type:       kind,
		Payload:    json.RawMessage(r.Payload),
	}, nil
}

// QuestionWriter stores questions in the bank. Payloads already present are
// skipped.
type QuestionWriter struct {
	db *bun.DB
}

func NewQuestionWriter(db *bun.DB) *QuestionWriter {
	return &QuestionWriter{db: db}
}

// Save inserts questions and reports how many were new.
func (w *QuestionWriter) Save(ctx context.Context, questions []domain.StoredQuestion) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		row := rowOf(q)
		row.ID = 0
		rows = append(rows, row)
	}
	res, err := w.db.NewInsert().
		Model(&rows).
		ExcludeColumn("id").
		On("CONFLICT (fingerprint) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("save questions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("save questions: %w", err)
	}
	return int(n), nil
}
