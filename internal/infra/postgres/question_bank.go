package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"trivia-game-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// QuestionBank loads stored question payloads from Postgres.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) LoadQuestions(ctx context.Context) ([]domain.StoredQuestion, error) {
	rows, err := b.pool.Query(ctx, `SELECT id, category_id, category, difficulty, type, payload FROM trivia_questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.StoredQuestion
	for rows.Next() {
		var row questionRow
		if err := rows.Scan(&row.ID, &row.CategoryID, &row.Category, &row.Difficulty, &row.Type, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q, err := row.stored()
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// OpenBun opens a bun handle on dsn for migrations and bulk writes.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}
