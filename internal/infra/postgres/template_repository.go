package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"shule-quiz-service/internal/domain"
	"shule-quiz-service/internal/quiz"
)

// TemplateRepository loads quiz template JSONB documents from Postgres.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

var _ quiz.TemplateRepository = (*TemplateRepository)(nil)

func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

func (r *TemplateRepository) FindTemplate(ctx context.Context, filter quiz.TemplateFilter) (domain.QuizTemplate, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT data FROM quiz_templates
		WHERE lower(curriculum) = lower($1)
		  AND lower(level) = lower($2)
		  AND lower(subject) = lower($3)
		  AND quiz_type = $4
		  AND ($5 = '' OR topic_id = $5)
		  AND ($6 = 0 OR term = $6)
		LIMIT 1`,
		filter.Curriculum, filter.Level, filter.Subject, string(filter.QuizType), filter.TopicID, filter.Term,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizTemplate{}, domain.ErrTemplateNotFound
	}
	if err != nil {
		return domain.QuizTemplate{}, fmt.Errorf("find template: %w", err)
	}
	var template domain.QuizTemplate
	if err := json.Unmarshal(raw, &template); err != nil {
		return domain.QuizTemplate{}, fmt.Errorf("unmarshal template: %w", err)
	}
	return template, nil
}
