package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/loadpoint/broker-outreach/internal/domain"
)

// TemplateRepo reads the follow-up template sequences. Implements
// outreach.TemplateSource. An empty category yields zero rows, which the
// scheduler treats as "no follow-ups", not an error.
type TemplateRepo struct{ db *sql.DB }

// NewTemplateRepo creates a Postgres-backed template repository.
func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

func (r *TemplateRepo) FollowUps(ctx context.Context, category string) ([]domain.FollowUpTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, sequence_step, delay_days,
		       COALESCE(method,''), COALESCE(subject,''), COALESCE(body,'')
		FROM outreach_templates
		WHERE category = $1 AND sequence_step > 1
		ORDER BY sequence_step ASC
	`, category)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []domain.FollowUpTemplate
	for rows.Next() {
		var t domain.FollowUpTemplate
		if err := rows.Scan(
			&t.ID, &t.Category, &t.SequenceStep, &t.DelayDays,
			&t.Method, &t.Subject, &t.Body,
		); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
