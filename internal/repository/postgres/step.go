package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/loadpoint/broker-outreach/internal/domain"
	"github.com/loadpoint/broker-outreach/internal/service/outreach"
)

const stepColumns = `
	id, carrier_id, broker_id, parent_campaign_id, sequence_step, method, status,
	COALESCE(subject,''), COALESCE(body,''),
	scheduled_at, sent_at, COALESCE(status_reason,''), COALESCE(message_id,''),
	created_at, updated_at`

// StepRepo implements outreach.StepRepository against PostgreSQL. Step-1
// uniqueness rides on a partial unique index:
//
//	CREATE UNIQUE INDEX outreach_steps_initial_uniq
//	    ON outreach_steps (carrier_id, broker_id)
//	    WHERE sequence_step = 1 AND status <> 'cancelled';
type StepRepo struct{ db *sql.DB }

// NewStepRepo creates a Postgres-backed outreach step repository.
func NewStepRepo(db *sql.DB) *StepRepo { return &StepRepo{db: db} }

func scanStep(row interface{ Scan(...any) error }) (*domain.OutreachStep, error) {
	s := &domain.OutreachStep{}
	err := row.Scan(
		&s.ID, &s.CarrierID, &s.BrokerID, &s.ParentCampaignID, &s.SequenceStep, &s.Method, &s.Status,
		&s.Subject, &s.Body,
		&s.ScheduledAt, &s.SentAt, &s.StatusReason, &s.MessageID,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateInitial inserts the sequence_step=1 record. The ON CONFLICT target is
// the partial unique index, so "insert; on conflict, reject" is a single
// statement and never a check-then-insert race.
func (r *StepRepo) CreateInitial(ctx context.Context, s *domain.OutreachStep) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO outreach_steps
			(id, carrier_id, broker_id, sequence_step, method, status,
			 subject, body, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (carrier_id, broker_id) WHERE sequence_step = 1 AND status <> 'cancelled'
		DO NOTHING
	`, s.ID, s.CarrierID, s.BrokerID, s.Method, s.Status,
		s.Subject, s.Body, s.ScheduledAt)
	if err != nil {
		return fmt.Errorf("create initial step: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrDuplicateOutreach
	}
	return nil
}

func (r *StepRepo) Create(ctx context.Context, s *domain.OutreachStep) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outreach_steps
			(id, carrier_id, broker_id, parent_campaign_id, sequence_step, method,
			 status, subject, body, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, s.ID, s.CarrierID, s.BrokerID, s.ParentCampaignID, s.SequenceStep, s.Method,
		s.Status, s.Subject, s.Body, s.ScheduledAt)
	if err != nil {
		return fmt.Errorf("create step: %w", err)
	}
	return nil
}

func (r *StepRepo) Get(ctx context.Context, id string) (*domain.OutreachStep, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+stepColumns+` FROM outreach_steps WHERE id = $1`, id)
	s, err := scanStep(row)
	if err == sql.ErrNoRows {
		return nil, outreach.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get step: %w", err)
	}
	return s, nil
}

func (r *StepRepo) ListDue(ctx context.Context, before time.Time, limit int) ([]domain.OutreachStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+stepColumns+`
		FROM outreach_steps
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list due steps: %w", err)
	}
	defer rows.Close()

	var out []domain.OutreachStep
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Claim is the conditional scheduled -> sending transition. A second sweep
// racing on the same row sees zero rows affected and skips it.
func (r *StepRepo) Claim(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_steps SET status = 'sending', updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`, id)
	if err != nil {
		return false, fmt.Errorf("claim step: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *StepRepo) Release(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_steps SET status = 'scheduled', updated_at = NOW()
		WHERE id = $1 AND status = 'sending'
	`, id)
	if err != nil {
		return fmt.Errorf("release step: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

// MarkSent completes the sending -> sent transition. The status guard keeps a
// send recorded at most once even if two dispatchers raced onto the row.
func (r *StepRepo) MarkSent(ctx context.Context, id, messageID string, sentAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_steps
		SET status = 'sent', message_id = $1, sent_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'sending'
	`, messageID, sentAt, id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (r *StepRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return r.setStatus(ctx, id, domain.StepFailed, reason)
}

func (r *StepRepo) MarkCancelled(ctx context.Context, id, reason string) error {
	return r.setStatus(ctx, id, domain.StepCancelled, reason)
}

func (r *StepRepo) MarkReplied(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_steps SET status = 'replied', updated_at = NOW()
		WHERE id = $1 AND status = 'sent'
	`, id)
	if err != nil {
		return fmt.Errorf("mark replied: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (r *StepRepo) setStatus(ctx context.Context, id string, status domain.StepStatus, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_steps SET status = $1, status_reason = $2, updated_at = NOW()
		WHERE id = $3
	`, status, reason, id)
	if err != nil {
		return fmt.Errorf("update step status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (r *StepRepo) LatestSent(ctx context.Context, carrierID, brokerID string) (*domain.OutreachStep, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+stepColumns+`
		FROM outreach_steps
		WHERE carrier_id = $1 AND broker_id = $2 AND status = 'sent'
		ORDER BY sent_at DESC NULLS LAST
		LIMIT 1
	`, carrierID, brokerID)
	s, err := scanStep(row)
	if err == sql.ErrNoRows {
		return nil, outreach.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest sent step: %w", err)
	}
	return s, nil
}

// CancelScheduled cancels every remaining scheduled step for the pair in one
// statement; the row count is the number cancelled.
func (r *StepRepo) CancelScheduled(ctx context.Context, carrierID, brokerID, reason string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_steps SET status = 'cancelled', status_reason = $1, updated_at = NOW()
		WHERE carrier_id = $2 AND broker_id = $3 AND status = 'scheduled'
	`, reason, carrierID, brokerID)
	if err != nil {
		return 0, fmt.Errorf("cancel scheduled steps: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
