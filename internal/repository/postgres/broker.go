// Package postgres holds the database/sql repositories backing the service
// layer. Conditional writes (unique-constrained inserts, claim updates) are
// expressed in SQL so correctness never depends on in-process locks.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/loadpoint/broker-outreach/internal/domain"
	"github.com/loadpoint/broker-outreach/internal/service/broker"
	"github.com/loadpoint/broker-outreach/internal/service/outreach"
)

const brokerColumns = `
	id, carrier_id, name, mc_number,
	COALESCE(contact_email,''), COALESCE(contact_phone,''), COALESCE(address_state,''),
	credit_score, days_to_pay, response_rate,
	first_contact_date, last_contact_date,
	total_outreach_attempts, total_responses, total_loads_booked,
	COALESCE(authority_status,''), insurance_on_file,
	COALESCE(outreach_status,'new'), preferred_lanes, relationship_score,
	created_at, updated_at`

// BrokerRepo implements broker.Repository and outreach.BrokerDirectory
// against PostgreSQL.
type BrokerRepo struct{ db *sql.DB }

// NewBrokerRepo creates a Postgres-backed broker repository.
func NewBrokerRepo(db *sql.DB) *BrokerRepo { return &BrokerRepo{db: db} }

func scanBroker(row interface{ Scan(...any) error }) (*domain.Broker, error) {
	b := &domain.Broker{}
	var lanes pq.StringArray
	err := row.Scan(
		&b.ID, &b.CarrierID, &b.Name, &b.MCNumber,
		&b.ContactEmail, &b.ContactPhone, &b.AddressState,
		&b.CreditScore, &b.DaysToPay, &b.ResponseRate,
		&b.FirstContactAt, &b.LastContactAt,
		&b.TotalAttempts, &b.TotalResponses, &b.TotalLoads,
		&b.AuthorityStatus, &b.InsuranceOnFile,
		&b.OutreachStatus, &lanes, &b.RelationshipScore,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.PreferredLanes = lanes
	return b, nil
}

func (r *BrokerRepo) Create(ctx context.Context, b *domain.Broker) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO brokers
			(id, carrier_id, name, mc_number, contact_email, contact_phone,
			 address_state, credit_score, days_to_pay, authority_status,
			 insurance_on_file, outreach_status, preferred_lanes,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		ON CONFLICT (carrier_id, mc_number) DO NOTHING
	`, b.ID, b.CarrierID, b.Name, b.MCNumber, b.ContactEmail, b.ContactPhone,
		b.AddressState, b.CreditScore, b.DaysToPay, b.AuthorityStatus,
		b.InsuranceOnFile, b.OutreachStatus, pq.Array(b.PreferredLanes))
	if err != nil {
		return fmt.Errorf("create broker: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return broker.ErrDuplicateBroker
	}
	return nil
}

func (r *BrokerRepo) Get(ctx context.Context, carrierID, id string) (*domain.Broker, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+brokerColumns+`
		FROM brokers
		WHERE id = $1 AND carrier_id = $2
	`, id, carrierID)
	b, err := scanBroker(row)
	if err == sql.ErrNoRows {
		return nil, broker.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get broker: %w", err)
	}
	return b, nil
}

func (r *BrokerRepo) List(ctx context.Context, carrierID string, f broker.ListFilter) ([]domain.Broker, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}

	q := `SELECT ` + brokerColumns + ` FROM brokers WHERE carrier_id = $1`
	args := []interface{}{carrierID}
	idx := 2

	if f.Status != "" {
		q += fmt.Sprintf(" AND outreach_status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.State != "" {
		q += fmt.Sprintf(" AND address_state = $%d", idx)
		args = append(args, f.State)
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list brokers: %w", err)
	}
	defer rows.Close()

	var out []domain.Broker
	for rows.Next() {
		b, err := scanBroker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan broker: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *BrokerRepo) Update(ctx context.Context, b *domain.Broker) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE brokers SET
			name = $1, contact_email = $2, contact_phone = $3, address_state = $4,
			credit_score = $5, days_to_pay = $6, authority_status = $7,
			insurance_on_file = $8, outreach_status = $9, preferred_lanes = $10,
			total_loads_booked = $11, updated_at = NOW()
		WHERE id = $12 AND carrier_id = $13
	`, b.Name, b.ContactEmail, b.ContactPhone, b.AddressState,
		b.CreditScore, b.DaysToPay, b.AuthorityStatus,
		b.InsuranceOnFile, b.OutreachStatus, pq.Array(b.PreferredLanes),
		b.TotalLoads, b.ID, b.CarrierID)
	if err != nil {
		return fmt.Errorf("update broker: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return broker.ErrNotFound
	}
	return nil
}

func (r *BrokerRepo) Delete(ctx context.Context, carrierID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM brokers WHERE id = $1 AND carrier_id = $2`, id, carrierID)
	if err != nil {
		return fmt.Errorf("delete broker: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return broker.ErrNotFound
	}
	return nil
}

func (r *BrokerRepo) UpdateRelationshipScore(ctx context.Context, carrierID, id string, score int, label string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE brokers SET relationship_score = $1, relationship_label = $2, updated_at = NOW()
		WHERE id = $3 AND carrier_id = $4
	`, score, label, id, carrierID)
	if err != nil {
		return fmt.Errorf("update relationship score: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return broker.ErrNotFound
	}
	return nil
}

// RecordAttempt bumps the attempt counter, stamps contact dates, and moves a
// never-contacted broker to contacted. One atomic statement so the dispatch
// path never reads-then-writes.
func (r *BrokerRepo) RecordAttempt(ctx context.Context, carrierID, brokerID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE brokers SET
			total_outreach_attempts = total_outreach_attempts + 1,
			last_contact_date = $1,
			first_contact_date = COALESCE(first_contact_date, $1),
			outreach_status = CASE WHEN outreach_status IN ('new','') THEN 'contacted' ELSE outreach_status END,
			updated_at = NOW()
		WHERE id = $2 AND carrier_id = $3
	`, at, brokerID, carrierID)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

// RecordResponse bumps the response counter, rederives response_rate from the
// stored counters, and moves the broker to responded.
func (r *BrokerRepo) RecordResponse(ctx context.Context, carrierID, brokerID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE brokers SET
			total_responses = total_responses + 1,
			response_rate = LEAST(100, (total_responses + 1) * 100.0 / GREATEST(total_outreach_attempts, 1)),
			outreach_status = 'responded',
			updated_at = NOW()
		WHERE id = $1 AND carrier_id = $2
	`, brokerID, carrierID)
	if err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}
