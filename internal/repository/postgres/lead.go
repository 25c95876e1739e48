package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/loadpoint/broker-outreach/internal/domain"
)

// LeadRepo reads the shared, carrier-agnostic broker lead pool. Implements
// broker.LeadSource.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

func (r *LeadRepo) ListByStates(ctx context.Context, states []string, limit int) ([]domain.BrokerLead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, mc_number,
		       COALESCE(contact_email,''), COALESCE(contact_phone,''), COALESCE(address_state,''),
		       credit_score, days_to_pay, COALESCE(authority_status,''),
		       insurance_on_file, preferred_lanes, created_at
		FROM broker_leads
		WHERE address_state = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`, pq.Array(states), limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []domain.BrokerLead
	for rows.Next() {
		var l domain.BrokerLead
		var lanes pq.StringArray
		if err := rows.Scan(
			&l.ID, &l.Name, &l.MCNumber,
			&l.ContactEmail, &l.ContactPhone, &l.AddressState,
			&l.CreditScore, &l.DaysToPay, &l.AuthorityStatus,
			&l.InsuranceOnFile, &lanes, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.PreferredLanes = lanes
		out = append(out, l)
	}
	return out, rows.Err()
}
