package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/loadpoint/broker-outreach/internal/domain"
	"github.com/loadpoint/broker-outreach/internal/service/broker"
)

// CarrierRepo resolves carrier profiles. Implements broker.CarrierDirectory
// and outreach.CarrierDirectory.
type CarrierRepo struct{ db *sql.DB }

// NewCarrierRepo creates a Postgres-backed carrier repository.
func NewCarrierRepo(db *sql.DB) *CarrierRepo { return &CarrierRepo{db: db} }

func (r *CarrierRepo) Get(ctx context.Context, carrierID string) (*domain.CarrierProfile, error) {
	c := &domain.CarrierProfile{}
	var equipment, lanes, states pq.StringArray
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, COALESCE(dot_number,''), COALESCE(home_state,''),
		       fleet_size, COALESCE(contact_from,''),
		       equipment_types, preferred_lanes, preferred_states,
		       created_at, updated_at
		FROM carrier_profiles
		WHERE id = $1
	`, carrierID).Scan(
		&c.ID, &c.AccountID, &c.Name, &c.DOTNumber, &c.HomeState,
		&c.FleetSize, &c.ContactFrom,
		&equipment, &lanes, &states,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, broker.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get carrier: %w", err)
	}
	c.EquipmentTypes = equipment
	c.PreferredLanes = lanes
	c.PreferredStates = states
	return c, nil
}
