package broker

import (
	"context"

	"github.com/loadpoint/broker-outreach/internal/domain"
)

// ListFilter narrows a broker listing. Zero values mean "no constraint".
type ListFilter struct {
	Status domain.OutreachStatus
	State  string
	Limit  int
}

// Repository defines data access for a carrier's private broker CRM.
// Create must enforce MC-number uniqueness per carrier with a conditional
// insert, returning ErrDuplicateBroker on conflict.
type Repository interface {
	Create(ctx context.Context, b *domain.Broker) error
	Get(ctx context.Context, carrierID, id string) (*domain.Broker, error)
	List(ctx context.Context, carrierID string, f ListFilter) ([]domain.Broker, error)
	Update(ctx context.Context, b *domain.Broker) error
	Delete(ctx context.Context, carrierID, id string) error

	// UpdateRelationshipScore writes the derived score and label. The only
	// path that writes relationship_score.
	UpdateRelationshipScore(ctx context.Context, carrierID, id string, score int, label string) error
}

// LeadSource reads the shared, carrier-agnostic lead pool.
type LeadSource interface {
	// ListByStates returns leads whose address_state is in states.
	ListByStates(ctx context.Context, states []string, limit int) ([]domain.BrokerLead, error)
}

// CarrierDirectory resolves the carrier profile driving targeting.
type CarrierDirectory interface {
	Get(ctx context.Context, carrierID string) (*domain.CarrierProfile, error)
}
