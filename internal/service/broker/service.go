// Package broker manages a carrier's broker CRM: create/update with status
// transition validation, relationship score computation and persistence, and
// target ranking across the CRM and the shared lead pool.
package broker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loadpoint/broker-outreach/internal/domain"
	"github.com/loadpoint/broker-outreach/internal/geo"
	"github.com/loadpoint/broker-outreach/internal/scoring"
)

// DefaultRankLimit bounds a target ranking when the caller doesn't set one.
const DefaultRankLimit = 50

// Service coordinates broker CRM operations.
type Service struct {
	brokers  Repository
	leads    LeadSource
	carriers CarrierDirectory

	now func() time.Time
}

// NewService creates a broker service wired to the given stores.
func NewService(brokers Repository, leads LeadSource, carriers CarrierDirectory) *Service {
	return &Service{
		brokers:  brokers,
		leads:    leads,
		carriers: carriers,
		now:      time.Now,
	}
}

// SetNow overrides the clock. Tests only.
func (s *Service) SetNow(now func() time.Time) { s.now = now }

// CreateInput holds the caller-supplied fields for a new broker record.
type CreateInput struct {
	Name            string   `json:"name"`
	MCNumber        string   `json:"mc_number"`
	ContactEmail    string   `json:"contact_email"`
	ContactPhone    string   `json:"contact_phone"`
	AddressState    string   `json:"address_state"`
	CreditScore     *int     `json:"credit_score"`
	DaysToPay       *int     `json:"days_to_pay"`
	AuthorityStatus string   `json:"authority_status"`
	InsuranceOnFile bool     `json:"insurance_on_file"`
	PreferredLanes  []string `json:"preferred_lanes"`
}

// Create adds a broker to the carrier's CRM. MC-number uniqueness is
// enforced by the repository's conditional insert.
func (s *Service) Create(ctx context.Context, carrierID string, in CreateInput) (*domain.Broker, error) {
	if carrierID == "" {
		return nil, fmt.Errorf("%w: carrier_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.MCNumber) == "" {
		return nil, fmt.Errorf("%w: mc_number is required", ErrInvalidInput)
	}
	if in.CreditScore != nil && (*in.CreditScore < 0 || *in.CreditScore > 100) {
		return nil, fmt.Errorf("%w: credit_score must be between 0 and 100", ErrInvalidInput)
	}

	now := s.now()
	b := &domain.Broker{
		ID:              uuid.New().String(),
		CarrierID:       carrierID,
		Name:            strings.TrimSpace(in.Name),
		MCNumber:        strings.TrimSpace(in.MCNumber),
		ContactEmail:    strings.TrimSpace(in.ContactEmail),
		ContactPhone:    strings.TrimSpace(in.ContactPhone),
		AddressState:    strings.ToUpper(strings.TrimSpace(in.AddressState)),
		CreditScore:     in.CreditScore,
		DaysToPay:       in.DaysToPay,
		AuthorityStatus: in.AuthorityStatus,
		InsuranceOnFile: in.InsuranceOnFile,
		OutreachStatus:  domain.OutreachNew,
		PreferredLanes:  in.PreferredLanes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.brokers.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns one broker from the carrier's CRM.
func (s *Service) Get(ctx context.Context, carrierID, id string) (*domain.Broker, error) {
	return s.brokers.Get(ctx, carrierID, id)
}

// List returns the carrier's brokers matching the filter.
func (s *Service) List(ctx context.Context, carrierID string, f ListFilter) ([]domain.Broker, error) {
	return s.brokers.List(ctx, carrierID, f)
}

// UpdateInput holds the mutable broker fields. Nil pointers leave a field
// unchanged; relationship_score and response_rate are derived and not
// settable here.
type UpdateInput struct {
	Name            *string               `json:"name"`
	ContactEmail    *string               `json:"contact_email"`
	ContactPhone    *string               `json:"contact_phone"`
	AddressState    *string               `json:"address_state"`
	CreditScore     *int                  `json:"credit_score"`
	DaysToPay       *int                  `json:"days_to_pay"`
	AuthorityStatus *string               `json:"authority_status"`
	InsuranceOnFile *bool                 `json:"insurance_on_file"`
	PreferredLanes  []string              `json:"preferred_lanes"`
	OutreachStatus  domain.OutreachStatus `json:"outreach_status"`
	TotalLoads      *int                  `json:"total_loads_booked"`
}

// Update patches a broker. A status change is validated against the outreach
// status state machine and rejected with ErrInvalidTransition if illegal.
func (s *Service) Update(ctx context.Context, carrierID, id string, in UpdateInput) (*domain.Broker, error) {
	b, err := s.brokers.Get(ctx, carrierID, id)
	if err != nil {
		return nil, err
	}

	if in.OutreachStatus != "" && in.OutreachStatus != b.OutreachStatus {
		if !b.OutreachStatus.CanTransitionTo(in.OutreachStatus) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.OutreachStatus, in.OutreachStatus)
		}
		b.OutreachStatus = in.OutreachStatus
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		b.Name = strings.TrimSpace(*in.Name)
	}
	if in.ContactEmail != nil {
		b.ContactEmail = strings.TrimSpace(*in.ContactEmail)
	}
	if in.ContactPhone != nil {
		b.ContactPhone = strings.TrimSpace(*in.ContactPhone)
	}
	if in.AddressState != nil {
		b.AddressState = strings.ToUpper(strings.TrimSpace(*in.AddressState))
	}
	if in.CreditScore != nil {
		if *in.CreditScore < 0 || *in.CreditScore > 100 {
			return nil, fmt.Errorf("%w: credit_score must be between 0 and 100", ErrInvalidInput)
		}
		b.CreditScore = in.CreditScore
	}
	if in.DaysToPay != nil {
		b.DaysToPay = in.DaysToPay
	}
	if in.AuthorityStatus != nil {
		b.AuthorityStatus = *in.AuthorityStatus
	}
	if in.InsuranceOnFile != nil {
		b.InsuranceOnFile = *in.InsuranceOnFile
	}
	if in.PreferredLanes != nil {
		b.PreferredLanes = in.PreferredLanes
	}
	if in.TotalLoads != nil {
		b.TotalLoads = *in.TotalLoads
	}

	b.UpdatedAt = s.now()
	if err := s.brokers.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a broker from the carrier's CRM.
func (s *Service) Delete(ctx context.Context, carrierID, id string) error {
	return s.brokers.Delete(ctx, carrierID, id)
}

// Score computes the broker's relationship score and persists it in a single
// write. The scorer itself stays pure; this is the one place the derived
// relationship_score column is written.
func (s *Service) Score(ctx context.Context, carrierID, id string) (*scoring.RelationshipResult, error) {
	b, err := s.brokers.Get(ctx, carrierID, id)
	if err != nil {
		return nil, err
	}
	res := scoring.RelationshipScore(b, s.now())
	if err := s.brokers.UpdateRelationshipScore(ctx, carrierID, id, res.Score, res.Label); err != nil {
		return nil, fmt.Errorf("persist relationship score: %w", err)
	}
	return &res, nil
}

// ListLeads returns shared pool leads for the given states, defaulting to
// the carrier's target regions (home state plus neighbors) when none are
// given.
func (s *Service) ListLeads(ctx context.Context, carrierID string, states []string, limit int) ([]domain.BrokerLead, error) {
	if limit <= 0 {
		limit = DefaultRankLimit
	}
	if len(states) == 0 {
		carrier, err := s.carriers.Get(ctx, carrierID)
		if err != nil {
			return nil, err
		}
		states = geo.TargetRegions(carrier.HomeState)
	} else {
		for i := range states {
			states[i] = strings.ToUpper(strings.TrimSpace(states[i]))
		}
	}
	return s.leads.ListByStates(ctx, dedupe(states), limit)
}

// TargetCandidate is one ranked outreach candidate: a CRM broker or a pool
// lead, with its target score and the reasons it ranked where it did.
type TargetCandidate struct {
	Broker  domain.Broker `json:"broker"`
	Source  string        `json:"source"` // "crm" or "lead"
	Score   int           `json:"score"`
	Reasons []string      `json:"reasons"`
}

// RankTargets merges the carrier's CRM brokers with pool leads from the
// carrier's target regions (home state plus neighbors), scores every
// candidate, and returns them ranked by score descending. Leads already in
// the CRM (same MC number) are excluded from the lead pool. Blacklisted
// brokers never rank.
func (s *Service) RankTargets(ctx context.Context, carrierID string, limit int) ([]TargetCandidate, error) {
	if limit <= 0 {
		limit = DefaultRankLimit
	}

	carrier, err := s.carriers.Get(ctx, carrierID)
	if err != nil {
		return nil, err
	}

	crm, err := s.brokers.List(ctx, carrierID, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list brokers: %w", err)
	}

	regions := geo.TargetRegions(carrier.HomeState)
	for _, st := range carrier.PreferredStates {
		regions = append(regions, strings.ToUpper(strings.TrimSpace(st)))
	}
	leads, err := s.leads.ListByStates(ctx, dedupe(regions), limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	known := make(map[string]bool, len(crm))
	var out []TargetCandidate
	for i := range crm {
		b := &crm[i]
		known[b.MCNumber] = true
		if b.OutreachStatus == domain.OutreachBlacklisted {
			continue
		}
		res := scoring.TargetScore(b, carrier)
		out = append(out, TargetCandidate{Broker: *b, Source: "crm", Score: res.Score, Reasons: res.Reasons})
	}
	for i := range leads {
		if known[leads[i].MCNumber] {
			continue
		}
		b := leads[i].AsBroker()
		res := scoring.TargetScore(&b, carrier)
		out = append(out, TargetCandidate{Broker: b, Source: "lead", Score: res.Score, Reasons: res.Reasons})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// NeedsAttention lists the carrier's non-blacklisted brokers ordered by how
// urgently they need a human touch: responded brokers first (a reply is
// waiting), never-contacted brokers next, everyone else after, stalest
// contact first within each group.
func (s *Service) NeedsAttention(ctx context.Context, carrierID string, limit int) ([]domain.Broker, error) {
	if limit <= 0 {
		limit = DefaultRankLimit
	}
	brokers, err := s.brokers.List(ctx, carrierID, ListFilter{})
	if err != nil {
		return nil, err
	}

	filtered := brokers[:0]
	for _, b := range brokers {
		if b.OutreachStatus != domain.OutreachBlacklisted {
			filtered = append(filtered, b)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		pi, pj := attentionPriority(filtered[i].OutreachStatus), attentionPriority(filtered[j].OutreachStatus)
		if pi != pj {
			return pi < pj
		}
		return olderContact(&filtered[i], &filtered[j])
	})
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func attentionPriority(s domain.OutreachStatus) int {
	switch s {
	case domain.OutreachResponded:
		return 0
	case domain.OutreachNew, "":
		return 1
	default:
		return 2
	}
}

// olderContact orders never-contacted before anyone, then oldest last
// contact first.
func olderContact(a, b *domain.Broker) bool {
	switch {
	case a.LastContactAt == nil && b.LastContactAt == nil:
		return false
	case a.LastContactAt == nil:
		return true
	case b.LastContactAt == nil:
		return false
	default:
		return a.LastContactAt.Before(*b.LastContactAt)
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
