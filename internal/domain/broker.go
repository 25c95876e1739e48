package domain

import (
	"strings"
	"time"
)

// OutreachStatus enumerates the relationship states of a broker contact.
type OutreachStatus string

const (
	OutreachNew         OutreachStatus = "new"
	OutreachContacted   OutreachStatus = "contacted"
	OutreachResponded   OutreachStatus = "responded"
	OutreachActive      OutreachStatus = "active"
	OutreachNegotiating OutreachStatus = "negotiating"
	OutreachBlacklisted OutreachStatus = "blacklisted"
)

// CanTransitionTo reports whether moving from s to next is a valid status
// change. Blacklisted is absorbing: once set, no transition out is allowed.
// An empty current status is treated as "new".
func (s OutreachStatus) CanTransitionTo(next OutreachStatus) bool {
	cur := s
	if cur == "" {
		cur = OutreachNew
	}
	if cur == next {
		return true
	}
	switch cur {
	case OutreachNew:
		return next == OutreachContacted || next == OutreachResponded || next == OutreachBlacklisted
	case OutreachContacted:
		return next == OutreachResponded || next == OutreachBlacklisted
	case OutreachResponded:
		return next == OutreachActive || next == OutreachNegotiating || next == OutreachBlacklisted
	case OutreachActive, OutreachNegotiating:
		return next == OutreachBlacklisted
	case OutreachBlacklisted:
		return false
	}
	return false
}

// Broker represents a counterparty in a carrier's private CRM.
// RelationshipScore and ResponseRate are derived values written only by the
// scoring path, never hand-edited.
type Broker struct {
	ID        string `json:"id" db:"id"`
	CarrierID string `json:"carrier_id" db:"carrier_id"`
	Name      string `json:"name" db:"name"`
	MCNumber  string `json:"mc_number" db:"mc_number"`

	ContactEmail string `json:"contact_email" db:"contact_email"`
	ContactPhone string `json:"contact_phone" db:"contact_phone"`
	AddressState string `json:"address_state" db:"address_state"`

	CreditScore     *int       `json:"credit_score" db:"credit_score"`
	DaysToPay       *int       `json:"days_to_pay" db:"days_to_pay"`
	ResponseRate    *float64   `json:"response_rate" db:"response_rate"`
	FirstContactAt  *time.Time `json:"first_contact_date" db:"first_contact_date"`
	LastContactAt   *time.Time `json:"last_contact_date" db:"last_contact_date"`
	TotalAttempts   int        `json:"total_outreach_attempts" db:"total_outreach_attempts"`
	TotalResponses  int        `json:"total_responses" db:"total_responses"`
	TotalLoads      int        `json:"total_loads_booked" db:"total_loads_booked"`
	AuthorityStatus string     `json:"authority_status" db:"authority_status"`
	InsuranceOnFile bool       `json:"insurance_on_file" db:"insurance_on_file"`

	OutreachStatus    OutreachStatus `json:"outreach_status" db:"outreach_status"`
	PreferredLanes    []string       `json:"preferred_lanes" db:"preferred_lanes"`
	RelationshipScore *int           `json:"relationship_score" db:"relationship_score"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasAuthorityActive reports whether the broker's FMCSA authority status
// reads "active", case-insensitively.
func (b *Broker) HasAuthorityActive() bool {
	return strings.EqualFold(strings.TrimSpace(b.AuthorityStatus), "active")
}

// HasContactEmail reports whether the broker has a usable email address.
func (b *Broker) HasContactEmail() bool {
	return strings.TrimSpace(b.ContactEmail) != ""
}

// HasContactPhone reports whether the broker has a usable phone number.
func (b *Broker) HasContactPhone() bool {
	return strings.TrimSpace(b.ContactPhone) != ""
}

// BrokerLead is a carrier-agnostic entry in the shared lead pool. It carries
// the same scoring-relevant attributes as Broker but no per-carrier history.
type BrokerLead struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	MCNumber string `json:"mc_number" db:"mc_number"`

	ContactEmail string `json:"contact_email" db:"contact_email"`
	ContactPhone string `json:"contact_phone" db:"contact_phone"`
	AddressState string `json:"address_state" db:"address_state"`

	CreditScore     *int     `json:"credit_score" db:"credit_score"`
	DaysToPay       *int     `json:"days_to_pay" db:"days_to_pay"`
	AuthorityStatus string   `json:"authority_status" db:"authority_status"`
	InsuranceOnFile bool     `json:"insurance_on_file" db:"insurance_on_file"`
	PreferredLanes  []string `json:"preferred_lanes" db:"preferred_lanes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AsBroker converts a lead to a Broker value so the scorers, which take a
// Broker, can rank both populations uniformly. Per-carrier history fields
// stay at their zero values and OutreachStatus is left empty ("never
// contacted" for the target scorer).
func (l *BrokerLead) AsBroker() Broker {
	return Broker{
		ID:              l.ID,
		Name:            l.Name,
		MCNumber:        l.MCNumber,
		ContactEmail:    l.ContactEmail,
		ContactPhone:    l.ContactPhone,
		AddressState:    l.AddressState,
		CreditScore:     l.CreditScore,
		DaysToPay:       l.DaysToPay,
		AuthorityStatus: l.AuthorityStatus,
		InsuranceOnFile: l.InsuranceOnFile,
		PreferredLanes:  l.PreferredLanes,
		CreatedAt:       l.CreatedAt,
	}
}
