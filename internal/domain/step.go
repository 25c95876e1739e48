package domain

import "time"

// StepStatus enumerates the lifecycle states of a single outreach step.
type StepStatus string

const (
	StepScheduled StepStatus = "scheduled"
	// StepSending is the transient claim state: a sweep sets it before
	// attempting delivery, and an initial step is born in it because
	// initiation dispatches synchronously. A sweep seeing it skips the step.
	StepSending   StepStatus = "sending"
	StepSent      StepStatus = "sent"
	StepFailed    StepStatus = "failed"
	StepReplied   StepStatus = "replied"
	StepCancelled StepStatus = "cancelled"
)

// IsTerminal reports whether the step can no longer change state.
func (s StepStatus) IsTerminal() bool {
	return s == StepFailed || s == StepReplied || s == StepCancelled
}

// CanTransitionTo reports whether moving from s to next is a valid step
// status change.
func (s StepStatus) CanTransitionTo(next StepStatus) bool {
	switch s {
	case StepScheduled:
		return next == StepSending || next == StepCancelled
	case StepSending:
		return next == StepSent || next == StepFailed || next == StepScheduled || next == StepCancelled
	case StepSent:
		return next == StepReplied
	}
	return false
}

// ContactMethod enumerates how an outreach step is delivered.
type ContactMethod string

const (
	MethodEmail ContactMethod = "email"
	MethodCall  ContactMethod = "call"
)

// OutreachStep is one scheduled or executed contact attempt in a sequence.
// Step 1 is the initial outreach; steps 2..N are follow-ups referencing the
// initiating step through ParentCampaignID. Steps are never physically
// deleted, only transitioned.
type OutreachStep struct {
	ID               string        `json:"id" db:"id"`
	CarrierID        string        `json:"carrier_id" db:"carrier_id"`
	BrokerID         string        `json:"broker_id" db:"broker_id"`
	ParentCampaignID *string       `json:"parent_campaign_id" db:"parent_campaign_id"`
	SequenceStep     int           `json:"sequence_step" db:"sequence_step"`
	Method           ContactMethod `json:"method" db:"method"`
	Status           StepStatus    `json:"status" db:"status"`

	Subject string `json:"subject" db:"subject"`
	Body    string `json:"body" db:"body"`

	ScheduledAt  time.Time  `json:"scheduled_at" db:"scheduled_at"`
	SentAt       *time.Time `json:"sent_at" db:"sent_at"`
	StatusReason string     `json:"status_reason" db:"status_reason"`
	MessageID    string     `json:"message_id" db:"message_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FollowUpTemplate is one entry in an ordered follow-up sequence. DelayDays
// offsets the follow-up from the moment the initial outreach was sent.
type FollowUpTemplate struct {
	ID           string        `json:"id" db:"id"`
	Category     string        `json:"category" db:"category"`
	SequenceStep int           `json:"sequence_step" db:"sequence_step"`
	DelayDays    int           `json:"delay_days" db:"delay_days"`
	Method       ContactMethod `json:"method" db:"method"`
	Subject      string        `json:"subject" db:"subject"`
	Body         string        `json:"body" db:"body"`
}
