package outreach

import (
	"context"
	"time"

	"github.com/loadpoint/broker-outreach/internal/domain"
)

// StepRepository defines the data access contract for outreach steps.
// Implementations must be safe for concurrent use and must back CreateInitial
// and Claim with conditional writes, not check-then-act reads.
type StepRepository interface {
	// CreateInitial inserts a sequence_step=1 record. Returns
	// ErrDuplicateOutreach if a non-cancelled initial step already exists for
	// the same carrier/broker pair (unique-constraint semantics, not a
	// select-then-insert). Initiation passes the step already in the sending
	// state since it dispatches within the same operation.
	CreateInitial(ctx context.Context, step *domain.OutreachStep) error

	// Create inserts a follow-up step. Fan-out callers treat each insert as
	// best-effort.
	Create(ctx context.Context, step *domain.OutreachStep) error

	// Get returns a single step.
	Get(ctx context.Context, id string) (*domain.OutreachStep, error)

	// ListDue returns scheduled steps with scheduled_at <= before, oldest
	// first, bounded by limit.
	ListDue(ctx context.Context, before time.Time, limit int) ([]domain.OutreachStep, error)

	// Claim conditionally transitions scheduled -> sending. Returns false if
	// the step was no longer in scheduled state (another sweep got it).
	Claim(ctx context.Context, id string) (bool, error)

	// Release returns a claimed step to scheduled without touching
	// scheduled_at, so a later sweep retries it.
	Release(ctx context.Context, id string) error

	// MarkSent records a successful dispatch, completing the sending -> sent
	// transition. A row in any other state returns ErrNotFound.
	MarkSent(ctx context.Context, id, messageID string, sentAt time.Time) error

	// MarkFailed records a failed or undeliverable dispatch with the reason.
	MarkFailed(ctx context.Context, id, reason string) error

	// MarkCancelled cancels a single claimed or scheduled step.
	MarkCancelled(ctx context.Context, id, reason string) error

	// MarkReplied transitions a sent step to replied.
	MarkReplied(ctx context.Context, id string) error

	// LatestSent returns the most recently sent step for the pair, or
	// ErrNotFound if nothing has gone out yet.
	LatestSent(ctx context.Context, carrierID, brokerID string) (*domain.OutreachStep, error)

	// CancelScheduled cancels every remaining scheduled step for the pair in
	// one logical operation and returns how many were cancelled.
	CancelScheduled(ctx context.Context, carrierID, brokerID, reason string) (int, error)
}

// BrokerDirectory is the slice of broker persistence the scheduler needs.
type BrokerDirectory interface {
	// Get returns a broker within a carrier's CRM. Returns ErrNotFound if absent.
	Get(ctx context.Context, carrierID, brokerID string) (*domain.Broker, error)

	// RecordAttempt bumps the outreach attempt counter, stamps contact dates,
	// and moves a new broker to contacted.
	RecordAttempt(ctx context.Context, carrierID, brokerID string, at time.Time) error

	// RecordResponse bumps the response counter, rederives response_rate, and
	// moves the broker to responded.
	RecordResponse(ctx context.Context, carrierID, brokerID string, at time.Time) error
}

// CarrierDirectory resolves carrier profiles for from-addresses and
// personalization.
type CarrierDirectory interface {
	Get(ctx context.Context, carrierID string) (*domain.CarrierProfile, error)
}

// TemplateSource supplies the ordered follow-up sequence for a category.
// An empty result is not an error; it simply yields zero follow-ups.
type TemplateSource interface {
	FollowUps(ctx context.Context, category string) ([]domain.FollowUpTemplate, error)
}

// EmailSender delivers a single outreach email.
type EmailSender interface {
	Send(ctx context.Context, to, from, subject, body string) (messageID string, err error)
}

// CallPlacer places a single outreach call.
type CallPlacer interface {
	PlaceCall(ctx context.Context, toNumber, fromNumber, script string) (callID string, err error)
}

// Renderer personalizes template subject/body text with broker and carrier
// fields before a step is stored.
type Renderer interface {
	Render(src string, vars map[string]any) (string, error)
}
