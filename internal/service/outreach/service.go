package outreach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loadpoint/broker-outreach/internal/compliance"
	"github.com/loadpoint/broker-outreach/internal/domain"
	"github.com/loadpoint/broker-outreach/internal/pkg/logger"
)

const (
	// SweepBatchSize bounds how many due steps one sweep cycle processes.
	SweepBatchSize = 100

	// DefaultTemplateCategory is the follow-up sequence used when the caller
	// doesn't name one.
	DefaultTemplateCategory = "standard"
)

// Service coordinates the outreach sequence lifecycle. All methods are safe
// for concurrent use if the underlying repositories are concurrency-safe.
type Service struct {
	steps     StepRepository
	brokers   BrokerDirectory
	carriers  CarrierDirectory
	templates TemplateSource
	renderer  Renderer
	email     EmailSender
	voice     CallPlacer

	now func() time.Time
}

// NewService creates an outreach service wired to the given collaborators.
func NewService(steps StepRepository, brokers BrokerDirectory, carriers CarrierDirectory, templates TemplateSource, renderer Renderer, email EmailSender, voice CallPlacer) *Service {
	return &Service{
		steps:     steps,
		brokers:   brokers,
		carriers:  carriers,
		templates: templates,
		renderer:  renderer,
		email:     email,
		voice:     voice,
		now:       time.Now,
	}
}

// SetNow overrides the clock. Tests only.
func (s *Service) SetNow(now func() time.Time) { s.now = now }

// InitiateInput holds the fields for starting an outreach sequence.
type InitiateInput struct {
	CarrierID string               `json:"carrier_id"`
	BrokerID  string               `json:"broker_id"`
	Method    domain.ContactMethod `json:"method"`
	Subject   string               `json:"subject"`
	Body      string               `json:"body"`
	Category  string               `json:"category"`
}

// Initiate creates and dispatches step 1 for a carrier/broker pair, then
// fans out the scheduled follow-up sequence. A second initiation for the
// same pair is rejected with ErrDuplicateOutreach. The returned step carries
// the dispatch outcome: sent, or failed with the provider's reason.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (*domain.OutreachStep, error) {
	if in.CarrierID == "" {
		return nil, fmt.Errorf("%w: carrier_id is required", ErrInvalidInput)
	}
	if in.BrokerID == "" {
		return nil, fmt.Errorf("%w: broker_id is required", ErrInvalidInput)
	}
	if in.Method != domain.MethodEmail && in.Method != domain.MethodCall {
		return nil, fmt.Errorf("%w: method must be email or call", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	if in.Category == "" {
		in.Category = DefaultTemplateCategory
	}

	broker, err := s.brokers.Get(ctx, in.CarrierID, in.BrokerID)
	if err != nil {
		return nil, err
	}
	if broker.OutreachStatus == domain.OutreachBlacklisted {
		return nil, ErrBrokerBlacklisted
	}

	carrier, err := s.carriers.Get(ctx, in.CarrierID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	vars := templateVars(broker, carrier)
	step := &domain.OutreachStep{
		ID:           uuid.New().String(),
		CarrierID:    in.CarrierID,
		BrokerID:     in.BrokerID,
		SequenceStep: 1,
		Method:       in.Method,
		Status:       domain.StepSending,
		Subject:      s.render(in.Subject, vars),
		Body:         s.render(in.Body, vars),
		ScheduledAt:  now,
	}

	// Conditional insert enforces at-most-one live initial step per pair. The
	// step is born already claimed (sending) because it is dispatched in this
	// same call; an overlapping sweep never sees it as due.
	if err := s.steps.CreateInitial(ctx, step); err != nil {
		return nil, err
	}

	s.dispatch(ctx, step, broker, carrier)
	if step.Status != domain.StepSent {
		return step, nil
	}

	s.fanOutFollowUps(ctx, step, in.Category, vars)
	return step, nil
}

// fanOutFollowUps inserts one scheduled step per follow-up template. Each
// insert is best-effort: a failed insert is logged and the rest continue.
func (s *Service) fanOutFollowUps(ctx context.Context, initial *domain.OutreachStep, category string, vars map[string]any) {
	tmpls, err := s.templates.FollowUps(ctx, category)
	if err != nil {
		logger.Warn("follow-up template fetch failed", "category", category, "error", err.Error())
		return
	}

	now := s.now()
	for _, tmpl := range tmpls {
		parentID := initial.ID
		method := tmpl.Method
		if method == "" {
			method = initial.Method
		}
		follow := &domain.OutreachStep{
			ID:               uuid.New().String(),
			CarrierID:        initial.CarrierID,
			BrokerID:         initial.BrokerID,
			ParentCampaignID: &parentID,
			SequenceStep:     tmpl.SequenceStep,
			Method:           method,
			Status:           domain.StepScheduled,
			Subject:          s.render(tmpl.Subject, vars),
			Body:             s.render(tmpl.Body, vars),
			ScheduledAt:      now.AddDate(0, 0, tmpl.DelayDays),
		}
		if err := s.steps.Create(ctx, follow); err != nil {
			logger.Warn("follow-up insert failed", "parent", initial.ID, "sequence_step", fmt.Sprint(tmpl.SequenceStep), "error", err.Error())
		}
	}
}

// SweepSummary reports what one sweep cycle did.
type SweepSummary struct {
	Due       int `json:"due"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Sweep processes all due scheduled steps, bounded by SweepBatchSize. It is
// safe to invoke concurrently or repeatedly: each step is claimed with a
// conditional update before any delivery attempt, and each step is handled
// independently so one failure never aborts the batch.
func (s *Service) Sweep(ctx context.Context) (SweepSummary, error) {
	var sum SweepSummary

	due, err := s.steps.ListDue(ctx, s.now(), SweepBatchSize)
	if err != nil {
		return sum, fmt.Errorf("list due steps: %w", err)
	}
	sum.Due = len(due)

	for i := range due {
		step := &due[i]
		s.processDueStep(ctx, step, &sum)
	}
	return sum, nil
}

func (s *Service) processDueStep(ctx context.Context, step *domain.OutreachStep, sum *SweepSummary) {
	claimed, err := s.steps.Claim(ctx, step.ID)
	if err != nil {
		logger.Error("step claim failed", "step", step.ID, "error", err.Error())
		sum.Errors++
		return
	}
	if !claimed {
		// Another sweep already owns it.
		sum.Skipped++
		return
	}

	broker, err := s.brokers.Get(ctx, step.CarrierID, step.BrokerID)
	if err != nil {
		logger.Error("broker lookup failed during sweep", "step", step.ID, "error", err.Error())
		if rErr := s.steps.Release(ctx, step.ID); rErr != nil {
			logger.Error("step release failed", "step", step.ID, "error", rErr.Error())
		}
		sum.Errors++
		return
	}

	// Cancellation precedence, checked before any delivery attempt.
	switch {
	case !hasContactFor(broker, step.Method):
		s.mark(ctx, sum, step, domain.StepFailed, "no contact info on file")
	case broker.OutreachStatus == domain.OutreachResponded || broker.OutreachStatus == domain.OutreachActive:
		s.mark(ctx, sum, step, domain.StepCancelled, "already responded")
	case broker.OutreachStatus == domain.OutreachBlacklisted:
		s.mark(ctx, sum, step, domain.StepCancelled, "broker blacklisted")
	default:
		s.dispatchClaimed(ctx, step, broker, sum)
	}
}

func (s *Service) dispatchClaimed(ctx context.Context, step *domain.OutreachStep, broker *domain.Broker, sum *SweepSummary) {
	// Calls are gated by the state calling window; email is not. A gated
	// call goes back to scheduled so a later sweep retries inside the window.
	if step.Method == domain.MethodCall {
		if window := compliance.Check(broker.AddressState, s.now()); !window.Allowed {
			logger.Info("call deferred by calling window", "step", step.ID, "reason", window.Reason)
			if err := s.steps.Release(ctx, step.ID); err != nil {
				logger.Error("step release failed", "step", step.ID, "error", err.Error())
				sum.Errors++
				return
			}
			sum.Skipped++
			return
		}
	}

	carrier, err := s.carriers.Get(ctx, step.CarrierID)
	if err != nil {
		logger.Error("carrier lookup failed during sweep", "step", step.ID, "error", err.Error())
		if rErr := s.steps.Release(ctx, step.ID); rErr != nil {
			logger.Error("step release failed", "step", step.ID, "error", rErr.Error())
		}
		sum.Errors++
		return
	}

	s.dispatch(ctx, step, broker, carrier)
	switch step.Status {
	case domain.StepSent:
		sum.Sent++
	default:
		sum.Failed++
	}
}

// dispatch attempts delivery and records the outcome on the step. Delivery
// failure is recorded, not returned: a DeliveryError lives on the step.
// Broker contact counters are touched only on success.
func (s *Service) dispatch(ctx context.Context, step *domain.OutreachStep, broker *domain.Broker, carrier *domain.CarrierProfile) {
	now := s.now()

	var messageID string
	var err error
	switch step.Method {
	case domain.MethodCall:
		messageID, err = s.voice.PlaceCall(ctx, broker.ContactPhone, carrier.ContactFrom, step.Body)
	default:
		messageID, err = s.email.Send(ctx, broker.ContactEmail, carrier.ContactFrom, step.Subject, step.Body)
	}

	if err != nil {
		step.Status = domain.StepFailed
		step.StatusReason = err.Error()
		if mErr := s.steps.MarkFailed(ctx, step.ID, err.Error()); mErr != nil {
			logger.Error("mark failed errored", "step", step.ID, "error", mErr.Error())
		}
		return
	}

	step.Status = domain.StepSent
	step.MessageID = messageID
	step.SentAt = &now
	if mErr := s.steps.MarkSent(ctx, step.ID, messageID, now); mErr != nil {
		logger.Error("mark sent errored", "step", step.ID, "error", mErr.Error())
	}
	if aErr := s.brokers.RecordAttempt(ctx, step.CarrierID, step.BrokerID, now); aErr != nil {
		logger.Error("record attempt errored", "broker", step.BrokerID, "error", aErr.Error())
	}
}

func (s *Service) mark(ctx context.Context, sum *SweepSummary, step *domain.OutreachStep, status domain.StepStatus, reason string) {
	var err error
	switch status {
	case domain.StepFailed:
		err = s.steps.MarkFailed(ctx, step.ID, reason)
		sum.Failed++
	case domain.StepCancelled:
		err = s.steps.MarkCancelled(ctx, step.ID, reason)
		sum.Cancelled++
	}
	if err != nil {
		logger.Error("step status update failed", "step", step.ID, "status", string(status), "error", err.Error())
		sum.Errors++
	}
	step.Status = status
	step.StatusReason = reason
}

// ResponseResult reports what MarkResponded changed.
type ResponseResult struct {
	RepliedStepID string `json:"replied_step_id,omitempty"`
	Cancelled     int    `json:"cancelled_steps"`
}

// MarkResponded records an inbound reply from a broker: every remaining
// scheduled step for the pair is cancelled so no further automated contact
// goes out, and the most recently sent step becomes replied.
func (s *Service) MarkResponded(ctx context.Context, carrierID, brokerID string) (*ResponseResult, error) {
	if carrierID == "" || brokerID == "" {
		return nil, fmt.Errorf("%w: carrier_id and broker_id are required", ErrInvalidInput)
	}

	res := &ResponseResult{}

	// Cancel the remainder of the sequence first so a concurrent sweep can't
	// pick up a follow-up while we attach the reply.
	n, err := s.steps.CancelScheduled(ctx, carrierID, brokerID, "already responded")
	if err != nil {
		return nil, fmt.Errorf("cancel scheduled steps: %w", err)
	}
	res.Cancelled = n

	latest, err := s.steps.LatestSent(ctx, carrierID, brokerID)
	switch {
	case err == nil:
		if err := s.steps.MarkReplied(ctx, latest.ID); err != nil {
			return nil, fmt.Errorf("mark replied: %w", err)
		}
		res.RepliedStepID = latest.ID
	case errors.Is(err, ErrNotFound):
		// A reply can land before anything went out; there is nothing to
		// attach it to, but the broker still moves to responded.
	default:
		return nil, err
	}

	if err := s.brokers.RecordResponse(ctx, carrierID, brokerID, s.now()); err != nil {
		return nil, fmt.Errorf("record response: %w", err)
	}
	return res, nil
}

func (s *Service) render(src string, vars map[string]any) string {
	if s.renderer == nil || src == "" {
		return src
	}
	out, err := s.renderer.Render(src, vars)
	if err != nil {
		// Lax rendering: a broken template goes out as-written rather than
		// blocking the send.
		logger.Warn("template render failed", "error", err.Error())
		return src
	}
	return out
}

func templateVars(b *domain.Broker, c *domain.CarrierProfile) map[string]any {
	return map[string]any{
		"broker_name":  b.Name,
		"broker_state": b.AddressState,
		"mc_number":    b.MCNumber,
		"carrier_name": c.Name,
		"home_state":   c.HomeState,
		"equipment":    strings.Join(c.EquipmentTypes, ", "),
		"lanes":        strings.Join(c.PreferredLanes, ", "),
	}
}

func hasContactFor(b *domain.Broker, m domain.ContactMethod) bool {
	if m == domain.MethodCall {
		return b.HasContactPhone()
	}
	return b.HasContactEmail()
}
