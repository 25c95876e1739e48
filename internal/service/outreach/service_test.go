package outreach_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/loadpoint/broker-outreach/internal/domain"
	"github.com/loadpoint/broker-outreach/internal/service/outreach"
)

// =============================================================================
// In-memory fakes
// =============================================================================

type memSteps struct {
	mu    sync.Mutex
	steps map[string]*domain.OutreachStep
}

func newMemSteps() *memSteps {
	return &memSteps{steps: make(map[string]*domain.OutreachStep)}
}

func (m *memSteps) CreateInitial(_ context.Context, step *domain.OutreachStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.steps {
		if s.CarrierID == step.CarrierID && s.BrokerID == step.BrokerID &&
			s.SequenceStep == 1 && s.Status != domain.StepCancelled {
			return outreach.ErrDuplicateOutreach
		}
	}
	cp := *step
	m.steps[cp.ID] = &cp
	return nil
}

func (m *memSteps) Create(_ context.Context, step *domain.OutreachStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *step
	m.steps[cp.ID] = &cp
	return nil
}

func (m *memSteps) Get(_ context.Context, id string) (*domain.OutreachStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.steps[id]
	if !ok {
		return nil, outreach.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSteps) ListDue(_ context.Context, before time.Time, limit int) ([]domain.OutreachStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OutreachStep
	for _, s := range m.steps {
		if s.Status == domain.StepScheduled && !s.ScheduledAt.After(before) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSteps) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.steps[id]
	if !ok || s.Status != domain.StepScheduled {
		return false, nil
	}
	s.Status = domain.StepSending
	return true, nil
}

func (m *memSteps) Release(_ context.Context, id string) error {
	return m.setStatus(id, domain.StepScheduled, "")
}

func (m *memSteps) MarkSent(_ context.Context, id, messageID string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.steps[id]
	if !ok || s.Status != domain.StepSending {
		return outreach.ErrNotFound
	}
	s.Status = domain.StepSent
	s.MessageID = messageID
	s.SentAt = &sentAt
	return nil
}

func (m *memSteps) MarkFailed(_ context.Context, id, reason string) error {
	return m.setStatus(id, domain.StepFailed, reason)
}

func (m *memSteps) MarkCancelled(_ context.Context, id, reason string) error {
	return m.setStatus(id, domain.StepCancelled, reason)
}

func (m *memSteps) MarkReplied(_ context.Context, id string) error {
	return m.setStatus(id, domain.StepReplied, "")
}

func (m *memSteps) setStatus(id string, status domain.StepStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.steps[id]
	if !ok {
		return outreach.ErrNotFound
	}
	s.Status = status
	if reason != "" {
		s.StatusReason = reason
	}
	return nil
}

func (m *memSteps) LatestSent(_ context.Context, carrierID, brokerID string) (*domain.OutreachStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.OutreachStep
	for _, s := range m.steps {
		if s.CarrierID != carrierID || s.BrokerID != brokerID || s.Status != domain.StepSent {
			continue
		}
		if latest == nil || (s.SentAt != nil && latest.SentAt != nil && s.SentAt.After(*latest.SentAt)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, outreach.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memSteps) CancelScheduled(_ context.Context, carrierID, brokerID, reason string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.steps {
		if s.CarrierID == carrierID && s.BrokerID == brokerID && s.Status == domain.StepScheduled {
			s.Status = domain.StepCancelled
			s.StatusReason = reason
			n++
		}
	}
	return n, nil
}

func (m *memSteps) byStatus(status domain.StepStatus) []*domain.OutreachStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OutreachStep
	for _, s := range m.steps {
		if s.Status == status {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out
}

type memBrokers struct {
	mu      sync.Mutex
	brokers map[string]*domain.Broker
}

func newMemBrokers(brokers ...*domain.Broker) *memBrokers {
	m := &memBrokers{brokers: make(map[string]*domain.Broker)}
	for _, b := range brokers {
		cp := *b
		m.brokers[b.ID] = &cp
	}
	return m
}

func (m *memBrokers) Get(_ context.Context, carrierID, brokerID string) (*domain.Broker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brokers[brokerID]
	if !ok || b.CarrierID != carrierID {
		return nil, outreach.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBrokers) RecordAttempt(_ context.Context, carrierID, brokerID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brokers[brokerID]
	if !ok {
		return outreach.ErrNotFound
	}
	b.TotalAttempts++
	b.LastContactAt = &at
	if b.FirstContactAt == nil {
		b.FirstContactAt = &at
	}
	if b.OutreachStatus == domain.OutreachNew || b.OutreachStatus == "" {
		b.OutreachStatus = domain.OutreachContacted
	}
	return nil
}

func (m *memBrokers) RecordResponse(_ context.Context, carrierID, brokerID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brokers[brokerID]
	if !ok {
		return outreach.ErrNotFound
	}
	b.TotalResponses++
	b.OutreachStatus = domain.OutreachResponded
	return nil
}

type memCarriers struct{ carrier *domain.CarrierProfile }

func (m *memCarriers) Get(_ context.Context, carrierID string) (*domain.CarrierProfile, error) {
	if m.carrier == nil || m.carrier.ID != carrierID {
		return nil, outreach.ErrNotFound
	}
	cp := *m.carrier
	return &cp, nil
}

type memTemplates struct{ tmpls []domain.FollowUpTemplate }

func (m *memTemplates) FollowUps(_ context.Context, category string) ([]domain.FollowUpTemplate, error) {
	return m.tmpls, nil
}

type fakeEmail struct {
	mu      sync.Mutex
	sent    []string // recipient addresses, in order
	fail    bool
	failFor map[string]bool
}

func (f *fakeEmail) Send(_ context.Context, to, from, subject, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.failFor[to] {
		return "", fmt.Errorf("provider rejected message to %s", to)
	}
	f.sent = append(f.sent, to)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeEmail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeVoice struct {
	mu     sync.Mutex
	placed []string
}

func (f *fakeVoice) PlaceCall(_ context.Context, toNumber, fromNumber, script string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, toNumber)
	return fmt.Sprintf("call-%d", len(f.placed)), nil
}

// =============================================================================
// Fixtures
// =============================================================================

const (
	testCarrier = "carrier-1"
	testBroker  = "broker-1"
)

func testBrokerRecord() *domain.Broker {
	return &domain.Broker{
		ID:           testBroker,
		CarrierID:    testCarrier,
		Name:         "Apex Logistics",
		MCNumber:     "MC100200",
		ContactEmail: "dispatch@apexlogistics.test",
		ContactPhone: "+12015550100",
		AddressState: "NJ",
	}
}

func testCarrierProfile() *domain.CarrierProfile {
	return &domain.CarrierProfile{
		ID:          testCarrier,
		Name:        "Garden State Haulers",
		HomeState:   "NJ",
		ContactFrom: "ops@gshaulers.test",
	}
}

type fixture struct {
	svc     *outreach.Service
	steps   *memSteps
	brokers *memBrokers
	email   *fakeEmail
	voice   *fakeVoice
	now     time.Time
}

func newFixture(t *testing.T, broker *domain.Broker, tmpls []domain.FollowUpTemplate) *fixture {
	t.Helper()
	f := &fixture{
		steps:   newMemSteps(),
		brokers: newMemBrokers(broker),
		email:   &fakeEmail{failFor: map[string]bool{}},
		voice:   &fakeVoice{},
		// A Wednesday at noon Eastern: inside every calling window.
		now: time.Date(2026, 8, 19, 16, 0, 0, 0, time.UTC),
	}
	f.svc = outreach.NewService(
		f.steps, f.brokers, &memCarriers{carrier: testCarrierProfile()},
		&memTemplates{tmpls: tmpls}, nil, f.email, f.voice,
	)
	f.svc.SetNow(func() time.Time { return f.now })
	return f
}

func initiateEmail(t *testing.T, f *fixture) *domain.OutreachStep {
	t.Helper()
	step, err := f.svc.Initiate(context.Background(), outreach.InitiateInput{
		CarrierID: testCarrier,
		BrokerID:  testBroker,
		Method:    domain.MethodEmail,
		Subject:   "Dry van capacity NJ-PA",
		Body:      "We run your lanes weekly.",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return step
}

// =============================================================================
// Initiation
// =============================================================================

func TestInitiateDispatchesAndFansOut(t *testing.T) {
	tmpls := []domain.FollowUpTemplate{
		{SequenceStep: 2, DelayDays: 3, Subject: "Following up", Body: "Checking in."},
		{SequenceStep: 3, DelayDays: 7, Subject: "Last touch", Body: "Still interested?"},
	}
	f := newFixture(t, testBrokerRecord(), tmpls)

	step := initiateEmail(t, f)

	if step.Status != domain.StepSent {
		t.Fatalf("step status = %s, want sent", step.Status)
	}
	if step.SequenceStep != 1 {
		t.Errorf("sequence_step = %d, want 1", step.SequenceStep)
	}
	if f.email.count() != 1 {
		t.Fatalf("emails sent = %d, want 1", f.email.count())
	}

	scheduled := f.steps.byStatus(domain.StepScheduled)
	if len(scheduled) != 2 {
		t.Fatalf("scheduled follow-ups = %d, want 2", len(scheduled))
	}
	for _, fu := range scheduled {
		if fu.ParentCampaignID == nil || *fu.ParentCampaignID != step.ID {
			t.Errorf("follow-up %d not linked to initial step", fu.SequenceStep)
		}
		wantDelay := map[int]int{2: 3, 3: 7}[fu.SequenceStep]
		if got := fu.ScheduledAt; !got.Equal(f.now.AddDate(0, 0, wantDelay)) {
			t.Errorf("follow-up %d scheduled_at = %v, want now+%dd", fu.SequenceStep, got, wantDelay)
		}
	}

	b, _ := f.brokers.Get(context.Background(), testCarrier, testBroker)
	if b.TotalAttempts != 1 {
		t.Errorf("attempts = %d, want 1", b.TotalAttempts)
	}
	if b.OutreachStatus != domain.OutreachContacted {
		t.Errorf("broker status = %s, want contacted", b.OutreachStatus)
	}
}

// sweepingSteps runs one full sweep cycle right after the initial insert,
// standing in for a sweeper instance firing between the insert and the
// synchronous dispatch.
type sweepingSteps struct {
	*memSteps
	svc *outreach.Service
	sum outreach.SweepSummary
	ran bool
}

func (w *sweepingSteps) CreateInitial(ctx context.Context, step *domain.OutreachStep) error {
	if err := w.memSteps.CreateInitial(ctx, step); err != nil {
		return err
	}
	if !w.ran {
		w.ran = true
		w.sum, _ = w.svc.Sweep(ctx)
	}
	return nil
}

func TestInitiateNotDoubledByOverlappingSweep(t *testing.T) {
	steps := &sweepingSteps{memSteps: newMemSteps()}
	email := &fakeEmail{failFor: map[string]bool{}}
	svc := outreach.NewService(
		steps, newMemBrokers(testBrokerRecord()), &memCarriers{carrier: testCarrierProfile()},
		&memTemplates{}, nil, email, &fakeVoice{},
	)
	svc.SetNow(func() time.Time { return time.Date(2026, 8, 19, 16, 0, 0, 0, time.UTC) })
	steps.svc = svc

	step, err := svc.Initiate(context.Background(), outreach.InitiateInput{
		CarrierID: testCarrier,
		BrokerID:  testBroker,
		Method:    domain.MethodEmail,
		Subject:   "Dry van capacity NJ-PA",
		Body:      "We run your lanes weekly.",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if step.Status != domain.StepSent {
		t.Fatalf("step status = %s, want sent", step.Status)
	}

	// The initial step is inserted already claimed, so the overlapping sweep
	// finds nothing due and exactly one email goes out.
	if steps.sum.Due != 0 {
		t.Errorf("overlapping sweep saw %d due steps, want 0", steps.sum.Due)
	}
	if email.count() != 1 {
		t.Fatalf("emails sent = %d, want 1", email.count())
	}
}

func TestInitiateDuplicateRejectedAsConflict(t *testing.T) {
	f := newFixture(t, testBrokerRecord(), nil)
	initiateEmail(t, f)

	_, err := f.svc.Initiate(context.Background(), outreach.InitiateInput{
		CarrierID: testCarrier,
		BrokerID:  testBroker,
		Method:    domain.MethodEmail,
		Body:      "second attempt",
	})
	if err != outreach.ErrDuplicateOutreach {
		t.Fatalf("expected ErrDuplicateOutreach, got %v", err)
	}

	// Exactly one step-1 record exists.
	count := 0
	for _, s := range f.steps.byStatus(domain.StepSent) {
		if s.SequenceStep == 1 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("step-1 records = %d, want 1", count)
	}
	if f.email.count() != 1 {
		t.Errorf("emails sent = %d, want 1", f.email.count())
	}
}

func TestInitiateValidation(t *testing.T) {
	f := newFixture(t, testBrokerRecord(), nil)

	cases := []outreach.InitiateInput{
		{BrokerID: testBroker, Method: domain.MethodEmail, Body: "x"},           // no carrier
		{CarrierID: testCarrier, Method: domain.MethodEmail, Body: "x"},         // no broker
		{CarrierID: testCarrier, BrokerID: testBroker, Method: "fax", Body: "x"}, // bad method
		{CarrierID: testCarrier, BrokerID: testBroker, Method: domain.MethodEmail}, // no body
	}
	for i, in := range cases {
		_, err := f.svc.Initiate(context.Background(), in)
		if err == nil || !strings.Contains(err.Error(), "invalid input") {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestInitiateBlacklistedBroker(t *testing.T) {
	b := testBrokerRecord()
	b.OutreachStatus = domain.OutreachBlacklisted
	f := newFixture(t, b, nil)

	_, err := f.svc.Initiate(context.Background(), outreach.InitiateInput{
		CarrierID: testCarrier,
		BrokerID:  testBroker,
		Method:    domain.MethodEmail,
		Body:      "hello",
	})
	if err != outreach.ErrBrokerBlacklisted {
		t.Fatalf("expected ErrBrokerBlacklisted, got %v", err)
	}
	if f.email.count() != 0 {
		t.Error("no email should go to a blacklisted broker")
	}
}

func TestInitiateDeliveryFailureRecordedNotRetried(t *testing.T) {
	tmpls := []domain.FollowUpTemplate{{SequenceStep: 2, DelayDays: 3, Body: "ping"}}
	f := newFixture(t, testBrokerRecord(), tmpls)
	f.email.fail = true

	step := initiateEmail(t, f)
	if step.Status != domain.StepFailed {
		t.Fatalf("step status = %s, want failed", step.Status)
	}
	if !strings.Contains(step.StatusReason, "provider rejected") {
		t.Errorf("reason = %q, want provider message", step.StatusReason)
	}
	// No fan-out after a failed initial send.
	if got := f.steps.byStatus(domain.StepScheduled); len(got) != 0 {
		t.Errorf("scheduled follow-ups = %d, want 0", len(got))
	}
	// Counters untouched on failure.
	b, _ := f.brokers.Get(context.Background(), testCarrier, testBroker)
	if b.TotalAttempts != 0 {
		t.Errorf("attempts = %d, want 0", b.TotalAttempts)
	}
}

// =============================================================================
// Sweep
// =============================================================================

func scheduleStep(f *fixture, id string, method domain.ContactMethod, at time.Time) {
	f.steps.Create(context.Background(), &domain.OutreachStep{
		ID:           id,
		CarrierID:    testCarrier,
		BrokerID:     testBroker,
		SequenceStep: 2,
		Method:       method,
		Status:       domain.StepScheduled,
		Subject:      "Following up",
		Body:         "Checking in.",
		ScheduledAt:  at,
	})
}

func TestSweepSendsDueSteps(t *testing.T) {
	f := newFixture(t, testBrokerRecord(), nil)
	scheduleStep(f, "due-1", domain.MethodEmail, f.now.Add(-time.Hour))
	scheduleStep(f, "future-1", domain.MethodEmail, f.now.Add(24*time.Hour))

	sum, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sum.Due != 1 || sum.Sent != 1 {
		t.Fatalf("summary = %+v, want Due=1 Sent=1", sum)
	}
	if f.email.count() != 1 {
		t.Errorf("emails sent = %d, want 1", f.email.count())
	}

	// The future step is untouched.
	s, _ := f.steps.Get(context.Background(), "future-1")
	if s.Status != domain.StepScheduled {
		t.Errorf("future step status = %s, want scheduled", s.Status)
	}

	b, _ := f.brokers.Get(context.Background(), testCarrier, testBroker)
	if b.TotalAttempts != 1 || b.LastContactAt == nil {
		t.Errorf("broker counters not updated after send: %+v", b)
	}
}

func TestSweepCancelsBlacklistedWithoutDelivery(t *testing.T) {
	b := testBrokerRecord()
	b.OutreachStatus = domain.OutreachBlacklisted
	f := newFixture(t, b, nil)
	scheduleStep(f, "due-1", domain.MethodEmail, f.now.Add(-time.Hour))

	sum, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sum.Cancelled != 1 {
		t.Fatalf("summary = %+v, want Cancelled=1", sum)
	}
	if f.email.count() != 0 {
		t.Error("delivery must not be attempted for a blacklisted broker")
	}
	s, _ := f.steps.Get(context.Background(), "due-1")
	if s.Status != domain.StepCancelled || !strings.Contains(s.StatusReason, "blacklisted") {
		t.Errorf("step = %s/%q, want cancelled with blacklisted reason", s.Status, s.StatusReason)
	}
}

func TestSweepFailsStepWithNoContactInfo(t *testing.T) {
	b := testBrokerRecord()
	b.ContactEmail = ""
	f := newFixture(t, b, nil)
	scheduleStep(f, "due-1", domain.MethodEmail, f.now.Add(-time.Hour))

	sum, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sum.Failed != 1 {
		t.Fatalf("summary = %+v, want Failed=1", sum)
	}
	s, _ := f.steps.Get(context.Background(), "due-1")
	if s.Status != domain.StepFailed || !strings.Contains(s.StatusReason, "no contact info") {
		t.Errorf("step = %s/%q, want failed with missing contact reason", s.Status, s.StatusReason)
	}
	// Counters unchanged when nothing was dispatched.
	got, _ := f.brokers.Get(context.Background(), testCarrier, testBroker)
	if got.TotalAttempts != 0 {
		t.Errorf("attempts = %d, want 0", got.TotalAttempts)
	}
}

func TestSweepCancelsAfterResponse(t *testing.T) {
	b := testBrokerRecord()
	b.OutreachStatus = domain.OutreachResponded
	f := newFixture(t, b, nil)
	scheduleStep(f, "due-1", domain.MethodEmail, f.now.Add(-time.Hour))

	sum, _ := f.svc.Sweep(context.Background())
	if sum.Cancelled != 1 {
		t.Fatalf("summary = %+v, want Cancelled=1", sum)
	}
	s, _ := f.steps.Get(context.Background(), "due-1")
	if !strings.Contains(s.StatusReason, "already responded") {
		t.Errorf("reason = %q, want already responded", s.StatusReason)
	}
}

func TestSweepSkipsStepClaimedElsewhere(t *testing.T) {
	f := newFixture(t, testBrokerRecord(), nil)
	scheduleStep(f, "due-1", domain.MethodEmail, f.now.Add(-time.Hour))

	// Simulate a concurrent sweep holding the claim between our ListDue and
	// Claim: flip the step to sending directly.
	f.steps.Claim(context.Background(), "due-1")

	sum, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	// ListDue no longer returns it, so nothing is due; either way no send.
	if sum.Sent != 0 || f.email.count() != 0 {
		t.Fatalf("claimed step must not be double-sent, summary = %+v", sum)
	}
}

func TestSweepDefersCallOutsideWindow(t *testing.T) {
	f := newFixture(t, testBrokerRecord(), nil)
	// 03:00 Eastern: far too early to call NJ.
	f.now = time.Date(2026, 8, 19, 7, 0, 0, 0, time.UTC)
	scheduleStep(f, "due-1", domain.MethodCall, f.now.Add(-time.Hour))

	sum, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sum.Skipped != 1 || sum.Sent != 0 {
		t.Fatalf("summary = %+v, want Skipped=1", sum)
	}
	if len(f.voice.placed) != 0 {
		t.Error("no call may be placed outside the window")
	}
	// Step goes back to scheduled for a later sweep.
	s, _ := f.steps.Get(context.Background(), "due-1")
	if s.Status != domain.StepScheduled {
		t.Errorf("step status = %s, want scheduled", s.Status)
	}

	// Same sweep at noon Eastern dispatches the call.
	f.now = time.Date(2026, 8, 19, 16, 0, 0, 0, time.UTC)
	sum, _ = f.svc.Sweep(context.Background())
	if sum.Sent != 1 || len(f.voice.placed) != 1 {
		t.Fatalf("summary = %+v, placed = %d, want one call", sum, len(f.voice.placed))
	}
}

func TestSweepIsolatesPerStepFailures(t *testing.T) {
	broker2 := testBrokerRecord()
	broker2.ID = "broker-2"
	broker2.ContactEmail = "billing@second.test"

	f := newFixture(t, testBrokerRecord(), nil)
	f.brokers.brokers[broker2.ID] = broker2
	f.email.failFor["dispatch@apexlogistics.test"] = true

	scheduleStep(f, "due-1", domain.MethodEmail, f.now.Add(-2*time.Hour))
	f.steps.Create(context.Background(), &domain.OutreachStep{
		ID: "due-2", CarrierID: testCarrier, BrokerID: "broker-2",
		SequenceStep: 2, Method: domain.MethodEmail, Status: domain.StepScheduled,
		Body: "hello", ScheduledAt: f.now.Add(-time.Hour),
	})

	sum, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sum.Failed != 1 || sum.Sent != 1 {
		t.Fatalf("summary = %+v, want one failed and one sent", sum)
	}
}

// =============================================================================
// Response handling
// =============================================================================

func TestMarkRespondedCancelsRemainingSteps(t *testing.T) {
	tmpls := []domain.FollowUpTemplate{
		{SequenceStep: 2, DelayDays: 3, Body: "ping"},
		{SequenceStep: 3, DelayDays: 7, Body: "ping again"},
	}
	f := newFixture(t, testBrokerRecord(), tmpls)
	initial := initiateEmail(t, f)

	res, err := f.svc.MarkResponded(context.Background(), testCarrier, testBroker)
	if err != nil {
		t.Fatalf("mark responded: %v", err)
	}
	if res.Cancelled != 2 {
		t.Fatalf("cancelled = %d, want 2", res.Cancelled)
	}

	s, _ := f.steps.Get(context.Background(), initial.ID)
	if s.Status != domain.StepReplied {
		t.Errorf("initial step status = %s, want replied", s.Status)
	}

	// A later sweep has nothing left to dispatch.
	sum, _ := f.svc.Sweep(context.Background())
	if sum.Due != 0 || f.email.count() != 1 {
		t.Fatalf("post-response sweep dispatched steps: %+v", sum)
	}

	b, _ := f.brokers.Get(context.Background(), testCarrier, testBroker)
	if b.OutreachStatus != domain.OutreachResponded {
		t.Errorf("broker status = %s, want responded", b.OutreachStatus)
	}
	if b.TotalResponses != 1 {
		t.Errorf("responses = %d, want 1", b.TotalResponses)
	}
}

func TestMarkRespondedWithoutLiveSteps(t *testing.T) {
	f := newFixture(t, testBrokerRecord(), nil)

	res, err := f.svc.MarkResponded(context.Background(), testCarrier, testBroker)
	if err != nil {
		t.Fatalf("mark responded: %v", err)
	}
	if res.Cancelled != 0 || res.RepliedStepID != "" {
		t.Errorf("result = %+v, want empty", res)
	}
	b, _ := f.brokers.Get(context.Background(), testCarrier, testBroker)
	if b.OutreachStatus != domain.OutreachResponded {
		t.Errorf("broker status = %s, want responded", b.OutreachStatus)
	}
}
