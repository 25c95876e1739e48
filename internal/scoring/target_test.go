package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loadpoint/broker-outreach/internal/domain"
)

func njCarrier() *domain.CarrierProfile {
	return &domain.CarrierProfile{HomeState: "NJ"}
}

func TestTargetScoreBase(t *testing.T) {
	// A broker with zero signals in a far state: base 50 + 5 for never
	// contacted (empty status).
	b := &domain.Broker{AddressState: "CA"}
	res := TargetScore(b, njCarrier())
	assert.Equal(t, 55, res.Score)
	assert.Equal(t, []string{"never contacted"}, res.Reasons)
}

func TestTargetScoreGeography(t *testing.T) {
	carrier := njCarrier()

	same := &domain.Broker{AddressState: "NJ", OutreachStatus: domain.OutreachContacted}
	assert.Equal(t, 70, TargetScore(same, carrier).Score) // 50+20

	neighbor := &domain.Broker{AddressState: "PA", OutreachStatus: domain.OutreachContacted}
	assert.Equal(t, 60, TargetScore(neighbor, carrier).Score) // 50+10

	far := &domain.Broker{AddressState: "TX", OutreachStatus: domain.OutreachContacted}
	assert.Equal(t, 50, TargetScore(far, carrier).Score)
}

func TestTargetScoreLaneOverlap(t *testing.T) {
	carrier := njCarrier()
	carrier.PreferredLanes = []string{"NJ-PA", "NJ-OH"}

	b := &domain.Broker{
		AddressState:   "TX",
		OutreachStatus: domain.OutreachContacted,
		PreferredLanes: []string{"NJ-PA"},
	}
	// One matching lane: 50+10.
	assert.Equal(t, 60, TargetScore(b, carrier).Score)

	// Substring containment matches in either direction.
	b.PreferredLanes = []string{"NJ-PA-EXPEDITED", "OH"}
	res := TargetScore(b, carrier)
	// "NJ-PA" is contained in "NJ-PA-EXPEDITED"; "OH" is contained in "NJ-OH".
	assert.Equal(t, 70, res.Score)
	assert.Contains(t, res.Reasons, "runs preferred lane NJ-PA")
	assert.Contains(t, res.Reasons, "runs preferred lane NJ-OH")
}

func TestTargetScoreCreditAndPay(t *testing.T) {
	carrier := njCarrier()
	contacted := domain.OutreachContacted

	strong := &domain.Broker{AddressState: "TX", OutreachStatus: contacted, CreditScore: intp(92)}
	assert.Equal(t, 60, TargetScore(strong, carrier).Score) // +10

	weak := &domain.Broker{AddressState: "TX", OutreachStatus: contacted, CreditScore: intp(70)}
	assert.Equal(t, 35, TargetScore(weak, carrier).Score) // -15

	mid := &domain.Broker{AddressState: "TX", OutreachStatus: contacted, CreditScore: intp(85)}
	assert.Equal(t, 50, TargetScore(mid, carrier).Score) // neither

	fast := &domain.Broker{AddressState: "TX", OutreachStatus: contacted, DaysToPay: intp(12)}
	assert.Equal(t, 60, TargetScore(fast, carrier).Score) // +10

	slow := &domain.Broker{AddressState: "TX", OutreachStatus: contacted, DaysToPay: intp(60)}
	assert.Equal(t, 45, TargetScore(slow, carrier).Score) // -5
}

func TestTargetScoreHistorySignals(t *testing.T) {
	carrier := njCarrier()

	booked := &domain.Broker{AddressState: "TX", OutreachStatus: domain.OutreachActive, TotalLoads: 3}
	assert.Equal(t, 65, TargetScore(booked, carrier).Score) // 50 + 5*3

	responsive := &domain.Broker{AddressState: "TX", OutreachStatus: domain.OutreachResponded, ResponseRate: floatp(75)}
	assert.Equal(t, 60, TargetScore(responsive, carrier).Score) // +10
}

func TestTargetScoreClampedHigh(t *testing.T) {
	carrier := njCarrier()
	carrier.PreferredLanes = []string{"NJ-PA", "NJ-NY", "NJ-DE"}

	b := &domain.Broker{
		AddressState:    "NJ",
		AuthorityStatus: "active",
		CreditScore:     intp(98),
		DaysToPay:       intp(5),
		TotalLoads:      12,
		ResponseRate:    floatp(90),
		PreferredLanes:  []string{"NJ-PA", "NJ-NY", "NJ-DE"},
	}
	res := TargetScore(b, carrier)
	assert.Equal(t, 100, res.Score)
}

func TestTargetScoreClampedLow(t *testing.T) {
	b := &domain.Broker{
		AddressState:   "TX",
		OutreachStatus: domain.OutreachBlacklisted,
		CreditScore:    intp(20),
		DaysToPay:      intp(90),
	}
	res := TargetScore(b, njCarrier())
	assert.GreaterOrEqual(t, res.Score, 0)
	assert.Equal(t, 30, res.Score) // 50-15-5
}

func TestTargetScoreReasonOrdering(t *testing.T) {
	carrier := njCarrier()
	carrier.PreferredLanes = []string{"NJ-PA"}

	b := &domain.Broker{
		AddressState:    "NJ",
		AuthorityStatus: "active",
		OutreachStatus:  domain.OutreachContacted,
		CreditScore:     intp(95),
		DaysToPay:       intp(10),
		TotalLoads:      1,
		ResponseRate:    floatp(60),
		PreferredLanes:  []string{"NJ-PA"},
	}
	res := TargetScore(b, carrier)
	want := []string{
		"based in home state NJ",
		"runs preferred lane NJ-PA",
		"authority active",
		"strong credit (95)",
		"pays in 10 days",
		"1 loads booked previously",
		"responds to outreach",
	}
	assert.Equal(t, want, res.Reasons)
}
