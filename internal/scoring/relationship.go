// Package scoring holds the deterministic broker scoring functions. Both
// scorers are pure: they take plain records and return plain result
// structures, never touch the database, and never fail — absent inputs
// degrade to neutral defaults.
package scoring

import (
	"time"

	"github.com/loadpoint/broker-outreach/internal/domain"
)

// Relationship health labels, by total score.
const (
	LabelExcellent = "EXCELLENT"
	LabelGood      = "GOOD"
	LabelFair      = "FAIR"
	LabelPoor      = "POOR"
)

// RelationshipBreakdown is the per-factor decomposition of a relationship
// score. Each factor is clamped to [0,25]; the four sum (capped) to the total.
type RelationshipBreakdown struct {
	Payment        int `json:"payment"`
	Responsiveness int `json:"responsiveness"`
	Revenue        int `json:"revenue"`
	Reliability    int `json:"reliability"`
}

// RelationshipResult is the output of RelationshipScore.
type RelationshipResult struct {
	Score     int                   `json:"score"`
	Label     string                `json:"label"`
	Breakdown RelationshipBreakdown `json:"breakdown"`
}

// RelationshipScore computes a 0-100 broker health score from historical
// signals, relative to now. Persistence of the result is the caller's
// responsibility.
func RelationshipScore(b *domain.Broker, now time.Time) RelationshipResult {
	bd := RelationshipBreakdown{
		Payment:        paymentScore(b),
		Responsiveness: responsivenessScore(b, now),
		Revenue:        revenueScore(b),
		Reliability:    reliabilityScore(b),
	}

	total := bd.Payment + bd.Responsiveness + bd.Revenue + bd.Reliability
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	return RelationshipResult{Score: total, Label: scoreLabel(total), Breakdown: bd}
}

func scoreLabel(total int) string {
	switch {
	case total >= 80:
		return LabelExcellent
	case total >= 60:
		return LabelGood
	case total >= 40:
		return LabelFair
	default:
		return LabelPoor
	}
}

// paymentScore tiers by credit score, then adjusts for payment speed.
func paymentScore(b *domain.Broker) int {
	score := 15 // neutral default when no credit data exists
	if b.CreditScore != nil {
		switch cs := *b.CreditScore; {
		case cs >= 95:
			score = 25
		case cs >= 90:
			score = 22
		case cs >= 85:
			score = 18
		case cs >= 80:
			score = 12
		default:
			score = 5
		}
	}

	if b.DaysToPay != nil {
		switch d := *b.DaysToPay; {
		case d <= 7:
			score += 5
		case d <= 15:
			score += 3
		case d > 45:
			score -= 5
		}
	}

	return clampFactor(score)
}

// responsivenessScore tiers by response rate, penalizes repeated silence,
// then adjusts for contact recency.
func responsivenessScore(b *domain.Broker, now time.Time) int {
	score := 10
	rate := 0.0
	if b.ResponseRate != nil {
		rate = *b.ResponseRate
	}

	switch {
	case rate > 80:
		score = 25
	case rate > 50:
		score = 20
	case rate > 25:
		score = 15
	case rate > 0:
		score = 8
	default:
		// No responses yet. Several unanswered attempts is a strong negative
		// signal; an untried broker keeps the neutral default.
		if b.TotalAttempts > 3 && b.TotalResponses == 0 {
			score = 2
		}
	}

	if b.LastContactAt != nil {
		days := int(now.Sub(*b.LastContactAt).Hours() / 24)
		switch {
		case days <= 7:
			score += 5
		case days <= 30:
			score += 2
		case days > 90:
			score -= 3
		}
	}

	return clampFactor(score)
}

// revenueScore tiers by booked load count.
func revenueScore(b *domain.Broker) int {
	switch loads := b.TotalLoads; {
	case loads >= 10:
		return 25
	case loads >= 5:
		return 20
	case loads >= 2:
		return 15
	case loads >= 1:
		return 10
	default:
		return 0
	}
}

// reliabilityScore adds credit for authority, insurance, and an active
// relationship. Blacklisted brokers score zero regardless of the rest.
func reliabilityScore(b *domain.Broker) int {
	if b.OutreachStatus == domain.OutreachBlacklisted {
		return 0
	}

	score := 10
	if b.HasAuthorityActive() {
		score += 8
	}
	if b.InsuranceOnFile {
		score += 4
	}
	if b.OutreachStatus == domain.OutreachActive {
		score += 3
	}
	return clampFactor(score)
}

func clampFactor(v int) int {
	if v < 0 {
		return 0
	}
	if v > 25 {
		return 25
	}
	return v
}
