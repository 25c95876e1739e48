package scoring

import (
	"fmt"
	"strings"

	"github.com/loadpoint/broker-outreach/internal/domain"
	"github.com/loadpoint/broker-outreach/internal/geo"
)

// TargetBase is the starting score before any targeting rule fires.
const TargetBase = 50

// TargetResult is the output of TargetScore: a clamped 0-100 score plus the
// reasons each rule contributed, in firing order. Reasons exist for
// explainability only; they never feed back into the number.
type TargetResult struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// TargetScore computes how worthwhile it is to contact this broker right now
// for the given carrier. Works for CRM brokers and converted pool leads alike.
func TargetScore(b *domain.Broker, carrier *domain.CarrierProfile) TargetResult {
	score := TargetBase
	var reasons []string

	home := strings.ToUpper(strings.TrimSpace(carrier.HomeState))
	state := strings.ToUpper(strings.TrimSpace(b.AddressState))

	// Geography first: same state beats neighboring state.
	switch {
	case state != "" && state == home:
		score += 20
		reasons = append(reasons, fmt.Sprintf("based in home state %s", home))
	case state != "" && geo.Adjacent(state, home):
		score += 10
		reasons = append(reasons, fmt.Sprintf("%s borders home state %s", state, home))
	}

	// Lane overlap: +10 per carrier lane that matches a broker lane in either
	// containment direction ("NJ-PA" matches "NJ-PA-priority" and vice versa).
	for _, cl := range carrier.PreferredLanes {
		if laneMatches(cl, b.PreferredLanes) {
			score += 10
			reasons = append(reasons, fmt.Sprintf("runs preferred lane %s", cl))
		}
	}

	if b.HasAuthorityActive() {
		score += 5
		reasons = append(reasons, "authority active")
	}

	if b.CreditScore != nil {
		switch cs := *b.CreditScore; {
		case cs >= 90:
			score += 10
			reasons = append(reasons, fmt.Sprintf("strong credit (%d)", cs))
		case cs < 80:
			score -= 15
			reasons = append(reasons, fmt.Sprintf("weak credit (%d)", cs))
		}
	}

	if b.DaysToPay != nil {
		switch d := *b.DaysToPay; {
		case d <= 15:
			score += 10
			reasons = append(reasons, fmt.Sprintf("pays in %d days", d))
		case d > 45:
			score -= 5
			reasons = append(reasons, fmt.Sprintf("slow payer (%d days)", d))
		}
	}

	if b.OutreachStatus == domain.OutreachNew || b.OutreachStatus == "" {
		score += 5
		reasons = append(reasons, "never contacted")
	}

	if b.TotalLoads > 0 {
		score += 5 * b.TotalLoads
		reasons = append(reasons, fmt.Sprintf("%d loads booked previously", b.TotalLoads))
	}

	if b.ResponseRate != nil && *b.ResponseRate > 50 {
		score += 10
		reasons = append(reasons, "responds to outreach")
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return TargetResult{Score: score, Reasons: reasons}
}

// laneMatches reports whether the carrier lane substring-matches any broker
// lane, checking containment in both directions.
func laneMatches(carrierLane string, brokerLanes []string) bool {
	cl := strings.ToUpper(strings.TrimSpace(carrierLane))
	if cl == "" {
		return false
	}
	for _, bl := range brokerLanes {
		bl = strings.ToUpper(strings.TrimSpace(bl))
		if bl == "" {
			continue
		}
		if strings.Contains(bl, cl) || strings.Contains(cl, bl) {
			return true
		}
	}
	return false
}
