package compliance

import (
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of a calling-window check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason"`
	LocalTime time.Time `json:"local_time"`
	Rule      Rule      `json:"rule"`
}

// Check evaluates whether an outbound call to the given state is permitted
// at the given instant. Email is never gated by this check. Timezone data
// that fails to load degrades to UTC rather than blocking the dispatch path.
func Check(state string, now time.Time) Result {
	rule, _ := RuleFor(state)

	loc, err := time.LoadLocation(rule.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	hour := local.Hour()

	res := Result{LocalTime: local, Rule: rule}
	switch {
	case hour < rule.StartHour:
		res.Reason = fmt.Sprintf("too early to call %s: local time is %s, calls permitted from %02d:00",
			rule.State, local.Format("15:04"), rule.StartHour)
	case hour >= rule.EndHour:
		res.Reason = fmt.Sprintf("too late to call %s: local time is %s, calls permitted until %02d:00",
			rule.State, local.Format("15:04"), rule.EndHour)
	default:
		res.Allowed = true
		res.Reason = fmt.Sprintf("within permitted calling hours for %s (%02d:00-%02d:00 local)",
			rule.State, rule.StartHour, rule.EndHour)
	}
	return res
}

func normalize(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}
