// Package compliance evaluates state calling-hour rules before any outbound
// call is placed. Rules are static data loaded once at process start; this
// package computes nothing beyond "is the local clock inside the permitted
// window" — it never decides registry membership, only whether a state
// registry applies.
package compliance

// Rule is the calling rule record for one state. The window is
// [StartHour, EndHour) on the state's local 24-hour clock.
type Rule struct {
	State          string   `json:"state"`
	Timezone       string   `json:"timezone"`
	StartHour      int      `json:"start_hour"`
	EndHour        int      `json:"end_hour"`
	HasDNCRegistry bool     `json:"has_dnc_registry"`
	Restrictions   []string `json:"restrictions,omitempty"`
}

// FederalDefault is the fallback rule for unknown region codes: the TCPA
// window evaluated in Eastern time, no state registry.
var FederalDefault = Rule{
	State:     "US",
	Timezone:  "America/New_York",
	StartHour: 8,
	EndHour:   21,
}

// stateRules keys every state's rule by its two-letter code. States without
// an entry in tighterWindows inherit the federal 8-21 window in their own
// timezone.
var stateRules = buildStateRules()

func buildStateRules() map[string]Rule {
	timezones := map[string]string{
		"CT": "America/New_York", "DE": "America/New_York", "DC": "America/New_York",
		"FL": "America/New_York", "GA": "America/New_York", "IN": "America/Indiana/Indianapolis",
		"KY": "America/New_York", "ME": "America/New_York", "MD": "America/New_York",
		"MA": "America/New_York", "MI": "America/Detroit", "NH": "America/New_York",
		"NJ": "America/New_York", "NY": "America/New_York", "NC": "America/New_York",
		"OH": "America/New_York", "PA": "America/New_York", "RI": "America/New_York",
		"SC": "America/New_York", "VT": "America/New_York", "VA": "America/New_York",
		"WV": "America/New_York",

		"AL": "America/Chicago", "AR": "America/Chicago", "IL": "America/Chicago",
		"IA": "America/Chicago", "KS": "America/Chicago", "LA": "America/Chicago",
		"MN": "America/Chicago", "MS": "America/Chicago", "MO": "America/Chicago",
		"NE": "America/Chicago", "ND": "America/Chicago", "OK": "America/Chicago",
		"SD": "America/Chicago", "TN": "America/Chicago", "TX": "America/Chicago",
		"WI": "America/Chicago",

		"AZ": "America/Phoenix", "CO": "America/Denver", "ID": "America/Boise",
		"MT": "America/Denver", "NM": "America/Denver", "UT": "America/Denver",
		"WY": "America/Denver",

		"CA": "America/Los_Angeles", "NV": "America/Los_Angeles",
		"OR": "America/Los_Angeles", "WA": "America/Los_Angeles",

		"AK": "America/Anchorage", "HI": "Pacific/Honolulu",
	}

	// States that cut the evening window earlier than federal law, or run
	// their own do-not-call registry on top of the national one.
	type override struct {
		start, end   int
		registry     bool
		restrictions []string
	}
	overrides := map[string]override{
		"AL": {8, 20, false, nil},
		"CO": {8, 21, true, nil},
		"FL": {8, 20, true, []string{"max 3 call attempts per 24h per number"}},
		"IN": {8, 21, true, []string{"no calls on state holidays"}},
		"LA": {8, 21, true, []string{"no calls on Sundays or legal holidays"}},
		"MA": {8, 20, true, nil},
		"MO": {8, 21, true, nil},
		"MS": {8, 20, true, nil},
		"OK": {8, 21, true, nil},
		"OR": {8, 21, true, nil},
		"PA": {8, 21, true, nil},
		"SC": {8, 20, false, nil},
		"TN": {8, 21, true, nil},
		"TX": {9, 21, true, []string{"no calls before noon on Sundays"}},
		"UT": {8, 21, true, nil},
		"WY": {8, 21, true, nil},
	}

	rules := make(map[string]Rule, len(timezones))
	for state, tz := range timezones {
		r := Rule{
			State:     state,
			Timezone:  tz,
			StartHour: FederalDefault.StartHour,
			EndHour:   FederalDefault.EndHour,
		}
		if o, ok := overrides[state]; ok {
			r.StartHour = o.start
			r.EndHour = o.end
			r.HasDNCRegistry = o.registry
			r.Restrictions = o.restrictions
		}
		rules[state] = r
	}
	return rules
}

// RuleFor returns the calling rule for a state code, falling back to the
// federal default for unknown codes. The second return reports whether a
// state-specific rule existed.
func RuleFor(state string) (Rule, bool) {
	if r, ok := stateRules[normalize(state)]; ok {
		return r, true
	}
	return FederalDefault, false
}
