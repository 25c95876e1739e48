// Package geo provides the static US state adjacency graph used for
// expanding a carrier's home state into a target region set.
package geo

import "strings"

// borders lists each state's land neighbors once; the symmetric closure is
// built at init so lookups are bidirectional regardless of declaration order.
var borders = map[string][]string{
	"AL": {"FL", "GA", "MS", "TN"},
	"AZ": {"CA", "CO", "NM", "NV", "UT"},
	"AR": {"LA", "MO", "MS", "OK", "TN", "TX"},
	"CA": {"NV", "OR"},
	"CO": {"KS", "NE", "NM", "OK", "UT", "WY"},
	"CT": {"MA", "NY", "RI"},
	"DE": {"MD", "NJ", "PA"},
	"FL": {"GA"},
	"GA": {"NC", "SC", "TN"},
	"ID": {"MT", "NV", "OR", "UT", "WA", "WY"},
	"IL": {"IA", "IN", "KY", "MO", "WI"},
	"IN": {"KY", "MI", "OH"},
	"IA": {"MN", "MO", "NE", "SD", "WI"},
	"KS": {"MO", "NE", "OK"},
	"KY": {"MO", "OH", "TN", "VA", "WV"},
	"LA": {"MS", "TX"},
	"ME": {"NH"},
	"MD": {"PA", "VA", "WV", "DC"},
	"MA": {"NH", "NY", "RI", "VT"},
	"MI": {"OH", "WI"},
	"MN": {"ND", "SD", "WI"},
	"MS": {"TN"},
	"MO": {"NE", "OK", "TN"},
	"MT": {"ND", "SD", "WY"},
	"NE": {"SD", "WY"},
	"NV": {"OR", "UT"},
	"NH": {"VT"},
	"NJ": {"NY", "PA"},
	"NM": {"OK", "TX", "UT"},
	"NY": {"PA", "VT"},
	"NC": {"SC", "TN", "VA"},
	"ND": {"SD"},
	"OH": {"PA", "WV"},
	"OK": {"TX"},
	"OR": {"WA"},
	"PA": {"WV"},
	"SD": {"WY"},
	"TN": {"VA"},
	"UT": {"WY"},
	"VA": {"WV", "DC"},
}

var adjacency map[string]map[string]bool

func init() {
	adjacency = make(map[string]map[string]bool, len(borders))
	add := func(a, b string) {
		if adjacency[a] == nil {
			adjacency[a] = make(map[string]bool)
		}
		adjacency[a][b] = true
	}
	for state, neighbors := range borders {
		for _, n := range neighbors {
			add(state, n)
			add(n, state)
		}
	}
}

// Neighbors returns the set of states bordering the given state code.
// Unknown or empty codes yield an empty slice, not an error.
func Neighbors(state string) []string {
	set := adjacency[normalize(state)]
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return out
}

// Adjacent reports whether two state codes share a border.
func Adjacent(a, b string) bool {
	return adjacency[normalize(a)][normalize(b)]
}

// TargetRegions returns the home state plus all its neighbors, deduplicated.
// This is the region set a carrier's outreach targeting starts from.
func TargetRegions(home string) []string {
	home = normalize(home)
	if home == "" {
		return nil
	}
	out := []string{home}
	for n := range adjacency[home] {
		if n != home {
			out = append(out, n)
		}
	}
	return out
}

func normalize(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}
