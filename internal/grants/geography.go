package grants

import (
	"sort"
	"strings"

	"github.com/spigell/grant-matcher/internal/textutil"
)

// GeoMatch describes how an opportunity's geography relates to an organization.
type GeoMatch int

const (
	// GeoUnknown means the opportunity carries no geographic signal.
	GeoUnknown GeoMatch = iota
	GeoNational
	GeoCity
	GeoState
	// GeoMismatch means the opportunity is restricted to places that exclude the organization.
	GeoMismatch
)

var nationalMarkers = []string{
	"national", "nationwide", "unrestricted", "united states", "usa", "us", "all states", "any state",
}

var usStates = map[string]string{
	"AL": "alabama", "AK": "alaska", "AZ": "arizona", "AR": "arkansas", "CA": "california",
	"CO": "colorado", "CT": "connecticut", "DE": "delaware", "FL": "florida", "GA": "georgia",
	"HI": "hawaii", "ID": "idaho", "IL": "illinois", "IN": "indiana", "IA": "iowa",
	"KS": "kansas", "KY": "kentucky", "LA": "louisiana", "ME": "maine", "MD": "maryland",
	"MA": "massachusetts", "MI": "michigan", "MN": "minnesota", "MS": "mississippi", "MO": "missouri",
	"MT": "montana", "NE": "nebraska", "NV": "nevada", "NH": "new hampshire", "NJ": "new jersey",
	"NM": "new mexico", "NY": "new york", "NC": "north carolina", "ND": "north dakota", "OH": "ohio",
	"OK": "oklahoma", "OR": "oregon", "PA": "pennsylvania", "RI": "rhode island", "SC": "south carolina",
	"SD": "south dakota", "TN": "tennessee", "TX": "texas", "UT": "utah", "VT": "vermont",
	"VA": "virginia", "WA": "washington", "WV": "west virginia", "WI": "wisconsin", "WY": "wyoming",
	"DC": "district of columbia", "PR": "puerto rico",
}

var stateNamesLongestFirst = func() []string {
	names := make([]string, 0, len(usStates))
	for _, name := range usStates {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}()

// StateName returns the lowercase full name for a state abbreviation or name.
func StateName(state string) string {
	state = strings.TrimSpace(state)
	if name, ok := usStates[strings.ToUpper(state)]; ok {
		return name
	}
	return textutil.Normalize(state)
}

// IsNational reports whether the geography tag declares no location restriction.
func IsNational(geography string) bool {
	normalized := textutil.Normalize(geography)
	if normalized == "" {
		return false
	}
	for _, marker := range nationalMarkers {
		if normalized == marker || (len(marker) > 3 && textutil.ContainsPhrase(normalized, marker)) {
			return true
		}
	}
	return false
}

// MatchGeography compares an opportunity geography tag with the organization location.
// A city only matches when the tag names no state or also names the organization's state.
func MatchGeography(geography string, org *Organization) GeoMatch {
	if strings.TrimSpace(geography) == "" {
		return GeoUnknown
	}
	if IsNational(geography) {
		return GeoNational
	}

	states := statesIn(geography, org.City)
	orgState := ""
	if state := strings.TrimSpace(org.State); state != "" {
		orgState = StateName(state)
	}
	_, inState := states[orgState]
	if !inState && orgState != "" && !isStateName(orgState) {
		// Regions outside the state table are matched by name.
		inState = textutil.ContainsPhrase(geography, orgState)
	}

	if city := strings.TrimSpace(org.City); city != "" && textutil.ContainsPhrase(geography, city) {
		if len(states) == 0 || inState {
			return GeoCity
		}
	}
	if inState {
		return GeoState
	}

	return GeoMismatch
}

// statesIn returns the full names of the states a geography tag mentions by name or by
// uppercase code. Longer names are claimed first so "West Virginia" is not read as
// "Virginia". The skip phrase, usually the organization's city, is ignored.
func statesIn(geography, skip string) map[string]struct{} {
	found := make(map[string]struct{})

	text := " " + textutil.Normalize(geography) + " "
	if phrase := textutil.Normalize(skip); phrase != "" {
		text = removePhrase(text, phrase)
	}
	for _, name := range stateNamesLongestFirst {
		if strings.Contains(text, " "+name+" ") {
			found[name] = struct{}{}
			text = removePhrase(text, name)
		}
	}

	for abbr, name := range usStates {
		if containsAbbreviation(geography, abbr) {
			found[name] = struct{}{}
		}
	}
	return found
}

func removePhrase(text, phrase string) string {
	padded := " " + phrase + " "
	for strings.Contains(text, padded) {
		text = strings.ReplaceAll(text, padded, " ")
	}
	return text
}

func isStateName(name string) bool {
	for _, n := range usStates {
		if n == name {
			return true
		}
	}
	return false
}

// containsAbbreviation looks for a state code as its own uppercase word, so "IN" matches
// "Gary, IN" but the word "in" inside prose does not.
func containsAbbreviation(geography, abbr string) bool {
	fields := strings.FieldsFunc(geography, func(r rune) bool {
		return r == ',' || r == ';' || r == '/' || r == '(' || r == ')' || r == ' ' || r == '-'
	})
	for _, f := range fields {
		if f == abbr {
			return true
		}
	}
	return false
}
